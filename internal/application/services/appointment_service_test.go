package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carebook/carebook/backend/internal/application/services"
	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/providers"
	apperrors "github.com/carebook/carebook/backend/pkg/errors"
)

type appointmentServiceFixture struct {
	repo        *MockAppointmentRepository
	instances   *MockServiceInstanceRepository
	resolver    *MockResolver
	invalidator *MockInvalidator
	emr         *MockEMRProvider
	eventBus    *MockEventBus
	service     *services.AppointmentService
}

func newAppointmentServiceFixture() *appointmentServiceFixture {
	f := &appointmentServiceFixture{
		repo:        new(MockAppointmentRepository),
		instances:   new(MockServiceInstanceRepository),
		resolver:    new(MockResolver),
		invalidator: new(MockInvalidator),
		emr:         new(MockEMRProvider),
		eventBus:    new(MockEventBus),
	}
	f.service = services.NewAppointmentService(
		f.repo, f.instances, f.resolver, f.invalidator, f.emr, f.eventBus, nil,
	)
	return f
}

func commitRequest(start time.Time) services.CommitAppointmentRequest {
	return services.CommitAppointmentRequest{
		ProviderID:      "prov-1",
		PayerID:         "payer-1",
		Start:           start,
		DurationMinutes: 60,
		PatientRef:      "patient-42",
	}
}

func (f *appointmentServiceFixture) expectResolution(billingProviderID string) {
	f.resolver.On("Resolve", mock.Anything, "payer-1", mock.Anything).
		Return([]entities.BookableProvider{
			{
				ProviderID:        "prov-1",
				Kind:              entities.ResolutionKindDirect,
				BillingProviderID: billingProviderID,
			},
		}, nil)
	f.instances.On("GetByPayerAndDuration", mock.Anything, "payer-1", 60).
		Return(&entities.ServiceInstance{ID: "si-1", DurationMinutes: 60}, nil)
}

func (f *appointmentServiceFixture) expectHappySideEffects() {
	f.invalidator.On("Invalidate", mock.Anything, "prov-1", mock.Anything).Return(nil)
	f.emr.On("MirrorAppointment", mock.Anything, mock.Anything).Return("emr-ext-1", nil)
	f.repo.On("SetExternalEMRID", mock.Anything, mock.Anything, "emr-ext-1").Return(nil)
	f.eventBus.On("Publish", mock.Anything, providers.EventChannelAudit, mock.Anything).Return(nil)
}

func TestAppointmentService_Commit(t *testing.T) {
	ctx := context.Background()
	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)

	t.Run("creates a scheduled appointment billed per the resolution", func(t *testing.T) {
		f := newAppointmentServiceFixture()
		f.expectResolution("billing-md")
		f.repo.On("CreateExclusive", mock.Anything, mock.Anything).Return(nil)
		f.expectHappySideEffects()

		appointment, err := f.service.Commit(ctx, commitRequest(start))

		require.NoError(t, err)
		require.NotNil(t, appointment)
		assert.NotEmpty(t, appointment.ID)
		assert.Equal(t, entities.AppointmentStatusScheduled, appointment.Status)
		assert.Equal(t, "billing-md", appointment.BillingProviderID)
		assert.Equal(t, "si-1", appointment.ServiceInstanceID)
		assert.True(t, appointment.End.Equal(start.Add(time.Hour)))
	})

	t.Run("commit succeeds without an event bus", func(t *testing.T) {
		f := newAppointmentServiceFixture()
		svc := services.NewAppointmentService(
			f.repo, f.instances, f.resolver, f.invalidator, f.emr, nil, nil,
		)
		f.expectResolution("prov-1")
		f.repo.On("CreateExclusive", mock.Anything, mock.Anything).Return(nil)
		f.invalidator.On("Invalidate", mock.Anything, "prov-1", mock.Anything).Return(nil)
		f.emr.On("MirrorAppointment", mock.Anything, mock.Anything).Return("emr-ext-1", nil)
		f.repo.On("SetExternalEMRID", mock.Anything, mock.Anything, "emr-ext-1").Return(nil)

		var appointment *entities.Appointment
		var err error
		require.NotPanics(t, func() {
			appointment, err = svc.Commit(ctx, commitRequest(start))
		})

		require.NoError(t, err)
		require.NotNil(t, appointment)
		assert.Equal(t, entities.AppointmentStatusScheduled, appointment.Status)
	})

	t.Run("conflict from the store surfaces as conflict and is not retried", func(t *testing.T) {
		f := newAppointmentServiceFixture()
		f.expectResolution("prov-1")
		f.repo.On("CreateExclusive", mock.Anything, mock.Anything).
			Return(apperrors.NewConflictError("appointment overlaps an existing booking"))

		appointment, err := f.service.Commit(ctx, commitRequest(start))

		assert.Nil(t, appointment)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
		f.repo.AssertNumberOfCalls(t, "CreateExclusive", 1)
		f.invalidator.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything, mock.Anything)
		f.emr.AssertNotCalled(t, "MirrorAppointment", mock.Anything, mock.Anything)
	})

	t.Run("provider outside the resolution set is rejected", func(t *testing.T) {
		f := newAppointmentServiceFixture()
		f.resolver.On("Resolve", mock.Anything, "payer-1", mock.Anything).
			Return([]entities.BookableProvider{
				{ProviderID: "prov-other", Kind: entities.ResolutionKindDirect},
			}, nil)

		_, err := f.service.Commit(ctx, commitRequest(start))

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		f.repo.AssertNotCalled(t, "CreateExclusive", mock.Anything, mock.Anything)
	})

	t.Run("past start time is rejected before resolution", func(t *testing.T) {
		f := newAppointmentServiceFixture()

		_, err := f.service.Commit(ctx, commitRequest(time.Now().Add(-time.Hour)))

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		f.resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing patient reference is rejected", func(t *testing.T) {
		f := newAppointmentServiceFixture()
		req := commitRequest(start)
		req.PatientRef = ""

		_, err := f.service.Commit(ctx, req)

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("invalidation failure does not undo the commit", func(t *testing.T) {
		f := newAppointmentServiceFixture()
		f.expectResolution("prov-1")
		f.repo.On("CreateExclusive", mock.Anything, mock.Anything).Return(nil)
		f.invalidator.On("Invalidate", mock.Anything, "prov-1", mock.Anything).
			Return(apperrors.NewUnavailableError("cache down", assert.AnError))
		f.emr.On("MirrorAppointment", mock.Anything, mock.Anything).Return("emr-ext-1", nil)
		f.repo.On("SetExternalEMRID", mock.Anything, mock.Anything, "emr-ext-1").Return(nil)
		f.eventBus.On("Publish", mock.Anything, providers.EventChannelAudit, mock.Anything).Return(nil)

		appointment, err := f.service.Commit(ctx, commitRequest(start))

		require.NoError(t, err)
		require.NotNil(t, appointment)
	})

	t.Run("EMR mirror failure leaves the appointment without an external id", func(t *testing.T) {
		f := newAppointmentServiceFixture()
		f.expectResolution("prov-1")
		f.repo.On("CreateExclusive", mock.Anything, mock.Anything).Return(nil)
		f.invalidator.On("Invalidate", mock.Anything, "prov-1", mock.Anything).Return(nil)
		f.emr.On("MirrorAppointment", mock.Anything, mock.Anything).
			Return("", apperrors.NewExternalError("emr unreachable", assert.AnError))
		f.eventBus.On("Publish", mock.Anything, providers.EventChannelAudit, mock.Anything).Return(nil)

		appointment, err := f.service.Commit(ctx, commitRequest(start))

		require.NoError(t, err)
		assert.Nil(t, appointment.ExternalEMRID)
		f.repo.AssertNotCalled(t, "SetExternalEMRID", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("successful mirror records the external id", func(t *testing.T) {
		f := newAppointmentServiceFixture()
		f.expectResolution("prov-1")
		f.repo.On("CreateExclusive", mock.Anything, mock.Anything).Return(nil)
		f.expectHappySideEffects()

		appointment, err := f.service.Commit(ctx, commitRequest(start))

		require.NoError(t, err)
		require.NotNil(t, appointment.ExternalEMRID)
		assert.Equal(t, "emr-ext-1", *appointment.ExternalEMRID)
		f.repo.AssertCalled(t, "SetExternalEMRID", mock.Anything, appointment.ID, "emr-ext-1")
	})

	t.Run("commit publishes an audit event", func(t *testing.T) {
		f := newAppointmentServiceFixture()
		f.expectResolution("billing-md")
		f.repo.On("CreateExclusive", mock.Anything, mock.Anything).Return(nil)
		f.invalidator.On("Invalidate", mock.Anything, "prov-1", mock.Anything).Return(nil)
		f.emr.On("MirrorAppointment", mock.Anything, mock.Anything).Return("emr-ext-1", nil)
		f.repo.On("SetExternalEMRID", mock.Anything, mock.Anything, "emr-ext-1").Return(nil)
		f.eventBus.On("Publish", mock.Anything, providers.EventChannelAudit, mock.MatchedBy(func(e *entities.ScheduleEvent) bool {
			return e.EventType == entities.ScheduleEventTypeAppointmentCreated &&
				e.ProviderID == "prov-1" &&
				e.Payload["billing_provider_id"] == "billing-md"
		})).Return(nil)

		_, err := f.service.Commit(ctx, commitRequest(start))

		require.NoError(t, err)
		f.eventBus.AssertExpectations(t)
	})
}

func TestAppointmentService_Cancel(t *testing.T) {
	ctx := context.Background()
	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	externalID := "emr-ext-1"

	scheduled := func() *entities.Appointment {
		return &entities.Appointment{
			ID:            "appt-1",
			ProviderID:    "prov-1",
			Start:         start,
			End:           start.Add(time.Hour),
			Status:        entities.AppointmentStatusScheduled,
			ExternalEMRID: &externalID,
		}
	}

	t.Run("cancels and mirrors downstream", func(t *testing.T) {
		f := newAppointmentServiceFixture()
		f.repo.On("GetByID", mock.Anything, "appt-1").Return(scheduled(), nil)
		f.repo.On("Cancel", mock.Anything, "appt-1").Return(nil)
		f.invalidator.On("Invalidate", mock.Anything, "prov-1", mock.Anything).Return(nil)
		f.emr.On("MirrorCancellation", mock.Anything, externalID, mock.Anything).Return(nil)
		f.eventBus.On("Publish", mock.Anything, providers.EventChannelAudit, mock.MatchedBy(func(e *entities.ScheduleEvent) bool {
			return e.EventType == entities.ScheduleEventTypeAppointmentCancelled
		})).Return(nil)

		err := f.service.Cancel(ctx, "appt-1")

		assert.NoError(t, err)
		f.emr.AssertExpectations(t)
		f.eventBus.AssertExpectations(t)
	})

	t.Run("already cancelled is a no-op", func(t *testing.T) {
		f := newAppointmentServiceFixture()
		cancelled := scheduled()
		cancelled.Status = entities.AppointmentStatusCancelled
		f.repo.On("GetByID", mock.Anything, "appt-1").Return(cancelled, nil)

		err := f.service.Cancel(ctx, "appt-1")

		assert.NoError(t, err)
		f.repo.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
		f.emr.AssertNotCalled(t, "MirrorCancellation", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no EMR mirror when the appointment was never mirrored", func(t *testing.T) {
		f := newAppointmentServiceFixture()
		local := scheduled()
		local.ExternalEMRID = nil
		f.repo.On("GetByID", mock.Anything, "appt-1").Return(local, nil)
		f.repo.On("Cancel", mock.Anything, "appt-1").Return(nil)
		f.invalidator.On("Invalidate", mock.Anything, "prov-1", mock.Anything).Return(nil)
		f.eventBus.On("Publish", mock.Anything, providers.EventChannelAudit, mock.Anything).Return(nil)

		err := f.service.Cancel(ctx, "appt-1")

		assert.NoError(t, err)
		f.emr.AssertNotCalled(t, "MirrorCancellation", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown appointment returns not found", func(t *testing.T) {
		f := newAppointmentServiceFixture()
		f.repo.On("GetByID", mock.Anything, "missing").
			Return(nil, apperrors.NewNotFoundError("appointment not found"))

		err := f.service.Cancel(ctx, "missing")

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}
