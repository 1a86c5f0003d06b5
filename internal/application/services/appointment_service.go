package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/providers"
	"github.com/carebook/carebook/backend/internal/domain/repositories"
	"github.com/carebook/carebook/backend/internal/infrastructure/observability"
	apperrors "github.com/carebook/carebook/backend/pkg/errors"
)

// Invalidator is the cache invalidation dependency of the commit path
type Invalidator interface {
	Invalidate(ctx context.Context, providerID string, date time.Time) error
}

// CommitAppointmentRequest carries everything a booking commit needs
type CommitAppointmentRequest struct {
	ProviderID      string    `json:"provider_id"`
	PayerID         string    `json:"payer_id"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
	PatientRef      string    `json:"patient_ref"`
}

// AppointmentService commits and cancels bookings. The transactional insert
// is the source of truth for no-double-booking; the availability cache is
// presentation data invalidated after the fact.
type AppointmentService struct {
	repo         repositories.AppointmentRepository
	instanceRepo repositories.ServiceInstanceRepository
	resolver     Resolver
	invalidator  Invalidator
	emr          providers.EMRProvider
	eventBus     providers.EventBus
	metrics      *observability.Metrics
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(
	repo repositories.AppointmentRepository,
	instanceRepo repositories.ServiceInstanceRepository,
	resolver Resolver,
	invalidator Invalidator,
	emr providers.EMRProvider,
	eventBus providers.EventBus,
	metrics *observability.Metrics,
) *AppointmentService {
	return &AppointmentService{
		repo:         repo,
		instanceRepo: instanceRepo,
		resolver:     resolver,
		invalidator:  invalidator,
		emr:          emr,
		eventBus:     eventBus,
		metrics:      metrics,
	}
}

// Commit books an appointment. Exactly one of two concurrent commits for an
// overlapping interval succeeds; the loser gets a Conflict error and is
// never retried automatically. Cache invalidation, the EMR mirror and the
// audit event all run strictly after the local commit and none of them can
// undo it.
func (s *AppointmentService) Commit(ctx context.Context, req CommitAppointmentRequest) (*entities.Appointment, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	bookable, err := s.resolver.Resolve(ctx, req.PayerID, ResolutionOptions{At: req.Start})
	if err != nil {
		return nil, err
	}
	resolution, ok := findBookable(bookable, req.ProviderID)
	if !ok {
		return nil, apperrors.NewValidationError("provider is not bookable under this payer")
	}

	instance, err := s.instanceRepo.GetByPayerAndDuration(ctx, req.PayerID, req.DurationMinutes)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	appointment := &entities.Appointment{
		ID:                uuid.New().String(),
		ProviderID:        req.ProviderID,
		PayerID:           req.PayerID,
		ServiceInstanceID: instance.ID,
		PatientRef:        req.PatientRef,
		Start:             req.Start,
		End:               req.Start.Add(time.Duration(req.DurationMinutes) * time.Minute),
		Status:            entities.AppointmentStatusScheduled,
		BillingProviderID: resolution.BillingProviderID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.CreateExclusive(ctx, appointment); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			observability.RecordCommitConflict(ctx, s.metrics, req.ProviderID)
		}
		return nil, err
	}

	s.afterCommit(ctx, appointment)
	return appointment, nil
}

// afterCommit runs the post-commit side effects. Every failure here is
// logged and swallowed: the appointment stands regardless.
func (s *AppointmentService) afterCommit(ctx context.Context, appointment *entities.Appointment) {
	logger := observability.LoggerFromContext(ctx)

	if err := s.invalidator.Invalidate(ctx, appointment.ProviderID, appointment.Start); err != nil {
		logger.Warn().
			Err(err).
			Str("appointment_id", appointment.ID).
			Msg("post-commit cache invalidation failed; entry left stale")
	}

	externalID, err := s.emr.MirrorAppointment(ctx, appointment)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("appointment_id", appointment.ID).
			Msg("EMR mirror failed")
	} else {
		appointment.ExternalEMRID = &externalID
		if err := s.repo.SetExternalEMRID(ctx, appointment.ID, externalID); err != nil {
			logger.Warn().
				Err(err).
				Str("appointment_id", appointment.ID).
				Msg("failed to record external EMR id")
		}
	}

	event := entities.NewScheduleEvent(appointment.ProviderID,
		appointment.Start.Format(entities.DateLayout),
		entities.ScheduleEventTypeAppointmentCreated, map[string]any{
			"appointment_id":      appointment.ID,
			"billing_provider_id": appointment.BillingProviderID,
		})
	s.publishAudit(ctx, event, appointment.ID, "failed to publish commit audit event")
}

// publishAudit emits an audit event best-effort. A nil bus means Redis is
// down; the committed state stands either way.
func (s *AppointmentService) publishAudit(ctx context.Context, event *entities.ScheduleEvent, appointmentID, failureMsg string) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, providers.EventChannelAudit, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("appointment_id", appointmentID).
			Msg(failureMsg)
	}
}

// Cancel flips an appointment to cancelled, invalidates the affected cache
// day and mirrors the cancellation downstream best-effort
func (s *AppointmentService) Cancel(ctx context.Context, id string) error {
	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if appointment.Status == entities.AppointmentStatusCancelled {
		return nil
	}

	if err := s.repo.Cancel(ctx, id); err != nil {
		return err
	}

	logger := observability.LoggerFromContext(ctx)
	if err := s.invalidator.Invalidate(ctx, appointment.ProviderID, appointment.Start); err != nil {
		logger.Warn().
			Err(err).
			Str("appointment_id", id).
			Msg("post-cancel cache invalidation failed; entry left stale")
	}

	if appointment.ExternalEMRID != nil {
		if err := s.emr.MirrorCancellation(ctx, *appointment.ExternalEMRID, "cancelled by patient"); err != nil {
			logger.Warn().
				Err(err).
				Str("appointment_id", id).
				Msg("EMR cancellation mirror failed")
		}
	}

	event := entities.NewScheduleEvent(appointment.ProviderID,
		appointment.Start.Format(entities.DateLayout),
		entities.ScheduleEventTypeAppointmentCancelled, map[string]any{
			"appointment_id": id,
		})
	s.publishAudit(ctx, event, id, "failed to publish cancellation audit event")
	return nil
}

// GetByID retrieves an appointment
func (s *AppointmentService) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *AppointmentService) validate(req CommitAppointmentRequest) error {
	if req.ProviderID == "" || req.PayerID == "" {
		return apperrors.NewValidationError("provider id and payer id are required")
	}
	if req.PatientRef == "" {
		return apperrors.NewValidationError("patient reference is required")
	}
	if req.DurationMinutes <= 0 {
		return apperrors.NewValidationError("duration must be positive")
	}
	if req.Start.Before(time.Now()) {
		return apperrors.NewValidationError("cannot book an appointment in the past")
	}
	return nil
}

func findBookable(bookable []entities.BookableProvider, providerID string) (entities.BookableProvider, bool) {
	for _, b := range bookable {
		if b.ProviderID == providerID {
			return b, true
		}
	}
	return entities.BookableProvider{}, false
}
