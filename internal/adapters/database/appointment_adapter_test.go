package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/repositories"
	"github.com/carebook/carebook/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/carebook/carebook/backend/pkg/errors"
)

func setupMockAdapter(t *testing.T) (repositories.AppointmentRepository, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewAppointmentAdapter(postgres.NewClientFromDB(mockDB)), mock
}

func scheduledAppointment() *entities.Appointment {
	start := time.Date(2026, 9, 14, 14, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	return &entities.Appointment{
		ID:                "appt-1",
		ProviderID:        "prov-1",
		PayerID:           "payer-1",
		ServiceInstanceID: "si-1",
		PatientRef:        "patient-1",
		Start:             start,
		End:               start.Add(time.Hour),
		Status:            entities.AppointmentStatusScheduled,
		BillingProviderID: "prov-1",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestAppointmentAdapter_CreateExclusive(t *testing.T) {
	overlapColumns := []string{"id", "start_time", "end_time"}

	t.Run("takes the provider advisory lock before checking overlaps", func(t *testing.T) {
		adapter, mock := setupMockAdapter(t)
		appointment := scheduledAppointment()

		mock.ExpectBegin()
		// Ordered expectations: the lock must precede the overlap read, or
		// two first bookings for the same provider both see zero rows
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WithArgs(appointment.ProviderID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT "id", "start_time", "end_time" FROM "appointments"`).
			WillReturnRows(sqlmock.NewRows(overlapColumns))
		mock.ExpectExec(`INSERT INTO "appointments"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := adapter.CreateExclusive(context.Background(), appointment)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns conflict without inserting when an overlapping row exists", func(t *testing.T) {
		adapter, mock := setupMockAdapter(t)
		appointment := scheduledAppointment()

		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WithArgs(appointment.ProviderID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT "id", "start_time", "end_time" FROM "appointments"`).
			WillReturnRows(sqlmock.NewRows(overlapColumns).
				AddRow("appt-0", appointment.Start, appointment.End))
		mock.ExpectRollback()

		err := adapter.CreateExclusive(context.Background(), appointment)

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps an exclusion constraint violation to conflict", func(t *testing.T) {
		adapter, mock := setupMockAdapter(t)
		appointment := scheduledAppointment()

		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WithArgs(appointment.ProviderID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT "id", "start_time", "end_time" FROM "appointments"`).
			WillReturnRows(sqlmock.NewRows(overlapColumns))
		mock.ExpectExec(`INSERT INTO "appointments"`).
			WillReturnError(&pq.Error{Code: "23P01"})
		mock.ExpectRollback()

		err := adapter.CreateExclusive(context.Background(), appointment)

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports unavailable when the lock cannot be acquired", func(t *testing.T) {
		adapter, mock := setupMockAdapter(t)
		appointment := scheduledAppointment()

		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WithArgs(appointment.ProviderID).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := adapter.CreateExclusive(context.Background(), appointment)

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
