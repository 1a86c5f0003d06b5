package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"

	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/repositories"
	"github.com/carebook/carebook/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/carebook/carebook/backend/pkg/errors"
)

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var appointmentColumns = []any{
	"id", "provider_id", "payer_id", "service_instance_id", "patient_ref",
	"start_time", "end_time", "status", "billing_provider_id",
	"external_emr_id", "created_at", "updated_at",
}

func scanAppointment(scan func(dest ...any) error) (*entities.Appointment, error) {
	appointment := &entities.Appointment{}
	var externalEMRID sql.NullString
	err := scan(
		&appointment.ID,
		&appointment.ProviderID,
		&appointment.PayerID,
		&appointment.ServiceInstanceID,
		&appointment.PatientRef,
		&appointment.Start,
		&appointment.End,
		&appointment.Status,
		&appointment.BillingProviderID,
		&externalEMRID,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if externalEMRID.Valid {
		appointment.ExternalEMRID = &externalEMRID.String
	}
	return appointment, nil
}

// isConflictError reports whether a driver error is a unique or exclusion
// constraint violation raised by a losing concurrent insert
func isConflictError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" || pqErr.Code == "23P01"
	}
	return false
}

// CreateExclusive inserts the appointment inside a transaction that serializes
// commits per provider. The advisory lock covers the first-booking case where
// no overlapping row exists yet to lock; the overlap recheck under it plus
// the table's exclusion constraint guarantee at most one of two concurrent
// commits for the same interval succeeds.
func (a *AppointmentAdapter) CreateExclusive(ctx context.Context, appointment *entities.Appointment) error {
	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewUnavailableError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	// Held until commit or rollback; row locks alone cannot order two
	// inserts when neither sees an existing overlapping row
	if _, err := tx.ExecContext(ctx,
		"SELECT pg_advisory_xact_lock(hashtext($1))", appointment.ProviderID); err != nil {
		return apperrors.NewUnavailableError("failed to acquire provider lock", err)
	}

	lockQuery, lockArgs, err := a.db.Select("id", "start_time", "end_time").
		From("appointments").
		Where(
			goqu.Ex{"provider_id": appointment.ProviderID},
			goqu.C("status").Neq(string(entities.AppointmentStatusCancelled)),
			goqu.C("start_time").Lt(appointment.End),
			goqu.C("end_time").Gt(appointment.Start),
		).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build lock query", err)
	}

	rows, err := tx.QueryContext(ctx, lockQuery, lockArgs...)
	if err != nil {
		return apperrors.NewUnavailableError("failed to lock overlapping appointments", err)
	}

	conflicting := 0
	for rows.Next() {
		conflicting++
	}
	iterErr := rows.Err()
	rows.Close()
	if iterErr != nil {
		return apperrors.NewUnavailableError("failed to check overlapping appointments", iterErr)
	}
	if conflicting > 0 {
		return apperrors.NewConflictError(fmt.Sprintf(
			"provider %s already has an appointment overlapping %s",
			appointment.ProviderID, appointment.Start.Format(time.RFC3339)))
	}

	var externalEMRID any
	if appointment.ExternalEMRID != nil {
		externalEMRID = *appointment.ExternalEMRID
	}

	insertQuery, insertArgs, err := a.db.Insert("appointments").
		Rows(goqu.Record{
			"id":                  appointment.ID,
			"provider_id":         appointment.ProviderID,
			"payer_id":            appointment.PayerID,
			"service_instance_id": appointment.ServiceInstanceID,
			"patient_ref":         appointment.PatientRef,
			"start_time":          appointment.Start,
			"end_time":            appointment.End,
			"status":              string(appointment.Status),
			"billing_provider_id": appointment.BillingProviderID,
			"external_emr_id":     externalEMRID,
			"created_at":          appointment.CreatedAt,
			"updated_at":          appointment.UpdatedAt,
		}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := tx.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
		if isConflictError(err) {
			return apperrors.NewConflictError("appointment slot was taken by a concurrent booking")
		}
		return apperrors.NewUnavailableError("failed to insert appointment", err)
	}

	if err := tx.Commit(); err != nil {
		if isConflictError(err) {
			return apperrors.NewConflictError("appointment slot was taken by a concurrent booking")
		}
		return apperrors.NewUnavailableError("failed to commit appointment", err)
	}
	return nil
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	row := a.client.DB().QueryRowContext(ctx, query, args...)
	appointment, err := scanAppointment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to get appointment", err)
	}
	return appointment, nil
}

// Cancel marks an appointment cancelled
func (a *AppointmentAdapter) Cancel(ctx context.Context, id string) error {
	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{
			"status":     string(entities.AppointmentStatusCancelled),
			"updated_at": time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build cancel query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewUnavailableError("failed to cancel appointment", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to read affected rows", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	return nil
}

// SetExternalEMRID records the downstream EMR identifier after mirroring
func (a *AppointmentAdapter) SetExternalEMRID(ctx context.Context, id, externalID string) error {
	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{
			"external_emr_id": externalID,
			"updated_at":      time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewUnavailableError("failed to set external EMR id", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to read affected rows", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	return nil
}

// ListByProviderBetween retrieves a provider's non-cancelled appointments
// intersecting [from, to)
func (a *AppointmentAdapter) ListByProviderBetween(ctx context.Context, providerID string, from, to time.Time) ([]*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(
			goqu.Ex{"provider_id": providerID},
			goqu.C("status").Neq(string(entities.AppointmentStatusCancelled)),
			goqu.C("start_time").Lt(to),
			goqu.C("end_time").Gt(from),
		).
		Order(goqu.I("start_time").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	return a.queryAppointments(ctx, query, args)
}

// ListByPatient retrieves appointments for a patient reference
func (a *AppointmentAdapter) ListByPatient(ctx context.Context, patientRef string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	ds := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{"patient_ref": patientRef})

	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": string(filter.Status)})
	}
	if filter.From != nil {
		ds = ds.Where(goqu.C("end_time").Gt(*filter.From))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.C("start_time").Lt(*filter.To))
	}

	ds = ds.Order(goqu.I("start_time").Asc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	return a.queryAppointments(ctx, query, args)
}

func (a *AppointmentAdapter) queryAppointments(ctx context.Context, query string, args []any) ([]*entities.Appointment, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to list appointments", err)
	}
	defer rows.Close()

	var appointments []*entities.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows.Scan)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewUnavailableError("failed to iterate appointments", err)
	}

	return appointments, nil
}
