package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/repositories"
	"github.com/carebook/carebook/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/carebook/carebook/backend/pkg/errors"
)

// AvailabilityAdapter implements the AvailabilityRepository interface
type AvailabilityAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAvailabilityAdapter creates a new availability adapter
func NewAvailabilityAdapter(client *postgres.Client) repositories.AvailabilityRepository {
	return &AvailabilityAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var templateColumns = []any{
	"id", "provider_id", "day_of_week", "start_time", "end_time",
	"is_recurring", "created_at", "updated_at",
}

// ListTemplates retrieves all templates for a provider
func (a *AvailabilityAdapter) ListTemplates(ctx context.Context, providerID string) ([]*entities.AvailabilityTemplate, error) {
	ds := a.db.Select(templateColumns...).
		From("availability_templates").
		Where(goqu.Ex{"provider_id": providerID}).
		Order(goqu.I("day_of_week").Asc(), goqu.I("start_time").Asc())

	return a.queryTemplates(ctx, ds)
}

// ListTemplatesForDay retrieves a provider's templates for a day of week
func (a *AvailabilityAdapter) ListTemplatesForDay(ctx context.Context, providerID string, dayOfWeek int) ([]*entities.AvailabilityTemplate, error) {
	ds := a.db.Select(templateColumns...).
		From("availability_templates").
		Where(goqu.Ex{
			"provider_id": providerID,
			"day_of_week": dayOfWeek,
		}).
		Order(goqu.I("start_time").Asc(), goqu.I("id").Asc())

	return a.queryTemplates(ctx, ds)
}

func (a *AvailabilityAdapter) queryTemplates(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.AvailabilityTemplate, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build template query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to list templates", err)
	}
	defer rows.Close()

	var templates []*entities.AvailabilityTemplate
	for rows.Next() {
		template := &entities.AvailabilityTemplate{}
		err := rows.Scan(
			&template.ID,
			&template.ProviderID,
			&template.DayOfWeek,
			&template.StartTime,
			&template.EndTime,
			&template.IsRecurring,
			&template.CreatedAt,
			&template.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan template", err)
		}
		templates = append(templates, template)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewUnavailableError("failed to iterate templates", err)
	}

	return templates, nil
}

// CreateTemplate creates a new template
func (a *AvailabilityAdapter) CreateTemplate(ctx context.Context, template *entities.AvailabilityTemplate) error {
	record := goqu.Record{
		"id":           template.ID,
		"provider_id":  template.ProviderID,
		"day_of_week":  template.DayOfWeek,
		"start_time":   template.StartTime,
		"end_time":     template.EndTime,
		"is_recurring": template.IsRecurring,
		"created_at":   template.CreatedAt,
		"updated_at":   template.UpdatedAt,
	}

	query, args, err := a.db.Insert("availability_templates").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build template insert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewUnavailableError("failed to create template", err)
	}
	return nil
}

// DeleteTemplate deletes a template
func (a *AvailabilityAdapter) DeleteTemplate(ctx context.Context, id string) error {
	query, args, err := a.db.Delete("availability_templates").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build template delete", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewUnavailableError("failed to delete template", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("template with id %s not found", id))
	}
	return nil
}

// GetException retrieves the exception for a provider and exact date
func (a *AvailabilityAdapter) GetException(ctx context.Context, providerID string, date time.Time) (*entities.AvailabilityException, error) {
	query, args, err := a.db.Select(
		"id", "provider_id", "exception_date", "blackout", "start_time",
		"end_time", "created_at", "updated_at",
	).From("availability_exceptions").
		Where(goqu.Ex{
			"provider_id":    providerID,
			"exception_date": date.Format(entities.DateLayout),
		}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build exception query", err)
	}

	exception := &entities.AvailabilityException{}
	var start, end sql.NullString

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&exception.ID,
		&exception.ProviderID,
		&exception.Date,
		&exception.Blackout,
		&start,
		&end,
		&exception.CreatedAt,
		&exception.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to get exception", err)
	}

	exception.StartTime = start.String
	exception.EndTime = end.String
	return exception, nil
}

// UpsertException creates or replaces the exception for its provider/date
func (a *AvailabilityAdapter) UpsertException(ctx context.Context, exception *entities.AvailabilityException) error {
	record := goqu.Record{
		"id":             exception.ID,
		"provider_id":    exception.ProviderID,
		"exception_date": exception.Date.Format(entities.DateLayout),
		"blackout":       exception.Blackout,
		"start_time":     exception.StartTime,
		"end_time":       exception.EndTime,
		"created_at":     exception.CreatedAt,
		"updated_at":     exception.UpdatedAt,
	}

	query, args, err := a.db.Insert("availability_exceptions").
		Rows(record).
		OnConflict(goqu.DoUpdate("provider_id, exception_date", goqu.Record{
			"blackout":   exception.Blackout,
			"start_time": exception.StartTime,
			"end_time":   exception.EndTime,
			"updated_at": exception.UpdatedAt,
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build exception upsert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewUnavailableError("failed to upsert exception", err)
	}
	return nil
}

// DeleteException deletes an exception
func (a *AvailabilityAdapter) DeleteException(ctx context.Context, id string) error {
	query, args, err := a.db.Delete("availability_exceptions").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build exception delete", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewUnavailableError("failed to delete exception", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("exception with id %s not found", id))
	}
	return nil
}
