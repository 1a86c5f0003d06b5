package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/repositories"
	"github.com/carebook/carebook/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/carebook/carebook/backend/pkg/errors"
)

// ServiceInstanceAdapter implements the ServiceInstanceRepository interface
type ServiceInstanceAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewServiceInstanceAdapter creates a new service instance adapter
func NewServiceInstanceAdapter(client *postgres.Client) repositories.ServiceInstanceRepository {
	return &ServiceInstanceAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var serviceInstanceColumns = []any{
	"id", "payer_id", "name", "duration_minutes", "telehealth",
	"created_at", "updated_at",
}

func scanServiceInstance(scan func(dest ...any) error) (*entities.ServiceInstance, error) {
	instance := &entities.ServiceInstance{}
	err := scan(
		&instance.ID,
		&instance.PayerID,
		&instance.Name,
		&instance.DurationMinutes,
		&instance.Telehealth,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// GetByID retrieves a service instance by ID
func (a *ServiceInstanceAdapter) GetByID(ctx context.Context, id string) (*entities.ServiceInstance, error) {
	query, args, err := a.db.Select(serviceInstanceColumns...).
		From("service_instances").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	row := a.client.DB().QueryRowContext(ctx, query, args...)
	instance, err := scanServiceInstance(row.Scan)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("service instance with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to get service instance", err)
	}
	return instance, nil
}

// GetByPayerAndDuration retrieves the service instance offered under a payer
// for a given appointment duration
func (a *ServiceInstanceAdapter) GetByPayerAndDuration(ctx context.Context, payerID string, durationMinutes int) (*entities.ServiceInstance, error) {
	query, args, err := a.db.Select(serviceInstanceColumns...).
		From("service_instances").
		Where(goqu.Ex{
			"payer_id":         payerID,
			"duration_minutes": durationMinutes,
		}).
		Order(goqu.I("id").Asc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	row := a.client.DB().QueryRowContext(ctx, query, args...)
	instance, err := scanServiceInstance(row.Scan)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf(
			"no service instance for payer %s with duration %d", payerID, durationMinutes))
	}
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to get service instance", err)
	}
	return instance, nil
}

// ListByPayer retrieves all service instances offered under a payer
func (a *ServiceInstanceAdapter) ListByPayer(ctx context.Context, payerID string) ([]*entities.ServiceInstance, error) {
	query, args, err := a.db.Select(serviceInstanceColumns...).
		From("service_instances").
		Where(goqu.Ex{"payer_id": payerID}).
		Order(goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to list service instances", err)
	}
	defer rows.Close()

	var instances []*entities.ServiceInstance
	for rows.Next() {
		instance, err := scanServiceInstance(rows.Scan)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan service instance", err)
		}
		instances = append(instances, instance)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewUnavailableError("failed to iterate service instances", err)
	}

	return instances, nil
}
