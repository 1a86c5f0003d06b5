package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/repositories"
	"github.com/carebook/carebook/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/carebook/carebook/backend/pkg/errors"
)

// ProviderAdapter implements the ProviderRepository interface
type ProviderAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProviderAdapter creates a new provider adapter
func NewProviderAdapter(client *postgres.Client) repositories.ProviderRepository {
	return &ProviderAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var providerColumns = []any{
	"id", "npi", "first_name", "last_name", "credentials", "languages",
	"timezone", "active", "bookable", "accepts_new_patients", "telehealth",
	"created_at", "updated_at",
}

func scanProvider(scan func(dest ...any) error) (*entities.Provider, error) {
	provider := &entities.Provider{}
	var npi, credentials, timezone sql.NullString

	err := scan(
		&provider.ID,
		&npi,
		&provider.FirstName,
		&provider.LastName,
		&credentials,
		pq.Array(&provider.Languages),
		&timezone,
		&provider.Active,
		&provider.Bookable,
		&provider.AcceptsNewPatients,
		&provider.Telehealth,
		&provider.CreatedAt,
		&provider.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	provider.NPI = npi.String
	provider.Credentials = credentials.String
	provider.Timezone = timezone.String
	return provider, nil
}

// GetByID retrieves a provider by ID
func (a *ProviderAdapter) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	query, args, err := a.db.Select(providerColumns...).
		From("providers").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	row := a.client.DB().QueryRowContext(ctx, query, args...)
	provider, err := scanProvider(row.Scan)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to get provider", err)
	}
	return provider, nil
}

// GetByIDs retrieves multiple providers by ID
func (a *ProviderAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Provider, error) {
	if len(ids) == 0 {
		return []*entities.Provider{}, nil
	}

	query, args, err := a.db.Select(providerColumns...).
		From("providers").
		Where(goqu.Ex{"id": ids}).
		Order(goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryProviders(ctx, query, args)
}

// List retrieves providers matching the filter
func (a *ProviderAdapter) List(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error) {
	ds := a.db.Select(providerColumns...).From("providers")

	if filter.Active != nil {
		ds = ds.Where(goqu.Ex{"active": *filter.Active})
	}
	if filter.Bookable != nil {
		ds = ds.Where(goqu.Ex{"bookable": *filter.Bookable})
	}
	if filter.AcceptsNewPatients != nil {
		ds = ds.Where(goqu.Ex{"accepts_new_patients": *filter.AcceptsNewPatients})
	}
	if filter.Telehealth != nil {
		ds = ds.Where(goqu.Ex{"telehealth": *filter.Telehealth})
	}

	ds = ds.Order(goqu.I("id").Asc())

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

	return a.queryProviders(ctx, query, args)
}

func (a *ProviderAdapter) queryProviders(ctx context.Context, query string, args []any) ([]*entities.Provider, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to list providers", err)
	}
	defer rows.Close()

	var providers []*entities.Provider
	for rows.Next() {
		provider, err := scanProvider(rows.Scan)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan provider", err)
		}
		providers = append(providers, provider)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewUnavailableError("failed to iterate providers", err)
	}

	return providers, nil
}
