package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/repositories"
	"github.com/carebook/carebook/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/carebook/carebook/backend/pkg/errors"
)

// SlotCacheAdapter implements the SlotCacheRepository interface backed by the
// availability_cache table. The table holds a unique index on
// (provider_id, service_instance_id, slot_date) so an upsert replaces the
// whole day atomically.
type SlotCacheAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSlotCacheAdapter creates a new slot cache adapter
func NewSlotCacheAdapter(client *postgres.Client) repositories.SlotCacheRepository {
	return &SlotCacheAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Upsert inserts or replaces the cache entry for its key. Replaying the same
// entry is a no-op apart from the refreshed computed_at timestamp.
func (a *SlotCacheAdapter) Upsert(ctx context.Context, entry *entities.AvailabilityCacheEntry) error {
	slotsJSON, err := json.Marshal(entry.Slots)
	if err != nil {
		return apperrors.NewInternalError("failed to marshal slots", err)
	}

	record := goqu.Record{
		"provider_id":         entry.ProviderID,
		"service_instance_id": entry.ServiceInstanceID,
		"slot_date":           entry.Date.Format(entities.DateLayout),
		"slots":               string(slotsJSON),
		"stale":               entry.Stale,
		"computed_at":         entry.ComputedAt,
	}

	query, args, err := a.db.Insert("availability_cache").
		Rows(record).
		OnConflict(goqu.DoUpdate("provider_id, service_instance_id, slot_date", record)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewUnavailableError("failed to upsert cache entry", err)
	}
	return nil
}

// Get retrieves the cache entry for a key. A missing row means the key was
// never populated.
func (a *SlotCacheAdapter) Get(ctx context.Context, providerID, serviceInstanceID string, date time.Time) (*entities.AvailabilityCacheEntry, error) {
	query, args, err := a.db.Select("provider_id", "service_instance_id", "slot_date", "slots", "stale", "computed_at").
		From("availability_cache").
		Where(goqu.Ex{
			"provider_id":         providerID,
			"service_instance_id": serviceInstanceID,
			"slot_date":           date.Format(entities.DateLayout),
		}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	entry := &entities.AvailabilityCacheEntry{}
	var slotsJSON []byte
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&entry.ProviderID,
		&entry.ServiceInstanceID,
		&entry.Date,
		&slotsJSON,
		&entry.Stale,
		&entry.ComputedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("availability cache entry not yet populated")
	}
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to get cache entry", err)
	}

	if err := json.Unmarshal(slotsJSON, &entry.Slots); err != nil {
		return nil, apperrors.NewInternalError("failed to unmarshal slots", err)
	}
	return entry, nil
}

// MarkStale flags every cache entry for a provider on a date, across all
// service instances, and returns how many rows were flagged
func (a *SlotCacheAdapter) MarkStale(ctx context.Context, providerID string, date time.Time) (int, error) {
	query, args, err := a.db.Update("availability_cache").
		Set(goqu.Record{"stale": true}).
		Where(goqu.Ex{
			"provider_id": providerID,
			"slot_date":   date.Format(entities.DateLayout),
		}).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build stale query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewUnavailableError("failed to mark cache stale", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to read affected rows", err)
	}
	return int(affected), nil
}

// DeleteByProvider removes every cache entry belonging to a provider
func (a *SlotCacheAdapter) DeleteByProvider(ctx context.Context, providerID string) error {
	query, args, err := a.db.Delete("availability_cache").
		Where(goqu.Ex{"provider_id": providerID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewUnavailableError("failed to delete cache entries", err)
	}
	return nil
}
