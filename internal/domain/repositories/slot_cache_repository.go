package repositories

import (
	"context"
	"time"

	"github.com/carebook/carebook/backend/internal/domain/entities"
)

// SlotCacheRepository persists precomputed availability cache entries. The
// store enforces uniqueness on (provider_id, service_instance_id, slot_date);
// Upsert must be idempotent so population retries are safe.
type SlotCacheRepository interface {
	// Upsert inserts or replaces the entry for its key as one atomic unit
	Upsert(ctx context.Context, entry *entities.AvailabilityCacheEntry) error

	// Get retrieves the entry for a key; a missing row is a NotFound error,
	// which callers interpret as "not yet populated"
	Get(ctx context.Context, providerID, serviceInstanceID string, date time.Time) (*entities.AvailabilityCacheEntry, error)

	// MarkStale flags every entry for a provider/date across all service
	// instances; it returns the number of entries flagged
	MarkStale(ctx context.Context, providerID string, date time.Time) (int, error)

	// DeleteByProvider removes all entries for a provider (used when a
	// provider is deactivated)
	DeleteByProvider(ctx context.Context, providerID string) error
}
