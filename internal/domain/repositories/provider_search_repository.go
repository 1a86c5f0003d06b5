package repositories

import (
	"context"

	"github.com/carebook/carebook/backend/internal/domain/entities"
)

// ProviderSearchRepository defines the interface for the provider directory
// search index
type ProviderSearchRepository interface {
	// IndexProviders upserts providers into the search index
	IndexProviders(ctx context.Context, providers []*entities.Provider) error

	// Search performs a name/credential search, optionally filtered to
	// providers speaking a language
	Search(ctx context.Context, query, language string, limit int) ([]*entities.Provider, error)

	// RemoveProvider deletes a provider from the index
	RemoveProvider(ctx context.Context, providerID string) error
}
