package repositories

import (
	"context"

	"github.com/carebook/carebook/backend/internal/domain/entities"
)

// ProviderRepository defines the interface for provider reference data
type ProviderRepository interface {
	// GetByID retrieves a provider by ID
	GetByID(ctx context.Context, id string) (*entities.Provider, error)

	// GetByIDs retrieves multiple providers by ID in a single round trip
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Provider, error)

	// List retrieves providers matching the filter
	List(ctx context.Context, filter ProviderFilter) ([]*entities.Provider, error)
}

// ProviderFilter defines filters for listing providers
type ProviderFilter struct {
	Active             *bool
	Bookable           *bool
	AcceptsNewPatients *bool
	Telehealth         *bool
	Limit              int
	Offset             int
}

// PayerRepository defines the interface for payer reference data
type PayerRepository interface {
	// GetByID retrieves a payer by ID
	GetByID(ctx context.Context, id string) (*entities.Payer, error)

	// List retrieves all payers
	List(ctx context.Context) ([]*entities.Payer, error)
}
