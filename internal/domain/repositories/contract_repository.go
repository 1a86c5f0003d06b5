package repositories

import (
	"context"

	"github.com/carebook/carebook/backend/internal/domain/entities"
)

// ContractRepository supplies raw contract and supervision rows. Resolution
// precedence and tie-breaking live in the bookability service, not in the
// store, so the rules stay auditable and testable outside the database.
type ContractRepository interface {
	// ListByPayer retrieves all contracts for a payer, regardless of status
	// or date window; the resolver applies the activity rules
	ListByPayer(ctx context.Context, payerID string) ([]*entities.ProviderPayerContract, error)

	// ListSupervisionByAttending retrieves active supervision relationships
	// whose attending provider is in the given set
	ListSupervisionByAttending(ctx context.Context, attendingIDs []string) ([]*entities.SupervisionRelationship, error)
}
