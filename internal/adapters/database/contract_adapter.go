package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"

	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/repositories"
	"github.com/carebook/carebook/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/carebook/carebook/backend/pkg/errors"
)

// ContractAdapter implements the ContractRepository interface
type ContractAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewContractAdapter creates a new contract adapter
func NewContractAdapter(client *postgres.Client) repositories.ContractRepository {
	return &ContractAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// ListByPayer retrieves all contracts for a payer
func (a *ContractAdapter) ListByPayer(ctx context.Context, payerID string) ([]*entities.ProviderPayerContract, error) {
	query, args, err := a.db.Select(
		"id", "provider_id", "payer_id", "status", "effective_date",
		"expiration_date", "billing_provider_id", "created_at", "updated_at",
	).From("provider_payer_contracts").
		Where(goqu.Ex{"payer_id": payerID}).
		Order(goqu.I("provider_id").Asc(), goqu.I("effective_date").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build contract query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to list contracts", err)
	}
	defer rows.Close()

	var contracts []*entities.ProviderPayerContract
	for rows.Next() {
		contract := &entities.ProviderPayerContract{}
		var expiration sql.NullTime
		var billing sql.NullString

		err := rows.Scan(
			&contract.ID,
			&contract.ProviderID,
			&contract.PayerID,
			&contract.Status,
			&contract.EffectiveDate,
			&expiration,
			&billing,
			&contract.CreatedAt,
			&contract.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan contract", err)
		}

		if expiration.Valid {
			contract.ExpirationDate = &expiration.Time
		}
		// billing defaults to the rendering provider when unset
		contract.BillingProviderID = billing.String
		if contract.BillingProviderID == "" {
			contract.BillingProviderID = contract.ProviderID
		}

		contracts = append(contracts, contract)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewUnavailableError("failed to iterate contracts", err)
	}

	return contracts, nil
}

// ListSupervisionByAttending retrieves active supervision relationships whose
// attending provider is in the given set
func (a *ContractAdapter) ListSupervisionByAttending(ctx context.Context, attendingIDs []string) ([]*entities.SupervisionRelationship, error) {
	if len(attendingIDs) == 0 {
		return []*entities.SupervisionRelationship{}, nil
	}

	query, args, err := a.db.Select(
		"id", "supervised_provider_id", "attending_provider_id", "level",
		"active", "created_at", "updated_at",
	).From("supervision_relationships").
		Where(goqu.Ex{
			"attending_provider_id": attendingIDs,
			"active":                true,
		}).
		Order(goqu.I("supervised_provider_id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build supervision query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to list supervision relationships", err)
	}
	defer rows.Close()

	var relationships []*entities.SupervisionRelationship
	for rows.Next() {
		rel := &entities.SupervisionRelationship{}
		err := rows.Scan(
			&rel.ID,
			&rel.SupervisedProviderID,
			&rel.AttendingProviderID,
			&rel.Level,
			&rel.Active,
			&rel.CreatedAt,
			&rel.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan supervision relationship", err)
		}
		relationships = append(relationships, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewUnavailableError("failed to iterate supervision relationships", err)
	}

	return relationships, nil
}
