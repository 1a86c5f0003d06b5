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

// PayerAdapter implements the PayerRepository interface
type PayerAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPayerAdapter creates a new payer adapter
func NewPayerAdapter(client *postgres.Client) repositories.PayerRepository {
	return &PayerAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var payerColumns = []any{
	"id", "name", "type", "state", "status_code",
	"effective_date", "projected_effective_date", "created_at", "updated_at",
}

func scanPayer(scan func(dest ...any) error) (*entities.Payer, error) {
	payer := &entities.Payer{}
	var state, statusCode sql.NullString
	var effective, projected sql.NullTime

	err := scan(
		&payer.ID,
		&payer.Name,
		&payer.Type,
		&state,
		&statusCode,
		&effective,
		&projected,
		&payer.CreatedAt,
		&payer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	payer.State = state.String
	payer.StatusCode = statusCode.String
	if effective.Valid {
		payer.EffectiveDate = &effective.Time
	}
	if projected.Valid {
		payer.ProjectedEffectiveDate = &projected.Time
	}
	return payer, nil
}

// GetByID retrieves a payer by ID
func (a *PayerAdapter) GetByID(ctx context.Context, id string) (*entities.Payer, error) {
	query, args, err := a.db.Select(payerColumns...).
		From("payers").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	row := a.client.DB().QueryRowContext(ctx, query, args...)
	payer, err := scanPayer(row.Scan)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("payer with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to get payer", err)
	}
	return payer, nil
}

// List retrieves all payers
func (a *PayerAdapter) List(ctx context.Context) ([]*entities.Payer, error) {
	query, args, err := a.db.Select(payerColumns...).
		From("payers").
		Order(goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to list payers", err)
	}
	defer rows.Close()

	var payers []*entities.Payer
	for rows.Next() {
		payer, err := scanPayer(rows.Scan)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan payer", err)
		}
		payers = append(payers, payer)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewUnavailableError("failed to iterate payers", err)
	}

	return payers, nil
}
