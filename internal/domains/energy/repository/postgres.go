package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"crm-backend/internal/domains/energy/model"
	"crm-backend/pkg/database"
)

type postgresRepository struct {
	db database.Querier
}

// NewRepository builds an energy contract repository over a pool or a
// transaction.
func NewRepository(db database.Querier) Repository {
	return &postgresRepository{db: db}
}

const contractColumns = `id, customer_id, code, type, provider, contract_end, monthly_budget,
       created_at, updated_at, version`

func (r *postgresRepository) scanOne(row pgx.Row) (*model.Contract, error) {
	var c model.Contract
	err := row.Scan(
		&c.ID,
		&c.CustomerID,
		&c.Code,
		&c.Type,
		&c.Provider,
		&c.ContractEnd,
		&c.MonthlyBudget,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan energy contract: %w", err)
	}
	return &c, nil
}

func (r *postgresRepository) FindByTriple(ctx context.Context, code, contractType string, contractEnd *time.Time) (*model.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM energy_contracts
        WHERE code = $1 AND type = $2 AND contract_end IS NOT DISTINCT FROM $3`
	return r.scanOne(r.db.QueryRow(ctx, query, code, contractType, contractEnd))
}

func (r *postgresRepository) Create(ctx context.Context, contract *model.Contract) error {
	query := `
        INSERT INTO energy_contracts (
            id, customer_id, code, type, provider, contract_end, monthly_budget,
            created_at, updated_at, version
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `

	_, err := r.db.Exec(ctx, query,
		contract.ID,
		contract.CustomerID,
		contract.Code,
		contract.Type,
		contract.Provider,
		contract.ContractEnd,
		contract.MonthlyBudget,
		contract.CreatedAt,
		contract.UpdatedAt,
		contract.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to create energy contract: %w", err)
	}

	return nil
}

func (r *postgresRepository) Update(ctx context.Context, contract *model.Contract) error {
	query := `
        UPDATE energy_contracts
        SET customer_id = $2,
            code = $3,
            type = $4,
            provider = $5,
            contract_end = $6,
            monthly_budget = $7,
            updated_at = $8,
            version = $9
        WHERE id = $1
    `

	_, err := r.db.Exec(ctx, query,
		contract.ID,
		contract.CustomerID,
		contract.Code,
		contract.Type,
		contract.Provider,
		contract.ContractEnd,
		contract.MonthlyBudget,
		contract.UpdatedAt,
		contract.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update energy contract: %w", err)
	}

	return nil
}
