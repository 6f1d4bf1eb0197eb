package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"crm-backend/internal/domains/customer/model"
	"crm-backend/pkg/database"
)

type postgresRepository struct {
	db database.Querier
}

// NewRepository builds a customer repository over a pool or a transaction.
func NewRepository(db database.Querier) Repository {
	return &postgresRepository{db: db}
}

const customerColumns = `id, siret, name, address, postal_code, city, phone, email, commercial_email,
       created_at, updated_at, version`

func (r *postgresRepository) scanOne(row pgx.Row) (*model.Customer, error) {
	var c model.Customer
	err := row.Scan(
		&c.ID,
		&c.Siret,
		&c.Name,
		&c.Address,
		&c.PostalCode,
		&c.City,
		&c.Phone,
		&c.Email,
		&c.CommercialEmail,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}
	return &c, nil
}

func (r *postgresRepository) FindBySiret(ctx context.Context, siret string) (*model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE siret = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, siret))
}

func (r *postgresRepository) FindByName(ctx context.Context, name string) (*model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE LOWER(name) = LOWER($1)`
	return r.scanOne(r.db.QueryRow(ctx, query, name))
}

func (r *postgresRepository) Create(ctx context.Context, customer *model.Customer) error {
	query := `
        INSERT INTO customers (
            id, siret, name, address, postal_code, city, phone, email, commercial_email,
            created_at, updated_at, version
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `

	_, err := r.db.Exec(ctx, query,
		customer.ID,
		customer.Siret,
		customer.Name,
		customer.Address,
		customer.PostalCode,
		customer.City,
		customer.Phone,
		customer.Email,
		customer.CommercialEmail,
		customer.CreatedAt,
		customer.UpdatedAt,
		customer.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

func (r *postgresRepository) Update(ctx context.Context, customer *model.Customer) error {
	query := `
        UPDATE customers
        SET siret = $2,
            name = $3,
            address = $4,
            postal_code = $5,
            city = $6,
            phone = $7,
            email = $8,
            commercial_email = $9,
            updated_at = $10,
            version = $11
        WHERE id = $1
    `

	_, err := r.db.Exec(ctx, query,
		customer.ID,
		customer.Siret,
		customer.Name,
		customer.Address,
		customer.PostalCode,
		customer.City,
		customer.Phone,
		customer.Email,
		customer.CommercialEmail,
		customer.UpdatedAt,
		customer.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}

	return nil
}
