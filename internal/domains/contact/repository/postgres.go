package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"crm-backend/internal/domains/contact/model"
	"crm-backend/pkg/database"
)

type postgresRepository struct {
	db database.Querier
}

// NewRepository builds a contact repository over a pool or a transaction.
func NewRepository(db database.Querier) Repository {
	return &postgresRepository{db: db}
}

const contactColumns = `id, customer_id, first_name, last_name, email, phone, mobile, role,
       created_at, updated_at, version`

func (r *postgresRepository) scanOne(row pgx.Row) (*model.Contact, error) {
	var c model.Contact
	err := row.Scan(
		&c.ID,
		&c.CustomerID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.Phone,
		&c.Mobile,
		&c.Role,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan contact: %w", err)
	}
	return &c, nil
}

func (r *postgresRepository) FindByEmail(ctx context.Context, email string) (*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE LOWER(email) = LOWER($1)`
	return r.scanOne(r.db.QueryRow(ctx, query, email))
}

func (r *postgresRepository) FindByFullName(ctx context.Context, firstName, lastName string) (*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
        WHERE LOWER(COALESCE(first_name, '')) = LOWER($1) AND LOWER(last_name) = LOWER($2)`
	return r.scanOne(r.db.QueryRow(ctx, query, firstName, lastName))
}

func (r *postgresRepository) Create(ctx context.Context, contact *model.Contact) error {
	query := `
        INSERT INTO contacts (
            id, customer_id, first_name, last_name, email, phone, mobile, role,
            created_at, updated_at, version
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `

	_, err := r.db.Exec(ctx, query,
		contact.ID,
		contact.CustomerID,
		contact.FirstName,
		contact.LastName,
		contact.Email,
		contact.Phone,
		contact.Mobile,
		contact.Role,
		contact.CreatedAt,
		contact.UpdatedAt,
		contact.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	return nil
}

func (r *postgresRepository) Update(ctx context.Context, contact *model.Contact) error {
	query := `
        UPDATE contacts
        SET customer_id = $2,
            first_name = $3,
            last_name = $4,
            email = $5,
            phone = $6,
            mobile = $7,
            role = $8,
            updated_at = $9,
            version = $10
        WHERE id = $1
    `

	_, err := r.db.Exec(ctx, query,
		contact.ID,
		contact.CustomerID,
		contact.FirstName,
		contact.LastName,
		contact.Email,
		contact.Phone,
		contact.Mobile,
		contact.Role,
		contact.UpdatedAt,
		contact.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}

	return nil
}
