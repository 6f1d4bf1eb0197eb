package repository

import (
	"context"

	"crm-backend/internal/domains/customer/model"
)

// Repository is the narrow surface the import pipeline needs from customers.
// Find methods return (nil, nil) when no record matches.
type Repository interface {
	FindBySiret(ctx context.Context, siret string) (*model.Customer, error)
	FindByName(ctx context.Context, name string) (*model.Customer, error)
	Create(ctx context.Context, customer *model.Customer) error
	Update(ctx context.Context, customer *model.Customer) error
}
