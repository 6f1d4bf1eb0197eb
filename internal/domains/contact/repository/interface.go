package repository

import (
	"context"

	"crm-backend/internal/domains/contact/model"
)

// Repository is the narrow surface the import pipeline needs from contacts.
// Find methods return (nil, nil) when no record matches.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*model.Contact, error)
	FindByFullName(ctx context.Context, firstName, lastName string) (*model.Contact, error)
	Create(ctx context.Context, contact *model.Contact) error
	Update(ctx context.Context, contact *model.Contact) error
}
