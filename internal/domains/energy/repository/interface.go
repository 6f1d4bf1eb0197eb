package repository

import (
	"context"
	"time"

	"crm-backend/internal/domains/energy/model"
)

// Repository is the narrow surface the import pipeline needs from energy
// contracts. FindByTriple returns (nil, nil) when no record matches.
type Repository interface {
	FindByTriple(ctx context.Context, code, contractType string, contractEnd *time.Time) (*model.Contract, error)
	Create(ctx context.Context, contract *model.Contract) error
	Update(ctx context.Context, contract *model.Contract) error
}
