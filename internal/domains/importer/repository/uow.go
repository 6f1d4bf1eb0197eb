package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	contactRepo "crm-backend/internal/domains/contact/repository"
	customerRepo "crm-backend/internal/domains/customer/repository"
	energyRepo "crm-backend/internal/domains/energy/repository"
	"crm-backend/internal/domains/importer/service"
	"crm-backend/pkg/database"
)

// store binds every repository to one Querier, either the pool or a single
// transaction.
type store struct {
	customers customerRepo.Repository
	contacts  contactRepo.Repository
	energy    energyRepo.Repository
	imports   service.ImportRepository
}

func newStore(db database.Querier) *store {
	return &store{
		customers: customerRepo.NewRepository(db),
		contacts:  contactRepo.NewRepository(db),
		energy:    energyRepo.NewRepository(db),
		imports:   NewRepository(db),
	}
}

func (s *store) Customers() customerRepo.Repository { return s.customers }
func (s *store) Contacts() contactRepo.Repository   { return s.contacts }
func (s *store) Energy() energyRepo.Repository      { return s.energy }
func (s *store) Imports() service.ImportRepository  { return s.imports }

type unitOfWork struct {
	pool *pgxpool.Pool
	view *store
}

// NewUnitOfWork builds the pgx-backed unit of work the import services run
// on.
func NewUnitOfWork(pool *pgxpool.Pool) service.UnitOfWork {
	return &unitOfWork{
		pool: pool,
		view: newStore(pool),
	}
}

func (u *unitOfWork) View() service.Store {
	return u.view
}

// WithinBatch runs fn against a store bound to one transaction. Commit on
// nil, rollback otherwise.
func (u *unitOfWork) WithinBatch(ctx context.Context, fn func(service.Store) error) error {
	return database.WithTransaction(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(newStore(tx))
	})
}
