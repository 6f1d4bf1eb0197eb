package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	contactRepo "crm-backend/internal/domains/contact/repository"
	customerRepo "crm-backend/internal/domains/customer/repository"
	energyRepo "crm-backend/internal/domains/energy/repository"
	"crm-backend/internal/domains/importer/model"
)

// Row is one decoded spreadsheet row: cell values keyed by raw header name.
type Row map[string]string

// RowDecoder reads the uploaded spreadsheet. Every call re-opens the file
// from the start, so reads are restartable and may run on any worker.
// Row positions are 1-based over data rows; the header row is excluded.
type RowDecoder interface {
	TotalRows(ctx context.Context, path string) (int, error)
	ReadRows(ctx context.Context, path string, startRow, endRow int) ([]Row, error)
}

// FileStorage stores import files under opaque paths.
type FileStorage interface {
	Store(ctx context.Context, path string, content []byte, contentType string) error
	Download(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// Notifier delivers status notifications to the import owner. All calls are
// fire-and-forget for the pipeline: failures are logged at the call site and
// never propagated.
type Notifier interface {
	NotifyAnalysisComplete(ctx context.Context, imp *model.Import, impact *model.AnalysisImpact) error
	NotifyProcessingComplete(ctx context.Context, imp *model.Import) error
	NotifyFailure(ctx context.Context, imp *model.Import, reason string) error
	NotifyCancellation(ctx context.Context, imp *model.Import) error
}

// TaskEnqueuer dispatches queue tasks. *asynq.Client satisfies it.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ImportRepository persists the Import aggregate and its row errors.
type ImportRepository interface {
	Create(ctx context.Context, imp *model.Import) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Import, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.Import, int, error)
	ListAll(ctx context.Context, limit, offset int) ([]*model.Import, int, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// UpdateStatus performs the guarded transition from -> to and stamps
	// started_at/completed_at as appropriate. It reports false when the
	// guard missed, i.e. the import was no longer in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.Status) (bool, error)

	// SetAnalysisResult records the analysis summary and row counts while
	// transitioning analyzing -> awaiting_confirmation under the same guard.
	SetAnalysisResult(ctx context.Context, id uuid.UUID, impact *model.AnalysisImpact) (bool, error)

	// AddProgress atomically increments the aggregate counters and returns
	// the resulting processed_rows alongside total_rows for the completion
	// check. Safe under concurrent batch handlers.
	AddProgress(ctx context.Context, id uuid.UUID, processed, success, errors int) (int, *int, error)

	AppendRowErrors(ctx context.Context, importID uuid.UUID, rowErrors []model.RowError) error
	ListRowErrors(ctx context.Context, importID uuid.UUID, limit, offset int) ([]model.RowError, int, error)

	// ListStaleTerminal returns terminal imports completed before the cutoff
	// whose stored file has not been cleaned up yet.
	ListStaleTerminal(ctx context.Context, cutoff time.Time) ([]*model.Import, error)
	ClearStoredPath(ctx context.Context, id uuid.UUID) error
}

// Store bundles the repositories one unit of work operates on. Analysis
// reads through a pool-bound store; each batch writes through a store bound
// to a single transaction.
type Store interface {
	Customers() customerRepo.Repository
	Contacts() contactRepo.Repository
	Energy() energyRepo.Repository
	Imports() ImportRepository
}

// UnitOfWork hands out stores. WithinBatch commits when fn returns nil and
// rolls everything back otherwise, which is what makes batch retries safe.
type UnitOfWork interface {
	View() Store
	WithinBatch(ctx context.Context, fn func(Store) error) error
}
