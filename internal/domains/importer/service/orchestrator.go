package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"crm-backend/internal/domains/importer/model"
	"crm-backend/internal/shared"
)

// Orchestrator owns the import lifecycle: it creates imports, drives the
// guarded status transitions, and dispatches the async work for each phase.
// Every transition goes through a conditional update, so two workers racing
// on the same import cannot both win.
type Orchestrator struct {
	uow       UnitOfWork
	storage   FileStorage
	notifier  Notifier
	enqueuer  TaskEnqueuer
	analyzer  *Analyzer
	processor *Processor
	pageSize  int
}

func NewOrchestrator(
	uow UnitOfWork,
	storage FileStorage,
	notifier Notifier,
	enqueuer TaskEnqueuer,
	analyzer *Analyzer,
	processor *Processor,
	pageSize int,
) *Orchestrator {
	return &Orchestrator{
		uow:       uow,
		storage:   storage,
		notifier:  notifier,
		enqueuer:  enqueuer,
		analyzer:  analyzer,
		processor: processor,
		pageSize:  pageSize,
	}
}

func (o *Orchestrator) imports() ImportRepository {
	return o.uow.View().Imports()
}

// InitializeImport stores the uploaded file, records the import in pending
// status and enqueues the analysis task. The file is stored first: an import
// row without its file is useless, a stored file without its row is swept by
// the cleanup job.
func (o *Orchestrator) InitializeImport(ctx context.Context, userID uuid.UUID, filename string, content []byte, contentType string, importType model.ImportType) (*model.Import, error) {
	if _, err := importersFor(importType); err != nil {
		return nil, err
	}

	imp := &model.Import{
		ID:               uuid.New(),
		UserID:           userID,
		OriginalFilename: filename,
		Type:             importType,
		Status:           model.StatusPending,
		CreatedAt:        time.Now(),
	}
	imp.StoredPath = fmt.Sprintf("imports/%s/%s%s", userID, imp.ID, filepath.Ext(filename))

	if err := o.storage.Store(ctx, imp.StoredPath, content, contentType); err != nil {
		return nil, fmt.Errorf("store import file: %w", err)
	}
	if err := o.imports().Create(ctx, imp); err != nil {
		return nil, fmt.Errorf("create import: %w", err)
	}

	payload, _ := json.Marshal(model.AnalyzeImportPayload{ImportID: imp.ID.String()})
	task := asynq.NewTask(shared.TypeAnalyzeImport, payload)
	if _, err := o.enqueuer.Enqueue(task, asynq.Queue(shared.QueueHigh), asynq.MaxRetry(3)); err != nil {
		return nil, fmt.Errorf("enqueue analysis: %w", err)
	}

	log.Info().
		Str("import_id", imp.ID.String()).
		Str("user_id", userID.String()).
		Str("type", string(importType)).
		Str("filename", filename).
		Msg("Import initialized")

	return imp, nil
}

// RunAnalysis executes the analysis phase for one import. It first claims
// the import by moving it pending -> analyzing; a missed claim means another
// worker or a cancellation got there first and this run is a no-op. A retry
// of a crashed analysis finds the import already in analyzing and proceeds,
// replacing any partial result.
func (o *Orchestrator) RunAnalysis(ctx context.Context, importID uuid.UUID) error {
	imp, err := o.imports().GetByID(ctx, importID)
	if err != nil {
		return err
	}

	switch imp.Status {
	case model.StatusPending:
		claimed, err := o.imports().UpdateStatus(ctx, importID, model.StatusPending, model.StatusAnalyzing)
		if err != nil {
			return err
		}
		if !claimed {
			log.Info().Str("import_id", importID.String()).Msg("Analysis claim missed, skipping")
			return nil
		}
	case model.StatusAnalyzing:
		// Retried task after a crash mid-analysis; run it again.
	default:
		log.Info().
			Str("import_id", importID.String()).
			Str("status", string(imp.Status)).
			Msg("Import no longer analyzable, skipping")
		return nil
	}
	imp.Status = model.StatusAnalyzing

	impact, err := o.analyzer.Analyze(ctx, imp)
	if err != nil {
		o.Fail(ctx, importID, err.Error())
		return err
	}

	recorded, err := o.imports().SetAnalysisResult(ctx, importID, impact)
	if err != nil {
		return err
	}
	if !recorded {
		// Cancelled while analyzing; the result is discarded.
		log.Info().Str("import_id", importID.String()).Msg("Analysis result discarded, import left analyzing state")
		return nil
	}

	imp.Status = model.StatusAwaitingConfirmation
	o.notify(ctx, "analysis complete", func() error {
		return o.notifier.NotifyAnalysisComplete(ctx, imp, impact)
	})

	return nil
}

// Confirm moves an import from awaiting_confirmation to processing and
// dispatches one batch task per row range. An import whose file held no
// countable rows completes immediately.
func (o *Orchestrator) Confirm(ctx context.Context, importID uuid.UUID) (*model.Import, error) {
	imp, err := o.imports().GetByID(ctx, importID)
	if err != nil {
		return nil, err
	}

	moved, err := o.imports().UpdateStatus(ctx, importID, model.StatusAwaitingConfirmation, model.StatusProcessing)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, model.TransitionError(imp.Status, model.StatusProcessing)
	}
	imp.Status = model.StatusProcessing

	if imp.TotalRows == nil || *imp.TotalRows == 0 {
		if err := o.finalize(ctx, importID); err != nil {
			return nil, err
		}
		imp.Status = model.StatusCompleted
		return imp, nil
	}

	fileRows := 0
	if imp.FileRows != nil {
		fileRows = *imp.FileRows
	}
	for _, r := range BatchRanges(fileRows, o.pageSize) {
		payload, _ := json.Marshal(model.ProcessBatchPayload{
			ImportID: importID.String(),
			StartRow: r.StartRow,
			EndRow:   r.EndRow,
		})
		task := asynq.NewTask(shared.TypeProcessImportBatch, payload)
		if _, err := o.enqueuer.Enqueue(task, asynq.Queue(shared.QueueDefault), asynq.MaxRetry(5)); err != nil {
			return nil, fmt.Errorf("enqueue batch %d-%d: %w", r.StartRow, r.EndRow, err)
		}
	}

	log.Info().
		Str("import_id", importID.String()).
		Int("file_rows", fileRows).
		Int("page_size", o.pageSize).
		Msg("Import confirmed, batches dispatched")

	return imp, nil
}

// RunBatch executes one batch task. Batches only run while the import is
// processing; any other status means a cancellation or failure won the race
// and the batch is dropped without error.
func (o *Orchestrator) RunBatch(ctx context.Context, importID uuid.UUID, startRow, endRow int) error {
	imp, err := o.imports().GetByID(ctx, importID)
	if err != nil {
		return err
	}
	if imp.Status != model.StatusProcessing {
		log.Info().
			Str("import_id", importID.String()).
			Str("status", string(imp.Status)).
			Int("start_row", startRow).
			Int("end_row", endRow).
			Msg("Import no longer processing, dropping batch")
		return nil
	}

	completed, err := o.processor.ProcessBatch(ctx, imp, startRow, endRow)
	if err != nil {
		return err
	}
	if completed {
		return o.finalize(ctx, importID)
	}
	return nil
}

// finalize moves processing -> completed. The conditional update picks a
// single winner among concurrent batch handlers that all observed the final
// row count; only the winner notifies.
func (o *Orchestrator) finalize(ctx context.Context, importID uuid.UUID) error {
	won, err := o.imports().UpdateStatus(ctx, importID, model.StatusProcessing, model.StatusCompleted)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	imp, err := o.imports().GetByID(ctx, importID)
	if err != nil {
		return err
	}

	log.Info().
		Str("import_id", importID.String()).
		Int("processed_rows", imp.ProcessedRows).
		Int("success_rows", imp.SuccessRows).
		Int("error_rows", imp.ErrorRows).
		Msg("Import completed")

	o.notify(ctx, "processing complete", func() error {
		return o.notifier.NotifyProcessingComplete(ctx, imp)
	})
	return nil
}

// Fail moves an import to failed from whichever non-terminal status it is in
// and notifies the owner. Used for structural errors; never for row errors.
func (o *Orchestrator) Fail(ctx context.Context, importID uuid.UUID, reason string) {
	imp, err := o.imports().GetByID(ctx, importID)
	if err != nil {
		log.Error().Err(err).Str("import_id", importID.String()).Msg("Failed to load import for failure transition")
		return
	}
	if imp.Status.IsTerminal() {
		return
	}

	moved, err := o.imports().UpdateStatus(ctx, importID, imp.Status, model.StatusFailed)
	if err != nil {
		log.Error().Err(err).Str("import_id", importID.String()).Msg("Failed to mark import failed")
		return
	}
	if !moved {
		return
	}
	imp.Status = model.StatusFailed

	log.Error().
		Str("import_id", importID.String()).
		Str("reason", reason).
		Msg("Import failed")

	o.notify(ctx, "failure", func() error {
		return o.notifier.NotifyFailure(ctx, imp, reason)
	})
}

// Cancel moves a non-terminal import to cancelled, removes its stored file
// and notifies the owner. In-flight analysis or batch tasks observe the new
// status and drop their work.
func (o *Orchestrator) Cancel(ctx context.Context, importID uuid.UUID) (*model.Import, error) {
	imp, err := o.imports().GetByID(ctx, importID)
	if err != nil {
		return nil, err
	}
	if imp.Status.IsTerminal() {
		return nil, model.TransitionError(imp.Status, model.StatusCancelled)
	}

	moved, err := o.imports().UpdateStatus(ctx, importID, imp.Status, model.StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !moved {
		// Lost the race with another transition; report against current state.
		current, err := o.imports().GetByID(ctx, importID)
		if err != nil {
			return nil, err
		}
		return nil, model.TransitionError(current.Status, model.StatusCancelled)
	}
	imp.Status = model.StatusCancelled

	if imp.StoredPath != "" {
		if err := o.storage.Delete(ctx, imp.StoredPath); err != nil {
			log.Error().Err(err).Str("import_id", importID.String()).Msg("Failed to delete cancelled import file")
		} else if err := o.imports().ClearStoredPath(ctx, importID); err != nil {
			log.Error().Err(err).Str("import_id", importID.String()).Msg("Failed to clear stored path")
		}
	}

	log.Info().Str("import_id", importID.String()).Msg("Import cancelled")

	o.notify(ctx, "cancellation", func() error {
		return o.notifier.NotifyCancellation(ctx, imp)
	})

	return imp, nil
}

// GetImport loads one import for the given caller, enforcing owner-or-admin.
func (o *Orchestrator) GetImport(ctx context.Context, importID, userID uuid.UUID, isAdmin bool) (*model.Import, error) {
	imp, err := o.imports().GetByID(ctx, importID)
	if err != nil {
		return nil, err
	}
	if !imp.CanBeAccessedBy(userID, isAdmin) {
		return nil, model.ErrImportNotFound
	}
	return imp, nil
}

// ListImports lists imports for the caller; admins see everyone's.
func (o *Orchestrator) ListImports(ctx context.Context, userID uuid.UUID, isAdmin bool, limit, offset int) ([]*model.Import, int, error) {
	if isAdmin {
		return o.imports().ListAll(ctx, limit, offset)
	}
	return o.imports().ListByUser(ctx, userID, limit, offset)
}

// ListRowErrors pages through the recorded row errors of one import.
func (o *Orchestrator) ListRowErrors(ctx context.Context, importID, userID uuid.UUID, isAdmin bool, limit, offset int) ([]model.RowError, int, error) {
	if _, err := o.GetImport(ctx, importID, userID, isAdmin); err != nil {
		return nil, 0, err
	}
	return o.imports().ListRowErrors(ctx, importID, limit, offset)
}

// DeleteImport removes a terminal import, its row errors and any file still
// in storage.
func (o *Orchestrator) DeleteImport(ctx context.Context, importID, userID uuid.UUID, isAdmin bool) error {
	imp, err := o.GetImport(ctx, importID, userID, isAdmin)
	if err != nil {
		return err
	}
	if !imp.Status.IsTerminal() {
		return model.ErrImportNotTerminal
	}

	if imp.StoredPath != "" {
		if err := o.storage.Delete(ctx, imp.StoredPath); err != nil {
			log.Error().Err(err).Str("import_id", importID.String()).Msg("Failed to delete import file")
		}
	}
	return o.imports().Delete(ctx, importID)
}

// CleanupStale deletes the stored files of terminal imports older than the
// cutoff. Import rows and row errors stay for history; only the file goes.
func (o *Orchestrator) CleanupStale(ctx context.Context, retention time.Duration) error {
	cutoff := time.Now().Add(-retention)
	stale, err := o.imports().ListStaleTerminal(ctx, cutoff)
	if err != nil {
		return err
	}

	cleaned := 0
	for _, imp := range stale {
		if err := o.storage.Delete(ctx, imp.StoredPath); err != nil {
			log.Error().Err(err).Str("import_id", imp.ID.String()).Msg("Failed to delete stale import file")
			continue
		}
		if err := o.imports().ClearStoredPath(ctx, imp.ID); err != nil {
			log.Error().Err(err).Str("import_id", imp.ID.String()).Msg("Failed to clear stored path")
			continue
		}
		cleaned++
	}

	log.Info().Int("candidates", len(stale)).Int("cleaned", cleaned).Msg("Stale import cleanup finished")
	return nil
}

// notify runs a notification, logging instead of propagating failures. The
// pipeline's outcome never depends on notification delivery.
func (o *Orchestrator) notify(ctx context.Context, kind string, fn func() error) {
	if err := fn(); err != nil {
		log.Error().Err(err).Str("notification", kind).Msg("Failed to send import notification")
	}
}
