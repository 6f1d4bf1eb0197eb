package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"crm-backend/internal/domains/importer/model"
	"crm-backend/internal/domains/importer/service"
)

// batchRunner is the orchestrator surface the batch task drives.
type batchRunner interface {
	RunBatch(ctx context.Context, importID uuid.UUID, startRow, endRow int) error
	Fail(ctx context.Context, importID uuid.UUID, reason string)
}

// ProcessBatchHandler runs one batch of the processing phase. The batch
// transaction makes retries safe: a failed attempt leaves no partial rows
// and no counter drift. When the last delivery attempt still fails, the
// import is marked failed so it never sits in processing forever.
type ProcessBatchHandler struct {
	orchestrator batchRunner
}

func NewProcessBatchHandler(orchestrator *service.Orchestrator) *ProcessBatchHandler {
	return &ProcessBatchHandler{orchestrator: orchestrator}
}

func (h *ProcessBatchHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.ProcessBatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal batch payload: %w: %w", err, asynq.SkipRetry)
	}

	importID, err := uuid.Parse(payload.ImportID)
	if err != nil {
		return fmt.Errorf("invalid import id %q: %w", payload.ImportID, asynq.SkipRetry)
	}

	log.Info().
		Str("import_id", importID.String()).
		Int("start_row", payload.StartRow).
		Int("end_row", payload.EndRow).
		Msg("Processing import batch task")

	return h.run(ctx, importID, payload.StartRow, payload.EndRow, lastAttempt(ctx))
}

// run executes the batch. Earlier attempts lean on the rollback and let
// asynq redeliver; a systemic error on the last attempt fails the import.
func (h *ProcessBatchHandler) run(ctx context.Context, importID uuid.UUID, startRow, endRow int, final bool) error {
	err := h.orchestrator.RunBatch(ctx, importID, startRow, endRow)
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrImportNotFound) {
		log.Warn().Str("import_id", importID.String()).Msg("Import gone before batch, dropping task")
		return nil
	}
	if final {
		h.orchestrator.Fail(ctx, importID, fmt.Sprintf("batch %d-%d: %s", startRow, endRow, err))
	}
	return err
}

// lastAttempt reports whether this delivery is the task's final one. Without
// retry metadata on the context the attempt is treated as retryable.
func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return false
	}
	return retried >= maxRetry
}
