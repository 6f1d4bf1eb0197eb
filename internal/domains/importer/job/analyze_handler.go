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

// AnalyzeHandler runs the analysis phase task.
type AnalyzeHandler struct {
	orchestrator *service.Orchestrator
}

func NewAnalyzeHandler(orchestrator *service.Orchestrator) *AnalyzeHandler {
	return &AnalyzeHandler{orchestrator: orchestrator}
}

func (h *AnalyzeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.AnalyzeImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal analyze payload: %w: %w", err, asynq.SkipRetry)
	}

	importID, err := uuid.Parse(payload.ImportID)
	if err != nil {
		return fmt.Errorf("invalid import id %q: %w", payload.ImportID, asynq.SkipRetry)
	}

	log.Info().Str("import_id", importID.String()).Msg("Processing analyze import task")

	if err := h.orchestrator.RunAnalysis(ctx, importID); err != nil {
		// A deleted import is not worth retrying; anything else is.
		if errors.Is(err, model.ErrImportNotFound) {
			log.Warn().Str("import_id", importID.String()).Msg("Import gone before analysis, dropping task")
			return nil
		}
		return err
	}
	return nil
}
