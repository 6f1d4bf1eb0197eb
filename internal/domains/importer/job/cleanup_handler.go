package job

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"crm-backend/internal/domains/importer/service"
)

// CleanupHandler runs the scheduled sweep that deletes stored files of old
// terminal imports.
type CleanupHandler struct {
	orchestrator *service.Orchestrator
	retention    time.Duration
}

func NewCleanupHandler(orchestrator *service.Orchestrator, retentionDays int) *CleanupHandler {
	return &CleanupHandler{
		orchestrator: orchestrator,
		retention:    time.Duration(retentionDays) * 24 * time.Hour,
	}
}

func (h *CleanupHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	log.Info().Dur("retention", h.retention).Msg("Processing stale import cleanup task")
	return h.orchestrator.CleanupStale(ctx, h.retention)
}
