package main

import (
	"github.com/hibiken/asynq"

	importerJob "crm-backend/internal/domains/importer/job"
	"crm-backend/internal/shared"
	"crm-backend/pkg/container"
)

// HandlerRegistry holds all task handlers the worker serves.
type HandlerRegistry struct {
	analyze      *importerJob.AnalyzeHandler
	processBatch *importerJob.ProcessBatchHandler
	cleanup      *importerJob.CleanupHandler
}

func newHandlerRegistry(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		analyze:      c.AnalyzeHandler,
		processBatch: c.ProcessBatchHandler,
		cleanup:      c.CleanupHandler,
	}
}

// Register wires every handler onto the mux.
func (h *HandlerRegistry) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeAnalyzeImport, h.analyze.ProcessTask)
	mux.HandleFunc(shared.TypeProcessImportBatch, h.processBatch.ProcessTask)
	mux.HandleFunc(shared.TypeCleanupStaleImports, h.cleanup.ProcessTask)
}
