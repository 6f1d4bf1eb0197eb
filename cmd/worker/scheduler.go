package main

import (
	"github.com/rs/zerolog/log"

	"crm-backend/internal/config"
	"crm-backend/internal/infrastructure/queue"
)

type workerScheduler struct {
	*queue.Scheduler
}

func setupScheduler(cfg *config.Config) *workerScheduler {
	scheduler := queue.NewScheduler(cfg.Redis)

	if err := scheduler.RegisterJobs(); err != nil {
		log.Fatal().Err(err).Msg("Failed to register scheduled jobs")
	}

	go func() {
		log.Info().Msg("Scheduler starting")
		if err := scheduler.Start(); err != nil {
			log.Fatal().Err(err).Msg("Scheduler failed")
		}
	}()

	return &workerScheduler{Scheduler: scheduler}
}

func (s *workerScheduler) Shutdown() {
	log.Info().Msg("Scheduler shutting down")
	s.Scheduler.Shutdown()
}
