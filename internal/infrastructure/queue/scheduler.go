package queue

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"crm-backend/internal/config"
	"crm-backend/internal/shared"
)

// Scheduler registers the recurring pipeline jobs.
type Scheduler struct {
	scheduler *asynq.Scheduler
}

func NewScheduler(cfg config.RedisConfig) *Scheduler {
	return &Scheduler{
		scheduler: asynq.NewScheduler(
			asynq.RedisClientOpt{
				Addr:     cfg.Addr,
				Password: cfg.Password,
				DB:       cfg.DB,
			},
			&asynq.SchedulerOpts{
				Location: time.UTC,
				LogLevel: asynq.InfoLevel,
			},
		),
	}
}

// RegisterJobs wires all cron entries.
func (s *Scheduler) RegisterJobs() error {
	return s.registerStaleImportCleanup()
}

// Stale import cleanup runs nightly at a low-traffic hour and sweeps the
// stored files of old terminal imports.
func (s *Scheduler) registerStaleImportCleanup() error {
	task := asynq.NewTask(shared.TypeCleanupStaleImports, nil)

	_, err := s.scheduler.Register(
		"0 3 * * *",
		task,
		asynq.Queue(shared.QueueLow),
		asynq.MaxRetry(2),
		asynq.Timeout(10*time.Minute),
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to register stale import cleanup job")
		return err
	}

	log.Info().Msg("Registered stale import cleanup: daily at 3 AM UTC")
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
