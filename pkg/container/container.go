// Package container builds the application dependency graph. Initialization
// is staged: config, then infrastructure, then repositories, services and
// handlers. Both binaries (api and worker) build the same container and use
// the parts they need.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"crm-backend/internal/config"
	importerHandler "crm-backend/internal/domains/importer/handler"
	importerJob "crm-backend/internal/domains/importer/job"
	importerRepo "crm-backend/internal/domains/importer/repository"
	importerService "crm-backend/internal/domains/importer/service"
	"crm-backend/internal/infrastructure/database"
	"crm-backend/internal/infrastructure/email"
	"crm-backend/internal/infrastructure/spreadsheet"
	"crm-backend/internal/infrastructure/storage"
	"crm-backend/pkg/jwt"
)

// Container holds every singleton of the application.
type Container struct {
	Config     *config.Config
	DB         *database.PostgresDB
	Storage    *storage.MinIOStorage
	JWTManager *jwt.Manager

	// AsynqClient enqueues pipeline tasks. The worker binary additionally
	// runs an asynq server; the api binary only enqueues.
	AsynqClient *asynq.Client

	UnitOfWork   importerService.UnitOfWork
	Decoder      *spreadsheet.Decoder
	Notifier     importerService.Notifier
	Orchestrator *importerService.Orchestrator

	ImportHandler *importerHandler.ImportHandler

	AnalyzeHandler      *importerJob.AnalyzeHandler
	ProcessBatchHandler *importerJob.ProcessBatchHandler
	CleanupHandler      *importerJob.CleanupHandler
}

// New builds and connects the whole dependency graph.
func New() (*Container, error) {
	c := &Container{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	log.Info().Str("environment", cfg.App.Environment).Msg("Configuration loaded")

	db := database.NewPostgresDB(&cfg.Database)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db

	minioStorage, err := storage.NewMinIOStorage(cfg.MinIO)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	c.Storage = minioStorage

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret)

	c.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	c.UnitOfWork = importerRepo.NewUnitOfWork(db.Pool)
	c.Decoder = spreadsheet.NewDecoder(minioStorage)
	c.Notifier = email.NewSMTPNotifier(cfg.SMTP, db.Pool)

	analyzer := importerService.NewAnalyzer(c.Decoder, c.UnitOfWork, cfg.Import.PageSize, cfg.Import.MaxRows)
	processor := importerService.NewProcessor(c.Decoder, c.UnitOfWork)
	c.Orchestrator = importerService.NewOrchestrator(
		c.UnitOfWork,
		minioStorage,
		c.Notifier,
		c.AsynqClient,
		analyzer,
		processor,
		cfg.Import.PageSize,
	)

	c.ImportHandler = importerHandler.NewImportHandler(c.Orchestrator)

	c.AnalyzeHandler = importerJob.NewAnalyzeHandler(c.Orchestrator)
	c.ProcessBatchHandler = importerJob.NewProcessBatchHandler(c.Orchestrator)
	c.CleanupHandler = importerJob.NewCleanupHandler(c.Orchestrator, cfg.Import.RetentionDays)

	log.Info().Msg("Container initialized")
	return c, nil
}

// Cleanup releases shared resources during graceful shutdown.
func (c *Container) Cleanup() {
	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close asynq client")
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
	log.Info().Msg("Container cleanup completed")
}
