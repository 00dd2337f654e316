package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmarroquin/cuadre/internal/config"
	"github.com/jmarroquin/cuadre/internal/domain"
	"github.com/jmarroquin/cuadre/internal/logger"
	"github.com/jmarroquin/cuadre/internal/repository"
	"github.com/jmarroquin/cuadre/internal/service"
	"github.com/jmarroquin/cuadre/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "cuadre-worker",
	})
	logger.SetDefault(appLogger)
	defer logger.Sync()

	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	pollInterval := flag.Duration("poll-interval", 5*time.Second, "How often to poll for queued jobs")
	batchSize := flag.Int("batch", 10, "Maximum queued jobs claimed per poll")
	once := flag.Bool("once", false, "Drain the queue once and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	jobRepo := repository.NewJobRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	// Initialize S3-compatible storage (supports MinIO, R2, S3)
	objectStorage, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	// Initialize services
	analysisService := service.NewAnalysisService(
		jobRepo,
		snapshotRepo,
		objectStorage,
		appLogger,
		cfg.Analysis,
		cfg.Sources,
	)
	notifier := service.NewNotifier(&cfg.Webhook, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		appLogger.Info("Shutting down worker...")
		cancel()
	}()

	appLogger.WithFields(logger.Fields{
		"poll_interval": pollInterval.String(),
		"batch":         *batchSize,
		"once":          *once,
	}).Info("Worker started")

	for {
		processed, err := drainQueue(ctx, jobRepo, analysisService, notifier, appLogger, *batchSize, cfg.Worker.JobTimeout)
		if err != nil {
			appLogger.WithError(err).Error("Queue poll failed")
		}

		if *once && processed == 0 {
			appLogger.Info("Queue drained, exiting")
			return
		}

		select {
		case <-ctx.Done():
			appLogger.Info("Worker stopped")
			return
		case <-time.After(*pollInterval):
		}
	}
}

// drainQueue claims and runs queued jobs until the current batch is
// exhausted. Jobs another worker claimed first are skipped silently.
func drainQueue(
	ctx context.Context,
	jobRepo *repository.JobRepository,
	analysis *service.AnalysisService,
	notifier *service.Notifier,
	log *logger.Logger,
	batchSize int,
	jobTimeout time.Duration,
) (int, error) {
	jobs, err := jobRepo.ListQueued(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			return processed, nil
		}

		claimed, err := jobRepo.Claim(ctx, job.ID)
		if err != nil {
			log.WithField(logger.FieldJobID, job.ID).WithError(err).Error("Failed to claim job")
			continue
		}
		if !claimed {
			continue
		}

		jobCtx, cancelJob := context.WithTimeout(ctx, jobTimeout)
		if err := analysis.Run(jobCtx, job.ID); err != nil {
			log.WithField(logger.FieldJobID, job.ID).WithError(err).Error("Job execution failed")
		}
		cancelJob()
		processed++

		if notifier != nil {
			done, getErr := jobRepo.GetByID(ctx, job.ID)
			if getErr != nil {
				log.WithField(logger.FieldJobID, job.ID).WithError(getErr).Warn("Failed to load job for notification")
				continue
			}
			if done.Status == domain.JobStatusSucceeded || done.Status == domain.JobStatusFailed {
				notifier.NotifyJob(ctx, done)
			}
		}
	}
	return processed, nil
}
