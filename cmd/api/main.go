package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmarroquin/cuadre/internal/api"
	"github.com/jmarroquin/cuadre/internal/config"
	"github.com/jmarroquin/cuadre/internal/logger"
	"github.com/jmarroquin/cuadre/internal/repository"
	"github.com/jmarroquin/cuadre/internal/service"
	"github.com/jmarroquin/cuadre/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.New(logger.FromEnv())
	logger.SetDefault(appLogger)
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	jobRepo := repository.NewJobRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	// Initialize storage (supports MinIO, R2, S3)
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
	dispatcher := service.NewDispatcher(analysisService, jobRepo, notifier, appLogger, &service.DispatcherConfig{
		Workers:    cfg.Worker.Workers,
		QueueSize:  cfg.Worker.QueueSize,
		JobTimeout: cfg.Worker.JobTimeout,
	})

	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	dispatcher.Start(dispatcherCtx)

	// Setup router
	router := api.SetupRouter(jobRepo, snapshotRepo, objectStorage, dispatcher, appLogger, &cfg.Server)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	// Let in-flight jobs finish before exiting.
	dispatcher.Stop()
	cancelDispatcher()

	appLogger.Info("Server exited")
}
