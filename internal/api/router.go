package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jmarroquin/cuadre/internal/api/handler"
	"github.com/jmarroquin/cuadre/internal/api/middleware"
	"github.com/jmarroquin/cuadre/internal/config"
	"github.com/jmarroquin/cuadre/internal/logger"
	"github.com/jmarroquin/cuadre/internal/repository"
	"github.com/jmarroquin/cuadre/internal/service"
	"github.com/jmarroquin/cuadre/internal/storage"
)

const (
	serviceName    = "cuadre-api"
	serviceVersion = "1.0.0"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	jobRepo *repository.JobRepository,
	snapshotRepo *repository.SnapshotRepository,
	objectStorage storage.ObjectStorage,
	dispatcher *service.Dispatcher,
	log *logger.Logger,
	cfg *config.ServerConfig,
) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.CORS))

	// Create handlers
	healthHandler := handler.NewHealthHandler(serviceName, serviceVersion)
	jobHandler := handler.NewJobHandler(jobRepo, objectStorage, dispatcher)
	metricsHandler := handler.NewMetricsHandler(snapshotRepo)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Jobs
		v1.POST("/jobs", jobHandler.Submit)
		v1.GET("/jobs", jobHandler.List)
		v1.GET("/jobs/:id", jobHandler.Get)
		v1.GET("/jobs/:id/artifacts", jobHandler.Artifacts)

		// Snapshots
		v1.GET("/snapshots", metricsHandler.GetSnapshot)
		v1.GET("/snapshots/history", metricsHandler.ListSnapshots)
	}

	return r
}
