package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmarroquin/cuadre/internal/api/middleware"
	"github.com/jmarroquin/cuadre/internal/repository"
)

// MetricsHandler serves persisted snapshot metrics.
type MetricsHandler struct {
	snapshotRepo *repository.SnapshotRepository
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(snapshotRepo *repository.SnapshotRepository) *MetricsHandler {
	return &MetricsHandler{snapshotRepo: snapshotRepo}
}

// GetSnapshot handles GET /api/v1/snapshots?tenant=...&period=YYYY-MM.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *MetricsHandler) GetSnapshot(c *gin.Context) {
	tenant := c.Query("tenant")
	if tenant == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "tenant is required",
		})
		return
	}

	period := c.Query("period")
	if period == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "period is required",
		})
		return
	}
	t, err := time.Parse("2006-01", period)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "period must be formatted as YYYY-MM",
		})
		return
	}

	snapshot, err := h.snapshotRepo.GetByPeriod(c.Request.Context(), tenant, t)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Snapshot not found",
		})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// ListSnapshots handles GET /api/v1/snapshots/history?tenant=...
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *MetricsHandler) ListSnapshots(c *gin.Context) {
	tenant := c.Query("tenant")
	if tenant == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "tenant is required",
		})
		return
	}

	snapshots, err := h.snapshotRepo.ListByTenant(c.Request.Context(), tenant)
	if err != nil {
		middleware.GetLogger(c).WithError(err).Error("Failed to list snapshots")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list snapshots",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshots": snapshots,
		"total":     len(snapshots),
	})
}
