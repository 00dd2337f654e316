package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jmarroquin/cuadre/internal/api/middleware"
	"github.com/jmarroquin/cuadre/internal/domain"
	"github.com/jmarroquin/cuadre/internal/repository"
	"github.com/jmarroquin/cuadre/internal/service"
	"github.com/jmarroquin/cuadre/internal/storage"
)

const uploadContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// JobHandler handles analysis job submission and inspection.
type JobHandler struct {
	jobRepo    *repository.JobRepository
	storage    storage.ObjectStorage
	dispatcher *service.Dispatcher
}

// NewJobHandler creates a new job handler.
// Parameters:
//   - jobRepo: job persistence.
//   - objectStorage: raw input storage.
//   - dispatcher: background job queue.
// Returns:
//   - *JobHandler: initialized handler.
func NewJobHandler(jobRepo *repository.JobRepository, objectStorage storage.ObjectStorage, dispatcher *service.Dispatcher) *JobHandler {
	return &JobHandler{
		jobRepo:    jobRepo,
		storage:    objectStorage,
		dispatcher: dispatcher,
	}
}

// Submit handles POST /api/v1/jobs. The multipart form carries the two raw
// roster workbooks plus the tenant and an optional reporting period. The raw
// inputs are persisted before the job row exists, so a crash between the two
// leaves only unreferenced uploads, never a job pointing at missing inputs.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *JobHandler) Submit(c *gin.Context) {
	tenant := c.PostForm("tenant")
	if tenant == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "tenant is required",
		})
		return
	}

	var periodMonth *time.Time
	if period := c.PostForm("period"); period != "" {
		t, err := time.Parse("2006-01", period)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "period must be formatted as YYYY-MM",
			})
			return
		}
		periodMonth = &t
	}

	assignedFile, err := c.FormFile("assigned")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "assigned file is required",
		})
		return
	}
	estimatedFile, err := c.FormFile("estimated")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "estimated file is required",
		})
		return
	}

	jobID := uuid.New().String()
	ctx := c.Request.Context()

	assignedKey := fmt.Sprintf("inputs/%s/%s/assigned.xlsx", tenant, jobID)
	if err := h.uploadInput(c, assignedFile, assignedKey); err != nil {
		middleware.GetLogger(c).WithError(err).Error("Failed to store assigned input")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store assigned input",
		})
		return
	}
	estimatedKey := fmt.Sprintf("inputs/%s/%s/estimated.xlsx", tenant, jobID)
	if err := h.uploadInput(c, estimatedFile, estimatedKey); err != nil {
		middleware.GetLogger(c).WithError(err).Error("Failed to store estimated input")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store estimated input",
		})
		return
	}

	job := &domain.AnalysisJob{
		ID:                jobID,
		Tenant:            tenant,
		PeriodMonth:       periodMonth,
		Status:            domain.JobStatusQueued,
		InputAssignedKey:  assignedKey,
		InputEstimatedKey: estimatedKey,
		CreatedBy:         c.PostForm("created_by"),
	}
	if err := h.jobRepo.Create(ctx, job); err != nil {
		middleware.GetLogger(c).WithError(err).Error("Failed to create job")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create job",
		})
		return
	}

	if err := h.dispatcher.Enqueue(jobID); err != nil {
		// The job row stays queued; a worker restart or retry picks it up.
		middleware.GetLogger(c).WithError(err).Warn("Job queued but not dispatched")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":  "Job queue is full, try again later",
			"job_id": jobID,
		})
		return
	}

	c.JSON(http.StatusAccepted, job)
}

// Get handles GET /api/v1/jobs/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *JobHandler) Get(c *gin.Context) {
	id := c.Param("id")

	job, err := h.jobRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Job not found",
		})
		return
	}

	c.JSON(http.StatusOK, job)
}

// List handles GET /api/v1/jobs?tenant=...&limit=...
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *JobHandler) List(c *gin.Context) {
	tenant := c.Query("tenant")
	if tenant == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "tenant is required",
		})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	jobs, err := h.jobRepo.ListByTenant(c.Request.Context(), tenant, limit)
	if err != nil {
		middleware.GetLogger(c).WithError(err).Error("Failed to list jobs")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// Artifacts handles GET /api/v1/jobs/:id/artifacts.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *JobHandler) Artifacts(c *gin.Context) {
	id := c.Param("id")

	if _, err := h.jobRepo.GetByID(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Job not found",
		})
		return
	}

	artifacts, err := h.jobRepo.ListArtifacts(c.Request.Context(), id)
	if err != nil {
		middleware.GetLogger(c).WithError(err).Error("Failed to list artifacts")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list artifacts",
		})
		return
	}

	type artifactView struct {
		domain.Artifact
		URL string `json:"url"`
	}
	views := make([]artifactView, 0, len(artifacts))
	for _, a := range artifacts {
		views = append(views, artifactView{Artifact: a, URL: h.storage.GetURL(a.StorageKey)})
	}

	c.JSON(http.StatusOK, gin.H{
		"artifacts": views,
	})
}

func (h *JobHandler) uploadInput(c *gin.Context, file *multipart.FileHeader, key string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()
	return h.storage.Upload(c.Request.Context(), key, src, file.Size, uploadContentType)
}
