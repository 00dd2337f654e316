package repository

import (
	"context"
	"time"

	"github.com/jmarroquin/cuadre/internal/domain"
	"gorm.io/gorm"
)

// JobRepository handles analysis job and artifact persistence.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *JobRepository: repository instance bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: job record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *JobRepository) Create(ctx context.Context, job *domain.AnalysisJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID retrieves a job by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
// Returns:
//   - *domain.AnalysisJob: job record if found.
//   - error: non-nil if lookup fails.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.AnalysisJob, error) {
	var job domain.AnalysisJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ListByTenant retrieves the most recent jobs of a tenant.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - tenant: tenant slug.
//   - limit: maximum rows to return.
// Returns:
//   - []domain.AnalysisJob: jobs ordered newest first.
//   - error: non-nil if the query fails.
func (r *JobRepository) ListByTenant(ctx context.Context, tenant string, limit int) ([]domain.AnalysisJob, error) {
	var jobs []domain.AnalysisJob
	err := r.db.WithContext(ctx).
		Where("tenant = ?", tenant).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// ListQueued retrieves queued jobs oldest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum rows to return.
// Returns:
//   - []domain.AnalysisJob: queued jobs ordered by creation time.
//   - error: non-nil if the query fails.
func (r *JobRepository) ListQueued(ctx context.Context, limit int) ([]domain.AnalysisJob, error) {
	var jobs []domain.AnalysisJob
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.JobStatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// Claim atomically transitions a queued job to running. The conditional
// update is the exclusion mechanism between competing workers: exactly one
// caller observes a claimed row.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
// Returns:
//   - bool: true if this caller won the claim.
//   - error: non-nil if the update fails.
func (r *JobRepository) Claim(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.AnalysisJob{}).
		Where("id = ? AND status = ?", id, domain.JobStatusQueued).
		Updates(map[string]interface{}{
			"status":     domain.JobStatusRunning,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetStatus transitions a job to the given state, clearing any previous
// error message.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
//   - status: target state.
// Returns:
//   - error: non-nil if the update fails.
func (r *JobRepository) SetStatus(ctx context.Context, id string, status domain.JobStatus) error {
	return r.db.WithContext(ctx).Model(&domain.AnalysisJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": "",
			"updated_at":    time.Now(),
		}).Error
}

// SetFailed transitions a job to failed and records the triggering error.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
//   - message: error message to record.
// Returns:
//   - error: non-nil if the update fails.
func (r *JobRepository) SetFailed(ctx context.Context, id string, message string) error {
	return r.db.WithContext(ctx).Model(&domain.AnalysisJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        domain.JobStatusFailed,
			"error_message": message,
			"updated_at":    time.Now(),
		}).Error
}

// CreateArtifact inserts a new artifact record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - artifact: artifact record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *JobRepository) CreateArtifact(ctx context.Context, artifact *domain.Artifact) error {
	return r.db.WithContext(ctx).Create(artifact).Error
}

// ListArtifacts retrieves all artifacts of a job.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobID: owning job ID.
// Returns:
//   - []domain.Artifact: artifacts ordered by creation time.
//   - error: non-nil if the query fails.
func (r *JobRepository) ListArtifacts(ctx context.Context, jobID string) ([]domain.Artifact, error) {
	var artifacts []domain.Artifact
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&artifacts).Error
	return artifacts, err
}
