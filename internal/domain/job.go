package domain

import "time"

// JobStatus represents the lifecycle state of an analysis job.
// Values include JobStatusQueued, JobStatusRunning, JobStatusSucceeded, and JobStatusFailed.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// AnalysisJob represents one reconciliation submission: two raw roster uploads
// for a tenant, optionally pinned to a reporting period.
type AnalysisJob struct {
	ID     string `gorm:"type:text;primaryKey" json:"id"`
	Tenant string `gorm:"type:text;not null;index:idx_jobs_tenant_period;index:idx_jobs_tenant_status" json:"tenant"`

	// PeriodMonth is the reporting month as YYYY-MM-01; nil when the
	// submission carries no period.
	PeriodMonth *time.Time `gorm:"index:idx_jobs_tenant_period" json:"period_month,omitempty"`

	Status JobStatus `gorm:"type:text;index:idx_jobs_tenant_status;default:queued" json:"status"`

	// Storage keys of the two raw inputs as uploaded.
	InputAssignedKey  string `gorm:"type:text;not null" json:"input_assigned_key"`
	InputEstimatedKey string `gorm:"type:text;not null" json:"input_estimated_key"`

	ErrorMessage string `gorm:"type:text;default:''" json:"error_message,omitempty"`

	CreatedBy string    `gorm:"type:text" json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for AnalysisJob.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (AnalysisJob) TableName() string {
	return "analysis_jobs"
}

// ArtifactKind represents the type of a durable job output.
// Values include ArtifactKindParquet and ArtifactKindWorkbook.
type ArtifactKind string

const (
	ArtifactKindParquet  ArtifactKind = "parquet"
	ArtifactKindWorkbook ArtifactKind = "workbook"
)

// Artifact represents one durable output file of a succeeded job.
// Immutable after creation.
type Artifact struct {
	ID         string       `gorm:"type:text;primaryKey" json:"id"`
	JobID      string       `gorm:"type:text;not null;index:idx_artifacts_job" json:"job_id"`
	Kind       ArtifactKind `gorm:"type:text;not null" json:"kind"`
	StorageKey string       `gorm:"type:text;not null" json:"storage_key"`
	Size       int64        `json:"size"`
	CreatedAt  time.Time    `json:"created_at"`
}

// TableName returns the database table name for Artifact.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Artifact) TableName() string {
	return "artifacts"
}
