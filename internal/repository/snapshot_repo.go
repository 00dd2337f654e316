package repository

import (
	"context"
	"time"

	"github.com/jmarroquin/cuadre/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotRepository handles pre-aggregated metrics snapshots.
type SnapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a new SnapshotRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *SnapshotRepository: repository instance bound to db.
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Upsert creates or replaces the snapshot for (tenant, period). The replace
// is a single ON CONFLICT statement against the unique index, so concurrent
// writers resolve to last-writer-wins and readers never observe a partial
// row.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - snapshot: snapshot record to create or replace.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *SnapshotRepository) Upsert(ctx context.Context, snapshot *domain.AnalysisSnapshot) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant"}, {Name: "period_month"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"job_id", "metrics", "updated_at",
		}),
	}).Create(snapshot).Error
}

// GetByPeriod retrieves the snapshot for (tenant, period).
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - tenant: tenant slug.
//   - period: reporting month (YYYY-MM-01).
// Returns:
//   - *domain.AnalysisSnapshot: snapshot if present.
//   - error: non-nil if lookup fails.
func (r *SnapshotRepository) GetByPeriod(ctx context.Context, tenant string, period time.Time) (*domain.AnalysisSnapshot, error) {
	var snapshot domain.AnalysisSnapshot
	if err := r.db.WithContext(ctx).
		First(&snapshot, "tenant = ? AND period_month = ?", tenant, period).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ListByTenant retrieves all snapshots of a tenant, newest period first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - tenant: tenant slug.
// Returns:
//   - []domain.AnalysisSnapshot: snapshots ordered by period descending.
//   - error: non-nil if the query fails.
func (r *SnapshotRepository) ListByTenant(ctx context.Context, tenant string) ([]domain.AnalysisSnapshot, error) {
	var snapshots []domain.AnalysisSnapshot
	err := r.db.WithContext(ctx).
		Where("tenant = ?", tenant).
		Order("period_month DESC").
		Find(&snapshots).Error
	return snapshots, err
}
