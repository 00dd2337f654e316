// Package service wires the reconciliation core to its side effects: the
// analysis pipeline, the background dispatcher, and the completion webhook.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/jmarroquin/cuadre/internal/artifact"
	"github.com/jmarroquin/cuadre/internal/config"
	"github.com/jmarroquin/cuadre/internal/domain"
	"github.com/jmarroquin/cuadre/internal/logger"
	"github.com/jmarroquin/cuadre/internal/parser"
	"github.com/jmarroquin/cuadre/internal/recon"
	"github.com/jmarroquin/cuadre/internal/report"
	"github.com/jmarroquin/cuadre/internal/repository"
	"github.com/jmarroquin/cuadre/internal/storage"
)

const (
	contentTypeParquet  = "application/octet-stream"
	contentTypeWorkbook = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// AnalysisService runs the reconciliation pipeline for one job: download the
// two raw rosters, normalize, join, derive metrics, investigate, persist the
// artifacts, and record a snapshot.
type AnalysisService struct {
	jobRepo      *repository.JobRepository
	snapshotRepo *repository.SnapshotRepository
	storage      storage.ObjectStorage
	logger       *logger.Logger
	analysis     config.AnalysisConfig
	sources      config.SourcesConfig
}

// NewAnalysisService creates a new analysis service.
func NewAnalysisService(
	jobRepo *repository.JobRepository,
	snapshotRepo *repository.SnapshotRepository,
	objectStorage storage.ObjectStorage,
	log *logger.Logger,
	analysis config.AnalysisConfig,
	sources config.SourcesConfig,
) *AnalysisService {
	return &AnalysisService{
		jobRepo:      jobRepo,
		snapshotRepo: snapshotRepo,
		storage:      objectStorage,
		logger:       log,
		analysis:     analysis,
		sources:      sources,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *AnalysisService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Run executes the full pipeline for a queued job. The job flips to running
// first and to a terminal status last, so an observer never sees artifacts
// attributed to a job that still reports queued. Any stage failure marks the
// job failed with the stage error recorded; partial artifacts from a failed
// run are never referenced by an artifact row.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobID: job to execute.
// Returns:
//   - error: the stage error when the run fails.
func (s *AnalysisService) Run(ctx context.Context, jobID string) error {
	start := time.Now()

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}

	log := s.log(ctx).WithFields(logger.Fields{
		logger.FieldJobID:  job.ID,
		logger.FieldTenant: job.Tenant,
	})
	log.Info("Starting analysis job")

	if err := s.jobRepo.SetStatus(ctx, job.ID, domain.JobStatusRunning); err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}

	if err := s.run(ctx, job, log); err != nil {
		log.WithError(err).Error("Analysis job failed")
		if failErr := s.jobRepo.SetFailed(ctx, job.ID, err.Error()); failErr != nil {
			log.WithError(failErr).Error("Failed to record job failure")
		}
		return err
	}

	if err := s.jobRepo.SetStatus(ctx, job.ID, domain.JobStatusSucceeded); err != nil {
		// The job must not stay in running when the success flip is lost;
		// failed is the reachable terminal state on this branch.
		err = fmt.Errorf("failed to mark job succeeded: %w", err)
		if failErr := s.jobRepo.SetFailed(ctx, job.ID, err.Error()); failErr != nil {
			log.WithError(failErr).Error("Failed to record job failure")
		}
		return err
	}

	log.WithField(logger.FieldDurationMs, time.Since(start).Milliseconds()).
		Info("Analysis job completed")
	return nil
}

func (s *AnalysisService) run(ctx context.Context, job *domain.AnalysisJob, log *logger.Logger) error {
	assigned, err := s.loadSource(ctx, job.InputAssignedKey, s.sources.Assigned, recon.RoleAssigned)
	if err != nil {
		return err
	}
	estimated, err := s.loadSource(ctx, job.InputEstimatedKey, s.sources.Estimated, recon.RoleEstimated)
	if err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		logger.FieldStage:   "normalize",
		"assigned_groups":   assigned.Stats.Groups,
		"assigned_filtered": assigned.Stats.FilteredRows,
		"assigned_dropped":  assigned.Stats.DroppedRows,
		"estimated_groups":  estimated.Stats.Groups,
	}).Info("Sources normalized")

	joined, err := recon.Join(assigned.Groups, estimated.Groups)
	if err != nil {
		return err
	}

	records := recon.ComputeMetrics(joined, recon.MetricParams{
		FillValue:     s.analysis.FillValue,
		RoundDecimals: s.analysis.RoundDecimals,
	})

	investigation := recon.Investigate(records, recon.InvestigationSpec{
		TargetClient: s.analysis.TargetClient,
		TargetUnit:   s.analysis.TargetUnit,
		SampleLimit:  s.analysis.SampleLimit,
	}, time.Now().UTC())

	log.WithFields(logger.Fields{
		logger.FieldStage:  "reconcile",
		logger.FieldCount:  len(records),
		"complete_records": investigation.Summary.CompleteRecords,
		"completeness_pct": investigation.Summary.CompletenessPct,
	}).Info("Reconciliation computed")

	if err := s.writeArtifacts(ctx, job, records, investigation, log); err != nil {
		return err
	}

	if err := s.writeSnapshot(ctx, job, records, log); err != nil {
		return err
	}

	return nil
}

// loadSource downloads one raw roster, parses its configured sheet, and
// normalizes it.
func (s *AnalysisService) loadSource(ctx context.Context, key string, src config.SourceConfig, role recon.Role) (*recon.NormalizeResult, error) {
	reader, err := s.storage.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s input: %w", role, err)
	}
	data, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s input: %w", role, err)
	}

	table, err := parser.ParseXLSX(data, parser.SheetSpec{
		Sheet:     src.Sheet,
		HeaderRow: src.HeaderRow,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s input: %w", role, err)
	}

	result, err := recon.Normalize(table, sourceSpec(src, role, s.analysis))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// writeArtifacts persists the columnar result and the workbook, recording an
// artifact row for each. Keys embed the job ID, so a retried job overwrites
// its own outputs and never another job's.
func (s *AnalysisService) writeArtifacts(ctx context.Context, job *domain.AnalysisJob, records []recon.ReconciledRecord, rep *recon.Report, log *logger.Logger) error {
	parquetData, err := artifact.WriteParquet(records)
	if err != nil {
		return fmt.Errorf("failed to encode parquet artifact: %w", err)
	}
	parquetKey := fmt.Sprintf("results/%s/%s/resultado_final.parquet", job.Tenant, job.ID)
	if err := s.uploadArtifact(ctx, job, domain.ArtifactKindParquet, parquetKey, parquetData, contentTypeParquet); err != nil {
		return err
	}

	workbookData, err := artifact.WriteWorkbook(records, rep)
	if err != nil {
		return fmt.Errorf("failed to encode workbook artifact: %w", err)
	}
	workbookKey := fmt.Sprintf("results/%s/%s/resultado_final.xlsx", job.Tenant, job.ID)
	if err := s.uploadArtifact(ctx, job, domain.ArtifactKindWorkbook, workbookKey, workbookData, contentTypeWorkbook); err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		logger.FieldStage: "artifacts",
		"parquet_bytes":   len(parquetData),
		"workbook_bytes":  len(workbookData),
	}).Info("Artifacts persisted")
	return nil
}

func (s *AnalysisService) uploadArtifact(ctx context.Context, job *domain.AnalysisJob, kind domain.ArtifactKind, key string, data []byte, contentType string) error {
	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return fmt.Errorf("failed to upload %s artifact: %w", kind, err)
	}
	return s.jobRepo.CreateArtifact(ctx, &domain.Artifact{
		ID:         uuid.New().String(),
		JobID:      job.ID,
		Kind:       kind,
		StorageKey: key,
		Size:       int64(len(data)),
	})
}

// writeSnapshot upserts the per-period metrics document. Jobs without a
// period produce artifacts only.
func (s *AnalysisService) writeSnapshot(ctx context.Context, job *domain.AnalysisJob, records []recon.ReconciledRecord, log *logger.Logger) error {
	if job.PeriodMonth == nil {
		log.Debug("Job has no period, skipping snapshot")
		return nil
	}

	metrics, err := report.Build(records).JSONMap()
	if err != nil {
		return fmt.Errorf("failed to encode snapshot metrics: %w", err)
	}

	snapshot := &domain.AnalysisSnapshot{
		ID:          uuid.New().String(),
		Tenant:      job.Tenant,
		JobID:       job.ID,
		PeriodMonth: *job.PeriodMonth,
		Metrics:     metrics,
	}
	if err := s.snapshotRepo.Upsert(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	log.WithFields(logger.Fields{
		logger.FieldStage: "snapshot",
		"period_month":    job.PeriodMonth.Format("2006-01"),
	}).Info("Snapshot recorded")
	return nil
}

// sourceSpec converts deployment source configuration into the normalization
// spec consumed by the reconciliation core.
func sourceSpec(src config.SourceConfig, role recon.Role, analysis config.AnalysisConfig) recon.SourceSpec {
	return recon.SourceSpec{
		Role:                 role,
		ClientColumn:         src.ClientColumn,
		ClientFallbackColumn: src.ClientFallbackColumn,
		UnitColumn:           src.UnitColumn,
		ServiceColumn:        src.ServiceColumn,
		HeadcountColumn:      src.HeadcountColumn,
		Filter: recon.StatusFilter{
			Column:  src.StatusColumn,
			Equals:  src.StatusEquals,
			Exclude: src.StatusExclude,
		},
		CleanColumns:  src.CleanColumns,
		Attributes:    attributeColumns(src.Attributes),
		FillValue:     analysis.FillValue,
		RoundDecimals: analysis.RoundDecimals,
	}
}

func attributeColumns(m map[string]string) recon.AttributeColumns {
	return recon.AttributeColumns{
		Company:     m["company"],
		ClientName:  m["client_name"],
		UnitName:    m["unit_name"],
		ServiceName: m["service_name"],
		GroupCode:   m["group_code"],
		GroupName:   m["group_name"],
		Zone:        m["zone"],
		Macrozone:   m["macrozone"],
		ZonalLead:   m["zonal_lead"],
		OpsLead:     m["ops_lead"],
		Manager:     m["manager"],
		Sector:      m["sector"],
		Department:  m["department"],
	}
}
