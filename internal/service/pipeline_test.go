package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jmarroquin/cuadre/internal/config"
	"github.com/jmarroquin/cuadre/internal/domain"
	"github.com/jmarroquin/cuadre/internal/logger"
	"github.com/jmarroquin/cuadre/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&domain.AnalysisJob{}, &domain.Artifact{}, &domain.AnalysisSnapshot{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func newTestLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Output: io.Discard, ServiceName: "test"})
}

// memoryStorage keeps uploaded objects in a map.
type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: make(map[string][]byte)}
}

func (m *memoryStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStorage) GetURL(key string) string {
	return "mem://" + key
}

func (m *memoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memoryStorage) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func buildRoster(t *testing.T, sheet string, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(sheet); err != nil {
		t.Fatalf("failed to create sheet: %v", err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("failed to build cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			t.Fatalf("failed to write row: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("failed to serialize workbook: %v", err)
	}
	return buf.Bytes()
}

func testSources() config.SourcesConfig {
	return config.SourcesConfig{
		Assigned: config.SourceConfig{
			Sheet:         "ASIGNADO",
			HeaderRow:     0,
			ClientColumn:  "cliente",
			UnitColumn:    "unidad",
			ServiceColumn: "servicio",
		},
		Estimated: config.SourceConfig{
			Sheet:           "DATA",
			HeaderRow:       0,
			ClientColumn:    "cliente",
			UnitColumn:      "unidad",
			ServiceColumn:   "servicio",
			HeadcountColumn: "requerido",
		},
	}
}

type pipelineEnv struct {
	db           *gorm.DB
	jobRepo      *repository.JobRepository
	snapshotRepo *repository.SnapshotRepository
	storage      *memoryStorage
	service      *AnalysisService
}

func newPipelineEnv(t *testing.T) *pipelineEnv {
	t.Helper()
	db := newTestDB(t)
	jobRepo := repository.NewJobRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	store := newMemoryStorage()
	svc := NewAnalysisService(jobRepo, snapshotRepo, store, newTestLogger(),
		config.AnalysisConfig{RoundDecimals: 2, SampleLimit: 5}, testSources())
	return &pipelineEnv{
		db:           db,
		jobRepo:      jobRepo,
		snapshotRepo: snapshotRepo,
		storage:      store,
		service:      svc,
	}
}

// seedJob uploads the two raw inputs and creates the queued job row.
func (e *pipelineEnv) seedJob(t *testing.T, assigned, estimated []byte, period *time.Time) *domain.AnalysisJob {
	t.Helper()
	ctx := context.Background()

	job := &domain.AnalysisJob{
		ID:                "job-1",
		Tenant:            "acme",
		PeriodMonth:       period,
		Status:            domain.JobStatusQueued,
		InputAssignedKey:  "inputs/acme/job-1/assigned.xlsx",
		InputEstimatedKey: "inputs/acme/job-1/estimated.xlsx",
	}
	if err := e.storage.Upload(ctx, job.InputAssignedKey, bytes.NewReader(assigned), int64(len(assigned)), contentTypeWorkbook); err != nil {
		t.Fatalf("failed to upload assigned input: %v", err)
	}
	if err := e.storage.Upload(ctx, job.InputEstimatedKey, bytes.NewReader(estimated), int64(len(estimated)), contentTypeWorkbook); err != nil {
		t.Fatalf("failed to upload estimated input: %v", err)
	}
	if err := e.jobRepo.Create(ctx, job); err != nil {
		t.Fatalf("failed to create job: %v", err)
	}
	return job
}

func testRosters(t *testing.T) (assigned, estimated []byte) {
	t.Helper()
	assigned = buildRoster(t, "ASIGNADO", [][]interface{}{
		{"cliente", "unidad", "servicio"},
		{"C1", "U1", "S1"},
		{"C1", "U1", "S1"},
		{"C2", "U1", "S1"},
	})
	estimated = buildRoster(t, "DATA", [][]interface{}{
		{"cliente", "unidad", "servicio", "requerido"},
		{"C1", "U1", "S1", 3},
	})
	return assigned, estimated
}

func TestAnalysisRun_Success(t *testing.T) {
	env := newPipelineEnv(t)
	ctx := context.Background()
	assigned, estimated := testRosters(t)
	period := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	job := env.seedJob(t, assigned, estimated, &period)

	if err := env.service.Run(ctx, job.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := env.jobRepo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	if got.Status != domain.JobStatusSucceeded {
		t.Errorf("status = %q, want %q", got.Status, domain.JobStatusSucceeded)
	}
	if got.ErrorMessage != "" {
		t.Errorf("error message = %q, want empty", got.ErrorMessage)
	}

	artifacts, err := env.jobRepo.ListArtifacts(ctx, job.ID)
	if err != nil {
		t.Fatalf("failed to list artifacts: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("artifacts = %d, want 2", len(artifacts))
	}
	kinds := map[domain.ArtifactKind]bool{}
	for _, a := range artifacts {
		kinds[a.Kind] = true
		if !env.storage.has(a.StorageKey) {
			t.Errorf("artifact %s references missing object %s", a.Kind, a.StorageKey)
		}
	}
	if !kinds[domain.ArtifactKindParquet] || !kinds[domain.ArtifactKindWorkbook] {
		t.Errorf("artifact kinds = %v, want parquet and workbook", kinds)
	}

	snapshot, err := env.snapshotRepo.GetByPeriod(ctx, job.Tenant, period)
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	if snapshot.JobID != job.ID {
		t.Errorf("snapshot job = %q, want %q", snapshot.JobID, job.ID)
	}
	// Three assigned rows total across the two groups.
	if v, ok := snapshot.Metrics["total_actual"].(float64); !ok || v != 3 {
		t.Errorf("total_actual = %v, want 3", snapshot.Metrics["total_actual"])
	}
}

func TestAnalysisRun_ParseFailureMarksFailed(t *testing.T) {
	env := newPipelineEnv(t)
	ctx := context.Background()
	_, estimated := testRosters(t)
	job := env.seedJob(t, []byte("not a workbook"), estimated, nil)

	err := env.service.Run(ctx, job.ID)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	got, loadErr := env.jobRepo.GetByID(ctx, job.ID)
	if loadErr != nil {
		t.Fatalf("failed to reload job: %v", loadErr)
	}
	if got.Status != domain.JobStatusFailed {
		t.Errorf("status = %q, want %q", got.Status, domain.JobStatusFailed)
	}
	if got.ErrorMessage == "" {
		t.Error("error message not recorded")
	}
	if got.ErrorMessage != err.Error() {
		t.Errorf("error message = %q, want %q", got.ErrorMessage, err.Error())
	}

	artifacts, listErr := env.jobRepo.ListArtifacts(ctx, job.ID)
	if listErr != nil {
		t.Fatalf("failed to list artifacts: %v", listErr)
	}
	if len(artifacts) != 0 {
		t.Errorf("artifacts = %d, want 0 for a failed run", len(artifacts))
	}
}

func TestAnalysisRun_SuccessFlipFailureMarksFailed(t *testing.T) {
	env := newPipelineEnv(t)
	ctx := context.Background()
	assigned, estimated := testRosters(t)
	job := env.seedJob(t, assigned, estimated, nil)

	// Reject only the flip to succeeded; the fallback write to failed
	// must still go through.
	trigger := `CREATE TRIGGER reject_succeeded BEFORE UPDATE ON analysis_jobs
		WHEN NEW.status = 'succeeded'
		BEGIN SELECT RAISE(ABORT, 'status update rejected'); END;`
	if err := env.db.Exec(trigger).Error; err != nil {
		t.Fatalf("failed to create trigger: %v", err)
	}

	err := env.service.Run(ctx, job.ID)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "failed to mark job succeeded") {
		t.Errorf("error = %v, want success flip failure", err)
	}

	got, loadErr := env.jobRepo.GetByID(ctx, job.ID)
	if loadErr != nil {
		t.Fatalf("failed to reload job: %v", loadErr)
	}
	if got.Status != domain.JobStatusFailed {
		t.Errorf("status = %q, want %q", got.Status, domain.JobStatusFailed)
	}
	if !strings.Contains(got.ErrorMessage, "failed to mark job succeeded") {
		t.Errorf("error message = %q, want the success flip failure recorded", got.ErrorMessage)
	}
}

func TestDispatcher_RunsEnqueuedJob(t *testing.T) {
	env := newPipelineEnv(t)
	ctx := context.Background()
	assigned, estimated := testRosters(t)
	job := env.seedJob(t, assigned, estimated, nil)

	d := NewDispatcher(env.service, env.jobRepo, nil, newTestLogger(), &DispatcherConfig{
		Workers:    1,
		QueueSize:  4,
		JobTimeout: 30 * time.Second,
	})
	d.Start(ctx)
	if err := d.Enqueue(job.ID); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}
	d.Stop()

	got, err := env.jobRepo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	if got.Status != domain.JobStatusSucceeded {
		t.Errorf("status = %q, want %q", got.Status, domain.JobStatusSucceeded)
	}
}

func TestDispatcher_EnqueueQueueFull(t *testing.T) {
	env := newPipelineEnv(t)

	// Never started, so the queue only drains by capacity.
	d := NewDispatcher(env.service, env.jobRepo, nil, newTestLogger(), &DispatcherConfig{
		Workers:   1,
		QueueSize: 1,
	})

	if err := d.Enqueue("job-a"); err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}
	if err := d.Enqueue("job-b"); err != ErrQueueFull {
		t.Errorf("second enqueue = %v, want ErrQueueFull", err)
	}
}
