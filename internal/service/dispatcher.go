package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jmarroquin/cuadre/internal/domain"
	"github.com/jmarroquin/cuadre/internal/logger"
	"github.com/jmarroquin/cuadre/internal/repository"
)

// ErrQueueFull is returned by Enqueue when the job queue has no capacity.
var ErrQueueFull = errors.New("job queue is full")

// DispatcherConfig holds configuration for the dispatcher.
type DispatcherConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// Dispatcher runs queued analysis jobs on a bounded worker pool. Jobs enter
// through Enqueue; each job runs at most once per process, under its own
// timeout. A terminal status triggers the notifier when one is configured.
type Dispatcher struct {
	analysis *AnalysisService
	jobRepo  *repository.JobRepository
	notifier *Notifier
	logger   *logger.Logger

	jobs       chan string
	workers    int
	jobTimeout time.Duration

	wg   sync.WaitGroup
	once sync.Once
}

// NewDispatcher creates a new dispatcher.
func NewDispatcher(
	analysis *AnalysisService,
	jobRepo *repository.JobRepository,
	notifier *Notifier,
	log *logger.Logger,
	cfg *DispatcherConfig,
) *Dispatcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 16
	}
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Dispatcher{
		analysis:   analysis,
		jobRepo:    jobRepo,
		notifier:   notifier,
		logger:     log,
		jobs:       make(chan string, queueSize),
		workers:    workers,
		jobTimeout: timeout,
	}
}

// Start launches the worker pool. Workers drain the queue until ctx is
// cancelled, then finish the job in flight before exiting.
// Parameters:
//   - ctx: lifetime of the pool.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func(workerID int) {
			defer d.wg.Done()
			d.worker(ctx, workerID)
		}(i)
	}
	d.logger.WithField("workers", d.workers).Info("Dispatcher started")
}

// Enqueue submits a job ID for execution.
// Parameters:
//   - jobID: job to run.
// Returns:
//   - error: ErrQueueFull when the queue has no capacity.
func (d *Dispatcher) Enqueue(jobID string) error {
	select {
	case d.jobs <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		close(d.jobs)
	})
	d.wg.Wait()
	d.logger.Info("Dispatcher stopped")
}

func (d *Dispatcher) worker(ctx context.Context, workerID int) {
	log := d.logger.WithField("worker_id", workerID)
	for {
		select {
		case <-ctx.Done():
			return
		case jobID, ok := <-d.jobs:
			if !ok {
				return
			}
			d.runJob(ctx, jobID, log)
		}
	}
}

func (d *Dispatcher) runJob(ctx context.Context, jobID string, log *logger.Logger) {
	jobCtx, cancel := context.WithTimeout(ctx, d.jobTimeout)
	defer cancel()

	err := d.analysis.Run(jobCtx, jobID)
	if err != nil {
		log.WithField(logger.FieldJobID, jobID).WithError(err).Error("Job execution failed")
	}

	if d.notifier == nil {
		return
	}

	// Notify on the terminal status as recorded, not on the local error:
	// Run already persisted the outcome.
	job, getErr := d.jobRepo.GetByID(ctx, jobID)
	if getErr != nil {
		log.WithField(logger.FieldJobID, jobID).WithError(getErr).Warn("Failed to load job for notification")
		return
	}
	if job.Status == domain.JobStatusSucceeded || job.Status == domain.JobStatusFailed {
		d.notifier.NotifyJob(ctx, job)
	}
}
