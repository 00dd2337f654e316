package service

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jmarroquin/cuadre/internal/config"
	"github.com/jmarroquin/cuadre/internal/domain"
	"github.com/jmarroquin/cuadre/internal/logger"
)

// Notifier posts job completion events to a configured webhook. Delivery is
// best effort: a failed post is logged and never fails the job.
type Notifier struct {
	client *resty.Client
	url    string
	logger *logger.Logger
}

// jobEvent is the webhook payload for a terminal job status.
type jobEvent struct {
	JobID        string `json:"job_id"`
	Tenant       string `json:"tenant"`
	Status       string `json:"status"`
	PeriodMonth  string `json:"period_month,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	OccurredAt   string `json:"occurred_at"`
}

// NewNotifier creates a webhook notifier. Returns nil when no URL is
// configured; callers treat a nil notifier as notifications disabled.
// Parameters:
//   - cfg: webhook configuration.
//   - log: logger for delivery failures.
// Returns:
//   - *Notifier: notifier, or nil when disabled.
func NewNotifier(cfg *config.WebhookConfig, log *logger.Logger) *Notifier {
	if cfg.URL == "" {
		return nil
	}

	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client.SetTimeout(timeout)
	client.SetRetryCount(2)

	return &Notifier{
		client: client,
		url:    cfg.URL,
		logger: log,
	}
}

// NotifyJob posts the terminal status of a job to the webhook.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: job in a terminal status.
func (n *Notifier) NotifyJob(ctx context.Context, job *domain.AnalysisJob) {
	event := jobEvent{
		JobID:        job.ID,
		Tenant:       job.Tenant,
		Status:       string(job.Status),
		ErrorMessage: job.ErrorMessage,
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if job.PeriodMonth != nil {
		event.PeriodMonth = job.PeriodMonth.Format("2006-01")
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(event).
		Post(n.url)
	if err != nil {
		n.logger.WithField(logger.FieldJobID, job.ID).WithError(err).Warn("Webhook delivery failed")
		return
	}
	if resp.IsError() {
		n.logger.WithFields(logger.Fields{
			logger.FieldJobID:  job.ID,
			logger.FieldStatus: resp.StatusCode(),
		}).Warn("Webhook rejected event")
	}
}
