package worker

import (
	"context"
	"time"

	"github.com/TANKominator5/crowdmedics-api/internal/email"
	"github.com/TANKominator5/crowdmedics-api/internal/model"
	"github.com/TANKominator5/crowdmedics-api/internal/repository"
	"github.com/TANKominator5/crowdmedics-api/pkg/logger"
	"github.com/TANKominator5/crowdmedics-api/pkg/metrics"
)

type DispatcherConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// Dispatcher drains the notification queue with bounded retry. It is the
// only component that talks to SMTP; request handlers just enqueue.
type Dispatcher struct {
	repo     repository.NotificationRepository
	emailSvc email.Service
	config   DispatcherConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewDispatcher(
	repo repository.NotificationRepository,
	emailSvc email.Service,
	config DispatcherConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Dispatcher {
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 10 * time.Second
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 5 * time.Second
	}

	return &Dispatcher{
		repo:     repo,
		emailSvc: emailSvc,
		config:   config,
		logger:   logger,
		metrics:  metrics,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("notification dispatcher stopping")
			return
		case <-ticker.C:
			if err := d.processBatch(ctx); err != nil {
				d.logger.Error(err, "failed to process notification batch")
			}
		}
	}
}

func (d *Dispatcher) processBatch(ctx context.Context) error {
	due, err := d.repo.ListDue(ctx, d.config.BatchSize)
	if err != nil {
		return err
	}

	for _, n := range due {
		d.dispatch(ctx, n)
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, n *model.Notification) {
	err := d.emailSvc.SendCustom(ctx, n.Recipient, n.Subject, n.Content)
	if err == nil {
		now := time.Now()
		n.Status = model.NotificationStatusSent
		n.SentAt = &now
		if d.metrics != nil {
			d.metrics.NotificationsSent.Inc()
		}
		if updateErr := d.repo.Update(ctx, n); updateErr != nil {
			d.logger.Error(updateErr, "failed to mark notification sent",
				"notification_id", n.ID.String())
		}
		return
	}

	n.RetryCount++
	msg := err.Error()
	n.LastError = &msg

	if n.RetryCount >= d.config.RetryAttempts {
		n.Status = model.NotificationStatusFailed
		if d.metrics != nil {
			d.metrics.NotificationsFailed.Inc()
		}
		d.logger.Error(err, "notification exhausted retries",
			"notification_id", n.ID.String(), "recipient", n.Recipient)
	} else {
		n.Status = model.NotificationStatusRetrying
		next := time.Now().Add(d.config.RetryDelay * time.Duration(n.RetryCount))
		n.NextRetryAt = &next
		if d.metrics != nil {
			d.metrics.NotificationRetries.WithLabelValues("email").Inc()
		}
	}

	if updateErr := d.repo.Update(ctx, n); updateErr != nil {
		d.logger.Error(updateErr, "failed to update notification after send error",
			"notification_id", n.ID.String())
	}
}
