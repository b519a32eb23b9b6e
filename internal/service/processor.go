package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Nexus6Mx/see/internal/domain"
	"github.com/Nexus6Mx/see/internal/observability"
	"github.com/Nexus6Mx/see/internal/repository"
	"github.com/Nexus6Mx/see/internal/sender"
)

// Processor drains the delivery queue in batches. One processor instance is
// active per scheduling tick; records are handled strictly one at a time in
// the (priority, created_at) order the queue hands them out.
type Processor struct {
	queue      repository.QueueRepository
	attempts   repository.AttemptRepository
	dispatcher Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	sendTimeout time.Duration
	now         func() time.Time
}

// ProcessStats counts per-run outcomes. Failed counts send failures within
// this run, terminal or not.
type ProcessStats struct {
	Processed int
	Success   int
	Failed    int
}

func NewProcessor(
	queue repository.QueueRepository,
	attempts repository.AttemptRepository,
	dispatcher Dispatcher,
	sendTimeout time.Duration,
	logger *zap.Logger,
) (*Processor, error) {
	if queue == nil {
		return nil, fmt.Errorf("queue repository is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}

	return &Processor{
		queue:       queue,
		attempts:    attempts,
		dispatcher:  dispatcher,
		logger:      logger,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}, nil
}

func (p *Processor) SetMetrics(metrics *observability.Metrics) {
	if p == nil {
		return
	}
	p.metrics = metrics
}

// Process fetches up to limit eligible records and attempts each once.
// Individual send failures are bookkeeping, not errors; the returned error
// is reserved for the queue store being unreachable.
func (p *Processor) Process(ctx context.Context, limit int) (ProcessStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	stats := ProcessStats{}
	if limit <= 0 {
		return stats, nil
	}

	p.metrics.IncQueueRun()

	batch, err := p.queue.DequeueBatch(ctx, limit)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch queue batch: %w", err)
	}

	for i := range batch {
		record := &batch[i]
		stats.Processed++

		if p.processOne(ctx, record) {
			stats.Success++
		} else {
			stats.Failed++
		}
	}

	p.logger.Info("queue run finished",
		zap.Int("processed", stats.Processed),
		zap.Int("success", stats.Success),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

func (p *Processor) processOne(ctx context.Context, record *domain.Notification) bool {
	extra := sender.Extra{
		Subject:  record.Subject,
		HTMLBody: record.HTMLBody,
	}
	if record.GalleryURL != nil {
		extra.GalleryURL = *record.GalleryURL
	}

	channelName := string(record.Channel)
	attemptNumber := record.Attempts + 1

	sendCtx, cancel := context.WithTimeout(ctx, p.sendTimeout)
	sendStart := p.now()
	resp, sendErr := p.dispatcher.Dispatch(sendCtx, record.Channel, record.Recipient, record.Body, extra)
	cancel()
	p.metrics.ObserveNotificationSendDuration(channelName, p.now().Sub(sendStart))

	p.recordAttempt(ctx, record.ID, attemptNumber, resp, sendErr)

	if sendErr == nil {
		if err := p.queue.MarkSent(ctx, record.ID); err != nil {
			p.logger.Error("failed to mark notification as sent",
				zap.Int64("notificationId", record.ID),
				zap.Error(err),
			)
			return false
		}
		p.metrics.IncNotificationSent(channelName)
		p.metrics.IncQueueProcessed("sent")
		p.logger.Info("notification delivered",
			zap.Int64("notificationId", record.ID),
			zap.String("orderNumber", record.OrderNumber),
			zap.String("channel", channelName),
			zap.Int("attempt", attemptNumber),
		)
		return true
	}

	// Every failure kind counts the same toward the attempt ceiling; the
	// kind only matters for logs and metrics.
	reason := string(sender.KindOf(sendErr))
	if err := p.queue.MarkFailed(ctx, record.ID, sendErr.Error()); err != nil {
		p.logger.Error("failed to record send failure",
			zap.Int64("notificationId", record.ID),
			zap.Error(err),
		)
		return false
	}

	terminal := attemptNumber >= record.MaxAttempts
	if terminal {
		p.metrics.IncNotificationFailed(channelName, reason)
		p.metrics.IncQueueProcessed("failed")
	} else {
		p.metrics.IncRetryScheduled(channelName)
		p.metrics.IncQueueProcessed("retry")
	}

	p.logger.Warn("notification send failed",
		zap.Int64("notificationId", record.ID),
		zap.String("orderNumber", record.OrderNumber),
		zap.String("channel", channelName),
		zap.String("reason", reason),
		zap.Int("attempt", attemptNumber),
		zap.Int("maxAttempts", record.MaxAttempts),
		zap.Bool("terminal", terminal),
		zap.Error(sendErr),
	)
	return false
}

// recordAttempt appends to the audit trail. Audit trouble never blocks the
// delivery bookkeeping.
func (p *Processor) recordAttempt(ctx context.Context, notificationID int64, attemptNumber int, resp *sender.Response, sendErr error) {
	if p.attempts == nil {
		return
	}

	attempt := &domain.DeliveryAttempt{
		NotificationID: notificationID,
		AttemptNumber:  attemptNumber,
	}
	if resp != nil {
		if resp.StatusCode != 0 {
			code := resp.StatusCode
			attempt.StatusCode = &code
		}
		if resp.Body != "" {
			body := resp.Body
			attempt.ResponseBody = &body
		}
	}
	if sendErr != nil {
		msg := sendErr.Error()
		attempt.Error = &msg
	}

	if err := p.attempts.Create(ctx, attempt); err != nil {
		p.logger.Warn("failed to write delivery attempt audit row",
			zap.Int64("notificationId", notificationID),
			zap.Error(err),
		)
	}
}
