package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Nexus6Mx/see/internal/bridge"
	"github.com/Nexus6Mx/see/internal/domain"
	"github.com/Nexus6Mx/see/internal/observability"
	"github.com/Nexus6Mx/see/internal/repository"
	"github.com/Nexus6Mx/see/internal/sender"
	"github.com/Nexus6Mx/see/internal/template"
)

const (
	defaultSendTimeout = 15 * time.Second
	defaultStatsWindow = 7 * 24 * time.Hour
)

// Dispatcher routes a message to the sender registered for a channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, channel domain.Channel, recipient string, body string, extra sender.Extra) (*sender.Response, error)
}

// GalleryIssuer mints the time-limited gallery link carried in notifications.
type GalleryIssuer interface {
	IssueURL(ctx context.Context, orderNumber, createdBy string) (string, error)
}

type NotificationService struct {
	queue      repository.QueueRepository
	clients    bridge.ClientGetter
	gallery    GalleryIssuer
	dispatcher Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	sendTimeout     time.Duration
	maxAttempts     int
	statsWindow     time.Duration
	failedThreshold int64
}

type NotificationServiceOptions struct {
	SendTimeout          time.Duration
	MaxAttempts          int
	StatsWindow          time.Duration
	FailedAlertThreshold int64
}

func NewNotificationService(
	queue repository.QueueRepository,
	clients bridge.ClientGetter,
	gallery GalleryIssuer,
	dispatcher Dispatcher,
	opts NotificationServiceOptions,
	logger *zap.Logger,
) (*NotificationService, error) {
	if queue == nil {
		return nil, fmt.Errorf("queue repository is required")
	}
	if clients == nil {
		return nil, fmt.Errorf("client lookup is required")
	}
	if gallery == nil {
		return nil, fmt.Errorf("gallery issuer is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = domain.DefaultMaxAttempts
	}
	if opts.StatsWindow <= 0 {
		opts.StatsWindow = defaultStatsWindow
	}

	return &NotificationService{
		queue:           queue,
		clients:         clients,
		gallery:         gallery,
		dispatcher:      dispatcher,
		logger:          logger,
		sendTimeout:     opts.SendTimeout,
		maxAttempts:     opts.MaxAttempts,
		statsWindow:     opts.StatsWindow,
		failedThreshold: opts.FailedAlertThreshold,
	}, nil
}

func (s *NotificationService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

type ResendRequest struct {
	OrderNumber string
	Channel     domain.Channel
	// ChatID addresses the chat-bot channel, which has no recipient in the
	// client record.
	ChatID      string
	RequestedBy string
}

type ResendResult struct {
	Sent           bool
	Queued         bool
	Channel        domain.Channel
	Recipient      string
	GalleryURL     string
	NotificationID int64
	SendError      string
}

// Resend assembles a fresh notification for an order and tries to deliver it
// synchronously. A failed send is not an error: the message is queued at high
// priority and the result reports both facts.
func (s *NotificationService) Resend(ctx context.Context, req ResendRequest) (*ResendResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	orderNumber := strings.TrimSpace(req.OrderNumber)
	if orderNumber == "" {
		return nil, fmt.Errorf("%w: order number is required", domain.ErrValidation)
	}
	if !req.Channel.IsValid() {
		return nil, fmt.Errorf("%w: invalid channel %q", domain.ErrValidation, req.Channel)
	}

	client, err := s.clients.GetClientByOrder(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no client data for order %s", domain.ErrNotFound, orderNumber)
		}
		return nil, fmt.Errorf("client lookup failed: %w", err)
	}

	recipient, err := resolveRecipient(req.Channel, client, req.ChatID)
	if err != nil {
		return nil, err
	}

	galleryURL, err := s.gallery.IssueURL(ctx, orderNumber, req.RequestedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to issue gallery link: %w", err)
	}

	msg := template.Render(req.Channel, template.Vars{
		ClientName:   client.Name,
		VehicleModel: client.VehicleModel,
		OrderNumber:  orderNumber,
		GalleryURL:   galleryURL,
	})

	extra := sender.Extra{
		Subject:    msg.Subject,
		HTMLBody:   msg.HTMLBody,
		GalleryURL: galleryURL,
	}

	result := &ResendResult{
		Channel:    req.Channel,
		Recipient:  recipient,
		GalleryURL: galleryURL,
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	sendStart := time.Now()
	_, sendErr := s.dispatcher.Dispatch(sendCtx, req.Channel, recipient, msg.Body, extra)
	cancel()
	s.metrics.ObserveNotificationSendDuration(string(req.Channel), time.Since(sendStart))

	if sendErr == nil {
		s.metrics.IncNotificationSent(string(req.Channel))
		observability.WithContextLogger(s.logger, ctx).Info("notification sent",
			zap.String("orderNumber", orderNumber),
			zap.String("channel", string(req.Channel)),
		)
		result.Sent = true
		return result, nil
	}

	observability.WithContextLogger(s.logger, ctx).Warn("immediate send failed, queueing",
		zap.String("orderNumber", orderNumber),
		zap.String("channel", string(req.Channel)),
		zap.String("reason", string(sender.KindOf(sendErr))),
		zap.Error(sendErr),
	)

	record, err := s.Enqueue(ctx, EnqueueRequest{
		OrderNumber: orderNumber,
		Channel:     req.Channel,
		Recipient:   recipient,
		Body:        msg.Body,
		Subject:     msg.Subject,
		HTMLBody:    msg.HTMLBody,
		GalleryURL:  galleryURL,
		Priority:    domain.PriorityHigh,
	})
	if err != nil {
		return nil, fmt.Errorf("send failed and queueing failed: %w", err)
	}

	s.metrics.IncRetryScheduled(string(req.Channel))
	result.Queued = true
	result.NotificationID = record.ID
	result.SendError = sendErr.Error()
	return result, nil
}

type EnqueueRequest struct {
	OrderNumber string
	Channel     domain.Channel
	Recipient   string
	Body        string
	Subject     string
	HTMLBody    string
	GalleryURL  string
	Priority    domain.Priority
}

// Enqueue creates a new pending queue record. Duplicates for the same
// order and channel are allowed; redundant delivery beats lost delivery.
func (s *NotificationService) Enqueue(ctx context.Context, req EnqueueRequest) (*domain.Notification, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	record := &domain.Notification{
		OrderNumber: strings.TrimSpace(req.OrderNumber),
		Channel:     req.Channel,
		Recipient:   strings.TrimSpace(req.Recipient),
		Body:        req.Body,
		Subject:     req.Subject,
		HTMLBody:    req.HTMLBody,
		Priority:    req.Priority,
		MaxAttempts: s.maxAttempts,
	}
	if url := strings.TrimSpace(req.GalleryURL); url != "" {
		record.GalleryURL = &url
	}

	if err := s.queue.Enqueue(ctx, record); err != nil {
		return nil, err
	}

	observability.WithContextLogger(s.logger, ctx).Info("notification queued",
		zap.Int64("notificationId", record.ID),
		zap.String("orderNumber", record.OrderNumber),
		zap.String("channel", string(record.Channel)),
		zap.Int("priority", int(record.Priority)),
	)
	return record, nil
}

// List exposes queue records for the operator view.
func (s *NotificationService) List(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.queue.List(ctx, params)
}

type StatsReport struct {
	Stats domain.QueueStats
	// Alert is set when the failed count over the window crosses the
	// operator threshold.
	Alert     bool
	Threshold int64
}

func (s *NotificationService) Stats(ctx context.Context) (*StatsReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	stats, err := s.queue.Stats(ctx, s.statsWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue stats: %w", err)
	}

	s.metrics.SetQueuePending(stats.Pending)

	report := &StatsReport{Stats: *stats, Threshold: s.failedThreshold}
	if s.failedThreshold > 0 && stats.Failed > s.failedThreshold {
		report.Alert = true
		s.logger.Warn("failed notification count above threshold",
			zap.Int64("failed", stats.Failed),
			zap.Int64("threshold", s.failedThreshold),
		)
	}
	return report, nil
}

func resolveRecipient(channel domain.Channel, client *domain.ClientRecord, chatID string) (string, error) {
	switch channel {
	case domain.ChannelWhatsApp:
		phone := strings.TrimSpace(client.Phone)
		if phone == "" {
			return "", fmt.Errorf("%w: client has no phone on file", domain.ErrValidation)
		}
		return phone, nil
	case domain.ChannelEmail:
		email := strings.TrimSpace(client.Email)
		if email == "" {
			return "", fmt.Errorf("%w: client has no email on file", domain.ErrValidation)
		}
		return email, nil
	case domain.ChannelTelegram:
		id := strings.TrimSpace(chatID)
		if id == "" {
			return "", fmt.Errorf("%w: telegram channel requires a chat id", domain.ErrValidation)
		}
		return id, nil
	default:
		return "", fmt.Errorf("%w: invalid channel %q", domain.ErrValidation, channel)
	}
}
