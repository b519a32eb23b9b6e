package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Nexus6Mx/see/internal/domain"
	"github.com/Nexus6Mx/see/internal/repository"
	"github.com/Nexus6Mx/see/internal/service"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type NotificationService interface {
	Resend(ctx context.Context, req service.ResendRequest) (*service.ResendResult, error)
	Enqueue(ctx context.Context, req service.EnqueueRequest) (*domain.Notification, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error)
	Stats(ctx context.Context) (*service.StatsReport, error)
}

type NotificationHandler struct {
	service NotificationService
}

func NewNotificationHandler(service NotificationService) (*NotificationHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("notification service is required")
	}
	return &NotificationHandler{service: service}, nil
}

func RegisterNotificationRoutes(router fiber.Router, service NotificationService) error {
	h, err := NewNotificationHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/notifications/resend", h.ResendNotification)
	v1.Post("/notifications", h.EnqueueNotification)
	v1.Get("/queue", h.ListQueue)
	v1.Get("/queue/stats", h.QueueStats)

	return nil
}

// Request field names follow the shop's existing API clients.
type resendRequest struct {
	OrderNumber string `json:"orden_numero"`
	Channel     string `json:"canal"`
	ChatID      string `json:"chat_id,omitempty"`
}

type resendResponse struct {
	Success        bool   `json:"success"`
	Channel        string `json:"canal"`
	Recipient      string `json:"destinatario"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
	Queued         bool   `json:"queued,omitempty"`
	NotificationID int64  `json:"notification_id,omitempty"`
}

type enqueueRequest struct {
	OrderNumber string `json:"orden_numero"`
	Channel     string `json:"canal"`
	Recipient   string `json:"destinatario"`
	Body        string `json:"mensaje"`
	Subject     string `json:"asunto,omitempty"`
	HTMLBody    string `json:"mensaje_html,omitempty"`
	GalleryURL  string `json:"galeria_url,omitempty"`
	Priority    int    `json:"prioridad,omitempty"`
}

type notificationResponse struct {
	ID            int64      `json:"id"`
	OrderNumber   string     `json:"orden_numero"`
	Channel       string     `json:"canal"`
	Recipient     string     `json:"destinatario"`
	State         string     `json:"estado"`
	Priority      int        `json:"prioridad"`
	Attempts      int        `json:"intentos"`
	MaxAttempts   int        `json:"max_intentos"`
	LastError     *string    `json:"ultimo_error,omitempty"`
	LastAttemptAt *time.Time `json:"ultimo_intento,omitempty"`
	SentAt        *time.Time `json:"enviado_en,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type listQueueResponse struct {
	Data []notificationResponse `json:"data"`
	Meta listMeta               `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

type queueStatsResponse struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pendientes"`
	Sent      int64 `json:"enviadas"`
	Failed    int64 `json:"fallidas"`
	Alert     bool  `json:"alert"`
	Threshold int64 `json:"threshold"`
}

// ResendNotification tries an immediate send and reports whether the message
// went out or was queued for the next batch.
func (h *NotificationHandler) ResendNotification(c *fiber.Ctx) error {
	var req resendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	channel, err := domain.ParseChannelFromString(req.Channel)
	if err != nil {
		return toHTTPError(err)
	}

	result, err := h.service.Resend(c.UserContext(), service.ResendRequest{
		OrderNumber: strings.TrimSpace(req.OrderNumber),
		Channel:     channel,
		ChatID:      strings.TrimSpace(req.ChatID),
		RequestedBy: requestUser(c),
	})
	if err != nil {
		return toHTTPError(err)
	}

	if result.Sent {
		return c.Status(fiber.StatusOK).JSON(resendResponse{
			Success:   true,
			Channel:   string(result.Channel),
			Recipient: result.Recipient,
			Message:   "Notificación enviada exitosamente",
		})
	}

	// The send failed but the message is queued; surface both facts.
	return c.Status(fiber.StatusBadGateway).JSON(resendResponse{
		Success:        false,
		Channel:        string(result.Channel),
		Recipient:      result.Recipient,
		Error:          result.SendError,
		Queued:         result.Queued,
		NotificationID: result.NotificationID,
		Message:        "La notificación fue encolada para reintento automático",
	})
}

func (h *NotificationHandler) EnqueueNotification(c *fiber.Ctx) error {
	var req enqueueRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	channel, err := domain.ParseChannelFromString(req.Channel)
	if err != nil {
		return toHTTPError(err)
	}

	record, err := h.service.Enqueue(c.UserContext(), service.EnqueueRequest{
		OrderNumber: strings.TrimSpace(req.OrderNumber),
		Channel:     channel,
		Recipient:   strings.TrimSpace(req.Recipient),
		Body:        req.Body,
		Subject:     req.Subject,
		HTMLBody:    req.HTMLBody,
		GalleryURL:  strings.TrimSpace(req.GalleryURL),
		Priority:    domain.Priority(req.Priority),
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(toNotificationResponse(record))
}

func (h *NotificationHandler) ListQueue(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	notifications, total, err := h.service.List(c.UserContext(), params)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]notificationResponse, 0, len(notifications))
	for i := range notifications {
		responses = append(responses, toNotificationResponse(&notifications[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listQueueResponse{
		Data: responses,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *NotificationHandler) QueueStats(c *fiber.Ctx) error {
	report, err := h.service.Stats(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(queueStatsResponse{
		Total:     report.Stats.Total,
		Pending:   report.Stats.Pending,
		Sent:      report.Stats.Sent,
		Failed:    report.Stats.Failed,
		Alert:     report.Alert,
		Threshold: report.Threshold,
	})
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:        c.QueryInt("page", defaultPage),
		PageSize:    c.QueryInt("pageSize", defaultPageSize),
		OrderNumber: strings.TrimSpace(c.Query("orden")),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawState := strings.TrimSpace(c.Query("estado")); rawState != "" {
		state, err := domain.ParseStateFromString(rawState)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.State = &state
	}

	if rawChannel := strings.TrimSpace(c.Query("canal")); rawChannel != "" {
		channel, err := domain.ParseChannelFromString(rawChannel)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Channel = &channel
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.ListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.ListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func requestUser(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Get("X-User"))
}

func toNotificationResponse(n *domain.Notification) notificationResponse {
	if n == nil {
		return notificationResponse{}
	}

	return notificationResponse{
		ID:            n.ID,
		OrderNumber:   n.OrderNumber,
		Channel:       string(n.Channel),
		Recipient:     n.Recipient,
		State:         string(n.State),
		Priority:      int(n.Priority),
		Attempts:      n.Attempts,
		MaxAttempts:   n.MaxAttempts,
		LastError:     n.LastError,
		LastAttemptAt: n.LastAttemptAt,
		SentAt:        n.SentAt,
		CreatedAt:     n.CreatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
