package repository

import (
	"time"

	"github.com/Nexus6Mx/see/internal/domain"
)

// NotificationModel is the persistence model for the notification_queue table.
type NotificationModel struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	OrderNumber   string          `gorm:"type:varchar(50);not null;index"`
	Channel       domain.Channel  `gorm:"type:varchar(20);not null"`
	Recipient     string          `gorm:"type:varchar(255);not null"`
	Body          string          `gorm:"type:text;not null"`
	Subject       string          `gorm:"type:varchar(255)"`
	HTMLBody      string          `gorm:"type:text"`
	GalleryURL    *string         `gorm:"type:text"`
	State         domain.State    `gorm:"type:varchar(20);not null;default:pending"`
	Priority      domain.Priority `gorm:"not null;default:5"`
	Attempts      int             `gorm:"not null;default:0"`
	MaxAttempts   int             `gorm:"not null;default:3"`
	LastError     *string         `gorm:"type:text"`
	LastAttemptAt *time.Time
	SentAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (NotificationModel) TableName() string {
	return "notification_queue"
}

// DeliveryAttemptModel is the persistence model for delivery_attempts.
type DeliveryAttemptModel struct {
	ID             string  `gorm:"type:uuid;primaryKey"`
	NotificationID int64   `gorm:"not null;index"`
	AttemptNumber  int     `gorm:"not null"`
	StatusCode     *int    `gorm:"type:int"`
	ResponseBody   *string `gorm:"type:text"`
	Error          *string `gorm:"type:text"`
	CreatedAt      time.Time
}

func (DeliveryAttemptModel) TableName() string {
	return "delivery_attempts"
}

// GalleryTokenModel is the persistence model for gallery_tokens. Only the
// sha256 hash of an issued token is stored.
type GalleryTokenModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	TokenHash   string    `gorm:"type:char(64);not null;uniqueIndex"`
	OrderNumber string    `gorm:"type:varchar(50);not null;index"`
	ExpiresAt   time.Time `gorm:"not null"`
	CreatedBy   *string   `gorm:"type:varchar(100)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (GalleryTokenModel) TableName() string {
	return "gallery_tokens"
}

func notificationModelFromDomain(n *domain.Notification) *NotificationModel {
	if n == nil {
		return nil
	}

	return &NotificationModel{
		ID:            n.ID,
		OrderNumber:   n.OrderNumber,
		Channel:       n.Channel,
		Recipient:     n.Recipient,
		Body:          n.Body,
		Subject:       n.Subject,
		HTMLBody:      n.HTMLBody,
		GalleryURL:    n.GalleryURL,
		State:         n.State,
		Priority:      n.Priority,
		Attempts:      n.Attempts,
		MaxAttempts:   n.MaxAttempts,
		LastError:     n.LastError,
		LastAttemptAt: n.LastAttemptAt,
		SentAt:        n.SentAt,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}
}

func notificationModelToDomain(m *NotificationModel) *domain.Notification {
	if m == nil {
		return nil
	}

	return &domain.Notification{
		ID:            m.ID,
		OrderNumber:   m.OrderNumber,
		Channel:       m.Channel,
		Recipient:     m.Recipient,
		Body:          m.Body,
		Subject:       m.Subject,
		HTMLBody:      m.HTMLBody,
		GalleryURL:    m.GalleryURL,
		State:         m.State,
		Priority:      m.Priority,
		Attempts:      m.Attempts,
		MaxAttempts:   m.MaxAttempts,
		LastError:     m.LastError,
		LastAttemptAt: m.LastAttemptAt,
		SentAt:        m.SentAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func attemptModelFromDomain(a *domain.DeliveryAttempt) *DeliveryAttemptModel {
	if a == nil {
		return nil
	}

	return &DeliveryAttemptModel{
		ID:             a.ID,
		NotificationID: a.NotificationID,
		AttemptNumber:  a.AttemptNumber,
		StatusCode:     a.StatusCode,
		ResponseBody:   a.ResponseBody,
		Error:          a.Error,
		CreatedAt:      a.CreatedAt,
	}
}

func attemptModelToDomain(m *DeliveryAttemptModel) *domain.DeliveryAttempt {
	if m == nil {
		return nil
	}

	return &domain.DeliveryAttempt{
		ID:             m.ID,
		NotificationID: m.NotificationID,
		AttemptNumber:  m.AttemptNumber,
		StatusCode:     m.StatusCode,
		ResponseBody:   m.ResponseBody,
		Error:          m.Error,
		CreatedAt:      m.CreatedAt,
	}
}
