package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Nexus6Mx/see/internal/domain"
	"gorm.io/gorm"
)

type ListParams struct {
	State       *domain.State
	Channel     *domain.Channel
	OrderNumber string
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}

// QueueRepository owns every state transition of queued notifications.
// No other component mutates queue rows.
type QueueRepository interface {
	Enqueue(ctx context.Context, n *domain.Notification) error
	DequeueBatch(ctx context.Context, limit int) ([]domain.Notification, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, sendErr string) error
	GetByID(ctx context.Context, id int64) (*domain.Notification, error)
	List(ctx context.Context, params ListParams) ([]domain.Notification, int64, error)
	Stats(ctx context.Context, window time.Duration) (*domain.QueueStats, error)
}

type GormQueueRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormQueueRepo(db *gorm.DB) *GormQueueRepo {
	return &GormQueueRepo{db: db, now: time.Now}
}

// Enqueue inserts a new pending record. It never deduplicates: the domain
// tolerates redundant delivery attempts better than lost ones.
func (r *GormQueueRepo) Enqueue(ctx context.Context, n *domain.Notification) error {
	if n == nil {
		return domain.ErrValidation
	}

	n.State = domain.StatePending
	n.Priority = n.Priority.Normalize()
	if n.MaxAttempts < 1 {
		n.MaxAttempts = domain.DefaultMaxAttempts
	}
	n.Attempts = 0
	n.LastError = nil
	n.LastAttemptAt = nil
	n.SentAt = nil

	if err := n.Validate(); err != nil {
		return err
	}

	model := notificationModelFromDomain(n)
	model.ID = 0
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	*n = *notificationModelToDomain(model)
	return nil
}

// DequeueBatch returns up to limit eligible records in strict
// priority-then-FIFO order. The caller processes them sequentially; no
// locking is taken because a single processor run is active at a time.
func (r *GormQueueRepo) DequeueBatch(ctx context.Context, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		return nil, nil
	}

	var models []NotificationModel
	err := r.db.WithContext(ctx).
		Where("state = ? AND attempts < max_attempts", domain.StatePending).
		Order("priority ASC, created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	notifications := make([]domain.Notification, 0, len(models))
	for i := range models {
		notifications = append(notifications, *notificationModelToDomain(&models[i]))
	}

	return notifications, nil
}

// MarkSent transitions a pending record to its terminal sent state, counting
// the successful attempt. Calling it on an already-sent record is a no-op,
// and a failed record stays failed.
func (r *GormQueueRepo) MarkSent(ctx context.Context, id int64) error {
	now := r.now().UTC()

	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND state = ?", id, domain.StatePending).
		Updates(map[string]any{
			"state":           domain.StateSent,
			"sent_at":         now,
			"last_attempt_at": now,
			"attempts":        gorm.Expr("attempts + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Either the record is missing or it already reached a terminal
		// state, sent or failed.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return nil
	}
	return nil
}

// MarkFailed increments the attempt counter, records the failure, and
// transitions to the terminal failed state once the ceiling is reached.
// The CASE keeps counting and state change in one statement, the same way
// for every failure kind.
func (r *GormQueueRepo) MarkFailed(ctx context.Context, id int64, sendErr string) error {
	now := r.now().UTC()

	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND state = ?", id, domain.StatePending).
		Updates(map[string]any{
			"attempts":        gorm.Expr("attempts + 1"),
			"last_error":      sendErr,
			"last_attempt_at": now,
			"state": gorm.Expr(
				"CASE WHEN attempts + 1 >= max_attempts THEN ? ELSE ? END",
				domain.StateFailed, domain.StatePending,
			),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrConflict
	}
	return nil
}

func (r *GormQueueRepo) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	var model NotificationModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return notificationModelToDomain(&model), nil
}

func (r *GormQueueRepo) List(ctx context.Context, params ListParams) ([]domain.Notification, int64, error) {
	query := r.db.WithContext(ctx).Model(&NotificationModel{})

	if params.State != nil {
		query = query.Where("state = ?", *params.State)
	}
	if params.Channel != nil {
		query = query.Where("channel = ?", *params.Channel)
	}
	if params.OrderNumber != "" {
		query = query.Where("order_number = ?", params.OrderNumber)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", *params.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []NotificationModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	notifications := make([]domain.Notification, 0, len(models))
	for i := range models {
		notifications = append(notifications, *notificationModelToDomain(&models[i]))
	}

	return notifications, total, nil
}

type statsRow struct {
	Total   int64 `gorm:"column:total"`
	Pending int64 `gorm:"column:pending"`
	Sent    int64 `gorm:"column:sent"`
	Failed  int64 `gorm:"column:failed"`
}

// Stats counts records per state over the trailing window.
func (r *GormQueueRepo) Stats(ctx context.Context, window time.Duration) (*domain.QueueStats, error) {
	since := r.now().UTC().Add(-window)

	var row statsRow
	err := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Select(
			"COUNT(*) AS total, "+
				"COALESCE(SUM(CASE WHEN state = ? THEN 1 ELSE 0 END), 0) AS pending, "+
				"COALESCE(SUM(CASE WHEN state = ? THEN 1 ELSE 0 END), 0) AS sent, "+
				"COALESCE(SUM(CASE WHEN state = ? THEN 1 ELSE 0 END), 0) AS failed",
			domain.StatePending, domain.StateSent, domain.StateFailed,
		).
		Where("created_at > ?", since).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	return &domain.QueueStats{
		Total:   row.Total,
		Pending: row.Pending,
		Sent:    row.Sent,
		Failed:  row.Failed,
	}, nil
}
