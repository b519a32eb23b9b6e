package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Nexus6Mx/see/internal/domain"
)

// GalleryToken is an issued (hashed) gallery access token for one order.
type GalleryToken struct {
	ID          int64
	TokenHash   string
	OrderNumber string
	ExpiresAt   time.Time
	CreatedBy   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GalleryTokenRepository stores gallery token hashes; the plain token is
// only ever handed to the notification pipeline.
type GalleryTokenRepository interface {
	Create(ctx context.Context, t *GalleryToken) error
	RotateHash(ctx context.Context, id int64, tokenHash string) error
	GetActiveByOrder(ctx context.Context, orderNumber string) (*GalleryToken, error)
}

type GormGalleryTokenRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormGalleryTokenRepo(db *gorm.DB) *GormGalleryTokenRepo {
	return &GormGalleryTokenRepo{db: db, now: time.Now}
}

func (r *GormGalleryTokenRepo) Create(ctx context.Context, t *GalleryToken) error {
	model := &GalleryTokenModel{
		TokenHash:   t.TokenHash,
		OrderNumber: t.OrderNumber,
		ExpiresAt:   t.ExpiresAt,
		CreatedBy:   t.CreatedBy,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	t.ID = model.ID
	t.CreatedAt = model.CreatedAt
	t.UpdatedAt = model.UpdatedAt
	return nil
}

// RotateHash replaces the stored hash of an existing token record. Used by
// manual resends: the plain token is not recoverable from the hash, so a
// fresh token is issued against the same record.
func (r *GormGalleryTokenRepo) RotateHash(ctx context.Context, id int64, tokenHash string) error {
	result := r.db.WithContext(ctx).
		Model(&GalleryTokenModel{}).
		Where("id = ?", id).
		Update("token_hash", tokenHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormGalleryTokenRepo) GetActiveByOrder(ctx context.Context, orderNumber string) (*GalleryToken, error) {
	var model GalleryTokenModel
	err := r.db.WithContext(ctx).
		Where("order_number = ? AND expires_at > ?", orderNumber, r.now().UTC()).
		Order("created_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &GalleryToken{
		ID:          model.ID,
		TokenHash:   model.TokenHash,
		OrderNumber: model.OrderNumber,
		ExpiresAt:   model.ExpiresAt,
		CreatedBy:   model.CreatedBy,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}, nil
}
