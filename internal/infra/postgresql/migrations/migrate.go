package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/Nexus6Mx/see/internal/repository"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_notification_queue",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.NotificationModel{}); err != nil {
					return err
				}
				indexes := []string{
					// Batch selection: pending records in priority-then-FIFO order.
					`CREATE INDEX IF NOT EXISTS idx_queue_dequeue ON notification_queue (priority, created_at) WHERE state = 'pending'`,
					`CREATE INDEX IF NOT EXISTS idx_queue_state_created ON notification_queue (state, created_at)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.NotificationModel{})
			},
		},
		{
			ID: "000002_create_delivery_attempts",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.DeliveryAttemptModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.DeliveryAttemptModel{})
			},
		},
		{
			ID: "000003_create_gallery_tokens",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.GalleryTokenModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.GalleryTokenModel{})
			},
		},
	})

	return m.Migrate()
}
