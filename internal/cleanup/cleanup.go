package cleanup

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CleanupService выметает истёкшие резервации. Ядро склада от sweep'а
// не зависит: все агрегации и так фильтруют expires_at > now,
// здесь только гигиена таблицы.
type CleanupService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCleanupService(db *gorm.DB, log *zap.Logger) *CleanupService {
	return &CleanupService{
		db:  db,
		log: log,
	}
}

// CleanupExpiredReservations удаляет резервации с истёкшим сроком
func (c *CleanupService) CleanupExpiredReservations(ctx context.Context) error {
	now := time.Now()

	result := c.db.WithContext(ctx).
		Exec("DELETE FROM reservations WHERE expires_at < ?", now)
	if result.Error != nil {
		c.log.Error("failed to cleanup expired reservations", zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected > 0 {
		c.log.Info("cleaned up expired reservations", zap.Int64("count", result.RowsAffected))
	}

	return nil
}

// CleanupOrphanedReservations удаляет резервации удалённых товаров.
// При живом FK таких записей не бывает; проверка на случай ручных правок базы.
func (c *CleanupService) CleanupOrphanedReservations(ctx context.Context) error {
	result := c.db.WithContext(ctx).
		Exec("DELETE FROM reservations WHERE product_id NOT IN (SELECT id FROM products)")
	if result.Error != nil {
		c.log.Error("failed to cleanup orphaned reservations", zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected > 0 {
		c.log.Info("cleaned up orphaned reservations", zap.Int64("count", result.RowsAffected))
	}

	return nil
}

// RunFullCleanup выполняет все задачи очистки
func (c *CleanupService) RunFullCleanup(ctx context.Context) error {
	c.log.Info("starting full cleanup")

	if err := c.CleanupExpiredReservations(ctx); err != nil {
		return err
	}

	if err := c.CleanupOrphanedReservations(ctx); err != nil {
		return err
	}

	c.log.Info("full cleanup completed")
	return nil
}
