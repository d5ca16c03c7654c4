package repository

import (
	"context"
	"time"

	"inventory-core/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TurnoverRow struct {
	ProductID  uuid.UUID
	VariantKey string
	UnitsSold  int64
}

type HistoryRepo interface {
	// Append — единственная операция записи: журнал append-only
	Append(ctx context.Context, h *models.InventoryHistory) error
	ListByProduct(ctx context.Context, productID uuid.UUID, limit, offset int) ([]models.InventoryHistory, error)
	TurnoverBetween(ctx context.Context, from, to time.Time) ([]TurnoverRow, error)
}

type historyRepo struct {
	db *gorm.DB
}

func NewHistoryRepo(db *gorm.DB) HistoryRepo { return &historyRepo{db: db} }

func (r *historyRepo) Append(ctx context.Context, h *models.InventoryHistory) error {
	return r.db.WithContext(ctx).Omit("id", "created_at").Create(h).Error
}

func (r *historyRepo) ListByProduct(ctx context.Context, productID uuid.UUID, limit, offset int) ([]models.InventoryHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var list []models.InventoryHistory
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	return list, err
}

func (r *historyRepo) TurnoverBetween(ctx context.Context, from, to time.Time) ([]TurnoverRow, error) {
	var rows []TurnoverRow
	err := r.db.WithContext(ctx).
		Model(&models.InventoryHistory{}).
		Select("product_id, variant_key, COALESCE(SUM(-adjustment), 0) AS units_sold").
		Where("reason = ? AND created_at >= ? AND created_at < ?", models.ReasonSale, from, to).
		Group("product_id, variant_key").
		Order("units_sold DESC").
		Scan(&rows).Error
	return rows, err
}
