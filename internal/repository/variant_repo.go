package repository

import (
	"context"
	"errors"
	"strings"

	"inventory-core/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Строки отчётов по остаткам (см. §отчёты сервиса)
type StockLevelRow struct {
	ProductID   uuid.UUID
	ProductName string
	VariantKey  string
	Inventory   int32
	Threshold   int32
}

type VariantRepo interface {
	Create(ctx context.Context, v *models.Variant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Variant, error)

	// GetByIDForUpdate читает вариант под блокировкой строки
	// (SELECT ... FOR UPDATE). Транзакция резервирования сериализуется
	// по варианту: сумма активных резерваций и вставка новой должны быть
	// атомарны относительно других сессий.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Variant, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Variant, error)
	GetBySKU(ctx context.Context, sku string) (*models.Variant, error)
	SumInventoryByProduct(ctx context.Context, productID uuid.UUID) (int32, error)

	// UpdateQuantityVersioned — запись остатка, обусловленная текущей версией:
	// if version == expected then inventory = qty; version += 1.
	// false без ошибки означает проигранную гонку версий.
	UpdateQuantityVersioned(ctx context.Context, id uuid.UUID, qty int32, expectedVersion int64) (bool, error)

	// EnsureDefaultVariant создаёт неявный вариант "default",
	// чтобы товар никогда не существовал без вариантов.
	EnsureDefaultVariant(ctx context.Context, productID uuid.UUID) error

	ListLowStock(ctx context.Context, threshold *int32) ([]StockLevelRow, error)
	ListOutOfStock(ctx context.Context) ([]StockLevelRow, error)
	TotalStockValueCents(ctx context.Context) (int64, error)
}

type variantRepo struct {
	db *gorm.DB
}

func NewVariantRepo(db *gorm.DB) VariantRepo { return &variantRepo{db: db} }

func (r *variantRepo) Create(ctx context.Context, v *models.Variant) error {
	return r.db.WithContext(ctx).Select("*").Omit("id", "created_at", "updated_at").Create(v).Error
}

func (r *variantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Variant, error) {
	var v models.Variant
	err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *variantRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Variant, error) {
	var v models.Variant
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&v, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *variantRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Variant, error) {
	var list []models.Variant
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *variantRepo) GetBySKU(ctx context.Context, sku string) (*models.Variant, error) {
	var v models.Variant
	err := r.db.WithContext(ctx).
		Where("lower(sku) = lower(?)", strings.TrimSpace(sku)).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *variantRepo) SumInventoryByProduct(ctx context.Context, productID uuid.UUID) (int32, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Variant{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(inventory), 0)").
		Scan(&total).Error
	return int32(total), err
}

func (r *variantRepo) UpdateQuantityVersioned(ctx context.Context, id uuid.UUID, qty int32, expectedVersion int64) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE variants
SET inventory = @q,
    version   = version + 1,
    updated_at = now()
WHERE id = @id
  AND version = @v
`, map[string]any{
		"id": id,
		"q":  qty,
		"v":  expectedVersion,
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *variantRepo) EnsureDefaultVariant(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit("id", "created_at", "updated_at").
		Create(&models.Variant{ProductID: productID, Key: models.DefaultVariantKey}).Error
}

func (r *variantRepo) ListLowStock(ctx context.Context, threshold *int32) ([]StockLevelRow, error) {
	var rows []StockLevelRow
	q := r.db.WithContext(ctx).
		Table("variants v").
		Joins("JOIN products p ON p.id = v.product_id").
		Select("v.product_id, p.name AS product_name, v.key AS variant_key, v.inventory, p.low_stock_threshold AS threshold")
	if threshold != nil {
		q = q.Where("v.inventory > 0 AND v.inventory <= ?", *threshold)
	} else {
		q = q.Where("v.inventory > 0 AND v.inventory <= p.low_stock_threshold")
	}
	err := q.Order("v.inventory ASC").Scan(&rows).Error
	return rows, err
}

func (r *variantRepo) ListOutOfStock(ctx context.Context) ([]StockLevelRow, error) {
	var rows []StockLevelRow
	err := r.db.WithContext(ctx).
		Table("variants v").
		Joins("JOIN products p ON p.id = v.product_id").
		Select("v.product_id, p.name AS product_name, v.key AS variant_key, v.inventory, p.low_stock_threshold AS threshold").
		Where("v.inventory = 0").
		Scan(&rows).Error
	return rows, err
}

func (r *variantRepo) TotalStockValueCents(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Variant{}).
		Select("COALESCE(SUM(price_cents * inventory), 0)").
		Scan(&total).Error
	return total, err
}
