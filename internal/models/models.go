package models

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"type:text;not null"`
	Description string    `gorm:"type:text"`
	IsActive    bool      `gorm:"not null;default:true"`

	LowStockThreshold int32      `gorm:"not null;default:5"`
	AllowBackorder    bool       `gorm:"not null;default:false"`
	RestockDate       *time.Time `gorm:""`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Product) TableName() string {
	return "products"
}

// DefaultVariantKey — ключ неявного варианта для товаров без вариантов.
const DefaultVariantKey = "default"

type Variant struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_variants_product_key"`
	// Key уникален в рамках товара (variantId во внешнем контракте)
	Key string `gorm:"type:text;not null;uniqueIndex:ux_variants_product_key"`

	Label      string            `gorm:"type:text"`
	Size       string            `gorm:"type:text"`
	Color      string            `gorm:"type:text"`
	Attributes map[string]string `gorm:"type:jsonb;serializer:json"`

	PriceCents int64   `gorm:"not null;default:0"`
	SKU        *string `gorm:"type:text"` // глобально уникален, если задан (partial index)

	Inventory int32 `gorm:"not null;default:0"`
	// Version — счётчик оптимистичной блокировки; количество обновляется
	// только при совпадении версии (см. VariantRepo.UpdateQuantityVersioned)
	Version int64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Variant) TableName() string {
	return "variants"
}

// Reservation — временная блокировка остатка под сессию оформления заказа.
// Для пары (session_id, product_id, variant_key) существует максимум одна
// запись; повторный reserve обновляет количество и срок, а не дублирует.
type Reservation struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID  uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:ux_reservations_session_product_variant"`
	VariantKey string     `gorm:"type:text;not null;uniqueIndex:ux_reservations_session_product_variant"`
	SessionID  string     `gorm:"type:text;not null;index;uniqueIndex:ux_reservations_session_product_variant"`
	Quantity   int32      `gorm:"not null"`
	UserID     *uuid.UUID `gorm:"type:uuid"`
	ExpiresAt  time.Time  `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (Reservation) TableName() string {
	return "reservations"
}

type AdjustmentReason string

const (
	ReasonRestock    AdjustmentReason = "restock"
	ReasonSale       AdjustmentReason = "sale"
	ReasonAdjustment AdjustmentReason = "adjustment"
	ReasonReturn     AdjustmentReason = "return"
	ReasonDamage     AdjustmentReason = "damage"
)

// InventoryHistory — append-only журнал изменений остатков.
// Записи никогда не изменяются и не удаляются.
type InventoryHistory struct {
	ID               uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID        uuid.UUID         `gorm:"type:uuid;not null;index"`
	VariantKey       string            `gorm:"type:text;not null"`
	PreviousQuantity int32             `gorm:"not null"`
	NewQuantity      int32             `gorm:"not null"`
	Adjustment       int32             `gorm:"not null"`
	Reason           AdjustmentReason  `gorm:"type:text;not null;index"`
	UserID           *uuid.UUID        `gorm:"type:uuid"`
	Metadata         map[string]string `gorm:"type:jsonb;serializer:json"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
}

func (InventoryHistory) TableName() string {
	return "inventory_history"
}

type StockStatus string

const (
	StockStatusInStock     StockStatus = "IN_STOCK"
	StockStatusLowStock    StockStatus = "LOW_STOCK"
	StockStatusOutOfStock  StockStatus = "OUT_OF_STOCK"
	StockStatusBackordered StockStatus = "BACKORDERED"
)
