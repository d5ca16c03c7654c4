package service

import (
	"context"
	"time"

	"inventory-core/internal/models"
	"inventory-core/internal/repository"

	"github.com/google/uuid"
)

type Operation string

const (
	// OpAdjust — инкремент/декремент остатка на Adjustment
	OpAdjust Operation = "adjust"
	// OpSet — прямая установка остатка в SetTo
	OpSet Operation = "set"
)

type UpdateInput struct {
	ProductID uuid.UUID
	// Variant — идентификатор варианта; разрешается через resolveVariant,
	// пустое значение допустимо для товара с единственным вариантом
	Variant    string
	Operation  Operation
	Adjustment int32 // для OpAdjust, со знаком
	SetTo      int32 // для OpSet
	Reason     models.AdjustmentReason
	ActorID    *uuid.UUID
	Metadata   map[string]string
}

type UpdateResult struct {
	PreviousQuantity int32
	NewQuantity      int32
	AvailableStock   int32
	History          *models.InventoryHistory
}

type BulkUpdateResult struct {
	ProductID uuid.UUID
	Variant   string
	Success   bool
	Result    *UpdateResult
	Error     string
}

type ReserveInput struct {
	ProductID uuid.UUID
	Variant   string
	Quantity  int32
	SessionID string
	TTL       time.Duration // 0 — TTL по умолчанию из конфигурации
	UserID    *uuid.UUID
}

type ReserveResult struct {
	Success        bool
	ReservationID  *uuid.UUID
	AvailableStock int32
	Message        string
}

type InventoryInfo struct {
	CurrentStock      int32
	ReservedStock     int32
	AvailableStock    int32
	LowStockThreshold int32
	AllowBackorder    bool
	RestockDate       *time.Time
	StockStatus       models.StockStatus
}

type VariantInput struct {
	Key        string
	Label      string
	Size       string
	Color      string
	Attributes map[string]string
	PriceCents int64
	SKU        *string
	Inventory  int32
}

type ProductInput struct {
	Name              string
	Description       string
	LowStockThreshold int32
	AllowBackorder    bool
	RestockDate       *time.Time
	Variants          []VariantInput
	ActorID           *uuid.UUID
}

type InventoryService interface {
	// catalog (минимум, достаточный для работы ядра)
	CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	GetVariants(ctx context.Context, productID uuid.UUID) ([]models.Variant, error)

	// stock ledger
	UpdateInventory(ctx context.Context, in UpdateInput) (*UpdateResult, error)
	BulkUpdateInventory(ctx context.Context, updates []UpdateInput, actorID *uuid.UUID) []BulkUpdateResult

	// reservations
	ReserveInventory(ctx context.Context, in ReserveInput) (*ReserveResult, error)
	ReleaseReservation(ctx context.Context, reservationID uuid.UUID) error
	ReleaseSessionReservations(ctx context.Context, sessionID string) (int64, error)
	ConvertReservationToPermanent(ctx context.Context, reservationID uuid.UUID, orderID string) (*UpdateResult, error)

	// availability
	GetAvailableInventory(ctx context.Context, productID uuid.UUID, variant string) (int32, error)
	CheckAvailability(ctx context.Context, productID uuid.UUID, variant string, quantity int32) (bool, error)
	GetProductInventoryInfo(ctx context.Context, productID uuid.UUID, variant string) (*InventoryInfo, error)

	// reporting
	GetLowStockProducts(ctx context.Context, threshold *int32) ([]repository.StockLevelRow, error)
	GetOutOfStockProducts(ctx context.Context) ([]repository.StockLevelRow, error)
	GetInventoryTurnover(ctx context.Context, from, to time.Time) ([]repository.TurnoverRow, error)
	GetStockValue(ctx context.Context) (int64, error)
	GetInventoryHistory(ctx context.Context, productID uuid.UUID, limit, offset int) ([]models.InventoryHistory, error)
}
