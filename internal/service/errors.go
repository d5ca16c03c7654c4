package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrVariantNotFound     = errors.New("variant not found")
	ErrReservationNotFound = errors.New("reservation not found")

	ErrInvalidQuantity  = errors.New("quantity must be > 0")
	ErrInvalidReason    = errors.New("unknown adjustment reason")
	ErrSKUAlreadyExists = errors.New("sku already exists")

	// ErrConcurrencyExhausted — проигранная гонка версий после всех повторов.
	// На транспортном уровне маппится в "service unavailable, retry".
	ErrConcurrencyExhausted = errors.New("inventory update conflict: retries exhausted")
)

// InsufficientInventoryError несёт фактическую доступность (on-hand минус
// активные резервации), а не сырой остаток: сообщение пользователю не должно
// обещать товар, уже удержанный чужой сессией.
type InsufficientInventoryError struct {
	ProductID  uuid.UUID
	VariantKey string
	Requested  int32
	Available  int32
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory: requested %d, available %d", e.Requested, e.Available)
}

// errVersionConflict — внутренний retryable-маркер для цикла оптимистичных
// повторов; наружу не выходит, после исчерпания превращается
// в ErrConcurrencyExhausted.
var errVersionConflict = errors.New("version conflict")
