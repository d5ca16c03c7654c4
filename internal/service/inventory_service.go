package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inventory-core/internal/models"
	"inventory-core/internal/producer"
	"inventory-core/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Options struct {
	MaxRetries     int
	RetryBackoff   time.Duration
	ReservationTTL time.Duration
	CacheTTL       time.Duration
	MatchMode      MatchMode
}

type inventoryService struct {
	repo   *repository.Repository
	cache  CacheClient
	events EventProducer
	log    *zap.Logger
	opts   Options
	now    func() time.Time
}

func NewInventoryService(repo *repository.Repository, cache CacheClient, events EventProducer, log *zap.Logger, opts Options) *inventoryService {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 50 * time.Millisecond
	}
	if opts.ReservationTTL <= 0 {
		opts.ReservationTTL = 30 * time.Minute
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}
	if opts.MatchMode == "" {
		opts.MatchMode = MatchByKey
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &inventoryService{
		repo:   repo,
		cache:  cache,
		events: events,
		log:    log,
		opts:   opts,
		now:    time.Now,
	}
}

func validReason(r models.AdjustmentReason) bool {
	switch r {
	case models.ReasonRestock, models.ReasonSale, models.ReasonAdjustment, models.ReasonReturn, models.ReasonDamage:
		return true
	}
	return false
}

// --- catalog ---

func (s *inventoryService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("product name is required")
	}
	if in.LowStockThreshold <= 0 {
		in.LowStockThreshold = 5
	}
	for _, v := range in.Variants {
		if v.Inventory < 0 {
			return nil, ErrInvalidQuantity
		}
	}

	p := &models.Product{
		Name:              strings.TrimSpace(in.Name),
		Description:       strings.TrimSpace(in.Description),
		IsActive:          true,
		LowStockThreshold: in.LowStockThreshold,
		AllowBackorder:    in.AllowBackorder,
		RestockDate:       in.RestockDate,
	}

	err := s.repo.WithTx(func(tx *repository.Repository) error {
		// Pre-check даёт дружелюбную ошибку; истина под гонками —
		// уникальный индекс ux_variants_sku
		for _, v := range in.Variants {
			if v.SKU == nil || *v.SKU == "" {
				continue
			}
			existing, err := tx.Variants.GetBySKU(ctx, *v.SKU)
			if err != nil {
				return err
			}
			if existing != nil {
				return ErrSKUAlreadyExists
			}
		}

		if err := tx.Products.Create(ctx, p); err != nil {
			return err
		}

		if len(in.Variants) == 0 {
			// Товар без вариантов хранится с одним неявным вариантом
			return tx.Variants.EnsureDefaultVariant(ctx, p.ID)
		}

		for _, vin := range in.Variants {
			key := strings.TrimSpace(vin.Key)
			if key == "" {
				if len(in.Variants) > 1 {
					return fmt.Errorf("variant key is required when product has multiple variants")
				}
				key = models.DefaultVariantKey
			}
			v := &models.Variant{
				ProductID:  p.ID,
				Key:        key,
				Label:      vin.Label,
				Size:       vin.Size,
				Color:      vin.Color,
				Attributes: vin.Attributes,
				PriceCents: vin.PriceCents,
				SKU:        vin.SKU,
				Inventory:  vin.Inventory,
			}
			if err := tx.Variants.Create(ctx, v); err != nil {
				return err
			}
			if vin.Inventory > 0 {
				// Начальный остаток — тоже движение в журнале
				if err := tx.History.Append(ctx, &models.InventoryHistory{
					ProductID:        p.ID,
					VariantKey:       key,
					PreviousQuantity: 0,
					NewQuantity:      vin.Inventory,
					Adjustment:       vin.Inventory,
					Reason:           models.ReasonRestock,
					UserID:           in.ActorID,
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *inventoryService) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	p, err := s.repo.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (s *inventoryService) GetVariants(ctx context.Context, productID uuid.UUID) ([]models.Variant, error) {
	return s.repo.Variants.ListByProduct(ctx, productID)
}

// --- stock ledger ---

func (s *inventoryService) UpdateInventory(ctx context.Context, in UpdateInput) (*UpdateResult, error) {
	if !validReason(in.Reason) {
		return nil, ErrInvalidReason
	}
	// Отрицательная цель set отклоняется до любой записи
	if in.Operation == OpSet && in.SetTo < 0 {
		return nil, ErrInvalidQuantity
	}
	if in.Operation == "" {
		in.Operation = OpAdjust
	}

	var res *UpdateResult
	err := withOptimisticRetry(ctx, s.opts.MaxRetries, s.opts.RetryBackoff, func() error {
		return s.repo.WithTx(func(tx *repository.Repository) error {
			r, err := s.applyStockChange(ctx, tx, in, "")
			if err != nil {
				return err
			}
			res = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterStockChange(ctx, in.ProductID, res)
	return res, nil
}

// applyStockChange — общий read-compute-write цикл для единичного изменения
// остатка. Выполняется внутри транзакции вызывающего; проигранная гонка
// версий возвращается как errVersionConflict и повторяется снаружи
// с чистого чтения. excludeSession исключает резервации указанной сессии
// из guard-проверки (конвертация собственного резерва в продажу не должна
// блокироваться самим этим резервом).
func (s *inventoryService) applyStockChange(ctx context.Context, tx *repository.Repository, in UpdateInput, excludeSession string) (*UpdateResult, error) {
	p, err := tx.Products.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}

	variants, err := tx.Variants.ListByProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	v := resolveVariant(variants, in.Variant, s.opts.MatchMode)
	if v == nil {
		return nil, ErrVariantNotFound
	}

	now := s.now()
	reserved, err := tx.Reservations.SumActiveExcludingSession(ctx, p.ID, v.Key, excludeSession, now)
	if err != nil {
		return nil, err
	}

	prev := v.Inventory
	var newQty int32
	switch in.Operation {
	case OpSet:
		newQty = in.SetTo
	default:
		newQty = prev + in.Adjustment
	}

	// Guard: декремент не может превышать доступное (on-hand минус активные
	// резервации) — продажа не имеет права увести чужой резерв
	if in.Operation != OpSet && newQty < prev {
		available := prev - reserved
		if prev-newQty > available {
			return nil, &InsufficientInventoryError{
				ProductID:  p.ID,
				VariantKey: v.Key,
				Requested:  prev - newQty,
				Available:  clampNonNegative(available),
			}
		}
	}
	if newQty < 0 {
		return nil, &InsufficientInventoryError{
			ProductID:  p.ID,
			VariantKey: v.Key,
			Requested:  prev - newQty,
			Available:  clampNonNegative(prev - reserved),
		}
	}

	ok, err := tx.Variants.UpdateQuantityVersioned(ctx, v.ID, newQty, v.Version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errVersionConflict
	}

	hist := &models.InventoryHistory{
		ProductID:        p.ID,
		VariantKey:       v.Key,
		PreviousQuantity: prev,
		NewQuantity:      newQty,
		Adjustment:       newQty - prev,
		Reason:           in.Reason,
		UserID:           in.ActorID,
		Metadata:         in.Metadata,
	}
	if err := tx.History.Append(ctx, hist); err != nil {
		return nil, err
	}

	return &UpdateResult{
		PreviousQuantity: prev,
		NewQuantity:      newQty,
		AvailableStock:   clampNonNegative(newQty - reserved),
		History:          hist,
	}, nil
}

// afterStockChange выполняется строго после коммита: сброс кэшей чтения
// и best-effort уведомление подписчиков.
func (s *inventoryService) afterStockChange(ctx context.Context, productID uuid.UUID, res *UpdateResult) {
	if s.cache != nil {
		if err := s.cache.DelByPattern(ctx, fmt.Sprintf("inventory:product:%s:*", productID)); err != nil {
			s.log.Warn("cache invalidation failed", zap.String("product_id", productID.String()), zap.Error(err))
		}
		if err := s.cache.DelByPattern(ctx, "inventory:reports:*"); err != nil {
			s.log.Warn("reports cache invalidation failed", zap.Error(err))
		}
	}
	if s.events != nil && res != nil && res.History != nil {
		ev := producer.InventoryEvent{
			ProductID:        productID,
			VariantKey:       res.History.VariantKey,
			PreviousQuantity: res.PreviousQuantity,
			NewQuantity:      res.NewQuantity,
			AvailableStock:   res.AvailableStock,
			Reason:           string(res.History.Reason),
			OccurredAt:       s.now(),
		}
		if err := s.events.SendInventoryChanged(ctx, productID.String(), ev); err != nil {
			s.log.Warn("inventory event publish failed", zap.String("product_id", productID.String()), zap.Error(err))
		}
	}
}

// BulkUpdateInventory применяет каждую запись независимо: отказ одной
// (например, нехватка остатка) не откатывает остальные.
func (s *inventoryService) BulkUpdateInventory(ctx context.Context, updates []UpdateInput, actorID *uuid.UUID) []BulkUpdateResult {
	results := make([]BulkUpdateResult, 0, len(updates))
	for _, u := range updates {
		if u.ActorID == nil {
			u.ActorID = actorID
		}
		r := BulkUpdateResult{ProductID: u.ProductID, Variant: u.Variant}
		res, err := s.UpdateInventory(ctx, u)
		if err != nil {
			r.Error = err.Error()
		} else {
			r.Success = true
			r.Result = res
		}
		results = append(results, r)
	}
	return results
}

// --- reservations ---

func (s *inventoryService) ReserveInventory(ctx context.Context, in ReserveInput) (*ReserveResult, error) {
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if in.SessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	ttl := in.TTL
	if ttl <= 0 {
		ttl = s.opts.ReservationTTL
	}

	var out *ReserveResult
	err := s.repo.WithTx(func(tx *repository.Repository) error {
		p, err := tx.Products.GetByID(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrProductNotFound
		}
		variants, err := tx.Variants.ListByProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		v := resolveVariant(variants, in.Variant, s.opts.MatchMode)
		if v == nil {
			return ErrVariantNotFound
		}

		// Вставка резервации не защищена версией остатка, поэтому
		// конкурентные reserve сериализуются блокировкой строки варианта:
		// иначе две сессии проходят проверку доступности одновременно
		v, err = tx.Variants.GetByIDForUpdate(ctx, v.ID)
		if err != nil {
			return err
		}
		if v == nil {
			return ErrVariantNotFound
		}

		now := s.now()
		// Сумма чужих активных резерваций: собственная запись сессии
		// будет перезаписана, поэтому исключается из расчёта
		others, err := tx.Reservations.SumActiveExcludingSession(ctx, p.ID, v.Key, in.SessionID, now)
		if err != nil {
			return err
		}
		available := v.Inventory - others
		if in.Quantity > available {
			// Проверка availability — финальный арбитр внутри транзакции;
			// предварительный CheckAvailability вызывающего не гарантия
			out = &ReserveResult{
				Success:        false,
				AvailableStock: clampNonNegative(available),
				Message:        fmt.Sprintf("Only %d items available", clampNonNegative(available)),
			}
			return nil
		}

		res := &models.Reservation{
			ProductID:  p.ID,
			VariantKey: v.Key,
			SessionID:  in.SessionID,
			Quantity:   in.Quantity,
			UserID:     in.UserID,
			ExpiresAt:  now.Add(ttl),
		}
		if err := tx.Reservations.UpsertForSession(ctx, res); err != nil {
			return err
		}
		got, err := tx.Reservations.GetForSession(ctx, in.SessionID, p.ID, v.Key)
		if err != nil {
			return err
		}
		if got == nil {
			return fmt.Errorf("reservation upsert did not persist")
		}
		out = &ReserveResult{
			Success:        true,
			ReservationID:  &got.ID,
			AvailableStock: clampNonNegative(available - in.Quantity),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReleaseReservation идемпотентен: удаление отсутствующей записи — no-op.
func (s *inventoryService) ReleaseReservation(ctx context.Context, reservationID uuid.UUID) error {
	_, err := s.repo.Reservations.DeleteByID(ctx, reservationID)
	return err
}

func (s *inventoryService) ReleaseSessionReservations(ctx context.Context, sessionID string) (int64, error) {
	return s.repo.Reservations.DeleteBySession(ctx, sessionID)
}

// ConvertReservationToPermanent списывает остаток и удаляет резервацию
// в одной транзакции: либо применяется и то и другое, либо ничего.
func (s *inventoryService) ConvertReservationToPermanent(ctx context.Context, reservationID uuid.UUID, orderID string) (*UpdateResult, error) {
	var (
		res       *UpdateResult
		productID uuid.UUID
	)
	err := withOptimisticRetry(ctx, s.opts.MaxRetries, s.opts.RetryBackoff, func() error {
		return s.repo.WithTx(func(tx *repository.Repository) error {
			resv, err := tx.Reservations.GetByID(ctx, reservationID)
			if err != nil {
				return err
			}
			if resv == nil {
				return ErrReservationNotFound
			}
			productID = resv.ProductID

			// Сначала удаляем резерв, затем списываем — в одной транзакции,
			// чтобы декремент не блокировался собственным резервом
			if _, err := tx.Reservations.DeleteByID(ctx, resv.ID); err != nil {
				return err
			}
			r, err := s.applyStockChange(ctx, tx, UpdateInput{
				ProductID:  resv.ProductID,
				Variant:    resv.VariantKey,
				Operation:  OpAdjust,
				Adjustment: -resv.Quantity,
				Reason:     models.ReasonSale,
				ActorID:    resv.UserID,
				Metadata:   map[string]string{"order_id": orderID},
			}, resv.SessionID)
			if err != nil {
				return err
			}
			res = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterStockChange(ctx, productID, res)
	return res, nil
}

// --- availability ---

// GetAvailableInventory возвращает доступное количество: on-hand минус
// активные резервации, никогда не меньше нуля. Отрицательная разница
// возможна транзиентно под гонками и разрешается guard'ом следующей записи,
// а не этим чтением.
func (s *inventoryService) GetAvailableInventory(ctx context.Context, productID uuid.UUID, variant string) (int32, error) {
	onHand, variantKey, err := s.onHandFor(ctx, productID, variant)
	if err != nil {
		return 0, err
	}
	reserved, err := s.repo.Reservations.SumActive(ctx, productID, variantKey, s.now())
	if err != nil {
		return 0, err
	}
	return clampNonNegative(onHand - reserved), nil
}

// onHandFor возвращает on-hand и каноничный ключ варианта.
// Пустой variant означает товар целиком: сумма по всем вариантам
// и все резервации товара.
func (s *inventoryService) onHandFor(ctx context.Context, productID uuid.UUID, variant string) (int32, string, error) {
	p, err := s.repo.Products.GetByID(ctx, productID)
	if err != nil {
		return 0, "", err
	}
	if p == nil {
		return 0, "", ErrProductNotFound
	}
	if variant == "" {
		total, err := s.repo.Variants.SumInventoryByProduct(ctx, productID)
		return total, "", err
	}
	variants, err := s.repo.Variants.ListByProduct(ctx, productID)
	if err != nil {
		return 0, "", err
	}
	v := resolveVariant(variants, variant, s.opts.MatchMode)
	if v == nil {
		return 0, "", ErrVariantNotFound
	}
	return v.Inventory, v.Key, nil
}

func (s *inventoryService) CheckAvailability(ctx context.Context, productID uuid.UUID, variant string, quantity int32) (bool, error) {
	if quantity <= 0 {
		return false, ErrInvalidQuantity
	}
	available, err := s.GetAvailableInventory(ctx, productID, variant)
	if err != nil {
		return false, err
	}
	return available >= quantity, nil
}

func (s *inventoryService) GetProductInventoryInfo(ctx context.Context, productID uuid.UUID, variant string) (*InventoryInfo, error) {
	p, err := s.repo.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}

	onHand, variantKey, err := s.onHandFor(ctx, productID, variant)
	if err != nil {
		return nil, err
	}
	reserved, err := s.repo.Reservations.SumActive(ctx, productID, variantKey, s.now())
	if err != nil {
		return nil, err
	}
	available := clampNonNegative(onHand - reserved)

	return &InventoryInfo{
		CurrentStock:      onHand,
		ReservedStock:     reserved,
		AvailableStock:    available,
		LowStockThreshold: p.LowStockThreshold,
		AllowBackorder:    p.AllowBackorder,
		RestockDate:       p.RestockDate,
		StockStatus:       stockStatus(available, p.LowStockThreshold, p.AllowBackorder),
	}, nil
}

func (s *inventoryService) GetInventoryHistory(ctx context.Context, productID uuid.UUID, limit, offset int) ([]models.InventoryHistory, error) {
	return s.repo.History.ListByProduct(ctx, productID, limit, offset)
}
