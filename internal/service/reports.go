package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"inventory-core/internal/repository"

	"go.uber.org/zap"
)

// Отчётные выборки кэшируются с коротким TTL: требование к ним —
// «достаточно свежий снимок», а не линеаризуемость записи-чтения.

const (
	cacheKeyLowStock   = "inventory:reports:low_stock"
	cacheKeyOutOfStock = "inventory:reports:out_of_stock"
	cacheKeyTurnover   = "inventory:reports:turnover"
	cacheKeyStockValue = "inventory:reports:stock_value"
)

func (s *inventoryService) GetLowStockProducts(ctx context.Context, threshold *int32) ([]repository.StockLevelRow, error) {
	key := cacheKeyLowStock + ":default"
	if threshold != nil {
		key = fmt.Sprintf("%s:%d", cacheKeyLowStock, *threshold)
	}

	var rows []repository.StockLevelRow
	if s.cacheGet(ctx, key, &rows) {
		return rows, nil
	}
	rows, err := s.repo.Variants.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, rows)
	return rows, nil
}

func (s *inventoryService) GetOutOfStockProducts(ctx context.Context) ([]repository.StockLevelRow, error) {
	var rows []repository.StockLevelRow
	if s.cacheGet(ctx, cacheKeyOutOfStock, &rows) {
		return rows, nil
	}
	rows, err := s.repo.Variants.ListOutOfStock(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, cacheKeyOutOfStock, rows)
	return rows, nil
}

func (s *inventoryService) GetInventoryTurnover(ctx context.Context, from, to time.Time) ([]repository.TurnoverRow, error) {
	key := fmt.Sprintf("%s:%d:%d", cacheKeyTurnover, from.Unix(), to.Unix())

	var rows []repository.TurnoverRow
	if s.cacheGet(ctx, key, &rows) {
		return rows, nil
	}
	rows, err := s.repo.History.TurnoverBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, rows)
	return rows, nil
}

func (s *inventoryService) GetStockValue(ctx context.Context) (int64, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cacheKeyStockValue); err == nil && raw != "" {
			if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return v, nil
			}
		}
	}
	total, err := s.repo.Variants.TotalStockValueCents(ctx)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKeyStockValue, strconv.FormatInt(total, 10), s.opts.CacheTTL); err != nil {
			s.log.Warn("cache set failed", zap.String("key", cacheKeyStockValue), zap.Error(err))
		}
	}
	return total, nil
}

func (s *inventoryService) cacheGet(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), dest) == nil
}

func (s *inventoryService) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.opts.CacheTTL); err != nil {
		s.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}
