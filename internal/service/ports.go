package service

import (
	"context"
	"time"

	"inventory-core/internal/producer"
)

// CacheClient — кэш отчётных выборок. Не критичен для корректности:
// сервис полностью работоспособен с nil-кэшем.
type CacheClient interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	DelByPattern(ctx context.Context, pattern string) error
}

// EventProducer — fire-and-forget уведомления об изменении остатков.
// Гарантируется только попытка отправки после коммита, не доставка.
type EventProducer interface {
	SendInventoryChanged(ctx context.Context, key string, ev producer.InventoryEvent) error
}
