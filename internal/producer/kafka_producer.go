package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// InventoryEvent — уведомление об изменении остатка для внешних подписчиков
// (realtime UI, аналитика). Отправляется после коммита, best-effort.
type InventoryEvent struct {
	ProductID        uuid.UUID `json:"product_id"`
	VariantKey       string    `json:"variant_key"`
	PreviousQuantity int32     `json:"previous_quantity"`
	NewQuantity      int32     `json:"new_quantity"`
	AvailableStock   int32     `json:"available_stock"`
	Reason           string    `json:"reason"`
	OccurredAt       time.Time `json:"occurred_at"`
}

type InventoryProducer struct {
	writer *kafka.Writer
}

func NewInventoryProducer(brokers []string, topic string) *InventoryProducer {
	return &InventoryProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *InventoryProducer) SendInventoryChanged(ctx context.Context, key string, ev InventoryEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

func (p *InventoryProducer) Close() error {
	return p.writer.Close()
}
