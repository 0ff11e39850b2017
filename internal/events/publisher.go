package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// PurchaseCompleted is emitted after every committed debit.
type PurchaseCompleted struct {
	PurchaseID string    `json:"purchase_id"`
	UserID     int64     `json:"user_id"`
	Amount     int64     `json:"amount"`
	Balance    int64     `json:"balance"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishPurchase(ctx context.Context, event PurchaseCompleted) error
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string) Publisher {
	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    "purchase_completed",
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *kafkaPublisher) PublishPurchase(ctx context.Context, event PurchaseCompleted) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{Value: data})
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishPurchase(ctx context.Context, event PurchaseCompleted) error {
	return nil
}
