package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"ms-coupons/internal/models"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer}
}

// PublishAnalyticsEvent streams a coupon analytics event to Kafka for
// downstream consumers (warehouse, notification fan-out). The database row
// written in the same request is the source of truth; this stream is
// best-effort.
func (p *Producer) PublishAnalyticsEvent(event models.AnalyticsEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	fmt.Printf("Publishing to Kafka [%s]: %s\n", event.EventType, string(msgBytes))

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(event.CouponID),
			Value: msgBytes,
		},
	)
}

// Close flushes and shuts down the underlying writer.
func (p *Producer) Close() error {
	return p.Writer.Close()
}
