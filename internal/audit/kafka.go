package audit

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

// Kafka publishes audit events to a topic, keyed by customer id so one
// customer's events stay ordered within a partition.
type Kafka struct {
	w *kafka.Writer
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (k *Kafka) Append(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.CustomerID),
		Value: value,
		Time:  e.OccurredAt,
	})
}

func (k *Kafka) Close() error { return k.w.Close() }
