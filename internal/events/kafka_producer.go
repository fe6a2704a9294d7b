package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/food-ordering/internal/models"
)

type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.Hash{}})
	return &KafkaProducer{writer: w}
}

// Publish writes ev keyed by order id. The hash balancer keeps one order's
// events on one partition, in publish order.
func (k *KafkaProducer) Publish(ctx context.Context, ev models.OrderEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := Encode(ev)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.OrderID), Value: b})
}

func (k *KafkaProducer) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}

func Encode(ev models.OrderEvent) ([]byte, error) { return json.Marshal(ev) }

func Decode(b []byte) (models.OrderEvent, error) {
	var ev models.OrderEvent
	err := json.Unmarshal(b, &ev)
	return ev, err
}

// Discard drops every event; used when no brokers are configured.
type Discard struct{}

func (Discard) Publish(context.Context, models.OrderEvent) error { return nil }
func (Discard) Close() error                                     { return nil }
