package events

import (
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/food-ordering/internal/models"
)

func TestEncodeDecodeEvent(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ev := models.OrderEvent{Type: models.EventOrderStatusChanged, OrderID: "o1", RestaurantID: "r1", UserID: "u1", Status: models.StatusReady, Timestamp: ts}
	b, err := Encode(ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(b), `"orderId":"o1"`) || !strings.Contains(string(b), `"status":"ready"`) {
		t.Fatalf("unexpected wire format %s", b)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.OrderID != "o1" || got.Status != models.StatusReady || !got.Timestamp.Equal(ts) {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestProducerPartitionsByOrderID(t *testing.T) {
	p := NewKafkaProducer([]string{"localhost:9092"}, "order-events")
	defer p.Close()

	if _, ok := p.writer.Balancer.(*kafka.Hash); !ok {
		t.Fatalf("balancer = %T, want *kafka.Hash", p.writer.Balancer)
	}
	partitions := []int{0, 1, 2, 3}
	for _, id := range []string{"o1", "o2", "order-42"} {
		msg := kafka.Message{Key: []byte(id)}
		want := p.writer.Balancer.Balance(msg, partitions...)
		for i := 0; i < 8; i++ {
			if got := p.writer.Balancer.Balance(msg, partitions...); got != want {
				t.Fatalf("order %s moved from partition %d to %d", id, want, got)
			}
		}
	}
}
