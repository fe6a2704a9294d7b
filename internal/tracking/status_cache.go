package tracking

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/food-ordering/internal/models"
)

// Key is the redis hash holding the latest known status of an order.
func Key(orderID string) string { return "order:status:" + orderID }

// Fields is the hash content written for ev.
func Fields(ev models.OrderEvent) map[string]interface{} {
	return map[string]interface{}{
		"status":  string(ev.Status),
		"updated": ev.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

type Snapshot struct {
	OrderID   string        `json:"orderId"`
	Status    models.Status `json:"status"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// StatusCache reads the hashes maintained by the order-events consumer.
type StatusCache struct {
	client redis.Cmdable
}

func NewStatusCache(client redis.Cmdable) *StatusCache {
	return &StatusCache{client: client}
}

// Get returns false when nothing is cached for orderID.
func (c *StatusCache) Get(ctx context.Context, orderID string) (Snapshot, bool, error) {
	vals, err := c.client.HGetAll(ctx, Key(orderID)).Result()
	if err != nil {
		return Snapshot{}, false, err
	}
	status, ok := vals["status"]
	if !ok {
		return Snapshot{}, false, nil
	}
	snap := Snapshot{OrderID: orderID, Status: models.Status(status)}
	if ts, err := time.Parse(time.RFC3339Nano, vals["updated"]); err == nil {
		snap.UpdatedAt = ts
	}
	return snap, true, nil
}
