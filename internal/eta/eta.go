package eta

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/example/food-ordering/internal/models"
)

// Client looks up travel time between two points.
type Client interface {
	EstimateSeconds(ctx context.Context, from, to models.Coord) (float64, error)
}

// Cache is a tiny in-memory cache for ETA lookups keyed by coords.
type Cache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	v  float64
	ts time.Time
}

// NewCache creates a cache with the provided TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{store: make(map[string]cacheEntry), ttl: ttl}
}

func keyFor(a, b models.Coord) string {
	return fmtCoord(a) + "->" + fmtCoord(b)
}

func fmtCoord(c models.Coord) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// Get returns cached value and true if present and not expired.
func (c *Cache) Get(a, b models.Coord) (float64, bool) {
	k := keyFor(a, b)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return 0, false
	}
	return e.v, true
}

func (c *Cache) Set(a, b models.Coord, v float64) {
	k := keyFor(a, b)
	c.mu.Lock()
	c.store[k] = cacheEntry{v: v, ts: time.Now()}
	c.mu.Unlock()
}

// DefaultSpeedMps is ~28.8 km/h, a city courier average.
const DefaultSpeedMps = 8.0

// TravelSeconds is the straight-line travel time at speedMps.
func TravelSeconds(from, to models.Coord, speedMps float64) float64 {
	if speedMps <= 0 {
		speedMps = DefaultSpeedMps
	}
	return Haversine(from.Lat, from.Lng, to.Lat, to.Lng) / speedMps
}

// Haversine distance in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

// Estimator predicts when an order reaches the customer: the slowest item's
// preparation time plus travel. Travel comes from the routing client when one
// is set, straight-line distance when both ends have coordinates, and the
// fallback duration otherwise.
type Estimator struct {
	router   Client
	cache    *Cache
	fallback time.Duration
	log      *slog.Logger
}

func NewEstimator(router Client, fallback time.Duration, log *slog.Logger) *Estimator {
	if log == nil {
		log = slog.Default()
	}
	return &Estimator{router: router, cache: NewCache(10 * time.Minute), fallback: fallback, log: log}
}

// PreparationMinutes is the longest preparation time among items, using
// the default for items that declare none.
func PreparationMinutes(items []*models.MenuItem) int {
	longest := 0
	for _, it := range items {
		m := it.PreparationTime
		if m <= 0 {
			m = models.DefaultPreparationMinutes
		}
		if m > longest {
			longest = m
		}
	}
	if longest == 0 {
		longest = models.DefaultPreparationMinutes
	}
	return longest
}

func (e *Estimator) Estimate(ctx context.Context, prepMinutes int, from, to *models.Coord, now time.Time) time.Time {
	return now.Add(time.Duration(prepMinutes)*time.Minute + e.travel(ctx, from, to))
}

func (e *Estimator) travel(ctx context.Context, from, to *models.Coord) time.Duration {
	if from == nil || to == nil {
		return e.fallback
	}
	if v, ok := e.cache.Get(*from, *to); ok {
		return seconds(v)
	}
	secs := TravelSeconds(*from, *to, DefaultSpeedMps)
	if e.router != nil {
		if v, err := e.router.EstimateSeconds(ctx, *from, *to); err == nil {
			secs = v
		} else {
			e.log.Warn("routing lookup failed, using straight line", "error", err)
		}
	}
	e.cache.Set(*from, *to, secs)
	return seconds(secs)
}

func seconds(v float64) time.Duration { return time.Duration(v * float64(time.Second)) }
