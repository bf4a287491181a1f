// Package statuscache computes per-vessel status summaries and caches
// them in Redis. A Cache without a Redis client computes every summary on
// demand.
package statuscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bosunhq/bosun/internal/inventory"
	"github.com/bosunhq/bosun/internal/logging"
	"github.com/bosunhq/bosun/internal/maintenance"
	"github.com/bosunhq/bosun/internal/trip"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const keyPrefix = "bosun:status:"

// Summary is the dashboard view of one vessel.
type Summary struct {
	VesselID        string          `json:"vessel_id"`
	TotalHours      decimal.Decimal `json:"total_hours"`
	Overdue         int             `json:"overdue"`
	DueSoon         int             `json:"due_soon"`
	MissingCount    decimal.Decimal `json:"missing_count"`
	CriticalMissing int             `json:"critical_missing"`
	ComputedAt      time.Time       `json:"computed_at"`
}

// Compute builds a vessel's summary from the database.
func Compute(db *gorm.DB, vesselID string, now time.Time) (*Summary, error) {
	total, err := trip.TotalHours(db, vesselID)
	if err != nil {
		return nil, err
	}
	tasks, err := maintenance.EvaluateVessel(db, vesselID, now)
	if err != nil {
		return nil, err
	}
	items, err := inventory.Evaluate(db, vesselID)
	if err != nil {
		return nil, err
	}
	counts := maintenance.Summarize(tasks)
	gaps := inventory.Gaps(items)
	return &Summary{
		VesselID:        vesselID,
		TotalHours:      total,
		Overdue:         counts.Overdue,
		DueSoon:         counts.DueSoon,
		MissingCount:    inventory.MissingCount(gaps),
		CriticalMissing: inventory.CriticalMissing(gaps),
		ComputedAt:      now.UTC(),
	}, nil
}

// Cache serves summaries from Redis, computing and storing them on a miss.
// Redis failures are logged and fall back to computing.
type Cache struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	logger logrus.FieldLogger
}

// New returns a Cache. rdb may be nil to disable caching.
func New(rdb redis.Cmdable, ttl time.Duration, logger logrus.FieldLogger) *Cache {
	if logger == nil {
		logger = logging.Discard()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

// Enabled reports whether summaries are cached.
func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

func key(vesselID string) string { return keyPrefix + vesselID }

// Get returns the vessel's summary.
func (c *Cache) Get(ctx context.Context, db *gorm.DB, vesselID string) (*Summary, error) {
	if c.Enabled() {
		raw, err := c.rdb.Get(ctx, key(vesselID)).Bytes()
		switch {
		case err == nil:
			var s Summary
			if err := json.Unmarshal(raw, &s); err == nil {
				return &s, nil
			}
		case !errors.Is(err, redis.Nil):
			logging.LogError(c.logger, "statuscache", "Get", "redis get", vesselID, err)
		}
	}

	s, err := Compute(db, vesselID, time.Now())
	if err != nil {
		return nil, err
	}
	if c.Enabled() {
		if raw, err := json.Marshal(s); err == nil {
			if err := c.rdb.Set(ctx, key(vesselID), raw, c.ttl).Err(); err != nil {
				logging.LogError(c.logger, "statuscache", "Get", "redis set", vesselID, err)
			}
		}
	}
	return s, nil
}

// Invalidate drops the cached summaries of the given vessels.
func (c *Cache) Invalidate(ctx context.Context, vesselIDs ...string) {
	if !c.Enabled() || len(vesselIDs) == 0 {
		return
	}
	keys := make([]string, len(vesselIDs))
	for i, id := range vesselIDs {
		keys[i] = key(id)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		logging.LogError(c.logger, "statuscache", "Invalidate", "redis del", vesselIDs, err)
	}
}

// NewClient connects to Redis and pings it. It returns nil when addr is
// empty.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("statuscache: ping redis %s: %w", addr, err)
	}
	return client, nil
}
