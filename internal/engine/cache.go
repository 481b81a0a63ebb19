package engine

import (
	"context"
	"encoding/json"
	"time"

	"ecohub-core/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type zoneSource interface {
	GetZone(ctx context.Context, zoneID string) (*store.Zone, error)
	ListSensorsByZone(ctx context.Context, zoneID string) ([]store.Sensor, error)
}

// zoneCache fronts the document store with a Redis cache for the per-message
// zone and sensor lookups. A cache miss or Redis outage falls through to the
// store; entries expire so threshold or sensor edits converge within the TTL
// (Invalidate forces it sooner).
type zoneCache struct {
	rdb    *redis.Client
	source zoneSource
	ttl    time.Duration
	logger *zap.Logger
}

func newZoneCache(rdb *redis.Client, source zoneSource, ttl time.Duration, logger *zap.Logger) *zoneCache {
	return &zoneCache{rdb: rdb, source: source, ttl: ttl, logger: logger}
}

func (c *zoneCache) GetZone(ctx context.Context, zoneID string) (*store.Zone, error) {
	key := "zone/" + zoneID
	if c.rdb != nil {
		result, err := c.rdb.Get(ctx, key).Result()
		if err == nil {
			var z store.Zone
			if json.Unmarshal([]byte(result), &z) == nil {
				return &z, nil
			}
		} else if err != redis.Nil {
			c.logger.Warn("error reading zone from cache", zap.String("zone_id", zoneID), zap.Error(err))
		}
	}

	z, err := c.source.GetZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}

	if c.rdb != nil {
		if encoded, err := json.Marshal(z); err == nil {
			c.rdb.Set(ctx, key, encoded, c.ttl)
		}
	}
	return z, nil
}

func (c *zoneCache) ListSensorsByZone(ctx context.Context, zoneID string) ([]store.Sensor, error) {
	key := "zone_sensors/" + zoneID
	if c.rdb != nil {
		result, err := c.rdb.Get(ctx, key).Result()
		if err == nil {
			var sensors []store.Sensor
			if json.Unmarshal([]byte(result), &sensors) == nil {
				return sensors, nil
			}
		} else if err != redis.Nil {
			c.logger.Warn("error reading sensors from cache", zap.String("zone_id", zoneID), zap.Error(err))
		}
	}

	sensors, err := c.source.ListSensorsByZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}

	if c.rdb != nil {
		if encoded, err := json.Marshal(sensors); err == nil {
			c.rdb.Set(ctx, key, encoded, c.ttl)
		}
	}
	return sensors, nil
}

// Invalidate drops the cached zone document and sensor list, e.g. after the
// configuration API changes thresholds or sensor registrations.
func (c *zoneCache) Invalidate(ctx context.Context, zoneID string) {
	if c.rdb == nil {
		return
	}
	c.rdb.Del(ctx, "zone/"+zoneID, "zone_sensors/"+zoneID)
}
