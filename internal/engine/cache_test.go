package engine

import (
	"context"
	"testing"
	"time"

	"ecohub-core/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingZoneSource struct {
	zone        *store.Zone
	sensors     []store.Sensor
	zoneCalls   int
	sensorCalls int
}

func (c *countingZoneSource) GetZone(_ context.Context, _ string) (*store.Zone, error) {
	c.zoneCalls++
	if c.zone == nil {
		return nil, store.ErrNotFound
	}
	return c.zone, nil
}

func (c *countingZoneSource) ListSensorsByZone(_ context.Context, _ string) ([]store.Sensor, error) {
	c.sensorCalls++
	return c.sensors, nil
}

func newCacheFixture(t *testing.T) (*zoneCache, *countingZoneSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &countingZoneSource{
		zone:    &store.Zone{ID: "zone-1", Name: "Herb Garden"},
		sensors: []store.Sensor{{ID: "sensor-1", ZoneID: "zone-1", Measures: []string{"temperature"}}},
	}
	return newZoneCache(rdb, source, time.Minute, zap.NewNop()), source, mr
}

func TestZoneCacheServesSecondReadFromCache(t *testing.T) {
	cache, source, _ := newCacheFixture(t)
	ctx := context.Background()

	z, err := cache.GetZone(ctx, "zone-1")
	require.NoError(t, err)
	assert.Equal(t, "Herb Garden", z.Name)

	_, err = cache.GetZone(ctx, "zone-1")
	require.NoError(t, err)
	assert.Equal(t, 1, source.zoneCalls)

	_, err = cache.ListSensorsByZone(ctx, "zone-1")
	require.NoError(t, err)
	_, err = cache.ListSensorsByZone(ctx, "zone-1")
	require.NoError(t, err)
	assert.Equal(t, 1, source.sensorCalls)
}

func TestZoneCacheInvalidateForcesRefetch(t *testing.T) {
	cache, source, _ := newCacheFixture(t)
	ctx := context.Background()

	_, err := cache.GetZone(ctx, "zone-1")
	require.NoError(t, err)

	cache.Invalidate(ctx, "zone-1")

	_, err = cache.GetZone(ctx, "zone-1")
	require.NoError(t, err)
	assert.Equal(t, 2, source.zoneCalls)
}

func TestZoneCacheFallsThroughWhenRedisDown(t *testing.T) {
	cache, source, mr := newCacheFixture(t)
	mr.Close()

	z, err := cache.GetZone(context.Background(), "zone-1")
	require.NoError(t, err)
	assert.Equal(t, "Herb Garden", z.Name)
	assert.Equal(t, 1, source.zoneCalls)
}

func TestZoneCacheMissPropagatesNotFound(t *testing.T) {
	cache, source, _ := newCacheFixture(t)
	source.zone = nil

	_, err := cache.GetZone(context.Background(), "zone-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
