package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/shipping-service/internal/models"
)

func newTestRedisCache(t *testing.T, ttl time.Duration) (*RedisRateCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRateCacheWithClient(client, "", ttl), mr
}

func TestRedisRateCache(t *testing.T) {
	ctx := context.Background()
	days := 3
	rates := []models.ShippingRate{{
		ID:            uuid.New(),
		State:         "SP",
		ServiceType:   "SEDEX",
		FlatRate:      decimal.RequireFromString("39.90"),
		EstimatedDays: &days,
		IsActive:      true,
	}}

	t.Run("missing key is a miss", func(t *testing.T) {
		c, _ := newTestRedisCache(t, time.Minute)
		got, gen, ok, err := c.GetActive(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
		assert.Equal(t, int64(0), gen)
	})

	t.Run("round-trips rates with ttl", func(t *testing.T) {
		c, mr := newTestRedisCache(t, time.Minute)
		require.NoError(t, c.SetActive(ctx, 0, rates))
		assert.Equal(t, time.Minute, mr.TTL(defaultRateKey))

		got, _, ok, err := c.GetActive(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, got, 1)
		assert.Equal(t, rates[0].ID, got[0].ID)
		assert.True(t, rates[0].FlatRate.Equal(got[0].FlatRate))
		require.NotNil(t, got[0].EstimatedDays)
		assert.Equal(t, 3, *got[0].EstimatedDays)
	})

	t.Run("empty list is a valid hit", func(t *testing.T) {
		c, _ := newTestRedisCache(t, time.Minute)
		require.NoError(t, c.SetActive(ctx, 0, []models.ShippingRate{}))
		got, _, ok, err := c.GetActive(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, got)
	})

	t.Run("invalidate drops the entry and bumps the version", func(t *testing.T) {
		c, mr := newTestRedisCache(t, time.Minute)
		require.NoError(t, c.SetActive(ctx, 0, rates))
		require.NoError(t, c.Invalidate(ctx))

		assert.False(t, mr.Exists(defaultRateKey))
		_, gen, ok, err := c.GetActive(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, int64(1), gen)
	})

	t.Run("fill from an older generation is dropped", func(t *testing.T) {
		c, mr := newTestRedisCache(t, time.Minute)
		_, gen, _, err := c.GetActive(ctx)
		require.NoError(t, err)
		require.NoError(t, c.Invalidate(ctx))

		require.NoError(t, c.SetActive(ctx, gen, rates))
		assert.False(t, mr.Exists(defaultRateKey))

		require.NoError(t, c.SetActive(ctx, gen+1, rates))
		assert.True(t, mr.Exists(defaultRateKey))
	})

	t.Run("non-positive ttl never stores", func(t *testing.T) {
		c, mr := newTestRedisCache(t, 0)
		require.NoError(t, c.SetActive(ctx, 0, rates))
		assert.False(t, mr.Exists(defaultRateKey))
	})

	t.Run("corrupt payload is a decode error", func(t *testing.T) {
		c, mr := newTestRedisCache(t, time.Minute)
		require.NoError(t, mr.Set(defaultRateKey, "not json"))
		_, _, ok, err := c.GetActive(ctx)
		assert.False(t, ok)
		assert.ErrorContains(t, err, "decode cached rates")
	})

	t.Run("unreachable server is an error", func(t *testing.T) {
		c, mr := newTestRedisCache(t, time.Minute)
		mr.Close()
		_, _, ok, err := c.GetActive(ctx)
		assert.False(t, ok)
		assert.Error(t, err)
	})
}
