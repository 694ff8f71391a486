package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/shipping-service/internal/models"
)

func TestMemoryRateCache(t *testing.T) {
	ctx := context.Background()
	rates := []models.ShippingRate{{State: "SP", ServiceType: "PAC"}}

	t.Run("miss before set", func(t *testing.T) {
		c := NewMemoryRateCache(time.Minute)
		got, gen, ok, err := c.GetActive(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
		assert.Equal(t, int64(0), gen)
	})

	t.Run("hit after set returns a copy", func(t *testing.T) {
		c := NewMemoryRateCache(time.Minute)
		require.NoError(t, c.SetActive(ctx, 0, rates))

		got, _, ok, err := c.GetActive(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, rates, got)

		got[0].State = "RJ"
		again, _, _, _ := c.GetActive(ctx)
		assert.Equal(t, "SP", again[0].State)
	})

	t.Run("empty list is a valid hit", func(t *testing.T) {
		c := NewMemoryRateCache(time.Minute)
		require.NoError(t, c.SetActive(ctx, 0, nil))
		got, _, ok, _ := c.GetActive(ctx)
		assert.True(t, ok)
		assert.Empty(t, got)
	})

	t.Run("expires after ttl", func(t *testing.T) {
		c := NewMemoryRateCache(time.Minute)
		now := time.Now()
		c.now = func() time.Time { return now }
		require.NoError(t, c.SetActive(ctx, 0, rates))

		c.now = func() time.Time { return now.Add(2 * time.Minute) }
		_, _, ok, _ := c.GetActive(ctx)
		assert.False(t, ok)
	})

	t.Run("invalidate drops entries and advances the generation", func(t *testing.T) {
		c := NewMemoryRateCache(time.Minute)
		require.NoError(t, c.SetActive(ctx, 0, rates))
		require.NoError(t, c.Invalidate(ctx))
		_, gen, ok, _ := c.GetActive(ctx)
		assert.False(t, ok)
		assert.Equal(t, int64(1), gen)
	})

	t.Run("fill from an older generation is dropped", func(t *testing.T) {
		c := NewMemoryRateCache(time.Minute)
		_, gen, _, _ := c.GetActive(ctx)
		require.NoError(t, c.Invalidate(ctx))

		require.NoError(t, c.SetActive(ctx, gen, rates))
		_, current, ok, _ := c.GetActive(ctx)
		assert.False(t, ok)

		require.NoError(t, c.SetActive(ctx, current, rates))
		_, _, ok, _ = c.GetActive(ctx)
		assert.True(t, ok)
	})

	t.Run("zero ttl never stores", func(t *testing.T) {
		c := NewMemoryRateCache(0)
		require.NoError(t, c.SetActive(ctx, 0, rates))
		_, _, ok, _ := c.GetActive(ctx)
		assert.False(t, ok)
	})
}
