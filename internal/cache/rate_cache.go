package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Cheertaboi/shipping-service/internal/models"
)

// RateCache holds the list of active shipping rates read at checkout.
// A miss is reported as ok == false, never as an error.
//
// GetActive also reports the cache generation. Invalidate advances the
// generation, and SetActive only stores rates read under the generation it
// is given, so a fill that raced an invalidation is dropped.
type RateCache interface {
	GetActive(ctx context.Context) (rates []models.ShippingRate, gen int64, ok bool, err error)
	SetActive(ctx context.Context, gen int64, rates []models.ShippingRate) error
	Invalidate(ctx context.Context) error
}

type MemoryRateCache struct {
	mu        sync.RWMutex
	rates     []models.ShippingRate
	gen       int64
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewMemoryRateCache builds an in-process cache. A ttl <= 0 disables storing.
func NewMemoryRateCache(ttl time.Duration) *MemoryRateCache {
	return &MemoryRateCache{
		ttl: ttl,
		now: time.Now,
	}
}

func (c *MemoryRateCache) GetActive(_ context.Context) ([]models.ShippingRate, int64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.rates == nil || !c.now().Before(c.expiresAt) {
		return nil, c.gen, false, nil
	}
	out := make([]models.ShippingRate, len(c.rates))
	copy(out, c.rates)
	return out, c.gen, true, nil
}

func (c *MemoryRateCache) SetActive(_ context.Context, gen int64, rates []models.ShippingRate) error {
	if c.ttl <= 0 {
		return nil
	}
	stored := make([]models.ShippingRate, len(rates))
	copy(stored, rates)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	c.rates = stored
	c.expiresAt = c.now().Add(c.ttl)
	return nil
}

func (c *MemoryRateCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates = nil
	c.gen++
	return nil
}

// NoopRateCache disables caching.
type NoopRateCache struct{}

func (NoopRateCache) GetActive(context.Context) ([]models.ShippingRate, int64, bool, error) {
	return nil, 0, false, nil
}
func (NoopRateCache) SetActive(context.Context, int64, []models.ShippingRate) error { return nil }
func (NoopRateCache) Invalidate(context.Context) error                              { return nil }

var (
	_ RateCache = (*MemoryRateCache)(nil)
	_ RateCache = NoopRateCache{}
)
