package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Cheertaboi/shipping-service/internal/models"
)

const defaultRateKey = "shipping:rates:active"

// RedisRateCache shares the active rate list between service instances so an
// admin edit on one instance invalidates all of them.
type RedisRateCache struct {
	client     *redis.Client
	key        string
	versionKey string
	ttl        time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisRateCache connects and pings Redis. A ttl <= 0 disables storing.
func NewRedisRateCache(cfg RedisConfig, ttl time.Duration) (*RedisRateCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisRateCacheWithClient(client, "", ttl), nil
}

func NewRedisRateCacheWithClient(client *redis.Client, key string, ttl time.Duration) *RedisRateCache {
	if key == "" {
		key = defaultRateKey
	}
	return &RedisRateCache{client: client, key: key, versionKey: key + ":version", ttl: ttl}
}

func (c *RedisRateCache) GetActive(ctx context.Context) ([]models.ShippingRate, int64, bool, error) {
	var ver, val *redis.StringCmd
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		ver = p.Get(ctx, c.versionKey)
		val = p.Get(ctx, c.key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, fmt.Errorf("redis get %s: %w", c.key, err)
	}

	gen, err := versionOf(ver)
	if err != nil {
		return nil, 0, false, err
	}

	raw, err := val.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, fmt.Errorf("redis get %s: %w", c.key, err)
	}

	var rates []models.ShippingRate
	if err := json.Unmarshal(raw, &rates); err != nil {
		return nil, gen, false, fmt.Errorf("decode cached rates: %w", err)
	}
	return rates, gen, true, nil
}

// SetActive stores rates only while the version key still equals gen.
// A concurrent Invalidate aborts the write.
func (c *RedisRateCache) SetActive(ctx context.Context, gen int64, rates []models.ShippingRate) error {
	if c.ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(rates)
	if err != nil {
		return fmt.Errorf("encode rates: %w", err)
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := versionOf(tx.Get(ctx, c.versionKey))
		if err != nil {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, c.key, raw, c.ttl)
			return nil
		})
		return err
	}, c.versionKey)
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("redis set %s: %w", c.key, err)
	}
	return nil
}

func (c *RedisRateCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, c.versionKey)
		p.Del(ctx, c.key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate %s: %w", c.key, err)
	}
	return nil
}

func versionOf(cmd *redis.StringCmd) (int64, error) {
	v, err := cmd.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis version: %w", err)
	}
	return v, nil
}

func (c *RedisRateCache) Close() error {
	return c.client.Close()
}

var _ RateCache = (*RedisRateCache)(nil)
