package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"cafepos/backend/internal/domain"
)

const (
	DefaultKeyPrefix = "cafepos:catalog"

	discountsKey  = "discounts"
	promotionsKey = "promotions"
)

type RedisCatalogCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCatalogCache(addr string, password string, db int) *RedisCatalogCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCatalogCache{client: client, prefix: DefaultKeyPrefix}
}

// WithPrefix namespaces the cache keys, which lets tests share one Redis.
func (c *RedisCatalogCache) WithPrefix(prefix string) *RedisCatalogCache {
	if prefix != "" {
		c.prefix = prefix
	}
	return c
}

func (c *RedisCatalogCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCatalogCache) Close() error {
	return c.client.Close()
}

func (c *RedisCatalogCache) GetDiscounts(ctx context.Context) ([]domain.Discount, bool, error) {
	var out []domain.Discount
	ok, err := c.get(ctx, discountsKey, &out)
	return out, ok, err
}

func (c *RedisCatalogCache) SetDiscounts(ctx context.Context, discounts []domain.Discount, ttl time.Duration) error {
	return c.set(ctx, discountsKey, discounts, ttl)
}

func (c *RedisCatalogCache) GetPromotions(ctx context.Context) ([]domain.Promotion, bool, error) {
	var out []domain.Promotion
	ok, err := c.get(ctx, promotionsKey, &out)
	return out, ok, err
}

func (c *RedisCatalogCache) SetPromotions(ctx context.Context, promotions []domain.Promotion, ttl time.Duration) error {
	return c.set(ctx, promotionsKey, promotions, ttl)
}

func (c *RedisCatalogCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key(discountsKey), c.key(promotionsKey)).Err()
}

func (c *RedisCatalogCache) key(name string) string {
	return c.prefix + ":" + name
}

func (c *RedisCatalogCache) get(ctx context.Context, name string, out any) (bool, error) {
	val, err := c.client.Get(ctx, c.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, out); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCatalogCache) set(ctx context.Context, name string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(name), payload, ttl).Err()
}
