package stock

import (
	"context"
	"strconv"
	"time"

	"github.com/liabooks/cartsync/pkg/logger"
	"github.com/liabooks/cartsync/pkg/redis"
)

// RedisCache shares availability entries between storefront processes.
// Expiry is delegated to the key TTL; read or write failures degrade to
// cache misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logg   *logger.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logg *logger.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logg: logg}
}

func (c *RedisCache) Get(ctx context.Context, skuID int64) (int, bool) {
	value, err := c.client.Get(ctx, c.client.StockKey(skuID))
	if err != nil {
		if !redis.IsMissing(err) {
			c.logg.Warn(ctx, "stock cache read failed: "+err.Error())
		}
		return 0, false
	}
	available, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return available, true
}

func (c *RedisCache) Set(ctx context.Context, skuID int64, available int) {
	if err := c.client.Set(ctx, c.client.StockKey(skuID), strconv.Itoa(available), c.ttl); err != nil {
		c.logg.Warn(ctx, "stock cache write failed: "+err.Error())
	}
}

func (c *RedisCache) Clear(ctx context.Context) {
	keys, err := c.client.StockKeys(ctx)
	if err != nil {
		c.logg.Warn(ctx, "stock cache clear failed: "+err.Error())
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...); err != nil {
		c.logg.Warn(ctx, "stock cache clear failed: "+err.Error())
	}
}
