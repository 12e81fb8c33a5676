package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/storefront/internal/model"
)

// ProductCache is a best-effort read-through cache for product detail reads.
// A nil client disables it.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

func productCacheKey(id uuid.UUID) string { return "product:" + id.String() }

func (c *ProductCache) Get(ctx context.Context, id uuid.UUID) *model.Product {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, productCacheKey(id)).Bytes()
	if err != nil {
		return nil
	}
	var p model.Product
	if json.Unmarshal(raw, &p) != nil {
		return nil
	}
	return &p
}

func (c *ProductCache) Put(ctx context.Context, p *model.Product) {
	if c == nil || c.client == nil {
		return
	}
	if data, err := json.Marshal(p); err == nil {
		c.client.Set(ctx, productCacheKey(p.ID), data, c.ttl)
	}
}

func (c *ProductCache) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	if c == nil || c.client == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productCacheKey(id)
	}
	c.client.Del(ctx, keys...)
}
