package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"motoshop/config"
	"motoshop/models"
)

const productTTL = 10 * time.Minute

// Cache is a read-through cache for product detail lookups. Every
// method is best-effort: a cache failure never fails the request.
type Cache struct {
	client *redis.Client
}

func New(cfg *config.Config) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &Cache{client: client}
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func productKey(id int) string {
	return fmt.Sprintf("product:%d", id)
}

func (c *Cache) GetProduct(ctx context.Context, id int) (*models.Product, bool) {
	data, err := c.client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *Cache) SetProduct(ctx context.Context, p *models.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productKey(p.ID), data, productTTL).Err()
}

func (c *Cache) InvalidateProduct(ctx context.Context, id int) error {
	return c.client.Del(ctx, productKey(id)).Err()
}
