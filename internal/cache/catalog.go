package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amezhanin/skinstore/internal/model"
	"github.com/redis/go-redis/v9"
)

// CatalogKey is the single key under which the whole catalog snapshot lives.
const CatalogKey = "skins:catalog"

type Config struct {
	Host string
	Port string
}

type CatalogCache struct {
	client *redis.Client
}

func NewCatalogCache(cfg Config) (*CatalogCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &CatalogCache{client: client}, nil
}

// Get returns the cached catalog and whether the key was present.
// A missing key is a normal miss, not an error.
func (c *CatalogCache) Get(ctx context.Context) ([]model.Item, bool, error) {
	raw, err := c.client.Get(ctx, CatalogKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read catalog key: %w", err)
	}

	var items []model.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached catalog: %w", err)
	}
	return items, true, nil
}

func (c *CatalogCache) Set(ctx context.Context, items []model.Item, ttl time.Duration) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := c.client.Set(ctx, CatalogKey, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write catalog key: %w", err)
	}
	return nil
}

func (c *CatalogCache) Close() error {
	return c.client.Close()
}
