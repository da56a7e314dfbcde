// Package cache содержит кэш списка категорий поверх Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmeshcher/storefront/internal/model"
)

const categoriesKey = "storefront:categories"

// RedisCategoryCache хранит список категорий в Redis с ограниченным временем жизни.
type RedisCategoryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCategoryCache подключается к Redis по указанному адресу и проверяет соединение.
func NewRedisCategoryCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCategoryCache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisCategoryCacheWithClient(rdb, ttl), nil
}

// NewRedisCategoryCacheWithClient создаёт кэш поверх готового клиента Redis.
func NewRedisCategoryCacheWithClient(rdb *redis.Client, ttl time.Duration) *RedisCategoryCache {
	return &RedisCategoryCache{rdb: rdb, ttl: ttl}
}

// GetCategories возвращает закэшированный список. Второе значение false означает промах.
func (c *RedisCategoryCache) GetCategories(ctx context.Context) ([]model.Category, bool, error) {
	data, err := c.rdb.Get(ctx, categoriesKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var categories []model.Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, false, fmt.Errorf("decode cached categories: %w", err)
	}

	return categories, true, nil
}

// SetCategories сохраняет список категорий.
func (c *RedisCategoryCache) SetCategories(ctx context.Context, categories []model.Category) error {
	data, err := json.Marshal(categories)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, categoriesKey, data, c.ttl).Err()
}

// InvalidateCategories удаляет закэшированный список.
func (c *RedisCategoryCache) InvalidateCategories(ctx context.Context) error {
	return c.rdb.Del(ctx, categoriesKey).Err()
}

// Close закрывает соединение с Redis.
func (c *RedisCategoryCache) Close() error {
	return c.rdb.Close()
}
