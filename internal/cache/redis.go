package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/redis/go-redis/v9"
)

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisCache{
		client:  client,
		baseTTL: ttl,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, id string) (*domain.Order, error) {
	data, err := r.client.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var o domain.Order
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order failed: %w", err)
	}
	return &o, nil
}

func (r *RedisCache) Set(ctx context.Context, o *domain.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter

	keys := []string{cacheKey(o.ID)}
	if o.GatewayOrderID != "" {
		keys = append(keys, cacheKey(o.GatewayOrderID))
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		held, err := tx.Get(ctx, keys[0]).Bytes()
		switch {
		case err == nil:
			var cur domain.Order
			if json.Unmarshal(held, &cur) == nil && cur.UpdatedAt.After(o.UpdatedAt) {
				return nil
			}
		case !errors.Is(err, redis.Nil):
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, k := range keys {
				pipe.Set(ctx, k, data, ttl)
			}
			return nil
		})
		return err
	}, keys...)
	if errors.Is(err, redis.TxFailedErr) {
		// a concurrent writer touched the keys; let the next read reload
		if derr := r.client.Del(ctx, keys...).Err(); derr != nil {
			return fmt.Errorf("redis set conflict cleanup failed: %w", derr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKey(id)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func cacheKey(id string) string {
	return fmt.Sprintf("order:%s", id)
}
