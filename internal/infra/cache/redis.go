package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/giftvault/ingest/internal/domain"
)

const redisKeyPrefix = "ingest:stores:"

// Redis 是可选的共享缓存后端；过期交给 Redis 原生 TTL。
type Redis struct {
	client *redis.Client
}

func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]domain.Store, bool, error) {
	b, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var stores []domain.Store
	if err := json.Unmarshal(b, &stores); err != nil {
		return nil, false, fmt.Errorf("decode cached stores %q: %w", key, err)
	}
	if stores == nil {
		stores = []domain.Store{}
	}
	return stores, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, stores []domain.Store, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if stores == nil {
		stores = []domain.Store{}
	}
	b, err := json.Marshal(stores)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKeyPrefix+key, b, ttl).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
