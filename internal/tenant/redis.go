// SPDX-License-Identifier: MIT

package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // host:port
	Password string // optional
	DB       int
	// Prefix namespaces the key, e.g. per device.
	Prefix string
}

// RedisStore keeps the key in Redis so several dashboards on one device
// profile share the selection.
type RedisStore struct {
	client *redis.Client
	key    string
}

// OpenRedisStore connects and pings Redis.
func OpenRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("tenant: redis backend needs an address")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("tenant: redis connection failed: %w", err)
	}
	return NewRedisStore(client, cfg.Prefix), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, key: prefix + Key}
}

func (s *RedisStore) Load(ctx context.Context) (string, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("tenant: redis get: %w", err)
	}
	return val, nil
}

func (s *RedisStore) Save(ctx context.Context, tenantID string) error {
	var err error
	if tenantID == "" {
		err = s.client.Del(ctx, s.key).Err()
	} else {
		err = s.client.Set(ctx, s.key, tenantID, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("tenant: redis save: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
