// Package redis provides the Redis-backed verification cache shared by
// all instances of the service.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dexhq/support-chat-backend/internal/config"
	"github.com/dexhq/support-chat-backend/internal/core/domain"
	"github.com/dexhq/support-chat-backend/internal/core/ports"
)

// TokenCache stores verified principals in Redis.
type TokenCache struct {
	client *redis.Client
}

var _ ports.VerificationCache = (*TokenCache)(nil)

// NewTokenCache connects to Redis and verifies connectivity.
func NewTokenCache(ctx context.Context, cfg config.RedisConfig) (*TokenCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &TokenCache{client: client}, nil
}

// Get returns the cached principal, or nil when absent.
func (c *TokenCache) Get(ctx context.Context, key string) (*domain.Principal, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var principal domain.Principal
	if err := json.Unmarshal(data, &principal); err != nil {
		return nil, err
	}
	return &principal, nil
}

// Set stores the principal for ttl.
func (c *TokenCache) Set(ctx context.Context, key string, principal *domain.Principal, ttl time.Duration) error {
	data, err := json.Marshal(principal)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Close closes the underlying client.
func (c *TokenCache) Close() error {
	return c.client.Close()
}
