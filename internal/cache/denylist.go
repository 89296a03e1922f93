// Package cache holds the optional Redis-backed token denylist used by
// logout. When Redis is not configured every method is a safe no-op, so the
// middleware never branches on availability.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/workpulse/workpulse/internal/config"
)

const denylistPrefix = "workpulse:denylist:"

// TokenDenylist revokes individual token IDs until their natural expiry.
// A nil TokenDenylist is valid and revokes nothing.
type TokenDenylist struct {
	client *redis.Client
}

// NewTokenDenylist connects to Redis when enabled; otherwise returns a
// denylist whose operations do nothing.
func NewTokenDenylist(cfg *config.RedisConfig) *TokenDenylist {
	if cfg == nil || !cfg.Enabled {
		return &TokenDenylist{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &TokenDenylist{client: client}
}

// Revoke marks a token ID as unusable for the given remaining lifetime.
func (d *TokenDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if d == nil || d.client == nil || tokenID == "" || ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, denylistPrefix+tokenID, "1", ttl).Err()
}

// Revoked reports whether the token ID has been revoked. Lookup failures
// count as not revoked; authentication must not depend on Redis being up.
func (d *TokenDenylist) Revoked(ctx context.Context, tokenID string) bool {
	if d == nil || d.client == nil || tokenID == "" {
		return false
	}
	n, err := d.client.Exists(ctx, denylistPrefix+tokenID).Result()
	return err == nil && n > 0
}

// Close releases the Redis connection.
func (d *TokenDenylist) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}
