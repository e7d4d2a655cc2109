package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/orderdesk/internal/config"
)

const keyOrderAdmission = "orders:admit:user:%s"

// OrderLimiter caps how fast a single user can place orders.
type OrderLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

// NewOrderLimiter returns nil when rate limiting is disabled.
func NewOrderLimiter(cfg config.Config, client *redis.Client) (*OrderLimiter, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	if client == nil {
		return nil, errors.New("order rate limit requires REDIS_ADDR")
	}
	if cfg.RateLimit.OrderRate <= 0 || cfg.RateLimit.OrderBurst <= 0 {
		return nil, errors.New("order rate limit rate and burst must be positive")
	}
	return &OrderLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.RateLimit.OrderRate,
		burst:  cfg.RateLimit.OrderBurst,
	}, nil
}

func (l *OrderLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *OrderLimiter) Allow(ctx context.Context, userID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyOrderAdmission, strings.TrimSpace(userID))
	return l.bucket.Allow(ctx, key, l.rate, l.burst)
}
