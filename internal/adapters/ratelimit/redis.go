package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/pulse/pkg/logger"
)

const (
	redisKeyPrefix = "pulse:ratelimit:"
	redisTimeout   = 250 * time.Millisecond
)

// Redis is a Limiter shared by every replica that talks to the same redis.
// It fails open: a redis error allows the request and is logged.
type Redis struct {
	client *redis.Client
	log    logger.Logger
	prefix string
}

var _ Limiter = (*Redis)(nil)

// NewRedis connects to addr and verifies it with PING.
func NewRedis(ctx context.Context, addr, password string, db int, log logger.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &Redis{client: client, log: log, prefix: redisKeyPrefix}, nil
}

// Allow counts one request for key with INCR and sets the window TTL on the first hit.
func (r *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}
	if window <= 0 {
		window = defaultWindow
	}
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	redisKey := r.prefix + key
	counter, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		r.logError(ctx, "incr", err)
		return Decision{Allowed: true}
	}
	if counter == 1 {
		if err := r.client.Expire(ctx, redisKey, window).Err(); err != nil {
			r.logError(ctx, "expire", err)
		}
	}
	ttl, err := r.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		ttl = window
	}
	return decide(int(counter), limit, time.Now().Add(ttl))
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) logError(ctx context.Context, op string, err error) {
	if r.log == nil {
		return
	}
	r.log.Error(ctx, "redis rate limiter error", logger.String("op", op), logger.Error(err))
}
