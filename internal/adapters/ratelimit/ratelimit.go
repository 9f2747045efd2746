// Package ratelimit provides fixed-window request limiters backed by memory or redis.
package ratelimit

import (
	"context"
	"time"
)

const defaultWindow = time.Minute

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Count     int
	Remaining int
	WindowEnd time.Time
}

// Limiter counts requests per key in fixed windows.
type Limiter interface {
	// Allow counts one request for key. A limit of zero or less always allows.
	Allow(ctx context.Context, key string, limit int, window time.Duration) Decision
	Close() error
}

func decide(count, limit int, windowEnd time.Time) Decision {
	return Decision{
		Allowed:   count <= limit,
		Count:     count,
		Remaining: max(limit-count, 0),
		WindowEnd: windowEnd,
	}
}
