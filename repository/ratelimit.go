package repository

import "context"

// RateLimiter decides whether the caller identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (bool, error)
}
