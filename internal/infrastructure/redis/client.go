package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goRedis "github.com/redis/go-redis/v9"

	"github.com/openhouse/marketing-stats/internal/config"
)

// ErrDisabled is returned when no redis URL is configured.
var ErrDisabled = errors.New("redis disabled: REDIS_URL is empty")

// The only consumer is the ingestion rate limiter, which fails open, so a
// slow redis must give up quickly instead of holding requests.
const (
	dialTimeout = time.Second
	ioTimeout   = 200 * time.Millisecond
)

// NewClient creates a Redis client tuned for rate limiting and performs a health check.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goRedis.Client, error) {
	if cfg.URL == "" {
		return nil, ErrDisabled
	}
	opts, err := goRedis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.DialTimeout = dialTimeout
	opts.ReadTimeout = ioTimeout
	opts.WriteTimeout = ioTimeout

	client := goRedis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
