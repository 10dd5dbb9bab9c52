package middleware

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/openhouse/marketing-stats/domain"
	"github.com/openhouse/marketing-stats/internal/metrics"
	"github.com/openhouse/marketing-stats/pkg/httpcontext"
	"github.com/openhouse/marketing-stats/repository"
)

// RateLimitConfig sizes the per-client token bucket.
type RateLimitConfig struct {
	Rate           float64
	Burst          int
	TrustedProxies int
}

// RateLimit throttles by client IP. The limiter is advisory: a nil limiter or
// a limiter error lets the request through.
func RateLimit(limiter repository.RateLimiter, cfg RateLimitConfig, m *metrics.Metrics, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		if limiter == nil || cfg.Rate <= 0 || cfg.Burst <= 0 {
			return next
		}
		return func(ctx *fasthttp.RequestCtx) {
			key := httpcontext.ClientIP(ctx, cfg.TrustedProxies)
			if key == "" {
				key = "unknown"
			}

			checkCtx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
			allowed, err := limiter.Allow(checkCtx, key, cfg.Rate, cfg.Burst)
			cancel()

			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", zap.Error(err))
				next(ctx)
				return
			}
			m.RecordRateLimit(allowed)
			if !allowed {
				writeError(ctx, fasthttp.StatusTooManyRequests, domain.ErrRateLimited)
				return
			}
			next(ctx)
		}
	}
}
