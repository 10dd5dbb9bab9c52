package redis

import (
	"context"
	"errors"
	"math"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/openhouse/marketing-stats/repository"
)

// tokenBucketScript refills a per-key bucket from the server clock so that
// replicas share one view of time.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
else
  local delta = math.max(0, now - ts)
  tokens = math.min(burst, tokens + (delta / 1000) * rate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return allowed
`

var (
	errLimiterNotConfigured = errors.New("rate limiter not configured")
	errLimiterEmptyKey      = errors.New("rate limiter key is empty")
	errLimiterBadRate       = errors.New("rate limiter rate and burst must be positive")
)

type rateLimiter struct {
	client *redislib.Client
	script *redislib.Script
	prefix string
}

// NewRateLimiter creates a Redis token-bucket limiter.
func NewRateLimiter(client *redislib.Client) repository.RateLimiter {
	return &rateLimiter{
		client: client,
		script: redislib.NewScript(tokenBucketScript),
		prefix: "ratelimit:track:",
	}
}

func (r *rateLimiter) Allow(ctx context.Context, key string, rate float64, burst int) (bool, error) {
	if r == nil || r.client == nil {
		return false, errLimiterNotConfigured
	}
	if key == "" {
		return false, errLimiterEmptyKey
	}
	if rate <= 0 || burst <= 0 {
		return false, errLimiterBadRate
	}

	ttl := bucketTTL(rate, burst)
	allowed, err := r.script.Run(ctx, r.client, []string{r.prefix + key}, rate, burst, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return allowed == 1, nil
}

// bucketTTL keeps an idle bucket around for twice the time it takes to refill.
func bucketTTL(rate float64, burst int) time.Duration {
	seconds := math.Ceil(float64(burst) / rate * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}
