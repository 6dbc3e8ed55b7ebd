package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/damoang/angple-editorial/internal/common"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig configures one limiter
type RateLimitConfig struct {
	RequestsPerMinute int
	// KeyPrefix 는 limiter 별로 달라야 한다 (예: ratelimit:agents:)
	KeyPrefix string
	Message   string
}

// slidingWindowScript 원자적 sliding window (ZSET)
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    redis.call('PEXPIRE', key, window + 1000)
    return {1, limit - count - 1, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local reset_at = now + window
if #oldest >= 2 then
    reset_at = tonumber(oldest[2]) + window
end
return {0, 0, reset_at}
`)

// RateLimit limits requests per client IP over a one minute window.
// Without Redis, or when Redis errors, requests pass through.
func RateLimit(redisClient *redis.Client, cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil || cfg.RequestsPerMinute <= 0 {
			c.Next()
			return
		}

		now := time.Now().UnixMilli()
		windowMs := int64(time.Minute / time.Millisecond)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		result, err := slidingWindowScript.Run(ctx, redisClient, []string{cfg.KeyPrefix + c.ClientIP()},
			cfg.RequestsPerMinute, windowMs, now,
		).Int64Slice()
		cancel()
		if err != nil || len(result) < 3 {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result[1], 10))

		if result[0] != 1 {
			retryAfter := (result[2] - now) / 1000
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			common.ErrorResponse(c, http.StatusTooManyRequests, cfg.Message, nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
