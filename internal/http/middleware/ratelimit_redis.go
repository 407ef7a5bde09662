package middleware

import (
	"net/http"
	"strconv"
	"time"

	"cypher_arena/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// KeyFunc picks the identity a request is counted under.
type KeyFunc func(c *gin.Context) string

func KeyByIP(c *gin.Context) string { return "ip:" + c.ClientIP() }

// KeyByPlayer counts per authenticated player and falls back to the client
// IP before JWT has run.
func KeyByPlayer(c *gin.Context) string {
	if id, ok := PlayerID(c); ok {
		return "player:" + id
	}
	return KeyByIP(c)
}

// RateLimiter implements fixed-window limits with Redis INCR/EXPIRE, or in
// process memory when no client is given.
type RateLimiter struct {
	client *redis.Client
	memory *memoryLimiter
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client, memory: newMemoryLimiter()}
}

// Limit allows maxRequests per window for each key.
// Redis key format: rl:<window_seconds>:<identifier>
func (l *RateLimiter) Limit(maxRequests int, window time.Duration, key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := key(c)

		var val int64
		if l.client == nil {
			val = l.memory.incr(ident, window)
		} else {
			ctx := c.Request.Context()
			rk := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + ident

			var err error
			val, err = l.client.Incr(ctx, rk).Result()
			if err != nil {
				// fail-open
				logger.Warn("rate limiter redis error", "error", err)
				c.Header("X-RateLimit-Error", "redis-error")
				c.Next()
				return
			}
			if val == 1 {
				l.client.Expire(ctx, rk, window)
			}
		}

		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
