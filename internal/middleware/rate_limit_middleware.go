package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/yourusername/todo-api/internal/config"
)

// RateLimitPolicy задает фиксированное окно для группы маршрутов
type RateLimitPolicy struct {
	// MaxRequests - максимальное количество запросов за Window
	MaxRequests int
	Window      time.Duration
	// KeyPrefix - префикс для ключей в Redis
	KeyPrefix string
}

// AuthRateLimitPolicy строит политику для auth endpoints из конфига
func AuthRateLimitPolicy(cfg config.RateLimitConfig) RateLimitPolicy {
	p := RateLimitPolicy{
		MaxRequests: cfg.MaxRequests,
		Window:      time.Duration(cfg.WindowSeconds) * time.Second,
		KeyPrefix:   "rl:auth",
	}
	if p.MaxRequests <= 0 {
		p.MaxRequests = 5
	}
	if p.Window <= 0 {
		p.Window = time.Minute
	}
	return p
}

// RateLimiter считает запросы в Redis
type RateLimiter struct {
	redisClient redis.UniversalClient
	log         *zap.Logger
}

// NewRateLimiter создает новый RateLimiter. Без клиента Redis лимит не применяется.
func NewRateLimiter(redisClient redis.UniversalClient, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{redisClient: redisClient, log: log}
}

// Limit возвращает Gin middleware с заданной политикой.
// Ключ формируется из IP + шаблона маршрута.
func (rl *RateLimiter) Limit(p RateLimitPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.redisClient == nil {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := p.KeyPrefix + ":" + c.ClientIP() + ":" + path

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, err := rl.redisClient.Incr(ctx, key).Result()
		if err != nil {
			// fail-open
			rl.log.Warn("rate limiter unavailable, allowing request", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if count == 1 {
			if err := rl.redisClient.Expire(ctx, key, p.Window).Err(); err != nil {
				rl.log.Warn("failed to set rate limit ttl", zap.String("key", key), zap.Error(err))
			}
		}

		remaining := p.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}

		retryAfter := int(p.Window.Seconds())
		if ttl, err := rl.redisClient.TTL(ctx, key).Result(); err == nil && ttl > 0 {
			retryAfter = int(ttl.Seconds())
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(p.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(retryAfter))

		if int(count) > p.MaxRequests {
			rl.log.Info("rate limit exceeded",
				zap.String("ip", c.ClientIP()), zap.String("path", path),
				zap.Int64("count", count), zap.Int("limit", p.MaxRequests))

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"error_type":  "rate_limited",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
