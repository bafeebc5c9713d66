package middleware

import (
	"strconv"
	"time"

	"github.com/Triaksa-Space/be-admin-console/pkg/apperrors"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/go-redis/redis_rate/v10"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimiterConfig holds the configuration for rate limiting
type RateLimiterConfig struct {
	Client    *redis.Client
	PerMinute int
	Prefix    string
	Log       logger.Logger
}

// RateLimiterMiddleware limits requests per caller (user id, else IP) with a
// redis-backed GCRA limiter. Without a redis client every request passes.
func RateLimiterMiddleware(cfg RateLimiterConfig) echo.MiddlewareFunc {
	var limiter *redis_rate.Limiter
	if cfg.Client != nil && cfg.PerMinute > 0 {
		limiter = redis_rate.NewLimiter(cfg.Client)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "console:ratelimit:"
	}
	log := cfg.Log
	if log == nil {
		log = logger.Get()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil {
				return next(c)
			}

			key := c.RealIP()
			if userID, ok := c.Get(string(logger.ContextKeyUserID)).(string); ok && userID != "" {
				key = "user:" + userID
			}

			res, err := limiter.Allow(c.Request().Context(), cfg.Prefix+key, redis_rate.PerMinute(cfg.PerMinute))
			if err != nil {
				log.Warn("Rate limit check failed, allowing request", logger.Err(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-Ratelimit-Limit", strconv.Itoa(res.Limit.Rate))
			h.Set("X-Ratelimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-Ratelimit-Reset", strconv.FormatInt(time.Now().Add(res.ResetAfter).Unix(), 10))

			if res.Allowed == 0 {
				log.Warn("Rate limit exceeded", logger.String("key", key), logger.Path(c.Path()))
				h.Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
				return apperrors.RespondWithError(c, apperrors.NewTooManyRequests("Too many requests, please try again later."))
			}

			return next(c)
		}
	}
}
