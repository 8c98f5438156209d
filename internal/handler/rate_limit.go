package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/slangdex/internal/service"
	"go.uber.org/zap"
)

// RateLimitMiddleware limits requests per key. Limiter failures let the
// request through.
func RateLimitMiddleware(limiter service.AttemptLimiter, limit int, window time.Duration, keyFunc func(*gin.Context) string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "http:" + c.FullPath() + ":" + keyFunc(c)

		err := limiter.Allow(c.Request.Context(), key, limit, window)

		var limited *service.RateLimitError
		switch {
		case err == nil:
		case errors.As(err, &limited):
			retryAfter := int(math.Ceil(limited.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(max(retryAfter, 1)))
			c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
			abortWith(c, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		default:
			logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Next()
	}
}

// IPBasedKey extracts rate limit key from client IP
func IPBasedKey(c *gin.Context) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	return c.ClientIP()
}
