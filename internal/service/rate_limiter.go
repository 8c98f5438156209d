package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prperemyshlev/slangdex/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RateLimitError is returned when a key has used up its window
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter <= 0 {
		return "rate limit exceeded"
	}
	return fmt.Sprintf("rate limit exceeded, try again in %v", e.RetryAfter.Round(time.Second))
}

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	redis *database.Redis
	clock clockwork.Clock
}

var (
	_ AttemptLimiter = (*RateLimiter)(nil)
	_ FailureLimiter = (*RateLimiter)(nil)
)

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis, clock clockwork.Clock) *RateLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RateLimiter{redis: redis, clock: clock}
}

// Allow records an attempt for key using a sliding window log. It returns a
// *RateLimitError once limit attempts were made within window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) error {
	if err := r.Check(ctx, key, limit, window); err != nil {
		return err
	}
	return r.Record(ctx, key, window)
}

// Check drops entries older than window and fails when limit entries remain
func (r *RateLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) error {
	now := r.clock.Now()
	windowStart := now.Add(-window)
	redisKey := rateLimitKey(key)

	err := r.redis.Client.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.UnixMilli(), 10)).Err()
	if err != nil {
		return fmt.Errorf("failed to clean old entries: %w", err)
	}

	count, err := r.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}

	if count >= int64(limit) {
		limitErr := &RateLimitError{}
		oldest, err := r.redis.Client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
		if err == nil && len(oldest) > 0 {
			oldestTime := time.UnixMilli(int64(oldest[0].Score))
			limitErr.RetryAfter = window - now.Sub(oldestTime)
		}
		return limitErr
	}
	return nil
}

// Record adds one entry for key
func (r *RateLimiter) Record(ctx context.Context, key string, window time.Duration) error {
	now := r.clock.Now()
	redisKey := rateLimitKey(key)

	err := r.redis.Client.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add entry: %w", err)
	}

	// an expiry failure only leaves the key around longer
	_ = r.redis.Client.Expire(ctx, redisKey, window+time.Minute).Err()

	return nil
}

// Reset forgets every entry of key
func (r *RateLimiter) Reset(ctx context.Context, key string) error {
	if err := r.redis.Client.Del(ctx, rateLimitKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to reset %s: %w", key, err)
	}
	return nil
}

func rateLimitKey(key string) string {
	return "ratelimit:" + key
}
