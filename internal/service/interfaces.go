package service

import (
	"context"
	"time"

	"github.com/prperemyshlev/slangdex/internal/domain"
)

// RevocationList records signed-out tokens
type RevocationList interface {
	Revoke(ctx context.Context, ttl time.Duration, tokens ...string) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// AttemptLimiter bounds how often key may be used within window. It returns
// a *RateLimitError when the limit is exceeded.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) error
}

// FailureLimiter counts only the attempts reported as failed. Check returns a
// *RateLimitError once limit failures were recorded within window.
type FailureLimiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) error
	Record(ctx context.Context, key string, window time.Duration) error
	Reset(ctx context.Context, key string) error
}

// WordIndex is the searchable word collection
type WordIndex interface {
	Search(ctx context.Context, query string, limit int) ([]*domain.Word, error)
	Lookup(ctx context.Context, id, normalizedWord string) (*domain.Word, error)
}
