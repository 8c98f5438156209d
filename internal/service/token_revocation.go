package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prperemyshlev/slangdex/pkg/database"
	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "slangdex:revoked:"

// TokenRevocationList keeps hashes of signed-out tokens in Redis until they
// would have expired anyway
type TokenRevocationList struct {
	redis *database.Redis
}

var _ RevocationList = (*TokenRevocationList)(nil)

func NewTokenRevocationList(redis *database.Redis) *TokenRevocationList {
	return &TokenRevocationList{redis: redis}
}

// Revoke marks every token as revoked for ttl in one round trip
func (l *TokenRevocationList) Revoke(ctx context.Context, ttl time.Duration, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}

	_, err := l.redis.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, token := range tokens {
			pipe.Set(ctx, revokedKey(token), 1, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to revoke %d token(s): %w", len(tokens), err)
	}
	return nil
}

func (l *TokenRevocationList) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := l.redis.Client.Exists(ctx, revokedKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

func revokedKey(token string) string {
	return revokedKeyPrefix + hashToken(token)
}
