package repository

import (
	"context"

	"github.com/prperemyshlev/slangdex/internal/domain"
)

// UserRepository stores identity provider accounts
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, fields domain.IdentityFields) error
	UpdateLastLogin(ctx context.Context, userID string) error
}

// TokenRepository stores refresh token hashes
type TokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// WordRepository is the full-text word index
type WordRepository interface {
	Search(ctx context.Context, query string, limit int) ([]*domain.Word, error)
	Lookup(ctx context.Context, id, normalizedWord string) (*domain.Word, error)
	Upsert(ctx context.Context, word *domain.Word) error
}
