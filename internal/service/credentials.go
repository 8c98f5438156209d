package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/prperemyshlev/slangdex/internal/domain"
)

// Credentials are the tokens issued for the current identity
type Credentials struct {
	AccessToken      string
	RefreshToken     string
	TokenType        string
	ExpiresIn        int // access token lifetime in seconds
	RefreshExpiresIn int
}

// issueCredentials generates access and refresh tokens and stores the refresh token hash
func (s *IdentityService) issueCredentials(ctx context.Context, user *domain.User) (*Credentials, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.Identity())
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	refreshExpiry := s.jwtManager.RefreshTokenExpiry()
	err = s.tokenRepo.Create(ctx, &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: s.clock.Now().Add(refreshExpiry),
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	return &Credentials{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		TokenType:        "Bearer",
		ExpiresIn:        s.jwtManager.AccessTokenExpiry(),
		RefreshExpiresIn: int(refreshExpiry.Seconds()),
	}, nil
}

// hashToken hashes a token using SHA256
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
