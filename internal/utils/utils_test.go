package utils

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prperemyshlev/slangdex/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_AccessToken(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	m := NewJWTManager("secret", 15*time.Minute, 24*time.Hour, clock)

	token, err := m.GenerateAccessToken(&domain.Identity{ID: "u1", Email: "a@b.co"})
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "a@b.co", claims.Email)
	assert.False(t, claims.Anonymous)
	assert.WithinDuration(t, clock.Now().Add(15*time.Minute), claims.ExpiresAt, 0)

	clock.Advance(16 * time.Minute)
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_TokenTypesAreNotInterchangeable(t *testing.T) {
	m := NewJWTManager("secret", time.Minute, time.Hour, nil)

	refresh, err := m.GenerateRefreshToken("u1")
	require.NoError(t, err)
	access, err := m.GenerateAccessToken(&domain.Identity{ID: "u1", IsAnonymous: true})
	require.NoError(t, err)

	_, err = m.ValidateToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	userID, err := m.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	token, err := NewJWTManager("one", time.Minute, time.Hour, nil).GenerateRefreshToken("u1")
	require.NoError(t, err)

	_, err = NewJWTManager("two", time.Minute, time.Hour, nil).ValidateRefreshToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22", 1)
	require.NoError(t, err)

	assert.NoError(t, ComparePassword("hunter22", hash))
	assert.ErrorIs(t, ComparePassword("hunter23", hash), ErrPasswordMismatch)
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"valid email", ValidateEmail("user@example.com"), true},
		{"email without tld", ValidateEmail("user@example"), false},
		{"email without at", ValidateEmail("userexample.com"), false},
		{"six char password", ValidatePassword("abcdef"), true},
		{"short password", ValidatePassword("abc"), false},
		{"username", ValidateUsername("slang_fan.01"), true},
		{"username with space", ValidateUsername("slang fan"), false},
		{"short username", ValidateUsername("ab"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}

	assert.Equal(t, "user@example.com", SanitizeEmail("  User@Example.COM "))
}
