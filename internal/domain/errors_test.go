package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderCode(t *testing.T) {
	err := fmt.Errorf("register: %w", NewProviderError(CodeEmailAlreadyInUse, errors.New("duplicate")))

	assert.Equal(t, CodeEmailAlreadyInUse, ProviderCode(err))
	assert.Equal(t, "", ProviderCode(errors.New("plain")))
	assert.Equal(t, "auth/weak-password", NewProviderError(CodeWeakPassword, nil).Error())
}

func TestKindOf(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("login: %w", &AuthError{Kind: KindNetworkUnavailable, Message: "offline", Err: cause})

	assert.Equal(t, KindNetworkUnavailable, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindUnknown, KindOf(cause))
}
