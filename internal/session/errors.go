package session

import (
	"errors"

	"github.com/prperemyshlev/slangdex/internal/domain"
)

const (
	msgFillAllFields  = "Please fill in all fields"
	msgInvalidEmail   = "Invalid email format."
	msgNetwork        = "Network error. Please check your internet connection."
	msgInvalidLogin   = "Invalid email or password. Please try again."
	msgProfileOffline = "Your account was created but your profile could not be saved yet. We'll keep trying."
)

func authError(kind domain.ErrorKind, message string, err error) *domain.AuthError {
	return &domain.AuthError{Kind: kind, Message: message, Err: err}
}

func mapRegisterError(err error) error {
	switch domain.ProviderCode(err) {
	case domain.CodeEmailAlreadyInUse:
		return authError(domain.KindDuplicateIdentity, "This email is already in use. Try signing in instead.", err)
	case domain.CodeInvalidEmail:
		return authError(domain.KindInvalidInput, msgInvalidEmail, err)
	case domain.CodeOperationNotAllowed:
		return authError(domain.KindOperationDisabled, "Email/password registration is not enabled. Please contact support.", err)
	case domain.CodeWeakPassword:
		return authError(domain.KindWeakCredential, "Password is too weak. Please use a stronger password.", err)
	case domain.CodeNetworkRequestFailed:
		return authError(domain.KindNetworkUnavailable, msgNetwork, err)
	default:
		return authError(domain.KindUnknown, "Failed to create account. Please try again.", err)
	}
}

func mapLoginError(err error) error {
	switch domain.ProviderCode(err) {
	case domain.CodeInvalidEmail:
		return authError(domain.KindInvalidInput, msgInvalidEmail, err)
	case domain.CodeUserDisabled:
		return authError(domain.KindAccountDisabled, "This account has been disabled.", err)
	case domain.CodeUserNotFound, domain.CodeWrongPassword:
		return authError(domain.KindInvalidCredential, msgInvalidLogin, err)
	case domain.CodeInvalidCredential:
		return authError(domain.KindInvalidCredential, "Invalid credentials. Please try again.", err)
	case domain.CodeTooManyRequests:
		return authError(domain.KindRateLimited,
			"Too many failed login attempts. Please try again later or reset your password.", err)
	case domain.CodeNetworkRequestFailed:
		return authError(domain.KindNetworkUnavailable, msgNetwork, err)
	case domain.CodeOperationNotAllowed:
		return authError(domain.KindOperationDisabled, "Email/password login is not enabled. Please contact support.", err)
	default:
		return authError(domain.KindUnknown, "Failed to sign in. Please try again.", err)
	}
}

func mapGuestError(err error) error {
	switch domain.ProviderCode(err) {
	case domain.CodeOperationNotAllowed:
		return authError(domain.KindOperationDisabled, "Guest sign-in is not enabled. Please contact support.", err)
	case domain.CodeNetworkRequestFailed:
		return authError(domain.KindNetworkUnavailable, msgNetwork, err)
	default:
		return authError(domain.KindUnknown, "Failed to sign in as guest. Please try again.", err)
	}
}

func mapLogoutError(err error) error {
	if domain.ProviderCode(err) == domain.CodeNetworkRequestFailed {
		return authError(domain.KindNetworkUnavailable,
			"Network error. Your data will be cleared locally, but you may still be logged in on the server.", err)
	}
	return authError(domain.KindUnknown, "Failed to sign out. Please try again.", err)
}

func mapRestoreError(err error) error {
	switch domain.ProviderCode(err) {
	case domain.CodeInvalidCredential, domain.CodeUserNotFound:
		return authError(domain.KindInvalidCredential, "Your session has expired. Please sign in again.", err)
	case domain.CodeUserDisabled:
		return authError(domain.KindAccountDisabled, "This account has been disabled.", err)
	case domain.CodeNetworkRequestFailed:
		return authError(domain.KindNetworkUnavailable, msgNetwork, err)
	default:
		return authError(domain.KindUnknown, "Failed to restore your session. Please sign in again.", err)
	}
}

// mapStoreError maps profile store failures of user-initiated writes
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		return authError(domain.KindNetworkUnavailable, msgNetwork, err)
	case errors.Is(err, domain.ErrProfileNotFound), errors.Is(err, domain.ErrNotSignedIn):
		return authError(domain.KindInvalidInput, "You need to be signed in to do that.", err)
	default:
		return authError(domain.KindUnknown, "Something went wrong. Please try again.", err)
	}
}
