package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrWordNotFound is returned when no word matches and synthesis is off
	ErrWordNotFound = errors.New("word not found")

	// ErrProfileNotFound is returned when an identity has no profile document
	ErrProfileNotFound = errors.New("profile not found")

	// ErrStoreUnavailable marks transient profile store failures
	ErrStoreUnavailable = errors.New("profile store unavailable")

	// ErrNotSignedIn is returned by operations that need a current user
	ErrNotSignedIn = errors.New("no user is signed in")

	// ErrInvalidInput is returned for rejected request values
	ErrInvalidInput = errors.New("invalid input")

	ErrPostNotFound = errors.New("post not found")
	ErrQuizNotFound = errors.New("quiz not found")

	// ErrRateLimited is returned when a caller exceeds a local rate limit
	ErrRateLimited = errors.New("rate limit exceeded")
)

// ErrorKind is the closed set of failures surfaced by session operations
type ErrorKind string

const (
	KindInvalidInput       ErrorKind = "invalid_input"
	KindDuplicateIdentity  ErrorKind = "duplicate_identity"
	KindInvalidCredential  ErrorKind = "invalid_credential"
	KindAccountDisabled    ErrorKind = "account_disabled"
	KindOperationDisabled  ErrorKind = "operation_disabled"
	KindWeakCredential     ErrorKind = "weak_credential"
	KindRateLimited        ErrorKind = "rate_limited"
	KindNetworkUnavailable ErrorKind = "network_unavailable"
	KindUnknown            ErrorKind = "unknown"
)

// AuthError is what session operations return: a kind plus a message that
// can be shown to the user as is.
type AuthError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of an AuthError in err's chain, or KindUnknown
func KindOf(err error) ErrorKind {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindUnknown
}

// Identity provider error codes
const (
	CodeEmailAlreadyInUse    = "auth/email-already-in-use"
	CodeInvalidEmail         = "auth/invalid-email"
	CodeOperationNotAllowed  = "auth/operation-not-allowed"
	CodeWeakPassword         = "auth/weak-password"
	CodeNetworkRequestFailed = "auth/network-request-failed"
	CodeUserDisabled         = "auth/user-disabled"
	CodeUserNotFound         = "auth/user-not-found"
	CodeWrongPassword        = "auth/wrong-password"
	CodeInvalidCredential    = "auth/invalid-credential"
	CodeTooManyRequests      = "auth/too-many-requests"
	CodeNoCurrentUser        = "auth/no-current-user"
	CodeInternal             = "auth/internal-error"
)

// ProviderError is a raw identity provider failure
type ProviderError struct {
	Code string
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err with a provider code
func NewProviderError(code string, err error) *ProviderError {
	return &ProviderError{Code: code, Err: err}
}

// ProviderCode extracts the provider code from err's chain, or ""
func ProviderCode(err error) string {
	var pErr *ProviderError
	if errors.As(err, &pErr) {
		return pErr.Code
	}
	return ""
}
