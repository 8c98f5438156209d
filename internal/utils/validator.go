package utils

import (
	"regexp"
	"strings"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.]{3,30}$`)
)

// MinPasswordLength is the shortest password the identity provider accepts
const MinPasswordLength = 6

// ValidateEmail validates an email address
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePassword reports whether password is long enough
func ValidatePassword(password string) bool {
	return len([]rune(password)) >= MinPasswordLength
}

// ValidateUsername allows letters, digits, '_' and '.'
func ValidateUsername(username string) bool {
	return usernameRegex.MatchString(username)
}

// SanitizeEmail sanitizes an email address
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
