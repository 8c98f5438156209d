// Package session keeps the signed in user consistent with the identity
// provider and the profile store, and publishes every change as a Snapshot.
package session

import (
	"github.com/prperemyshlev/slangdex/internal/domain"
)

// State of the current user
type State int

const (
	Uninitialized State = iota
	Resolving
	Ready
	Degraded
	SignedOut
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Resolving:
		return "resolving"
	case Ready:
		return "ready"
	case Degraded:
		return "degraded"
	case SignedOut:
		return "signed_out"
	default:
		return "unknown"
	}
}

// MarshalText lets State appear by name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is the current user as published to observers. User is nil unless
// State is Ready or Degraded (or Resolving a re-sent identity). Snapshots
// share profile values with the manager and must not be modified.
type Snapshot struct {
	State    State            `json:"state"`
	User     *domain.Profile  `json:"user"`
	Identity *domain.Identity `json:"identity"`
}

// SignedIn reports whether a profile is available
func (s Snapshot) SignedIn() bool {
	return s.User != nil
}
