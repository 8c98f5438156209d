package session

import (
	"context"
	"io"

	"github.com/prperemyshlev/slangdex/internal/domain"
	"github.com/prperemyshlev/slangdex/pkg/blobstore"
)

// IdentityProvider authenticates users and reports identity changes
type IdentityProvider interface {
	CreateIdentity(ctx context.Context, email, password string) (*domain.Identity, error)
	Authenticate(ctx context.Context, email, password string) (*domain.Identity, error)
	SignOut(ctx context.Context) error
	CreateAnonymousIdentity(ctx context.Context) (*domain.Identity, error)
	UpdateIdentityProfile(ctx context.Context, fields domain.IdentityFields) error
	Restore(ctx context.Context, refreshToken string) (*domain.Identity, error)
	// OnIdentityChanged replays the current identity and then reports each
	// change, in order, synchronously.
	OnIdentityChanged(listener func(*domain.Identity)) (unsubscribe func())
}

// ProfileStore persists profiles. Transient failures wrap domain.ErrStoreUnavailable.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*domain.Profile, error)
	Create(ctx context.Context, p *domain.Profile) error
	UpdateProfile(ctx context.Context, id string, fields domain.ProfileFields) error
	UpdateSettings(ctx context.Context, id string, patch domain.SettingsPatch) error
	TouchLastLogin(ctx context.Context, id string) error
	TouchActivity(ctx context.Context, id string) error
	AddFavorite(ctx context.Context, profileID, wordID string) bool
	RemoveFavorite(ctx context.Context, profileID, wordID string) bool
	RecordRecentView(ctx context.Context, profileID, wordID string) bool
}

// Uploader stores profile photos and returns their public URL
type Uploader interface {
	Upload(ctx context.Context, objectPath string, r io.Reader, size int64, progress blobstore.ProgressFunc) (string, error)
}
