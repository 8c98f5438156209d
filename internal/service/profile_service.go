package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prperemyshlev/slangdex/internal/domain"
	"github.com/prperemyshlev/slangdex/pkg/docstore"
	"github.com/prperemyshlev/slangdex/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ProfilesCollection is the document collection holding profiles
const ProfilesCollection = "users"

// ProfileService reads and writes profile documents. The bookkeeping
// operations never fail: errors are logged and reported as false.
type ProfileService struct {
	store    docstore.Store
	logger   *zap.Logger
	failures metric.Int64Counter
}

// NewProfileService creates a new profile service
func NewProfileService(store docstore.Store, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{
		store:  store,
		logger: logger,
		failures: observability.Int64Counter("slangdex/profile", "slangdex_bookkeeping_failures_total",
			"Favorite and recent word writes that failed"),
	}
}

// Get returns the profile of identity id
func (s *ProfileService) Get(ctx context.Context, id string) (*domain.Profile, error) {
	doc, err := s.store.Get(ctx, ProfilesCollection, id)
	if err != nil {
		return nil, storeError("get profile", err)
	}

	profile, err := decodeProfile(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", id, err)
	}
	if profile.ID == "" {
		profile.ID = id
	}
	return profile, nil
}

// Create writes p, replacing any existing profile with the same id
func (s *ProfileService) Create(ctx context.Context, p *domain.Profile) error {
	doc, err := encodeProfile(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile %s: %w", p.ID, err)
	}

	if err := s.store.Set(ctx, ProfilesCollection, p.ID, doc); err != nil {
		return storeError("create profile", err)
	}
	return nil
}

// UpdateProfile merges the set fields and refreshes lastLoginAt
func (s *ProfileService) UpdateProfile(ctx context.Context, id string, fields domain.ProfileFields) error {
	update := docstore.Update{"lastLoginAt": docstore.ServerTimestamp()}
	if fields.DisplayName != nil {
		update["displayName"] = *fields.DisplayName
	}
	if fields.PhotoURL != nil {
		update["photoURL"] = *fields.PhotoURL
	}
	if fields.Bio != nil {
		update["bio"] = *fields.Bio
	}
	if fields.Username != nil {
		update["username"] = *fields.Username
	}

	return s.update(ctx, "update profile", id, update)
}

// UpdateSettings writes each set key as settings.<key>
func (s *ProfileService) UpdateSettings(ctx context.Context, id string, patch domain.SettingsPatch) error {
	update := docstore.Update{}
	if patch.NotificationsEnabled != nil {
		update["settings.notificationsEnabled"] = *patch.NotificationsEnabled
	}
	if patch.DarkModeEnabled != nil {
		update["settings.darkModeEnabled"] = *patch.DarkModeEnabled
	}
	if patch.EmailNotifications != nil {
		update["settings.emailNotifications"] = *patch.EmailNotifications
	}
	if patch.QuizDifficulty != nil {
		update["settings.quizDifficulty"] = string(*patch.QuizDifficulty)
	}
	if patch.Language != nil {
		update["settings.language"] = *patch.Language
	}
	if len(update) == 0 {
		return nil
	}

	return s.update(ctx, "update settings", id, update)
}

// TouchLastLogin stamps lastLoginAt and stats.lastActive with the server time
func (s *ProfileService) TouchLastLogin(ctx context.Context, id string) error {
	return s.update(ctx, "touch last login", id, docstore.Update{
		"lastLoginAt":      docstore.ServerTimestamp(),
		"stats.lastActive": docstore.ServerTimestamp(),
	})
}

// TouchActivity stamps stats.lastActive with the server time
func (s *ProfileService) TouchActivity(ctx context.Context, id string) error {
	return s.update(ctx, "touch activity", id, docstore.Update{
		"stats.lastActive": docstore.ServerTimestamp(),
	})
}

// AddFavorite adds wordID to the favorite set. stats.wordsFavorited only
// grows when the word was not already a favorite. Both fields change in one
// store update so concurrent adds count once.
func (s *ProfileService) AddFavorite(ctx context.Context, profileID, wordID string) bool {
	err := s.store.Update(ctx, ProfilesCollection, profileID, docstore.Update{
		"favoriteWordIds":      docstore.ArrayUnion(wordID),
		"stats.wordsFavorited": docstore.IncrementUnlessContains("favoriteWordIds", wordID, 1),
	})
	if err != nil {
		s.logFailure("add favorite", profileID, wordID, err)
		return false
	}
	return true
}

// RemoveFavorite removes wordID from the favorite set. The favorited count
// is left as is.
func (s *ProfileService) RemoveFavorite(ctx context.Context, profileID, wordID string) bool {
	err := s.store.Update(ctx, ProfilesCollection, profileID, docstore.Update{
		"favoriteWordIds": docstore.ArrayRemove(wordID),
	})
	if err != nil {
		s.logFailure("remove favorite", profileID, wordID, err)
		return false
	}
	return true
}

// RecordRecentView moves wordID to the front of the recent list and counts
// the view.
func (s *ProfileService) RecordRecentView(ctx context.Context, profileID, wordID string) bool {
	err := s.store.Update(ctx, ProfilesCollection, profileID, docstore.Update{
		"recentWordIds":     docstore.PushFront(wordID, domain.MaxRecentWords),
		"stats.wordsViewed": docstore.Increment(1),
		"stats.lastActive":  docstore.ServerTimestamp(),
	})
	if err != nil {
		s.logFailure("record recent view", profileID, wordID, err)
		return false
	}
	return true
}

// FavoriteWordIDs returns the favorite set, or an empty list on error
func (s *ProfileService) FavoriteWordIDs(ctx context.Context, profileID string) []string {
	profile, err := s.Get(ctx, profileID)
	if err != nil {
		s.logger.Warn("failed to load favorites", zap.String("user_id", profileID), zap.Error(err))
		return []string{}
	}
	return profile.FavoriteWordIDs
}

// RecentWordIDs returns the recent list, or an empty list on error
func (s *ProfileService) RecentWordIDs(ctx context.Context, profileID string) []string {
	profile, err := s.Get(ctx, profileID)
	if err != nil {
		s.logger.Warn("failed to load recent words", zap.String("user_id", profileID), zap.Error(err))
		return []string{}
	}
	return profile.RecentWordIDs
}

func (s *ProfileService) update(ctx context.Context, op, id string, update docstore.Update) error {
	if err := s.store.Update(ctx, ProfilesCollection, id, update); err != nil {
		return storeError(op, err)
	}
	return nil
}

func (s *ProfileService) logFailure(op, profileID, wordID string, err error) {
	s.failures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("op", op)))
	s.logger.Error("failed to "+op,
		zap.String("user_id", profileID),
		zap.String("word_id", wordID),
		zap.Error(err),
	)
}

// storeError maps docstore errors to domain errors
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return fmt.Errorf("%s: %w", op, domain.ErrProfileNotFound)
	case errors.Is(err, docstore.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

func encodeProfile(p *domain.Profile) (docstore.Document, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var doc docstore.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeProfile(doc docstore.Document) (*domain.Profile, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	p := &domain.Profile{}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, err
	}
	if p.FavoriteWordIDs == nil {
		p.FavoriteWordIDs = []string{}
	}
	if p.RecentWordIDs == nil {
		p.RecentWordIDs = []string{}
	}
	if p.Badges == nil {
		p.Badges = []domain.Badge{}
	}
	return p, nil
}
