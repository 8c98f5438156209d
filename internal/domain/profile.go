package domain

import (
	"fmt"
	"slices"
	"time"
)

// MaxRecentWords bounds Profile.RecentWordIDs
const MaxRecentWords = 10

const guestDisplayName = "Guest User"

type QuizDifficulty string

const (
	QuizDifficultyEasy   QuizDifficulty = "easy"
	QuizDifficultyMedium QuizDifficulty = "medium"
	QuizDifficultyHard   QuizDifficulty = "hard"
)

// Valid reports whether d is a known difficulty
func (d QuizDifficulty) Valid() bool {
	switch d {
	case QuizDifficultyEasy, QuizDifficultyMedium, QuizDifficultyHard:
		return true
	}
	return false
}

type Settings struct {
	NotificationsEnabled bool           `json:"notificationsEnabled"`
	DarkModeEnabled      bool           `json:"darkModeEnabled"`
	EmailNotifications   bool           `json:"emailNotifications"`
	QuizDifficulty       QuizDifficulty `json:"quizDifficulty"`
	Language             string         `json:"language"`
}

// DefaultSettings are applied to every new profile
func DefaultSettings() Settings {
	return Settings{
		NotificationsEnabled: true,
		DarkModeEnabled:      false,
		EmailNotifications:   true,
		QuizDifficulty:       QuizDifficultyMedium,
		Language:             "en",
	}
}

type Stats struct {
	WordsViewed    int64     `json:"wordsViewed"`
	WordsFavorited int64     `json:"wordsFavorited"`
	QuizzesTaken   int64     `json:"quizzesTaken"`
	QuizzesPassed  int64     `json:"quizzesPassed"`
	TotalScore     int64     `json:"totalScore"`
	StreakDays     int64     `json:"streakDays"`
	LastActive     time.Time `json:"lastActive"`
}

type Badge struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IconRef     string    `json:"iconRef"`
	DateEarned  time.Time `json:"dateEarned"`
}

// Profile is the application-owned document describing a user. It is keyed
// by the identity id and stored with these JSON field names, which are also
// the paths used for partial updates.
type Profile struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	DisplayName     string    `json:"displayName"`
	PhotoURL        string    `json:"photoURL"`
	Bio             string    `json:"bio"`
	Username        string    `json:"username"`
	IsAnonymous     bool      `json:"isAnonymous"`
	CreatedAt       time.Time `json:"createdAt"`
	LastLoginAt     time.Time `json:"lastLoginAt"`
	FavoriteWordIDs []string  `json:"favoriteWordIds"`
	RecentWordIDs   []string  `json:"recentWordIds"`
	Badges          []Badge   `json:"badges"`
	Stats           Stats     `json:"stats"`
	Settings        Settings  `json:"settings"`
}

// NewProfile builds the document created on the first handshake of an identity
func NewProfile(id Identity, now time.Time) *Profile {
	if id.IsAnonymous {
		return NewGuestProfile(id, now)
	}

	username := EmailLocalPart(id.Email)
	displayName := id.DisplayName
	if displayName == "" {
		displayName = username
	}

	p := emptyProfile(id, now)
	p.DisplayName = displayName
	p.Username = username
	return p
}

// NewGuestProfile builds the profile of an anonymous identity
func NewGuestProfile(id Identity, now time.Time) *Profile {
	p := emptyProfile(id, now)
	p.Email = ""
	p.DisplayName = guestDisplayName
	p.Username = GuestUsername(id.ID)
	p.IsAnonymous = true
	p.Settings.EmailNotifications = false
	return p
}

// MinimalProfile is the locally synthesized stand-in used while the profile
// store cannot be reached. It only uses identity fields.
func MinimalProfile(id Identity, now time.Time) *Profile {
	return NewProfile(id, now)
}

// GuestUsername derives the username of an anonymous identity
func GuestUsername(identityID string) string {
	prefix := identityID
	if len(prefix) > 6 {
		prefix = prefix[:6]
	}
	return fmt.Sprintf("guest_%s", prefix)
}

func emptyProfile(id Identity, now time.Time) *Profile {
	return &Profile{
		ID:              id.ID,
		Email:           id.Email,
		PhotoURL:        id.PhotoURL,
		IsAnonymous:     id.IsAnonymous,
		CreatedAt:       now,
		LastLoginAt:     now,
		FavoriteWordIDs: []string{},
		RecentWordIDs:   []string{},
		Badges:          []Badge{},
		Stats:           Stats{LastActive: now},
		Settings:        DefaultSettings(),
	}
}

// Clone returns a deep copy
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.FavoriteWordIDs = slices.Clone(p.FavoriteWordIDs)
	c.RecentWordIDs = slices.Clone(p.RecentWordIDs)
	c.Badges = slices.Clone(p.Badges)
	return &c
}

// IsFavorite reports whether wordID is in the favorite set
func (p *Profile) IsFavorite(wordID string) bool {
	return slices.Contains(p.FavoriteWordIDs, wordID)
}

// PushRecent moves wordID to the front of recent, dropping any earlier
// occurrence and anything past MaxRecentWords. recent is not modified.
func PushRecent(recent []string, wordID string) []string {
	out := make([]string, 0, MaxRecentWords)
	out = append(out, wordID)
	for _, id := range recent {
		if len(out) == MaxRecentWords {
			break
		}
		if id != wordID && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// ProfileFields is a partial update of the user-editable profile fields
type ProfileFields struct {
	DisplayName *string
	PhotoURL    *string
	Bio         *string
	Username    *string
}

// Empty reports whether no field is set
func (f ProfileFields) Empty() bool {
	return f.DisplayName == nil && f.PhotoURL == nil && f.Bio == nil && f.Username == nil
}

// ApplyTo copies the set fields onto p
func (f ProfileFields) ApplyTo(p *Profile) {
	if f.DisplayName != nil {
		p.DisplayName = *f.DisplayName
	}
	if f.PhotoURL != nil {
		p.PhotoURL = *f.PhotoURL
	}
	if f.Bio != nil {
		p.Bio = *f.Bio
	}
	if f.Username != nil {
		p.Username = *f.Username
	}
}

// SettingsPatch is a partial update of Settings
type SettingsPatch struct {
	NotificationsEnabled *bool
	DarkModeEnabled      *bool
	EmailNotifications   *bool
	QuizDifficulty       *QuizDifficulty
	Language             *string
}

// Empty reports whether no field is set
func (s SettingsPatch) Empty() bool {
	return s.NotificationsEnabled == nil && s.DarkModeEnabled == nil && s.EmailNotifications == nil &&
		s.QuizDifficulty == nil && s.Language == nil
}

// ApplyTo copies the set fields onto settings
func (s SettingsPatch) ApplyTo(settings *Settings) {
	if s.NotificationsEnabled != nil {
		settings.NotificationsEnabled = *s.NotificationsEnabled
	}
	if s.DarkModeEnabled != nil {
		settings.DarkModeEnabled = *s.DarkModeEnabled
	}
	if s.EmailNotifications != nil {
		settings.EmailNotifications = *s.EmailNotifications
	}
	if s.QuizDifficulty != nil {
		settings.QuizDifficulty = *s.QuizDifficulty
	}
	if s.Language != nil {
		settings.Language = *s.Language
	}
}
