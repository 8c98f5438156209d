package handler

import (
	"context"
	"io"

	"github.com/prperemyshlev/slangdex/internal/domain"
	"github.com/prperemyshlev/slangdex/internal/service"
	"github.com/prperemyshlev/slangdex/internal/session"
	"github.com/prperemyshlev/slangdex/pkg/blobstore"
)

// Session is the current user's session as the handlers use it
type Session interface {
	Current() session.Snapshot
	Observe(ctx context.Context) <-chan session.Snapshot
	Register(ctx context.Context, email, password, displayName string) error
	LoginAsGuest(ctx context.Context) error
	Login(ctx context.Context, email, password string) error
	Restore(ctx context.Context, refreshToken string) error
	Logout(ctx context.Context) error
	UpdateProfile(ctx context.Context, fields domain.ProfileFields) error
	UpdateSettings(ctx context.Context, patch domain.SettingsPatch) error
	UpdatePhoto(ctx context.Context, r io.Reader, size int64, progress blobstore.ProgressFunc) (string, error)
	AddFavorite(ctx context.Context, wordID string) bool
	RemoveFavorite(ctx context.Context, wordID string) bool
	RecordView(ctx context.Context, wordID string) bool
	IsFavorite(wordID string) bool
}

// TokenIssuer exposes the credentials of the current identity
type TokenIssuer interface {
	Credentials() *service.Credentials
	ValidateAccessToken(ctx context.Context, token string) (*domain.TokenClaims, error)
}

// WordFinder answers dictionary queries
type WordFinder interface {
	Search(ctx context.Context, query string) []*domain.Word
	Trending(limit int) []*domain.Word
	GetByID(ctx context.Context, id string) (*domain.Word, error)
}

// WordLists reads the stored favorite and recent word ids of a profile
type WordLists interface {
	FavoriteWordIDs(ctx context.Context, profileID string) []string
	RecentWordIDs(ctx context.Context, profileID string) []string
}

// Feed is the community feed
type Feed interface {
	ListPosts(viewerID string) []domain.Post
	CreatePost(ctx context.Context, author domain.Author, content string) (*domain.Post, error)
	ToggleLike(postID, userID string) (*domain.Post, error)
	TrendingTopics(limit int) []domain.Topic
}

// QuizCatalog serves quizzes
type QuizCatalog interface {
	List(category string) []domain.Quiz
	Featured() []domain.Quiz
	Get(id string) (*domain.Quiz, error)
}

var (
	_ Session     = (*session.Manager)(nil)
	_ TokenIssuer = (*service.IdentityService)(nil)
	_ WordFinder  = (*service.SearchService)(nil)
	_ WordLists   = (*service.ProfileService)(nil)
	_ Feed        = (*service.CommunityService)(nil)
	_ QuizCatalog = (*service.QuizService)(nil)
)
