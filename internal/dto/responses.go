package dto

import (
	"github.com/prperemyshlev/slangdex/internal/domain"
	"github.com/prperemyshlev/slangdex/internal/session"
	"github.com/prperemyshlev/slangdex/internal/service"
)

// SessionResponse is the public form of a session snapshot
type SessionResponse struct {
	State    string           `json:"state"`
	User     *domain.Profile  `json:"user"`
	Identity *domain.Identity `json:"identity,omitempty"`
}

// NewSessionResponse converts a snapshot
func NewSessionResponse(s session.Snapshot) SessionResponse {
	return SessionResponse{
		State:    s.State.String(),
		User:     s.User,
		Identity: s.Identity,
	}
}

// AuthResponse represents an authentication response. The session may still
// be resolving the profile when it is sent.
type AuthResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int             `json:"expires_in"`
	Session     SessionResponse `json:"session"`
}

// NewAuthResponse builds the response from issued credentials
func NewAuthResponse(creds *service.Credentials, snap session.Snapshot) AuthResponse {
	resp := AuthResponse{Session: NewSessionResponse(snap)}
	if creds != nil {
		resp.AccessToken = creds.AccessToken
		resp.TokenType = creds.TokenType
		resp.ExpiresIn = creds.ExpiresIn
	}
	return resp
}

// WordsResponse is a list of dictionary entries
type WordsResponse struct {
	Words []*domain.Word `json:"words"`
	Count int            `json:"count"`
}

func NewWordsResponse(words []*domain.Word) WordsResponse {
	if words == nil {
		words = []*domain.Word{}
	}
	return WordsResponse{Words: words, Count: len(words)}
}

// WordListResponse pairs stored word ids with the resolved words
type WordListResponse struct {
	WordIDs []string       `json:"wordIds"`
	Words   []*domain.Word `json:"words"`
}

// FavoriteResponse reports the favorite state of one word
type FavoriteResponse struct {
	WordID     string `json:"wordId"`
	IsFavorite bool   `json:"isFavorite"`
}

// PhotoResponse carries the URL of an uploaded profile photo
type PhotoResponse struct {
	PhotoURL string `json:"photoURL"`
}

type PostsResponse struct {
	Posts []domain.Post `json:"posts"`
}

type TopicsResponse struct {
	Topics []domain.Topic `json:"topics"`
}

type QuizzesResponse struct {
	Quizzes []domain.Quiz `json:"quizzes"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response. Kind is set for session
// errors so clients can branch without parsing the message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}
