package acceptance

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/prperemyshlev/slangdex/internal/domain"
	"github.com/prperemyshlev/slangdex/internal/dto"
)

func (s *Suite) do(method, path string, body any, token string) *http.Response {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.BaseURL+path, reader)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func decodeBody[T any](s *Suite, resp *http.Response) T {
	defer resp.Body.Close()
	var v T
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (s *Suite) register(email, password string) dto.AuthResponse {
	resp := s.do(http.MethodPost, "/api/v1/auth/register", dto.RegisterRequest{
		Email:       email,
		Password:    password,
		DisplayName: "Test User",
	}, "")
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	auth := decodeBody[dto.AuthResponse](s, resp)
	s.token = auth.AccessToken
	return auth
}

func (s *Suite) waitReady() dto.SessionResponse {
	var current dto.SessionResponse
	s.Require().Eventually(func() bool {
		current = decodeBody[dto.SessionResponse](s, s.do(http.MethodGet, "/api/v1/session", nil, ""))
		return current.State == "ready"
	}, 5*time.Second, 50*time.Millisecond)
	return current
}

func (s *Suite) TestRegister_Success() {
	auth := s.register("test@example.com", "Password123")

	s.NotEmpty(auth.AccessToken)
	s.Equal("Bearer", auth.TokenType)
	s.NotZero(auth.ExpiresIn)

	current := s.waitReady()
	s.Require().NotNil(current.User)
	s.Equal("test@example.com", current.User.Email)
	s.Equal("Test User", current.User.DisplayName)
	s.Equal(domain.QuizDifficultyMedium, current.User.Settings.QuizDifficulty)
}

func (s *Suite) TestRegister_DuplicateEmail() {
	s.register("duplicate@example.com", "Password123")

	resp := s.do(http.MethodPost, "/api/v1/auth/register", dto.RegisterRequest{
		Email:       "duplicate@example.com",
		Password:    "Password123",
		DisplayName: "Someone Else",
	}, "")
	s.Equal(http.StatusConflict, resp.StatusCode)

	errResp := decodeBody[dto.ErrorResponse](s, resp)
	s.Equal(string(domain.KindDuplicateIdentity), errResp.Kind)
}

func (s *Suite) TestRegister_InvalidEmail() {
	resp := s.do(http.MethodPost, "/api/v1/auth/register", dto.RegisterRequest{
		Email:       "invalid-email",
		Password:    "Password123",
		DisplayName: "Test User",
	}, "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func (s *Suite) TestLogin_Success() {
	s.register("login@example.com", "Password123")
	s.TearDownTest()

	resp := s.do(http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{
		Email:    "login@example.com",
		Password: "Password123",
	}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.NotEmpty(resp.Cookies(), "Should have refresh token cookie")

	auth := decodeBody[dto.AuthResponse](s, resp)
	s.token = auth.AccessToken
	s.NotEmpty(auth.AccessToken)

	current := s.waitReady()
	s.Equal("login@example.com", current.User.Email)
}

func (s *Suite) TestLogin_WrongPassword() {
	s.register("wrong@example.com", "Password123")
	s.TearDownTest()

	resp := s.do(http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{
		Email:    "wrong@example.com",
		Password: "NotThePassword1",
	}, "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	errResp := decodeBody[dto.ErrorResponse](s, resp)
	s.Equal(string(domain.KindInvalidCredential), errResp.Kind)
}

func (s *Suite) TestGuest() {
	resp := s.do(http.MethodPost, "/api/v1/auth/guest", nil, "")
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	auth := decodeBody[dto.AuthResponse](s, resp)
	s.token = auth.AccessToken

	current := s.waitReady()
	s.True(current.User.IsAnonymous)
	s.Contains(current.User.Username, "guest_")
}

func (s *Suite) TestFavorites() {
	s.register("lists@example.com", "Password123")
	s.waitReady()

	resp := s.do(http.MethodPut, "/api/v1/me/favorites/rizz", nil, s.token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	fav := decodeBody[dto.FavoriteResponse](s, resp)
	s.True(fav.IsFavorite)

	resp = s.do(http.MethodGet, "/api/v1/me/favorites", nil, s.token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	favorites := decodeBody[dto.WordListResponse](s, resp)
	s.Equal([]string{"rizz"}, favorites.WordIDs)

	resp = s.do(http.MethodDelete, "/api/v1/me/favorites/rizz", nil, s.token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	fav = decodeBody[dto.FavoriteResponse](s, resp)
	s.False(fav.IsFavorite)

	resp = s.do(http.MethodGet, "/api/v1/me", nil, s.token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	me := decodeBody[domain.Profile](s, resp)
	s.Empty(me.FavoriteWordIDs)
	s.EqualValues(1, me.Stats.WordsFavorited)
}

func (s *Suite) TestMe_RequiresToken() {
	resp := s.do(http.MethodGet, "/api/v1/me", nil, "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func (s *Suite) TestLogout() {
	s.register("logout@example.com", "Password123")
	s.waitReady()

	resp := s.do(http.MethodPost, "/api/v1/auth/logout", nil, s.token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	current := decodeBody[dto.SessionResponse](s, s.do(http.MethodGet, "/api/v1/session", nil, ""))
	s.Equal("signed_out", current.State)
	s.Nil(current.User)

	// the revoked access token no longer authenticates
	resp = s.do(http.MethodGet, "/api/v1/me", nil, s.token)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
	s.token = ""
}
