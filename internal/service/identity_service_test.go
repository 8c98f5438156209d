package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prperemyshlev/slangdex/internal/domain"
	"github.com/prperemyshlev/slangdex/internal/repository"
	"github.com/prperemyshlev/slangdex/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
	next  int
	err   error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*domain.User)}
}

func (f *fakeUsers) Create(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, u := range f.users {
		if u.Email != nil && user.Email != nil && *u.Email == *user.Email {
			return fmt.Errorf("create: %w", repository.ErrDuplicateEmail)
		}
	}
	f.next++
	user.ID = fmt.Sprintf("user-%d", f.next)
	c := *user
	f.users[user.ID] = &c
	return nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email != nil && *u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, fmt.Errorf("get: %w", repository.ErrNotFound)
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("get: %w", repository.ErrNotFound)
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, id string, fields domain.IdentityFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if fields.DisplayName != nil {
		u.DisplayName = *fields.DisplayName
	}
	if fields.PhotoURL != nil {
		u.PhotoURL = *fields.PhotoURL
	}
	return nil
}

func (f *fakeUsers) UpdateLastLogin(ctx context.Context, userID string) error {
	return nil
}

func (f *fakeUsers) disable(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email != nil && *u.Email == email {
			u.IsActive = false
		}
	}
}

type fakeTokens struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func (f *fakeTokens) Create(ctx context.Context, token *domain.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *token
	f.tokens[token.TokenHash] = &c
	return nil
}

func (f *fakeTokens) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (f *fakeTokens) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[tokenHash]; !ok {
		return repository.ErrNotFound
	}
	delete(f.tokens, tokenHash)
	return nil
}

func (f *fakeTokens) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

type countingLimiter struct {
	mu       sync.Mutex
	failures map[string]int
}

func (l *countingLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failures[key] >= limit {
		return &RateLimitError{RetryAfter: window}
	}
	return nil
}

func (l *countingLimiter) Record(ctx context.Context, key string, window time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[key]++
	return nil
}

func (l *countingLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, key)
	return nil
}

type memoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (r *memoryRevocations) Revoke(ctx context.Context, ttl time.Duration, tokens ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range tokens {
		r.revoked[token] = ttl
	}
	return nil
}

func (r *memoryRevocations) IsRevoked(ctx context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[token]
	return ok, nil
}

type identityFixture struct {
	users   *fakeUsers
	tokens  *fakeTokens
	jwt     *utils.JWTManager
	revoked RevocationList
	opts    IdentityOptions
}

func newIdentityFixture() *identityFixture {
	return &identityFixture{
		users:  newFakeUsers(),
		tokens: &fakeTokens{tokens: make(map[string]*domain.RefreshToken)},
		jwt:    utils.NewJWTManager(strings.Repeat("k", 32), 15*time.Minute, 24*time.Hour, nil),
		opts: IdentityOptions{
			AllowPasswordSignup: true,
			AllowAnonymous:      true,
			BCryptCost:          4,
			LoginAttempts:       3,
			LoginWindow:         time.Minute,
		},
	}
}

func (f *identityFixture) service(t *testing.T) *IdentityService {
	limiter := &countingLimiter{failures: make(map[string]int)}
	return NewIdentityService(f.users, f.tokens, f.jwt, f.revoked, limiter, f.opts, clockwork.NewRealClock(), zaptest.NewLogger(t))
}

type recorder struct {
	mu     sync.Mutex
	events []*domain.Identity
}

func (r *recorder) listen(id *domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, id)
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for _, e := range r.events {
		if e == nil {
			out = append(out, "<nil>")
		} else {
			out = append(out, e.ID)
		}
	}
	return out
}

func TestIdentityService_CreateIdentity(t *testing.T) {
	svc := newIdentityFixture().service(t)
	ctx := context.Background()

	rec := &recorder{}
	unsubscribe := svc.OnIdentityChanged(rec.listen)
	defer unsubscribe()

	id, err := svc.CreateIdentity(ctx, " Amy@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "amy@example.com", id.Email)
	assert.False(t, id.IsAnonymous)
	assert.Equal(t, []string{"<nil>", id.ID}, rec.ids())

	creds := svc.Credentials()
	require.NotNil(t, creds)
	claims, err := svc.ValidateAccessToken(ctx, creds.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id.ID, claims.UserID)

	_, err = svc.CreateIdentity(ctx, "amy@example.com", "secret2")
	assert.Equal(t, domain.CodeEmailAlreadyInUse, domain.ProviderCode(err))
}

func TestIdentityService_CreateIdentityRejections(t *testing.T) {
	f := newIdentityFixture()
	svc := f.service(t)
	ctx := context.Background()

	_, err := svc.CreateIdentity(ctx, "not-an-email", "secret1")
	assert.Equal(t, domain.CodeInvalidEmail, domain.ProviderCode(err))

	_, err = svc.CreateIdentity(ctx, "amy@example.com", "abc")
	assert.Equal(t, domain.CodeWeakPassword, domain.ProviderCode(err))

	f.users.err = fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)
	_, err = svc.CreateIdentity(ctx, "amy@example.com", "secret1")
	assert.Equal(t, domain.CodeNetworkRequestFailed, domain.ProviderCode(err))

	f.opts.AllowPasswordSignup = false
	_, err = f.service(t).CreateIdentity(ctx, "amy@example.com", "secret1")
	assert.Equal(t, domain.CodeOperationNotAllowed, domain.ProviderCode(err))

	assert.Nil(t, svc.CurrentIdentity())
}

func TestIdentityService_Authenticate(t *testing.T) {
	f := newIdentityFixture()
	svc := f.service(t)
	ctx := context.Background()

	created, err := svc.CreateIdentity(ctx, "amy@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx))
	assert.Nil(t, svc.CurrentIdentity())

	id, err := svc.Authenticate(ctx, "AMY@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, id.ID)

	_, err = svc.Authenticate(ctx, "amy@example.com", "wrong-password")
	assert.Equal(t, domain.CodeInvalidCredential, domain.ProviderCode(err))

	_, err = svc.Authenticate(ctx, "bo@example.com", "secret1")
	assert.Equal(t, domain.CodeInvalidCredential, domain.ProviderCode(err))

	f.users.disable("amy@example.com")
	_, err = svc.Authenticate(ctx, "amy@example.com", "secret1")
	assert.Equal(t, domain.CodeUserDisabled, domain.ProviderCode(err))

	// third rejected attempt for the same address within the window
	_, err = svc.Authenticate(ctx, "amy@example.com", "wrong-password")
	assert.Equal(t, domain.CodeInvalidCredential, domain.ProviderCode(err))

	_, err = svc.Authenticate(ctx, "amy@example.com", "secret1")
	assert.Equal(t, domain.CodeTooManyRequests, domain.ProviderCode(err))
}

func TestIdentityService_OnlyFailedLoginsCount(t *testing.T) {
	f := newIdentityFixture()
	svc := f.service(t)
	ctx := context.Background()

	_, err := svc.CreateIdentity(ctx, "amy@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx))

	for range f.opts.LoginAttempts + 2 {
		_, err := svc.Authenticate(ctx, "amy@example.com", "secret1")
		require.NoError(t, err)
		require.NoError(t, svc.SignOut(ctx))
	}

	// a success clears earlier failures
	for range f.opts.LoginAttempts - 1 {
		_, err := svc.Authenticate(ctx, "amy@example.com", "nope-nope")
		assert.Equal(t, domain.CodeInvalidCredential, domain.ProviderCode(err))
	}
	_, err = svc.Authenticate(ctx, "amy@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx))

	for range f.opts.LoginAttempts {
		_, err := svc.Authenticate(ctx, "amy@example.com", "nope-nope")
		assert.Equal(t, domain.CodeInvalidCredential, domain.ProviderCode(err))
	}
	_, err = svc.Authenticate(ctx, "amy@example.com", "secret1")
	assert.Equal(t, domain.CodeTooManyRequests, domain.ProviderCode(err))
}

func TestIdentityService_Anonymous(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()

	id, err := f.service(t).CreateAnonymousIdentity(ctx)
	require.NoError(t, err)
	assert.True(t, id.IsAnonymous)
	assert.Empty(t, id.Email)

	f.opts.AllowAnonymous = false
	_, err = f.service(t).CreateAnonymousIdentity(ctx)
	assert.Equal(t, domain.CodeOperationNotAllowed, domain.ProviderCode(err))
}

func TestIdentityService_RestoreRotatesRefreshToken(t *testing.T) {
	f := newIdentityFixture()
	ctx := context.Background()

	first := f.service(t)
	created, err := first.CreateIdentity(ctx, "amy@example.com", "secret1")
	require.NoError(t, err)
	refresh := first.Credentials().RefreshToken

	relaunched := f.service(t)
	rec := &recorder{}
	defer relaunched.OnIdentityChanged(rec.listen)()

	id, err := relaunched.Restore(ctx, refresh)
	require.NoError(t, err)
	assert.Equal(t, created.ID, id.ID)
	assert.Equal(t, []string{"<nil>", created.ID}, rec.ids())
	assert.NotEqual(t, refresh, relaunched.Credentials().RefreshToken)

	_, err = f.service(t).Restore(ctx, refresh)
	assert.Equal(t, domain.CodeInvalidCredential, domain.ProviderCode(err))

	_, err = f.service(t).Restore(ctx, "garbage")
	assert.Equal(t, domain.CodeInvalidCredential, domain.ProviderCode(err))
}

func TestIdentityService_SignOutRevokesTokens(t *testing.T) {
	f := newIdentityFixture()
	revocations := &memoryRevocations{revoked: make(map[string]time.Duration)}
	f.revoked = revocations
	ctx := context.Background()

	svc := f.service(t)
	_, err := svc.CreateIdentity(ctx, "amy@example.com", "secret1")
	require.NoError(t, err)
	creds := svc.Credentials()

	_, err = svc.ValidateAccessToken(ctx, creds.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx))
	assert.Nil(t, svc.CurrentIdentity())
	assert.Len(t, revocations.revoked, 2)

	_, err = svc.ValidateAccessToken(ctx, creds.AccessToken)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)

	_, err = svc.Restore(ctx, creds.RefreshToken)
	assert.Equal(t, domain.CodeInvalidCredential, domain.ProviderCode(err))
}

func TestIdentityService_UpdateIdentityProfileDoesNotEmit(t *testing.T) {
	svc := newIdentityFixture().service(t)
	ctx := context.Background()

	err := svc.UpdateIdentityProfile(ctx, domain.IdentityFields{})
	assert.Equal(t, domain.CodeNoCurrentUser, domain.ProviderCode(err))

	_, err = svc.CreateIdentity(ctx, "amy@example.com", "secret1")
	require.NoError(t, err)

	rec := &recorder{}
	defer svc.OnIdentityChanged(rec.listen)()

	name := "Amy"
	require.NoError(t, svc.UpdateIdentityProfile(ctx, domain.IdentityFields{DisplayName: &name}))
	assert.Equal(t, "Amy", svc.CurrentIdentity().DisplayName)
	assert.Len(t, rec.ids(), 1)
}

func TestIdentityService_UnsubscribeStopsEvents(t *testing.T) {
	svc := newIdentityFixture().service(t)
	ctx := context.Background()

	rec := &recorder{}
	unsubscribe := svc.OnIdentityChanged(rec.listen)
	unsubscribe()

	_, err := svc.CreateAnonymousIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"<nil>"}, rec.ids())
}
