package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prperemyshlev/slangdex/internal/domain"
	"github.com/prperemyshlev/slangdex/internal/repository"
	"github.com/prperemyshlev/slangdex/internal/utils"
	"github.com/prperemyshlev/slangdex/pkg/database"
	"go.uber.org/zap"
)

// IdentityOptions configures which sign-in methods are accepted
type IdentityOptions struct {
	AllowPasswordSignup bool
	AllowAnonymous      bool
	BCryptCost          int
	LoginAttempts       int
	LoginWindow         time.Duration
}

// IdentityService is the identity provider. It owns the process-wide current
// identity and notifies listeners of every change in order.
type IdentityService struct {
	userRepo   repository.UserRepository
	tokenRepo  repository.TokenRepository
	jwtManager *utils.JWTManager
	revoked    RevocationList
	limiter    FailureLimiter
	opts       IdentityOptions
	clock      clockwork.Clock
	logger     *zap.Logger

	// emitMu orders identity changes with listener delivery
	emitMu      sync.Mutex
	current     *domain.Identity
	credentials *Credentials
	listeners   map[int]func(*domain.Identity)
	nextID      int
}

// NewIdentityService creates a new identity service. revoked and limiter may be nil.
func NewIdentityService(
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	jwtManager *utils.JWTManager,
	revoked RevocationList,
	limiter FailureLimiter,
	opts IdentityOptions,
	clock clockwork.Clock,
	logger *zap.Logger,
) *IdentityService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtManager: jwtManager,
		revoked:    revoked,
		limiter:    limiter,
		opts:       opts,
		clock:      clock,
		logger:     logger,
		listeners:  make(map[int]func(*domain.Identity)),
	}
}

// OnIdentityChanged calls listener with the current identity (nil when
// signed out) and then on every change. Listeners are called synchronously
// and must not block or call back into the service.
func (s *IdentityService) OnIdentityChanged(listener func(*domain.Identity)) (unsubscribe func()) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	listener(cloneIdentity(s.current))

	return func() {
		s.emitMu.Lock()
		defer s.emitMu.Unlock()
		delete(s.listeners, id)
	}
}

// CurrentIdentity returns the signed in identity or nil
func (s *IdentityService) CurrentIdentity() *domain.Identity {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	return cloneIdentity(s.current)
}

// Credentials returns the tokens of the current identity or nil
func (s *IdentityService) Credentials() *Credentials {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.credentials == nil {
		return nil
	}
	c := *s.credentials
	return &c
}

// CreateIdentity registers an email/password identity and signs it in
func (s *IdentityService) CreateIdentity(ctx context.Context, email, password string) (*domain.Identity, error) {
	if !s.opts.AllowPasswordSignup {
		return nil, domain.NewProviderError(domain.CodeOperationNotAllowed, nil)
	}

	email = utils.SanitizeEmail(email)
	if !utils.ValidateEmail(email) {
		return nil, domain.NewProviderError(domain.CodeInvalidEmail, nil)
	}
	if !utils.ValidatePassword(password) {
		return nil, domain.NewProviderError(domain.CodeWeakPassword,
			fmt.Errorf("password must be at least %d characters long", utils.MinPasswordLength))
	}

	passwordHash, err := utils.HashPassword(password, s.opts.BCryptCost)
	if err != nil {
		return nil, domain.NewProviderError(domain.CodeInternal, err)
	}

	now := s.clock.Now()
	user := &domain.User{
		Email:        &email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastLoginAt:  &now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, domain.NewProviderError(domain.CodeEmailAlreadyInUse, err)
		}
		return nil, classify(err)
	}

	return s.signIn(ctx, user)
}

// Authenticate signs in an existing email/password identity. Only rejected
// attempts count towards the login limit; a successful sign-in clears them.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*domain.Identity, error) {
	email = utils.SanitizeEmail(email)
	if !utils.ValidateEmail(email) {
		return nil, domain.NewProviderError(domain.CodeInvalidEmail, nil)
	}

	if err := s.checkAttempts(ctx, email); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordFailure(ctx, email)
			return nil, domain.NewProviderError(domain.CodeInvalidCredential, err)
		}
		return nil, classify(err)
	}

	if err := utils.ComparePassword(password, user.PasswordHash); err != nil {
		s.recordFailure(ctx, email)
		return nil, domain.NewProviderError(domain.CodeInvalidCredential, err)
	}

	if !user.IsActive {
		s.recordFailure(ctx, email)
		return nil, domain.NewProviderError(domain.CodeUserDisabled, nil)
	}

	s.resetAttempts(ctx, email)

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	return s.signIn(ctx, user)
}

// CreateAnonymousIdentity creates and signs in a guest identity
func (s *IdentityService) CreateAnonymousIdentity(ctx context.Context) (*domain.Identity, error) {
	if !s.opts.AllowAnonymous {
		return nil, domain.NewProviderError(domain.CodeOperationNotAllowed, nil)
	}

	now := s.clock.Now()
	user := &domain.User{
		IsAnonymous: true,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLoginAt: &now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, classify(err)
	}

	return s.signIn(ctx, user)
}

// Restore resumes the identity a refresh token was issued to. The token is
// rotated.
func (s *IdentityService) Restore(ctx context.Context, refreshToken string) (*domain.Identity, error) {
	userID, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, domain.NewProviderError(domain.CodeInvalidCredential, err)
	}

	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, refreshToken)
		if err != nil {
			return nil, classify(err)
		}
		if revoked {
			return nil, domain.NewProviderError(domain.CodeInvalidCredential, errors.New("refresh token is revoked"))
		}
	}

	tokenHash := hashToken(refreshToken)
	stored, err := s.tokenRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewProviderError(domain.CodeInvalidCredential, err)
		}
		return nil, classify(err)
	}
	if stored.UserID != userID || s.clock.Now().After(stored.ExpiresAt) {
		return nil, domain.NewProviderError(domain.CodeInvalidCredential, errors.New("refresh token expired"))
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewProviderError(domain.CodeUserNotFound, err)
		}
		return nil, classify(err)
	}
	if !user.IsActive {
		return nil, domain.NewProviderError(domain.CodeUserDisabled, nil)
	}

	s.revoke(ctx, refreshToken)

	return s.signIn(ctx, user)
}

// SignOut revokes the current refresh token and clears the current identity.
// The identity is cleared even when revocation fails.
func (s *IdentityService) SignOut(ctx context.Context) error {
	creds := s.Credentials()

	var err error
	if creds != nil {
		err = s.revoke(ctx, creds.RefreshToken, creds.AccessToken)
	}

	s.setCurrent(nil, nil)

	if err != nil {
		return classify(err)
	}
	return nil
}

// UpdateIdentityProfile changes the display name and photo of the current
// identity. Listeners are not notified.
func (s *IdentityService) UpdateIdentityProfile(ctx context.Context, fields domain.IdentityFields) error {
	current := s.CurrentIdentity()
	if current == nil {
		return domain.NewProviderError(domain.CodeNoCurrentUser, nil)
	}

	if err := s.userRepo.UpdateProfile(ctx, current.ID, fields); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewProviderError(domain.CodeUserNotFound, err)
		}
		return classify(err)
	}

	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.current != nil && s.current.ID == current.ID {
		if fields.DisplayName != nil {
			s.current.DisplayName = *fields.DisplayName
		}
		if fields.PhotoURL != nil {
			s.current.PhotoURL = *fields.PhotoURL
		}
	}
	return nil
}

// ValidateAccessToken validates an access token
func (s *IdentityService) ValidateAccessToken(ctx context.Context, token string) (*domain.TokenClaims, error) {
	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: token is revoked", utils.ErrInvalidToken)
		}
	}

	return s.jwtManager.ValidateToken(token)
}

func (s *IdentityService) signIn(ctx context.Context, user *domain.User) (*domain.Identity, error) {
	creds, err := s.issueCredentials(ctx, user)
	if err != nil {
		return nil, classify(err)
	}

	id := user.Identity()
	s.setCurrent(id, creds)
	return cloneIdentity(id), nil
}

func (s *IdentityService) setCurrent(id *domain.Identity, creds *Credentials) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.current = id
	s.credentials = creds

	for _, key := range sortedKeys(s.listeners) {
		s.listeners[key](cloneIdentity(id))
	}
}

// revoke deletes a refresh token and puts it, along with any access tokens
// issued next to it, on the revocation list
func (s *IdentityService) revoke(ctx context.Context, refreshToken string, accessTokens ...string) error {
	var errs []error

	if s.revoked != nil {
		tokens := append([]string{refreshToken}, accessTokens...)
		if err := s.revoked.Revoke(ctx, s.jwtManager.RefreshTokenExpiry(), tokens...); err != nil {
			s.logger.Warn("failed to revoke tokens", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if err := s.tokenRepo.DeleteByTokenHash(ctx, hashToken(refreshToken)); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("failed to delete refresh token", zap.Error(err))
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (s *IdentityService) checkAttempts(ctx context.Context, email string) error {
	if s.limiter == nil || s.opts.LoginAttempts <= 0 {
		return nil
	}

	err := s.limiter.Check(ctx, loginKey(email), s.opts.LoginAttempts, s.opts.LoginWindow)
	if err == nil {
		return nil
	}

	var limitErr *RateLimitError
	if errors.As(err, &limitErr) {
		return domain.NewProviderError(domain.CodeTooManyRequests, err)
	}

	// the limiter failing must not lock everyone out
	s.logger.Warn("login attempt limiter unavailable", zap.Error(err))
	return nil
}

func (s *IdentityService) recordFailure(ctx context.Context, email string) {
	if s.limiter == nil || s.opts.LoginAttempts <= 0 {
		return
	}
	if err := s.limiter.Record(ctx, loginKey(email), s.opts.LoginWindow); err != nil {
		s.logger.Warn("failed to record login failure", zap.Error(err))
	}
}

func (s *IdentityService) resetAttempts(ctx context.Context, email string) {
	if s.limiter == nil || s.opts.LoginAttempts <= 0 {
		return
	}
	if err := s.limiter.Reset(ctx, loginKey(email)); err != nil {
		s.logger.Warn("failed to reset login failures", zap.Error(err))
	}
}

func loginKey(email string) string {
	return "login:" + email
}

// classify maps infrastructure failures to provider codes
func classify(err error) error {
	if database.IsUnavailable(err) {
		return domain.NewProviderError(domain.CodeNetworkRequestFailed, err)
	}
	return domain.NewProviderError(domain.CodeInternal, err)
}

func cloneIdentity(id *domain.Identity) *domain.Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func sortedKeys(m map[int]func(*domain.Identity)) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
