package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prperemyshlev/slangdex/internal/domain"
	"github.com/prperemyshlev/slangdex/internal/utils"
	"github.com/prperemyshlev/slangdex/pkg/blobstore"
	"github.com/prperemyshlev/slangdex/pkg/observability"
	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// backgroundWriteTimeout bounds best-effort timestamp writes, including the
// ones still running when the manager is closed
const backgroundWriteTimeout = 10 * time.Second

// Options configures a Manager
type Options struct {
	// RetryUnit scales the degraded retry backoff: retry n waits n*3*RetryUnit.
	RetryUnit  time.Duration
	MaxRetries int
	Clock      clockwork.Clock
	Logger     *zap.Logger
}

// pendingEvent is an identity event held back while a register or guest
// sign-in creates the profile itself
type pendingEvent struct {
	epoch    uint64
	identity *domain.Identity
}

// Manager owns the current user. Identity events are handled in emission
// order; each starts a new epoch and results of older epochs are dropped.
type Manager struct {
	provider IdentityProvider
	profiles ProfileStore
	uploader Uploader
	opts     Options
	clock    clockwork.Clock
	logger   *zap.Logger
	policy   *bluemonday.Policy

	transitions metric.Int64Counter

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// opMu serializes auth operations
	opMu sync.Mutex

	mu         sync.Mutex
	snap       Snapshot
	epoch      uint64
	retries    int
	retryTimer clockwork.Timer
	creating   bool
	deferred   *pendingEvent
	closed     bool
	subs       []*subscriber

	dispatch    *dispatcher
	wg          sync.WaitGroup
	unsubscribe func()
}

// NewManager creates the manager and subscribes to provider identity events.
// uploader may be nil, which disables UpdatePhoto.
func NewManager(provider IdentityProvider, profiles ProfileStore, uploader Uploader, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RetryUnit <= 0 {
		opts.RetryUnit = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		provider: provider,
		profiles: profiles,
		uploader: uploader,
		opts:     opts,
		clock:    opts.Clock,
		logger:   opts.Logger.Named("session"),
		policy:   bluemonday.StrictPolicy(),
		transitions: observability.Int64Counter("slangdex/session", "slangdex_session_transitions_total",
			"Session state transitions"),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		snap:     Snapshot{State: Uninitialized},
		dispatch: newDispatcher(),
	}

	m.unsubscribe = provider.OnIdentityChanged(m.onIdentity)
	return m
}

// Current returns the latest snapshot
func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Subscribe calls fn with the current snapshot and then with every change,
// in order, from a single goroutine. fn must not block for long.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	sub := &subscriber{fn: fn}
	sub.active.Store(true)

	m.mu.Lock()
	m.subs = append(m.subs, sub)
	m.dispatch.enqueue(m.snap, []*subscriber{sub})
	m.mu.Unlock()

	return func() {
		sub.active.Store(false)
		m.mu.Lock()
		defer m.mu.Unlock()
		m.subs = slices.DeleteFunc(m.subs, func(s *subscriber) bool { return s == sub })
	}
}

// Observe streams snapshots until ctx is done or the manager is closed. A
// slow reader only sees the latest snapshot; order is kept.
func (m *Manager) Observe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	var mu sync.Mutex
	closed := false

	unsubscribe := m.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case <-ch:
		default:
		}
		ch <- s
	})

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		unsubscribe()
		close(ch)
		return ch
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		select {
		case <-ctx.Done():
		case <-m.done:
		}
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()

	return ch
}

// Register creates an email identity and its profile. The profile exists
// when Register returns without error.
func (m *Manager) Register(ctx context.Context, email, password, displayName string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return authError(domain.KindInvalidInput, msgFillAllFields, domain.ErrInvalidInput)
	}
	displayName = strings.TrimSpace(m.policy.Sanitize(displayName))

	m.opMu.Lock()
	defer m.opMu.Unlock()

	return m.createWithProfile(ctx, func() (*domain.Identity, error) {
		id, err := m.provider.CreateIdentity(ctx, email, password)
		if err != nil {
			return nil, mapRegisterError(err)
		}
		if displayName != "" {
			if err := m.provider.UpdateIdentityProfile(ctx, domain.IdentityFields{DisplayName: &displayName}); err != nil {
				m.logger.Warn("failed to set display name", zap.String("user_id", id.ID), zap.Error(err))
			}
			id.DisplayName = displayName
		}
		return id, nil
	})
}

// LoginAsGuest signs in a new anonymous identity with a guest profile
func (m *Manager) LoginAsGuest(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	return m.createWithProfile(ctx, func() (*domain.Identity, error) {
		id, err := m.provider.CreateAnonymousIdentity(ctx)
		if err != nil {
			return nil, mapGuestError(err)
		}
		return id, nil
	})
}

// Login authenticates. The resulting identity event loads the profile.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return authError(domain.KindInvalidInput, msgFillAllFields, domain.ErrInvalidInput)
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	id, err := m.provider.Authenticate(ctx, email, password)
	if err != nil {
		return mapLoginError(err)
	}

	m.background("touch last login", id.ID, m.profiles.TouchLastLogin)
	return nil
}

// Restore resumes the identity a refresh token belongs to
func (m *Manager) Restore(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return authError(domain.KindInvalidCredential, "Your session has expired. Please sign in again.", domain.ErrInvalidInput)
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	id, err := m.provider.Restore(ctx, refreshToken)
	if err != nil {
		return mapRestoreError(err)
	}

	m.background("touch last login", id.ID, m.profiles.TouchLastLogin)
	return nil
}

// Logout signs out at the provider. The current user is cleared whatever
// the outcome.
func (m *Manager) Logout(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if id := m.Current().Identity; id != nil {
		m.background("touch activity", id.ID, m.profiles.TouchActivity)
	}

	err := m.provider.SignOut(ctx)

	m.mu.Lock()
	m.epoch++
	m.stopRetryLocked()
	m.deferred = nil
	m.setLocked(SignedOut, nil, nil)
	m.mu.Unlock()

	if err != nil {
		return mapLogoutError(err)
	}
	return nil
}

// UpdateProfile merges fields into the current profile. Display name and
// photo are mirrored to the identity provider.
func (m *Manager) UpdateProfile(ctx context.Context, fields domain.ProfileFields) error {
	snap := m.Current()
	if snap.User == nil || snap.Identity == nil {
		return mapStoreError(domain.ErrNotSignedIn)
	}

	if fields.DisplayName != nil {
		fields.DisplayName = ptr(strings.TrimSpace(m.policy.Sanitize(*fields.DisplayName)))
	}
	if fields.Bio != nil {
		fields.Bio = ptr(strings.TrimSpace(m.policy.Sanitize(*fields.Bio)))
	}
	if fields.Username != nil && !utils.ValidateUsername(*fields.Username) {
		return authError(domain.KindInvalidInput,
			"Usernames are 3 to 30 letters, digits, dots or underscores.", domain.ErrInvalidInput)
	}
	if fields.Empty() {
		return nil
	}

	uid := snap.Identity.ID
	if err := m.profiles.UpdateProfile(ctx, uid, fields); err != nil {
		return mapStoreError(err)
	}

	if fields.DisplayName != nil || fields.PhotoURL != nil {
		err := m.provider.UpdateIdentityProfile(ctx, domain.IdentityFields{
			DisplayName: fields.DisplayName,
			PhotoURL:    fields.PhotoURL,
		})
		if err != nil {
			m.logger.Warn("failed to mirror profile to identity", zap.String("user_id", uid), zap.Error(err))
		}
	}

	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap.User == nil || m.snap.Identity == nil || m.snap.Identity.ID != uid {
		return nil
	}
	user := m.snap.User.Clone()
	fields.ApplyTo(user)
	user.LastLoginAt = now
	identity := *m.snap.Identity
	if fields.DisplayName != nil {
		identity.DisplayName = *fields.DisplayName
	}
	if fields.PhotoURL != nil {
		identity.PhotoURL = *fields.PhotoURL
	}
	m.setLocked(m.snap.State, user, &identity)
	return nil
}

// UpdateSettings applies patch to the current profile's settings
func (m *Manager) UpdateSettings(ctx context.Context, patch domain.SettingsPatch) error {
	snap := m.Current()
	if snap.User == nil {
		return mapStoreError(domain.ErrNotSignedIn)
	}
	if patch.QuizDifficulty != nil && !patch.QuizDifficulty.Valid() {
		return authError(domain.KindInvalidInput, "Quiz difficulty must be easy, medium or hard.", domain.ErrInvalidInput)
	}
	if patch.Empty() {
		return nil
	}

	uid := snap.User.ID
	if err := m.profiles.UpdateSettings(ctx, uid, patch); err != nil {
		return mapStoreError(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap.User == nil || m.snap.User.ID != uid {
		return nil
	}
	user := m.snap.User.Clone()
	patch.ApplyTo(&user.Settings)
	m.setLocked(m.snap.State, user, m.snap.Identity)
	return nil
}

// UpdatePhoto uploads a new profile photo and stores its URL on the profile
func (m *Manager) UpdatePhoto(ctx context.Context, r io.Reader, size int64, progress blobstore.ProgressFunc) (string, error) {
	snap := m.Current()
	if snap.User == nil {
		return "", mapStoreError(domain.ErrNotSignedIn)
	}
	if m.uploader == nil {
		return "", authError(domain.KindOperationDisabled, "Photo uploads are not available.", nil)
	}

	objectPath := fmt.Sprintf("profile_images/profile_%s_%s", snap.User.ID, ksuid.New().String())
	url, err := m.uploader.Upload(ctx, objectPath, r, size, progress)
	if err != nil {
		m.logger.Error("failed to upload profile photo", zap.String("user_id", snap.User.ID), zap.Error(err))
		return "", authError(domain.KindUnknown, "Failed to upload image. Please try again.", err)
	}

	if err := m.UpdateProfile(ctx, domain.ProfileFields{PhotoURL: &url}); err != nil {
		return "", err
	}
	return url, nil
}

// AddFavorite marks wordID as a favorite of the current user. The local
// profile changes at once and is reverted if the store write fails.
func (m *Manager) AddFavorite(ctx context.Context, wordID string) bool {
	return m.optimistic(func(p *domain.Profile) bool {
		if p.IsFavorite(wordID) {
			return false
		}
		p.FavoriteWordIDs = append(p.FavoriteWordIDs, wordID)
		p.Stats.WordsFavorited++
		return true
	}, func(uid string) bool {
		return m.profiles.AddFavorite(ctx, uid, wordID)
	})
}

// RemoveFavorite removes wordID from the current user's favorites
func (m *Manager) RemoveFavorite(ctx context.Context, wordID string) bool {
	return m.optimistic(func(p *domain.Profile) bool {
		if !p.IsFavorite(wordID) {
			return false
		}
		p.FavoriteWordIDs = slices.DeleteFunc(p.FavoriteWordIDs, func(id string) bool { return id == wordID })
		return true
	}, func(uid string) bool {
		return m.profiles.RemoveFavorite(ctx, uid, wordID)
	})
}

// RecordView puts wordID at the front of the current user's recent words
func (m *Manager) RecordView(ctx context.Context, wordID string) bool {
	now := m.clock.Now()
	return m.optimistic(func(p *domain.Profile) bool {
		p.RecentWordIDs = domain.PushRecent(p.RecentWordIDs, wordID)
		p.Stats.WordsViewed++
		p.Stats.LastActive = now
		return true
	}, func(uid string) bool {
		return m.profiles.RecordRecentView(ctx, uid, wordID)
	})
}

// IsFavorite reports whether wordID is a favorite of the current user
func (m *Manager) IsFavorite(wordID string) bool {
	snap := m.Current()
	return snap.User != nil && snap.User.IsFavorite(wordID)
}

// Close stops retries, cancels pending profile fetches, waits for background
// writes and stops delivering snapshots. It is safe to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.stopRetryLocked()
	m.mu.Unlock()

	m.unsubscribe()
	m.cancel()
	close(m.done)
	m.wg.Wait()
	m.dispatch.close()
}

// onIdentity is the provider listener. It runs on the provider's goroutine
// and never blocks on store calls.
func (m *Manager) onIdentity(id *domain.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.epoch++
	m.retries = 0
	m.stopRetryLocked()
	m.deferred = nil

	if id == nil {
		m.setLocked(SignedOut, nil, nil)
		return
	}

	var keep *domain.Profile
	if m.snap.User != nil && m.snap.User.ID == id.ID {
		keep = m.snap.User
	}
	m.setLocked(Resolving, keep, id)

	if m.creating {
		m.deferred = &pendingEvent{epoch: m.epoch, identity: id}
		return
	}

	m.startFetchLocked(m.epoch, *id)
}

// createWithProfile runs create, which must emit the new identity, and then
// writes the profile itself instead of letting the identity event fetch it.
func (m *Manager) createWithProfile(ctx context.Context, create func() (*domain.Identity, error)) error {
	m.mu.Lock()
	m.creating = true
	m.mu.Unlock()

	id, err := create()
	if err != nil {
		m.mu.Lock()
		m.creating = false
		if d := m.deferred; d != nil && d.epoch == m.epoch {
			m.startFetchLocked(d.epoch, *d.identity)
		}
		m.deferred = nil
		m.mu.Unlock()
		return err
	}

	profile := domain.NewProfile(*id, m.clock.Now())
	storeErr := m.profiles.Create(ctx, profile)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.creating = false
	d := m.deferred
	m.deferred = nil

	if d == nil || d.epoch != m.epoch {
		// the event has not arrived yet or was superseded; it fetches on its own
		if storeErr != nil {
			return m.registerStoreError(storeErr)
		}
		return nil
	}
	if d.identity.ID != id.ID {
		m.startFetchLocked(d.epoch, *d.identity)
		return m.registerStoreError(storeErr)
	}

	switch {
	case storeErr == nil:
		m.retries = 0
		m.setLocked(Ready, profile, id)
		return nil
	case errors.Is(storeErr, domain.ErrStoreUnavailable):
		m.degradeLocked(d.epoch, *id)
	default:
		m.logger.Error("failed to create profile", zap.String("user_id", id.ID), zap.Error(storeErr))
		m.setLocked(SignedOut, nil, nil)
	}
	return m.registerStoreError(storeErr)
}

func (m *Manager) registerStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return authError(domain.KindNetworkUnavailable, msgProfileOffline, err)
	}
	return authError(domain.KindUnknown, "Failed to create your profile. Please try again.", err)
}

func (m *Manager) startFetchLocked(epoch uint64, id domain.Identity) {
	if m.closed {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.fetch(epoch, id)
	}()
}

// fetch loads or creates the profile of id and applies the result if epoch
// is still current
func (m *Manager) fetch(epoch uint64, id domain.Identity) {
	if !m.isCurrent(epoch) {
		return
	}

	profile, err := m.profiles.Get(m.ctx, id.ID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		profile = domain.NewProfile(id, m.clock.Now())
		err = m.profiles.Create(m.ctx, profile)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.epoch != epoch {
		m.logger.Debug("dropping stale profile fetch", zap.String("user_id", id.ID))
		return
	}

	switch {
	case err == nil:
		m.retries = 0
		m.setLocked(Ready, profile, &id)
	case errors.Is(err, domain.ErrStoreUnavailable):
		m.logger.Warn("profile store unavailable", zap.String("user_id", id.ID), zap.Int("retries", m.retries), zap.Error(err))
		m.degradeLocked(epoch, id)
	default:
		m.logger.Error("failed to resolve profile", zap.String("user_id", id.ID), zap.Error(err))
		m.setLocked(SignedOut, nil, nil)
	}
}

// degradeLocked publishes a stand-in profile and schedules the next retry
func (m *Manager) degradeLocked(epoch uint64, id domain.Identity) {
	user := m.snap.User
	if user == nil || user.ID != id.ID {
		user = domain.MinimalProfile(id, m.clock.Now())
	}
	m.setLocked(Degraded, user, &id)

	if m.closed {
		return
	}
	if m.retries >= m.opts.MaxRetries {
		m.logger.Warn("giving up on profile store until the next identity change", zap.String("user_id", id.ID))
		return
	}
	m.retries++
	delay := time.Duration(m.retries) * 3 * m.opts.RetryUnit

	m.wg.Add(1)
	m.retryTimer = m.clock.AfterFunc(delay, func() {
		defer m.wg.Done()
		m.mu.Lock()
		if m.epoch == epoch {
			m.retryTimer = nil
		}
		m.mu.Unlock()
		m.fetch(epoch, id)
	})
}

func (m *Manager) stopRetryLocked() {
	if m.retryTimer == nil {
		return
	}
	if m.retryTimer.Stop() {
		m.wg.Done()
	}
	m.retryTimer = nil
}

func (m *Manager) isCurrent(epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && m.epoch == epoch
}

// setLocked replaces the snapshot and queues it for subscribers
func (m *Manager) setLocked(state State, user *domain.Profile, identity *domain.Identity) {
	prev := m.snap
	if prev.State == state && prev.User == user && sameIdentity(prev.Identity, identity) {
		return
	}

	m.snap = Snapshot{State: state, User: user, Identity: identity}
	if prev.State != state {
		m.transitions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("state", state.String())))
		m.logger.Debug("session state changed",
			zap.Stringer("from", prev.State),
			zap.Stringer("to", state),
		)
	}

	m.dispatch.enqueue(m.snap, slices.Clone(m.subs))
}

// optimistic applies mutate to a copy of the current profile, publishes it,
// runs write and restores the previous profile if write fails and nothing
// else changed the profile meanwhile.
func (m *Manager) optimistic(mutate func(*domain.Profile) bool, write func(uid string) bool) bool {
	m.mu.Lock()
	prev := m.snap.User
	if prev == nil {
		m.mu.Unlock()
		return false
	}
	next := prev.Clone()
	changed := mutate(next)
	if changed {
		m.setLocked(m.snap.State, next, m.snap.Identity)
	}
	m.mu.Unlock()

	if write(prev.ID) {
		return true
	}

	if changed {
		m.mu.Lock()
		if m.snap.User == next {
			m.setLocked(m.snap.State, prev, m.snap.Identity)
		}
		m.mu.Unlock()
	}
	return false
}

// background runs a best-effort profile write that outlives the caller
func (m *Manager) background(op, uid string, fn func(ctx context.Context, id string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	// Close cancels m.ctx before waiting, which must not abort these writes
	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), backgroundWriteTimeout)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		if err := fn(ctx, uid); err != nil {
			m.logger.Warn("failed to "+op, zap.String("user_id", uid), zap.Error(err))
		}
	}()
}

func sameIdentity(a, b *domain.Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func ptr[T any](v T) *T {
	return &v
}
