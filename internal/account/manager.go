// Package account keeps the signed-in user, their profile and stats in
// step with the identity provider.
package account

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/mentalmath/internal/auth"
	"github.com/at-ishikawa/mentalmath/internal/profile"
	"github.com/at-ishikawa/mentalmath/internal/statecache"
	"github.com/at-ishikawa/mentalmath/internal/statistics"
)

//go:generate mockgen -source=manager.go -destination=../mocks/account/mock_account.go -package=mock_account ProfileService

// ProfileService is the part of profile.Service the manager needs.
type ProfileService interface {
	InitializeProfile(ctx context.Context, owner profile.Owner) (*profile.Profile, error)
	CalculateStats(ctx context.Context, userID string) (statistics.Summary, error)
	ClearLocal(userID string) error
}

type sessionRestorer interface {
	Restore(ctx context.Context, session auth.Session) (*auth.User, error)
	Session() *auth.Session
}

// State is what a front end renders for the current account.
type State struct {
	User    *auth.User
	Profile *profile.Profile
	Stats   statistics.Summary
	// Cached is true until the first refresh after Start completes.
	Cached bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithColorScheme sets the callback that applies a profile's color scheme.
func WithColorScheme(apply func(scheme string)) Option {
	return func(m *Manager) { m.applyColorScheme = apply }
}

// WithSessionFile persists the provider session to path so it survives
// restarts. The provider must support restoring sessions.
func WithSessionFile(path string) Option {
	return func(m *Manager) { m.sessionFile = path }
}

// WithDispatcher replaces the default goroutine used for refreshes. Auth
// changes are applied one at a time in the order the provider reported them.
func WithDispatcher(dispatch func(func())) Option {
	return func(m *Manager) { m.dispatch = dispatch }
}

// Manager reacts to auth state changes: it initializes and loads the
// profile, applies its color scheme, computes stats and caches all three.
type Manager struct {
	provider         auth.Provider
	profiles         ProfileService
	cache            *statecache.Cache
	logger           *zap.Logger
	applyColorScheme func(string)
	sessionFile      string
	dispatch         func(func())

	wg          sync.WaitGroup
	mu          sync.Mutex
	state       State
	offline     bool
	unsubscribe func()

	pending  []*auth.User
	draining bool
}

// NewManager creates a Manager. Call Start to begin tracking the provider.
func NewManager(provider auth.Provider, profiles ProfileService, cache *statecache.Cache, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		provider:         provider,
		profiles:         profiles,
		cache:            cache,
		logger:           logger,
		applyColorScheme: func(string) {},
	}
	m.dispatch = func(f func()) {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			f()
		}()
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start serves the cached state right away, restores a saved session and
// subscribes to auth changes. Each change refreshes in the background.
func (m *Manager) Start(ctx context.Context) State {
	cached := m.loadCached(ctx)
	m.mu.Lock()
	m.state = cached
	m.mu.Unlock()
	if cached.Profile != nil {
		m.applyColorScheme(cached.Profile.ColorScheme)
	}

	m.restoreSession(ctx)

	detached := context.WithoutCancel(ctx)
	m.unsubscribe = m.provider.OnAuthStateChange(func(user *auth.User) {
		m.enqueue(detached, user)
	})
	return cached
}

// enqueue queues an auth change and starts a drainer unless one is running.
func (m *Manager) enqueue(ctx context.Context, user *auth.User) {
	m.mu.Lock()
	m.pending = append(m.pending, user)
	if m.draining {
		m.mu.Unlock()
		return
	}
	m.draining = true
	m.mu.Unlock()

	m.dispatch(func() { m.drain(ctx) })
}

func (m *Manager) drain(ctx context.Context) {
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.draining = false
			m.mu.Unlock()
			return
		}
		user := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()

		m.handleAuthChange(ctx, user)
	}
}

// Wait blocks until dispatched refreshes have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close unsubscribes from the provider and waits for pending refreshes.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.Wait()
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) loadCached(ctx context.Context) State {
	var state State
	var user auth.User
	found, err := m.cache.Load(ctx, statecache.KeyUser, &user)
	if err != nil {
		m.logger.Warn("load cached user", zap.Error(err))
	}
	if !found {
		return state
	}
	state.User = &user
	state.Cached = true

	var p profile.Profile
	if found, err := m.cache.Load(ctx, statecache.KeyProfile, &p); err != nil {
		m.logger.Warn("load cached profile", zap.Error(err))
	} else if found && p.UserID == user.ID {
		state.Profile = &p
	}
	if _, err := m.cache.Load(ctx, statecache.KeyStats, &state.Stats); err != nil {
		m.logger.Warn("load cached stats", zap.Error(err))
	}
	return state
}

func (m *Manager) handleAuthChange(ctx context.Context, user *auth.User) {
	if user == nil {
		m.mu.Lock()
		signedIn := m.state.User != nil
		// the saved session could not be checked, keep serving the cache
		keep := m.offline
		m.offline = false
		m.mu.Unlock()
		if signedIn && !keep {
			m.clear(ctx)
		}
		return
	}

	m.saveSession()
	if err := m.cache.Store(ctx, statecache.KeyUser, user); err != nil {
		m.logger.Warn("cache user", zap.String("user_id", user.ID), zap.Error(err))
	}
	m.mu.Lock()
	if m.state.User == nil || m.state.User.ID != user.ID {
		m.state = State{}
	}
	m.state.User = user
	m.mu.Unlock()

	m.refresh(ctx, *user)
}

// Refresh reloads the profile and stats of the signed-in user.
func (m *Manager) Refresh(ctx context.Context) (State, error) {
	user := m.provider.CurrentUser()
	if user == nil {
		return State{}, &auth.Error{Kind: auth.KindUnauthenticated, Message: "not signed in"}
	}
	m.refresh(ctx, *user)
	return m.State(), nil
}

func (m *Manager) refresh(ctx context.Context, user auth.User) {
	p, err := m.profiles.InitializeProfile(ctx, profile.Owner{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	})
	if err != nil {
		m.logger.Warn("initialize profile", zap.String("user_id", user.ID), zap.Error(err))
	}
	stats, err := m.profiles.CalculateStats(ctx, user.ID)
	if err != nil {
		m.logger.Warn("calculate stats", zap.String("user_id", user.ID), zap.Error(err))
	}

	m.mu.Lock()
	if m.state.User == nil || m.state.User.ID != user.ID {
		// signed out or switched user while loading
		m.mu.Unlock()
		return
	}
	if p != nil {
		m.state.Profile = p
	}
	m.state.Stats = stats
	m.state.Cached = false
	m.mu.Unlock()

	if p != nil {
		m.applyColorScheme(p.ColorScheme)
		if err := m.cache.Store(ctx, statecache.KeyProfile, p); err != nil {
			m.logger.Warn("cache profile", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	if err := m.cache.Store(ctx, statecache.KeyStats, stats); err != nil {
		m.logger.Warn("cache stats", zap.String("user_id", user.ID), zap.Error(err))
	}
}

// SignOut ends the provider session and clears cached state. When the
// provider call fails the local state is wiped anyway, including the
// user's local profile copy, and the provider error is returned.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	var userID string
	if m.state.User != nil {
		userID = m.state.User.ID
	}
	m.mu.Unlock()

	signOutErr := m.provider.SignOut(ctx)
	if signOutErr != nil {
		m.logger.Warn("sign out failed, resetting local state", zap.Error(signOutErr))
		if userID != "" {
			if err := m.profiles.ClearLocal(userID); err != nil {
				m.logger.Warn("clear local profile", zap.String("user_id", userID), zap.Error(err))
			}
		}
	}
	m.clear(ctx)
	if signOutErr != nil {
		return fmt.Errorf("provider.SignOut() > %w", signOutErr)
	}
	return nil
}

func (m *Manager) clear(ctx context.Context) {
	m.mu.Lock()
	m.state = State{}
	m.mu.Unlock()

	if err := m.cache.Clear(ctx, statecache.KeyUser, statecache.KeyProfile, statecache.KeyStats); err != nil {
		m.logger.Warn("clear cached state", zap.Error(err))
	}
	if m.sessionFile != "" {
		if err := os.Remove(m.sessionFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("remove session file", zap.String("path", m.sessionFile), zap.Error(err))
		}
	}
	m.applyColorScheme(profile.DefaultColorScheme)
}

func (m *Manager) restoreSession(ctx context.Context) {
	restorer, ok := m.provider.(sessionRestorer)
	if !ok || m.sessionFile == "" {
		return
	}
	session, err := readSession(m.sessionFile)
	if err != nil {
		m.logger.Warn("read session file", zap.String("path", m.sessionFile), zap.Error(err))
		return
	}
	if session == nil || session.AccessToken == "" {
		return
	}
	if _, err := restorer.Restore(ctx, *session); err != nil {
		if auth.IsKind(err, auth.KindNetwork) {
			m.logger.Warn("restore session, using cached state", zap.Error(err))
			m.mu.Lock()
			m.offline = true
			m.mu.Unlock()
			return
		}
		m.logger.Info("saved session is no longer valid", zap.Error(err))
		m.clear(ctx)
	}
}

func (m *Manager) saveSession() {
	restorer, ok := m.provider.(sessionRestorer)
	if !ok || m.sessionFile == "" {
		return
	}
	session := restorer.Session()
	if session == nil {
		return
	}
	if err := writeSession(m.sessionFile, session); err != nil {
		m.logger.Warn("write session file", zap.String("path", m.sessionFile), zap.Error(err))
	}
}

func readSession(path string) (*auth.Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%s) > %w", path, err)
	}
	var session auth.Session
	if err := yaml.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal() > %w", err)
	}
	return &session, nil
}

func writeSession(path string, session *auth.Session) error {
	data, err := yaml.Marshal(session)
	if err != nil {
		return fmt.Errorf("yaml.Marshal() > %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("os.WriteFile(%s) > %w", path, err)
	}
	return nil
}
