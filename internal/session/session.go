// Package session owns the credential lifecycle: acquisition, persistence,
// silent refresh, expiry, and the hard session-age cap that applies
// independently of any single token's validity window.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mahipat62/khata-book/internal/kvstore"
)

// Session lifetime constants.
const (
	// maxSessionAge caps how long a session may live regardless of token
	// refreshes. Past this age the user must sign in interactively again.
	maxSessionAge = 7 * 24 * time.Hour
	// refreshBuffer is the safety margin before recorded token expiry. A
	// token inside the buffer is treated as already expired.
	refreshBuffer = 5 * time.Minute
	// defaultTokenLifetime is assumed when the provider reports no expiry.
	defaultTokenLifetime = time.Hour
)

// Durable storage keys (fixed names).
const (
	keyAccessToken  = "khata_access_token"
	keyTokenExpiry  = "khata_token_expiry"
	keyUser         = "khata_user"
	keySessionStart = "khata_session_start"
	keyRefreshToken = "khata_refresh_token"
)

// ErrNotAuthenticated is returned by Token when no valid session exists.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// State is the session lifecycle state.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	Refreshing
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	default:
		return "unauthenticated"
	}
}

// Session holds the credential context for one signed-in user. AccessToken
// non-empty implies TokenExpiry is set.
type Session struct {
	User         *Profile
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	SessionStart time.Time
}

// Manager owns Session exclusively: it acquires, persists, refreshes, and
// invalidates the credential needed for every remote call. All dependencies
// are explicit constructor arguments; there are no package-level handles.
type Manager struct {
	mu       sync.Mutex
	store    kvstore.Store
	provider TokenProvider
	logger   *slog.Logger

	sess  Session
	state State
	id    string // log correlation ID, assigned per sign-in

	refreshTimer *time.Timer

	// nowFunc returns the current time. Tests override it.
	nowFunc func() time.Time
}

// NewManager creates a session manager over the given durable store and
// credential provider.
func NewManager(store kvstore.Store, provider TokenProvider, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		store:    store,
		provider: provider,
		logger:   logger,
		state:    Unauthenticated,
		nowFunc:  time.Now,
	}
}

// Initialize attempts to restore a session from durable storage. A stored
// session older than the hard age cap is discarded. A stored token still
// inside its validity window (minus the refresh buffer) is adopted directly.
// An expired token triggers one silent refresh attempt; its failure is
// logged and swallowed — the state is simply left unauthenticated, no
// user-facing error is raised.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, tokenErr := m.store.Get(keyAccessToken)
	expiryRaw, expiryErr := m.store.Get(keyTokenExpiry)

	if tokenErr != nil || expiryErr != nil {
		m.logger.Debug("no stored session to restore")
		return nil
	}

	now := m.nowFunc()

	sessionStart := now
	if startRaw, err := m.store.Get(keySessionStart); err == nil {
		if ms, parseErr := strconv.ParseInt(startRaw, 10, 64); parseErr == nil {
			sessionStart = time.UnixMilli(ms)
		}
	}

	if now.After(sessionStart.Add(maxSessionAge)) {
		m.logger.Info("stored session exceeded max age, clearing",
			slog.Time("session_start", sessionStart),
		)
		m.clearStorageLocked()

		return nil
	}

	expiryMs, err := strconv.ParseInt(expiryRaw, 10, 64)
	if err != nil {
		m.logger.Warn("stored token expiry unparseable, clearing",
			slog.String("error", err.Error()),
		)
		m.clearStorageLocked()

		return nil
	}

	expiry := time.UnixMilli(expiryMs)
	m.sess.SessionStart = sessionStart

	// The profile is optional: a sign-in whose profile fetch failed still
	// left a usable token behind.
	if userRaw, err := m.store.Get(keyUser); err == nil {
		var profile Profile
		if jsonErr := json.Unmarshal([]byte(userRaw), &profile); jsonErr == nil {
			m.sess.User = &profile
		}
	}

	if refresh, err := m.store.Get(keyRefreshToken); err == nil {
		m.sess.RefreshToken = refresh
	}

	if now.Before(expiry.Add(-refreshBuffer)) {
		m.sess.AccessToken = token
		m.sess.TokenExpiry = expiry
		m.state = Authenticated
		m.scheduleRefreshLocked(expiry.Sub(now))
		m.logger.Info("restored session from storage",
			slog.Time("token_expiry", expiry),
		)

		return nil
	}

	// Token expired — silent refresh is optimistic: no prompt, failure is
	// an expected outcome.
	m.logger.Info("stored token expired, attempting silent refresh")
	m.silentRefreshLocked(ctx)

	return nil
}

// SignIn requests a credential interactively. The consent screen is forced
// only when no prior session marker exists in durable storage.
func (m *Manager) SignIn(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prompt := PromptConsent
	if _, err := m.store.Get(keyUser); err == nil {
		prompt = PromptDefault
	}

	m.state = Authenticating
	m.logger.Info("sign-in started", slog.String("prompt", promptName(prompt)))

	cred, err := m.provider.RequestToken(ctx, prompt, m.sess.RefreshToken)
	if err != nil {
		m.state = Unauthenticated
		return fmt.Errorf("session: sign-in failed: %w", err)
	}

	m.id = uuid.NewString()
	m.adoptCredentialLocked(cred)

	if profile, err := m.provider.FetchProfile(ctx, m.sess.AccessToken); err != nil {
		// Profile fetch failure does not invalidate the credential.
		m.logger.Warn("fetching user profile failed",
			slog.String("error", err.Error()),
		)
	} else {
		m.sess.User = profile
		if data, marshalErr := json.Marshal(profile); marshalErr == nil {
			m.setStored(keyUser, string(data))
		}
	}

	m.logger.Info("sign-in successful",
		slog.String("session_id", m.id),
		slog.Time("token_expiry", m.sess.TokenExpiry),
	)

	return nil
}

// SignOut revokes the credential remotely (best-effort), stops the refresh
// timer, and clears in-memory and persisted session fields synchronously.
func (m *Manager) SignOut(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess.AccessToken != "" {
		if err := m.provider.Revoke(ctx, m.sess.AccessToken); err != nil {
			m.logger.Warn("token revocation failed",
				slog.String("error", err.Error()),
			)
		}
	}

	m.stopRefreshLocked()

	m.sess = Session{}
	m.state = Unauthenticated
	m.id = ""
	m.clearStorageLocked()

	m.logger.Info("signed out")
}

// ValidateToken performs a remote introspection round-trip. A non-OK
// response or network failure triggers one silent refresh attempt and
// reports false; callers must not assume the session was repaired by the
// time this returns.
func (m *Manager) ValidateToken(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess.AccessToken == "" {
		return false
	}

	now := m.nowFunc()
	if !now.Before(m.sess.TokenExpiry.Add(-refreshBuffer)) {
		m.silentRefreshLocked(ctx)
		return false
	}

	if err := m.provider.Introspect(ctx, m.sess.AccessToken); err != nil {
		m.logger.Warn("token introspection failed",
			slog.String("error", err.Error()),
		)
		m.silentRefreshLocked(ctx)

		return false
	}

	return true
}

// Authenticated reports whether a usable session exists: a token is held,
// the current instant is strictly before expiry minus the refresh buffer,
// and strictly before session start plus the age cap. A session past the
// age cap is terminal: it is dropped and durable storage is cleared.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.authenticatedLocked()
}

func (m *Manager) authenticatedLocked() bool {
	if m.sess.AccessToken == "" {
		return false
	}

	now := m.nowFunc()

	if !m.sess.SessionStart.IsZero() && !now.Before(m.sess.SessionStart.Add(maxSessionAge)) {
		m.logger.Info("session exceeded max age, expiring")
		m.stopRefreshLocked()
		m.sess = Session{}
		m.state = Unauthenticated
		m.clearStorageLocked()

		return false
	}

	return now.Before(m.sess.TokenExpiry.Add(-refreshBuffer))
}

// Token returns the current access token for use as a bearer credential.
// It satisfies the API client's TokenSource interface.
func (m *Manager) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.authenticatedLocked() {
		return "", ErrNotAuthenticated
	}

	return m.sess.AccessToken, nil
}

// Current returns a copy of the session for display purposes.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sess
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// adoptCredentialLocked installs a freshly acquired credential: computes
// expiry, starts the session clock if this is a new session, persists every
// field, and schedules the automatic refresh.
func (m *Manager) adoptCredentialLocked(cred *Credential) {
	now := m.nowFunc()

	lifetime := cred.ExpiresIn
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}

	m.sess.AccessToken = cred.AccessToken
	m.sess.TokenExpiry = now.Add(lifetime)

	if cred.RefreshToken != "" {
		m.sess.RefreshToken = cred.RefreshToken
		m.setStored(keyRefreshToken, cred.RefreshToken)
	}

	if m.sess.SessionStart.IsZero() {
		m.sess.SessionStart = now
		m.setStored(keySessionStart, strconv.FormatInt(now.UnixMilli(), 10))
	}

	m.setStored(keyAccessToken, m.sess.AccessToken)
	m.setStored(keyTokenExpiry, strconv.FormatInt(m.sess.TokenExpiry.UnixMilli(), 10))

	m.state = Authenticated
	m.scheduleRefreshLocked(lifetime)
}

// silentRefreshLocked attempts a non-interactive token request. Failures
// are logged and swallowed; the state is left unauthenticated.
func (m *Manager) silentRefreshLocked(ctx context.Context) {
	prev := m.state
	m.state = Refreshing

	cred, err := m.provider.RequestToken(ctx, PromptNone, m.sess.RefreshToken)
	if err != nil {
		m.logger.Warn("silent refresh failed",
			slog.String("error", err.Error()),
		)

		if prev == Authenticated {
			m.state = Authenticated
			return
		}

		m.state = Unauthenticated

		return
	}

	m.adoptCredentialLocked(cred)
	m.logger.Info("silent refresh succeeded",
		slog.Time("token_expiry", m.sess.TokenExpiry),
	)
}

// scheduleRefreshLocked arms the automatic refresh timer to fire a buffer
// ahead of token expiry. Any previously armed timer is stopped first so a
// stale refresh can never fire after the session it belonged to.
func (m *Manager) scheduleRefreshLocked(lifetime time.Duration) {
	m.stopRefreshLocked()

	lead := lifetime - refreshBuffer
	if lead <= 0 {
		return
	}

	m.refreshTimer = time.AfterFunc(lead, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		m.logger.Info("auto-refreshing token")
		m.silentRefreshLocked(context.Background())
	})
}

func (m *Manager) stopRefreshLocked() {
	if m.refreshTimer != nil {
		m.refreshTimer.Stop()
		m.refreshTimer = nil
	}
}

// setStored writes one durable key; storage failures are logged, not fatal.
func (m *Manager) setStored(key, value string) {
	if err := m.store.Set(key, value); err != nil {
		m.logger.Warn("persisting session field failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// clearStorageLocked removes every persisted session field.
func (m *Manager) clearStorageLocked() {
	for _, key := range []string{keyAccessToken, keyTokenExpiry, keyUser, keySessionStart, keyRefreshToken} {
		if err := m.store.Delete(key); err != nil {
			m.logger.Warn("clearing session field failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}

func promptName(p PromptMode) string {
	switch p {
	case PromptConsent:
		return "consent"
	case PromptDefault:
		return "default"
	default:
		return "none"
	}
}
