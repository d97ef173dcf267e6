// Package session establishes who is calling before any mutation is
// attempted. The credential is decoded locally and checked for expiry
// without a network call; the profile snapshot is fetched exactly once per
// load. The gate here is a cheap pre-condition, not a security boundary —
// the backend is the real enforcer.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"space/internal/gateway"
	"space/internal/localstore"
	"space/internal/token"
)

const credKey = "token"

var (
	// ErrAnonymous is returned when no session is established
	ErrAnonymous = errors.New("no active session")
	// ErrExpired is returned when the credential expiry has passed
	ErrExpired = errors.New("session expired")
)

// Session holds the authenticated identity and bearer credential.
type Session struct {
	Token     string
	UserID    string
	Username  string
	Name      string
	Email     string
	AvatarRef string
	// Following is the followee list from the load-time profile snapshot,
	// used to seed the follow cache on a fresh device.
	Following []string
	ExpiresAt time.Time
}

// ProfileFetcher is the slice of the gateway the manager needs.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, userID, token string) (*gateway.Profile, error)
}

// Manager owns the session lifecycle: load from the persisted credential,
// establish after login, reset on logout or credential rejection.
type Manager struct {
	mu      sync.RWMutex
	creds   localstore.Store
	gw      ProfileFetcher
	log     *slog.Logger
	current *Session
}

// NewManager creates a session manager over the persisted credential store.
func NewManager(creds localstore.Store, gw ProfileFetcher, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{creds: creds, gw: gw, log: log}
}

// Load initializes the session from the persisted credential. With no
// credential the session is anonymous and Load returns nil immediately.
// A credential that fails to decode, or whose expiry has passed, is cleared
// (fail closed). A decodable credential triggers exactly one profile fetch;
// an authorization failure on that fetch also clears the credential.
func (m *Manager) Load(ctx context.Context) error {
	raw, err := m.creds.Get(credKey)
	if errors.Is(err, localstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read credential: %w", err)
	}

	return m.establish(ctx, string(raw), false)
}

// Establish persists a freshly issued credential and populates the session
// from it. Used after login and registration.
func (m *Manager) Establish(ctx context.Context, tok string) error {
	return m.establish(ctx, tok, true)
}

func (m *Manager) establish(ctx context.Context, tok string, persist bool) error {
	claims, err := token.Decode(tok, time.Now())
	if err != nil {
		m.log.Warn("credential rejected locally", "error", err.Error())
		m.clear()
		if persist {
			return fmt.Errorf("decode credential: %w", err)
		}
		return nil
	}

	if persist {
		if err := m.creds.Set(credKey, []byte(tok)); err != nil {
			return fmt.Errorf("persist credential: %w", err)
		}
	}

	profile, err := m.gw.FetchProfile(ctx, claims.UserID, tok)
	if err != nil {
		if gateway.IsAuthExpired(err) {
			m.log.Warn("credential rejected by backend", "user_id", claims.UserID)
			m.clear()
			return nil
		}
		// Transient failure: stay anonymous this load, keep the
		// credential for the next one.
		m.mu.Lock()
		m.current = nil
		m.mu.Unlock()
		return fmt.Errorf("fetch profile: %w", err)
	}

	sess := &Session{
		Token:     tok,
		UserID:    claims.UserID,
		Username:  profile.Username,
		Name:      profile.Name,
		Email:     profile.Email,
		AvatarRef: profile.ProfileImage,
		Following: profile.Following,
		ExpiresAt: claims.ExpiresAt,
	}

	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()

	m.log.Info("session established", "user_id", sess.UserID, "username", sess.Username)
	return nil
}

// Current returns the active session, if any.
func (m *Manager) Current() (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, false
	}
	cp := *m.current
	return &cp, true
}

// Require gates mutations: it returns the session only when a valid,
// non-expired credential is held. Expiry is re-checked at call time so a
// session that aged out since load is rejected before any network call.
func (m *Manager) Require() (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, ErrAnonymous
	}
	if time.Now().After(m.current.ExpiresAt) {
		return nil, ErrExpired
	}
	cp := *m.current
	return &cp, nil
}

// Logout clears the session and the persisted credential.
func (m *Manager) Logout() {
	m.clear()
	m.log.Info("session cleared")
}

// Invalidate is the reactive counterpart of Logout: called when any
// authenticated call comes back with an authorization failure.
func (m *Manager) Invalidate() {
	m.clear()
	m.log.Warn("session invalidated by backend rejection")
}

func (m *Manager) clear() {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
	if err := m.creds.Delete(credKey); err != nil {
		m.log.Warn("failed to clear persisted credential", "error", err.Error())
	}
}
