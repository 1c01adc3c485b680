package session

import (
	"encoding/json"
	"sync"

	"github.com/elara-app/go-elara/internal/apperrors"
	"github.com/pkg/errors"
)

// Manager owns the session lifecycle on top of a Store. It hydrates the
// authenticated flag from persisted state on construction and keeps it
// consistent across logins, refreshes and teardown.
//
// Login, signup and refresh flows must go through Establish/UpdateTokens so
// the session is never left with an access token but no user (or vice versa)
// after a successful flow.
type Manager struct {
	store Store

	lock          sync.RWMutex
	authenticated bool
}

// NewManager hydrates a Manager from the store. The session counts as
// authenticated only when both an access token and a stored user are present.
func NewManager(store Store) *Manager {
	m := &Manager{store: store}
	m.authenticated = m.hydrate()
	return m
}

func (m *Manager) hydrate() bool {
	token, _ := m.store.Get(KeyAccessToken)
	user, _ := m.store.Get(KeyUser)
	return token != "" && user != ""
}

// IsAuthenticated reports whether a usable session is present.
func (m *Manager) IsAuthenticated() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.authenticated
}

// AccessToken returns the stored access token, or "" if absent.
func (m *Manager) AccessToken() string {
	token, _ := m.store.Get(KeyAccessToken)
	return token
}

// RefreshToken returns the stored refresh token, or "" if absent. Without a
// refresh token, recovery from an expired access token is impossible.
func (m *Manager) RefreshToken() string {
	token, _ := m.store.Get(KeyRefreshToken)
	return token
}

// User returns the cached profile, or nil if none is stored or the stored
// record cannot be decoded.
func (m *Manager) User() (*User, error) {
	raw, ok := m.store.Get(KeyUser)
	if !ok || raw == "" {
		return nil, apperrors.ErrNotAuthenticated
	}
	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, errors.Wrap(apperrors.ErrSessionCorrupted, err.Error())
	}
	return &user, nil
}

// Establish stores a complete session in one step. It is the only way a
// session transitions from unauthenticated to authenticated; callers supply
// all three fields so a failed login never leaves partial state behind.
func (m *Manager) Establish(accessToken, refreshToken string, user *User) error {
	if accessToken == "" {
		return errors.New("[Manager.Establish] access token is required")
	}
	if user == nil {
		return errors.New("[Manager.Establish] user is required")
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "[Manager.Establish] encode user")
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.store.Set(KeyAccessToken, accessToken); err != nil {
		return errors.Wrap(err, "[Manager.Establish] store access token")
	}
	if err := m.store.Set(KeyRefreshToken, refreshToken); err != nil {
		return errors.Wrap(err, "[Manager.Establish] store refresh token")
	}
	if err := m.store.Set(KeyUser, string(raw)); err != nil {
		return errors.Wrap(err, "[Manager.Establish] store user")
	}

	m.authenticated = true
	return nil
}

// UpdateTokens persists a freshly minted access token. An empty refreshToken
// keeps the existing one; a non-empty value replaces it (refresh-token
// rotation on the server).
func (m *Manager) UpdateTokens(accessToken, refreshToken string) error {
	if accessToken == "" {
		return errors.New("[Manager.UpdateTokens] access token is required")
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.store.Set(KeyAccessToken, accessToken); err != nil {
		return errors.Wrap(err, "[Manager.UpdateTokens] store access token")
	}
	if refreshToken != "" {
		if err := m.store.Set(KeyRefreshToken, refreshToken); err != nil {
			return errors.Wrap(err, "[Manager.UpdateTokens] store refresh token")
		}
	}
	m.authenticated = m.hydrate()
	return nil
}

// SetUser replaces the cached profile. Tokens are untouched.
func (m *Manager) SetUser(user *User) error {
	if user == nil {
		return errors.New("[Manager.SetUser] user is required")
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "[Manager.SetUser] encode user")
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.store.Set(KeyUser, string(raw)); err != nil {
		return errors.Wrap(err, "[Manager.SetUser] store user")
	}
	m.authenticated = m.hydrate()
	return nil
}

// Clear wipes every session field. Used on logout and on irrecoverable
// authorization failure.
func (m *Manager) Clear() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.authenticated = false
	if err := m.store.Clear(); err != nil {
		return errors.Wrap(err, "[Manager.Clear] clear store")
	}
	return nil
}
