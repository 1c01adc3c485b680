// Package accounts implements authentication and profile flows: login,
// signup, token refresh bootstrap, profile reads and updates, password
// change, and account deletion.
package accounts

import (
	"context"
	"net/http"

	"github.com/elara-app/go-elara/client"
	"github.com/elara-app/go-elara/internal/apperrors"
	"github.com/elara-app/go-elara/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	tokenPath          = "/api/v1/accounts/token/"
	signupPath         = "/api/v1/accounts/signup/"
	mePath             = "/api/v1/accounts/me/"
	passwordChangePath = "/api/v1/accounts/me/password/"
	accountDeletePath  = "/api/v1/accounts/me/delete/"

	// deleteConfirmation is the exact confirmation text the delete
	// endpoint requires.
	deleteConfirmation = "DELETE"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest carries the business onboarding fields collected at signup.
type SignupRequest struct {
	Email              string `json:"email"`
	Password           string `json:"password"`
	Name               string `json:"name,omitempty"`
	BusinessName       string `json:"business_name"`
	PhoneNumber        string `json:"phone_number"`
	BusinessType       string `json:"business_type"`
	ServiceHours       string `json:"service_hours"`
	CustomServiceHours string `json:"custom_service_hours,omitempty"`
}

// ProfilePatch holds a partial profile update. Nil fields are omitted, so
// only set fields reach the server. Email and ID are not editable.
type ProfilePatch struct {
	Name               *string `json:"name,omitempty"`
	BusinessName       *string `json:"business_name,omitempty"`
	PhoneNumber        *string `json:"phone_number,omitempty"`
	BusinessType       *string `json:"business_type,omitempty"`
	ServiceHours       *string `json:"service_hours,omitempty"`
	CustomServiceHours *string `json:"custom_service_hours,omitempty"`
	Currency           *string `json:"currency,omitempty"`
	EmailNotifications *bool   `json:"email_notifications,omitempty"`
	SMSNotifications   *bool   `json:"sms_notifications,omitempty"`
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Manager drives account flows against the API and keeps the session in
// step with their outcomes.
type Manager struct {
	api     *client.Client
	session *session.Manager
	log     zerolog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

func NewManager(api *client.Client, sess *session.Manager, options ...ManagerOption) (*Manager, error) {
	if api == nil {
		return nil, errors.New("[accounts.NewManager] api client is required")
	}
	if sess == nil {
		return nil, errors.New("[accounts.NewManager] session manager is required")
	}
	m := &Manager{api: api, session: sess, log: zerolog.Nop()}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Login exchanges credentials for a token pair, fetches the profile, and
// establishes the session in one step. A failure at any point leaves the
// session exactly as it was.
func (m *Manager) Login(ctx context.Context, email, password string) (*session.User, error) {
	resp, err := m.api.Plain(ctx, client.Request{
		Method: http.MethodPost,
		Path:   tokenPath,
		Body:   Credentials{Email: email, Password: password},
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Login] token request")
	}

	var tokens tokenPair
	if err := client.DecodeResponse(resp, &tokens); err != nil {
		var apiErr *apperrors.APIError
		if apperrors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "[Manager.Login] obtain tokens")
	}

	user, err := m.fetchProfile(ctx, tokens.Access)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Login] fetch profile")
	}

	if err := m.session.Establish(tokens.Access, tokens.Refresh, user); err != nil {
		return nil, errors.Wrap(err, "[Manager.Login] establish session")
	}
	m.log.Info().Str("email", user.Email).Msg("logged in")
	return user, nil
}

// Signup registers a new account and then logs it in.
func (m *Manager) Signup(ctx context.Context, req SignupRequest) (*session.User, error) {
	resp, err := m.api.Plain(ctx, client.Request{Method: http.MethodPost, Path: signupPath, Body: req})
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Signup] signup request")
	}
	if err := client.DecodeResponse(resp, nil); err != nil {
		return nil, errors.Wrap(err, "[Manager.Signup] create account")
	}
	return m.Login(ctx, req.Email, req.Password)
}

// Logout clears the local session. The backend keeps no session state for
// bearer tokens, so there is nothing to revoke remotely.
func (m *Manager) Logout() error {
	if err := m.session.Clear(); err != nil {
		return errors.Wrap(err, "[Manager.Logout] clear session")
	}
	m.log.Info().Msg("logged out")
	return nil
}

// Me fetches the profile from the server and refreshes the cached copy.
func (m *Manager) Me(ctx context.Context) (*session.User, error) {
	var user session.User
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: mePath}, &user); err != nil {
		return nil, err
	}
	if err := m.session.SetUser(&user); err != nil {
		return nil, errors.Wrap(err, "[Manager.Me] cache profile")
	}
	return &user, nil
}

// UpdateMe applies a partial profile update. The server returns the full
// updated profile, which replaces the cached copy.
func (m *Manager) UpdateMe(ctx context.Context, patch ProfilePatch) (*session.User, error) {
	var user session.User
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodPatch, Path: mePath, Body: patch}, &user); err != nil {
		return nil, err
	}
	if err := m.session.SetUser(&user); err != nil {
		return nil, errors.Wrap(err, "[Manager.UpdateMe] cache profile")
	}
	return &user, nil
}

// ChangePassword changes the account password. The current token pair stays
// valid.
func (m *Manager) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body := map[string]string{
		"old_password": oldPassword,
		"new_password": newPassword,
	}
	return m.api.JSON(ctx, client.Request{Method: http.MethodPost, Path: passwordChangePath, Body: body}, nil)
}

// DeleteAccount deactivates the account server-side and clears the local
// session. The confirmation text is supplied here so callers cannot trigger
// deletion by accident.
func (m *Manager) DeleteAccount(ctx context.Context) error {
	body := map[string]string{"confirmation": deleteConfirmation}
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodPost, Path: accountDeletePath, Body: body}, nil); err != nil {
		return err
	}
	if err := m.session.Clear(); err != nil {
		return errors.Wrap(err, "[Manager.DeleteAccount] clear session")
	}
	return nil
}

// fetchProfile reads /me/ with an explicit token, for use before the
// session is established.
func (m *Manager) fetchProfile(ctx context.Context, accessToken string) (*session.User, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+accessToken)
	resp, err := m.api.Plain(ctx, client.Request{Method: http.MethodGet, Path: mePath, Header: header})
	if err != nil {
		return nil, err
	}
	var user session.User
	if err := client.DecodeResponse(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
