package client

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/elara-app/go-elara/internal/apperrors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// RefreshPath is the token refresh endpoint.
const RefreshPath = "/api/v1/accounts/token/refresh/"

// expiryLeeway is how far before the exp claim a token is treated as
// expired, absorbing clock skew between client and server.
const expiryLeeway = 10 * time.Second

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
	// Refresh is only present when the server rotates refresh tokens.
	Refresh string `json:"refresh,omitempty"`
}

// refreshGroup coalesces concurrent refresh attempts. Callers that observe
// the same stored refresh token share one in-flight exchange, so two
// simultaneous 401s produce a single refresh call and rotation can never
// race against itself.
type refreshGroup struct {
	lock     sync.Mutex
	inflight map[string]*refreshCall
}

type refreshCall struct {
	done   chan struct{}
	access string
	err    error
}

func (g *refreshGroup) do(key string, fn func() (string, error)) (string, error) {
	g.lock.Lock()
	if g.inflight == nil {
		g.inflight = make(map[string]*refreshCall)
	}
	if call, ok := g.inflight[key]; ok {
		g.lock.Unlock()
		<-call.done
		return call.access, call.err
	}
	call := &refreshCall{done: make(chan struct{})}
	g.inflight[key] = call
	g.lock.Unlock()

	call.access, call.err = fn()

	g.lock.Lock()
	delete(g.inflight, key)
	g.lock.Unlock()
	close(call.done)

	return call.access, call.err
}

// refreshAccessToken exchanges the stored refresh token for a new access
// token and persists the result (including a rotated refresh token, when the
// server sends one). With no stored refresh token it fails immediately,
// without any network call. Failures never mutate the session.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	refreshToken := c.session.RefreshToken()
	if refreshToken == "" {
		return "", apperrors.ErrNoRefreshToken
	}

	return c.refreshGroup.do(refreshToken, func() (string, error) {
		resp, err := c.Plain(ctx, Request{
			Method: http.MethodPost,
			Path:   RefreshPath,
			Body:   refreshRequest{Refresh: refreshToken},
		})
		if err != nil {
			return "", errors.Wrap(err, "[Client.refreshAccessToken] refresh request")
		}

		var tokens refreshResponse
		if err := DecodeResponse(resp, &tokens); err != nil {
			var apiErr *apperrors.APIError
			if apperrors.As(err, &apiErr) {
				return "", apperrors.Wrapf(apperrors.ErrRefreshRejected, "status %d", apiErr.StatusCode)
			}
			return "", errors.Wrap(err, "[Client.refreshAccessToken] decode response")
		}
		if tokens.Access == "" {
			return "", errors.Wrap(apperrors.ErrRefreshRejected, "empty access token")
		}

		if err := c.session.UpdateTokens(tokens.Access, tokens.Refresh); err != nil {
			return "", errors.Wrap(err, "[Client.refreshAccessToken] persist tokens")
		}
		c.log.Debug().Msg("access token refreshed")
		return tokens.Access, nil
	})
}

// tokenExpired reports whether token is a JWT whose exp claim has passed
// (within expiryLeeway). Tokens that are not parseable JWTs, or carry no exp
// claim, are assumed live; the server remains the authority either way.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.After(exp.Add(-expiryLeeway))
}
