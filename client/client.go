// Package client implements the authenticated HTTP client for the Elara
// API: bearer-token injection, transparent refresh-and-retry on token
// expiry, and teardown of the session when recovery is impossible.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/elara-app/go-elara/internal/apperrors"
	"github.com/elara-app/go-elara/session"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	contentTypeJSON = "application/json"

	// maxErrorBody bounds how much of an error response body is retained
	// in an APIError.
	maxErrorBody = 2048
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Request describes one API call. Path is relative to the client's base URL.
// Body is JSON-encoded unless it is nil, an io.Reader, or a raw []byte.
// Reader bodies are buffered in full before the first attempt so the request
// can be re-issued after a token refresh. Header entries are merged over the
// defaults; the Authorization header is always client-controlled and caller
// values for it are ignored.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}
	Header http.Header
}

// Client performs bearer-authenticated requests against the Elara API.
//
// On a 401 response it refreshes the access token and re-issues the request
// exactly once; if the refresh itself fails the whole session is cleared and
// the configured auth-expired hook fires, while the original 401 response is
// still returned to the caller. Transport errors propagate unmodified and
// are never retried.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	session    *session.Manager
	userAgent  string
	limiter    *rate.Limiter
	log        zerolog.Logger

	onAuthExpired func()
	refreshGroup  refreshGroup
}

// New creates a Client for the API at baseURL, bound to the given session.
func New(baseURL string, sess *session.Manager, options ...Option) (*Client, error) {
	if sess == nil {
		return nil, errors.New("[client.New] session manager is required")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "[client.New] parse base URL")
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.Errorf("[client.New] base URL %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		session:    sess,
		userAgent:  "go-elara",
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Do issues an authenticated request. The returned response is never nil
// when the error is nil; HTTP-level failures (including a 401 that survives
// a refresh) are reported through the response status, not the error.
func (c *Client) Do(ctx context.Context, req Request) (*http.Response, error) {
	var (
		refreshAttempted bool
		refreshErr       error
	)

	payload, isJSON, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	token := c.session.AccessToken()
	if token != "" && tokenExpired(token, NowTimeFunc()) {
		// The access token is already past its exp claim; a request with
		// it is a guaranteed 401, so refresh up front and skip the wasted
		// round trip. This counts as the call's single refresh attempt.
		refreshAttempted = true
		if fresh, err := c.refreshAccessToken(ctx); err != nil {
			refreshErr = err
		} else {
			token = fresh
		}
	}

	resp, err := c.send(ctx, req, payload, isJSON, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	if !refreshAttempted {
		fresh, err := c.refreshAccessToken(ctx)
		if err == nil {
			drainAndClose(resp)
			retryResp, retryErr := c.send(ctx, req, payload, isJSON, fresh)
			if retryErr != nil {
				return nil, retryErr
			}
			return retryResp, nil
		}
		refreshErr = err
	}

	if refreshErr != nil {
		c.log.Warn().Err(refreshErr).Msg("token refresh failed, clearing session")
		if clearErr := c.session.Clear(); clearErr != nil {
			c.log.Error().Err(clearErr).Msg("failed to clear session")
		}
		if c.onAuthExpired != nil {
			c.onAuthExpired()
		}
	}
	return resp, nil
}

// Plain issues a request without bearer authorization and without the
// refresh-and-retry machinery. Used for endpoints that mint tokens in the
// first place (login, signup, refresh).
func (c *Client) Plain(ctx context.Context, req Request) (*http.Response, error) {
	payload, isJSON, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, req, payload, isJSON, "")
}

// Get is shorthand for an authenticated GET.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post is shorthand for an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Patch is shorthand for an authenticated PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete is shorthand for an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// JSON issues an authenticated request and decodes a 2xx response body into
// out (which may be nil to discard it). Non-2xx responses are converted to
// an *apperrors.APIError.
func (c *Client) JSON(ctx context.Context, req Request, out interface{}) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return DecodeResponse(resp, out)
}

// DecodeResponse consumes and closes resp, decoding a 2xx JSON body into out
// or converting a non-2xx status into an *apperrors.APIError.
func DecodeResponse(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &apperrors.APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "[client.DecodeResponse] decode body")
	}
	return nil
}

// send builds and executes a single HTTP request. The body is taken from the
// pre-buffered payload, so every attempt gets a fresh reader.
func (c *Client) send(ctx context.Context, req Request, payload []byte, isJSON bool, token string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "[Client.send] rate limiter")
		}
	}

	target := *c.baseURL
	target.Path = singleJoin(target.Path, req.Path)
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.send] build request")
	}

	if isJSON {
		httpReq.Header.Set("Content-Type", contentTypeJSON)
	}
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", uuid.New().String())
	for key, values := range req.Header {
		httpReq.Header[http.CanonicalHeaderKey(key)] = values
	}
	// Authorization is client-controlled whenever a token is in play;
	// caller-supplied values are overwritten, not merged.
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpClient.Do(httpReq)
}

// encodeBody buffers a Request body into a byte slice so the request can be
// sent more than once. The bool result reports whether the Content-Type
// should default to JSON; a caller-supplied Content-Type still wins.
func encodeBody(body interface{}) ([]byte, bool, error) {
	switch b := body.(type) {
	case nil:
		return nil, false, nil
	case io.Reader:
		raw, err := io.ReadAll(b)
		if err != nil {
			return nil, false, errors.Wrap(err, "[client.encodeBody] read body")
		}
		return raw, true, nil
	case []byte:
		return b, true, nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, false, errors.Wrap(err, "[client.encodeBody] marshal body")
		}
		return raw, true, nil
	}
}

func singleJoin(base, path string) string {
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
