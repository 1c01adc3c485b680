package client

import (
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithRateLimit bounds outbound request rate. Zero or negative rps disables
// the limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithAuthExpiredHook registers the callback fired when a refresh fails and
// the session has been cleared. This is where an application forces
// navigation back to its login entry point.
func WithAuthExpiredHook(hook func()) Option {
	return func(c *Client) {
		c.onAuthExpired = hook
	}
}
