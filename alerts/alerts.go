// Package alerts covers the alert (notification) endpoints: listing,
// read-state changes, and the URL of the live event stream.
package alerts

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/elara-app/go-elara/client"
)

const (
	basePath   = "/api/v1/alerts/"
	streamPath = "/api/v1/alerts/stream/"
)

// Alert types emitted by the server.
const (
	TypeSuccess = "success"
	TypeWarning = "warning"
	TypeInfo    = "info"
	TypeError   = "error"
)

// Alert is a server-assigned notification. ID is unique and is the
// reconciliation key for the live stream; TimeAgo is display-only and
// non-canonical (CreatedAt is the canonical timestamp).
type Alert struct {
	ID               int64     `json:"id"`
	Type             string    `json:"type"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	IsRead           bool      `json:"is_read"`
	TimeAgo          string    `json:"time_ago"`
	CreatedAt        time.Time `json:"created_at"`
	RelatedBookingID *int64    `json:"related_booking_id,omitempty"`
	RelatedClientID  *int64    `json:"related_client_id,omitempty"`
}

// Filter narrows a List call. Zero values mean "no filter".
type Filter struct {
	IsRead *bool
	Type   string
}

// Manager performs alert API calls.
type Manager struct {
	api *client.Client
}

func NewManager(api *client.Client) *Manager {
	return &Manager{api: api}
}

// List returns the caller's alerts, newest first. The server already limits
// results to its retention window.
func (m *Manager) List(ctx context.Context, filter Filter) ([]Alert, error) {
	query := url.Values{}
	if filter.IsRead != nil {
		query.Set("is_read", strconv.FormatBool(*filter.IsRead))
	}
	if filter.Type != "" {
		query.Set("type", filter.Type)
	}

	var alerts []Alert
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: basePath, Query: query}, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// MarkRead marks one alert as read and returns its updated record.
func (m *Manager) MarkRead(ctx context.Context, id int64) (*Alert, error) {
	var alert Alert
	path := fmt.Sprintf("%s%d/mark_read/", basePath, id)
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodPost, Path: path}, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// MarkAllRead marks every unread alert as read and returns how many changed.
func (m *Manager) MarkAllRead(ctx context.Context) (int, error) {
	var out struct {
		MarkedRead int `json:"marked_read"`
	}
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodPost, Path: basePath + "mark_all_read/"}, &out); err != nil {
		return 0, err
	}
	return out.MarkedRead, nil
}

// UnreadCount returns the number of unread alerts.
func (m *Manager) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: basePath + "unread_count/"}, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// ClearAll deletes all of the caller's alerts and returns how many were
// removed.
func (m *Manager) ClearAll(ctx context.Context) (int, error) {
	var out struct {
		Deleted int `json:"deleted"`
	}
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodPost, Path: basePath + "clear_all/"}, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

// StreamURL builds the SSE endpoint URL for the given access token. The
// token travels as a query parameter because the EventSource transport
// cannot set custom headers.
func StreamURL(baseURL, accessToken string) string {
	return strings.TrimRight(baseURL, "/") + streamPath + "?access_token=" + url.QueryEscape(accessToken)
}
