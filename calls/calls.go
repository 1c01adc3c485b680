// Package calls covers the read-only call-summary endpoints populated by
// the voice-agent webhook integration.
package calls

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/elara-app/go-elara/client"
)

const basePath = "/api/v1/call-summaries/"

// Call outcomes.
const (
	OutcomeBooked   = "booked"
	OutcomeInquiry  = "inquiry"
	OutcomeMissed   = "missed"
	OutcomeDeclined = "declined"
)

// Summary is the record of one handled voice call.
type Summary struct {
	ID              int64      `json:"id"`
	VapiCallID      string     `json:"vapi_call_id,omitempty"`
	CallerName      string     `json:"caller_name,omitempty"`
	CallerNumber    string     `json:"caller_number,omitempty"`
	ServiceName     string     `json:"service_name,omitempty"`
	Price           string     `json:"price,omitempty"`
	Currency        string     `json:"currency,omitempty"`
	Summary         string     `json:"summary,omitempty"`
	Transcript      string     `json:"transcript,omitempty"`
	Outcome         string     `json:"outcome,omitempty"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
	DurationMinutes *int64     `json:"duration_minutes,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	RelatedBooking  *int64     `json:"related_booking,omitempty"`
	RelatedClient   *int64     `json:"related_client,omitempty"`
}

// Manager performs call-summary API calls.
type Manager struct {
	api *client.Client
}

func NewManager(api *client.Client) *Manager {
	return &Manager{api: api}
}

// List returns call summaries, newest first. An empty outcome means no
// outcome filter.
func (m *Manager) List(ctx context.Context, outcome string) ([]Summary, error) {
	query := url.Values{}
	if outcome != "" {
		query.Set("outcome", outcome)
	}
	var summaries []Summary
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: basePath, Query: query}, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// Get returns a single call summary.
func (m *Manager) Get(ctx context.Context, id int64) (*Summary, error) {
	var summary Summary
	path := fmt.Sprintf("%s%d/", basePath, id)
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: path}, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
