// Package bookings covers the booking endpoints and their dashboard
// aggregates (stats, revenue, heatmap), plus the bookable-service catalogue
// nested under the same API prefix.
package bookings

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/elara-app/go-elara/client"
)

const (
	basePath     = "/api/v1/bookings/"
	servicesPath = "/api/v1/bookings/services/"
)

// Booking statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Booking is an appointment held by one of the business's customers. The
// client_* and service_name fields are read-only projections resolved by
// the server.
type Booking struct {
	ID          int64     `json:"id"`
	ClientID    int64     `json:"client"`
	ClientName  string    `json:"client_name,omitempty"`
	ClientEmail string    `json:"client_email,omitempty"`
	ClientPhone string    `json:"client_phone,omitempty"`
	ServiceID   *int64    `json:"service,omitempty"`
	ServiceName string    `json:"service_name,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// BookingUpsert is the writable subset of a Booking.
type BookingUpsert struct {
	ClientID  int64     `json:"client"`
	ServiceID *int64    `json:"service,omitempty"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Status    string    `json:"status,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// Stats summarises booking volume for the dashboard cards.
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
}

// RevenuePoint is one bucket of the revenue chart.
type RevenuePoint struct {
	Period  string  `json:"period"`
	Revenue float64 `json:"revenue"`
}

// HeatmapCell is one weekday/hour bucket of the booking heatmap.
type HeatmapCell struct {
	Weekday int `json:"weekday"`
	Hour    int `json:"hour"`
	Count   int `json:"count"`
}

// Manager performs booking API calls.
type Manager struct {
	api *client.Client
}

func NewManager(api *client.Client) *Manager {
	return &Manager{api: api}
}

// List returns bookings, most recent start time first. An empty status means
// no status filter.
func (m *Manager) List(ctx context.Context, status string) ([]Booking, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	var bookings []Booking
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: basePath, Query: query}, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// Get returns a single booking.
func (m *Manager) Get(ctx context.Context, id int64) (*Booking, error) {
	var booking Booking
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: itemPath(id)}, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// Create creates a booking.
func (m *Manager) Create(ctx context.Context, upsert BookingUpsert) (*Booking, error) {
	var booking Booking
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodPost, Path: basePath, Body: upsert}, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// Update applies a partial update to a booking.
func (m *Manager) Update(ctx context.Context, id int64, patch map[string]interface{}) (*Booking, error) {
	var booking Booking
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodPatch, Path: itemPath(id), Body: patch}, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// Delete removes a booking.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	return m.api.JSON(ctx, client.Request{Method: http.MethodDelete, Path: itemPath(id)}, nil)
}

// Stats returns aggregate booking counts.
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: basePath + "stats/"}, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Revenue returns the revenue chart series.
func (m *Manager) Revenue(ctx context.Context) ([]RevenuePoint, error) {
	var points []RevenuePoint
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: basePath + "revenue/"}, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// Heatmap returns the weekday/hour booking density grid.
func (m *Manager) Heatmap(ctx context.Context) ([]HeatmapCell, error) {
	var cells []HeatmapCell
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: basePath + "heatmap/"}, &cells); err != nil {
		return nil, err
	}
	return cells, nil
}

func itemPath(id int64) string {
	return fmt.Sprintf("%s%d/", basePath, id)
}
