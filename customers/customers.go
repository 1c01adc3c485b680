// Package customers covers the end-customer (client) endpoints. The API
// calls these "clients"; this package uses "customers" to avoid clashing
// with the HTTP client terminology everywhere else in the SDK.
package customers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/elara-app/go-elara/client"
)

const basePath = "/api/v1/clients/"

// Customer is an end-customer of the business.
type Customer struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// CustomerUpsert is the writable subset of a Customer.
type CustomerUpsert struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// Manager performs customer API calls.
type Manager struct {
	api *client.Client
}

func NewManager(api *client.Client) *Manager {
	return &Manager{api: api}
}

// List returns customers, newest first. A non-empty search narrows by name,
// email or phone.
func (m *Manager) List(ctx context.Context, search string) ([]Customer, error) {
	query := url.Values{}
	if search != "" {
		query.Set("search", search)
	}
	var result []Customer
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: basePath, Query: query}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns a single customer.
func (m *Manager) Get(ctx context.Context, id int64) (*Customer, error) {
	var customer Customer
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: itemPath(id)}, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// Create adds a customer.
func (m *Manager) Create(ctx context.Context, upsert CustomerUpsert) (*Customer, error) {
	var customer Customer
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodPost, Path: basePath, Body: upsert}, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// Update applies a partial update to a customer.
func (m *Manager) Update(ctx context.Context, id int64, patch map[string]interface{}) (*Customer, error) {
	var customer Customer
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodPatch, Path: itemPath(id), Body: patch}, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// Delete removes a customer and, server-side, their bookings.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	return m.api.JSON(ctx, client.Request{Method: http.MethodDelete, Path: itemPath(id)}, nil)
}

func itemPath(id int64) string {
	return fmt.Sprintf("%s%d/", basePath, id)
}
