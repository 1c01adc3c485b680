package bookings

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/elara-app/go-elara/client"
)

// Service is a bookable offering in the business's catalogue. Price is kept
// as a string because the API serialises decimals exactly.
type Service struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Currency  string    `json:"currency"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// ServiceUpsert is the writable subset of a Service.
type ServiceUpsert struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Currency string `json:"currency,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// ListServices returns the service catalogue.
func (m *Manager) ListServices(ctx context.Context) ([]Service, error) {
	var services []Service
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: servicesPath}, &services); err != nil {
		return nil, err
	}
	return services, nil
}

// CreateService adds a service to the catalogue.
func (m *Manager) CreateService(ctx context.Context, upsert ServiceUpsert) (*Service, error) {
	var service Service
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodPost, Path: servicesPath, Body: upsert}, &service); err != nil {
		return nil, err
	}
	return &service, nil
}

// UpdateService applies a partial update to a service.
func (m *Manager) UpdateService(ctx context.Context, id int64, patch map[string]interface{}) (*Service, error) {
	var service Service
	path := fmt.Sprintf("%s%d/", servicesPath, id)
	if err := m.api.JSON(ctx, client.Request{Method: http.MethodPatch, Path: path, Body: patch}, &service); err != nil {
		return nil, err
	}
	return &service, nil
}

// DeleteService removes a service from the catalogue.
func (m *Manager) DeleteService(ctx context.Context, id int64) error {
	path := fmt.Sprintf("%s%d/", servicesPath, id)
	return m.api.JSON(ctx, client.Request{Method: http.MethodDelete, Path: path}, nil)
}
