package bookings_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/elara-app/go-elara/bookings"
	"github.com/elara-app/go-elara/client"
	"github.com/elara-app/go-elara/internal/apitest"
	"github.com/elara-app/go-elara/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupManager(t *testing.T) (*apitest.Server, *bookings.Manager) {
	t.Helper()

	server := apitest.New(t)
	sess := session.NewManager(session.NewMemoryStore())
	access, refresh := server.SeedSession()
	require.NoError(t, sess.Establish(access, refresh, &server.User))

	api, err := client.New(server.URL, sess)
	require.NoError(t, err)
	return server, bookings.NewManager(api)
}

func TestListFiltersByStatus(t *testing.T) {
	server, manager := setupManager(t)

	starts := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	fixtures := []bookings.Booking{
		{ID: 2, ClientID: 1, ClientName: "John Doe", StartsAt: starts, EndsAt: starts.Add(time.Hour), Status: bookings.StatusConfirmed},
		{ID: 1, ClientID: 1, ClientName: "John Doe", StartsAt: starts.Add(-24 * time.Hour), EndsAt: starts.Add(-23 * time.Hour), Status: bookings.StatusPending},
	}
	server.Mux.Get("/api/v1/bookings/", server.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		items := fixtures
		if status := r.URL.Query().Get("status"); status != "" {
			items = nil
			for _, b := range fixtures {
				if b.Status == status {
					items = append(items, b)
				}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(items)
	}))

	all, err := manager.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "John Doe", all[0].ClientName)

	confirmed, err := manager.List(context.Background(), bookings.StatusConfirmed)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, int64(2), confirmed[0].ID)
}

func TestCreateBooking(t *testing.T) {
	server, manager := setupManager(t)

	server.Mux.Post("/api/v1/bookings/", server.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		var upsert bookings.BookingUpsert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&upsert))

		created := bookings.Booking{
			ID:       10,
			ClientID: upsert.ClientID,
			StartsAt: upsert.StartsAt,
			EndsAt:   upsert.EndsAt,
			Status:   bookings.StatusPending,
			Notes:    upsert.Notes,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(created)
	}))

	starts := time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)
	booking, err := manager.Create(context.Background(), bookings.BookingUpsert{
		ClientID: 1,
		StartsAt: starts,
		EndsAt:   starts.Add(30 * time.Minute),
		Notes:    "first visit",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10), booking.ID)
	assert.Equal(t, bookings.StatusPending, booking.Status)
	assert.Equal(t, "first visit", booking.Notes)
}

func TestStats(t *testing.T) {
	server, manager := setupManager(t)

	server.Mux.Get("/api/v1/bookings/stats/", server.RequireAuth(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(bookings.Stats{Total: 12, Pending: 3, Confirmed: 8, Cancelled: 1})
	}))

	stats, err := manager.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, stats.Total)
	assert.Equal(t, 8, stats.Confirmed)
}

func TestServiceCatalogue(t *testing.T) {
	server, manager := setupManager(t)

	server.Mux.Get("/api/v1/bookings/services/", server.RequireAuth(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]bookings.Service{
			{ID: 1, Name: "Haircut", Price: "35.00", Currency: "USD", IsActive: true},
			{ID: 2, Name: "Cleansing", Price: "50.00", Currency: "USD", IsActive: false},
		})
	}))

	services, err := manager.ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "Haircut", services[0].Name)
	assert.Equal(t, "35.00", services[0].Price)
	assert.False(t, services[1].IsActive)
}

func TestDeleteBookingRequiresAuth(t *testing.T) {
	server, manager := setupManager(t)
	server.Mux.Delete("/api/v1/bookings/{id}/", server.RequireAuth(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, manager.Delete(context.Background(), 5))
}
