package customers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/elara-app/go-elara/client"
	"github.com/elara-app/go-elara/customers"
	"github.com/elara-app/go-elara/internal/apitest"
	"github.com/elara-app/go-elara/internal/apperrors"
	"github.com/elara-app/go-elara/session"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupManager(t *testing.T) (*apitest.Server, *customers.Manager) {
	t.Helper()

	server := apitest.New(t)
	sess := session.NewManager(session.NewMemoryStore())
	access, refresh := server.SeedSession()
	require.NoError(t, sess.Establish(access, refresh, &server.User))

	api, err := client.New(server.URL, sess)
	require.NoError(t, err)
	return server, customers.NewManager(api)
}

func TestCustomerLifecycle(t *testing.T) {
	server, manager := setupManager(t)

	store := map[int64]customers.Customer{}
	var nextID int64

	server.Mux.Get("/api/v1/clients/", server.RequireAuth(func(w http.ResponseWriter, _ *http.Request) {
		list := make([]customers.Customer, 0, len(store))
		for _, c := range store {
			list = append(list, c)
		}
		writeJSON(w, http.StatusOK, list)
	}))
	server.Mux.Post("/api/v1/clients/", server.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		var upsert customers.CustomerUpsert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&upsert))
		nextID++
		created := customers.Customer{ID: nextID, Name: upsert.Name, Email: upsert.Email, PhoneNumber: upsert.PhoneNumber}
		store[nextID] = created
		writeJSON(w, http.StatusCreated, created)
	}))
	server.Mux.Get("/api/v1/clients/{id}/", server.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		customer, ok := store[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, customer)
	}))
	server.Mux.Delete("/api/v1/clients/{id}/", server.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		delete(store, id)
		w.WriteHeader(http.StatusNoContent)
	}))

	created, err := manager.Create(context.Background(), customers.CustomerUpsert{
		Name:        "John Doe",
		Email:       "john@example.com",
		PhoneNumber: "+1555123",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	fetched, err := manager.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "John Doe", fetched.Name)

	list, err := manager.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, manager.Delete(context.Background(), created.ID))

	_, err = manager.Get(context.Background(), created.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
