package calls_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/elara-app/go-elara/calls"
	"github.com/elara-app/go-elara/client"
	"github.com/elara-app/go-elara/internal/apitest"
	"github.com/elara-app/go-elara/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupManager(t *testing.T) (*apitest.Server, *calls.Manager) {
	t.Helper()

	server := apitest.New(t)
	sess := session.NewManager(session.NewMemoryStore())
	access, refresh := server.SeedSession()
	require.NoError(t, sess.Establish(access, refresh, &server.User))

	api, err := client.New(server.URL, sess)
	require.NoError(t, err)
	return server, calls.NewManager(api)
}

func TestListFiltersByOutcome(t *testing.T) {
	server, manager := setupManager(t)

	duration := int64(420)
	started := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	fixtures := []calls.Summary{
		{ID: 2, CallerName: "Jane", Outcome: calls.OutcomeBooked, ServiceName: "Haircut", DurationSeconds: &duration, StartedAt: &started, CreatedAt: started},
		{ID: 1, CallerName: "Bob", Outcome: calls.OutcomeMissed, CreatedAt: started.Add(-time.Hour)},
	}
	server.Mux.Get("/api/v1/call-summaries/", server.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		items := fixtures
		if outcome := r.URL.Query().Get("outcome"); outcome != "" {
			items = nil
			for _, s := range fixtures {
				if s.Outcome == outcome {
					items = append(items, s)
				}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(items)
	}))

	all, err := manager.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].DurationSeconds)
	assert.Equal(t, int64(420), *all[0].DurationSeconds)

	booked, err := manager.List(context.Background(), calls.OutcomeBooked)
	require.NoError(t, err)
	require.Len(t, booked, 1)
	assert.Equal(t, "Jane", booked[0].CallerName)
}

func TestGet(t *testing.T) {
	server, manager := setupManager(t)

	server.Mux.Get("/api/v1/call-summaries/{id}/", server.RequireAuth(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(calls.Summary{ID: 7, CallerName: "Jane", Outcome: calls.OutcomeInquiry})
	}))

	summary, err := manager.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), summary.ID)
	assert.Equal(t, calls.OutcomeInquiry, summary.Outcome)
}
