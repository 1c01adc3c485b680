// Package apitest provides an in-process fake of the Elara REST API for
// package tests: token issuance and refresh (with optional rotation),
// bearer-checked account and alert endpoints, and a live SSE alert stream.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elara-app/go-elara/alerts"
	"github.com/elara-app/go-elara/session"
	"github.com/go-chi/chi/v5"
)

// Server is a fake Elara API bound to an httptest.Server. Tests may mount
// extra routes on Mux before issuing requests.
type Server struct {
	*httptest.Server
	Mux *chi.Mux

	Email    string
	Password string
	User     session.User

	lock         sync.Mutex
	validAccess  map[string]bool
	refreshToken string
	rotate       bool
	accessSeq    int
	refreshCalls int
	alerts       []alerts.Alert

	streamLock  sync.Mutex
	subscribers map[chan string]struct{}
}

// New starts a fake API. The server is shut down automatically when the
// test finishes.
func New(t *testing.T) *Server {
	t.Helper()

	s := &Server{
		Mux:      chi.NewRouter(),
		Email:    "owner@example.com",
		Password: "password123",
		User: session.User{
			ID:           1,
			Email:        "owner@example.com",
			Name:         "Owner",
			BusinessName: "Glow Studio",
			Currency:     "USD",
		},
		validAccess: make(map[string]bool),
		subscribers: make(map[chan string]struct{}),
	}
	s.routes()
	s.Server = httptest.NewServer(s.Mux)
	t.Cleanup(s.Close)
	return s
}

// SeedSession issues a valid access/refresh pair, as a completed login
// would.
func (s *Server) SeedSession() (access, refresh string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	access = s.issueAccessLocked()
	s.refreshToken = fmt.Sprintf("refresh-%d", s.accessSeq)
	return access, s.refreshToken
}

// ExpireAccess makes an access token invalid, so requests carrying it get a
// 401.
func (s *Server) ExpireAccess(token string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.validAccess, token)
}

// RevokeRefresh invalidates the current refresh token, making recovery
// impossible.
func (s *Server) RevokeRefresh() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.refreshToken = ""
}

// SetRotate enables refresh-token rotation: each successful refresh returns
// a new refresh token and invalidates the old one.
func (s *Server) SetRotate(rotate bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.rotate = rotate
}

// RefreshCalls reports how many refresh requests the server has seen.
func (s *Server) RefreshCalls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.refreshCalls
}

// CurrentRefresh returns the refresh token the server currently accepts.
func (s *Server) CurrentRefresh() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.refreshToken
}

// SetAlerts seeds the alert fixtures returned by the list endpoints.
func (s *Server) SetAlerts(items []alerts.Alert) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.alerts = append([]alerts.Alert(nil), items...)
}

// PushAlert broadcasts an alert on the SSE stream.
func (s *Server) PushAlert(alert alerts.Alert) {
	raw, err := json.Marshal(alert)
	if err != nil {
		panic(err)
	}
	s.PushRaw(string(raw))
}

// PushRaw broadcasts an arbitrary payload on the SSE stream, valid JSON or
// not.
func (s *Server) PushRaw(payload string) {
	s.streamLock.Lock()
	defer s.streamLock.Unlock()
	for sub := range s.subscribers {
		select {
		case sub <- payload:
		default:
		}
	}
}

// RequireAuth wraps a handler with a bearer check against the currently
// valid access tokens.
func (s *Server) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.lock.Lock()
		ok := token != "" && s.validAccess[token]
		s.lock.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) issueAccessLocked() string {
	s.accessSeq++
	access := fmt.Sprintf("access-%d", s.accessSeq)
	s.validAccess[access] = true
	return access
}

func (s *Server) routes() {
	s.Mux.Post("/api/v1/accounts/token/", s.handleToken)
	s.Mux.Post("/api/v1/accounts/token/refresh/", s.handleRefresh)
	s.Mux.Post("/api/v1/accounts/signup/", s.handleSignup)
	s.Mux.Get("/api/v1/accounts/me/", s.RequireAuth(s.handleMe))
	s.Mux.Patch("/api/v1/accounts/me/", s.RequireAuth(s.handleMePatch))
	s.Mux.Post("/api/v1/accounts/me/password/", s.RequireAuth(s.handlePasswordChange))
	s.Mux.Post("/api/v1/accounts/me/delete/", s.RequireAuth(s.handleAccountDelete))

	s.Mux.Get("/api/v1/alerts/", s.RequireAuth(s.handleAlertList))
	s.Mux.Post("/api/v1/alerts/{id}/mark_read/", s.RequireAuth(s.handleAlertMarkRead))
	s.Mux.Post("/api/v1/alerts/mark_all_read/", s.RequireAuth(s.handleAlertMarkAllRead))
	s.Mux.Get("/api/v1/alerts/unread_count/", s.RequireAuth(s.handleAlertUnreadCount))
	s.Mux.Post("/api/v1/alerts/clear_all/", s.RequireAuth(s.handleAlertClearAll))
	s.Mux.Get("/api/v1/alerts/stream/", s.handleStream)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if creds.Email != s.Email || creds.Password != s.Password {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	access, refresh := s.SeedSession()
	writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.lock.Lock()
	s.refreshCalls++
	if s.refreshToken == "" || body.Refresh != s.refreshToken {
		s.lock.Unlock()
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	access := s.issueAccessLocked()
	out := map[string]string{"access": access}
	if s.rotate {
		s.refreshToken = fmt.Sprintf("refresh-%d", s.accessSeq)
		out["refresh"] = s.refreshToken
	}
	s.lock.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	email, _ := req["email"].(string)
	password, _ := req["password"].(string)
	if email == "" || len(password) < 8 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.lock.Lock()
	s.Email = email
	s.Password = password
	s.User.Email = email
	if name, ok := req["business_name"].(string); ok {
		s.User.BusinessName = name
	}
	user := s.User
	s.lock.Unlock()
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request) {
	s.lock.Lock()
	user := s.User
	s.lock.Unlock()
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleMePatch(w http.ResponseWriter, r *http.Request) {
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.lock.Lock()
	// Merge the patch over the stored profile through a JSON round trip,
	// mirroring a partial serializer update.
	current, _ := json.Marshal(s.User)
	merged := map[string]json.RawMessage{}
	_ = json.Unmarshal(current, &merged)
	for key, value := range patch {
		if key == "id" || key == "email" {
			continue
		}
		merged[key] = value
	}
	raw, _ := json.Marshal(merged)
	_ = json.Unmarshal(raw, &s.User)
	user := s.User
	s.lock.Unlock()

	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if body.OldPassword != s.Password {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"old_password": {"Current password is incorrect."}})
		return
	}
	if len(body.NewPassword) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"new_password": {"Too short."}})
		return
	}
	s.Password = body.NewPassword
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Password changed successfully."})
}

func (s *Server) handleAccountDelete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Confirmation string `json:"confirmation"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Confirmation != "DELETE" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"confirmation": {"Confirmation text must be 'DELETE' (all caps)."}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Account deleted successfully."})
}

func (s *Server) handleAlertList(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	items := append([]alerts.Alert(nil), s.alerts...)
	s.lock.Unlock()

	if isRead := r.URL.Query().Get("is_read"); isRead != "" {
		want := isRead == "true"
		filtered := items[:0]
		for _, item := range items {
			if item.IsRead == want {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}
	if alertType := r.URL.Query().Get("type"); alertType != "" {
		filtered := items[:0]
		for _, item := range items {
			if item.Type == alertType {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}
	if items == nil {
		items = []alerts.Alert{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleAlertMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts[i].IsRead = true
			writeJSON(w, http.StatusOK, s.alerts[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (s *Server) handleAlertMarkAllRead(w http.ResponseWriter, _ *http.Request) {
	s.lock.Lock()
	marked := 0
	for i := range s.alerts {
		if !s.alerts[i].IsRead {
			s.alerts[i].IsRead = true
			marked++
		}
	}
	s.lock.Unlock()
	writeJSON(w, http.StatusOK, map[string]int{"marked_read": marked})
}

func (s *Server) handleAlertUnreadCount(w http.ResponseWriter, _ *http.Request) {
	s.lock.Lock()
	count := 0
	for i := range s.alerts {
		if !s.alerts[i].IsRead {
			count++
		}
	}
	s.lock.Unlock()
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Server) handleAlertClearAll(w http.ResponseWriter, _ *http.Request) {
	s.lock.Lock()
	deleted := len(s.alerts)
	s.alerts = nil
	s.lock.Unlock()
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// handleStream is the SSE endpoint. Authentication is by access_token query
// parameter, exactly like the real stream.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("access_token")
	s.lock.Lock()
	ok := token != "" && s.validAccess[token]
	s.lock.Unlock()
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	sub := make(chan string, 16)
	s.streamLock.Lock()
	s.subscribers[sub] = struct{}{}
	s.streamLock.Unlock()
	defer func() {
		s.streamLock.Lock()
		delete(s.subscribers, sub)
		s.streamLock.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(50 * time.Millisecond)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case payload := <-sub:
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
