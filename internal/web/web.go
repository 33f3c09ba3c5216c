package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/larshallqvist-cell/mattebo-calendar/internal/config"
	appLog "github.com/larshallqvist-cell/mattebo-calendar/internal/log"
	"github.com/larshallqvist-cell/mattebo-calendar/internal/model"
	"github.com/larshallqvist-cell/mattebo-calendar/internal/store"
)

// Server exposes the per-grade event API consumed by the site front-end.
type Server struct {
	cfg    *config.Config
	events *store.Store
	mux    *http.ServeMux
}

// NewServer constructs a new Server backed by the given event store.
func NewServer(cfg *config.Config, events *store.Store) *Server {
	s := &Server{
		cfg:    cfg,
		events: events,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Grade          int                   `json:"grade"`
	Events         []model.CalendarEvent `json:"events"`
	UpcomingEvents []model.CalendarEvent `json:"upcoming_events"`
	NextEvent      *model.CalendarEvent  `json:"next_event"`
	GeneratedAt    time.Time             `json:"generated_at"`
}

// handleEvents returns the full normalized event list for one grade plus
// the derived upcoming/next views.
//
// GET /api/events?grade=7
//
// The upcoming/next derivation is recomputed against a fresh "now" on
// every request; only the underlying event list is cached.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	grade, err := strconv.Atoi(r.URL.Query().Get("grade"))
	if err != nil || !s.cfg.ServesGrade(grade) {
		writeError(w, http.StatusBadRequest, "unknown grade")
		return
	}

	events, err := s.events.GetEvents(r.Context(), grade)
	if err != nil {
		appLog.Error("api events: pipeline failed", err, "grade", grade)
		writeError(w, http.StatusBadGateway, "failed to load calendar")
		return
	}

	now := time.Now()
	resp := eventsResponse{
		Grade:          grade,
		Events:         events,
		UpcomingEvents: model.Upcoming(events, now),
		NextEvent:      model.NextEvent(events, now),
		GeneratedAt:    now,
	}
	if resp.Events == nil {
		resp.Events = []model.CalendarEvent{}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password counts as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="mattebocal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
