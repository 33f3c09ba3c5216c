package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larshallqvist-cell/mattebo-calendar/internal/config"
	"github.com/larshallqvist-cell/mattebo-calendar/internal/model"
	"github.com/larshallqvist-cell/mattebo-calendar/internal/store"
	"github.com/larshallqvist-cell/mattebo-calendar/internal/web"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Gateway.Endpoint = "http://gateway.invalid/calendar"
	return cfg
}

func stubLoader(events []model.CalendarEvent, err error) store.Loader {
	return func(_ context.Context, _ int) ([]model.CalendarEvent, error) {
		return events, err
	}
}

type apiResponse struct {
	Grade          int                   `json:"grade"`
	Events         []model.CalendarEvent `json:"events"`
	UpcomingEvents []model.CalendarEvent `json:"upcoming_events"`
	NextEvent      *model.CalendarEvent  `json:"next_event"`
}

func TestHealth(t *testing.T) {
	s := web.NewServer(testConfig(), store.New(0, stubLoader(nil, nil)))

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestEventsUnknownGrade(t *testing.T) {
	s := web.NewServer(testConfig(), store.New(0, stubLoader(nil, nil)))

	for _, target := range []string{"/api/events", "/api/events?grade=5", "/api/events?grade=x"} {
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestEventsResponseShape(t *testing.T) {
	past := model.CalendarEvent{
		ID: "past", Title: "Avslutad",
		Date:    time.Now().Add(-2 * time.Hour),
		EndDate: time.Now().Add(-time.Hour),
	}
	future := model.CalendarEvent{
		ID: "future", Title: "Kommande",
		Date:    time.Now().Add(time.Hour),
		EndDate: time.Now().Add(2 * time.Hour),
	}
	s := web.NewServer(testConfig(), store.New(0, stubLoader([]model.CalendarEvent{past, future}, nil)))

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/events?grade=7", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.Grade)
	assert.Len(t, resp.Events, 2)
	require.Len(t, resp.UpcomingEvents, 1)
	assert.Equal(t, "future", resp.UpcomingEvents[0].ID)
	require.NotNil(t, resp.NextEvent)
	assert.Equal(t, "future", resp.NextEvent.ID)
}

func TestEventsPipelineError(t *testing.T) {
	s := web.NewServer(testConfig(), store.New(0, stubLoader(nil, errors.New("gateway down"))))

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/events?grade=7", nil))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "error")
}

func TestEventsEmptyListIsNotAnError(t *testing.T) {
	s := web.NewServer(testConfig(), store.New(0, stubLoader([]model.CalendarEvent{}, nil)))

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/events?grade=7", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Events)
	assert.Empty(t, resp.Events)
	assert.Nil(t, resp.NextEvent)
}

func TestBasicAuth(t *testing.T) {
	cfg := testConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "hemligt"}
	s := web.NewServer(cfg, store.New(0, stubLoader([]model.CalendarEvent{}, nil)))

	// /health stays open.
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	// The API requires credentials.
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/events?grade=7", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/events?grade=7", nil)
	req.SetBasicAuth("admin", "hemligt")
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
