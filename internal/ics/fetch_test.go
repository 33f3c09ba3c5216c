package ics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larshallqvist-cell/mattebo-calendar/internal/ics"
)

func gatewayBody() []byte {
	return calendar(
		"BEGIN:VEVENT",
		"UID:lesson@mattebo",
		"SUMMARY:Algebra",
		"DTSTART:20990312T080000Z",
		"DTEND:20990312T090000Z",
		"END:VEVENT",
	)
}

func TestClientFetch(t *testing.T) {
	var gotGrade, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotGrade = r.URL.Query().Get("grade")
		gotKey = r.Header.Get("apikey")
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write(gatewayBody())
	}))
	defer srv.Close()

	client := ics.NewClient(srv.URL, "secret")
	body, err := client.Fetch(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, "7", gotGrade)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, gatewayBody(), body)
}

func TestClientFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := ics.NewClient(srv.URL, "")
	_, err := client.Fetch(context.Background(), 7)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestClientFetchEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := ics.NewClient(srv.URL, "")
	_, err := client.Fetch(context.Background(), 7)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty body")
}

func TestClientFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	client := ics.NewClient(srv.URL, "")
	_, err := client.Fetch(context.Background(), 7)
	assert.Error(t, err)
}

func TestLoaderHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(gatewayBody())
	}))
	defer srv.Close()

	load := ics.Loader(ics.NewClient(srv.URL, ""), ics.ExpandOptions{})
	events, err := load(context.Background(), 7)

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Algebra", events[0].Title)
}

func TestLoaderFetchErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	load := ics.Loader(ics.NewClient(srv.URL, ""), ics.ExpandOptions{})
	_, err := load(context.Background(), 7)
	assert.Error(t, err)
}

func TestLoaderDecodeFailureYieldsEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("inte en kalender"))
	}))
	defer srv.Close()

	load := ics.Loader(ics.NewClient(srv.URL, ""), ics.ExpandOptions{})
	events, err := load(context.Background(), 7)

	// Decode failures are absorbed at the pipeline boundary: zero
	// events, no error, so callers can tell "empty" from "failed".
	require.NoError(t, err)
	assert.Empty(t, events)
}
