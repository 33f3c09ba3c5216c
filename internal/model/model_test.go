package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larshallqvist-cell/mattebo-calendar/internal/model"
)

func fixedEvents() []model.CalendarEvent {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return []model.CalendarEvent{
		{ID: "a", Title: "Genomgång", Date: base, EndDate: base.Add(time.Hour)},
		{ID: "b", Title: "Prov", Date: base.AddDate(0, 0, 1), EndDate: base.AddDate(0, 0, 1).Add(time.Hour)},
		{ID: "c", Title: "Läxhjälp", Date: base.AddDate(0, 0, 2), EndDate: base.AddDate(0, 0, 2).Add(time.Hour)},
	}
}

func TestUpcomingFiltersEndedEvents(t *testing.T) {
	events := fixedEvents()
	// Strictly between the first and second events' end instants.
	now := events[0].EndDate.Add(30 * time.Minute)

	up := model.Upcoming(events, now)
	require.Len(t, up, 2)
	assert.Equal(t, "b", up[0].ID)
	assert.Equal(t, "c", up[1].ID)
}

func TestUpcomingKeepsInProgressEvent(t *testing.T) {
	events := fixedEvents()
	now := events[0].Date.Add(10 * time.Minute)

	up := model.Upcoming(events, now)
	require.Len(t, up, 3)
	assert.Equal(t, "a", up[0].ID)
}

func TestNextEvent(t *testing.T) {
	events := fixedEvents()
	now := events[0].EndDate.Add(time.Minute)

	next := model.NextEvent(events, now)
	require.NotNil(t, next)
	assert.Equal(t, "b", next.ID)
}

func TestNextEventEmpty(t *testing.T) {
	events := fixedEvents()
	now := events[2].EndDate.Add(time.Minute)

	assert.Nil(t, model.NextEvent(events, now))
	assert.Empty(t, model.Upcoming(events, now))
}
