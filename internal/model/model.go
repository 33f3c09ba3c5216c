package model

import "time"

// DefaultTitle is used when a source event carries no summary.
const DefaultTitle = "Händelse"

// CalendarEvent is a single concrete occurrence as served to the site,
// after recurrence expansion and override reconciliation. Instances are
// built once per cache refresh and never mutated afterwards.
type CalendarEvent struct {
	// ID is unique per occurrence. Non-recurring events use the source
	// UID as-is; expanded occurrences append the start instant; override
	// instances append an index.
	ID string `json:"id"`

	Title string `json:"title"`

	// Date / EndDate are the occurrence start and end instants.
	// EndDate is never before Date.
	Date    time.Time `json:"date"`
	EndDate time.Time `json:"endDate"`

	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`

	// Week is the ISO-8601 week number derived from Date at construction
	// time. It is never stored independently of Date.
	Week int `json:"week"`
}

// Upcoming returns the events that have not yet ended at now, preserving
// input order. The derivation is pure and is recomputed on every call;
// its result changes with wall-clock time even when events does not.
func Upcoming(events []CalendarEvent, now time.Time) []CalendarEvent {
	out := make([]CalendarEvent, 0, len(events))
	for _, ev := range events {
		if ev.EndDate.After(now) {
			out = append(out, ev)
		}
	}
	return out
}

// NextEvent returns the first event that has not yet ended at now, or nil
// if none remain. events must already be sorted by Date ascending.
func NextEvent(events []CalendarEvent, now time.Time) *CalendarEvent {
	for i := range events {
		if events[i].EndDate.After(now) {
			ev := events[i]
			return &ev
		}
	}
	return nil
}
