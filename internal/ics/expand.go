package ics

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "github.com/larshallqvist-cell/mattebo-calendar/internal/log"
	"github.com/larshallqvist-cell/mattebo-calendar/internal/model"
)

const (
	// DefaultHorizon bounds forward enumeration of recurring events.
	DefaultHorizon = 26 * 7 * 24 * time.Hour

	// DefaultMaxOccurrences caps how many occurrences a single recurring
	// event may contribute regardless of horizon, guarding against
	// pathological rules such as an unbounded daily recurrence.
	DefaultMaxOccurrences = 200

	// overrideTolerance absorbs minor clock/format rounding between a
	// generated occurrence start and the RECURRENCE-ID it replaces.
	overrideTolerance = time.Minute
)

// ExpandOptions controls recurrence expansion. Zero values fall back to
// the defaults above.
type ExpandOptions struct {
	Horizon        time.Duration
	MaxOccurrences int
}

func (o *ExpandOptions) normalize() {
	if o.Horizon <= 0 {
		o.Horizon = DefaultHorizon
	}
	if o.MaxOccurrences <= 0 {
		o.MaxOccurrences = DefaultMaxOccurrences
	}
}

// override pairs a replacement event with the original instance start it
// suppresses. Overrides exist only during expansion; callers only ever
// see the merged CalendarEvent list.
type override struct {
	original time.Time
	event    model.CalendarEvent
}

// Expand turns decoded entries into the final normalized, sorted event
// list:
//
//  1. Overrides are collected first, keyed by master UID, and their
//     replacement events built up front.
//  2. Single entries pass through as one occurrence each; recurring
//     masters are enumerated forward from now up to the horizon.
//  3. An enumerated occurrence is suppressed when an override of the
//     same master anchors within overrideTolerance of its start. When
//     several overrides fall inside the tolerance the first one
//     encountered wins; source order makes this deterministic.
//  4. Override events are appended once each, then the merged list is
//     stably sorted by start so equal timestamps keep their merge order
//     (singles, expanded occurrences, overrides).
func Expand(entries []Entry, now time.Time, opts ExpandOptions) []model.CalendarEvent {
	opts.normalize()
	horizon := now.Add(opts.Horizon)

	overridesByUID := make(map[string][]override)
	overrideEvents := make([]model.CalendarEvent, 0)
	for _, e := range entries {
		if e.Kind != KindOverride {
			continue
		}
		id := fmt.Sprintf("%s-override-%d", e.UID, len(overrideEvents))
		ev := makeEvent(id, e, e.Start, e.End)
		overridesByUID[e.UID] = append(overridesByUID[e.UID], override{
			original: e.RecurrenceID,
			event:    ev,
		})
		overrideEvents = append(overrideEvents, ev)
	}

	events := make([]model.CalendarEvent, 0, len(entries))

	for _, e := range entries {
		if e.Kind != KindSingle {
			continue
		}
		events = append(events, makeEvent(e.UID, e, e.Start, e.End))
	}

	for _, e := range entries {
		if e.Kind != KindRecurringMaster {
			continue
		}
		events = append(events, expandRecurring(e, overridesByUID[e.UID], now, horizon, opts.MaxOccurrences)...)
	}

	events = append(events, overrideEvents...)

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})

	return events
}

// expandRecurring enumerates concrete occurrences of one recurring master
// as a finite lazy sequence: enumeration stops at the first occurrence
// past the horizon or once maxOcc occurrences have been produced.
func expandRecurring(e Entry, overrides []override, now, horizon time.Time, maxOcc int) []model.CalendarEvent {
	r, err := rrule.StrToRRule(e.RawRRule)
	if err != nil {
		appLog.Error("rrule parse failed, skipping event", err, "uid", e.UID, "rrule", e.RawRRule)
		return nil
	}
	r.DTStart(e.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range e.ExDates {
		set.ExDate(ex.In(e.Start.Location()))
	}

	// Duration is computed once from the master, not per occurrence.
	dur := e.End.Sub(e.Start)

	out := make([]model.CalendarEvent, 0)
	next := set.Iterator()
	for {
		start, ok := next()
		if !ok || start.After(horizon) {
			break
		}
		end := start.Add(dur)
		if !end.After(now) {
			// Already ended; skip without counting against the cap.
			continue
		}
		if suppressed(overrides, start) {
			continue
		}

		id := e.UID + "-" + start.UTC().Format(time.RFC3339)
		out = append(out, makeEvent(id, e, start, end))
		if len(out) >= maxOcc {
			break
		}
	}
	return out
}

// suppressed reports whether an override anchors within the tolerance of
// the given occurrence start. First match wins.
func suppressed(overrides []override, start time.Time) bool {
	for _, ov := range overrides {
		d := start.Sub(ov.original)
		if d < 0 {
			d = -d
		}
		if d < overrideTolerance {
			return true
		}
	}
	return false
}

// makeEvent builds the normalized event for one occurrence. The week
// number is always rederived from the start instant here so no caller
// can construct an event whose week disagrees with its date.
func makeEvent(id string, e Entry, start, end time.Time) model.CalendarEvent {
	title := e.Summary
	if title == "" {
		title = model.DefaultTitle
	}
	if end.Before(start) {
		end = start
	}
	return model.CalendarEvent{
		ID:          id,
		Title:       title,
		Date:        start,
		EndDate:     end,
		Location:    e.Location,
		Description: e.Description,
		Week:        WeekNumber(start),
	}
}
