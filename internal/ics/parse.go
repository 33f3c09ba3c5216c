package ics

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "github.com/larshallqvist-cell/mattebo-calendar/internal/log"
)

// EntryKind tags the three shapes a VEVENT can take. Expansion and
// reconciliation switch on the kind instead of probing optional fields.
type EntryKind int

const (
	// KindSingle is a plain one-shot event.
	KindSingle EntryKind = iota
	// KindRecurringMaster carries an RRULE and is expanded into occurrences.
	KindRecurringMaster
	// KindOverride replaces one occurrence of a recurring master, pointed
	// at by its RECURRENCE-ID.
	KindOverride
)

// Entry is the decoded representation of a single VEVENT.
type Entry struct {
	Kind EntryKind

	UID string

	Summary     string
	Description string
	Location    string

	Start time.Time
	End   time.Time

	// RawRRule is set only for KindRecurringMaster.
	RawRRule string
	// ExDates lists excluded instance starts of a recurring master.
	ExDates []time.Time
	// RecurrenceID is set only for KindOverride: the original start of
	// the instance being replaced.
	RecurrenceID time.Time
}

// Decode parses raw calendar text into a list of entries.
//
// A calendar that fails to parse yields an error; the caller is expected
// to treat that as zero events rather than propagate it further. A single
// malformed VEVENT is logged and skipped while the rest of the calendar
// still decodes.
func Decode(body []byte) ([]Entry, error) {
	if len(body) == 0 {
		return nil, errors.New("empty calendar body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0)
	for _, ve := range cal.Events() {
		entry, perr := decodeVEvent(ve)
		if perr != nil {
			appLog.Error("vevent decode failed, skipping", perr)
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func decodeVEvent(ve *ical.VEvent) (Entry, error) {
	var out Entry

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	// DTSTART / DTEND via the library's timezone-aware helpers.
	start, err := ve.GetStartAt()
	if err != nil {
		return out, errors.New("missing or invalid DTSTART")
	}
	out.Start = start

	end, err := ve.GetEndAt()
	if err == nil && !end.IsZero() {
		out.End = end
	} else if p := ve.GetProperty("DURATION"); p != nil {
		// No DTEND; derive the end from DURATION.
		if d, derr := parseICSDuration(p.Value); derr == nil {
			out.End = start.Add(d)
		}
	}
	if out.End.IsZero() || out.End.Before(out.Start) {
		out.End = out.Start
	}

	// RECURRENCE-ID marks this VEVENT as an override of one instance of
	// a recurring event with the same UID.
	if ridProp := ve.GetProperty("RECURRENCE-ID"); ridProp != nil {
		rid, terr := parseICSTime(ridProp.Value)
		if terr != nil {
			return out, terr
		}
		out.Kind = KindOverride
		out.RecurrenceID = rid
		return out, nil
	}

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil && rruleProp.Value != "" {
		out.Kind = KindRecurringMaster
		out.RawRRule = rruleProp.Value

		// EXDATE may appear multiple times, each with a comma-separated list.
		for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
			for _, part := range strings.Split(p.Value, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				if t, terr := parseICSTime(part); terr == nil {
					out.ExDates = append(out.ExDates, t)
				}
			}
		}
		return out, nil
	}

	out.Kind = KindSingle
	return out, nil
}

// parseICSTime parses a basic ICS date or date-time value. Used for
// EXDATE and RECURRENCE-ID where no full parameter context is available.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g. 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	// Floating local date-time, e.g. 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.Local)
	}
	// Date-only, e.g. 20250101
	return time.ParseInLocation("20060102", v, time.Local)
}

// parseICSDuration parses an RFC 5545 duration such as "PT1H30M" or
// "P1DT2H". Negative durations and the week form are accepted.
func parseICSDuration(v string) (time.Duration, error) {
	s := strings.TrimSpace(v)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else {
		s = strings.TrimPrefix(s, "+")
	}
	if !strings.HasPrefix(s, "P") {
		return 0, errors.New("invalid duration: " + v)
	}
	s = s[1:]

	var total time.Duration
	inTime := false
	num := ""
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
			continue
		case r == 'T':
			inTime = true
			continue
		}

		n, err := strconv.Atoi(num)
		if err != nil {
			return 0, errors.New("invalid duration: " + v)
		}
		num = ""

		switch {
		case r == 'W':
			total += time.Duration(n) * 7 * 24 * time.Hour
		case r == 'D':
			total += time.Duration(n) * 24 * time.Hour
		case r == 'H' && inTime:
			total += time.Duration(n) * time.Hour
		case r == 'M' && inTime:
			total += time.Duration(n) * time.Minute
		case r == 'S' && inTime:
			total += time.Duration(n) * time.Second
		default:
			return 0, errors.New("invalid duration: " + v)
		}
	}
	if num != "" {
		return 0, errors.New("invalid duration: " + v)
	}

	if neg {
		total = -total
	}
	return total, nil
}
