package ics

import "time"

// WeekNumber computes the ISO-8601 week number for t.
//
// The date is normalized to UTC midnight and shifted to the Thursday of
// its calendar week (Sunday counted as day 7); the week number is then
// derived from the day offset into that Thursday's year. The same helper
// is used for single events and every expanded occurrence so the derived
// week field can never disagree between the two paths.
func WeekNumber(t time.Time) int {
	u := t.UTC()
	d := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)

	wd := int(d.Weekday())
	if wd == 0 {
		wd = 7
	}
	thursday := d.AddDate(0, 0, 4-wd)

	yearStart := time.Date(thursday.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	days := int(thursday.Sub(yearStart) / (24 * time.Hour))

	return days/7 + 1
}
