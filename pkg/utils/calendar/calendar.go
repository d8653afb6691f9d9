// Package calendar provides business day calendars and date adjustment rules.
package calendar

import (
	"strings"
	"time"
)

// ID identifies a holiday calendar.
type ID string

const (
	// Weekends treats only Saturdays and Sundays as holidays
	Weekends ID = "WEEKEND"
	// USNY is the New York banking calendar
	USNY ID = "USNY"
	// EUTA is the TARGET2 calendar
	EUTA ID = "EUTA"
)

const dateKey = "2006-01-02"

var holidays = map[ID]map[string]struct{}{
	Weekends: {},
	USNY:     {},
	EUTA:     {},
}

func init() {
	for _, h := range usnyHolidayList {
		holidays[USNY][h] = struct{}{}
	}
	for _, h := range eutaHolidayList {
		holidays[EUTA][h] = struct{}{}
	}
}

// Parse maps a configured calendar name to an ID, defaulting to Weekends
func Parse(name string) ID {
	switch ID(strings.ToUpper(strings.TrimSpace(name))) {
	case USNY:
		return USNY
	case EUTA:
		return EUTA
	default:
		return Weekends
	}
}

// Date returns midnight UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate strips the clock time, keeping the calendar date.
func Truncate(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// IsBusinessDay checks weekends and the calendar's holiday set.
func IsBusinessDay(cal ID, t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	_, holiday := holidays[cal][t.Format(dateKey)]
	return !holiday
}

// AdjustFollowing moves t forward to the next business day.
func AdjustFollowing(cal ID, t time.Time) time.Time {
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// AdjustModifiedFollowing applies Following unless that crosses a month end.
func AdjustModifiedFollowing(cal ID, t time.Time) time.Time {
	adjusted := AdjustFollowing(cal, t)
	if adjusted.Month() == t.Month() {
		return adjusted
	}
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

// AddBusinessDays advances n business days (n can be negative).
func AddBusinessDays(cal ID, t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	for n > 0 {
		t = t.AddDate(0, 0, step)
		if IsBusinessDay(cal, t) {
			n--
		}
	}
	return t
}

// AddMonths behaves like Excel's EDATE: the day of month is clamped to the
// end of the target month instead of overflowing into the next one.
func AddMonths(t time.Time, months int) time.Time {
	first := Date(t.Year(), t.Month(), 1).AddDate(0, months, 0)
	lastDay := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return Date(first.Year(), first.Month(), day)
}

var usnyHolidayList = []string{
	"2024-01-01", "2024-01-15", "2024-02-19", "2024-05-27", "2024-06-19", "2024-07-04",
	"2024-09-02", "2024-10-14", "2024-11-11", "2024-11-28", "2024-12-25",
	"2025-01-01", "2025-01-20", "2025-02-17", "2025-05-26", "2025-06-19", "2025-07-04",
	"2025-09-01", "2025-10-13", "2025-11-11", "2025-11-27", "2025-12-25",
	"2026-01-01", "2026-01-19", "2026-02-16", "2026-05-25", "2026-06-19", "2026-07-03",
	"2026-09-07", "2026-10-12", "2026-11-11", "2026-11-26", "2026-12-25",
}

var eutaHolidayList = []string{
	"2024-01-01", "2024-03-29", "2024-04-01", "2024-05-01", "2024-12-25", "2024-12-26",
	"2025-01-01", "2025-04-18", "2025-04-21", "2025-05-01", "2025-12-25", "2025-12-26",
	"2026-01-01", "2026-04-03", "2026-04-06", "2026-05-01", "2026-12-25", "2026-12-26",
}
