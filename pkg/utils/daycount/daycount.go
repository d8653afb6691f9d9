// Package daycount converts pairs of dates into year fractions.
package daycount

import (
	"strings"
	"time"

	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
)

// Convention is a day count convention name.
type Convention string

// Supported conventions
const (
	Act360  Convention = "ACT/360"
	Act365F Convention = "ACT/365F"
	Thirty  Convention = "30E/360"
)

// Parse maps a configured convention name onto a supported Convention
func Parse(name string) (Convention, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "ACT/360", "ACTUAL/360":
		return Act360, nil
	case "ACT/365F", "ACT/365 FIXED", "ACTUAL/365F":
		return Act365F, nil
	case "30E/360", "30/360":
		return Thirty, nil
	default:
		return "", errors.InvalidArgumentf("unsupported day count convention %q", name)
	}
}

// Days returns the number of calendar days from start to end.
func Days(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}

// YearFraction computes the year fraction between two dates, start <= end.
func (c Convention) YearFraction(start, end time.Time) float64 {
	switch c {
	case Act360:
		return float64(Days(start, end)) / 360.0
	case Thirty:
		// 30E/360: both day numbers capped at 30
		d1 := start.Day()
		if d1 > 30 {
			d1 = 30
		}
		d2 := end.Day()
		if d2 > 30 {
			d2 = 30
		}
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
	default:
		return float64(Days(start, end)) / 365.0
	}
}

// RelativeYearFraction is YearFraction allowing end before start, in which
// case the result is negative.
func (c Convention) RelativeYearFraction(start, end time.Time) float64 {
	if end.Before(start) {
		return -c.YearFraction(end, start)
	}
	return c.YearFraction(start, end)
}

// String returns the convention name
func (c Convention) String() string {
	return string(c)
}
