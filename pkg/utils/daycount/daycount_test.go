package daycount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestYearFraction(t *testing.T) {
	start := date(2024, 3, 20)
	end := date(2024, 6, 20)

	assert.InDelta(t, 92.0/360.0, Act360.YearFraction(start, end), 1e-15)
	assert.InDelta(t, 92.0/365.0, Act365F.YearFraction(start, end), 1e-15)
	assert.InDelta(t, 90.0/360.0, Thirty.YearFraction(start, end), 1e-15)
	assert.InDelta(t, 90.0/360.0, Thirty.YearFraction(date(2024, 1, 31), date(2024, 4, 30)), 1e-15)
}

func TestRelativeYearFractionIsSigned(t *testing.T) {
	val := date(2024, 1, 15)
	before := date(2023, 12, 20)

	assert.InDelta(t, -26.0/365.0, Act365F.RelativeYearFraction(val, before), 1e-15)
	assert.InDelta(t, 26.0/365.0, Act365F.RelativeYearFraction(before, val), 1e-15)
	assert.Equal(t, 0.0, Act365F.RelativeYearFraction(val, val))
}

func TestDaysIgnoresClockTime(t *testing.T) {
	start := time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 11, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, Days(start, end))
}

func TestParse(t *testing.T) {
	c, err := Parse(" act/365f ")
	require.NoError(t, err)
	assert.Equal(t, Act365F, c)

	c, err = Parse("Actual/360")
	require.NoError(t, err)
	assert.Equal(t, Act360, c)

	_, err = Parse("ACT/ACT ISDA")
	assert.Error(t, err)
}
