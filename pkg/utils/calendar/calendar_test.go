package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdjustFollowing(t *testing.T) {
	// Saturday 2025-09-20 rolls to Monday
	assert.Equal(t, Date(2025, 9, 22), AdjustFollowing(Weekends, Date(2025, 9, 20)))
	assert.Equal(t, Date(2024, 3, 20), AdjustFollowing(Weekends, Date(2024, 3, 20)))
	// Monday 2024-01-15 is MLK day in New York
	assert.Equal(t, Date(2024, 1, 16), AdjustFollowing(USNY, Date(2024, 1, 13)))
}

func TestAdjustModifiedFollowing(t *testing.T) {
	// Saturday 2024-08-31 would roll into September
	assert.Equal(t, Date(2024, 8, 30), AdjustModifiedFollowing(Weekends, Date(2024, 8, 31)))
	assert.Equal(t, Date(2024, 9, 23), AdjustModifiedFollowing(Weekends, Date(2024, 9, 21)))
}

func TestAddBusinessDays(t *testing.T) {
	assert.Equal(t, Date(2024, 1, 18), AddBusinessDays(Weekends, Date(2024, 1, 15), 3))
	assert.Equal(t, Date(2024, 1, 22), AddBusinessDays(Weekends, Date(2024, 1, 17), 3))
	assert.Equal(t, Date(2024, 1, 12), AddBusinessDays(Weekends, Date(2024, 1, 15), -1))
	assert.Equal(t, Date(2024, 1, 19), AddBusinessDays(USNY, Date(2024, 1, 12), 4))
}

func TestAddMonthsClampsMonthEnd(t *testing.T) {
	assert.Equal(t, Date(2024, 2, 29), AddMonths(Date(2023, 11, 30), 3))
	assert.Equal(t, Date(2023, 9, 20), AddMonths(Date(2028, 12, 20), -63))
	assert.Equal(t, Date(2024, 4, 30), AddMonths(Date(2024, 1, 31), 3))
}

func TestParseAndTruncate(t *testing.T) {
	assert.Equal(t, USNY, Parse("usny"))
	assert.Equal(t, Weekends, Parse("unknown"))
	assert.Equal(t, Date(2024, 1, 15), Truncate(time.Date(2024, 1, 15, 17, 30, 0, 0, time.UTC)))
}
