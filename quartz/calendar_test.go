package quartz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCalendarIncludesEverything(t *testing.T) {
	var cal *Calendar
	assert.True(t, cal.Included(time.Now()))

	base := &Calendar{Description: "no exclusions"}
	assert.True(t, base.Included(time.Now()))
}

func TestAnnualCalendarIgnoresYear(t *testing.T) {
	cal := &Calendar{Rule: &AnnualCalendar{
		ExcludedDays: []time.Time{mustTime(t, "2015-12-25T00:00:00Z")},
	}}

	assert.False(t, cal.Included(mustTime(t, "2025-12-25T08:00:00Z")))
	assert.True(t, cal.Included(mustTime(t, "2025-12-24T08:00:00Z")))
}

func TestCronCalendarExcludesMatchingInstants(t *testing.T) {
	rule, err := NewCronCalendar("0 * * * * ?")
	require.NoError(t, err)
	cal := &Calendar{Rule: rule}

	// Every whole minute is excluded; everything else is included.
	assert.False(t, cal.Included(mustTime(t, "2025-01-06T09:30:00Z")))
	assert.True(t, cal.Included(mustTime(t, "2025-01-06T09:30:17Z")))
}

func TestDailyCalendarExcludesRange(t *testing.T) {
	cal := &Calendar{Rule: &DailyCalendar{
		RangeStart: TimeOfDay{Hour: 9},
		RangeEnd:   TimeOfDay{Hour: 17},
	}}

	assert.False(t, cal.Included(mustTime(t, "2025-01-06T12:00:00Z")))
	assert.True(t, cal.Included(mustTime(t, "2025-01-06T18:00:00Z")))
}

func TestDailyCalendarInverted(t *testing.T) {
	cal := &Calendar{Rule: &DailyCalendar{
		RangeStart:      TimeOfDay{Hour: 9},
		RangeEnd:        TimeOfDay{Hour: 17},
		InvertTimeRange: true,
	}}

	assert.True(t, cal.Included(mustTime(t, "2025-01-06T12:00:00Z")))
	assert.False(t, cal.Included(mustTime(t, "2025-01-06T18:00:00Z")))
}

func TestHolidayCalendarExcludesWholeDate(t *testing.T) {
	cal := &Calendar{Rule: &HolidayCalendar{
		ExcludedDates: []time.Time{mustTime(t, "2025-12-25T00:00:00Z")},
	}}

	assert.False(t, cal.Included(mustTime(t, "2025-12-25T15:00:00Z")))
	// Unlike the annual calendar, the year matters.
	assert.True(t, cal.Included(mustTime(t, "2026-12-25T15:00:00Z")))
}

func TestMonthlyCalendar(t *testing.T) {
	rule := &MonthlyCalendar{}
	rule.SetDayExcluded(15, true)
	cal := &Calendar{Rule: rule}

	assert.False(t, cal.Included(mustTime(t, "2025-01-15T09:00:00Z")))
	assert.True(t, cal.Included(mustTime(t, "2025-01-16T09:00:00Z")))
}

func TestWeeklyCalendar(t *testing.T) {
	rule := &WeeklyCalendar{}
	rule.SetDayExcluded(time.Saturday, true)
	rule.SetDayExcluded(time.Sunday, true)
	cal := &Calendar{Rule: rule}

	// 2025-01-04 is a Saturday, 2025-01-06 a Monday.
	assert.False(t, cal.Included(mustTime(t, "2025-01-04T09:00:00Z")))
	assert.True(t, cal.Included(mustTime(t, "2025-01-06T09:00:00Z")))
}
