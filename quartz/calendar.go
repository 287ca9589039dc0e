package quartz

import (
	"time"

	"github.com/lukeryannetnz/quartz-dynamo/errors"
)

// Calendar discriminator values, shared with other implementations of the
// same store.
const (
	CalendarTypeAnnual  = "AnnualCalendar"
	CalendarTypeCron    = "CronCalendar"
	CalendarTypeDaily   = "DailyCalendar"
	CalendarTypeHoliday = "HolidayCalendar"
	CalendarTypeMonthly = "MonthlyCalendar"
	CalendarTypeWeekly  = "WeeklyCalendar"
)

// CalendarRule is the kind-specific exclusion rule of a calendar.
type CalendarRule interface {
	// Kind returns the persisted discriminator for this variant.
	Kind() string

	// IsTimeIncluded reports whether the instant is admissible.
	IsTimeIncluded(t time.Time) bool
}

// Calendar is a named set of excluded date/time ranges consulted when
// computing fire times. A nil Rule excludes nothing (the base calendar).
type Calendar struct {
	Description string
	Rule        CalendarRule
}

// Included reports whether the instant is admissible. Nil-safe: no calendar
// means everything is included.
func (c *Calendar) Included(t time.Time) bool {
	if c == nil || c.Rule == nil {
		return true
	}
	return c.Rule.IsTimeIncluded(t)
}

// AnnualCalendar excludes a set of days of the year; only month and day of
// the stored dates are significant.
type AnnualCalendar struct {
	ExcludedDays []time.Time
}

// Kind returns the annual-calendar discriminator.
func (c *AnnualCalendar) Kind() string { return CalendarTypeAnnual }

// IsTimeIncluded reports whether the instant's month and day are not excluded.
func (c *AnnualCalendar) IsTimeIncluded(t time.Time) bool {
	for _, d := range c.ExcludedDays {
		if d.Month() == t.Month() && d.Day() == t.Day() {
			return false
		}
	}
	return true
}

// CronCalendar excludes every instant that satisfies a cron expression.
type CronCalendar struct {
	Expression string

	schedule *CronSchedule
}

// NewCronCalendar parses the expression eagerly.
func NewCronCalendar(expression string) (*CronCalendar, error) {
	s, err := NewCronSchedule(expression, time.UTC)
	if err != nil {
		return nil, errors.Wrap(err, "invalid cron calendar expression")
	}
	return &CronCalendar{Expression: expression, schedule: s}, nil
}

// Kind returns the cron-calendar discriminator.
func (c *CronCalendar) Kind() string { return CalendarTypeCron }

// IsTimeIncluded reports whether the instant does not satisfy the expression.
func (c *CronCalendar) IsTimeIncluded(t time.Time) bool {
	if c.schedule == nil {
		s, err := NewCronSchedule(c.Expression, time.UTC)
		if err != nil {
			return true
		}
		c.schedule = s
	}
	return !c.schedule.Satisfied(t)
}

// DailyCalendar excludes a wall-clock time range each day; InvertTimeRange
// flips it to exclude everything outside the range.
type DailyCalendar struct {
	RangeStart      TimeOfDay
	RangeEnd        TimeOfDay
	InvertTimeRange bool
}

// Kind returns the daily-calendar discriminator.
func (c *DailyCalendar) Kind() string { return CalendarTypeDaily }

// IsTimeIncluded reports whether the instant's time of day falls outside the
// excluded range (or inside it, when inverted).
func (c *DailyCalendar) IsTimeIncluded(t time.Time) bool {
	tod := TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
	inRange := !tod.Before(c.RangeStart) && !c.RangeEnd.Before(tod)
	if c.InvertTimeRange {
		return inRange
	}
	return !inRange
}

// HolidayCalendar excludes whole dates.
type HolidayCalendar struct {
	ExcludedDates []time.Time
}

// Kind returns the holiday-calendar discriminator.
func (c *HolidayCalendar) Kind() string { return CalendarTypeHoliday }

// IsTimeIncluded reports whether the instant's date is not an excluded date.
func (c *HolidayCalendar) IsTimeIncluded(t time.Time) bool {
	for _, d := range c.ExcludedDates {
		if d.Year() == t.Year() && d.Month() == t.Month() && d.Day() == t.Day() {
			return false
		}
	}
	return true
}

// MonthlyCalendar excludes days of the month. Index 0 is day 1.
type MonthlyCalendar struct {
	ExcludedDays [31]bool
}

// Kind returns the monthly-calendar discriminator.
func (c *MonthlyCalendar) Kind() string { return CalendarTypeMonthly }

// SetDayExcluded marks a day of month (1-31) excluded or not.
func (c *MonthlyCalendar) SetDayExcluded(day int, excluded bool) {
	if day >= 1 && day <= 31 {
		c.ExcludedDays[day-1] = excluded
	}
}

// IsTimeIncluded reports whether the instant's day of month is not excluded.
func (c *MonthlyCalendar) IsTimeIncluded(t time.Time) bool {
	return !c.ExcludedDays[t.Day()-1]
}

// WeeklyCalendar excludes days of the week. Index is time.Weekday ordinal
// (Sunday = 0).
type WeeklyCalendar struct {
	ExcludedDays [7]bool
}

// Kind returns the weekly-calendar discriminator.
func (c *WeeklyCalendar) Kind() string { return CalendarTypeWeekly }

// SetDayExcluded marks a weekday excluded or not.
func (c *WeeklyCalendar) SetDayExcluded(day time.Weekday, excluded bool) {
	c.ExcludedDays[day] = excluded
}

// IsTimeIncluded reports whether the instant's weekday is not excluded.
func (c *WeeklyCalendar) IsTimeIncluded(t time.Time) bool {
	return !c.ExcludedDays[t.Weekday()]
}
