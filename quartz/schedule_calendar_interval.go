package quartz

import "time"

// CalendarIntervalSchedule fires every N units from the start time, where a
// unit may be a calendar unit (day, week, month, year) whose wall length
// varies.
type CalendarIntervalSchedule struct {
	RepeatInterval    int
	RepeatIntervalUnit IntervalUnit
	PreserveHourOfDay bool
	TimesTriggered    int
	Location          *time.Location
}

// Kind returns the calendar-interval discriminator.
func (s *CalendarIntervalSchedule) Kind() string { return TypeCalendarInterval }

// FireTimeAfter computes the next fire instant strictly after the given
// time by stepping intervals forward from start.
func (s *CalendarIntervalSchedule) FireTimeAfter(after, start time.Time, end *time.Time) *time.Time {
	if s.RepeatInterval <= 0 {
		return nil
	}
	if end != nil && !after.Before(*end) {
		return nil
	}
	if after.Before(start) {
		t := start
		return &t
	}

	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	start = start.In(loc)

	// Fixed-length units jump straight to the right multiple; calendar
	// units step, skipping ahead in coarse strides first.
	switch s.RepeatIntervalUnit {
	case IntervalMillisecond, IntervalSecond, IntervalMinute, IntervalHour:
		interval := s.fixedInterval()
		n := int64(after.Sub(start)/interval) + 1
		t := start.Add(time.Duration(n) * interval)
		if end != nil && !t.Before(*end) {
			return nil
		}
		return &t
	default:
		t := start
		for !t.After(after) {
			t = s.addUnit(t, s.RepeatInterval)
		}
		if end != nil && !t.Before(*end) {
			return nil
		}
		return &t
	}
}

func (s *CalendarIntervalSchedule) fixedInterval() time.Duration {
	switch s.RepeatIntervalUnit {
	case IntervalMillisecond:
		return time.Duration(s.RepeatInterval) * time.Millisecond
	case IntervalSecond:
		return time.Duration(s.RepeatInterval) * time.Second
	case IntervalMinute:
		return time.Duration(s.RepeatInterval) * time.Minute
	default:
		return time.Duration(s.RepeatInterval) * time.Hour
	}
}

func (s *CalendarIntervalSchedule) addUnit(t time.Time, n int) time.Time {
	switch s.RepeatIntervalUnit {
	case IntervalDay:
		return t.AddDate(0, 0, n)
	case IntervalWeek:
		return t.AddDate(0, 0, 7*n)
	case IntervalMonth:
		return t.AddDate(0, n, 0)
	default: // IntervalYear
		return t.AddDate(n, 0, 0)
	}
}
