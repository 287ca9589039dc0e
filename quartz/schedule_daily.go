package quartz

import "time"

// TimeOfDay is a wall-clock time within a day.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// On anchors the time of day to the date of t, in t's location.
func (tod TimeOfDay) On(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), tod.Hour, tod.Minute, tod.Second, 0, t.Location())
}

// Before reports strict ordering of two times of day.
func (tod TimeOfDay) Before(o TimeOfDay) bool {
	a := tod.Hour*3600 + tod.Minute*60 + tod.Second
	b := o.Hour*3600 + o.Minute*60 + o.Second
	return a < b
}

// DailyTimeIntervalSchedule fires on selected weekdays, within a
// time-of-day window, every N seconds/minutes/hours, at most
// RepeatCount+1 times per day when bounded.
type DailyTimeIntervalSchedule struct {
	DaysOfWeek         []time.Weekday
	StartTimeOfDay     TimeOfDay
	EndTimeOfDay       TimeOfDay
	RepeatCount        int // fires per day beyond the first; RepeatIndefinitely for window-bounded
	RepeatInterval     int
	RepeatIntervalUnit IntervalUnit // second, minute or hour
	TimesTriggered     int
	Location           *time.Location
}

// Kind returns the daily-time-interval discriminator.
func (s *DailyTimeIntervalSchedule) Kind() string { return TypeDailyTimeInterval }

// FireTimeAfter scans forward day by day for the first admissible instant.
// The scan is bounded at just over a year; a schedule with no admissible
// weekday is exhausted rather than looping.
func (s *DailyTimeIntervalSchedule) FireTimeAfter(after, start time.Time, end *time.Time) *time.Time {
	if end != nil && !after.Before(*end) {
		return nil
	}

	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	after = after.In(loc)
	if after.Before(start.In(loc)) {
		after = start.In(loc).Add(-time.Second)
	}

	interval := s.interval()
	if interval <= 0 {
		return nil
	}

	day := after
	for i := 0; i < 370; i++ {
		if s.dayIncluded(day.Weekday()) {
			if t := s.fireTimeOn(day, after, interval); t != nil {
				if !t.Before(start) && (end == nil || t.Before(*end)) {
					return t
				}
				if end != nil && !t.Before(*end) {
					return nil
				}
			}
		}
		day = day.AddDate(0, 0, 1)
		// From the second day on, every in-window instant qualifies.
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	}
	return nil
}

func (s *DailyTimeIntervalSchedule) fireTimeOn(day, after time.Time, interval time.Duration) *time.Time {
	windowStart := s.StartTimeOfDay.On(day)
	windowEnd := s.EndTimeOfDay.On(day)

	t := windowStart
	for n := 0; !t.After(windowEnd); n++ {
		if s.RepeatCount != RepeatIndefinitely && n > s.RepeatCount {
			return nil
		}
		if t.After(after) {
			out := t
			return &out
		}
		t = t.Add(interval)
	}
	return nil
}

func (s *DailyTimeIntervalSchedule) interval() time.Duration {
	switch s.RepeatIntervalUnit {
	case IntervalSecond:
		return time.Duration(s.RepeatInterval) * time.Second
	case IntervalMinute:
		return time.Duration(s.RepeatInterval) * time.Minute
	case IntervalHour:
		return time.Duration(s.RepeatInterval) * time.Hour
	default:
		return 0
	}
}

func (s *DailyTimeIntervalSchedule) dayIncluded(d time.Weekday) bool {
	for _, included := range s.DaysOfWeek {
		if included == d {
			return true
		}
	}
	return false
}
