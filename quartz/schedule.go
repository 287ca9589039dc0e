package quartz

import "time"

// Schedule discriminator values. These are the persisted Type field and are
// shared with other implementations of the same store, so they are not
// renamed to Go conventions.
const (
	TypeSimple            = "SimpleTriggerImpl"
	TypeCron              = "CronTriggerImpl"
	TypeCalendarInterval  = "CalendarIntervalTriggerImpl"
	TypeDailyTimeInterval = "DailyTimeIntervalTriggerImpl"
)

// RepeatIndefinitely marks a repeat count with no upper bound.
const RepeatIndefinitely = -1

// Schedule is the kind-specific part of a trigger: it knows how to compute
// fire times relative to the trigger's start and end bounds.
type Schedule interface {
	// Kind returns the persisted discriminator for this variant.
	Kind() string

	// FireTimeAfter returns the earliest fire instant strictly after the
	// given time, no earlier than start and before end (when set), or nil
	// when the schedule is exhausted.
	FireTimeAfter(after, start time.Time, end *time.Time) *time.Time
}

// IntervalUnit enumerates the repeat-interval units of the calendar-interval
// and daily-time-interval variants. Ordinal values are part of the persisted
// encoding.
type IntervalUnit int

const (
	IntervalMillisecond IntervalUnit = iota
	IntervalSecond
	IntervalMinute
	IntervalHour
	IntervalDay
	IntervalWeek
	IntervalMonth
	IntervalYear
)

// SimpleSchedule fires at start plus n*interval for n in [0, repeatCount].
type SimpleSchedule struct {
	RepeatCount    int // RepeatIndefinitely for unbounded
	RepeatInterval time.Duration
	TimesTriggered int
}

// Kind returns the simple-trigger discriminator.
func (s *SimpleSchedule) Kind() string { return TypeSimple }

// FireTimeAfter computes the next fire instant strictly after the given time.
func (s *SimpleSchedule) FireTimeAfter(after, start time.Time, end *time.Time) *time.Time {
	if s.RepeatCount != RepeatIndefinitely && s.TimesTriggered > s.RepeatCount {
		return nil
	}
	if end != nil && !after.Before(*end) {
		return nil
	}

	if after.Before(start) {
		t := start
		return &t
	}

	// Non-repeating or degenerate interval: the only fire is at start.
	if s.RepeatInterval <= 0 {
		return nil
	}

	n := int64(after.Sub(start)/s.RepeatInterval) + 1
	if s.RepeatCount != RepeatIndefinitely && n > int64(s.RepeatCount) {
		return nil
	}

	t := start.Add(time.Duration(n) * s.RepeatInterval)
	if end != nil && !t.Before(*end) {
		return nil
	}
	return &t
}

// FinalFireTime returns the last instant this schedule can fire, or nil for
// an unbounded schedule with no end time.
func (s *SimpleSchedule) FinalFireTime(start time.Time, end *time.Time) *time.Time {
	if s.RepeatCount == 0 || s.RepeatInterval <= 0 {
		t := start
		return &t
	}
	if s.RepeatCount == RepeatIndefinitely {
		if end == nil {
			return nil
		}
		n := int64(end.Sub(start) / s.RepeatInterval)
		t := start.Add(time.Duration(n) * s.RepeatInterval)
		if !t.Before(*end) {
			t = t.Add(-s.RepeatInterval)
		}
		return &t
	}
	t := start.Add(time.Duration(s.RepeatCount) * s.RepeatInterval)
	if end != nil && !t.Before(*end) {
		n := int64(end.Sub(start) / s.RepeatInterval)
		t = start.Add(time.Duration(n) * s.RepeatInterval)
		if !t.Before(*end) {
			t = t.Add(-s.RepeatInterval)
		}
	}
	return &t
}
