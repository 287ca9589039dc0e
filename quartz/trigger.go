package quartz

import "time"

// DefaultPriority is the priority assigned when a trigger does not set one.
const DefaultPriority = 5

// Misfire instructions. Applied when a trigger's fire time passed longer ago
// than the misfire threshold before any instance could acquire it.
const (
	// MisfireInstructionIgnore leaves the overdue fire time in place; the
	// trigger fires late and its schedule catches up naturally.
	MisfireInstructionIgnore = -1

	// MisfireInstructionSmartPolicy defers to the variant default, which for
	// every variant here is skipping to the next admissible time.
	MisfireInstructionSmartPolicy = 0

	// MisfireInstructionFireNow reschedules the missed fire to now.
	MisfireInstructionFireNow = 1

	// MisfireInstructionSkipToNext discards the missed fire and advances to
	// the next admissible time after now.
	MisfireInstructionSkipToNext = 2
)

// maxCalendarSkips bounds the forward search for a calendar-admissible fire
// time before the schedule is treated as exhausted.
const maxCalendarSkips = 100000

// Trigger is a schedule definition bound to a job. The kind-specific
// parameters live in Schedule; everything else is common to all variants.
type Trigger struct {
	Key                TriggerKey
	JobKey             JobKey
	Description        string
	CalendarName       string
	Data               JobDataMap
	MisfireInstruction int
	FireInstanceID     string
	Priority           int
	StartTime          time.Time
	EndTime            *time.Time
	NextFireTime       *time.Time
	PreviousFireTime   *time.Time
	Schedule           Schedule
}

// NewTrigger returns a trigger with default priority and the given schedule.
func NewTrigger(key TriggerKey, jobKey JobKey, start time.Time, schedule Schedule) *Trigger {
	return &Trigger{
		Key:       key,
		JobKey:    jobKey,
		Priority:  DefaultPriority,
		StartTime: start,
		Schedule:  schedule,
	}
}

// Clone returns a deep copy. The schedule variant is copied so TimesTriggered
// mutations do not alias.
func (t *Trigger) Clone() *Trigger {
	if t == nil {
		return nil
	}
	out := *t
	out.Data = t.Data.Clone()
	out.EndTime = cloneTime(t.EndTime)
	out.NextFireTime = cloneTime(t.NextFireTime)
	out.PreviousFireTime = cloneTime(t.PreviousFireTime)
	switch s := t.Schedule.(type) {
	case *SimpleSchedule:
		c := *s
		out.Schedule = &c
	case *CronSchedule:
		c := *s
		out.Schedule = &c
	case *CalendarIntervalSchedule:
		c := *s
		out.Schedule = &c
	case *DailyTimeIntervalSchedule:
		c := *s
		cp := make([]time.Weekday, len(s.DaysOfWeek))
		copy(cp, s.DaysOfWeek)
		c.DaysOfWeek = cp
		out.Schedule = &c
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// FireTimeAfter returns the next fire instant strictly after the given time,
// without applying any calendar.
func (t *Trigger) FireTimeAfter(after time.Time) *time.Time {
	if t.Schedule == nil {
		return nil
	}
	return t.Schedule.FireTimeAfter(after, t.StartTime, t.EndTime)
}

// ComputeFirstFireTime sets NextFireTime to the first instant the schedule
// admits, skipping instants the calendar excludes.
func (t *Trigger) ComputeFirstFireTime(cal *Calendar) {
	first := t.FireTimeAfter(t.StartTime.Add(-time.Nanosecond))
	t.NextFireTime = t.skipExcluded(first, cal)
}

// Triggered records a fire: the previous fire time becomes the instant just
// fired, the times-triggered counter advances, and the next fire time is
// recomputed skipping calendar-excluded instants. A nil NextFireTime
// afterwards means the schedule is exhausted.
func (t *Trigger) Triggered(cal *Calendar) {
	t.PreviousFireTime = cloneTime(t.NextFireTime)
	t.bumpTimesTriggered()

	if t.NextFireTime == nil {
		return
	}
	next := t.FireTimeAfter(*t.NextFireTime)
	t.NextFireTime = t.skipExcluded(next, cal)
}

// UpdateAfterMisfire applies the trigger's misfire instruction relative to
// now, consulting the calendar for admissibility.
func (t *Trigger) UpdateAfterMisfire(cal *Calendar, now time.Time) {
	switch t.MisfireInstruction {
	case MisfireInstructionIgnore:
		// Leave the overdue fire time; it fires late.
	case MisfireInstructionFireNow:
		n := now
		t.NextFireTime = &n
	default: // SmartPolicy and SkipToNext both advance past now.
		next := t.FireTimeAfter(now)
		t.NextFireTime = t.skipExcluded(next, cal)
	}
}

// skipExcluded advances a candidate fire time forward until the calendar
// admits it or the schedule is exhausted.
func (t *Trigger) skipExcluded(next *time.Time, cal *Calendar) *time.Time {
	for i := 0; next != nil && !cal.Included(*next); i++ {
		if i >= maxCalendarSkips {
			return nil
		}
		next = t.FireTimeAfter(*next)
	}
	return next
}

func (t *Trigger) bumpTimesTriggered() {
	switch s := t.Schedule.(type) {
	case *SimpleSchedule:
		s.TimesTriggered++
	case *CalendarIntervalSchedule:
		s.TimesTriggered++
	case *DailyTimeIntervalSchedule:
		s.TimesTriggered++
	}
}
