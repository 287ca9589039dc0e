package quartz

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lukeryannetnz/quartz-dynamo/errors"
)

// CronParser parses six-field cron expressions with a seconds field, the
// expression shape schedulers in this family use.
var CronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CronSchedule fires at instants matching a cron expression. Expression
// evaluation is delegated entirely to the cron library.
type CronSchedule struct {
	Expression string
	Location   *time.Location

	parsed cron.Schedule
}

// NewCronSchedule parses the expression eagerly so malformed expressions
// fail at store time, not fire time.
func NewCronSchedule(expression string, loc *time.Location) (*CronSchedule, error) {
	parsed, err := CronParser.Parse(expression)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid cron expression %q", expression)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CronSchedule{Expression: expression, Location: loc, parsed: parsed}, nil
}

// Kind returns the cron-trigger discriminator.
func (s *CronSchedule) Kind() string { return TypeCron }

// FireTimeAfter computes the next matching instant strictly after the given
// time.
func (s *CronSchedule) FireTimeAfter(after, start time.Time, end *time.Time) *time.Time {
	if s.parsed == nil {
		parsed, err := CronParser.Parse(s.Expression)
		if err != nil {
			return nil
		}
		s.parsed = parsed
	}

	from := after
	if from.Before(start) {
		// The first admissible instant may be start itself.
		from = start.Add(-time.Second)
	}

	next := s.parsed.Next(from.In(s.location()))
	if next.IsZero() {
		return nil
	}
	if end != nil && !next.Before(*end) {
		return nil
	}
	return &next
}

// Satisfied reports whether the instant (at second granularity) matches the
// expression. The cron calendar uses it to test exclusion.
func (s *CronSchedule) Satisfied(t time.Time) bool {
	if s.parsed == nil {
		parsed, err := CronParser.Parse(s.Expression)
		if err != nil {
			return false
		}
		s.parsed = parsed
	}
	truncated := t.In(s.location()).Truncate(time.Second)
	return s.parsed.Next(truncated.Add(-time.Second)).Equal(truncated)
}

func (s *CronSchedule) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}
