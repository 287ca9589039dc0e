package jobstore

import (
	"fmt"
	"time"

	"github.com/lukeryannetnz/quartz-dynamo/quartz"
	"github.com/lukeryannetnz/quartz-dynamo/storage"
)

// StoredCalendar maps a named calendar to its record form. Each rule variant
// carries its own fields next to the shared Name, Description and Type.
type StoredCalendar struct {
	Name     string
	Calendar *quartz.Calendar
}

// NewStoredCalendar wraps a calendar for persistence under the given name.
func NewStoredCalendar(name string, cal *quartz.Calendar) *StoredCalendar {
	return &StoredCalendar{Name: name, Calendar: cal}
}

// MarshalRecord encodes the calendar and its rule variant.
func (s *StoredCalendar) MarshalRecord() (storage.Record, error) {
	var rec storage.Record
	rec.Set("Name", storage.String(s.Name))
	rec.Set("Description", storage.String(s.Calendar.Description))

	rule := s.Calendar.Rule
	if rule == nil {
		return rec, nil
	}
	rec.Set("Type", storage.String(rule.Kind()))

	switch r := rule.(type) {
	case *quartz.AnnualCalendar:
		days := make([]storage.Value, 0, len(r.ExcludedDays))
		for _, d := range r.ExcludedDays {
			days = append(days, storage.String(d.UTC().Format(time.RFC3339)))
		}
		rec.Set("ExcludedDays", storage.List(days...))
	case *quartz.CronCalendar:
		rec.Set("CronExpression", storage.String(r.Expression))
	case *quartz.DailyCalendar:
		rec.Set("RangeStartingTimeUTC", storage.String(formatTimeOfDay(r.RangeStart)))
		rec.Set("RangeEndingTimeUTC", storage.String(formatTimeOfDay(r.RangeEnd)))
		rec.Set("InvertTimeRange", storage.Bool(r.InvertTimeRange))
	case *quartz.HolidayCalendar:
		dates := make([]storage.Value, 0, len(r.ExcludedDates))
		for _, d := range r.ExcludedDates {
			dates = append(dates, storage.String(d.UTC().Format(time.RFC3339)))
		}
		rec.Set("ExcludedDates", storage.List(dates...))
	case *quartz.MonthlyCalendar:
		var days []storage.Value
		for i, excluded := range r.ExcludedDays {
			if excluded {
				days = append(days, storage.Number(int64(i+1)))
			}
		}
		rec.Set("ExcludedDays", storage.List(days...))
	case *quartz.WeeklyCalendar:
		var days []storage.Value
		for i, excluded := range r.ExcludedDays {
			if excluded {
				days = append(days, storage.Number(int64(i)))
			}
		}
		rec.Set("ExcludedDays", storage.List(days...))
	}
	return rec, nil
}

// UnmarshalRecord decodes a stored calendar. A record without a Type field
// decodes to a base calendar that excludes nothing.
func (s *StoredCalendar) UnmarshalRecord(rec storage.Record) error {
	s.Name = rec.GetString("Name")
	cal := &quartz.Calendar{Description: rec.GetString("Description")}
	s.Calendar = cal

	if !rec.Has("Type") {
		return nil
	}

	switch kind := rec.GetString("Type"); kind {
	case quartz.CalendarTypeAnnual:
		days, err := decodeDateList(rec, "ExcludedDays")
		if err != nil {
			return err
		}
		cal.Rule = &quartz.AnnualCalendar{ExcludedDays: days}
	case quartz.CalendarTypeCron:
		rule, err := quartz.NewCronCalendar(rec.GetString("CronExpression"))
		if err != nil {
			return err
		}
		cal.Rule = rule
	case quartz.CalendarTypeDaily:
		start, err := parseTimeOfDay(rec.GetString("RangeStartingTimeUTC"))
		if err != nil {
			return err
		}
		end, err := parseTimeOfDay(rec.GetString("RangeEndingTimeUTC"))
		if err != nil {
			return err
		}
		cal.Rule = &quartz.DailyCalendar{
			RangeStart:      start,
			RangeEnd:        end,
			InvertTimeRange: rec.GetBool("InvertTimeRange"),
		}
	case quartz.CalendarTypeHoliday:
		dates, err := decodeDateList(rec, "ExcludedDates")
		if err != nil {
			return err
		}
		cal.Rule = &quartz.HolidayCalendar{ExcludedDates: dates}
	case quartz.CalendarTypeMonthly:
		rule := &quartz.MonthlyCalendar{}
		for _, v := range rec.Get("ExcludedDays").L {
			rule.SetDayExcluded(int(v.N), true)
		}
		cal.Rule = rule
	case quartz.CalendarTypeWeekly:
		rule := &quartz.WeeklyCalendar{}
		for _, v := range rec.Get("ExcludedDays").L {
			rule.SetDayExcluded(time.Weekday(v.N), true)
		}
		cal.Rule = rule
	default:
		return nil
	}
	return nil
}

// KeyRecord returns the primary key record.
func (s *StoredCalendar) KeyRecord() storage.Record {
	return calendarKeyRecord(s.Name)
}

func calendarKeyRecord(name string) storage.Record {
	var rec storage.Record
	rec.Set("Name", storage.String(name))
	return rec
}

func decodeDateList(rec storage.Record, field string) ([]time.Time, error) {
	var out []time.Time
	for _, v := range rec.Get(field).L {
		t, err := time.Parse(time.RFC3339, v.S)
		if err != nil {
			return nil, err
		}
		out = append(out, t.UTC())
	}
	return out, nil
}

func formatTimeOfDay(t quartz.TimeOfDay) string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

func parseTimeOfDay(s string) (quartz.TimeOfDay, error) {
	var t quartz.TimeOfDay
	if s == "" {
		return t, nil
	}
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &t.Hour, &t.Minute, &t.Second); err != nil {
		return t, err
	}
	return t, nil
}
