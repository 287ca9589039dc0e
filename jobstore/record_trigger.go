package jobstore

import (
	"time"

	"github.com/lukeryannetnz/quartz-dynamo/quartz"
	"github.com/lukeryannetnz/quartz-dynamo/storage"
)

// StoredTrigger wraps a trigger together with its persisted state and the
// scheduler instance currently holding it, if any.
type StoredTrigger struct {
	Trigger             *quartz.Trigger
	State               quartz.InternalState
	SchedulerInstanceID string
}

// NewStoredTrigger wraps a trigger in the Waiting state.
func NewStoredTrigger(trigger *quartz.Trigger) *StoredTrigger {
	return &StoredTrigger{Trigger: trigger, State: quartz.StateWaiting}
}

// scheduleCodec encodes and decodes one schedule variant's fields.
// Decoding of the whole trigger dispatches on the Type discriminator
// through scheduleCodecs; an unrecognized discriminator falls back to the
// simple variant, a deliberate tolerance for schema drift.
type scheduleCodec struct {
	encode func(s quartz.Schedule, rec *storage.Record)
	decode func(rec storage.Record) (quartz.Schedule, error)
}

var scheduleCodecs = map[string]scheduleCodec{
	quartz.TypeSimple:            {encode: encodeSimple, decode: decodeSimple},
	quartz.TypeCron:              {encode: encodeCron, decode: decodeCron},
	quartz.TypeCalendarInterval:  {encode: encodeCalendarInterval, decode: decodeCalendarInterval},
	quartz.TypeDailyTimeInterval: {encode: encodeDailyTimeInterval, decode: decodeDailyTimeInterval},
}

// MarshalRecord encodes the trigger: common fields first, then the variant
// fields and the Type discriminator. Epoch fields are whole seconds UTC.
func (s *StoredTrigger) MarshalRecord() (storage.Record, error) {
	tr := s.Trigger
	data, err := quartz.MarshalJobDataMap(tr.Data)
	if err != nil {
		return storage.Record{}, err
	}

	var rec storage.Record
	rec.Set("State", storage.String(string(s.State)))
	rec.Set("SchedulerInstanceId", storage.String(s.SchedulerInstanceID))
	rec.Set("Name", storage.String(tr.Key.Name))
	rec.Set("Group", storage.String(tr.Key.Group))
	rec.Set("JobName", storage.String(tr.JobKey.Name))
	rec.Set("JobGroup", storage.String(tr.JobKey.Group))
	rec.Set("Description", storage.String(tr.Description))
	rec.Set("CalendarName", storage.String(tr.CalendarName))
	rec.Set("JobDataMap", storage.String(data))
	rec.Set("MisfireInstruction", storage.Number(int64(tr.MisfireInstruction)))
	rec.Set("FireInstanceId", storage.String(tr.FireInstanceID))
	rec.Set("StartTimeUtcEpoch", storage.Number(tr.StartTime.Unix()))
	if tr.EndTime != nil {
		rec.Set("EndTimeUtcEpoch", storage.Number(tr.EndTime.Unix()))
	}
	if tr.NextFireTime != nil {
		rec.Set("NextFireTimeUtcEpoch", storage.Number(tr.NextFireTime.Unix()))
	}
	if tr.PreviousFireTime != nil {
		rec.Set("PreviousFireTimeUtcEpoch", storage.Number(tr.PreviousFireTime.Unix()))
	}
	rec.Set("Priority", storage.Number(int64(tr.Priority)))

	kind := quartz.TypeSimple
	if tr.Schedule != nil {
		kind = tr.Schedule.Kind()
	}
	scheduleCodecs[kind].encode(tr.Schedule, &rec)
	rec.Set("Type", storage.String(kind))
	return rec, nil
}

// UnmarshalRecord decodes a stored trigger, dispatching the variant on Type.
func (s *StoredTrigger) UnmarshalRecord(rec storage.Record) error {
	codec, ok := scheduleCodecs[rec.GetString("Type")]
	if !ok {
		// Unknown discriminator: decode as a fresh simple schedule.
		codec = scheduleCodec{decode: func(storage.Record) (quartz.Schedule, error) {
			return &quartz.SimpleSchedule{}, nil
		}}
	}
	schedule, err := codec.decode(rec)
	if err != nil {
		return err
	}

	data, err := quartz.UnmarshalJobDataMap(rec.GetString("JobDataMap"))
	if err != nil {
		return err
	}

	tr := &quartz.Trigger{
		Key: quartz.TriggerKey{
			Name:  rec.GetString("Name"),
			Group: rec.GetString("Group"),
		},
		JobKey: quartz.JobKey{
			Name:  rec.GetString("JobName"),
			Group: rec.GetString("JobGroup"),
		},
		Description:        rec.GetString("Description"),
		CalendarName:       rec.GetString("CalendarName"),
		Data:               data,
		MisfireInstruction: int(rec.GetNumber("MisfireInstruction")),
		FireInstanceID:     rec.GetString("FireInstanceId"),
		Priority:           int(rec.GetNumber("Priority")),
		StartTime:          epochTime(rec.GetNumber("StartTimeUtcEpoch")),
		EndTime:            optionalEpochTime(rec, "EndTimeUtcEpoch"),
		NextFireTime:       optionalEpochTime(rec, "NextFireTimeUtcEpoch"),
		PreviousFireTime:   optionalEpochTime(rec, "PreviousFireTimeUtcEpoch"),
		Schedule:           schedule,
	}

	s.Trigger = tr
	s.State = quartz.InternalState(rec.GetString("State"))
	s.SchedulerInstanceID = rec.GetString("SchedulerInstanceId")
	return nil
}

// KeyRecord returns the primary key record.
func (s *StoredTrigger) KeyRecord() storage.Record {
	return triggerKeyRecord(s.Trigger.Key)
}

func triggerKeyRecord(key quartz.TriggerKey) storage.Record {
	var rec storage.Record
	rec.Set("Name", storage.String(key.Name))
	rec.Set("Group", storage.String(key.Group))
	return rec
}

func encodeSimple(sch quartz.Schedule, rec *storage.Record) {
	s, _ := sch.(*quartz.SimpleSchedule)
	if s == nil {
		s = &quartz.SimpleSchedule{}
	}
	rec.Set("RepeatCount", storage.Number(int64(s.RepeatCount)))
	rec.Set("RepeatInterval", storage.Number(int64(s.RepeatInterval)))
	rec.Set("TimesTriggered", storage.Number(int64(s.TimesTriggered)))
}

func decodeSimple(rec storage.Record) (quartz.Schedule, error) {
	return &quartz.SimpleSchedule{
		RepeatCount:    int(rec.GetNumber("RepeatCount")),
		RepeatInterval: time.Duration(rec.GetNumber("RepeatInterval")),
		TimesTriggered: int(rec.GetNumber("TimesTriggered")),
	}, nil
}

func encodeCron(sch quartz.Schedule, rec *storage.Record) {
	s, _ := sch.(*quartz.CronSchedule)
	if s == nil {
		return
	}
	rec.Set("CronExpressionString", storage.String(s.Expression))
	rec.Set("TimeZone", storage.String(locationName(s.Location)))
}

func decodeCron(rec storage.Record) (quartz.Schedule, error) {
	return quartz.NewCronSchedule(
		rec.GetString("CronExpressionString"),
		loadLocation(rec.GetString("TimeZone")),
	)
}

func encodeCalendarInterval(sch quartz.Schedule, rec *storage.Record) {
	s, _ := sch.(*quartz.CalendarIntervalSchedule)
	if s == nil {
		return
	}
	rec.Set("PreserveHourOfDayAcrossDaylightSavings", storage.Bool(s.PreserveHourOfDay))
	rec.Set("RepeatInterval", storage.Number(int64(s.RepeatInterval)))
	rec.Set("RepeatIntervalUnit", storage.Number(int64(s.RepeatIntervalUnit)))
	rec.Set("TimesTriggered", storage.Number(int64(s.TimesTriggered)))
	rec.Set("TimeZone", storage.String(locationName(s.Location)))
}

func decodeCalendarInterval(rec storage.Record) (quartz.Schedule, error) {
	return &quartz.CalendarIntervalSchedule{
		PreserveHourOfDay:  rec.GetBool("PreserveHourOfDayAcrossDaylightSavings"),
		RepeatInterval:     int(rec.GetNumber("RepeatInterval")),
		RepeatIntervalUnit: quartz.IntervalUnit(rec.GetNumber("RepeatIntervalUnit")),
		TimesTriggered:     int(rec.GetNumber("TimesTriggered")),
		Location:           loadLocation(rec.GetString("TimeZone")),
	}, nil
}

func encodeDailyTimeInterval(sch quartz.Schedule, rec *storage.Record) {
	s, _ := sch.(*quartz.DailyTimeIntervalSchedule)
	if s == nil {
		return
	}
	days := make([]storage.Value, 0, len(s.DaysOfWeek))
	for _, d := range s.DaysOfWeek {
		days = append(days, storage.String(d.String()))
	}
	rec.Set("DaysOfWeek", storage.List(days...))
	rec.Set("StartTimeOfDay_Hour", storage.Number(int64(s.StartTimeOfDay.Hour)))
	rec.Set("StartTimeOfDay_Minute", storage.Number(int64(s.StartTimeOfDay.Minute)))
	rec.Set("StartTimeOfDay_Second", storage.Number(int64(s.StartTimeOfDay.Second)))
	rec.Set("EndTimeOfDay_Hour", storage.Number(int64(s.EndTimeOfDay.Hour)))
	rec.Set("EndTimeOfDay_Minute", storage.Number(int64(s.EndTimeOfDay.Minute)))
	rec.Set("EndTimeOfDay_Second", storage.Number(int64(s.EndTimeOfDay.Second)))
	rec.Set("RepeatCount", storage.Number(int64(s.RepeatCount)))
	rec.Set("RepeatInterval", storage.Number(int64(s.RepeatInterval)))
	rec.Set("RepeatIntervalUnit", storage.Number(int64(s.RepeatIntervalUnit)))
	rec.Set("TimesTriggered", storage.Number(int64(s.TimesTriggered)))
	rec.Set("TimeZone", storage.String(locationName(s.Location)))
}

func decodeDailyTimeInterval(rec storage.Record) (quartz.Schedule, error) {
	var days []time.Weekday
	for _, v := range rec.Get("DaysOfWeek").L {
		if d, ok := weekdayByName[v.S]; ok {
			days = append(days, d)
		}
	}

	return &quartz.DailyTimeIntervalSchedule{
		DaysOfWeek: days,
		StartTimeOfDay: quartz.TimeOfDay{
			Hour:   int(rec.GetNumber("StartTimeOfDay_Hour")),
			Minute: int(rec.GetNumber("StartTimeOfDay_Minute")),
			Second: int(rec.GetNumber("StartTimeOfDay_Second")),
		},
		EndTimeOfDay: quartz.TimeOfDay{
			Hour:   int(rec.GetNumber("EndTimeOfDay_Hour")),
			Minute: int(rec.GetNumber("EndTimeOfDay_Minute")),
			Second: int(rec.GetNumber("EndTimeOfDay_Second")),
		},
		RepeatCount:        int(rec.GetNumber("RepeatCount")),
		RepeatInterval:     int(rec.GetNumber("RepeatInterval")),
		RepeatIntervalUnit: quartz.IntervalUnit(rec.GetNumber("RepeatIntervalUnit")),
		TimesTriggered:     int(rec.GetNumber("TimesTriggered")),
		Location:           loadLocation(rec.GetString("TimeZone")),
	}, nil
}

var weekdayByName = map[string]time.Weekday{
	"Sunday":    time.Sunday,
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
}

func epochTime(epoch int64) time.Time {
	return time.Unix(epoch, 0).UTC()
}

func optionalEpochTime(rec storage.Record, field string) *time.Time {
	if !rec.Has(field) {
		return nil
	}
	t := epochTime(rec.GetNumber(field))
	return &t
}

func locationName(loc *time.Location) string {
	if loc == nil {
		return "UTC"
	}
	return loc.String()
}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
