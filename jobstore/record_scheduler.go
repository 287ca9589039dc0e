package jobstore

import (
	"time"

	"github.com/lukeryannetnz/quartz-dynamo/storage"
)

// Scheduler lifecycle states as persisted.
const (
	SchedulerStateStarted = "Started"
	SchedulerStatePaused  = "Paused"
)

// StoredScheduler is one scheduler instance's liveness row. ExpiresUTC is
// refreshed on every lifecycle transition so stale rows age out naturally.
type StoredScheduler struct {
	InstanceID string
	State      string
	ExpiresUTC time.Time
}

// MarshalRecord encodes the scheduler row.
func (s *StoredScheduler) MarshalRecord() (storage.Record, error) {
	var rec storage.Record
	rec.Set("InstanceId", storage.String(s.InstanceID))
	rec.Set("State", storage.String(s.State))
	rec.Set("ExpiresUtc", storage.Number(s.ExpiresUTC.Unix()))
	return rec, nil
}

// UnmarshalRecord decodes the scheduler row.
func (s *StoredScheduler) UnmarshalRecord(rec storage.Record) error {
	s.InstanceID = rec.GetString("InstanceId")
	s.State = rec.GetString("State")
	s.ExpiresUTC = epochTime(rec.GetNumber("ExpiresUtc"))
	return nil
}

// KeyRecord returns the primary key record.
func (s *StoredScheduler) KeyRecord() storage.Record {
	var rec storage.Record
	rec.Set("InstanceId", storage.String(s.InstanceID))
	return rec
}
