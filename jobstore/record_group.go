package jobstore

import (
	"strings"

	"github.com/lukeryannetnz/quartz-dynamo/storage"
)

// GroupStatePaused marks a paused group row.
const GroupStatePaused = "Paused"

// jobGroupPrefix namespaces paused job-group markers inside the trigger
// group table so they cannot collide with trigger group names.
const jobGroupPrefix = "JobGroup:"

// StoredGroup is a paused-group marker row. A row's presence with the
// Paused state means new triggers for that group start paused.
type StoredGroup struct {
	Name  string
	State string
}

// NewPausedGroup builds a paused marker for a trigger group.
func NewPausedGroup(name string) *StoredGroup {
	return &StoredGroup{Name: name, State: GroupStatePaused}
}

// NewPausedJobGroup builds a paused marker for a job group.
func NewPausedJobGroup(name string) *StoredGroup {
	return &StoredGroup{Name: jobGroupPrefix + name, State: GroupStatePaused}
}

// IsJobGroup reports whether this marker names a job group.
func (g *StoredGroup) IsJobGroup() bool {
	return strings.HasPrefix(g.Name, jobGroupPrefix)
}

// GroupName returns the bare group name without the job-group prefix.
func (g *StoredGroup) GroupName() string {
	return strings.TrimPrefix(g.Name, jobGroupPrefix)
}

// MarshalRecord encodes the marker row.
func (g *StoredGroup) MarshalRecord() (storage.Record, error) {
	var rec storage.Record
	rec.Set("Name", storage.String(g.Name))
	rec.Set("State", storage.String(g.State))
	return rec, nil
}

// UnmarshalRecord decodes the marker row.
func (g *StoredGroup) UnmarshalRecord(rec storage.Record) error {
	g.Name = rec.GetString("Name")
	g.State = rec.GetString("State")
	return nil
}

// KeyRecord returns the primary key record.
func (g *StoredGroup) KeyRecord() storage.Record {
	var rec storage.Record
	rec.Set("Name", storage.String(g.Name))
	return rec
}
