// Package jobstore persists scheduler state in a key-value backend so that
// multiple scheduler instances can share one set of jobs and triggers.
// Trigger acquisition relies on conditional writes for mutual exclusion
// rather than locks.
package jobstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lukeryannetnz/quartz-dynamo/errors"
	"github.com/lukeryannetnz/quartz-dynamo/quartz"
	"github.com/lukeryannetnz/quartz-dynamo/storage"
)

const (
	// DefaultMisfireThreshold is how far past its next fire time a waiting
	// trigger may drift before it counts as misfired.
	DefaultMisfireThreshold = time.Minute

	// schedulerLease is how long a scheduler row stays fresh after its
	// last lifecycle transition.
	schedulerLease = 10 * time.Minute

	// calendarSkipLimit bounds the excluded-time skip loop when a calendar
	// change forces next fire times to be recomputed.
	calendarSkipLimit = 100000
)

// Config carries the per-instance store settings.
type Config struct {
	// InstanceID identifies this scheduler instance. A random id is
	// generated when empty.
	InstanceID string

	// MisfireThreshold defaults to DefaultMisfireThreshold when zero.
	MisfireThreshold time.Duration
}

// FireResult pairs a fired trigger with the job it runs.
type FireResult struct {
	Trigger *quartz.Trigger
	Job     *quartz.JobDetail
}

// JobStore is the durable backing store for a scheduler cluster.
type JobStore struct {
	cfg      Config
	log      *zap.SugaredLogger
	signaler SchedulerSignaler

	jobs       *Repository[*StoredJob]
	triggers   *Repository[*StoredTrigger]
	groups     *Repository[*StoredGroup]
	calendars  *Repository[*StoredCalendar]
	schedulers *Repository[*StoredScheduler]
}

// New builds a store over the given backend.
func New(backend storage.Backend, cfg Config, log *zap.SugaredLogger) *JobStore {
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	if cfg.MisfireThreshold <= 0 {
		cfg.MisfireThreshold = DefaultMisfireThreshold
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &JobStore{
		cfg: cfg,
		log: log,
		jobs: NewRepository(backend, storage.JobDetailTable,
			func() *StoredJob { return &StoredJob{} }),
		triggers: NewRepository(backend, storage.TriggerTable,
			func() *StoredTrigger { return &StoredTrigger{} }),
		groups: NewRepository(backend, storage.TriggerGroupTable,
			func() *StoredGroup { return &StoredGroup{} }),
		calendars: NewRepository(backend, storage.CalendarTable,
			func() *StoredCalendar { return &StoredCalendar{} }),
		schedulers: NewRepository(backend, storage.SchedulerTable,
			func() *StoredScheduler { return &StoredScheduler{} }),
	}
}

// Initialize wires the signaler. Call once before use.
func (s *JobStore) Initialize(signaler SchedulerSignaler) {
	s.signaler = signaler
}

// InstanceID returns the effective scheduler instance id.
func (s *JobStore) InstanceID() string { return s.cfg.InstanceID }

// SchedulerStarted records this instance as started.
func (s *JobStore) SchedulerStarted(ctx context.Context) error {
	return s.upsertScheduler(ctx, SchedulerStateStarted)
}

// SchedulerPaused records this instance as paused.
func (s *JobStore) SchedulerPaused(ctx context.Context) error {
	return s.upsertScheduler(ctx, SchedulerStatePaused)
}

// SchedulerResumed records this instance as started again.
func (s *JobStore) SchedulerResumed(ctx context.Context) error {
	return s.upsertScheduler(ctx, SchedulerStateStarted)
}

func (s *JobStore) upsertScheduler(ctx context.Context, state string) error {
	row := &StoredScheduler{
		InstanceID: s.cfg.InstanceID,
		State:      state,
		ExpiresUTC: time.Now().UTC().Add(schedulerLease),
	}
	s.log.Infow("scheduler state change", "instance", row.InstanceID, "state", state)
	return s.schedulers.Store(ctx, row)
}

// StoreJob persists a job. With replace false an existing key is an error.
func (s *JobStore) StoreJob(ctx context.Context, job *quartz.JobDetail, replace bool) error {
	if !replace {
		_, found, err := s.jobs.Get(ctx, jobKeyRecord(job.Key))
		if err != nil {
			return err
		}
		if found {
			return errors.Wrap(errors.ErrJobAlreadyExists, job.Key.String())
		}
	}
	return s.jobs.Store(ctx, NewStoredJob(job.Clone()))
}

// StoreJobAndTrigger persists a job and its trigger, neither replacing.
func (s *JobStore) StoreJobAndTrigger(ctx context.Context, job *quartz.JobDetail, trigger *quartz.Trigger) error {
	if err := s.StoreJob(ctx, job, false); err != nil {
		return err
	}
	return s.StoreTrigger(ctx, trigger, false)
}

// RetrieveJob returns the job or nil when absent.
func (s *JobStore) RetrieveJob(ctx context.Context, key quartz.JobKey) (*quartz.JobDetail, error) {
	stored, found, err := s.jobs.Get(ctx, jobKeyRecord(key))
	if err != nil || !found {
		return nil, err
	}
	return stored.Job, nil
}

// CheckJobExists reports whether a job with the key is stored.
func (s *JobStore) CheckJobExists(ctx context.Context, key quartz.JobKey) (bool, error) {
	_, found, err := s.jobs.Get(ctx, jobKeyRecord(key))
	return found, err
}

// RemoveJob deletes a job and all triggers pointing at it. It reports
// whether the job existed.
func (s *JobStore) RemoveJob(ctx context.Context, key quartz.JobKey) (bool, error) {
	triggers, err := s.storedTriggersForJob(ctx, key)
	if err != nil {
		return false, err
	}
	for _, st := range triggers {
		if err := s.triggers.Delete(ctx, st.KeyRecord()); err != nil {
			return false, err
		}
	}

	_, found, err := s.jobs.Get(ctx, jobKeyRecord(key))
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return true, s.jobs.Delete(ctx, jobKeyRecord(key))
}

// StoreTrigger persists a trigger. The referenced job must already exist.
// With replace false an existing key is an error; a replaced trigger keeps
// its stored state. New triggers in a paused trigger group or paused job
// group start paused.
func (s *JobStore) StoreTrigger(ctx context.Context, trigger *quartz.Trigger, replace bool) error {
	existing, found, err := s.triggers.Get(ctx, triggerKeyRecord(trigger.Key))
	if err != nil {
		return err
	}
	if found && !replace {
		return errors.Wrap(errors.ErrTriggerAlreadyExists, trigger.Key.String())
	}

	_, jobFound, err := s.jobs.Get(ctx, jobKeyRecord(trigger.JobKey))
	if err != nil {
		return err
	}
	if !jobFound {
		return errors.Wrapf(errors.ErrInvalidReference, "job %s for trigger %s",
			trigger.JobKey, trigger.Key)
	}

	st := NewStoredTrigger(trigger.Clone())
	if found {
		st.State = existing.State
		st.SchedulerInstanceID = existing.SchedulerInstanceID
	} else {
		paused, err := s.groupPaused(ctx, trigger.Key.Group, trigger.JobKey.Group)
		if err != nil {
			return err
		}
		if paused {
			st.State = quartz.StatePaused
		}
	}
	if err := s.triggers.Store(ctx, st); err != nil {
		return err
	}
	if st.State == quartz.StateWaiting {
		s.signalChange(st.Trigger.NextFireTime)
	}
	return nil
}

// RetrieveTrigger returns the trigger or nil when absent.
func (s *JobStore) RetrieveTrigger(ctx context.Context, key quartz.TriggerKey) (*quartz.Trigger, error) {
	stored, found, err := s.triggers.Get(ctx, triggerKeyRecord(key))
	if err != nil || !found {
		return nil, err
	}
	return stored.Trigger, nil
}

// CheckTriggerExists reports whether a trigger with the key is stored.
func (s *JobStore) CheckTriggerExists(ctx context.Context, key quartz.TriggerKey) (bool, error) {
	_, found, err := s.triggers.Get(ctx, triggerKeyRecord(key))
	return found, err
}

// RemoveTrigger deletes a trigger. A non-durable job left with no triggers
// is deleted with it. It reports whether the trigger existed.
func (s *JobStore) RemoveTrigger(ctx context.Context, key quartz.TriggerKey) (bool, error) {
	stored, found, err := s.triggers.Get(ctx, triggerKeyRecord(key))
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	if err := s.triggers.Delete(ctx, triggerKeyRecord(key)); err != nil {
		return false, err
	}

	jobKey := stored.Trigger.JobKey
	job, jobFound, err := s.jobs.Get(ctx, jobKeyRecord(jobKey))
	if err != nil {
		return false, err
	}
	if jobFound && !job.Job.Durable {
		remaining, err := s.storedTriggersForJob(ctx, jobKey)
		if err != nil {
			return false, err
		}
		if len(remaining) == 0 {
			s.log.Infow("removing orphaned job", "job", jobKey)
			if err := s.jobs.Delete(ctx, jobKeyRecord(jobKey)); err != nil {
				return false, err
			}
		}
	}
	s.signalChange(nil)
	return true, nil
}

// RemoveTriggers deletes every named trigger and reports whether all of
// them existed. Missing keys do not stop the removal of the rest.
func (s *JobStore) RemoveTriggers(ctx context.Context, keys []quartz.TriggerKey) (bool, error) {
	all := true
	for _, key := range keys {
		removed, err := s.RemoveTrigger(ctx, key)
		if err != nil {
			return false, err
		}
		all = all && removed
	}
	return all, nil
}

// GetTriggersForJob returns all triggers referencing the job.
func (s *JobStore) GetTriggersForJob(ctx context.Context, key quartz.JobKey) ([]*quartz.Trigger, error) {
	stored, err := s.storedTriggersForJob(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make([]*quartz.Trigger, 0, len(stored))
	for _, st := range stored {
		out = append(out, st.Trigger)
	}
	return out, nil
}

// GetTriggerState returns the externally visible state of a trigger.
// Unknown keys map to TriggerStateNone.
func (s *JobStore) GetTriggerState(ctx context.Context, key quartz.TriggerKey) (quartz.TriggerState, error) {
	stored, found, err := s.triggers.Get(ctx, triggerKeyRecord(key))
	if err != nil {
		return quartz.TriggerStateNone, err
	}
	if !found {
		return quartz.TriggerStateNone, nil
	}
	return quartz.ExternalState(stored.State), nil
}

// AcquireNextTriggers claims up to maxCount waiting triggers due to fire no
// later than noLaterThan plus timeWindow. Misfired triggers are updated per
// their misfire instruction on the way through. Claims use conditional
// writes, so concurrent instances never acquire the same trigger twice.
func (s *JobStore) AcquireNextTriggers(ctx context.Context, noLaterThan time.Time, maxCount int, timeWindow time.Duration) ([]*quartz.Trigger, error) {
	now := time.Now().UTC()
	limit := noLaterThan.Add(timeWindow)

	waiting, err := s.collectTriggers(ctx, stateFilter(quartz.StateWaiting))
	if err != nil {
		return nil, err
	}

	var candidates []*StoredTrigger
	for _, st := range waiting {
		if st.Trigger.NextFireTime == nil {
			if err := s.markComplete(ctx, st); err != nil {
				return nil, err
			}
			continue
		}
		misfired, err := s.applyMisfire(ctx, st, now)
		if err != nil {
			return nil, err
		}
		if misfired {
			// The scan snapshot is stale by now; another instance may have
			// claimed the trigger since. Persist the misfire update only if
			// it is still waiting, else drop the candidate.
			err := s.triggers.StoreIf(ctx, st, stateCondition(quartz.StateWaiting))
			if errors.IsConditionFailed(err) {
				s.log.Debugw("trigger claimed by another instance during misfire handling",
					"trigger", st.Trigger.Key)
				continue
			}
			if err != nil {
				return nil, err
			}
			if st.State != quartz.StateWaiting || st.Trigger.NextFireTime == nil {
				continue
			}
		}
		if st.Trigger.NextFireTime.After(limit) {
			continue
		}
		candidates = append(candidates, st)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i].Trigger, candidates[j].Trigger
		if !a.NextFireTime.Equal(*b.NextFireTime) {
			return a.NextFireTime.Before(*b.NextFireTime)
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.Key.Less(b.Key)
	})

	var acquired []*quartz.Trigger
	for _, st := range candidates {
		if len(acquired) >= maxCount {
			break
		}
		st.State = quartz.StateAcquired
		st.SchedulerInstanceID = s.cfg.InstanceID
		st.Trigger.FireInstanceID = uuid.NewString()

		err := s.triggers.StoreIf(ctx, st, stateCondition(quartz.StateWaiting))
		if errors.IsConditionFailed(err) {
			s.log.Debugw("trigger claimed by another instance", "trigger", st.Trigger.Key)
			continue
		}
		if err != nil {
			return nil, err
		}
		acquired = append(acquired, st.Trigger.Clone())
	}
	return acquired, nil
}

// ReleaseAcquiredTrigger hands a claimed trigger back without firing it.
// A trigger no longer held by this instance is left alone.
func (s *JobStore) ReleaseAcquiredTrigger(ctx context.Context, trigger *quartz.Trigger) error {
	stored, found, err := s.triggers.Get(ctx, triggerKeyRecord(trigger.Key))
	if err != nil || !found {
		return err
	}
	if stored.State != quartz.StateAcquired || stored.SchedulerInstanceID != s.cfg.InstanceID {
		return nil
	}

	stored.State = quartz.StateWaiting
	stored.SchedulerInstanceID = ""
	stored.Trigger.FireInstanceID = ""

	err = s.triggers.StoreIf(ctx, stored, stateCondition(quartz.StateAcquired))
	if errors.IsConditionFailed(err) {
		return nil
	}
	return err
}

// TriggersFired transitions acquired triggers to their fired state and
// computes their following fire times. Triggers that are no longer
// acquired, or whose job or named calendar has vanished, are skipped.
func (s *JobStore) TriggersFired(ctx context.Context, triggers []*quartz.Trigger) ([]FireResult, error) {
	var results []FireResult
	for _, trigger := range triggers {
		stored, found, err := s.triggers.Get(ctx, triggerKeyRecord(trigger.Key))
		if err != nil {
			return nil, err
		}
		if !found || stored.State != quartz.StateAcquired || stored.SchedulerInstanceID != s.cfg.InstanceID {
			continue
		}

		cal, err := s.calendarFor(ctx, stored.Trigger)
		if err != nil {
			return nil, err
		}
		if stored.Trigger.CalendarName != "" && cal == nil {
			s.log.Warnw("trigger references missing calendar, not firing",
				"trigger", stored.Trigger.Key, "calendar", stored.Trigger.CalendarName)
			continue
		}

		job, err := s.RetrieveJob(ctx, stored.Trigger.JobKey)
		if err != nil {
			return nil, err
		}
		if job == nil {
			continue
		}

		stored.Trigger.Triggered(cal)
		stored.SchedulerInstanceID = ""
		if stored.Trigger.NextFireTime == nil {
			stored.State = quartz.StateComplete
			if s.signaler != nil {
				s.signaler.NotifySchedulerListenersFinalized(stored.Trigger.Clone())
			}
		} else {
			stored.State = quartz.StateWaiting
		}
		if err := s.triggers.Store(ctx, stored); err != nil {
			return nil, err
		}

		results = append(results, FireResult{Trigger: stored.Trigger.Clone(), Job: job})
	}
	return results, nil
}

// PauseTrigger pauses one trigger. Completed triggers are left alone and a
// blocked trigger remembers it was blocked.
func (s *JobStore) PauseTrigger(ctx context.Context, key quartz.TriggerKey) error {
	stored, found, err := s.triggers.Get(ctx, triggerKeyRecord(key))
	if err != nil || !found {
		return err
	}
	return s.pauseStored(ctx, stored)
}

// PauseTriggers pauses every trigger whose group the matcher selects and
// returns the affected group names. An equals matcher additionally pauses
// the named group itself, so triggers stored into it later start paused.
func (s *JobStore) PauseTriggers(ctx context.Context, matcher quartz.GroupMatcher) ([]string, error) {
	all, err := s.collectTriggers(ctx, storage.Filter{})
	if err != nil {
		return nil, err
	}

	groups := map[string]struct{}{}
	if matcher.Op == quartz.MatchEquals {
		groups[matcher.Value] = struct{}{}
	}
	for _, st := range all {
		if matcher.Matches(st.Trigger.Key.Group) {
			groups[st.Trigger.Key.Group] = struct{}{}
		}
	}

	for group := range groups {
		if err := s.groups.Store(ctx, NewPausedGroup(group)); err != nil {
			return nil, err
		}
	}
	for _, st := range all {
		if matcher.Matches(st.Trigger.Key.Group) {
			if err := s.pauseStored(ctx, st); err != nil {
				return nil, err
			}
		}
	}
	return sortedKeys(groups), nil
}

// ResumeTrigger resumes one paused trigger, applying the misfire policy
// when its fire time passed while paused.
func (s *JobStore) ResumeTrigger(ctx context.Context, key quartz.TriggerKey) error {
	stored, found, err := s.triggers.Get(ctx, triggerKeyRecord(key))
	if err != nil || !found {
		return err
	}
	return s.resumeStored(ctx, stored, time.Now().UTC())
}

// ResumeTriggers resumes every trigger whose group the matcher selects,
// removes the matching paused-group markers and returns the group names.
func (s *JobStore) ResumeTriggers(ctx context.Context, matcher quartz.GroupMatcher) ([]string, error) {
	groups := map[string]struct{}{}

	markers, err := s.collectGroups(ctx)
	if err != nil {
		return nil, err
	}
	for _, marker := range markers {
		if marker.IsJobGroup() || !matcher.Matches(marker.Name) {
			continue
		}
		if err := s.groups.Delete(ctx, marker.KeyRecord()); err != nil {
			return nil, err
		}
		groups[marker.Name] = struct{}{}
	}

	all, err := s.collectTriggers(ctx, storage.Filter{})
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for _, st := range all {
		if !matcher.Matches(st.Trigger.Key.Group) {
			continue
		}
		groups[st.Trigger.Key.Group] = struct{}{}
		if err := s.resumeStored(ctx, st, now); err != nil {
			return nil, err
		}
	}
	return sortedKeys(groups), nil
}

// PauseJob pauses all triggers of one job.
func (s *JobStore) PauseJob(ctx context.Context, key quartz.JobKey) error {
	triggers, err := s.storedTriggersForJob(ctx, key)
	if err != nil {
		return err
	}
	for _, st := range triggers {
		if err := s.pauseStored(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// PauseJobs pauses the triggers of every job whose group the matcher
// selects and returns the affected job group names. An equals matcher
// additionally pauses the named job group itself.
func (s *JobStore) PauseJobs(ctx context.Context, matcher quartz.GroupMatcher) ([]string, error) {
	keys, err := s.GetJobKeys(ctx, matcher)
	if err != nil {
		return nil, err
	}

	groups := map[string]struct{}{}
	if matcher.Op == quartz.MatchEquals {
		groups[matcher.Value] = struct{}{}
	}
	for _, key := range keys {
		groups[key.Group] = struct{}{}
	}

	for group := range groups {
		if err := s.groups.Store(ctx, NewPausedJobGroup(group)); err != nil {
			return nil, err
		}
	}
	for _, key := range keys {
		if err := s.PauseJob(ctx, key); err != nil {
			return nil, err
		}
	}
	return sortedKeys(groups), nil
}

// ResumeJob resumes all triggers of one job.
func (s *JobStore) ResumeJob(ctx context.Context, key quartz.JobKey) error {
	triggers, err := s.storedTriggersForJob(ctx, key)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, st := range triggers {
		if err := s.resumeStored(ctx, st, now); err != nil {
			return err
		}
	}
	return nil
}

// ResumeJobs resumes the triggers of every job whose group the matcher
// selects, removes the matching paused job-group markers and returns the
// group names.
func (s *JobStore) ResumeJobs(ctx context.Context, matcher quartz.GroupMatcher) ([]string, error) {
	groups := map[string]struct{}{}

	markers, err := s.collectGroups(ctx)
	if err != nil {
		return nil, err
	}
	for _, marker := range markers {
		if !marker.IsJobGroup() || !matcher.Matches(marker.GroupName()) {
			continue
		}
		if err := s.groups.Delete(ctx, marker.KeyRecord()); err != nil {
			return nil, err
		}
		groups[marker.GroupName()] = struct{}{}
	}

	keys, err := s.GetJobKeys(ctx, matcher)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		groups[key.Group] = struct{}{}
		if err := s.ResumeJob(ctx, key); err != nil {
			return nil, err
		}
	}
	return sortedKeys(groups), nil
}

// PauseAll pauses every trigger group.
func (s *JobStore) PauseAll(ctx context.Context) error {
	_, err := s.PauseTriggers(ctx, quartz.AnyGroup())
	return err
}

// ResumeAll resumes every trigger group.
func (s *JobStore) ResumeAll(ctx context.Context) error {
	_, err := s.ResumeTriggers(ctx, quartz.AnyGroup())
	return err
}

// GetPausedTriggerGroups returns the names of paused trigger groups.
func (s *JobStore) GetPausedTriggerGroups(ctx context.Context) ([]string, error) {
	markers, err := s.collectGroups(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, marker := range markers {
		if !marker.IsJobGroup() && marker.State == GroupStatePaused {
			names = append(names, marker.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// StoreCalendar persists a named calendar. With updateTriggers true, the
// next fire times of triggers referencing the calendar are pushed past any
// newly excluded instants.
func (s *JobStore) StoreCalendar(ctx context.Context, name string, cal *quartz.Calendar, replace, updateTriggers bool) error {
	if !replace {
		_, found, err := s.calendars.Get(ctx, calendarKeyRecord(name))
		if err != nil {
			return err
		}
		if found {
			return errors.Wrap(errors.ErrCalendarAlreadyExists, name)
		}
	}
	if err := s.calendars.Store(ctx, NewStoredCalendar(name, cal)); err != nil {
		return err
	}
	if !updateTriggers {
		return nil
	}

	refs, err := s.collectTriggers(ctx, calendarRefFilter(name))
	if err != nil {
		return err
	}
	for _, st := range refs {
		next := st.Trigger.NextFireTime
		if next == nil || cal.Included(*next) {
			continue
		}
		for i := 0; next != nil && !cal.Included(*next); i++ {
			if i >= calendarSkipLimit {
				return errors.Newf("calendar %s excludes all fire times of trigger %s",
					name, st.Trigger.Key)
			}
			next = st.Trigger.FireTimeAfter(*next)
		}
		st.Trigger.NextFireTime = next
		if next == nil {
			st.State = quartz.StateComplete
		}
		if err := s.triggers.Store(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// RetrieveCalendar returns the named calendar or nil when absent.
func (s *JobStore) RetrieveCalendar(ctx context.Context, name string) (*quartz.Calendar, error) {
	stored, found, err := s.calendars.Get(ctx, calendarKeyRecord(name))
	if err != nil || !found {
		return nil, err
	}
	return stored.Calendar, nil
}

// RemoveCalendar deletes a calendar. A calendar still referenced by a
// trigger cannot be removed. It reports whether the calendar existed.
func (s *JobStore) RemoveCalendar(ctx context.Context, name string) (bool, error) {
	refs, err := s.triggers.Count(ctx, calendarRefFilter(name))
	if err != nil {
		return false, err
	}
	if refs > 0 {
		return false, errors.Wrapf(errors.ErrInvalidReference,
			"calendar %s referenced by %d triggers", name, refs)
	}

	_, found, err := s.calendars.Get(ctx, calendarKeyRecord(name))
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return true, s.calendars.Delete(ctx, calendarKeyRecord(name))
}

// GetNumberOfJobs returns the stored job count.
func (s *JobStore) GetNumberOfJobs(ctx context.Context) (int, error) {
	return s.jobs.Count(ctx, storage.Filter{})
}

// GetNumberOfTriggers returns the stored trigger count.
func (s *JobStore) GetNumberOfTriggers(ctx context.Context) (int, error) {
	return s.triggers.Count(ctx, storage.Filter{})
}

// GetNumberOfCalendars returns the stored calendar count.
func (s *JobStore) GetNumberOfCalendars(ctx context.Context) (int, error) {
	return s.calendars.Count(ctx, storage.Filter{})
}

// GetJobKeys returns the keys of jobs whose group the matcher selects.
func (s *JobStore) GetJobKeys(ctx context.Context, matcher quartz.GroupMatcher) ([]quartz.JobKey, error) {
	var keys []quartz.JobKey
	for stored, err := range s.jobs.Scan(ctx, storage.Filter{}) {
		if err != nil {
			return nil, err
		}
		if matcher.Matches(stored.Job.Key.Group) {
			keys = append(keys, stored.Job.Key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Group != keys[j].Group {
			return keys[i].Group < keys[j].Group
		}
		return keys[i].Name < keys[j].Name
	})
	return keys, nil
}

// GetTriggerKeys returns the keys of triggers whose group the matcher
// selects.
func (s *JobStore) GetTriggerKeys(ctx context.Context, matcher quartz.GroupMatcher) ([]quartz.TriggerKey, error) {
	var keys []quartz.TriggerKey
	for stored, err := range s.triggers.Scan(ctx, storage.Filter{}) {
		if err != nil {
			return nil, err
		}
		if matcher.Matches(stored.Trigger.Key.Group) {
			keys = append(keys, stored.Trigger.Key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys, nil
}

// GetJobGroupNames returns the distinct job group names.
func (s *JobStore) GetJobGroupNames(ctx context.Context) ([]string, error) {
	groups := map[string]struct{}{}
	for stored, err := range s.jobs.Scan(ctx, storage.Filter{}) {
		if err != nil {
			return nil, err
		}
		groups[stored.Job.Key.Group] = struct{}{}
	}
	return sortedKeys(groups), nil
}

// GetTriggerGroupNames returns the distinct trigger group names.
func (s *JobStore) GetTriggerGroupNames(ctx context.Context) ([]string, error) {
	groups := map[string]struct{}{}
	for stored, err := range s.triggers.Scan(ctx, storage.Filter{}) {
		if err != nil {
			return nil, err
		}
		groups[stored.Trigger.Key.Group] = struct{}{}
	}
	return sortedKeys(groups), nil
}

// GetCalendarNames returns the stored calendar names.
func (s *JobStore) GetCalendarNames(ctx context.Context) ([]string, error) {
	var names []string
	for stored, err := range s.calendars.Scan(ctx, storage.Filter{}) {
		if err != nil {
			return nil, err
		}
		names = append(names, stored.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *JobStore) pauseStored(ctx context.Context, st *StoredTrigger) error {
	switch st.State {
	case quartz.StateComplete:
		return nil
	case quartz.StateBlocked:
		st.State = quartz.StatePausedAndBlocked
	case quartz.StatePaused, quartz.StatePausedAndBlocked:
		// Already paused.
	default:
		st.State = quartz.StatePaused
	}
	return s.triggers.Store(ctx, st)
}

func (s *JobStore) resumeStored(ctx context.Context, st *StoredTrigger, now time.Time) error {
	switch st.State {
	case quartz.StatePausedAndBlocked:
		st.State = quartz.StateBlocked
	case quartz.StatePaused:
		st.State = quartz.StateWaiting
	default:
		return nil
	}

	if _, err := s.applyMisfire(ctx, st, now); err != nil {
		return err
	}
	if err := s.triggers.Store(ctx, st); err != nil {
		return err
	}
	if st.State == quartz.StateWaiting {
		s.signalChange(st.Trigger.NextFireTime)
	}
	return nil
}

// signalChange nudges the scheduler to recompute its next wake-up after the
// trigger landscape changed. candidate is the earliest fire time the change
// introduced, nil when unknown.
func (s *JobStore) signalChange(candidate *time.Time) {
	if s.signaler != nil {
		s.signaler.SignalSchedulingChange(candidate)
	}
}

// applyMisfire checks the trigger against the misfire threshold and, when
// tripped, advances it per its misfire instruction. The caller persists.
func (s *JobStore) applyMisfire(ctx context.Context, st *StoredTrigger, now time.Time) (bool, error) {
	tr := st.Trigger
	if tr.MisfireInstruction == quartz.MisfireInstructionIgnore {
		return false, nil
	}
	next := tr.NextFireTime
	if next == nil || !next.Before(now.Add(-s.cfg.MisfireThreshold)) {
		return false, nil
	}

	cal, err := s.calendarFor(ctx, tr)
	if err != nil {
		return false, err
	}
	if s.signaler != nil {
		s.signaler.NotifyTriggerListenersMisfired(tr.Clone())
	}

	tr.UpdateAfterMisfire(cal, now)
	if tr.NextFireTime == nil {
		st.State = quartz.StateComplete
		if s.signaler != nil {
			s.signaler.NotifySchedulerListenersFinalized(tr.Clone())
		}
	}
	return true, nil
}

func (s *JobStore) markComplete(ctx context.Context, st *StoredTrigger) error {
	st.State = quartz.StateComplete
	err := s.triggers.StoreIf(ctx, st, stateCondition(quartz.StateWaiting))
	if errors.IsConditionFailed(err) {
		// Another instance already transitioned the trigger. Leave its state alone.
		return nil
	}
	if err != nil {
		return err
	}
	if s.signaler != nil {
		s.signaler.NotifySchedulerListenersFinalized(st.Trigger.Clone())
	}
	return nil
}

// calendarFor loads the trigger's named calendar, nil when the trigger
// names none or the calendar is gone.
func (s *JobStore) calendarFor(ctx context.Context, tr *quartz.Trigger) (*quartz.Calendar, error) {
	if tr.CalendarName == "" {
		return nil, nil
	}
	return s.RetrieveCalendar(ctx, tr.CalendarName)
}

func (s *JobStore) groupPaused(ctx context.Context, triggerGroup, jobGroup string) (bool, error) {
	marker, found, err := s.groups.Get(ctx, NewPausedGroup(triggerGroup).KeyRecord())
	if err != nil {
		return false, err
	}
	if found && marker.State == GroupStatePaused {
		return true, nil
	}

	marker, found, err = s.groups.Get(ctx, NewPausedJobGroup(jobGroup).KeyRecord())
	if err != nil {
		return false, err
	}
	return found && marker.State == GroupStatePaused, nil
}

func (s *JobStore) collectTriggers(ctx context.Context, filter storage.Filter) ([]*StoredTrigger, error) {
	var out []*StoredTrigger
	for stored, err := range s.triggers.Scan(ctx, filter) {
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, nil
}

func (s *JobStore) collectGroups(ctx context.Context) ([]*StoredGroup, error) {
	var out []*StoredGroup
	for stored, err := range s.groups.Scan(ctx, storage.Filter{}) {
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, nil
}

func (s *JobStore) storedTriggersForJob(ctx context.Context, key quartz.JobKey) ([]*StoredTrigger, error) {
	return s.collectTriggers(ctx, storage.Filter{
		Expression: "JobName = :jn AND JobGroup = :jg",
		Values: map[string]storage.Value{
			":jn": storage.String(key.Name),
			":jg": storage.String(key.Group),
		},
	})
}

// State is a DynamoDB reserved word, so expressions go through a name
// placeholder.
func stateFilter(state quartz.InternalState) storage.Filter {
	return storage.Filter{
		Expression: "#st = :state",
		Names:      map[string]string{"#st": "State"},
		Values:     map[string]storage.Value{":state": storage.String(string(state))},
	}
}

func stateCondition(state quartz.InternalState) storage.Condition {
	return storage.Condition{
		Expression: "#st = :state",
		Names:      map[string]string{"#st": "State"},
		Values:     map[string]storage.Value{":state": storage.String(string(state))},
	}
}

func calendarRefFilter(name string) storage.Filter {
	return storage.Filter{
		Expression: "CalendarName = :cal",
		Values:     map[string]storage.Value{":cal": storage.String(name)},
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
