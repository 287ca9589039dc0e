package jobstore

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukeryannetnz/quartz-dynamo/errors"
	"github.com/lukeryannetnz/quartz-dynamo/quartz"
	"github.com/lukeryannetnz/quartz-dynamo/storage"
	"github.com/lukeryannetnz/quartz-dynamo/storage/memory"
)

// recordingSignaler captures store notifications for assertions.
type recordingSignaler struct {
	misfired  []quartz.TriggerKey
	finalized []quartz.TriggerKey
	signals   int
}

func (r *recordingSignaler) NotifyTriggerListenersMisfired(tr *quartz.Trigger) {
	r.misfired = append(r.misfired, tr.Key)
}

func (r *recordingSignaler) NotifySchedulerListenersFinalized(tr *quartz.Trigger) {
	r.finalized = append(r.finalized, tr.Key)
}

func (r *recordingSignaler) SignalSchedulingChange(*time.Time) {
	r.signals++
}

func newTestBackend(t *testing.T) *memory.Backend {
	t.Helper()
	mem := memory.New()
	for _, def := range storage.Tables {
		mem.CreateTable(def.Name, def.KeyAttrs...)
	}
	return mem
}

func newTestStore(t *testing.T) (*JobStore, *recordingSignaler) {
	t.Helper()
	store, sig := newStoreOn(t, newTestBackend(t), "inst-1")
	return store, sig
}

func newStoreOn(t *testing.T, backend storage.Backend, instanceID string) (*JobStore, *recordingSignaler) {
	t.Helper()
	sig := &recordingSignaler{}
	store := New(backend, Config{InstanceID: instanceID, MisfireThreshold: time.Minute}, nil)
	store.Initialize(sig)
	return store, sig
}

func makeJob(name, group string) *quartz.JobDetail {
	return &quartz.JobDetail{
		Key:     quartz.JobKey{Name: name, Group: group},
		JobType: "NoopJob",
	}
}

// makeTrigger builds a repeating trigger whose first fire time is start.
func makeTrigger(name, group string, jobKey quartz.JobKey, start time.Time) *quartz.Trigger {
	tr := quartz.NewTrigger(
		quartz.TriggerKey{Name: name, Group: group},
		jobKey,
		start,
		&quartz.SimpleSchedule{RepeatCount: quartz.RepeatIndefinitely, RepeatInterval: time.Hour},
	)
	tr.ComputeFirstFireTime(nil)
	return tr
}

func seedJobAndTrigger(t *testing.T, store *JobStore, name string, start time.Time) *quartz.Trigger {
	t.Helper()
	ctx := context.Background()
	job := makeJob("job-"+name, quartz.DefaultGroup)
	trigger := makeTrigger(name, quartz.DefaultGroup, job.Key, start)
	require.NoError(t, store.StoreJobAndTrigger(ctx, job, trigger))
	return trigger
}

func TestStoreJobDuplicate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	job := makeJob("j1", "g1")
	require.NoError(t, store.StoreJob(ctx, job, false))

	err := store.StoreJob(ctx, job, false)
	require.True(t, errors.IsAlreadyExists(err))

	job.Description = "updated"
	require.NoError(t, store.StoreJob(ctx, job, true))

	got, err := store.RetrieveJob(ctx, job.Key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "updated", got.Description)
}

func TestRetrieveMissingReturnsNil(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	job, err := store.RetrieveJob(ctx, quartz.NewJobKey("nope"))
	require.NoError(t, err)
	assert.Nil(t, job)

	trigger, err := store.RetrieveTrigger(ctx, quartz.NewTriggerKey("nope"))
	require.NoError(t, err)
	assert.Nil(t, trigger)

	cal, err := store.RetrieveCalendar(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, cal)
}

func TestStoreTriggerRequiresJob(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	trigger := makeTrigger("t1", "g1", quartz.JobKey{Name: "ghost", Group: "g1"}, time.Now().UTC())
	err := store.StoreTrigger(ctx, trigger, false)
	require.True(t, errors.IsInvalidReference(err))
}

func TestStoreTriggerDuplicateAndReplace(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	trigger := seedJobAndTrigger(t, store, "t1", time.Now().UTC().Add(time.Hour))

	err := store.StoreTrigger(ctx, trigger, false)
	require.True(t, errors.IsAlreadyExists(err))

	// A replaced trigger keeps its stored state.
	require.NoError(t, store.PauseTrigger(ctx, trigger.Key))
	trigger.Description = "updated"
	require.NoError(t, store.StoreTrigger(ctx, trigger, true))

	state, err := store.GetTriggerState(ctx, trigger.Key)
	require.NoError(t, err)
	assert.Equal(t, quartz.TriggerStatePaused, state)

	got, err := store.RetrieveTrigger(ctx, trigger.Key)
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Description)
}

func TestNewTriggerInPausedGroupStartsPaused(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// Pausing a group by exact name takes effect before any trigger exists
	// in it.
	groups, err := store.PauseTriggers(ctx, quartz.GroupEquals("nightly"))
	require.NoError(t, err)
	assert.Equal(t, []string{"nightly"}, groups)

	job := makeJob("j1", quartz.DefaultGroup)
	require.NoError(t, store.StoreJob(ctx, job, false))
	trigger := makeTrigger("t1", "nightly", job.Key, time.Now().UTC().Add(time.Hour))
	require.NoError(t, store.StoreTrigger(ctx, trigger, false))

	state, err := store.GetTriggerState(ctx, trigger.Key)
	require.NoError(t, err)
	assert.Equal(t, quartz.TriggerStatePaused, state)
}

func TestNewTriggerInPausedJobGroupStartsPaused(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.PauseJobs(ctx, quartz.GroupEquals("reports"))
	require.NoError(t, err)

	job := makeJob("j1", "reports")
	require.NoError(t, store.StoreJob(ctx, job, false))
	trigger := makeTrigger("t1", quartz.DefaultGroup, job.Key, time.Now().UTC().Add(time.Hour))
	require.NoError(t, store.StoreTrigger(ctx, trigger, false))

	state, err := store.GetTriggerState(ctx, trigger.Key)
	require.NoError(t, err)
	assert.Equal(t, quartz.TriggerStatePaused, state)
}

func TestRemoveJobDeletesItsTriggers(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	job := makeJob("j1", "g1")
	require.NoError(t, store.StoreJob(ctx, job, false))
	start := time.Now().UTC().Add(time.Hour)
	require.NoError(t, store.StoreTrigger(ctx, makeTrigger("t1", "g1", job.Key, start), false))
	require.NoError(t, store.StoreTrigger(ctx, makeTrigger("t2", "g1", job.Key, start), false))

	removed, err := store.RemoveJob(ctx, job.Key)
	require.NoError(t, err)
	assert.True(t, removed)

	n, err := store.GetNumberOfTriggers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	removed, err = store.RemoveJob(ctx, job.Key)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoveTriggerOrphanCleanup(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	job := makeJob("j1", "g1") // not durable
	require.NoError(t, store.StoreJob(ctx, job, false))
	start := time.Now().UTC().Add(time.Hour)
	require.NoError(t, store.StoreTrigger(ctx, makeTrigger("t1", "g1", job.Key, start), false))
	require.NoError(t, store.StoreTrigger(ctx, makeTrigger("t2", "g1", job.Key, start), false))

	removed, err := store.RemoveTrigger(ctx, quartz.TriggerKey{Name: "t1", Group: "g1"})
	require.NoError(t, err)
	assert.True(t, removed)

	// One trigger still references the job.
	got, err := store.RetrieveJob(ctx, job.Key)
	require.NoError(t, err)
	require.NotNil(t, got)

	removed, err = store.RemoveTrigger(ctx, quartz.TriggerKey{Name: "t2", Group: "g1"})
	require.NoError(t, err)
	assert.True(t, removed)

	got, err = store.RetrieveJob(ctx, job.Key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRemoveTriggerKeepsDurableJob(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	job := makeJob("j1", "g1")
	job.Durable = true
	require.NoError(t, store.StoreJob(ctx, job, false))
	trigger := makeTrigger("t1", "g1", job.Key, time.Now().UTC().Add(time.Hour))
	require.NoError(t, store.StoreTrigger(ctx, trigger, false))

	_, err := store.RemoveTrigger(ctx, trigger.Key)
	require.NoError(t, err)

	got, err := store.RetrieveJob(ctx, job.Key)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestRemoveTriggersReportsPartial(t *testing.T) {
	store, _ := newTestStore(t)
	trigger := seedJobAndTrigger(t, store, "t1", time.Now().UTC().Add(time.Hour))

	all, err := store.RemoveTriggers(context.Background(), []quartz.TriggerKey{
		trigger.Key,
		{Name: "missing", Group: "g1"},
	})
	require.NoError(t, err)
	assert.False(t, all)

	// The existing trigger was still removed.
	got, err := store.RetrieveTrigger(context.Background(), trigger.Key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAcquireOrdersByTimePriorityKey(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	job := makeJob("j1", "g1")
	require.NoError(t, store.StoreJob(ctx, job, false))

	later := makeTrigger("later", "g1", job.Key, now.Add(10*time.Second))
	soon := makeTrigger("soon", "g1", job.Key, now.Add(5*time.Second))
	urgent := makeTrigger("urgent", "g1", job.Key, now.Add(10*time.Second))
	urgent.Priority = 9
	for _, tr := range []*quartz.Trigger{later, soon, urgent} {
		require.NoError(t, store.StoreTrigger(ctx, tr, false))
	}

	acquired, err := store.AcquireNextTriggers(ctx, now, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, acquired, 3)
	assert.Equal(t, "soon", acquired[0].Key.Name)
	assert.Equal(t, "urgent", acquired[1].Key.Name)
	assert.Equal(t, "later", acquired[2].Key.Name)
}

func TestAcquireHonorsMaxCount(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		seedJobAndTrigger(t, store, "t"+string(rune('a'+i)), now.Add(time.Second))
	}

	acquired, err := store.AcquireNextTriggers(ctx, now, 2, time.Minute)
	require.NoError(t, err)
	assert.Len(t, acquired, 2)
}

func TestAcquireHonorsTimeWindow(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedJobAndTrigger(t, store, "due", now.Add(time.Second))
	seedJobAndTrigger(t, store, "distant", now.Add(30*time.Minute))

	acquired, err := store.AcquireNextTriggers(ctx, now, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, acquired, 1)
	assert.Equal(t, "due", acquired[0].Key.Name)
}

func TestAcquireSkipsPausedTriggers(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	trigger := seedJobAndTrigger(t, store, "t1", now.Add(time.Second))
	require.NoError(t, store.PauseTrigger(ctx, trigger.Key))

	acquired, err := store.AcquireNextTriggers(ctx, now, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, acquired)
}

func TestAcquireStampsInstanceAndFireID(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedJobAndTrigger(t, store, "t1", now.Add(time.Second))

	acquired, err := store.AcquireNextTriggers(ctx, now, 1, time.Minute)
	require.NoError(t, err)
	require.Len(t, acquired, 1)
	assert.NotEmpty(t, acquired[0].FireInstanceID)
}

func TestAcquireIsExclusiveAcrossInstances(t *testing.T) {
	backend := newTestBackend(t)
	store1, _ := newStoreOn(t, backend, "inst-1")
	store2, _ := newStoreOn(t, backend, "inst-2")
	ctx := context.Background()
	now := time.Now().UTC()

	job := makeJob("j1", "g1")
	require.NoError(t, store1.StoreJob(ctx, job, false))
	require.NoError(t, store1.StoreTrigger(ctx, makeTrigger("t1", "g1", job.Key, now.Add(time.Second)), false))

	first, err := store1.AcquireNextTriggers(ctx, now, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := store2.AcquireNextTriggers(ctx, now, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, second)
}

// interceptBackend runs a hook once after a scan of the named table has
// been fully consumed, simulating a competing instance slipping in between
// a reader's scan and its follow-up writes.
type interceptBackend struct {
	storage.Backend
	table     string
	afterScan func()
}

func (b *interceptBackend) Scan(ctx context.Context, table string, filter storage.Filter) iter.Seq2[storage.Record, error] {
	inner := b.Backend.Scan(ctx, table, filter)
	return func(yield func(storage.Record, error) bool) {
		for rec, err := range inner {
			if !yield(rec, err) {
				return
			}
		}
		if table == b.table && b.afterScan != nil {
			hook := b.afterScan
			b.afterScan = nil
			hook()
		}
	}
}

func TestAcquireMisfireUpdateYieldsToConcurrentClaim(t *testing.T) {
	mem := newTestBackend(t)
	intercepted := &interceptBackend{Backend: mem, table: storage.TriggerTable}
	store1, _ := newStoreOn(t, intercepted, "inst-1")
	store2, _ := newStoreOn(t, mem, "inst-2")
	ctx := context.Background()
	now := time.Now().UTC()

	job := makeJob("j1", "g1")
	require.NoError(t, store1.StoreJob(ctx, job, false))
	trigger := makeTrigger("t1", "g1", job.Key, now.Add(-time.Hour))
	trigger.MisfireInstruction = quartz.MisfireInstructionFireNow
	require.NoError(t, store1.StoreTrigger(ctx, trigger, false))

	// While store1 is between its scan and its misfire write, store2
	// claims the trigger. store1 must then drop the candidate rather
	// than overwrite store2's claim.
	var second []*quartz.Trigger
	intercepted.afterScan = func() {
		var err error
		second, err = store2.AcquireNextTriggers(ctx, now, 10, time.Minute)
		require.NoError(t, err)
	}

	first, err := store1.AcquireNextTriggers(ctx, now, 10, time.Minute)
	require.NoError(t, err)

	require.Len(t, second, 1)
	assert.Empty(t, first)

	stored, found, err := store1.triggers.Get(ctx, triggerKeyRecord(trigger.Key))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, quartz.StateAcquired, stored.State)
	assert.Equal(t, "inst-2", stored.SchedulerInstanceID)
}

func TestAcquireAppliesMisfireFireNow(t *testing.T) {
	store, sig := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	job := makeJob("j1", "g1")
	require.NoError(t, store.StoreJob(ctx, job, false))
	trigger := makeTrigger("t1", "g1", job.Key, now.Add(-time.Hour))
	trigger.MisfireInstruction = quartz.MisfireInstructionFireNow
	require.NoError(t, store.StoreTrigger(ctx, trigger, false))

	acquired, err := store.AcquireNextTriggers(ctx, now, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, acquired, 1)
	assert.Equal(t, []quartz.TriggerKey{trigger.Key}, sig.misfired)
	require.NotNil(t, acquired[0].NextFireTime)
	assert.False(t, acquired[0].NextFireTime.Before(now))
}

func TestAcquireFinalizesExhaustedMisfire(t *testing.T) {
	store, sig := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	job := makeJob("j1", "g1")
	require.NoError(t, store.StoreJob(ctx, job, false))
	trigger := quartz.NewTrigger(
		quartz.TriggerKey{Name: "oneshot", Group: "g1"},
		job.Key,
		now.Add(-time.Hour),
		&quartz.SimpleSchedule{RepeatCount: 0},
	)
	trigger.ComputeFirstFireTime(nil)
	require.NoError(t, store.StoreTrigger(ctx, trigger, false))

	acquired, err := store.AcquireNextTriggers(ctx, now, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, acquired)
	assert.Equal(t, []quartz.TriggerKey{trigger.Key}, sig.misfired)
	assert.Equal(t, []quartz.TriggerKey{trigger.Key}, sig.finalized)

	state, err := store.GetTriggerState(ctx, trigger.Key)
	require.NoError(t, err)
	assert.Equal(t, quartz.TriggerStateComplete, state)
}

func TestReleaseAcquiredTrigger(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	trigger := seedJobAndTrigger(t, store, "t1", now.Add(time.Second))

	acquired, err := store.AcquireNextTriggers(ctx, now, 1, time.Minute)
	require.NoError(t, err)
	require.Len(t, acquired, 1)

	require.NoError(t, store.ReleaseAcquiredTrigger(ctx, acquired[0]))

	state, err := store.GetTriggerState(ctx, trigger.Key)
	require.NoError(t, err)
	assert.Equal(t, quartz.TriggerStateNormal, state)

	// Released triggers can be claimed again.
	again, err := store.AcquireNextTriggers(ctx, now, 1, time.Minute)
	require.NoError(t, err)
	assert.Len(t, again, 1)
}

func TestTriggersFiredAdvancesSchedule(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	trigger := seedJobAndTrigger(t, store, "t1", now.Add(time.Second))
	firstFire := *trigger.NextFireTime

	acquired, err := store.AcquireNextTriggers(ctx, now, 1, time.Minute)
	require.NoError(t, err)
	require.Len(t, acquired, 1)

	results, err := store.TriggersFired(ctx, acquired)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "job-t1", results[0].Job.Key.Name)
	require.NotNil(t, results[0].Trigger.PreviousFireTime)
	assert.Equal(t, firstFire, *results[0].Trigger.PreviousFireTime)
	require.NotNil(t, results[0].Trigger.NextFireTime)
	assert.Equal(t, firstFire.Add(time.Hour), *results[0].Trigger.NextFireTime)

	state, err := store.GetTriggerState(ctx, trigger.Key)
	require.NoError(t, err)
	assert.Equal(t, quartz.TriggerStateNormal, state)
}

func TestTriggersFiredCompletesExhausted(t *testing.T) {
	store, sig := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	job := makeJob("j1", "g1")
	require.NoError(t, store.StoreJob(ctx, job, false))
	trigger := quartz.NewTrigger(
		quartz.TriggerKey{Name: "oneshot", Group: "g1"},
		job.Key,
		now.Add(time.Second),
		&quartz.SimpleSchedule{RepeatCount: 0},
	)
	trigger.ComputeFirstFireTime(nil)
	require.NoError(t, store.StoreTrigger(ctx, trigger, false))

	acquired, err := store.AcquireNextTriggers(ctx, now, 1, time.Minute)
	require.NoError(t, err)
	require.Len(t, acquired, 1)

	results, err := store.TriggersFired(ctx, acquired)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Trigger.NextFireTime)
	assert.Equal(t, []quartz.TriggerKey{trigger.Key}, sig.finalized)

	state, err := store.GetTriggerState(ctx, trigger.Key)
	require.NoError(t, err)
	assert.Equal(t, quartz.TriggerStateComplete, state)
}

func TestTriggersFiredSkipsUnacquired(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	trigger := seedJobAndTrigger(t, store, "t1", time.Now().UTC().Add(time.Hour))

	results, err := store.TriggersFired(ctx, []*quartz.Trigger{trigger})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTriggersFiredSkipsOtherInstancesTriggers(t *testing.T) {
	backend := newTestBackend(t)
	store1, _ := newStoreOn(t, backend, "inst-1")
	store2, _ := newStoreOn(t, backend, "inst-2")
	ctx := context.Background()
	now := time.Now().UTC()

	job := makeJob("j1", "g1")
	require.NoError(t, store1.StoreJob(ctx, job, false))
	require.NoError(t, store1.StoreTrigger(ctx, makeTrigger("t1", "g1", job.Key, now.Add(time.Second)), false))

	acquired, err := store1.AcquireNextTriggers(ctx, now, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, acquired, 1)

	fired, err := store2.TriggersFired(ctx, acquired)
	require.NoError(t, err)
	assert.Empty(t, fired)

	fired, err = store1.TriggersFired(ctx, acquired)
	require.NoError(t, err)
	assert.Len(t, fired, 1)
}

func TestSchedulingChangeSignals(t *testing.T) {
	store, sig := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	trigger := seedJobAndTrigger(t, store, "t1", now.Add(time.Hour))
	assert.Equal(t, 1, sig.signals)

	require.NoError(t, store.PauseTrigger(ctx, trigger.Key))
	assert.Equal(t, 1, sig.signals)

	require.NoError(t, store.ResumeTrigger(ctx, trigger.Key))
	assert.Equal(t, 2, sig.signals)

	removed, err := store.RemoveTrigger(ctx, trigger.Key)
	require.NoError(t, err)
	require.True(t, removed)
	assert.Equal(t, 3, sig.signals)
}

func TestPauseAndResumeTrigger(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	trigger := seedJobAndTrigger(t, store, "t1", time.Now().UTC().Add(time.Hour))

	require.NoError(t, store.PauseTrigger(ctx, trigger.Key))
	state, err := store.GetTriggerState(ctx, trigger.Key)
	require.NoError(t, err)
	assert.Equal(t, quartz.TriggerStatePaused, state)

	require.NoError(t, store.ResumeTrigger(ctx, trigger.Key))
	state, err = store.GetTriggerState(ctx, trigger.Key)
	require.NoError(t, err)
	assert.Equal(t, quartz.TriggerStateNormal, state)
}

func TestResumeAppliesMisfireForElapsedTrigger(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	trigger := seedJobAndTrigger(t, store, "t1", now.Add(-time.Hour))
	require.NoError(t, store.PauseTrigger(ctx, trigger.Key))
	require.NoError(t, store.ResumeTrigger(ctx, trigger.Key))

	got, err := store.RetrieveTrigger(ctx, trigger.Key)
	require.NoError(t, err)
	require.NotNil(t, got.NextFireTime)
	assert.True(t, got.NextFireTime.After(now.Add(-time.Minute)))
}

func TestPauseResumeGroupLifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	start := time.Now().UTC().Add(time.Hour)

	job := makeJob("j1", "g1")
	require.NoError(t, store.StoreJob(ctx, job, false))
	require.NoError(t, store.StoreTrigger(ctx, makeTrigger("t1", "batch-a", job.Key, start), false))
	require.NoError(t, store.StoreTrigger(ctx, makeTrigger("t2", "batch-b", job.Key, start), false))
	require.NoError(t, store.StoreTrigger(ctx, makeTrigger("t3", "other", job.Key, start), false))

	groups, err := store.PauseTriggers(ctx, quartz.GroupStartsWith("batch-"))
	require.NoError(t, err)
	assert.Equal(t, []string{"batch-a", "batch-b"}, groups)

	paused, err := store.GetPausedTriggerGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"batch-a", "batch-b"}, paused)

	state, err := store.GetTriggerState(ctx, quartz.TriggerKey{Name: "t3", Group: "other"})
	require.NoError(t, err)
	assert.Equal(t, quartz.TriggerStateNormal, state)

	groups, err = store.ResumeTriggers(ctx, quartz.GroupStartsWith("batch-"))
	require.NoError(t, err)
	assert.Equal(t, []string{"batch-a", "batch-b"}, groups)

	paused, err = store.GetPausedTriggerGroups(ctx)
	require.NoError(t, err)
	assert.Empty(t, paused)

	state, err = store.GetTriggerState(ctx, quartz.TriggerKey{Name: "t1", Group: "batch-a"})
	require.NoError(t, err)
	assert.Equal(t, quartz.TriggerStateNormal, state)
}

func TestPauseAllAndResumeAll(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	start := time.Now().UTC().Add(time.Hour)

	seedJobAndTrigger(t, store, "t1", start)
	seedJobAndTrigger(t, store, "t2", start)

	require.NoError(t, store.PauseAll(ctx))
	for _, name := range []string{"t1", "t2"} {
		state, err := store.GetTriggerState(ctx, quartz.NewTriggerKey(name))
		require.NoError(t, err)
		assert.Equal(t, quartz.TriggerStatePaused, state)
	}

	require.NoError(t, store.ResumeAll(ctx))
	for _, name := range []string{"t1", "t2"} {
		state, err := store.GetTriggerState(ctx, quartz.NewTriggerKey(name))
		require.NoError(t, err)
		assert.Equal(t, quartz.TriggerStateNormal, state)
	}
}

func TestPauseAndResumeJob(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	start := time.Now().UTC().Add(time.Hour)

	job := makeJob("j1", "g1")
	require.NoError(t, store.StoreJob(ctx, job, false))
	require.NoError(t, store.StoreTrigger(ctx, makeTrigger("t1", "g1", job.Key, start), false))
	require.NoError(t, store.StoreTrigger(ctx, makeTrigger("t2", "g1", job.Key, start), false))

	require.NoError(t, store.PauseJob(ctx, job.Key))
	state, err := store.GetTriggerState(ctx, quartz.TriggerKey{Name: "t2", Group: "g1"})
	require.NoError(t, err)
	assert.Equal(t, quartz.TriggerStatePaused, state)

	require.NoError(t, store.ResumeJob(ctx, job.Key))
	state, err = store.GetTriggerState(ctx, quartz.TriggerKey{Name: "t2", Group: "g1"})
	require.NoError(t, err)
	assert.Equal(t, quartz.TriggerStateNormal, state)
}

func TestGetKeysAndGroupNames(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	start := time.Now().UTC().Add(time.Hour)

	for _, group := range []string{"reports", "reports-eu", "infra"} {
		job := makeJob("j1", group)
		require.NoError(t, store.StoreJob(ctx, job, false))
		require.NoError(t, store.StoreTrigger(ctx, makeTrigger("t1", group, job.Key, start), false))
	}

	keys, err := store.GetJobKeys(ctx, quartz.GroupStartsWith("reports"))
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "reports", keys[0].Group)
	assert.Equal(t, "reports-eu", keys[1].Group)

	triggerKeys, err := store.GetTriggerKeys(ctx, quartz.GroupEquals("infra"))
	require.NoError(t, err)
	require.Len(t, triggerKeys, 1)
	assert.Equal(t, "infra", triggerKeys[0].Group)

	jobGroups, err := store.GetJobGroupNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"infra", "reports", "reports-eu"}, jobGroups)

	triggerGroups, err := store.GetTriggerGroupNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"infra", "reports", "reports-eu"}, triggerGroups)

	jobs, err := store.GetNumberOfJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, jobs)

	triggers, err := store.GetNumberOfTriggers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, triggers)
}

func TestStoreCalendarDuplicateAndReplace(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	cal := &quartz.Calendar{Description: "v1"}
	require.NoError(t, store.StoreCalendar(ctx, "c1", cal, false, false))

	err := store.StoreCalendar(ctx, "c1", cal, false, false)
	require.True(t, errors.IsAlreadyExists(err))

	cal2 := &quartz.Calendar{Description: "v2"}
	require.NoError(t, store.StoreCalendar(ctx, "c1", cal2, true, false))

	got, err := store.RetrieveCalendar(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Description)

	names, err := store.GetCalendarNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, names)

	n, err := store.GetNumberOfCalendars(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStoreCalendarUpdatesReferencingTriggers(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreCalendar(ctx, "cal", &quartz.Calendar{}, false, false))

	job := makeJob("j1", "g1")
	require.NoError(t, store.StoreJob(ctx, job, false))

	// Fires on a Saturday.
	start := time.Date(2026, 9, 5, 9, 0, 0, 0, time.UTC)
	trigger := quartz.NewTrigger(
		quartz.TriggerKey{Name: "t1", Group: "g1"},
		job.Key,
		start,
		&quartz.SimpleSchedule{RepeatCount: quartz.RepeatIndefinitely, RepeatInterval: 24 * time.Hour},
	)
	trigger.CalendarName = "cal"
	trigger.ComputeFirstFireTime(nil)
	require.NoError(t, store.StoreTrigger(ctx, trigger, false))

	rule := &quartz.WeeklyCalendar{}
	rule.SetDayExcluded(time.Saturday, true)
	rule.SetDayExcluded(time.Sunday, true)
	require.NoError(t, store.StoreCalendar(ctx, "cal", &quartz.Calendar{Rule: rule}, true, true))

	got, err := store.RetrieveTrigger(ctx, trigger.Key)
	require.NoError(t, err)
	require.NotNil(t, got.NextFireTime)
	// Saturday and Sunday are skipped; the next fire lands on Monday.
	assert.Equal(t, time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC), got.NextFireTime.UTC())
}

func TestRemoveCalendarReferencedFails(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreCalendar(ctx, "cal", &quartz.Calendar{}, false, false))

	job := makeJob("j1", "g1")
	require.NoError(t, store.StoreJob(ctx, job, false))
	trigger := makeTrigger("t1", "g1", job.Key, time.Now().UTC().Add(time.Hour))
	trigger.CalendarName = "cal"
	require.NoError(t, store.StoreTrigger(ctx, trigger, false))

	_, err := store.RemoveCalendar(ctx, "cal")
	require.True(t, errors.IsInvalidReference(err))

	_, err = store.RemoveTrigger(ctx, trigger.Key)
	require.NoError(t, err)

	removed, err := store.RemoveCalendar(ctx, "cal")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.RemoveCalendar(ctx, "cal")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSchedulerLifecycleUpserts(t *testing.T) {
	backend := newTestBackend(t)
	store, _ := newStoreOn(t, backend, "inst-1")
	ctx := context.Background()

	require.NoError(t, store.SchedulerStarted(ctx))
	require.NoError(t, store.SchedulerPaused(ctx))
	require.NoError(t, store.SchedulerResumed(ctx))

	// Lifecycle transitions upsert one row per instance.
	var rows []storage.Record
	for rec, err := range backend.Scan(ctx, storage.SchedulerTable, storage.Filter{}) {
		require.NoError(t, err)
		rows = append(rows, rec)
	}
	require.Len(t, rows, 1)
	assert.Equal(t, "inst-1", rows[0].GetString("InstanceId"))
	assert.Equal(t, SchedulerStateStarted, rows[0].GetString("State"))
	assert.Greater(t, rows[0].GetNumber("ExpiresUtc"), time.Now().UTC().Unix())
}

func TestGetTriggerStateUnknownIsNone(t *testing.T) {
	store, _ := newTestStore(t)

	state, err := store.GetTriggerState(context.Background(), quartz.NewTriggerKey("ghost"))
	require.NoError(t, err)
	assert.Equal(t, quartz.TriggerStateNone, state)
}
