package jobstore

import (
	"time"

	"github.com/lukeryannetnz/quartz-dynamo/quartz"
)

// SchedulerSignaler receives notifications the store raises while mutating
// trigger state. The scheduler runtime supplies an implementation at
// Initialize time.
type SchedulerSignaler interface {
	// NotifyTriggerListenersMisfired fires when a trigger is detected past
	// the misfire threshold during acquisition.
	NotifyTriggerListenersMisfired(trigger *quartz.Trigger)

	// NotifySchedulerListenersFinalized fires when a trigger will never
	// fire again and has been marked complete.
	NotifySchedulerListenersFinalized(trigger *quartz.Trigger)

	// SignalSchedulingChange hints that the next fire time landscape
	// changed. candidate is the earliest known new fire time, nil when
	// unknown.
	SignalSchedulingChange(candidate *time.Time)
}
