package quartz

// InternalState is the fine-grained persisted trigger state.
type InternalState string

const (
	StateWaiting          InternalState = "Waiting"
	StateAcquired         InternalState = "Acquired"
	StatePaused           InternalState = "Paused"
	StatePausedAndBlocked InternalState = "PausedAndBlocked"
	StateBlocked          InternalState = "Blocked"
	StateComplete         InternalState = "Complete"
	StateError            InternalState = "Error"
)

// TriggerState is the coarser enumeration external callers observe.
type TriggerState int

const (
	TriggerStateNone TriggerState = iota
	TriggerStateNormal
	TriggerStatePaused
	TriggerStateBlocked
	TriggerStateComplete
	TriggerStateError
)

func (s TriggerState) String() string {
	switch s {
	case TriggerStateNormal:
		return "Normal"
	case TriggerStatePaused:
		return "Paused"
	case TriggerStateBlocked:
		return "Blocked"
	case TriggerStateComplete:
		return "Complete"
	case TriggerStateError:
		return "Error"
	default:
		return "None"
	}
}

// ExternalState maps the persisted state onto the coarse enumeration.
// Waiting and Acquired both observe as Normal; PausedAndBlocked as Paused.
func ExternalState(s InternalState) TriggerState {
	switch s {
	case "":
		return TriggerStateNone
	case StateComplete:
		return TriggerStateComplete
	case StatePaused, StatePausedAndBlocked:
		return TriggerStatePaused
	case StateBlocked:
		return TriggerStateBlocked
	case StateError:
		return TriggerStateError
	default:
		return TriggerStateNormal
	}
}
