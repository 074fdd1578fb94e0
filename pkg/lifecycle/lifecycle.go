package lifecycle

// State represents the lifecycle state of a driver.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Manager manages the lifecycle state machine for a driver.
type Manager interface {
	// State returns the current lifecycle state.
	State() State

	// CanStart returns true if a start may begin from the current state.
	CanStart() bool

	// CanStop returns true if a stop may begin from the current state.
	CanStop() bool

	// IsRunning returns true only in StateRunning.
	IsRunning() bool

	// TransitionTo attempts to transition to a new state.
	// Returns an error if the transition is not valid.
	TransitionTo(newState State, reason string) error
}
