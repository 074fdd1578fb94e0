package lifecycle

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bft-labs/localdriver/pkg/log"
)

// Common lifecycle errors.
var (
	ErrNotRunning     = errors.New("lifecycle: not running")
	ErrAlreadyRunning = errors.New("lifecycle: already running")
)

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateCrashed},
	StateRunning:  {StateStopping, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

var _ Manager = (*DefaultManager)(nil)

// DefaultManager implements Manager with a mutex-guarded state machine.
type DefaultManager struct {
	mu           sync.RWMutex
	state        State
	logger       log.Logger
	eventEmitter EventEmitter
}

// NewManager creates a new lifecycle manager in StateStopped.
func NewManager(logger log.Logger, emitter EventEmitter) *DefaultManager {
	return &DefaultManager{
		state:        StateStopped,
		logger:       log.OrNoop(logger),
		eventEmitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *DefaultManager) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo attempts to transition to a new state.
// Returns an error wrapping ErrNotRunning or ErrAlreadyRunning if the
// transition is not valid; the state is left unchanged in that case.
func (l *DefaultManager) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state

	if !allowed(oldState, newState) {
		l.mu.Unlock()
		base := ErrAlreadyRunning
		if oldState == StateStopped || oldState == StateCrashed {
			base = ErrNotRunning
		}
		return fmt.Errorf("%w: %s -> %s", base, oldState, newState)
	}

	l.state = newState
	l.mu.Unlock()

	// Emit event outside of lock
	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	l.logger.Debug("state transition",
		log.String("from", oldState.String()),
		log.String("to", newState.String()),
		log.String("reason", reason),
	)

	return nil
}

// CanStart returns true if a start may begin from the current state.
func (l *DefaultManager) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateStopped || l.state == StateCrashed
}

// CanStop returns true if a stop may begin from the current state.
func (l *DefaultManager) CanStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateRunning || l.state == StateStarting
}

// IsRunning returns true only in StateRunning.
func (l *DefaultManager) IsRunning() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateRunning
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
