// Package lifecycle provides the state machine behind a driver.
//
// A driver moves through Stopped, Starting, Running, Stopping and Crashed.
// STARTING and STOPPING are transient: the driver holds its own lock for
// their whole duration, so no two operations overlap.
//
// # Usage
//
//	manager := lifecycle.NewManager(logger, emitter)
//
//	if !manager.CanStart() {
//	    return ErrAlreadyRunning
//	}
//	if err := manager.TransitionTo(lifecycle.StateStarting, "start"); err != nil {
//	    return err
//	}
//
// # State Machine
//
// Valid state transitions:
//   - Stopped -> Starting
//   - Starting -> Running, Stopping, Crashed
//   - Running -> Stopping, Crashed
//   - Stopping -> Stopped, Crashed
//   - Crashed -> Starting
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
package lifecycle
