package driver

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAlreadyRunning is matched by every *AlreadyRunningError.
	ErrAlreadyRunning = errors.New("driver: already running")

	// ErrTTSExceeded is matched by every *TTSExceededError.
	ErrTTSExceeded = errors.New("driver: tts exceeded")

	// ErrNotRunning is returned by RenewTTS on a stopped driver.
	ErrNotRunning = errors.New("driver: not running")

	// ErrInvalidPort is returned when a port is not a positive integer.
	ErrInvalidPort = errors.New("driver: port must be positive")

	// ErrInvalidTTS is returned when a TTS window is not positive.
	ErrInvalidTTS = errors.New("driver: tts must be positive")

	// ErrPortLocked is returned when the port is changed while running.
	ErrPortLocked = errors.New("driver: port cannot change while running")
)

// AlreadyRunningError is returned by Start when the service is running.
type AlreadyRunningError struct {
	Driver string
	Port   int
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("driver: %s is already running on port %d", e.Driver, e.Port)
}

// Is reports whether target is ErrAlreadyRunning.
func (e *AlreadyRunningError) Is(target error) bool {
	return target == ErrAlreadyRunning
}

// TTSExceededError reports that a running driver was stopped because its
// time-to-stop window elapsed.
type TTSExceededError struct {
	Driver  string
	Elapsed time.Duration
}

// NewTTSExceededError returns the error delivered when driver expires after elapsed.
func NewTTSExceededError(driver string, elapsed time.Duration) *TTSExceededError {
	return &TTSExceededError{Driver: driver, Elapsed: elapsed}
}

func (e *TTSExceededError) Error() string {
	return fmt.Sprintf("driver: %s stopped after tts of %s exceeded", e.Driver, e.Elapsed)
}

// Is reports whether target is ErrTTSExceeded.
func (e *TTSExceededError) Is(target error) bool {
	return target == ErrTTSExceeded
}
