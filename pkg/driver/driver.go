package driver

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/localdriver/pkg/lifecycle"
	"github.com/bft-labs/localdriver/pkg/log"
	"github.com/bft-labs/localdriver/pkg/shutdown"
)

const (
	// DefaultPort is the port a new Driver binds its service to.
	DefaultPort = 8000

	// DefaultTTS is the time-to-stop window of a new Driver.
	DefaultTTS = 6 * time.Hour

	// TeardownTimeout bounds the stop performed by the teardown hook and by
	// TTS expiry.
	TeardownTimeout = 10 * time.Second
)

// StopResult tells a real stop apart from a stop on an already stopped driver.
type StopResult int

const (
	Stopped StopResult = iota
	AlreadyStopped
)

// String returns a human-readable representation of the result.
func (r StopResult) String() string {
	switch r {
	case Stopped:
		return "Stopped"
	case AlreadyStopped:
		return "AlreadyStopped"
	default:
		return "Unknown"
	}
}

// Snapshot is a point-in-time view of a Driver.
type Snapshot struct {
	Name                   string
	Port                   int
	State                  lifecycle.State
	Running                bool
	TeardownHookRegistered bool
	TTS                    time.Duration
	// Deadline is when the TTS timer fires; zero while no timer is armed.
	Deadline time.Time
}

// Driver owns the lifecycle of a single Service.
type Driver struct {
	mu        sync.Mutex
	svc       Service
	name      string
	lc        lifecycle.Manager
	logger    log.Logger
	registrar shutdown.Registrar
	onExpired func(error)

	port               int
	tts                time.Duration
	teardownRegistered bool
	pendingRegister    bool

	// gen identifies the current TTS arm; any firing carrying another
	// generation is stale.
	gen      uint64
	timer    *time.Timer
	armedAt  time.Time
	deadline time.Time

	// lastActivity is the UnixNano of the latest Touch.
	lastActivity atomic.Int64
}

// New creates a stopped Driver for svc.
func New(svc Service, opts ...Option) *Driver {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	logger := log.OrNoop(o.logger)

	return &Driver{
		svc:       svc,
		name:      svc.Name(),
		lc:        lifecycle.NewManager(logger, o.emitter),
		logger:    logger,
		registrar: o.registrar,
		onExpired: o.onExpired,
		port:      o.port,
		tts:       o.tts,
	}
}

// Start launches the service, registers the teardown hook on first use and
// arms the TTS timer. It returns an *AlreadyRunningError if the service is
// running.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	err := d.startLocked(ctx)
	d.unlockAndRegister()
	return err
}

// Stop cancels the TTS timer and stops the service. On a driver that is not
// running it returns AlreadyStopped and a nil error.
func (d *Driver) Stop(ctx context.Context) (StopResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopLocked(ctx, "stop")
}

// Restart stops the service if it is running and starts it again.
func (d *Driver) Restart(ctx context.Context) error {
	d.mu.Lock()
	_, err := d.stopLocked(ctx, "restart")
	if err == nil {
		err = d.startLocked(ctx)
	}
	d.unlockAndRegister()
	return err
}

// RenewTTS cancels the pending TTS timer and arms a fresh one for the full
// window.
func (d *Driver) RenewTTS() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.lc.IsRunning() {
		return ErrNotRunning
	}
	d.armLocked(time.Now(), d.tts)
	d.logger.Debug("tts renewed",
		log.String("driver", d.name),
		log.Time("deadline", d.deadline),
	)
	return nil
}

// Touch records activity on the service. It never blocks; when the TTS
// timer fires after a Touch, the window restarts from the last activity
// instead of stopping the driver.
func (d *Driver) Touch() {
	d.lastActivity.Store(time.Now().UnixNano())
}

// ExpireTTS applies TTS expiry now. A running driver is stopped and a
// *TTSExceededError carrying elapsed is returned; on a stopped driver it
// does nothing and returns nil.
func (d *Driver) ExpireTTS(elapsed time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.expireLocked(elapsed)
}

// RegisterTeardownHook registers the process-exit hook unless that already
// happened and returns the driver state.
func (d *Driver) RegisterTeardownHook() Snapshot {
	d.mu.Lock()
	d.registerTeardownLocked()
	snap := d.snapshotLocked()
	d.unlockAndRegister()
	return snap
}

// TeardownNow synchronously stops the service if it is still running. It is
// the function handed to the shutdown registrar.
func (d *Driver) TeardownNow() {
	ctx, cancel := context.WithTimeout(context.Background(), TeardownTimeout)
	defer cancel()

	res, err := d.Stop(ctx)
	if err != nil {
		d.logger.Error("teardown stop failed", log.String("driver", d.name), log.Err(err))
		return
	}
	if res == Stopped {
		d.logger.Info("driver stopped by teardown hook", log.String("driver", d.name))
	}
}

// SetPort changes the port used by the next Start.
func (d *Driver) SetPort(port int) error {
	if port <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lc.IsRunning() {
		return ErrPortLocked
	}
	d.port = port
	return nil
}

// SetTTS changes the TTS window. A running driver picks it up the next
// time the timer is armed.
func (d *Driver) SetTTS(tts time.Duration) error {
	if tts <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTTS, tts)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.tts = tts
	return nil
}

// Name returns the service name.
func (d *Driver) Name() string { return d.name }

// Port returns the configured port.
func (d *Driver) Port() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port
}

// TTS returns the configured time-to-stop window.
func (d *Driver) TTS() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tts
}

// State returns the lifecycle state. It does not wait for an operation in
// progress.
func (d *Driver) State() lifecycle.State { return d.lc.State() }

// Running reports whether the service is running.
func (d *Driver) Running() bool { return d.lc.IsRunning() }

// TeardownHookRegistered reports whether the teardown hook was registered.
func (d *Driver) TeardownHookRegistered() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.teardownRegistered
}

// Snapshot returns the current driver state.
func (d *Driver) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Driver) startLocked(ctx context.Context) error {
	if !d.lc.CanStart() {
		return &AlreadyRunningError{Driver: d.name, Port: d.port}
	}
	if err := d.lc.TransitionTo(lifecycle.StateStarting, "start"); err != nil {
		return err
	}

	if err := guard(func() error { return d.svc.Start(ctx, d.port) }); err != nil {
		_ = d.lc.TransitionTo(lifecycle.StateCrashed, "start failed")
		d.logger.Error("driver start failed",
			log.String("driver", d.name),
			log.Int("port", d.port),
			log.Err(err),
		)
		return fmt.Errorf("driver: start %s on port %d: %w", d.name, d.port, err)
	}

	if err := d.lc.TransitionTo(lifecycle.StateRunning, "started"); err != nil {
		return err
	}
	d.registerTeardownLocked()
	d.armLocked(time.Now(), d.tts)

	d.logger.Info("driver started",
		log.String("driver", d.name),
		log.Int("port", d.port),
		log.Duration("tts", d.tts),
	)
	return nil
}

func (d *Driver) stopLocked(ctx context.Context, reason string) (StopResult, error) {
	if !d.lc.CanStop() {
		return AlreadyStopped, nil
	}

	d.disarmLocked()
	if err := d.lc.TransitionTo(lifecycle.StateStopping, reason); err != nil {
		return Stopped, err
	}

	if err := guard(func() error { return d.svc.Stop(ctx) }); err != nil {
		_ = d.lc.TransitionTo(lifecycle.StateCrashed, "stop failed")
		d.logger.Error("driver stop failed", log.String("driver", d.name), log.Err(err))
		return Stopped, fmt.Errorf("driver: stop %s: %w", d.name, err)
	}

	if err := d.lc.TransitionTo(lifecycle.StateStopped, reason); err != nil {
		return Stopped, err
	}
	d.logger.Info("driver stopped",
		log.String("driver", d.name),
		log.String("reason", reason),
	)
	return Stopped, nil
}

func (d *Driver) expireLocked(elapsed time.Duration) error {
	if !d.lc.IsRunning() {
		return nil
	}

	d.logger.Warn("tts exceeded, stopping driver",
		log.String("driver", d.name),
		log.Duration("elapsed", elapsed),
	)

	ctx, cancel := context.WithTimeout(context.Background(), TeardownTimeout)
	defer cancel()
	if _, err := d.stopLocked(ctx, "tts exceeded"); err != nil {
		d.logger.Error("tts auto-stop failed", log.String("driver", d.name), log.Err(err))
	}
	return NewTTSExceededError(d.name, elapsed)
}

// armLocked replaces any pending timer with one firing after wait. The TTS
// window is measured from from.
func (d *Driver) armLocked(from time.Time, wait time.Duration) {
	d.disarmLocked()

	gen := d.gen
	d.armedAt = from
	d.deadline = from.Add(d.tts)
	d.timer = time.AfterFunc(wait, func() { d.fire(gen) })
}

func (d *Driver) disarmLocked() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.deadline = time.Time{}
}

// fire runs on the timer goroutine.
func (d *Driver) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.lc.IsRunning() {
		d.mu.Unlock()
		return
	}

	if last := d.lastActivity.Load(); last > d.armedAt.UnixNano() {
		since := time.Unix(0, last)
		if idle := time.Since(since); idle < d.tts {
			d.armLocked(since, d.tts-idle)
			d.mu.Unlock()
			return
		}
	}

	err := d.expireLocked(time.Since(d.armedAt))
	handler := d.onExpired
	d.mu.Unlock()

	if err != nil && handler != nil {
		handler(err)
	}
}

// guard runs a service call, reporting a panic as an error so the driver
// lock is always released.
func guard(call func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("service panicked: %v", p)
		}
	}()
	return call()
}

func (d *Driver) registerTeardownLocked() {
	if d.teardownRegistered {
		return
	}
	d.teardownRegistered = true
	d.pendingRegister = d.registrar != nil
}

// unlockAndRegister releases d.mu and then hands a pending teardown hook to
// the registrar, which may run it synchronously.
func (d *Driver) unlockAndRegister() {
	register := d.pendingRegister
	d.pendingRegister = false
	d.mu.Unlock()

	if register {
		d.registrar.Register("driver:"+d.name, d.TeardownNow)
		d.logger.Debug("teardown hook registered", log.String("driver", d.name))
	}
}

func (d *Driver) snapshotLocked() Snapshot {
	return Snapshot{
		Name:                   d.name,
		Port:                   d.port,
		State:                  d.lc.State(),
		Running:                d.lc.IsRunning(),
		TeardownHookRegistered: d.teardownRegistered,
		TTS:                    d.tts,
		Deadline:               d.deadline,
	}
}
