package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/bft-labs/localdriver/pkg/log"
)

// Registrar accepts process-exit hooks.
type Registrar interface {
	Register(name string, fn func())
}

type hook struct {
	name string
	fn   func()
}

// Hooks is a Registrar that runs its hooks exactly once.
type Hooks struct {
	mu     sync.Mutex
	hooks  []hook
	ran    bool
	logger log.Logger
}

// NewHooks creates an empty hook set.
func NewHooks(logger log.Logger) *Hooks {
	return &Hooks{logger: log.OrNoop(logger)}
}

// Register adds fn to the set. Hooks registered after Run has started are
// run immediately, since the process is already going away.
func (h *Hooks) Register(name string, fn func()) {
	h.mu.Lock()
	if h.ran {
		h.mu.Unlock()
		h.invoke(hook{name: name, fn: fn})
		return
	}
	h.hooks = append(h.hooks, hook{name: name, fn: fn})
	h.mu.Unlock()
}

// Len returns the number of hooks waiting to run.
func (h *Hooks) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hooks)
}

// Run invokes every registered hook, last registered first. Subsequent
// calls are no-ops.
func (h *Hooks) Run() {
	h.mu.Lock()
	if h.ran {
		h.mu.Unlock()
		return
	}
	h.ran = true
	pending := h.hooks
	h.hooks = nil
	h.mu.Unlock()

	for i := len(pending) - 1; i >= 0; i-- {
		h.invoke(pending[i])
	}
}

// RunOnSignal blocks until one of sigs arrives or ctx is done. On a signal
// it runs the hooks and returns the signal; otherwise it returns nil.
func (h *Hooks) RunOnSignal(ctx context.Context, sigs ...os.Signal) os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	defer signal.Stop(ch)

	return h.runOn(ctx, ch)
}

func (h *Hooks) runOn(ctx context.Context, ch <-chan os.Signal) os.Signal {
	select {
	case <-ctx.Done():
		return nil
	case sig := <-ch:
		h.logger.Info("received signal, running teardown hooks", log.String("signal", sig.String()))
		h.Run()
		return sig
	}
}

func (h *Hooks) invoke(k hook) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("teardown hook panicked",
				log.String("hook", k.name),
				log.Err(fmt.Errorf("panic: %v", r)),
			)
		}
	}()
	h.logger.Debug("running teardown hook", log.String("hook", k.name))
	k.fn()
}
