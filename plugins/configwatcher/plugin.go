// Package configwatcher reloads localdriver configuration when its file changes.
//
// The watcher observes the directory holding the config file, so editors
// that replace the file through a rename are picked up too. Bursts of
// events are debounced into a single OnChange call.
package configwatcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/localdriver/pkg/log"
)

// ErrStarted is returned by Start on a running watcher.
var ErrStarted = errors.New("configwatcher: already started")

// Plugin watches one configuration file.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	onChange      func(ctx context.Context)
	logger        log.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 200 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{DebounceDelay: 200 * time.Millisecond}
}

// New creates a watcher for path. onChange runs on the watcher goroutine.
func New(path string, onChange func(ctx context.Context), cfg Config, logger log.Logger) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultConfig().DebounceDelay
	}
	return &Plugin{
		path:          filepath.Clean(path),
		debounceDelay: cfg.DebounceDelay,
		onChange:      onChange,
		logger:        log.OrNoop(logger),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Start begins watching. Events that happen after Start returns are seen.
func (p *Plugin) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return ErrStarted
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	p.logger.Info("config watcher started", log.String("path", p.path))
	return nil
}

// Shutdown stops the watcher and waits for the loop to exit.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending = time.After(p.debounceDelay)

		case <-pending:
			pending = nil
			p.logger.Info("config file changed", log.String("path", p.path))
			p.onChange(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}
