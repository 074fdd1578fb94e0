package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/localdriver/internal/cliconfig"
	"github.com/bft-labs/localdriver/pkg/driver"
	"github.com/bft-labs/localdriver/pkg/lifecycle"
	"github.com/bft-labs/localdriver/pkg/log"
)

// portRecorder records the ports it was started on and refuses the ports
// listed in busy.
type portRecorder struct {
	mu    sync.Mutex
	ports []int
	busy  map[int]bool
}

func (p *portRecorder) Name() string { return "recorder" }

func (p *portRecorder) Start(_ context.Context, port int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busy[port] {
		return errors.New("address already in use")
	}
	p.ports = append(p.ports, port)
	return nil
}

func (p *portRecorder) Stop(context.Context) error { return nil }

func (p *portRecorder) started() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.ports...)
}

func (p *portRecorder) refuse(ports ...int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.busy = map[int]bool{}
	for _, port := range ports {
		p.busy[port] = true
	}
}

func writeConfig(t *testing.T, path, content string) string {
	t.Helper()
	if path == "" {
		path = filepath.Join(t.TempDir(), "config.toml")
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// newReloader starts a driver on port 8878 (given as a flag) with the
// default TTS.
func newReloader(t *testing.T, path string, changed map[string]bool) (*reloader, *portRecorder, *bool) {
	t.Helper()
	svc := &portRecorder{}
	base := cliconfig.DefaultConfig()
	base.Port = 8878
	if changed == nil {
		changed = map[string]bool{}
	}

	d := driver.New(svc, driver.WithPort(base.Port), driver.WithTTS(base.TTS))
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _, _ = d.Stop(context.Background()) })

	aborted := new(bool)
	r := &reloader{
		driver:  d,
		base:    base,
		cfg:     base,
		path:    path,
		changed: changed,
		abort:   func() { *aborted = true },
		logger:  log.NewNoopLogger(),
	}
	return r, svc, aborted
}

func TestReloader_PortChangeRestarts(t *testing.T) {
	path := writeConfig(t, "", "port = 9000\n")
	r, svc, _ := newReloader(t, path, nil)

	r.reload(context.Background())

	if !r.driver.Running() {
		t.Fatal("driver should be running after port change")
	}
	if r.driver.Port() != 9000 {
		t.Errorf("Port() = %v, want 9000", r.driver.Port())
	}
	if got := svc.started(); len(got) != 2 || got[1] != 9000 {
		t.Errorf("service started on %v, want [8878 9000]", got)
	}
}

func TestReloader_FlagPortWins(t *testing.T) {
	path := writeConfig(t, "", "port = 9000\ntts = \"2h\"\n")
	r, svc, _ := newReloader(t, path, map[string]bool{"port": true})

	r.reload(context.Background())

	if r.driver.Port() != 8878 {
		t.Errorf("Port() = %v, want 8878 (flag wins)", r.driver.Port())
	}
	if r.driver.TTS() != 2*time.Hour {
		t.Errorf("TTS() = %v, want 2h", r.driver.TTS())
	}
	if got := svc.started(); len(got) != 1 {
		t.Errorf("service restarted unexpectedly: %v", got)
	}
}

func TestReloader_RemovedKeyFallsBackToDefault(t *testing.T) {
	path := writeConfig(t, "", "tts = \"2h\"\n")
	r, _, _ := newReloader(t, path, nil)

	r.reload(context.Background())
	if r.driver.TTS() != 2*time.Hour {
		t.Fatalf("TTS() = %v, want 2h", r.driver.TTS())
	}

	writeConfig(t, path, "name = \"users\"\n")
	r.reload(context.Background())

	if r.driver.TTS() != driver.DefaultTTS {
		t.Errorf("TTS() = %v, want default %v", r.driver.TTS(), driver.DefaultTTS)
	}
	if r.cfg.Name != "users" {
		t.Errorf("cfg.Name = %q, want users", r.cfg.Name)
	}
}

func TestReloader_InvalidConfigKeepsState(t *testing.T) {
	path := writeConfig(t, "", "tts = \"never\"\n")
	r, _, _ := newReloader(t, path, nil)

	r.reload(context.Background())

	if r.driver.TTS() != driver.DefaultTTS {
		t.Errorf("TTS() = %v, want unchanged %v", r.driver.TTS(), driver.DefaultTTS)
	}
	if !r.driver.Running() {
		t.Error("driver should keep running after a bad reload")
	}
}

func TestReloader_PortInUseRevertsToPreviousPort(t *testing.T) {
	path := writeConfig(t, "", "port = 9000\n")
	r, svc, aborted := newReloader(t, path, nil)
	svc.refuse(9000)

	r.reload(context.Background())

	if !r.driver.Running() {
		t.Fatalf("driver should be running again, state %v", r.driver.State())
	}
	if r.driver.Port() != 8878 || r.cfg.Port != 8878 {
		t.Errorf("port = %v (cfg %v), want 8878", r.driver.Port(), r.cfg.Port)
	}
	if *aborted {
		t.Error("reloader aborted although the previous port was restored")
	}
}

func TestReloader_NoPortAvailableAborts(t *testing.T) {
	path := writeConfig(t, "", "port = 9000\n")
	r, svc, aborted := newReloader(t, path, nil)
	svc.refuse(9000, 8878)

	r.reload(context.Background())

	if !*aborted {
		t.Error("reloader should abort when no port can be served")
	}
	if r.driver.State() != lifecycle.StateCrashed {
		t.Errorf("State() = %v, want Crashed", r.driver.State())
	}
}

func TestLoadConfig_FileThenValidate(t *testing.T) {
	path := writeConfig(t, "", "name = \"users\"\nport = 8878\n")
	cfg := cliconfig.DefaultConfig()

	if err := loadConfig(&cfg, path, map[string]bool{}); err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Name != "users" || cfg.Port != 8878 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestStatusOf(t *testing.T) {
	d := driver.New(&portRecorder{})

	got := statusOf(d)

	if got["state"] != "Stopped" || got["running"] != false || got["name"] != "recorder" {
		t.Errorf("statusOf() = %v", got)
	}
}
