package localdriver

import (
	"context"
	"errors"
	"testing"
)

type nopService struct{}

func (nopService) Name() string                     { return "nop" }
func (nopService) Start(context.Context, int) error { return nil }
func (nopService) Stop(context.Context) error       { return nil }

func TestNew(t *testing.T) {
	d, err := New(nopService{}, WithPort(8878))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if d.Port() != 8878 {
		t.Errorf("Port() = %v, want 8878", d.Port())
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	err = d.Start(context.Background())
	var running *AlreadyRunningError
	if !errors.As(err, &running) {
		t.Errorf("second Start() = %v, want *AlreadyRunningError", err)
	}
	if _, err := d.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestNew_NilService(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) should fail")
	}
}

func TestValidateModuleVersions(t *testing.T) {
	if err := validateModuleVersions(); err != nil {
		t.Errorf("validateModuleVersions() = %v", err)
	}
}

func TestIsVersionCompatible(t *testing.T) {
	tests := []struct {
		version, min string
		want         bool
	}{
		{"1.0.0", "1.0.0", true},
		{"1.2.0", "1.0.5", true},
		{"2.0.0", "1.9.9", true},
		{"1.0.0", "1.0.1", false},
		{"1.9.9", "2.0.0", false},
	}

	for _, tt := range tests {
		if got := isVersionCompatible(tt.version, tt.min); got != tt.want {
			t.Errorf("isVersionCompatible(%s, %s) = %v, want %v", tt.version, tt.min, got, tt.want)
		}
	}
}
