package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf))

	l.Info("driver started",
		String("driver", "mock"),
		Int("port", 8878),
		Bool("running", true),
		Duration("tts", 2*time.Second),
		Err(errors.New("boom")),
	)

	var got map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if got["message"] != "driver started" {
		t.Errorf("message = %v, want driver started", got["message"])
	}
	if got["driver"] != "mock" {
		t.Errorf("driver = %v, want mock", got["driver"])
	}
	if got["port"] != float64(8878) {
		t.Errorf("port = %v, want 8878", got["port"])
	}
	if got["error"] != "boom" {
		t.Errorf("error = %v, want boom", got["error"])
	}
}

func TestZerologAdapter_DisabledLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))

	l.Debug("hidden", String("k", "v"))
	l.Info("hidden")

	if buf.Len() != 0 {
		t.Errorf("expected no output below warn level, got %q", buf.String())
	}
}

func TestZerologAdapter_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf)).With(String("driver", "mock"))

	l.Warn("tts renewed")

	if !bytes.Contains(buf.Bytes(), []byte(`"driver":"mock"`)) {
		t.Errorf("child logger lost its field: %s", buf.String())
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) should return NoopLogger")
	}
	z := NewZerologAdapter()
	if OrNoop(z) != Logger(z) {
		t.Error("OrNoop should return non-nil logger unchanged")
	}
}
