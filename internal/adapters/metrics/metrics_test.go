package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/localdriver/pkg/lifecycle"
)

func TestMetrics_OnStateChange(t *testing.T) {
	m := NewMetrics(nil)

	m.OnStateChange(lifecycle.StateStopped, lifecycle.StateStarting, "start")
	m.OnStateChange(lifecycle.StateStarting, lifecycle.StateRunning, "started")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.State.WithLabelValues("Running")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.State.WithLabelValues("Stopped")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.State.WithLabelValues("Starting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("Starting", "Running")))
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(nil)

	m.RecordExpiry()
	m.RecordRequest(http.MethodGet, "/users/{id}", 200)
	m.RecordRequest(http.MethodGet, "/users/{id}", 200)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TTSExpirations))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/users/{id}", "200")))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.OnStateChange(lifecycle.StateStopped, lifecycle.StateStarting, "")
		m.RecordExpiry()
		m.RecordRequest("GET", "/", 200)
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.RecordExpiry()

	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "localdriver_tts_expirations_total 1")
	assert.Contains(t, string(body), `localdriver_state{state="Stopped"} 1`)
}

var _ lifecycle.EventEmitter = (*Metrics)(nil)
