package driver

import (
	"time"

	"github.com/bft-labs/localdriver/pkg/lifecycle"
	"github.com/bft-labs/localdriver/pkg/log"
	"github.com/bft-labs/localdriver/pkg/shutdown"
)

// Option configures a Driver.
type Option func(*options)

type options struct {
	port      int
	tts       time.Duration
	logger    log.Logger
	registrar shutdown.Registrar
	emitter   lifecycle.EventEmitter
	onExpired func(error)
}

func defaultOptions() options {
	return options{
		port: DefaultPort,
		tts:  DefaultTTS,
	}
}

// WithPort sets the initial port. Non-positive values are ignored.
func WithPort(port int) Option {
	return func(o *options) {
		if port > 0 {
			o.port = port
		}
	}
}

// WithTTS sets the initial time-to-stop window. Non-positive values are ignored.
func WithTTS(tts time.Duration) Option {
	return func(o *options) {
		if tts > 0 {
			o.tts = tts
		}
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegistrar sets where the teardown hook is registered. Without a
// registrar the hook is only marked as registered and TeardownNow must be
// called by the owner.
func WithRegistrar(r shutdown.Registrar) Option {
	return func(o *options) {
		o.registrar = r
	}
}

// WithEventEmitter receives every lifecycle state change.
func WithEventEmitter(e lifecycle.EventEmitter) Option {
	return func(o *options) {
		o.emitter = e
	}
}

// WithExpiryHandler receives the *TTSExceededError produced when the TTS
// timer stops a running driver. It is called without the driver lock held.
func WithExpiryHandler(fn func(error)) Option {
	return func(o *options) {
		o.onExpired = fn
	}
}
