// Package mockserver is an HTTP mock server run as a driver.Service.
//
// Routes come from TOML fixtures. Requests to fixture routes count as
// activity and are reported through Config.OnActivity, which the CLI wires
// to driver.Touch so that an idle server expires and a busy one stays up.
package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bft-labs/localdriver/pkg/collection"
	"github.com/bft-labs/localdriver/pkg/lifecycle"
	"github.com/bft-labs/localdriver/pkg/log"
)

// reservedPrefix holds the server's own endpoints.
const reservedPrefix = "/_driver"

// ErrServing is returned by Start when the server is already listening.
var ErrServing = errors.New("mockserver: already serving")

// RequestRecorder observes completed fixture requests.
type RequestRecorder interface {
	RecordRequest(method, route string, status int)
}

// Config holds mock server settings.
type Config struct {
	Name string
	Host string

	Routes *collection.Collection[Route]

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	// Recorder is told about every fixture request when set.
	Recorder RequestRecorder

	// OnActivity is called for every fixture request.
	OnActivity func()

	// Status feeds GET /_driver/status.
	Status func() interface{}

	ReadHeaderTimeout time.Duration

	// BindAttempts is how many times Start tries to bind before giving up.
	BindAttempts int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Name:              "mockserver",
		Host:              "127.0.0.1",
		ReadHeaderTimeout: 5 * time.Second,
		BindAttempts:      5,
	}
}

// Server implements driver.Service.
type Server struct {
	cfg    Config
	logger log.Logger

	mu   sync.Mutex
	http *http.Server
	done chan struct{}

	// addr is read without mu so status handlers never wait on Stop.
	addr atomic.Value
}

// New creates a server that is not yet listening.
func New(cfg Config, logger log.Logger) *Server {
	d := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = d.Name
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if cfg.BindAttempts <= 0 {
		cfg.BindAttempts = d.BindAttempts
	}
	return &Server{cfg: cfg, logger: log.OrNoop(logger)}
}

// Name returns the configured server name.
func (s *Server) Name() string {
	return s.cfg.Name
}

// Start binds host:port and serves in the background. Port 0 picks a free port.
func (s *Server) Start(ctx context.Context, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.http != nil {
		return ErrServing
	}

	handler, err := s.router()
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(port))
	ln, err := s.listen(ctx, addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("mock server stopped unexpectedly", log.Err(err))
		}
	}()

	s.http = srv
	s.done = done
	s.addr.Store(ln.Addr().String())

	s.logger.Info("mock server listening",
		log.String("addr", ln.Addr().String()),
		log.Int("routes", s.cfg.Routes.Len()),
	)
	return nil
}

// Stop shuts the server down gracefully, closing it outright if ctx expires first.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.http == nil {
		return nil
	}
	srv, done := s.http, s.done
	s.http, s.done = nil, nil
	s.addr.Store("")

	err := srv.Shutdown(ctx)
	if err != nil {
		s.logger.Warn("graceful shutdown failed, closing", log.Err(err))
		if cerr := srv.Close(); cerr != nil {
			return fmt.Errorf("close mock server: %w", cerr)
		}
	}
	<-done
	return nil
}

// Addr returns the bound address, or "" when not listening.
func (s *Server) Addr() string {
	addr, _ := s.addr.Load().(string)
	return addr
}

func (s *Server) listen(ctx context.Context, addr string) (net.Listener, error) {
	backoff := lifecycle.NewBackoff(50*time.Millisecond, time.Second)
	var lc net.ListenConfig

	for attempt := 1; ; attempt++ {
		ln, err := lc.Listen(ctx, "tcp", addr)
		if err == nil {
			return ln, nil
		}
		if attempt >= s.cfg.BindAttempts {
			return nil, fmt.Errorf("listen %s: %w", addr, err)
		}
		s.logger.Warn("bind failed, retrying",
			log.String("addr", addr),
			log.Int("attempt", attempt),
			log.Err(err),
		)
		if werr := backoff.Wait(ctx); werr != nil {
			return nil, fmt.Errorf("listen %s: %w", addr, err)
		}
	}
}

// router builds the handler tree. Routes that chi rejects are reported as
// an error instead of a panic.
func (s *Server) router() (h http.Handler, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("mockserver: build routes: %v", p)
		}
	}()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get(reservedPrefix+"/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get(reservedPrefix+"/status", func(w http.ResponseWriter, _ *http.Request) {
		if s.cfg.Status == nil {
			writeJSON(w, http.StatusOK, map[string]string{"name": s.cfg.Name})
			return
		}
		writeJSON(w, http.StatusOK, s.cfg.Status())
	})
	if s.cfg.Metrics != nil {
		r.Handle("/metrics", s.cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.activity)
		s.cfg.Routes.Each(func(_ int, rt Route) {
			r.Method(rt.Method, rt.Path, fixtureHandler(rt))
		})
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("no mock route for %s %s", req.Method, req.URL.Path),
		})
	})
	return r, nil
}

// activity reports fixture traffic and logs it.
func (s *Server) activity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if s.cfg.OnActivity != nil {
			s.cfg.OnActivity()
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if s.cfg.Recorder != nil {
			s.cfg.Recorder.RecordRequest(r.Method, route, ww.Status())
		}
		s.logger.Debug("mock request",
			log.String("request_id", middleware.GetReqID(r.Context())),
			log.String("method", r.Method),
			log.String("route", route),
			log.Int("status", ww.Status()),
			log.Duration("duration", time.Since(start)),
		)
	})
}

func fixtureHandler(rt Route) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		for k, v := range rt.Headers {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", rt.ContentType)
		w.WriteHeader(rt.Status)
		_, _ = w.Write([]byte(rt.Body))
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
