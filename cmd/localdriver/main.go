package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/localdriver/internal/adapters/metrics"
	"github.com/bft-labs/localdriver/internal/adapters/mockserver"
	"github.com/bft-labs/localdriver/internal/cliconfig"
	"github.com/bft-labs/localdriver/pkg/collection"
	"github.com/bft-labs/localdriver/pkg/driver"
	"github.com/bft-labs/localdriver/pkg/log"
	"github.com/bft-labs/localdriver/pkg/shutdown"
	"github.com/bft-labs/localdriver/plugins/configwatcher"
)

const longHelp = `Run a local mock HTTP server under a lifecycle driver.

The server binds to a single port, stops by itself once it has been idle for
the time-to-stop (TTS) window, and is always shut down when localdriver exits.
Every request to a mock route counts as activity and pushes the TTS back.

Configuration is read from $HOME/.localdriver/config.toml, then LOCALDRIVER_*
environment variables, then flags; later sources win.`

var exampleUsage = strings.TrimSpace(`
  localdriver --port 8878 --routes ./routes.toml
  localdriver --config ./localdriver.toml --watch --metrics
  LOCALDRIVER_TTS=15m localdriver
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:          "localdriver",
		Short:        "Run a local mock server that stops itself when idle",
		Long:         longHelp,
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			// flags over defaults, before file and env are layered in
			flags := cfg
			if err := loadConfig(&cfg, cfgFile, changed); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, flags, cfgFile, changed)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.localdriver/config.toml)")
	root.Flags().StringVar(&cfg.Name, "name", cfg.Name, "driver name used in logs and errors")
	root.Flags().StringVar(&cfg.Host, "host", cfg.Host, "interface to bind")
	root.Flags().IntVar(&cfg.Port, "port", cfg.Port, "port to bind")
	root.Flags().DurationVar(&cfg.TTS, "tts", cfg.TTS, "idle time-to-stop window")
	root.Flags().StringVar(&cfg.RoutesFile, "routes", cfg.RoutesFile, "TOML file with mock routes")
	root.Flags().BoolVar(&cfg.Metrics, "metrics", cfg.Metrics, "serve Prometheus metrics at /metrics")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload the config file when it changes")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		logger := cliconfig.Logger("error")
		logger.Error().Err(err).Msg("localdriver")
		os.Exit(1)
	}
}

// loadConfig layers the config file and environment under the flags already
// parsed into cfg, then validates the result.
func loadConfig(cfg *cliconfig.Config, cfgFile string, changed map[string]bool) error {
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}
	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

func run(parent context.Context, cfg, flags cliconfig.Config, cfgFile string, changed map[string]bool) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := log.NewZerologAdapterWithLogger(cliconfig.Logger(cfg.LogLevel)).
		With(log.String("driver", cfg.Name))
	logger.Info("configuration",
		log.String("host", cfg.Host),
		log.Int("port", cfg.Port),
		log.Duration("tts", cfg.TTS),
		log.String("routes", cfg.RoutesFile),
	)

	hooks := shutdown.NewHooks(logger)
	defer hooks.Run()

	var routes *collection.Collection[mockserver.Route]
	if cfg.RoutesFile != "" {
		var err error
		if routes, err = mockserver.LoadRoutes(cfg.RoutesFile); err != nil {
			return fmt.Errorf("load routes: %w", err)
		}
	}

	var m *metrics.Metrics
	var metricsHandler http.Handler
	if cfg.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.NewMetrics(reg)
		metricsHandler = metrics.Handler(reg)
	}

	var d *driver.Driver

	srvCfg := mockserver.DefaultConfig()
	srvCfg.Name = cfg.Name
	srvCfg.Host = cfg.Host
	srvCfg.Routes = routes
	srvCfg.Metrics = metricsHandler
	srvCfg.OnActivity = func() { d.Touch() }
	srvCfg.Status = func() interface{} { return statusOf(d) }
	if m != nil {
		srvCfg.Recorder = m
	}
	srv := mockserver.New(srvCfg, logger)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	opts := []driver.Option{
		driver.WithPort(cfg.Port),
		driver.WithTTS(cfg.TTS),
		driver.WithLogger(logger),
		driver.WithRegistrar(hooks),
		driver.WithExpiryHandler(func(err error) {
			m.RecordExpiry()
			logger.Info("driver expired, exiting", log.Err(err))
			cancel()
		}),
	}
	if m != nil {
		opts = append(opts, driver.WithEventEmitter(m))
	}
	d = driver.New(srv, opts...)

	if err := d.Start(ctx); err != nil {
		return err
	}

	if cfg.Watch {
		if cfgFile == "" || !cliconfig.FileExists(cfgFile) {
			logger.Warn("watch requested but no config file exists", log.String("path", cfgFile))
		} else {
			r := &reloader{
				driver:  d,
				base:    flags,
				cfg:     cfg,
				path:    cfgFile,
				changed: changed,
				abort:   cancel,
				logger:  logger,
			}
			w := configwatcher.New(cfgFile, r.reload, configwatcher.DefaultConfig(), logger)
			if err := w.Start(ctx); err != nil {
				logger.Warn("config watcher disabled", log.Err(err))
			} else {
				defer w.Shutdown(context.Background())
			}
		}
	}

	go func() {
		if hooks.RunOnSignal(ctx, syscall.SIGINT, syscall.SIGTERM) != nil {
			cancel()
		}
	}()

	<-ctx.Done()
	return nil
}

// statusOf avoids the driver's operation lock so it can be served while the
// driver is stopping.
func statusOf(d *driver.Driver) map[string]interface{} {
	return map[string]interface{}{
		"name":    d.Name(),
		"state":   d.State().String(),
		"running": d.Running(),
	}
}
