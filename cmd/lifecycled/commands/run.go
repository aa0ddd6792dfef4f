package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/lifecycled/internal/demo"
	"github.com/marmos91/lifecycled/internal/logger"
	"github.com/marmos91/lifecycled/internal/telemetry"
	"github.com/marmos91/lifecycled/pkg/api"
	"github.com/marmos91/lifecycled/pkg/config"
	"github.com/marmos91/lifecycled/pkg/discovery"
	"github.com/marmos91/lifecycled/pkg/launcher"
	"github.com/marmos91/lifecycled/pkg/lifecycle"
	"github.com/marmos91/lifecycled/pkg/metrics"
	"github.com/marmos91/lifecycled/pkg/service"
	"github.com/marmos91/lifecycled/pkg/watcher"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/lifecycled/pkg/metrics/prometheus"
)

var (
	serviceConfigs []string
	watchFiles     bool
	debugTasks     bool
)

var runCmd = &cobra.Command{
	Use:   "run MODULE [MODULE...]",
	Short: "Run service modules until interrupted",
	Long: `Run one or more service modules from the built-in catalog.

Every module runs concurrently. The command returns once all of them have
terminated, with exit status 1 if any failed to start.

Examples:
  # Run the orders module
  lifecycled run orders

  # Merge extra service configuration and restart when it changes
  lifecycled run orders scheduler --service-config services.yaml --watch

  # Log tasks still pending at shutdown
  LIFECYCLED_DEBUG=1 lifecycled run orders`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringArrayVarP(&serviceConfigs, "service-config", "c", nil, "YAML or JSON service configuration file (repeatable)")
	runCmd.Flags().BoolVar(&watchFiles, "watch", false, "Restart services when configuration files change")
	runCmd.Flags().BoolVar(&debugTasks, "debug", false, "Log tasks still pending after services terminate")
}

func runRun(cmd *cobra.Command, args []string) error {
	modules, err := selectModules(demo.Catalog(), args)
	if err != nil {
		return err
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	services, err := config.ResolveServices(cfg, serviceConfigs)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := initTelemetry(ctx, cfg, args)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	logger.Info("configuration loaded", "source", getConfigSource(GetConfigFile()), logger.KeyProcessID, os.Getpid())

	if cfg.Status.Enabled && cfg.Status.Metrics {
		metrics.InitRegistry()
	}

	store, err := discovery.New(cfg.Discovery)
	if err != nil {
		return fmt.Errorf("failed to initialize discovery: %w", err)
	}
	var backends []service.DiscoveryBackend
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("discovery close error", logger.KeyError, err)
			}
		}()
		backends = append(backends, store)
		logger.Info("discovery enabled", logger.KeyRegistry, store.Name())
	}

	l := launcher.New(launcher.Options{
		Modules:        modules,
		Services:       services,
		Reload:         config.Reloader(GetConfigFile(), serviceConfigs),
		Discovery:      backends,
		InterruptGrace: cfg.Lifecycle.InterruptGrace,
		RestartDelay:   cfg.Lifecycle.RestartDelay,
		Debug:          debugTasks || cfg.Lifecycle.Debug || lifecycle.DebugEnabled(),
		Metrics:        metrics.NewLifecycleMetrics(),
	})

	if cfg.Status.Enabled {
		server := api.NewServer(cfg.Status, l, store, metrics.GetRegistry())
		go func() {
			if err := server.Start(ctx); err != nil {
				logger.Error("status server error", logger.KeyError, err)
			}
		}()
	}

	if watchFiles || cfg.Watcher.Enabled {
		w, err := watcher.New(config.WatchPaths(cfg, GetConfigFile(), serviceConfigs), cfg.Watcher.Debounce,
			func(ctx context.Context, changed []string) {
				_ = l.Restart(ctx)
			})
		if err != nil {
			return fmt.Errorf("failed to start file watcher: %w", err)
		}
		defer func() { _ = w.Close() }()
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Error("file watcher error", logger.KeyError, err)
			}
		}()
	}

	stopSignals := trapSignals(l)
	defer stopSignals()

	code := l.Run(ctx)
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// trapSignals stops the launcher on SIGINT or SIGTERM.
func trapSignals(l *launcher.Launcher) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigChan:
				if sig == syscall.SIGINT {
					logger.Warn("interrupt signal <ctrl+c>", logger.KeySignal, sig.String())
				} else {
					logger.Warn("received termination signal", logger.KeySignal, sig.String())
				}
				l.Stop()
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

// initTelemetry starts tracing and profiling as configured and returns a
// function that stops both.
func initTelemetry(ctx context.Context, cfg *config.Config, modules []string) (func(), error) {
	tcfg := telemetry.DefaultConfig()
	tcfg.Enabled = cfg.Telemetry.Enabled
	tcfg.ServiceVersion = Version
	tcfg.Endpoint = cfg.Telemetry.Endpoint
	tcfg.Insecure = cfg.Telemetry.Insecure
	tcfg.SampleRate = cfg.Telemetry.SampleRate

	shutdownTracing, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	shutdownProfiling, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    tcfg.ServiceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
		Tags:           map[string]string{"modules": strings.Join(modules, ",")},
	})
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("failed to initialize profiling: %w", err)
	}

	if telemetry.IsEnabled() {
		logger.Info("telemetry enabled", "endpoint", tcfg.Endpoint, "sample_rate", tcfg.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	return func() {
		if err := shutdownProfiling(); err != nil {
			logger.Error("profiling shutdown error", logger.KeyError, err)
		}
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}, nil
}
