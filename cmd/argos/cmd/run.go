package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/argos-watch/argos/pkg/argus"
	"github.com/argos-watch/argos/pkg/config"
	"github.com/argos-watch/argos/pkg/iris"
	"github.com/argos-watch/argos/pkg/mnemosyne"
	"github.com/argos-watch/argos/pkg/nomad"
	"github.com/argos-watch/argos/pkg/panoptes"
	"github.com/argos-watch/argos/pkg/talos"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the poll loop until terminated",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return runWatcher(cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runWatcher(cfg *config.Config) error {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	logger := iris.NewSlogAdapterWith(slogger)

	var metrics iris.Metrics = iris.NewNoopMetrics()
	if cfg.MetricsPort > 0 {
		prom := iris.NewPrometheusMetrics()
		metrics = prom
		go func() {
			addr := fmt.Sprintf(":%d", cfg.MetricsPort)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(prom.Registry(), promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(addr, mux); err != nil {
				slogger.Error("Metrics listener failed", "error", err)
			}
		}()
	}

	var store mnemosyne.Store
	if cfg.RedisAddr != "" {
		rs, err := mnemosyne.NewRedisStore(cfg.RedisAddr, cfg.RedisDB, cfg.RedisPassword)
		if err != nil {
			return fmt.Errorf("failed to initialize redis state store: %w", err)
		}
		store = rs
	} else {
		store = mnemosyne.NewMemoryStore()
	}
	defer store.Close()

	var runtime panoptes.Runtime
	if cfg.DockerMode == config.ModeCLI {
		runtime = talos.NewCLIRuntime()
	} else {
		dr, err := talos.NewDockerRuntime(cfg.DockerSocket)
		if err != nil {
			return fmt.Errorf("failed to initialize docker runtime: %w", err)
		}
		runtime = dr
	}

	var stopper panoptes.JobStopper
	if cfg.DryRun {
		stopper = nomad.NewDryRunClient()
	} else {
		stopper = nomad.NewClient(cfg.NomadEndpoint, cfg.NomadToken)
	}

	watcher := panoptes.NewWatcher(panoptes.WatcherConfig{
		Runtime:  runtime,
		Stopper:  stopper,
		Tracker:  argus.NewTracker(store, cfg.ActivityThreshold, cfg.IdleTimeout),
		Logger:   logger,
		Metrics:  metrics,
		Filter:   cfg.ContainerFilter,
		Interval: cfg.CheckInterval,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slogger.Info("Starting argos",
		"idle_timeout", cfg.IdleTimeout.String(),
		"check_interval", cfg.CheckInterval.String(),
		"activity_threshold", cfg.ActivityThreshold,
		"container_filter", cfg.ContainerFilter,
		"docker_mode", cfg.DockerMode,
		"dry_run", cfg.DryRun,
	)

	err := watcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		slogger.Info("Shutting down")
		return nil
	}
	return err
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
