package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jzx17/prioritypool/pkg/metrics"
	"github.com/jzx17/prioritypool/pkg/worker"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pooldemo",
		Short: "Run sample workloads through a fixed priority worker pool",
		Long: `pooldemo submits sample tasks to a fixed-size priority worker pool and
prints them as they run. Without a subcommand every scenario runs in order.
Flags can also be set through POOLDEMO_* environment variables or a YAML
config file.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, scenarios...)
		},
	}
	bindFlags(rootCmd.PersistentFlags())

	for _, s := range scenarios {
		s := s
		rootCmd.AddCommand(&cobra.Command{
			Use:   s.name,
			Short: fmt.Sprintf("Run the %s scenario", s.name),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runScenarios(cmd, s)
			},
		})
	}

	return rootCmd
}

func runScenarios(cmd *cobra.Command, selected ...scenario) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, logFile, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
		if logFile != nil {
			_ = logFile.Close()
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	registry := metrics.NewRegistry(reg)

	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer shutdown()
	}

	d := &demo{
		cfg:    cfg,
		out:    &lockedWriter{w: cmd.OutOrStdout()},
		logger: logger,
		newPool: func(name string) (*worker.PriorityWorkerPool, error) {
			return worker.NewPriorityWorkerPool(&worker.PriorityWorkerPoolConfig{
				PoolSize: cfg.Workers,
				Name:     name,
				Logger:   logger,
				Metrics:  registry,
			})
		},
	}

	for _, s := range selected {
		logger.Info("running scenario", zap.String("scenario", s.name), zap.Int("workers", cfg.Workers))
		if err := s.run(ctx, d); err != nil {
			return fmt.Errorf("scenario %s: %w", s.name, err)
		}
	}
	return nil
}

// serveMetrics exposes reg over HTTP and returns a function that stops the server
func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

