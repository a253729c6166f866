package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sanonone/glzip/internal/config"
	"github.com/sanonone/glzip/pkg/csr"
	"github.com/sanonone/glzip/pkg/edgelist"
	"github.com/sanonone/glzip/pkg/persistence"
)

// app carries the state shared by all subcommands.
type app struct {
	configPath string
	cfg        config.Config
	metrics    *http.Server
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:          "glzip",
		Short:        "Build and reorder compressed sparse row graphs",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	f := rootCmd.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "YAML configuration file")
	f.String("log-level", "", "log level: debug, info, warn, error")
	f.String("log-format", "", "log format: text or json")
	f.Int("threads", 0, "worker threads (0 = one per logical core)")
	f.Int("edges-per-chunk", 0, "edges per unit of work")
	f.Int("bytes-per-chunk", 0, "memory budget per unit of work; wins over --edges-per-chunk")
	f.Int("num-vertices", 0, "fix the vertex count instead of inferring it")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address while running")

	rootCmd.AddCommand(newStatsCmd(a), newConvertCmd(a), newOptimizeCmd(a))
	return rootCmd
}

// setup loads the configuration, applies flag overrides, installs the
// logger and starts the metrics endpoint.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("threads") {
		cfg.Builder.NumThreads, _ = flags.GetInt("threads")
	}
	if flags.Changed("edges-per-chunk") {
		cfg.Builder.EdgesPerChunk, _ = flags.GetInt("edges-per-chunk")
	}
	if flags.Changed("bytes-per-chunk") {
		cfg.Builder.BytesPerChunk, _ = flags.GetInt("bytes-per-chunk")
	}
	if flags.Changed("num-vertices") {
		cfg.Builder.NumVertices, _ = flags.GetInt("num-vertices")
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, _ := cfg.SlogLevel()
	slog.SetDefault(slog.New(newHandler(cmd.ErrOrStderr(), cfg.Log.Format, level)))

	if cfg.MetricsAddr != "" {
		a.serveMetrics(cfg.MetricsAddr)
	}
	return nil
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("[Metrics] Serving", "addr", addr)
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("[Metrics] Server failed", "error", err)
		}
	}()
}

func (a *app) teardown() error {
	if a.metrics == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.metrics.Shutdown(ctx)
	a.metrics = nil
	return err
}

// loadGraph reads a saved .csr file or builds a graph from an edge list.
func (a *app) loadGraph(path string) (*csr.CSR, error) {
	if strings.EqualFold(filepath.Ext(path), ".csr") {
		return persistence.Load(path)
	}
	b := csr.NewBuilder(a.cfg.BuilderConfig())
	g, err := edgelist.Build(b, path)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", path, err)
	}
	return g, nil
}
