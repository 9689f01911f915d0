package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aluiziolira/mp-attendance/config"
	"github.com/aluiziolira/mp-attendance/pipeline"
	"github.com/aluiziolira/mp-attendance/scraper"
	"github.com/aluiziolira/mp-attendance/stats"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	outputFile   string
	outputFormat string
	parallelism  int
	metricsAddr  string
	verbose      bool

	logLevel *slog.LevelVar
)

var rootCmd = &cobra.Command{
	Use:   "mpattendance",
	Short: "Scrapes parliament attendance and writes an aggregated snapshot.",
	Long: `mpattendance discovers the member roster, collects every member's
attendance history and writes a JSON snapshot with per-member, per-party and
per-district statistics. Settings come from an optional YAML file, then
ATTENDANCE_* environment variables, then flags.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger, level := newLogger(verbose)
		slog.SetDefault(logger)
		slog.SetLogLoggerLevel(level.Level())
		logLevel = level
	},
	RunE: runScrape,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "YAML config file (default $"+config.ConfigEnv+")")
	flags.StringVar(&outputFile, "output", "", "Snapshot output path")
	flags.StringVar(&outputFormat, "format", "", "Output format: json or dual")
	flags.IntVar(&parallelism, "parallel", 0, "Members collected concurrently")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// loadConfig layers flags that were set explicitly over the loaded config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.OutputFile = outputFile
	}
	if flags.Changed("format") {
		cfg.OutputFormat = strings.ToLower(outputFormat)
	}
	if flags.Changed("parallel") {
		cfg.Parallelism = parallelism
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}
	if cfg.Verbose && logLevel != nil {
		logLevel.Set(slog.LevelDebug)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.String("legislature", cfg.LegislatureID),
		slog.Int("workers", cfg.Parallelism),
	)

	fetcher, err := scraper.NewFetcher(cfg)
	if err != nil {
		return fmt.Errorf("initialising fetcher: %w", err)
	}

	writer, err := pipeline.NewWriter(cfg)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}

	metricsServer := startMetricsServer(cfg.MetricsAddr, fetcher.Metrics)
	defer stopMetricsServer(metricsServer)

	p := pipeline.New(cfg, fetcher, fetcher.Metrics)
	snapshot, result, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("scraping failed: %w", err)
	}

	if err := writer.Write(snapshot); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := writer.Validate(); err != nil {
		return fmt.Errorf("output validation failed: %w", err)
	}
	if snapshot.Metadata.Partial {
		slog.Warn("snapshot written from a partial run",
			slog.String("output", cfg.OutputFile),
			slog.Int("members", snapshot.Metadata.TotalMPs),
		)
	}

	out := cmd.OutOrStdout()
	printSummary(out, snapshot, result, cfg.OutputFile)
	printWorst(out, snapshot, 5)
	printTrend(out, stats.DailyTrend(p.Entries()))
	return nil
}

func startMetricsServer(addr string, metrics *scraper.Metrics) *http.Server {
	if addr == "" || metrics == nil {
		return nil
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func stopMetricsServer(server *http.Server) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}
