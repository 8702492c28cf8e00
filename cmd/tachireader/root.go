package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kerbaras/tachireader/pkg/config"
	"github.com/kerbaras/tachireader/pkg/data"
	"github.com/kerbaras/tachireader/pkg/logging"
	"github.com/kerbaras/tachireader/pkg/metrics"
	"github.com/kerbaras/tachireader/pkg/reader"
	"github.com/kerbaras/tachireader/pkg/sources"
	"github.com/kerbaras/tachireader/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// tuiAnnotation marks commands that take over the terminal. They only log
// when a log file is configured.
const tuiAnnotation = "tui"

var (
	cfg      *config.Config
	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "tachireader",
	Short: "Read manga from a Tachidesk server in your terminal",
	Long: `Read and download manga chapters served by a Tachidesk server.

Pages are fetched by a small worker pool: the page you are looking at is
always fetched first, the next few pages are preloaded behind it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		applyFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger := zerolog.Nop()
		if cfg.LogFile != "" || cmd.Annotations[tuiAnnotation] == "" {
			opts := logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile}
			if logger, closeLog, err = logging.New(opts); err != nil {
				return err
			}
		}
		cmd.SetContext(logging.WithContext(cmd.Context(), logger))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("server", "", "Tachidesk server URL (env TACHIREADER_SERVER_URL)")
	flags.String("user", "", "Server username for basic auth")
	flags.String("password", "", "Server password for basic auth")
	flags.String("db", "", "Path to the local database")
	flags.Duration("timeout", 0, "HTTP request timeout")
	flags.Float64("rate-limit", 0, "Maximum requests per second to the server (0 = unlimited)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (text, json)")
	flags.String("log-file", "", "Write logs to this file")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(chaptersCmd)
	rootCmd.AddCommand(prefsCmd)
}

// applyFlags overrides the environment with the flags given on the command
// line.
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerURL, _ = flags.GetString("server")
	}
	if flags.Changed("user") {
		cfg.Username, _ = flags.GetString("user")
	}
	if flags.Changed("password") {
		cfg.Password, _ = flags.GetString("password")
	}
	if flags.Changed("db") {
		cfg.DBPath, _ = flags.GetString("db")
	}
	if flags.Changed("timeout") {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit, _ = flags.GetFloat64("rate-limit")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	if flags.Changed("log-file") {
		cfg.LogFile, _ = flags.GetString("log-file")
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
}

func newSource() *sources.Tachidesk {
	opts := []utils.APIOption{utils.WithRateLimit(cfg.RateLimit)}
	if cfg.Timeout > 0 {
		opts = append(opts, utils.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts, utils.WithBasicAuth(cfg.Username, cfg.Password))
	}
	return sources.NewTachidesk(cfg.ServerURL, opts...)
}

func openRepo() (*data.Repository, error) {
	repo, err := data.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DBPath, err)
	}
	return repo, nil
}

// startMetrics serves page metrics when an address is configured and returns
// the observer loaders should report to, or nil.
func startMetrics(ctx context.Context) reader.Observer {
	logger := logging.FromContext(ctx)
	if cfg.MetricsAddr == "" {
		return nil
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	go func() {
		if err := metrics.Serve(ctx, cfg.MetricsAddr, registry); err != nil {
			logger.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics server stopped")
		}
	}()
	logger.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
	return collector
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
