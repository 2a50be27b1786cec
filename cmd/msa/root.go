package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mpaguilar/msa-toy/internal/buildconfig"
	"github.com/mpaguilar/msa-toy/internal/config"
	"github.com/mpaguilar/msa-toy/internal/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultQuery   = "Provide a list of Texas state senators"
	responseHeader = "\n=== Multi-Step Agent Response ==="
	responseFooter = "==================================\n"
)

var (
	query       string
	logLevel    string
	metricsFile string
)

var logger = zap.NewNop()

// build is swapped in tests.
var build runtimeBuilder = buildRuntime

var rootCmd = &cobra.Command{
	Use:   "msa",
	Short: "Multi-step research agent",
	Long: `msa answers a question by looping over think, act and check steps,
gathering evidence from web search and Wikipedia until it can write a
cited answer.

Run without a subcommand to answer --query once, or use "msa serve" to
expose the agent over HTTP.`,
	Version:      buildconfig.String(),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logLevel
		if !cmd.Flags().Changed("log-level") {
			level = config.LogLevel()
		}
		lvl, err := parseLogLevel(level)
		if err != nil {
			return err
		}
		l, err := newLogger(lvl)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		logger = l
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		defer func() { _ = logger.Sync() }()
		runQuery(cmd.Context(), cmd.OutOrStdout(), query)
		return nil
	},
}

// Execute runs the root command. Flag errors exit 1; a failed query run
// prints its error and still exits 0.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "INFO", "Logging level (DEBUG, INFO, WARNING, ERROR, CRITICAL)")
	rootCmd.Flags().StringVarP(&query, "query", "q", defaultQuery, "Query to process with the multi-step agent")
	rootCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write run metrics as JSON to this path")
}

// runQuery answers one query and writes the framed response to out.
func runQuery(ctx context.Context, out io.Writer, q string) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger.Info("starting multi-step agent", zap.String("query", q))

	rt, err := build(ctx, logger)
	if err != nil {
		logger.Error("multi-step agent failed", zap.Error(err))
		_, _ = fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("close runtime", zap.Error(err))
		}
	}()

	if rt.perf == nil {
		rt.perf = metrics.NewPerformance(logger)
	}
	stop := rt.perf.Time("cli_query")
	answer := rt.answerer.Process(ctx, q)
	stop()
	if metricsFile != "" {
		if err := rt.perf.Save(metricsFile); err != nil {
			logger.Warn("save metrics", zap.Error(err))
		}
	}

	_, _ = fmt.Fprintln(out, responseHeader)
	_, _ = fmt.Fprintln(out, answer)
	_, _ = fmt.Fprint(out, responseFooter, "\n")

	logger.Info("multi-step agent completed")
}

// parseLogLevel accepts the CLI level names and zap's own, in any case.
func parseLogLevel(s string) (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "INFO":
		return zapcore.InfoLevel, nil
	case "WARNING", "WARN":
		return zapcore.WarnLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	case "CRITICAL", "FATAL":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q (valid options: DEBUG, INFO, WARNING, ERROR, CRITICAL)", s)
	}
}

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
