package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jkarvonen/driveback/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
var resolvedCfg *config.Resolved

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "driveback",
		Short:   "Google Drive backup service",
		Long:    "A web service that backs up a Google Drive account into downloadable zip archives.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "force JSON log output")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the override chain
// (defaults -> config file -> environment) and stores the result for
// subcommands.
func loadConfig() error {
	resolved, err := config.Resolve(flagConfigPath, config.ReadEnvOverrides())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// buildLogger creates an slog.Logger from the resolved config and CLI
// flags. Config provides the baseline; --verbose and --quiet override it
// because CLI flags always win. Output goes to stderr, in text form on a
// terminal and JSON otherwise, plus an optional rotating log file.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if resolvedCfg != nil {
		switch resolvedCfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	var out io.Writer = os.Stderr

	if resolvedCfg != nil && resolvedCfg.Logging.LogFile != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename: resolvedCfg.Logging.LogFile,
			MaxAge:   resolvedCfg.Logging.LogRetentionDays,
			Compress: true,
		})
	}

	opts := &slog.HandlerOptions{Level: level}

	if useJSONLogs() {
		return slog.New(slog.NewJSONHandler(out, opts))
	}

	return slog.New(slog.NewTextHandler(out, opts))
}

// useJSONLogs decides the log format: explicit config wins, then the
// --json flag, then a terminal check so interactive runs stay readable
// while piped or service output is machine-parseable.
func useJSONLogs() bool {
	if resolvedCfg != nil {
		switch resolvedCfg.Logging.LogFormat {
		case "json":
			return true
		case "text":
			return false
		}
	}

	if flagJSON {
		return true
	}

	return !isatty.IsTerminal(os.Stderr.Fd())
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
