// Command notetrainer listens to an instrument and shows the written note
// being played.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xlemi/notetrainer/internal/config"
	"github.com/0xlemi/notetrainer/internal/instrument"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "notetrainer: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "notetrainer",
		Short:         "Real-time pitch detection for transposing instruments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newListenCmd(opts),
		newAnalyzeCmd(opts),
		newToneCmd(opts),
		newInstrumentsCmd(opts),
	)
	return root
}

// load reads the configuration file, if any, and applies flag overrides.
func (o *globalOptions) load() (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	}
	if o.logLevel != "" {
		cfg.LogLevel = config.LogLevel(o.logLevel)
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func loadTable(cfg *config.Config) (*instrument.Table, error) {
	if cfg.InstrumentsFile == "" {
		return instrument.Default(), nil
	}
	return instrument.Load(cfg.InstrumentsFile)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// uiLogger returns the logger used while the terminal UI owns the screen.
// The returned close function must be called on exit.
func uiLogger(cfg *config.Config) (*slog.Logger, func() error, error) {
	if cfg.LogFile == "" {
		return newLogger(cfg.LogLevel, io.Discard), func() error { return nil }, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return newLogger(cfg.LogLevel, f), f.Close, nil
}

// ignoreCanceled maps a clean shutdown to a nil error.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
