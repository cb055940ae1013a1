package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/piso3/piso/internal/config"
)

const programName = "piso"

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// The returned function closes the log file, if one was opened.
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	cleanup := func() {}

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

// cli holds what the persistent flags resolve to before a subcommand runs.
type cli struct {
	configFile string
	dbPath     string
	logPath    string

	cfg      *config.Config
	closeLog func()
}

func rootCommand() *cobra.Command {
	c := &cli{closeLog: func() {}}

	root := &cobra.Command{
		Use:           programName,
		Short:         "Household supply rotation, dish log and reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configFile)
			if err != nil {
				return err
			}
			// Flags win over the file and the environment.
			if c.dbPath != "" {
				cfg.DatabasePath = c.dbPath
			}
			if c.logPath != "" {
				cfg.LogPath = c.logPath
			}
			c.cfg = cfg

			closeLog, err := setupLogger(cfg.LogPath)
			if err != nil {
				return err
			}
			c.closeLog = closeLog
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.closeLog()
		},
	}

	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().StringVarP(&c.dbPath, "db", "d", "", "SQLite database path (overrides config)")
	root.PersistentFlags().StringVarP(&c.logPath, "log", "l", "", "log file path (overrides config)")

	root.AddCommand(serveCommand(c))
	root.AddCommand(initCommand(c))
	root.AddCommand(sweepCommand(c))
	return root
}

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
