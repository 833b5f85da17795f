// Package cli implements the almanac command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/almanac/internal/manager"
	"github.com/mesh-intelligence/almanac/internal/metrics"
	"github.com/mesh-intelligence/almanac/internal/planner"
	"github.com/mesh-intelligence/almanac/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
}

// app is the state one invocation shares across its commands.
type app struct {
	flags rootFlags

	configDir   string
	cfg         types.Config
	logLevel    string
	metricsFile string

	logger   *slog.Logger
	recorder *metrics.Recorder
	now      func() time.Time
	stderr   io.Writer
}

// NewRootCmd creates the top-level "almanac" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{now: time.Now, stderr: os.Stderr})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "almanac",
		Short: "A local-first organizer for items, habits and routines",
		Long: "Almanac keeps calendar items, categories, habits and routines in local\n" +
			"collections and reconciles them with a remote store, last write wins.",
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/almanac)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $XDG_DATA_HOME/almanac)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newAddCmd(a),
		newListCmd(a),
		newDeleteCmd(a),
		newMoveCmd(a),
		newDoneCmd(a),
		newCheckCmd(a),
		newStepCmd(a),
		newSyncCmd(a),
		newAgendaCmd(a),
		newNextCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// setup loads configuration and logging before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	if err := a.loadConfig(); err != nil {
		return err
	}
	a.logger = newLogger(a.stderr, a.logLevel, a.flags.verbose)
	slog.SetDefault(a.logger)
	a.recorder = metrics.NewRecorder()
	return nil
}

// withPlanner opens a planner, runs fn, then closes the planner and writes
// metrics. Close flushes queued remote work, so remote failures surface in
// the log before the command exits.
func (a *app) withPlanner(ctx context.Context, fn func(*planner.Planner) error) error {
	p, err := planner.Open(ctx, a.cfg, manager.Options{
		Logger:   a.logger,
		Observer: a.recorder,
		Clock:    a.now,
	})
	if err != nil {
		return sysErr(err)
	}
	runErr := fn(p)
	closeErr := p.Close(ctx)
	if closeErr != nil {
		a.logger.Warn("closing planner", "error", closeErr)
	}
	if a.metricsFile != "" {
		if err := a.recorder.WriteToTextfile(a.metricsFile); err != nil {
			a.logger.Warn("writing metrics", "path", a.metricsFile, "error", err)
		}
	}
	return runErr
}

func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// systemError marks failures of the environment rather than of the input.
type systemError struct{ err error }

func (e systemError) Error() string { return e.err.Error() }
func (e systemError) Unwrap() error { return e.err }

func sysErr(err error) error {
	if err == nil {
		return nil
	}
	return systemError{err: err}
}

// exitCode maps an error to the process exit code: remote and I/O failures
// are system errors, everything else is the user's to fix.
func exitCode(err error) int {
	var se systemError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &se),
		errors.Is(err, types.ErrRemoteUnavailable),
		errors.Is(err, types.ErrTransientFetch),
		errors.Is(err, types.ErrSaveRejected),
		errors.Is(err, types.ErrDeleteRejected):
		return exitSysError
	}
	return exitUserError
}
