package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"library-circulation/library"
)

const logFileName = "library.log"

// levelRouter is a slog.Handler that keeps the console quiet: WARN goes to
// stdout, ERROR+ to stderr, and every record INFO and up to the log file.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
	file   slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if lr.file != nil {
		if err := lr.file.Handle(ctx, r); err != nil {
			return err
		}
	}
	switch {
	case r.Level >= slog.LevelError:
		return lr.stderr.Handle(ctx, r)
	case r.Level >= slog.LevelWarn:
		return lr.stdout.Handle(ctx, r)
	}
	return nil
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
	if lr.file != nil {
		next.file = lr.file.WithAttrs(attrs)
	}
	return next
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	next := &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
	if lr.file != nil {
		next.file = lr.file.WithGroup(name)
	}
	return next
}

// setupLogger configures structured logging. If logPath is non-empty, all
// levels are also written to that file. Returns a cleanup function that
// closes the log file (if opened).
func setupLogger(logPath string) (*slog.Logger, func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	handler := &levelRouter{
		stdout: slog.NewTextHandler(os.Stdout, opts),
		stderr: slog.NewTextHandler(os.Stderr, opts),
	}

	cleanup := func() {}
	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log dir: %w", err)
		}
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		handler.file = slog.NewTextHandler(io.Writer(f), opts)
	}

	logger := slog.New(handler).With("run", uuid.NewString())
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

// app carries what every command needs once the root has opened the data.
type app struct {
	cfg      library.Config
	mgr      *library.LibraryManager
	out      io.Writer
	closeLog func()
}

func (a *app) open(cmd *cobra.Command, flags *rootFlags) error {
	cfg := library.DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	fs := cmd.Flags()
	if fs.Changed("data-dir") {
		cfg.DataDir = flags.dataDir
	}
	if fs.Changed("store") {
		cfg.Store = flags.store
	}
	if fs.Changed("log-file") {
		cfg.LogFile = flags.logFile
	}
	if fs.Changed("penalty-rate") {
		cfg.PenaltyRate = flags.penaltyRate
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, logFileName)
	}

	logger, closeLog, err := setupLogger(cfg.LogFile)
	if err != nil {
		return err
	}
	mgr, err := library.NewLibraryManager(cfg, library.WithLogger(logger))
	if err != nil {
		closeLog()
		return err
	}
	a.cfg, a.mgr, a.closeLog = cfg, mgr, closeLog
	a.out = cmd.OutOrStdout()
	return nil
}

func (a *app) close() {
	if a.mgr != nil {
		a.mgr.Close()
		a.mgr = nil
	}
	if a.closeLog != nil {
		a.closeLog()
		a.closeLog = nil
	}
}

type rootFlags struct {
	dataDir     string
	store       string
	logFile     string
	penaltyRate float64
}

func newRootCmd(a *app) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "library",
		Short:         "Library loans and reservations",
		Long:          "Manage the catalog, patrons, loans and reservation queues.\nWith no command an interactive menu starts.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd, flags)
		},
		PersistentPostRun: func(*cobra.Command, []string) { a.close() },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd.InOrStdin(), cmd.OutOrStdout(), a.mgr)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.dataDir, "data-dir", library.DefaultDataDir, "directory holding the collections")
	pf.StringVar(&flags.store, "store", library.StoreJSON, "record store backend (json, sqlite)")
	pf.StringVar(&flags.logFile, "log-file", "", "log file (default <data-dir>/library.log)")
	pf.Float64Var(&flags.penaltyRate, "penalty-rate", library.DefaultPenaltyRate, "late penalty per day")

	root.AddCommand(
		newBookCmd(a),
		newPatronCmd(a),
		newBorrowCmd(a),
		newReturnCmd(a),
		newRenewCmd(a),
		newReserveCmd(a),
		newCancelCmd(a),
		newNotifyCmd(a),
		newPromoteCmd(a),
		newLoansCmd(a),
		newQueueCmd(a),
		newSearchCmd(a),
		newStatsCmd(a),
	)
	return root
}

func main() {
	a := &app{}
	if err := newRootCmd(a).Execute(); err != nil {
		a.close()
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}
