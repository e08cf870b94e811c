package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppalaciosa/two-qubit-tomography/internal/engine"
	"github.com/ppalaciosa/two-qubit-tomography/internal/gui"
	"github.com/ppalaciosa/two-qubit-tomography/internal/motion"
	"github.com/ppalaciosa/two-qubit-tomography/internal/process"
	"github.com/ppalaciosa/two-qubit-tomography/internal/results"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	MotionFile  string
	Stages      string
	Wait        time.Duration
	Settle      time.Duration
	Description string
	Column      string
	Process     bool
	ConfigFile  string
	Database    string
	OutRoot     string
	Sim         bool

	// Controller, Acquirer, and Tokens allow overriding the hardware,
	// screen, and run-token bindings (for testing). Nil selects the
	// production implementations.
	Controller motion.Controller
	Acquirer   engine.Acquirer
	Tokens     engine.RunTokenGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a table-driven measurement run",
		Long: `Execute one measurement run over a motion table.

For each table row, all four stages are moved and allowed to settle, the
acquisition application is started and stopped through its GUI, and the
resulting CSV is saved under a timestamped output folder. Stages return
to their configured zero when the table is exhausted or a motion fault
aborts the run.

Example:
  tomoctl run --motion motion.txt --wait 10s --desc hh_basis \
      --column "Pattern 01[counts]" --process --db runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiment(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.MotionFile, "motion", "", "path to motion table file (required)")
	cmd.Flags().StringVar(&opts.Stages, "stages", "1,2,3,4", "comma-separated stage IDs, table column order")
	cmd.Flags().DurationVar(&opts.Wait, "wait", 0, "dwell time per point, e.g. 10s (required)")
	cmd.Flags().DurationVar(&opts.Settle, "settle", 2*time.Second, "pause after the stages settle, before driving the GUI")
	cmd.Flags().StringVar(&opts.Description, "desc", "run", "description used in the output folder name")
	cmd.Flags().StringVar(&opts.Column, "column", "", "CSV column to average in post-processing")
	cmd.Flags().BoolVar(&opts.Process, "process", false, "aggregate column averages after the run")
	cmd.Flags().StringVar(&opts.ConfigFile, "config", "config.yaml", "path to experiment config")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to run ledger database (optional)")
	cmd.Flags().StringVar(&opts.OutRoot, "out", "saved_data", "root folder for output data")
	cmd.Flags().BoolVar(&opts.Sim, "sim", false, "use the stage simulator instead of hardware")
	_ = cmd.MarkFlagRequired("motion")
	_ = cmd.MarkFlagRequired("wait")

	return cmd
}

func runExperiment(opts *RunOptions, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	if opts.Process && opts.Column == "" {
		return NewExitError(ExitCommandError, "--process requires --column")
	}

	cfg, err := LoadExperimentConfig(opts.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "configuration error", err)
	}

	stageIDs, err := parseStageIDs(opts.Stages)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --stages", err)
	}
	stages, err := cfg.Motion.SelectStages(stageIDs)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --stages", err)
	}

	combos, err := motion.LoadTable(opts.MotionFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "motion table error", err)
	}
	if len(combos) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no combos in %s", opts.MotionFile))
	}
	slog.Info("motion table loaded", "file", opts.MotionFile, "combos", len(combos))

	outDir := filepath.Join(opts.OutRoot,
		fmt.Sprintf("%s_%s", time.Now().Format("2006-01-02-150405"), opts.Description))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return WrapExitError(ExitCommandError, "create output folder", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl, err := buildController(ctx, opts, cfg.Motion)
	if err != nil {
		return WrapExitError(ExitCommandError, "motion controller", err)
	}
	defer func() {
		if closeErr := ctrl.Close(); closeErr != nil {
			slog.Error("closing motion controller", "error", closeErr)
		}
	}()

	acq, err := buildAcquirer(opts, cfg.GUI)
	if err != nil {
		return WrapExitError(ExitCommandError, "GUI automation setup", err)
	}

	var ledger *results.Store
	if opts.Database != "" {
		ledger, err = results.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "open run ledger", err)
		}
		defer func() {
			if closeErr := ledger.Close(); closeErr != nil {
				slog.Error("closing run ledger", "error", closeErr)
			}
		}()
	}

	exec := engine.NewExecutor(ctrl, acq, stages, opts.Wait)
	exec.SettleDelay = opts.Settle
	seq := engine.NewSequencer(exec, ctrl, stages, ledgerOrNil(ledger), opts.Tokens)
	seq.Info = engine.RunInfo{
		Description: opts.Description,
		MotionFile:  opts.MotionFile,
		OutputDir:   outDir,
	}

	summary, runErr := seq.Run(ctx, combos, outDir)

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %s (%d attempted, %d succeeded, %d skipped)\n",
		summary.RunToken, summary.State, summary.Attempted, summary.Succeeded, summary.Skipped)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			return WrapExitError(ExitRunFault, "run cancelled", runErr)
		}
		if engine.IsFaulted(runErr) {
			return WrapExitError(ExitRunFault, "run aborted by motion fault", runErr)
		}
		return WrapExitError(ExitRunFault, "run failed", runErr)
	}

	if opts.Process {
		records, err := process.Folder(outDir, opts.Column)
		if err != nil {
			return WrapExitError(ExitCommandError, "post-processing failed", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "summary written to %s (%d files)\n",
			filepath.Join(outDir, process.SummaryFile), len(records))
	}

	return nil
}

// ledgerOrNil avoids handing the sequencer a typed-nil interface value.
func ledgerOrNil(ledger *results.Store) engine.Ledger {
	if ledger == nil {
		return nil
	}
	return ledger
}

func buildController(ctx context.Context, opts *RunOptions, cfg motion.Config) (motion.Controller, error) {
	if opts.Controller != nil {
		return opts.Controller, nil
	}
	if opts.Sim {
		slog.Info("using stage simulator")
		return motion.NewSimController(cfg), nil
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("no controller address configured (set motion.address or use --sim)")
	}
	slog.Info("connecting to motion controller", "address", cfg.Address)
	return motion.DialXPS(ctx, cfg)
}

func buildAcquirer(opts *RunOptions, cfg gui.Config) (engine.Acquirer, error) {
	if opts.Acquirer != nil {
		return opts.Acquirer, nil
	}
	screen := gui.NewRobotScreen(cfg.Confidence)
	auto, err := gui.New(screen, cfg)
	if err != nil {
		return nil, err
	}
	if err := auto.ActivateWindow(); err != nil {
		return nil, fmt.Errorf("acquisition window not found: %w", err)
	}
	return auto, nil
}

func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
