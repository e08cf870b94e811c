package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppalaciosa/two-qubit-tomography/internal/results"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Database string
	Run      string
	List     bool
}

// NewReportCommand creates the report command, the read side of the run
// ledger.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show recorded acquisition results from the run ledger",
		Long: `Show what a run actually did, from the ledger database.

Without --run, the most recent run is reported. With --list, all runs
are listed instead.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to run ledger database (required)")
	cmd.Flags().StringVar(&opts.Run, "run", "", "run token (default: latest run)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list all runs")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// runReportJSON is the JSON payload for a single-run report.
type runReportJSON struct {
	Run          results.RunRecord           `json:"run"`
	Acquisitions []results.AcquisitionRecord `json:"acquisitions"`
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	store, err := results.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "open run ledger", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.List {
		return listRuns(ctx, store, formatter, opts.Format)
	}

	run, err := lookupRun(ctx, store, opts.Run)
	if err != nil {
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	recs, err := store.Acquisitions(ctx, run.Token)
	if err != nil {
		return WrapExitError(ExitCommandError, "read acquisitions", err)
	}

	if opts.Format == "json" {
		return formatter.Success(runReportJSON{Run: run, Acquisitions: recs})
	}

	formatter.Textf("run %s (%s)", run.Token, run.State)
	formatter.Textf("  desc:   %s", run.Description)
	formatter.Textf("  table:  %s", run.MotionFile)
	formatter.Textf("  output: %s", run.OutputDir)
	formatter.Textf("  start:  %s", run.StartedAt.Format("2006-01-02 15:04:05 MST"))
	for _, rec := range recs {
		id := rec.Label
		if id == "" {
			id = fmt.Sprintf("combo%03d", rec.ComboIndex)
		}
		switch rec.Status {
		case "ok":
			formatter.Textf("  %3d  %-20s ok      %s", rec.Seq, id, rec.OutputFile)
		default:
			formatter.Textf("  %3d  %-20s %-7s step=%s template=%s %s",
				rec.Seq, id, rec.Status, rec.Step, rec.Template, rec.Error)
		}
	}
	return nil
}

func lookupRun(ctx context.Context, store *results.Store, token string) (results.RunRecord, error) {
	if token == "" {
		return store.LatestRun(ctx)
	}
	return store.Run(ctx, token)
}

func listRuns(ctx context.Context, store *results.Store, formatter *OutputFormatter, format string) error {
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "list runs", err)
	}
	if format == "json" {
		return formatter.Success(runs)
	}
	for _, run := range runs {
		formatter.Textf("%s  %-10s %-12s %s", run.StartedAt.Format("2006-01-02 15:04"), run.State, run.Description, run.Token)
	}
	return nil
}
