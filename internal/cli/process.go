package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppalaciosa/two-qubit-tomography/internal/process"
)

// ProcessOptions holds flags for the process command.
type ProcessOptions struct {
	*RootOptions
	Column      string
	Description string
	OutRoot     string
}

// NewProcessCommand creates the process command.
func NewProcessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProcessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "process [folder]",
		Short: "Aggregate column averages from saved acquisition CSVs",
		Long: `Aggregate per-file column averages into total_averages.csv.

Without a folder argument, the newest output folder matching --desc under
the data root is processed. Aggregation is idempotent over whatever files
exist: it can be re-run after a partially failed run.

Example:
  tomoctl process saved_data/2026-08-30-141502_hh_basis --column "Pattern 01[counts]"
  tomoctl process --desc hh_basis --column "Pattern 01[counts]"`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Column, "column", "", "CSV column to average (required)")
	cmd.Flags().StringVar(&opts.Description, "desc", "run", "run description, used to autodetect the folder")
	cmd.Flags().StringVar(&opts.OutRoot, "out", "saved_data", "root folder holding output data")
	_ = cmd.MarkFlagRequired("column")

	return cmd
}

// summaryLine is the process command's per-file output row.
type summaryLine struct {
	File    string  `json:"file"`
	Average float64 `json:"average"`
	Rows    int     `json:"rows"`
	NoData  bool    `json:"no_data,omitempty"`
}

func runProcess(opts *ProcessOptions, args []string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	dir, err := resolveFolder(opts, args)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot resolve data folder", err)
	}

	records, err := process.Folder(dir, opts.Column)
	if err != nil {
		return WrapExitError(ExitCommandError, "aggregation failed", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	lines := make([]summaryLine, len(records))
	for i, rec := range records {
		lines[i] = summaryLine{File: rec.File, Average: rec.Mean, Rows: rec.Rows, NoData: rec.NoData}
		if rec.NoData {
			formatter.Textf("%s: no data", rec.File)
		} else {
			formatter.Textf("%s: %g (%d rows)", rec.File, rec.Mean, rec.Rows)
		}
	}
	if opts.Format == "json" {
		if err := formatter.Success(lines); err != nil {
			return err
		}
	} else {
		formatter.Textf("summary written to %s", filepath.Join(dir, process.SummaryFile))
	}
	return nil
}

func resolveFolder(opts *ProcessOptions, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if opts.Description == "" {
		return "", fmt.Errorf("either a folder argument or --desc is required")
	}
	return process.LatestRunDir(opts.OutRoot, opts.Description)
}
