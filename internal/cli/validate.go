package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppalaciosa/two-qubit-tomography/internal/gui"
	"github.com/ppalaciosa/two-qubit-tomography/internal/motion"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	MotionFile string
	Stages     string
	ConfigFile string
}

// NewValidateCommand creates the validate command.
//
// Validation covers everything classified as a configuration error:
// motion table syntax, stage selection, and template screenshots. It
// touches no hardware and no display, so it is safe to run while the
// acquisition tool is busy.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "validate",
		Short:         "Check the motion table and config without moving hardware",
		Args:          cobra.NoArgs,
		Example:       `  tomoctl validate --motion motion.txt --config config.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.MotionFile, "motion", "", "path to motion table file (required)")
	cmd.Flags().StringVar(&opts.Stages, "stages", "1,2,3,4", "comma-separated stage IDs")
	cmd.Flags().StringVar(&opts.ConfigFile, "config", "config.yaml", "path to experiment config")
	_ = cmd.MarkFlagRequired("motion")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

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

	if _, err := gui.LoadTemplates(cfg.GUI); err != nil {
		return WrapExitError(ExitCommandError, "template error", err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"combos": len(combos),
			"stages": len(stages),
		})
	}
	formatter.Textf("%s: %d combos, %d stages, templates ok", opts.MotionFile, len(combos), len(stages))
	for _, combo := range combos {
		formatter.Textf("  %-20s %v -> %s", combo.ID(), combo.Positions, combo.FileName())
	}
	fmt.Fprintln(cmd.OutOrStdout(), "configuration valid")
	return nil
}
