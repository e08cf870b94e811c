package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/ppalaciosa/two-qubit-tomography/internal/motion"
)

// Acquirer is the abstract acquisition cycle the executor drives.
// Satisfied by *gui.Automator in production and by scripted fakes in
// tests, keeping the executor independent of the live display.
type Acquirer interface {
	StartAcquisition() error
	StopAcquisition() error
	SaveAs(path string) error
}

// Executor runs one combo end to end: motion first, then the acquisition
// cycle, producing exactly one AcquisitionResult.
type Executor struct {
	ctrl   motion.Controller
	acq    Acquirer
	stages []motion.StageConfig

	// Dwell is the wait between starting and stopping acquisition, a
	// required run parameter.
	Dwell time.Duration

	// SettleDelay is an extra pause after the last stage settles, giving
	// mechanical vibrations time to die down before counting photons.
	SettleDelay time.Duration

	logger *slog.Logger
}

// NewExecutor wires an executor for the selected stages. The stage order
// must match the motion table's column order.
func NewExecutor(ctrl motion.Controller, acq Acquirer, stages []motion.StageConfig, dwell time.Duration) *Executor {
	return &Executor{
		ctrl:   ctrl,
		acq:    acq,
		stages: stages,
		Dwell:  dwell,
		logger: slog.Default(),
	}
}

// Execute moves every stage to the combo's targets, then runs the
// acquisition cycle, saving to a deterministic file name under outDir.
//
// A motion fault short-circuits acquisition entirely: no GUI action is
// attempted for a combo whose stages did not settle.
func (ex *Executor) Execute(ctx context.Context, combo motion.Combo, outDir string) AcquisitionResult {
	for i, st := range ex.stages {
		target := combo.Positions[i]
		ex.logger.Debug("moving stage", "combo", combo.ID(), "stage", st.ID, "target", target)
		if err := ex.ctrl.MoveTo(ctx, st.ID, target); err != nil {
			return motionFault(combo, err)
		}
	}
	if ex.SettleDelay > 0 {
		if err := sleepCtx(ctx, ex.SettleDelay); err != nil {
			return classifyAcquisition(combo, fmt.Errorf("settle wait: %w", err))
		}
	}

	outFile := filepath.Join(outDir, combo.FileName())

	if err := ex.acq.StartAcquisition(); err != nil {
		return classifyAcquisition(combo, err)
	}

	ex.logger.Info("collecting", "combo", combo.ID(), "dwell", ex.Dwell, "file", combo.FileName())
	if err := sleepCtx(ctx, ex.Dwell); err != nil {
		// Best effort: leave the tool idle even when the operator
		// cancels mid-dwell.
		if stopErr := ex.acq.StopAcquisition(); stopErr != nil {
			ex.logger.Warn("stop after cancel failed", "combo", combo.ID(), "error", stopErr)
		}
		return classifyAcquisition(combo, fmt.Errorf("dwell interrupted: %w", err))
	}

	if err := ex.acq.StopAcquisition(); err != nil {
		return classifyAcquisition(combo, err)
	}

	if err := ex.acq.SaveAs(outFile); err != nil {
		return classifyAcquisition(combo, err)
	}

	return AcquisitionResult{Combo: combo, Kind: ResultOK, OutputFile: outFile}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
