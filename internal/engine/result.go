package engine

import (
	"context"
	"errors"

	"github.com/ppalaciosa/two-qubit-tomography/internal/gui"
	"github.com/ppalaciosa/two-qubit-tomography/internal/motion"
)

// ResultKind classifies the outcome of one combo's acquisition cycle.
type ResultKind string

const (
	// ResultOK means the combo produced its output CSV.
	ResultOK ResultKind = "ok"

	// ResultTemplateNotFound means a required UI anchor never appeared
	// within the locate timeout.
	ResultTemplateNotFound ResultKind = "template_not_found"

	// ResultSaveTimeout means the save dialog never took focus after
	// clicking the save anchor.
	ResultSaveTimeout ResultKind = "save_timeout"

	// ResultInterference means external input activity kept displacing
	// the pointer during a synthesized click.
	ResultInterference ResultKind = "input_interference"

	// ResultCancelled means the operator cancelled the run while this
	// combo was in progress. Fatal for the run.
	ResultCancelled ResultKind = "cancelled"

	// ResultMotionFault means a stage failed to settle. Fatal for the
	// run: stage positions are no longer trustworthy.
	ResultMotionFault ResultKind = "motion_fault"
)

// AcquisitionResult is the single outcome every consumed combo yields,
// success or tagged failure, before the next combo begins.
type AcquisitionResult struct {
	Combo      motion.Combo
	Kind       ResultKind
	OutputFile string // set on success
	Step       string // failing acquisition step, if any
	Template   string // template involved in the failure, if any
	Err        error
	Seq        int64 // ledger ordering, stamped by the sequencer
}

// OK reports whether the combo produced its output file.
func (r AcquisitionResult) OK() bool { return r.Kind == ResultOK }

// Fatal reports whether this result must abort the whole run.
func (r AcquisitionResult) Fatal() bool {
	return r.Kind == ResultMotionFault || r.Kind == ResultCancelled
}

// classifyAcquisition maps an acquisition-cycle error onto a tagged
// result for the combo. Operator cancellation is recognized first;
// anything else unrecognized is treated as a template failure, the
// adapter's only other failure mode being visual.
func classifyAcquisition(combo motion.Combo, err error) AcquisitionResult {
	res := AcquisitionResult{Combo: combo, Err: err}

	var step *gui.StepError
	if errors.As(err, &step) {
		res.Step = step.Step
		res.Template = step.Template
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		res.Kind = ResultCancelled
	case res.Step == "save_dialog":
		res.Kind = ResultSaveTimeout
	case errors.Is(err, gui.ErrInterference):
		res.Kind = ResultInterference
	default:
		res.Kind = ResultTemplateNotFound
	}
	return res
}

// motionFault builds the result for a combo whose stages did not settle.
func motionFault(combo motion.Combo, err error) AcquisitionResult {
	return AcquisitionResult{
		Combo: combo,
		Kind:  ResultMotionFault,
		Step:  "move",
		Err:   err,
	}
}
