package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppalaciosa/two-qubit-tomography/internal/gui"
	"github.com/ppalaciosa/two-qubit-tomography/internal/motion"
	"github.com/ppalaciosa/two-qubit-tomography/internal/results"
	"github.com/ppalaciosa/two-qubit-tomography/internal/testutil"
)

// recordingLedger captures ledger calls in memory.
type recordingLedger struct {
	begun    []results.RunRecord
	recs     []results.AcquisitionRecord
	finished map[string]string

	beginErr, writeErr error
}

func newRecordingLedger() *recordingLedger {
	return &recordingLedger{finished: make(map[string]string)}
}

func (l *recordingLedger) BeginRun(_ context.Context, run results.RunRecord) error {
	if l.beginErr != nil {
		return l.beginErr
	}
	l.begun = append(l.begun, run)
	return nil
}

func (l *recordingLedger) WriteAcquisition(_ context.Context, rec results.AcquisitionRecord) error {
	if l.writeErr != nil {
		return l.writeErr
	}
	l.recs = append(l.recs, rec)
	return nil
}

func (l *recordingLedger) FinishRun(_ context.Context, token, state string) error {
	l.finished[token] = state
	return nil
}

func testCombos() []motion.Combo {
	return []motion.Combo{
		{Index: 0, Positions: [4]float64{10, 0, 90, 5}},
		{Index: 1, Positions: [4]float64{20, 5, 45, 0}, Label: "my_label"},
	}
}

func newTestSequencer(ctrl *testutil.ScriptedController, acq *testutil.ScriptedAcquirer, ledger Ledger) *Sequencer {
	ex := NewExecutor(ctrl, acq, testStages(), 0)
	return NewSequencer(ex, ctrl, testStages(), ledger, NewFixedGenerator("run-1"))
}

func TestSequencer_FullTablePass(t *testing.T) {
	ctrl := testutil.NewScriptedController()
	acq := testutil.NewScriptedAcquirer("Time,Counts\n1,42\n")
	seq := newTestSequencer(ctrl, acq, nil)

	outDir := t.TempDir()
	summary, err := seq.Run(context.Background(), testCombos(), outDir)
	require.NoError(t, err)

	assert.Equal(t, "run-1", summary.RunToken)
	assert.Equal(t, StateComplete, summary.State)
	assert.Equal(t, StateComplete, seq.State())
	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Zero(t, summary.Skipped)

	// Seq numbers stamp results in execution order.
	require.Len(t, summary.Results, 2)
	assert.Equal(t, int64(1), summary.Results[0].Seq)
	assert.Equal(t, int64(2), summary.Results[1].Seq)
	assert.FileExists(t, summary.Results[0].OutputFile)
	assert.FileExists(t, summary.Results[1].OutputFile)

	// Zero-return runs exactly once, after all moves.
	assert.Equal(t, 4, ctrl.ZeroCalls())
	last4 := ctrl.Calls[len(ctrl.Calls)-4:]
	for i, call := range last4 {
		assert.True(t, call.Zero, "call %d should be a zero-return", i)
	}
}

func TestSequencer_AcquisitionFailureSkipsAndContinues(t *testing.T) {
	ctrl := testutil.NewScriptedController()
	acq := testutil.NewScriptedAcquirer("h\n1\n")
	acq.StartErr = &gui.StepError{Step: "start", Template: gui.TplStart, Err: gui.ErrNotFound}
	acq.FailCycle(0)
	seq := newTestSequencer(ctrl, acq, nil)

	summary, err := seq.Run(context.Background(), testCombos(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, StateComplete, summary.State)
	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, ResultTemplateNotFound, summary.Results[0].Kind)
	assert.True(t, summary.Results[1].OK())

	// The skipped combo still moved its stages and the run still zeroed.
	assert.Len(t, ctrl.MoveCalls(), 8)
	assert.Equal(t, 4, ctrl.ZeroCalls())
}

func TestSequencer_MotionFaultAbortsRun(t *testing.T) {
	ctrl := testutil.NewScriptedController()
	ctrl.FaultOn(2, 5) // combo 1, stage 2 target
	acq := testutil.NewScriptedAcquirer("h\n1\n")
	seq := newTestSequencer(ctrl, acq, nil)

	combos := append(testCombos(), motion.Combo{Index: 2, Positions: [4]float64{1, 2, 3, 4}})
	summary, err := seq.Run(context.Background(), combos, t.TempDir())

	require.Error(t, err)
	assert.True(t, IsFaulted(err))

	var fe *FaultedError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "run-1", fe.RunToken)
	assert.Equal(t, "my_label", fe.Combo)
	assert.True(t, motion.IsFault(fe.Err))

	assert.Equal(t, StateFaulted, summary.State)
	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)

	// Combo 2 never moved; zero-return still ran.
	assert.Len(t, ctrl.MoveCalls(), 6)
	assert.Equal(t, 4, ctrl.ZeroCalls())
}

func TestSequencer_ZeroReturnFaultIsFatal(t *testing.T) {
	ctrl := testutil.NewScriptedController()
	ctrl.FaultAllZeros = true
	acq := testutil.NewScriptedAcquirer("h\n1\n")
	seq := newTestSequencer(ctrl, acq, nil)

	summary, err := seq.Run(context.Background(), testCombos(), t.TempDir())

	require.Error(t, err)
	var fe *FaultedError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "zero-return", fe.Combo)
	assert.Equal(t, StateFaulted, summary.State)

	// Every combo still completed before the terminal action failed.
	assert.Equal(t, 2, summary.Succeeded)
	// Zero-return attempts every stage even after the first failure.
	assert.Equal(t, 4, ctrl.ZeroCalls())
}

func TestSequencer_LedgerRecording(t *testing.T) {
	ctrl := testutil.NewScriptedController()
	acq := testutil.NewScriptedAcquirer("h\n1\n")
	ledger := newRecordingLedger()
	seq := newTestSequencer(ctrl, acq, ledger)
	seq.Info = RunInfo{Description: "hh_basis", MotionFile: "motion.txt"}

	outDir := t.TempDir()
	_, err := seq.Run(context.Background(), testCombos(), outDir)
	require.NoError(t, err)

	require.Len(t, ledger.begun, 1)
	assert.Equal(t, "run-1", ledger.begun[0].Token)
	assert.Equal(t, "hh_basis", ledger.begun[0].Description)
	assert.Equal(t, outDir, ledger.begun[0].OutputDir)
	assert.False(t, ledger.begun[0].StartedAt.IsZero())

	require.Len(t, ledger.recs, 2)
	assert.Equal(t, int64(1), ledger.recs[0].Seq)
	assert.Equal(t, "ok", ledger.recs[0].Status)
	assert.Equal(t, 1, ledger.recs[1].ComboIndex)
	assert.Equal(t, "my_label", ledger.recs[1].Label)

	assert.Equal(t, "complete", ledger.finished["run-1"])
}

func TestSequencer_CancellationAbortsRun(t *testing.T) {
	ctrl := testutil.NewScriptedController()
	acq := testutil.NewScriptedAcquirer("h\n1\n")
	ledger := newRecordingLedger()
	ex := NewExecutor(ctrl, acq, testStages(), time.Hour)
	seq := NewSequencer(ex, ctrl, testStages(), ledger, NewFixedGenerator("run-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	summary, err := seq.Run(ctx, testCombos(), t.TempDir())

	require.Error(t, err)
	assert.True(t, IsFaulted(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The cancel lands during combo 0's dwell; combo 1 never starts.
	assert.Equal(t, StateFaulted, summary.State)
	assert.Equal(t, 1, summary.Attempted)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, ResultCancelled, summary.Results[0].Kind)

	// The ledger names what happened, and zero-return was still issued.
	require.Len(t, ledger.recs, 1)
	assert.Equal(t, "cancelled", ledger.recs[0].Status)
	assert.Equal(t, 4, ctrl.ZeroCalls())
}

func TestSequencer_LedgerBeginFailureDisablesRecordingForThatRunOnly(t *testing.T) {
	ctrl := testutil.NewScriptedController()
	acq := testutil.NewScriptedAcquirer("h\n1\n")
	ledger := newRecordingLedger()
	ledger.beginErr = errors.New("disk full")
	ex := NewExecutor(ctrl, acq, testStages(), 0)
	seq := NewSequencer(ex, ctrl, testStages(), ledger, NewFixedGenerator("run-1", "run-2"))

	summary, err := seq.Run(context.Background(), testCombos(), t.TempDir())

	// Ledger trouble never interrupts the experiment.
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Empty(t, ledger.recs)
	assert.Empty(t, ledger.finished)

	// Recording resumes once the ledger recovers.
	ledger.beginErr = nil
	_, err = seq.Run(context.Background(), testCombos(), t.TempDir())
	require.NoError(t, err)
	require.Len(t, ledger.begun, 1)
	assert.Equal(t, "run-2", ledger.begun[0].Token)
	assert.Len(t, ledger.recs, 2)
	assert.Equal(t, "complete", ledger.finished["run-2"])
}

func TestSequencer_FailedComboRecordsErrorContext(t *testing.T) {
	ctrl := testutil.NewScriptedController()
	acq := testutil.NewScriptedAcquirer("h\n1\n")
	acq.SaveErr = &gui.StepError{Step: "save_dialog", Template: gui.TplSaveDialog, Err: gui.ErrNotFound}
	acq.FailCycle(1)
	ledger := newRecordingLedger()
	seq := newTestSequencer(ctrl, acq, ledger)

	_, err := seq.Run(context.Background(), testCombos(), t.TempDir())
	require.NoError(t, err)

	require.Len(t, ledger.recs, 2)
	rec := ledger.recs[1]
	assert.Equal(t, "save_timeout", rec.Status)
	assert.Equal(t, "save_dialog", rec.Step)
	assert.Equal(t, gui.TplSaveDialog, rec.Template)
	assert.Contains(t, rec.Error, "save_dialog")
}
