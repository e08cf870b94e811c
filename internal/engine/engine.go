package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/ppalaciosa/two-qubit-tomography/internal/motion"
	"github.com/ppalaciosa/two-qubit-tomography/internal/results"
)

// State is the sequencer's position in its run lifecycle.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateFaulted
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFaulted:
		return "faulted"
	case StateComplete:
		return "complete"
	}
	return "unknown"
}

// Ledger records the run and every acquisition result durably.
// Satisfied by *results.Store; nil disables recording.
type Ledger interface {
	BeginRun(ctx context.Context, run results.RunRecord) error
	WriteAcquisition(ctx context.Context, rec results.AcquisitionRecord) error
	FinishRun(ctx context.Context, token, state string) error
}

// RunInfo describes the run for the ledger header.
type RunInfo struct {
	Description string
	MotionFile  string
	OutputDir   string
}

// RunSummary is what one full pass over the motion table produced.
type RunSummary struct {
	RunToken  string
	State     State
	Attempted int
	Succeeded int
	Skipped   int
	Results   []AcquisitionResult
}

// Sequencer iterates combos through the executor, strictly one at a
// time: no motion command for combo i+1 is issued before combo i's
// acquisition cycle has resolved.
//
// Failure policy: an acquisition failure is logged with full context and
// the run continues (hardware time already spent on earlier combos must
// not be wasted); a motion fault is fatal because stage position is no
// longer trustworthy. Either way the terminal action is an unconditional
// zero-return of every stage, issued exactly once.
type Sequencer struct {
	exec   *Executor
	ctrl   motion.Controller
	stages []motion.StageConfig
	ledger Ledger
	clock  *Clock
	tokens RunTokenGenerator
	logger *slog.Logger

	// Info fills the ledger's run header; zero value is fine when no
	// ledger is attached.
	Info RunInfo

	state State
}

// NewSequencer composes a sequencer. ledger may be nil; tokens defaults
// to UUIDv7 when nil.
func NewSequencer(exec *Executor, ctrl motion.Controller, stages []motion.StageConfig, ledger Ledger, tokens RunTokenGenerator) *Sequencer {
	if tokens == nil {
		tokens = UUIDv7Generator{}
	}
	return &Sequencer{
		exec:   exec,
		ctrl:   ctrl,
		stages: stages,
		ledger: ledger,
		clock:  NewClock(),
		tokens: tokens,
		logger: slog.Default(),
		state:  StateIdle,
	}
}

// State returns the sequencer's current lifecycle state.
func (s *Sequencer) State() State { return s.state }

// Run executes every combo in table order, then zero-returns all stages.
// The returned error is non-nil only for fatal motion faults (including a
// fault during zero-return); acquisition failures are reported through
// the summary instead.
func (s *Sequencer) Run(ctx context.Context, combos []motion.Combo, outDir string) (RunSummary, error) {
	token := s.tokens.Generate()
	summary := RunSummary{RunToken: token}

	s.setState(StateRunning, token)
	s.logger.Info("run starting", "run", token, "combos", len(combos), "out_dir", outDir)

	// A ledger failure disables recording for this run only; the
	// sequencer stays usable for the next one.
	ledger := s.ledger
	if ledger != nil {
		err := ledger.BeginRun(ctx, results.RunRecord{
			Token:       token,
			Description: s.Info.Description,
			MotionFile:  s.Info.MotionFile,
			OutputDir:   outDir,
			StartedAt:   time.Now(),
		})
		if err != nil {
			s.logger.Error("ledger begin failed, recording disabled for this run", "run", token, "error", err)
			ledger = nil
		}
	}

	var fatal *FaultedError
	for _, combo := range combos {
		res := s.exec.Execute(ctx, combo, outDir)
		res.Seq = s.clock.Next()
		summary.Attempted++
		summary.Results = append(summary.Results, res)
		s.record(ctx, ledger, token, res)

		switch {
		case res.OK():
			summary.Succeeded++
			s.logger.Info("combo complete",
				"run", token,
				"combo", combo.ID(),
				"file", res.OutputFile,
				"seq", res.Seq,
			)

		case res.Kind == ResultCancelled:
			s.logger.Warn("run cancelled",
				"run", token,
				"combo", combo.ID(),
				"error", res.Err,
				"seq", res.Seq,
			)
			fatal = &FaultedError{RunToken: token, Combo: combo.ID(), Err: res.Err}

		case res.Fatal():
			s.logger.Error("motion fault, aborting run",
				"run", token,
				"combo", combo.ID(),
				"error", res.Err,
				"seq", res.Seq,
			)
			fatal = &FaultedError{RunToken: token, Combo: combo.ID(), Err: res.Err}

		default:
			summary.Skipped++
			s.logger.Warn("combo skipped",
				"run", token,
				"combo", combo.ID(),
				"kind", string(res.Kind),
				"step", res.Step,
				"template", res.Template,
				"error", res.Err,
				"seq", res.Seq,
			)
		}

		if fatal != nil {
			break
		}
	}

	// Terminal action, exactly once per run: return every stage to its
	// configured zero, no matter how the table pass ended.
	zeroErr := s.zeroReturn(ctx, token)

	if fatal != nil {
		s.setState(StateFaulted, token)
		summary.State = s.state
		s.finish(ctx, ledger, token)
		return summary, fatal
	}
	if zeroErr != nil {
		s.setState(StateFaulted, token)
		summary.State = s.state
		s.finish(ctx, ledger, token)
		return summary, &FaultedError{RunToken: token, Combo: "zero-return", Err: zeroErr}
	}

	s.setState(StateComplete, token)
	summary.State = s.state
	s.finish(ctx, ledger, token)
	s.logger.Info("run complete",
		"run", token,
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

func (s *Sequencer) zeroReturn(ctx context.Context, token string) error {
	s.logger.Info("returning stages to zero", "run", token)
	var firstErr error
	for _, st := range s.stages {
		if err := s.ctrl.Zero(ctx, st.ID); err != nil {
			s.logger.Error("zero-return failed", "run", token, "stage", st.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.logger.Debug("stage at zero", "run", token, "stage", st.ID)
	}
	return firstErr
}

func (s *Sequencer) finish(ctx context.Context, ledger Ledger, token string) {
	if ledger == nil {
		return
	}
	if err := ledger.FinishRun(ctx, token, s.state.String()); err != nil {
		s.logger.Error("ledger finish failed", "run", token, "error", err)
	}
}

func (s *Sequencer) record(ctx context.Context, ledger Ledger, token string, res AcquisitionResult) {
	if ledger == nil {
		return
	}
	rec := results.AcquisitionRecord{
		RunToken:   token,
		Seq:        res.Seq,
		ComboIndex: res.Combo.Index,
		Label:      res.Combo.Label,
		Status:     string(res.Kind),
		Step:       res.Step,
		Template:   res.Template,
		OutputFile: res.OutputFile,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if err := ledger.WriteAcquisition(ctx, rec); err != nil {
		// Ledger trouble must not interrupt hardware sequencing.
		s.logger.Error("ledger write failed", "run", token, "seq", res.Seq, "error", err)
	}
}

func (s *Sequencer) setState(next State, token string) {
	s.logger.Debug("state transition", "run", token, "from", s.state.String(), "to", next.String())
	s.state = next
}
