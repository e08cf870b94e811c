package results

import (
	"context"
	"fmt"
	"time"
)

// RunRecord is one experiment run's ledger header.
type RunRecord struct {
	Token       string
	Description string
	MotionFile  string
	OutputDir   string
	StartedAt   time.Time
	State       string
}

// AcquisitionRecord is one acquisition attempt, success or failure.
type AcquisitionRecord struct {
	RunToken   string
	Seq        int64
	ComboIndex int
	Label      string
	Status     string
	Step       string
	Template   string
	OutputFile string
	Error      string
}

// BeginRun inserts the run header before the first combo executes.
func (s *Store) BeginRun(ctx context.Context, run RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (token, description, motion_file, output_dir, started_at, state)
		VALUES (?, ?, ?, ?, ?, 'running')
	`,
		run.Token,
		run.Description,
		run.MotionFile,
		run.OutputDir,
		run.StartedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", run.Token, err)
	}
	return nil
}

// FinishRun records the run's terminal state (complete or faulted).
func (s *Store) FinishRun(ctx context.Context, token, state string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET state = ? WHERE token = ?`, state, token)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", token, err)
	}
	return nil
}

// WriteAcquisition inserts one acquisition result.
// ON CONFLICT DO NOTHING makes the write idempotent on (run_token, seq),
// so a retried ledger write cannot duplicate a result.
func (s *Store) WriteAcquisition(ctx context.Context, rec AcquisitionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO acquisitions
		(run_token, seq, combo_index, label, status, step, template, output_file, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		rec.RunToken,
		rec.Seq,
		rec.ComboIndex,
		rec.Label,
		rec.Status,
		rec.Step,
		rec.Template,
		rec.OutputFile,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("write acquisition %s/%d: %w", rec.RunToken, rec.Seq, err)
	}
	return nil
}
