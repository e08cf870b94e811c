package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoRuns means the ledger holds no runs yet.
var ErrNoRuns = errors.New("no runs in ledger")

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token, description, motion_file, output_dir, started_at, state
		FROM runs ORDER BY started_at DESC, token DESC LIMIT 1
	`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrNoRuns
	}
	return run, err
}

// Run returns the run with the given token.
func (s *Store) Run(ctx context.Context, token string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token, description, motion_file, output_dir, started_at, state
		FROM runs WHERE token = ?
	`, token)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("run %s not found", token)
	}
	return run, err
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, description, motion_file, output_dir, started_at, state
		FROM runs ORDER BY started_at DESC, token DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Acquisitions returns a run's results in seq order.
func (s *Store) Acquisitions(ctx context.Context, token string) ([]AcquisitionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_token, seq, combo_index, label, status, step, template, output_file, error
		FROM acquisitions WHERE run_token = ? ORDER BY seq
	`, token)
	if err != nil {
		return nil, fmt.Errorf("read acquisitions for %s: %w", token, err)
	}
	defer rows.Close()

	var recs []AcquisitionRecord
	for rows.Next() {
		var rec AcquisitionRecord
		if err := rows.Scan(
			&rec.RunToken,
			&rec.Seq,
			&rec.ComboIndex,
			&rec.Label,
			&rec.Status,
			&rec.Step,
			&rec.Template,
			&rec.OutputFile,
			&rec.Error,
		); err != nil {
			return nil, fmt.Errorf("scan acquisition: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var run RunRecord
	var started string
	if err := row.Scan(&run.Token, &run.Description, &run.MotionFile, &run.OutputDir, &started, &run.State); err != nil {
		return RunRecord{}, err
	}
	t, err := time.Parse(time.RFC3339, started)
	if err != nil {
		return RunRecord{}, fmt.Errorf("parse started_at %q: %w", started, err)
	}
	run.StartedAt = t
	return run, nil
}
