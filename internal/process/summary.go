package process

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// SummaryFile is the default cumulative summary file name.
const SummaryFile = "total_averages.csv"

// noDataMarker flags a file whose column held no usable numeric rows.
// Writing a marker instead of skipping keeps one summary row per input
// file, so gaps in a tomography run are visible in the summary itself.
const noDataMarker = "no_data"

// excluded are file names never treated as acquisition output.
var excluded = map[string]bool{
	SummaryFile:           true,
	"position_report.csv": true,
}

// SummaryRecord is one row of the summary: a file and its column mean.
type SummaryRecord struct {
	File   string
	Mean   float64
	Rows   int
	NoData bool
}

// Folder scans dir for acquisition CSVs, averages the named column in
// each, and appends one SummaryRecord per file to dir's summary file.
//
// Aggregation is a later, idempotent pass over whatever files exist: a
// file missing the column is skipped with a warning, a file with no
// numeric data is recorded as "no data", and neither aborts the rest.
func Folder(dir, column string) ([]SummaryRecord, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	var files []string
	for _, path := range entries {
		if !excluded[filepath.Base(path)] {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no acquisition CSV files in %s", dir)
	}

	var records []SummaryRecord
	for _, path := range files {
		name := filepath.Base(path)
		mean, rows, err := AverageColumn(path, column)
		switch {
		case errors.Is(err, ErrColumnMissing):
			slog.Warn("file skipped: column missing", "file", name, "column", column)
			continue
		case errors.Is(err, ErrNoData):
			slog.Warn("no numeric data in column", "file", name, "column", column)
			records = append(records, SummaryRecord{File: name, NoData: true})
			continue
		case err != nil:
			slog.Warn("file skipped", "file", name, "error", err)
			continue
		}
		slog.Info("file averaged", "file", name, "mean", mean, "rows", rows)
		records = append(records, SummaryRecord{File: name, Mean: mean, Rows: rows})
	}

	if err := appendSummary(filepath.Join(dir, SummaryFile), column, records); err != nil {
		return nil, err
	}
	return records, nil
}

// appendSummary appends records to the cumulative summary file, writing
// the header only when the file is new.
func appendSummary(path, column string, records []SummaryRecord) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open summary %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat summary %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write([]string{"filename", "avg_" + column}); err != nil {
			return fmt.Errorf("write summary header: %w", err)
		}
	}
	for _, rec := range records {
		avg := noDataMarker
		if !rec.NoData {
			avg = strconv.FormatFloat(rec.Mean, 'g', -1, 64)
		}
		if err := w.Write([]string{rec.File, avg}); err != nil {
			return fmt.Errorf("write summary row for %s: %w", rec.File, err)
		}
	}
	w.Flush()
	return w.Error()
}

// LatestRunDir finds the newest output folder under root whose name ends
// with "_<desc>", matching the run command's folder naming.
func LatestRunDir(root, desc string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(root, "*_"+desc))
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", root, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no output folder for description %q under %s", desc, root)
	}

	// Folder names start with a sortable timestamp; newest sorts last.
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}
