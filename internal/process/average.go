// Package process aggregates the per-combo CSV files written by the
// acquisition tool into a cumulative summary of per-file column averages.
package process

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ErrColumnMissing means no row of the file carries the target column.
var ErrColumnMissing = errors.New("column not found")

// ErrNoData means the column exists but holds no numeric values.
var ErrNoData = errors.New("no numeric data in column")

// AverageColumn computes the arithmetic mean of the named column in one
// CSV file, returning the mean and how many rows contributed to it.
//
// The acquisition tool writes preamble rows before the header, so the
// header is found by scanning for the first row containing the column
// name (case-sensitive exact match). Rows whose cell does not parse as a
// number are excluded from both the sum and the denominator, which makes
// the mean invariant to row order.
func AverageColumn(path, column string) (float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // preamble rows have varying widths

	colIdx, err := findColumn(r, column)
	if err != nil {
		return 0, 0, err
	}

	var sum float64
	var n int
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, 0, fmt.Errorf("read %s: %w", path, err)
		}
		if len(row) <= colIdx {
			continue
		}
		v, err := strconv.ParseFloat(row[colIdx], 64)
		if err != nil {
			continue
		}
		sum += v
		n++
	}

	if n == 0 {
		return 0, 0, ErrNoData
	}
	return sum / float64(n), n, nil
}

// findColumn scans rows until one contains the column name, returning
// its index within that header row.
func findColumn(r *csv.Reader, column string) (int, error) {
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return 0, ErrColumnMissing
		}
		if err != nil {
			return 0, fmt.Errorf("read header: %w", err)
		}
		for i, cell := range row {
			if cell == column {
				return i, nil
			}
		}
	}
}
