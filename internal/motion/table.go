package motion

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NumStages is the number of motion axes driven per combo.
// Two-qubit tomography moves two waveplates per qubit, four stages total.
const NumStages = 4

// Combo is one row of the motion table: a full set of stage target
// positions plus an optional label. Combos are immutable after load;
// identity is the zero-based table index, or the label when present.
type Combo struct {
	Index     int
	Positions [NumStages]float64
	Label     string
}

// ID returns the combo identity used in logs and the run ledger.
func (c Combo) ID() string {
	if c.Label != "" {
		return c.Label
	}
	return fmt.Sprintf("combo%03d", c.Index)
}

// FileName returns the deterministic CSV file name for this combo's
// acquisition output: the sanitized label, or comboNNN.csv as fallback.
func (c Combo) FileName() string {
	if c.Label != "" {
		return sanitizeLabel(c.Label) + ".csv"
	}
	return fmt.Sprintf("combo%03d.csv", c.Index)
}

// sanitizeLabel makes an operator-supplied label safe for use as a file
// name. Labels are NFC normalized first so that visually identical input
// from different editors yields the same file name.
func sanitizeLabel(label string) string {
	s := norm.NFC.String(strings.TrimSpace(label))
	r := strings.NewReplacer(
		" ", "_",
		".", "-",
		"/", "-",
		"\\", "-",
	)
	return r.Replace(s)
}

// ParseError reports a malformed motion-table line. A malformed row is a
// fatal configuration error: silently skipping a row would silently drop a
// measurement point from the run.
type ParseError struct {
	File string
	Line int // 1-based line number of the offending row
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: invalid motion table row %q: %v", e.File, e.Line, e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LoadTable reads a motion table file into an ordered combo sequence.
//
// Format: one combo per line, `pos1,pos2,pos3,pos4[,label]`. Blank lines
// and lines starting with '#' are ignored. Any other line must carry
// exactly four decimal fields and at most one trailing label; the first
// malformed line aborts the load with a ParseError.
func LoadTable(path string) ([]Combo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open motion table: %w", err)
	}
	defer f.Close()

	var combos []Combo
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		combo, err := parseRow(raw)
		if err != nil {
			return nil, &ParseError{File: path, Line: lineNo, Raw: raw, Err: err}
		}
		combo.Index = len(combos)
		combos = append(combos, combo)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read motion table: %w", err)
	}

	return combos, nil
}

func parseRow(raw string) (Combo, error) {
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if len(parts) < NumStages {
		return Combo{}, fmt.Errorf("expected %d positions, got %d fields", NumStages, len(parts))
	}
	if len(parts) > NumStages+1 {
		return Combo{}, fmt.Errorf("expected at most %d fields (positions + label), got %d", NumStages+1, len(parts))
	}

	var combo Combo
	for i := 0; i < NumStages; i++ {
		pos, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return Combo{}, fmt.Errorf("field %d: %q is not a number", i+1, parts[i])
		}
		combo.Positions[i] = pos
	}

	if len(parts) == NumStages+1 {
		label := parts[NumStages]
		if label == "" {
			return Combo{}, fmt.Errorf("trailing label field is empty")
		}
		combo.Label = label
	}

	return combo, nil
}
