package testutil

import (
	"os"
	"sync"
)

// ScriptedAcquirer implements engine.Acquirer without a display. SaveAs
// writes CSVContent to the requested path, standing in for the external
// acquisition tool's file handoff.
type ScriptedAcquirer struct {
	mu sync.Mutex

	// CSVContent is written verbatim on every successful SaveAs.
	CSVContent string

	// StartErr, StopErr, SaveErr fail the corresponding step for the
	// combo at FailIndex (0-based cycle counter), or every cycle when
	// FailIndex is -1.
	StartErr, StopErr, SaveErr error
	FailIndex                  int

	Starts, Stops int
	Saved         []string

	cycle int
}

// NewScriptedAcquirer creates an acquirer that succeeds every cycle.
func NewScriptedAcquirer(csvContent string) *ScriptedAcquirer {
	return &ScriptedAcquirer{CSVContent: csvContent, FailIndex: -2}
}

// FailCycle arms the configured step errors for the given cycle.
func (a *ScriptedAcquirer) FailCycle(idx int) { a.FailIndex = idx }

func (a *ScriptedAcquirer) failing() bool {
	return a.FailIndex == -1 || a.cycle == a.FailIndex
}

func (a *ScriptedAcquirer) StartAcquisition() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failing() && a.StartErr != nil {
		a.cycle++
		return a.StartErr
	}
	a.Starts++
	return nil
}

func (a *ScriptedAcquirer) StopAcquisition() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failing() && a.StopErr != nil {
		a.cycle++
		return a.StopErr
	}
	a.Stops++
	return nil
}

func (a *ScriptedAcquirer) SaveAs(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failing() && a.SaveErr != nil {
		a.cycle++
		return a.SaveErr
	}
	a.cycle++
	a.Saved = append(a.Saved, path)
	return os.WriteFile(path, []byte(a.CSVContent), 0o644)
}
