package engine

import (
	"errors"
	"fmt"
)

// FaultedError is returned by Sequencer.Run when a motion fault aborted
// the run. It carries the combo being executed when the fault occurred so
// operators can see how far the table got.
type FaultedError struct {
	RunToken string
	Combo    string
	Err      error
}

func (e *FaultedError) Error() string {
	return fmt.Sprintf("run %s faulted at %s: %v", e.RunToken, e.Combo, e.Err)
}

func (e *FaultedError) Unwrap() error { return e.Err }

// IsFaulted reports whether err (or anything it wraps) is a fatal run
// fault. Used by the CLI to choose the motion-fault exit code.
func IsFaulted(err error) bool {
	var fe *FaultedError
	return errors.As(err, &fe)
}
