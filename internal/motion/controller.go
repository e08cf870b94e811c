package motion

import (
	"context"
	"errors"
	"fmt"
)

// Controller is the consumed motion-subsystem boundary. Implementations
// block until the stage reports settled-in-position or a fault; they never
// return early with motion still in progress. The sequencing layer relies
// on this blocking contract instead of polling.
//
// A non-nil error from MoveTo or Zero is a motion fault: the stage's
// physical position can no longer be trusted for the rest of the run.
type Controller interface {
	// MoveTo commands one stage to an absolute position and blocks until
	// settle or fault.
	MoveTo(ctx context.Context, stage int, position float64) error

	// Zero returns one stage to its configured logical zero position.
	Zero(ctx context.Context, stage int) error

	Close() error
}

// FaultError is a stage-level motion fault: failure to settle, an
// out-of-range command, or a controller-reported hardware error.
type FaultError struct {
	Stage  int
	Target float64
	Reason string
	Err    error
}

func (e *FaultError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stage %d: move to %.4f failed: %s: %v", e.Stage, e.Target, e.Reason, e.Err)
	}
	return fmt.Sprintf("stage %d: move to %.4f failed: %s", e.Stage, e.Target, e.Reason)
}

func (e *FaultError) Unwrap() error { return e.Err }

// IsFault reports whether err (or anything it wraps) is a motion fault.
func IsFault(err error) bool {
	var fe *FaultError
	return errors.As(err, &fe)
}
