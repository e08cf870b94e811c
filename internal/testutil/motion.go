// Package testutil provides deterministic stand-ins for the motion and
// screen collaborators, shared by engine, cli, and gui tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/ppalaciosa/two-qubit-tomography/internal/motion"
)

// MoveCall records one command issued to the scripted controller.
type MoveCall struct {
	Stage    int
	Position float64
	Zero     bool
}

// ScriptedController implements motion.Controller, recording every call
// and faulting on configured (stage, position) targets.
type ScriptedController struct {
	mu sync.Mutex

	// FaultAt maps "stage:position" keys to fault injection. Use
	// FaultOn to populate it.
	faults map[string]bool

	// FaultAllZeros makes every Zero call fault.
	FaultAllZeros bool

	Calls []MoveCall
}

// NewScriptedController creates a controller that settles every move.
func NewScriptedController() *ScriptedController {
	return &ScriptedController{faults: make(map[string]bool)}
}

// FaultOn makes MoveTo fault for the given stage and target position.
func (c *ScriptedController) FaultOn(stage int, position float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults[faultKey(stage, position)] = true
}

func (c *ScriptedController) MoveTo(ctx context.Context, stage int, position float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, MoveCall{Stage: stage, Position: position})
	if c.faults[faultKey(stage, position)] {
		return &motion.FaultError{Stage: stage, Target: position, Reason: "scripted fault"}
	}
	return ctx.Err()
}

func (c *ScriptedController) Zero(ctx context.Context, stage int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, MoveCall{Stage: stage, Zero: true})
	if c.FaultAllZeros {
		return &motion.FaultError{Stage: stage, Reason: "scripted zero fault"}
	}
	return ctx.Err()
}

func (c *ScriptedController) Close() error { return nil }

// ZeroCalls returns how many zero-return commands were issued.
func (c *ScriptedController) ZeroCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.Calls {
		if call.Zero {
			n++
		}
	}
	return n
}

// MoveCalls returns the non-zero move commands in issue order.
func (c *ScriptedController) MoveCalls() []MoveCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	var moves []MoveCall
	for _, call := range c.Calls {
		if !call.Zero {
			moves = append(moves, call)
		}
	}
	return moves
}

func faultKey(stage int, position float64) string {
	return fmt.Sprintf("%d:%g", stage, position)
}
