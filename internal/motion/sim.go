package motion

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"
)

// SimController is a software stand-in for the hardware controller, used
// for dry runs (--sim) and tests. It models travel time from the stage's
// configured speed and enforces the same travel-range checks as the real
// driver, so a table that would fault on hardware also faults here.
type SimController struct {
	cfg Config

	// TimeScale compresses simulated travel time. 0 means real time;
	// tests set a large scale to make moves effectively instant.
	TimeScale float64

	mu        sync.Mutex
	positions map[int]float64 // logical positions, zero-relative
}

// NewSimController creates a simulator with every stage at logical zero.
func NewSimController(cfg Config) *SimController {
	return &SimController{
		cfg:       cfg,
		positions: make(map[int]float64, len(cfg.Stages)),
	}
}

func (s *SimController) MoveTo(ctx context.Context, stage int, position float64) error {
	st, ok := s.cfg.Stage(stage)
	if !ok {
		return &FaultError{Stage: stage, Target: position, Reason: "stage not configured"}
	}
	if (st.Min != 0 || st.Max != 0) && (position < st.Min || position > st.Max) {
		return &FaultError{
			Stage:  stage,
			Target: position,
			Reason: "target outside travel range",
		}
	}

	s.mu.Lock()
	current := s.positions[stage]
	s.mu.Unlock()

	if err := s.travel(ctx, st, current, position); err != nil {
		return &FaultError{Stage: stage, Target: position, Reason: "move interrupted", Err: err}
	}

	s.mu.Lock()
	s.positions[stage] = position
	s.mu.Unlock()

	slog.Debug("sim stage settled", "stage", stage, "position", position)
	return nil
}

func (s *SimController) Zero(ctx context.Context, stage int) error {
	return s.MoveTo(ctx, stage, 0)
}

func (s *SimController) Close() error { return nil }

// Position returns the stage's current logical position.
func (s *SimController) Position(stage int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions[stage]
}

// travel blocks for the modeled travel time, honoring cancellation.
func (s *SimController) travel(ctx context.Context, st StageConfig, from, to float64) error {
	speed := st.Speed
	if speed <= 0 {
		speed = 20 // deg/s, typical rotation stage
	}
	d := time.Duration(math.Abs(to-from) / speed * float64(time.Second))
	if s.TimeScale > 0 {
		d = time.Duration(float64(d) / s.TimeScale)
	}
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
