package motion

import (
	"fmt"
)

// StageConfig describes one controllable axis: its numeric ID (as used in
// motion tables and on the command line), the controller-side positioner
// name, the logical zero offset, and the allowed travel range.
type StageConfig struct {
	ID    int     `yaml:"id"`
	Name  string  `yaml:"name"`  // controller positioner, e.g. "Group1.Pos"
	Zero  float64 `yaml:"zero"`  // logical zero position
	Min   float64 `yaml:"min"`   // travel range lower bound
	Max   float64 `yaml:"max"`   // travel range upper bound (0,0 = unchecked)
	Speed float64 `yaml:"speed"` // units/s, used by the simulator's travel model
}

// Config is the hardware-configuration source: controller address plus the
// per-stage zero offsets and travel limits.
type Config struct {
	Address string        `yaml:"address"` // controller host:port
	Stages  []StageConfig `yaml:"stages"`
}

// Validate checks the stage declarations for the mistakes that would
// otherwise surface mid-run as motion faults.
func (c Config) Validate() error {
	if len(c.Stages) == 0 {
		return fmt.Errorf("no stages configured")
	}
	seen := make(map[int]bool, len(c.Stages))
	for _, st := range c.Stages {
		if st.ID <= 0 {
			return fmt.Errorf("stage %q: id must be positive", st.Name)
		}
		if seen[st.ID] {
			return fmt.Errorf("duplicate stage id %d", st.ID)
		}
		seen[st.ID] = true
		if st.Name == "" {
			return fmt.Errorf("stage %d: name is required", st.ID)
		}
		if st.Min != 0 || st.Max != 0 {
			if st.Min >= st.Max {
				return fmt.Errorf("stage %d: invalid travel range [%g, %g]", st.ID, st.Min, st.Max)
			}
		}
	}
	return nil
}

// Stage looks up a stage by ID.
func (c Config) Stage(id int) (StageConfig, bool) {
	for _, st := range c.Stages {
		if st.ID == id {
			return st, true
		}
	}
	return StageConfig{}, false
}

// SelectStages resolves the operator's stage ID list against the config.
// Two-qubit tomography requires exactly NumStages actuated stages, in the
// order the motion table columns are given.
func (c Config) SelectStages(ids []int) ([]StageConfig, error) {
	if len(ids) != NumStages {
		return nil, fmt.Errorf("exactly %d stages required, got %d", NumStages, len(ids))
	}
	out := make([]StageConfig, 0, NumStages)
	for _, id := range ids {
		st, ok := c.Stage(id)
		if !ok {
			return nil, fmt.Errorf("stage %d not present in hardware config", id)
		}
		out = append(out, st)
	}
	return out, nil
}
