package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppalaciosa/two-qubit-tomography/internal/gui"
	"github.com/ppalaciosa/two-qubit-tomography/internal/motion"
)

// ExperimentConfig is the single YAML config file binding both external
// collaborators: the motion controller (addresses, stage zeros, travel
// limits) and the GUI adapter (templates, timings, window title).
type ExperimentConfig struct {
	Motion motion.Config `yaml:"motion"`
	GUI    gui.Config    `yaml:"gui"`
}

// LoadExperimentConfig reads and validates the experiment config file.
// Any problem here is a configuration error, reported before motion.
func LoadExperimentConfig(path string) (ExperimentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ExperimentConfig{}, fmt.Errorf("read config: %w", err)
	}
	var cfg ExperimentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ExperimentConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Motion.Validate(); err != nil {
		return ExperimentConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// parseStageIDs parses the --stages flag value, e.g. "1,2,3,4".
func parseStageIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid stage id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
