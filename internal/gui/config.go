package gui

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Template anchor names. Each maps to a screenshot file in the template
// directory; the acquisition application is controlled entirely through
// these visual anchors.
const (
	TplStart      = "start"       // start-acquisition button
	TplStop       = "stop"        // stop-acquisition button
	TplSaveTag    = "save_tag"    // save/export anchor (CSV tag)
	TplSaveDialog = "save_dialog" // save-dialog title bar
)

// Duration wraps time.Duration with YAML support for "500ms"/"15s" forms.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds everything the GUI adapter needs to drive the acquisition
// application: template file locations, polling timings, and the window
// title to bring into focus before the run.
type Config struct {
	TemplateDir string `yaml:"template_dir"`
	WindowTitle string `yaml:"window_title"`

	// Templates maps anchor names (TplStart etc.) to file names inside
	// TemplateDir.
	Templates map[string]string `yaml:"templates"`

	// Confidence is the template match threshold passed to the matcher.
	Confidence float32 `yaml:"confidence"`

	// LocateTimeout bounds each locate loop; PollInterval is the delay
	// between screen samples. Both are configuration, never hard-coded:
	// the acquisition tool's render latency varies per host.
	LocateTimeout Duration `yaml:"locate_timeout"`
	PollInterval  Duration `yaml:"poll_interval"`

	// ConfirmTimeout bounds the wait for a post-click confirmation anchor
	// (stop appearing after start, the save dialog after the save tag).
	ConfirmTimeout Duration `yaml:"confirm_timeout"`

	// KeyDelay is the pause between synthesized keystroke groups, giving
	// the dialog time to register input.
	KeyDelay Duration `yaml:"key_delay"`
}

// withDefaults fills unset timing fields with conservative values
// matching the acquisition tool's observed render latency.
func (c Config) withDefaults() Config {
	if c.Confidence == 0 {
		c.Confidence = 0.8
	}
	if c.LocateTimeout == 0 {
		c.LocateTimeout = Duration(10 * time.Second)
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(500 * time.Millisecond)
	}
	if c.ConfirmTimeout == 0 {
		c.ConfirmTimeout = Duration(5 * time.Second)
	}
	if c.KeyDelay == 0 {
		c.KeyDelay = Duration(300 * time.Millisecond)
	}
	return c
}

// requiredTemplates lists the anchors every acquisition cycle touches.
// A missing one is a configuration error caught before any motion.
func requiredTemplates() []string {
	return []string{TplStart, TplStop, TplSaveTag, TplSaveDialog}
}
