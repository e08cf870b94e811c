package gui

import (
	"errors"
	"fmt"
	"image"
	_ "image/png" // template screenshots are PNG files
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ErrNotFound means a template never appeared on screen within the
// locate timeout.
var ErrNotFound = errors.New("template not found on screen")

// ErrInterference means the pointer kept moving away from the synthesized
// click target: something else is driving the host's input devices, and
// continuing would click at unpredictable coordinates.
var ErrInterference = errors.New("external mouse interference")

// maxInterference is how many externally-moved clicks are tolerated
// before the step is abandoned.
const maxInterference = 3

// interferenceTolerance is the pointer drift (pixels) allowed between the
// synthesized click target and the observed pointer position.
const interferenceTolerance = 5

// StepError tags a failed acquisition step with the step name and the
// template involved, enough context for the run log to reproduce it.
// The adapter never retries; skip-vs-abort policy lives in the sequencer.
type StepError struct {
	Step     string
	Template string
	Err      error
}

func (e *StepError) Error() string {
	if e.Template != "" {
		return fmt.Sprintf("acquisition step %q (template %s): %v", e.Step, e.Template, e.Err)
	}
	return fmt.Sprintf("acquisition step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// LoadTemplates loads and decodes every required template screenshot.
// A missing or undecodable file is a configuration error, reported before
// any hardware motion is attempted.
func LoadTemplates(cfg Config) (map[string]image.Image, error) {
	templates := make(map[string]image.Image, len(cfg.Templates))
	for _, name := range requiredTemplates() {
		file, ok := cfg.Templates[name]
		if !ok || file == "" {
			return nil, fmt.Errorf("template %q not declared in config", name)
		}
		path := filepath.Join(cfg.TemplateDir, file)
		img, err := loadImage(path)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", name, err)
		}
		templates[name] = img
	}
	return templates, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// Automator turns abstract acquisition actions into synthesized input
// against visually located anchors. It owns the host's input devices for
// the duration of one acquisition cycle; callers must not run it
// concurrently with anything else that touches the screen.
type Automator struct {
	screen    Screen
	cfg       Config
	templates map[string]image.Image
	logger    *slog.Logger
}

// New builds an Automator, loading all template screenshots up front.
func New(screen Screen, cfg Config) (*Automator, error) {
	cfg = cfg.withDefaults()
	templates, err := LoadTemplates(cfg)
	if err != nil {
		return nil, err
	}
	return &Automator{
		screen:    screen,
		cfg:       cfg,
		templates: templates,
		logger:    slog.Default(),
	}, nil
}

// ActivateWindow brings the acquisition application's window into focus.
// Called once before the run; template coordinates are only meaningful
// while the window is frontmost.
func (a *Automator) ActivateWindow() error {
	if a.cfg.WindowTitle == "" {
		return nil
	}
	if err := a.screen.ActivateWindow(a.cfg.WindowTitle); err != nil {
		return &StepError{Step: "activate_window", Err: err}
	}
	time.Sleep(a.cfg.KeyDelay.Std())
	return nil
}

// Locate polls the screen for a template until found or timeout.
func (a *Automator) Locate(name string, timeout time.Duration) (Region, error) {
	tpl, ok := a.templates[name]
	if !ok {
		return Region{}, fmt.Errorf("unknown template %q", name)
	}

	deadline := time.Now().Add(timeout)
	for {
		region, found, err := a.screen.Find(tpl)
		if err != nil {
			return Region{}, err
		}
		if found {
			return region, nil
		}
		if time.Now().After(deadline) {
			return Region{}, ErrNotFound
		}
		time.Sleep(a.cfg.PollInterval.Std())
	}
}

// Click locates a template and clicks its center, watching for external
// pointer movement between the synthesized events.
func (a *Automator) Click(name string, timeout time.Duration) error {
	region, err := a.Locate(name, timeout)
	if err != nil {
		return err
	}
	cx, cy := region.Center()

	interference := 0
	for {
		if err := a.screen.MoveClick(cx, cy); err != nil {
			return err
		}
		x, y := a.screen.Location()
		if abs(x-cx) <= interferenceTolerance && abs(y-cy) <= interferenceTolerance {
			return nil
		}

		interference++
		a.logger.Warn("pointer moved externally during click",
			"template", name,
			"attempt", interference,
			"expected_x", cx, "expected_y", cy,
			"observed_x", x, "observed_y", y,
		)
		if interference >= maxInterference {
			return ErrInterference
		}
		time.Sleep(a.cfg.PollInterval.Std())
	}
}

// clickConfirmed clicks an anchor and waits for a confirmation anchor to
// appear. The acquisition tool has no acknowledgment channel, so the
// confirming template is the only proof the click registered.
func (a *Automator) clickConfirmed(step, name, confirm string) error {
	if err := a.Click(name, a.cfg.LocateTimeout.Std()); err != nil {
		return &StepError{Step: step, Template: name, Err: err}
	}
	if _, err := a.Locate(confirm, a.cfg.ConfirmTimeout.Std()); err != nil {
		return &StepError{Step: step, Template: confirm, Err: err}
	}
	return nil
}

// StartAcquisition clicks the start anchor; the stop anchor replacing it
// confirms the tool actually began collecting.
func (a *Automator) StartAcquisition() error {
	if err := a.clickConfirmed("start", TplStart, TplStop); err != nil {
		return err
	}
	a.logger.Info("acquisition started")
	return nil
}

// StopAcquisition clicks the stop anchor; the start anchor reappearing
// confirms the tool returned to idle.
func (a *Automator) StopAcquisition() error {
	if err := a.clickConfirmed("stop", TplStop, TplStart); err != nil {
		return err
	}
	a.logger.Info("acquisition stopped")
	return nil
}

// SaveAs drives the tool's save dialog: click the save anchor, wait for
// the dialog to take focus, replace the file name field with path, then
// confirm with tab+enter.
func (a *Automator) SaveAs(path string) error {
	if err := a.Click(TplSaveTag, a.cfg.LocateTimeout.Std()); err != nil {
		return &StepError{Step: "save", Template: TplSaveTag, Err: err}
	}

	// The dialog appearing is the focus signal; typing before it exists
	// would land keystrokes in the main window.
	if _, err := a.Locate(TplSaveDialog, a.cfg.ConfirmTimeout.Std()); err != nil {
		return &StepError{Step: "save_dialog", Template: TplSaveDialog, Err: err}
	}

	if err := a.typeFileName(path); err != nil {
		return &StepError{Step: "save_filename", Err: err}
	}

	a.logger.Info("save confirmed", "path", path)
	return nil
}

func (a *Automator) typeFileName(path string) error {
	delay := a.cfg.KeyDelay.Std()

	if err := a.screen.KeyTap("a", "ctrl"); err != nil {
		return err
	}
	if err := a.screen.KeyTap("delete"); err != nil {
		return err
	}
	if err := a.screen.TypeText(path); err != nil {
		return err
	}
	time.Sleep(delay)

	if err := a.screen.KeyTap("tab"); err != nil {
		return err
	}
	time.Sleep(delay)
	return a.screen.KeyTap("enter")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
