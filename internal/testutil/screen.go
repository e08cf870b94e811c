package testutil

import (
	"image"
	"sync"

	"github.com/ppalaciosa/two-qubit-tomography/internal/gui"
)

// ScriptedScreen implements gui.Screen without touching the host
// display. Templates are distinguished by their pixel dimensions, so
// tests generate each template file with a unique size.
type ScriptedScreen struct {
	mu sync.Mutex

	// Hidden holds template sizes that are never "on screen".
	Hidden map[image.Point]bool

	// FindErr, when set, fails every Find call.
	FindErr error

	// DriftClicks makes the first n clicks report a drifted pointer
	// position, simulating external mouse interference.
	DriftClicks int

	Clicks  []image.Point
	Typed   []string
	KeyTaps []string

	lastX, lastY int
}

// NewScriptedScreen creates a screen where every template is visible.
func NewScriptedScreen() *ScriptedScreen {
	return &ScriptedScreen{Hidden: make(map[image.Point]bool)}
}

// Hide makes the template with the given dimensions invisible.
func (s *ScriptedScreen) Hide(w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Hidden[image.Pt(w, h)] = true
}

// Show makes a previously hidden template visible again.
func (s *ScriptedScreen) Show(w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Hidden, image.Pt(w, h))
}

func (s *ScriptedScreen) Find(template image.Image) (gui.Region, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FindErr != nil {
		return gui.Region{}, false, s.FindErr
	}
	b := template.Bounds()
	if s.Hidden[image.Pt(b.Dx(), b.Dy())] {
		return gui.Region{}, false, nil
	}
	// Deterministic region derived from the template size.
	return gui.Region{X: 100, Y: 200, W: b.Dx(), H: b.Dy()}, true, nil
}

func (s *ScriptedScreen) MoveClick(x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Clicks = append(s.Clicks, image.Pt(x, y))
	if s.DriftClicks > 0 {
		s.DriftClicks--
		s.lastX, s.lastY = x+50, y+50
		return nil
	}
	s.lastX, s.lastY = x, y
	return nil
}

func (s *ScriptedScreen) TypeText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Typed = append(s.Typed, text)
	return nil
}

func (s *ScriptedScreen) KeyTap(key string, mods ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tap := key
	for _, m := range mods {
		tap += "+" + m
	}
	s.KeyTaps = append(s.KeyTaps, tap)
	return nil
}

func (s *ScriptedScreen) Location() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastX, s.lastY
}

func (s *ScriptedScreen) ActivateWindow(title string) error { return nil }
