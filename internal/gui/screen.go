package gui

import "image"

// Region is a matched template's location on screen.
type Region struct {
	X, Y, W, H int
}

// Center returns the region's center point, the default click target.
func (r Region) Center() (int, int) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Screen is the consumed template-matching/input-synthesis boundary.
//
// Implementations act on the host's live display and input devices:
// coordinates and focus state are global to the machine, not scoped to
// this process, so exactly one Screen may be active at a time and no
// unrelated input automation may run alongside it.
type Screen interface {
	// Find samples the screen once for the template, returning the
	// matched region and whether a match above the confidence threshold
	// was found. Polling and timeouts live in the Automator.
	Find(template image.Image) (Region, bool, error)

	// MoveClick moves the pointer to (x, y) and synthesizes a click.
	MoveClick(x, y int) error

	// TypeText synthesizes keyboard entry of s into the focused control.
	TypeText(s string) error

	// KeyTap taps a named key with optional modifiers, e.g. ("a", "ctrl").
	KeyTap(key string, mods ...string) error

	// Location reports the current pointer position, used to detect
	// external mouse interference between synthesized events.
	Location() (int, int)

	// ActivateWindow raises and focuses the window with the given title.
	ActivateWindow(title string) error
}
