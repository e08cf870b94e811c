package gui

import (
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"
	"github.com/vcaesar/gcv"
)

// RobotScreen implements Screen with robotgo input synthesis and gcv
// template matching against full-screen captures.
type RobotScreen struct {
	// Confidence is the minimum template match score (0..1).
	Confidence float32
}

// NewRobotScreen creates a driver with the given match threshold.
func NewRobotScreen(confidence float32) *RobotScreen {
	if confidence <= 0 {
		confidence = 0.8
	}
	return &RobotScreen{Confidence: confidence}
}

func (s *RobotScreen) Find(template image.Image) (Region, bool, error) {
	frame := robotgo.CaptureImg()
	if frame == nil {
		return Region{}, false, fmt.Errorf("screen capture failed")
	}

	matches := gcv.FindAllImg(template, frame, s.Confidence)
	if len(matches) == 0 {
		return Region{}, false, nil
	}

	b := template.Bounds()
	m := matches[0]
	return Region{
		X: m.TopLeft.X,
		Y: m.TopLeft.Y,
		W: b.Dx(),
		H: b.Dy(),
	}, true, nil
}

func (s *RobotScreen) MoveClick(x, y int) error {
	robotgo.Move(x, y)
	robotgo.MilliSleep(100)
	robotgo.Click()
	return nil
}

func (s *RobotScreen) TypeText(text string) error {
	robotgo.TypeStr(text)
	return nil
}

func (s *RobotScreen) KeyTap(key string, mods ...string) error {
	args := make([]interface{}, len(mods))
	for i, m := range mods {
		args[i] = m
	}
	return robotgo.KeyTap(key, args...)
}

func (s *RobotScreen) Location() (int, int) {
	return robotgo.Location()
}

func (s *RobotScreen) ActivateWindow(title string) error {
	return robotgo.ActiveName(title)
}
