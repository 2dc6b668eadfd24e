package camera

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// ErrUnknownControl is wrapped into errors for control names the camera
// binding does not map to a capture property.
var ErrUnknownControl = fmt.Errorf("unknown camera control")

// controlProps maps engine-visible control names onto OpenCV capture
// properties. The engine itself never interprets these names; only hardware
// controller plugins and this binding agree on them.
var controlProps = map[string]gocv.VideoCaptureProperties{
	"brightness":    gocv.VideoCaptureBrightness,
	"contrast":      gocv.VideoCaptureContrast,
	"saturation":    gocv.VideoCaptureSaturation,
	"hue":           gocv.VideoCaptureHue,
	"gain":          gocv.VideoCaptureGain,
	"exposure":      gocv.VideoCaptureExposure,
	"auto_exposure": gocv.VideoCaptureAutoExposure,
	"gamma":         gocv.VideoCaptureGamma,
	"focus":         gocv.VideoCaptureFocus,
	"autofocus":     gocv.VideoCaptureAutoFocus,
	"iso_speed":     gocv.VideoCaptureISOSpeed,
	"zoom":          gocv.VideoCaptureZoom,
}

// ControlNames returns the control names this binding understands.
func ControlNames() []string {
	names := make([]string, 0, len(controlProps))
	for name := range controlProps {
		names = append(names, name)
	}
	return names
}

// Session is the per-capture control handle handed to hardware controller
// plugins. All control writes are serialized by the engine's sequencer; the
// internal lock only guards against a concurrent Close of the camera.
type Session struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
}

func newSession(capture *gocv.VideoCapture) *Session {
	return &Session{capture: capture}
}

// invalidate detaches the session from the capture. Control calls made by a
// plugin still holding the handle after teardown fail cleanly instead of
// touching freed hardware state.
func (s *Session) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capture = nil
}

// ApplyControl sets a named control value on the camera.
func (s *Session) ApplyControl(name string, value float64) error {
	prop, ok := controlProps[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownControl, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return ErrCameraNotOpen
	}
	s.capture.Set(prop, value)
	return nil
}

// ControlValue reads the current value of a named control.
func (s *Session) ControlValue(name string) (float64, error) {
	prop, ok := controlProps[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownControl, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return 0, ErrCameraNotOpen
	}
	return s.capture.Get(prop), nil
}
