package camera

import (
	"fmt"
	"sync"

	"github.com/ayusman/viewfinder/internal/plugin"
)

// MockCamera plays back pre-built frames for testing.
type MockCamera struct {
	frames  []*Frame
	index   int
	loop    bool
	mu      sync.Mutex
	running bool
	fps     int
	seq     uint64
	session *MockSession
}

// NewMockCamera creates a mock camera over the given frame sequence.
func NewMockCamera(frames []*Frame, loop bool) *MockCamera {
	return &MockCamera{
		frames:  frames,
		loop:    loop,
		fps:     DefaultFPS,
		session: NewMockSession(),
	}
}

// Open starts playback from the first frame.
func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	return nil
}

// Close stops playback.
func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// ReadFrame returns the next frame in the sequence, re-stamped with a fresh
// sequence number so repeated loops still look like a live stream.
func (c *MockCamera) ReadFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}

	if len(c.frames) == 0 {
		return nil, fmt.Errorf("no frames available")
	}

	if c.index >= len(c.frames) {
		if c.loop {
			c.index = 0
		} else {
			return nil, fmt.Errorf("no more frames")
		}
	}

	src := c.frames[c.index]
	c.index++
	c.seq++

	return NewFrame(src.Width(), src.Height(), src.Pixels(), c.seq, src.Timestamp()), nil
}

// SetFPS records the requested frame rate.
func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

// FPS returns the recorded frame rate.
func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// IsOpen reports whether playback is running.
func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Session returns the mock control session.
func (c *MockCamera) Session() plugin.Camera {
	return c.session
}

// MockControls returns the session with its recording accessors.
func (c *MockCamera) MockControls() *MockSession {
	return c.session
}

// SetFrames replaces the frame sequence.
func (c *MockCamera) SetFrames(frames []*Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}

// Reset restarts playback from the beginning.
func (c *MockCamera) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
}

// MockSession is an in-memory control handle recording every applied value.
type MockSession struct {
	mu      sync.Mutex
	values  map[string]float64
	applied []string
}

// NewMockSession creates an empty mock control session.
func NewMockSession() *MockSession {
	return &MockSession{values: make(map[string]float64)}
}

// ApplyControl records the control write.
func (s *MockSession) ApplyControl(name string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
	s.applied = append(s.applied, name)
	return nil
}

// ControlValue returns the last applied value for the control.
func (s *MockSession) ControlValue(name string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[name], nil
}

// Applied returns the control names in application order.
func (s *MockSession) Applied() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.applied))
	copy(out, s.applied)
	return out
}
