package camera

import (
	"errors"
	"testing"
	"time"
)

func testFrames(n int) []*Frame {
	frames := make([]*Frame, n)
	for i := range frames {
		px := make([]byte, 4*4*3)
		for j := range px {
			px[j] = byte(i * 10)
		}
		frames[i] = NewFrame(4, 4, px, uint64(i+1), time.Now())
	}
	return frames
}

func TestMockCameraReadFrame(t *testing.T) {
	cam := NewMockCamera(testFrames(2), false)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Fatalf("expected ErrCameraNotOpen before Open, got %v", err)
	}

	if err := cam.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !cam.IsOpen() {
		t.Fatal("camera should be open")
	}

	f1, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if f1.Width() != 4 || f1.Height() != 4 {
		t.Errorf("frame dimensions %dx%d, want 4x4", f1.Width(), f1.Height())
	}
	if f1.Sequence() != 1 {
		t.Errorf("first sequence = %d, want 1", f1.Sequence())
	}

	f2, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if f2.Sequence() != 2 {
		t.Errorf("second sequence = %d, want 2", f2.Sequence())
	}

	if _, err := cam.ReadFrame(); err == nil {
		t.Fatal("expected error after frames exhausted")
	}
}

func TestMockCameraLoop(t *testing.T) {
	cam := NewMockCamera(testFrames(1), true)
	if err := cam.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame %d failed: %v", i, err)
		}
		if f.Sequence() != uint64(i+1) {
			t.Errorf("sequence = %d, want %d", f.Sequence(), i+1)
		}
	}
}

func TestMockCameraReset(t *testing.T) {
	cam := NewMockCamera(testFrames(1), false)
	if err := cam.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if _, err := cam.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if _, err := cam.ReadFrame(); err == nil {
		t.Fatal("expected exhaustion")
	}

	cam.Reset()
	if _, err := cam.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame after Reset failed: %v", err)
	}
}

func TestMockSessionRecordsControls(t *testing.T) {
	cam := NewMockCamera(testFrames(1), false)

	session := cam.Session()
	if session == nil {
		t.Fatal("mock camera session is nil")
	}

	if err := session.ApplyControl("exposure", 42); err != nil {
		t.Fatalf("ApplyControl failed: %v", err)
	}
	if err := session.ApplyControl("exposure", 55); err != nil {
		t.Fatalf("ApplyControl failed: %v", err)
	}

	if v, err := session.ControlValue("exposure"); err != nil || v != 55 {
		t.Errorf("ControlValue = %v, %v, want 55, nil", v, err)
	}
	if got := cam.MockControls().Applied(); len(got) != 2 {
		t.Errorf("applied log = %v, want 2 writes", got)
	}
}

func TestSessionUnknownControl(t *testing.T) {
	s := newSession(nil)
	if err := s.ApplyControl("warp_drive", 1); !errors.Is(err, ErrUnknownControl) {
		t.Errorf("expected ErrUnknownControl, got %v", err)
	}
	if _, err := s.ControlValue("warp_drive"); !errors.Is(err, ErrUnknownControl) {
		t.Errorf("expected ErrUnknownControl, got %v", err)
	}
}

func TestSessionInvalidated(t *testing.T) {
	s := newSession(nil)
	if err := s.ApplyControl("exposure", 1); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("expected ErrCameraNotOpen on detached session, got %v", err)
	}
	if _, err := s.ControlValue("exposure"); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("expected ErrCameraNotOpen on detached session, got %v", err)
	}
}
