package histogram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/viewfinder/internal/plugin"
)

type fakeSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: make(map[string]string)}
}

func (s *fakeSettings) Get(pluginName, key, defaultValue string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[pluginName+"/"+key]; ok {
		return v
	}
	return defaultValue
}

func (s *fakeSettings) Set(pluginName, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[pluginName+"/"+key] = value
}

type fakeSink struct{}

func (fakeSink) LogEvent(pluginName, event string, payload map[string]any) {}

type noopControls struct{}

func (noopControls) RequestApply(pluginName string) {}

type testFrame struct {
	pixels []byte
	seq    uint64
}

func (f *testFrame) Width() int           { return len(f.pixels) / 3 }
func (f *testFrame) Height() int          { return 1 }
func (f *testFrame) Sequence() uint64     { return f.seq }
func (f *testFrame) Timestamp() time.Time { return time.Now() }
func (f *testFrame) Pixels() []byte       { return f.pixels }

// uniformFrame builds a single-row frame where every channel holds v.
func uniformFrame(v byte, n int, seq uint64) *testFrame {
	px := make([]byte, n*3)
	for i := range px {
		px[i] = v
	}
	return &testFrame{pixels: px, seq: seq}
}

func newTestPlugin(t *testing.T, settings *fakeSettings) *Plugin {
	t.Helper()

	p := New()
	deps := plugin.Deps{Settings: settings, Telemetry: fakeSink{}, Controls: noopControls{}}
	if err := p.Initialize(context.Background(), deps); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return p
}

func TestProcessFrameBinsLuma(t *testing.T) {
	p := newTestPlugin(t, newFakeSettings())

	// All-black pixels land in the first bin, all-white in the last.
	if _, err := p.ProcessFrame(uniformFrame(0, 16, 1)); err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}
	if _, err := p.ProcessFrame(uniformFrame(255, 16, 2)); err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}

	if p.counts[0] != 16 {
		t.Errorf("first bin = %d, want 16", p.counts[0])
	}
	if p.counts[len(p.counts)-1] != 16 {
		t.Errorf("last bin = %d, want 16", p.counts[len(p.counts)-1])
	}
}

func TestEmptyFrameIsSkipped(t *testing.T) {
	p := newTestPlugin(t, newFakeSettings())

	_, err := p.ProcessFrame(&testFrame{})
	if !errors.Is(err, plugin.ErrFrameSkipped) {
		t.Fatalf("expected ErrFrameSkipped, got %v", err)
	}
}

func TestOverlayViewShape(t *testing.T) {
	p := newTestPlugin(t, newFakeSettings())

	if v := p.OverlayView(); v != nil {
		t.Fatalf("expected nil view before any frame, got %v", v)
	}

	if _, err := p.ProcessFrame(uniformFrame(128, 8, 7)); err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}

	v := p.OverlayView()
	if v == nil || v.Kind != "histogram" {
		t.Fatalf("expected histogram view, got %v", v)
	}
	if v.Data["bins"] != DefaultBins {
		t.Errorf("bins = %v, want %d", v.Data["bins"], DefaultBins)
	}
	if v.Data["sequence"] != uint64(7) {
		t.Errorf("sequence = %v, want 7", v.Data["sequence"])
	}
	counts := v.Data["counts"].([]uint64)
	if len(counts) != DefaultBins {
		t.Errorf("len(counts) = %d, want %d", len(counts), DefaultBins)
	}
}

func TestShowHide(t *testing.T) {
	p := newTestPlugin(t, newFakeSettings())
	if _, err := p.ProcessFrame(uniformFrame(128, 8, 1)); err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}

	p.HandleOverlayEvent(plugin.OverlayEvent{Kind: plugin.OverlayHide})
	if p.OverlayView() != nil {
		t.Error("expected nil view while hidden")
	}

	p.HandleOverlayEvent(plugin.OverlayEvent{Kind: plugin.OverlayShow})
	if p.OverlayView() == nil {
		t.Error("expected view after show")
	}
}

func TestBinsStateChange(t *testing.T) {
	settings := newFakeSettings()
	p := newTestPlugin(t, settings)

	if _, err := p.ProcessFrame(uniformFrame(128, 8, 1)); err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}

	p.HandleOverlayEvent(plugin.OverlayEvent{
		Kind:  plugin.OverlayStateChange,
		Key:   "bins",
		Value: 64,
	})

	// Counts reset on a bin change.
	if p.OverlayView() != nil {
		t.Error("expected nil view after bin change reset")
	}
	if got := settings.Get("histogram", "bins", ""); got != "64" {
		t.Errorf("persisted bins = %q, want %q", got, "64")
	}

	if _, err := p.ProcessFrame(uniformFrame(128, 8, 2)); err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}
	v := p.OverlayView()
	if v == nil || v.Data["bins"] != 64 {
		t.Fatalf("expected 64-bin view, got %v", v)
	}
}

func TestBinCountValidation(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
		ok    bool
	}{
		{name: "int", value: 64, want: 64, ok: true},
		{name: "json number", value: float64(16), want: 16, ok: true},
		{name: "string", value: "8", want: 8, ok: true},
		{name: "too small", value: 2, ok: false},
		{name: "too large", value: 1024, ok: false},
		{name: "garbage", value: "lots", ok: false},
		{name: "wrong type", value: true, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := binCount(tt.value)
			if ok != tt.ok {
				t.Fatalf("binCount(%v) ok = %v, want %v", tt.value, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("binCount(%v) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestCameraReleasedClearsHistogram(t *testing.T) {
	p := newTestPlugin(t, newFakeSettings())

	if _, err := p.ProcessFrame(uniformFrame(128, 8, 1)); err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}
	p.CameraReleased(nil)

	if p.OverlayView() != nil {
		t.Error("expected nil view after camera release")
	}
}

func TestInitializeReadsBins(t *testing.T) {
	settings := newFakeSettings()
	settings.Set("histogram", "bins", "128")

	p := newTestPlugin(t, settings)
	if p.bins != 128 {
		t.Errorf("bins = %d, want 128", p.bins)
	}
}
