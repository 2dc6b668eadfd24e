// Package histogram accumulates a luminance histogram over the capture
// stream and renders it as an overlay view.
package histogram

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/ayusman/viewfinder/internal/plugin"
)

// Bin count bounds. Counts outside this range are rejected.
const (
	DefaultBins = 32
	MinBins     = 4
	MaxBins     = 256
)

// Plugin computes a per-frame luminance histogram.
type Plugin struct {
	deps plugin.Deps

	mu      sync.Mutex
	bins    int
	counts  []uint64
	frames  uint64
	lastSeq uint64
	visible bool
}

// New creates the histogram plugin.
func New() *Plugin {
	return &Plugin{
		bins:    DefaultBins,
		visible: true,
	}
}

func (p *Plugin) Name() string    { return "histogram" }
func (p *Plugin) Version() string { return "1.0.0" }
func (p *Plugin) Priority() int   { return 30 }

// ThrottleInterval samples at most three frames a second; the histogram is
// a trend display, not a per-frame scope.
func (p *Plugin) ThrottleInterval() time.Duration { return 300 * time.Millisecond }

// Initialize loads the configured bin count.
func (p *Plugin) Initialize(ctx context.Context, deps plugin.Deps) error {
	p.deps = deps

	raw := deps.Settings.Get(p.Name(), "bins", strconv.Itoa(DefaultBins))
	if n, err := strconv.Atoi(raw); err == nil && n >= MinBins && n <= MaxBins {
		p.mu.Lock()
		p.bins = n
		p.mu.Unlock()
	}
	return nil
}

func (p *Plugin) CameraAcquired(cam plugin.Camera) error { return nil }

// CameraReleased clears the accumulated histogram; the next session starts
// from an empty display.
func (p *Plugin) CameraReleased(cam plugin.Camera) {
	p.mu.Lock()
	p.counts = nil
	p.frames = 0
	p.mu.Unlock()
}

func (p *Plugin) Cleanup() error { return nil }

// ProcessFrame bins the frame's luminance values.
func (p *Plugin) ProcessFrame(frame plugin.Frame) (map[string]any, error) {
	pixels := frame.Pixels()
	if len(pixels) < 3 {
		return nil, plugin.ErrFrameSkipped
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.counts) != p.bins {
		p.counts = make([]uint64, p.bins)
	}

	n := len(pixels) / 3
	for i := 0; i < n*3; i += 3 {
		b := float64(pixels[i])
		g := float64(pixels[i+1])
		r := float64(pixels[i+2])
		luma := 0.299*r + 0.587*g + 0.114*b

		bin := int(luma) * p.bins / 256
		if bin >= p.bins {
			bin = p.bins - 1
		}
		p.counts[bin]++
	}

	p.frames++
	p.lastSeq = frame.Sequence()

	return map[string]any{"bins": p.bins, "samples": n}, nil
}

// OverlayView returns the accumulated histogram, or nil when hidden or when
// no frame has been sampled yet.
func (p *Plugin) OverlayView() *plugin.View {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.visible || p.frames == 0 {
		return nil
	}

	counts := make([]uint64, len(p.counts))
	copy(counts, p.counts)

	return &plugin.View{
		Kind: "histogram",
		Data: map[string]any{
			"bins":     p.bins,
			"counts":   counts,
			"frames":   p.frames,
			"sequence": p.lastSeq,
		},
	}
}

// HandleOverlayEvent toggles visibility and accepts bin-count changes. A
// bin change resets the accumulated counts since the old buckets do not map
// onto the new ones.
func (p *Plugin) HandleOverlayEvent(ev plugin.OverlayEvent) {
	switch ev.Kind {
	case plugin.OverlayShow:
		p.mu.Lock()
		p.visible = true
		p.mu.Unlock()
	case plugin.OverlayHide:
		p.mu.Lock()
		p.visible = false
		p.mu.Unlock()
	case plugin.OverlayStateChange:
		if ev.Key != "bins" {
			return
		}
		n, ok := binCount(ev.Value)
		if !ok {
			return
		}
		p.mu.Lock()
		p.bins = n
		p.counts = nil
		p.frames = 0
		p.mu.Unlock()
		p.deps.Settings.Set(p.Name(), "bins", strconv.Itoa(n))
	}
}

// binCount coerces an overlay event value into a valid bin count.
func binCount(v any) (int, bool) {
	var n int
	switch value := v.(type) {
	case int:
		n = value
	case float64:
		n = int(value)
	case string:
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}

	if n < MinBins || n > MaxBins {
		return 0, false
	}
	return n, true
}
