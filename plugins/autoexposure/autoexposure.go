// Package autoexposure adjusts camera exposure toward a target brightness.
// It observes frames to measure mean luminance and pushes exposure updates
// through the control sequencer.
package autoexposure

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/ayusman/viewfinder/internal/plugin"
)

// Default tuning values, overridable through settings.
const (
	DefaultTarget    = 128.0
	DefaultStep      = 2.0
	DefaultTolerance = 16.0
	MinExposure      = -13.0
	MaxExposure      = 0.0
)

// Plugin measures frame brightness and steers the camera's exposure control
// toward a configured target luminance.
type Plugin struct {
	deps plugin.Deps

	mu        sync.Mutex
	target    float64
	step      float64
	tolerance float64
	exposure  float64
	seeded    bool
	lastLuma  float64
}

// New creates the auto-exposure plugin.
func New() *Plugin {
	return &Plugin{
		target:    DefaultTarget,
		step:      DefaultStep,
		tolerance: DefaultTolerance,
	}
}

func (p *Plugin) Name() string    { return "autoexposure" }
func (p *Plugin) Version() string { return "1.0.0" }
func (p *Plugin) Priority() int   { return 10 }

// ThrottleInterval limits brightness sampling to five times a second.
func (p *Plugin) ThrottleInterval() time.Duration { return 200 * time.Millisecond }

// Initialize loads tuning values from settings.
func (p *Plugin) Initialize(ctx context.Context, deps plugin.Deps) error {
	p.deps = deps

	p.mu.Lock()
	defer p.mu.Unlock()
	p.target = settingFloat(deps.Settings, p.Name(), "target", DefaultTarget)
	p.step = settingFloat(deps.Settings, p.Name(), "step", DefaultStep)
	p.tolerance = settingFloat(deps.Settings, p.Name(), "tolerance", DefaultTolerance)
	p.exposure = settingFloat(deps.Settings, p.Name(), "exposure", 0)
	return nil
}

// CameraAcquired seeds the commanded exposure from the camera's current
// value so the first adjustment is relative to reality, not to a stale
// persisted number.
func (p *Plugin) CameraAcquired(cam plugin.Camera) error {
	if v, err := cam.ControlValue("exposure"); err == nil {
		p.mu.Lock()
		p.exposure = v
		p.seeded = true
		p.mu.Unlock()
	}
	return nil
}

func (p *Plugin) CameraReleased(cam plugin.Camera) {
	p.mu.Lock()
	p.seeded = false
	p.mu.Unlock()
}

func (p *Plugin) Cleanup() error { return nil }

// ProcessFrame measures mean luminance and, when it drifts outside the
// tolerance band, nudges the commanded exposure one step and asks the
// sequencer to re-apply this plugin's controls.
func (p *Plugin) ProcessFrame(frame plugin.Frame) (map[string]any, error) {
	luma := meanLuma(frame.Pixels())

	p.mu.Lock()
	p.lastLuma = luma
	adjusted := false
	switch {
	case luma < p.target-p.tolerance && p.exposure < MaxExposure:
		p.exposure = math.Min(p.exposure+p.step, MaxExposure)
		adjusted = true
	case luma > p.target+p.tolerance && p.exposure > MinExposure:
		p.exposure = math.Max(p.exposure-p.step, MinExposure)
		adjusted = true
	}
	exposure := p.exposure
	p.mu.Unlock()

	if adjusted {
		p.deps.Telemetry.LogEvent(p.Name(), "exposure_adjusted", map[string]any{
			"luma":     luma,
			"exposure": exposure,
		})
		p.deps.Controls.RequestApply(p.Name())
	}

	return map[string]any{"luma": luma, "exposure": exposure}, nil
}

// ApplyControls pushes the commanded exposure to the camera and persists it.
func (p *Plugin) ApplyControls(cam plugin.Camera) error {
	p.mu.Lock()
	exposure := p.exposure
	p.mu.Unlock()

	if err := cam.ApplyControl("exposure", exposure); err != nil {
		return err
	}
	p.deps.Settings.Set(p.Name(), "exposure", strconv.FormatFloat(exposure, 'f', -1, 64))
	return nil
}

// meanLuma computes mean luminance over a BGR pixel buffer using the
// ITU-R BT.601 weights. An empty buffer reads as mid-gray so an all-black
// placeholder frame does not slam the exposure to its maximum.
func meanLuma(pixels []byte) float64 {
	if len(pixels) < 3 {
		return DefaultTarget
	}

	var sum float64
	n := len(pixels) / 3
	for i := 0; i < n*3; i += 3 {
		b := float64(pixels[i])
		g := float64(pixels[i+1])
		r := float64(pixels[i+2])
		sum += 0.299*r + 0.587*g + 0.114*b
	}
	return sum / float64(n)
}

func settingFloat(s plugin.SettingsStore, pluginName, key string, def float64) float64 {
	raw := s.Get(pluginName, key, strconv.FormatFloat(def, 'f', -1, 64))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}
