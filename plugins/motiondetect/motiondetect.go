// Package motiondetect flags motion between consecutive frames and exposes
// the latest detection as an overlay. Detections are logged as telemetry and
// optionally archived as snapshots in object storage.
package motiondetect

import (
	"context"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/viewfinder/internal/plugin"
	"github.com/ayusman/viewfinder/internal/snapshot"
)

// DefaultThreshold is the percentage of changed pixels that counts as motion.
const DefaultThreshold = 1.0

// matProvider is satisfied by frames that carry an OpenCV matrix.
type matProvider interface {
	Mat() *gocv.Mat
}

// Plugin runs frame differencing over the capture stream.
type Plugin struct {
	deps      plugin.Deps
	detector  *Detector
	snapshots snapshot.Store

	mu      sync.Mutex
	visible bool
	last    *detection
}

type detection struct {
	Change   float64
	Sequence uint64
	At       time.Time
	URL      string
}

// New creates the motion detection plugin. The snapshot store may be nil,
// in which case detections are logged but not archived.
func New(snapshots snapshot.Store) *Plugin {
	return &Plugin{
		detector:  NewDetector(DefaultThreshold),
		snapshots: snapshots,
		visible:   true,
	}
}

func (p *Plugin) Name() string    { return "motiondetect" }
func (p *Plugin) Version() string { return "1.0.0" }
func (p *Plugin) Priority() int   { return 20 }

// ThrottleInterval caps differencing at ten frames a second.
func (p *Plugin) ThrottleInterval() time.Duration { return 100 * time.Millisecond }

// Initialize loads the detection threshold from settings.
func (p *Plugin) Initialize(ctx context.Context, deps plugin.Deps) error {
	p.deps = deps

	raw := deps.Settings.Get(p.Name(), "threshold", strconv.FormatFloat(DefaultThreshold, 'f', -1, 64))
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		p.detector.SetThreshold(v)
	}
	return nil
}

// CameraAcquired resets the baseline so the first frame of a new session
// never reads as motion against the previous session's last frame.
func (p *Plugin) CameraAcquired(cam plugin.Camera) error {
	p.detector.Reset()
	return nil
}

func (p *Plugin) CameraReleased(cam plugin.Camera) {
	p.detector.Reset()
}

func (p *Plugin) Cleanup() error {
	p.detector.Close()
	return nil
}

// ProcessFrame runs the detector over the frame's matrix. Frames without a
// matrix backing cannot be differenced and are skipped.
func (p *Plugin) ProcessFrame(frame plugin.Frame) (map[string]any, error) {
	mp, ok := frame.(matProvider)
	if !ok || mp.Mat() == nil {
		return nil, plugin.ErrFrameSkipped
	}

	detected, change := p.detector.Detect(mp.Mat())
	if !detected {
		return map[string]any{"motion": false, "change_percent": change}, nil
	}

	url := p.archive(mp.Mat(), frame)

	p.mu.Lock()
	p.last = &detection{
		Change:   change,
		Sequence: frame.Sequence(),
		At:       frame.Timestamp(),
		URL:      url,
	}
	p.mu.Unlock()

	payload := map[string]any{
		"change_percent": change,
		"sequence":       frame.Sequence(),
	}
	if url != "" {
		payload["snapshot_url"] = url
	}
	p.deps.Telemetry.LogEvent(p.Name(), "motion", payload)

	return map[string]any{"motion": true, "change_percent": change}, nil
}

// archive JPEG-encodes the frame and uploads it. Failures are logged as
// telemetry and otherwise swallowed; losing a snapshot must not fail the
// detection itself.
func (p *Plugin) archive(mat *gocv.Mat, frame plugin.Frame) string {
	if p.snapshots == nil {
		return ""
	}

	buf, err := gocv.IMEncode(".jpg", *mat)
	if err != nil {
		return ""
	}
	defer buf.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	key := snapshot.Key(p.Name(), frame.Timestamp(), frame.Sequence())
	url, err := p.snapshots.Save(ctx, key, buf.GetBytes(), "image/jpeg")
	if err != nil {
		p.deps.Telemetry.LogEvent(p.Name(), "snapshot_error", map[string]any{"error": err.Error()})
		return ""
	}
	return url
}

// OverlayView reports the most recent detection, or nil when hidden or when
// nothing has been detected yet.
func (p *Plugin) OverlayView() *plugin.View {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.visible || p.last == nil {
		return nil
	}

	data := map[string]any{
		"change_percent": p.last.Change,
		"sequence":       p.last.Sequence,
		"at":             p.last.At.UnixMilli(),
	}
	if p.last.URL != "" {
		data["snapshot_url"] = p.last.URL
	}
	return &plugin.View{Kind: "motion", Data: data}
}

// HandleOverlayEvent toggles visibility and accepts threshold changes.
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
		if ev.Key != "threshold" {
			return
		}
		raw, ok := ev.Value.(string)
		if !ok {
			if f, isFloat := ev.Value.(float64); isFloat {
				raw = strconv.FormatFloat(f, 'f', -1, 64)
			} else {
				return
			}
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			return
		}
		p.detector.SetThreshold(v)
		p.deps.Settings.Set(p.Name(), "threshold", raw)
	}
}
