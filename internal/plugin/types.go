// Package plugin implements the capability-based plugin pipeline for the
// Viewfinder camera application: registration, lifecycle fencing, per-frame
// dispatch with throttling and failure isolation, serialized hardware-control
// application, and the overlay host contract.
package plugin

import (
	"context"
	"time"
)

// Capability identifies one of the three plugin extension points.
type Capability string

// The capabilities a plugin may hold. A plugin declares a capability by
// implementing the matching interface; any combination is allowed.
const (
	CapabilityFrameObserver      Capability = "frame_observer"
	CapabilityHardwareController Capability = "hardware_controller"
	CapabilityOverlayRenderer    Capability = "overlay_renderer"
)

// Plugin is the lifecycle contract every plugin implements. The engine drives
// all state transitions; a plugin never transitions itself. Name must be
// unique and stable across versions since it namespaces the plugin's settings
// and telemetry. Priority orders execution: lower values run first, ties
// break by registration order.
type Plugin interface {
	Name() string
	Version() string
	Priority() int

	// Initialize is called exactly once, before any camera session exists.
	// The injected Deps are the only sanctioned path to shared services.
	Initialize(ctx context.Context, deps Deps) error

	// CameraAcquired and CameraReleased bracket each camera session. A plugin
	// may see multiple acquire/release cycles during its lifetime.
	CameraAcquired(cam Camera) error
	CameraReleased(cam Camera)

	// Cleanup is called once at shutdown, regardless of current state.
	Cleanup() error
}

// FrameObserver is implemented by plugins that want to see captured frames.
type FrameObserver interface {
	// ThrottleInterval is the minimum time between handler invocations for
	// this plugin. Zero means every frame.
	ThrottleInterval() time.Duration

	// ProcessFrame handles one captured frame. The frame is shared read-only
	// across all observers and must not be mutated. Returning ErrFrameSkipped
	// records a Skip outcome rather than a failure.
	ProcessFrame(frame Frame) (map[string]any, error)
}

// HardwareController is implemented by plugins that push control values to
// the camera. ApplyControls is only ever invoked by the control sequencer,
// which serializes all controllers against the same handle.
type HardwareController interface {
	ApplyControls(cam Camera) error
}

// OverlayRenderer is implemented by plugins that expose a view to the UI host.
type OverlayRenderer interface {
	// OverlayView returns the plugin's current renderable view, or nil when
	// there is nothing to render.
	OverlayView() *View

	// HandleOverlayEvent receives a Show, Hide or StateChange routed to this
	// plugin by the overlay host.
	HandleOverlayEvent(ev OverlayEvent)
}

// Frame is the read-only view of one captured frame handed to observers.
type Frame interface {
	Width() int
	Height() int
	Sequence() uint64
	Timestamp() time.Time
	Pixels() []byte
}

// Camera is the opaque camera session handle. Control names are interpreted
// by the camera binding, never by the engine.
type Camera interface {
	ApplyControl(name string, value float64) error
	ControlValue(name string) (float64, error)
}

// SettingsStore persists per-plugin configuration as strings. Get never
// fails: any storage or parse problem degrades to the supplied default.
type SettingsStore interface {
	Get(pluginName, key, defaultValue string) string
	Set(pluginName, key, value string)
}

// TelemetrySink records structured events. Implementations must not block
// the caller; backpressure is the sink's problem.
type TelemetrySink interface {
	LogEvent(pluginName, event string, payload map[string]any)
}

// ControlRequester lets a plugin re-trigger control application for itself
// after one of its externally visible settings changed, without forcing a
// full pass over every controller.
type ControlRequester interface {
	RequestApply(pluginName string)
}

// Deps are the shared services handed to each plugin at initialization time.
type Deps struct {
	Settings  SettingsStore
	Telemetry TelemetrySink
	Controls  ControlRequester
}

// State is a plugin's position in the engine-driven lifecycle.
type State int

const (
	StateCreated State = iota
	StateInitialized
	StateCameraBound
	StateCameraReleased
	StateCleanedUp
	StateFaulted
)

// String returns the lowercase state name used in logs and the admin API.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateCameraBound:
		return "camera_bound"
	case StateCameraReleased:
		return "camera_released"
	case StateCleanedUp:
		return "cleaned_up"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// OutcomeKind tags the result of one plugin invocation.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeSkip
	OutcomeFailure
)

// String returns the outcome tag used in logs and API responses.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkip:
		return "skip"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// FrameMetadata is produced by the dispatcher for every observer invocation,
// independent of what the plugin itself returns, so callers can build latency
// histograms without trusting plugin code.
type FrameMetadata struct {
	Timestamp time.Time
	Duration  time.Duration
	Sequence  uint64
	Width     int
	Height    int
	Extra     map[string]any
}

// FrameOutcome is the per-plugin result of one dispatch pass.
type FrameOutcome struct {
	Plugin  string
	Kind    OutcomeKind
	Data    map[string]any
	Message string
	Err     error
	Meta    FrameMetadata
}

// ControlOutcome is the per-plugin result of one control pass. Kind is
// OutcomeSuccess or OutcomeFailure; controllers are never throttled.
type ControlOutcome struct {
	Plugin  string
	Kind    OutcomeKind
	Message string
	Err     error
}

// View is a serializable overlay payload. The engine does not interpret it;
// the UI host decides how to render each kind.
type View struct {
	Kind string         `json:"kind"`
	Data map[string]any `json:"data,omitempty"`
}

// OverlayEventKind tags an overlay event.
type OverlayEventKind int

const (
	OverlayShow OverlayEventKind = iota
	OverlayHide
	OverlayStateChange
)

// OverlayEvent is delivered to exactly one named OverlayRenderer plugin.
// Key and Value are only meaningful for OverlayStateChange.
type OverlayEvent struct {
	Kind  OverlayEventKind
	Key   string
	Value any
}

// Info is a snapshot of one registered plugin, as exposed by the admin API.
type Info struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Priority     int          `json:"priority"`
	Enabled      bool         `json:"enabled"`
	State        string       `json:"state"`
	Capabilities []Capability `json:"capabilities"`
}
