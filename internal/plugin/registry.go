package plugin

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// entry is the engine's bookkeeping record for one registered plugin. The
// capability fields are resolved once at registration by type assertion and
// are nil when the plugin does not hold that capability.
type entry struct {
	plugin     Plugin
	observer   FrameObserver
	controller HardwareController
	renderer   OverlayRenderer

	state   State
	enabled bool
	order   int
	lastRun time.Time
}

func (e *entry) capabilities() []Capability {
	caps := make([]Capability, 0, 3)
	if e.observer != nil {
		caps = append(caps, CapabilityFrameObserver)
	}
	if e.controller != nil {
		caps = append(caps, CapabilityHardwareController)
	}
	if e.renderer != nil {
		caps = append(caps, CapabilityOverlayRenderer)
	}
	return caps
}

// dispatchable reports whether the entry participates in pipelines at all.
func (e *entry) dispatchable() bool {
	return e.enabled && e.state == StateCameraBound
}

// Engine is the plugin pipeline: registry, lifecycle coordinator, frame
// dispatcher, control sequencer and overlay host behind a single lock.
//
// One mutex serializes dispatch passes, control passes and lifecycle
// transitions, so a frame is never delivered to a plugin mid-teardown and
// two controllers never race the camera handle.
type Engine struct {
	mu        sync.Mutex
	entries   []*entry
	byName    map[string]*entry
	deps      Deps
	camera    Camera
	nextOrder int

	// now is swappable so throttle behavior is testable.
	now func() time.Time
}

// NewEngine creates an Engine wired to the given shared services. The engine
// itself serves as the ControlRequester injected into plugins.
func NewEngine(settings SettingsStore, telemetry TelemetrySink) *Engine {
	e := &Engine{
		byName: make(map[string]*entry),
		now:    time.Now,
	}
	e.deps = Deps{Settings: settings, Telemetry: telemetry, Controls: e}
	return e
}

// Register adds a plugin to the engine in Created state. Plugins are kept
// sorted by (priority, registration order); the sort is stable so two
// plugins with equal priority run in the order they were registered.
// Returns ErrDuplicateName if the name is already taken.
func (e *Engine) Register(p Plugin) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	name := p.Name()
	if _, exists := e.byName[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	ent := &entry{
		plugin:  p,
		state:   StateCreated,
		enabled: true,
		order:   e.nextOrder,
	}
	e.nextOrder++

	if o, ok := p.(FrameObserver); ok {
		ent.observer = o
	}
	if c, ok := p.(HardwareController); ok {
		ent.controller = c
	}
	if r, ok := p.(OverlayRenderer); ok {
		ent.renderer = r
	}

	e.byName[name] = ent
	e.entries = append(e.entries, ent)
	sort.SliceStable(e.entries, func(i, j int) bool {
		a, b := e.entries[i], e.entries[j]
		if a.plugin.Priority() != b.plugin.Priority() {
			return a.plugin.Priority() < b.plugin.Priority()
		}
		return a.order < b.order
	})

	return nil
}

// SetEnabled toggles a plugin's participation in dispatch, control and
// overlay pipelines. It never changes lifecycle state: a disabled plugin
// keeps receiving lifecycle transitions and simply gets skipped by the
// pipelines until re-enabled.
func (e *Engine) SetEnabled(name string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrPluginNotFound, name)
	}
	ent.enabled = enabled
	return nil
}

// Plugins returns a snapshot of all registered plugins in execution order.
func (e *Engine) Plugins() []Info {
	e.mu.Lock()
	defer e.mu.Unlock()

	infos := make([]Info, 0, len(e.entries))
	for _, ent := range e.entries {
		infos = append(infos, Info{
			Name:         ent.plugin.Name(),
			Version:      ent.plugin.Version(),
			Priority:     ent.plugin.Priority(),
			Enabled:      ent.enabled,
			State:        ent.state.String(),
			Capabilities: ent.capabilities(),
		})
	}
	return infos
}

// PluginInfo returns the snapshot for one plugin.
func (e *Engine) PluginInfo(name string) (Info, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.byName[name]
	if !ok {
		return Info{}, fmt.Errorf("%w: %q", ErrPluginNotFound, name)
	}
	return Info{
		Name:         ent.plugin.Name(),
		Version:      ent.plugin.Version(),
		Priority:     ent.plugin.Priority(),
		Enabled:      ent.enabled,
		State:        ent.state.String(),
		Capabilities: ent.capabilities(),
	}, nil
}

// logEvent routes an engine-originated telemetry event, tolerating a nil sink.
func (e *Engine) logEvent(pluginName, event string, payload map[string]any) {
	if e.deps.Telemetry == nil {
		return
	}
	e.deps.Telemetry.LogEvent(pluginName, event, payload)
}
