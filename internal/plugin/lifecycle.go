package plugin

import (
	"context"
	"fmt"
	"log"
)

// InitializeAll transitions every Created plugin to Initialized, in priority
// order, sequentially. Initialization order is part of the engine's contract:
// later plugins may depend on earlier plugins having configured shared state.
//
// A plugin whose Initialize returns an error or panics is moved to Faulted,
// excluded from every pipeline, and reported to the telemetry sink; sibling
// initialization continues. InitializeAll never returns an error.
func (e *Engine) InitializeAll(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ent := range e.entries {
		if ent.state != StateCreated {
			continue
		}
		name := ent.plugin.Name()
		if err := e.initOne(ctx, ent); err != nil {
			ent.state = StateFaulted
			log.Printf("plugin %s failed to initialize: %v", name, err)
			e.logEvent(name, "initialization_error", map[string]any{"error": err.Error()})
			continue
		}
		ent.state = StateInitialized
	}
}

func (e *Engine) initOne(ctx context.Context, ent *entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during initialize: %v", r)
		}
	}()
	return ent.plugin.Initialize(ctx, e.deps)
}

// OnCameraAcquired notifies plugins that a camera session is available, in
// priority order, sequentially. Only after every plugin has been notified
// does the engine allow dispatch and control passes against this session;
// holding the lock for the whole walk is that fence.
//
// Faulted and CleanedUp plugins are skipped. A plugin whose bind fails is
// left unbound for this session (it will be offered the next one) and the
// failure is logged; siblings still bind.
func (e *Engine) OnCameraAcquired(cam Camera) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.camera = cam
	for _, ent := range e.entries {
		if ent.state != StateInitialized && ent.state != StateCameraReleased {
			continue
		}
		name := ent.plugin.Name()
		if err := e.bindOne(ent, cam); err != nil {
			log.Printf("plugin %s failed camera bind: %v", name, err)
			e.logEvent(name, "camera_bind_error", map[string]any{"error": err.Error()})
			continue
		}
		ent.state = StateCameraBound
	}
}

func (e *Engine) bindOne(ent *entry, cam Camera) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during camera bind: %v", r)
		}
	}()
	return ent.plugin.CameraAcquired(cam)
}

// OnCameraReleased notifies bound plugins that the camera session is going
// away, in reverse priority order, so a lower-priority plugin never observes
// a resource already torn down by a higher-priority one it depends on.
func (e *Engine) OnCameraReleased(cam Camera) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := len(e.entries) - 1; i >= 0; i-- {
		ent := e.entries[i]
		if ent.state != StateCameraBound {
			continue
		}
		e.releaseOne(ent, cam)
		ent.state = StateCameraReleased
	}
	e.camera = nil
}

func (e *Engine) releaseOne(ent *entry, cam Camera) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("plugin %s panicked during camera release: %v", ent.plugin.Name(), r)
		}
	}()
	ent.plugin.CameraReleased(cam)
}

// Shutdown moves every plugin to CleanedUp, best effort, in reverse priority
// order. Each plugin's Cleanup runs isolated so one broken plugin cannot
// block teardown of the rest. CleanedUp is terminal; Shutdown never returns
// an error.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := len(e.entries) - 1; i >= 0; i-- {
		ent := e.entries[i]
		if ent.state == StateCleanedUp {
			continue
		}
		e.cleanupOne(ent)
		ent.state = StateCleanedUp
	}
	e.camera = nil
}

func (e *Engine) cleanupOne(ent *entry) {
	name := ent.plugin.Name()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("plugin %s panicked during cleanup: %v", name, r)
		}
	}()
	if err := ent.plugin.Cleanup(); err != nil {
		log.Printf("plugin %s cleanup error: %v", name, err)
	}
}
