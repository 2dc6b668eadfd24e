package plugin

import (
	"fmt"
	"log"
)

// View asks one named overlay renderer for its current view. It returns
// ErrPluginNotFound for an unknown name. A plugin that is disabled, not
// camera-bound, not an overlay renderer, or simply has nothing to render
// yields (nil, nil). A panicking renderer is treated as having nothing to
// render.
func (e *Engine) View(name string) (*View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPluginNotFound, name)
	}
	if ent.renderer == nil || !ent.dispatchable() {
		return nil, nil
	}
	return e.renderView(ent), nil
}

// Views returns the current view of every renderable plugin, keyed by plugin
// name, for UI hosts that composite all overlays at once. Z-order is the
// UI's concern; map iteration order carries no meaning.
func (e *Engine) Views() map[string]*View {
	e.mu.Lock()
	defer e.mu.Unlock()

	views := make(map[string]*View)
	for _, ent := range e.entries {
		if ent.renderer == nil || !ent.dispatchable() {
			continue
		}
		if v := e.renderView(ent); v != nil {
			views[ent.plugin.Name()] = v
		}
	}
	return views
}

func (e *Engine) renderView(ent *entry) (v *View) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("plugin %s panicked rendering overlay: %v", ent.plugin.Name(), r)
			v = nil
		}
	}()
	return ent.renderer.OverlayView()
}

// DeliverEvent routes a Show, Hide or StateChange to exactly one named
// plugin. There is no broadcast. Events for unknown plugins return
// ErrPluginNotFound; events for ineligible plugins are dropped silently.
func (e *Engine) DeliverEvent(name string, ev OverlayEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrPluginNotFound, name)
	}
	if ent.renderer == nil || !ent.dispatchable() {
		return nil
	}
	e.deliverOne(ent, ev)
	return nil
}

func (e *Engine) deliverOne(ent *entry, ev OverlayEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("plugin %s panicked handling overlay event: %v", ent.plugin.Name(), r)
		}
	}()
	ent.renderer.HandleOverlayEvent(ev)
}
