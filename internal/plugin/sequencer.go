package plugin

import (
	"fmt"
	"log"
)

// ApplyAll invokes every enabled, camera-bound hardware controller against
// the same camera handle, in priority order, sequentially. Controllers may
// legitimately touch overlapping controls; the defined conflict policy is
// last-writer-wins within the pass, so a later (higher priority number)
// controller can overwrite an earlier one's value.
//
// A controller's error or panic is logged as a Failure outcome and does not
// block subsequent controllers. ApplyAll always returns normally.
func (e *Engine) ApplyAll(cam Camera) []ControlOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	outcomes := make([]ControlOutcome, 0, len(e.entries))
	for _, ent := range e.entries {
		if ent.controller == nil || !ent.dispatchable() {
			continue
		}
		outcomes = append(outcomes, e.applyOneLocked(ent, cam))
	}
	return outcomes
}

// RequestApply re-applies controls for a single named plugin against the
// current camera session. Plugins call this (via the injected
// ControlRequester) after changing one of their own control-relevant
// settings, so a single change does not force a full pass over every
// controller.
//
// The apply happens asynchronously: RequestApply may be called from inside a
// frame handler, which already holds the engine lock. If the session is gone
// by the time the request runs, it is silently dropped.
func (e *Engine) RequestApply(pluginName string) {
	go func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		ent, ok := e.byName[pluginName]
		if !ok || ent.controller == nil || !ent.dispatchable() || e.camera == nil {
			return
		}
		e.applyOneLocked(ent, e.camera)
	}()
}

func (e *Engine) applyOneLocked(ent *entry, cam Camera) ControlOutcome {
	name := ent.plugin.Name()
	if err := e.applyControls(ent, cam); err != nil {
		log.Printf("plugin %s control apply error: %v", name, err)
		e.logEvent(name, "control_apply_error", map[string]any{"error": err.Error()})
		return ControlOutcome{Plugin: name, Kind: OutcomeFailure, Message: err.Error(), Err: err}
	}
	return ControlOutcome{Plugin: name, Kind: OutcomeSuccess, Message: "controls applied"}
}

func (e *Engine) applyControls(ent *entry, cam Camera) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during control apply: %v", r)
		}
	}()
	return ent.controller.ApplyControls(cam)
}
