package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/viewfinder/internal/plugin"
)

// handleListPlugins returns every registered plugin in execution order.
func (s *Server) handleListPlugins(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"plugins": s.config.Engine.Plugins()})
}

// handleGetPlugin returns one plugin's descriptor and state.
func (s *Server) handleGetPlugin(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	info, err := s.config.Engine.PluginInfo(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleSetEnabled toggles a plugin's pipeline participation.
func (s *Server) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"enabled\": bool}")
		return
	}

	if err := s.config.Engine.SetEnabled(name, *body.Enabled); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	info, err := s.config.Engine.PluginInfo(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleOverlayView returns one plugin's current overlay view, or 204 when
// it has nothing to render.
func (s *Server) handleOverlayView(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	view, err := s.config.Engine.View(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if view == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleOverlayViews returns all current overlay views keyed by plugin name.
func (s *Server) handleOverlayViews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"overlays": s.config.Engine.Views()})
}

// overlayEventBody is the wire form of an overlay event.
type overlayEventBody struct {
	Kind  string `json:"kind"`
	Key   string `json:"key,omitempty"`
	Value any    `json:"value,omitempty"`
}

// handleOverlayEvent routes a Show, Hide or StateChange to one plugin.
func (s *Server) handleOverlayEvent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var body overlayEventBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event body")
		return
	}

	var ev plugin.OverlayEvent
	switch body.Kind {
	case "show":
		ev = plugin.OverlayEvent{Kind: plugin.OverlayShow}
	case "hide":
		ev = plugin.OverlayEvent{Kind: plugin.OverlayHide}
	case "state_change":
		if body.Key == "" {
			writeError(w, http.StatusBadRequest, "state_change requires a key")
			return
		}
		ev = plugin.OverlayEvent{Kind: plugin.OverlayStateChange, Key: body.Key, Value: body.Value}
	default:
		writeError(w, http.StatusBadRequest, "kind must be show, hide or state_change")
		return
	}

	if err := s.config.Engine.DeliverEvent(name, ev); err != nil {
		if errors.Is(err, plugin.ErrPluginNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleApplyControls re-runs the control sequencer against the current
// camera session.
func (s *Server) handleApplyControls(w http.ResponseWriter, r *http.Request) {
	session := s.config.Camera.Session()
	if session == nil {
		writeError(w, http.StatusConflict, "no active camera session")
		return
	}

	outcomes := s.config.Engine.ApplyAll(session)
	results := make([]map[string]any, 0, len(outcomes))
	for _, o := range outcomes {
		results = append(results, map[string]any{
			"plugin":  o.Plugin,
			"outcome": o.Kind.String(),
			"message": o.Message,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// handleTelemetry returns recent telemetry events, optionally filtered by
// plugin via ?plugin=name, newest first.
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	var events any
	var err error
	if name := r.URL.Query().Get("plugin"); name != "" {
		events, err = s.config.Telemetry.RecentByPlugin(name, limit)
	} else {
		events, err = s.config.Telemetry.Recent(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// handlePluginSettings returns one plugin's persisted settings.
func (s *Server) handlePluginSettings(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	values, err := s.config.Settings.List(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": values})
}
