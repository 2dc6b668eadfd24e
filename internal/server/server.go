// Package server exposes the Viewfinder HTTP surface: plugin administration,
// overlay views and events, telemetry queries, a live event stream and an
// MJPEG camera preview.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ayusman/viewfinder/internal/camera"
	"github.com/ayusman/viewfinder/internal/plugin"
	"github.com/ayusman/viewfinder/internal/store"
)

// Config holds the server configuration.
type Config struct {
	Engine    *plugin.Engine
	Camera    camera.Camera
	Telemetry *store.TelemetryRepository
	Settings  *store.SettingsRepository
	StaticDir string

	// Hub carries live telemetry to websocket clients. When nil the server
	// creates its own; the host injects one so it can wire the hub into the
	// telemetry fanout before the engine starts producing events.
	Hub *EventHub
}

// Server is the HTTP UI host for the Viewfinder application.
type Server struct {
	config Config
	router chi.Router
	hub    *EventHub
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	hub := config.Hub
	if hub == nil {
		hub = NewEventHub()
	}
	s := &Server{
		config: config,
		router: chi.NewRouter(),
		hub:    hub,
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// Hub returns the websocket event hub. The hosting application adds it to
// the telemetry fanout so browser clients see events live.
func (s *Server) Hub() *EventHub {
	return s.hub
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)

	s.router.Get("/api/health", s.handleHealth)

	if s.config.Engine != nil {
		s.router.Get("/api/plugins", s.handleListPlugins)
		s.router.Get("/api/plugins/{name}", s.handleGetPlugin)
		s.router.Put("/api/plugins/{name}/enabled", s.handleSetEnabled)
		s.router.Get("/api/plugins/{name}/overlay", s.handleOverlayView)
		s.router.Get("/api/overlays", s.handleOverlayViews)
		s.router.Post("/api/plugins/{name}/overlay/events", s.handleOverlayEvent)
	}

	if s.config.Engine != nil && s.config.Camera != nil {
		s.router.Post("/api/controls/apply", s.handleApplyControls)
	}

	if s.config.Telemetry != nil {
		s.router.Get("/api/telemetry", s.handleTelemetry)
	}

	if s.config.Settings != nil {
		s.router.Get("/api/plugins/{name}/settings", s.handlePluginSettings)
	}

	s.router.Get("/api/events", s.hub.ServeHTTP)

	if s.config.Camera != nil {
		s.router.Get("/api/stream", s.handleStream)
	}

	if s.config.StaticDir != "" {
		s.router.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
