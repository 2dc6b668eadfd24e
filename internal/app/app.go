// Package app wires the camera, the plugin engine and the frame loop into
// the running Viewfinder application.
package app

import (
	"log"
	"sync"

	"github.com/ayusman/viewfinder/internal/camera"
	"github.com/ayusman/viewfinder/internal/plugin"
)

// Config holds configuration options for the application.
type Config struct {
	Engine   *plugin.Engine
	Camera   camera.Camera
	CameraID int
	FPS      int
}

// App owns the capture session and feeds frames to the plugin engine. It is
// the single frame-producer context: dispatch passes run sequentially on the
// frame loop goroutine, lifecycle transitions run on whichever goroutine
// calls Start/Stop, and the engine serializes the two.
type App struct {
	engine  *plugin.Engine
	camera  camera.Camera
	fps     int
	enabled bool
	mu      sync.RWMutex
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	cam := config.Camera
	if cam == nil {
		cam = camera.New(config.CameraID)
	}

	fps := config.FPS
	if fps <= 0 {
		fps = camera.DefaultFPS
	}

	return &App{
		engine:  config.Engine,
		camera:  cam,
		fps:     fps,
		enabled: true,
	}
}

// Start opens the camera, binds every plugin to the new session, applies
// hardware controls, and begins the frame loop. Calling Start on a running
// app is a no-op.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.fps)

	session := a.camera.Session()
	a.engine.OnCameraAcquired(session)
	a.engine.ApplyAll(session)

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runLoop(a.stopCh, a.doneCh)

	log.Println("Capture pipeline started")
	return nil
}

// Stop halts the frame loop, releases every plugin from the session, and
// closes the camera. Plugins keep their lifecycle state and rebind on the
// next Start.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh = nil
	a.doneCh = nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}

	// The loop may be blocked on the enabled check, so the lock must be
	// released before waiting for it to drain.
	close(stopCh)
	<-doneCh

	a.engine.OnCameraReleased(a.camera.Session())

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	log.Println("Capture pipeline stopped")
}

// Close stops the pipeline and cleans up every plugin. The app cannot be
// restarted afterwards.
func (a *App) Close() {
	a.Stop()
	a.engine.Shutdown()
}

// SetEnabled pauses or resumes frame dispatch without touching plugin
// lifecycle state or the camera session.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether frame dispatch is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// IsRunning returns whether the capture pipeline is active.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// Engine returns the plugin engine.
func (a *App) Engine() *plugin.Engine {
	return a.engine
}

// Camera returns the camera instance.
func (a *App) Camera() camera.Camera {
	return a.camera
}
