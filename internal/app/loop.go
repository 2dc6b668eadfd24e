package app

import (
	"log"
	"time"
)

// runLoop is the frame-producer loop. It reads frames from the camera at the
// configured rate and hands each one to the engine's dispatcher. Per-plugin
// throttling, ordering and failure isolation all happen inside Dispatch; the
// loop itself only paces capture and owns frame cleanup.
func (a *App) runLoop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	interval := time.Second / time.Duration(a.fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.camera.ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			a.engine.Dispatch(frame)
			frame.Close()
		}
	}
}
