package plugin

import (
	"errors"
	"fmt"
	"log"
)

// Dispatch delivers one captured frame to every enabled, camera-bound frame
// observer, strictly in ascending priority order, sequentially on the calling
// goroutine. It is intended to be called once per captured frame from the
// frame source.
//
// Per plugin:
//   - a plugin still inside its throttle interval gets a Skip outcome and no
//     handler call;
//   - a handler error or panic becomes a Failure outcome and a
//     frame_processing_error telemetry event; the pass continues;
//   - ErrFrameSkipped from the handler becomes a Skip outcome.
//
// The dispatcher imposes no timeout. A slow handler degrades only its own
// effective frame rate through throttling on later passes; do not bolt a
// deadline onto this loop. Dispatch always returns normally.
func (e *Engine) Dispatch(frame Frame) []FrameOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	outcomes := make([]FrameOutcome, 0, len(e.entries))
	for _, ent := range e.entries {
		if ent.observer == nil || !ent.dispatchable() {
			continue
		}

		name := ent.plugin.Name()
		start := e.now()
		meta := FrameMetadata{
			Timestamp: start,
			Sequence:  frame.Sequence(),
			Width:     frame.Width(),
			Height:    frame.Height(),
		}

		if interval := ent.observer.ThrottleInterval(); interval > 0 && start.Sub(ent.lastRun) < interval {
			outcomes = append(outcomes, FrameOutcome{
				Plugin:  name,
				Kind:    OutcomeSkip,
				Message: "throttled",
				Meta:    meta,
			})
			continue
		}
		ent.lastRun = start

		data, err := e.processOne(ent, frame)
		meta.Duration = e.now().Sub(start)

		switch {
		case err == nil:
			outcomes = append(outcomes, FrameOutcome{
				Plugin: name,
				Kind:   OutcomeSuccess,
				Data:   data,
				Meta:   meta,
			})
		case errors.Is(err, ErrFrameSkipped):
			outcomes = append(outcomes, FrameOutcome{
				Plugin:  name,
				Kind:    OutcomeSkip,
				Message: err.Error(),
				Meta:    meta,
			})
		default:
			log.Printf("plugin %s frame %d processing error: %v", name, frame.Sequence(), err)
			e.logEvent(name, "frame_processing_error", map[string]any{
				"error":    err.Error(),
				"sequence": frame.Sequence(),
			})
			outcomes = append(outcomes, FrameOutcome{
				Plugin:  name,
				Kind:    OutcomeFailure,
				Message: err.Error(),
				Err:     err,
				Meta:    meta,
			})
		}
	}
	return outcomes
}

func (e *Engine) processOne(ent *entry, frame Frame) (data map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during frame processing: %v", r)
		}
	}()
	return ent.observer.ProcessFrame(frame)
}
