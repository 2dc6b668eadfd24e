// Package telemetry provides TelemetrySink implementations: a store-backed
// sink, an MQTT forwarder, a fanout, and a non-blocking buffered decorator.
//
// Frame dispatch must never block on telemetry. Drop events, never queue
// unbounded: the buffered sink holds a fixed queue and counts what it drops.
package telemetry

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/viewfinder/internal/store"
)

// event is one queued telemetry entry.
type event struct {
	plugin  string
	name    string
	payload map[string]any
}

// Buffered decorates a sink with a bounded queue drained by its own
// goroutine. LogEvent never blocks; when the queue is full the event is
// dropped and counted.
type Buffered struct {
	next    sink
	ch      chan event
	done    chan struct{}
	dropped atomic.Uint64
	once    sync.Once
}

// sink mirrors the engine's TelemetrySink contract without importing the
// engine package, keeping the dependency direction engine -> telemetry free.
type sink interface {
	LogEvent(pluginName, event string, payload map[string]any)
}

// NewBuffered wraps next with a queue of the given size (default 256).
func NewBuffered(next sink, size int) *Buffered {
	if size <= 0 {
		size = 256
	}
	b := &Buffered{
		next: next,
		ch:   make(chan event, size),
		done: make(chan struct{}),
	}
	go b.drain()
	return b
}

// LogEvent enqueues the event, dropping it if the queue is full.
func (b *Buffered) LogEvent(pluginName, name string, payload map[string]any) {
	select {
	case b.ch <- event{plugin: pluginName, name: name, payload: payload}:
	default:
		b.dropped.Add(1)
	}
}

// Dropped returns how many events have been discarded due to backpressure.
func (b *Buffered) Dropped() uint64 {
	return b.dropped.Load()
}

// Close stops the drain goroutine after flushing queued events.
func (b *Buffered) Close() {
	b.once.Do(func() {
		close(b.ch)
		<-b.done
	})
}

func (b *Buffered) drain() {
	defer close(b.done)
	for ev := range b.ch {
		b.next.LogEvent(ev.plugin, ev.name, ev.payload)
	}
}

// StoreSink persists events through the telemetry repository.
type StoreSink struct {
	repo *store.TelemetryRepository
}

// NewStoreSink creates a sink writing to the given repository.
func NewStoreSink(repo *store.TelemetryRepository) *StoreSink {
	return &StoreSink{repo: repo}
}

// LogEvent appends the event to the store; write failures are logged, never
// surfaced to the caller.
func (s *StoreSink) LogEvent(pluginName, name string, payload map[string]any) {
	if err := s.repo.Append(pluginName, name, payload); err != nil {
		log.Printf("telemetry: failed to persist %s/%s: %v", pluginName, name, err)
	}
}

// Fanout delivers every event to each sink in order.
type Fanout []sink

// LogEvent forwards the event to all member sinks.
func (f Fanout) LogEvent(pluginName, name string, payload map[string]any) {
	for _, s := range f {
		s.LogEvent(pluginName, name, payload)
	}
}

// LogSink writes events to the standard logger. Useful as a development
// default when no store or broker is configured.
type LogSink struct{}

// LogEvent prints the event.
func (LogSink) LogEvent(pluginName, name string, payload map[string]any) {
	if len(payload) == 0 {
		log.Printf("telemetry: %s %s", pluginName, name)
		return
	}
	log.Printf("telemetry: %s %s %v", pluginName, name, payload)
}

// timestamp used by forwarders that serialize events for external systems.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
