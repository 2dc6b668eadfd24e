package plugin

import (
	"context"
	"sync"
	"time"
)

// Shared fakes for engine tests. Each fake capability type embeds fakePlugin
// so the engine discovers capabilities through the same type assertions it
// uses for real plugins.

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

type sinkEvent struct {
	plugin  string
	event   string
	payload map[string]any
}

type fakeSink struct {
	mu     sync.Mutex
	events []sinkEvent
}

func (s *fakeSink) LogEvent(pluginName, event string, payload map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sinkEvent{plugin: pluginName, event: event, payload: payload})
}

func (s *fakeSink) byEvent(event string) []sinkEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sinkEvent
	for _, ev := range s.events {
		if ev.event == event {
			out = append(out, ev)
		}
	}
	return out
}

type fakeSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: make(map[string]string)}
}

func (s *fakeSettings) Get(pluginName, key, defaultValue string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[pluginName+"/"+key]; ok {
		return v
	}
	return defaultValue
}

func (s *fakeSettings) Set(pluginName, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[pluginName+"/"+key] = value
}

type controlWrite struct {
	name  string
	value float64
}

type fakeCamera struct {
	mu      sync.Mutex
	applied []controlWrite
	values  map[string]float64
}

func newFakeCamera() *fakeCamera {
	return &fakeCamera{values: make(map[string]float64)}
}

func (c *fakeCamera) ApplyControl(name string, value float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applied = append(c.applied, controlWrite{name: name, value: value})
	c.values[name] = value
	return nil
}

func (c *fakeCamera) ControlValue(name string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[name], nil
}

func (c *fakeCamera) writes() []controlWrite {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]controlWrite, len(c.applied))
	copy(out, c.applied)
	return out
}

// fakePlugin implements only the base Plugin contract.
type fakePlugin struct {
	name         string
	priority     int
	log          *callLog
	initErr      error
	initPanic    bool
	bindErr      error
	cleanupPanic bool
}

func (p *fakePlugin) Name() string   { return p.name }
func (p *fakePlugin) Version() string { return "1.0.0" }
func (p *fakePlugin) Priority() int  { return p.priority }

func (p *fakePlugin) Initialize(ctx context.Context, deps Deps) error {
	if p.log != nil {
		p.log.add(p.name + ".init")
	}
	if p.initPanic {
		panic("init exploded")
	}
	return p.initErr
}

func (p *fakePlugin) CameraAcquired(cam Camera) error {
	if p.log != nil {
		p.log.add(p.name + ".bind")
	}
	return p.bindErr
}

func (p *fakePlugin) CameraReleased(cam Camera) {
	if p.log != nil {
		p.log.add(p.name + ".release")
	}
}

func (p *fakePlugin) Cleanup() error {
	if p.log != nil {
		p.log.add(p.name + ".cleanup")
	}
	if p.cleanupPanic {
		panic("cleanup exploded")
	}
	return nil
}

type fakeObserver struct {
	fakePlugin
	throttle  time.Duration
	processFn func(Frame) (map[string]any, error)
}

func (p *fakeObserver) ThrottleInterval() time.Duration { return p.throttle }

func (p *fakeObserver) ProcessFrame(f Frame) (map[string]any, error) {
	if p.log != nil {
		p.log.add(p.name + ".frame")
	}
	if p.processFn != nil {
		return p.processFn(f)
	}
	return map[string]any{"seen": f.Sequence()}, nil
}

type fakeController struct {
	fakePlugin
	applyFn func(Camera) error
}

func (p *fakeController) ApplyControls(cam Camera) error {
	if p.log != nil {
		p.log.add(p.name + ".apply")
	}
	if p.applyFn != nil {
		return p.applyFn(cam)
	}
	return nil
}

type fakeRenderer struct {
	fakePlugin
	mu         sync.Mutex
	view       *View
	viewPanics bool
	received   []OverlayEvent
}

func (p *fakeRenderer) OverlayView() *View {
	if p.viewPanics {
		panic("render exploded")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

func (p *fakeRenderer) HandleOverlayEvent(ev OverlayEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.received = append(p.received, ev)
}

func (p *fakeRenderer) events() []OverlayEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]OverlayEvent, len(p.received))
	copy(out, p.received)
	return out
}

type testFrame struct {
	w, h int
	seq  uint64
	ts   time.Time
	px   []byte
}

func (f *testFrame) Width() int           { return f.w }
func (f *testFrame) Height() int          { return f.h }
func (f *testFrame) Sequence() uint64     { return f.seq }
func (f *testFrame) Timestamp() time.Time { return f.ts }
func (f *testFrame) Pixels() []byte       { return f.px }

func newTestFrame(seq uint64) *testFrame {
	return &testFrame{w: 640, h: 480, seq: seq, ts: time.Now()}
}

func newTestEngine() (*Engine, *fakeSink) {
	sink := &fakeSink{}
	return NewEngine(newFakeSettings(), sink), sink
}
