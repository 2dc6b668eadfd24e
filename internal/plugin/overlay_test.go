package plugin

import (
	"context"
	"errors"
	"testing"
)

func TestViewGating(t *testing.T) {
	e, _ := newTestEngine()
	ren := &fakeRenderer{
		fakePlugin: fakePlugin{name: "histogram", priority: 10},
		view:       &View{Kind: "histogram", Data: map[string]any{"bins": 32}},
	}
	register(t, e, ren)

	if _, err := e.View("ghost"); !errors.Is(err, ErrPluginNotFound) {
		t.Fatalf("expected ErrPluginNotFound for unknown plugin, got %v", err)
	}

	// Not camera-bound yet: nothing to render, no error.
	e.InitializeAll(context.Background())
	if v, err := e.View("histogram"); err != nil || v != nil {
		t.Fatalf("unbound renderer: view %v, err %v", v, err)
	}

	e.OnCameraAcquired(newFakeCamera())
	v, err := e.View("histogram")
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if v == nil || v.Kind != "histogram" {
		t.Fatalf("unexpected view: %+v", v)
	}
}

func TestViewNonRendererReturnsNil(t *testing.T) {
	e, _ := newTestEngine()
	register(t, e, &fakeObserver{fakePlugin: fakePlugin{name: "motion", priority: 10}})
	e.InitializeAll(context.Background())
	e.OnCameraAcquired(newFakeCamera())

	if v, err := e.View("motion"); err != nil || v != nil {
		t.Fatalf("non-renderer: view %v, err %v", v, err)
	}
}

func TestViewPanicYieldsNothing(t *testing.T) {
	e, _ := newTestEngine()
	register(t, e, &fakeRenderer{
		fakePlugin: fakePlugin{name: "flaky", priority: 10},
		viewPanics: true,
	})
	e.InitializeAll(context.Background())
	e.OnCameraAcquired(newFakeCamera())

	if v, err := e.View("flaky"); err != nil || v != nil {
		t.Fatalf("panicking renderer: view %v, err %v", v, err)
	}
}

func TestViewsOnlyRenderable(t *testing.T) {
	e, _ := newTestEngine()
	shown := &fakeRenderer{
		fakePlugin: fakePlugin{name: "shown", priority: 10},
		view:       &View{Kind: "text"},
	}
	empty := &fakeRenderer{fakePlugin: fakePlugin{name: "empty", priority: 20}}
	register(t, e, shown, empty,
		&fakeObserver{fakePlugin: fakePlugin{name: "observer", priority: 30}})

	e.InitializeAll(context.Background())
	e.OnCameraAcquired(newFakeCamera())

	views := e.Views()
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d: %v", len(views), views)
	}
	if _, ok := views["shown"]; !ok {
		t.Error("expected view for plugin shown")
	}
}

func TestDeliverEventRouting(t *testing.T) {
	e, _ := newTestEngine()
	a := &fakeRenderer{fakePlugin: fakePlugin{name: "a", priority: 10}}
	b := &fakeRenderer{fakePlugin: fakePlugin{name: "b", priority: 20}}
	register(t, e, a, b)

	e.InitializeAll(context.Background())
	e.OnCameraAcquired(newFakeCamera())

	ev := OverlayEvent{Kind: OverlayStateChange, Key: "bins", Value: 64}
	if err := e.DeliverEvent("a", ev); err != nil {
		t.Fatalf("DeliverEvent failed: %v", err)
	}

	// Exactly one named plugin receives the event; there is no broadcast.
	if got := a.events(); len(got) != 1 || got[0].Key != "bins" {
		t.Fatalf("a received %v, want one StateChange(bins)", got)
	}
	if got := b.events(); len(got) != 0 {
		t.Fatalf("b received %v, want none", got)
	}

	if err := e.DeliverEvent("ghost", ev); !errors.Is(err, ErrPluginNotFound) {
		t.Fatalf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestDeliverEventDisabledDropped(t *testing.T) {
	e, _ := newTestEngine()
	a := &fakeRenderer{fakePlugin: fakePlugin{name: "a", priority: 10}}
	register(t, e, a)

	e.InitializeAll(context.Background())
	e.OnCameraAcquired(newFakeCamera())
	if err := e.SetEnabled("a", false); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}

	if err := e.DeliverEvent("a", OverlayEvent{Kind: OverlayShow}); err != nil {
		t.Fatalf("DeliverEvent failed: %v", err)
	}
	if got := a.events(); len(got) != 0 {
		t.Fatalf("disabled renderer received events: %v", got)
	}
}
