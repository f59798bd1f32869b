package rtb

import (
	"errors"
	"testing"
)

// populate leaves one element in each list: pending, rendering, drawing and
// idle (with resources and a contents-lost listener).
func populate(t *testing.T, h *harness) (p, r, d, i *fakeElement) {
	t.Helper()
	d = h.request(t, "drawing")
	h.tick(t)

	i = newElement(h.m, "idle", h.leaf)
	i.hasRes = true
	i.notify = true
	if err := i.SetState(StateIdle); err != nil {
		t.Fatal(err)
	}

	r = h.request(t, "rendering")
	if err := h.m.PickupForRender(); err != nil {
		t.Fatal(err)
	}
	p = h.request(t, "pending")

	want := map[*fakeElement]string{p: "pending", r: "rendering", d: "drawing", i: "idle"}
	for e, l := range want {
		if got := h.listOf(e); got != l {
			t.Fatalf("%s list = %s, want %s", e.name, got, l)
		}
	}
	return p, r, d, i
}

func TestCleanupDeviceRelatedResources(t *testing.T) {
	h := newHarness(t)
	p, r, d, i := populate(t, h)

	if err := h.m.CleanupDeviceRelatedResources(true); err != nil {
		t.Fatal(err)
	}

	for _, e := range []*fakeElement{p, r, d, i} {
		if len(e.cleanups) != 1 || !e.cleanups[0] {
			t.Errorf("%s CleanupHardwareResources = %v, want [true]", e.name, e.cleanups)
		}
	}
	for _, e := range []*fakeElement{p, r, d} {
		if e.state != StatePreparing {
			t.Errorf("%s state = %v, want Preparing", e.name, e.state)
		}
		if got := h.listOf(e); got != "pending" {
			t.Errorf("%s list = %s, want pending", e.name, got)
		}
	}
	if got := h.listOf(i); got != "none" {
		t.Errorf("idle list = %s, want none", got)
	}
	if !h.m.NeedsSurfaceContentsLost() {
		t.Error("NeedsSurfaceContentsLost = false, want true")
	}
	if got := h.m.Stats().Waits; got != 0 {
		t.Errorf("Waits = %d, want 0", got)
	}

	h.m.ClearSurfaceContentsLost()
	if h.m.NeedsSurfaceContentsLost() {
		t.Error("ClearSurfaceContentsLost did not clear")
	}

	// Requeued requests complete on the recovered device.
	h.tick(t)
	for _, e := range []*fakeElement{p, r, d} {
		if e.state != StateDrawing {
			t.Errorf("%s state after recovery = %v, want Drawing", e.name, e.state)
		}
	}
}

func TestCleanupWithoutNotification(t *testing.T) {
	h := newHarness(t)
	_, _, _, i := populate(t, h)
	i.notify = false

	if err := h.m.CleanupDeviceRelatedResources(false); err != nil {
		t.Fatal(err)
	}
	if h.m.NeedsSurfaceContentsLost() {
		t.Error("NeedsSurfaceContentsLost = true without a listener")
	}
	if len(i.cleanups) != 1 || i.cleanups[0] {
		t.Errorf("CleanupHardwareResources = %v, want [false]", i.cleanups)
	}
}

func TestCheckForLostSurfaceContent(t *testing.T) {
	h := newHarness(t)
	p, r, d, i := populate(t, h)
	i.lostRes = true
	r.lostRes = true

	if err := h.m.CheckForLostSurfaceContent(); err != nil {
		t.Fatal(err)
	}

	// Untouched elements.
	for _, e := range []*fakeElement{p, d} {
		if e.data.deviceCleanups != 0 || len(e.aborted) != 0 || len(e.cleanups) != 0 {
			t.Errorf("%s was cleaned without lost resources", e.name)
		}
	}
	if got := h.listOf(d); got != "drawing" {
		t.Errorf("drawing list = %s, want drawing", got)
	}
	if got := h.m.Stats().Waits; got != 1 {
		t.Errorf("Waits = %d, want 1", got)
	}

	for _, e := range []*fakeElement{r, i} {
		if e.data.deviceCleanups != 1 {
			t.Errorf("%s CleanupDeviceResources = %d, want 1", e.name, e.data.deviceCleanups)
		}
		if len(e.aborted) != 1 || !errors.Is(e.aborted[0], ErrReadback) {
			t.Errorf("%s AbortPixelWaits = %v, want [ErrReadback]", e.name, e.aborted)
		}
		if len(e.cleanups) != 0 {
			t.Errorf("%s got the full hardware cleanup", e.name)
		}
	}
	if r.state != StatePreparing || h.listOf(r) != "pending" {
		t.Errorf("rendering element state = %v list = %s, want Preparing pending", r.state, h.listOf(r))
	}
	if h.listOf(i) != "none" {
		t.Errorf("idle list = %s, want none", h.listOf(i))
	}
	if !h.m.NeedsSurfaceContentsLost() {
		t.Error("NeedsSurfaceContentsLost = false, want true")
	}
}

func TestLostDeviceKeepsDrawingUntilCleanup(t *testing.T) {
	h := newHarness(t)
	e := h.request(t, "e")
	h.tick(t)

	h.dev.setLost(true)
	e.events[0].Signal()
	h.complete(t)
	if e.state != StateDrawing {
		t.Fatalf("state = %v, want Drawing", e.state)
	}

	if err := h.m.CleanupDeviceRelatedResources(false); err != nil {
		t.Fatal(err)
	}
	h.dev.setLost(false)
	h.tick(t)
	if len(e.events) != 2 {
		t.Fatalf("PreCommit calls = %d, want 2", len(e.events))
	}
	e.events[1].Signal()
	h.complete(t)
	if e.state != StateIdle || e.postDraws != 1 {
		t.Errorf("state = %v postDraws = %d, want Idle 1", e.state, e.postDraws)
	}
}
