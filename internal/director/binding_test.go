package director

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBindResolvesAndNotifies(t *testing.T) {
	f := newFixture(t)
	door := f.mesh("Door")
	if !f.d.Bind("M", door, "Open", BindingOptions{PlayOptions: PlayOptions{PlayMode: PlayModeClampEnd, Weight: Ptr(80.0)}}) {
		t.Fatal("Bind() = false")
	}
	b, ok := f.d.Binding("M", door)
	if !ok {
		t.Fatal("Binding() not found")
	}
	want := Resolved{
		PlaybackSpec:  PlaybackSpec{LoopMode: LoopOnce, LoopCount: 1, Direction: Forward, Speed: 1, Weight: 0.8, Clamp: true},
		ClickBehavior: ClickToggle,
	}
	if diff := cmp.Diff(want, b.Resolved); diff != "" {
		t.Errorf("resolved options mismatch (-want +got):\n%s", diff)
	}
	if b.AnimationID != "M/Open" || b.Split || b.Mesh().Name() != "Door" {
		t.Errorf("binding = %+v", b)
	}
	if f.count(EventMeshBound, "M/Open") != 1 {
		t.Error("bind should notify")
	}
}

func TestBindFailures(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name              string
		model, mesh, anim string
	}{
		{"unknown model", "X", f.mesh("Door"), "Open"},
		{"unknown mesh", "M", "M#99", "Open"},
		{"not a mesh", "M", f.mesh("Body"), "Open"},
		{"unknown animation", "M", f.mesh("Door"), "Fly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if f.d.Bind(tt.model, tt.mesh, tt.anim, BindingOptions{}) {
				t.Error("Bind() = true, want false")
			}
		})
	}
	if len(f.d.Bindings("")) != 0 {
		t.Error("failed binds must not install anything")
	}
}

func TestBindPlayModePrecedence(t *testing.T) {
	f := newFixture(t)
	door := f.mesh("Door")
	f.d.Bind("M", door, "Open", BindingOptions{PlayOptions: PlayOptions{
		PlayMode:  PlayModeLoop,
		PlayType:  PlayModeClampEnd,
		LoopMode:  Ptr(LoopOnce),
		Clamp:     Ptr(true),
		LoopType:  LoopTypeRepeat,
		LoopCount: Ptr(3),
	}})
	b, _ := f.d.Binding("M", door)
	if b.Resolved.LoopMode != LoopRepeat || b.Resolved.LoopCount != 3 || b.Resolved.Clamp {
		t.Errorf("resolved = %+v, play mode must win over raw fields", b.Resolved.PlaybackSpec)
	}
}

func TestRebindTearsDownPrevious(t *testing.T) {
	f := newFixture(t)
	door := f.mesh("Door")
	f.d.Bind("M", door, "Open", BindingOptions{PlayOptions: PlayOptions{PlayMode: PlayModeNormal, FadeOut: Ptr(0.5)}})
	if got := f.d.HandleClick("M", door); got != ClickStarted {
		t.Fatalf("HandleClick() = %v, want started", got)
	}
	f.step(1)
	if !f.d.timers.pending("M/Open", timerFade) {
		t.Fatal("fade-out should be pending before rebind")
	}

	f.d.Bind("M", door, "Wave", BindingOptions{})
	if got := len(f.d.Bindings("M")); got != 1 {
		t.Fatalf("bindings = %d, want exactly one", got)
	}
	if f.d.timers.pending("M/Open", timerFade) || f.status("M/Open").Enabled {
		t.Error("previous binding's playback and timers must be torn down")
	}
	f.step(8)
	if got := f.count(EventAnimationFinished, "M/Open"); got != 0 {
		t.Errorf("late finished events after rebind = %d, want 0", got)
	}
	f.assertRestored()
}

func TestUnbind(t *testing.T) {
	f := newFixture(t)
	door := f.mesh("Door")
	f.d.Bind("M", door, "Open", BindingOptions{})
	f.d.HandleClick("M", door)
	if !f.d.Unbind("M", door) {
		t.Fatal("Unbind() = false")
	}
	if f.d.ActiveCount("M") != 0 {
		t.Error("unbind should stop the playback it started")
	}
	if f.d.Unbind("M", door) {
		t.Error("second Unbind() should return false")
	}
	if f.count(EventMeshUnbound, "") != 1 {
		t.Error("unbind should notify once")
	}
}

func TestUpdateBindingLive(t *testing.T) {
	f := newFixture(t)
	door := f.mesh("Door")
	f.d.Bind("M", door, "Open", BindingOptions{PlayOptions: PlayOptions{PlayMode: PlayModeLoop}})
	f.d.HandleClick("M", door)
	f.step(2)

	if !f.d.UpdateBinding("M", door, BindingOptions{PlayOptions: PlayOptions{Speed: Ptr(2.0), Weight: Ptr(50.0)}, ClickBehavior: ClickRestart}) {
		t.Fatal("UpdateBinding() = false")
	}
	h := f.handle("Open")
	if h.TimeScale() != 2 || h.Weight() != 0.5 || h.Time() != 0.5 {
		t.Errorf("timescale/weight/time = %v/%v/%v, want 2/0.5/0.5", h.TimeScale(), h.Weight(), h.Time())
	}
	b, _ := f.d.Binding("M", door)
	if b.Resolved.LoopMode != LoopRepeat || b.Resolved.ClickBehavior != ClickRestart {
		t.Errorf("merged options lost fields: %+v", b.Resolved)
	}
	if f.count(EventBindingUpdated, "M/Open") != 1 {
		t.Error("update should notify")
	}
	if f.d.UpdateBinding("M", f.mesh("Lid"), BindingOptions{}) {
		t.Error("UpdateBinding() on an unbound mesh should return false")
	}
}

func TestClickToggle(t *testing.T) {
	f := newFixture(t)
	door := f.mesh("Door")
	f.d.Bind("M", door, "Open", BindingOptions{})

	steps := []struct {
		frames int
		want   ClickResult
	}{
		{0, ClickStarted},
		{1, ClickPaused},
		{1, ClickResumed},
	}
	for i, s := range steps {
		f.step(s.frames)
		if got := f.d.HandleClick("M", door); got != s.want {
			t.Fatalf("click %d = %v, want %v", i, got, s.want)
		}
	}
	if got := f.status("M/Open").Time; got != 0.25 {
		t.Errorf("time = %v, paused frame must not advance", got)
	}
	f.step(3)
	if f.d.ActiveCount("M") != 0 || f.count(EventAnimationFinished, "M/Open") != 1 {
		t.Error("one pass should finish and release the model")
	}
	if got := f.d.HandleClick("M", door); got != ClickStarted {
		t.Errorf("click after finish = %v, want started", got)
	}
	if got := f.d.HandleClick("M", f.mesh("Arm")); got != ClickIgnored {
		t.Errorf("click on unbound mesh = %v, want ignored", got)
	}
}

func TestClickRestartOrReverse(t *testing.T) {
	f := newFixture(t)
	door := f.mesh("Door")
	f.d.Bind("M", door, "Open", BindingOptions{
		PlayOptions:   PlayOptions{PlayMode: PlayModeClampEnd},
		ClickBehavior: ClickRestartOrReverse,
	})

	if got := f.d.HandleClick("M", door); got != ClickStarted {
		t.Fatalf("first click = %v, want started", got)
	}
	f.step(2)
	if got := f.d.HandleClick("M", door); got != ClickRestarted {
		t.Fatalf("mid-run click = %v, want restarted", got)
	}
	if got := f.status("M/Open").Time; got != 0 {
		t.Errorf("restart time = %v, want 0", got)
	}
	f.step(4)
	if st := f.status("M/Open"); !st.Paused || st.Time != 1 {
		t.Fatalf("want held at end, got %+v", st)
	}

	if got := f.d.HandleClick("M", door); got != ClickReversed {
		t.Fatalf("click at end = %v, want reversed", got)
	}
	h := f.handle("Open")
	if h.TimeScale() != -1 || h.Time() != 1 {
		t.Errorf("reverse start timescale/time = %v/%v, want -1/1", h.TimeScale(), h.Time())
	}
	f.step(5)
	if st := f.status("M/Open"); !st.Paused || st.Time != 0 {
		t.Fatalf("want held at start after reverse, got %+v", st)
	}
	if got := f.d.HandleClick("M", door); got != ClickReversed {
		t.Errorf("click at reverse end = %v, want reversed", got)
	}
	if h.TimeScale() != 1 {
		t.Errorf("timescale = %v, want forward again", h.TimeScale())
	}
}

func TestClickReverseWhileRunning(t *testing.T) {
	f := newFixture(t)
	lid := f.mesh("Lid")
	f.d.Bind("M", lid, "Open", BindingOptions{ClickBehavior: ClickReverse})
	f.d.HandleClick("M", lid)
	f.step(2)
	if got := f.d.HandleClick("M", lid); got != ClickReversed {
		t.Fatalf("click while running = %v, want reversed", got)
	}
	f.step(1)
	if got := f.status("M/Open").Time; got != 0.25 {
		t.Errorf("time = %v, want 0.25 after reversing at 0.5", got)
	}
}

func TestClickReversePingPongKeepsPositiveTimescale(t *testing.T) {
	f := newFixture(t)
	door := f.mesh("Door")
	f.d.Bind("M", door, "Walk", BindingOptions{
		PlayOptions:   PlayOptions{PlayMode: PlayModePingPong},
		ClickBehavior: ClickReverse,
	})
	if got := f.d.HandleClick("M", door); got != ClickStarted {
		t.Fatalf("first click = %v, want started", got)
	}
	f.step(1)
	if got := f.d.HandleClick("M", door); got != ClickReversed {
		t.Fatalf("second click = %v, want reversed", got)
	}
	h := f.handle("Walk")
	if h.TimeScale() <= 0 {
		t.Errorf("timescale = %v, ping-pong must stay positive", h.TimeScale())
	}
	if got := f.status("M/Walk").Time; got != 2 {
		t.Errorf("time = %v, want the reverse run to start from the end", got)
	}
	if f.d.ActiveCount("M") != 1 {
		t.Errorf("active count = %d, want 1", f.d.ActiveCount("M"))
	}
}

func TestClickRestart(t *testing.T) {
	f := newFixture(t)
	door := f.mesh("Door")
	f.d.Bind("M", door, "Walk", BindingOptions{ClickBehavior: ClickRestart})
	f.d.HandleClick("M", door)
	f.step(3)
	if got := f.d.HandleClick("M", door); got != ClickRestarted {
		t.Fatalf("click = %v, want restarted", got)
	}
	if f.d.ActiveCount("M") != 1 || f.status("M/Walk").Time != 0 {
		t.Error("restart must rewind without double counting")
	}
}

func TestHover(t *testing.T) {
	f := newFixture(t)
	door := f.mesh("Door")
	f.d.Bind("M", door, "Open", BindingOptions{})

	if !f.d.Hover("M", door) {
		t.Error("Hover() on a bound mesh = false")
	}
	if diff := cmp.Diff([]string{"Door"}, f.hl.current[IntentHover]); diff != "" {
		t.Errorf("hover highlight mismatch (-want +got):\n%s", diff)
	}
	if f.d.Hover("M", f.mesh("Arm")) {
		t.Error("Hover() on an unbound mesh = true")
	}
	if _, ok := f.hl.current[IntentHover]; ok {
		t.Error("hover highlight should be cleared")
	}
}
