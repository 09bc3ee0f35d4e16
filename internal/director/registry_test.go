package director

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestRegisterModelDefaults(t *testing.T) {
	f := newFixture(t)

	st := f.status("M/Walk")
	if st.Enabled || st.Running {
		t.Errorf("new animation should be idle, got %+v", st)
	}
	if st.LoopMode != LoopRepeat || st.LoopCount != Infinite {
		t.Errorf("loop = %v/%d, want repeat/infinite", st.LoopMode, st.LoopCount)
	}
	if st.Speed != 1 || st.Weight != 1 || st.Direction != Forward {
		t.Errorf("speed/weight/direction = %v/%v/%v, want 1/1/forward", st.Speed, st.Weight, st.Direction)
	}
	if f.handle("Walk").Enabled() {
		t.Error("registered handles must start disabled")
	}
	if f.count(EventAnimationsLoaded, "") != 1 {
		t.Errorf("animations-loaded events = %d, want 1", f.count(EventAnimationsLoaded, ""))
	}
}

func TestConfigureUnknown(t *testing.T) {
	f := newFixture(t)
	if f.d.Configure("M/Nope", Params{Speed: Ptr(2.0)}) {
		t.Error("Configure() on unknown id should return false")
	}
	ids := f.d.SplitByTime("M", "Walk", []TimeRange{{Start: 0, End: 1}}, nil)
	if f.d.Configure(ids[0], Params{Speed: Ptr(2.0)}) {
		t.Error("Configure() on a split should return false")
	}
}

func TestConfigureWeightClamp(t *testing.T) {
	tests := []struct {
		name string
		ui   float64
		want float64
	}{
		{"negative", -5, 0},
		{"zero", 0, 0},
		{"half", 50, 0.5},
		{"full", 100, 1},
		{"over", 150, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if !f.d.Configure("M/Open", Params{Weight: Ptr(tt.ui)}) {
				t.Fatal("Configure() = false")
			}
			if got := f.status("M/Open").Weight; got != tt.want {
				t.Errorf("weight = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigureRoundTrip(t *testing.T) {
	f := newFixture(t)
	ok := f.d.Configure("M/Walk", Params{
		Speed:      Ptr(-2.0),
		Direction:  Ptr(-1),
		LoopMode:   Ptr(LoopPingPong),
		LoopCount:  Ptr(3),
		StartDelay: Ptr(1500.0),
		FadeIn:     Ptr(500.0),
		FadeOut:    Ptr(2.0),
		Weight:     Ptr(40.0),
	})
	if !ok {
		t.Fatal("Configure() = false")
	}

	want := AnimationStatus{
		AnimationInfo: AnimationInfo{ID: "M/Walk", ModelID: "M", Name: "Walk", Duration: 2},
		Speed:         2,
		Direction:     Reverse,
		LoopMode:      LoopPingPong,
		LoopCount:     3,
		StartDelay:    1.5,
		FadeIn:        0.5,
		FadeOut:       2,
		Weight:        0.4,
		WeightPercent: 40,
	}
	got := f.status("M/Walk")
	opts := cmpopts.IgnoreFields(AnimationStatus{}, "Previewing", "Paused", "Time")
	if diff := cmp.Diff(want, got, opts); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigureSynonyms(t *testing.T) {
	f := newFixture(t)
	f.d.Configure("M/Open", Params{
		StartDelay:     Ptr(0.0),
		StartDelayTime: Ptr(5.0),
		FadeInTime:     Ptr(250.0),
		LoopType:       LoopTypePingPong,
		LoopCount:      Ptr(2),
		LoopMode:       Ptr(LoopOnce),
	})
	st := f.status("M/Open")
	if st.StartDelay != 0 {
		t.Errorf("start delay = %v, canonical field must win", st.StartDelay)
	}
	if st.FadeIn != 0.25 {
		t.Errorf("fade in = %v, want 0.25 from legacy field", st.FadeIn)
	}
	if st.LoopMode != LoopPingPong || st.LoopCount != 2 {
		t.Errorf("loop = %v/%d, loop type must win over loop mode", st.LoopMode, st.LoopCount)
	}

	if !f.d.Configure("M/Open", Params{ActiveType: Ptr(1), Enabled: Ptr(false)}) {
		t.Fatal("Configure() = false")
	}
	if f.status("M/Open").Enabled {
		t.Error("Enabled must win over ActiveType")
	}
	f.d.Configure("M/Open", Params{ActiveType: Ptr(1)})
	if !f.status("M/Open").Enabled || f.d.ActiveCount("M") != 1 {
		t.Error("ActiveType 1 should enable the animation")
	}
	f.d.Configure("M/Open", Params{ActiveType: Ptr(0)})
	if f.status("M/Open").Enabled || f.d.ActiveCount("M") != 0 {
		t.Error("ActiveType 0 should disable the animation")
	}
}

func TestConfigureEnableTwiceCountsOnce(t *testing.T) {
	f := newFixture(t)
	f.d.Configure("M/Walk", Params{Enabled: Ptr(true)})
	f.d.Configure("M/Walk", Params{Enabled: Ptr(true)})
	if got := f.d.ActiveCount("M"); got != 1 {
		t.Errorf("ActiveCount = %d, want 1", got)
	}
}

func TestConfigureLiveWhilePlaying(t *testing.T) {
	f := newFixture(t)
	f.d.Configure("M/Walk", Params{Enabled: Ptr(true)})
	f.step(2)
	f.d.Configure("M/Walk", Params{Speed: Ptr(3.0), Weight: Ptr(50.0)})

	h := f.handle("Walk")
	if h.TimeScale() != 3 || h.Weight() != 0.5 {
		t.Errorf("timescale/weight = %v/%v, want 3/0.5", h.TimeScale(), h.Weight())
	}
	if h.Time() != 0.5 {
		t.Errorf("time = %v, live changes must not restart", h.Time())
	}
}

func TestWeightPreview(t *testing.T) {
	f := newFixture(t)
	f.d.Configure("M/Walk", Params{Weight: Ptr(0.0)})
	f.d.Configure("M/Walk", Params{Weight: Ptr(50.0)})

	st := f.status("M/Walk")
	if !st.Previewing || st.Enabled {
		t.Fatalf("want preview without enabling, got %+v", st)
	}
	if st.Time != 0.5 || !st.Paused {
		t.Errorf("preview time/paused = %v/%v, want 0.5/true", st.Time, st.Paused)
	}
	if f.d.ActiveCount("M") != 0 {
		t.Errorf("preview must not touch the active count")
	}

	f.step(1)
	// Halfway between the snapshot (1,2,3) and the pose at 0.5s (1,0,0).
	pos := f.model.Transform().Position
	if pos.X != 1 || pos.Y != 1 || pos.Z != 1.5 {
		t.Errorf("previewed position = %+v, want {1 1 1.5}", pos)
	}
	if f.status("M/Walk").Time != 0.5 {
		t.Error("preview must stay paused")
	}

	f.d.Configure("M/Walk", Params{Weight: Ptr(0.0)})
	if f.status("M/Walk").Previewing {
		t.Error("zero weight should end the preview")
	}
	f.assertRestored()
}

func TestWeightChangeDuringPendingDelay(t *testing.T) {
	f := newFixture(t)
	f.d.Configure("M/Walk", Params{StartDelay: Ptr(0.5), Enabled: Ptr(true)})
	f.d.Configure("M/Walk", Params{Weight: Ptr(30.0)})

	st := f.status("M/Walk")
	if !st.Pending || st.Previewing {
		t.Fatalf("pending start must take precedence over preview, got %+v", st)
	}
	f.step(2)
	h := f.handle("Walk")
	if !h.IsRunning() {
		t.Fatal("delayed start should have launched")
	}
	if h.Weight() != 0.3 {
		t.Errorf("weight = %v, want the value set during the delay", h.Weight())
	}
}

func TestFindPrecedence(t *testing.T) {
	f := newFixture(t)
	if info, ok := f.d.Find("M", "Walk"); !ok || info.ID != "M/Walk" || info.Split {
		t.Fatalf("Find(Walk) = %+v, %v", info, ok)
	}
	ids := f.d.SplitByTime("M", "Open", []TimeRange{{Start: 0, End: 0.5}}, []string{"Walk"})
	info, ok := f.d.Find("M", "Walk")
	if !ok || info.ID != ids[0] || !info.Split {
		t.Errorf("a split sharing a name must win, got %+v", info)
	}
	if info, _ := f.d.Find("M", "M/Walk"); info.ID != "M/Walk" {
		t.Errorf("exact id lookup = %q, want M/Walk", info.ID)
	}
	if _, ok := f.d.Find("X", "Walk"); ok {
		t.Error("unknown model should not resolve")
	}
}

func TestUnregisterModel(t *testing.T) {
	f := newFixture(t)
	f.d.Bind("M", f.mesh("Door"), "Open", BindingOptions{})
	f.d.Play("M/Walk")
	if !f.d.UnregisterModel("M") {
		t.Fatal("UnregisterModel() = false")
	}
	if f.d.ActiveCount("M") != 0 || f.d.Animations("M") != nil || len(f.d.Bindings("M")) != 0 {
		t.Error("model state should be gone")
	}
	if f.count(EventMeshUnbound, "") != 1 {
		t.Errorf("unbound events = %d, want 1", f.count(EventMeshUnbound, ""))
	}
	if f.d.UnregisterModel("M") {
		t.Error("second UnregisterModel() should return false")
	}
}
