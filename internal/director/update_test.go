package director

import "testing"

func TestUpdateSkipsIdleModels(t *testing.T) {
	f := newFixture(t)
	f.step(5)
	if got := f.mixer.Updates(); got != 0 {
		t.Fatalf("mixer updates with nothing playing = %d, want 0", got)
	}
	f.d.Play("M/Walk")
	f.step(2)
	if got := f.mixer.Updates(); got != 2 {
		t.Errorf("mixer updates while playing = %d, want 2", got)
	}
	f.d.Stop("M/Walk")
	f.step(3)
	if got := f.mixer.Updates(); got != 2 {
		t.Errorf("mixer updates after stop = %d, want 2", got)
	}
	if got := f.d.Frame(); got != 10 {
		t.Errorf("Frame() = %d, want 10", got)
	}
}

func TestUpdateSkipsPendingStart(t *testing.T) {
	f := newFixture(t)
	f.d.Configure("M/Walk", Params{StartDelay: Ptr(1.0)})
	f.d.Play("M/Walk")
	f.step(3)
	if got := f.mixer.Updates(); got != 0 {
		t.Errorf("a pending start is not live, mixer updates = %d", got)
	}
}

func TestSkinnedBoundsRefreshInterval(t *testing.T) {
	f := newFixture(t)
	arm := f.model.RootNode().Find("Arm")
	door := f.model.RootNode().Find("Door")

	f.step(10)
	if arm.BoundsRefreshes() != 0 {
		t.Fatal("idle models must not refresh bounds")
	}
	f.d.Play("M/Walk")
	f.step(20)
	if got := arm.BoundsRefreshes(); got != 2 {
		t.Errorf("skinned refreshes over 20 frames = %d, want 2", got)
	}
	if door.BoundsRefreshes() != 0 {
		t.Error("rigid meshes are not refreshed")
	}
}

func TestNegativeDeltaIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.d.Play("M/Walk")
	f.d.Update(-1)
	if got := f.status("M/Walk").Time; got != 0 {
		t.Errorf("time after negative delta = %v, want 0", got)
	}
}
