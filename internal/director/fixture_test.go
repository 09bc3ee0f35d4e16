package director

import (
	"testing"

	"github.com/Faultbox/animdirector/internal/engine"
	"github.com/Faultbox/animdirector/internal/engine/scene"
	"github.com/Faultbox/animdirector/internal/engine/sim"
	"github.com/Faultbox/animdirector/pkg/math"
)

const tick = 0.25

var snapshot = engine.Transform{
	Position: math.Vec3{X: 1, Y: 2, Z: 3},
	Rotation: math.QuatIdentity(),
	Scale:    math.Vec3One(),
}

type recordingHighlighter struct {
	current map[Intent][]string
	calls   int
}

func newRecordingHighlighter() *recordingHighlighter {
	return &recordingHighlighter{current: make(map[Intent][]string)}
}

func (h *recordingHighlighter) Highlight(_ string, meshes []engine.Node, intent Intent) {
	h.calls++
	names := make([]string, 0, len(meshes))
	for _, m := range meshes {
		names = append(names, m.Name())
	}
	h.current[intent] = names
}

func (h *recordingHighlighter) Clear(_ string, intent Intent) {
	delete(h.current, intent)
}

type fixture struct {
	t      *testing.T
	d      *Director
	model  *scene.Model
	mixer  *sim.Mixer
	ids    *scene.IdentityTable
	hl     *recordingHighlighter
	events []Event
}

// buildRobot returns Robot{Body{Door, Lid}, Arm}. Door, Lid and Arm are
// meshes; Arm is skinned.
func buildRobot(withLid bool) *scene.Node {
	root := scene.NewNode(scene.NodeSpec{Name: "Robot"})
	body := root.Add(scene.NewNode(scene.NodeSpec{Name: "Body"}))
	body.Add(scene.NewNode(scene.NodeSpec{Name: "Door", Mesh: true}))
	if withLid {
		body.Add(scene.NewNode(scene.NodeSpec{Name: "Lid", Mesh: true}))
	}
	root.Add(scene.NewNode(scene.NodeSpec{Name: "Arm", Mesh: true, Skinned: true}))
	return root
}

func buildClips() []*sim.Clip {
	return []*sim.Clip{
		sim.MustClip("Walk", 2, engine.Track{
			Name: "Robot.position", Stride: 3,
			Times:  []float64{0, 1, 2},
			Values: []float64{0, 0, 0, 2, 0, 0, 4, 0, 0},
		}),
		sim.MustClip("Open", 1, engine.Track{
			Name: "Door.quaternion", Stride: 4,
			Times:  []float64{0, 1},
			Values: []float64{0, 0, 0, 1, 0, 0.70710678, 0, 0.70710678},
		}),
		sim.MustClip("Wave", 1, engine.Track{
			Name: "Body.position", Stride: 3,
			Times:  []float64{0, 0.5, 1},
			Values: []float64{0, 0, 0, 0, 1, 0, 0, 0, 0},
		}),
		sim.MustClip("Blink", 0.01, engine.Track{
			Name: "Arm.scale", Stride: 3,
			Times:  []float64{0},
			Values: []float64{2, 2, 2},
		}),
		sim.MustClip("Ghost", 1, engine.Track{
			Name: "Nobody.position", Stride: 3,
			Times:  []float64{0},
			Values: []float64{0, 0, 0},
		}),
	}
}

func newModel(ids *scene.IdentityTable, withLid bool) (*scene.Model, *sim.Mixer) {
	root := buildRobot(withLid)
	ids.Assign("M", root)
	model := scene.NewModel("M", root)
	model.SetTransform(snapshot)
	mixer := sim.NewMixer(model)
	for _, c := range buildClips() {
		model.AddClip(c)
	}
	return model, mixer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, ids: scene.NewIdentityTable(), hl: newRecordingHighlighter()}
	f.model, f.mixer = newModel(f.ids, true)
	f.d = New(sim.Factory{}, Options{Highlighter: f.hl})
	f.d.Subscribe(func(ev Event) { f.events = append(f.events, ev) })
	if got := len(f.d.RegisterModel(f.model)); got != 5 {
		t.Fatalf("RegisterModel() = %d animations, want 5", got)
	}
	return f
}

func (f *fixture) step(n int) {
	for i := 0; i < n; i++ {
		f.d.Update(tick)
	}
}

func (f *fixture) mesh(name string) string {
	f.t.Helper()
	n := f.model.RootNode().Find(name)
	if n == nil {
		f.t.Fatalf("no node %q", name)
	}
	return n.ID()
}

func (f *fixture) handle(name string) engine.Handle {
	f.t.Helper()
	for _, c := range f.model.Clips() {
		if c.Name() == name {
			return f.mixer.Action(c)
		}
	}
	f.t.Fatalf("no clip %q", name)
	return nil
}

func (f *fixture) status(id string) AnimationStatus {
	f.t.Helper()
	st, ok := f.d.Status(id)
	if !ok {
		f.t.Fatalf("Status(%q) not found", id)
	}
	return st
}

func (f *fixture) count(typ EventType, animationID string) int {
	n := 0
	for _, ev := range f.events {
		if ev.Type == typ && (animationID == "" || ev.AnimationID == animationID) {
			n++
		}
	}
	return n
}

func (f *fixture) assertRestored() {
	f.t.Helper()
	if got := f.model.Transform(); !got.ApproxEqual(snapshot, 1e-9) {
		f.t.Errorf("model transform = %+v, want snapshot %+v", got, snapshot)
	}
}
