package stage

import (
	"fmt"

	"github.com/Faultbox/animdirector/internal/director"
	"github.com/Faultbox/animdirector/internal/engine"
	"github.com/Faultbox/animdirector/internal/engine/camera"
	"github.com/Faultbox/animdirector/internal/engine/scene"
	"github.com/Faultbox/animdirector/internal/engine/sim"
	"github.com/Faultbox/animdirector/pkg/math"
)

// World is a built stage: scene models on the sim engine, registered with a
// Director.
type World struct {
	Director *director.Director
	Models   map[string]*scene.Model
	Mixers   map[string]*sim.Mixer
	IDs      *scene.IdentityTable
	Camera   *camera.OrbitCamera

	specs map[string]ModelSpec
}

// Build creates every model of the stage and registers it with a new
// Director configured by opts.
func (st *Stage) Build(opts director.Options) (*World, error) {
	w := &World{
		Director: director.New(sim.Factory{}, opts),
		Models:   make(map[string]*scene.Model),
		Mixers:   make(map[string]*sim.Mixer),
		IDs:      scene.NewIdentityTable(),
		specs:    make(map[string]ModelSpec),
	}
	for _, spec := range st.Models {
		w.specs[spec.ID] = spec
		if err := w.Load(spec.ID); err != nil {
			_ = w.Director.Close()
			return nil, err
		}
	}
	w.Camera = w.newCamera(st.Camera)
	return w, nil
}

// Load builds a fresh copy of model id from its spec and registers it. A
// model that is already registered is reloaded; its nodes keep their
// identities.
func (w *World) Load(id string) error {
	spec, ok := w.specs[id]
	if !ok {
		return fmt.Errorf("unknown model %q", id)
	}
	model, mixer, err := buildModel(spec, w.IDs)
	if err != nil {
		return err
	}
	w.Models[id] = model
	w.Mixers[id] = mixer
	w.Director.RegisterModel(model)
	return nil
}

// Mesh resolves ref against model id by identity, then by node name.
func (w *World) Mesh(id, ref string) (*scene.Node, bool) {
	model, ok := w.Models[id]
	if !ok || ref == "" {
		return nil, false
	}
	if n := model.RootNode().FindByID(ref); n != nil {
		return n, true
	}
	if n := model.RootNode().Find(ref); n != nil {
		return n, true
	}
	return nil, false
}

// Close releases the director.
func (w *World) Close() error {
	return w.Director.Close()
}

func buildModel(spec ModelSpec, ids *scene.IdentityTable) (*scene.Model, *sim.Mixer, error) {
	root := buildNode(spec.Root)
	ids.Assign(spec.ID, root)
	model := scene.NewModel(spec.ID, root)
	model.SetTransform(spec.Transform.transform())
	mixer := sim.NewMixer(model)
	for _, cs := range spec.Clips {
		clip, err := cs.clip()
		if err != nil {
			return nil, nil, fmt.Errorf("model %q: %w", spec.ID, err)
		}
		model.AddClip(clip)
	}
	engine.Walk(root, func(n engine.Node) bool {
		n.RefreshBounds()
		return true
	})
	return model, mixer, nil
}

func buildNode(spec NodeSpec) *scene.Node {
	ns := scene.NodeSpec{Name: spec.Name, Mesh: spec.Mesh, Skinned: spec.Skinned}
	if spec.Bounds != nil {
		ns.Bounds = scene.Bounds{Min: math.Vec3FromSlice(spec.Bounds.Min), Max: math.Vec3FromSlice(spec.Bounds.Max)}
	}
	n := scene.NewNode(ns)
	for _, c := range spec.Children {
		n.Add(buildNode(c))
	}
	return n
}

func (c ClipSpec) clip() (*sim.Clip, error) {
	tracks := make([]engine.Track, 0, len(c.Tracks))
	duration := c.Duration
	for _, ts := range c.Tracks {
		tr, err := ts.track()
		if err != nil {
			return nil, fmt.Errorf("clip %q: %w", c.Name, err)
		}
		if last := tr.Times[len(tr.Times)-1]; c.Duration == 0 && last > duration {
			duration = last
		}
		tracks = append(tracks, tr)
	}
	return sim.NewClip(c.Name, duration, tracks)
}

func (ts TrackSpec) track() (engine.Track, error) {
	tr := engine.Track{Name: ts.Name, Times: ts.Times, Values: ts.Values, Stride: ts.Stride}
	if tr.Stride == 0 {
		switch tr.Property() {
		case "position", "scale":
			tr.Stride = 3
		case "quaternion":
			tr.Stride = 4
		default:
			return tr, fmt.Errorf("track %q: stride required for property %q", ts.Name, tr.Property())
		}
	}
	if !tr.Valid() {
		return tr, fmt.Errorf("track %q: %d times do not match %d values at stride %d",
			ts.Name, len(ts.Times), len(ts.Values), tr.Stride)
	}
	for i := 1; i < len(tr.Times); i++ {
		if tr.Times[i] < tr.Times[i-1] {
			return tr, fmt.Errorf("track %q: times not sorted", ts.Name)
		}
	}
	return tr, nil
}

func (t TransformSpec) transform() engine.Transform {
	out := engine.IdentityTransform()
	if len(t.Position) == 3 {
		out.Position = math.Vec3FromSlice(t.Position)
	}
	if len(t.Rotation) == 4 {
		out.Rotation = math.QuatFromSlice(t.Rotation).Normalize()
	}
	if len(t.Scale) == 3 {
		out.Scale = math.Vec3FromSlice(t.Scale)
	}
	return out
}
