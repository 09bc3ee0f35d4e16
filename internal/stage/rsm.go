package stage

import (
	"fmt"
	"math"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/Faultbox/animdirector/pkg/formats"
	"github.com/Faultbox/animdirector/pkg/grf"
)

// defaultRSMClip names the single clip an RSM model carries.
const defaultRSMClip = "idle"

// importModels fills the root and clips of every model that names an RSM
// file. Relative paths resolve against dir; a model with an archive reads
// its RSM from that GRF archive instead. Clips declared in the stage are
// kept after the imported one.
func (st *Stage) importModels(dir string) (err error) {
	archives := make(map[string]*grf.Archive)
	defer func() {
		for _, a := range archives {
			err = multierr.Append(err, a.Close())
		}
	}()

	for i := range st.Models {
		m := &st.Models[i]
		if m.RSM == "" {
			continue
		}
		rsm, err := loadRSM(m, dir, archives)
		if err != nil {
			return fmt.Errorf("model %q: %w", m.ID, err)
		}
		root, clip, err := importRSM(rsm, m.RSMClip)
		if err != nil {
			return fmt.Errorf("model %q: %w", m.ID, err)
		}
		m.Root = root
		if clip != nil {
			m.Clips = append([]ClipSpec{*clip}, m.Clips...)
		}
	}
	return nil
}

func loadRSM(m *ModelSpec, dir string, archives map[string]*grf.Archive) (*formats.RSM, error) {
	if m.Archive == "" {
		return formats.ParseRSMFile(resolve(dir, m.RSM))
	}
	path := resolve(dir, m.Archive)
	a, ok := archives[path]
	if !ok {
		var err error
		if a, err = grf.Open(path); err != nil {
			return nil, err
		}
		archives[path] = a
	}
	data, err := a.Read(m.RSM)
	if err != nil {
		return nil, err
	}
	return formats.ParseRSM(data)
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// importRSM converts an RSM hierarchy into a node tree, with nodes that
// carry vertices as meshes bounded by them, and its keyframes into one clip.
// The clip is nil when the model has no keyframes.
func importRSM(rsm *formats.RSM, clipName string) (NodeSpec, *ClipSpec, error) {
	rootNode := rsm.Node(rsm.RootNode)
	if rootNode == nil {
		for i := range rsm.Nodes {
			if rsm.Nodes[i].Parent == "" {
				rootNode = &rsm.Nodes[i]
				break
			}
		}
	}
	if rootNode == nil {
		return NodeSpec{}, nil, fmt.Errorf("rsm: no root node")
	}

	visited := make(map[*formats.RSMNode]bool)
	var build func(n *formats.RSMNode) NodeSpec
	build = func(n *formats.RSMNode) NodeSpec {
		visited[n] = true
		spec := NodeSpec{Name: n.Name, Mesh: len(n.Vertices) > 0}
		if spec.Mesh {
			spec.Bounds = vertexBounds(n.Vertices)
		}
		for _, c := range rsm.Children(n.Name) {
			if !visited[c] {
				spec.Children = append(spec.Children, build(c))
			}
		}
		return spec
	}
	root := build(rootNode)

	if !rsm.HasAnimation() {
		return root, nil, nil
	}
	if clipName == "" {
		clipName = defaultRSMClip
	}
	clip := &ClipSpec{Name: clipName, Duration: rsm.Duration()}
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		if !visited[n] {
			continue
		}
		if len(n.PosKeys) > 0 {
			tr := TrackSpec{Name: n.Name + ".position"}
			for _, k := range n.PosKeys {
				tr.Times = append(tr.Times, float64(k.Frame)/1000)
				tr.Values = append(tr.Values, float64(k.Position[0]), float64(k.Position[1]), float64(k.Position[2]))
			}
			clip.Tracks = append(clip.Tracks, tr)
		}
		if len(n.RotKeys) > 0 {
			tr := TrackSpec{Name: n.Name + ".quaternion"}
			for _, k := range n.RotKeys {
				tr.Times = append(tr.Times, float64(k.Frame)/1000)
				for _, v := range k.Quaternion {
					tr.Values = append(tr.Values, float64(v))
				}
			}
			clip.Tracks = append(clip.Tracks, tr)
		}
		if len(n.ScaleKeys) > 0 {
			tr := TrackSpec{Name: n.Name + ".scale"}
			for _, k := range n.ScaleKeys {
				tr.Times = append(tr.Times, float64(k.Frame)/1000)
				tr.Values = append(tr.Values, float64(k.Scale[0]), float64(k.Scale[1]), float64(k.Scale[2]))
			}
			clip.Tracks = append(clip.Tracks, tr)
		}
	}
	if len(clip.Tracks) == 0 {
		return root, nil, nil
	}
	return root, clip, nil
}

func vertexBounds(vs [][3]float32) *BoundsSpec {
	lo := []float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := []float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, v := range vs {
		for i := 0; i < 3; i++ {
			lo[i] = math.Min(lo[i], float64(v[i]))
			hi[i] = math.Max(hi[i], float64(v[i]))
		}
	}
	return &BoundsSpec{Min: lo, Max: hi}
}
