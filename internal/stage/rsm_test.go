package stage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Faultbox/animdirector/internal/director"
	"github.com/Faultbox/animdirector/pkg/formats"
	"github.com/Faultbox/animdirector/pkg/grf"
	"github.com/Faultbox/animdirector/pkg/math"
)

func chestRSM() *formats.RSM {
	return &formats.RSM{
		Version:    formats.RSMVersion{Major: 1, Minor: 5},
		AnimLength: 1000,
		RootNode:   "chest",
		Nodes: []formats.RSMNode{
			{Name: "chest", Vertices: [][3]float32{{-1, 0, -1}, {1, 1, 1}}},
			{
				Name:     "lid",
				Parent:   "chest",
				Vertices: [][3]float32{{-1, 1, -1}, {1, 1.2, 1}},
				RotKeys: []formats.RSMRotKeyframe{
					{Frame: 0, Quaternion: [4]float32{0, 0, 0, 1}},
					{Frame: 1000, Quaternion: [4]float32{0.70710678, 0, 0, 0.70710678}},
				},
			},
			{Name: "lock", Parent: "lid"},
		},
	}
}

func writeChest(t *testing.T, dir string) {
	t.Helper()
	data, err := chestRSM().MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "chest.rsm"), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestImportRSM(t *testing.T) {
	root, clip, err := importRSM(chestRSM(), "")
	if err != nil {
		t.Fatalf("importRSM() error = %v", err)
	}

	want := NodeSpec{
		Name: "chest", Mesh: true,
		Bounds: &BoundsSpec{Min: []float64{-1, 0, -1}, Max: []float64{1, 1, 1}},
		Children: []NodeSpec{{
			Name: "lid", Mesh: true,
			Bounds:   &BoundsSpec{Min: []float64{-1, 1, -1}, Max: []float64{1, float64(float32(1.2)), 1}},
			Children: []NodeSpec{{Name: "lock"}},
		}},
	}
	if diff := cmp.Diff(want, root); diff != "" {
		t.Errorf("node tree mismatch (-want +got):\n%s", diff)
	}

	if clip == nil || clip.Name != "idle" || clip.Duration != 1 {
		t.Fatalf("clip = %+v", clip)
	}
	if len(clip.Tracks) != 1 || clip.Tracks[0].Name != "lid.quaternion" {
		t.Fatalf("tracks = %+v", clip.Tracks)
	}
	if diff := cmp.Diff([]float64{0, 1}, clip.Tracks[0].Times); diff != "" {
		t.Errorf("times mismatch (-want +got):\n%s", diff)
	}
}

func TestImportRSMStatic(t *testing.T) {
	rsm := chestRSM()
	rsm.Nodes[1].RotKeys = nil
	_, clip, err := importRSM(rsm, "open")
	if err != nil {
		t.Fatalf("importRSM() error = %v", err)
	}
	if clip != nil {
		t.Errorf("static model produced clip %+v", clip)
	}

	rsm.RootNode = "missing"
	rsm.Nodes[0].Parent = "lock"
	if _, _, err := importRSM(rsm, ""); err == nil {
		t.Error("expected error without a root node")
	}
}

func TestLoadStageWithRSM(t *testing.T) {
	dir := t.TempDir()
	writeChest(t, dir)
	stagePath := filepath.Join(dir, "chest.yaml")
	doc := `
models:
  - id: Chest
    rsm: chest.rsm
    rsm_clip: open
    clips:
      - {name: Rattle, duration: 0.5, tracks: [{name: lock.position, times: [0, 0.5], values: [0, 0, 0, 0.1, 0, 0]}]}
script:
  - {frame: 0, do: bind, model: Chest, mesh: lid, animation: open, options: {play_mode: clamp-end}}
  - {frame: 1, do: click, model: Chest, mesh: lid}
`
	if err := os.WriteFile(stagePath, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	st, err := Load(stagePath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	w, err := st.Build(director.Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer w.Close()

	var names []string
	for _, info := range w.Director.Animations("Chest") {
		names = append(names, info.Name)
	}
	if diff := cmp.Diff([]string{"open", "Rattle"}, names); diff != "" {
		t.Errorf("animations mismatch (-want +got):\n%s", diff)
	}

	r := NewRunner(st, w, nil, nil)
	r.Run(6, tick)
	for _, res := range r.Results() {
		if !res.OK {
			t.Errorf("command failed: %s", res)
		}
	}

	lid, _ := w.Mesh("Chest", "lid")
	if lid.Local.Rotation.ApproxEqual(math.QuatIdentity(), 1e-3) {
		t.Error("lid did not rotate")
	}
}

func TestLoadStageMissingRSM(t *testing.T) {
	dir := t.TempDir()
	stagePath := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(stagePath, []byte("models: [{id: X, rsm: nope.rsm}]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(stagePath); err == nil {
		t.Error("expected error for missing RSM file")
	}
}

func TestLoadStageFromArchive(t *testing.T) {
	dir := t.TempDir()
	data, err := chestRSM().MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	var buf bytes.Buffer
	if err := grf.Write(&buf, map[string][]byte{"data/model/chest.rsm": data}); err != nil {
		t.Fatalf("grf.Write() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "models.grf"), buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	doc := `
models:
  - {id: A, archive: models.grf, rsm: 'data\model\chest.rsm'}
  - {id: B, archive: models.grf, rsm: data/model/CHEST.rsm, rsm_clip: open}
`
	stagePath := filepath.Join(dir, "archive.yaml")
	if err := os.WriteFile(stagePath, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	st, err := Load(stagePath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.Models[0].Root.Name != "chest" || st.Models[0].Clips[0].Name != "idle" {
		t.Errorf("model A = %+v", st.Models[0])
	}
	if st.Models[1].Clips[0].Name != "open" {
		t.Errorf("model B clips = %+v", st.Models[1].Clips)
	}

	missing := filepath.Join(dir, "missing.yaml")
	if err := os.WriteFile(missing, []byte("models: [{id: X, archive: models.grf, rsm: data/model/none.rsm}]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(missing); !errors.Is(err, grf.ErrNotFound) {
		t.Errorf("Load() error = %v, want grf.ErrNotFound", err)
	}
}
