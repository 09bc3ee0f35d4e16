package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseRSM_MagicValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"invalid magic", append([]byte("XXXX"), 1, 5), ErrInvalidRSMMagic},
		{"empty data", []byte{}, ErrTruncatedRSMData},
		{"truncated data", []byte{'G', 'R', 'S'}, ErrTruncatedRSMData},
		{"header only", append([]byte("GRSM"), 1, 5, 0, 0), ErrTruncatedRSMData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRSM(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseRSM() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseRSM_VersionSupport(t *testing.T) {
	tests := []struct {
		major, minor uint8
		wantErr      bool
	}{
		{1, 1, false},
		{1, 2, false},
		{1, 3, false},
		{1, 4, false},
		{1, 5, false},
		{1, 0, true},
		{2, 2, true},
		{0, 1, true},
	}

	for _, tt := range tests {
		v := RSMVersion{tt.major, tt.minor}
		t.Run(v.String(), func(t *testing.T) {
			data := makeRSM(t, v)
			_, err := ParseRSM(data)
			if (err != nil) != tt.wantErr {
				t.Errorf("version %s: got error=%v, wantErr=%v", v, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnsupportedRSMVersion) {
				t.Errorf("version %s: error %v is not ErrUnsupportedRSMVersion", v, err)
			}
		})
	}
}

func TestRSMVersion_AtLeast(t *testing.T) {
	tests := []struct {
		version      RSMVersion
		major, minor uint8
		want         bool
	}{
		{RSMVersion{1, 5}, 1, 5, true},
		{RSMVersion{1, 5}, 1, 4, true},
		{RSMVersion{1, 5}, 1, 6, false},
		{RSMVersion{1, 5}, 2, 0, false},
		{RSMVersion{2, 3}, 1, 9, true},
	}

	for _, tt := range tests {
		if got := tt.version.AtLeast(tt.major, tt.minor); got != tt.want {
			t.Errorf("%s.AtLeast(%d, %d) = %v, want %v", tt.version, tt.major, tt.minor, got, tt.want)
		}
	}
}

func sampleRSM(version RSMVersion) *RSM {
	rsm := &RSM{
		Version:    version,
		AnimLength: 1000,
		RootNode:   "chest",
		Nodes: []RSMNode{
			{
				Name:     "chest",
				Scale:    [3]float32{1, 1, 1},
				Vertices: [][3]float32{{-1, 0, -1}, {1, 1, 1}},
			},
			{
				Name:     "lid",
				Parent:   "chest",
				Position: [3]float32{0, 1, 0},
				Scale:    [3]float32{1, 1, 1},
				Vertices: [][3]float32{{-1, 0, -1}, {1, 0.2, 1}},
				RotKeys: []RSMRotKeyframe{
					{Frame: 0, Quaternion: [4]float32{0, 0, 0, 1}},
					{Frame: 1000, Quaternion: [4]float32{0.5, 0, 0, 0.8660254}},
				},
			},
			{Name: "hinge", Parent: "lid", Scale: [3]float32{1, 1, 1}},
		},
	}
	if version.AtLeast(1, 5) {
		rsm.Nodes[1].ScaleKeys = []RSMScaleKeyframe{{Frame: 500, Scale: [3]float32{1, 2, 1}}}
	} else {
		rsm.Nodes[1].PosKeys = []RSMPosKeyframe{{Frame: 500, Position: [3]float32{0, 1.5, 0}}}
	}
	return rsm
}

func makeRSM(t *testing.T, v RSMVersion) []byte {
	t.Helper()
	rsm := sampleRSM(RSMVersion{1, 5})
	rsm.Version = v
	data, err := rsm.MarshalBinary()
	if err != nil {
		// Unsupported versions still need bytes to feed the parser.
		data, _ = sampleRSM(RSMVersion{1, 5}).MarshalBinary()
		data[4], data[5] = v.Major, v.Minor
	}
	return data
}

func TestRSM_RoundTrip(t *testing.T) {
	for _, v := range []RSMVersion{{1, 3}, {1, 4}, {1, 5}} {
		t.Run(v.String(), func(t *testing.T) {
			want := sampleRSM(v)
			data, err := want.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary() error = %v", err)
			}
			got, err := ParseRSM(data)
			if err != nil {
				t.Fatalf("ParseRSM() error = %v", err)
			}
			if diff := cmp.Diff(normalize(want), normalize(got)); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// normalize copies r with empty slices set to nil.
func normalize(r *RSM) *RSM {
	c := *r
	c.Nodes = append([]RSMNode(nil), r.Nodes...)
	for i := range c.Nodes {
		n := &c.Nodes[i]
		if len(n.Vertices) == 0 {
			n.Vertices = nil
		}
		if len(n.PosKeys) == 0 {
			n.PosKeys = nil
		}
		if len(n.RotKeys) == 0 {
			n.RotKeys = nil
		}
		if len(n.ScaleKeys) == 0 {
			n.ScaleKeys = nil
		}
	}
	return &c
}

// TestParseRSM_SkipsGeometry feeds a node with a texture, a texture
// coordinate and a face, none of which MarshalBinary writes.
func TestParseRSM_SkipsGeometry(t *testing.T) {
	var buf bytes.Buffer
	w := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatal(err)
		}
	}
	name := func(s string) []byte {
		b := make([]byte, 40)
		copy(b, s)
		return b
	}

	buf.WriteString("GRSM")
	w([]uint8{1, 4})
	w(int32(2500)) // anim length
	w(int32(2))    // shading
	w(uint8(128))  // alpha
	w(make([]byte, 16))
	w(int32(1))
	w(name("wood.bmp"))
	w(name("box"))
	w(int32(1))

	w(name("box"))
	w(name(""))
	w(int32(1))
	w(int32(0))
	w([9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1})
	w([3]float32{})        // offset
	w([3]float32{4, 5, 6}) // position
	w(float32(0))
	w([3]float32{})
	w([3]float32{1, 1, 1})
	w(int32(1))
	w([3]float32{7, 8, 9})
	w(int32(1)) // texcoords
	w([4]uint8{255, 255, 255, 255})
	w([2]float32{0.5, 0.5})
	w(int32(1)) // faces
	w([3]uint16{0, 0, 0})
	w([3]uint16{0, 0, 0})
	w(uint16(0))
	w(uint16(0))
	w(int32(0))
	w(int32(0)) // smoothing group
	w(int32(1)) // position keys
	w(int32(100))
	w([3]float32{1, 2, 3})
	w(int32(0)) // rotation keys

	rsm, err := ParseRSM(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseRSM() error = %v", err)
	}
	n := rsm.Node("box")
	if n == nil {
		t.Fatal("node box missing")
	}
	if n.FaceCount != 1 || len(n.Vertices) != 1 || n.Vertices[0] != [3]float32{7, 8, 9} {
		t.Errorf("node geometry = %d faces, vertices %v", n.FaceCount, n.Vertices)
	}
	if n.Position != [3]float32{4, 5, 6} {
		t.Errorf("position = %v", n.Position)
	}
	if len(n.PosKeys) != 1 || n.PosKeys[0].Frame != 100 {
		t.Errorf("position keys = %v", n.PosKeys)
	}
	if rsm.Duration() != 2.5 {
		t.Errorf("Duration() = %v, want 2.5", rsm.Duration())
	}

	truncated := buf.Bytes()[:buf.Len()-6]
	if _, err := ParseRSM(truncated); !errors.Is(err, ErrTruncatedRSMData) {
		t.Errorf("truncated node error = %v, want ErrTruncatedRSMData", err)
	}
}

func TestParseRSM_InvalidCounts(t *testing.T) {
	data, _ := sampleRSM(RSMVersion{1, 5}).MarshalBinary()
	// Node count sits after magic, version, length, shading, alpha,
	// reserved, texture count and the root name.
	off := 4 + 2 + 4 + 4 + 1 + 16 + 4 + 40
	binary.LittleEndian.PutUint32(data[off:], uint32(0xFFFFFFFF))
	if _, err := ParseRSM(data); !errors.Is(err, ErrInvalidNodeCount) {
		t.Errorf("negative node count error = %v", err)
	}
}

func TestRSM_Hierarchy(t *testing.T) {
	rsm := sampleRSM(RSMVersion{1, 5})

	if rsm.Node("lid") == nil || rsm.Node("missing") != nil {
		t.Error("Node lookup mismatch")
	}
	var names []string
	for _, c := range rsm.Children("chest") {
		names = append(names, c.Name)
	}
	if diff := cmp.Diff([]string{"lid"}, names); diff != "" {
		t.Errorf("Children(chest) mismatch (-want +got):\n%s", diff)
	}
	if !rsm.HasAnimation() {
		t.Error("HasAnimation() = false")
	}
	rsm.Nodes[1].RotKeys, rsm.Nodes[1].ScaleKeys = nil, nil
	if rsm.HasAnimation() {
		t.Error("HasAnimation() = true without keyframes")
	}
}

func TestParseRSMFile(t *testing.T) {
	data, _ := sampleRSM(RSMVersion{1, 5}).MarshalBinary()
	path := filepath.Join(t.TempDir(), "chest.rsm")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	rsm, err := ParseRSMFile(path)
	if err != nil {
		t.Fatalf("ParseRSMFile() error = %v", err)
	}
	if rsm.RootNode != "chest" || len(rsm.Nodes) != 3 {
		t.Errorf("parsed %q with %d nodes", rsm.RootNode, len(rsm.Nodes))
	}
	if _, err := ParseRSMFile(filepath.Join(t.TempDir(), "none.rsm")); err == nil {
		t.Error("expected error for missing file")
	}
}
