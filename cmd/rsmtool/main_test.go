package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Faultbox/animdirector/internal/stage"
	"github.com/Faultbox/animdirector/pkg/formats"
	"github.com/Faultbox/animdirector/pkg/grf"
)

func writeArchive(t *testing.T) string {
	t.Helper()
	rsm := &formats.RSM{
		Version:    formats.RSMVersion{Major: 1, Minor: 4},
		AnimLength: 500,
		RootNode:   "base",
		Nodes: []formats.RSMNode{
			{Name: "base", Vertices: [][3]float32{{0, 0, 0}, {1, 1, 1}}},
			{Name: "arm", Parent: "base", PosKeys: []formats.RSMPosKeyframe{
				{Frame: 0}, {Frame: 500, Position: [3]float32{0, 1, 0}},
			}},
		},
	}
	data, err := rsm.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	err = grf.Write(&buf, map[string][]byte{
		"data/model/crane.rsm": data,
		"data/model/other.rsm": data,
		"data/texture/a.bmp":   []byte("BM"),
	})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "models.grf")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestList(t *testing.T) {
	archive := writeArchive(t)
	tests := map[string]struct {
		args []string
		want string
	}{
		"all":     {[]string{archive}, "data/model/crane.rsm\ndata/model/other.rsm\n"},
		"pattern": {[]string{archive, "cr*"}, "data/model/crane.rsm\n"},
		"limit":   {[]string{"-n", "1", archive}, "data/model/crane.rsm\n"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run("list", tt.args, &out); err != nil {
				t.Fatalf("run() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, out.String()); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInfo(t *testing.T) {
	var out bytes.Buffer
	if err := run("info", []string{writeArchive(t), "data\\model\\crane.rsm"}, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	for _, want := range []string{"Version:   1.4", "Duration:  0.500s", "base  verts=2", "  arm  verts=0 faces=0 keys=2/0/0"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestStageSkeletonLoads(t *testing.T) {
	archive := writeArchive(t)
	var out bytes.Buffer
	if err := run("stage", []string{"-clip", "swing", archive, "data/model/crane.rsm"}, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "crane.yaml")
	if err := os.WriteFile(path, out.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	st, err := stage.Load(path)
	if err != nil {
		t.Fatalf("stage.Load() error = %v\n%s", err, out.String())
	}
	if st.Name != "crane" || len(st.Models) != 1 || st.Models[0].ID != "crane" {
		t.Errorf("stage = %+v", st)
	}
	if len(st.Script) != 1 || st.Script[0].Animation != "swing" {
		t.Errorf("script = %+v", st.Script)
	}
	if got := st.Models[0].Clips[0].Name; got != "swing" {
		t.Errorf("clip = %q, want swing", got)
	}
}

func TestUsageErrors(t *testing.T) {
	var out bytes.Buffer
	for _, tc := range []struct {
		cmd  string
		args []string
	}{
		{"dance", nil},
		{"list", nil},
		{"info", nil},
		{"info", []string{"models.grf"}},
	} {
		if err := run(tc.cmd, tc.args, &out); !errors.Is(err, errUsage) {
			t.Errorf("run(%q, %v) error = %v, want errUsage", tc.cmd, tc.args, err)
		}
	}
	if err := run("info", []string{filepath.Join(t.TempDir(), "none.rsm")}, &out); err == nil {
		t.Error("expected error for missing model")
	}
}
