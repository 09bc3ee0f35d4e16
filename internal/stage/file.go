// Package stage loads YAML stage files and runs their directing scripts.
//
// A stage file declares models (node trees plus keyframe clips) and a
// frame-indexed script of directing commands:
//
//	models:
//	  - id: Cabinet
//	    root:
//	      name: Cabinet
//	      children:
//	        - {name: Door, mesh: true, bounds: {min: [0, 0, 0], max: [1, 2, 0.1]}}
//	    clips:
//	      - name: Open
//	        duration: 1
//	        tracks:
//	          - {name: Door.quaternion, times: [0, 1], values: [0, 0, 0, 1, 0, 0.7071, 0, 0.7071]}
//	script:
//	  - {frame: 0, do: bind, model: Cabinet, mesh: Door, animation: Open}
//	  - {frame: 5, do: click, model: Cabinet, mesh: Door}
//	  - {frame: 9, do: click_screen, model: Cabinet, screen: [640, 360]}
package stage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/animdirector/internal/director"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid stage")

// Stage is a parsed stage file.
type Stage struct {
	Name   string      `yaml:"name"`
	Camera *CameraSpec `yaml:"camera,omitempty"`
	Models []ModelSpec `yaml:"models"`
	Script []Command   `yaml:"script,omitempty"`
}

// ModelSpec declares one model.
type ModelSpec struct {
	ID        string        `yaml:"id"`
	Transform TransformSpec `yaml:"transform,omitempty"`
	Root      NodeSpec      `yaml:"root,omitempty"`
	Clips     []ClipSpec    `yaml:"clips,omitempty"`
	// RSM imports the node tree and keyframes from an RSM file, replacing Root.
	RSM     string `yaml:"rsm,omitempty"`
	RSMClip string `yaml:"rsm_clip,omitempty"` // default "idle"
	// Archive is a GRF archive holding the RSM; RSM is then a path inside it.
	Archive string `yaml:"archive,omitempty"`
}

// TransformSpec is a position/rotation/scale triple. Missing parts keep
// the identity value.
type TransformSpec struct {
	Position []float64 `yaml:"position,omitempty"`
	Rotation []float64 `yaml:"rotation,omitempty"` // x, y, z, w
	Scale    []float64 `yaml:"scale,omitempty"`
}

// NodeSpec declares a node and its subtree.
type NodeSpec struct {
	Name     string      `yaml:"name"`
	Mesh     bool        `yaml:"mesh,omitempty"`
	Skinned  bool        `yaml:"skinned,omitempty"`
	Bounds   *BoundsSpec `yaml:"bounds,omitempty"`
	Children []NodeSpec  `yaml:"children,omitempty"`
}

// BoundsSpec is a local axis-aligned box.
type BoundsSpec struct {
	Min []float64 `yaml:"min"`
	Max []float64 `yaml:"max"`
}

// ClipSpec declares a keyframe clip.
type ClipSpec struct {
	Name     string      `yaml:"name"`
	Duration float64     `yaml:"duration"` // 0 uses the last keyframe time
	Tracks   []TrackSpec `yaml:"tracks"`
}

// TrackSpec is one keyframe channel, "<node>.<property>".
type TrackSpec struct {
	Name   string    `yaml:"name"`
	Times  []float64 `yaml:"times"`
	Values []float64 `yaml:"values"`
	Stride int       `yaml:"stride,omitempty"` // inferred for position, scale and quaternion
}

// RaySpec is a pick ray in world space.
type RaySpec struct {
	Origin    []float64 `yaml:"origin"`
	Direction []float64 `yaml:"direction"`
}

// Command is one scripted directing call. Which fields apply depends on Do.
type Command struct {
	Frame     int    `yaml:"frame"`
	Do        string `yaml:"do"`
	Model     string `yaml:"model,omitempty"`
	Animation string `yaml:"animation,omitempty"`
	// Mesh is a node name, or a node identity.
	Mesh    string                  `yaml:"mesh,omitempty"`
	Params  director.Params         `yaml:"params,omitempty"`
	Options director.BindingOptions `yaml:"options,omitempty"`
	Ranges  []director.TimeRange    `yaml:"ranges,omitempty"`
	Names   []string                `yaml:"names,omitempty"`
	Time    float64                 `yaml:"time,omitempty"`
	Ray     *RaySpec                `yaml:"ray,omitempty"`
	Screen  []float64               `yaml:"screen,omitempty"` // x, y in pixels
	Profile string                  `yaml:"profile,omitempty"`
}

// Load reads and validates a stage file.
func Load(path string) (*Stage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stage %s: %w", path, err)
	}
	st, err := parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", path, err)
	}
	return st, nil
}

// Parse decodes and validates stage YAML. RSM paths resolve against the
// working directory. The script is ordered by frame; commands sharing a
// frame keep their file order.
func Parse(data []byte) (*Stage, error) {
	return parse(data, ".")
}

func parse(data []byte, dir string) (*Stage, error) {
	var st Stage
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decoding: %w", err)
	}
	if err := st.importModels(dir); err != nil {
		return nil, err
	}
	if err := st.validate(); err != nil {
		return nil, err
	}
	sort.SliceStable(st.Script, func(i, j int) bool { return st.Script[i].Frame < st.Script[j].Frame })
	return &st, nil
}

func (st *Stage) validate() error {
	seen := make(map[string]bool)
	for i, m := range st.Models {
		if m.ID == "" {
			return fmt.Errorf("%w: model %d has no id", ErrInvalid, i)
		}
		if seen[m.ID] {
			return fmt.Errorf("%w: duplicate model %q", ErrInvalid, m.ID)
		}
		seen[m.ID] = true
		if m.Root.Name == "" {
			return fmt.Errorf("%w: model %q has no root name", ErrInvalid, m.ID)
		}
		for _, c := range m.Clips {
			if c.Name == "" {
				return fmt.Errorf("%w: model %q has an unnamed clip", ErrInvalid, m.ID)
			}
			for _, tr := range c.Tracks {
				if _, err := tr.track(); err != nil {
					return fmt.Errorf("%w: model %q clip %q: %v", ErrInvalid, m.ID, c.Name, err)
				}
			}
		}
	}
	for i, c := range st.Script {
		if c.Frame < 0 {
			return fmt.Errorf("%w: script[%d]: negative frame %d", ErrInvalid, i, c.Frame)
		}
		if _, ok := handlers[c.Do]; !ok {
			return fmt.Errorf("%w: script[%d]: unknown command %q", ErrInvalid, i, c.Do)
		}
	}
	return nil
}

// Length returns the number of frames the script spans.
func (st *Stage) Length() int {
	if len(st.Script) == 0 {
		return 0
	}
	return st.Script[len(st.Script)-1].Frame + 1
}
