package engine

import (
	"sort"
	"strings"
)

// Track is one keyframe channel of a clip. Name is "<node>.<property>", for
// example "Arm.quaternion". Values holds Stride floats per keyframe.
type Track struct {
	Name   string
	Times  []float64
	Values []float64
	Stride int
}

// NodeName returns the targeted node name.
func (t Track) NodeName() string {
	if i := strings.LastIndexByte(t.Name, '.'); i >= 0 {
		return t.Name[:i]
	}
	return t.Name
}

// Property returns the targeted property ("position", "quaternion", "scale", ...).
func (t Track) Property() string {
	if i := strings.LastIndexByte(t.Name, '.'); i >= 0 {
		return t.Name[i+1:]
	}
	return ""
}

// Len returns the number of keyframes.
func (t Track) Len() int {
	return len(t.Times)
}

// Valid reports whether the track has keyframes and consistent value data.
func (t Track) Valid() bool {
	return t.Stride > 0 && len(t.Times) > 0 && len(t.Values) == len(t.Times)*t.Stride
}

// ValueAt returns the values of keyframe i.
func (t Track) ValueAt(i int) []float64 {
	return t.Values[i*t.Stride : (i+1)*t.Stride]
}

// Nearest returns the index of the keyframe whose time is closest to at.
// Ties resolve to the earlier keyframe.
func (t Track) Nearest(at float64) int {
	n := len(t.Times)
	if n == 0 {
		return -1
	}
	i := sort.SearchFloat64s(t.Times, at)
	if i == 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	if at-t.Times[i-1] <= t.Times[i]-at {
		return i - 1
	}
	return i
}
