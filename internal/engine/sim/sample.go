package sim

import (
	"github.com/Faultbox/animdirector/internal/engine"
	"github.com/Faultbox/animdirector/pkg/math"
)

// Sample evaluates track at time t (seconds). Quaternion tracks are slerped,
// everything else is interpolated linearly. Times outside the keyframe range
// hold the first or last value.
func Sample(track engine.Track, t float64) []float64 {
	n := track.Len()
	if n == 0 {
		return nil
	}
	if n == 1 || t <= track.Times[0] {
		return append([]float64(nil), track.ValueAt(0)...)
	}

	// Find surrounding keyframes (keys are sorted by time)
	var prev, next int
	for i := range track.Times {
		if track.Times[i] > t {
			next = i
			break
		}
		prev = i
		next = i
	}
	if prev == next {
		return append([]float64(nil), track.ValueAt(prev)...)
	}

	t0, t1 := track.Times[prev], track.Times[next]
	f := 0.0
	if t1 != t0 {
		f = (t - t0) / (t1 - t0)
	}

	v0, v1 := track.ValueAt(prev), track.ValueAt(next)
	if track.Property() == "quaternion" && track.Stride == 4 {
		q := math.QuatFromSlice(v0).Slerp(math.QuatFromSlice(v1), f)
		return []float64{q.X, q.Y, q.Z, q.W}
	}
	out := make([]float64, len(v0))
	for i := range v0 {
		out[i] = v0[i] + f*(v1[i]-v0[i])
	}
	return out
}

// blendInto writes sampled values for property onto dst, mixing by weight.
func blendInto(dst *engine.Transform, property string, values []float64, weight float64) {
	if weight > 1 {
		weight = 1
	}
	switch property {
	case "position":
		dst.Position = dst.Position.Lerp(math.Vec3FromSlice(values), weight)
	case "scale":
		dst.Scale = dst.Scale.Lerp(math.Vec3FromSlice(values), weight)
	case "quaternion":
		dst.Rotation = dst.Rotation.Slerp(math.QuatFromSlice(values), weight)
	}
}
