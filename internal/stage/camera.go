package stage

import (
	gomath "math"

	"github.com/Faultbox/animdirector/internal/engine/camera"
	"github.com/Faultbox/animdirector/pkg/math"
)

// CameraSpec places the orbit camera used by click_screen. Zero fields keep
// the camera defaults.
type CameraSpec struct {
	Center     []float64 `yaml:"center,omitempty"`
	Distance   float64   `yaml:"distance,omitempty"`
	Pitch      *float64  `yaml:"pitch,omitempty"`
	Yaw        float64   `yaml:"yaw,omitempty"`
	FOVDegrees float64   `yaml:"fov_degrees,omitempty"`
	Width      float64   `yaml:"width,omitempty"`
	Height     float64   `yaml:"height,omitempty"`
}

// newCamera builds the stage camera. Without a spec the camera frames every
// mesh in the world.
func (w *World) newCamera(spec *CameraSpec) *camera.OrbitCamera {
	cam := camera.NewOrbitCamera()
	if spec == nil {
		if lo, hi, ok := w.meshBounds(); ok {
			cam.FitToBounds(lo, hi)
		}
		return cam
	}
	if spec.FOVDegrees > 0 {
		cam.FOV = spec.FOVDegrees * gomath.Pi / 180
	}
	if spec.Width > 0 && spec.Height > 0 {
		cam.Width, cam.Height = spec.Width, spec.Height
	}
	if len(spec.Center) >= 3 {
		cam.Center = math.Vec3FromSlice(spec.Center)
	}
	if spec.Distance > 0 {
		cam.Distance = spec.Distance
	}
	if spec.Pitch != nil {
		cam.Pitch = *spec.Pitch
	}
	cam.Yaw = spec.Yaw
	return cam
}

func (w *World) meshBounds() (lo, hi math.Vec3, ok bool) {
	for _, model := range w.Models {
		for _, n := range model.RootNode().Meshes() {
			b := n.Bounds().Transformed(model.Transform())
			if !ok {
				lo, hi, ok = b.Min, b.Max, true
				continue
			}
			lo = math.Vec3{X: gomath.Min(lo.X, b.Min.X), Y: gomath.Min(lo.Y, b.Min.Y), Z: gomath.Min(lo.Z, b.Min.Z)}
			hi = math.Vec3{X: gomath.Max(hi.X, b.Max.X), Y: gomath.Max(hi.Y, b.Max.Y), Z: gomath.Max(hi.Z, b.Max.Z)}
		}
	}
	return lo, hi, ok
}
