// Package picking turns click rays into mesh identities by ray/AABB tests.
package picking

import (
	gomath "math"

	"github.com/Faultbox/animdirector/internal/engine/scene"
	"github.com/Faultbox/animdirector/pkg/math"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3 // Normalized direction
}

// NewRay creates a ray, normalizing dir.
func NewRay(origin, dir math.Vec3) Ray {
	return Ray{Origin: origin, Direction: dir.Normalize()}
}

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min math.Vec3
	Max math.Vec3
}

// FromBounds converts scene bounds to an AABB.
func FromBounds(b scene.Bounds) AABB {
	return AABB{Min: b.Min, Max: b.Max}
}

// slab intersects one axis. It narrows [tmin, tmax] and reports false on a miss.
func slab(origin, dir, lo, hi float64, tmin, tmax *float64) bool {
	if dir == 0 {
		return origin >= lo && origin <= hi
	}
	t1 := (lo - origin) / dir
	t2 := (hi - origin) / dir
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	if t1 > *tmin {
		*tmin = t1
	}
	if t2 < *tmax {
		*tmax = t2
	}
	return true
}

// IntersectAABB tests ray intersection with an axis-aligned bounding box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectAABB(box AABB) (t float64, hit bool) {
	tmin := -gomath.MaxFloat64
	tmax := gomath.MaxFloat64

	if !slab(r.Origin.X, r.Direction.X, box.Min.X, box.Max.X, &tmin, &tmax) ||
		!slab(r.Origin.Y, r.Direction.Y, box.Min.Y, box.Max.Y, &tmin, &tmax) ||
		!slab(r.Origin.Z, r.Direction.Z, box.Min.Z, box.Max.Z, &tmin, &tmax) {
		return 0, false
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// Hit is the result of a successful pick.
type Hit struct {
	Node     *scene.Node
	Distance float64
}

// PickMesh returns the nearest mesh of model hit by r. Mesh bounds are the
// posed bounds from the last refresh, placed by the model transform.
func PickMesh(model *scene.Model, r Ray) (Hit, bool) {
	if model == nil || model.RootNode() == nil {
		return Hit{}, false
	}
	xf := model.Transform()
	best := Hit{Distance: gomath.MaxFloat64}
	found := false
	for _, mesh := range model.RootNode().Meshes() {
		box := FromBounds(mesh.Bounds().Transformed(xf))
		if d, ok := r.IntersectAABB(box); ok && d < best.Distance {
			best = Hit{Node: mesh, Distance: d}
			found = true
		}
	}
	return best, found
}
