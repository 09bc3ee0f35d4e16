// Package scene provides the scene graph the directing layer resolves meshes
// against: named nodes with stable identities, mesh and skinning flags, and
// local bounds.
package scene

import (
	"github.com/Faultbox/animdirector/internal/engine"
	"github.com/Faultbox/animdirector/pkg/math"
)

// Bounds is an axis-aligned bounding box in node space.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}

// Transformed returns the box scaled and then offset by t.
// Rotation is ignored; the result stays axis-aligned.
func (b Bounds) Transformed(t engine.Transform) Bounds {
	lo := b.Min.Mul(t.Scale).Add(t.Position)
	hi := b.Max.Mul(t.Scale).Add(t.Position)
	if lo.X > hi.X {
		lo.X, hi.X = hi.X, lo.X
	}
	if lo.Y > hi.Y {
		lo.Y, hi.Y = hi.Y, lo.Y
	}
	if lo.Z > hi.Z {
		lo.Z, hi.Z = hi.Z, lo.Z
	}
	return Bounds{Min: lo, Max: hi}
}

// NodeSpec describes a node to create.
type NodeSpec struct {
	Name    string
	Mesh    bool
	Skinned bool
	Bounds  Bounds
}

// Node is a scene-graph node.
type Node struct {
	id       string
	name     string
	mesh     bool
	skinned  bool
	parent   *Node
	children []*Node

	// Local is the node's animated local transform.
	Local engine.Transform

	rest         engine.Transform
	localBounds  Bounds
	poseBounds   Bounds
	boundsPasses int
}

// NewNode creates a detached node.
func NewNode(spec NodeSpec) *Node {
	return &Node{
		name:        spec.Name,
		mesh:        spec.Mesh,
		skinned:     spec.Skinned,
		Local:       engine.IdentityTransform(),
		rest:        engine.IdentityTransform(),
		localBounds: spec.Bounds,
		poseBounds:  spec.Bounds,
	}
}

// ID returns the stable identity, empty until assigned by an IdentityTable.
func (n *Node) ID() string { return n.id }

// Name returns the node name.
func (n *Node) Name() string { return n.name }

// IsMesh reports whether the node carries geometry.
func (n *Node) IsMesh() bool { return n.mesh }

// Skinned reports whether the node is a skinned mesh.
func (n *Node) Skinned() bool { return n.skinned }

// Parent returns the parent node or nil.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the child nodes.
func (n *Node) Children() []engine.Node {
	out := make([]engine.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

// Add attaches child under n and returns child.
func (n *Node) Add(child *Node) *Node {
	child.parent = n
	n.children = append(n.children, child)
	return child
}

// SetRest records the node's bind-pose transform and resets Local to it.
func (n *Node) SetRest(t engine.Transform) {
	n.rest = t
	n.Local = t
}

// Rest returns the bind-pose transform.
func (n *Node) Rest() engine.Transform { return n.rest }

// Bounds returns the bounds computed by the last RefreshBounds.
func (n *Node) Bounds() Bounds { return n.poseBounds }

// BoundsRefreshes returns how many times RefreshBounds has run.
func (n *Node) BoundsRefreshes() int { return n.boundsPasses }

// RefreshBounds recomputes the posed bounds from Local.
func (n *Node) RefreshBounds() {
	n.poseBounds = n.localBounds.Transformed(n.Local)
	n.boundsPasses++
}

// Find returns the first descendant (or n itself) with the given name.
func (n *Node) Find(name string) *Node {
	found := engine.FindNode(n, func(x engine.Node) bool { return x.Name() == name })
	if found == nil {
		return nil
	}
	return found.(*Node)
}

// FindByID returns the descendant (or n itself) with the given identity.
func (n *Node) FindByID(id string) *Node {
	if id == "" {
		return nil
	}
	found := engine.FindNode(n, func(x engine.Node) bool { return x.ID() == id })
	if found == nil {
		return nil
	}
	return found.(*Node)
}

// Meshes returns every mesh node under n, including n.
func (n *Node) Meshes() []*Node {
	var out []*Node
	engine.Walk(n, func(x engine.Node) bool {
		if x.IsMesh() {
			out = append(out, x.(*Node))
		}
		return true
	})
	return out
}
