// Package engine declares the narrow collaborator surface the directing layer
// consumes: clips, playback handles, mixers, scene nodes and models.
//
// The directing layer never renders. Anything that can supply these
// primitives (a GPU renderer, a headless simulator) can sit behind them.
package engine

import (
	"math"

	pmath "github.com/Faultbox/animdirector/pkg/math"
)

// LoopKind is the engine's discrete loop model.
type LoopKind int

const (
	LoopOnce LoopKind = iota
	LoopRepeat
	LoopPingPong
)

// String returns the loop kind name.
func (k LoopKind) String() string {
	switch k {
	case LoopOnce:
		return "once"
	case LoopRepeat:
		return "repeat"
	case LoopPingPong:
		return "pingpong"
	default:
		return "unknown"
	}
}

// Forever is the repetition count meaning "never finish".
const Forever = math.MaxInt

// Transform is a model's position/rotation/scale state.
type Transform struct {
	Position pmath.Vec3
	Rotation pmath.Quat
	Scale    pmath.Vec3
}

// IdentityTransform returns the rest transform.
func IdentityTransform() Transform {
	return Transform{Rotation: pmath.QuatIdentity(), Scale: pmath.Vec3One()}
}

// ApproxEqual compares two transforms component-wise within eps.
func (t Transform) ApproxEqual(other Transform, eps float64) bool {
	return t.Position.ApproxEqual(other.Position, eps) &&
		t.Scale.ApproxEqual(other.Scale, eps) &&
		t.Rotation.ApproxEqual(other.Rotation, eps)
}

// Clip is a named, timed set of keyframe tracks.
type Clip interface {
	// ID is the engine-assigned identity, unique per clip instance.
	ID() string
	Name() string
	// Duration is the clip length in seconds.
	Duration() float64
	Tracks() []Track
}

// ClipFactory derives new clips from raw keyframe data.
type ClipFactory interface {
	NewClip(name string, duration float64, tracks []Track) (Clip, error)
}

// EventKind identifies a handle notification.
type EventKind int

const (
	EventFinished EventKind = iota
	EventLoop
)

// Event is a notification raised by a handle during Mixer.Update.
type Event struct {
	Kind   EventKind
	Handle Handle
	// Direction is +1 or -1 for finished events.
	Direction int
	// LoopDelta is the number of wraps for loop events.
	LoopDelta int
}

// Listener receives handle notifications.
type Listener func(Event)

// Handle is the runtime object that plays one clip against one model.
type Handle interface {
	Clip() Clip

	Enabled() bool
	SetEnabled(enabled bool)
	Paused() bool
	SetPaused(paused bool)

	// Time is the local clip time in seconds.
	Time() float64
	SetTime(t float64)
	// TimeScale is signed; negative plays backwards.
	TimeScale() float64
	SetTimeScale(scale float64)

	Loop() (LoopKind, int)
	SetLoop(kind LoopKind, repetitions int)
	ClampWhenFinished() bool
	SetClampWhenFinished(clamp bool)

	Weight() float64
	SetWeight(w float64)
	// EffectiveWeight is the weight after fades, zero when disabled.
	EffectiveWeight() float64
	FadeIn(duration float64)
	FadeOut(duration float64)
	StopFading()

	// Play schedules the handle in its mixer.
	Play()
	// Stop unschedules the handle and resets it.
	Stop()
	// Reset rewinds time, clears pause and fades, and re-enables the handle.
	Reset()
	// IsRunning reports enabled, unpaused, scheduled with a nonzero time scale.
	IsRunning() bool

	// Subscribe registers l for finished/loop events and returns a cancel func.
	Subscribe(l Listener) func()
}

// Mixer advances every scheduled handle of a model.
type Mixer interface {
	// Action returns the handle for clip, creating it on first use.
	Action(clip Clip) Handle
	Update(dt float64)
	// Time is the accumulated mixer time in seconds.
	Time() float64
}

// Node is a scene-graph node. ID must be stable for the node's lifetime and
// survive model reloads.
type Node interface {
	ID() string
	Name() string
	IsMesh() bool
	Skinned() bool
	Children() []Node
	// RefreshBounds recomputes bounding volumes from the current pose.
	RefreshBounds()
}

// Model is an animated scene object with its own mixer.
type Model interface {
	ID() string
	Root() Node
	Transform() Transform
	SetTransform(t Transform)
	Mixer() Mixer
	Clips() []Clip
}

// Disposer is implemented by engine resources that hold releasable state.
type Disposer interface {
	Dispose() error
}

// Walk visits root and its descendants depth-first. Returning false from fn
// stops descent into that node's children.
func Walk(root Node, fn func(Node) bool) {
	if root == nil {
		return
	}
	if !fn(root) {
		return
	}
	for _, child := range root.Children() {
		Walk(child, fn)
	}
}

// FindNode returns the first node for which match returns true.
func FindNode(root Node, match func(Node) bool) Node {
	var found Node
	Walk(root, func(n Node) bool {
		if found != nil {
			return false
		}
		if match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}
