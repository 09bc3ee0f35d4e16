package director

import (
	"fmt"
	"sort"

	"github.com/Faultbox/animdirector/internal/engine"
)

// EventType identifies a Director notification.
type EventType int

const (
	EventAnimationFinished EventType = iota
	EventAnimationLoop
	EventAnimationsLoaded
	EventMeshBound
	EventMeshUnbound
	EventBindingUpdated
	EventBindingClickOnBound
	EventBindingStarted
	EventBindingCancelled
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventAnimationFinished:
		return "animation-finished"
	case EventAnimationLoop:
		return "animation-loop"
	case EventAnimationsLoaded:
		return "animations-loaded"
	case EventMeshBound:
		return "mesh-animation-bound"
	case EventMeshUnbound:
		return "mesh-animation-unbound"
	case EventBindingUpdated:
		return "mesh-animation-updated"
	case EventBindingClickOnBound:
		return "binding-click-on-already-bound"
	case EventBindingStarted:
		return "binding-mode-started"
	case EventBindingCancelled:
		return "binding-mode-cancelled"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is a Director notification. Only the fields relevant to Type are set.
type Event struct {
	Type        EventType
	ModelID     string
	AnimationID string
	Name        string
	MeshID      string

	// LoopIndex counts completed passes; Repetitions is -1 for infinite loops.
	LoopIndex   int
	Repetitions int

	Animations []AnimationInfo
	Key        BindingKey
	Binding    *MeshBinding
	Err        error
}

// Subscribe registers fn for every event and returns a cancel func.
func (d *Director) Subscribe(fn func(Event)) func() {
	id := d.nextListener
	d.nextListener++
	d.listeners[id] = fn
	return func() { delete(d.listeners, id) }
}

func (d *Director) emit(ev Event) {
	ids := make([]int, 0, len(d.listeners))
	for id := range d.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := d.listeners[id]; ok {
			fn(ev)
		}
	}
}

// Intent is the semantic category of a highlight request.
type Intent int

const (
	IntentCandidate Intent = iota
	IntentBound
	IntentHover
)

func (i Intent) String() string {
	switch i {
	case IntentCandidate:
		return "candidate"
	case IntentBound:
		return "already-bound"
	case IntentHover:
		return "hover"
	default:
		return fmt.Sprintf("Intent(%d)", int(i))
	}
}

// Highlighter renders visual feedback for a set of meshes.
type Highlighter interface {
	Highlight(modelID string, meshes []engine.Node, intent Intent)
	Clear(modelID string, intent Intent)
}

// NopHighlighter discards highlight requests.
type NopHighlighter struct{}

func (NopHighlighter) Highlight(string, []engine.Node, Intent) {}
func (NopHighlighter) Clear(string, Intent)                    {}
