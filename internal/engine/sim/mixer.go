package sim

import (
	"github.com/Faultbox/animdirector/internal/engine"
	"github.com/Faultbox/animdirector/internal/engine/scene"
)

// Mixer advances the actions of one model and applies their poses.
type Mixer struct {
	model   *scene.Model
	actions map[string]*Action
	active  []*Action
	time    float64
	updates int
}

// NewMixer creates a mixer for model and attaches it.
func NewMixer(model *scene.Model) *Mixer {
	m := &Mixer{
		model:   model,
		actions: make(map[string]*Action),
	}
	model.AttachMixer(m)
	return m
}

// Action returns the action for clip, creating it on first use.
func (m *Mixer) Action(clip engine.Clip) engine.Handle {
	return m.action(clip)
}

func (m *Mixer) action(clip engine.Clip) *Action {
	if a, ok := m.actions[clip.ID()]; ok {
		return a
	}
	a := newAction(m, clip)
	m.actions[clip.ID()] = a
	return a
}

// Time returns the accumulated mixer time.
func (m *Mixer) Time() float64 { return m.time }

// Updates returns how many times Update has run.
func (m *Mixer) Updates() int { return m.updates }

// ActiveActions returns the number of scheduled actions.
func (m *Mixer) ActiveActions() int { return len(m.active) }

func (m *Mixer) activate(a *Action) {
	if a.scheduled {
		return
	}
	a.scheduled = true
	m.active = append(m.active, a)
}

func (m *Mixer) deactivate(a *Action) {
	if !a.scheduled {
		return
	}
	a.scheduled = false
	for i, x := range m.active {
		if x == a {
			m.active = append(m.active[:i], m.active[i+1:]...)
			break
		}
	}
}

// Update advances every scheduled action by dt seconds, applies weighted
// poses, then delivers finished/loop notifications.
func (m *Mixer) Update(dt float64) {
	m.updates++
	m.time += dt

	actions := append([]*Action(nil), m.active...)
	var events []engine.Event
	for _, a := range actions {
		a.step(dt, &events)
	}
	for _, a := range actions {
		m.apply(a)
	}
	for _, ev := range events {
		ev.Handle.(*Action).dispatch(ev)
	}
}

// apply writes a's sampled pose onto the model. Tracks targeting the root
// node drive the model transform; others drive node-local transforms.
func (m *Mixer) apply(a *Action) {
	w := a.EffectiveWeight()
	if w <= 0 {
		return
	}
	at := a.sampleTime()
	root := m.model.RootNode()
	for _, track := range a.clip.Tracks() {
		values := Sample(track, at)
		if values == nil {
			continue
		}
		name := track.NodeName()
		if root != nil && name == root.Name() {
			t := m.model.Transform()
			blendInto(&t, track.Property(), values, w)
			m.model.SetTransform(t)
			continue
		}
		if root == nil {
			continue
		}
		if node := root.Find(name); node != nil {
			blendInto(&node.Local, track.Property(), values, w)
		}
	}
}

var _ engine.Mixer = (*Mixer)(nil)
