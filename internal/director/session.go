package director

import (
	"go.uber.org/zap"

	"github.com/Faultbox/animdirector/internal/engine"
)

// BindingSession is the interactive workflow that assigns one animation to
// a mesh chosen by click.
type BindingSession struct {
	ModelID     string
	AnimationID string
	Name        string
	Options     BindingOptions
	// Candidates are the ids of the meshes the clip animates, in scene order.
	Candidates []string

	meshes map[string]engine.Node
	pb     *playback
}

// BindingSession returns a copy of the current session, if any.
func (d *Director) BindingSession() (BindingSession, bool) {
	if d.session == nil {
		return BindingSession{}, false
	}
	s := *d.session
	s.Candidates = append([]string(nil), d.session.Candidates...)
	return s, true
}

// StartBinding opens a binding session for an animation. Candidate meshes
// are highlighted, split by whether they are already bound, and the
// animation is held paused on its final frame. It fails when the clip
// animates no mesh.
func (d *Director) StartBinding(modelID, animation string, opts BindingOptions) bool {
	ms, ok := d.models[modelID]
	if !ok {
		d.log.Debug("start binding: unknown model", zap.String("model", modelID))
		return false
	}
	cfg, split := d.resolveTarget(ms, animation)
	var pb *playback
	switch {
	case split != nil:
		pb = split.pb
	case cfg != nil:
		pb = cfg.pb
	default:
		d.log.Debug("start binding: unknown animation", zap.String("model", modelID), zap.String("animation", animation))
		return false
	}
	if pb.handle == nil || pb.handle.Clip() == nil {
		d.log.Warn("start binding: animation has no engine handle", zap.String("id", pb.id))
		return false
	}

	order, meshes := candidateMeshes(ms.model.Root(), pb.handle.Clip())
	if len(order) == 0 {
		d.log.Debug("start binding: clip animates no mesh", zap.String("id", pb.id))
		return false
	}
	if d.session != nil {
		d.CancelBinding()
	}

	d.session = &BindingSession{
		ModelID:     modelID,
		AnimationID: pb.id,
		Name:        pb.name,
		Options:     opts,
		Candidates:  order,
		meshes:      meshes,
		pb:          pb,
	}
	d.highlightSession()
	d.previewEnd(pb)

	d.log.Debug("binding session started", zap.String("id", pb.id), zap.Int("candidates", len(order)))
	d.emit(Event{Type: EventBindingStarted, ModelID: modelID, AnimationID: pb.id, Name: pb.name})
	return true
}

// CancelBinding closes the session without binding anything.
func (d *Director) CancelBinding() bool {
	s := d.session
	if s == nil {
		return false
	}
	d.endSession()
	d.log.Debug("binding session cancelled", zap.String("id", s.AnimationID))
	d.emit(Event{Type: EventBindingCancelled, ModelID: s.ModelID, AnimationID: s.AnimationID, Name: s.Name})
	return true
}

func (d *Director) endSession() {
	s := d.session
	d.session = nil
	if s.pb.previewing {
		d.stopPlayback(s.pb)
	}
	d.opts.Highlighter.Clear(s.ModelID, IntentCandidate)
	d.opts.Highlighter.Clear(s.ModelID, IntentBound)
}

func (d *Director) sessionClick(modelID, meshID string) ClickResult {
	s := d.session
	if modelID != s.ModelID {
		return ClickIgnored
	}
	if _, ok := s.meshes[meshID]; !ok {
		return ClickIgnored
	}
	key := BindingKey{ModelID: modelID, MeshID: meshID}
	if b, ok := d.bindings[key]; ok {
		cp := *b
		d.emit(Event{Type: EventBindingClickOnBound, ModelID: modelID, MeshID: meshID, AnimationID: b.AnimationID, Key: key, Binding: &cp})
		return ClickAlreadyBound
	}
	if !d.Bind(modelID, meshID, s.AnimationID, s.Options) {
		return ClickIgnored
	}
	d.endSession()
	return ClickBound
}

func (d *Director) highlightSession() {
	s := d.session
	var free, bound []engine.Node
	for _, id := range s.Candidates {
		if _, ok := d.bindings[BindingKey{ModelID: s.ModelID, MeshID: id}]; ok {
			bound = append(bound, s.meshes[id])
		} else {
			free = append(free, s.meshes[id])
		}
	}
	h := d.opts.Highlighter
	h.Highlight(s.ModelID, free, IntentCandidate)
	h.Highlight(s.ModelID, bound, IntentBound)
}

// previewEnd holds pb paused on its final frame.
func (d *Director) previewEnd(pb *playback) {
	if pb.active {
		d.stopPlayback(pb)
	}
	weight := 1.0
	if cfg, ok := d.configs[pb.id]; ok && cfg.Weight > 0 {
		weight = cfg.Weight
	}
	h := pb.handle
	h.Reset()
	h.SetLoop(engine.LoopOnce, 1)
	h.SetClampWhenFinished(true)
	h.SetTime(pb.duration)
	h.SetPaused(true)
	h.SetWeight(weight)
	h.SetEnabled(true)
	h.Play()
	pb.previewing = true
}

// candidateMeshes returns the meshes a clip animates. Tracks targeting a
// mesh select it; tracks targeting a group select the meshes beneath it.
func candidateMeshes(root engine.Node, clip engine.Clip) ([]string, map[string]engine.Node) {
	targets := make(map[string]bool)
	for _, tr := range clip.Tracks() {
		targets[tr.NodeName()] = true
	}
	var order []string
	meshes := make(map[string]engine.Node)
	add := func(n engine.Node) {
		if _, dup := meshes[n.ID()]; dup {
			return
		}
		meshes[n.ID()] = n
		order = append(order, n.ID())
	}
	engine.Walk(root, func(n engine.Node) bool {
		if !targets[n.Name()] {
			return true
		}
		engine.Walk(n, func(c engine.Node) bool {
			if c.IsMesh() {
				add(c)
			}
			return true
		})
		return false
	})
	return order, meshes
}
