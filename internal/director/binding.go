package director

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/animdirector/internal/engine"
)

// BindingKey identifies a mesh by its model and stable node identity.
type BindingKey struct {
	ModelID string
	MeshID  string
}

func (k BindingKey) String() string {
	return k.ModelID + "#" + k.MeshID
}

// MeshBinding associates a mesh with an animation and a click policy.
type MeshBinding struct {
	Key           BindingKey
	AnimationID   string
	AnimationName string
	Split         bool
	// SplitOrigin lets a split binding be re-derived after a reload.
	SplitOrigin *SplitOrigin
	Options     BindingOptions
	Resolved    Resolved

	mesh    engine.Node
	lastDir Direction
}

// Mesh returns the bound scene node.
func (b MeshBinding) Mesh() engine.Node {
	return b.mesh
}

// ClickResult reports what a click did.
type ClickResult int

const (
	ClickIgnored ClickResult = iota
	ClickBound
	ClickAlreadyBound
	ClickStarted
	ClickPaused
	ClickResumed
	ClickRestarted
	ClickReversed
)

func (r ClickResult) String() string {
	switch r {
	case ClickIgnored:
		return "ignored"
	case ClickBound:
		return "bound"
	case ClickAlreadyBound:
		return "already-bound"
	case ClickStarted:
		return "started"
	case ClickPaused:
		return "paused"
	case ClickResumed:
		return "resumed"
	case ClickRestarted:
		return "restarted"
	case ClickReversed:
		return "reversed"
	default:
		return fmt.Sprintf("ClickResult(%d)", int(r))
	}
}

func (d *Director) findMesh(ms *modelState, meshID string) engine.Node {
	if meshID == "" {
		return nil
	}
	return engine.FindNode(ms.model.Root(), func(n engine.Node) bool {
		return n.ID() == meshID && n.IsMesh()
	})
}

// resolveTarget resolves a binding target: a full animation by name, then
// by id, then a split by id or most recent name.
func (d *Director) resolveTarget(ms *modelState, ref string) (*AnimationConfig, *SplitAnimation) {
	if cfg, ok := ms.byName[ref]; ok {
		return cfg, nil
	}
	if cfg, ok := d.configs[ref]; ok && cfg.ModelID == ms.id {
		return cfg, nil
	}
	if s, ok := d.splits[ref]; ok && s.ModelID == ms.id {
		return nil, s
	}
	return nil, ms.latestSplit(ref)
}

// bindingBase is the PlaybackSpec binding options are folded over: one forward
// pass at the animation's configured speed and weight.
func (d *Director) bindingBase(b *MeshBinding) PlaybackSpec {
	base := d.splitBase()
	if cfg, ok := d.configs[b.AnimationID]; ok {
		base.Speed = cfg.Speed
		base.Weight = cfg.Weight
	}
	return base
}

func (d *Director) resolveBinding(b *MeshBinding) {
	click := b.Options.ClickBehavior
	if !click.valid() {
		click = ClickToggle
	}
	b.Resolved = Resolved{
		PlaybackSpec:  resolvePlay(d.bindingBase(b), b.Options.PlayOptions, d.opts.MillisecondThreshold),
		ClickBehavior: click,
	}
}

// Bind attaches an animation to a mesh, replacing any binding on the same
// mesh. The previous binding's playback and timers are torn down first.
func (d *Director) Bind(modelID, meshID, animation string, opts BindingOptions) bool {
	ms, ok := d.models[modelID]
	if !ok {
		d.log.Debug("bind: unknown model", zap.String("model", modelID))
		return false
	}
	mesh := d.findMesh(ms, meshID)
	if mesh == nil {
		d.log.Debug("bind: unknown mesh", zap.String("model", modelID), zap.String("mesh", meshID))
		return false
	}
	cfg, split := d.resolveTarget(ms, animation)
	if cfg == nil && split == nil {
		d.log.Debug("bind: unknown animation", zap.String("model", modelID), zap.String("animation", animation))
		return false
	}

	key := BindingKey{ModelID: modelID, MeshID: meshID}
	b := &MeshBinding{Key: key, Options: opts, mesh: mesh}
	if split != nil {
		origin := split.origin()
		b.AnimationID, b.AnimationName, b.Split, b.SplitOrigin = split.ID, split.Name, true, &origin
	} else {
		b.AnimationID, b.AnimationName = cfg.ID, cfg.Name
	}
	d.resolveBinding(b)

	if old, ok := d.bindings[key]; ok {
		d.teardownBinding(old)
	}
	d.bindings[key] = b
	d.log.Debug("mesh bound",
		zap.Stringer("key", key),
		zap.String("animation", b.AnimationID),
		zap.String("click", string(b.Resolved.ClickBehavior)))
	d.emit(Event{Type: EventMeshBound, ModelID: modelID, MeshID: meshID, AnimationID: b.AnimationID, Name: b.AnimationName, Key: key})
	return true
}

// teardownBinding stops the playback b started, with all of its timers.
func (d *Director) teardownBinding(b *MeshBinding) {
	pb := d.lookup(b.AnimationID)
	if pb != nil && pb.driver != nil && *pb.driver == b.Key {
		d.stopPlayback(pb)
	}
}

func (d *Director) removeBinding(b *MeshBinding) {
	d.teardownBinding(b)
	delete(d.bindings, b.Key)
	d.log.Debug("mesh unbound", zap.Stringer("key", b.Key))
	d.emit(Event{Type: EventMeshUnbound, ModelID: b.Key.ModelID, MeshID: b.Key.MeshID, AnimationID: b.AnimationID, Name: b.AnimationName, Key: b.Key})
}

// Unbind removes the binding on a mesh.
func (d *Director) Unbind(modelID, meshID string) bool {
	b, ok := d.bindings[BindingKey{ModelID: modelID, MeshID: meshID}]
	if !ok {
		return false
	}
	d.removeBinding(b)
	return true
}

// UpdateBinding merges opts into a binding. A run the binding started picks
// up the new parameters without restarting.
func (d *Director) UpdateBinding(modelID, meshID string, opts BindingOptions) bool {
	key := BindingKey{ModelID: modelID, MeshID: meshID}
	b, ok := d.bindings[key]
	if !ok {
		return false
	}
	b.Options.PlayOptions = mergePlayOptions(b.Options.PlayOptions, opts.PlayOptions)
	if opts.ClickBehavior != "" {
		b.Options.ClickBehavior = opts.ClickBehavior
	}
	d.resolveBinding(b)

	if pb := d.lookup(b.AnimationID); pb != nil && pb.active && pb.driver != nil && *pb.driver == key {
		spec := b.Resolved.PlaybackSpec
		if b.lastDir != 0 {
			spec.Direction = b.lastDir
		}
		d.applyLive(pb, spec)
	}
	d.emit(Event{Type: EventBindingUpdated, ModelID: modelID, MeshID: meshID, AnimationID: b.AnimationID, Name: b.AnimationName, Key: key})
	return true
}

// Binding returns a copy of the binding on a mesh.
func (d *Director) Binding(modelID, meshID string) (MeshBinding, bool) {
	b, ok := d.bindings[BindingKey{ModelID: modelID, MeshID: meshID}]
	if !ok {
		return MeshBinding{}, false
	}
	return *b, true
}

// Bindings returns copies of a model's bindings ordered by mesh id, or of
// every binding when modelID is empty.
func (d *Director) Bindings(modelID string) []MeshBinding {
	keys := d.bindingKeys(modelID)
	out := make([]MeshBinding, 0, len(keys))
	for _, k := range keys {
		out = append(out, *d.bindings[k])
	}
	return out
}

func (d *Director) bindingKeys(modelID string) []BindingKey {
	keys := make([]BindingKey, 0, len(d.bindings))
	for k := range d.bindings {
		if modelID == "" || k.ModelID == modelID {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ModelID != keys[j].ModelID {
			return keys[i].ModelID < keys[j].ModelID
		}
		return keys[i].MeshID < keys[j].MeshID
	})
	return keys
}

// revalidateBindings re-points a reloaded model's bindings at its new nodes
// and animations and drops the ones that no longer resolve.
func (d *Director) revalidateBindings(ms *modelState) {
	for _, key := range d.bindingKeys(ms.id) {
		b := d.bindings[key]
		mesh := d.findMesh(ms, key.MeshID)
		if mesh == nil {
			d.log.Debug("reload: bound mesh is gone", zap.Stringer("key", key))
			d.removeBinding(b)
			continue
		}
		var id string
		if b.Split && b.SplitOrigin != nil {
			if s := ms.latestSplit(b.SplitOrigin.Name); s != nil && s.Source == b.SplitOrigin.Source {
				id = s.ID
			}
		} else if cfg, ok := ms.byName[b.AnimationName]; ok {
			id = cfg.ID
		}
		if id == "" {
			d.log.Debug("reload: bound animation is gone", zap.Stringer("key", key), zap.String("animation", b.AnimationName))
			d.removeBinding(b)
			continue
		}
		b.AnimationID = id
		b.mesh = mesh
		b.lastDir = 0
		d.resolveBinding(b)
	}
}

// HandleClick routes a click on a mesh. During a binding session it
// completes the binding; otherwise it drives the mesh's bound animation
// according to its click behavior.
func (d *Director) HandleClick(modelID, meshID string) ClickResult {
	if d.session != nil {
		return d.sessionClick(modelID, meshID)
	}
	b, ok := d.bindings[BindingKey{ModelID: modelID, MeshID: meshID}]
	if !ok {
		return ClickIgnored
	}
	pb := d.lookup(b.AnimationID)
	if pb == nil || pb.handle == nil {
		d.log.Warn("click: bound animation has no handle", zap.Stringer("key", b.Key))
		return ClickIgnored
	}

	h := pb.handle
	dir := b.lastDir
	if dir == 0 {
		dir = b.Resolved.Direction
	}
	driven := pb.active && pb.driver != nil && *pb.driver == b.Key
	running := driven && h.IsRunning()
	atEnd := driven && (pb.finished || d.atEnd(pb, dir))
	paused := driven && h.Enabled() && h.Paused() && !atEnd

	var res ClickResult
	switch b.Resolved.ClickBehavior {
	case ClickRestart:
		res = d.restartFromBinding(b, pb, b.Resolved.Direction, driven)
	case ClickReverse:
		switch {
		case running && pb.run.LoopMode == LoopPingPong:
			// Ping-pong keeps a positive timescale; restart in the other direction.
			d.startFromBinding(b, pb, dir.Flip())
			res = ClickReversed
		case running:
			h.SetTimeScale(-h.TimeScale())
			b.lastDir = dir.Flip()
			pb.run.Direction = b.lastDir
			d.scheduleFadeOut(pb)
			res = ClickReversed
		case atEnd:
			d.startFromBinding(b, pb, dir.Flip())
			res = ClickReversed
		case paused:
			d.Resume(pb.id)
			res = ClickResumed
		case b.lastDir != 0:
			d.startFromBinding(b, pb, dir.Flip())
			res = ClickReversed
		default:
			d.startFromBinding(b, pb, dir)
			res = ClickStarted
		}
	case ClickRestartOrReverse:
		if atEnd {
			d.startFromBinding(b, pb, dir.Flip())
			res = ClickReversed
		} else {
			res = d.restartFromBinding(b, pb, b.Resolved.Direction, driven)
		}
	default:
		switch {
		case running:
			d.Pause(pb.id)
			res = ClickPaused
		case paused:
			d.Resume(pb.id)
			res = ClickResumed
		default:
			d.startFromBinding(b, pb, b.Resolved.Direction)
			res = ClickStarted
		}
	}
	d.log.Debug("click", zap.Stringer("key", b.Key), zap.Stringer("result", res))
	return res
}

func (d *Director) restartFromBinding(b *MeshBinding, pb *playback, dir Direction, driven bool) ClickResult {
	d.startFromBinding(b, pb, dir)
	if driven {
		return ClickRestarted
	}
	return ClickStarted
}

func (d *Director) startFromBinding(b *MeshBinding, pb *playback, dir Direction) {
	spec := b.Resolved.PlaybackSpec
	spec.Direction = dir
	key := b.Key
	b.lastDir = dir
	d.startPlayback(pb, spec, &key)
}

// atEnd reports whether pb sits at the end of a pass in direction dir.
func (d *Director) atEnd(pb *playback, dir Direction) bool {
	t := pb.handle.Time()
	if dir == Reverse {
		return t <= d.opts.EndEpsilon
	}
	return math.Abs(t-pb.duration) <= d.opts.EndEpsilon
}

// Hover highlights a bound mesh and reports whether it is clickable.
func (d *Director) Hover(modelID, meshID string) bool {
	b, ok := d.bindings[BindingKey{ModelID: modelID, MeshID: meshID}]
	if !ok {
		d.opts.Highlighter.Clear(modelID, IntentHover)
		return false
	}
	d.opts.Highlighter.Highlight(modelID, []engine.Node{b.mesh}, IntentHover)
	return true
}
