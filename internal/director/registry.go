package director

import (
	"math"

	"go.uber.org/zap"

	"github.com/Faultbox/animdirector/internal/engine"
)

// playback is the runtime state shared by full and split animations.
type playback struct {
	id       string
	modelID  string
	name     string
	split    bool
	handle   engine.Handle
	duration float64

	// active is the active-count contribution. For full animations it is
	// the config's enabled flag.
	active     bool
	previewing bool
	// finished is set once the current run has reported its natural end.
	finished bool
	run      PlaybackSpec
	loops    int
	// driver is the binding that started the current run, if any.
	driver *BindingKey

	unsubscribe func()
}

// AnimationConfig is the stored configuration of one (model, clip) pair.
// Weight is internal scale (0-1); times are seconds.
type AnimationConfig struct {
	ID       string
	ModelID  string
	Name     string
	Duration float64

	Speed             float64
	Direction         Direction
	LoopMode          LoopMode
	LoopCount         int
	StartDelay        float64
	FadeIn            float64
	FadeOut           float64
	Weight            float64
	ClampWhenFinished bool
	// PreviewTime is the weight preview position; negative means
	// PreviewFraction of the duration.
	PreviewTime float64

	pb *playback
}

// Enabled reports whether the animation contributes to its model's active count.
func (c *AnimationConfig) Enabled() bool {
	return c.pb.active
}

func (c *AnimationConfig) spec() PlaybackSpec {
	return PlaybackSpec{
		LoopMode:   c.LoopMode,
		LoopCount:  c.LoopCount,
		Direction:  c.Direction,
		Speed:      c.Speed,
		Weight:     c.Weight,
		FadeIn:     c.FadeIn,
		FadeOut:    c.FadeOut,
		StartDelay: c.StartDelay,
		Clamp:      c.ClampWhenFinished,
	}
}

// modelState is everything the Director tracks for one model.
type modelState struct {
	id       string
	model    engine.Model
	snapshot engine.Transform
	configs  []*AnimationConfig
	byName   map[string]*AnimationConfig
	splits   []*SplitAnimation
	active   int
}

func (ms *modelState) playbacks() []*playback {
	out := make([]*playback, 0, len(ms.configs)+len(ms.splits))
	for _, c := range ms.configs {
		out = append(out, c.pb)
	}
	for _, s := range ms.splits {
		out = append(out, s.pb)
	}
	return out
}

// AnimationInfo identifies a full or split animation.
type AnimationInfo struct {
	ID       string
	ModelID  string
	Name     string
	Duration float64
	Split    bool
}

// AnimationStatus is a read-back of an animation's normalized configuration
// and live handle state.
type AnimationStatus struct {
	AnimationInfo

	Enabled    bool
	Pending    bool
	Previewing bool
	Running    bool
	Paused     bool
	Time       float64

	Speed             float64
	Direction         Direction
	LoopMode          LoopMode
	LoopCount         int
	StartDelay        float64
	FadeIn            float64
	FadeOut           float64
	Weight            float64
	WeightPercent     float64
	ClampWhenFinished bool
}

func animationID(modelID, clipName string) string {
	return modelID + "/" + clipName
}

// RegisterModel creates one configuration per clip of model. Registering a
// known model id again is a reload: previous configs, splits and timers are
// torn down, and bindings are re-resolved against the new scene graph.
func (d *Director) RegisterModel(model engine.Model) []AnimationInfo {
	if model == nil || model.Mixer() == nil {
		d.log.Warn("register: model has no mixer")
		return nil
	}
	modelID := model.ID()
	var priorSplits []SplitOrigin
	if old, ok := d.models[modelID]; ok {
		priorSplits = d.splitOrigins(old)
		if d.session != nil && d.session.ModelID == modelID {
			d.CancelBinding()
		}
		if err := d.teardownModel(old); err != nil {
			d.log.Warn("reload: teardown reported errors", zap.String("model", modelID), zap.Error(err))
		}
		d.log.Debug("model reloaded", zap.String("model", modelID))
	}

	ms := &modelState{
		id:       modelID,
		model:    model,
		snapshot: model.Transform(),
		byName:   make(map[string]*AnimationConfig),
	}
	d.models[modelID] = ms

	mixer := model.Mixer()
	for _, clip := range model.Clips() {
		if clip == nil {
			continue
		}
		if _, dup := ms.byName[clip.Name()]; dup {
			d.log.Warn("register: duplicate clip name ignored",
				zap.String("model", modelID), zap.String("clip", clip.Name()))
			continue
		}
		id := animationID(modelID, clip.Name())
		handle := mixer.Action(clip)
		if handle != nil {
			handle.SetEnabled(false)
		}
		cfg := &AnimationConfig{
			ID:          id,
			ModelID:     modelID,
			Name:        clip.Name(),
			Duration:    clip.Duration(),
			Speed:       d.opts.DefaultSpeed,
			Direction:   Forward,
			LoopMode:    LoopRepeat,
			LoopCount:   Infinite,
			Weight:      normalizeWeight(d.opts.DefaultWeight),
			PreviewTime: -1,
			pb: &playback{
				id:       id,
				modelID:  modelID,
				name:     clip.Name(),
				handle:   handle,
				duration: clip.Duration(),
			},
		}
		ms.configs = append(ms.configs, cfg)
		ms.byName[cfg.Name] = cfg
		d.configs[id] = cfg
	}

	for _, origin := range priorSplits {
		d.SplitByTime(modelID, origin.Source,
			[]TimeRange{{Start: origin.Start, End: origin.End}}, []string{origin.Name})
	}
	d.revalidateBindings(ms)

	list := d.Animations(modelID)
	d.log.Debug("animations loaded", zap.String("model", modelID), zap.Int("count", len(list)))
	d.emit(Event{Type: EventAnimationsLoaded, ModelID: modelID, Animations: list})
	return list
}

// UnregisterModel tears a model down and drops its bindings.
func (d *Director) UnregisterModel(modelID string) bool {
	ms, ok := d.models[modelID]
	if !ok {
		return false
	}
	if d.session != nil && d.session.ModelID == modelID {
		d.CancelBinding()
	}
	if err := d.teardownModel(ms); err != nil {
		d.log.Warn("unregister: teardown reported errors", zap.String("model", modelID), zap.Error(err))
	}
	for _, key := range d.bindingKeys(modelID) {
		d.removeBinding(d.bindings[key])
	}
	delete(d.models, modelID)
	return true
}

// Animations lists the full then split animations of a model.
func (d *Director) Animations(modelID string) []AnimationInfo {
	ms, ok := d.models[modelID]
	if !ok {
		return nil
	}
	out := make([]AnimationInfo, 0, len(ms.configs)+len(ms.splits))
	for _, c := range ms.configs {
		out = append(out, AnimationInfo{ID: c.ID, ModelID: c.ModelID, Name: c.Name, Duration: c.Duration})
	}
	for _, s := range ms.splits {
		out = append(out, s.info())
	}
	return out
}

// Find resolves a name or id on a model. Ids are tried first (full, then
// split). Names resolve to the most recent split with that name before a
// full animation of the same name.
func (d *Director) Find(modelID, ref string) (AnimationInfo, bool) {
	cfg, split := d.resolve(modelID, ref)
	switch {
	case split != nil:
		return split.info(), true
	case cfg != nil:
		return AnimationInfo{ID: cfg.ID, ModelID: cfg.ModelID, Name: cfg.Name, Duration: cfg.Duration}, true
	}
	return AnimationInfo{}, false
}

func (d *Director) resolve(modelID, ref string) (*AnimationConfig, *SplitAnimation) {
	if cfg, ok := d.configs[ref]; ok && (modelID == "" || cfg.ModelID == modelID) {
		return cfg, nil
	}
	if s, ok := d.splits[ref]; ok && (modelID == "" || s.ModelID == modelID) {
		return nil, s
	}
	ms, ok := d.models[modelID]
	if !ok {
		return nil, nil
	}
	if s := ms.latestSplit(ref); s != nil {
		return nil, s
	}
	if cfg, ok := ms.byName[ref]; ok {
		return cfg, nil
	}
	return nil, nil
}

// lookup returns the playback for an animation id of either kind.
func (d *Director) lookup(id string) *playback {
	if cfg, ok := d.configs[id]; ok {
		return cfg.pb
	}
	if s, ok := d.splits[id]; ok {
		return s.pb
	}
	return nil
}

// Configure merges p into the stored configuration of animationID. It
// returns false for unknown ids and split animations.
func (d *Director) Configure(animationID string, p Params) bool {
	cfg, ok := d.configs[animationID]
	if !ok {
		d.log.Debug("configure: unknown animation", zap.String("id", animationID))
		return false
	}

	weightChanged := d.applyParams(cfg, p)

	enabled := p.Enabled
	if enabled == nil && p.ActiveType != nil {
		on := *p.ActiveType == 1
		enabled = &on
	}

	switch {
	case enabled != nil && *enabled && !cfg.Enabled():
		d.startPlayback(cfg.pb, cfg.spec(), nil)
		return true
	case enabled != nil && !*enabled && cfg.Enabled():
		d.stopPlayback(cfg.pb)
		return true
	}

	if cfg.Enabled() {
		d.applyLive(cfg.pb, cfg.spec())
	} else if weightChanged {
		d.previewWeight(cfg)
	}
	return true
}

// applyParams merges p into cfg and reports whether the weight changed.
func (d *Director) applyParams(cfg *AnimationConfig, p Params) bool {
	th := d.opts.MillisecondThreshold
	if p.Speed != nil {
		cfg.Speed = normalizeSpeed(*p.Speed)
	}
	if p.Direction != nil && *p.Direction != 0 {
		cfg.Direction = Direction(*p.Direction).Normalize()
	}
	if p.LoopType != "" {
		count := 0
		if p.LoopCount != nil {
			count = *p.LoopCount
		}
		if mode, c, ok := p.LoopType.Resolve(count); ok {
			cfg.LoopMode, cfg.LoopCount = mode, c
		}
	} else {
		if p.LoopMode != nil {
			cfg.LoopMode = *p.LoopMode
		}
		if p.LoopCount != nil {
			cfg.LoopCount = *p.LoopCount
			if cfg.LoopCount < 0 {
				cfg.LoopCount = Infinite
			}
		}
	}
	if v := firstSet(p.StartDelay, p.StartDelayTime); v != nil {
		cfg.StartDelay = toSeconds(*v, th)
	}
	if v := firstSet(p.FadeIn, p.FadeInTime); v != nil {
		cfg.FadeIn = toSeconds(*v, th)
	}
	if v := firstSet(p.FadeOut, p.FadeOutTime); v != nil {
		cfg.FadeOut = toSeconds(*v, th)
	}
	if p.ClampWhenFinished != nil {
		cfg.ClampWhenFinished = *p.ClampWhenFinished
	}
	if p.PreviewTime != nil {
		cfg.PreviewTime = math.Min(math.Max(*p.PreviewTime, 0), cfg.Duration)
	}
	if p.Weight != nil {
		w := normalizeWeight(*p.Weight)
		changed := w != cfg.Weight
		cfg.Weight = w
		return changed
	}
	return false
}

// Status reads back an animation's normalized values and live state.
func (d *Director) Status(animationID string) (AnimationStatus, bool) {
	if cfg, ok := d.configs[animationID]; ok {
		st := d.baseStatus(cfg.pb)
		st.AnimationInfo = AnimationInfo{ID: cfg.ID, ModelID: cfg.ModelID, Name: cfg.Name, Duration: cfg.Duration}
		st.Speed = cfg.Speed
		st.Direction = cfg.Direction
		st.LoopMode = cfg.LoopMode
		st.LoopCount = cfg.LoopCount
		st.StartDelay = cfg.StartDelay
		st.FadeIn = cfg.FadeIn
		st.FadeOut = cfg.FadeOut
		st.Weight = cfg.Weight
		st.WeightPercent = cfg.Weight * 100
		st.ClampWhenFinished = cfg.ClampWhenFinished
		return st, true
	}
	if s, ok := d.splits[animationID]; ok {
		st := d.baseStatus(s.pb)
		st.AnimationInfo = s.info()
		r := s.pb.run
		st.Speed, st.Direction, st.LoopMode, st.LoopCount = r.Speed, r.Direction, r.LoopMode, r.LoopCount
		st.StartDelay, st.FadeIn, st.FadeOut = r.StartDelay, r.FadeIn, r.FadeOut
		st.Weight, st.WeightPercent, st.ClampWhenFinished = r.Weight, r.Weight*100, r.Clamp
		return st, true
	}
	return AnimationStatus{}, false
}

func (d *Director) baseStatus(pb *playback) AnimationStatus {
	st := AnimationStatus{
		Enabled:    pb.active,
		Pending:    d.timers.pending(pb.id, timerDelay),
		Previewing: pb.previewing,
	}
	if h := pb.handle; h != nil {
		st.Running = h.IsRunning()
		st.Paused = h.Paused()
		st.Time = h.Time()
	}
	return st
}

// ActiveCount returns the number of active animations on a model.
func (d *Director) ActiveCount(modelID string) int {
	if ms, ok := d.models[modelID]; ok {
		return ms.active
	}
	return 0
}
