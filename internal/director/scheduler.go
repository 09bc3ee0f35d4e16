package director

import (
	"math"

	"go.uber.org/zap"

	"github.com/Faultbox/animdirector/internal/engine"
)

// PlayAnimation merges p into the named animation's configuration and starts
// it. A name that resolves to a split plays the split with its last options.
func (d *Director) PlayAnimation(modelID, name string, p Params) bool {
	cfg, split := d.resolve(modelID, name)
	switch {
	case split != nil:
		return d.playSplit(split, split.opts)
	case cfg == nil:
		d.log.Debug("play: unknown animation", zap.String("model", modelID), zap.String("name", name))
		return false
	}
	p.Enabled, p.ActiveType = nil, nil
	d.applyParams(cfg, p)
	return d.startPlayback(cfg.pb, cfg.spec(), nil)
}

// Play starts an animation by id with its stored configuration.
func (d *Director) Play(animationID string) bool {
	if cfg, ok := d.configs[animationID]; ok {
		return d.startPlayback(cfg.pb, cfg.spec(), nil)
	}
	if s, ok := d.splits[animationID]; ok {
		return d.playSplit(s, s.opts)
	}
	d.log.Debug("play: unknown animation", zap.String("id", animationID))
	return false
}

// Stop halts an animation, cancels its timers and restores the model when
// nothing else on it is active. Stopping an idle animation is a no-op.
func (d *Director) Stop(animationID string) bool {
	pb := d.lookup(animationID)
	if pb == nil {
		d.log.Debug("stop: unknown animation", zap.String("id", animationID))
		return false
	}
	d.stopPlayback(pb)
	return true
}

// StopAll stops every active or previewing animation of a model and returns
// how many were stopped.
func (d *Director) StopAll(modelID string) int {
	ms, ok := d.models[modelID]
	if !ok {
		return 0
	}
	n := 0
	for _, pb := range ms.playbacks() {
		if pb.active || pb.previewing {
			d.stopPlayback(pb)
			n++
		}
	}
	return n
}

// Pause freezes a running animation in place.
func (d *Director) Pause(animationID string) bool {
	pb := d.lookup(animationID)
	if pb == nil || !pb.active || pb.handle == nil {
		return false
	}
	if !pb.handle.Enabled() || pb.handle.Paused() {
		return false
	}
	pb.handle.SetPaused(true)
	d.timers.cancel(pb.id, timerFade)
	return true
}

// Resume continues a paused animation and re-arms its fade-out. A clamped
// run that already finished stays finished.
func (d *Director) Resume(animationID string) bool {
	pb := d.lookup(animationID)
	if pb == nil || !pb.active || pb.finished || pb.handle == nil || !pb.handle.Paused() {
		return false
	}
	pb.handle.SetPaused(false)
	pb.finished = false
	d.scheduleFadeOut(pb)
	return true
}

// Seek moves an animation's local time, clamped to the clip.
func (d *Director) Seek(animationID string, t float64) bool {
	pb := d.lookup(animationID)
	if pb == nil || pb.handle == nil {
		return false
	}
	pb.handle.SetTime(math.Min(math.Max(t, 0), pb.duration))
	return true
}

// startPlayback activates pb and either launches it or arms its start delay.
// driver names the binding that initiated the run.
func (d *Director) startPlayback(pb *playback, spec PlaybackSpec, driver *BindingKey) bool {
	ms, ok := d.models[pb.modelID]
	if !ok {
		return false
	}
	if pb.handle == nil {
		d.log.Warn("play: animation has no engine handle", zap.String("id", pb.id))
		return false
	}
	d.timers.cancelAll(pb.id)

	pb.run = spec
	pb.driver = driver
	pb.previewing = false
	pb.finished = false
	if !pb.active {
		pb.active = true
		ms.active++
	}
	d.subscribe(pb)

	if spec.StartDelay > 0 {
		pb.handle.Stop()
		pb.handle.SetEnabled(false)
		d.log.Debug("start delayed", zap.String("id", pb.id), zap.Float64("delay", spec.StartDelay))
		d.timers.schedule(pb.id, timerDelay, spec.StartDelay, func() {
			if !pb.active {
				return
			}
			d.launch(pb)
		})
		return true
	}
	d.launch(pb)
	return true
}

func (d *Director) subscribe(pb *playback) {
	if pb.unsubscribe != nil {
		return
	}
	pb.unsubscribe = pb.handle.Subscribe(func(ev engine.Event) {
		d.onEngineEvent(pb, ev)
	})
}

// launch configures the handle from pb.run and plays it.
func (d *Director) launch(pb *playback) {
	if pb.duration <= d.opts.MinimalDuration {
		d.launchMinimal(pb)
		return
	}
	h, spec := pb.handle, pb.run
	loop := TranslateLoop(spec.LoopMode, spec.LoopCount, spec.Direction)

	h.Reset()
	h.SetLoop(loop.Kind, loop.Repetitions)
	h.SetClampWhenFinished(spec.Clamp)
	if spec.Direction == Reverse {
		h.SetTime(pb.duration)
	} else {
		h.SetTime(0)
	}
	h.SetTimeScale(timeScale(spec))
	h.SetWeight(spec.Weight)
	if spec.FadeIn > 0 {
		h.FadeIn(spec.FadeIn)
	}
	h.SetEnabled(true)
	h.Play()
	pb.loops = 0

	d.scheduleFadeOut(pb)
	d.log.Debug("playing",
		zap.String("id", pb.id),
		zap.Stringer("loop", spec.LoopMode),
		zap.Int("repetitions", loop.Repetitions),
		zap.Float64("timescale", h.TimeScale()))
}

// launchMinimal applies a near-zero-length clip as a held pose and arms its
// teardown.
func (d *Director) launchMinimal(pb *playback) {
	h, spec := pb.handle, pb.run
	h.Reset()
	h.SetLoop(engine.LoopOnce, 1)
	h.SetClampWhenFinished(spec.Clamp)
	if spec.Direction == Reverse {
		h.SetTime(pb.duration)
	}
	h.SetWeight(spec.Weight)
	h.SetPaused(true)
	h.SetEnabled(true)
	h.Play()

	hold := math.Max(d.opts.MinimalDuration, pb.duration)
	if spec.FadeOut > 0 {
		h.FadeOut(spec.FadeOut)
		hold = spec.FadeOut
	}
	d.log.Debug("minimal clip applied as pose", zap.String("id", pb.id), zap.Float64("hold", hold))
	d.timers.schedule(pb.id, timerTeardown, hold, func() {
		if !pb.active {
			return
		}
		if !spec.Clamp {
			h.SetWeight(0)
		}
		d.complete(pb)
	})
}

// timeScale is unsigned for ping-pong, which reverses internally.
func timeScale(spec PlaybackSpec) float64 {
	if spec.LoopMode == LoopPingPong {
		return spec.Speed
	}
	return spec.Speed * float64(spec.Direction.Normalize())
}

// scheduleFadeOut arms the fade-out duration/speed - fadeOut seconds after
// now, for every loop mode.
func (d *Director) scheduleFadeOut(pb *playback) {
	spec := pb.run
	if spec.FadeOut <= 0 || spec.Speed <= 0 || pb.duration <= 0 {
		d.timers.cancel(pb.id, timerFade)
		return
	}
	h := pb.handle
	d.timers.schedule(pb.id, timerFade, math.Max(0, pb.duration/spec.Speed-spec.FadeOut), func() {
		if !pb.active || !h.Enabled() || !h.IsRunning() {
			return
		}
		d.log.Debug("fading out", zap.String("id", pb.id), zap.Float64("duration", spec.FadeOut))
		h.FadeOut(spec.FadeOut)
	})
}

func (d *Director) onEngineEvent(pb *playback, ev engine.Event) {
	switch ev.Kind {
	case engine.EventLoop:
		if !pb.active {
			return
		}
		delta := ev.LoopDelta
		if delta < 0 {
			delta = -delta
		}
		pb.loops += delta
		reps := pb.run.LoopCount
		switch {
		case pb.run.LoopMode == LoopOnce:
			reps = 1
		case reps < 0:
			reps = Infinite
		}
		d.emit(Event{
			Type:        EventAnimationLoop,
			ModelID:     pb.modelID,
			AnimationID: pb.id,
			Name:        pb.name,
			LoopIndex:   pb.loops,
			Repetitions: reps,
		})
	case engine.EventFinished:
		d.complete(pb)
	}
}

// complete handles the natural end of a run. Clamped runs hold their final
// pose and stay active; others are deactivated, restoring the model.
func (d *Director) complete(pb *playback) {
	if !pb.active || pb.finished {
		return
	}
	d.timers.cancel(pb.id, timerFade)
	pb.finished = true
	ev := Event{Type: EventAnimationFinished, ModelID: pb.modelID, AnimationID: pb.id, Name: pb.name}
	if pb.run.Clamp {
		d.log.Debug("finished, holding final pose", zap.String("id", pb.id))
		d.emit(ev)
		return
	}
	d.log.Debug("finished", zap.String("id", pb.id))
	d.deactivate(pb)
	d.emit(ev)
}

// stopPlayback cancels every timer of pb before deactivating it.
func (d *Director) stopPlayback(pb *playback) {
	d.timers.cancelAll(pb.id)
	d.deactivate(pb)
}

// deactivate resets the handle and releases pb's active-count contribution.
// The model transform is restored once its count reaches zero.
func (d *Director) deactivate(pb *playback) {
	wasActive, wasPreview := pb.active, pb.previewing
	if h := pb.handle; h != nil {
		h.Stop()
		h.SetTime(0)
		h.SetEnabled(false)
	}
	pb.active = false
	pb.previewing = false
	pb.finished = false
	pb.driver = nil

	ms, ok := d.models[pb.modelID]
	if !ok {
		return
	}
	if wasActive {
		ms.active--
		if ms.active < 0 {
			d.log.Warn("active count underflow", zap.String("model", ms.id))
			ms.active = 0
		}
	}
	if (wasActive || wasPreview) && ms.active == 0 {
		ms.model.SetTransform(ms.snapshot)
	}
}

// applyLive pushes a changed spec onto a running animation without
// restarting it. During a pending start delay only the stored spec changes.
func (d *Director) applyLive(pb *playback, spec PlaybackSpec) {
	delay := pb.run.StartDelay
	pb.run = spec
	pb.run.StartDelay = delay
	if d.timers.pending(pb.id, timerDelay) || pb.handle == nil {
		return
	}
	h := pb.handle
	h.SetWeight(spec.Weight)
	if pb.duration <= d.opts.MinimalDuration {
		return
	}
	h.SetClampWhenFinished(spec.Clamp)
	loop := TranslateLoop(spec.LoopMode, spec.LoopCount, spec.Direction)
	h.SetLoop(loop.Kind, loop.Repetitions)
	if !pb.finished {
		h.SetTimeScale(timeScale(spec))
	}
	if h.IsRunning() {
		d.scheduleFadeOut(pb)
	}
}

// previewWeight shows an idle animation's pose at its preview time with the
// configured weight, or drops the preview when the weight is zero.
func (d *Director) previewWeight(cfg *AnimationConfig) {
	pb := cfg.pb
	if pb.handle == nil {
		d.log.Warn("preview: animation has no engine handle", zap.String("id", pb.id))
		return
	}
	if cfg.Weight <= 0 {
		if pb.previewing {
			d.stopPlayback(pb)
		}
		return
	}
	h := pb.handle
	if !pb.previewing {
		at := cfg.PreviewTime
		if at < 0 {
			at = cfg.Duration * d.opts.PreviewFraction
		}
		h.Reset()
		h.SetLoop(engine.LoopOnce, 1)
		h.SetClampWhenFinished(true)
		h.SetTime(at)
		h.SetPaused(true)
		h.Play()
		pb.previewing = true
		d.log.Debug("weight preview", zap.String("id", pb.id), zap.Float64("time", at))
	}
	h.SetWeight(cfg.Weight)
	h.SetEnabled(true)
}
