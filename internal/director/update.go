package director

import (
	"go.uber.org/zap"

	"github.com/Faultbox/animdirector/internal/engine"
)

// Update advances the Director by dt seconds. Every model with a live handle
// is advanced first; models with nothing running and no visible weight are
// skipped. Timers due by the end of the frame fire last, so a start delay
// or fade-out takes effect from the next frame on.
func (d *Director) Update(dt float64) {
	if dt < 0 {
		dt = 0
	}
	d.frame++
	refresh := d.frame%uint64(d.opts.BoundsRefreshInterval) == 0

	for _, id := range d.modelIDs() {
		ms, ok := d.models[id]
		if !ok || !d.live(ms) {
			continue
		}
		ms.model.Mixer().Update(dt)
		if _, still := d.models[id]; !still {
			continue
		}
		d.reconcile(ms)
		d.reclampSplits(ms)
		if refresh {
			refreshSkinned(ms.model.Root())
		}
	}
	d.timers.advance(dt)
}

// live reports whether any handle of ms would change the pose this frame,
// judged from live handle state rather than the active count.
func (d *Director) live(ms *modelState) bool {
	for _, pb := range ms.playbacks() {
		if !pb.active && !pb.previewing {
			continue
		}
		h := pb.handle
		if h == nil || !h.Enabled() {
			continue
		}
		if h.IsRunning() || h.EffectiveWeight() > 0 {
			return true
		}
	}
	return false
}

// reconcile ends runs whose handle the engine disabled on its own, which
// happens when a fade-out completes.
func (d *Director) reconcile(ms *modelState) {
	for _, pb := range ms.playbacks() {
		if !pb.active || pb.handle == nil || pb.handle.Enabled() {
			continue
		}
		if d.timers.pending(pb.id, timerDelay) {
			continue
		}
		emitted := pb.finished
		d.log.Debug("handle disabled by engine", zap.String("id", pb.id))
		d.stopPlayback(pb)
		if !emitted {
			d.emit(Event{Type: EventAnimationFinished, ModelID: pb.modelID, AnimationID: pb.id, Name: pb.name})
		}
	}
}

// reclampSplits pins clamped split runs that the advance pushed past the
// end of the clip.
func (d *Director) reclampSplits(ms *modelState) {
	for _, s := range ms.splits {
		pb := s.pb
		if !pb.active || !pb.run.Clamp || pb.handle == nil {
			continue
		}
		switch t := pb.handle.Time(); {
		case t > pb.duration:
			pb.handle.SetTime(pb.duration)
		case t < 0:
			pb.handle.SetTime(0)
		}
	}
}

func refreshSkinned(root engine.Node) {
	engine.Walk(root, func(n engine.Node) bool {
		if n.Skinned() {
			n.RefreshBounds()
		}
		return true
	})
}

// Frame returns the number of Update calls so far.
func (d *Director) Frame() uint64 {
	return d.frame
}
