package sim

import (
	"errors"
	gomath "math"
	"sort"

	"github.com/Faultbox/animdirector/internal/engine"
)

// ErrDisposed is returned when disposing an action twice.
var ErrDisposed = errors.New("action already disposed")

// fade is a scheduled weight ramp in mixer time.
type fade struct {
	start, end float64
	from, to   float64
}

func (f *fade) factor(now float64) float64 {
	if now >= f.end || f.end <= f.start {
		return f.to
	}
	if now <= f.start {
		return f.from
	}
	k := (now - f.start) / (f.end - f.start)
	return f.from + k*(f.to-f.from)
}

// Action plays one clip on one model. It implements engine.Handle.
type Action struct {
	mixer *Mixer
	clip  engine.Clip

	enabled     bool
	paused      bool
	time        float64
	timeScale   float64
	loop        engine.LoopKind
	repetitions int
	clamp       bool
	weight      float64
	fade        *fade

	// loopCount counts wraps; -1 until the first forward step.
	loopCount int
	scheduled bool
	disposed  bool

	listeners    map[int]engine.Listener
	nextListener int
}

func newAction(m *Mixer, clip engine.Clip) *Action {
	return &Action{
		mixer:       m,
		clip:        clip,
		enabled:     true,
		timeScale:   1,
		loop:        engine.LoopRepeat,
		repetitions: engine.Forever,
		weight:      1,
		loopCount:   -1,
		listeners:   make(map[int]engine.Listener),
	}
}

func (a *Action) Clip() engine.Clip           { return a.clip }
func (a *Action) Enabled() bool               { return a.enabled }
func (a *Action) SetEnabled(enabled bool)     { a.enabled = enabled }
func (a *Action) Paused() bool                { return a.paused }
func (a *Action) SetPaused(paused bool)       { a.paused = paused }
func (a *Action) Time() float64               { return a.time }
func (a *Action) SetTime(t float64)           { a.time = t }
func (a *Action) TimeScale() float64          { return a.timeScale }
func (a *Action) SetTimeScale(s float64)      { a.timeScale = s }
func (a *Action) ClampWhenFinished() bool     { return a.clamp }
func (a *Action) SetClampWhenFinished(c bool) { a.clamp = c }
func (a *Action) Weight() float64             { return a.weight }
func (a *Action) SetWeight(w float64)         { a.weight = w }
func (a *Action) Scheduled() bool             { return a.scheduled }

// Loop returns the loop kind and repetition count.
func (a *Action) Loop() (engine.LoopKind, int) { return a.loop, a.repetitions }

// SetLoop sets the loop kind and repetition count.
func (a *Action) SetLoop(kind engine.LoopKind, repetitions int) {
	a.loop = kind
	a.repetitions = repetitions
}

// EffectiveWeight is the weight after fades; zero when disabled.
func (a *Action) EffectiveWeight() float64 {
	if !a.enabled {
		return 0
	}
	w := a.weight
	if a.fade != nil {
		w *= a.fade.factor(a.mixer.time)
	}
	return w
}

// FadeIn ramps the weight factor from 0 to 1 over duration seconds.
func (a *Action) FadeIn(duration float64) {
	a.scheduleFade(duration, 0, 1)
}

// FadeOut ramps the weight factor from its current value to 0. The action
// disables itself once the ramp completes.
func (a *Action) FadeOut(duration float64) {
	from := 1.0
	if a.fade != nil {
		from = a.fade.factor(a.mixer.time)
	}
	a.scheduleFade(duration, from, 0)
}

func (a *Action) scheduleFade(duration, from, to float64) {
	now := a.mixer.time
	a.fade = &fade{start: now, end: now + gomath.Max(duration, 0), from: from, to: to}
}

// StopFading cancels any weight ramp.
func (a *Action) StopFading() { a.fade = nil }

// Fading reports whether a weight ramp is pending.
func (a *Action) Fading() bool { return a.fade != nil }

// Play schedules the action in its mixer.
func (a *Action) Play() {
	if a.disposed {
		return
	}
	a.mixer.activate(a)
}

// Stop unschedules and resets the action.
func (a *Action) Stop() {
	a.mixer.deactivate(a)
	a.Reset()
}

// Reset rewinds the action and re-enables it.
func (a *Action) Reset() {
	a.paused = false
	a.enabled = true
	a.time = 0
	a.loopCount = -1
	a.fade = nil
}

// IsRunning reports whether the action advances on the next update.
func (a *Action) IsRunning() bool {
	return a.enabled && !a.paused && a.timeScale != 0 && a.scheduled
}

// Subscribe registers l for finished and loop events.
func (a *Action) Subscribe(l engine.Listener) func() {
	id := a.nextListener
	a.nextListener++
	a.listeners[id] = l
	return func() { delete(a.listeners, id) }
}

// ListenerCount returns the number of live subscriptions.
func (a *Action) ListenerCount() int { return len(a.listeners) }

// Dispose unschedules the action and drops its listeners. The mixer forgets
// it, so a later Action call for the same clip returns a fresh action.
func (a *Action) Dispose() error {
	if a.disposed {
		return ErrDisposed
	}
	a.mixer.deactivate(a)
	if a.mixer.actions[a.clip.ID()] == a {
		delete(a.mixer.actions, a.clip.ID())
	}
	a.listeners = make(map[int]engine.Listener)
	a.disposed = true
	return nil
}

// sampleTime returns the clip time to evaluate, mirroring odd ping-pong passes.
func (a *Action) sampleTime() float64 {
	if a.loop == engine.LoopPingPong && a.loopCount&1 == 1 {
		return a.clip.Duration() - a.time
	}
	return a.time
}

// step advances the action by dt seconds of mixer time and appends any
// notifications to events.
func (a *Action) step(dt float64, events *[]engine.Event) {
	if a.enabled {
		scale := a.timeScale
		if a.paused {
			scale = 0
		}
		a.advance(dt*scale, events)
	}
	if a.fade != nil && a.mixer.time >= a.fade.end {
		to := a.fade.to
		a.fade = nil
		if to == 0 {
			a.enabled = false
		}
	}
}

func (a *Action) advance(delta float64, events *[]engine.Event) {
	if delta == 0 {
		return
	}
	duration := a.clip.Duration()
	if duration <= 0 {
		a.time = 0
		return
	}
	t := a.time + delta
	dir := 1
	if delta < 0 {
		dir = -1
	}

	if a.loop == engine.LoopOnce {
		a.loopCount = 0
		switch {
		case t >= duration:
			t = duration
		case t < 0:
			t = 0
		default:
			a.time = t
			return
		}
		a.time = t
		a.finish(dir, events)
		return
	}

	if a.loopCount == -1 && delta >= 0 {
		a.loopCount = 0
	}
	if t < duration && t >= 0 {
		a.time = t
		return
	}

	loopDelta := int(gomath.Floor(t / duration))
	t -= duration * float64(loopDelta)
	wraps := loopDelta
	if wraps < 0 {
		wraps = -wraps
	}
	a.loopCount += wraps

	if a.repetitions != engine.Forever && a.repetitions-a.loopCount <= 0 {
		if delta > 0 {
			a.time = duration
		} else {
			a.time = 0
		}
		a.finish(dir, events)
		return
	}
	a.time = t
	*events = append(*events, engine.Event{Kind: engine.EventLoop, Handle: a, LoopDelta: loopDelta})
}

func (a *Action) finish(dir int, events *[]engine.Event) {
	if a.clamp {
		a.paused = true
	} else {
		a.enabled = false
	}
	*events = append(*events, engine.Event{Kind: engine.EventFinished, Handle: a, Direction: dir})
}

func (a *Action) dispatch(ev engine.Event) {
	ids := make([]int, 0, len(a.listeners))
	for id := range a.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if l, ok := a.listeners[id]; ok {
			l(ev)
		}
	}
}

var _ engine.Handle = (*Action)(nil)
var _ engine.Disposer = (*Action)(nil)
