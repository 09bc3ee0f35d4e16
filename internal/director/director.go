// Package director layers declarative playback control over an animation
// engine. It owns per-animation configuration, schedules delayed starts,
// fades and end-of-clip restoration, derives split clips from time ranges,
// binds scene meshes to animations for click-driven playback, and gates the
// per-frame engine update on whether anything is animating.
//
// A Director is single-threaded: every method, timer callback and engine
// notification runs on the caller's goroutine, normally the frame loop.
package director

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/animdirector/internal/engine"
)

// Director is the animation directing layer.
type Director struct {
	log     *zap.Logger
	opts    Options
	factory engine.ClipFactory

	models   map[string]*modelState
	configs  map[string]*AnimationConfig
	splits   map[string]*SplitAnimation
	bindings map[BindingKey]*MeshBinding
	session  *BindingSession

	timers   *timerQueue
	frame    uint64
	splitSeq uint64

	listeners    map[int]func(Event)
	nextListener int
}

// New creates a Director. factory derives split clips; it may be nil when
// splitting is not used.
func New(factory engine.ClipFactory, opts Options) *Director {
	opts = opts.withDefaults()
	return &Director{
		log:       opts.Logger,
		opts:      opts,
		factory:   factory,
		models:    make(map[string]*modelState),
		configs:   make(map[string]*AnimationConfig),
		splits:    make(map[string]*SplitAnimation),
		bindings:  make(map[BindingKey]*MeshBinding),
		timers:    newTimerQueue(),
		listeners: make(map[int]func(Event)),
	}
}

// Options returns the effective options.
func (d *Director) Options() Options {
	return d.opts
}

// Close stops everything, cancels every timer and releases engine handles.
// Cleanup failures are collected per resource; one failure never blocks the rest.
func (d *Director) Close() error {
	if d.session != nil {
		d.CancelBinding()
	}
	var err error
	for _, id := range d.modelIDs() {
		err = multierr.Append(err, d.teardownModel(d.models[id]))
		delete(d.models, id)
	}
	d.bindings = make(map[BindingKey]*MeshBinding)
	if n := d.timers.len(); n > 0 {
		d.log.Warn("timers left after teardown", zap.Int("count", n))
		d.timers = newTimerQueue()
	}
	return err
}

func (d *Director) modelIDs() []string {
	ids := make([]string, 0, len(d.models))
	for id := range d.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// guard runs a cleanup step, converting panics into errors. Failures are
// logged and emitted so one broken resource never aborts the teardown.
func (d *Director) guard(modelID, resource string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic during cleanup: %v", resource, r)
		}
		if err != nil {
			d.log.Error("cleanup failed",
				zap.String("model", modelID),
				zap.String("resource", resource),
				zap.Error(err))
			d.emit(Event{Type: EventError, ModelID: modelID, AnimationID: resource, Err: err})
		}
	}()
	return fn()
}

// teardownModel stops and releases every playback owned by ms.
func (d *Director) teardownModel(ms *modelState) error {
	var err error
	for _, pb := range ms.playbacks() {
		d.timers.cancelAll(pb.id)
		err = multierr.Append(err, d.releasePlayback(ms, pb))
		if pb.split {
			delete(d.splits, pb.id)
		} else {
			delete(d.configs, pb.id)
		}
	}
	ms.configs = nil
	ms.byName = make(map[string]*AnimationConfig)
	ms.splits = nil
	ms.active = 0
	return err
}

func (d *Director) releasePlayback(ms *modelState, pb *playback) error {
	err := d.guard(ms.id, pb.id, func() error {
		if pb.unsubscribe != nil {
			pb.unsubscribe()
			pb.unsubscribe = nil
		}
		if pb.handle == nil {
			return nil
		}
		pb.handle.Stop()
		pb.handle.SetEnabled(false)
		return nil
	})
	if disposer, ok := pb.handle.(engine.Disposer); ok {
		err = multierr.Append(err, d.guard(ms.id, pb.id, disposer.Dispose))
	}
	pb.active = false
	pb.previewing = false
	return err
}
