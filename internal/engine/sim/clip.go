// Package sim is an in-memory playback engine. It implements the engine
// interfaces with a discrete-repetition loop model, weight fades, clamping
// and finished/loop notifications, and writes sampled keyframes onto scene
// nodes so pose changes are observable without a renderer.
package sim

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Faultbox/animdirector/internal/engine"
)

// ErrNoTracks is returned when a clip would have no usable tracks.
var ErrNoTracks = errors.New("clip has no valid tracks")

// Clip is an immutable keyframe clip with an engine-assigned identity.
type Clip struct {
	id       string
	name     string
	duration float64
	tracks   []engine.Track
}

// NewClip creates a clip. Invalid tracks are dropped.
func NewClip(name string, duration float64, tracks []engine.Track) (*Clip, error) {
	if duration < 0 {
		return nil, fmt.Errorf("clip %q: negative duration %v", name, duration)
	}
	valid := make([]engine.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.Valid() {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("clip %q: %w", name, ErrNoTracks)
	}
	return &Clip{
		id:       uuid.NewString(),
		name:     name,
		duration: duration,
		tracks:   valid,
	}, nil
}

// MustClip is NewClip for static fixtures; it panics on error.
func MustClip(name string, duration float64, tracks ...engine.Track) *Clip {
	c, err := NewClip(name, duration, tracks)
	if err != nil {
		panic(err)
	}
	return c
}

// ID returns the engine-assigned identity.
func (c *Clip) ID() string { return c.id }

// Name returns the clip name.
func (c *Clip) Name() string { return c.name }

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 { return c.duration }

// Tracks returns the keyframe tracks.
func (c *Clip) Tracks() []engine.Track { return c.tracks }

// Factory derives clips for the directing layer.
type Factory struct{}

// NewClip implements engine.ClipFactory.
func (Factory) NewClip(name string, duration float64, tracks []engine.Track) (engine.Clip, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("clip %q: duration must be positive, got %v", name, duration)
	}
	c, err := NewClip(name, duration, tracks)
	if err != nil {
		return nil, err
	}
	return c, nil
}

var _ engine.ClipFactory = Factory{}
