package director

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/animdirector/internal/engine"
)

// TimeRange is a [Start, End) window of a source clip, in seconds.
type TimeRange struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// SplitAnimation is an independently playable sub-range of a source clip.
// Its id is the derived clip's engine identity.
type SplitAnimation struct {
	ID        string
	ModelID   string
	Name      string
	Source    string
	Start     float64
	End       float64
	CreatedAt time.Time

	seq  uint64
	pb   *playback
	opts PlayOptions
}

func (s *SplitAnimation) info() AnimationInfo {
	return AnimationInfo{ID: s.ID, ModelID: s.ModelID, Name: s.Name, Duration: s.pb.duration, Split: true}
}

func (s *SplitAnimation) origin() SplitOrigin {
	return SplitOrigin{Name: s.Name, Source: s.Source, Start: s.Start, End: s.End}
}

// SplitInfo describes a split animation.
type SplitInfo struct {
	AnimationInfo
	Source    string
	Start     float64
	End       float64
	CreatedAt time.Time
}

// latestSplit returns the most recently created split called name.
func (ms *modelState) latestSplit(name string) *SplitAnimation {
	var best *SplitAnimation
	for _, s := range ms.splits {
		if s.Name == name && (best == nil || s.seq > best.seq) {
			best = s
		}
	}
	return best
}

// SplitByTime derives one split animation per range of the source clip and
// returns their ids in range order. Ranges that cannot produce a valid clip
// are skipped, so the result may be shorter than ranges. Missing names
// default to "<source>_<index>".
func (d *Director) SplitByTime(modelID, source string, ranges []TimeRange, names []string) []string {
	ms, ok := d.models[modelID]
	if !ok {
		d.log.Debug("split: unknown model", zap.String("model", modelID))
		return nil
	}
	if d.factory == nil {
		d.log.Warn("split: no clip factory configured")
		return nil
	}
	var clip engine.Clip
	for _, c := range ms.model.Clips() {
		if c != nil && c.Name() == source {
			clip = c
			break
		}
	}
	if clip == nil {
		d.log.Debug("split: unknown source clip", zap.String("model", modelID), zap.String("source", source))
		return nil
	}

	ids := make([]string, 0, len(ranges))
	for i, r := range ranges {
		name := fmt.Sprintf("%s_%d", source, i)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		s, err := d.deriveSplit(ms, clip, r, name)
		if err != nil {
			d.log.Debug("split: range skipped",
				zap.String("source", source), zap.Int("index", i), zap.Error(err))
			continue
		}
		ids = append(ids, s.ID)
	}
	return ids
}

func (d *Director) deriveSplit(ms *modelState, clip engine.Clip, r TimeRange, name string) (*SplitAnimation, error) {
	start, end := r.Start, math.Min(r.End, clip.Duration())
	if math.IsNaN(start) || math.IsNaN(end) || start < 0 || end <= start {
		return nil, fmt.Errorf("invalid range [%v, %v) for clip of %vs", r.Start, r.End, clip.Duration())
	}
	sub, err := d.factory.NewClip(name, end-start, sliceTracks(clip.Tracks(), start, end))
	if err != nil {
		return nil, fmt.Errorf("derive clip: %w", err)
	}
	handle := ms.model.Mixer().Action(sub)
	if handle == nil {
		return nil, fmt.Errorf("engine returned no handle for %q", name)
	}
	handle.SetEnabled(false)

	d.splitSeq++
	s := &SplitAnimation{
		ID:        sub.ID(),
		ModelID:   ms.id,
		Name:      name,
		Source:    clip.Name(),
		Start:     start,
		End:       end,
		CreatedAt: d.opts.Now(),
		seq:       d.splitSeq,
		pb: &playback{
			id:       sub.ID(),
			modelID:  ms.id,
			name:     name,
			split:    true,
			handle:   handle,
			duration: sub.Duration(),
		},
	}
	ms.splits = append(ms.splits, s)
	d.splits[s.ID] = s
	d.log.Debug("split created",
		zap.String("id", s.ID), zap.String("name", name),
		zap.Float64("start", start), zap.Float64("end", end))
	return s, nil
}

// sliceTracks keeps the keys of each track inside [start, end), rebased to
// start at zero. A track without keys in range gets one key at zero holding
// its value nearest to start.
func sliceTracks(tracks []engine.Track, start, end float64) []engine.Track {
	out := make([]engine.Track, 0, len(tracks))
	for _, tr := range tracks {
		if !tr.Valid() {
			continue
		}
		sliced := engine.Track{Name: tr.Name, Stride: tr.Stride}
		for i, t := range tr.Times {
			if t < start || t >= end {
				continue
			}
			sliced.Times = append(sliced.Times, t-start)
			sliced.Values = append(sliced.Values, tr.ValueAt(i)...)
		}
		if len(sliced.Times) == 0 {
			sliced.Times = []float64{0}
			sliced.Values = append([]float64(nil), tr.ValueAt(tr.Nearest(start))...)
		}
		out = append(out, sliced)
	}
	return out
}

func (d *Director) splitBase() PlaybackSpec {
	return PlaybackSpec{
		LoopMode:  LoopOnce,
		LoopCount: 1,
		Direction: Forward,
		Speed:     d.opts.DefaultSpeed,
		Weight:    1,
	}
}

// PlayClip plays a full or split animation with transient options. A full
// animation's stored configuration is the base and is left unchanged.
func (d *Director) PlayClip(modelID, ref string, o PlayOptions) bool {
	cfg, split := d.resolve(modelID, ref)
	switch {
	case split != nil:
		return d.playSplit(split, o)
	case cfg != nil:
		return d.startPlayback(cfg.pb, resolvePlay(cfg.spec(), o, d.opts.MillisecondThreshold), nil)
	}
	d.log.Debug("play clip: unknown animation", zap.String("model", modelID), zap.String("ref", ref))
	return false
}

func (d *Director) playSplit(s *SplitAnimation, o PlayOptions) bool {
	s.opts = o
	return d.startPlayback(s.pb, resolvePlay(d.splitBase(), o, d.opts.MillisecondThreshold), nil)
}

// Splits lists a model's split animations in creation order.
func (d *Director) Splits(modelID string) []SplitInfo {
	ms, ok := d.models[modelID]
	if !ok {
		return nil
	}
	out := make([]SplitInfo, 0, len(ms.splits))
	for _, s := range ms.splits {
		out = append(out, SplitInfo{
			AnimationInfo: s.info(),
			Source:        s.Source,
			Start:         s.Start,
			End:           s.End,
			CreatedAt:     s.CreatedAt,
		})
	}
	return out
}

// RemoveSplit stops and releases a split animation and drops the bindings
// that reference it.
func (d *Director) RemoveSplit(id string) bool {
	s, ok := d.splits[id]
	if !ok {
		return false
	}
	ms := d.models[s.ModelID]
	d.stopPlayback(s.pb)
	if err := d.releasePlayback(ms, s.pb); err != nil {
		d.log.Warn("remove split: release failed", zap.String("id", id), zap.Error(err))
	}
	for i, x := range ms.splits {
		if x == s {
			ms.splits = append(ms.splits[:i], ms.splits[i+1:]...)
			break
		}
	}
	delete(d.splits, id)
	for _, key := range d.bindingKeys(s.ModelID) {
		if b := d.bindings[key]; b.AnimationID == id {
			d.removeBinding(b)
		}
	}
	return true
}

func (d *Director) splitOrigins(ms *modelState) []SplitOrigin {
	out := make([]SplitOrigin, 0, len(ms.splits))
	for _, s := range ms.splits {
		out = append(out, s.origin())
	}
	return out
}
