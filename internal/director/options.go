package director

import (
	"math"
	"time"

	"go.uber.org/zap"
)

// Options tunes a Director.
type Options struct {
	Logger      *zap.Logger
	Highlighter Highlighter

	// PreviewFraction positions weight previews as a fraction of duration.
	PreviewFraction float64
	// MinimalDuration is the length at or below which a clip is applied as a
	// pose instead of being played.
	MinimalDuration float64
	// BoundsRefreshInterval is the number of frames between skinned bounds refreshes.
	BoundsRefreshInterval int
	// MillisecondThreshold: delay and fade inputs above it are milliseconds.
	MillisecondThreshold float64
	// EndEpsilon is the tolerance for "at end" checks.
	EndEpsilon float64
	// DefaultSpeed is the speed of newly registered animations.
	DefaultSpeed float64
	// DefaultWeight is the UI-scale (0-100) weight of newly registered animations.
	DefaultWeight float64

	// Now stamps split creation times.
	Now func() time.Time
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		PreviewFraction:       0.25,
		MinimalDuration:       1.0 / 60.0,
		BoundsRefreshInterval: 10,
		MillisecondThreshold:  30,
		EndEpsilon:            1e-3,
		DefaultSpeed:          1,
		DefaultWeight:         100,
		Now:                   time.Now,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Highlighter == nil {
		o.Highlighter = NopHighlighter{}
	}
	if o.PreviewFraction <= 0 || o.PreviewFraction > 1 {
		o.PreviewFraction = def.PreviewFraction
	}
	if o.MinimalDuration <= 0 {
		o.MinimalDuration = def.MinimalDuration
	}
	if o.BoundsRefreshInterval <= 0 {
		o.BoundsRefreshInterval = def.BoundsRefreshInterval
	}
	if o.MillisecondThreshold <= 0 {
		o.MillisecondThreshold = def.MillisecondThreshold
	}
	if o.EndEpsilon <= 0 {
		o.EndEpsilon = def.EndEpsilon
	}
	if o.DefaultSpeed <= 0 {
		o.DefaultSpeed = def.DefaultSpeed
	}
	if o.DefaultWeight <= 0 {
		o.DefaultWeight = def.DefaultWeight
	}
	if o.Now == nil {
		o.Now = def.Now
	}
	return o
}

// Params is a partial configuration update for an animation. Nil fields are
// left unchanged. Several fields have legacy synonyms; when both are set the
// canonical field wins:
//
//	Enabled     over ActiveType
//	StartDelay  over StartDelayTime
//	FadeIn      over FadeInTime
//	FadeOut     over FadeOutTime
//	LoopType    over LoopMode (LoopType still reads LoopCount for numbered variants)
type Params struct {
	Enabled    *bool `yaml:"enabled,omitempty"`
	ActiveType *int  `yaml:"active_type,omitempty"`

	Speed     *float64  `yaml:"speed,omitempty"`
	Direction *int      `yaml:"direction,omitempty"`
	LoopMode  *LoopMode `yaml:"loop_mode,omitempty"`
	LoopCount *int      `yaml:"loop_count,omitempty"`
	LoopType  LoopType  `yaml:"loop_type,omitempty"`

	StartDelay     *float64 `yaml:"start_delay,omitempty"`
	StartDelayTime *float64 `yaml:"start_delay_time,omitempty"`
	FadeIn         *float64 `yaml:"fade_in,omitempty"`
	FadeInTime     *float64 `yaml:"fade_in_time,omitempty"`
	FadeOut        *float64 `yaml:"fade_out,omitempty"`
	FadeOutTime    *float64 `yaml:"fade_out_time,omitempty"`

	// Weight is on the UI scale, 0-100.
	Weight            *float64 `yaml:"weight,omitempty"`
	ClampWhenFinished *bool    `yaml:"clamp_when_finished,omitempty"`
	// PreviewTime overrides the weight preview position, in seconds.
	PreviewTime *float64 `yaml:"preview_time,omitempty"`
}

// PlayMode is the high-level play policy used by clips and bindings.
type PlayMode string

const (
	// PlayModeNormal plays once and resets.
	PlayModeNormal PlayMode = "normal"
	// PlayModeClampEnd plays once and holds the final pose.
	PlayModeClampEnd PlayMode = "clamp-end"
	// PlayModeLoop repeats; LoopType/LoopCount give the count, default infinite.
	PlayModeLoop PlayMode = "loop"
	// PlayModePingPong plays back and forth; LoopType/LoopCount give the count.
	PlayModePingPong PlayMode = "pingpong"
)

// PlayOptions are transient playback options for clips and bindings.
// PlayMode takes precedence over PlayType and over the raw LoopMode, Clamp
// and LoopType mode fields. Without a play mode, LoopType takes precedence
// over LoopMode.
type PlayOptions struct {
	PlayMode PlayMode `yaml:"play_mode,omitempty"`
	PlayType PlayMode `yaml:"play_type,omitempty"`

	LoopType  LoopType  `yaml:"loop_type,omitempty"`
	LoopMode  *LoopMode `yaml:"loop_mode,omitempty"`
	LoopCount *int      `yaml:"loop_count,omitempty"`
	Clamp     *bool     `yaml:"clamp,omitempty"`
	Direction int       `yaml:"direction,omitempty"`
	Speed     *float64  `yaml:"speed,omitempty"`
	// Weight is on the UI scale, 0-100.
	Weight         *float64 `yaml:"weight,omitempty"`
	FadeIn         *float64 `yaml:"fade_in,omitempty"`
	FadeOut        *float64 `yaml:"fade_out,omitempty"`
	StartDelay     *float64 `yaml:"start_delay,omitempty"`
	StartDelayTime *float64 `yaml:"start_delay_time,omitempty"`
}

// ClickBehavior decides what a click on a bound mesh does.
type ClickBehavior string

const (
	ClickToggle           ClickBehavior = "toggle"
	ClickRestart          ClickBehavior = "restart"
	ClickReverse          ClickBehavior = "reverse"
	ClickRestartOrReverse ClickBehavior = "restart-or-reverse"
)

func (c ClickBehavior) valid() bool {
	switch c {
	case ClickToggle, ClickRestart, ClickReverse, ClickRestartOrReverse:
		return true
	}
	return false
}

// BindingOptions are the options attached to a mesh binding.
type BindingOptions struct {
	PlayOptions   `yaml:",inline"`
	ClickBehavior ClickBehavior `yaml:"click_behavior,omitempty"`
}

// PlaybackSpec is a fully resolved set of playback parameters. Weight is
// internal scale, 0-1; times are seconds.
type PlaybackSpec struct {
	LoopMode   LoopMode
	LoopCount  int
	Direction  Direction
	Speed      float64
	Weight     float64
	FadeIn     float64
	FadeOut    float64
	StartDelay float64
	Clamp      bool
}

// Resolved is a binding's normalized option set.
type Resolved struct {
	PlaybackSpec
	ClickBehavior ClickBehavior
}

// toSeconds applies the millisecond heuristic: values above threshold are
// taken as milliseconds. A legitimate 45-second delay is indistinguishable
// from 45 ms and is read as the latter.
func toSeconds(v, threshold float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v > threshold {
		return v / 1000
	}
	return v
}

// normalizeWeight maps a UI weight (0-100) onto [0, 1].
func normalizeWeight(ui float64) float64 {
	if math.IsNaN(ui) || ui < 0 {
		ui = 0
	}
	return math.Min(ui/100, 1)
}

// normalizeSpeed keeps the magnitude; direction is carried separately.
func normalizeSpeed(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Abs(v)
}

func firstSet(canonical, legacy *float64) *float64 {
	if canonical != nil {
		return canonical
	}
	return legacy
}

// resolvePlay folds opts over base.
func resolvePlay(base PlaybackSpec, opts PlayOptions, msThreshold float64) PlaybackSpec {
	spec := base
	count := 0
	if opts.LoopCount != nil {
		count = *opts.LoopCount
	}

	mode := opts.PlayMode
	if mode == "" {
		mode = opts.PlayType
	}

	switch mode {
	case PlayModeNormal:
		spec.LoopMode, spec.LoopCount, spec.Clamp = LoopOnce, 1, false
	case PlayModeClampEnd:
		spec.LoopMode, spec.LoopCount, spec.Clamp = LoopOnce, 1, true
	case PlayModeLoop, PlayModePingPong:
		spec.LoopMode, spec.LoopCount, spec.Clamp = LoopRepeat, Infinite, false
		if mode == PlayModePingPong {
			spec.LoopMode = LoopPingPong
		}
		if opts.LoopType != "" {
			if _, c, ok := opts.LoopType.Resolve(count); ok && opts.LoopType != LoopTypeOnce {
				spec.LoopCount = c
			}
		} else if opts.LoopCount != nil {
			spec.LoopCount = count
		}
	default:
		if opts.LoopType != "" {
			if m, c, ok := opts.LoopType.Resolve(count); ok {
				spec.LoopMode, spec.LoopCount = m, c
			}
		} else {
			if opts.LoopMode != nil {
				spec.LoopMode = *opts.LoopMode
			}
			if opts.LoopCount != nil {
				spec.LoopCount = count
			}
		}
		if opts.Clamp != nil {
			spec.Clamp = *opts.Clamp
		}
	}

	if opts.Direction != 0 {
		spec.Direction = Direction(opts.Direction).Normalize()
	}
	if opts.Speed != nil {
		spec.Speed = normalizeSpeed(*opts.Speed)
	}
	if opts.Weight != nil {
		spec.Weight = normalizeWeight(*opts.Weight)
	}
	if opts.FadeIn != nil {
		spec.FadeIn = toSeconds(*opts.FadeIn, msThreshold)
	}
	if opts.FadeOut != nil {
		spec.FadeOut = toSeconds(*opts.FadeOut, msThreshold)
	}
	if d := firstSet(opts.StartDelay, opts.StartDelayTime); d != nil {
		spec.StartDelay = toSeconds(*d, msThreshold)
	}
	return spec
}

// mergePlayOptions overlays the set fields of update onto base.
func mergePlayOptions(base, update PlayOptions) PlayOptions {
	out := base
	if update.PlayMode != "" || update.PlayType != "" {
		out.PlayMode, out.PlayType = update.PlayMode, update.PlayType
	}
	if update.LoopType != "" {
		out.LoopType = update.LoopType
	}
	if update.LoopMode != nil {
		out.LoopMode = update.LoopMode
	}
	if update.LoopCount != nil {
		out.LoopCount = update.LoopCount
	}
	if update.Clamp != nil {
		out.Clamp = update.Clamp
	}
	if update.Direction != 0 {
		out.Direction = update.Direction
	}
	if update.Speed != nil {
		out.Speed = update.Speed
	}
	if update.Weight != nil {
		out.Weight = update.Weight
	}
	if update.FadeIn != nil {
		out.FadeIn = update.FadeIn
	}
	if update.FadeOut != nil {
		out.FadeOut = update.FadeOut
	}
	if update.StartDelay != nil || update.StartDelayTime != nil {
		out.StartDelay, out.StartDelayTime = update.StartDelay, update.StartDelayTime
	}
	return out
}

// Ptr returns a pointer to v, for building Params and options literals.
func Ptr[T any](v T) *T {
	return &v
}
