package director

import (
	"fmt"

	"github.com/Faultbox/animdirector/internal/engine"
)

// LoopMode is the user-facing loop semantics of an animation.
type LoopMode int

const (
	LoopOnce LoopMode = iota
	LoopRepeat
	LoopPingPong
)

// String returns the loop mode name.
func (m LoopMode) String() string {
	switch m {
	case LoopOnce:
		return "once"
	case LoopRepeat:
		return "repeat"
	case LoopPingPong:
		return "pingpong"
	default:
		return fmt.Sprintf("LoopMode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m LoopMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *LoopMode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "once":
		*m = LoopOnce
	case "repeat", "loop":
		*m = LoopRepeat
	case "pingpong", "ping-pong":
		*m = LoopPingPong
	default:
		return fmt.Errorf("unknown loop mode %q", string(b))
	}
	return nil
}

// Infinite is the loop count meaning "repeat forever".
const Infinite = -1

// LoopType is the UI-level loop selector. The numbered variants take their
// count from a separate loop count field.
type LoopType string

const (
	LoopTypeOnce             LoopType = "once"
	LoopTypeRepeat           LoopType = "repeat"
	LoopTypeRepeatInfinite   LoopType = "repeat-infinite"
	LoopTypePingPong         LoopType = "pingpong"
	LoopTypePingPongInfinite LoopType = "pingpong-infinite"
)

// Resolve maps the loop type and count onto a mode and a count. Numbered
// variants with a non-positive count fall back to a single play.
func (t LoopType) Resolve(count int) (LoopMode, int, bool) {
	if count <= 0 {
		count = 1
	}
	switch t {
	case LoopTypeOnce:
		return LoopOnce, 1, true
	case LoopTypeRepeat:
		return LoopRepeat, count, true
	case LoopTypeRepeatInfinite:
		return LoopRepeat, Infinite, true
	case LoopTypePingPong:
		return LoopPingPong, count, true
	case LoopTypePingPongInfinite:
		return LoopPingPong, Infinite, true
	default:
		return LoopOnce, 1, false
	}
}

// Direction is the play direction, +1 forward or -1 reverse.
type Direction int

const (
	Forward Direction = 1
	Reverse Direction = -1
)

// Normalize maps any value onto Forward or Reverse.
func (d Direction) Normalize() Direction {
	if d < 0 {
		return Reverse
	}
	return Forward
}

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d.Normalize() == Forward {
		return Reverse
	}
	return Forward
}

// LoopParams is the engine-side loop configuration.
type LoopParams struct {
	Kind        engine.LoopKind
	Repetitions int
}

// TranslateLoop converts loop semantics into the engine's repetition model.
//
// The engine counts wraps, not plays, and a reverse start consumes its first
// pass before the counter reaches zero. Forward playback therefore needs one
// extra repetition to match the number of reverse plays, and a reverse
// ping-pong needs one extra unit on top of its two-per-cycle count.
func TranslateLoop(mode LoopMode, count int, dir Direction) LoopParams {
	dir = dir.Normalize()
	switch mode {
	case LoopRepeat:
		if count < 0 {
			return LoopParams{Kind: engine.LoopRepeat, Repetitions: engine.Forever}
		}
		reps := max(0, count-1)
		if dir == Forward {
			reps++
		}
		return LoopParams{Kind: engine.LoopRepeat, Repetitions: reps}
	case LoopPingPong:
		if count < 0 {
			return LoopParams{Kind: engine.LoopPingPong, Repetitions: engine.Forever}
		}
		reps := max(0, count*2)
		if dir == Reverse && count > 0 {
			reps++
		}
		return LoopParams{Kind: engine.LoopPingPong, Repetitions: reps}
	default:
		return LoopParams{Kind: engine.LoopOnce, Repetitions: 1}
	}
}

// passes returns how many clip-length passes a finite loop plays, or 0 for
// infinite loops.
func passes(mode LoopMode, count int) int {
	switch mode {
	case LoopOnce:
		return 1
	case LoopRepeat:
		if count < 0 {
			return 0
		}
		return max(1, count)
	case LoopPingPong:
		if count < 0 {
			return 0
		}
		return max(1, count*2)
	}
	return 1
}
