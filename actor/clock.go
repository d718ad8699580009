package actor

import (
	"math/rand/v2"

	"github.com/gogpu/swarm/sprite"
)

// Clock advances animation frames from wall-clock deltas.
type Clock struct {
	FrameCount      int
	FrameDurationMs float64
}

// NewClock returns the clock for a sprite set.
func NewClock(set *sprite.Set) Clock {
	return Clock{FrameCount: set.FrameCount, FrameDurationMs: set.FrameDurationMs}
}

// Step advances one actor by deltaMs and reports whether its frame changed.
//
// Whole frame durations are subtracted one at a time, never taken modulo the
// raw elapsed time, so a delta spanning several frames advances exactly that
// many frames and splitting a delta into parts gives the same result.
func (c Clock) Step(a *Actor, deltaMs float64) bool {
	if !a.IsAnimated || c.FrameDurationMs <= 0 || c.FrameCount < 1 {
		return false
	}
	a.TimeOnFrameMs += deltaMs
	changed := false
	for a.TimeOnFrameMs >= c.FrameDurationMs {
		a.TimeOnFrameMs -= c.FrameDurationMs
		a.Frame = (a.Frame + 1) % c.FrameCount
		changed = true
	}
	return changed
}

// Advance steps every animated, attached actor of s and marks the ones whose
// frame changed dirty. It returns the number of actors that changed frame.
func (c Clock) Advance(s *Store, deltaMs float64) int {
	changed := 0
	for i := range s.actors {
		if s.detached.IsDirty(i) {
			continue
		}
		if c.Step(&s.actors[i], deltaMs) {
			s.dirty.Mark(i)
			changed++
		}
	}
	return changed
}

// Swapper performs the random per-tick partial updates.
//
// Each pass picks distinct actors, sampling without replacement, so a pass
// of n changes exactly min(n, Len) actors and marks exactly those dirty.
type Swapper struct {
	rng *rand.Rand
}

// NewSwapper returns a swapper drawing from rng.
func NewSwapper(rng *rand.Rand) *Swapper {
	return &Swapper{rng: rng}
}

// Variations gives n distinct actors a new variation. When the set has more
// than one variation the new one always differs from the old. It returns the
// changed indices and their patches.
func (w *Swapper) Variations(s *Store, set *sprite.Set, n int) map[int]Patch {
	picks := w.pick(s.Len(), n)
	out := make(map[int]Patch, len(picks))
	for _, i := range picks {
		p := SetVariation(w.otherVariation(set, s.actors[i].Variation))
		s.Apply(i, p)
		out[i] = p
	}
	return out
}

// Animations toggles the animated flag of n distinct actors.
func (w *Swapper) Animations(s *Store, n int) map[int]Patch {
	picks := w.pick(s.Len(), n)
	out := make(map[int]Patch, len(picks))
	for _, i := range picks {
		p := SetAnimated(!s.actors[i].IsAnimated)
		s.Apply(i, p)
		out[i] = p
	}
	return out
}

func (w *Swapper) otherVariation(set *sprite.Set, current sprite.VariationID) sprite.VariationID {
	vs := set.Variations
	if len(vs) == 1 {
		return vs[0]
	}
	v := vs[w.rng.IntN(len(vs)-1)]
	if v == current {
		// current is excluded by swapping it with the last slot.
		v = vs[len(vs)-1]
	}
	return v
}

// pick returns min(n, total) distinct indices in [0, total).
func (w *Swapper) pick(total, n int) []int {
	if n <= 0 || total == 0 {
		return nil
	}
	if n >= total {
		all := make([]int, total)
		for i := range all {
			all[i] = i
		}
		return all
	}
	if n*4 > total {
		return w.rng.Perm(total)[:n]
	}
	seen := make(map[int]struct{}, n)
	out := make([]int, 0, n)
	for len(out) < n {
		i := w.rng.IntN(total)
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	return out
}
