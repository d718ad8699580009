// Package actor owns the authoritative actor records: one per sprite
// instance, laid out on the grid, animated by the Clock and mutated in bulk
// or by partial updates.
//
// Actor records are plain values. The redraw flag is not stored in the
// record; the Store keeps it in an index-keyed DirtySet so that tiles can
// scan and clear their own actors without touching each other's records.
package actor

import (
	"math/rand/v2"

	"github.com/gogpu/swarm/sprite"
)

// Actor is one sprite instance.
type Actor struct {
	Variation     sprite.VariationID
	IsAnimated    bool
	Frame         int
	TimeOnFrameMs float64

	// GridX and GridY are fixed for the lifetime of a given actor count.
	GridX int
	GridY int
}

// ImageKey returns the image this actor needs under the given
// representation: the still when not animated, otherwise its current frame
// or its variation's sheet.
func (a Actor) ImageKey(sheet bool) sprite.ImageKey {
	switch {
	case !a.IsAnimated:
		return sprite.Still(a.Variation)
	case sheet:
		return sprite.Sheet(a.Variation)
	default:
		return sprite.Frame(a.Variation, a.Frame)
	}
}

// Field is a bit set naming the fields a Patch changes.
type Field uint8

// Patchable fields.
const (
	FieldVariation Field = 1 << iota
	FieldAnimated
	FieldFrame
	FieldTime
)

// Patch changes the named fields of an actor. It is a value type so it can
// be sent to a worker without sharing memory.
type Patch struct {
	Fields        Field
	Variation     sprite.VariationID
	IsAnimated    bool
	Frame         int
	TimeOnFrameMs float64
}

// SetVariation returns a patch changing only the variation.
func SetVariation(v sprite.VariationID) Patch {
	return Patch{Fields: FieldVariation, Variation: v}
}

// SetAnimated returns a patch changing only the animated flag.
func SetAnimated(animated bool) Patch {
	return Patch{Fields: FieldAnimated, IsAnimated: animated}
}

// Apply returns a with the patched fields replaced.
func (p Patch) Apply(a Actor) Actor {
	if p.Fields&FieldVariation != 0 {
		a.Variation = p.Variation
	}
	if p.Fields&FieldAnimated != 0 {
		a.IsAnimated = p.IsAnimated
	}
	if p.Fields&FieldFrame != 0 {
		a.Frame = p.Frame
	}
	if p.Fields&FieldTime != 0 {
		a.TimeOnFrameMs = p.TimeOnFrameMs
	}
	return a
}

// Merge returns p followed by q: fields set in q win.
func (p Patch) Merge(q Patch) Patch {
	out := p
	out.Fields |= q.Fields
	if q.Fields&FieldVariation != 0 {
		out.Variation = q.Variation
	}
	if q.Fields&FieldAnimated != 0 {
		out.IsAnimated = q.IsAnimated
	}
	if q.Fields&FieldFrame != 0 {
		out.Frame = q.Frame
	}
	if q.Fields&FieldTime != 0 {
		out.TimeOnFrameMs = q.TimeOnFrameMs
	}
	return out
}

// newActor returns a fresh actor at cell (x, y) with a uniformly random
// variation.
func newActor(set *sprite.Set, animated bool, x, y int, rng *rand.Rand) Actor {
	return Actor{
		Variation:  set.Variations[rng.IntN(len(set.Variations))],
		IsAnimated: animated,
		GridX:      x,
		GridY:      y,
	}
}
