package actor

import (
	"math/rand/v2"

	"github.com/gogpu/swarm/grid"
	"github.com/gogpu/swarm/sprite"
)

// Store is the flat actor array plus its dirty set.
//
// Store is NOT safe for concurrent mutation. During a draw, several tile
// drawers may read actors and clear their own dirty bits concurrently; all
// mutations (recount, partial updates, clock advance) happen on the driver
// goroutine before drawing starts.
type Store struct {
	actors   []Actor
	dirty    *DirtySet
	detached *DirtySet
	layout   grid.Layout

	set      *sprite.Set
	animated bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		dirty:    NewDirtySet(0),
		detached: NewDirtySet(0),
	}
}

// FromActors builds a store that owns a copy of actors, all dirty. A worker
// uses it to hold the subset it was handed at setup.
func FromActors(actors []Actor) *Store {
	s := &Store{
		actors:   append([]Actor(nil), actors...),
		dirty:    NewDirtySet(len(actors)),
		detached: NewDirtySet(len(actors)),
	}
	s.dirty.MarkAll()
	return s
}

// Reset discards every actor and allocates n fresh ones across a newly
// computed grid: random variation, animated flag from the default, frame 0,
// all dirty.
func (s *Store) Reset(n int, set *sprite.Set, animatedByDefault bool, rng *rand.Rand) {
	s.set = set
	s.animated = animatedByDefault
	s.actors = s.actors[:0]
	s.SetCount(n, rng)
}

// SetCount changes the actor count. Actors below min(old, n) keep their
// variation and animation state; actors above n are discarded; new actors
// are initialised as in Reset, which must have been called once. Every
// actor is re-laid out on the new grid and marked dirty, since cell
// positions change with the column count.
func (s *Store) SetCount(n int, rng *rand.Rand) {
	if n < 0 {
		n = 0
	}
	s.layout = grid.ComputeGrid(n)

	keep := min(n, len(s.actors))
	next := make([]Actor, n)
	copy(next, s.actors[:keep])
	for i := range n {
		cell := s.layout.Cell(i)
		if i < keep {
			next[i].GridX, next[i].GridY = cell.X, cell.Y
			continue
		}
		next[i] = newActor(s.set, s.animated, cell.X, cell.Y, rng)
	}

	s.actors = next
	s.dirty = NewDirtySet(n)
	s.dirty.MarkAll()
	s.detached = NewDirtySet(n)
}

// Len returns the actor count.
func (s *Store) Len() int {
	return len(s.actors)
}

// Layout returns the grid layout of the current count.
func (s *Store) Layout() grid.Layout {
	return s.layout
}

// SpriteSet returns the sprite set of the last Reset, or nil.
func (s *Store) SpriteSet() *sprite.Set {
	return s.set
}

// Actor returns a copy of actor i.
func (s *Store) Actor(i int) Actor {
	return s.actors[i]
}

// Dirty returns the store's dirty set.
func (s *Store) Dirty() *DirtySet {
	return s.dirty
}

// IsDirty reports whether actor i needs redrawing.
func (s *Store) IsDirty(i int) bool {
	return s.dirty.IsDirty(i)
}

// ApplyPartialUpdate applies p to every listed index and marks them dirty.
// The grid layout is not recomputed. Out-of-range indices are ignored.
func (s *Store) ApplyPartialUpdate(indices []int, p Patch) {
	for _, i := range indices {
		s.Apply(i, p)
	}
}

// Apply applies p to actor i and marks it dirty.
func (s *Store) Apply(i int, p Patch) {
	if i < 0 || i >= len(s.actors) {
		return
	}
	s.actors[i] = p.Apply(s.actors[i])
	s.dirty.Mark(i)
}

// ApplyPatches applies a patch per index.
func (s *Store) ApplyPatches(patches map[int]Patch) {
	for i, p := range patches {
		s.Apply(i, p)
	}
}

// Detach hands the animation of the listed actors to another owner (a
// worker). The Clock skips detached actors.
func (s *Store) Detach(indices []int) {
	for _, i := range indices {
		s.detached.Mark(i)
	}
}

// IsDetached reports whether actor i is animated elsewhere.
func (s *Store) IsDetached(i int) bool {
	return s.detached.IsDirty(i)
}

// Snapshot copies the listed actors, in order.
func (s *Store) Snapshot(indices []int) []Actor {
	out := make([]Actor, len(indices))
	for k, i := range indices {
		out[k] = s.actors[i]
	}
	return out
}
