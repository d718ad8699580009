package actor

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/gogpu/swarm/sprite"
)

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func newStore(t *testing.T, n int, animated bool) *Store {
	t.Helper()
	s := NewStore()
	s.Reset(n, sprite.Frog(), animated, newRand())
	s.Dirty().ClearAll()
	return s
}

// =============================================================================
// DirtySet
// =============================================================================

func TestDirtySet(t *testing.T) {
	d := NewDirtySet(130)
	if d.Count() != 0 {
		t.Fatalf("new set Count() = %d, want 0", d.Count())
	}

	for _, i := range []int{0, 63, 64, 129} {
		d.Mark(i)
	}
	d.Mark(-1)
	d.Mark(130)

	if d.Count() != 4 {
		t.Errorf("Count() = %d, want 4", d.Count())
	}
	var got []int
	d.ForEach(func(i int) { got = append(got, i) })
	want := []int{0, 63, 64, 129}
	if len(got) != len(want) {
		t.Fatalf("ForEach visited %v, want %v", got, want)
	}
	for k := range want {
		if got[k] != want[k] {
			t.Errorf("ForEach[%d] = %d, want %d", k, got[k], want[k])
		}
	}

	d.Clear(63)
	if d.IsDirty(63) || !d.IsDirty(64) {
		t.Error("Clear(63) affected the wrong bit")
	}
	if d.IsDirty(500) {
		t.Error("out-of-range index reported dirty")
	}

	d.MarkAll()
	if d.Count() != 130 {
		t.Errorf("after MarkAll Count() = %d, want 130", d.Count())
	}
	d.ClearAll()
	if d.Count() != 0 {
		t.Errorf("after ClearAll Count() = %d, want 0", d.Count())
	}
}

func TestDirtySetConcurrentDisjoint(t *testing.T) {
	const n = 4096
	d := NewDirtySet(n)
	d.MarkAll()

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; i < n; i += 8 {
				d.Clear(i)
			}
		}()
	}
	wg.Wait()

	if d.Count() != 0 {
		t.Errorf("Count() = %d after concurrent clears, want 0", d.Count())
	}
}

// =============================================================================
// Store
// =============================================================================

func TestStoreReset(t *testing.T) {
	s := NewStore()
	set := sprite.Frog()
	s.Reset(1000, set, true, newRand())

	if s.Len() != 1000 {
		t.Fatalf("Len() = %d, want 1000", s.Len())
	}
	if s.Dirty().Count() != 1000 {
		t.Errorf("dirty count = %d, want 1000", s.Dirty().Count())
	}

	valid := make(map[sprite.VariationID]bool)
	for _, v := range set.Variations {
		valid[v] = true
	}
	used := make(map[sprite.VariationID]int)
	l := s.Layout()
	for i := range s.Len() {
		a := s.Actor(i)
		if !valid[a.Variation] {
			t.Fatalf("actor %d has variation %q", i, a.Variation)
		}
		used[a.Variation]++
		if !a.IsAnimated || a.Frame != 0 || a.TimeOnFrameMs != 0 {
			t.Fatalf("actor %d not freshly initialised: %+v", i, a)
		}
		if c := l.Cell(i); a.GridX != c.X || a.GridY != c.Y {
			t.Fatalf("actor %d at (%d,%d), want %v", i, a.GridX, a.GridY, c)
		}
	}
	if len(used) != len(set.Variations) {
		t.Errorf("only %d of %d variations used across 1000 actors", len(used), len(set.Variations))
	}
}

func TestStoreSetCountShrink(t *testing.T) {
	s := newStore(t, 1000, false)
	before := s.Snapshot([]int{0, 1, 2, 499})

	s.SetCount(500, newRand())

	if s.Len() != 500 {
		t.Fatalf("Len() = %d, want 500", s.Len())
	}
	l := s.Layout()
	if l.Columns != 23 {
		t.Fatalf("Columns = %d, want 23", l.Columns)
	}
	for k, i := range []int{0, 1, 2, 499} {
		a := s.Actor(i)
		if a.Variation != before[k].Variation {
			t.Errorf("actor %d lost its identity", i)
		}
		if c := l.Cell(i); a.GridX != c.X || a.GridY != c.Y {
			t.Errorf("actor %d at (%d,%d), want re-laid-out %v", i, a.GridX, a.GridY, c)
		}
	}
	if s.Dirty().Count() != 500 {
		t.Errorf("dirty count = %d, want 500", s.Dirty().Count())
	}
	// Actor 499 moves from (19,15) on the 32-column grid to (16,21).
	if a := s.Actor(499); a.GridX != 16 || a.GridY != 21 {
		t.Errorf("actor 499 at (%d,%d), want (16,21)", a.GridX, a.GridY)
	}
}

func TestStoreSetCountGrow(t *testing.T) {
	s := newStore(t, 10, true)
	s.SetCount(20, newRand())
	if s.Len() != 20 {
		t.Fatalf("Len() = %d", s.Len())
	}
	for i := 10; i < 20; i++ {
		if !s.Actor(i).IsAnimated {
			t.Errorf("new actor %d ignores animated default", i)
		}
	}
}

func TestApplyPartialUpdate(t *testing.T) {
	s := newStore(t, 100, false)
	before := s.Actor(7)

	s.ApplyPartialUpdate([]int{7, 9, 200, -1}, Patch{Fields: FieldAnimated | FieldFrame, IsAnimated: true, Frame: 3})

	if s.Dirty().Count() != 2 || !s.IsDirty(7) || !s.IsDirty(9) {
		t.Errorf("dirty = %d, want exactly 7 and 9", s.Dirty().Count())
	}
	a := s.Actor(7)
	if !a.IsAnimated || a.Frame != 3 {
		t.Errorf("patched fields not applied: %+v", a)
	}
	if a.Variation != before.Variation || a.GridX != before.GridX || a.TimeOnFrameMs != before.TimeOnFrameMs {
		t.Errorf("unpatched fields changed: %+v -> %+v", before, a)
	}
	if s.Layout().Columns != 10 {
		t.Error("partial update recomputed the layout")
	}
}

func TestPatchMerge(t *testing.T) {
	p := SetVariation("red").Merge(SetAnimated(true)).Merge(SetVariation("green"))
	if p.Fields != FieldVariation|FieldAnimated {
		t.Errorf("Fields = %b", p.Fields)
	}
	if p.Variation != "green" || !p.IsAnimated {
		t.Errorf("merged patch = %+v", p)
	}
}

func TestImageKey(t *testing.T) {
	a := Actor{Variation: "red", Frame: 5}
	if got := a.ImageKey(false); got != sprite.Still("red") {
		t.Errorf("still actor key = %v", got)
	}
	a.IsAnimated = true
	if got := a.ImageKey(false); got != sprite.Frame("red", 5) {
		t.Errorf("frame key = %v", got)
	}
	if got := a.ImageKey(true); got != sprite.Sheet("red") {
		t.Errorf("sheet key = %v", got)
	}
}

func TestFromActors(t *testing.T) {
	s := FromActors([]Actor{{Variation: "a"}, {Variation: "b"}})
	if s.Len() != 2 || s.Dirty().Count() != 2 {
		t.Errorf("FromActors: len %d dirty %d", s.Len(), s.Dirty().Count())
	}
}

// =============================================================================
// Clock
// =============================================================================

func TestClockStep(t *testing.T) {
	c := Clock{FrameCount: 12, FrameDurationMs: 100}
	tests := []struct {
		name      string
		delta     float64
		start     Actor
		wantFrame int
		wantTime  float64
		wantMoved bool
	}{
		{"below duration", 40, Actor{IsAnimated: true}, 0, 40, false},
		{"exactly one", 100, Actor{IsAnimated: true}, 1, 0, true},
		{"spans three", 350, Actor{IsAnimated: true}, 3, 50, true},
		{"wraps", 300, Actor{IsAnimated: true, Frame: 10}, 1, 0, true},
		{"accumulates", 30, Actor{IsAnimated: true, TimeOnFrameMs: 80}, 1, 10, true},
		{"still actor", 1000, Actor{}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.start
			moved := c.Step(&a, tt.delta)
			if a.Frame != tt.wantFrame || a.TimeOnFrameMs != tt.wantTime || moved != tt.wantMoved {
				t.Errorf("Step = frame %d time %v moved %v, want %d %v %v",
					a.Frame, a.TimeOnFrameMs, moved, tt.wantFrame, tt.wantTime, tt.wantMoved)
			}
		})
	}
}

func TestClockDecomposition(t *testing.T) {
	sets := []*sprite.Set{sprite.Frog(), sprite.Test()}
	deltas := []float64{2, 100, 250, 998, 1200, 4000, 12345 * 2}

	for _, set := range sets {
		c := NewClock(set)
		for _, d := range deltas {
			for _, start := range []Actor{
				{IsAnimated: true},
				{IsAnimated: true, Frame: 3, TimeOnFrameMs: 20},
			} {
				once, twice := start, start
				c.Step(&once, d)
				c.Step(&twice, d/2)
				c.Step(&twice, d/2)
				if once.Frame != twice.Frame || once.TimeOnFrameMs != twice.TimeOnFrameMs {
					t.Errorf("%s delta %v from %+v: one step (%d, %v) != two halves (%d, %v)",
						set.ID, d, start, once.Frame, once.TimeOnFrameMs, twice.Frame, twice.TimeOnFrameMs)
				}
			}
		}
	}
}

func TestClockAdvance(t *testing.T) {
	s := newStore(t, 10, false)
	s.ApplyPartialUpdate([]int{1, 2, 3}, SetAnimated(true))
	s.Detach([]int{3})
	s.Dirty().ClearAll()

	c := Clock{FrameCount: 12, FrameDurationMs: 100}
	if got := c.Advance(s, 50); got != 0 {
		t.Errorf("Advance(50) changed %d actors, want 0", got)
	}
	if got := c.Advance(s, 60); got != 2 {
		t.Errorf("Advance(60) changed %d actors, want 2", got)
	}
	if !s.IsDirty(1) || !s.IsDirty(2) || s.IsDirty(3) || s.IsDirty(0) {
		t.Error("Advance dirtied the wrong actors")
	}
	if s.Actor(3).Frame != 0 || s.Actor(3).TimeOnFrameMs != 0 {
		t.Error("detached actor was animated")
	}
	if a := s.Actor(1); a.Frame != 1 || a.TimeOnFrameMs != 10 {
		t.Errorf("actor 1 = frame %d time %v, want 1 10", a.Frame, a.TimeOnFrameMs)
	}
}

// =============================================================================
// Swapper
// =============================================================================

func TestSwapperVariationsExactCount(t *testing.T) {
	set := sprite.Frog()
	for _, n := range []int{0, 1, 5, 50, 99, 100, 150} {
		s := newStore(t, 100, false)
		before := s.Snapshot(allIndices(100))

		changed := NewSwapper(newRand()).Variations(s, set, n)

		want := min(n, 100)
		if len(changed) != want {
			t.Errorf("n=%d: changed %d actors, want %d", n, len(changed), want)
		}
		if s.Dirty().Count() != want {
			t.Errorf("n=%d: dirty = %d, want %d", n, s.Dirty().Count(), want)
		}
		flipped := 0
		for i := range 100 {
			if s.Actor(i).Variation != before[i].Variation {
				flipped++
				if _, ok := changed[i]; !ok {
					t.Errorf("n=%d: actor %d changed without being reported", n, i)
				}
			}
		}
		if flipped != want {
			t.Errorf("n=%d: %d variations flipped, want %d", n, flipped, want)
		}
	}
}

func TestSwapperSingleVariation(t *testing.T) {
	set := &sprite.Set{ID: "one", CellWidth: 1, CellHeight: 1, Variations: []sprite.VariationID{"only"},
		FrameCount: 1, FrameDurationMs: 1, SheetColumns: 1}
	s := NewStore()
	s.Reset(10, set, false, newRand())
	s.Dirty().ClearAll()

	changed := NewSwapper(newRand()).Variations(s, set, 5)
	if len(changed) != 5 || s.Dirty().Count() != 5 {
		t.Errorf("changed %d dirty %d, want 5 and 5", len(changed), s.Dirty().Count())
	}
}

func TestSwapperAnimations(t *testing.T) {
	s := newStore(t, 64, false)
	changed := NewSwapper(newRand()).Animations(s, 5)
	if len(changed) != 5 || s.Dirty().Count() != 5 {
		t.Fatalf("changed %d dirty %d, want 5 and 5", len(changed), s.Dirty().Count())
	}
	for i, p := range changed {
		if !s.Actor(i).IsAnimated || !p.IsAnimated {
			t.Errorf("actor %d not toggled to animated", i)
		}
	}
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func BenchmarkClockAdvance(b *testing.B) {
	s := NewStore()
	s.Reset(50000, sprite.Frog(), true, newRand())
	c := NewClock(sprite.Frog())
	for b.Loop() {
		c.Advance(s, 16.6)
	}
}
