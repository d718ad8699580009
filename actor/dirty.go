package actor

import (
	"math/bits"
	"sync/atomic"
)

// DirtySet tracks which actors need redrawing using an atomic bitmap, one
// bit per actor index packed into uint64 words.
//
// All methods are safe for concurrent use. Tiles own disjoint index sets,
// so drawers running on different goroutines clear their own bits without
// contending on anything but the shared words.
type DirtySet struct {
	words []atomic.Uint64
	n     int
}

// NewDirtySet creates a set for n actors, all clean.
func NewDirtySet(n int) *DirtySet {
	if n < 0 {
		n = 0
	}
	return &DirtySet{
		words: make([]atomic.Uint64, (n+63)/64),
		n:     n,
	}
}

// Len returns the number of tracked indices.
func (d *DirtySet) Len() int {
	return d.n
}

// Mark marks actor i dirty. Out-of-range indices are ignored.
func (d *DirtySet) Mark(i int) {
	if i < 0 || i >= d.n {
		return
	}
	d.words[i/64].Or(1 << (i & 63))
}

// Clear marks actor i clean.
func (d *DirtySet) Clear(i int) {
	if i < 0 || i >= d.n {
		return
	}
	d.words[i/64].And(^(uint64(1) << (i & 63)))
}

// IsDirty reports whether actor i is dirty. Out-of-range indices are clean.
func (d *DirtySet) IsDirty(i int) bool {
	if i < 0 || i >= d.n {
		return false
	}
	return d.words[i/64].Load()&(1<<(i&63)) != 0
}

// MarkAll marks every actor dirty.
func (d *DirtySet) MarkAll() {
	full := d.n / 64
	for i := 0; i < full; i++ {
		d.words[i].Store(^uint64(0))
	}
	if rem := d.n % 64; rem > 0 {
		d.words[full].Store((uint64(1) << rem) - 1)
	}
}

// ClearAll marks every actor clean.
func (d *DirtySet) ClearAll() {
	for i := range d.words {
		d.words[i].Store(0)
	}
}

// Count returns the number of dirty actors.
func (d *DirtySet) Count() int {
	count := 0
	for i := range d.words {
		count += bits.OnesCount64(d.words[i].Load())
	}
	return count
}

// ForEach calls fn for every dirty index in ascending order without clearing.
func (d *DirtySet) ForEach(fn func(i int)) {
	for w := range d.words {
		word := d.words[w].Load()
		for word != 0 {
			b := bits.TrailingZeros64(word)
			fn(w*64 + b)
			word &^= 1 << b
		}
	}
}
