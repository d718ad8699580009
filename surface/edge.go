// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

// EdgeChecker reports whether a square surface with the given edge works on the
// current platform.
type EdgeChecker interface {
	Supports(edge int) bool
}

// EdgeCheckerFunc adapts a function to EdgeChecker.
type EdgeCheckerFunc func(edge int) bool

// Supports calls f(edge).
func (f EdgeCheckerFunc) Supports(edge int) bool { return f(edge) }

// MemoryBudget accepts any edge whose RGBA buffer fits in MaxBytes.
type MemoryBudget struct {
	MaxBytes int64
}

// Supports reports whether edge*edge*4 <= MaxBytes.
func (m MemoryBudget) Supports(edge int) bool {
	e := int64(edge)
	return e > 0 && e*e*4 <= m.MaxBytes
}

// LargestEdge returns the largest edge in [1, limit] that p supports,
// assuming support is monotonic. It doubles until an edge fails, then
// binary searches between the last good and first bad edge. It returns 0
// when even an edge of 1 fails.
func LargestEdge(p EdgeChecker, limit int) int {
	if limit < 1 || !p.Supports(1) {
		return 0
	}

	good, bad := 1, 0
	for edge := 2; ; edge *= 2 {
		if edge > limit {
			if p.Supports(limit) {
				return limit
			}
			bad = limit
			break
		}
		if !p.Supports(edge) {
			bad = edge
			break
		}
		good = edge
	}

	for bad-good > 1 {
		mid := good + (bad-good)/2
		if p.Supports(mid) {
			good = mid
		} else {
			bad = mid
		}
	}
	return good
}
