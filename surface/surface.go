// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// ErrDetached is returned by Transfer when the surface no longer owns its
// pixels.
var ErrDetached = errors.New("surface: surface has been transferred or released")

// Surface is a bounded RGBA raster.
//
// Surfaces are NOT thread-safe. Each surface is used by the goroutine that
// owns it; ownership moves with Transfer.
type Surface struct {
	img *image.RGBA

	// detached is set by Transfer and Release.
	detached bool
}

// New creates a transparent surface of the given size. Non-positive sizes
// produce an empty surface.
func New(width, height int) *Surface {
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0)))}
}

// FromImage wraps an existing image. The surface draws into img directly.
func FromImage(img *image.RGBA) *Surface {
	return &Surface{img: img}
}

// Width returns the surface width, 0 once detached.
func (s *Surface) Width() int {
	if s.detached {
		return 0
	}
	return s.img.Rect.Dx()
}

// Height returns the surface height, 0 once detached.
func (s *Surface) Height() int {
	if s.detached {
		return 0
	}
	return s.img.Rect.Dy()
}

// Size returns the surface size.
func (s *Surface) Size() image.Point {
	return image.Pt(s.Width(), s.Height())
}

// Bounds returns the surface bounds.
func (s *Surface) Bounds() image.Rectangle {
	return image.Rectangle{Max: s.Size()}
}

// Detached reports whether the surface was transferred or released.
func (s *Surface) Detached() bool {
	return s.detached
}

// Resize reallocates the backing image. Contents are discarded even when
// the size is unchanged, matching how a canvas behaves when its dimensions
// are assigned.
func (s *Surface) Resize(width, height int) {
	if s.detached {
		return
	}
	s.img = image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0)))
}

// Clear makes every pixel transparent.
func (s *Surface) Clear() {
	if s.detached {
		return
	}
	clear(s.img.Pix)
}

// Fill paints every pixel with c.
func (s *Surface) Fill(c color.Color) {
	if s.detached {
		return
	}
	draw.Draw(s.img, s.img.Rect, image.NewUniform(c), image.Point{}, draw.Src)
}

// ClearRect makes the pixels inside r transparent. r is clipped to the
// surface.
func (s *Surface) ClearRect(r image.Rectangle) {
	if s.detached {
		return
	}
	r = r.Intersect(s.img.Rect)
	if r.Empty() {
		return
	}
	rowBytes := r.Dx() * 4
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := s.img.PixOffset(r.Min.X, y)
		clear(s.img.Pix[off : off+rowBytes])
	}
}

// DrawImage composites the sr sub-rectangle of src over the dr rectangle
// of the surface. When the sizes differ the source is scaled with
// nearest-neighbour sampling so pixel art stays sharp.
func (s *Surface) DrawImage(src image.Image, sr, dr image.Rectangle) {
	if s.detached || src == nil || sr.Empty() || dr.Empty() {
		return
	}
	if !dr.Overlaps(s.img.Rect) {
		return
	}
	if sr.Size() == dr.Size() {
		draw.Draw(s.img, dr, src, sr.Min, draw.Over)
		return
	}
	xdraw.NearestNeighbor.Scale(s.img, dr, src, sr, xdraw.Over, nil)
}

// Image returns the backing image, or nil once detached. It is a direct
// reference, not a copy.
func (s *Surface) Image() *image.RGBA {
	if s.detached {
		return nil
	}
	return s.img
}

// Snapshot returns a copy of the current contents, or nil once detached.
func (s *Surface) Snapshot() *image.RGBA {
	if s.detached {
		return nil
	}
	out := image.NewRGBA(s.img.Rect)
	copy(out.Pix, s.img.Pix)
	return out
}

// Transfer moves the pixels to a new handle and detaches s.
func (s *Surface) Transfer() (*Surface, error) {
	if s.detached {
		return nil, ErrDetached
	}
	moved := &Surface{img: s.img}
	s.img = nil
	s.detached = true
	return moved, nil
}

// Release drops the pixels. Release is safe to call multiple times.
func (s *Surface) Release() {
	s.img = nil
	s.detached = true
}
