// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

var red = color.RGBA{R: 255, A: 255}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		want image.Point
	}{
		{"normal", 64, 32, image.Pt(64, 32)},
		{"zero", 0, 0, image.Pt(0, 0)},
		{"negative", -4, 10, image.Pt(0, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.w, tt.h).Size(); got != tt.want {
				t.Errorf("Size() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClearRect(t *testing.T) {
	s := New(8, 8)
	s.Fill(red)
	s.ClearRect(image.Rect(2, 2, 4, 20))

	for y := range 8 {
		for x := range 8 {
			_, _, _, a := s.Image().At(x, y).RGBA()
			inside := x >= 2 && x < 4 && y >= 2
			if inside && a != 0 {
				t.Fatalf("pixel (%d,%d) not cleared", x, y)
			}
			if !inside && a == 0 {
				t.Fatalf("pixel (%d,%d) cleared outside the rect", x, y)
			}
		}
	}

	s.ClearRect(image.Rect(100, 100, 120, 120))
	s.Clear()
	for _, b := range s.Image().Pix {
		if b != 0 {
			t.Fatal("Clear left non-zero bytes")
		}
	}
}

func TestDrawImageSameSize(t *testing.T) {
	s := New(4, 4)
	src := solid(4, 4, red)
	s.DrawImage(src, image.Rect(1, 1, 3, 3), image.Rect(0, 0, 2, 2))

	if got := s.Image().RGBAAt(1, 1); got != red {
		t.Errorf("pixel (1,1) = %v, want red", got)
	}
	if got := s.Image().RGBAAt(2, 2); got.A != 0 {
		t.Errorf("pixel (2,2) = %v, want transparent", got)
	}
}

func TestDrawImageScaled(t *testing.T) {
	s := New(8, 8)
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.SetRGBA(0, 0, red)
	src.SetRGBA(1, 1, color.RGBA{B: 255, A: 255})

	s.DrawImage(src, src.Bounds(), image.Rect(0, 0, 8, 8))

	img := s.Image()
	if got := img.RGBAAt(3, 3); got != red {
		t.Errorf("top-left quadrant = %v, want red", got)
	}
	if got := img.RGBAAt(6, 6); got.B != 255 {
		t.Errorf("bottom-right quadrant = %v, want blue", got)
	}
	if got := img.RGBAAt(6, 1); got.A != 0 {
		t.Errorf("top-right quadrant = %v, want transparent", got)
	}
}

func TestDrawImageOutside(t *testing.T) {
	s := New(4, 4)
	s.DrawImage(solid(2, 2, red), image.Rect(0, 0, 2, 2), image.Rect(10, 10, 12, 12))
	s.DrawImage(nil, image.Rect(0, 0, 2, 2), image.Rect(0, 0, 2, 2))
	for _, b := range s.Image().Pix {
		if b != 0 {
			t.Fatal("draw outside the surface touched pixels")
		}
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	s := New(2, 2)
	s.Fill(red)
	snap := s.Snapshot()
	s.Clear()
	if snap.RGBAAt(0, 0) != red {
		t.Error("Snapshot shares pixels with the surface")
	}
}

func TestResizeDiscards(t *testing.T) {
	s := New(2, 2)
	s.Fill(red)
	s.Resize(3, 5)
	if s.Size() != image.Pt(3, 5) {
		t.Fatalf("Size() = %v", s.Size())
	}
	if s.Image().RGBAAt(0, 0).A != 0 {
		t.Error("Resize kept old contents")
	}
}

func TestTransfer(t *testing.T) {
	s := New(4, 4)
	moved, err := s.Transfer()
	if err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	if !s.Detached() || s.Image() != nil || s.Size() != (image.Point{}) {
		t.Error("source still usable after Transfer")
	}
	s.Fill(red) // no-op, must not panic
	s.ClearRect(image.Rect(0, 0, 4, 4))
	s.DrawImage(solid(1, 1, red), image.Rect(0, 0, 1, 1), image.Rect(0, 0, 1, 1))
	if s.Snapshot() != nil {
		t.Error("Snapshot of detached surface is non-nil")
	}

	if moved.Size() != image.Pt(4, 4) {
		t.Errorf("moved Size() = %v", moved.Size())
	}
	if _, err := s.Transfer(); !errors.Is(err, ErrDetached) {
		t.Errorf("second Transfer() error = %v, want ErrDetached", err)
	}

	moved.Release()
	moved.Release()
	if !moved.Detached() {
		t.Error("Release did not detach")
	}
}

func TestLargestEdge(t *testing.T) {
	tests := []struct {
		name  string
		max   int
		limit int
		want  int
	}{
		{"power of two", 4096, 1 << 20, 4096},
		{"odd", 11180, 1 << 20, 11180},
		{"limit caps", 50000, 16384, 16384},
		{"limit not power of two", 50000, 1000, 1000},
		{"one", 1, 100, 1},
		{"none", 0, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			p := EdgeCheckerFunc(func(edge int) bool {
				calls++
				return edge <= tt.max
			})
			if got := LargestEdge(p, tt.limit); got != tt.want {
				t.Errorf("LargestEdge() = %d, want %d", got, tt.want)
			}
			if calls > 64 {
				t.Errorf("LargestEdge made %d Supports calls", calls)
			}
		})
	}
}

func TestMemoryBudget(t *testing.T) {
	p := MemoryBudget{MaxBytes: 4 * 1024 * 1024}
	if got := LargestEdge(p, 1<<16); got != 1024 {
		t.Errorf("LargestEdge(MemoryBudget 4MiB) = %d, want 1024", got)
	}
}
