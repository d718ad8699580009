// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface provides the bounded raster surfaces sprites are drawn on.
//
// A Surface is a CPU-backed *image.RGBA with the handful of operations the
// tile drawers and composite stages need: clear, clear a rectangle, draw a
// (sub-)image into a rectangle with nearest-neighbour scaling, and snapshot.
//
// # Ownership
//
// A surface can be handed to another goroutine with Transfer. Transfer
// returns a new handle owning the pixels and detaches the original; every
// operation on a detached surface is a no-op, and Image returns nil. This
// mirrors transferable canvases: once a worker owns a surface the sender
// must never touch it again.
//
// # Usage
//
//	s := surface.New(512, 512)
//	defer s.Release()
//
//	s.Clear()
//	s.DrawImage(sheet, sheetRect, image.Rect(64, 0, 128, 64))
//	bitmap := s.Snapshot()
//
// # Size limits
//
// Platforms cap the edge length of a surface. LargestEdge finds the
// largest supported edge with a doubling search followed by a binary
// search, given an EdgeChecker that reports whether an edge works.
package surface
