// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package composite turns tile drawers into what the viewer sees.
//
// Three strategies share one capability set and are chosen by
// configuration:
//
//   - Direct draws every actor straight onto one viewport sized surface
//     with the camera baked into each sprite position.
//   - TiledTransform keeps camera independent tiles edge to edge in a
//     Container and applies the camera once, as the container transform.
//   - Buffered keeps the same tiles off screen and stretches them onto one
//     display surface every frame.
//
// With CanvasOptions.UseWorker each tile is drawn by its own worker and
// relayed back as a bitmap. A worker that becomes unreachable leaves its
// tile blank; the rest of the frame is unaffected.
package composite

import (
	"errors"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/gogpu/swarm/actor"
	"github.com/gogpu/swarm/config"
	"github.com/gogpu/swarm/imagecache"
	"github.com/gogpu/swarm/sprite"
	"github.com/gogpu/swarm/surface"
)

// Errors returned by strategies.
var (
	// ErrNotSetup is returned by Draw before Setup.
	ErrNotSetup = errors.New("composite: strategy not set up")

	// ErrDestroyed is returned after Destroy.
	ErrDestroyed = errors.New("composite: strategy destroyed")
)

// Pool runs independent tile draws concurrently.
type Pool interface {
	ForEach(n int, fn func(i int))
}

// Env is what a strategy needs to build its tiles.
type Env struct {
	Store   *actor.Store
	Set     *sprite.Set
	Canvas  config.CanvasOptions
	Display image.Point
	Camera  config.Camera

	// Pool draws local tiles concurrently. Nil draws them in order.
	Pool Pool

	// Loader feeds worker image caches. Required with UseWorker.
	Loader imagecache.Loader

	// TickInterval is the worker push mode period.
	TickInterval time.Duration

	// Now drives worker animation clocks. Defaults to time.Now.
	Now func() time.Time

	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// Stats summarizes one composite Draw.
type Stats struct {
	Tiles     int
	FullTiles int
	Drawn     int
	Skipped   int

	// WorkerUpdates counts bitmaps received from workers.
	WorkerUpdates int

	// BlankTiles counts tiles whose worker is unreachable.
	BlankTiles int

	// Composited is set when the display was recomposed this frame.
	Composited bool
}

// Strategy is one way of presenting tiles.
//
// Strategies are NOT safe for concurrent use; they belong to the driver
// goroutine.
type Strategy interface {
	// Kind returns the strategy identifier.
	Kind() config.OffsetStrategy

	// Setup builds the tiles. It fails with a *config.Error when the
	// surface limit cannot hold a sprite cell.
	Setup(env Env) error

	// Resize follows a display size change.
	Resize(width, height int)

	// UpdateCamera follows a camera change.
	UpdateCamera(cam config.Camera)

	// SetImage hands a loaded image to every local tile.
	SetImage(key sprite.ImageKey, img image.Image)

	// UpdatePartialActors forwards patches, already applied to the main
	// store, to the workers owning the patched actors.
	UpdatePartialActors(patches map[int]actor.Patch)

	// Draw draws every tile and composes the result.
	Draw() (Stats, error)

	// Present renders what the viewer sees onto dst.
	Present(dst *surface.Surface)

	// Destroy releases surfaces and terminates workers.
	Destroy()
}

// New returns an unset strategy of the given kind. Unknown kinds fail with
// a *config.Error; there is no fallback.
func New(kind config.OffsetStrategy) (Strategy, error) {
	switch kind {
	case config.OffsetDirect:
		return &Direct{}, nil
	case config.OffsetTransform:
		return &TiledTransform{}, nil
	case config.OffsetBuffered:
		return &Buffered{}, nil
	default:
		return nil, config.Errorf("canvas.offset_strategy", "unknown strategy %q", kind)
	}
}

// Transform is a uniform scale followed by a translation, in display
// pixels.
type Transform struct {
	Scale float64
	X     float64
	Y     float64
}

// CameraTransform returns the transform placing world point p at
// (p + offset) * scale.
func CameraTransform(cam config.Camera) Transform {
	return Transform{
		Scale: cam.Scale,
		X:     cam.OffsetX * cam.Scale,
		Y:     cam.OffsetY * cam.Scale,
	}
}

// Point maps a world point to display pixels, rounding down.
func (t Transform) Point(p image.Point) image.Point {
	return image.Pt(
		int(math.Floor(float64(p.X)*t.Scale+t.X)),
		int(math.Floor(float64(p.Y)*t.Scale+t.Y)),
	)
}

// Rect maps a world rectangle to display pixels. Rectangles sharing an
// edge in world space share it on the display too.
func (t Transform) Rect(r image.Rectangle) image.Rectangle {
	return image.Rectangle{Min: t.Point(r.Min), Max: t.Point(r.Max)}
}

// placement is one tile image at its world origin.
type placement struct {
	origin image.Point
	img    image.Image
}

// compose clears dst and stretches every placed image onto it.
func compose(dst *surface.Surface, t Transform, tiles []placement) {
	dst.Clear()
	for _, pl := range tiles {
		if pl.img == nil {
			continue
		}
		b := pl.img.Bounds()
		world := image.Rectangle{Min: pl.origin, Max: pl.origin.Add(b.Size())}
		dst.DrawImage(pl.img, b, t.Rect(world))
	}
}
