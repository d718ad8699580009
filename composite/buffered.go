// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package composite

import (
	"image"

	"github.com/gogpu/swarm/actor"
	"github.com/gogpu/swarm/config"
	"github.com/gogpu/swarm/grid"
	"github.com/gogpu/swarm/sprite"
	"github.com/gogpu/swarm/surface"
)

// Buffered draws camera independent tiles off screen and stretches them
// onto one display surface, tile t at (offset + origin(t)) * scale. The
// display is recomposed whenever a tile, the camera or the display size
// changed.
type Buffered struct {
	tiles     *tileSet
	display   *surface.Surface
	camera    config.Camera
	dirty     bool
	destroyed bool
}

// Kind returns config.OffsetBuffered.
func (b *Buffered) Kind() config.OffsetStrategy { return config.OffsetBuffered }

// Setup partitions the grid and allocates the display surface.
func (b *Buffered) Setup(env Env) error {
	if b.destroyed {
		return ErrDestroyed
	}
	p, err := grid.ComputePartition(env.Store.Layout(), env.Set.CellWidth, env.Set.CellHeight, env.Canvas.MaxSurfaceEdge)
	if err != nil {
		return err
	}
	ts, err := newTileSet(env, p, false)
	if err != nil {
		return err
	}
	b.tiles = ts
	b.display = surface.New(env.Display.X, env.Display.Y)
	b.camera = env.Camera
	b.dirty = true
	return nil
}

// Display returns the composed display surface.
func (b *Buffered) Display() *surface.Surface {
	return b.display
}

// Resize resizes the display surface.
func (b *Buffered) Resize(width, height int) {
	if b.display != nil {
		b.display.Resize(width, height)
		b.dirty = true
	}
}

// UpdateCamera records the camera for the next composite.
func (b *Buffered) UpdateCamera(cam config.Camera) {
	b.camera = cam
	b.dirty = true
}

// SetImage forwards a loaded image to local tiles.
func (b *Buffered) SetImage(key sprite.ImageKey, img image.Image) {
	if b.tiles != nil {
		b.tiles.setImage(key, img)
	}
}

// UpdatePartialActors forwards patches to worker tiles.
func (b *Buffered) UpdatePartialActors(patches map[int]actor.Patch) {
	if b.tiles != nil {
		b.tiles.updatePartialActors(patches)
	}
}

// Draw draws every tile, then clears the display and stretches all tiles
// onto it if anything changed.
func (b *Buffered) Draw() (Stats, error) {
	switch {
	case b.destroyed:
		return Stats{}, ErrDestroyed
	case b.tiles == nil:
		return Stats{}, ErrNotSetup
	}
	st, changed := b.tiles.draw()
	if changed || b.dirty {
		compose(b.display, CameraTransform(b.camera), b.tiles.placements())
		b.dirty = false
		st.Composited = true
	}
	return st, nil
}

// Present copies the display onto dst.
func (b *Buffered) Present(dst *surface.Surface) {
	if b.display == nil {
		dst.Clear()
		return
	}
	img := b.display.Image()
	compose(dst, Transform{Scale: 1}, []placement{{img: img}})
}

// Destroy releases the tiles and the display.
func (b *Buffered) Destroy() {
	if b.tiles != nil {
		b.tiles.destroy()
		b.tiles = nil
	}
	if b.display != nil {
		b.display.Release()
		b.display = nil
	}
	b.destroyed = true
}
