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

// Direct draws every actor onto one viewport sized surface. It ignores the
// surface limit and bakes the camera into each sprite, so every camera
// change is a full redraw.
type Direct struct {
	tiles     *tileSet
	destroyed bool
}

// Kind returns config.OffsetDirect.
func (d *Direct) Kind() config.OffsetStrategy { return config.OffsetDirect }

// Setup builds the single tile.
func (d *Direct) Setup(env Env) error {
	if d.destroyed {
		return ErrDestroyed
	}
	p := grid.Single(env.Store.Layout(), env.Set.CellWidth, env.Set.CellHeight, env.Display)
	ts, err := newTileSet(env, p, true)
	if err != nil {
		return err
	}
	d.tiles = ts
	return nil
}

// Resize resizes the viewport surface.
func (d *Direct) Resize(width, height int) {
	if d.tiles != nil {
		d.tiles.resize(width, height)
	}
}

// UpdateCamera forwards the camera to the tile.
func (d *Direct) UpdateCamera(cam config.Camera) {
	if d.tiles != nil {
		d.tiles.updateCamera(cam)
	}
}

// SetImage forwards a loaded image.
func (d *Direct) SetImage(key sprite.ImageKey, img image.Image) {
	if d.tiles != nil {
		d.tiles.setImage(key, img)
	}
}

// UpdatePartialActors forwards patches to a worker tile.
func (d *Direct) UpdatePartialActors(patches map[int]actor.Patch) {
	if d.tiles != nil {
		d.tiles.updatePartialActors(patches)
	}
}

// Draw draws the tile.
func (d *Direct) Draw() (Stats, error) {
	switch {
	case d.destroyed:
		return Stats{}, ErrDestroyed
	case d.tiles == nil:
		return Stats{}, ErrNotSetup
	}
	st, _ := d.tiles.draw()
	return st, nil
}

// Present copies the viewport onto dst.
func (d *Direct) Present(dst *surface.Surface) {
	if d.tiles == nil {
		dst.Clear()
		return
	}
	compose(dst, Transform{Scale: 1}, d.tiles.placements())
}

// Destroy releases the tile.
func (d *Direct) Destroy() {
	if d.tiles != nil {
		d.tiles.destroy()
		d.tiles = nil
	}
	d.destroyed = true
}
