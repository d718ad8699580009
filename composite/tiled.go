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

// Container holds tile images edge to edge under one transform, the way a
// scene graph node or a transformed DOM element would. Tiles never see the
// camera.
type Container struct {
	transform Transform
	tiles     []placement

	// transforms counts SetTransform calls.
	transforms int
}

// SetTransform replaces the container transform.
func (c *Container) SetTransform(t Transform) {
	c.transform = t
	c.transforms++
}

// Transform returns the container transform.
func (c *Container) Transform() Transform {
	return c.transform
}

// TransformUpdates returns how many times the transform was set.
func (c *Container) TransformUpdates() int {
	return c.transforms
}

// SetTile places img at world origin as tile i. A nil img leaves the tile
// blank.
func (c *Container) SetTile(i int, origin image.Point, img image.Image) {
	if i >= len(c.tiles) {
		c.tiles = append(c.tiles, make([]placement, i+1-len(c.tiles))...)
	}
	c.tiles[i] = placement{origin: origin, img: img}
}

// Len returns the number of tile slots.
func (c *Container) Len() int {
	return len(c.tiles)
}

// Present renders the transformed container onto dst.
func (c *Container) Present(dst *surface.Surface) {
	compose(dst, c.transform, c.tiles)
}

// TiledTransform lays tiles sized to the surface limit out in a Container
// and applies the camera as the container transform.
type TiledTransform struct {
	tiles     *tileSet
	container Container
	destroyed bool
}

// Kind returns config.OffsetTransform.
func (s *TiledTransform) Kind() config.OffsetStrategy { return config.OffsetTransform }

// Setup partitions the grid and places every tile in the container.
func (s *TiledTransform) Setup(env Env) error {
	if s.destroyed {
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
	s.tiles = ts
	s.container.SetTransform(CameraTransform(env.Camera))
	s.place()
	return nil
}

// place refreshes every tile slot of the container.
func (s *TiledTransform) place() {
	for i, pl := range s.tiles.placements() {
		s.container.SetTile(i, pl.origin, pl.img)
	}
}

// Container returns the tile container.
func (s *TiledTransform) Container() *Container {
	return &s.container
}

// Resize is a no-op: tiles do not depend on the display size.
func (s *TiledTransform) Resize(width, height int) {}

// UpdateCamera sets the container transform. Tiles are not touched.
func (s *TiledTransform) UpdateCamera(cam config.Camera) {
	s.container.SetTransform(CameraTransform(cam))
}

// SetImage forwards a loaded image to local tiles.
func (s *TiledTransform) SetImage(key sprite.ImageKey, img image.Image) {
	if s.tiles != nil {
		s.tiles.setImage(key, img)
	}
}

// UpdatePartialActors forwards patches to worker tiles.
func (s *TiledTransform) UpdatePartialActors(patches map[int]actor.Patch) {
	if s.tiles != nil {
		s.tiles.updatePartialActors(patches)
	}
}

// Draw draws every tile and refreshes container slots whose image changed.
func (s *TiledTransform) Draw() (Stats, error) {
	switch {
	case s.destroyed:
		return Stats{}, ErrDestroyed
	case s.tiles == nil:
		return Stats{}, ErrNotSetup
	}
	st, changed := s.tiles.draw()
	if changed {
		s.place()
	}
	return st, nil
}

// Present renders the container onto dst.
func (s *TiledTransform) Present(dst *surface.Surface) {
	s.container.Present(dst)
}

// Destroy releases every tile and empties the container.
func (s *TiledTransform) Destroy() {
	if s.tiles != nil {
		s.tiles.destroy()
		s.tiles = nil
	}
	s.container.tiles = nil
	s.destroyed = true
}
