// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package composite

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/gogpu/swarm/actor"
	"github.com/gogpu/swarm/config"
	"github.com/gogpu/swarm/drawer"
	"github.com/gogpu/swarm/grid"
	"github.com/gogpu/swarm/sprite"
	"github.com/gogpu/swarm/surface"
	"github.com/gogpu/swarm/worker"
)

// tile is one partition tile, drawn locally or by a worker.
type tile struct {
	index  int
	origin image.Point

	drawer *drawer.Drawer
	proxy  *worker.Proxy

	// blank is set once the tile's worker is unreachable.
	blank bool
}

// image returns the tile's current pixels, nil when blank or when a worker
// has not relayed anything yet.
func (t *tile) image() image.Image {
	switch {
	case t.blank:
		return nil
	case t.proxy != nil:
		if bmp := t.proxy.Bitmap(); bmp != nil {
			return bmp
		}
		return nil
	default:
		if img := t.drawer.Surface().Image(); img != nil {
			return img
		}
		return nil
	}
}

// tileSet owns the tiles of one strategy.
type tileSet struct {
	env   Env
	log   *slog.Logger
	tiles []*tile
}

func newTileSet(env Env, p *grid.Partition, bakeCamera bool) (*tileSet, error) {
	if env.Canvas.UseWorker && env.Loader == nil {
		return nil, errors.New("composite: worker tiles need an image loader")
	}
	ts := &tileSet{env: env, log: env.logger()}
	for i, pt := range p.Tiles {
		t := &tile{index: i, origin: pt.Origin(p.CellWidth, p.CellHeight)}
		ts.tiles = append(ts.tiles, t)

		members := drawer.Members(p, i)
		var err error
		if env.Canvas.UseWorker {
			err = ts.spawn(t, pt.Size(), members, bakeCamera)
		} else {
			err = ts.local(t, pt.Size(), members, bakeCamera)
		}
		if err != nil {
			ts.destroy()
			return nil, fmt.Errorf("composite: tile %d: %w", i, err)
		}
	}
	return ts, nil
}

func (ts *tileSet) local(t *tile, size image.Point, members []drawer.Member, bakeCamera bool) error {
	t.drawer = drawer.New(ts.env.Store, ts.env.Set, members, drawer.Options{
		OnlyDrawChanges: ts.env.Canvas.OnlyDrawChanges,
		FrameType:       ts.env.Canvas.FrameType,
		BakeCamera:      bakeCamera,
		Logger:          ts.log,
	})
	t.drawer.UpdateCamera(ts.env.Camera)
	return t.drawer.Setup(surface.New(size.X, size.Y))
}

func (ts *tileSet) spawn(t *tile, size image.Point, members []drawer.Member, bakeCamera bool) error {
	owned := make([]int, len(members))
	cells := make([]image.Point, len(members))
	for k, m := range members {
		owned[k], cells[k] = m.Index, m.Cell
	}

	log := ts.log.With("tile", t.index)
	t.proxy = worker.Spawn(worker.Config{Loader: ts.env.Loader, Logger: log, Now: ts.env.Now})
	cam := ts.env.Camera
	err := t.proxy.Setup(worker.SetupPayload{
		Surface:         surface.New(size.X, size.Y),
		Set:             ts.env.Set,
		Camera:          &cam,
		OnlyDrawChanges: ts.env.Canvas.OnlyDrawChanges,
		FrameType:       ts.env.Canvas.FrameType,
		BakeCamera:      bakeCamera,
		Mode:            ts.env.Canvas.WorkerMode,
		TickInterval:    ts.env.TickInterval,
		Relay:           true,
		Actors:          ts.env.Store.Snapshot(owned),
		Cells:           cells,
	}, owned)
	if err != nil {
		return err
	}
	// The worker animates its own copies from now on.
	ts.env.Store.Detach(owned)
	return nil
}

func (ts *tileSet) setImage(key sprite.ImageKey, img image.Image) {
	for _, t := range ts.tiles {
		if t.drawer != nil {
			t.drawer.SetImage(key, img)
		}
	}
}

func (ts *tileSet) updatePartialActors(patches map[int]actor.Patch) {
	for _, t := range ts.tiles {
		if t.proxy == nil || t.blank {
			continue
		}
		if err := t.proxy.UpdatePartialActors(patches); err != nil {
			ts.unreachable(t, err)
		}
	}
}

func (ts *tileSet) updateCamera(cam config.Camera) {
	for _, t := range ts.tiles {
		switch {
		case t.drawer != nil:
			t.drawer.UpdateCamera(cam)
		case !t.blank:
			if err := t.proxy.UpdateCamera(cam); err != nil {
				ts.unreachable(t, err)
			}
		}
	}
}

func (ts *tileSet) resize(width, height int) {
	for _, t := range ts.tiles {
		switch {
		case t.drawer != nil:
			t.drawer.Resize(width, height)
		case !t.blank:
			if err := t.proxy.UpdateDisplaySize(width, height); err != nil {
				ts.unreachable(t, err)
			}
		}
	}
}

// draw collects worker replies, draws local tiles and asks workers for the
// next frame. It reports whether any tile's pixels changed.
func (ts *tileSet) draw() (Stats, bool) {
	st := Stats{Tiles: len(ts.tiles)}
	changed := false

	var locals []*tile
	for _, t := range ts.tiles {
		switch {
		case t.drawer != nil:
			locals = append(locals, t)
		case t.blank:
		case t.proxy.Unreachable():
			ts.unreachable(t, worker.ErrUnreachable)
			changed = true
		case t.proxy.Poll():
			ws := t.proxy.LastStats()
			st.WorkerUpdates++
			st.Drawn += ws.Drawn
			st.Skipped += ws.Skipped
			if ws.Full {
				st.FullTiles++
			}
			changed = true
		}
	}

	results := make([]drawer.Stats, len(locals))
	errs := make([]error, len(locals))
	run := func(i int) { results[i], errs[i] = locals[i].drawer.Draw() }
	if ts.env.Pool != nil {
		ts.env.Pool.ForEach(len(locals), run)
	} else {
		for i := range locals {
			run(i)
		}
	}
	for i, r := range results {
		if errs[i] != nil {
			ts.log.Warn("composite: tile draw failed", "tile", locals[i].index, "err", errs[i])
			continue
		}
		st.Drawn += r.Drawn
		st.Skipped += r.Skipped
		if r.Full {
			st.FullTiles++
		}
		if r.Full || r.Drawn > 0 {
			changed = true
		}
	}

	for _, t := range ts.tiles {
		if t.proxy == nil || t.blank || ts.env.Canvas.WorkerMode == config.WorkerPush {
			continue
		}
		if err := t.proxy.RequestDraw(); err != nil {
			ts.unreachable(t, err)
			changed = true
		}
	}

	for _, t := range ts.tiles {
		if t.blank {
			st.BlankTiles++
		}
	}
	return st, changed
}

// unreachable blanks t for good when err means its worker is gone.
func (ts *tileSet) unreachable(t *tile, err error) {
	if !errors.Is(err, worker.ErrUnreachable) {
		ts.log.Warn("composite: worker message failed", "tile", t.index, "err", err)
		return
	}
	if t.blank {
		return
	}
	t.blank = true
	t.proxy.Terminate()
	ts.log.Warn("composite: worker unreachable, tile left blank", "tile", t.index)
}

func (ts *tileSet) placements() []placement {
	out := make([]placement, len(ts.tiles))
	for i, t := range ts.tiles {
		out[i] = placement{origin: t.origin, img: t.image()}
	}
	return out
}

func (ts *tileSet) destroy() {
	for _, t := range ts.tiles {
		if t.drawer != nil {
			t.drawer.Destroy()
		}
		if t.proxy != nil {
			t.proxy.Terminate()
		}
	}
	ts.tiles = nil
}
