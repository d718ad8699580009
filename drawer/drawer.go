// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package drawer renders one tile's actors onto one bounded surface,
// redrawing only what changed.
//
// A Drawer never owns actor state. It reads actors from a Store and clears
// the dirty bits of its own members after drawing them, so several drawers
// sharing one Store can draw concurrently as long as their member sets are
// disjoint and nothing mutates the Store meanwhile.
//
// Sprite positions are camera independent: member m is drawn at
// (m.Cell.X*cellWidth, m.Cell.Y*cellHeight). The one exception is a drawer
// created with BakeCamera, used by the Direct composite strategy, which
// draws straight to the display with the camera applied per actor.
package drawer

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/gogpu/swarm/actor"
	"github.com/gogpu/swarm/config"
	"github.com/gogpu/swarm/grid"
	"github.com/gogpu/swarm/sprite"
	"github.com/gogpu/swarm/surface"
)

// Errors returned by Drawer methods.
var (
	// ErrNotReady is returned by Draw before Setup.
	ErrNotReady = errors.New("drawer: not set up")

	// ErrDestroyed is returned by any operation after Destroy.
	ErrDestroyed = errors.New("drawer: destroyed")

	// ErrBusy is returned by Draw when called re-entrantly.
	ErrBusy = errors.New("drawer: draw in progress")
)

// State is the drawer lifecycle state.
type State uint8

// Drawer states.
const (
	Uninitialized State = iota
	Ready
	Drawing
	Destroyed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Drawing:
		return "drawing"
	case Destroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Member is one actor assigned to a drawer.
type Member struct {
	// Index is the actor's index in the drawer's Store.
	Index int

	// Cell is the actor's cell within the tile.
	Cell image.Point
}

// Members returns the members of tile t of p, indexed by global actor
// index.
func Members(p *grid.Partition, t int) []Member {
	indices := p.Members(t)
	out := make([]Member, len(indices))
	for k, i := range indices {
		_, local := p.Locate(i)
		out[k] = Member{Index: i, Cell: local}
	}
	return out
}

// Options configures a Drawer.
type Options struct {
	// OnlyDrawChanges enables dirty tracking. When false every Draw is a
	// full redraw.
	OnlyDrawChanges bool

	// FrameType selects individual frame images or sprite sheets.
	FrameType config.FrameType

	// BakeCamera applies the camera to every sprite position and size.
	// Camera changes then force a full redraw.
	BakeCamera bool

	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

// Stats describes one Draw.
type Stats struct {
	// Full is set when the whole surface was cleared and redrawn.
	Full bool

	// Drawn counts sprites blitted.
	Drawn int

	// Skipped counts dirty actors whose image has not arrived.
	Skipped int
}

// Drawer is a dirty-tracked renderer for one tile.
//
// Drawer is NOT safe for concurrent use. All methods belong to the
// goroutine that owns the drawer.
type Drawer struct {
	state   State
	surf    *surface.Surface
	store   *actor.Store
	set     *sprite.Set
	members []Member
	images  map[sprite.ImageKey]image.Image
	opts    Options
	camera  config.Camera
	log     *slog.Logger

	fullRedrawPending bool
}

// New creates an uninitialized drawer for members of store.
func New(store *actor.Store, set *sprite.Set, members []Member, opts Options) *Drawer {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Drawer{
		store:   store,
		set:     set,
		members: members,
		images:  make(map[sprite.ImageKey]image.Image),
		opts:    opts,
		camera:  config.DefaultCamera,
		log:     log,
	}
}

// Setup hands the drawer its surface and moves it to Ready. The first Draw
// is a full redraw.
func (d *Drawer) Setup(surf *surface.Surface) error {
	switch d.state {
	case Destroyed:
		return ErrDestroyed
	case Uninitialized:
	default:
		return fmt.Errorf("drawer: setup in state %s", d.state)
	}
	if surf == nil || surf.Detached() {
		return fmt.Errorf("drawer: setup: %w", surface.ErrDetached)
	}
	d.surf = surf
	d.state = Ready
	d.fullRedrawPending = true
	d.log.Debug("drawer: ready", "members", len(d.members), "size", surf.Size())
	return nil
}

// State returns the lifecycle state.
func (d *Drawer) State() State {
	return d.state
}

// Surface returns the drawer's surface, nil before Setup or after Destroy.
func (d *Drawer) Surface() *surface.Surface {
	return d.surf
}

// Members returns the drawer's members.
func (d *Drawer) Members() []Member {
	return d.members
}

// FullRedrawPending reports whether the next Draw redraws everything.
func (d *Drawer) FullRedrawPending() bool {
	return d.fullRedrawPending
}

// Resize reallocates the surface. The next Draw is a full redraw.
func (d *Drawer) Resize(width, height int) {
	if d.state == Destroyed || d.surf == nil {
		return
	}
	d.surf.Resize(width, height)
	d.fullRedrawPending = true
}

// SetImage records a loaded image. A newly arrived image may unblock many
// actors at once, so the next Draw is a full redraw.
func (d *Drawer) SetImage(key sprite.ImageKey, img image.Image) {
	if d.state == Destroyed || img == nil {
		return
	}
	d.images[key] = img
	d.fullRedrawPending = true
}

// HasImage reports whether the image for key has arrived.
func (d *Drawer) HasImage(key sprite.ImageKey) bool {
	_, ok := d.images[key]
	return ok
}

// UpdateCamera records the camera. Only drawers with BakeCamera use it;
// for them the next Draw is a full redraw.
func (d *Drawer) UpdateCamera(cam config.Camera) {
	if d.state == Destroyed {
		return
	}
	d.camera = cam
	if d.opts.BakeCamera {
		d.fullRedrawPending = true
	}
}

// Draw renders the drawer's dirty members, or all of them when dirty
// tracking is off or a full redraw is pending. Members whose image has not
// arrived are skipped and stay dirty.
func (d *Drawer) Draw() (Stats, error) {
	switch d.state {
	case Uninitialized:
		return Stats{}, ErrNotReady
	case Destroyed:
		return Stats{}, ErrDestroyed
	case Drawing:
		return Stats{}, ErrBusy
	}
	d.state = Drawing
	defer func() { d.state = Ready }()

	dirty := d.store.Dirty()
	stats := Stats{Full: !d.opts.OnlyDrawChanges || d.fullRedrawPending}
	if stats.Full {
		d.surf.Clear()
		d.fullRedrawPending = false
	}

	sheet := d.opts.FrameType == config.FrameSheet
	for _, m := range d.members {
		if !stats.Full && !dirty.IsDirty(m.Index) {
			continue
		}
		a := d.store.Actor(m.Index)
		dr := d.cellRect(m.Cell)
		if !stats.Full {
			d.surf.ClearRect(dr)
		}

		key := a.ImageKey(sheet)
		img, ok := d.images[key]
		if !ok {
			dirty.Mark(m.Index)
			stats.Skipped++
			continue
		}
		sr := img.Bounds()
		if key.Kind == sprite.KindSheet {
			sr = d.set.SheetRect(a.Frame).Add(sr.Min)
		}
		d.surf.DrawImage(img, sr, dr)
		dirty.Clear(m.Index)
		stats.Drawn++
	}
	return stats, nil
}

// cellRect returns the surface rectangle of a cell. With BakeCamera the
// edges of neighbouring cells are computed from the same formula, so
// rounding never leaves gaps or overlaps between them.
func (d *Drawer) cellRect(cell image.Point) image.Rectangle {
	cw, ch := d.set.CellWidth, d.set.CellHeight
	if !d.opts.BakeCamera {
		x, y := cell.X*cw, cell.Y*ch
		return image.Rect(x, y, x+cw, y+ch)
	}
	edge := func(n, size int, offset float64) int {
		return int(math.Floor(float64(n*size)*d.camera.Scale + offset*d.camera.Scale))
	}
	return image.Rect(
		edge(cell.X, cw, d.camera.OffsetX),
		edge(cell.Y, ch, d.camera.OffsetY),
		edge(cell.X+1, cw, d.camera.OffsetX),
		edge(cell.Y+1, ch, d.camera.OffsetY),
	)
}

// Destroy releases the surface. Destroy is safe to call multiple times.
func (d *Drawer) Destroy() {
	if d.state == Destroyed {
		return
	}
	if d.surf != nil {
		d.surf.Release()
		d.surf = nil
	}
	clear(d.images)
	d.state = Destroyed
	d.log.Debug("drawer: destroyed")
}
