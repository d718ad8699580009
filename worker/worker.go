// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package worker moves one tile drawer onto its own goroutine.
//
// The worker owns its actor subset, its image cache and its drawer. It
// shares no mutable memory with the main side: the two talk only through
// Messages posted to unbounded mailboxes. The surface handed over in Setup
// is transferred, so the main side can no longer draw on it.
//
// A Proxy is the main side's handle on a worker:
//
//	p := worker.Spawn(worker.Config{Loader: loader})
//	err := p.Setup(payload)
//
//	// every tick:
//	p.Poll()
//	p.RequestDraw()
//
//	p.Terminate()
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/swarm/actor"
	"github.com/gogpu/swarm/config"
	"github.com/gogpu/swarm/drawer"
	"github.com/gogpu/swarm/imagecache"
)

// Errors reported by the worker protocol.
var (
	// ErrUnreachable means the worker was terminated or crashed. It is the
	// WorkerUnreachable condition: callers blank the tile and carry on.
	ErrUnreachable = errors.New("worker: unreachable")

	// ErrAlreadySetup is returned by a second Setup.
	ErrAlreadySetup = errors.New("worker: setup already sent")

	// ErrNotSetup is returned by operations that need a prior Setup.
	ErrNotSetup = errors.New("worker: setup not sent")

	// ErrPushMode is returned by RequestDraw on a worker that draws on its
	// own ticker.
	ErrPushMode = errors.New("worker: draw requests are not accepted in push mode")
)

// DefaultTickInterval is the push mode draw period when Setup leaves it
// zero.
const DefaultTickInterval = 16 * time.Millisecond

// Config configures a spawned worker.
type Config struct {
	// Loader loads the worker's images into its own cache.
	Loader imagecache.Loader

	// Logger defaults to a discarding logger.
	Logger *slog.Logger

	// Now returns the current time; it drives the worker's animation
	// clock. Defaults to time.Now.
	Now func() time.Time
}

// worker is the state owned by the worker goroutine.
type worker struct {
	log    *slog.Logger
	loader imagecache.Loader
	now    func() time.Time

	inbox  *mailbox
	outbox *mailbox

	setup  bool
	mode   config.WorkerMode
	relay  bool
	store  *actor.Store
	clock  actor.Clock
	cache  *imagecache.Cache
	drawer *drawer.Drawer
	ticker *time.Ticker
	last   time.Time

	// failed is set when the first Setup cannot be applied. The worker then
	// stops, and the main side sees it as unreachable.
	failed bool
}

// loop runs until done is closed or a handler panics.
func (w *worker) loop(done <-chan struct{}) {
	defer w.shutdown()
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("worker: crashed", "panic", r)
		}
	}()

	for {
		var tick <-chan time.Time
		if w.ticker != nil {
			tick = w.ticker.C
		}
		select {
		case <-done:
			return
		case <-w.inbox.signal:
			for _, msg := range w.inbox.drain() {
				w.handle(msg)
			}
			if w.failed {
				return
			}
		case <-tick:
			w.draw()
		}
	}
}

func (w *worker) shutdown() {
	w.inbox.close()
	if w.ticker != nil {
		w.ticker.Stop()
	}
	if w.cache != nil {
		w.cache.Close()
	}
	if w.drawer != nil {
		w.drawer.Destroy()
	}
}

func (w *worker) handle(msg Message) {
	switch msg.Type {
	case TypeSetup:
		if err := w.handleSetup(msg.Setup); err != nil {
			w.log.Warn("worker: setup rejected", "err", err)
			if !w.setup {
				w.failed = true
			}
		}
	case TypeUpdateCamera:
		if w.ready(msg.Type) {
			w.drawer.UpdateCamera(msg.Camera)
		}
	case TypeUpdateDisplaySize:
		if w.ready(msg.Type) {
			w.drawer.Resize(msg.Size.X, msg.Size.Y)
		}
	case TypeUpdatePartialActors:
		if w.ready(msg.Type) {
			w.store.ApplyPatches(msg.Patches)
		}
	case TypeRequestDraw:
		if !w.ready(msg.Type) {
			return
		}
		if w.mode == config.WorkerPush {
			w.log.Warn("worker: draw request in push mode ignored")
			return
		}
		w.draw()
	case TypeDidDraw:
		w.log.Warn("worker: rejected message", "type", msg.Type, "reason", "worker to main only")
	default:
		w.log.Warn("worker: rejected message", "type", msg.Type)
	}
}

func (w *worker) ready(t Type) bool {
	if !w.setup {
		w.log.Warn("worker: message before setup", "type", t)
		return false
	}
	return true
}

func (w *worker) handleSetup(p *SetupPayload) error {
	switch {
	case w.setup:
		return ErrAlreadySetup
	case p == nil || p.Set == nil:
		return errors.New("worker: setup without payload")
	case len(p.Actors) != len(p.Cells):
		return fmt.Errorf("worker: setup has %d actors but %d cells", len(p.Actors), len(p.Cells))
	}
	if err := p.Set.Validate(); err != nil {
		return err
	}

	w.store = actor.FromActors(p.Actors)
	w.clock = actor.NewClock(p.Set)

	members := make([]drawer.Member, len(p.Cells))
	for k, cell := range p.Cells {
		members[k] = drawer.Member{Index: k, Cell: cell}
	}
	w.drawer = drawer.New(w.store, p.Set, members, drawer.Options{
		OnlyDrawChanges: p.OnlyDrawChanges,
		FrameType:       p.FrameType,
		BakeCamera:      p.BakeCamera,
		Logger:          w.log,
	})
	if p.Camera != nil {
		w.drawer.UpdateCamera(*p.Camera)
	}
	if err := w.drawer.Setup(p.Surface); err != nil {
		return err
	}

	w.cache = imagecache.New(w.loader, imagecache.Options{Logger: w.log})
	w.cache.Subscribe(w.drawer.SetImage)
	w.cache.RequestAll(p.Set.Keys(p.FrameType))

	w.mode = p.Mode
	w.relay = p.Relay
	w.last = w.now()
	w.setup = true
	if w.mode == config.WorkerPush {
		interval := p.TickInterval
		if interval <= 0 {
			interval = DefaultTickInterval
		}
		w.ticker = time.NewTicker(interval)
	}
	w.log.Info("worker: setup", "actors", len(p.Actors), "mode", w.mode, "size", p.Surface.Size())
	return nil
}

// draw runs one worker tick: deliver loaded images, advance the animation
// of the worker's actors, draw, and report.
func (w *worker) draw() {
	now := w.now()
	delta := float64(now.Sub(w.last)) / float64(time.Millisecond)
	w.last = now

	w.cache.Poll()
	w.clock.Advance(w.store, max(delta, 0))
	stats, err := w.drawer.Draw()
	if err != nil {
		w.log.Warn("worker: draw failed", "err", err)
	}

	// Pull mode always acknowledges: the main side holds its next request
	// until this reply arrives. Push mode only reports frames with new
	// pixels.
	changed := err == nil && (stats.Full || stats.Drawn > 0)
	if w.mode == config.WorkerPush && (!w.relay || !changed) {
		return
	}
	reply := Message{Type: TypeDidDraw, Stats: stats}
	if w.relay && changed {
		reply.Bitmap = w.drawer.Surface().Snapshot()
	}
	if err := w.outbox.post(reply); err != nil {
		w.log.Debug("worker: reply dropped", "err", err)
	}
}
