// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package worker

import (
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/swarm/actor"
	"github.com/gogpu/swarm/config"
	"github.com/gogpu/swarm/drawer"
)

// Proxy is the main side of a worker channel.
//
// Proxy is NOT safe for concurrent use; it belongs to the driver goroutine.
// Replies from the worker are queued and only processed by Poll.
type Proxy struct {
	log    *slog.Logger
	inbox  *mailbox
	outbox *mailbox

	stop     chan struct{}
	stopOnce sync.Once
	exited   chan struct{}

	setupSent bool
	mode      config.WorkerMode

	// toLocal maps global actor indices to worker local ones.
	toLocal map[int]int

	// readyToDrawAgain is cleared when a RequestDraw is posted and set
	// again by the matching DidDraw. deferred records a request made in
	// between; it is sent when the reply arrives.
	readyToDrawAgain bool
	deferred         bool
	requests         int

	bitmap *image.RGBA
	stats  drawer.Stats
}

// Spawn starts a worker goroutine and returns its proxy.
func Spawn(cfg Config) *Proxy {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	p := &Proxy{
		log:    log,
		inbox:  newMailbox(),
		outbox: newMailbox(),
		stop:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	w := &worker{
		log:    log,
		loader: cfg.Loader,
		now:    now,
		inbox:  p.inbox,
		outbox: p.outbox,
	}
	go func() {
		defer close(p.exited)
		w.loop(p.stop)
	}()
	return p
}

// Setup sends the Setup message, transferring payload.Surface to the
// worker: the caller's handle is detached and must not be used again. owned
// lists the global index of each actor in payload.Actors and routes later
// partial updates; nil means the identity mapping. Setup may be sent once.
func (p *Proxy) Setup(payload SetupPayload, owned []int) error {
	if p.setupSent {
		return ErrAlreadySetup
	}
	if p.Unreachable() {
		return ErrUnreachable
	}
	if owned != nil && len(owned) != len(payload.Actors) {
		return fmt.Errorf("worker: %d owned indices for %d actors", len(owned), len(payload.Actors))
	}
	if payload.Surface == nil || payload.Set == nil {
		return fmt.Errorf("worker: setup needs a surface and a sprite set")
	}
	moved, err := payload.Surface.Transfer()
	if err != nil {
		return fmt.Errorf("worker: setup: %w", err)
	}
	payload.Surface = moved
	payload.Set = payload.Set.Clone()
	payload.Actors = append([]actor.Actor(nil), payload.Actors...)
	payload.Cells = append([]image.Point(nil), payload.Cells...)
	if payload.Camera != nil {
		cam := *payload.Camera
		payload.Camera = &cam
	}

	p.toLocal = make(map[int]int, len(payload.Actors))
	for k := range payload.Actors {
		g := k
		if owned != nil {
			g = owned[k]
		}
		p.toLocal[g] = k
	}

	if err := p.inbox.post(Message{Type: TypeSetup, Setup: &payload}); err != nil {
		moved.Release()
		return err
	}
	p.setupSent = true
	p.mode = payload.Mode
	p.readyToDrawAgain = true
	return nil
}

// UpdateCamera forwards the camera.
func (p *Proxy) UpdateCamera(cam config.Camera) error {
	return p.postAfterSetup(Message{Type: TypeUpdateCamera, Camera: cam})
}

// UpdateDisplaySize forwards a new surface size.
func (p *Proxy) UpdateDisplaySize(width, height int) error {
	return p.postAfterSetup(Message{Type: TypeUpdateDisplaySize, Size: image.Pt(width, height)})
}

// UpdatePartialActors forwards patches keyed by global actor index. Patches
// for actors this worker does not own are dropped. Nothing is sent when no
// patch applies.
func (p *Proxy) UpdatePartialActors(patches map[int]actor.Patch) error {
	if !p.setupSent {
		return ErrNotSetup
	}
	local := make(map[int]actor.Patch)
	for g, patch := range patches {
		if k, ok := p.toLocal[g]; ok {
			local[k] = patch
		}
	}
	if len(local) == 0 {
		return nil
	}
	return p.postAfterSetup(Message{Type: TypeUpdatePartialActors, Patches: local})
}

// RequestDraw asks the worker to draw once. While an earlier request is
// unanswered the new one is deferred; any number of deferred requests
// collapse into one, sent when the reply arrives.
func (p *Proxy) RequestDraw() error {
	if !p.setupSent {
		return ErrNotSetup
	}
	if p.mode == config.WorkerPush {
		return ErrPushMode
	}
	if !p.readyToDrawAgain {
		p.deferred = true
		return nil
	}
	return p.sendDrawRequest()
}

func (p *Proxy) sendDrawRequest() error {
	if err := p.postAfterSetup(Message{Type: TypeRequestDraw}); err != nil {
		return err
	}
	p.readyToDrawAgain = false
	p.requests++
	return nil
}

// Poll processes every reply the worker has posted and reports whether a
// new bitmap arrived. A deferred draw request is sent once its predecessor
// is answered.
func (p *Proxy) Poll() (updated bool) {
	for _, msg := range p.outbox.drain() {
		switch msg.Type {
		case TypeDidDraw:
			p.stats = msg.Stats
			if msg.Bitmap != nil {
				p.bitmap = msg.Bitmap
				updated = true
			}
			p.readyToDrawAgain = true
		case TypeSetup, TypeUpdateCamera, TypeUpdateDisplaySize, TypeUpdatePartialActors, TypeRequestDraw:
			p.log.Warn("worker: rejected reply", "type", msg.Type, "reason", "main to worker only")
		default:
			p.log.Warn("worker: rejected reply", "type", msg.Type)
		}
	}
	if p.readyToDrawAgain && p.deferred && p.mode == config.WorkerPull {
		p.deferred = false
		if err := p.sendDrawRequest(); err != nil {
			p.log.Debug("worker: deferred draw dropped", "err", err)
		}
	}
	return updated
}

// Bitmap returns the most recently relayed bitmap, or nil.
func (p *Proxy) Bitmap() *image.RGBA {
	return p.bitmap
}

// LastStats returns the stats of the most recent DidDraw.
func (p *Proxy) LastStats() drawer.Stats {
	return p.stats
}

// ReadyToDrawAgain reports whether a RequestDraw would be sent right away.
func (p *Proxy) ReadyToDrawAgain() bool {
	return p.readyToDrawAgain
}

// Requests returns how many RequestDraw messages were actually posted.
func (p *Proxy) Requests() int {
	return p.requests
}

// Unreachable reports whether the worker has stopped.
func (p *Proxy) Unreachable() bool {
	select {
	case <-p.exited:
		return true
	default:
		return p.inbox.isClosed()
	}
}

// Terminate stops the worker immediately. Queued messages are discarded
// and later sends fail with ErrUnreachable. Terminate is safe to call
// multiple times.
func (p *Proxy) Terminate() {
	p.stopOnce.Do(func() {
		p.inbox.close()
		close(p.stop)
	})
}

// Done is closed once the worker goroutine has exited.
func (p *Proxy) Done() <-chan struct{} {
	return p.exited
}

func (p *Proxy) postAfterSetup(msg Message) error {
	if !p.setupSent {
		return ErrNotSetup
	}
	return p.inbox.post(msg)
}
