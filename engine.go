package swarm

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gogpu/swarm/actor"
	"github.com/gogpu/swarm/composite"
	"github.com/gogpu/swarm/config"
	"github.com/gogpu/swarm/imagecache"
	"github.com/gogpu/swarm/internal/parallel"
	"github.com/gogpu/swarm/sprite"
	"github.com/gogpu/swarm/surface"
)

// ErrDestroyed is returned by Tick after Destroy.
var ErrDestroyed = errors.New("swarm: engine destroyed")

// TickStats describes one Tick.
type TickStats struct {
	// Images counts images delivered to tiles before drawing.
	Images int

	// Advanced counts actors whose frame moved.
	Advanced int

	// VariationSwaps and AnimationSwaps count patched actors.
	VariationSwaps int
	AnimationSwaps int

	// Rebuilt is set when pending option changes rebuilt the engine.
	Rebuilt bool

	composite.Stats
}

// Engine drives one session: it owns the actors, the animation clock, the
// image cache and the composite strategy, and reacts to session changes.
//
// Session changes may arrive on any goroutine. They are queued and applied
// at the start of the next Tick, so a recount always happens before the
// tiles are partitioned and drawn. Every other method belongs to the
// driver goroutine.
type Engine struct {
	id      uuid.UUID
	session *config.Session
	cfg     engineOptions
	log     *slog.Logger
	rng     *rand.Rand
	pool    *parallel.Pool

	mu      sync.Mutex
	pending []config.Change

	unsubscribe func()

	opts     config.Options
	display  image.Point
	camera   config.Camera
	set      *sprite.Set
	store    *actor.Store
	clock    actor.Clock
	swapper  *actor.Swapper
	cache    *imagecache.Cache
	strategy composite.Strategy

	last      time.Time
	rebuilds  int
	destroyed bool
}

// New builds an engine for session. Configuration errors are returned
// here; the engine never falls back to another strategy.
func New(session *config.Session, opts ...Option) (*Engine, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Engine{
		id:      uuid.New(),
		session: session,
		cfg:     cfg,
		store:   actor.NewStore(),
	}
	log := cfg.logger
	if log == nil {
		log = Logger()
	}
	e.log = log.With("session", e.id.String())
	e.rng = cfg.rng
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	e.swapper = actor.NewSwapper(e.rng)
	e.pool = parallel.NewPool(cfg.workers)

	e.opts = session.Options()
	e.camera = session.Camera()
	if !e.camera.Valid() {
		e.log.Warn("swarm: camera rejected", "scale", e.camera.Scale)
		e.camera = config.DefaultCamera
	}
	e.display = session.DisplaySize()
	if err := e.rebuild(false); err != nil {
		e.pool.Close()
		return nil, err
	}
	e.unsubscribe = session.Subscribe(e.enqueue)
	return e, nil
}

// ID returns the engine's session id, also attached to every log record.
func (e *Engine) ID() uuid.UUID {
	return e.id
}

// Store returns the main actor store.
func (e *Engine) Store() *actor.Store {
	return e.store
}

// Strategy returns the active composite strategy.
func (e *Engine) Strategy() composite.Strategy {
	return e.strategy
}

// Options returns the options the engine was last built or updated with.
func (e *Engine) Options() config.Options {
	return e.opts
}

// Rebuilds returns how many times the engine tore down and rebuilt its
// tiles, the initial build included.
func (e *Engine) Rebuilds() int {
	return e.rebuilds
}

func (e *Engine) enqueue(c config.Change) {
	e.mu.Lock()
	e.pending = append(e.pending, c)
	e.mu.Unlock()
}

// Preload blocks until every image of the current sprite set has loaded or
// ctx is done. It is optional: without it sprites appear as their images
// arrive.
func (e *Engine) Preload(ctx context.Context) error {
	if e.destroyed {
		return ErrDestroyed
	}
	if e.cache == nil {
		return composite.ErrNotSetup
	}
	return e.cache.Preload(ctx, e.set.Keys(e.opts.Canvas.FrameType))
}

// Tick runs one frame at wall-clock time now: apply session changes,
// deliver loaded images, advance animation, run the swap passes, draw.
func (e *Engine) Tick(now time.Time) (TickStats, error) {
	if e.destroyed {
		return TickStats{}, ErrDestroyed
	}
	var st TickStats

	rebuilt, err := e.applyPending()
	st.Rebuilt = rebuilt
	if err != nil {
		return st, err
	}
	if e.strategy == nil {
		return st, composite.ErrNotSetup
	}

	st.Images = e.cache.Poll()

	var delta float64
	if !e.last.IsZero() {
		delta = float64(now.Sub(e.last)) / float64(time.Millisecond)
	}
	e.last = now
	st.Advanced = e.clock.Advance(e.store, max(delta, 0))

	// The swapper has already patched the main store; workers get both
	// passes as one merged update.
	variations := e.swapper.Variations(e.store, e.set, e.opts.VariationChangesPerTick)
	animations := e.swapper.Animations(e.store, e.opts.AnimationChangesPerTick)
	st.VariationSwaps, st.AnimationSwaps = len(variations), len(animations)
	if patches := mergePatches(variations, animations); len(patches) > 0 {
		e.strategy.UpdatePartialActors(patches)
	}

	st.Stats, err = e.strategy.Draw()
	if err != nil {
		return st, fmt.Errorf("swarm: draw: %w", err)
	}
	e.log.Debug("swarm: tick", "drawn", st.Drawn, "skipped", st.Skipped, "advanced", st.Advanced)
	return st, nil
}

// mergePatches combines per-index patches; fields in b win.
func mergePatches(a, b map[int]actor.Patch) map[int]actor.Patch {
	if len(a) == 0 {
		return b
	}
	for i, p := range b {
		if q, ok := a[i]; ok {
			p = q.Merge(p)
		}
		a[i] = p
	}
	return a
}

// applyPending applies every queued session change in order. A failed
// rebuild does not stop the batch: later changes still apply, and a later
// successful rebuild clears the error. Without tiles, camera and display
// changes are only recorded for the next rebuild.
func (e *Engine) applyPending() (rebuilt bool, err error) {
	e.mu.Lock()
	changes := e.pending
	e.pending = nil
	e.mu.Unlock()

	for _, c := range changes {
		switch c.Kind {
		case config.OptionsChanged:
			old := e.opts
			e.opts = c.NewOptions
			if e.strategy != nil && !config.RequiresRebuild(old, c.NewOptions) {
				continue
			}
			if err = e.rebuild(onlyCountChanged(old, c.NewOptions)); err != nil {
				e.log.Warn("swarm: rebuild failed", "err", err)
				continue
			}
			rebuilt = true
		case config.CameraChanged:
			if !c.NewCamera.Valid() {
				e.log.Warn("swarm: camera rejected", "scale", c.NewCamera.Scale)
				continue
			}
			e.camera = c.NewCamera
			if e.strategy != nil {
				e.strategy.UpdateCamera(c.NewCamera)
			}
		case config.DisplayResized:
			e.display = c.NewSize
			if e.strategy != nil {
				e.strategy.Resize(c.NewSize.X, c.NewSize.Y)
			}
		default:
			e.log.Warn("swarm: unknown session change", "kind", c.Kind)
		}
	}
	return rebuilt, err
}

// onlyCountChanged reports whether old and cur differ in the actor count
// alone, ignoring the per-tick rates.
func onlyCountChanged(old, cur config.Options) bool {
	old.Count = cur.Count
	return !config.RequiresRebuild(old, cur)
}

// rebuild tears the tiles down and builds them from the current options.
// With keepActors the existing actors survive a recount: the first
// min(old, new) keep their identity and every actor is laid out again.
func (e *Engine) rebuild(keepActors bool) error {
	if err := e.opts.Validate(); err != nil {
		return err
	}
	set, err := e.cfg.catalog.Lookup(e.opts.SpriteSet)
	if err != nil {
		return config.Errorf("sprite_set", "%v", err)
	}
	strategy, err := composite.New(e.opts.Canvas.OffsetStrategy)
	if err != nil {
		return err
	}

	e.teardown()

	if keepActors && e.set == set {
		e.store.SetCount(e.opts.Count, e.rng)
	} else {
		e.store = actor.NewStore()
		e.store.Reset(e.opts.Count, set, e.opts.IsAnimatedByDefault, e.rng)
	}
	e.set = set
	e.clock = actor.NewClock(set)
	e.cache = imagecache.New(e.cfg.loaders(set), imagecache.Options{Logger: e.log})

	err = strategy.Setup(composite.Env{
		Store:        e.store,
		Set:          set,
		Canvas:       e.opts.Canvas,
		Display:      e.display,
		Camera:       e.camera,
		Pool:         e.pool,
		Loader:       e.cfg.loaders(set),
		TickInterval: e.cfg.tickInterval,
		Logger:       e.log,
	})
	if err != nil {
		e.cache.Close()
		e.cache = nil
		return err
	}
	e.strategy = strategy
	e.cache.Subscribe(strategy.SetImage)
	e.cache.RequestAll(set.Keys(e.opts.Canvas.FrameType))

	e.rebuilds++
	e.log.Info("swarm: built",
		"strategy", e.opts.Canvas.OffsetStrategy,
		"actors", e.store.Len(),
		"sprite_set", set.ID,
		"worker", e.opts.Canvas.UseWorker,
		"rebuilds", e.rebuilds)
	return nil
}

func (e *Engine) teardown() {
	if e.strategy != nil {
		e.strategy.Destroy()
		e.strategy = nil
	}
	if e.cache != nil {
		e.cache.Close()
		e.cache = nil
	}
}

// Present renders the current frame onto dst.
func (e *Engine) Present(dst *surface.Surface) {
	if e.destroyed || e.strategy == nil {
		dst.Clear()
		return
	}
	e.strategy.Present(dst)
}

// Destroy stops reacting to the session, terminates workers and releases
// every surface. Destroy is safe to call multiple times.
func (e *Engine) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.teardown()
	e.pool.Close()
	e.log.Info("swarm: destroyed")
}
