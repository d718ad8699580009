// Package imagecache loads sprite images asynchronously and hands them to
// drawers on the driver goroutine.
//
// Loads run on their own goroutines. Their results are queued and only
// delivered to subscribers when the owner calls Poll, so subscribers (tile
// drawers) are never mutated concurrently with a draw:
//
//	c := imagecache.New(loader, imagecache.Options{})
//	c.Subscribe(drawer.SetImage)
//	c.RequestAll(set.Keys(frameType))
//
//	// every tick, before drawing:
//	c.Poll()
package imagecache

import (
	"context"
	"errors"
	"hash/fnv"
	"image"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/swarm/sprite"
)

var (
	// ErrClosed fails requests made after Close.
	ErrClosed = errors.New("imagecache: cache closed")

	// ErrNoImage is reported when a loader returns neither an image nor an
	// error.
	ErrNoImage = errors.New("imagecache: loader returned no image")
)

// shardCount must be a power of two.
const (
	shardCount = 16
	shardMask  = shardCount - 1
)

// Loader produces the image for a key. Load may block; the cache always
// calls it from a dedicated goroutine.
type Loader interface {
	Load(ctx context.Context, key sprite.ImageKey) (image.Image, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, key sprite.ImageKey) (image.Image, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, key sprite.ImageKey) (image.Image, error) {
	return f(ctx, key)
}

// Options configures a Cache.
type Options struct {
	// Logger receives load failures at Warn and completions at Debug.
	// Nil disables logging.
	Logger *slog.Logger
}

// Completion is one finished load waiting for Poll.
type Completion struct {
	Key   sprite.ImageKey
	Image image.Image
	Err   error
}

// Cache maps image keys to futures. It is safe for concurrent use.
type Cache struct {
	loader Loader
	log    *slog.Logger

	shards [shardCount]*shard

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	qmu   sync.Mutex
	queue []queued

	smu  sync.Mutex
	subs []func(sprite.ImageKey, image.Image)

	hits   atomic.Uint64
	misses atomic.Uint64
	closed atomic.Bool
}

// queued is a completion waiting for Poll. Replays target a single
// subscriber through only.
type queued struct {
	Completion
	future *Future
	only   func(sprite.ImageKey, image.Image)
}

type shard struct {
	mu      sync.RWMutex
	entries map[sprite.ImageKey]*Future
}

// New creates an empty cache backed by loader.
func New(loader Loader, opts Options) *Cache {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		loader: loader,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[sprite.ImageKey]*Future)}
	}
	return c
}

func (c *Cache) shardFor(key sprite.ImageKey) *shard {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key.Variation)) // fnv.Write never returns an error
	_, _ = h.Write([]byte{byte(key.Kind), byte(key.Frame), byte(key.Frame >> 8)})
	return c.shards[h.Sum64()&shardMask]
}

// Subscribe registers fn to receive every completed image during Poll.
// Images already delivered by an earlier Poll are replayed to fn on the
// next Poll. Subscribe and Poll belong to the owning goroutine.
func (c *Cache) Subscribe(fn func(sprite.ImageKey, image.Image)) {
	c.smu.Lock()
	c.subs = append(c.subs, fn)
	c.smu.Unlock()

	for _, s := range c.shards {
		s.mu.RLock()
		for key, f := range s.entries {
			if img, ok := f.Get(); ok && f.wasDelivered() {
				c.enqueueReplay(fn, key, img)
			}
		}
		s.mu.RUnlock()
	}
}

func (c *Cache) enqueueReplay(fn func(sprite.ImageKey, image.Image), key sprite.ImageKey, img image.Image) {
	c.qmu.Lock()
	c.queue = append(c.queue, queued{Completion: Completion{Key: key, Image: img}, only: fn})
	c.qmu.Unlock()
}

// Request returns the future for key, starting a load on first request.
func (c *Cache) Request(key sprite.ImageKey) *Future {
	s := c.shardFor(key)

	s.mu.RLock()
	f, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return f
	}

	s.mu.Lock()
	if f, ok = s.entries[key]; ok {
		s.mu.Unlock()
		c.hits.Add(1)
		return f
	}
	f = newFuture()
	s.entries[key] = f
	s.mu.Unlock()
	c.misses.Add(1)

	if c.closed.Load() {
		f.resolve(nil, ErrClosed)
		return f
	}
	c.wg.Add(1)
	go c.load(key, f)
	return f
}

// RequestAll requests every key.
func (c *Cache) RequestAll(keys []sprite.ImageKey) {
	for _, k := range keys {
		c.Request(k)
	}
}

// Get returns the image for key if it has loaded. It never starts a load.
func (c *Cache) Get(key sprite.ImageKey) (image.Image, bool) {
	s := c.shardFor(key)
	s.mu.RLock()
	f, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return f.Get()
}

// Put stores an already decoded image, replacing a pending or failed entry.
// Subscribers see it on the next Poll.
func (c *Cache) Put(key sprite.ImageKey, img image.Image) {
	s := c.shardFor(key)
	s.mu.Lock()
	f, ok := s.entries[key]
	if !ok || f.State() != Pending {
		f = newFuture()
		s.entries[key] = f
	}
	s.mu.Unlock()
	c.complete(f, Completion{Key: key, Image: img})
}

func (c *Cache) load(key sprite.ImageKey, f *Future) {
	defer c.wg.Done()
	img, err := c.loader.Load(c.ctx, key)
	if err == nil && img == nil {
		err = ErrNoImage
	}
	if !c.complete(f, Completion{Key: key, Image: img, Err: err}) {
		return
	}
	if err != nil {
		c.log.Warn("imagecache: load failed", "key", key.String(), "err", err)
	} else {
		c.log.Debug("imagecache: loaded", "key", key.String())
	}
}

// complete resolves f and queues the completion. Both happen under the
// queue lock, so a Poll that follows a wait on f.Done always sees it.
func (c *Cache) complete(f *Future, done Completion) bool {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	if !f.resolve(done.Image, done.Err) {
		return false
	}
	c.queue = append(c.queue, queued{Completion: done, future: f})
	return true
}

// Poll delivers queued completions to subscribers on the calling goroutine
// and returns how many images were delivered. Failed loads are not
// delivered; their actors simply stay undrawn.
func (c *Cache) Poll() int {
	c.qmu.Lock()
	pending := c.queue
	c.queue = nil
	c.qmu.Unlock()
	if len(pending) == 0 {
		return 0
	}

	c.smu.Lock()
	subs := slices.Clone(c.subs)
	c.smu.Unlock()

	delivered := 0
	for _, done := range pending {
		if done.only != nil {
			done.only(done.Key, done.Image)
			delivered++
			continue
		}
		if done.Err != nil {
			continue
		}
		done.future.markDelivered()
		for _, fn := range subs {
			fn(done.Key, done.Image)
		}
		delivered++
	}
	return delivered
}

// Preload requests every key and waits until all of them have resolved or
// ctx is done. It returns the first load error.
func (c *Cache) Preload(ctx context.Context, keys []sprite.ImageKey) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		f := c.Request(key)
		g.Go(func() error {
			select {
			case <-f.Done():
				return f.Err()
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	return g.Wait()
}

// Stats reports request hits and misses.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of known keys.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Close cancels outstanding loads and waits for their goroutines. Close is
// safe to call multiple times.
func (c *Cache) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.cancel()
	c.wg.Wait()
}
