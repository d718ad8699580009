package swarm

import (
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/gogpu/swarm/imagecache"
	"github.com/gogpu/swarm/sprite"
)

// Option configures an Engine during creation.
//
// Example:
//
//	// Built-in sprite sets with generated placeholder images
//	e, err := swarm.New(session)
//
//	// Real assets from disk, reproducible randomness
//	e, err := swarm.New(session,
//	    swarm.WithLoaderFactory(swarm.FileLoaders(os.DirFS("assets"))),
//	    swarm.WithRand(rand.New(rand.NewPCG(1, 2))),
//	)
type Option func(*engineOptions)

// LoaderFactory returns the image loader for a sprite set. It is called on
// every rebuild, and once per worker tile.
type LoaderFactory func(set *sprite.Set) imagecache.Loader

type engineOptions struct {
	logger       *slog.Logger
	rng          *rand.Rand
	workers      int
	catalog      *sprite.Catalog
	loaders      LoaderFactory
	tickInterval time.Duration
}

func defaultOptions() engineOptions {
	return engineOptions{
		catalog: sprite.Builtin(),
		loaders: GeneratedLoaders,
	}
}

// WithLogger sets the engine logger. Without it the engine uses Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = l
	}
}

// WithRand sets the random source for actor variations and swap passes.
func WithRand(rng *rand.Rand) Option {
	return func(o *engineOptions) {
		o.rng = rng
	}
}

// WithPool sets the number of goroutines drawing local tiles. Zero or
// negative means GOMAXPROCS.
func WithPool(workers int) Option {
	return func(o *engineOptions) {
		o.workers = workers
	}
}

// WithCatalog sets the sprite set catalog. The default is sprite.Builtin().
func WithCatalog(c *sprite.Catalog) Option {
	return func(o *engineOptions) {
		o.catalog = c
	}
}

// WithLoaderFactory sets how sprite images are loaded. The default
// generates placeholder images.
func WithLoaderFactory(f LoaderFactory) Option {
	return func(o *engineOptions) {
		o.loaders = f
	}
}

// WithTickInterval sets the draw period of push mode workers.
func WithTickInterval(d time.Duration) Option {
	return func(o *engineOptions) {
		o.tickInterval = d
	}
}

// GeneratedLoaders is the default LoaderFactory.
func GeneratedLoaders(set *sprite.Set) imagecache.Loader {
	return imagecache.GeneratedLoader{Set: set}
}

// FileLoaders returns a LoaderFactory decoding sprite images from fsys,
// one file per image key as named by the set's asset paths.
func FileLoaders(fsys fs.FS) LoaderFactory {
	return func(set *sprite.Set) imagecache.Loader {
		return imagecache.FileLoader{FS: fsys, Set: set}
	}
}
