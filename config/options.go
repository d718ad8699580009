// Package config holds the engine options, the camera, and the session state
// that every component reads them from.
//
// Options are plain values. They can be built in code starting from
// Default, or loaded from a TOML file with Load:
//
//	opts, err := config.Load("swarm.toml")
//	if err != nil {
//	    return err
//	}
//	sess := config.NewSession(opts)
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Renderer selects the rendering family. Only raster rendering is
// implemented by this module.
type Renderer string

// Supported renderers.
const (
	RendererCanvas Renderer = "canvas"
)

// OffsetStrategy selects how the camera is applied to the drawn tiles.
type OffsetStrategy string

// Offset strategies.
const (
	// OffsetDirect draws into one viewport-sized surface with the camera
	// baked into every sprite position.
	OffsetDirect OffsetStrategy = "direct"

	// OffsetTransform lays max-sized tiles edge to edge in a container and
	// applies the camera as one transform on the container.
	OffsetTransform OffsetStrategy = "transform"

	// OffsetBuffered composites off-screen tiles onto one display surface
	// every frame.
	OffsetBuffered OffsetStrategy = "buffered"
)

// FrameType selects how animation frames are stored.
type FrameType string

// Frame representations.
const (
	FrameIndividual FrameType = "frames"
	FrameSheet      FrameType = "sheet"
)

// WorkerMode selects how an offloaded tile is driven.
type WorkerMode string

// Worker modes. They are mutually exclusive per session.
const (
	// WorkerPull draws once per RequestDraw sent by the main loop.
	WorkerPull WorkerMode = "pull"

	// WorkerPush draws autonomously on the worker's own ticker.
	WorkerPush WorkerMode = "push"
)

// DefaultMaxSurfaceEdge is used when no edge has been measured or configured.
const DefaultMaxSurfaceEdge = 4096

// Options is the configuration surface the engine consumes.
type Options struct {
	Renderer                Renderer      `toml:"renderer"`
	Count                   int           `toml:"count"`
	SpriteSet               string        `toml:"sprite_set"`
	IsAnimatedByDefault     bool          `toml:"is_animated_by_default"`
	VariationChangesPerTick int           `toml:"variation_changes_per_tick"`
	AnimationChangesPerTick int           `toml:"animation_changes_per_tick"`
	Canvas                  CanvasOptions `toml:"canvas"`
}

// CanvasOptions are the raster-strategy specific fields.
type CanvasOptions struct {
	OffsetStrategy  OffsetStrategy `toml:"offset_strategy"`
	OnlyDrawChanges bool           `toml:"only_draw_changes"`
	FrameType       FrameType      `toml:"frame_type"`
	UseWorker       bool           `toml:"use_worker"`
	WorkerMode      WorkerMode     `toml:"worker_mode"`
	MaxSurfaceEdge  int            `toml:"max_surface_edge"`
}

// Default returns the default options: 1000 still frogs drawn directly.
func Default() Options {
	return Options{
		Renderer:  RendererCanvas,
		Count:     1000,
		SpriteSet: "frog",
		Canvas: CanvasOptions{
			OffsetStrategy: OffsetDirect,
			FrameType:      FrameIndividual,
			WorkerMode:     WorkerPull,
			MaxSurfaceEdge: DefaultMaxSurfaceEdge,
		},
	}
}

// Validate reports the first field that can never render.
func (o Options) Validate() error {
	switch o.Renderer {
	case RendererCanvas:
	default:
		return Errorf("renderer", "unknown renderer %q", o.Renderer)
	}
	if o.Count < 0 {
		return Errorf("count", "must be >= 0, got %d", o.Count)
	}
	if o.SpriteSet == "" {
		return Errorf("sprite_set", "must not be empty")
	}
	if o.VariationChangesPerTick < 0 {
		return Errorf("variation_changes_per_tick", "must be >= 0, got %d", o.VariationChangesPerTick)
	}
	if o.AnimationChangesPerTick < 0 {
		return Errorf("animation_changes_per_tick", "must be >= 0, got %d", o.AnimationChangesPerTick)
	}
	return o.Canvas.validate()
}

func (c CanvasOptions) validate() error {
	switch c.OffsetStrategy {
	case OffsetDirect, OffsetTransform, OffsetBuffered:
	default:
		return Errorf("canvas.offset_strategy", "unknown strategy %q", c.OffsetStrategy)
	}
	switch c.FrameType {
	case FrameIndividual, FrameSheet:
	default:
		return Errorf("canvas.frame_type", "unknown frame type %q", c.FrameType)
	}
	if c.UseWorker {
		switch c.WorkerMode {
		case WorkerPull, WorkerPush:
		default:
			return Errorf("canvas.worker_mode", "unknown worker mode %q", c.WorkerMode)
		}
	}
	if c.MaxSurfaceEdge <= 0 {
		return Errorf("canvas.max_surface_edge", "must be > 0, got %d", c.MaxSurfaceEdge)
	}
	return nil
}

// RequiresRebuild reports whether moving from old to cur needs a full
// teardown. Only the per-tick change rates can be applied in place.
func RequiresRebuild(old, cur Options) bool {
	old.VariationChangesPerTick, cur.VariationChangesPerTick = 0, 0
	old.AnimationChangesPerTick, cur.AnimationChangesPerTick = 0, 0
	return old != cur
}

// Load reads options from a TOML file. Fields missing from the file keep
// their Default values.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(string(data))
}

// Parse decodes TOML text on top of Default and validates the result.
func Parse(text string) (Options, error) {
	opts := Default()
	if _, err := toml.Decode(text, &opts); err != nil {
		return Options{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}
