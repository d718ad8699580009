// Package swarm renders large crowds of animated sprites into tiled raster
// surfaces.
//
// # Overview
//
// An Engine lays N actors out on a near-square grid, animates them on a
// shared clock and draws them into one or more pixel surfaces. Only actors
// whose appearance changed are redrawn. Large grids are split into tiles
// no larger than the maximum surface edge, and tiles can be handed to
// worker goroutines that draw on their own.
//
// # Quick Start
//
//	import "github.com/gogpu/swarm"
//
//	sess := config.NewSession(config.Default())
//	sess.SetDisplaySize(1280, 720)
//
//	e, err := swarm.New(sess)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Destroy()
//
//	for now := range time.Tick(16 * time.Millisecond) {
//	    if _, err := e.Tick(now); err != nil {
//	        log.Fatal(err)
//	    }
//	    e.Present(screen)
//	}
//
// # Strategies
//
// How the camera reaches the screen is chosen by
// config.CanvasOptions.OffsetStrategy:
//   - direct: one viewport sized surface, camera baked into every draw
//   - transform: tiles laid edge to edge in a container moved by one
//     transform, so pans and zooms redraw nothing
//   - buffered: tiles drawn off screen and stretched onto one display
//     surface whenever something changed
//
// # Session Changes
//
// The engine subscribes to its config.Session. Changes are queued and
// applied at the start of the next Tick: per-tick rates in place, camera
// and display size through the strategy, anything else through a full
// rebuild. A rebuild caused by a count change alone keeps the surviving
// actors' state.
//
// # Packages
//
//   - config: options, camera and session
//   - sprite: sprite set descriptors and the catalog
//   - grid: grid layout and tile partitioning
//   - actor: actor store, animation clock and swap passes
//   - imagecache: asynchronous image loading
//   - surface: pixel surfaces
//   - drawer: per-tile dirty tracked drawing
//   - worker: tile offload to a worker goroutine
//   - composite: the three offset strategies
package swarm

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
