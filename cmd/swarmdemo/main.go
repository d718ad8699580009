// Command swarmdemo renders a sprite swarm for a number of ticks and saves
// the final frame as a PNG.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"os"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/swarm"
	"github.com/gogpu/swarm/config"
	"github.com/gogpu/swarm/sprite"
	"github.com/gogpu/swarm/surface"
)

func main() {
	var (
		width    = flag.Int("width", 1280, "display width")
		height   = flag.Int("height", 720, "display height")
		ticks    = flag.Int("ticks", 120, "ticks to run")
		interval = flag.Duration("interval", 16*time.Millisecond, "simulated time per tick")
		options  = flag.String("config", "", "TOML options file")
		catalog  = flag.String("catalog", "", "YAML sprite set catalog")
		assets   = flag.String("assets", "", "asset directory; generated images when empty")
		scale    = flag.Float64("scale", 1, "camera scale")
		output   = flag.String("output", "swarm.png", "output file")
		edgeMem  = flag.Int64("max-edge-bytes", 0, "cap tile edges so one RGBA tile fits in this many bytes; 0 keeps the configured edge")
		bg       = flag.String("background", "#1e1e28", "background color as #rrggbb")
		verbose  = flag.Bool("v", false, "log to stderr")
	)
	flag.Parse()

	if *verbose {
		swarm.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	opts := config.Default()
	if *options != "" {
		var err error
		if opts, err = config.Load(*options); err != nil {
			log.Fatalf("Failed to load options: %v", err)
		}
	}

	if *edgeMem > 0 {
		edge := surface.LargestEdge(surface.MemoryBudget{MaxBytes: *edgeMem}, opts.Canvas.MaxSurfaceEdge)
		if edge == 0 {
			log.Fatalf("max-edge-bytes %d cannot hold a single pixel", *edgeMem)
		}
		opts.Canvas.MaxSurfaceEdge = edge
	}
	background, err := parseColor(*bg)
	if err != nil {
		log.Fatalf("Bad background: %v", err)
	}

	var engineOpts []swarm.Option
	if *catalog != "" {
		c, err := sprite.LoadCatalog(*catalog)
		if err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
		engineOpts = append(engineOpts, swarm.WithCatalog(c))
	}
	if *assets != "" {
		engineOpts = append(engineOpts, swarm.WithLoaderFactory(swarm.FileLoaders(os.DirFS(*assets))))
	}

	sess := config.NewSession(opts)
	sess.SetDisplaySize(*width, *height)
	sess.SetCamera(config.Camera{Scale: *scale})

	e, err := swarm.New(sess, engineOpts...)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	defer e.Destroy()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Preload(ctx); err != nil {
		log.Printf("Preload incomplete: %v", err)
	}

	var total swarm.TickStats
	now := time.Now()
	start := time.Now()
	for range *ticks {
		st, err := e.Tick(now)
		if err != nil {
			log.Fatalf("Tick failed: %v", err)
		}
		total.Drawn += st.Drawn
		total.Skipped += st.Skipped
		total.Advanced += st.Advanced
		total.WorkerUpdates += st.WorkerUpdates
		now = now.Add(*interval)
	}
	elapsed := time.Since(start)

	screen := surface.New(*width, *height)
	e.Present(screen)

	frame := surface.FromImage(image.NewRGBA(screen.Bounds()))
	frame.Fill(background)
	frame.DrawImage(screen.Image(), screen.Bounds(), screen.Bounds())

	p := message.NewPrinter(language.English)
	hud := p.Sprintf("%s  %d actors  %d ticks  %d drawn  %.2f ms/tick",
		opts.Canvas.OffsetStrategy, e.Store().Len(), *ticks, total.Drawn,
		float64(elapsed.Microseconds())/1000/float64(max(*ticks, 1)))
	if err := drawHUD(frame.Image(), hud); err != nil {
		log.Printf("HUD skipped: %v", err)
	}

	if err := savePNG(*output, frame.Image()); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}

	p.Printf("Saved %s (%dx%d): %d actors, %d sprites drawn, %d skipped, %d frame advances, %d worker bitmaps\n",
		*output, *width, *height, e.Store().Len(), total.Drawn, total.Skipped, total.Advanced, total.WorkerUpdates)
}

func drawHUD(dst *image.RGBA, line string) error {
	f, err := opentype.Parse(gomono.TTF)
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: 14, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return fmt.Errorf("font face: %w", err)
	}
	defer face.Close()

	bar := image.Rect(0, 0, dst.Bounds().Dx(), 22)
	for y := bar.Min.Y; y < min(bar.Max.Y, dst.Bounds().Max.Y); y++ {
		for x := bar.Min.X; x < bar.Max.X; x++ {
			dst.SetRGBA(x, y, color.RGBA{A: 0xc0})
		}
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(6, 16),
	}
	d.DrawString(line)
	return nil
}

func parseColor(s string) (color.RGBA, error) {
	c := color.RGBA{A: 0xff}
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return color.RGBA{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	return c, nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
