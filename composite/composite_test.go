// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package composite

import (
	"bytes"
	"context"
	"errors"
	"image"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/gogpu/swarm/actor"
	"github.com/gogpu/swarm/config"
	"github.com/gogpu/swarm/imagecache"
	"github.com/gogpu/swarm/internal/parallel"
	"github.com/gogpu/swarm/sprite"
	"github.com/gogpu/swarm/surface"
)

func tinySet() *sprite.Set {
	return &sprite.Set{
		ID:              "tiny",
		CellWidth:       4,
		CellHeight:      4,
		Variations:      []sprite.VariationID{"green", "red", "purple"},
		FrameCount:      5,
		FrameDurationMs: 10,
		SheetColumns:    2,
	}
}

// testEnv returns 100 actors on a 10x10 grid of 4px cells with 16px tile
// surfaces: 3x3 tiles.
func testEnv(seed uint64) Env {
	set := tinySet()
	store := actor.NewStore()
	store.Reset(100, set, false, rand.New(rand.NewPCG(seed, seed)))
	canvas := config.Default().Canvas
	canvas.MaxSurfaceEdge = 16
	canvas.OnlyDrawChanges = true
	return Env{
		Store:   store,
		Set:     set,
		Canvas:  canvas,
		Display: image.Pt(60, 50),
		Camera:  config.DefaultCamera,
		Loader:  imagecache.GeneratedLoader{Set: set},
	}
}

func loadAll(t *testing.T, s Strategy, set *sprite.Set, ft config.FrameType) {
	t.Helper()
	l := imagecache.GeneratedLoader{Set: set}
	for _, key := range set.Keys(ft) {
		img, err := l.Load(context.Background(), key)
		if err != nil {
			t.Fatal(err)
		}
		s.SetImage(key, img)
	}
}

func setup(t *testing.T, kind config.OffsetStrategy, env Env) Strategy {
	t.Helper()
	s, err := New(kind)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Setup(env); err != nil {
		t.Fatalf("Setup(%s) error = %v", kind, err)
	}
	t.Cleanup(s.Destroy)
	return s
}

func present(s Strategy, size image.Point) *image.RGBA {
	dst := surface.New(size.X, size.Y)
	s.Present(dst)
	return dst.Image()
}

func TestNew(t *testing.T) {
	for _, kind := range []config.OffsetStrategy{config.OffsetDirect, config.OffsetTransform, config.OffsetBuffered} {
		s, err := New(kind)
		if err != nil {
			t.Fatalf("New(%s) error = %v", kind, err)
		}
		if s.Kind() != kind {
			t.Errorf("New(%s).Kind() = %s", kind, s.Kind())
		}
	}

	_, err := New("css3d")
	if !errors.Is(err, config.ErrConfiguration) {
		t.Errorf("New(unknown) error = %v, want a configuration error", err)
	}
	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) || cfgErr.Field != "canvas.offset_strategy" {
		t.Errorf("New(unknown) error = %#v", err)
	}
}

func TestSetupSurfaceTooSmall(t *testing.T) {
	for _, kind := range []config.OffsetStrategy{config.OffsetTransform, config.OffsetBuffered} {
		env := testEnv(1)
		env.Canvas.MaxSurfaceEdge = 3
		s, _ := New(kind)
		if err := s.Setup(env); !errors.Is(err, config.ErrConfiguration) {
			t.Errorf("%s: Setup() error = %v, want a configuration error", kind, err)
		}
	}
}

func TestDrawBeforeSetupAndAfterDestroy(t *testing.T) {
	for _, kind := range []config.OffsetStrategy{config.OffsetDirect, config.OffsetTransform, config.OffsetBuffered} {
		s, _ := New(kind)
		if _, err := s.Draw(); !errors.Is(err, ErrNotSetup) {
			t.Errorf("%s: Draw() before Setup error = %v", kind, err)
		}
		if err := s.Setup(testEnv(1)); err != nil {
			t.Fatal(err)
		}
		s.Destroy()
		s.Destroy()
		if _, err := s.Draw(); !errors.Is(err, ErrDestroyed) {
			t.Errorf("%s: Draw() after Destroy error = %v", kind, err)
		}
		if err := s.Setup(testEnv(1)); !errors.Is(err, ErrDestroyed) {
			t.Errorf("%s: Setup() after Destroy error = %v", kind, err)
		}
	}
}

func TestTiledCameraTouchesOnlyTransform(t *testing.T) {
	env := testEnv(2)
	s := setup(t, config.OffsetTransform, env).(*TiledTransform)
	loadAll(t, s, env.Set, config.FrameIndividual)

	st, _ := s.Draw()
	if st.Tiles != 9 || st.FullTiles != 9 || st.Drawn != 100 {
		t.Fatalf("first Draw() = %+v, want 9 full tiles and 100 sprites", st)
	}
	if s.Container().Len() != 9 {
		t.Errorf("container holds %d tiles, want 9", s.Container().Len())
	}

	before := s.Container().TransformUpdates()
	s.UpdateCamera(config.Camera{OffsetX: -5, OffsetY: 2, Scale: 3})
	if s.Container().TransformUpdates() != before+1 {
		t.Error("camera change did not set the transform exactly once")
	}
	if got := s.Container().Transform(); got != (Transform{Scale: 3, X: -15, Y: 6}) {
		t.Errorf("Transform() = %+v", got)
	}
	st, _ = s.Draw()
	if st.FullTiles != 0 || st.Drawn != 0 {
		t.Errorf("Draw() after camera change = %+v, want no tile work", st)
	}
}

func TestDirectCameraRedraws(t *testing.T) {
	env := testEnv(3)
	s := setup(t, config.OffsetDirect, env)
	loadAll(t, s, env.Set, config.FrameIndividual)
	s.Draw()

	st, _ := s.Draw()
	if st.FullTiles != 0 || st.Drawn != 0 {
		t.Fatalf("idle Draw() = %+v", st)
	}
	s.UpdateCamera(config.Camera{OffsetX: 1, Scale: 1})
	st, _ = s.Draw()
	if st.Tiles != 1 || st.FullTiles != 1 {
		t.Errorf("Draw() after camera change = %+v, want a full redraw", st)
	}
}

func TestBufferedComposesOnChange(t *testing.T) {
	env := testEnv(4)
	s := setup(t, config.OffsetBuffered, env).(*Buffered)
	loadAll(t, s, env.Set, config.FrameIndividual)

	if st, _ := s.Draw(); !st.Composited {
		t.Fatal("first Draw() did not compose")
	}
	if st, _ := s.Draw(); st.Composited {
		t.Error("idle Draw() composed")
	}
	s.UpdateCamera(config.Camera{OffsetX: 2, Scale: 1})
	if st, _ := s.Draw(); !st.Composited || st.Drawn != 0 {
		t.Errorf("Draw() after camera change = %+v, want composite only", st)
	}
	env.Store.ApplyPartialUpdate([]int{42}, actor.SetAnimated(true))
	if st, _ := s.Draw(); !st.Composited || st.Drawn != 1 {
		t.Errorf("Draw() after one change = %+v", st)
	}
	s.Resize(30, 30)
	if st, _ := s.Draw(); !st.Composited {
		t.Error("Draw() after Resize did not compose")
	}
	if s.Display().Size() != image.Pt(30, 30) {
		t.Errorf("display size = %v", s.Display().Size())
	}
}

// TestTiledMatchesBuffered checks that the container presenter and the
// buffered composite place tiles identically under a fractional camera.
func TestTiledMatchesBuffered(t *testing.T) {
	cam := config.Camera{OffsetX: 3.3, OffsetY: -2.1, Scale: 1.7}

	tEnv, bEnv := testEnv(5), testEnv(5)
	tEnv.Camera, bEnv.Camera = cam, cam
	tiled := setup(t, config.OffsetTransform, tEnv)
	buffered := setup(t, config.OffsetBuffered, bEnv)
	loadAll(t, tiled, tEnv.Set, config.FrameIndividual)
	loadAll(t, buffered, bEnv.Set, config.FrameIndividual)
	tiled.Draw()
	buffered.Draw()

	a := present(tiled, bEnv.Display)
	b := present(buffered, bEnv.Display)
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("tiled presenter and buffered display differ")
	}
}

func TestDirectMatchesBuffered(t *testing.T) {
	cam := config.Camera{OffsetX: 2, OffsetY: 3, Scale: 1}

	dEnv, bEnv := testEnv(6), testEnv(6)
	dEnv.Camera, bEnv.Camera = cam, cam
	direct := setup(t, config.OffsetDirect, dEnv)
	buffered := setup(t, config.OffsetBuffered, bEnv)
	loadAll(t, direct, dEnv.Set, config.FrameIndividual)
	loadAll(t, buffered, bEnv.Set, config.FrameIndividual)
	direct.Draw()
	buffered.Draw()

	a := present(direct, dEnv.Display)
	b := present(buffered, bEnv.Display)
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("direct and buffered output differ at unit scale")
	}
}

func TestPoolMatchesSequential(t *testing.T) {
	pool := parallel.NewPool(4)
	defer pool.Close()

	seqEnv, parEnv := testEnv(7), testEnv(7)
	parEnv.Pool = pool
	seq := setup(t, config.OffsetBuffered, seqEnv)
	par := setup(t, config.OffsetBuffered, parEnv)
	loadAll(t, seq, seqEnv.Set, config.FrameSheet)
	loadAll(t, par, parEnv.Set, config.FrameSheet)

	clock := actor.NewClock(seqEnv.Set)
	for step := range 10 {
		seqEnv.Store.ApplyPartialUpdate([]int{step * 7}, actor.SetAnimated(true))
		parEnv.Store.ApplyPartialUpdate([]int{step * 7}, actor.SetAnimated(true))
		clock.Advance(seqEnv.Store, 6)
		clock.Advance(parEnv.Store, 6)
		seq.Draw()
		par.Draw()
		if !bytes.Equal(present(seq, seqEnv.Display).Pix, present(par, parEnv.Display).Pix) {
			t.Fatalf("step %d: pooled draw differs from sequential", step)
		}
	}
}

// drawUntil draws until the presented pixel at p is opaque.
func drawUntil(t *testing.T, s Strategy, size, p image.Point) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := s.Draw(); err != nil {
			t.Fatal(err)
		}
		if present(s, size).RGBAAt(p.X, p.Y).A != 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("worker tiles never showed up")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWorkerTiles(t *testing.T) {
	for _, kind := range []config.OffsetStrategy{config.OffsetDirect, config.OffsetTransform, config.OffsetBuffered} {
		t.Run(string(kind), func(t *testing.T) {
			env := testEnv(8)
			env.Canvas.UseWorker = true
			s := setup(t, kind, env)

			for i := range env.Store.Len() {
				if !env.Store.IsDetached(i) {
					t.Fatalf("actor %d still animated by the main side", i)
				}
			}
			drawUntil(t, s, env.Display, image.Pt(1, 1))
		})
	}
}

func TestWorkerStatsReachComposite(t *testing.T) {
	env := testEnv(8)
	env.Canvas.UseWorker = true
	s := setup(t, config.OffsetTransform, env)

	var total Stats
	deadline := time.Now().Add(5 * time.Second)
	for total.Drawn < env.Store.Len() {
		if time.Now().After(deadline) {
			t.Fatalf("worker draws never reported: %+v", total)
		}
		st, err := s.Draw()
		if err != nil {
			t.Fatal(err)
		}
		total.Drawn += st.Drawn
		total.FullTiles += st.FullTiles
		total.WorkerUpdates += st.WorkerUpdates
		time.Sleep(time.Millisecond)
	}
	if total.WorkerUpdates == 0 || total.FullTiles == 0 {
		t.Errorf("totals = %+v, want worker updates and full tiles", total)
	}
}

func TestWorkerTilesNeedLoader(t *testing.T) {
	env := testEnv(8)
	env.Canvas.UseWorker = true
	env.Loader = nil
	s, _ := New(config.OffsetBuffered)
	if err := s.Setup(env); err == nil {
		t.Error("Setup() without loader succeeded")
	}
}

func TestUnreachableWorkerLeavesTileBlank(t *testing.T) {
	env := testEnv(9)
	env.Canvas.UseWorker = true
	s := setup(t, config.OffsetBuffered, env).(*Buffered)
	drawUntil(t, s, env.Display, image.Pt(1, 1))

	s.tiles.tiles[0].proxy.Terminate()
	st, err := s.Draw()
	if err != nil {
		t.Fatalf("Draw() with a dead worker error = %v", err)
	}
	if st.BlankTiles != 1 || !st.Composited {
		t.Errorf("Draw() = %+v, want one blank tile and a composite", st)
	}
	img := present(s, env.Display)
	if img.RGBAAt(1, 1).A != 0 {
		t.Error("tile of the dead worker is not blank")
	}
	// Tile (1,0) starts at world x=16.
	drawUntil(t, s, env.Display, image.Pt(17, 1))

	s.UpdatePartialActors(map[int]actor.Patch{0: actor.SetAnimated(true)})
	s.UpdateCamera(config.DefaultCamera)
	if st, err := s.Draw(); err != nil || st.BlankTiles != 1 {
		t.Errorf("later Draw() = %+v, %v", st, err)
	}
}

func TestTransformRectsShareEdges(t *testing.T) {
	tr := CameraTransform(config.Camera{OffsetX: 0.37, OffsetY: 11.2, Scale: 0.83})
	a := tr.Rect(image.Rect(0, 0, 16, 16))
	b := tr.Rect(image.Rect(16, 0, 32, 16))
	if a.Max.X != b.Min.X {
		t.Errorf("adjacent tiles: %v and %v leave a seam", a, b)
	}
}
