package imagecache

import (
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	_ "image/png" // register PNG decoder
	"io/fs"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/gogpu/swarm/sprite"
)

// FileLoader decodes sprite assets from a file system. Asset identifiers
// are resolved through the sprite set's path templates. PNG, BMP and WebP
// are supported.
type FileLoader struct {
	FS  fs.FS
	Set *sprite.Set
}

// Load opens and decodes the asset for key.
func (l FileLoader) Load(ctx context.Context, key sprite.ImageKey) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := string(l.Set.Asset(key))
	f, err := l.FS.Open(name)
	if err != nil {
		return nil, fmt.Errorf("imagecache: open %s: %w", name, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("imagecache: decode %s: %w", name, err)
	}
	return img, nil
}

// GeneratedLoader synthesizes sprite images in memory. Each variation gets
// a flat body color; frames add a marker band whose position encodes the
// frame index, so animation is visible without any asset files.
type GeneratedLoader struct {
	Set *sprite.Set
}

var namedColors = map[sprite.VariationID]color.RGBA{
	"green":  {R: 0x3c, G: 0xb3, B: 0x4a, A: 0xff},
	"red":    {R: 0xd6, G: 0x2f, B: 0x2f, A: 0xff},
	"purple": {R: 0x8e, G: 0x44, B: 0xad, A: 0xff},
	"yellow": {R: 0xf1, G: 0xc4, B: 0x0f, A: 0xff},
}

// VariationColor returns the body color GeneratedLoader uses for v.
func VariationColor(v sprite.VariationID) color.RGBA {
	if c, ok := namedColors[v]; ok {
		return c
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(v))
	sum := h.Sum32()
	return color.RGBA{R: byte(sum), G: byte(sum >> 8), B: byte(sum >> 16), A: 0xff}
}

// Load renders the image for key.
func (l GeneratedLoader) Load(ctx context.Context, key sprite.ImageKey) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := l.Set
	switch key.Kind {
	case sprite.KindStill:
		return l.cell(key.Variation, -1), nil
	case sprite.KindFrame:
		if key.Frame < 0 || key.Frame >= s.FrameCount {
			return nil, fmt.Errorf("imagecache: %s: frame out of range [0,%d)", key, s.FrameCount)
		}
		return l.cell(key.Variation, key.Frame), nil
	case sprite.KindSheet:
		sheet := image.NewRGBA(image.Rect(0, 0, s.SheetColumns*s.CellWidth, s.SheetRows()*s.CellHeight))
		for f := range s.FrameCount {
			r := s.SheetRect(f)
			draw.Draw(sheet, r, l.cell(key.Variation, f), image.Point{}, draw.Src)
		}
		return sheet, nil
	default:
		return nil, fmt.Errorf("imagecache: %s: unknown image kind", key)
	}
}

// cell draws one sprite cell. frame < 0 draws the still pose.
func (l GeneratedLoader) cell(v sprite.VariationID, frame int) *image.RGBA {
	s := l.Set
	img := image.NewRGBA(image.Rect(0, 0, s.CellWidth, s.CellHeight))

	inset := image.Rect(s.CellWidth/8, s.CellHeight/8, s.CellWidth-s.CellWidth/8, s.CellHeight-s.CellHeight/8)
	draw.Draw(img, inset, image.NewUniform(VariationColor(v)), image.Point{}, draw.Src)
	if frame < 0 {
		return img
	}

	band := max(inset.Dy()/s.FrameCount, 1)
	y := inset.Min.Y + frame*inset.Dy()/s.FrameCount
	marker := image.Rect(inset.Min.X, y, inset.Max.X, min(y+band, inset.Max.Y))
	draw.Draw(img, marker, image.NewUniform(color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}), image.Point{}, draw.Src)
	return img
}
