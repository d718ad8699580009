// Package sprite describes sprite sets: cell dimensions, variations,
// animation timing, and how a logical (variation, frame) key maps to an
// image asset.
package sprite

import (
	"fmt"
	"image"
	"strings"

	"github.com/gogpu/swarm/config"
)

// VariationID names one skin of a sprite set, e.g. "green".
type VariationID string

// AssetID identifies an image asset, typically a slash-separated path.
type AssetID string

// Kind selects which image of a variation is wanted.
type Kind uint8

// Image kinds.
const (
	// KindStill is the single non-animated image of a variation.
	KindStill Kind = iota

	// KindFrame is one animation frame stored as its own image.
	KindFrame

	// KindSheet is every frame of a variation packed into one image.
	KindSheet
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindStill:
		return "still"
	case KindFrame:
		return "frame"
	case KindSheet:
		return "sheet"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// ImageKey is the logical key of a loadable image. Frame is only
// meaningful for KindFrame and is zero otherwise.
type ImageKey struct {
	Variation VariationID
	Kind      Kind
	Frame     int
}

func (k ImageKey) String() string {
	if k.Kind == KindFrame {
		return fmt.Sprintf("%s/%s/%d", k.Variation, k.Kind, k.Frame)
	}
	return fmt.Sprintf("%s/%s", k.Variation, k.Kind)
}

// Still returns the still image key of v.
func Still(v VariationID) ImageKey { return ImageKey{Variation: v, Kind: KindStill} }

// Frame returns the key of frame f of v.
func Frame(v VariationID, f int) ImageKey { return ImageKey{Variation: v, Kind: KindFrame, Frame: f} }

// Sheet returns the sprite sheet key of v.
func Sheet(v VariationID) ImageKey { return ImageKey{Variation: v, Kind: KindSheet} }

// Assets holds asset path templates. "{variation}" is replaced with the
// variation name and "{frame}" with the zero-padded three digit frame index.
type Assets struct {
	Still string `yaml:"still"`
	Frame string `yaml:"frame"`
	Sheet string `yaml:"sheet"`
}

// Set is an immutable per-session sprite set description.
type Set struct {
	ID              string        `yaml:"id"`
	CellWidth       int           `yaml:"cell_width"`
	CellHeight      int           `yaml:"cell_height"`
	Variations      []VariationID `yaml:"variations"`
	FrameCount      int           `yaml:"frame_count"`
	FrameDurationMs float64       `yaml:"frame_duration_ms"`
	SheetColumns    int           `yaml:"sheet_columns"`
	Assets          Assets        `yaml:"assets"`
}

// Validate checks the invariants every consumer relies on.
func (s *Set) Validate() error {
	field := func(name string) string { return "sprite_set." + s.ID + "." + name }
	switch {
	case s.ID == "":
		return config.Errorf("sprite_set.id", "must not be empty")
	case s.CellWidth <= 0 || s.CellHeight <= 0:
		return config.Errorf(field("cell"), "cell size must be positive, got %dx%d", s.CellWidth, s.CellHeight)
	case len(s.Variations) == 0:
		return config.Errorf(field("variations"), "at least one variation is required")
	case s.FrameCount < 1:
		return config.Errorf(field("frame_count"), "must be >= 1, got %d", s.FrameCount)
	case s.FrameDurationMs <= 0:
		return config.Errorf(field("frame_duration_ms"), "must be > 0, got %v", s.FrameDurationMs)
	case s.SheetColumns < 1:
		return config.Errorf(field("sheet_columns"), "must be >= 1, got %d", s.SheetColumns)
	}
	seen := make(map[VariationID]bool, len(s.Variations))
	for _, v := range s.Variations {
		if v == "" || seen[v] {
			return config.Errorf(field("variations"), "variation %q is empty or duplicated", v)
		}
		seen[v] = true
	}
	return nil
}

// CellSize returns the sprite cell size.
func (s *Set) CellSize() image.Point {
	return image.Pt(s.CellWidth, s.CellHeight)
}

// SheetRect returns the sub-rectangle of frame within a variation's sheet.
func (s *Set) SheetRect(frame int) image.Rectangle {
	x := (frame % s.SheetColumns) * s.CellWidth
	y := (frame / s.SheetColumns) * s.CellHeight
	return image.Rect(x, y, x+s.CellWidth, y+s.CellHeight)
}

// SheetRows returns the number of rows the sheet needs for FrameCount frames.
func (s *Set) SheetRows() int {
	return (s.FrameCount + s.SheetColumns - 1) / s.SheetColumns
}

// Asset resolves a logical key to its asset identifier.
func (s *Set) Asset(key ImageKey) AssetID {
	var tmpl string
	switch key.Kind {
	case KindStill:
		tmpl = s.Assets.Still
	case KindFrame:
		tmpl = s.Assets.Frame
	case KindSheet:
		tmpl = s.Assets.Sheet
	}
	r := strings.NewReplacer(
		"{variation}", string(key.Variation),
		"{frame}", fmt.Sprintf("%03d", key.Frame),
	)
	return AssetID(r.Replace(tmpl))
}

// Keys lists every image key a drawer needs for the given frame type: the
// stills, plus either every individual frame or one sheet per variation.
func (s *Set) Keys(frames config.FrameType) []ImageKey {
	keys := make([]ImageKey, 0, len(s.Variations)*(s.FrameCount+1))
	for _, v := range s.Variations {
		keys = append(keys, Still(v))
	}
	for _, v := range s.Variations {
		if frames == config.FrameSheet {
			keys = append(keys, Sheet(v))
			continue
		}
		for f := range s.FrameCount {
			keys = append(keys, Frame(v, f))
		}
	}
	return keys
}

// Clone returns a deep copy, safe to hand to another goroutine.
func (s *Set) Clone() *Set {
	c := *s
	c.Variations = append([]VariationID(nil), s.Variations...)
	return &c
}
