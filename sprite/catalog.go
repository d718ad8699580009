package sprite

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownSet is returned by Catalog.Lookup for an id that is not present.
var ErrUnknownSet = errors.New("sprite: unknown sprite set")

// Catalog maps sprite set ids to their descriptions.
type Catalog struct {
	sets map[string]*Set
}

// NewCatalog validates sets and indexes them by id.
func NewCatalog(sets ...*Set) (*Catalog, error) {
	c := &Catalog{sets: make(map[string]*Set, len(sets))}
	for _, s := range sets {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.sets[s.ID]; dup {
			return nil, fmt.Errorf("sprite: duplicate sprite set %q", s.ID)
		}
		c.sets[s.ID] = s
	}
	return c, nil
}

// Builtin returns a catalog holding Frog and Test.
func Builtin() *Catalog {
	c, err := NewCatalog(Frog(), Test())
	if err != nil {
		panic(err) // built-in sets are always valid
	}
	return c
}

// Lookup returns the sprite set with the given id.
func (c *Catalog) Lookup(id string) (*Set, error) {
	s, ok := c.sets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSet, id)
	}
	return s, nil
}

// IDs returns the sorted set ids.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.sets))
	for id := range c.sets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type catalogFile struct {
	SpriteSets []*Set `yaml:"sprite_sets"`
}

// DecodeCatalog reads a YAML catalog:
//
//	sprite_sets:
//	  - id: frog
//	    cell_width: 64
//	    cell_height: 64
//	    variations: [green, red]
//	    frame_count: 12
//	    frame_duration_ms: 100
//	    sheet_columns: 4
//	    assets:
//	      still: froggy/{variation}/tile000.png
//	      frame: froggy/{variation}/tile{frame}.png
//	      sheet: froggy/{variation}.png
func DecodeCatalog(r io.Reader) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("sprite: decode catalog: %w", err)
	}
	return NewCatalog(f.SpriteSets...)
}

// LoadCatalog reads a YAML catalog from path.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return nil, fmt.Errorf("sprite: open catalog: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return DecodeCatalog(f)
}

// Frog is the 64x64, 12 frame frog set with four color variations.
func Frog() *Set {
	return &Set{
		ID:              "frog",
		CellWidth:       64,
		CellHeight:      64,
		Variations:      []VariationID{"green", "red", "purple", "yellow"},
		FrameCount:      12,
		FrameDurationMs: 1000.0 / 10,
		SheetColumns:    4,
		Assets: Assets{
			Still: "assets/froggy/froggy_{variation}/tile000.png",
			Frame: "assets/froggy/froggy_{variation}/tile{frame}.png",
			Sheet: "assets/froggy/froggy_{variation}.png",
		},
	}
}

// Test is a large 250x250 set used to stress surface limits.
func Test() *Set {
	return &Set{
		ID:              "test",
		CellWidth:       250,
		CellHeight:      250,
		Variations:      []VariationID{"a", "b"},
		FrameCount:      4,
		FrameDurationMs: 250,
		SheetColumns:    2,
		Assets: Assets{
			Still: "assets/test/{variation}.png",
			Frame: "assets/test/{variation}_{frame}.png",
			Sheet: "assets/test/{variation}_sheet.png",
		},
	}
}
