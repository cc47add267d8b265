package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

// BlockDef describes the physical shape of a block. It is a comparable value
// and doubles as the floor classification cache key.
type BlockDef struct {
	ID              string  `json:"id"`
	Passable        bool    `json:"passable"`
	Leaves          bool    `json:"leaves,omitempty"`
	CollisionBoxes  int     `json:"collision_boxes"`
	CollisionVolume float64 `json:"collision_volume"`
	BoundingVolume  float64 `json:"bounding_volume"`
	FullCube        bool    `json:"full_cube"`
}

func solid(id string) BlockDef {
	return BlockDef{ID: id, CollisionBoxes: 1, CollisionVolume: 1, BoundingVolume: 1, FullCube: true}
}

// DefaultBlockDefs is the built-in palette used when no blocks.json is configured.
func DefaultBlockDefs() []BlockDef {
	return []BlockDef{
		{ID: "AIR", Passable: true},
		{ID: "WATER", Passable: true},
		{ID: "TALL_GRASS", Passable: true},
		solid("STONE"),
		solid("DIRT"),
		solid("GRASS"),
		solid("SAND"),
		solid("GRAVEL"),
		solid("LOG"),
		{ID: "LEAVES", Leaves: true, CollisionBoxes: 1, CollisionVolume: 1, BoundingVolume: 1, FullCube: true},
		{ID: "SLAB", CollisionBoxes: 1, CollisionVolume: 0.5, BoundingVolume: 0.5},
		{ID: "STAIRS", CollisionBoxes: 2, CollisionVolume: 0.75, BoundingVolume: 1},
		{ID: "GLASS", CollisionBoxes: 1, CollisionVolume: 1, BoundingVolume: 1, FullCube: true},
	}
}

func DefaultBlocks() BlockCatalog {
	var out BlockCatalog
	raw, _ := json.Marshal(DefaultBlockDefs())
	if err := buildBlocks(raw, DefaultBlockDefs(), &out); err != nil {
		// built-in palette always contains AIR
		panic(err)
	}
	return out
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// LoadBlocks reads a blocks.json palette. An empty path yields DefaultBlocks.
func LoadBlocks(path string) (BlockCatalog, error) {
	if path == "" {
		return DefaultBlocks(), nil
	}
	var out BlockCatalog
	raw, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return out, fmt.Errorf("blocks.json: %w", err)
	}
	if err := buildBlocks(raw, defs, &out); err != nil {
		return out, err
	}
	return out, nil
}

func buildBlocks(raw []byte, defs []BlockDef, out *BlockCatalog) error {
	out.DefsDigest = sha256Hex(raw)
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Ensure AIR exists and is palette id 0.
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Def returns the definition for a palette id; unknown ids read as AIR.
func (c BlockCatalog) Def(id uint16) BlockDef {
	if int(id) >= len(c.Palette) {
		return c.Defs["AIR"]
	}
	return c.Defs[c.Palette[id]]
}

// MustIndex is for built-in ids known to exist in the palette.
func (c BlockCatalog) MustIndex(id string) uint16 {
	idx, ok := c.Index[id]
	if !ok {
		panic(fmt.Sprintf("block %q not in palette", id))
	}
	return idx
}
