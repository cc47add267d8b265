// Package terrain holds the column world viewers stand in. Chunks are 16x16
// columns generated from a seed; only loaded chunks are visible to renderers.
package terrain

import (
	"crypto/sha256"
	"encoding/binary"

	"claimviz.ai/internal/sim/catalogs"
	"claimviz.ai/internal/sim/geom"
)

type ChunkKey struct {
	CX int
	CZ int
}

type Chunk struct {
	CX, CZ int
	// Surface is the Y of the top solid block per column, x fastest then z.
	Surface []int32
	Top     []uint16

	// Explicit block edits layered over the generated columns.
	edits map[geom.Vec3i]uint16

	dirty bool
	hash  [32]byte
}

func (c *Chunk) index(x, z int) int {
	return x + z*16
}

func (c *Chunk) SurfaceAt(x, z int) int {
	return int(c.Surface[c.index(x, z)])
}

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [4]byte
		for i, y := range c.Surface {
			binary.LittleEndian.PutUint32(tmp[:], uint32(y))
			h.Write(tmp[:])
			binary.LittleEndian.PutUint16(tmp[:2], c.Top[i])
			h.Write(tmp[:2])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

type WorldGen struct {
	Seed int64

	MinY int
	MaxY int

	BaseHeight      int
	Amplitude       int
	HillGrid        int
	BiomeRegionSize int
	TreePermille    int

	Air    uint16
	Stone  uint16
	Dirt   uint16
	Grass  uint16
	Sand   uint16
	Log    uint16
	Leaves uint16
}

// GenFromCatalog fills palette ids from the block catalog.
func GenFromCatalog(seed int64, minY, maxY int, cat catalogs.BlockCatalog) WorldGen {
	idx := func(id string) uint16 {
		if v, ok := cat.Index[id]; ok {
			return v
		}
		return cat.Index["AIR"]
	}
	return WorldGen{
		Seed:            seed,
		MinY:            minY,
		MaxY:            maxY,
		BaseHeight:      64,
		Amplitude:       6,
		HillGrid:        32,
		BiomeRegionSize: 128,
		TreePermille:    8,
		Air:             idx("AIR"),
		Stone:           idx("STONE"),
		Dirt:            idx("DIRT"),
		Grass:           idx("GRASS"),
		Sand:            idx("SAND"),
		Log:             idx("LOG"),
		Leaves:          idx("LEAVES"),
	}
}

// ChunkStore is accessed only from the host loop goroutine.
type ChunkStore struct {
	Gen     WorldGen
	Catalog catalogs.BlockCatalog
	Chunks  map[ChunkKey]*Chunk
}

func NewChunkStore(gen WorldGen, cat catalogs.BlockCatalog) *ChunkStore {
	return &ChunkStore{
		Gen:     gen,
		Catalog: cat,
		Chunks:  map[ChunkKey]*Chunk{},
	}
}
