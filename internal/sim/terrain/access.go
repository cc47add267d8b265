package terrain

import (
	"sort"

	"claimviz.ai/internal/sim/catalogs"
	"claimviz.ai/internal/sim/geom"
)

func (s *ChunkStore) IsChunkLoaded(cx, cz int) bool {
	_, ok := s.Chunks[ChunkKey{CX: cx, CZ: cz}]
	return ok
}

// IsLoadedAt reports whether the chunk containing block (x, z) is loaded.
func (s *ChunkStore) IsLoadedAt(x, z int) bool {
	return s.IsChunkLoaded(geom.FloorDiv(x, 16), geom.FloorDiv(z, 16))
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

func (s *ChunkStore) LoadChunk(cx, cz int) *Chunk {
	k := ChunkKey{CX: cx, CZ: cz}
	if ch, ok := s.Chunks[k]; ok {
		return ch
	}
	ch := &Chunk{
		CX:      cx,
		CZ:      cz,
		Surface: make([]int32, 16*16),
		Top:     make([]uint16, 16*16),
		edits:   map[geom.Vec3i]uint16{},
	}
	s.generateChunk(ch)
	ch.dirty = true
	_ = ch.Digest()
	s.Chunks[k] = ch
	return ch
}

// LoadAround loads every chunk within radius chunks of block (x, z) and
// unloads none.
func (s *ChunkStore) LoadAround(x, z, radius int) {
	cx, cz := geom.FloorDiv(x, 16), geom.FloorDiv(z, 16)
	for dz := -radius; dz <= radius; dz++ {
		for dx := -radius; dx <= radius; dx++ {
			s.LoadChunk(cx+dx, cz+dz)
		}
	}
}

func (s *ChunkStore) UnloadChunk(cx, cz int) {
	delete(s.Chunks, ChunkKey{CX: cx, CZ: cz})
}

// GetBlock returns AIR for unloaded chunks and out-of-range heights.
func (s *ChunkStore) GetBlock(x, y, z int) uint16 {
	if s.Gen.MaxY > s.Gen.MinY && (y < s.Gen.MinY || y >= s.Gen.MaxY) {
		return s.Gen.Air
	}
	ch, ok := s.Chunks[ChunkKey{CX: geom.FloorDiv(x, 16), CZ: geom.FloorDiv(z, 16)}]
	if !ok {
		return s.Gen.Air
	}
	if b, ok := ch.edits[geom.V(x, y, z)]; ok {
		return b
	}
	surf := ch.SurfaceAt(geom.Mod(x, 16), geom.Mod(z, 16))
	switch {
	case y > surf:
		return s.Gen.Air
	case y == surf:
		return ch.Top[ch.index(geom.Mod(x, 16), geom.Mod(z, 16))]
	case y >= surf-3:
		return s.Gen.Dirt
	default:
		return s.Gen.Stone
	}
}

// SetBlock edits a loaded chunk; writes to unloaded chunks are dropped.
func (s *ChunkStore) SetBlock(x, y, z int, b uint16) {
	ch, ok := s.Chunks[ChunkKey{CX: geom.FloorDiv(x, 16), CZ: geom.FloorDiv(z, 16)}]
	if !ok {
		return
	}
	p := geom.V(x, y, z)
	if cur, ok := ch.edits[p]; ok && cur == b {
		return
	}
	ch.edits[p] = b
	ch.dirty = true
}

func (s *ChunkStore) BlockDefAt(x, y, z int) catalogs.BlockDef {
	return s.Catalog.Def(s.GetBlock(x, y, z))
}

// RayTraceDown walks down from y at most maxDist blocks and returns the Y of
// the first non-passable block.
func (s *ChunkStore) RayTraceDown(x, y, z, maxDist int) (int, bool) {
	for d := 0; d <= maxDist; d++ {
		if !s.BlockDefAt(x, y-d, z).Passable {
			return y - d, true
		}
	}
	return 0, false
}

func (s *ChunkStore) HeightRange() (minY, maxY int) {
	return s.Gen.MinY, s.Gen.MaxY
}
