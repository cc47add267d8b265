package terrain

import "claimviz.ai/internal/sim/geom"

func BiomeFrom(noise uint64) string {
	switch noise % 3 {
	case 0:
		return "PLAINS"
	case 1:
		return "FOREST"
	default:
		return "DESERT"
	}
}

func BiomeAt(seed int64, x, z, regionSize int) string {
	if regionSize <= 0 {
		regionSize = 1
	}
	rx := geom.FloorDiv(x, regionSize)
	rz := geom.FloorDiv(z, regionSize)
	return BiomeFrom(geom.Hash2(seed, rx, rz))
}

// HeightAt bilinearly interpolates hashed lattice heights so neighbouring
// columns differ by at most a block or two.
func (g WorldGen) HeightAt(x, z int) int {
	grid := g.HillGrid
	if grid <= 0 {
		grid = 1
	}
	if g.Amplitude <= 0 {
		return g.clampY(g.BaseHeight)
	}
	gx := geom.FloorDiv(x, grid)
	gz := geom.FloorDiv(z, grid)
	fx := geom.Mod(x, grid)
	fz := geom.Mod(z, grid)

	span := uint64(2*g.Amplitude + 1)
	lattice := func(cx, cz int) int {
		return int(geom.Hash2(g.Seed+7, cx, cz)%span) - g.Amplitude
	}
	h00 := lattice(gx, gz)
	h10 := lattice(gx+1, gz)
	h01 := lattice(gx, gz+1)
	h11 := lattice(gx+1, gz+1)

	top := h00*(grid-fx) + h10*fx
	bot := h01*(grid-fx) + h11*fx
	v := top*(grid-fz) + bot*fz
	return g.clampY(g.BaseHeight + geom.FloorDiv(v, grid*grid))
}

func (g WorldGen) clampY(y int) int {
	if g.MaxY > g.MinY {
		return min(max(y, g.MinY), g.MaxY-1)
	}
	return y
}

func (g WorldGen) surfaceBlock(x, z int) uint16 {
	if BiomeAt(g.Seed, x, z, g.BiomeRegionSize) == "DESERT" {
		return g.Sand
	}
	return g.Grass
}

// treeAt reports whether a tree trunk is rooted at column (x, z).
func (g WorldGen) treeAt(x, z int) bool {
	if g.TreePermille <= 0 {
		return false
	}
	if BiomeAt(g.Seed, x, z, g.BiomeRegionSize) != "FOREST" {
		return false
	}
	return geom.Hash2(g.Seed+201, x, z)%1000 < uint64(g.TreePermille)
}

func (s *ChunkStore) generateChunk(ch *Chunk) {
	for z := 0; z < 16; z++ {
		for x := 0; x < 16; x++ {
			wx := ch.CX*16 + x
			wz := ch.CZ*16 + z
			i := ch.index(x, z)
			h := s.Gen.HeightAt(wx, wz)
			ch.Surface[i] = int32(h)
			ch.Top[i] = s.Gen.surfaceBlock(wx, wz)
		}
	}
	// Trees: a 4 block trunk with a leaf cap, kept inside the chunk.
	for z := 1; z < 15; z++ {
		for x := 1; x < 15; x++ {
			wx := ch.CX*16 + x
			wz := ch.CZ*16 + z
			if !s.Gen.treeAt(wx, wz) {
				continue
			}
			base := ch.SurfaceAt(x, z)
			for dy := 1; dy <= 4; dy++ {
				ch.edits[geom.V(wx, base+dy, wz)] = s.Gen.Log
			}
			for dz := -1; dz <= 1; dz++ {
				for dx := -1; dx <= 1; dx++ {
					p := geom.V(wx+dx, base+5, wz+dz)
					if _, ok := ch.edits[p]; !ok {
						ch.edits[p] = s.Gen.Leaves
					}
				}
			}
		}
	}
}
