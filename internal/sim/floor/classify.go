package floor

import "claimviz.ai/internal/sim/catalogs"

// BlockSource exposes the block definitions of a world column.
type BlockSource interface {
	BlockDefAt(x, y, z int) catalogs.BlockDef
}

// Classifier decides which blocks count as floor. Results are cached by the
// block definition value, so two equal definitions always share one entry.
// Not safe for concurrent use; the host loop is the only caller.
type Classifier struct {
	maxEntries int
	cache      map[catalogs.BlockDef]bool
}

const DefaultCacheSize = 1024

func NewClassifier(maxEntries int) *Classifier {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheSize
	}
	return &Classifier{
		maxEntries: maxEntries,
		cache:      make(map[catalogs.BlockDef]bool, min(maxEntries, 256)),
	}
}

// IsFloorBlock: a solid, non-leaf block whose collision volume fills most of the cell.
func (c *Classifier) IsFloorBlock(def catalogs.BlockDef) bool {
	if v, ok := c.cache[def]; ok {
		return v
	}
	full := !def.Passable && !def.Leaves
	if full && def.CollisionBoxes > 0 {
		full = def.CollisionVolume >= 0.8
	}
	full = full && def.BoundingVolume >= 0.8
	if len(c.cache) < c.maxEntries {
		c.cache[def] = full
	}
	return full
}

func (c *Classifier) Len() int { return len(c.cache) }

// SurfacePredicate treats a floor block as floor when it is exposed above or below.
func (c *Classifier) SurfacePredicate(src BlockSource) Predicate {
	return func(originalY, x, y, z int) bool {
		if !c.IsFloorBlock(src.BlockDefAt(x, y, z)) {
			return false
		}
		return !c.IsFloorBlock(src.BlockDefAt(x, y+1, z)) || !c.IsFloorBlock(src.BlockDefAt(x, y-1, z))
	}
}

// SolidTopPredicate: any non-passable block with a passable block above it.
func SolidTopPredicate(src BlockSource) Predicate {
	return func(originalY, x, y, z int) bool {
		return !src.BlockDefAt(x, y, z).Passable && src.BlockDefAt(x, y+1, z).Passable
	}
}

// PartialShapePredicate matches blocks with no collision shape or a shape that
// is not a single full cube.
func PartialShapePredicate(src BlockSource) Predicate {
	return func(originalY, x, y, z int) bool {
		def := src.BlockDefAt(x, y, z)
		return def.CollisionBoxes == 0 || !def.FullCube
	}
}
