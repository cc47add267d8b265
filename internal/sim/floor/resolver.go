// Package floor finds the walkable surface near a coordinate so flat
// outlines follow the terrain.
package floor

// Predicate reports whether (x, y, z) is a floor for a search that started at
// originalY. Implementations may query the world and should be cheap to repeat.
type Predicate func(originalY, x, y, z int) bool

// Always treats every coordinate as floor; used when no classification is available.
func Always(originalY, x, y, z int) bool { return true }

const (
	DefaultSearchBelow = 80
	DefaultSearchAbove = 64
)

// Resolver searches a bounded column around a starting height.
type Resolver struct {
	WorldMin int
	WorldMax int

	SearchBelow int
	SearchAbove int

	IsFloor Predicate
}

func NewResolver(worldMin, worldMax int, isFloor Predicate) Resolver {
	return Resolver{
		WorldMin:    worldMin,
		WorldMax:    worldMax,
		SearchBelow: DefaultSearchBelow,
		SearchAbove: DefaultSearchAbove,
		IsFloor:     isFloor,
	}
}

// Find returns the nearest floor Y around y, or y-2 when the column has none
// within [max(WorldMin, y-SearchBelow), min(WorldMax, y+SearchAbove)].
func (r Resolver) Find(x, y, z int) int {
	below, above := r.SearchBelow, r.SearchAbove
	if below <= 0 {
		below = DefaultSearchBelow
	}
	if above <= 0 {
		above = DefaultSearchAbove
	}
	return r.FindWithin(x, y, z, max(r.WorldMin, y-below), min(r.WorldMax, y+above), y-2)
}

// FindWithin tests y itself, then alternates one step down and one step up,
// and returns def if nothing in [minY, maxY] qualifies. Each height is tested
// once; at equal distance below wins.
func (r Resolver) FindWithin(x, y, z, minY, maxY, def int) int {
	isFloor := r.IsFloor
	if isFloor == nil {
		isFloor = Always
	}
	if (y >= minY || y <= maxY) && isFloor(y, x, y, z) {
		return y
	}
	down, up := y, y
	span := max(abs(minY), abs(maxY))
	for i := 0; i <= span; i++ {
		if down > minY {
			down--
			if isFloor(y, x, down, z) {
				return down
			}
		}
		if up < maxY {
			up++
			if isFloor(y, x, up, z) {
				return up
			}
		}
		if down <= minY && up >= maxY {
			break
		}
	}
	return def
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
