package floor

import (
	"testing"

	"claimviz.ai/internal/sim/catalogs"
)

func TestFind_PrefersStartThenBelow(t *testing.T) {
	var seen []int
	r := NewResolver(-64, 320, func(_, _, y, _ int) bool {
		seen = append(seen, y)
		return y == 62 || y == 66
	})
	got := r.Find(0, 64, 0)
	if got != 62 {
		t.Fatalf("expected 62 (below wins ties at equal distance), got %d", got)
	}
	want := []int{64, 63, 65, 62}
	if len(seen) != len(want) {
		t.Fatalf("visit order: got %v want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("visit order: got %v want %v", seen, want)
		}
	}
}

func TestFindWithin_TestsEachHeightOnce(t *testing.T) {
	calls := map[int]int{}
	r := NewResolver(-64, 320, func(_, _, y, _ int) bool {
		calls[y]++
		return false
	})
	if got := r.FindWithin(0, 10, 0, 7, 13, -1); got != -1 {
		t.Fatalf("expected default, got %d", got)
	}
	if len(calls) != 7 {
		t.Fatalf("expected heights 7..13, got %v", calls)
	}
	for y, n := range calls {
		if n != 1 || y < 7 || y > 13 {
			t.Fatalf("height %d tested %d times (%v)", y, n, calls)
		}
	}
}

func TestFind_AboveWhenCloser(t *testing.T) {
	r := NewResolver(-64, 320, func(_, _, y, _ int) bool { return y == 60 || y == 66 })
	if got := r.Find(0, 64, 0); got != 66 {
		t.Fatalf("expected 66, got %d", got)
	}
}

func TestFind_DefaultWhenNoFloor(t *testing.T) {
	r := NewResolver(-64, 320, func(int, int, int, int) bool { return false })
	if got := r.Find(5, 70, 5); got != 68 {
		t.Fatalf("expected y-2=68, got %d", got)
	}
}

func TestFind_RespectsWorldBounds(t *testing.T) {
	var lo, hi = 1 << 30, -(1 << 30)
	r := NewResolver(0, 100, func(_, _, y, _ int) bool {
		lo = min(lo, y)
		hi = max(hi, y)
		return false
	})
	r.Find(0, 10, 0)
	if lo != 0 || hi != 74 {
		t.Fatalf("tested range [%d,%d], want [0,74]", lo, hi)
	}
}

func TestFindWithin_NilPredicateIsAlways(t *testing.T) {
	var r Resolver
	if got := r.FindWithin(0, 12, 0, 0, 20, -1); got != 12 {
		t.Fatalf("expected start height, got %d", got)
	}
}

type column map[int]catalogs.BlockDef

func (c column) BlockDefAt(_, y, _ int) catalogs.BlockDef {
	if d, ok := c[y]; ok {
		return d
	}
	return catalogs.BlockDef{ID: "AIR", Passable: true}
}

func TestClassifier_FloorBlocks(t *testing.T) {
	cat := catalogs.DefaultBlocks()
	c := NewClassifier(0)
	cases := map[string]bool{
		"STONE":  true,
		"AIR":    false,
		"LEAVES": false,
		"SLAB":   false,
		"STAIRS": false,
		"GLASS":  true,
	}
	for id, want := range cases {
		if got := c.IsFloorBlock(cat.Defs[id]); got != want {
			t.Fatalf("%s: got %v want %v", id, got, want)
		}
	}
}

func TestClassifier_CacheBoundedAndValueKeyed(t *testing.T) {
	c := NewClassifier(2)
	a := catalogs.BlockDef{ID: "A", CollisionBoxes: 1, CollisionVolume: 1, BoundingVolume: 1}
	c.IsFloorBlock(a)
	c.IsFloorBlock(catalogs.BlockDef{ID: "A", CollisionBoxes: 1, CollisionVolume: 1, BoundingVolume: 1})
	if c.Len() != 1 {
		t.Fatalf("equal defs must share an entry, len=%d", c.Len())
	}
	c.IsFloorBlock(catalogs.BlockDef{ID: "B"})
	c.IsFloorBlock(catalogs.BlockDef{ID: "C"})
	if c.Len() != 2 {
		t.Fatalf("cache must stop growing at its bound, len=%d", c.Len())
	}
	if !c.IsFloorBlock(catalogs.BlockDef{ID: "D", CollisionBoxes: 1, CollisionVolume: 1, BoundingVolume: 1}) {
		t.Fatalf("uncached lookups still classify")
	}
}

func TestSurfacePredicate_ExposedFace(t *testing.T) {
	stone := catalogs.DefaultBlocks().Defs["STONE"]
	col := column{10: stone, 11: stone, 12: stone}
	p := NewClassifier(0).SurfacePredicate(col)
	if p(0, 0, 11, 0) {
		t.Fatalf("buried block is not a floor")
	}
	if !p(0, 0, 12, 0) || !p(0, 0, 10, 0) {
		t.Fatalf("top and bottom of the stack are floors")
	}
	if p(0, 0, 13, 0) {
		t.Fatalf("air is not a floor")
	}
	r := NewResolver(-64, 320, p)
	if got := r.Find(0, 20, 0); got != 12 {
		t.Fatalf("expected surface 12, got %d", got)
	}
}

func TestSolidTopAndPartialShape(t *testing.T) {
	cat := catalogs.DefaultBlocks()
	col := column{5: cat.Defs["STONE"], 6: cat.Defs["SLAB"]}
	st := SolidTopPredicate(col)
	if st(0, 0, 5, 0) {
		t.Fatalf("stone under a slab has no open top")
	}
	if !st(0, 0, 6, 0) {
		t.Fatalf("slab under air has an open top")
	}
	ps := PartialShapePredicate(col)
	if ps(0, 0, 5, 0) {
		t.Fatalf("full cube is not partial")
	}
	if !ps(0, 0, 6, 0) || !ps(0, 0, 7, 0) {
		t.Fatalf("slab and air are partial")
	}
}
