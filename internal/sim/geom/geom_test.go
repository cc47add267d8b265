package geom

import "testing"

func TestVecArithmeticDoesNotMutate(t *testing.T) {
	a := V(1, 2, 3)
	b := a.Offset(1, 1, 1)
	if a != V(1, 2, 3) {
		t.Fatalf("offset mutated receiver: %+v", a)
	}
	if b != V(2, 3, 4) {
		t.Fatalf("offset=%+v want (2,3,4)", b)
	}
	if got := b.Sub(a); got != V(1, 1, 1) {
		t.Fatalf("sub=%+v", got)
	}
	if got := a.Add(b); got != V(3, 5, 7) {
		t.Fatalf("add=%+v", got)
	}
	if got := a.Dot(b); got != 2+6+12 {
		t.Fatalf("dot=%d", got)
	}
	if got := V(1, 0, 0).Cross(V(0, 1, 0)); got != V(0, 0, 1) {
		t.Fatalf("cross=%+v want z axis", got)
	}
	if got := V(0, 0, 0).DistanceSquared(V(3, 4, 12)); got != 169 {
		t.Fatalf("distance squared=%d want 169", got)
	}
}

func TestTripleProductAntisymmetry(t *testing.T) {
	vs := []Vec3i{V(1, 2, 3), V(-4, 0, 7), V(5, -6, 2), V(0, 9, -1), V(13, 1, 1)}
	for _, a := range vs {
		for _, b := range vs {
			for _, c := range vs {
				abc := a.Cross(b).Dot(c)
				if bac := b.Cross(a).Dot(c); bac != -abc {
					t.Fatalf("swap(a,b): %d vs %d", bac, abc)
				}
				if acb := a.Cross(c).Dot(b); acb != -abc {
					t.Fatalf("swap(b,c): %d vs %d", acb, abc)
				}
				if cba := c.Cross(b).Dot(a); cba != -abc {
					t.Fatalf("swap(a,c): %d vs %d", cba, abc)
				}
			}
		}
	}
}

func TestNewBoxOrderIndependent(t *testing.T) {
	a, b := V(5, -2, 9), V(-1, 4, 3)
	if NewBox(a, b) != NewBox(b, a) {
		t.Fatalf("box depends on corner order")
	}
	box := NewBox(a, b)
	if box.Min != V(-1, -2, 3) || box.Max != V(5, 4, 9) {
		t.Fatalf("box=%+v", box)
	}
	if box.Length() != 6 || box.Height() != 6 || box.Width() != 6 {
		t.Fatalf("extents=%d,%d,%d", box.Length(), box.Height(), box.Width())
	}
}

func TestBoxContains(t *testing.T) {
	box := NewBox(V(0, 0, 0), V(10, 5, 10))
	if !box.Contains(V(0, 0, 0)) || !box.Contains(V(10, 5, 10)) {
		t.Fatalf("contains should be inclusive")
	}
	if box.Contains(V(5, 6, 5)) {
		t.Fatalf("point above box should not be contained")
	}
	if !box.Contains2D(V(5, 600, 5)) {
		t.Fatalf("contains2d should ignore y")
	}
	if box.Contains2D(V(11, 0, 5)) {
		t.Fatalf("contains2d should still check x")
	}
}

func TestIntersection(t *testing.T) {
	boxes := []Box{
		NewBox(V(0, 0, 0), V(10, 10, 10)),
		NewBox(V(5, 5, 5), V(15, 15, 15)),
		NewBox(V(10, 0, 10), V(20, 0, 20)),
		NewBox(V(11, 0, 0), V(12, 10, 10)),
		NewBox(V(-5, -5, -5), V(-1, -1, -1)),
		NewBox(V(3, 3, 3), V(3, 3, 3)),
	}
	for i, a := range boxes {
		for j, b := range boxes {
			got, ok := a.Intersection(b)
			rev, revOK := b.Intersection(a)
			if ok != revOK || got != rev {
				t.Fatalf("intersection not symmetric for %d,%d", i, j)
			}
			empty := max(a.Min.X, b.Min.X) > min(a.Max.X, b.Max.X) ||
				max(a.Min.Y, b.Min.Y) > min(a.Max.Y, b.Max.Y) ||
				max(a.Min.Z, b.Min.Z) > min(a.Max.Z, b.Max.Z)
			if ok == empty {
				t.Fatalf("intersection(%d,%d) ok=%v empty=%v", i, j, ok, empty)
			}
			if ok != a.Intersects(b) {
				t.Fatalf("intersects disagrees with intersection for %d,%d", i, j)
			}
			if !ok {
				continue
			}
			want := Box{
				Min: V(max(a.Min.X, b.Min.X), max(a.Min.Y, b.Min.Y), max(a.Min.Z, b.Min.Z)),
				Max: V(min(a.Max.X, b.Max.X), min(a.Max.Y, b.Max.Y), min(a.Max.Z, b.Max.Z)),
			}
			if got != want {
				t.Fatalf("intersection(%d,%d)=%+v want %+v", i, j, got, want)
			}
		}
	}
}

func TestContainsBoxAndClamp(t *testing.T) {
	outer := NewBox(V(0, 0, 0), V(10, 10, 10))
	if !outer.ContainsBox(NewBox(V(1, 1, 1), V(10, 10, 10))) {
		t.Fatalf("inner box should be contained")
	}
	if outer.ContainsBox(NewBox(V(1, 1, 1), V(11, 10, 10))) {
		t.Fatalf("overhanging box should not be contained")
	}
	if got := outer.Clamp(V(-3, 5, 40)); got != V(0, 5, 10) {
		t.Fatalf("clamp=%+v", got)
	}
}

func TestChunkXZ(t *testing.T) {
	cx, cz := V(-1, 0, 31).ChunkXZ()
	if cx != -1 || cz != 1 {
		t.Fatalf("chunk=(%d,%d) want (-1,1)", cx, cz)
	}
}
