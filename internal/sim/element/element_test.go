package element

import (
	"errors"
	"math"
	"testing"

	"claimviz.ai/internal/sim/geom"
)

type fakeResources struct {
	ids      *IDAllocator
	spawned  []Spec
	released [][]Handle
	failAt   int
}

func newFake() *fakeResources { return &fakeResources{ids: NewIDAllocator(), failAt: -1} }

func (f *fakeResources) Materialize(viewer string, s Spec) (Handle, error) {
	if f.failAt >= 0 && len(f.spawned) == f.failAt {
		return Handle{}, errors.New("boom")
	}
	f.spawned = append(f.spawned, s)
	return Handle{ID: f.ids.Next()}, nil
}

func (f *fakeResources) Release(viewer string, hs []Handle) {
	f.released = append(f.released, hs)
}

func marker(x, y, z int) Spec {
	return Spec{Kind: KindEntity, From: geom.V(x, y, z), Style: Style{Material: "GLOWSTONE"}}
}

func TestDrawEraseIdempotent(t *testing.T) {
	res := newFake()
	e := New("alice", marker(1, 2, 3))
	if _, ok := e.Handle(); ok {
		t.Fatalf("fresh element has no handle")
	}
	e.Erase(res)
	if len(res.released) != 0 {
		t.Fatalf("erasing an undrawn element must not release anything")
	}
	if err := e.Draw(res); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if err := e.Draw(res); err != nil {
		t.Fatalf("draw again: %v", err)
	}
	if len(res.spawned) != 1 {
		t.Fatalf("second draw must be a no-op, spawned=%d", len(res.spawned))
	}
	h, ok := e.Handle()
	if !ok || h.ID != math.MinInt32 {
		t.Fatalf("handle=%+v ok=%v", h, ok)
	}
	e.Erase(res)
	e.Erase(res)
	if len(res.released) != 1 || res.released[0][0] != h {
		t.Fatalf("released=%v", res.released)
	}
	if _, ok := e.Handle(); ok || e.Drawn() {
		t.Fatalf("erased element keeps no handle")
	}
}

func TestDrawFailureLeavesUndrawn(t *testing.T) {
	res := newFake()
	res.failAt = 0
	e := New("alice", marker(0, 0, 0))
	if err := e.Draw(res); err == nil {
		t.Fatalf("expected failure")
	}
	if e.Drawn() {
		t.Fatalf("failed draw must not mark drawn")
	}
}

func TestKeyIgnoresStyle(t *testing.T) {
	a := New("alice", Spec{Kind: KindBlock, From: geom.V(1, 1, 1), To: geom.V(9, 9, 9), Style: Style{Material: "A"}})
	b := New("alice", Spec{Kind: KindBlock, From: geom.V(1, 1, 1), Style: Style{Material: "B"}})
	if a.Key() != b.Key() {
		t.Fatalf("point elements with equal coordinates must share a key")
	}
	c := New("bob", marker(1, 1, 1))
	if c.Key() == New("alice", marker(1, 1, 1)).Key() {
		t.Fatalf("different viewers must not share a key")
	}
}

func TestCoordSetFirstWins(t *testing.T) {
	s := NewCoordSet()
	corner := New("alice", Spec{Kind: KindBlock, From: geom.V(0, 0, 0), Style: Style{Material: "CORNER"}})
	side := New("alice", Spec{Kind: KindBlock, From: geom.V(0, 0, 0), Style: Style{Material: "SIDE"}})
	if !s.Add(corner) || s.Add(side) {
		t.Fatalf("first add wins, second is dropped")
	}
	if s.At(geom.V(0, 0, 0)).Spec().Style.Material != "CORNER" || s.Len() != 1 {
		t.Fatalf("corner should be kept")
	}
}

func TestEraseAllBatches(t *testing.T) {
	res := newFake()
	s := NewCoordSet()
	for i := 0; i < 3; i++ {
		s.Add(New("alice", marker(i, 0, 0)))
	}
	if err := DrawAll(res, s.Elements()); err != nil {
		t.Fatalf("draw: %v", err)
	}
	first, _ := s.Elements()[0].Handle()
	if got := s.ByHandleID(first.ID); got != s.Elements()[0] {
		t.Fatalf("lookup by handle id failed")
	}
	EraseAll(res, "alice", s.Elements())
	if len(res.released) != 1 || len(res.released[0]) != 3 {
		t.Fatalf("expected one batch of 3, got %v", res.released)
	}
	EraseAll(res, "alice", s.Elements())
	if len(res.released) != 1 {
		t.Fatalf("second EraseAll must be a no-op")
	}
}

func TestDrawAllStopsAtFailure(t *testing.T) {
	res := newFake()
	res.failAt = 1
	elems := []*Element{New("a", marker(0, 0, 0)), New("a", marker(1, 0, 0)), New("a", marker(2, 0, 0))}
	if err := DrawAll(res, elems); err == nil {
		t.Fatalf("expected failure")
	}
	if !elems[0].Drawn() || elems[1].Drawn() || elems[2].Drawn() {
		t.Fatalf("unexpected drawn states")
	}
}

func line(from, to geom.Vec3i) *Element {
	return New("alice", Spec{Kind: KindLine, From: from, To: to})
}

func TestLineSetCulls(t *testing.T) {
	s := NewLineSet()
	s.Add(line(geom.V(0, 0, 0), geom.V(10, 0, 0)))
	s.Add(line(geom.V(2, 0, 0), geom.V(5, 0, 0)))  // contained
	s.Add(line(geom.V(10, 0, 0), geom.V(0, 0, 0))) // same segment reversed
	s.Add(line(geom.V(0, 0, 0), geom.V(0, 0, 10)))
	s.Add(line(geom.V(0, 0, 0), geom.V(10, 0, 0))) // exact repeat, dropped on add
	if s.Len() != 4 {
		t.Fatalf("exact repeat should be dropped, len=%d", s.Len())
	}
	got := s.Culled()
	if len(got) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(got))
	}
	if got[1].Spec().To != geom.V(0, 0, 10) {
		t.Fatalf("perpendicular edge must survive: %+v", got[1].Spec())
	}
}

func TestPartitionEraseOneGroup(t *testing.T) {
	res := newFake()
	p := NewPartition[string]()
	a := []*Element{New("alice", marker(0, 0, 0)), New("alice", marker(1, 0, 0))}
	b := []*Element{New("alice", marker(5, 0, 0))}
	p.Put("a", a)
	p.Put("b", b)
	if err := DrawAll(res, p.All()); err != nil {
		t.Fatalf("draw: %v", err)
	}
	p.Erase(res, "alice", "a")
	if a[0].Drawn() || a[1].Drawn() || !b[0].Drawn() {
		t.Fatalf("erasing group a must leave group b drawn")
	}
	if p.Len() != 1 || len(p.All()) != 1 {
		t.Fatalf("group a should be gone")
	}
	p.Erase(res, "alice", "a")
	if len(res.released) != 1 {
		t.Fatalf("erasing a missing group is a no-op")
	}
}

func TestIDAllocatorWraps(t *testing.T) {
	a := NewIDAllocator()
	if got := a.Next(); got != math.MinInt32 {
		t.Fatalf("first id %d", got)
	}
	if got := a.Next(); got != math.MinInt32+1 {
		t.Fatalf("second id %d", got)
	}
}
