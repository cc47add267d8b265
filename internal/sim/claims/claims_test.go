package claims

import (
	"testing"

	"claimviz.ai/internal/sim/geom"
)

func box(x0, z0, x1, z1 int) geom.Box {
	return geom.NewBox(geom.V(x0, -64, z0), geom.V(x1, 320, z1))
}

func TestSubdivisionInheritsAdmin(t *testing.T) {
	parent := &Claim{ID: "p", World: "w", Admin: true, Area: box(0, 0, 100, 100)}
	sub := &Claim{ID: "s", Area: box(10, 10, 20, 20)}
	parent.AddChild(sub)
	if !sub.IsSubdivision() || !sub.IsAdmin() || sub.World != "w" {
		t.Fatalf("subdivision state: %+v", sub)
	}
	if parent.IsSubdivision() {
		t.Fatalf("parent is not a subdivision")
	}
}

func TestPermissions(t *testing.T) {
	c := &Claim{ID: "c", Owner: "alice"}
	if c.HasAnyExplicitPermission("alice") {
		t.Fatalf("owner has no explicit grant")
	}
	c.Trust("bob", PermissionBuild)
	c.Ban("eve")
	if !c.HasAnyExplicitPermission("bob") || c.HasAnyExplicitPermission("eve") {
		t.Fatalf("trust lookup wrong")
	}
	if !c.IsBanned("eve") || c.IsBanned("bob") {
		t.Fatalf("ban lookup wrong")
	}
	if ValidPermission("ROOT") || !ValidPermission(PermissionManage) {
		t.Fatalf("permission validation wrong")
	}
}

func TestIndexNearbyAndAt(t *testing.T) {
	x := NewIndex()
	a := &Claim{ID: "a", World: "w", Area: box(0, 0, 10, 10)}
	a.AddChild(&Claim{ID: "a1", Area: box(2, 2, 4, 4)})
	x.Put(a)
	x.Put(&Claim{ID: "b", World: "w", Area: box(100, 100, 110, 110)})
	x.Put(&Claim{ID: "c", World: "nether", Area: box(0, 0, 10, 10)})

	got := x.Nearby("w", geom.V(15, 64, 5), 10)
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("nearby: %v", got)
	}
	got = x.Nearby("w", geom.V(50, 64, 50), 60)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("nearby sorted: %v", got)
	}
	if c := x.At("w", geom.V(3, 70, 3)); c == nil || c.ID != "a1" {
		t.Fatalf("at should prefer subdivision, got %v", c)
	}
	if c := x.At("w", geom.V(8, 70, 8)); c == nil || c.ID != "a" {
		t.Fatalf("at: %v", c)
	}
	if x.Get("a1") == nil {
		t.Fatalf("children are indexed")
	}
	x.Remove("a")
	if x.Get("a1") != nil || x.Get("a") != nil {
		t.Fatalf("remove drops children")
	}
}
