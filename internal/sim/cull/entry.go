package cull

import "claimviz.ai/internal/sim/geom"

// Entry is a normalized segment. From/To are ordered by x, then y, then z, so
// the same segment walked in either direction yields an identical Entry. Dir is
// the displacement reduced by the GCD of its components; points have a zero Dir.
type Entry struct {
	From geom.Vec3i
	To   geom.Vec3i
	Dir  geom.Vec3i
}

func EntryOf(from, to geom.Vec3i) Entry {
	if from == to {
		return Entry{From: from, To: to}
	}
	if shouldSwap(from, to) {
		from, to = to, from
	}
	d := to.Sub(from)
	g := geom.GCD3(geom.AbsInt(d.X), geom.AbsInt(d.Y), geom.AbsInt(d.Z))
	return Entry{
		From: from,
		To:   to,
		Dir:  geom.V(d.X/g, d.Y/g, d.Z/g),
	}
}

func (e Entry) IsPoint() bool { return e.From == e.To }

func shouldSwap(from, to geom.Vec3i) bool {
	if from.X != to.X {
		return from.X > to.X
	}
	if from.Y != to.Y {
		return from.Y > to.Y
	}
	return from.Z > to.Z
}
