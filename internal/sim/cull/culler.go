// Package cull drops point and segment entries that are already covered by
// another collinear entry. All tests are exact integer arithmetic.
package cull

import "claimviz.ai/internal/sim/geom"

// ShouldCull reports whether entries[i] is covered by some other live entry.
// live may be nil, meaning every entry is live.
func ShouldCull(i int, entries []Entry, live []bool) bool {
	e := entries[i]
	if e.IsPoint() {
		for j, other := range entries {
			if j == i || !isLive(live, j) {
				continue
			}
			if PointOnSegment(e.From, other.From, other.To) {
				return true
			}
		}
		return false
	}

	for j, other := range entries {
		if j == i || !isLive(live, j) {
			continue
		}
		if canCompare(e, other) && contained(e, other) {
			return true
		}
	}
	return false
}

// Cull removes covered entries in order. An entry already removed no longer
// covers later ones, so of two identical entries exactly one survives.
func Cull(entries []Entry) []bool {
	live := make([]bool, len(entries))
	for i := range live {
		live[i] = true
	}
	for i := range entries {
		if ShouldCull(i, entries, live) {
			live[i] = false
		}
	}
	return live
}

func isLive(live []bool, i int) bool {
	return live == nil || live[i]
}

// canCompare: same or opposite direction, sharing the plane coordinates
// orthogonal to the direction's leading axis.
func canCompare(a, b Entry) bool {
	dir := a.Dir
	if dir != b.Dir && dir != b.Dir.Neg() {
		return false
	}
	switch {
	case dir.X != 0:
		return a.From.Y == b.From.Y && a.From.Z == b.From.Z
	case dir.Y != 0:
		return a.From.X == b.From.X && a.From.Z == b.From.Z
	case dir.Z != 0:
		return a.From.X == b.From.X && a.From.Y == b.From.Y
	}
	return false
}

func contained(inner, outer Entry) bool {
	if !collinear(inner, outer) {
		return false
	}
	if inner.IsPoint() {
		return PointOnSegment(inner.From, outer.From, outer.To)
	}
	return PointOnSegment(inner.From, outer.From, outer.To) &&
		PointOnSegment(inner.To, outer.From, outer.To)
}

func collinear(a, b Entry) bool {
	if !a.Dir.Cross(b.Dir).IsZero() {
		return false
	}
	return b.From.Sub(a.From).Cross(a.Dir).IsZero()
}

// PointOnSegment reports whether p lies on the closed segment a-b.
func PointOnSegment(p, a, b geom.Vec3i) bool {
	if p == a || p == b {
		return true
	}
	if a == b {
		// a degenerate segment only covers its own point
		return false
	}
	ab := b.Sub(a)
	ap := p.Sub(a)
	if !ab.Cross(ap).IsZero() {
		return false
	}
	dot := ap.Dot(ab)
	if dot < 0 {
		return false
	}
	return dot <= ab.Dot(ab)
}
