package discretize

import "claimviz.ai/internal/sim/geom"

// LineParams configures the line outline of one boundary.
type LineParams struct {
	Step2D int
	Step3D int
	Zone   geom.Box
	Flat   bool
	// Y is the plane flat outlines are drawn on.
	Y int
}

// Lines emits the outline of area as stepped segments: the four edges of a
// flat square at Y, or the twelve edges of a cube.
func Lines(area geom.Box, p LineParams, emit func(from, to geom.Vec3i)) {
	minX, minY, minZ := area.Min.X, area.Min.Y, area.Min.Z
	maxX, maxY, maxZ := area.Max.X, area.Max.Y, area.Max.Z

	if p.Flat {
		y := p.Y
		line := func(from, to geom.Vec3i) { SteppedLine(p.Zone, p.Step2D, from, to, emit) }
		line(geom.V(minX, y, minZ), geom.V(maxX, y, minZ))
		line(geom.V(maxX, y, minZ), geom.V(maxX, y, maxZ))
		line(geom.V(maxX, y, maxZ), geom.V(minX, y, maxZ))
		line(geom.V(minX, y, maxZ), geom.V(minX, y, minZ))
		return
	}

	line := func(from, to geom.Vec3i) { SteppedLine(p.Zone, p.Step3D, from, to, emit) }
	for _, y := range [2]int{minY, maxY} {
		line(geom.V(minX, y, minZ), geom.V(maxX, y, minZ))
		line(geom.V(maxX, y, minZ), geom.V(maxX, y, maxZ))
		line(geom.V(maxX, y, maxZ), geom.V(minX, y, maxZ))
		line(geom.V(minX, y, maxZ), geom.V(minX, y, minZ))
	}
	line(geom.V(minX, minY, minZ), geom.V(minX, maxY, minZ))
	line(geom.V(maxX, minY, minZ), geom.V(maxX, maxY, minZ))
	line(geom.V(maxX, minY, maxZ), geom.V(maxX, maxY, maxZ))
	line(geom.V(minX, minY, maxZ), geom.V(minX, maxY, maxZ))
}

// SteppedLine splits from->to into segments of at most step blocks after
// clipping it to zone. A segment that collapses to a point is emitted as a
// point; a segment outside zone emits nothing. Only axis-aligned segments are
// stepped, others are emitted whole.
func SteppedLine(zone geom.Box, step int, from, to geom.Vec3i, emit func(from, to geom.Vec3i)) {
	span := geom.NewBox(from, to)
	if !zone.Intersects(span) {
		return
	}
	if !zone.ContainsBox(span) {
		clipped, _ := zone.Intersection(span)
		from, to = clipped.Min, clipped.Max
	}
	if from == to {
		emit(from, to)
		return
	}

	d := to.Sub(from)
	axes := 0
	for _, c := range d.ToArray() {
		if c != 0 {
			axes++
		}
	}
	if axes != 1 || step <= 0 {
		emit(from, to)
		return
	}
	dist := geom.AbsInt(d.X + d.Y + d.Z)
	unit := geom.V(sign(d.X), sign(d.Y), sign(d.Z))

	prev := from
	for n := step; n <= dist; n += step {
		next := from.Add(geom.V(unit.X*n, unit.Y*n, unit.Z*n))
		emit(prev, next)
		prev = next
	}
	if prev != to {
		emit(prev, to)
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
