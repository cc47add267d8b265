// Package discretize turns a claim box into the marker coordinates or line
// segments that outline it inside a viewer's display zone.
package discretize

import "claimviz.ai/internal/sim/geom"

// TwoDHeight is the top Y of a claim that spans the full world height.
const TwoDHeight = 2147483647

// IsFlat reports whether area renders as a floor-projected square rather than
// a cube: full-height claims and zero-height slabs are flat.
func IsFlat(area geom.Box, twoDHeight int) bool {
	if twoDHeight == 0 {
		twoDHeight = TwoDHeight
	}
	return area.Max.Y >= twoDHeight || area.Height() == 0
}

// Params configures one marker walk.
type Params struct {
	Step int
	// Zone is the viewer's display zone; markers outside it in X/Z are dropped.
	Zone geom.Box
	// Loaded reports whether the column at (x, z) may be inspected. Nil means always.
	Loaded func(x, z int) bool
	// Floor resolves the Y for a flat outline column. Nil keeps Height.
	Floor func(x, y, z int) int
	// Height is the reference Y for flat outlines.
	Height int
	Flat   bool
}

func (p Params) floor(x, z int) int {
	if p.Floor == nil {
		return p.Height
	}
	return p.Floor(x, p.Height, z)
}

// Markers walks the outline of area. Corners are passed to corner before any
// side marker is passed to side, so a first-wins collector keeps corners.
// It returns false when area lies entirely outside the display zone.
func Markers(area geom.Box, p Params, corner, side func(geom.Vec3i)) bool {
	zone, ok := p.Zone.Intersection(area)
	if !ok {
		return false
	}
	step := p.Step
	if step <= 0 {
		step = 1
	}
	visible := func(emit func(geom.Vec3i)) func(geom.Vec3i) {
		return func(v geom.Vec3i) {
			if !zone.Contains2D(v) {
				return
			}
			if p.Loaded != nil && !p.Loaded(v.X, v.Z) {
				return
			}
			emit(v)
		}
	}
	c, s := visible(corner), visible(side)
	if p.Flat {
		flatMarkers(area, zone, step, p, c, s)
	} else {
		cubeMarkers(area, zone, step, c, s)
	}
	return true
}

func cubeMarkers(a, zone geom.Box, step int, corner, side func(geom.Vec3i)) {
	minX, minY, minZ := a.Min.X, a.Min.Y, a.Min.Z
	maxX, maxY, maxZ := a.Max.X, a.Max.Y, a.Max.Z

	for _, y := range [2]int{maxY, minY} {
		corner(geom.V(minX, y, maxZ))
		corner(geom.V(maxX, y, maxZ))
		corner(geom.V(minX, y, minZ))
		corner(geom.V(maxX, y, minZ))
	}

	for x := max(minX+step, zone.Min.X); x < maxX-step/2 && x < zone.Max.X; x += step {
		side(geom.V(x, maxY, maxZ))
		side(geom.V(x, maxY, minZ))
		side(geom.V(x, minY, maxZ))
		side(geom.V(x, minY, minZ))
	}
	for z := max(minZ+step, zone.Min.Z); z < maxZ-step/2 && z < zone.Max.Z; z += step {
		side(geom.V(minX, maxY, z))
		side(geom.V(maxX, maxY, z))
		side(geom.V(minX, minY, z))
		side(geom.V(maxX, minY, z))
	}

	if a.Length() > 2 {
		for _, y := range [2]int{maxY, minY} {
			side(geom.V(minX+1, y, maxZ))
			side(geom.V(minX+1, y, minZ))
			side(geom.V(maxX-1, y, maxZ))
			side(geom.V(maxX-1, y, minZ))
		}
	}
	if a.Width() > 2 {
		for _, y := range [2]int{maxY, minY} {
			side(geom.V(minX, y, minZ+1))
			side(geom.V(maxX, y, minZ+1))
			side(geom.V(minX, y, maxZ-1))
			side(geom.V(maxX, y, maxZ-1))
		}
	}

	for y := max(minY+step, zone.Min.Y); y < maxY-step/2 && y < zone.Max.Y; y += step {
		side(geom.V(minX, y, maxZ))
		side(geom.V(maxX, y, minZ))
		side(geom.V(minX, y, minZ))
		side(geom.V(maxX, y, maxZ))
	}
	if a.Height() > 2 {
		for _, y := range [2]int{maxY - 1, minY + 1} {
			side(geom.V(minX, y, minZ))
			side(geom.V(maxX, y, minZ))
			side(geom.V(minX, y, maxZ))
			side(geom.V(maxX, y, maxZ))
		}
	}
}

func flatMarkers(a, zone geom.Box, step int, p Params, corner, side func(geom.Vec3i)) {
	minX, minZ := a.Min.X, a.Min.Z
	maxX, maxZ := a.Max.X, a.Max.Z

	// Corner heights are resolved once and reused by their adjacent markers.
	minMax := p.floor(minX, maxZ)
	maxMin := p.floor(maxX, minZ)
	maxMax := p.floor(maxX, maxZ)
	minMin := p.floor(minX, minZ)

	corner(geom.V(minX, minMax, maxZ))
	corner(geom.V(maxX, maxMax, maxZ))
	corner(geom.V(minX, minMin, minZ))
	corner(geom.V(maxX, maxMin, minZ))

	for x := max(minX+step, zone.Min.X); x < maxX-step/2 && x < zone.Max.X; x += step {
		side(geom.V(x, p.floor(x, maxZ), maxZ))
		side(geom.V(x, p.floor(x, minZ), minZ))
	}
	for z := max(minZ+step, zone.Min.Z); z < maxZ-step/2 && z < zone.Max.Z; z += step {
		side(geom.V(minX, p.floor(minX, z), z))
		side(geom.V(maxX, p.floor(maxX, z), z))
	}

	if a.Length() > 2 {
		side(geom.V(minX+1, minMax, maxZ))
		side(geom.V(minX+1, minMin, minZ))
		side(geom.V(maxX-1, maxMax, maxZ))
		side(geom.V(maxX-1, maxMin, minZ))
	}
	if a.Width() > 2 {
		side(geom.V(minX, minMin, minZ+1))
		side(geom.V(maxX, maxMin, minZ+1))
		side(geom.V(minX, minMax, maxZ-1))
		side(geom.V(maxX, maxMax, maxZ-1))
	}
}
