package geom

// Box is an axis-aligned integer region, inclusive on every bound.
// Min <= Max holds per axis for any Box built with NewBox.
type Box struct {
	Min Vec3i
	Max Vec3i
}

// NewBox takes the per-axis min/max of two corners; argument order does not matter.
func NewBox(a, b Vec3i) Box {
	return Box{
		Min: Vec3i{X: min(a.X, b.X), Y: min(a.Y, b.Y), Z: min(a.Z, b.Z)},
		Max: Vec3i{X: max(a.X, b.X), Y: max(a.Y, b.Y), Z: max(a.Z, b.Z)},
	}
}

// Around returns the cube of the given radius centered on c.
func Around(c Vec3i, radius int) Box {
	return NewBox(c.Offset(-radius, -radius, -radius), c.Offset(radius, radius, radius))
}

// Length is the X extent.
func (b Box) Length() int { return b.Max.X - b.Min.X }

// Width is the Z extent.
func (b Box) Width() int { return b.Max.Z - b.Min.Z }

// Height is the Y extent.
func (b Box) Height() int { return b.Max.Y - b.Min.Y }

func (b Box) Contains(p Vec3i) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Contains2D ignores Y.
func (b Box) Contains2D(p Vec3i) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// ContainsBox reports whether o lies entirely within b.
func (b Box) ContainsBox(o Box) bool {
	return b.Contains(o.Min) && b.Contains(o.Max)
}

func (b Box) Intersects(o Box) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// Intersection returns the shared region. ok is false when the boxes do not
// overlap on some axis; the returned Box is then the zero value and must not be used.
func (b Box) Intersection(o Box) (Box, bool) {
	lo := Vec3i{X: max(b.Min.X, o.Min.X), Y: max(b.Min.Y, o.Min.Y), Z: max(b.Min.Z, o.Min.Z)}
	hi := Vec3i{X: min(b.Max.X, o.Max.X), Y: min(b.Max.Y, o.Max.Y), Z: min(b.Max.Z, o.Max.Z)}
	if lo.X > hi.X || lo.Y > hi.Y || lo.Z > hi.Z {
		return Box{}, false
	}
	return Box{Min: lo, Max: hi}, true
}

// Clamp moves p onto the nearest point inside b.
func (b Box) Clamp(p Vec3i) Vec3i {
	return Vec3i{
		X: min(max(p.X, b.Min.X), b.Max.X),
		Y: min(max(p.Y, b.Min.Y), b.Max.Y),
		Z: min(max(p.Z, b.Min.Z), b.Max.Z),
	}
}
