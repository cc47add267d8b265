package geom

// Vec3i is an immutable integer world coordinate.
type Vec3i struct {
	X int
	Y int
	Z int
}

func V(x, y, z int) Vec3i { return Vec3i{X: x, Y: y, Z: z} }

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func FromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

// Offset returns v moved by (dx, dy, dz).
func (v Vec3i) Offset(dx, dy, dz int) Vec3i {
	return Vec3i{X: v.X + dx, Y: v.Y + dy, Z: v.Z + dz}
}

func (v Vec3i) Add(o Vec3i) Vec3i {
	return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3i) Sub(o Vec3i) Vec3i {
	return Vec3i{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3i) Neg() Vec3i {
	return Vec3i{X: -v.X, Y: -v.Y, Z: -v.Z}
}

func (v Vec3i) Dot(o Vec3i) int {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3i) Cross(o Vec3i) Vec3i {
	return Vec3i{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3i) IsZero() bool { return v == Vec3i{} }

// DistanceSquared never takes a square root; all distance thresholds in the
// system are expressed squared.
func (v Vec3i) DistanceSquared(o Vec3i) int {
	dx := v.X - o.X
	dy := v.Y - o.Y
	dz := v.Z - o.Z
	return dx*dx + dy*dy + dz*dz
}

// ChunkXZ returns the 16x16 column containing v.
func (v Vec3i) ChunkXZ() (cx, cz int) {
	return v.X >> 4, v.Z >> 4
}

func Manhattan(a, b Vec3i) int {
	return AbsInt(a.X-b.X) + AbsInt(a.Y-b.Y) + AbsInt(a.Z-b.Z)
}
