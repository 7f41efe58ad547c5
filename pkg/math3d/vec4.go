package math3d

// Vec4 is a homogeneous coordinate.
type Vec4 struct {
	X, Y, Z, W float64
}

// V4 creates a new Vec4.
func V4(x, y, z, w float64) Vec4 {
	return Vec4{x, y, z, w}
}

// Point lifts a position into homogeneous space (w=1).
func Point(v Vec3) Vec4 {
	return Vec4{v.X, v.Y, v.Z, 1}
}

// Vec3 drops the W component.
func (v Vec4) Vec3() Vec3 {
	return Vec3{v.X, v.Y, v.Z}
}

// PerspectiveDivide returns the Cartesian point x/w, y/w, z/w.
// Callers must reject near-zero W themselves.
func (v Vec4) PerspectiveDivide() Vec3 {
	return Vec3{v.X / v.W, v.Y / v.W, v.Z / v.W}
}
