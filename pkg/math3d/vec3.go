// Package math3d provides the vector and matrix primitives used by the glint
// rasterizer. Matrices are column-major and follow OpenGL conventions.
package math3d

import "math"

// Epsilon is the length below which a vector is treated as degenerate.
const Epsilon = 1e-6

// Vec3 represents a 3D vector, a point, or an RGB triple.
type Vec3 struct {
	X, Y, Z float64
}

// V3 creates a new Vec3.
func V3(x, y, z float64) Vec3 {
	return Vec3{x, y, z}
}

// Splat returns a vector with all components set to s.
func Splat(s float64) Vec3 {
	return Vec3{s, s, s}
}

// Add returns the vector sum a + b.
func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

// Sub returns the vector difference a - b.
func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

// Mul returns the component-wise product a * b.
func (a Vec3) Mul(b Vec3) Vec3 {
	return Vec3{a.X * b.X, a.Y * b.Y, a.Z * b.Z}
}

// DivVec returns the component-wise quotient a / b.
func (a Vec3) DivVec(b Vec3) Vec3 {
	return Vec3{a.X / b.X, a.Y / b.Y, a.Z / b.Z}
}

// Scale returns the scalar product a * s.
func (a Vec3) Scale(s float64) Vec3 {
	return Vec3{a.X * s, a.Y * s, a.Z * s}
}

// Div returns the scalar division a / s.
func (a Vec3) Div(s float64) Vec3 {
	return Vec3{a.X / s, a.Y / s, a.Z / s}
}

// AddScalar adds s to every component.
func (a Vec3) AddScalar(s float64) Vec3 {
	return Vec3{a.X + s, a.Y + s, a.Z + s}
}

// Dot returns the dot product a · b.
func (a Vec3) Dot(b Vec3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// Cross returns the cross product a × b.
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

// Len returns the length of the vector.
func (a Vec3) Len() float64 {
	return math.Sqrt(a.X*a.X + a.Y*a.Y + a.Z*a.Z)
}

// LenSq returns the squared length.
func (a Vec3) LenSq() float64 {
	return a.X*a.X + a.Y*a.Y + a.Z*a.Z
}

// Normalize returns the unit vector in the same direction, or the zero
// vector when a is degenerate.
func (a Vec3) Normalize() Vec3 {
	return a.NormalizeOr(Vec3{})
}

// NormalizeOr returns the unit vector in the same direction, or fallback
// when the length is below Epsilon.
func (a Vec3) NormalizeOr(fallback Vec3) Vec3 {
	l := a.Len()
	if l < Epsilon || math.IsNaN(l) {
		return fallback
	}
	return Vec3{a.X / l, a.Y / l, a.Z / l}
}

// Negate returns the negated vector.
func (a Vec3) Negate() Vec3 {
	return Vec3{-a.X, -a.Y, -a.Z}
}

// Lerp returns the linear interpolation between a and b by t.
func (a Vec3) Lerp(b Vec3, t float64) Vec3 {
	return Vec3{
		a.X + (b.X-a.X)*t,
		a.Y + (b.Y-a.Y)*t,
		a.Z + (b.Z-a.Z)*t,
	}
}

// Distance returns the distance between two points.
func (a Vec3) Distance(b Vec3) float64 {
	return a.Sub(b).Len()
}

// Min returns the component-wise minimum.
func (a Vec3) Min(b Vec3) Vec3 {
	return Vec3{math.Min(a.X, b.X), math.Min(a.Y, b.Y), math.Min(a.Z, b.Z)}
}

// Max returns the component-wise maximum.
func (a Vec3) Max(b Vec3) Vec3 {
	return Vec3{math.Max(a.X, b.X), math.Max(a.Y, b.Y), math.Max(a.Z, b.Z)}
}

// Clamp limits every component to [lo, hi].
func (a Vec3) Clamp(lo, hi float64) Vec3 {
	return Vec3{Clamp(a.X, lo, hi), Clamp(a.Y, lo, hi), Clamp(a.Z, lo, hi)}
}

// Mean returns the average of the three components.
func (a Vec3) Mean() float64 {
	return (a.X + a.Y + a.Z) / 3
}

// Pow raises every component to p.
func (a Vec3) Pow(p float64) Vec3 {
	return Vec3{math.Pow(a.X, p), math.Pow(a.Y, p), math.Pow(a.Z, p)}
}

// IsFinite reports whether no component is NaN or infinite.
func (a Vec3) IsFinite() bool {
	return !math.IsNaN(a.X) && !math.IsNaN(a.Y) && !math.IsNaN(a.Z) &&
		!math.IsInf(a.X, 0) && !math.IsInf(a.Y, 0) && !math.IsInf(a.Z, 0)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Blend3 returns the barycentric combination a*wa + b*wb + c*wc.
func Blend3(a, b, c Vec3, wa, wb, wc float64) Vec3 {
	return Vec3{
		a.X*wa + b.X*wb + c.X*wc,
		a.Y*wa + b.Y*wb + c.Y*wc,
		a.Z*wa + b.Z*wb + c.Z*wc,
	}
}
