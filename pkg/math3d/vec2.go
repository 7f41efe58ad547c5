package math3d

// Vec2 is a 2D vector, used for texture coordinates and screen positions.
type Vec2 struct {
	X, Y float64
}

// V2 creates a new Vec2.
func V2(x, y float64) Vec2 {
	return Vec2{x, y}
}

// Add returns a + b.
func (a Vec2) Add(b Vec2) Vec2 {
	return Vec2{a.X + b.X, a.Y + b.Y}
}

// Sub returns a - b.
func (a Vec2) Sub(b Vec2) Vec2 {
	return Vec2{a.X - b.X, a.Y - b.Y}
}

// Scale returns a * s.
func (a Vec2) Scale(s float64) Vec2 {
	return Vec2{a.X * s, a.Y * s}
}

// Blend2 returns the barycentric combination a*wa + b*wb + c*wc.
func Blend2(a, b, c Vec2, wa, wb, wc float64) Vec2 {
	return Vec2{
		a.X*wa + b.X*wb + c.X*wc,
		a.Y*wa + b.Y*wb + c.Y*wc,
	}
}
