package math3d

import "math"

// DegenerateEpsilon is the minimum absolute doubled triangle area accepted
// by Barycentric.
const DegenerateEpsilon = 1e-8

// Barycentric returns the weights of p with respect to the triangle a, b, c.
// The weights sum to one. A degenerate triangle yields (-1, -1, -1), which
// callers treat as "not covered".
func Barycentric(p, a, b, c Vec2) (alpha, beta, gamma float64) {
	den := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if math.Abs(den) < DegenerateEpsilon {
		return -1, -1, -1
	}
	alpha = ((b.Y-c.Y)*(p.X-c.X) + (c.X-b.X)*(p.Y-c.Y)) / den
	beta = ((c.Y-a.Y)*(p.X-c.X) + (a.X-c.X)*(p.Y-c.Y)) / den
	gamma = 1 - alpha - beta
	return alpha, beta, gamma
}
