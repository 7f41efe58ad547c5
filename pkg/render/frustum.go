package render

import (
	"github.com/taigrr/glint/pkg/math3d"
)

// Plane represents the half-space Normal·p + D >= 0.
type Plane struct {
	Normal math3d.Vec3
	D      float64
}

// Normalize scales the plane equation so the normal has unit length.
func (p *Plane) Normalize() {
	l := p.Normal.Len()
	if l == 0 {
		return
	}
	p.Normal = p.Normal.Scale(1.0 / l)
	p.D /= l
}

// DistanceToPoint returns the signed distance from the plane to a point.
// Positive = inside (same side as normal).
func (p Plane) DistanceToPoint(point math3d.Vec3) float64 {
	return p.Normal.Dot(point) + p.D
}

// Frustum holds the culling planes of a clip matrix. Planes are ordered
// Left, Right, Bottom, Top, Front, with normals pointing inward.
//
// There are no near or far planes: the rasterizer does no depth clipping,
// so geometry outside that range can still produce pixels. Front is the
// w = 0 plane; vertices behind it are discarded by DrawTriangle.
type Frustum struct {
	Planes [5]Plane
}

// Frustum plane indices.
const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumFront
)

// NewFrustum extracts culling planes from a clip matrix with the
// Gribb/Hartmann method. Passing P·V·M yields planes in model space.
func NewFrustum(m math3d.Mat4) Frustum {
	// Row i of column-major m is m[i], m[i+4], m[i+8], m[i+12].
	row := func(i int) (math3d.Vec3, float64) {
		return math3d.V3(m[i], m[i+4], m[i+8]), m[i+12]
	}
	n0, d0 := row(0)
	n1, d1 := row(1)
	n3, d3 := row(3)

	var f Frustum
	f.Planes[FrustumLeft] = Plane{Normal: n3.Add(n0), D: d3 + d0}
	f.Planes[FrustumRight] = Plane{Normal: n3.Sub(n0), D: d3 - d0}
	f.Planes[FrustumBottom] = Plane{Normal: n3.Add(n1), D: d3 + d1}
	f.Planes[FrustumTop] = Plane{Normal: n3.Sub(n1), D: d3 - d1}
	f.Planes[FrustumFront] = Plane{Normal: n3, D: d3}

	for i := range f.Planes {
		f.Planes[i].Normalize()
	}
	return f
}

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min math3d.Vec3
	Max math3d.Vec3
}

// Empty reports whether the box has no extent in some axis (inverted).
func (b AABB) Empty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// IntersectAABB reports whether any part of box may lie inside the
// frustum. It is conservative: a true result does not guarantee
// visibility, a false result guarantees none.
func (f Frustum) IntersectAABB(box AABB) bool {
	for _, plane := range f.Planes {
		// The corner furthest along the plane normal.
		p := math3d.V3(
			pick(plane.Normal.X >= 0, box.Max.X, box.Min.X),
			pick(plane.Normal.Y >= 0, box.Max.Y, box.Min.Y),
			pick(plane.Normal.Z >= 0, box.Max.Z, box.Min.Z),
		)
		if plane.DistanceToPoint(p) < 0 {
			return false
		}
	}
	return true
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}
