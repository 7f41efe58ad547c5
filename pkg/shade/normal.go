package shade

import (
	"math"

	"github.com/taigrr/glint/pkg/math3d"
)

// NormalMapped perturbs the surface normal and position with a height map
// before Phong lighting. Height is the length of the sampled RGB vector
// normalized to [0, √3].
type NormalMapped struct {
	Phong
	Height Sampler
	Kh     float64 // Height gradient scale
	Kn     float64 // Displacement scale
}

// NewNormalMapped returns a height-map shader with kh=0.2 and kn=0.1.
func NewNormalMapped(height Sampler) NormalMapped {
	return NormalMapped{Phong: NewPhong(), Height: height, Kh: 0.2, Kn: 0.1}
}

// Shade implements Shader. Without a height map it degrades to Phong.
func (s NormalMapped) Shade(f Fragment, lights []Light) math3d.Vec3 {
	if s.Height == nil {
		return s.Phong.Shade(f, lights)
	}
	w, h := s.Height.Size()
	if w <= 0 || h <= 0 {
		return s.Phong.Shade(f, lights)
	}

	n := f.Normal
	t, b := tangentBasis(n)

	u, v := clampUV(f.UV)
	uNext := math.Min(u+1/float64(w), 1)
	vNext := math.Min(v+1/float64(h), 1)

	height := s.height(u, v)
	dU := s.Kh * s.Kn * (s.height(uNext, v) - height)
	dV := s.Kh * s.Kn * (s.height(u, vNext) - height)

	// TBN · (-dU, -dV, 1)
	perturbed := t.Scale(-dU).Add(b.Scale(-dV)).Add(n).NormalizeOr(n)
	pos := f.Position.Add(perturbed.Scale(height * s.Kn))

	return s.illuminate(f.Color, pos, perturbed, f.Eye, lights)
}

func (s NormalMapped) height(u, v float64) float64 {
	return s.Height.Color(u, v).Len() / 255
}

// tangentBasis derives a tangent and bitangent from a normal alone.
func tangentBasis(n math3d.Vec3) (t, b math3d.Vec3) {
	xz := math.Sqrt(n.X*n.X + n.Z*n.Z)
	t = math3d.V3(n.X*n.Y/xz, xz, n.Z*n.Y/xz).NormalizeOr(math3d.V3(1, 0, 0))
	b = n.Cross(t).NormalizeOr(math3d.V3(0, 1, 0))
	return t, b
}
