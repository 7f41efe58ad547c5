package shade

import (
	"math"

	"github.com/taigrr/glint/pkg/material"
	"github.com/taigrr/glint/pkg/math3d"
)

// Phong is a Blinn-Phong shader whose diffuse colour is the fragment colour.
// Ambient is added once per light.
type Phong struct {
	Ks       math3d.Vec3 // Specular coefficient
	Ka       math3d.Vec3 // Ambient coefficient
	Ia       math3d.Vec3 // Ambient intensity
	Exponent float64     // Specular exponent on N·H
}

// NewPhong returns a Phong shader with the standard coefficients.
func NewPhong() Phong {
	return Phong{
		Ks:       math3d.Splat(0.7937),
		Ka:       math3d.Splat(0.005),
		Ia:       math3d.Splat(10),
		Exponent: 150,
	}
}

// PhongFromClassic takes the specular and ambient coefficients from an MTL
// material. The exponent stays at the standard 150.
func PhongFromClassic(m material.Classic) Phong {
	p := NewPhong()
	p.Ks = m.Ks
	p.Ka = m.Ka
	return p
}

// Shade implements Shader.
func (p Phong) Shade(f Fragment, lights []Light) math3d.Vec3 {
	return p.illuminate(f.Color, f.Position, f.Normal, f.Eye, lights)
}

// illuminate sums specular, diffuse and ambient terms over all lights for
// a surface point with diffuse colour kd.
func (p Phong) illuminate(kd, pos, normal, eye math3d.Vec3, lights []Light) math3d.Vec3 {
	var out math3d.Vec3
	view := eye.Sub(pos).NormalizeOr(fallbackZ)
	ambient := p.Ka.Mul(p.Ia)

	for _, l := range lights {
		toLight := l.Position.Sub(pos)
		ld := toLight.NormalizeOr(fallbackZ)
		h := view.Add(ld).NormalizeOr(fallbackZ)
		i := falloff(l.Intensity, toLight)

		spec := math.Pow(math.Max(0, normal.Dot(h)), p.Exponent)
		diff := math.Max(0, normal.Dot(ld))

		out = out.Add(p.Ks.Mul(i).Scale(spec))
		out = out.Add(kd.Mul(i).Scale(diff))
		out = out.Add(ambient)
	}
	return out
}

// Textured is Phong with the diffuse colour taken from a texture.
// A nil texture shades with a black diffuse term.
type Textured struct {
	Phong
	Texture Sampler
}

// NewTextured returns a textured shader with the standard coefficients.
func NewTextured(tex Sampler) Textured {
	return Textured{Phong: NewPhong(), Texture: tex}
}

// Shade implements Shader.
func (t Textured) Shade(f Fragment, lights []Light) math3d.Vec3 {
	var kd math3d.Vec3
	if t.Texture != nil {
		u, v := clampUV(f.UV)
		kd = t.Texture.Color(u, v).Scale(1.0 / 255)
	}
	return t.illuminate(kd, f.Position, f.Normal, f.Eye, lights)
}
