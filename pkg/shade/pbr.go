package shade

import (
	"math"

	"github.com/taigrr/glint/pkg/material"
	"github.com/taigrr/glint/pkg/math3d"
)

// MinRoughness keeps the GGX lobe finite for perfectly smooth surfaces.
const MinRoughness = 0.05

// PBR is a Cook-Torrance metallic-roughness shader with Reinhard tone
// mapping and gamma 2.2 output.
//
// Material is optional: without it albedo is the fragment colour, metallic
// is 0 and roughness 0.5. Env, when loaded, supplies the ambient term
// sampled along the normal.
type PBR struct {
	Material *material.PBR
	Env      Environment
}

// NewPBR returns a PBR shader for m lit by env. Either may be nil.
func NewPBR(m *material.PBR, env Environment) PBR {
	return PBR{Material: m, Env: env}
}

// surface is the resolved material at one fragment.
type surface struct {
	albedo    math3d.Vec3
	metallic  float64
	roughness float64
	ao        float64
	normal    math3d.Vec3
}

func (s PBR) resolve(f Fragment) surface {
	sf := surface{
		albedo:    f.Color,
		roughness: 0.5,
		ao:        1,
		normal:    f.Normal.NormalizeOr(fallbackZ),
	}
	m := s.Material
	if m == nil {
		sf.roughness = math.Max(sf.roughness, MinRoughness)
		return sf
	}

	u, v := clampUV(f.UV)
	if m.HasAlbedoMap() {
		sf.albedo = m.AlbedoMap.Color(u, v).Scale(1.0 / 255)
	} else {
		sf.albedo = m.Albedo
	}
	if m.HasMetallicMap() {
		sf.metallic = m.MetallicMap.Color(u, v).Mean() / 255
	} else {
		sf.metallic = m.Metallic
	}
	if m.HasRoughnessMap() {
		sf.roughness = m.RoughnessMap.Color(u, v).Mean() / 255
	} else {
		sf.roughness = m.Roughness
	}
	if m.HasNormalMap() {
		tn := m.NormalMap.Color(u, v).Scale(2.0 / 255).AddScalar(-1)
		sf.normal = sf.normal.Add(tn.Scale(0.5)).NormalizeOr(sf.normal)
	}
	if m.HasAOMap() {
		sf.ao = m.AOMap.Color(u, v).Mean() / 255
	}
	sf.roughness = math.Max(sf.roughness, MinRoughness)
	return sf
}

// Shade implements Shader.
func (s PBR) Shade(f Fragment, lights []Light) math3d.Vec3 {
	sf := s.resolve(f)
	view := f.Eye.Sub(f.Position).NormalizeOr(fallbackZ)

	var lo math3d.Vec3
	for _, l := range lights {
		diffuse, specular := evaluateLight(sf, f.Position, view, l)
		lo = lo.Add(diffuse).Add(specular)
	}

	var ambient math3d.Vec3
	if s.Env != nil && s.Env.Loaded() {
		ambient = s.Env.Color(sf.normal).Mul(sf.albedo)
	} else {
		ambient = sf.albedo.Scale(0.03)
	}
	ambient = ambient.Scale(sf.ao)

	c := ambient.Add(lo)
	c = c.DivVec(c.AddScalar(1))
	return c.Pow(1 / 2.2)
}

// evaluateLight returns the outgoing diffuse and specular radiance from a
// single light, already weighted by N·L.
func evaluateLight(sf surface, pos, view math3d.Vec3, l Light) (diffuse, specular math3d.Vec3) {
	toLight := l.Position.Sub(pos)
	ld := toLight.NormalizeOr(fallbackZ)
	h := view.Add(ld).NormalizeOr(fallbackZ)
	radiance := falloff(l.Intensity, toLight)

	f0 := math3d.Splat(0.04).Scale(1 - sf.metallic).Add(sf.albedo.Scale(sf.metallic))

	nDotV := math.Max(sf.normal.Dot(view), 0)
	nDotL := math.Max(sf.normal.Dot(ld), 0)

	d := distributionGGX(sf.normal, h, sf.roughness)
	g := geometrySmith(nDotV, nDotL, sf.roughness)
	fr := fresnelSchlick(math.Max(h.Dot(view), 0), f0)

	kd := math3d.Splat(1).Sub(fr).Scale(1 - sf.metallic)

	spec := fr.Scale(d * g / (4*nDotV*nDotL + 1e-4))
	diffuse = kd.Mul(sf.albedo).Scale(1 / math.Pi).Mul(radiance).Scale(nDotL)
	specular = spec.Mul(radiance).Scale(nDotL)
	return diffuse, specular
}

func distributionGGX(n, h math3d.Vec3, roughness float64) float64 {
	a := roughness * roughness
	a2 := a * a
	nDotH := math.Max(n.Dot(h), 0)
	denom := nDotH*nDotH*(a2-1) + 1
	denom = math.Pi * denom * denom
	return a2 / math.Max(denom, 1e-7)
}

func geometrySchlickGGX(nDotV, roughness float64) float64 {
	r := roughness + 1
	k := r * r / 8
	return nDotV / math.Max(nDotV*(1-k)+k, 1e-7)
}

func geometrySmith(nDotV, nDotL, roughness float64) float64 {
	return geometrySchlickGGX(nDotV, roughness) * geometrySchlickGGX(nDotL, roughness)
}

func fresnelSchlick(cosTheta float64, f0 math3d.Vec3) math3d.Vec3 {
	w := math.Pow(math3d.Clamp(1-cosTheta, 0, 1), 5)
	return f0.Add(math3d.Splat(1).Sub(f0).Scale(w))
}
