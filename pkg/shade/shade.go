// Package shade implements the per-pixel shading strategies used by the
// rasterizer: Blinn-Phong, textured Phong, height-map normal perturbation
// and Cook-Torrance PBR.
//
// Shaders are plain values. They are bound once per draw and may be called
// concurrently from several goroutines.
package shade

import (
	"fmt"
	"math"
	"strings"

	"github.com/taigrr/glint/pkg/math3d"
)

// Fragment carries the interpolated attributes of one covered pixel.
type Fragment struct {
	Position math3d.Vec3 // World-space position
	Color    math3d.Vec3 // Interpolated vertex colour in [0,1]
	Normal   math3d.Vec3 // World-space unit normal
	UV       math3d.Vec2
	Eye      math3d.Vec3 // Camera position in world space
}

// Light is a point light with inverse-square falloff.
type Light struct {
	Position  math3d.Vec3
	Intensity math3d.Vec3
}

// DefaultLights returns the two overhead lights used when a scene
// specifies none.
func DefaultLights() []Light {
	return []Light{
		{Position: math3d.V3(-20, 20, -20), Intensity: math3d.Splat(500)},
		{Position: math3d.V3(-20, 20, 0), Intensity: math3d.Splat(500)},
	}
}

// Shader turns a fragment into a linear RGB colour. Values outside [0,1]
// are clamped by the caller.
type Shader interface {
	Shade(f Fragment, lights []Light) math3d.Vec3
}

// Sampler is a 2D texture addressed by (u, v) in [0,1]. Color returns
// channel values in [0,255].
type Sampler interface {
	Color(u, v float64) math3d.Vec3
	Size() (width, height int)
}

// Environment is an optional directional light source such as a skybox.
// Color returns RGB in [0,1].
type Environment interface {
	Color(dir math3d.Vec3) math3d.Vec3
	Loaded() bool
}

// Kind names a shading strategy in configuration files.
type Kind string

// Supported shading strategies.
const (
	KindPhong   Kind = "phong"
	KindTexture Kind = "texture"
	KindNormal  Kind = "normal"
	KindPBR     Kind = "pbr"
)

// ParseKind parses a strategy name. An empty string selects Phong.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case "":
		return KindPhong, nil
	case KindPhong, KindTexture, KindNormal, KindPBR:
		return k, nil
	}
	return "", fmt.Errorf("shade: unknown shader %q", s)
}

// Func adapts an ordinary function to the Shader interface.
type Func func(f Fragment, lights []Light) math3d.Vec3

// Shade calls fn(f, lights).
func (fn Func) Shade(f Fragment, lights []Light) math3d.Vec3 {
	return fn(f, lights)
}

var fallbackZ = math3d.V3(0, 0, 1)

// minDistSq bounds inverse-square falloff for a light sitting on the surface.
const minDistSq = 1e-12

func falloff(intensity, toLight math3d.Vec3) math3d.Vec3 {
	return intensity.Div(math.Max(toLight.LenSq(), minDistSq))
}

func clampUV(uv math3d.Vec2) (u, v float64) {
	return clamp01(uv.X), clamp01(uv.Y)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math3d.Clamp(v, 0, 1)
}
