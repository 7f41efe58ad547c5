package texture

import (
	"math"

	"github.com/taigrr/glint/pkg/math3d"
)

// Skybox is an equirectangular environment map. The zero value is a valid,
// unloaded skybox that samples black.
type Skybox struct {
	tex *Texture
}

// NewSkybox wraps an already decoded texture. A nil texture yields an
// unloaded skybox.
func NewSkybox(tex *Texture) *Skybox {
	return &Skybox{tex: tex}
}

// Load decodes path into the skybox. On failure the skybox keeps its
// previous state.
func (s *Skybox) Load(path string) error {
	tex, err := Load(path)
	if err != nil {
		return err
	}
	s.tex = tex
	return nil
}

// Loaded reports whether the skybox has a texture.
func (s *Skybox) Loaded() bool {
	return s != nil && s.tex != nil
}

// Texture returns the underlying texture, or nil when not loaded.
func (s *Skybox) Texture() *Texture {
	if s == nil {
		return nil
	}
	return s.tex
}

// DirectionToUV maps a direction to equirectangular coordinates.
// A degenerate direction is treated as +Z.
func DirectionToUV(dir math3d.Vec3) (u, v float64) {
	d := dir.NormalizeOr(math3d.V3(0, 0, 1))
	u = math.Atan2(d.Z, d.X)/(2*math.Pi) + 0.5
	v = math.Asin(math3d.Clamp(d.Y, -1, 1))/math.Pi + 0.5
	return u, v
}

// Color samples the environment in direction dir, returning RGB in [0,1].
// An unloaded skybox returns black.
func (s *Skybox) Color(dir math3d.Vec3) math3d.Vec3 {
	if !s.Loaded() {
		return math3d.Vec3{}
	}
	u, v := DirectionToUV(dir)
	return s.tex.Color(u, v).Scale(1.0 / 255)
}
