package scene

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/taigrr/glint/pkg/math3d"
	"github.com/taigrr/glint/pkg/shade"
)

// Vec is a JSON-friendly 3-vector written as [x, y, z].
type Vec [3]float64

// V3 converts to math3d.
func (v Vec) V3() math3d.Vec3 { return math3d.V3(v[0], v[1], v[2]) }

// Config describes a scene file.
type Config struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Background  string `json:"background"` // Hex colour, e.g. "#1e1e2e"
	Supersample int    `json:"supersample"`
	Workers     int    `json:"workers"`

	Camera    CameraConfig   `json:"camera"`
	Lights    []LightConfig  `json:"lights"`
	Skybox    string         `json:"skybox"`
	Materials []string       `json:"materials"` // Extra MTL libraries
	Objects   []ObjectConfig `json:"objects"`

	// BaseDir resolves relative paths. LoadConfig sets it to the
	// directory of the scene file.
	BaseDir string `json:"-"`
}

// CameraConfig places the camera. FOV is in degrees.
type CameraConfig struct {
	Eye    Vec     `json:"eye"`
	Center Vec     `json:"center"`
	Up     Vec     `json:"up"`
	FOV    float64 `json:"fov"`
	Near   float64 `json:"near"`
	Far    float64 `json:"far"`
}

// LightConfig is a point light.
type LightConfig struct {
	Position  Vec `json:"position"`
	Intensity Vec `json:"intensity"`
}

// ObjectConfig is one mesh instance.
type ObjectConfig struct {
	Name      string          `json:"name"`
	Mesh      string          `json:"mesh"`
	Shader    string          `json:"shader"`     // phong, texture, normal or pbr
	Texture   string          `json:"texture"`    // Diffuse map, or a "#rrggbb" solid colour
	HeightMap string          `json:"height_map"` // Height map for the normal shader
	Filter    string          `json:"filter"`     // nearest (default) or bilinear
	Material  string          `json:"material"`   // Classic material name for phong
	PBR       string          `json:"pbr"`        // PBR texture directory
	Normals   string          `json:"normals"`    // keep (default), smooth or flat
	Fit       bool            `json:"fit"`        // Centre the mesh and scale it into [-1,1]³
	Transform TransformConfig `json:"transform"`
}

// TransformConfig is a model transform with rotation in degrees.
type TransformConfig struct {
	Scale       Vec    `json:"scale"`
	Rotation    Vec    `json:"rotation"`
	Pivot       Vec    `json:"pivot"`
	Translation Vec    `json:"translation"`
	Order       string `json:"order"` // Default zyx
}

// Defaults used for fields a scene file leaves empty.
const (
	DefaultSize       = 700
	DefaultBackground = "#000000"
	DefaultFOV        = 45.0
	DefaultNear       = 0.1
	DefaultFar        = 50.0
	MaxSupersample    = 8
)

// LoadConfig reads a JSON scene file, applies defaults and validates it.
// Unknown fields are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("scene: read %s: %w", path, err)
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("scene: parse %s: %w", path, err)
	}
	cfg.BaseDir = filepath.Dir(path)
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("scene: %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyDefaults fills zero fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Width == 0 {
		c.Width = DefaultSize
	}
	if c.Height == 0 {
		c.Height = DefaultSize
	}
	if c.Background == "" {
		c.Background = DefaultBackground
	}
	if c.Supersample == 0 {
		c.Supersample = 1
	}
	if c.Workers == 0 {
		c.Workers = 1
	}

	cam := &c.Camera
	if cam.Eye == (Vec{}) && cam.Center == (Vec{}) {
		cam.Eye = Vec{0, 0, 10}
	}
	if cam.Up == (Vec{}) {
		cam.Up = Vec{0, 1, 0}
	}
	if cam.FOV == 0 {
		cam.FOV = DefaultFOV
	}
	if cam.Near == 0 {
		cam.Near = DefaultNear
	}
	if cam.Far == 0 {
		cam.Far = DefaultFar
	}

	if len(c.Lights) == 0 {
		for _, l := range shade.DefaultLights() {
			c.Lights = append(c.Lights, LightConfig{
				Position:  Vec{l.Position.X, l.Position.Y, l.Position.Z},
				Intensity: Vec{l.Intensity.X, l.Intensity.Y, l.Intensity.Z},
			})
		}
	}
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("size %dx%d must be positive", c.Width, c.Height))
	}
	if c.Supersample < 1 || c.Supersample > MaxSupersample {
		errs = append(errs, fmt.Errorf("supersample %d outside [1,%d]", c.Supersample, MaxSupersample))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers %d must be at least 1", c.Workers))
	}
	if _, err := c.BackgroundColor(); err != nil {
		errs = append(errs, err)
	}

	cam := c.Camera
	if cam.FOV <= 0 || cam.FOV >= 180 {
		errs = append(errs, fmt.Errorf("camera fov %v outside (0,180)", cam.FOV))
	}
	if cam.Near <= 0 || cam.Far <= cam.Near {
		errs = append(errs, fmt.Errorf("camera clip planes near=%v far=%v", cam.Near, cam.Far))
	}
	if cam.Eye == cam.Center {
		errs = append(errs, errors.New("camera eye and center coincide"))
	}

	for i, o := range c.Objects {
		if o.Mesh == "" {
			errs = append(errs, fmt.Errorf("object %d: mesh is required", i))
		}
		if _, err := shade.ParseKind(o.Shader); err != nil {
			errs = append(errs, fmt.Errorf("object %d: %w", i, err))
		}
		if _, err := math3d.ParseRotationOrder(o.Transform.Order); err != nil {
			errs = append(errs, fmt.Errorf("object %d: %w", i, err))
		}
		switch o.Filter {
		case "", "nearest", "bilinear":
		default:
			errs = append(errs, fmt.Errorf("object %d: unknown filter %q", i, o.Filter))
		}
		switch o.Normals {
		case "", "keep", "smooth", "flat":
		default:
			errs = append(errs, fmt.Errorf("object %d: unknown normals mode %q", i, o.Normals))
		}
	}
	return errors.Join(errs...)
}

// BackgroundColor parses the hex background colour.
func (c *Config) BackgroundColor() (color.RGBA, error) {
	col, err := hexColor(c.Background)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("background %q: %w", c.Background, err)
	}
	return col, nil
}

func hexColor(s string) (color.RGBA, error) {
	col, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, err
	}
	r, g, b := col.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Resolve makes path relative to BaseDir unless it is absolute or empty.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.BaseDir == "" {
		return path
	}
	return filepath.Join(c.BaseDir, path)
}

// ModelTransform converts the JSON transform. A missing or zero scale is 1.
func (t TransformConfig) ModelTransform() (math3d.ModelTransform, error) {
	order, err := math3d.ParseRotationOrder(t.Order)
	if err != nil {
		return math3d.ModelTransform{}, err
	}
	mt := math3d.DefaultTransform()
	if t.Scale != (Vec{}) {
		mt.Scale = t.Scale.V3()
	}
	mt.Rotation = math3d.V3(
		math3d.Radians(t.Rotation[0]),
		math3d.Radians(t.Rotation[1]),
		math3d.Radians(t.Rotation[2]),
	)
	mt.Pivot = t.Pivot.V3()
	mt.Translation = t.Translation.V3()
	mt.Order = order
	return mt, nil
}
