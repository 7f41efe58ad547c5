// Package scene loads a JSON scene description and renders frames of it.
// It sequences draws on a single rasterizer: clear, each object in file
// order, then the skybox.
package scene

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/taigrr/glint"
	"github.com/taigrr/glint/pkg/export"
	"github.com/taigrr/glint/pkg/material"
	"github.com/taigrr/glint/pkg/math3d"
	"github.com/taigrr/glint/pkg/models"
	"github.com/taigrr/glint/pkg/render"
	"github.com/taigrr/glint/pkg/shade"
	"github.com/taigrr/glint/pkg/texture"
)

// Object is a mesh instance bound to a shader. It implements render.Mesh
// with its triangles expanded once at load time.
type Object struct {
	Name      string
	Mesh      *models.Mesh
	Transform math3d.ModelTransform
	Shader    shade.Shader

	tris []render.Triangle
}

// Triangles implements render.Mesh.
func (o *Object) Triangles() []render.Triangle { return o.tris }

// Bounds implements render.Mesh.
func (o *Object) Bounds() (lo, hi math3d.Vec3) { return o.Mesh.Bounds() }

// Scene is a loaded, renderable scene. RenderFrame is not safe for
// concurrent use.
type Scene struct {
	Config  Config
	Camera  *render.Camera
	Lights  []shade.Light
	Objects []*Object
	Skybox  *texture.Skybox
	Catalog *material.Catalog

	textures *texture.Cache
	meshes   map[string]*models.Mesh
	raster   *render.Rasterizer
}

// Load builds a scene from cfg. Meshes and configuration errors are fatal;
// textures, height maps, PBR maps and the skybox that fail to load are
// logged and replaced by their untextured fallback.
func Load(cfg Config) (*Scene, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	bg, _ := cfg.BackgroundColor()
	log := glint.Logger()

	s := &Scene{
		Config:   cfg,
		Catalog:  material.NewCatalog(),
		textures: texture.NewCache(),
		meshes:   make(map[string]*models.Mesh),
	}

	ss := cfg.Supersample
	s.raster = render.NewRasterizer(cfg.Width*ss, cfg.Height*ss,
		render.WithBackground(bg),
		render.WithWorkers(cfg.Workers),
	)

	s.Camera = render.NewCamera()
	s.Camera.SetPosition(cfg.Camera.Eye.V3())
	s.Camera.LookAt(cfg.Camera.Center.V3())
	s.Camera.SetUp(cfg.Camera.Up.V3())
	s.Camera.SetFOV(math3d.Radians(cfg.Camera.FOV))
	s.Camera.SetAspectRatio(float64(cfg.Width) / float64(cfg.Height))
	s.Camera.SetClipPlanes(cfg.Camera.Near, cfg.Camera.Far)

	for _, l := range cfg.Lights {
		s.Lights = append(s.Lights, shade.Light{Position: l.Position.V3(), Intensity: l.Intensity.V3()})
	}

	s.Skybox = texture.NewSkybox(nil)
	if cfg.Skybox != "" {
		path := cfg.Resolve(cfg.Skybox)
		tex, err := s.textures.Get(path)
		if err != nil {
			log.Warn("skybox not loaded", "path", path, "error", err)
		} else {
			s.Skybox = texture.NewSkybox(tex)
		}
	}
	s.raster.SetSkybox(s.Skybox)

	for _, lib := range cfg.Materials {
		mats, err := material.LoadMTL(cfg.Resolve(lib))
		if err != nil {
			return nil, fmt.Errorf("scene: %w", err)
		}
		s.Catalog.AddClassic(mats...)
	}

	for i, oc := range cfg.Objects {
		obj, err := s.loadObject(oc)
		if err != nil {
			return nil, fmt.Errorf("scene: object %d: %w", i, err)
		}
		s.Objects = append(s.Objects, obj)
		log.Info("object loaded", "name", obj.Name, "triangles", len(obj.tris), "shader", oc.Shader)
	}
	return s, nil
}

func (s *Scene) loadObject(oc ObjectConfig) (*Object, error) {
	mesh, err := s.mesh(s.Config.Resolve(oc.Mesh))
	if err != nil {
		return nil, err
	}
	s.Catalog.AddClassic(mesh.Materials...)

	// Objects sharing a file share its mesh until one of them edits it.
	if oc.Fit || oc.Normals == "smooth" || oc.Normals == "flat" {
		mesh = mesh.Clone()
	}
	switch oc.Normals {
	case "smooth":
		mesh.CalculateSmoothNormals()
	case "flat":
		mesh.CalculateNormals()
	}
	if oc.Fit {
		fitUnit(mesh)
	}

	mt, err := oc.Transform.ModelTransform()
	if err != nil {
		return nil, err
	}
	shader, err := s.buildShader(oc, mesh)
	if err != nil {
		return nil, err
	}

	name := oc.Name
	if name == "" {
		name = mesh.Name
	}
	return &Object{
		Name:      name,
		Mesh:      mesh,
		Transform: mt,
		Shader:    shader,
		tris:      mesh.Triangles(),
	}, nil
}

// mesh loads path once per scene.
func (s *Scene) mesh(path string) (*models.Mesh, error) {
	if m, ok := s.meshes[path]; ok {
		return m, nil
	}
	m, err := models.Load(path)
	if err != nil {
		return nil, err
	}
	s.meshes[path] = m
	return m, nil
}

// fitUnit centres m on the origin and scales its largest extent to 2.
func fitUnit(m *models.Mesh) {
	size := m.Size()
	maxDim := math.Max(size.X, math.Max(size.Y, size.Z))
	if maxDim <= 0 {
		return
	}
	scale := 2 / maxDim
	m.Transform(math3d.Scale(math3d.Splat(scale)).Mul(math3d.Translate(m.Center().Scale(-1))))
}

func (s *Scene) buildShader(oc ObjectConfig, mesh *models.Mesh) (shade.Shader, error) {
	kind, err := shade.ParseKind(oc.Shader)
	if err != nil {
		return nil, err
	}

	switch kind {
	case shade.KindTexture:
		tex := s.texture(oc.Texture, oc.Filter)
		if tex == nil && mesh.BaseMap != nil {
			tex = withFilter(texture.FromImage(mesh.BaseMap), oc.Filter)
		}
		return shade.NewTextured(sampler(tex)), nil

	case shade.KindNormal:
		return shade.NewNormalMapped(sampler(s.texture(oc.HeightMap, oc.Filter))), nil

	case shade.KindPBR:
		var mat *material.PBR
		if oc.PBR != "" {
			dir := s.Config.Resolve(oc.PBR)
			if mat, err = material.LoadPBR(dir, s.textures); err != nil {
				glint.Logger().Warn("pbr material not loaded", "dir", dir, "error", err)
				mat = nil
			} else {
				s.Catalog.AddPBR(mat.Name, mat)
			}
		}
		return shade.NewPBR(mat, s.Skybox), nil

	default:
		if oc.Material == "" {
			return shade.NewPhong(), nil
		}
		m, ok := s.Catalog.Classic(oc.Material)
		if !ok {
			return nil, fmt.Errorf("unknown material %q", oc.Material)
		}
		return shade.PhongFromClassic(m), nil
	}
}

// texture fetches path through the shared cache, or builds a solid
// texture from a "#rrggbb" colour. A failure is logged and yields nil.
func (s *Scene) texture(path, filter string) *texture.Texture {
	if path == "" {
		return nil
	}
	if strings.HasPrefix(path, "#") {
		c, err := hexColor(path)
		if err != nil {
			glint.Logger().Warn("texture colour not parsed", "colour", path, "error", err)
			return nil
		}
		return texture.NewSolid(c)
	}
	path = s.Config.Resolve(path)
	tex, err := s.textures.Get(path)
	if err != nil {
		glint.Logger().Warn("texture not loaded", "path", path, "error", err)
		return nil
	}
	return withFilter(tex, filter)
}

// withFilter returns tex sampled with the named filter. Cached textures
// are shared, so a non-default filter gets its own header over the same
// pixels.
func withFilter(tex *texture.Texture, filter string) *texture.Texture {
	if tex == nil || filter != "bilinear" {
		return tex
	}
	t := *tex
	t.Filter = texture.FilterBilinear
	return &t
}

// sampler avoids wrapping a nil *Texture in a non-nil interface.
func sampler(tex *texture.Texture) shade.Sampler {
	if tex == nil {
		return nil
	}
	return tex
}

// Resize replaces the render target with one of width x height output
// pixels, keeping the supersampling factor, and updates the camera aspect.
func (s *Scene) Resize(width, height int) error {
	if width < 1 || height < 1 {
		return fmt.Errorf("scene: invalid size %dx%d", width, height)
	}
	bg, _ := s.Config.BackgroundColor()
	ss := s.Config.Supersample
	s.Config.Width, s.Config.Height = width, height
	s.raster = render.NewRasterizer(width*ss, height*ss,
		render.WithBackground(bg),
		render.WithWorkers(s.Config.Workers),
	)
	s.raster.SetSkybox(s.Skybox)
	s.Camera.SetAspectRatio(float64(width) / float64(height))
	return nil
}

// Rasterizer exposes the render target, e.g. for terminal display.
func (s *Scene) Rasterizer() *render.Rasterizer { return s.raster }

// RenderFrame draws every object turned by yaw radians about the world Y
// axis, fills the background with the skybox and returns the frame at the
// configured output size.
func (s *Scene) RenderFrame(yaw float64) *image.RGBA {
	r := s.raster
	r.Clear()
	r.SetLights(s.Lights)
	r.ResetCullingStats()

	view := s.Camera.ViewMatrix()
	proj := s.Camera.ProjectionMatrix()
	spin := math3d.Identity()
	if yaw != 0 && !math.IsNaN(yaw) {
		spin = math3d.RotateY(yaw)
	}

	for _, obj := range s.Objects {
		r.Configure(spin.Mul(obj.Transform.Matrix()), view, proj)
		r.SetShader(obj.Shader)
		r.DrawMesh(obj)
	}
	r.DrawSkybox()

	glint.Logger().Debug("frame rendered",
		"yaw", yaw,
		"meshes_drawn", r.CullingStats.MeshesDrawn,
		"meshes_culled", r.CullingStats.MeshesCulled,
	)

	img := r.Image()
	if s.Config.Supersample > 1 {
		img = export.Downsample(img, s.Config.Width, s.Config.Height)
	}
	return img
}
