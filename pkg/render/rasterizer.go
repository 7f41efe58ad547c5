// Package render provides the software rasterizer: triangle coverage,
// depth buffering, attribute interpolation and skybox fill.
package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/taigrr/glint/pkg/math3d"
	"github.com/taigrr/glint/pkg/shade"
)

// wEpsilon is the smallest clip-space |w| accepted before the perspective
// divide.
const wEpsilon = 1e-6

// parallelMinPixels is the bounding-box area below which a triangle is
// always filled on the calling goroutine.
const parallelMinPixels = 4096

// Vertex is one corner of a triangle in model space.
type Vertex struct {
	Position math3d.Vec3
	Color    math3d.Vec3 // Linear RGB in [0,1]
	Normal   math3d.Vec3
	UV       math3d.Vec2
}

// Triangle is the unit of rasterization.
type Triangle struct {
	V [3]Vertex
}

// Mesh is a triangle source with model-space bounds, used by DrawMesh.
type Mesh interface {
	Triangles() []Triangle
	Bounds() (min, max math3d.Vec3)
}

// CullingStats tracks mesh-level frustum culling.
type CullingStats struct {
	MeshesTested int
	MeshesCulled int
	MeshesDrawn  int
}

// Option configures a Rasterizer.
type Option func(*Rasterizer)

// WithBackground sets the colour Clear fills with. The default is opaque black.
func WithBackground(c color.RGBA) Option {
	return func(r *Rasterizer) { r.background = c }
}

// WithWorkers shards large triangles and the skybox pass into row bands
// filled by up to n goroutines. n <= 1 keeps everything on the caller.
// Output is identical to the single-threaded path.
func WithWorkers(n int) Option {
	return func(r *Rasterizer) { r.workers = max(n, 1) }
}

// Rasterizer owns a framebuffer and draws triangles into it. Draw calls
// must be sequenced by the caller; a Rasterizer is not safe for concurrent
// use.
type Rasterizer struct {
	fb         *Framebuffer
	background color.RGBA
	workers    int

	model            math3d.Mat4
	mvp              math3d.Mat4
	normalMat        math3d.Mat4
	viewInv, projInv math3d.Mat4
	eye              math3d.Vec3

	shader shade.Shader
	lights []shade.Light
	env    shade.Environment

	CullingStats CullingStats
}

// NewRasterizer creates a rasterizer with a width×height framebuffer,
// cleared to the background colour, and identity transforms.
func NewRasterizer(width, height int, opts ...Option) *Rasterizer {
	r := &Rasterizer{
		fb:         NewFramebuffer(width, height),
		background: color.RGBA{A: 255},
		workers:    1,
	}
	for _, opt := range opts {
		opt(r)
	}
	id := math3d.Identity()
	r.Configure(id, id, id)
	r.Clear()
	return r
}

// Width returns the framebuffer width.
func (r *Rasterizer) Width() int { return r.fb.Width }

// Height returns the framebuffer height.
func (r *Rasterizer) Height() int { return r.fb.Height }

// Framebuffer returns the render target. It is owned by the rasterizer and
// must not be modified during a draw.
func (r *Rasterizer) Framebuffer() *Framebuffer { return r.fb }

// Image copies the current colour buffer into an image.
func (r *Rasterizer) Image() *image.RGBA { return r.fb.ToImage() }

// Configure sets the model, view and projection matrices for subsequent
// draws and caches their derived inverses.
func (r *Rasterizer) Configure(model, view, projection math3d.Mat4) {
	r.model = model
	r.mvp = projection.Mul(view).Mul(model)
	r.normalMat = model.NormalMatrix()
	r.viewInv = view.Inverse()
	r.projInv = projection.Inverse()
	r.eye = r.viewInv.Translation()
}

// Eye returns the camera position recovered from the inverse view matrix.
func (r *Rasterizer) Eye() math3d.Vec3 { return r.eye }

// SetShader selects the shading strategy for subsequent draws. With no
// shader, covered pixels update depth only.
func (r *Rasterizer) SetShader(s shade.Shader) { r.shader = s }

// SetLights sets the light list for subsequent draws.
func (r *Rasterizer) SetLights(lights []shade.Light) { r.lights = lights }

// SetSkybox sets the environment sampled by DrawSkybox. nil disables it.
func (r *Rasterizer) SetSkybox(env shade.Environment) { r.env = env }

// SetBackground changes the colour used by Clear.
func (r *Rasterizer) SetBackground(c color.RGBA) { r.background = c }

// Clear resets every pixel to the background colour and every depth to +Inf.
func (r *Rasterizer) Clear() {
	r.fb.Clear(r.background)
}

// screenTri is a triangle after the viewport transform.
type screenTri struct {
	src        *Triangle
	p          [3]math3d.Vec2
	z          [3]float64
	minX, maxX int
	minY, maxY int
}

// project runs the vertex stage. It reports false when the triangle must
// be discarded: a vertex at or behind the eye, or a bounding box that
// misses the framebuffer.
func (r *Rasterizer) project(tri *Triangle) (screenTri, bool) {
	st := screenTri{src: tri}
	w, h := float64(r.fb.Width), float64(r.fb.Height)

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := range 3 {
		clip := r.mvp.MulVec4(math3d.Point(tri.V[i].Position))
		if clip.W <= 0 || math.Abs(clip.W) < wEpsilon {
			return st, false
		}
		ndc := clip.PerspectiveDivide()

		sx := (ndc.X + 1) * w / 2
		sy := (1 - ndc.Y) * h / 2
		st.p[i] = math3d.V2(sx, sy)
		st.z[i] = (ndc.Z + 1) / 2

		minX, maxX = math.Min(minX, sx), math.Max(maxX, sx)
		minY, maxY = math.Min(minY, sy), math.Max(maxY, sy)
	}

	x0, x1 := math.Floor(minX), math.Ceil(maxX)
	y0, y1 := math.Floor(minY), math.Ceil(maxY)
	if x1 < 0 || y1 < 0 || x0 > w-1 || y0 > h-1 || math.IsNaN(x0+x1+y0+y1) {
		return st, false
	}
	st.minX = int(math.Max(x0, 0))
	st.maxX = int(math.Min(x1, w-1))
	st.minY = int(math.Max(y0, 0))
	st.maxY = int(math.Min(y1, h-1))
	return st, true
}

// DrawTriangle rasterizes one triangle with the current transforms,
// shader and lights.
func (r *Rasterizer) DrawTriangle(tri Triangle) {
	st, ok := r.project(&tri)
	if !ok {
		return
	}
	area := (st.maxX - st.minX + 1) * (st.maxY - st.minY + 1)
	if r.workers <= 1 || area < parallelMinPixels {
		r.fillRows(&st, st.minY, st.maxY)
		return
	}
	r.forBands(st.minY, st.maxY, func(y0, y1 int) {
		r.fillRows(&st, y0, y1)
	})
}

// DrawTriangles rasterizes triangles in order.
func (r *Rasterizer) DrawTriangles(tris []Triangle) {
	for i := range tris {
		r.DrawTriangle(tris[i])
	}
}

// DrawMesh draws every triangle of m unless its bounds fall entirely
// outside the view. It reports whether the mesh was drawn.
func (r *Rasterizer) DrawMesh(m Mesh) bool {
	r.CullingStats.MeshesTested++
	lo, hi := m.Bounds()
	box := AABB{Min: lo, Max: hi}
	if !box.Empty() && !NewFrustum(r.mvp).IntersectAABB(box) {
		r.CullingStats.MeshesCulled++
		return false
	}
	r.CullingStats.MeshesDrawn++
	r.DrawTriangles(m.Triangles())
	return true
}

// ResetCullingStats clears the culling counters.
func (r *Rasterizer) ResetCullingStats() {
	r.CullingStats = CullingStats{}
}

// fillRows covers, depth-tests and shades the pixels of st in rows
// [y0, y1]. Distinct row ranges touch disjoint colour and depth entries.
func (r *Rasterizer) fillRows(st *screenTri, y0, y1 int) {
	fb := r.fb
	v := &st.src.V
	for y := y0; y <= y1; y++ {
		for x := st.minX; x <= st.maxX; x++ {
			p := math3d.V2(float64(x)+0.5, float64(y)+0.5)
			a, b, c := math3d.Barycentric(p, st.p[0], st.p[1], st.p[2])
			if a < 0 || b < 0 || c < 0 {
				continue
			}

			z := a*st.z[0] + b*st.z[1] + c*st.z[2]
			di := fb.depthIndex(x, y)
			if !(z < fb.Depth[di]) { // also rejects NaN
				continue
			}
			fb.Depth[di] = z

			if r.shader == nil {
				continue
			}
			local := math3d.Blend3(v[0].Position, v[1].Position, v[2].Position, a, b, c)
			normal := math3d.Blend3(v[0].Normal, v[1].Normal, v[2].Normal, a, b, c)
			frag := shade.Fragment{
				Position: r.model.MulPoint(local),
				Color:    math3d.Blend3(v[0].Color, v[1].Color, v[2].Color, a, b, c),
				Normal:   r.normalMat.MulVec3Dir(normal).NormalizeOr(math3d.V3(0, 0, 1)),
				UV:       math3d.Blend2(v[0].UV, v[1].UV, v[2].UV, a, b, c),
				Eye:      r.eye,
			}
			fb.Pixels[y*fb.Width+x] = toRGBA(r.shader.Shade(frag, r.lights))
		}
	}
}

// DrawSkybox fills every pixel whose depth is still at or beyond the far
// plane with the environment seen through it. Call it after all geometry.
func (r *Rasterizer) DrawSkybox() {
	if r.env == nil || !r.env.Loaded() {
		return
	}
	if r.workers <= 1 {
		r.skyRows(0, r.fb.Height-1)
		return
	}
	r.forBands(0, r.fb.Height-1, r.skyRows)
}

func (r *Rasterizer) skyRows(y0, y1 int) {
	fb := r.fb
	w, h := float64(fb.Width), float64(fb.Height)
	for y := y0; y <= y1; y++ {
		for x := range fb.Width {
			if fb.Depth[fb.depthIndex(x, y)] < 1 {
				continue
			}
			ndcX := (float64(x)+0.5)/w*2 - 1
			ndcY := 1 - (float64(y)+0.5)/h*2

			p := r.projInv.MulVec4(math3d.V4(ndcX, ndcY, 1, 1))
			if math.Abs(p.W) < wEpsilon {
				continue
			}
			world := r.viewInv.MulPoint(p.PerspectiveDivide())
			dir := world.Sub(r.eye).NormalizeOr(math3d.V3(0, 0, 1))
			fb.Pixels[y*fb.Width+x] = toRGBA(r.env.Color(dir))
		}
	}
}

// forBands splits rows [y0, y1] into contiguous bands and runs fn on each
// concurrently, returning once all are done.
func (r *Rasterizer) forBands(y0, y1 int, fn func(y0, y1 int)) {
	rows := y1 - y0 + 1
	if rows <= 0 {
		return
	}
	bands := min(r.workers, rows)
	size := (rows + bands - 1) / bands

	var g errgroup.Group
	g.SetLimit(r.workers)
	for start := y0; start <= y1; start += size {
		end := min(start+size-1, y1)
		g.Go(func() error {
			fn(start, end)
			return nil
		})
	}
	g.Wait()
}
