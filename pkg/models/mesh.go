// Package models loads triangle meshes from OBJ and glTF files and turns
// them into rasterizer input.
package models

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/taigrr/glint/pkg/material"
	"github.com/taigrr/glint/pkg/math3d"
	"github.com/taigrr/glint/pkg/render"
)

// Mesh represents a 3D mesh with vertices, faces, and materials.
type Mesh struct {
	Name      string
	Vertices  []MeshVertex
	Faces     []Face
	Materials []material.Classic

	// BaseMap is the base colour image embedded in a glTF file, if any.
	BaseMap image.Image

	// Bounding box (calculated on load)
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3
}

// MeshVertex holds all vertex attributes.
type MeshVertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
	UV       math3d.Vec2
}

// Face represents a triangle face with vertex indices and material reference.
type Face struct {
	V        [3]int // Indices into Mesh.Vertices
	Material int    // Index into Mesh.Materials (-1 for no material)
}

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{Name: name}
}

// Load reads a mesh, choosing the loader by file extension.
func Load(path string) (*Mesh, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		return LoadOBJ(path)
	case ".gltf", ".glb":
		return LoadGLTF(path)
	default:
		return nil, fmt.Errorf("models: unsupported mesh format %q", ext)
	}
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) == 0 {
		m.BoundsMin, m.BoundsMax = math3d.Vec3{}, math3d.Vec3{}
		return
	}

	m.BoundsMin = m.Vertices[0].Position
	m.BoundsMax = m.Vertices[0].Position

	for _, v := range m.Vertices[1:] {
		m.BoundsMin = m.BoundsMin.Min(v.Position)
		m.BoundsMax = m.BoundsMax.Max(v.Position)
	}
}

// Bounds returns the axis-aligned bounding box. An empty mesh reports an
// inverted box so it is never mistaken for geometry at the origin.
func (m *Mesh) Bounds() (lo, hi math3d.Vec3) {
	if len(m.Faces) == 0 {
		return math3d.Splat(1), math3d.Splat(-1)
	}
	return m.BoundsMin, m.BoundsMax
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.BoundsMin.Add(m.BoundsMax).Scale(0.5)
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// Material returns the material at index i, or nil for -1 and out of
// range indices.
func (m *Mesh) Material(i int) *material.Classic {
	if i < 0 || i >= len(m.Materials) {
		return nil
	}
	return &m.Materials[i]
}

func (m *Mesh) faceNormal(f Face) math3d.Vec3 {
	v0 := m.Vertices[f.V[0]].Position
	v1 := m.Vertices[f.V[1]].Position
	v2 := m.Vertices[f.V[2]].Position
	return v1.Sub(v0).Cross(v2.Sub(v0))
}

// CalculateNormals assigns each face's normal to its vertices. Shared
// vertices end up with the normal of the last face that uses them.
func (m *Mesh) CalculateNormals() {
	for _, f := range m.Faces {
		n := m.faceNormal(f).NormalizeOr(math3d.V3(0, 0, 1))
		for _, vi := range f.V {
			m.Vertices[vi].Normal = n
		}
	}
}

// CalculateSmoothNormals computes area-weighted averaged normals for
// every vertex.
func (m *Mesh) CalculateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Vec3{}
	}
	m.accumulateNormals(func(int) bool { return true })
}

// fillMissingNormals gives smooth normals to vertices that have none,
// leaving authored normals untouched.
func (m *Mesh) fillMissingNormals() {
	missing := make([]bool, len(m.Vertices))
	found := false
	for i, v := range m.Vertices {
		if v.Normal.LenSq() < math3d.Epsilon*math3d.Epsilon {
			missing[i] = true
			found = true
		}
	}
	if !found {
		return
	}
	m.accumulateNormals(func(i int) bool { return missing[i] })
}

func (m *Mesh) accumulateNormals(want func(int) bool) {
	for _, f := range m.Faces {
		n := m.faceNormal(f) // Unnormalized: weights by area
		for _, vi := range f.V {
			if want(vi) {
				m.Vertices[vi].Normal = m.Vertices[vi].Normal.Add(n)
			}
		}
	}
	for i := range m.Vertices {
		if want(i) {
			m.Vertices[i].Normal = m.Vertices[i].Normal.NormalizeOr(math3d.V3(0, 0, 1))
		}
	}
}

// Transform applies a transformation matrix to all vertices.
func (m *Mesh) Transform(mat math3d.Mat4) {
	nm := mat.NormalMatrix()
	for i := range m.Vertices {
		m.Vertices[i].Position = mat.MulPoint(m.Vertices[i].Position)
		m.Vertices[i].Normal = nm.MulVec3Dir(m.Vertices[i].Normal).NormalizeOr(math3d.V3(0, 0, 1))
	}
	m.CalculateBounds()
}

// Clone creates a deep copy of the mesh. BaseMap is shared.
func (m *Mesh) Clone() *Mesh {
	clone := *m
	clone.Vertices = append([]MeshVertex(nil), m.Vertices...)
	clone.Faces = append([]Face(nil), m.Faces...)
	clone.Materials = append([]material.Classic(nil), m.Materials...)
	return &clone
}

// Triangles expands the indexed faces into rasterizer triangles. Each
// vertex is coloured with its face material's diffuse colour, or white
// when the face has none.
func (m *Mesh) Triangles() []render.Triangle {
	tris := make([]render.Triangle, len(m.Faces))
	white := math3d.Splat(1)
	for i, f := range m.Faces {
		col := white
		if mat := m.Material(f.Material); mat != nil {
			col = mat.Kd
		}
		for j, vi := range f.V {
			v := m.Vertices[vi]
			tris[i].V[j] = render.Vertex{
				Position: v.Position,
				Color:    col,
				Normal:   v.Normal,
				UV:       v.UV,
			}
		}
	}
	return tris
}
