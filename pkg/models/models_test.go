package models

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/qmuntal/gltf"

	"github.com/taigrr/glint/pkg/material"
	"github.com/taigrr/glint/pkg/math3d"
)

func vecNear(a, b math3d.Vec3, tol float64) bool {
	return a.Distance(b) <= tol
}

func TestParseOBJQuadNegativeIndices(t *testing.T) {
	src := `# unit quad
o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f -4 -3 -2 -1
`
	mesh, err := ParseOBJ(strings.NewReader(src), "")
	if err != nil {
		t.Fatalf("ParseOBJ: %v", err)
	}
	if mesh.Name != "quad" {
		t.Errorf("name = %q, want quad", mesh.Name)
	}
	if mesh.TriangleCount() != 2 {
		t.Fatalf("triangles = %d, want 2 (fan)", mesh.TriangleCount())
	}
	if mesh.VertexCount() != 4 {
		t.Errorf("vertices = %d, want 4 (shared corners)", mesh.VertexCount())
	}
	want := [][3]int{{0, 1, 2}, {0, 2, 3}}
	for i, f := range mesh.Faces {
		if f.V != want[i] {
			t.Errorf("face %d = %v, want %v", i, f.V, want[i])
		}
		if f.Material != -1 {
			t.Errorf("face %d material = %d, want -1", i, f.Material)
		}
	}
	for i, v := range mesh.Vertices {
		if !vecNear(v.Normal, math3d.V3(0, 0, 1), 1e-9) {
			t.Errorf("vertex %d normal = %v, want generated (0,0,1)", i, v.Normal)
		}
	}
	if mesh.BoundsMin != math3d.V3(0, 0, 0) || mesh.BoundsMax != math3d.V3(1, 1, 0) {
		t.Errorf("bounds = %v..%v", mesh.BoundsMin, mesh.BoundsMax)
	}
}

func TestParseOBJCornerFormats(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 0 1 0
vt 0.25 0.75
vn 0 0 2
f 1/1/1 2//1 3/1
`
	mesh, err := ParseOBJ(strings.NewReader(src), "")
	if err != nil {
		t.Fatalf("ParseOBJ: %v", err)
	}
	if mesh.VertexCount() != 3 {
		t.Fatalf("vertices = %d, want 3", mesh.VertexCount())
	}
	v0, v1, v2 := mesh.Vertices[0], mesh.Vertices[1], mesh.Vertices[2]
	if v0.UV != math3d.V2(0.25, 0.75) {
		t.Errorf("v0 uv = %v", v0.UV)
	}
	if !vecNear(v0.Normal, math3d.V3(0, 0, 1), 1e-12) || !vecNear(v1.Normal, math3d.V3(0, 0, 1), 1e-12) {
		t.Errorf("authored normals not normalized: %v %v", v0.Normal, v1.Normal)
	}
	if v1.UV != (math3d.Vec2{}) {
		t.Errorf("v1 uv = %v, want zero", v1.UV)
	}
	// v2 has no normal in the file and gets the face normal.
	if !vecNear(v2.Normal, math3d.V3(0, 0, 1), 1e-12) {
		t.Errorf("v2 normal = %v", v2.Normal)
	}
}

func TestParseOBJErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"zero index", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n", "line 4"},
		{"out of range", "v 0 0 0\nf 1 2 3\n", "out of range"},
		{"bad float", "v 0 x 0\n", "line 1"},
		{"short vertex", "v 0 0\n", "need 3 values"},
		{"two corners", "v 0 0 0\nv 1 0 0\nf 1 2\n", "at least 3"},
		{"bad uv index", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1/5 2 3\n", "out of range"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseOBJ(strings.NewReader(tc.src), "")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadOBJWithMaterials(t *testing.T) {
	dir := t.TempDir()
	mtl := "newmtl red\nKd 1 0 0\n\nnewmtl blue\nKd 0 0 1\n"
	obj := `mtllib scene.mtl
v 0 0 0
v 1 0 0
v 0 1 0
v 1 1 0
usemtl red
f 1 2 3
usemtl blue
f 2 4 3
usemtl missing
f 1 2 4
`
	if err := os.WriteFile(filepath.Join(dir, "scene.mtl"), []byte(mtl), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "scene.obj")
	if err := os.WriteFile(path, []byte(obj), 0o644); err != nil {
		t.Fatal(err)
	}

	mesh, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if mesh.Name != "scene.obj" {
		t.Errorf("name = %q", mesh.Name)
	}
	if len(mesh.Materials) != 2 {
		t.Fatalf("materials = %d, want 2", len(mesh.Materials))
	}

	tris := mesh.Triangles()
	wantColors := []math3d.Vec3{math3d.V3(1, 0, 0), math3d.V3(0, 0, 1), math3d.Splat(1)}
	for i, tri := range tris {
		for j, v := range tri.V {
			if v.Color != wantColors[i] {
				t.Errorf("triangle %d vertex %d colour = %v, want %v", i, j, v.Color, wantColors[i])
			}
		}
	}
}

func TestLoadOBJMissingLibrary(t *testing.T) {
	src := "mtllib nowhere.mtl\nv 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl red\nf 1 2 3\n"
	mesh, err := ParseOBJ(strings.NewReader(src), t.TempDir())
	if err != nil {
		t.Fatalf("missing material library should not fail: %v", err)
	}
	if mesh.Faces[0].Material != -1 {
		t.Errorf("face material = %d, want -1", mesh.Faces[0].Material)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"unsupported extension", "model.fbx"},
		{"missing obj", "/nonexistent/model.obj"},
		{"missing glb", "/nonexistent/path.glb"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(tc.path); err == nil {
				t.Errorf("Load(%q) succeeded, want error", tc.path)
			}
		})
	}
}

func TestMeshTrianglesAndBounds(t *testing.T) {
	mesh := NewMesh("test")
	lo, hi := mesh.Bounds()
	if lo.X <= hi.X {
		t.Errorf("empty mesh bounds %v..%v should be inverted", lo, hi)
	}

	mesh.Vertices = []MeshVertex{
		{Position: math3d.V3(-1, 0, 0), UV: math3d.V2(0, 0)},
		{Position: math3d.V3(1, 0, 0), UV: math3d.V2(1, 0)},
		{Position: math3d.V3(0, 2, -3), UV: math3d.V2(0.5, 1)},
	}
	mesh.Faces = []Face{{V: [3]int{0, 1, 2}, Material: 5}}
	mesh.CalculateSmoothNormals()
	mesh.CalculateBounds()

	lo, hi = mesh.Bounds()
	if lo != math3d.V3(-1, 0, -3) || hi != math3d.V3(1, 2, 0) {
		t.Errorf("bounds = %v..%v", lo, hi)
	}

	tris := mesh.Triangles()
	if len(tris) != 1 {
		t.Fatalf("triangles = %d, want 1", len(tris))
	}
	for j, v := range tris[0].V {
		if v.Color != math3d.Splat(1) {
			t.Errorf("vertex %d colour = %v, want white for out-of-range material", j, v.Color)
		}
		if v.Position != mesh.Vertices[j].Position || v.UV != mesh.Vertices[j].UV {
			t.Errorf("vertex %d attributes not carried over", j)
		}
		if math.Abs(v.Normal.Len()-1) > 1e-9 {
			t.Errorf("vertex %d normal not unit: %v", j, v.Normal)
		}
	}
}

func TestMeshCloneIndependent(t *testing.T) {
	mesh := NewMesh("original")
	mesh.Vertices = []MeshVertex{{Position: math3d.V3(1, 2, 3)}}
	mesh.Materials = []material.Classic{material.DefaultClassic("mat1")}

	clone := mesh.Clone()
	clone.Vertices[0].Position = math3d.V3(0, 0, 0)
	clone.Materials[0].Name = "modified"

	if mesh.Vertices[0].Position != math3d.V3(1, 2, 3) {
		t.Error("clone shares vertices")
	}
	if mesh.Materials[0].Name != "mat1" {
		t.Error("clone shares materials")
	}
	if mesh.Material(0) == nil || mesh.Material(-1) != nil || mesh.Material(3) != nil {
		t.Error("Material index checks wrong")
	}
}

func TestMeshTransform(t *testing.T) {
	mesh := NewMesh("t")
	mesh.Vertices = []MeshVertex{
		{Position: math3d.V3(1, 1, 0), Normal: math3d.V3(1, 1, 0).Normalize()},
	}
	mesh.Transform(math3d.Scale(math3d.V3(2, 1, 1)))

	if mesh.Vertices[0].Position != math3d.V3(2, 1, 0) {
		t.Errorf("position = %v, want (2,1,0)", mesh.Vertices[0].Position)
	}
	// Non-uniform scale: the normal follows the inverse transpose.
	want := math3d.V3(0.5, 1, 0).Normalize()
	if !vecNear(mesh.Vertices[0].Normal, want, 1e-9) {
		t.Errorf("normal = %v, want %v", mesh.Vertices[0].Normal, want)
	}
	if mesh.BoundsMax != math3d.V3(2, 1, 0) {
		t.Errorf("bounds not recomputed: %v", mesh.BoundsMax)
	}
}

func ptr(i int) *int { return &i }

// triangleDocument builds an in-memory glTF document with one indexed
// triangle in the XY plane using a red material.
func triangleDocument() *gltf.Document {
	var data []byte
	for _, f := range []float32{0, 0, 0, 1, 0, 0, 0, 1, 0} {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(f))
	}
	for _, i := range []uint16{0, 1, 2} {
		data = binary.LittleEndian.AppendUint16(data, i)
	}

	return &gltf.Document{
		Buffers: []*gltf.Buffer{{ByteLength: len(data), Data: data}},
		BufferViews: []*gltf.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 36},
			{Buffer: 0, ByteOffset: 36, ByteLength: 6},
		},
		Accessors: []*gltf.Accessor{
			{BufferView: ptr(0), ComponentType: gltf.ComponentFloat, Count: 3, Type: gltf.AccessorVec3},
			{BufferView: ptr(1), ComponentType: gltf.ComponentUshort, Count: 3, Type: gltf.AccessorScalar},
		},
		Materials: []*gltf.Material{{
			Name: "red",
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: &[4]float64{1, 0, 0, 1},
			},
		}},
		Meshes: []*gltf.Mesh{{
			Name: "tri",
			Primitives: []*gltf.Primitive{{
				Attributes: gltf.PrimitiveAttributes{gltf.POSITION: 0},
				Indices:    ptr(1),
				Material:   ptr(0),
			}},
		}},
	}
}

func TestGLTFFromDocument(t *testing.T) {
	mesh, err := NewGLTFLoader().FromDocument(triangleDocument(), "")
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	if mesh.VertexCount() != 3 || mesh.TriangleCount() != 1 {
		t.Fatalf("got %d vertices, %d faces", mesh.VertexCount(), mesh.TriangleCount())
	}
	if mesh.Faces[0].V != [3]int{0, 1, 2} {
		t.Errorf("face = %v, want winding preserved", mesh.Faces[0].V)
	}
	if mesh.Vertices[1].Position != math3d.V3(1, 0, 0) {
		t.Errorf("vertex 1 = %v", mesh.Vertices[1].Position)
	}
	for i, v := range mesh.Vertices {
		if !vecNear(v.Normal, math3d.V3(0, 0, 1), 1e-9) {
			t.Errorf("vertex %d normal = %v, want (0,0,1)", i, v.Normal)
		}
	}
	if mesh.BaseMap != nil {
		t.Error("document without images should have no base map")
	}

	tris := mesh.Triangles()
	if tris[0].V[0].Color != math3d.V3(1, 0, 0) {
		t.Errorf("colour = %v, want base colour factor", tris[0].V[0].Color)
	}
}

func TestGLTFAccessorErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*gltf.Document)
	}{
		{"index out of range", func(d *gltf.Document) {
			binary.LittleEndian.PutUint16(d.Buffers[0].Data[40:], 9)
		}},
		{"accessor beyond view", func(d *gltf.Document) {
			d.Accessors[0].Count = 4
		}},
		{"wrong type", func(d *gltf.Document) {
			d.Accessors[0].Type = gltf.AccessorVec2
		}},
		{"missing buffer view", func(d *gltf.Document) {
			d.Accessors[1].BufferView = nil
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := triangleDocument()
			tc.mutate(doc)
			if _, err := NewGLTFLoader().FromDocument(doc, ""); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func BenchmarkParseOBJ(b *testing.B) {
	var sb strings.Builder
	for i := range 100 {
		for j := range 100 {
			sb.WriteString("v ")
			sb.WriteString(strings.Join([]string{itoa(i), itoa(j), "0"}, " "))
			sb.WriteByte('\n')
		}
	}
	for i := range 99 {
		for j := range 99 {
			a := i*100 + j + 1
			sb.WriteString("f " + itoa(a) + " " + itoa(a+1) + " " + itoa(a+101) + " " + itoa(a+100) + "\n")
		}
	}
	src := sb.String()

	for b.Loop() {
		if _, err := ParseOBJ(strings.NewReader(src), ""); err != nil {
			b.Fatal(err)
		}
	}
}

func itoa(i int) string { return strconv.Itoa(i) }
