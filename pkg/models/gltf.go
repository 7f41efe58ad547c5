package models

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"

	"github.com/taigrr/glint"
	"github.com/taigrr/glint/pkg/material"
	"github.com/taigrr/glint/pkg/math3d"
	"github.com/taigrr/glint/pkg/texture"
)

// GLTFLoader loads glTF/GLB files into Mesh format.
type GLTFLoader struct {
	// Options
	CalculateNormals bool
	SmoothNormals    bool
}

// NewGLTFLoader creates a new glTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		CalculateNormals: true,
		SmoothNormals:    true,
	}
}

// LoadGLTF loads a .gltf or .glb file with the default options.
func LoadGLTF(path string) (*Mesh, error) {
	return NewGLTFLoader().Load(path)
}

// Load loads a glTF or GLB file and returns a Mesh. Every mesh in the
// document is merged into one.
func (l *GLTFLoader) Load(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("models: open gltf %s: %w", path, err)
	}
	mesh, err := l.FromDocument(doc, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("models: %s: %w", path, err)
	}
	mesh.Name = filepath.Base(path)
	return mesh, nil
}

// FromDocument converts a decoded document. dir resolves external image
// URIs.
func (l *GLTFLoader) FromDocument(doc *gltf.Document, dir string) (*Mesh, error) {
	mesh := NewMesh("")
	mesh.Materials = convertMaterials(doc)

	for _, m := range doc.Meshes {
		if err := l.processMesh(doc, m, mesh); err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", m.Name, err)
		}
	}

	if l.CalculateNormals {
		if l.SmoothNormals {
			mesh.fillMissingNormals()
		} else if !hasNormals(mesh) {
			mesh.CalculateNormals()
		}
	}
	mesh.CalculateBounds()

	img, err := baseColorImage(doc, dir)
	if err != nil {
		glint.Logger().Warn("gltf: base colour image not loaded", "error", err)
	}
	mesh.BaseMap = img

	return mesh, nil
}

func hasNormals(mesh *Mesh) bool {
	for _, v := range mesh.Vertices {
		if v.Normal.Len() > 0.001 {
			return true
		}
	}
	return false
}

// convertMaterials maps glTF materials onto classic coefficients; the base
// colour factor becomes Kd.
func convertMaterials(doc *gltf.Document) []material.Classic {
	mats := make([]material.Classic, len(doc.Materials))
	for i, gm := range doc.Materials {
		mats[i] = material.DefaultClassic(gm.Name)
		if pbr := gm.PBRMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
			f := pbr.BaseColorFactor
			mats[i].Kd = math3d.V3(f[0], f[1], f[2])
			mats[i].D = f[3]
		}
	}
	return mats
}

// processMesh extracts geometry from a glTF mesh.
func (l *GLTFLoader) processMesh(doc *gltf.Document, m *gltf.Mesh, mesh *Mesh) error {
	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			// Skip non-triangle primitives (lines, points, etc)
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := readVec3Accessor(doc, posIdx)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}

		var normals []math3d.Vec3
		if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
			if normals, err = readVec3Accessor(doc, normIdx); err != nil {
				return fmt.Errorf("read normals: %w", err)
			}
		}

		var uvs []math3d.Vec2
		if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			if uvs, err = readVec2Accessor(doc, uvIdx); err != nil {
				return fmt.Errorf("read uvs: %w", err)
			}
		}

		matIdx := -1
		if prim.Material != nil && *prim.Material < len(mesh.Materials) {
			matIdx = *prim.Material
		}

		baseVertex := len(mesh.Vertices)
		for i := range positions {
			v := MeshVertex{Position: positions[i]}
			if i < len(normals) {
				v.Normal = normals[i]
			}
			if i < len(uvs) {
				// glTF puts V=0 at the top of the image
				v.UV = math3d.V2(uvs[i].X, 1.0-uvs[i].Y)
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}

		var indices []int
		if prim.Indices != nil {
			if indices, err = readIndices(doc, *prim.Indices); err != nil {
				return fmt.Errorf("read indices: %w", err)
			}
		} else {
			indices = make([]int, len(positions))
			for i := range indices {
				indices[i] = i
			}
		}

		for i := 0; i+2 < len(indices); i += 3 {
			f := Face{
				V:        [3]int{baseVertex + indices[i], baseVertex + indices[i+1], baseVertex + indices[i+2]},
				Material: matIdx,
			}
			for _, vi := range f.V {
				if vi >= len(mesh.Vertices) {
					return fmt.Errorf("index %d out of range (%d vertices)", vi-baseVertex, len(positions))
				}
			}
			mesh.Faces = append(mesh.Faces, f)
		}
	}

	return nil
}

// readVec3Accessor reads float VEC3 data from a glTF accessor.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	floats, err := readFloatAccessor(doc, accessorIdx, gltf.AccessorVec3, 3)
	if err != nil {
		return nil, err
	}
	result := make([]math3d.Vec3, len(floats)/3)
	for i := range result {
		result[i] = math3d.V3(floats[i*3], floats[i*3+1], floats[i*3+2])
	}
	return result, nil
}

// readVec2Accessor reads float VEC2 data from a glTF accessor.
func readVec2Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec2, error) {
	floats, err := readFloatAccessor(doc, accessorIdx, gltf.AccessorVec2, 2)
	if err != nil {
		return nil, err
	}
	result := make([]math3d.Vec2, len(floats)/2)
	for i := range result {
		result[i] = math3d.V2(floats[i*2], floats[i*2+1])
	}
	return result, nil
}

func readFloatAccessor(doc *gltf.Document, accessorIdx int, want gltf.AccessorType, n int) ([]float64, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != want {
		return nil, fmt.Errorf("expected %v, got %v", want, accessor.Type)
	}
	if accessor.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("unsupported component type %v", accessor.ComponentType)
	}

	data, stride, err := accessorBytes(doc, accessor, n*4)
	if err != nil {
		return nil, err
	}
	out := make([]float64, accessor.Count*n)
	for i := range accessor.Count {
		for j := range n {
			bits := binary.LittleEndian.Uint32(data[i*stride+j*4:])
			out[i*n+j] = float64(math.Float32frombits(bits))
		}
	}
	return out, nil
}

// readIndices reads index data from a glTF accessor.
func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("expected SCALAR indices, got %v", accessor.Type)
	}

	var size int
	switch accessor.ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	default:
		return nil, fmt.Errorf("unexpected index type: %v", accessor.ComponentType)
	}

	data, stride, err := accessorBytes(doc, accessor, size)
	if err != nil {
		return nil, err
	}
	result := make([]int, accessor.Count)
	for i := range result {
		b := data[i*stride:]
		switch size {
		case 1:
			result[i] = int(b[0])
		case 2:
			result[i] = int(binary.LittleEndian.Uint16(b))
		case 4:
			result[i] = int(binary.LittleEndian.Uint32(b))
		}
	}
	return result, nil
}

// accessorBytes returns the bytes backing accessor, starting at its first
// element, and the stride between elements. elemSize is the packed size
// used when the view declares no stride.
func accessorBytes(doc *gltf.Document, accessor *gltf.Accessor, elemSize int) ([]byte, int, error) {
	if accessor.BufferView == nil {
		return nil, 0, errors.New("accessor has no buffer view")
	}
	if *accessor.BufferView >= len(doc.BufferViews) {
		return nil, 0, fmt.Errorf("buffer view %d out of range", *accessor.BufferView)
	}
	view := doc.BufferViews[*accessor.BufferView]
	if view.Buffer >= len(doc.Buffers) {
		return nil, 0, fmt.Errorf("buffer %d out of range", view.Buffer)
	}
	buf := doc.Buffers[view.Buffer].Data
	if buf == nil {
		return nil, 0, errors.New("buffer has no data")
	}

	stride := view.ByteStride
	if stride == 0 {
		stride = elemSize
	}
	start := view.ByteOffset + accessor.ByteOffset
	if accessor.Count == 0 {
		return nil, stride, nil
	}
	end := start + (accessor.Count-1)*stride + elemSize
	if start < 0 || end > len(buf) || end > view.ByteOffset+view.ByteLength {
		return nil, 0, fmt.Errorf("accessor spans bytes [%d,%d) beyond its buffer view", start, end)
	}
	return buf[start:end], stride, nil
}

// baseColorImage decodes the base colour texture of the first material
// that has one. It returns nil without error when there is none.
func baseColorImage(doc *gltf.Document, dir string) (image.Image, error) {
	for _, gm := range doc.Materials {
		pbr := gm.PBRMetallicRoughness
		if pbr == nil || pbr.BaseColorTexture == nil {
			continue
		}
		ti := pbr.BaseColorTexture.Index
		if ti >= len(doc.Textures) || doc.Textures[ti].Source == nil {
			continue
		}
		src := *doc.Textures[ti].Source
		if src >= len(doc.Images) {
			continue
		}
		data, err := imageBytes(doc, doc.Images[src], dir)
		if err != nil {
			return nil, err
		}
		img, _, err := texture.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode image %d: %w", src, err)
		}
		return img, nil
	}
	return nil, nil
}

func imageBytes(doc *gltf.Document, img *gltf.Image, dir string) ([]byte, error) {
	switch {
	case img.BufferView != nil:
		if *img.BufferView >= len(doc.BufferViews) {
			return nil, fmt.Errorf("image buffer view %d out of range", *img.BufferView)
		}
		bv := doc.BufferViews[*img.BufferView]
		if bv.Buffer >= len(doc.Buffers) {
			return nil, fmt.Errorf("buffer %d out of range", bv.Buffer)
		}
		buf := doc.Buffers[bv.Buffer].Data
		end := bv.ByteOffset + bv.ByteLength
		if end > len(buf) {
			return nil, errors.New("image buffer view beyond buffer")
		}
		return buf[bv.ByteOffset:end], nil
	case strings.HasPrefix(img.URI, "data:"):
		return img.MarshalData()
	case img.URI != "":
		return os.ReadFile(filepath.Join(dir, filepath.FromSlash(img.URI)))
	default:
		return nil, errors.New("image has neither buffer view nor URI")
	}
}
