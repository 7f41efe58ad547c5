package models

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/taigrr/glint"
	"github.com/taigrr/glint/pkg/material"
	"github.com/taigrr/glint/pkg/math3d"
)

// LoadOBJ reads a Wavefront OBJ file. Material libraries named by mtllib
// are resolved relative to the file.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("models: open %s: %w", path, err)
	}
	defer f.Close()

	mesh, err := ParseOBJ(f, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("models: %s: %w", path, err)
	}
	if mesh.Name == "" {
		mesh.Name = filepath.Base(path)
	}
	return mesh, nil
}

// objCorner indexes one face corner; -1 marks an absent attribute.
type objCorner struct {
	pos, uv, normal int
}

type objParser struct {
	dir  string
	mesh *Mesh

	positions []math3d.Vec3
	uvs       []math3d.Vec2
	normals   []math3d.Vec3

	vertexOf  map[objCorner]int
	materials map[string]int
	current   int
}

// ParseOBJ parses OBJ statements: v, vt, vn, f, mtllib, usemtl and o.
// Polygons are fan-triangulated and negative indices count back from the
// latest element. Vertices without a normal get a smooth one. A material
// library that fails to load is logged and its materials stay unset.
func ParseOBJ(r io.Reader, dir string) (*Mesh, error) {
	p := &objParser{
		dir:       dir,
		mesh:      NewMesh(""),
		vertexOf:  make(map[objCorner]int),
		materials: make(map[string]int),
		current:   -1,
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if err := p.statement(fields[0], fields[1:]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	p.mesh.fillMissingNormals()
	p.mesh.CalculateBounds()
	return p.mesh, nil
}

func (p *objParser) statement(key string, args []string) error {
	switch key {
	case "v":
		v, err := parseFloats(args, 3)
		if err != nil {
			return fmt.Errorf("v: %w", err)
		}
		p.positions = append(p.positions, math3d.V3(v[0], v[1], v[2]))
	case "vt":
		v, err := parseFloats(args, 1)
		if err != nil {
			return fmt.Errorf("vt: %w", err)
		}
		uv := math3d.V2(v[0], 0)
		if len(v) > 1 {
			uv.Y = v[1]
		}
		p.uvs = append(p.uvs, uv)
	case "vn":
		v, err := parseFloats(args, 3)
		if err != nil {
			return fmt.Errorf("vn: %w", err)
		}
		p.normals = append(p.normals, math3d.V3(v[0], v[1], v[2]))
	case "f":
		return p.face(args)
	case "mtllib":
		for _, name := range args {
			p.loadLibrary(name)
		}
	case "usemtl":
		p.current = -1
		if len(args) > 0 {
			if i, ok := p.materials[args[0]]; ok {
				p.current = i
			} else {
				glint.Logger().Debug("obj: unknown material", "name", args[0])
			}
		}
	case "o":
		if len(args) > 0 && p.mesh.Name == "" {
			p.mesh.Name = args[0]
		}
	}
	return nil
}

func (p *objParser) loadLibrary(name string) {
	path := filepath.Join(p.dir, name)
	mats, err := material.LoadMTL(path)
	if err != nil {
		glint.Logger().Warn("obj: material library not loaded", "path", path, "error", err)
		return
	}
	for _, m := range mats {
		p.materials[m.Name] = len(p.mesh.Materials)
		p.mesh.Materials = append(p.mesh.Materials, m)
	}
}

func (p *objParser) face(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("f: need at least 3 vertices, got %d", len(args))
	}
	idx := make([]int, len(args))
	for i, tok := range args {
		c, err := p.corner(tok)
		if err != nil {
			return fmt.Errorf("f: %q: %w", tok, err)
		}
		idx[i] = p.vertex(c)
	}
	for k := 1; k+1 < len(idx); k++ {
		p.mesh.Faces = append(p.mesh.Faces, Face{
			V:        [3]int{idx[0], idx[k], idx[k+1]},
			Material: p.current,
		})
	}
	return nil
}

// corner parses v, v/vt, v//vn or v/vt/vn.
func (p *objParser) corner(tok string) (objCorner, error) {
	parts := strings.Split(tok, "/")
	if len(parts) > 3 {
		return objCorner{}, errors.New("too many components")
	}
	c := objCorner{pos: -1, uv: -1, normal: -1}
	var err error
	if c.pos, err = resolveIndex(parts[0], len(p.positions)); err != nil {
		return c, err
	}
	if len(parts) > 1 && parts[1] != "" {
		if c.uv, err = resolveIndex(parts[1], len(p.uvs)); err != nil {
			return c, err
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if c.normal, err = resolveIndex(parts[2], len(p.normals)); err != nil {
			return c, err
		}
	}
	return c, nil
}

// vertex returns the mesh vertex for c, creating it on first use.
func (p *objParser) vertex(c objCorner) int {
	if i, ok := p.vertexOf[c]; ok {
		return i
	}
	v := MeshVertex{Position: p.positions[c.pos]}
	if c.uv >= 0 {
		v.UV = p.uvs[c.uv]
	}
	if c.normal >= 0 {
		v.Normal = p.normals[c.normal].NormalizeOr(math3d.Vec3{})
	}
	i := len(p.mesh.Vertices)
	p.mesh.Vertices = append(p.mesh.Vertices, v)
	p.vertexOf[c] = i
	return i
}

// resolveIndex converts a 1-based or negative OBJ index into a 0-based one.
func resolveIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0:
		i--
	case i < 0:
		i += n
	default:
		return 0, errors.New("index 0 is invalid")
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index %s out of range (%d defined)", s, n)
	}
	return i, nil
}

func parseFloats(args []string, minCount int) ([]float64, error) {
	if len(args) < minCount {
		return nil, fmt.Errorf("need %d values, got %d", minCount, len(args))
	}
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
