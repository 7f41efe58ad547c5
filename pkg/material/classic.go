// Package material defines the surface descriptions consumed by shaders:
// classic MTL-style Phong coefficients and PBR parameter sets with
// optional texture maps.
package material

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/taigrr/glint/pkg/math3d"
)

// Classic holds Phong-style coefficients as found in Wavefront MTL files.
type Classic struct {
	Name  string
	Ks    math3d.Vec3 // Specular reflectance
	Kd    math3d.Vec3 // Diffuse reflectance
	Ka    math3d.Vec3 // Ambient reflectance
	Ns    float64     // Specular exponent
	Ni    float64     // Index of refraction
	D     float64     // Dissolve (opacity)
	Illum int         // Illumination model
}

// DefaultClassic returns the coefficients used when a file omits a key.
func DefaultClassic(name string) Classic {
	return Classic{
		Name:  name,
		Ks:    math3d.Splat(0.7937),
		Kd:    math3d.Splat(1),
		Ka:    math3d.Splat(0.005),
		Ns:    32,
		Ni:    1,
		D:     1,
		Illum: 2,
	}
}

// LoadMTL reads a Wavefront material library.
func LoadMTL(path string) ([]Classic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("material: open %s: %w", path, err)
	}
	defer f.Close()

	mats, err := ParseMTL(f)
	if err != nil {
		return nil, fmt.Errorf("material: %s: %w", path, err)
	}
	return mats, nil
}

// ParseMTL parses MTL statements (newmtl, Ks, Kd, Ka, Ns, Ni, d, illum).
// Unknown statements are ignored. Statements before the first newmtl are
// an error since they have no material to apply to.
func ParseMTL(r io.Reader) ([]Classic, error) {
	var (
		mats []Classic
		cur  *Classic
	)

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		key, args := fields[0], fields[1:]

		if key == "newmtl" {
			if len(args) == 0 {
				return nil, fmt.Errorf("line %d: newmtl without a name", lineNo)
			}
			mats = append(mats, DefaultClassic(strings.Join(args, " ")))
			cur = &mats[len(mats)-1]
			continue
		}

		switch key {
		case "Ks", "Kd", "Ka", "Ns", "Ni", "d", "illum":
		default:
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("line %d: %s before newmtl", lineNo, key)
		}

		var err error
		switch key {
		case "Ks":
			cur.Ks, err = parseVec3(args)
		case "Kd":
			cur.Kd, err = parseVec3(args)
		case "Ka":
			cur.Ka, err = parseVec3(args)
		case "Ns":
			cur.Ns, err = parseScalar(args)
		case "Ni":
			cur.Ni, err = parseScalar(args)
		case "d":
			cur.D, err = parseScalar(args)
		case "illum":
			var v float64
			v, err = parseScalar(args)
			cur.Illum = int(v)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", lineNo, key, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return mats, nil
}

func parseScalar(args []string) (float64, error) {
	if len(args) < 1 {
		return 0, errors.New("missing value")
	}
	return strconv.ParseFloat(args[0], 64)
}

// parseVec3 accepts "r g b" or a single grey value.
func parseVec3(args []string) (math3d.Vec3, error) {
	switch {
	case len(args) >= 3:
		var v [3]float64
		for i := range v {
			f, err := strconv.ParseFloat(args[i], 64)
			if err != nil {
				return math3d.Vec3{}, err
			}
			v[i] = f
		}
		return math3d.V3(v[0], v[1], v[2]), nil
	case len(args) == 1:
		f, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return math3d.Vec3{}, err
		}
		return math3d.Splat(f), nil
	}
	return math3d.Vec3{}, fmt.Errorf("want 1 or 3 values, got %d", len(args))
}
