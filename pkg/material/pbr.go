package material

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/taigrr/glint"
	"github.com/taigrr/glint/pkg/math3d"
	"github.com/taigrr/glint/pkg/texture"
)

// PBR is a metallic-roughness material. Every map is optional; a missing
// map falls back to the matching scalar.
type PBR struct {
	Name      string
	Albedo    math3d.Vec3
	Metallic  float64
	Roughness float64

	AlbedoMap    *texture.Texture
	NormalMap    *texture.Texture
	MetallicMap  *texture.Texture
	RoughnessMap *texture.Texture
	AOMap        *texture.Texture
}

// DefaultPBR returns a white dielectric with medium roughness.
func DefaultPBR(name string) *PBR {
	return &PBR{
		Name:      name,
		Albedo:    math3d.Splat(1),
		Metallic:  0,
		Roughness: 0.5,
	}
}

// HasAlbedoMap reports whether an albedo map is present.
func (m *PBR) HasAlbedoMap() bool { return m != nil && m.AlbedoMap != nil }

// HasNormalMap reports whether a normal map is present.
func (m *PBR) HasNormalMap() bool { return m != nil && m.NormalMap != nil }

// HasMetallicMap reports whether a metallic map is present.
func (m *PBR) HasMetallicMap() bool { return m != nil && m.MetallicMap != nil }

// HasRoughnessMap reports whether a roughness map is present.
func (m *PBR) HasRoughnessMap() bool { return m != nil && m.RoughnessMap != nil }

// HasAOMap reports whether an ambient-occlusion map is present.
func (m *PBR) HasAOMap() bool { return m != nil && m.AOMap != nil }

// MapKind identifies one of the PBR texture slots.
type MapKind int

// PBR texture slots, in resolution order.
const (
	MapAlbedo MapKind = iota
	MapNormal
	MapMetallic
	MapRoughness
	MapAO
)

func (k MapKind) String() string {
	switch k {
	case MapAlbedo:
		return "albedo"
	case MapNormal:
		return "normal"
	case MapMetallic:
		return "metallic"
	case MapRoughness:
		return "roughness"
	case MapAO:
		return "ao"
	}
	return fmt.Sprintf("MapKind(%d)", int(k))
}

// mapKeywords lists the case-insensitive file-name fragments that
// identify each slot.
var mapKeywords = map[MapKind][]string{
	MapAlbedo:    {"basecolor", "albedo", "_col_", "_color", "_diffuse"},
	MapNormal:    {"normal", "_nrm_", "_norm", "_n_", "_bump"},
	MapMetallic:  {"metallic", "_metal", "_met_", "_metallness"},
	MapRoughness: {"roughness", "_rough", "_rgh_", "_roughness"},
	MapAO:        {"ao", "ambientocclusion", "_occlusion", "_ao_", "_ambient"},
}

var imageExts = []string{".jpg", ".jpeg", ".png", ".tif", ".tiff", ".tga", ".bmp"}

// slot returns a pointer to the texture field for kind.
func (m *PBR) slot(kind MapKind) **texture.Texture {
	switch kind {
	case MapAlbedo:
		return &m.AlbedoMap
	case MapNormal:
		return &m.NormalMap
	case MapMetallic:
		return &m.MetallicMap
	case MapRoughness:
		return &m.RoughnessMap
	case MapAO:
		return &m.AOMap
	}
	return nil
}

// LoadPBR builds a material from the image files in dir and its immediate
// subdirectories, assigning each file to a slot by name. Maps that fail to
// decode are left empty. cache may be nil.
func LoadPBR(dir string, cache *texture.Cache) (*PBR, error) {
	files, err := imageFiles(dir)
	if err != nil {
		return nil, err
	}

	mat := DefaultPBR(filepath.Base(dir))
	log := glint.Logger().With("material", mat.Name)

	for kind := MapAlbedo; kind <= MapAO; kind++ {
		path := matchFile(files, mapKeywords[kind])
		if path == "" {
			continue
		}
		var tex *texture.Texture
		if cache != nil {
			tex, err = cache.Get(path)
		} else {
			tex, err = texture.Load(path)
		}
		if err != nil {
			log.Warn("skipping material map", "map", kind, "path", path, "error", err)
			continue
		}
		*mat.slot(kind) = tex
		log.Debug("resolved material map", "map", kind, "path", path)
	}
	return mat, nil
}

// imageFiles lists image files directly in dir followed by those one
// level below it, each group sorted by name.
func imageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("material: read %s: %w", dir, err)
	}

	var files, subdirs []string
	for _, e := range entries {
		if e.IsDir() {
			subdirs = append(subdirs, filepath.Join(dir, e.Name()))
			continue
		}
		if isImage(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)

	for _, sub := range subdirs {
		subEntries, err := os.ReadDir(sub)
		if err != nil {
			continue
		}
		var nested []string
		for _, e := range subEntries {
			if !e.IsDir() && isImage(e.Name()) {
				nested = append(nested, filepath.Join(sub, e.Name()))
			}
		}
		slices.Sort(nested)
		files = append(files, nested...)
	}
	return files, nil
}

func isImage(name string) bool {
	return slices.Contains(imageExts, strings.ToLower(filepath.Ext(name)))
}

// matchFile returns the first file whose base name contains any keyword.
func matchFile(files []string, keywords []string) string {
	for _, f := range files {
		name := strings.ToLower(filepath.Base(f))
		for _, kw := range keywords {
			if strings.Contains(name, kw) {
				return f
			}
		}
	}
	return ""
}
