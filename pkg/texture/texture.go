// Package texture provides image samplers addressed by normalized
// coordinates, an equirectangular skybox, and a shared decode cache.
package texture

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	"golang.org/x/image/draw"

	"github.com/taigrr/glint/pkg/math3d"
)

// FilterMode determines how texture sampling is performed.
type FilterMode int

const (
	FilterNearest  FilterMode = iota // Nearest pixel after rounding
	FilterBilinear                   // Bilinear interpolation of the four neighbours
)

// Texture is an immutable RGB raster sampled by (u, v) in [0,1]².
// v = 0 is the bottom row of the image.
type Texture struct {
	Width  int
	Height int
	Pixels []color.RGBA // Row-major, row 0 at the top
	Filter FilterMode
}

// New creates a black texture with the given dimensions.
func New(width, height int) *Texture {
	return &Texture{
		Width:  width,
		Height: height,
		Pixels: make([]color.RGBA, width*height),
	}
}

// Load decodes an image file (PNG, JPEG, TGA, BMP, TIFF or WebP).
// Decoders produce RGB order, so no channel swap is applied.
func Load(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("texture: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", path, err)
	}
	tex := FromImage(img)
	if tex.Width == 0 || tex.Height == 0 {
		return nil, fmt.Errorf("texture: %s: empty image", path)
	}
	return tex, nil
}

// FromImage copies an image into a texture.
func FromImage(img image.Image) *Texture {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) || rgba.Stride != 4*b.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	tex := New(b.Dx(), b.Dy())
	for i := range tex.Pixels {
		p := rgba.Pix[i*4 : i*4+4 : i*4+4]
		tex.Pixels[i] = color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
	}
	return tex
}

// Size returns the texture dimensions.
func (t *Texture) Size() (int, int) {
	return t.Width, t.Height
}

// SetPixel sets a pixel, ignoring out-of-range coordinates.
func (t *Texture) SetPixel(x, y int, c color.RGBA) {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return
	}
	t.Pixels[y*t.Width+x] = c
}

// Pixel returns the pixel at (x, y) with indices clamped to the image.
func (t *Texture) Pixel(x, y int) color.RGBA {
	x = clampIndex(x, t.Width)
	y = clampIndex(y, t.Height)
	return t.Pixels[y*t.Width+x]
}

// Color samples the texture at (u, v). Coordinates are clamped to [0,1].
// The result holds channel values in [0,255].
func (t *Texture) Color(u, v float64) math3d.Vec3 {
	if t == nil || t.Width == 0 || t.Height == 0 {
		return math3d.Vec3{}
	}
	u = clampCoord(u)
	v = clampCoord(v)

	if t.Filter == FilterBilinear {
		return t.sampleBilinear(u, v)
	}

	x := int(math.Round(u * float64(t.Width-1)))
	y := int(math.Round((1 - v) * float64(t.Height-1)))
	return rgb(t.Pixel(x, y))
}

func (t *Texture) sampleBilinear(u, v float64) math3d.Vec3 {
	fx := u * float64(t.Width-1)
	fy := (1 - v) * float64(t.Height-1)

	x0, y0 := int(math.Floor(fx)), int(math.Floor(fy))
	tx, ty := fx-float64(x0), fy-float64(y0)

	c00 := rgb(t.Pixel(x0, y0))
	c10 := rgb(t.Pixel(x0+1, y0))
	c01 := rgb(t.Pixel(x0, y0+1))
	c11 := rgb(t.Pixel(x0+1, y0+1))

	top := c00.Lerp(c10, tx)
	bot := c01.Lerp(c11, tx)
	return top.Lerp(bot, ty)
}

func rgb(c color.RGBA) math3d.Vec3 {
	return math3d.Vec3{X: float64(c.R), Y: float64(c.G), Z: float64(c.B)}
}

// clampCoord limits a coordinate to [0,1]; NaN maps to 0.
func clampCoord(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return math3d.Clamp(c, 0, 1)
}

func clampIndex(i, size int) int {
	if i < 0 {
		return 0
	}
	if i >= size {
		return size - 1
	}
	return i
}

// NewSolid creates a 1x1 texture of a single colour.
func NewSolid(c color.RGBA) *Texture {
	tex := New(1, 1)
	tex.Pixels[0] = c
	return tex
}
