package render

import (
	"image"
	"image/color"
	"math"

	"github.com/taigrr/glint/pkg/math3d"
)

// Framebuffer holds the colour and depth planes of one render target.
//
// Colour is row-major with row 0 at the top. Depth is stored bottom-up:
// the entry for pixel (x, y) lives at (Height-1-y)*Width + x.
type Framebuffer struct {
	Width  int
	Height int
	Pixels []color.RGBA
	Depth  []float64
}

// NewFramebuffer creates a framebuffer with depth initialised to +Inf and
// black pixels.
func NewFramebuffer(width, height int) *Framebuffer {
	width, height = max(width, 0), max(height, 0)
	fb := &Framebuffer{
		Width:  width,
		Height: height,
		Pixels: make([]color.RGBA, width*height),
		Depth:  make([]float64, width*height),
	}
	fb.Clear(color.RGBA{A: 255})
	return fb
}

// Clear fills the colour plane with bg and resets every depth to +Inf.
func (fb *Framebuffer) Clear(bg color.RGBA) {
	fill(fb.Pixels, bg)
	fill(fb.Depth, math.Inf(1))
}

// fill sets every element of s to v using copy-doubling.
func fill[T any](s []T, v T) {
	if len(s) == 0 {
		return
	}
	s[0] = v
	for i := 1; i < len(s); i *= 2 {
		copy(s[i:], s[:i])
	}
}

func (fb *Framebuffer) depthIndex(x, y int) int {
	return (fb.Height-1-y)*fb.Width + x
}

func (fb *Framebuffer) inBounds(x, y int) bool {
	return x >= 0 && x < fb.Width && y >= 0 && y < fb.Height
}

// At returns the colour at (x, y), or transparent black out of bounds.
func (fb *Framebuffer) At(x, y int) color.RGBA {
	if !fb.inBounds(x, y) {
		return color.RGBA{}
	}
	return fb.Pixels[y*fb.Width+x]
}

// DepthAt returns the stored depth for pixel (x, y), or +Inf out of bounds.
func (fb *Framebuffer) DepthAt(x, y int) float64 {
	if !fb.inBounds(x, y) {
		return math.Inf(1)
	}
	return fb.Depth[fb.depthIndex(x, y)]
}

// ToImage copies the colour plane into a new image.RGBA.
func (fb *Framebuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for i, c := range fb.Pixels {
		p := img.Pix[i*4 : i*4+4 : i*4+4]
		p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
	}
	return img
}

// toRGBA converts a shaded colour to 8 bits per channel. Each channel is
// clamped to [0,1] and NaN maps to 0 before scaling by 255.
func toRGBA(c math3d.Vec3) color.RGBA {
	return color.RGBA{R: channel(c.X), G: channel(c.Y), B: channel(c.Z), A: 255}
}

func channel(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v * 255)
}
