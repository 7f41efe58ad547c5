package export

import (
	"image"

	"golang.org/x/image/draw"
)

// Downsample scales img to width×height with a Catmull-Rom filter. It is
// used to resolve supersampled frames; rendered frames are opaque so no
// alpha premultiplication is needed. An image already at the target size
// is returned unchanged.
func Downsample(img *image.RGBA, width, height int) *image.RGBA {
	b := img.Bounds()
	if width <= 0 || height <= 0 || (b.Dx() == width && b.Dy() == height) {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
