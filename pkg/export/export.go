// Package export writes rendered frames to image files.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
)

// Format is an output image encoding.
type Format string

// Supported formats.
const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	WebP Format = "webp"
)

// DefaultJPEGQuality is used when Options.Quality is zero.
const DefaultJPEGQuality = 92

// Options tunes encoding. The zero value is valid.
type Options struct {
	Quality int // JPEG quality in [1,100]
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return PNG, nil
	case ".jpg", ".jpeg":
		return JPEG, nil
	case ".webp":
		return WebP, nil
	case "":
		return "", fmt.Errorf("export: %s has no extension", path)
	default:
		return "", fmt.Errorf("export: unsupported format %q", ext)
	}
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f Format, opts *Options) error {
	if img == nil {
		return errors.New("export: nil image")
	}
	var o Options
	if opts != nil {
		o = *opts
	}

	var err error
	switch f {
	case PNG:
		err = png.Encode(w, img)
	case JPEG:
		q := o.Quality
		if q == 0 {
			q = DefaultJPEGQuality
		}
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: min(max(q, 1), 100)})
	case WebP:
		err = nativewebp.Encode(w, img, nil)
	default:
		return fmt.Errorf("export: unsupported format %q", f)
	}
	if err != nil {
		return fmt.Errorf("export: encode %s: %w", f, err)
	}
	return nil
}

// WriteFile encodes img into path, creating parent directories. The
// format comes from the extension.
func WriteFile(path string, img image.Image, opts *Options) (err error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("export: close %s: %w", path, cerr)
		}
	}()

	return Encode(out, img, f, opts)
}
