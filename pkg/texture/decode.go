package texture

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// The tga package registers itself with an empty magic string, which
// matches every input, so image.Decode cannot be used once it is linked.
// Decode picks the decoder from the leading bytes instead.

type decoder struct {
	name  string
	match func(head []byte) bool
	fn    func(io.Reader) (image.Image, error)
}

func prefix(magic string) func([]byte) bool {
	return func(head []byte) bool { return bytes.HasPrefix(head, []byte(magic)) }
}

var decoders = []decoder{
	{"png", prefix("\x89PNG\r\n\x1a\n"), png.Decode},
	{"jpeg", prefix("\xff\xd8"), jpeg.Decode},
	{"bmp", prefix("BM"), bmp.Decode},
	{"tiff", func(h []byte) bool {
		return bytes.HasPrefix(h, []byte("II*\x00")) || bytes.HasPrefix(h, []byte("MM\x00*"))
	}, tiff.Decode},
	{"webp", func(h []byte) bool {
		return len(h) >= 12 && string(h[:4]) == "RIFF" && string(h[8:12]) == "WEBP"
	}, webp.Decode},
}

// Decode reads a PNG, JPEG, BMP, TIFF, WebP or TGA image. TGA has no
// signature and is tried when nothing else matches.
func Decode(r io.Reader) (image.Image, string, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(12)
	if err != nil && err != io.EOF {
		return nil, "", err
	}
	for _, d := range decoders {
		if d.match(head) {
			img, err := d.fn(br)
			if err != nil {
				return nil, d.name, fmt.Errorf("%s: %w", d.name, err)
			}
			return img, d.name, nil
		}
	}
	img, err := tga.Decode(br)
	if err != nil {
		return nil, "tga", fmt.Errorf("unrecognised image format: %w", err)
	}
	return img, "tga", nil
}
