package texture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/taigrr/glint/pkg/math3d"
)

var (
	red   = color.RGBA{255, 0, 0, 255}
	green = color.RGBA{0, 255, 0, 255}
	blue  = color.RGBA{0, 0, 255, 255}
	white = color.RGBA{255, 255, 255, 255}
)

// quad returns a 2x2 texture: red, green on top and blue, white below.
func quad() *Texture {
	tex := New(2, 2)
	tex.SetPixel(0, 0, red)
	tex.SetPixel(1, 0, green)
	tex.SetPixel(0, 1, blue)
	tex.SetPixel(1, 1, white)
	return tex
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestColorCorners(t *testing.T) {
	tex := quad()

	tests := []struct {
		name string
		u, v float64
		want color.RGBA
	}{
		{"bottom-left", 0, 0, blue},
		{"bottom-right", 1, 0, white},
		{"top-left", 0, 1, red},
		{"top-right", 1, 1, green},
		{"clamped below", -3, -0.5, blue},
		{"clamped above", 7, 1.5, green},
		{"nan", math.NaN(), math.NaN(), blue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tex.Color(tt.u, tt.v)
			if got != rgb(tt.want) {
				t.Errorf("Color(%v, %v) = %v, want %v", tt.u, tt.v, got, rgb(tt.want))
			}
		})
	}
}

func TestColorBilinear(t *testing.T) {
	tex := New(2, 1)
	tex.SetPixel(0, 0, color.RGBA{0, 0, 0, 255})
	tex.SetPixel(1, 0, color.RGBA{200, 100, 50, 255})
	tex.Filter = FilterBilinear

	got := tex.Color(0.5, 0.5)
	want := math3d.V3(100, 50, 25)
	if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 || math.Abs(got.Z-want.Z) > 1e-9 {
		t.Errorf("bilinear midpoint = %v, want %v", got, want)
	}
	if got := tex.Color(1, 0); got != math3d.V3(200, 100, 50) {
		t.Errorf("bilinear edge = %v, want (200, 100, 50)", got)
	}
}

func TestColorNilTexture(t *testing.T) {
	var tex *Texture
	if got := tex.Color(0.5, 0.5); got != (math3d.Vec3{}) {
		t.Errorf("nil texture sampled %v, want black", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.NRGBA{10, 20, 30, 255})
	img.Set(2, 1, color.NRGBA{40, 50, 60, 255})
	path := filepath.Join(dir, "tex.png")
	writePNG(t, path, img)

	tex, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if w, h := tex.Size(); w != 3 || h != 2 {
		t.Fatalf("size = %dx%d, want 3x2", w, h)
	}
	if got := tex.Color(0, 1); got != math3d.V3(10, 20, 30) {
		t.Errorf("top-left = %v, want (10, 20, 30)", got)
	}
	if got := tex.Color(1, 0); got != math3d.V3(40, 50, 60) {
		t.Errorf("bottom-right = %v, want (40, 50, 60)", got)
	}
}

func TestLoadFormats(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range 16 {
		src.Set(i%4, i/4, color.NRGBA{200, 100, 50, 255})
	}

	tests := []struct {
		name   string
		file   string
		encode func(io.Writer, image.Image) error
		tol    float64
	}{
		{"png", "a.png", png.Encode, 0},
		{"jpeg", "a.jpg", func(w io.Writer, m image.Image) error {
			return jpeg.Encode(w, m, &jpeg.Options{Quality: 100})
		}, 6},
		{"tga", "a.tga", tga.Encode, 0},
		{"bmp", "a.bmp", bmp.Encode, 0},
		{"tiff", "a.tiff", func(w io.Writer, m image.Image) error { return tiff.Encode(w, m, nil) }, 0},
	}
	cache := NewCache()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf, src); err != nil {
				t.Fatal(err)
			}
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				t.Fatal(err)
			}

			_, format, err := Decode(bytes.NewReader(buf.Bytes()))
			if err != nil || format != tt.name {
				t.Fatalf("Decode = %q, %v; want %q", format, err, tt.name)
			}

			for _, load := range []func(string) (*Texture, error){Load, cache.Get} {
				tex, err := load(path)
				if err != nil {
					t.Fatalf("load %s: %v", tt.file, err)
				}
				if w, h := tex.Size(); w != 4 || h != 4 {
					t.Fatalf("size = %dx%d, want 4x4", w, h)
				}
				if d := tex.Color(0.5, 0.5).Distance(math3d.V3(200, 100, 50)); d > tt.tol {
					t.Errorf("centre colour off by %v", d)
				}
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "missing.png")},
		{"undecodable", garbage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDirectionToUV(t *testing.T) {
	uPosX, vPosX := DirectionToUV(math3d.V3(1, 0, 0))
	uNegX, _ := DirectionToUV(math3d.V3(-1, 0, 0))
	if d := math.Abs(uPosX - uNegX); math.Abs(d-0.5) > 1e-9 {
		t.Errorf("|u(+X) - u(-X)| = %v, want 0.5", d)
	}
	if math.Abs(vPosX-0.5) > 1e-9 {
		t.Errorf("v(+X) = %v, want 0.5", vPosX)
	}

	_, vUp := DirectionToUV(math3d.V3(0, 5, 0))
	if math.Abs(vUp-1) > 1e-9 {
		t.Errorf("v(+Y) = %v, want 1", vUp)
	}

	u0, v0 := DirectionToUV(math3d.Vec3{})
	uz, vz := DirectionToUV(math3d.V3(0, 0, 1))
	if u0 != uz || v0 != vz {
		t.Errorf("zero direction = (%v, %v), want +Z (%v, %v)", u0, v0, uz, vz)
	}
}

func TestSkybox(t *testing.T) {
	var sky Skybox
	if sky.Loaded() {
		t.Fatal("zero skybox reports loaded")
	}
	if got := sky.Color(math3d.V3(1, 0, 0)); got != (math3d.Vec3{}) {
		t.Errorf("unloaded skybox sampled %v, want black", got)
	}

	if err := sky.Load(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatal("expected load error")
	}
	if sky.Loaded() {
		t.Fatal("skybox loaded after failed Load")
	}

	full := NewSkybox(NewSolid(color.RGBA{255, 51, 0, 255}))
	if !full.Loaded() {
		t.Fatal("skybox with texture not loaded")
	}
	got := full.Color(math3d.V3(0, 1, 0))
	if math.Abs(got.X-1) > 1e-9 || math.Abs(got.Y-0.2) > 1e-9 || got.Z != 0 {
		t.Errorf("Color = %v, want (1, 0.2, 0)", got)
	}
}

func TestCache(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	c := NewCache()
	c.load = func(path string) (*Texture, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		if path == "bad" {
			return nil, errors.New("boom")
		}
		return quad(), nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			if _, err := c.Get("good"); err != nil {
				t.Errorf("Get: %v", err)
			}
		})
	}
	wg.Wait()

	a, _ := c.Get("good")
	b, _ := c.Get("good")
	if a != b {
		t.Error("cache returned different textures for the same path")
	}

	if _, err := c.Get("bad"); err == nil {
		t.Error("expected error for bad path")
	}
	if _, err := c.Get("bad"); err == nil {
		t.Error("expected cached error for bad path")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if calls > 8+1 {
		t.Errorf("loader called %d times", calls)
	}
}

func BenchmarkColorNearest(b *testing.B) {
	tex := New(256, 256)

	for b.Loop() {
		_ = tex.Color(0.37, 0.61)
	}
}

func BenchmarkColorBilinear(b *testing.B) {
	tex := New(256, 256)
	tex.Filter = FilterBilinear

	for b.Loop() {
		_ = tex.Color(0.37, 0.61)
	}
}
