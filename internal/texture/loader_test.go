package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	return img
}

func TestLoadPNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "diffuse.png")

	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(8, 4)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	tex, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tex.Name != "diffuse" {
		t.Errorf("Name = %q, want %q", tex.Name, "diffuse")
	}
	if tex.MimeType != "image/png" {
		t.Errorf("MimeType = %q, want image/png", tex.MimeType)
	}
	if b := tex.Image.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Errorf("bounds = %v, want 8x4", b)
	}
	if tex.Path != path {
		t.Errorf("Path = %q, want %q", tex.Path, path)
	}
}

func TestLoadWebP(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "skin.webp")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := nativewebp.Encode(f, testImage(16, 16), nil); err != nil {
		f.Close()
		t.Fatal(err)
	}
	f.Close()

	tex, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tex.MimeType != "image/webp" {
		t.Errorf("MimeType = %q, want image/webp", tex.MimeType)
	}
	if b := tex.Image.Bounds(); b.Dx() != 16 || b.Dy() != 16 {
		t.Errorf("bounds = %v, want 16x16", b)
	}
}

func TestLoadTGAByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.tga")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := tga.Encode(f, testImage(4, 4)); err != nil {
		f.Close()
		t.Fatal(err)
	}
	f.Close()

	tex, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tex.MimeType != "image/x-tga" {
		t.Errorf("MimeType = %q, want image/x-tga", tex.MimeType)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "junk.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted garbage bytes")
	}
}

func TestSniff(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"png", []byte("\x89PNG\r\n\x1a\nxxxx"), "image/png"},
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0}, "image/jpeg"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8L"), "image/webp"},
		{"unknown", []byte("BM6"), ""},
		{"short", []byte{0x89}, ""},
	}
	for _, tc := range cases {
		if got := Sniff(tc.data); got != tc.want {
			t.Errorf("Sniff(%s) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestPNGReencode(t *testing.T) {
	tex := &Texture{Name: "flat", MimeType: "image/x-tga", Image: testImage(2, 2)}
	data, err := tex.PNG()
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	if Sniff(data) != "image/png" {
		t.Fatal("PNG() did not produce PNG bytes")
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode round trip: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Errorf("round trip bounds = %v, want 2x2", b)
	}
}
