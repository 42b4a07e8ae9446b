// Package texture loads accessory texture images and converts them to a
// uniform NRGBA representation for binding, preview and embedding.
package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/webp"
)

// Texture is a decoded image plus enough source information to re-emit it:
// exporters embed Data directly when the container accepts the mime type and
// re-encode Image otherwise.
type Texture struct {
	Name     string
	Path     string // source file when loaded from disk, else empty
	MimeType string
	Data     []byte // original encoded bytes
	Image    *image.NRGBA
}

// Load reads and decodes a texture file. The format is sniffed from the
// content first; TGA has no magic bytes and falls back to the extension.
func Load(path string) (*Texture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("texture: read %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tex, err := Decode(name, data)
	if err == nil {
		tex.Path = path
		return tex, nil
	}
	if strings.EqualFold(filepath.Ext(path), ".tga") {
		img, terr := tga.Decode(bytes.NewReader(data))
		if terr != nil {
			return nil, fmt.Errorf("texture: decode %s: %w", path, terr)
		}
		return &Texture{
			Name:     name,
			Path:     path,
			MimeType: "image/x-tga",
			Data:     data,
			Image:    toNRGBA(img),
		}, nil
	}
	return nil, fmt.Errorf("texture: decode %s: %w", path, err)
}

// Decode decodes in-memory image bytes, as found in GLB buffers.
func Decode(name string, data []byte) (*Texture, error) {
	mime := Sniff(data)
	var (
		img image.Image
		err error
	)
	switch mime {
	case "image/png":
		img, err = png.Decode(bytes.NewReader(data))
	case "image/jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case "image/webp":
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("texture: %s: unrecognized image data", name)
	}
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", name, err)
	}
	return &Texture{
		Name:     name,
		MimeType: mime,
		Data:     data,
		Image:    toNRGBA(img),
	}, nil
}

// Sniff returns the mime type for known image magics, or "".
func Sniff(data []byte) string {
	switch {
	case len(data) >= 8 && bytes.Equal(data[:8], []byte("\x89PNG\r\n\x1a\n")):
		return "image/png"
	case len(data) >= 3 && data[0] == 0xff && data[1] == 0xd8 && data[2] == 0xff:
		return "image/jpeg"
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	}
	return ""
}

// PNG returns the texture as PNG bytes, reusing the source encoding when it
// already is PNG.
func (t *Texture) PNG() ([]byte, error) {
	if t.MimeType == "image/png" && t.Data != nil {
		return t.Data, nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, t.Image); err != nil {
		return nil, fmt.Errorf("texture: encode %s: %w", t.Name, err)
	}
	return buf.Bytes(), nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
