package preview

import (
	"fmt"
	"image"
	"os"

	"github.com/HugoSmits86/nativewebp"
)

// SaveWebP writes the image as lossless WebP.
func SaveWebP(img *image.NRGBA, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	defer f.Close()

	if err := nativewebp.Encode(f, img, nil); err != nil {
		return fmt.Errorf("preview: webp encode %s: %w", path, err)
	}
	return nil
}
