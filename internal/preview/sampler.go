package preview

import "image"

// wrapUV maps any coordinate into [0, 1), repeating the texture.
func wrapUV(c float64) float64 {
	c -= float64(int(c))
	if c < 0 {
		c++
	}
	return c
}

// sampleTexture reads a bilinearly filtered texel, touching tex.Pix directly
// to keep the pixel loop allocation-free.
func sampleTexture(tex *image.NRGBA, u, v float64) (r, g, b, a uint8) {
	w, h := tex.Rect.Dx(), tex.Rect.Dy()

	fx := wrapUV(u) * float64(w-1)
	fy := wrapUV(v) * float64(h-1)
	x, y := int(fx), int(fy)
	dx, dy := fx-float64(x), fy-float64(y)

	corners := [4]struct {
		px, py int
		weight float64
	}{
		{x, y, (1 - dx) * (1 - dy)},
		{(x + 1) % w, y, dx * (1 - dy)},
		{x, (y + 1) % h, (1 - dx) * dy},
		{(x + 1) % w, (y + 1) % h, dx * dy},
	}

	var acc [4]float64
	for _, c := range corners {
		i := c.py*tex.Stride + c.px*4
		for ch := 0; ch < 4; ch++ {
			acc[ch] += float64(tex.Pix[i+ch]) * c.weight
		}
	}
	return uint8(acc[0] + 0.5), uint8(acc[1] + 0.5), uint8(acc[2] + 0.5), uint8(acc[3] + 0.5)
}
