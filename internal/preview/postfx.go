package preview

import (
	"image"

	"golang.org/x/image/draw"
)

// neighbors8 lists the 8-connected pixel offsets.
var neighbors8 = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// downsample reduces the image with premultiplied-alpha CatmullRom filtering,
// which avoids dark halos where covered pixels meet transparent background.
func downsample(img *image.NRGBA, targetSize int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() <= targetSize && b.Dy() <= targetSize {
		return img
	}

	premul := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		si := img.PixOffset(b.Min.X, y)
		di := premul.PixOffset(b.Min.X, y)
		for x := 0; x < b.Dx(); x++ {
			a := uint32(img.Pix[si+3])
			premul.Pix[di+0] = uint8((uint32(img.Pix[si+0])*a + 127) / 255)
			premul.Pix[di+1] = uint8((uint32(img.Pix[si+1])*a + 127) / 255)
			premul.Pix[di+2] = uint8((uint32(img.Pix[si+2])*a + 127) / 255)
			premul.Pix[di+3] = uint8(a)
			si += 4
			di += 4
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetSize, targetSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premul, premul.Bounds(), draw.Src, nil)

	out := image.NewNRGBA(dst.Bounds())
	for i := 0; i < len(dst.Pix); i += 4 {
		a := float64(dst.Pix[i+3])
		if a > 1 {
			inv := 255.0 / a
			out.Pix[i+0] = clamp255(float64(dst.Pix[i+0]) * inv)
			out.Pix[i+1] = clamp255(float64(dst.Pix[i+1]) * inv)
			out.Pix[i+2] = clamp255(float64(dst.Pix[i+2]) * inv)
		}
		out.Pix[i+3] = dst.Pix[i+3]
	}
	return out
}

// removeSmallClusters clears disconnected pixel groups smaller than minRatio
// of the covered area, dropping stray fragments like detached specular hits.
func removeSmallClusters(img *image.NRGBA, minRatio float64) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	mask := make([]bool, w*h)
	covered := 0
	for y := 0; y < h; y++ {
		row := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			if img.Pix[row+x*4+3] > 0 {
				mask[y*w+x] = true
				covered++
			}
		}
	}
	if covered == 0 {
		return img
	}

	// Label 8-connected components with a depth-first flood fill.
	labels := make([]int, w*h)
	for i := range labels {
		labels[i] = -1
	}
	var sizes []int
	stack := make([]int, 0, 1024)

	for seed := 0; seed < w*h; seed++ {
		if !mask[seed] || labels[seed] >= 0 {
			continue
		}
		id := len(sizes)
		labels[seed] = id
		stack = append(stack[:0], seed)
		size := 0

		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			size++

			cx, cy := cur%w, cur/w
			for _, d := range neighbors8 {
				nx, ny := cx+d[0], cy+d[1]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				n := ny*w + nx
				if mask[n] && labels[n] < 0 {
					labels[n] = id
					stack = append(stack, n)
				}
			}
		}
		sizes = append(sizes, size)
	}

	if len(sizes) <= 1 {
		return img
	}
	minSize := int(float64(covered) * minRatio)

	out := image.NewNRGBA(b)
	copy(out.Pix, img.Pix)
	for y := 0; y < h; y++ {
		row := out.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			idx := y*w + x
			if labels[idx] >= 0 && sizes[labels[idx]] < minSize {
				p := row + x*4
				out.Pix[p+0] = 0
				out.Pix[p+1] = 0
				out.Pix[p+2] = 0
				out.Pix[p+3] = 0
			}
		}
	}
	return out
}
