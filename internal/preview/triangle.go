package preview

import (
	"image"
	"math"

	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/flywave/go3d/vec2"
)

// rasterizeTriangle draws one flat-shaded triangle with z-buffering, bilinear
// texture sampling, sRGB-correct lighting and ACES tone mapping.
//
// This is the hot path; the pixel loop must not allocate.
func rasterizeTriangle(
	fb *frameBuffer,
	px, py, pz []float64,
	uvs []vec2.T,
	vi [3]uint32,
	tex *image.NRGBA,
	defR, defG, defB, defA uint8,
	lc *lightConfig,
) {
	nv := len(px)
	for _, i := range vi {
		if int(i) >= nv {
			return
		}
	}
	a, b, c := vi[0], vi[1], vi[2]

	hasUV := tex != nil && len(uvs) == nv
	var tu, tv [3]float64
	if hasUV {
		for k, i := range vi {
			// Image rows run top-down; the UV origin is bottom-left.
			tu[k] = float64(uvs[i][0])
			tv[k] = 1 - float64(uvs[i][1])
		}
	}

	// Screen-space face normal for flat shading.
	e1 := dvec3.T{px[b] - px[a], py[b] - py[a], pz[b] - pz[a]}
	e2 := dvec3.T{px[c] - px[a], py[c] - py[a], pz[c] - pz[a]}
	n := dvec3.Cross(&e1, &e2)
	if n.LengthSqr() < 1e-16 {
		return
	}
	n.Normalize()
	energy := lc.shade(n) * lc.exposure
	invGamma := lc.invGamma

	// Bounding box clipped to the framebuffer.
	size := fb.width
	minX := int(min3(px[a], px[b], px[c]))
	maxX := int(max3(px[a], px[b], px[c])) + 1
	minY := int(min3(py[a], py[b], py[c]))
	maxY := int(max3(py[a], py[b], py[c])) + 1
	if minX < 0 {
		minX = 0
	}
	if maxX >= size {
		maxX = size - 1
	}
	if minY < 0 {
		minY = 0
	}
	if maxY >= size {
		maxY = size - 1
	}
	if minX >= maxX || minY >= maxY {
		return
	}

	// Barycentric coordinates taken relative to vertex c.
	det := (py[b]-py[c])*(px[a]-px[c]) + (px[c]-px[b])*(py[a]-py[c])
	if det > -1e-8 && det < 1e-8 {
		return
	}
	invDet := 1.0 / det
	ea0, eb0 := py[b]-py[c], px[c]-px[b]
	ea1, eb1 := py[c]-py[a], px[a]-px[c]
	za, zb, zc := pz[a], pz[b], pz[c]
	refX, refY := px[c], py[c]

	for sy := minY; sy <= maxY; sy++ {
		fy := float64(sy) - refY
		rowOff := sy * size
		for sx := minX; sx <= maxX; sx++ {
			fx := float64(sx) - refX
			wa := (ea0*fx + eb0*fy) * invDet
			wb := (ea1*fx + eb1*fy) * invDet
			wc := 1.0 - wa - wb
			if wa < -0.001 || wb < -0.001 || wc < -0.001 {
				continue
			}

			z := wa*za + wb*zb + wc*zc
			zIdx := rowOff + sx
			if z <= fb.zbuf[zIdx] {
				continue
			}

			var cr, cg, cb, ca uint8
			if hasUV {
				u := wa*tu[0] + wb*tu[1] + wc*tu[2]
				v := wa*tv[0] + wb*tv[1] + wc*tv[2]
				cr, cg, cb, ca = sampleTexture(tex, u, v)
			} else {
				cr, cg, cb, ca = defR, defG, defB, defA
			}

			// Skip transparent texels
			if ca < 8 {
				continue
			}
			fb.zbuf[zIdx] = z

			pxIdx := zIdx * 4
			fb.color[pxIdx] = shadePixel(cr, energy, invGamma)
			fb.color[pxIdx+1] = shadePixel(cg, energy, invGamma)
			fb.color[pxIdx+2] = shadePixel(cb, energy, invGamma)
			fb.color[pxIdx+3] = ca
		}
	}
}

func min3(a, b, c float64) float64 {
	return math.Min(math.Min(a, b), c)
}

func max3(a, b, c float64) float64 {
	return math.Max(math.Max(a, b), c)
}
