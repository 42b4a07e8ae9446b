// Package preview renders scenes to small turntable images with a software
// rasterizer: orbit camera, flat shading, ACES tone mapping, WebP output.
package preview

import (
	"image"
	"math"

	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"

	"avatarforge/internal/mathutil"
	"avatarforge/internal/scene"
)

// Options controls framing and output quality.
type Options struct {
	// Size is the output edge length in pixels; zero means 512.
	Size int
	// Supersample renders at Size*Supersample and downsamples; zero means 2.
	Supersample int
	// Yaw and Pitch orbit the camera around the scene, in degrees.
	Yaw   float64
	Pitch float64
	// FOV enables a perspective camera when positive; zero stays
	// orthographic.
	FOV float64
	// TrimRatio clears disconnected pixel clusters smaller than this
	// fraction of the covered area. Zero keeps everything.
	TrimRatio float64
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = 512
	}
	if o.Supersample <= 0 {
		o.Supersample = 2
	}
	return o
}

// Render draws every mesh in the scene from an orbit camera into a square
// image with a transparent background.
func Render(s *scene.Scene, opts Options) *image.NRGBA {
	opts = opts.withDefaults()
	size := opts.Size
	renderSize := size * opts.Supersample

	view := viewMatrix(opts.Yaw, opts.Pitch)

	// View-transform everything first; the frame is fitted to the whole
	// scene before any pixel is drawn.
	type viewMesh struct {
		m  *scene.Mesh
		vs []dvec3.T
	}
	var meshes []viewMesh
	mn := dvec3.T{math.Inf(1), math.Inf(1), math.Inf(1)}
	mx := dvec3.T{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, o := range s.Meshes() {
		m := o.Mesh
		if len(m.Vertices) == 0 || len(m.Faces) == 0 {
			continue
		}
		world := o.WorldMatrix()
		var wv dmat.T
		wv.AssignMul(&view, &world)
		vs := make([]dvec3.T, len(m.Vertices))
		for i, v := range m.Vertices {
			p := dvec3.T{float64(v[0]), float64(v[1]), float64(v[2])}
			vs[i] = wv.MulVec3(&p)
			for k := 0; k < 3; k++ {
				if vs[i][k] < mn[k] {
					mn[k] = vs[i][k]
				}
				if vs[i][k] > mx[k] {
					mx[k] = vs[i][k]
				}
			}
		}
		meshes = append(meshes, viewMesh{m: m, vs: vs})
	}
	if len(meshes) == 0 {
		return image.NewNRGBA(image.Rect(0, 0, size, size))
	}

	center := dvec3.T{(mn[0] + mx[0]) / 2, (mn[1] + mx[1]) / 2, (mn[2] + mx[2]) / 2}
	span := mx[0] - mn[0]
	if sy := mx[1] - mn[1]; sy > span {
		span = sy
	}
	if span < 0.001 {
		span = 0.001
	}

	margin := 16 * opts.Supersample
	scale := float64(renderSize-2*margin) / span

	fb := newFrameBuffer(renderSize, renderSize)
	lc := defaultLightConfig()

	for _, vm := range meshes {
		px, py, pz := project(vm.vs, center, scale, renderSize, opts.FOV)
		slots := slotShadings(vm.m)
		for _, f := range vm.m.Faces {
			sh := slots[0]
			if int(f.Mat) < len(slots) {
				sh = slots[f.Mat]
			}
			rasterizeTriangle(fb, px, py, pz, vm.m.UVs, f.V, sh.tex, sh.r, sh.g, sh.b, sh.a, &lc)
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, renderSize, renderSize))
	copy(img.Pix, fb.color)

	if opts.Supersample > 1 {
		img = downsample(img, size)
	}
	if opts.TrimRatio > 0 {
		img = removeSmallClusters(img, opts.TrimRatio)
	}
	return img
}

// viewMatrix orbits the camera: yaw spins the scene around +Y, pitch tilts it
// around +X, with the camera looking down -Z.
func viewMatrix(yaw, pitch float64) dmat.T {
	ry := mathutil.RotY(mathutil.Deg2Rad(yaw))
	rx := mathutil.RotX(mathutil.Deg2Rad(pitch))
	var m dmat.T
	m.AssignMul(&rx, &ry)
	return m
}

// project maps view-space vertices to screen coordinates. Depth stays in view
// units, larger values closer to the camera. A positive fov foreshortens x
// and y around the mesh's depth midpoint.
func project(vs []dvec3.T, center dvec3.T, scale float64, renderSize int, fov float64) (px, py, pz []float64) {
	n := len(vs)
	px = make([]float64, n)
	py = make([]float64, n)
	pz = make([]float64, n)

	half := float64(renderSize) / 2

	var camDist, zCenter float64
	if fov > 0 {
		halfFOV := mathutil.Deg2Rad(fov / 2)
		zMin, zMax := math.Inf(1), math.Inf(-1)
		var xyMax float64
		for _, t := range vs {
			if t[2] < zMin {
				zMin = t[2]
			}
			if t[2] > zMax {
				zMax = t[2]
			}
			for k := 0; k < 2; k++ {
				if d := math.Abs(t[k] - center[k]); d > xyMax {
					xyMax = d
				}
			}
		}
		zCenter = (zMin + zMax) / 2
		if xyMax < 0.001 {
			xyMax = 0.001
		}
		camDist = xyMax / math.Tan(halfFOV)
	}

	for i, t := range vs {
		if fov > 0 {
			depth := math.Max(camDist-(t[2]-zCenter), 0.1)
			factor := camDist / depth
			t[0] *= factor
			t[1] *= factor
		}
		px[i] = (t[0]-center[0])*scale + half
		py[i] = -(t[1]-center[1])*scale + half
		pz[i] = t[2]
	}
	return px, py, pz
}

type shading struct {
	tex        *image.NRGBA
	r, g, b, a uint8
}

// slotShadings resolves each material slot to a texture or flat color, with a
// neutral gray for missing materials. The result always has at least one
// entry so unmapped face slots fall back to slot 0.
func slotShadings(m *scene.Mesh) []shading {
	n := len(m.Materials)
	if n == 0 {
		n = 1
	}
	out := make([]shading, n)
	for i := range out {
		out[i] = shading{r: 160, g: 160, b: 170, a: 255}
		if i >= len(m.Materials) || m.Materials[i] == nil {
			continue
		}
		mat := m.Materials[i]
		if mat.Texture != nil && mat.Texture.Image != nil {
			out[i].tex = mat.Texture.Image
			out[i].r, out[i].g, out[i].b, out[i].a = averageColor(mat.Texture.Image)
			continue
		}
		out[i].r = clamp255(mat.BaseColor[0] * 255)
		out[i].g = clamp255(mat.BaseColor[1] * 255)
		out[i].b = clamp255(mat.BaseColor[2] * 255)
		out[i].a = clamp255(mat.BaseColor[3] * 255)
	}
	return out
}

// averageColor is the fallback color for pixels outside a texture's UV
// coverage, opaque regardless of the texture's own alpha.
func averageColor(tex *image.NRGBA) (uint8, uint8, uint8, uint8) {
	b := tex.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return 160, 160, 170, 255
	}

	var sumR, sumG, sumB float64
	stride := tex.Stride
	for y := 0; y < h; y++ {
		off := y * stride
		for x := 0; x < w; x++ {
			i := off + x*4
			sumR += float64(tex.Pix[i])
			sumG += float64(tex.Pix[i+1])
			sumB += float64(tex.Pix[i+2])
		}
	}
	n := float64(w * h)
	return uint8(sumR/n + 0.5), uint8(sumG/n + 0.5), uint8(sumB/n + 0.5), 255
}
