package meshops

import (
	"fmt"
	"math"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"

	"avatarforge/internal/scene"
)

// Unwrap methods. Smart projection buckets faces by dominant normal axis and
// packs the six projections into one atlas; basic is a single planar
// projection.
const (
	MethodSmart = "smart_project"
	MethodBasic = "basic"
)

// Unwrap generates per-vertex UV coordinates in [0,1]. Smart projection may
// duplicate vertices shared between differently facing faces so each copy can
// carry its own coordinate; groups and normals follow the duplication.
func Unwrap(m *scene.Mesh, method string) error {
	switch method {
	case MethodSmart:
		unwrapBox(m)
	case MethodBasic:
		unwrapPlanar(m)
	default:
		return fmt.Errorf("meshops: unknown unwrap method %q", method)
	}
	return nil
}

func unwrapPlanar(m *scene.Mesh) {
	b := m.Bounds()
	w := b.Max[0] - b.Min[0]
	if w <= 0 {
		w = 1
	}
	h := b.Max[1] - b.Min[1]
	if h <= 0 {
		h = 1
	}
	uvs := make([]vec2.T, len(m.Vertices))
	for i, v := range m.Vertices {
		uvs[i] = vec2.T{
			float32((float64(v[0]) - b.Min[0]) / w),
			float32((float64(v[1]) - b.Min[1]) / h),
		}
	}
	m.UVs = uvs
}

// faceBucket picks one of six projection directions from the face normal:
// 0..5 = +X, -X, +Y, -Y, +Z, -Z.
func faceBucket(p0, p1, p2 vec3.T) uint8 {
	e1 := vec3.Sub(&p1, &p0)
	e2 := vec3.Sub(&p2, &p0)
	n := vec3.Cross(&e1, &e2)
	ax := float32(math.Abs(float64(n[0])))
	ay := float32(math.Abs(float64(n[1])))
	az := float32(math.Abs(float64(n[2])))
	switch {
	case ax >= ay && ax >= az:
		if n[0] >= 0 {
			return 0
		}
		return 1
	case ay >= az:
		if n[1] >= 0 {
			return 2
		}
		return 3
	default:
		if n[2] >= 0 {
			return 4
		}
		return 5
	}
}

// project maps a vertex to raw plane coordinates for a bucket. The axis pairs
// are chosen so outward-facing textures read unmirrored.
func project(b uint8, v vec3.T) vec2.T {
	switch b {
	case 0:
		return vec2.T{-v[2], v[1]}
	case 1:
		return vec2.T{v[2], v[1]}
	case 2:
		return vec2.T{v[0], -v[2]}
	case 3:
		return vec2.T{v[0], v[2]}
	case 4:
		return vec2.T{v[0], v[1]}
	default:
		return vec2.T{-v[0], v[1]}
	}
}

func unwrapBox(m *scene.Mesh) {
	if len(m.Faces) == 0 {
		m.UVs = make([]vec2.T, len(m.Vertices))
		return
	}

	type corner struct {
		v uint32
		b uint8
	}
	remap := make(map[corner]uint32, len(m.Vertices))
	verts := make([]vec3.T, 0, len(m.Vertices))
	raw := make([]vec2.T, 0, len(m.Vertices))
	bucketOf := make([]uint8, 0, len(m.Vertices))
	haveNormals := len(m.Normals) == len(m.Vertices)
	var normals []vec3.T

	faces := make([]scene.Face, len(m.Faces))
	for fi, f := range m.Faces {
		b := faceBucket(m.Vertices[f.V[0]], m.Vertices[f.V[1]], m.Vertices[f.V[2]])
		nf := f
		for ci, vi := range f.V {
			key := corner{v: vi, b: b}
			idx, ok := remap[key]
			if !ok {
				idx = uint32(len(verts))
				remap[key] = idx
				verts = append(verts, m.Vertices[vi])
				raw = append(raw, project(b, m.Vertices[vi]))
				bucketOf = append(bucketOf, b)
				if haveNormals {
					normals = append(normals, m.Normals[vi])
				}
			}
			nf.V[ci] = idx
		}
		faces[fi] = nf
	}

	// Island extents per bucket.
	inf := float32(math.Inf(1))
	var min, max [6]vec2.T
	for b := range min {
		min[b] = vec2.T{inf, inf}
		max[b] = vec2.T{-inf, -inf}
	}
	for i, uv := range raw {
		b := bucketOf[i]
		for a := 0; a < 2; a++ {
			if uv[a] < min[b][a] {
				min[b][a] = uv[a]
			}
			if uv[a] > max[b][a] {
				max[b][a] = uv[a]
			}
		}
	}

	// Fixed 3×2 atlas, one cell per bucket, with a margin inside each cell so
	// bilinear sampling does not bleed across islands.
	const pad = 0.02
	uvs := make([]vec2.T, len(verts))
	for i := range verts {
		b := bucketOf[i]
		du := max[b][0] - min[b][0]
		if du <= 0 {
			du = 1
		}
		dv := max[b][1] - min[b][1]
		if dv <= 0 {
			dv = 1
		}
		un := (raw[i][0] - min[b][0]) / du
		vn := (raw[i][1] - min[b][1]) / dv
		col := float32(int(b) % 3)
		row := float32(int(b) / 3)
		uvs[i] = vec2.T{
			(col + pad + un*(1-2*pad)) / 3,
			(row + pad + vn*(1-2*pad)) / 2,
		}
	}

	for _, g := range m.Groups {
		split := make(map[uint32]float32, len(g.Weights))
		for key, idx := range remap {
			if w, ok := g.Weights[key.v]; ok {
				split[idx] = w
			}
		}
		g.Weights = split
	}

	m.Vertices = verts
	if haveNormals {
		m.Normals = normals
	} else {
		m.Normals = nil
	}
	m.UVs = uvs
	m.Faces = faces
}
