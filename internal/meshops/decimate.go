package meshops

import (
	"fmt"
	"math"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"

	"avatarforge/internal/scene"
)

// Decimate reduces the face count to roughly ratio times the current count by
// clustering vertices on a uniform grid and collapsing each cluster to its
// centroid. Ratio 1 leaves the mesh untouched; ratio 0 collapses it to almost
// nothing. Vertex groups, UVs and material slots survive the rebuild.
func Decimate(m *scene.Mesh, ratio float64) error {
	if ratio < 0 || ratio > 1 || math.IsNaN(ratio) {
		return fmt.Errorf("meshops: decimate ratio %v outside [0, 1]", ratio)
	}
	if ratio == 1 || len(m.Faces) == 0 {
		return nil
	}
	target := int(math.Ceil(ratio * float64(len(m.Faces))))

	// Face count grows monotonically with grid resolution: search the finest
	// grid that still meets the target.
	best := 1
	lo, hi := 1, 256
	for lo <= hi {
		mid := (lo + hi) / 2
		if clusterFaceCount(m, mid) <= target {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	rebuildClustered(m, best)
	return nil
}

// clusterIndex maps every vertex to a cluster id on a d×d×d grid over the
// mesh bounds. Cluster ids are issued in first-seen vertex order, which keeps
// the rebuild deterministic.
func clusterIndex(m *scene.Mesh, d int) (assign []uint32, count int) {
	bounds := m.Bounds()
	var ext [3]float64
	for i := 0; i < 3; i++ {
		ext[i] = bounds.Max[i] - bounds.Min[i]
		if ext[i] <= 0 {
			ext[i] = 1
		}
	}

	assign = make([]uint32, len(m.Vertices))
	ids := make(map[int64]uint32, len(m.Vertices))
	for i, v := range m.Vertices {
		var c [3]int64
		for a := 0; a < 3; a++ {
			cell := int((float64(v[a]) - bounds.Min[a]) / ext[a] * float64(d))
			if cell < 0 {
				cell = 0
			}
			if cell >= d {
				cell = d - 1
			}
			c[a] = int64(cell)
		}
		key := c[0] + int64(d)*(c[1]+int64(d)*c[2])
		id, ok := ids[key]
		if !ok {
			id = uint32(len(ids))
			ids[key] = id
		}
		assign[i] = id
	}
	return assign, len(ids)
}

func clusterFaceCount(m *scene.Mesh, d int) int {
	assign, _ := clusterIndex(m, d)
	seen := make(map[[3]uint32]struct{}, len(m.Faces))
	n := 0
	for _, f := range m.Faces {
		key, ok := faceKey(assign, f)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		n++
	}
	return n
}

// faceKey returns the sorted cluster triple of a face, reporting false for
// faces that degenerate inside a single cluster.
func faceKey(assign []uint32, f scene.Face) ([3]uint32, bool) {
	a, b, c := assign[f.V[0]], assign[f.V[1]], assign[f.V[2]]
	if a == b || b == c || a == c {
		return [3]uint32{}, false
	}
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return [3]uint32{a, b, c}, true
}

func rebuildClustered(m *scene.Mesh, d int) {
	assign, count := clusterIndex(m, d)

	verts := make([]vec3.T, count)
	members := make([]float32, count)
	var normals []vec3.T
	var uvs []vec2.T
	if len(m.Normals) > 0 {
		normals = make([]vec3.T, count)
	}
	if len(m.UVs) > 0 {
		uvs = make([]vec2.T, count)
	}

	for i, v := range m.Vertices {
		id := assign[i]
		verts[id].Add(&v)
		members[id]++
		if normals != nil {
			normals[id].Add(&m.Normals[i])
		}
		if uvs != nil {
			uvs[id][0] += m.UVs[i][0]
			uvs[id][1] += m.UVs[i][1]
		}
	}
	for id := 0; id < count; id++ {
		n := members[id]
		if n == 0 {
			continue
		}
		verts[id].Scale(1 / n)
		if uvs != nil {
			uvs[id][0] /= n
			uvs[id][1] /= n
		}
		if normals != nil {
			if normals[id].LengthSqr() > 0 {
				normals[id].Normalize()
			} else {
				normals[id] = vec3.T{0, 0, 1}
			}
		}
	}

	// The strongest member weight represents the cluster, so a full-weight
	// bind stays a full-weight bind.
	for _, g := range m.Groups {
		merged := make(map[uint32]float32, count)
		for vi, w := range g.Weights {
			if int(vi) >= len(assign) {
				continue
			}
			id := assign[vi]
			if w > merged[id] {
				merged[id] = w
			}
		}
		g.Weights = merged
	}

	seen := make(map[[3]uint32]struct{}, len(m.Faces))
	faces := make([]scene.Face, 0, len(m.Faces))
	for _, f := range m.Faces {
		key, ok := faceKey(assign, f)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		faces = append(faces, scene.Face{
			V:   [3]uint32{assign[f.V[0]], assign[f.V[1]], assign[f.V[2]]},
			Mat: f.Mat,
		})
	}

	m.Vertices = verts
	m.Normals = normals
	m.UVs = uvs
	m.Faces = faces
}
