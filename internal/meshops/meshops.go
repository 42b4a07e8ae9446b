// Package meshops implements the destructive geometry operators the
// preparation pipeline applies to accessory meshes: baking object scale,
// decimation, UV unwrapping and normal rebuilds.
package meshops

import (
	"github.com/flywave/go3d/vec3"

	"avatarforge/internal/scene"
)

// RecomputeNormals rebuilds per-vertex normals from face geometry. Faces
// contribute proportionally to their area, so slivers barely disturb the
// shading of their neighbors.
func RecomputeNormals(m *scene.Mesh) {
	normals := make([]vec3.T, len(m.Vertices))
	for _, f := range m.Faces {
		p0 := m.Vertices[f.V[0]]
		p1 := m.Vertices[f.V[1]]
		p2 := m.Vertices[f.V[2]]
		e1 := vec3.Sub(&p1, &p0)
		e2 := vec3.Sub(&p2, &p0)
		cr := vec3.Cross(&e1, &e2)
		for _, vi := range f.V {
			normals[vi].Add(&cr)
		}
	}
	for i := range normals {
		if normals[i].LengthSqr() > 0 {
			normals[i].Normalize()
		} else {
			normals[i] = vec3.T{0, 0, 1}
		}
	}
	m.Normals = normals
}

func flipWinding(m *scene.Mesh) {
	for i := range m.Faces {
		m.Faces[i].V[1], m.Faces[i].V[2] = m.Faces[i].V[2], m.Faces[i].V[1]
	}
}
