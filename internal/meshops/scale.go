package meshops

import (
	"fmt"

	"github.com/flywave/go3d/vec3"

	dvec3 "github.com/flywave/go3d/float64/vec3"

	"avatarforge/internal/scene"
)

// ApplyScale bakes the object's scale into its vertices and resets the scale
// to unit, so later operators and exporters see true dimensions. Mirrored
// scales flip face winding; non-uniform scales rebuild normals.
func ApplyScale(o *scene.Object) error {
	if o.Mesh == nil {
		return fmt.Errorf("meshops: apply scale on %q: %w", o.Name, scene.ErrWrongKind)
	}
	s := o.Scale
	if s == (dvec3.T{}) {
		s = dvec3.T{1, 1, 1}
	}
	if s == (dvec3.T{1, 1, 1}) {
		o.Scale = s
		return nil
	}

	sx, sy, sz := float32(s[0]), float32(s[1]), float32(s[2])
	for i := range o.Mesh.Vertices {
		v := &o.Mesh.Vertices[i]
		v[0] *= sx
		v[1] *= sy
		v[2] *= sz
	}

	mirrored := s[0]*s[1]*s[2] < 0
	if mirrored {
		flipWinding(o.Mesh)
	}
	nonuniform := s[0] != s[1] || s[1] != s[2]
	if len(o.Mesh.Normals) > 0 && (nonuniform || mirrored) {
		RecomputeNormals(o.Mesh)
	}

	o.Scale = dvec3.T{1, 1, 1}
	return nil
}

// ScaleUniform scales every vertex about the object origin. Normals are
// unaffected by a positive uniform scale.
func ScaleUniform(m *scene.Mesh, f float64) {
	ff := float32(f)
	for i := range m.Vertices {
		v := &m.Vertices[i]
		v[0] *= ff
		v[1] *= ff
		v[2] *= ff
	}
}

// Centroid returns the mean vertex position, the median point interactive
// tools pivot on.
func Centroid(m *scene.Mesh) vec3.T {
	var c vec3.T
	if len(m.Vertices) == 0 {
		return c
	}
	for _, v := range m.Vertices {
		c.Add(&v)
	}
	inv := 1 / float32(len(m.Vertices))
	c[0] *= inv
	c[1] *= inv
	c[2] *= inv
	return c
}

// ScaleUniformAbout scales every vertex about center c.
func ScaleUniformAbout(m *scene.Mesh, f float64, c vec3.T) {
	ff := float32(f)
	for i := range m.Vertices {
		v := &m.Vertices[i]
		v[0] = c[0] + (v[0]-c[0])*ff
		v[1] = c[1] + (v[1]-c[1])*ff
		v[2] = c[2] + (v[2]-c[2])*ff
	}
}
