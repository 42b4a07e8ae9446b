package scene

import (
	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"

	dvec3 "github.com/flywave/go3d/float64/vec3"
)

// Face is a triangle over vertex indices with a material slot.
type Face struct {
	V   [3]uint32
	Mat uint32
}

// Mesh is indexed triangle geometry with per-vertex attributes. Normals and
// UVs are either empty or exactly len(Vertices) long.
type Mesh struct {
	Name     string
	Vertices []vec3.T
	Normals  []vec3.T
	UVs      []vec2.T
	Faces    []Face

	Groups    []*VertexGroup
	Materials []*Material
}

// Group returns the named vertex group, or nil.
func (m *Mesh) Group(name string) *VertexGroup {
	for _, g := range m.Groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// EnsureGroup returns the named vertex group, creating it when absent.
func (m *Mesh) EnsureGroup(name string) *VertexGroup {
	if g := m.Group(name); g != nil {
		return g
	}
	g := &VertexGroup{Name: name, Weights: make(map[uint32]float32)}
	m.Groups = append(m.Groups, g)
	return g
}

// SetMaterial assigns mat to slot 0, replacing whatever occupied it. Faces
// keep their slot numbers, so a single-material mesh swaps appearance whole.
func (m *Mesh) SetMaterial(mat *Material) {
	if len(m.Materials) == 0 {
		m.Materials = append(m.Materials, mat)
		return
	}
	m.Materials[0] = mat
}

// Material returns the material in the given slot, or nil.
func (m *Mesh) Material(slot uint32) *Material {
	if int(slot) >= len(m.Materials) {
		return nil
	}
	return m.Materials[slot]
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (m *Mesh) Bounds() dvec3.Box {
	bbox := dvec3.MinBox
	for _, v := range m.Vertices {
		p := dvec3.T{float64(v[0]), float64(v[1]), float64(v[2])}
		pb := dvec3.Box{Min: p, Max: p}
		bbox.Join(&pb)
	}
	return bbox
}

// Clone deep-copies geometry and vertex groups. Materials are shared with the
// original, the way duplicated objects keep pointing at one material.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Name:     m.Name,
		Vertices: append([]vec3.T(nil), m.Vertices...),
		Normals:  append([]vec3.T(nil), m.Normals...),
		UVs:      append([]vec2.T(nil), m.UVs...),
		Faces:    append([]Face(nil), m.Faces...),
	}
	for _, g := range m.Groups {
		ng := &VertexGroup{Name: g.Name, Weights: make(map[uint32]float32, len(g.Weights))}
		for i, w := range g.Weights {
			ng.Weights[i] = w
		}
		c.Groups = append(c.Groups, ng)
	}
	if m.Materials != nil {
		c.Materials = append([]*Material(nil), m.Materials...)
	}
	return c
}

// VertexGroup names a weighted set of vertices, the unit skin binds refer to.
type VertexGroup struct {
	Name    string
	Weights map[uint32]float32
}

// Assign sets the weight for every listed vertex, replacing any previous
// weight those vertices had in this group.
func (g *VertexGroup) Assign(indices []uint32, weight float32) {
	if g.Weights == nil {
		g.Weights = make(map[uint32]float32, len(indices))
	}
	for _, i := range indices {
		g.Weights[i] = weight
	}
}

// Weight returns the vertex weight, zero when unassigned.
func (g *VertexGroup) Weight(i uint32) float32 {
	return g.Weights[i]
}
