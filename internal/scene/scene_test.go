package scene

import (
	"errors"
	"math"
	"testing"

	"avatarforge/internal/mathutil"

	"github.com/flywave/go3d/vec3"

	dvec3 "github.com/flywave/go3d/float64/vec3"
)

func quadMesh() *Mesh {
	return &Mesh{
		Name: "quad",
		Vertices: []vec3.T{
			{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		},
		Faces: []Face{
			{V: [3]uint32{0, 1, 2}},
			{V: [3]uint32{0, 2, 3}},
		},
	}
}

func TestAddAssignsUniqueNames(t *testing.T) {
	s := New()
	a := s.Add(NewMeshObject("Helmet", quadMesh()))
	b := s.Add(NewMeshObject("Helmet", quadMesh()))
	c := s.Add(NewMeshObject("Helmet", quadMesh()))

	if a.Name != "Helmet" || b.Name != "Helmet.001" || c.Name != "Helmet.002" {
		t.Fatalf("names = %q, %q, %q", a.Name, b.Name, c.Name)
	}
	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}
}

func TestLookupErrors(t *testing.T) {
	s := New()
	s.Add(NewMeshObject("Helmet", quadMesh()))
	s.Add(NewArmatureObject("R6", &Armature{Bones: []Bone{{Name: "Head", Parent: -1}}}))

	if _, err := s.Object("Missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Object(Missing) err = %v, want ErrNotFound", err)
	}
	if _, err := s.Mesh("R6"); !errors.Is(err, ErrWrongKind) {
		t.Errorf("Mesh(R6) err = %v, want ErrWrongKind", err)
	}
	if _, err := s.Armature("Helmet"); !errors.Is(err, ErrWrongKind) {
		t.Errorf("Armature(Helmet) err = %v, want ErrWrongKind", err)
	}
	if o, err := s.Mesh("Helmet"); err != nil || o.Mesh == nil {
		t.Errorf("Mesh(Helmet) = %v, %v", o, err)
	}
}

func TestRemoveAndClear(t *testing.T) {
	s := New()
	s.Add(NewMeshObject("A", quadMesh()))
	s.Add(NewMeshObject("B", quadMesh()))

	s.Remove("A")
	if _, err := s.Object("A"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("removed object still present: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len after Remove = %d, want 1", s.Len())
	}

	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("Len after Clear = %d, want 0", s.Len())
	}
	// The freed name is available again without a suffix.
	o := s.Add(NewMeshObject("B", quadMesh()))
	if o.Name != "B" {
		t.Fatalf("name after Clear = %q, want B", o.Name)
	}
}

func TestCloneIsolation(t *testing.T) {
	m := quadMesh()
	m.Materials = []*Material{NewMaterial("paint")}
	m.EnsureGroup("Head").Assign([]uint32{0, 1, 2, 3}, 1)

	c := m.Clone()
	c.Vertices[0] = vec3.T{9, 9, 9}
	c.Group("Head").Assign([]uint32{0}, 0.25)

	if m.Vertices[0] != (vec3.T{0, 0, 0}) {
		t.Error("clone shares vertex storage with original")
	}
	if m.Group("Head").Weight(0) != 1 {
		t.Error("clone shares group weights with original")
	}
	if c.Materials[0] != m.Materials[0] {
		t.Error("clone should share material pointers")
	}
}

func TestSetMaterialReplacesSlotZero(t *testing.T) {
	m := quadMesh()
	first := NewMaterial("old")
	second := NewMaterial("new")

	m.SetMaterial(first)
	if len(m.Materials) != 1 || m.Material(0) != first {
		t.Fatalf("first SetMaterial: slots = %v", m.Materials)
	}
	m.SetMaterial(second)
	if len(m.Materials) != 1 || m.Material(0) != second {
		t.Fatalf("second SetMaterial did not replace slot 0: %v", m.Materials)
	}
}

func TestVertexGroupAssignReplaces(t *testing.T) {
	g := &VertexGroup{Name: "Head"}
	g.Assign([]uint32{0, 1, 2}, 0.4)
	g.Assign([]uint32{1, 2, 3}, 1.0)

	want := map[uint32]float32{0: 0.4, 1: 1.0, 2: 1.0, 3: 1.0}
	for i, w := range want {
		if got := g.Weight(i); got != w {
			t.Errorf("Weight(%d) = %v, want %v", i, got, w)
		}
	}
}

func TestMeshBounds(t *testing.T) {
	m := quadMesh()
	b := m.Bounds()
	if b.Min != (dvec3.T{0, 0, 0}) || b.Max != (dvec3.T{1, 1, 0}) {
		t.Fatalf("bounds = %v/%v", b.Min, b.Max)
	}
}

func TestWorldMatrixWithBoneParent(t *testing.T) {
	arm := &Armature{Bones: []Bone{
		{Name: "Torso", Parent: -1},
		{Name: "Head", Parent: 0, Translation: dvec3.T{0, 1.5, 0}},
	}}
	rig := NewArmatureObject("R6", arm)
	rig.Translation = dvec3.T{0, 3, 0}

	hat := NewMeshObject("Hat", quadMesh())
	hat.Parent = rig
	hat.ParentBone = "Head"
	hat.Translation = dvec3.T{0, 0.5, 0}

	w := hat.WorldMatrix()
	got := mathutil.TransformPoint(&w, vec3.T{0, 0, 0})
	// 3 (rig) + 1.5 (Head bone) + 0.5 (local) stacked on Y.
	if math.Abs(float64(got[1])-5) > 1e-5 || math.Abs(float64(got[0])) > 1e-5 {
		t.Fatalf("hat origin in world = %v, want (0,5,0)", got)
	}
}

func TestWorldMatricesChain(t *testing.T) {
	arm := &Armature{Bones: []Bone{
		{Name: "Torso", Parent: -1, Translation: dvec3.T{0, 1, 0}},
		{Name: "Head", Parent: 0, Translation: dvec3.T{0, 1.5, 0}},
	}}
	ms := arm.WorldMatrices()
	if len(ms) != 2 {
		t.Fatalf("len = %d", len(ms))
	}
	head := mathutil.TransformPoint(&ms[1], vec3.T{0, 0, 0})
	if math.Abs(float64(head[1])-2.5) > 1e-5 {
		t.Fatalf("head world origin = %v, want y=2.5", head)
	}
}

func TestZeroValueScaleActsAsUnit(t *testing.T) {
	o := &Object{Name: "bare", Mesh: quadMesh()}
	m := o.LocalMatrix()
	p := mathutil.TransformPoint(&m, vec3.T{2, 3, 4})
	if p != (vec3.T{2, 3, 4}) {
		t.Fatalf("zero-value transform moved point to %v", p)
	}
}
