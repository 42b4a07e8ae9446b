package rig

import (
	"errors"
	"math"
	"testing"

	"github.com/flywave/go3d/vec3"

	"avatarforge/internal/scene"
)

func helmetMesh() *scene.Mesh {
	return &scene.Mesh{
		Name: "Helmet",
		Vertices: []vec3.T{
			{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
			{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
		},
		Faces: []scene.Face{
			{V: [3]uint32{0, 2, 1}}, {V: [3]uint32{4, 5, 6}},
		},
	}
}

func TestParentWithDeform(t *testing.T) {
	rigObj, err := ReferenceArmature("R6")
	if err != nil {
		t.Fatal(err)
	}
	helmet := scene.NewMeshObject("Helmet", helmetMesh())

	if err := ParentWithDeform(helmet, rigObj); err != nil {
		t.Fatalf("ParentWithDeform: %v", err)
	}
	if helmet.Parent != rigObj || !helmet.DeformBind {
		t.Fatalf("binding not recorded: parent=%v deform=%v", helmet.Parent, helmet.DeformBind)
	}
}

func TestParentWithDeformKindChecks(t *testing.T) {
	mesh := scene.NewMeshObject("Helmet", helmetMesh())
	other := scene.NewMeshObject("NotARig", helmetMesh())
	rigObj, _ := ReferenceArmature("R6")

	if err := ParentWithDeform(mesh, other); !errors.Is(err, scene.ErrWrongKind) {
		t.Errorf("mesh parent target: err = %v, want ErrWrongKind", err)
	}
	if err := ParentWithDeform(rigObj, rigObj); !errors.Is(err, scene.ErrWrongKind) {
		t.Errorf("armature child: err = %v, want ErrWrongKind", err)
	}
}

func TestBindFullWeightReplaces(t *testing.T) {
	m := helmetMesh()
	// Pre-existing partial weights must not survive the bind.
	m.EnsureGroup("Head").Assign([]uint32{0, 1}, 0.3)

	g := BindFullWeight(m, "Head")
	if len(g.Weights) != len(m.Vertices) {
		t.Fatalf("weights cover %d vertices, want %d", len(g.Weights), len(m.Vertices))
	}
	for i := range m.Vertices {
		if g.Weight(uint32(i)) != 1 {
			t.Fatalf("vertex %d weight = %v, want 1", i, g.Weight(uint32(i)))
		}
	}
	if len(m.Groups) != 1 {
		t.Fatalf("bind created a second group: %d", len(m.Groups))
	}
}

func TestBuildCages(t *testing.T) {
	s := scene.New()
	rigObj, _ := ReferenceArmature("R6")
	s.Add(rigObj)

	helmet := s.Add(scene.NewMeshObject("Helmet", helmetMesh()))
	helmet.Mesh.SetMaterial(scene.NewMaterial("paint"))
	if err := ParentWithDeform(helmet, rigObj); err != nil {
		t.Fatal(err)
	}
	BindFullWeight(helmet.Mesh, "Head")

	inner, outer, err := BuildCages(s, helmet)
	if err != nil {
		t.Fatalf("BuildCages: %v", err)
	}
	if inner.Name != "InnerCage" || outer.Name != "OuterCage" {
		t.Fatalf("cage names = %q, %q", inner.Name, outer.Name)
	}

	ib := inner.Mesh.Bounds()
	ob := outer.Mesh.Bounds()
	if math.Abs(ib.Max[0]-0.98) > 1e-6 {
		t.Errorf("inner cage extent = %v, want 0.98", ib.Max[0])
	}
	if math.Abs(ob.Max[0]-1.02) > 1e-6 {
		t.Errorf("outer cage extent = %v, want 1.02", ob.Max[0])
	}

	for _, cage := range []*scene.Object{inner, outer} {
		if cage.Parent != rigObj || !cage.DeformBind {
			t.Errorf("%s lost the deform binding", cage.Name)
		}
		if g := cage.Mesh.Group("Head"); g == nil || g.Weight(0) != 1 {
			t.Errorf("%s lost the head bind", cage.Name)
		}
		if cage.Mesh.Material(0) != helmet.Mesh.Material(0) {
			t.Errorf("%s does not share the source material", cage.Name)
		}
	}

	// The source mesh must be untouched by cage scaling.
	if hb := helmet.Mesh.Bounds(); math.Abs(hb.Max[0]-1) > 1e-6 {
		t.Errorf("source mesh scaled: %v", hb.Max[0])
	}

	// A rerun suffixes instead of clobbering.
	inner2, _, err := BuildCages(s, helmet)
	if err != nil {
		t.Fatal(err)
	}
	if inner2.Name != "InnerCage.001" {
		t.Errorf("rerun cage name = %q, want InnerCage.001", inner2.Name)
	}
}

func TestBuildCagesRequiresMesh(t *testing.T) {
	s := scene.New()
	rigObj, _ := ReferenceArmature("R6")
	if _, _, err := BuildCages(s, rigObj); !errors.Is(err, scene.ErrWrongKind) {
		t.Fatalf("err = %v, want ErrWrongKind", err)
	}
}

func TestReferenceArmature(t *testing.T) {
	o, err := ReferenceArmature("R6")
	if err != nil {
		t.Fatalf("ReferenceArmature: %v", err)
	}
	if o.Name != "R6" || o.Armature == nil {
		t.Fatalf("object = %+v", o)
	}
	if len(o.Armature.Bones) != 6 {
		t.Fatalf("bones = %d, want 6", len(o.Armature.Bones))
	}
	head := o.Armature.Find("Head")
	if head < 0 {
		t.Fatal("Head bone missing")
	}
	if o.Armature.Bones[head].Translation[1] != 1.5 {
		t.Errorf("Head rest offset = %v", o.Armature.Bones[head].Translation)
	}

	if _, err := ReferenceArmature("R32"); err == nil {
		t.Fatal("unsupported rig type accepted")
	}
}
