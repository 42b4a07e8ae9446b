package meshops

import (
	"errors"
	"math"
	"testing"

	"github.com/flywave/go3d/vec3"

	dvec3 "github.com/flywave/go3d/float64/vec3"

	"avatarforge/internal/scene"
)

// cube builds a unit-radius cube with outward-wound faces.
func cube() *scene.Mesh {
	return &scene.Mesh{
		Name: "cube",
		Vertices: []vec3.T{
			{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
			{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
		},
		Faces: []scene.Face{
			{V: [3]uint32{0, 2, 1}}, {V: [3]uint32{0, 3, 2}}, // -Z
			{V: [3]uint32{4, 5, 6}}, {V: [3]uint32{4, 6, 7}}, // +Z
			{V: [3]uint32{0, 1, 5}}, {V: [3]uint32{0, 5, 4}}, // -Y
			{V: [3]uint32{3, 7, 6}}, {V: [3]uint32{3, 6, 2}}, // +Y
			{V: [3]uint32{0, 4, 7}}, {V: [3]uint32{0, 7, 3}}, // -X
			{V: [3]uint32{1, 2, 6}}, {V: [3]uint32{1, 6, 5}}, // +X
		},
	}
}

// gridPlane builds an n×n quad grid in the XY plane: (n+1)² vertices, 2n²
// triangles.
func gridPlane(n int) *scene.Mesh {
	m := &scene.Mesh{Name: "plane"}
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			m.Vertices = append(m.Vertices, vec3.T{float32(i), float32(j), 0})
		}
	}
	idx := func(i, j int) uint32 { return uint32(j*(n+1) + i) }
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			m.Faces = append(m.Faces,
				scene.Face{V: [3]uint32{idx(i, j), idx(i+1, j), idx(i+1, j+1)}},
				scene.Face{V: [3]uint32{idx(i, j), idx(i+1, j+1), idx(i, j+1)}},
			)
		}
	}
	return m
}

func TestApplyScaleBakes(t *testing.T) {
	o := scene.NewMeshObject("Helmet", cube())
	o.Scale = dvec3.T{2, 2, 2}

	if err := ApplyScale(o); err != nil {
		t.Fatalf("ApplyScale: %v", err)
	}
	b := o.Mesh.Bounds()
	if b.Min != (dvec3.T{-2, -2, -2}) || b.Max != (dvec3.T{2, 2, 2}) {
		t.Errorf("bounds after bake = %v/%v", b.Min, b.Max)
	}
	if o.Scale != (dvec3.T{1, 1, 1}) {
		t.Errorf("scale not reset: %v", o.Scale)
	}
}

func TestApplyScaleRequiresMesh(t *testing.T) {
	o := scene.NewArmatureObject("R6", &scene.Armature{})
	if err := ApplyScale(o); !errors.Is(err, scene.ErrWrongKind) {
		t.Fatalf("err = %v, want ErrWrongKind", err)
	}
}

func TestApplyScaleNonUniformRebuildsNormals(t *testing.T) {
	o := scene.NewMeshObject("Helmet", cube())
	RecomputeNormals(o.Mesh)
	o.Scale = dvec3.T{1, 1, 4}

	if err := ApplyScale(o); err != nil {
		t.Fatalf("ApplyScale: %v", err)
	}
	for i, n := range o.Mesh.Normals {
		l := n.Length()
		if math.Abs(float64(l)-1) > 1e-4 {
			t.Fatalf("normal %d not unit length after rebuild: %v", i, l)
		}
	}
}

func TestApplyScaleMirroredFlipsWinding(t *testing.T) {
	m := &scene.Mesh{
		Vertices: []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:    []scene.Face{{V: [3]uint32{0, 1, 2}}},
	}
	o := scene.NewMeshObject("tri", m)
	o.Scale = dvec3.T{-1, 1, 1}

	if err := ApplyScale(o); err != nil {
		t.Fatalf("ApplyScale: %v", err)
	}
	if m.Faces[0].V != [3]uint32{0, 2, 1} {
		t.Fatalf("winding not flipped: %v", m.Faces[0].V)
	}
}

func TestScaleUniform(t *testing.T) {
	m := cube()
	ScaleUniform(m, 0.98)
	b := m.Bounds()
	if math.Abs(b.Max[0]-0.98) > 1e-6 || math.Abs(b.Min[1]+0.98) > 1e-6 {
		t.Fatalf("bounds after 0.98 scale = %v/%v", b.Min, b.Max)
	}
}

func TestDecimateRejectsBadRatio(t *testing.T) {
	for _, ratio := range []float64{-0.1, 1.01, math.NaN()} {
		if err := Decimate(cube(), ratio); err == nil {
			t.Errorf("ratio %v accepted", ratio)
		}
	}
}

func TestDecimateRatioOneIsNoop(t *testing.T) {
	m := gridPlane(4)
	faces := len(m.Faces)
	verts := len(m.Vertices)
	if err := Decimate(m, 1); err != nil {
		t.Fatalf("Decimate: %v", err)
	}
	if len(m.Faces) != faces || len(m.Vertices) != verts {
		t.Fatalf("ratio 1 modified mesh: %d faces, %d verts", len(m.Faces), len(m.Vertices))
	}
}

func TestDecimateReducesToTarget(t *testing.T) {
	m := gridPlane(8)
	for i := range m.Faces {
		m.Faces[i].Mat = 1
	}
	all := make([]uint32, len(m.Vertices))
	for i := range all {
		all[i] = uint32(i)
	}
	m.EnsureGroup("Head").Assign(all, 1)

	before := len(m.Faces)
	if err := Decimate(m, 0.5); err != nil {
		t.Fatalf("Decimate: %v", err)
	}

	if len(m.Faces) == 0 {
		t.Fatal("decimation removed every face")
	}
	if len(m.Faces) > before/2 {
		t.Fatalf("faces = %d, want <= %d", len(m.Faces), before/2)
	}
	if len(m.Vertices) >= 81 {
		t.Fatalf("vertices not reduced: %d", len(m.Vertices))
	}
	for _, f := range m.Faces {
		if f.Mat != 1 {
			t.Fatal("material slot lost in rebuild")
		}
		if f.V[0] == f.V[1] || f.V[1] == f.V[2] || f.V[0] == f.V[2] {
			t.Fatalf("degenerate face survived: %v", f.V)
		}
	}
	g := m.Group("Head")
	for i := range m.Vertices {
		if g.Weight(uint32(i)) != 1 {
			t.Fatalf("vertex %d lost full weight", i)
		}
	}
}

func TestUnwrapBasicCoversUnitSquare(t *testing.T) {
	m := gridPlane(2)
	if err := Unwrap(m, MethodBasic); err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if len(m.UVs) != len(m.Vertices) {
		t.Fatalf("UV count %d != vertex count %d", len(m.UVs), len(m.Vertices))
	}
	var minU, maxU float32 = 1, 0
	for _, uv := range m.UVs {
		if uv[0] < 0 || uv[0] > 1 || uv[1] < 0 || uv[1] > 1 {
			t.Fatalf("UV outside [0,1]: %v", uv)
		}
		if uv[0] < minU {
			minU = uv[0]
		}
		if uv[0] > maxU {
			maxU = uv[0]
		}
	}
	if minU != 0 || maxU != 1 {
		t.Fatalf("planar projection does not span the square: [%v, %v]", minU, maxU)
	}
}

func TestUnwrapSmartSplitsCube(t *testing.T) {
	m := cube()
	RecomputeNormals(m)
	all := make([]uint32, 8)
	for i := range all {
		all[i] = uint32(i)
	}
	m.EnsureGroup("Head").Assign(all, 1)

	if err := Unwrap(m, MethodSmart); err != nil {
		t.Fatalf("Unwrap: %v", err)
	}

	// Every cube corner touches three differently facing sides.
	if len(m.Vertices) != 24 {
		t.Fatalf("vertices after split = %d, want 24", len(m.Vertices))
	}
	if len(m.Faces) != 12 {
		t.Fatalf("faces after split = %d, want 12", len(m.Faces))
	}
	if len(m.UVs) != 24 || len(m.Normals) != 24 {
		t.Fatalf("attribute counts: %d UVs, %d normals", len(m.UVs), len(m.Normals))
	}
	for _, uv := range m.UVs {
		if uv[0] < 0 || uv[0] > 1 || uv[1] < 0 || uv[1] > 1 {
			t.Fatalf("UV outside [0,1]: %v", uv)
		}
	}
	g := m.Group("Head")
	if len(g.Weights) != 24 {
		t.Fatalf("group weights = %d entries, want 24", len(g.Weights))
	}
	for i := range m.Vertices {
		if g.Weight(uint32(i)) != 1 {
			t.Fatalf("split vertex %d lost weight", i)
		}
	}
}

func TestUnwrapUnknownMethod(t *testing.T) {
	if err := Unwrap(cube(), "conformal"); err == nil {
		t.Fatal("unknown method accepted")
	}
}

func TestRecomputeNormalsFlatQuad(t *testing.T) {
	m := &scene.Mesh{
		Vertices: []vec3.T{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Faces:    []scene.Face{{V: [3]uint32{0, 1, 2}}, {V: [3]uint32{0, 2, 3}}},
	}
	RecomputeNormals(m)
	for i, n := range m.Normals {
		if math.Abs(float64(n[2])-1) > 1e-6 {
			t.Fatalf("normal %d = %v, want +Z", i, n)
		}
	}
}

func TestScaleUniformAboutKeepsCenter(t *testing.T) {
	m := cube()
	for i := range m.Vertices {
		m.Vertices[i][0] += 10
	}
	c := Centroid(m)
	if c != (vec3.T{10, 0, 0}) {
		t.Fatalf("centroid = %v, want (10,0,0)", c)
	}
	ScaleUniformAbout(m, 0.5, c)
	if got := Centroid(m); got != c {
		t.Errorf("centroid moved to %v", got)
	}
	b := m.Bounds()
	if b.Min[0] != 9.5 || b.Max[0] != 10.5 {
		t.Errorf("x bounds = [%v, %v], want [9.5, 10.5]", b.Min[0], b.Max[0])
	}
}
