package objfile

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"

	dvec3 "github.com/flywave/go3d/float64/vec3"

	"avatarforge/internal/formats"
	"avatarforge/internal/scene"
	"avatarforge/internal/texture"
)

func exportOptions() formats.Options {
	return formats.Options{
		ForwardAxis: "-Z",
		UpAxis:      "Y",
		Normals:     true,
		UVs:         true,
		Materials:   true,
	}
}

func quadMesh() *scene.Mesh {
	return &scene.Mesh{
		Name: "Helmet",
		Vertices: []vec3.T{
			{-1, 2, 0}, {1, 2, 0}, {1, 3, 0}, {-1, 3, 0},
		},
		Normals: []vec3.T{
			{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1},
		},
		UVs: []vec2.T{
			{0, 0}, {1, 0}, {1, 1}, {0, 1},
		},
		Faces: []scene.Face{
			{V: [3]uint32{0, 1, 2}},
			{V: [3]uint32{0, 2, 3}},
		},
	}
}

func TestRoundtrip(t *testing.T) {
	src := scene.New()
	m := quadMesh()
	mat := scene.NewMaterial("HelmetMat")
	mat.BaseColor = [4]float64{1, 0.5, 0.25, 1}
	m.SetMaterial(mat)
	src.Add(scene.NewMeshObject("Helmet", m))

	dir := t.TempDir()
	path := filepath.Join(dir, "helmet.obj")
	if err := Export(src, path, exportOptions()); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "helmet.mtl")); err != nil {
		t.Fatalf("mtl file: %v", err)
	}

	dst := scene.New()
	if err := Import(dst, path); err != nil {
		t.Fatalf("import: %v", err)
	}
	mo, err := dst.Mesh("Helmet")
	if err != nil {
		t.Fatalf("mesh after import: %v", err)
	}
	got, want := mo.Mesh, quadMesh()
	if len(got.Vertices) != len(want.Vertices) || len(got.Faces) != len(want.Faces) {
		t.Fatalf("got %d vertices %d faces, want %d and %d",
			len(got.Vertices), len(got.Faces), len(want.Vertices), len(want.Faces))
	}
	for i := range want.Vertices {
		if got.Vertices[i] != want.Vertices[i] {
			t.Errorf("vertex %d = %v, want %v", i, got.Vertices[i], want.Vertices[i])
		}
		if got.UVs[i] != want.UVs[i] {
			t.Errorf("uv %d = %v, want %v", i, got.UVs[i], want.UVs[i])
		}
		if got.Normals[i] != want.Normals[i] {
			t.Errorf("normal %d = %v, want %v", i, got.Normals[i], want.Normals[i])
		}
	}
	for i := range want.Faces {
		if got.Faces[i] != want.Faces[i] {
			t.Errorf("face %d = %v, want %v", i, got.Faces[i], want.Faces[i])
		}
	}

	m2 := got.Material(0)
	if m2 == nil {
		t.Fatal("material missing after import")
	}
	if m2.Name != "HelmetMat" {
		t.Errorf("material name = %q", m2.Name)
	}
	if m2.BaseColor != [4]float64{1, 0.5, 0.25, 1} {
		t.Errorf("base color = %v", m2.BaseColor)
	}
}

func TestCopyTextures(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	tex, err := texture.Decode("skin.png", buf.Bytes())
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}

	src := scene.New()
	m := quadMesh()
	mat := scene.NewMaterial("Skin")
	mat.Texture = tex
	m.SetMaterial(mat)
	src.Add(scene.NewMeshObject("Plane", m))

	dir := t.TempDir()
	path := filepath.Join(dir, "plane.obj")
	opts := exportOptions()
	opts.CopyTextures = true
	if err := Export(src, path, opts); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "skin.png")); err != nil {
		t.Fatalf("copied texture: %v", err)
	}

	dst := scene.New()
	if err := Import(dst, path); err != nil {
		t.Fatalf("import: %v", err)
	}
	mo, err := dst.Mesh("Plane")
	if err != nil {
		t.Fatalf("mesh after import: %v", err)
	}
	m2 := mo.Mesh.Material(0)
	if m2 == nil || m2.Texture == nil {
		t.Fatal("texture missing after import")
	}
	if b := m2.Texture.Image.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Errorf("texture bounds = %v, want 2x2", b)
	}
}

func TestImportNegativeIndicesAndFan(t *testing.T) {
	obj := strings.Join([]string{
		"o Quad",
		"v 0 0 0",
		"v 1 0 0",
		"v 1 1 0",
		"v 0 1 0",
		"f -4 -3 -2 -1",
	}, "\n")
	path := filepath.Join(t.TempDir(), "quad.obj")
	if err := os.WriteFile(path, []byte(obj), 0o644); err != nil {
		t.Fatal(err)
	}

	s := scene.New()
	if err := Import(s, path); err != nil {
		t.Fatalf("import: %v", err)
	}
	mo, err := s.Mesh("Quad")
	if err != nil {
		t.Fatalf("mesh: %v", err)
	}
	m := mo.Mesh
	if len(m.Vertices) != 4 {
		t.Fatalf("got %d vertices, want 4", len(m.Vertices))
	}
	wantFaces := []scene.Face{
		{V: [3]uint32{0, 1, 2}},
		{V: [3]uint32{0, 2, 3}},
	}
	if len(m.Faces) != len(wantFaces) {
		t.Fatalf("got %d faces, want 2", len(m.Faces))
	}
	for i, f := range wantFaces {
		if m.Faces[i] != f {
			t.Errorf("face %d = %v, want %v", i, m.Faces[i], f)
		}
	}
	if m.UVs != nil || m.Normals != nil {
		t.Errorf("expected no uvs or normals, got %d and %d", len(m.UVs), len(m.Normals))
	}
}

func TestImportMultipleObjects(t *testing.T) {
	obj := strings.Join([]string{
		"o A",
		"v 0 0 0",
		"v 1 0 0",
		"v 0 1 0",
		"f 1 2 3",
		"o B",
		"v 0 0 1",
		"v 1 0 1",
		"v 0 1 1",
		"f 4 5 6",
	}, "\n")
	path := filepath.Join(t.TempDir(), "two.obj")
	if err := os.WriteFile(path, []byte(obj), 0o644); err != nil {
		t.Fatal(err)
	}

	s := scene.New()
	if err := Import(s, path); err != nil {
		t.Fatalf("import: %v", err)
	}
	for _, name := range []string{"A", "B"} {
		mo, err := s.Mesh(name)
		if err != nil {
			t.Fatalf("mesh %s: %v", name, err)
		}
		if len(mo.Mesh.Vertices) != 3 || len(mo.Mesh.Faces) != 1 {
			t.Errorf("%s: %d vertices %d faces, want 3 and 1",
				name, len(mo.Mesh.Vertices), len(mo.Mesh.Faces))
		}
	}
	b, _ := s.Mesh("B")
	if got := b.Mesh.Vertices[0]; got != (vec3.T{0, 0, 1}) {
		t.Errorf("B first vertex = %v, want (0,0,1)", got)
	}
}

func TestExportBakesTransform(t *testing.T) {
	src := scene.New()
	m := &scene.Mesh{
		Name:     "Marker",
		Vertices: []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:    []scene.Face{{V: [3]uint32{0, 1, 2}}},
	}
	o := scene.NewMeshObject("Marker", m)
	o.Translation = dvec3.T{1, 2, 3}
	src.Add(o)

	path := filepath.Join(t.TempDir(), "marker.obj")
	if err := Export(src, path, exportOptions()); err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := scene.New()
	if err := Import(dst, path); err != nil {
		t.Fatalf("import: %v", err)
	}
	mo, err := dst.Mesh("Marker")
	if err != nil {
		t.Fatalf("mesh: %v", err)
	}
	if got, want := mo.Mesh.Vertices[0], (vec3.T{1, 2, 3}); got != want {
		t.Errorf("baked vertex = %v, want %v", got, want)
	}
}

func TestImportErrors(t *testing.T) {
	s := scene.New()
	if err := Import(s, filepath.Join(t.TempDir(), "missing.obj")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.obj")
	if err := os.WriteFile(path, []byte("v 0 0 0\nv 1 0 0\nf 1 2 nine\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := Import(scene.New(), path)
	if err == nil {
		t.Fatal("expected error for malformed face")
	}
	if !strings.Contains(err.Error(), ":3:") {
		t.Errorf("error %q does not name line 3", err)
	}
}
