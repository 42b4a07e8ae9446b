package main

import (
	"fmt"
	"os"

	"avatarforge/internal/formats"
	_ "avatarforge/internal/glb"
	_ "avatarforge/internal/objfile"
	_ "avatarforge/internal/rbxmesh"
	"avatarforge/internal/scene"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: inspect <file>")
		os.Exit(1)
	}
	path := os.Args[1]

	imp, err := formats.ImporterFor(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	sc := scene.New()
	if err := imp.Import(sc, path); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Meshes: %d, Armatures: %d\n", len(sc.Meshes()), len(sc.Armatures()))
	for _, o := range sc.Objects() {
		switch {
		case o.Mesh != nil:
			dumpMesh(o)
		case o.Armature != nil:
			dumpArmature(o)
		}
	}
}

func dumpMesh(o *scene.Object) {
	m := o.Mesh
	fmt.Printf("  Mesh %q: verts=%d, tris=%d, uvs=%d, normals=%d\n",
		o.Name, len(m.Vertices), len(m.Faces), len(m.UVs), len(m.Normals))
	if o.Parent != nil {
		bind := ""
		if o.DeformBind {
			bind = ", deform"
		}
		fmt.Printf("    Parent: %s%s\n", o.Parent.Name, bind)
	}
	if len(m.Vertices) > 0 {
		b := m.Bounds()
		fmt.Printf("    BBox: X[%.2f, %.2f] Y[%.2f, %.2f] Z[%.2f, %.2f]\n",
			b.Min[0], b.Max[0], b.Min[1], b.Max[1], b.Min[2], b.Max[2])
		fmt.Printf("    Size: %.2f x %.2f x %.2f\n",
			b.Max[0]-b.Min[0], b.Max[1]-b.Min[1], b.Max[2]-b.Min[2])
	}
	for _, g := range m.Groups {
		fmt.Printf("    Group %q: %d weights\n", g.Name, len(g.Weights))
	}
	for i, mat := range m.Materials {
		if mat == nil {
			fmt.Printf("    Material[%d]: none\n", i)
			continue
		}
		tex := "none"
		if mat.Texture != nil {
			tex = mat.Texture.Name
		}
		fmt.Printf("    Material[%d] %q: base=(%.2f, %.2f, %.2f, %.2f), texture=%s\n",
			i, mat.Name, mat.BaseColor[0], mat.BaseColor[1], mat.BaseColor[2], mat.BaseColor[3], tex)
	}
}

func dumpArmature(o *scene.Object) {
	arm := o.Armature
	fmt.Printf("  Armature %q: %d bones\n", o.Name, len(arm.Bones))
	for i, b := range arm.Bones {
		fmt.Printf("    Bone[%d] %q: parent=%d, pos=(%.2f, %.2f, %.2f)\n",
			i, b.Name, b.Parent, b.Translation[0], b.Translation[1], b.Translation[2])
	}
}
