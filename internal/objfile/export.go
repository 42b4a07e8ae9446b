package objfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	dmat "github.com/flywave/go3d/float64/mat4"

	"avatarforge/internal/formats"
	"avatarforge/internal/mathutil"
	"avatarforge/internal/scene"
)

// Export writes every mesh in the scene, baked to world space, into one OBJ
// file. Materials go to a sibling .mtl file; referenced textures are copied
// next to it when opts.CopyTextures is set.
func Export(s *scene.Scene, path string, opts formats.Options) error {
	axis, err := formats.AxisMatrix(opts.ForwardAxis, opts.UpAxis)
	if err != nil {
		return fmt.Errorf("obj: export %s: %w", path, err)
	}
	axisIdent := axis == dmat.Ident
	scale := float32(opts.Scale())

	matName := make(map[*scene.Material]string)
	var mats []*scene.Material
	if opts.Materials {
		mats = collectMaterials(s, matName)
	}

	var buf bytes.Buffer
	buf.WriteString("# avatarforge OBJ\n")

	mtlPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".mtl"
	if len(mats) > 0 {
		fmt.Fprintf(&buf, "mtllib %s\n", filepath.Base(mtlPath))
	}

	// OBJ indices are global and 1-based; positions, texture coordinates and
	// normals count separately.
	vBase, vtBase, vnBase := 1, 1, 1
	for _, o := range s.Meshes() {
		m := o.Mesh
		if len(m.Vertices) == 0 {
			continue
		}
		world := o.WorldMatrix()
		if !axisIdent {
			w := world
			world.AssignMul(&axis, &w)
		}

		fmt.Fprintf(&buf, "o %s\n", o.Name)
		for _, v := range m.Vertices {
			p := mathutil.TransformPoint(&world, v)
			fmt.Fprintf(&buf, "v %.6f %.6f %.6f\n", p[0]*scale, p[1]*scale, p[2]*scale)
		}
		hasUV := opts.UVs && len(m.UVs) == len(m.Vertices)
		if hasUV {
			for _, uv := range m.UVs {
				fmt.Fprintf(&buf, "vt %.6f %.6f\n", uv[0], uv[1])
			}
		}
		hasN := opts.Normals && len(m.Normals) == len(m.Vertices)
		if hasN {
			for _, n := range m.Normals {
				d := mathutil.TransformDir(&world, n)
				if d.LengthSqr() > 0 {
					d.Normalize()
				}
				fmt.Fprintf(&buf, "vn %.4f %.4f %.4f\n", d[0], d[1], d[2])
			}
		}

		for _, slot := range usedSlots(m) {
			if opts.Materials {
				if mat := m.Material(slot); mat != nil {
					fmt.Fprintf(&buf, "usemtl %s\n", matName[mat])
				}
			}
			for _, f := range m.Faces {
				if f.Mat != slot {
					continue
				}
				buf.WriteByte('f')
				for _, vi := range f.V {
					writeCorner(&buf, int(vi), vBase, vtBase, vnBase, hasUV, hasN)
				}
				buf.WriteByte('\n')
			}
		}

		vBase += len(m.Vertices)
		if hasUV {
			vtBase += len(m.UVs)
		}
		if hasN {
			vnBase += len(m.Normals)
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("obj: write %s: %w", path, err)
	}
	if len(mats) > 0 {
		data, err := mtlData(mats, matName, filepath.Dir(path), opts)
		if err != nil {
			return err
		}
		if err := os.WriteFile(mtlPath, data, 0o644); err != nil {
			return fmt.Errorf("obj: write %s: %w", mtlPath, err)
		}
	}
	return nil
}

func writeCorner(buf *bytes.Buffer, i, vBase, vtBase, vnBase int, hasUV, hasN bool) {
	switch {
	case hasUV && hasN:
		fmt.Fprintf(buf, " %d/%d/%d", vBase+i, vtBase+i, vnBase+i)
	case hasUV:
		fmt.Fprintf(buf, " %d/%d", vBase+i, vtBase+i)
	case hasN:
		fmt.Fprintf(buf, " %d//%d", vBase+i, vnBase+i)
	default:
		fmt.Fprintf(buf, " %d", vBase+i)
	}
}

// usedSlots returns the material slots referenced by faces in ascending order.
func usedSlots(m *scene.Mesh) []uint32 {
	seen := make(map[uint32]bool)
	var slots []uint32
	for _, f := range m.Faces {
		if !seen[f.Mat] {
			seen[f.Mat] = true
			slots = append(slots, f.Mat)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots
}

// collectMaterials gathers every referenced material in scene order and gives
// each a unique MTL name, spaces replaced since most readers split on them.
func collectMaterials(s *scene.Scene, names map[*scene.Material]string) []*scene.Material {
	var mats []*scene.Material
	taken := make(map[string]bool)
	for _, o := range s.Meshes() {
		for _, slot := range usedSlots(o.Mesh) {
			mat := o.Mesh.Material(slot)
			if mat == nil {
				continue
			}
			if _, ok := names[mat]; ok {
				continue
			}
			base := strings.ReplaceAll(mat.Name, " ", "_")
			if base == "" {
				base = "Material"
			}
			name := base
			for i := 1; taken[name]; i++ {
				name = fmt.Sprintf("%s.%03d", base, i)
			}
			taken[name] = true
			names[mat] = name
			mats = append(mats, mat)
		}
	}
	return mats
}
