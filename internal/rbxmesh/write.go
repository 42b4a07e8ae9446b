package rbxmesh

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	dmat "github.com/flywave/go3d/float64/mat4"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"

	"avatarforge/internal/formats"
	"avatarforge/internal/mathutil"
	"avatarforge/internal/scene"
)

// fileHeader is the version 2.00 binary header that follows the 13-byte
// version line.
type fileHeader struct {
	HeaderSize uint16
	VertexSize uint8
	FaceSize   uint8
	NumVerts   uint32
	NumFaces   uint32
}

// vertex is the 40-byte on-disk vertex layout.
type vertex struct {
	Position vec3.T
	Normal   vec3.T
	UV       vec2.T
	Tangent  [4]byte
	Color    [4]byte
}

// Export writes the scene's meshes, baked to world space and flattened into
// one buffer, as a binary version 2.00 mesh file.
func Export(s *scene.Scene, path string, opts formats.Options) error {
	axis, err := formats.AxisMatrix(opts.ForwardAxis, opts.UpAxis)
	if err != nil {
		return fmt.Errorf("rbxmesh: export %s: %w", path, err)
	}
	axisIdent := axis == dmat.Ident
	scale := float32(opts.Scale())

	var verts []vertex
	var faces [][3]uint32
	for _, o := range s.Meshes() {
		m := o.Mesh
		world := o.WorldMatrix()
		if !axisIdent {
			w := world
			world.AssignMul(&axis, &w)
		}
		base := uint32(len(verts))
		hasN := len(m.Normals) == len(m.Vertices)
		hasUV := len(m.UVs) == len(m.Vertices)
		for i, v := range m.Vertices {
			p := mathutil.TransformPoint(&world, v)
			vx := vertex{
				Position: vec3.T{p[0] * scale, p[1] * scale, p[2] * scale},
				UV:       vec2.T{0, 1},
				Color:    [4]byte{255, 255, 255, 255},
			}
			if hasN {
				d := mathutil.TransformDir(&world, m.Normals[i])
				if d.LengthSqr() > 0 {
					d.Normalize()
				}
				vx.Normal = d
			}
			if hasUV {
				vx.UV = vec2.T{m.UVs[i][0], 1 - m.UVs[i][1]}
			}
			verts = append(verts, vx)
		}
		for _, f := range m.Faces {
			faces = append(faces, [3]uint32{base + f.V[0], base + f.V[1], base + f.V[2]})
		}
	}

	data, err := encode(verts, faces)
	if err != nil {
		return fmt.Errorf("rbxmesh: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("rbxmesh: write %s: %w", path, err)
	}
	return nil
}

func encode(verts []vertex, faces [][3]uint32) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("version 2.00\n")
	hdr := fileHeader{
		HeaderSize: 12,
		VertexSize: 40,
		FaceSize:   12,
		NumVerts:   uint32(len(verts)),
		NumFaces:   uint32(len(faces)),
	}
	if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, verts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, faces); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
