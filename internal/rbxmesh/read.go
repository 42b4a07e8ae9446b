package rbxmesh

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"

	"avatarforge/internal/scene"
)

// Import reads a .mesh file into the scene as one mesh object named after
// the file.
func Import(s *scene.Scene, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("rbxmesh: read %s: %w", path, err)
	}
	m, err := Decode(raw)
	if err != nil {
		return fmt.Errorf("rbxmesh: %s: %w", filepath.Base(path), err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m.Name = name
	s.Add(scene.NewMeshObject(name, m))
	return nil
}

// Decode parses mesh bytes in any supported version.
func Decode(raw []byte) (*scene.Mesh, error) {
	if len(raw) < 13 || string(raw[:8]) != "version " {
		return nil, fmt.Errorf("not a mesh file")
	}
	version := string(raw[8:12])
	switch version {
	case "1.00", "1.01":
		return decodeASCII(raw, version)
	case "2.00", "3.00":
		return decodeBinary(raw, version)
	}
	return nil, fmt.Errorf("unsupported version %s", version)
}

type reader struct {
	data  []byte
	off   int
	short bool
}

func (r *reader) u8() byte {
	if r.off >= len(r.data) {
		r.short = true
		return 0
	}
	b := r.data[r.off]
	r.off++
	return b
}

func (r *reader) u16() uint16 {
	if r.off+2 > len(r.data) {
		r.off = len(r.data)
		r.short = true
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	if r.off+4 > len(r.data) {
		r.off = len(r.data)
		r.short = true
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *reader) skip(n int) {
	if r.off+n > len(r.data) {
		r.off = len(r.data)
		r.short = true
		return
	}
	r.off += n
}

func decodeBinary(raw []byte, version string) (*scene.Mesh, error) {
	if raw[12] != '\n' {
		return nil, fmt.Errorf("malformed version header")
	}
	r := &reader{data: raw, off: 13}

	headerSize := int(r.u16())
	vertSize := int(r.u8())
	faceSize := int(r.u8())
	var numLODs int
	if version == "3.00" {
		lodSize := int(r.u16())
		numLODs = int(r.u16())
		if lodSize != 4 {
			return nil, fmt.Errorf("unexpected lod entry size %d", lodSize)
		}
	}
	numVerts := int(r.u32())
	numFaces := int(r.u32())

	if r.short {
		return nil, fmt.Errorf("truncated header")
	}
	if vertSize != 36 && vertSize != 40 {
		return nil, fmt.Errorf("unexpected vertex size %d", vertSize)
	}
	if faceSize != 12 {
		return nil, fmt.Errorf("unexpected face size %d", faceSize)
	}
	if 13+headerSize < r.off {
		return nil, fmt.Errorf("header size %d too small", headerSize)
	}

	// Newer minor revisions may extend the header; the size field says where
	// vertex data really starts.
	r.off = 13 + headerSize
	need := numVerts*vertSize + numFaces*faceSize + numLODs*4
	if r.off+need > len(raw) {
		return nil, fmt.Errorf("truncated: %d bytes needed, %d left", need, len(raw)-r.off)
	}

	m := &scene.Mesh{
		Vertices: make([]vec3.T, numVerts),
		Normals:  make([]vec3.T, numVerts),
		UVs:      make([]vec2.T, numVerts),
	}
	for i := 0; i < numVerts; i++ {
		m.Vertices[i] = vec3.T{r.f32(), r.f32(), r.f32()}
		m.Normals[i] = vec3.T{r.f32(), r.f32(), r.f32()}
		m.UVs[i] = vec2.T{r.f32(), 1 - r.f32()}
		r.skip(4) // tangent
		if vertSize == 40 {
			r.skip(4) // color
		}
	}

	faces := make([]scene.Face, numFaces)
	for i := range faces {
		f := scene.Face{V: [3]uint32{r.u32(), r.u32(), r.u32()}}
		for _, vi := range f.V {
			if int(vi) >= numVerts {
				return nil, fmt.Errorf("face %d references vertex %d of %d", i, vi, numVerts)
			}
		}
		faces[i] = f
	}

	// A LOD table partitions the face list; the first range is the full
	// resolution mesh.
	if numLODs >= 2 {
		lods := make([]int, numLODs)
		for i := range lods {
			lods[i] = int(r.u32())
		}
		if lo, hi := lods[0], lods[1]; lo >= 0 && hi >= lo && hi <= len(faces) {
			faces = faces[lo:hi]
		}
	} else {
		r.skip(numLODs * 4)
	}
	m.Faces = faces

	if r.short {
		return nil, fmt.Errorf("truncated body")
	}
	return m, nil
}

// decodeASCII parses the legacy bracket-vector layout: a face count line,
// then one line of [x,y,z] triples, nine per face (position, normal and uv
// for each of three corners). Version 1.00 stores positions at double scale.
func decodeASCII(raw []byte, version string) (*scene.Mesh, error) {
	lines := strings.SplitN(strings.ReplaceAll(string(raw), "\r", ""), "\n", 3)
	if len(lines) < 3 {
		return nil, fmt.Errorf("truncated ascii mesh")
	}
	numFaces, err := strconv.Atoi(strings.TrimSpace(lines[1]))
	if err != nil || numFaces < 0 {
		return nil, fmt.Errorf("bad face count %q", strings.TrimSpace(lines[1]))
	}

	body := strings.TrimSpace(lines[2])
	if !strings.HasPrefix(body, "[") || !strings.HasSuffix(body, "]") {
		return nil, fmt.Errorf("malformed vector list")
	}
	vectors := strings.Split(body[1:len(body)-1], "][")
	if len(vectors) != numFaces*9 {
		return nil, fmt.Errorf("%d vectors for %d faces", len(vectors), numFaces)
	}

	posScale := float32(1)
	if version == "1.00" {
		posScale = 0.5
	}

	m := &scene.Mesh{}
	for i := 0; i < len(vectors); i += 9 {
		for c := 0; c < 3; c++ {
			p, err := parseVector(vectors[i+c*3])
			if err != nil {
				return nil, err
			}
			n, err := parseVector(vectors[i+c*3+1])
			if err != nil {
				return nil, err
			}
			uv, err := parseVector(vectors[i+c*3+2])
			if err != nil {
				return nil, err
			}
			m.Vertices = append(m.Vertices, vec3.T{p[0] * posScale, p[1] * posScale, p[2] * posScale})
			m.Normals = append(m.Normals, vec3.T{n[0], n[1], n[2]})
			m.UVs = append(m.UVs, vec2.T{uv[0], 1 - uv[1]})
		}
		base := uint32(len(m.Vertices) - 3)
		m.Faces = append(m.Faces, scene.Face{V: [3]uint32{base, base + 1, base + 2}})
	}
	return m, nil
}

func parseVector(s string) ([3]float32, error) {
	var v [3]float32
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("malformed vector %q", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return v, fmt.Errorf("malformed vector %q", s)
		}
		v[i] = float32(f)
	}
	return v, nil
}
