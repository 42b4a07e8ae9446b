package glb

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/qmuntal/gltf"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
)

// accessorView resolves an accessor to its backing bytes and element stride.
// A nil BufferView yields nil data, which readers treat as all zeroes.
type accessorView struct {
	acc    *gltf.Accessor
	data   []byte
	stride int
	elem   int
}

func compSize(c gltf.ComponentType) int {
	switch c {
	case gltf.ComponentUbyte, gltf.ComponentByte:
		return 1
	case gltf.ComponentUshort, gltf.ComponentShort:
		return 2
	default:
		return 4
	}
}

func typeComponents(t gltf.AccessorType) int {
	switch t {
	case gltf.AccessorScalar:
		return 1
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4:
		return 4
	case gltf.AccessorMat4:
		return 16
	default:
		return 1
	}
}

func (im *importer) access(ai uint32) (*accessorView, error) {
	if int(ai) >= len(im.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", ai)
	}
	acc := im.doc.Accessors[ai]
	if acc.Sparse != nil {
		return nil, fmt.Errorf("accessor %d: sparse storage unsupported", ai)
	}
	av := &accessorView{
		acc:  acc,
		elem: compSize(acc.ComponentType) * typeComponents(acc.Type),
	}
	av.stride = av.elem
	if acc.BufferView == nil {
		return av, nil
	}
	if int(*acc.BufferView) >= len(im.doc.BufferViews) {
		return nil, fmt.Errorf("accessor %d: buffer view out of range", ai)
	}
	view := im.doc.BufferViews[*acc.BufferView]
	data, err := im.viewBytes(view)
	if err != nil {
		return nil, fmt.Errorf("accessor %d: %w", ai, err)
	}
	av.data = data
	if view.ByteStride != 0 {
		av.stride = int(view.ByteStride)
	}

	if acc.Count > 0 {
		need := int(acc.ByteOffset) + int(acc.Count-1)*av.stride + av.elem
		if need > len(data) {
			return nil, fmt.Errorf("accessor %d: %d bytes needed, view holds %d", ai, need, len(data))
		}
	}
	return av, nil
}

// at returns the bytes of element i.
func (av *accessorView) at(i int) []byte {
	off := int(av.acc.ByteOffset) + i*av.stride
	return av.data[off : off+av.elem]
}

func f32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func (im *importer) readVec3(ai uint32) ([]vec3.T, error) {
	av, err := im.access(ai)
	if err != nil {
		return nil, err
	}
	if av.acc.ComponentType != gltf.ComponentFloat || av.acc.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("accessor %d: want float vec3", ai)
	}
	out := make([]vec3.T, av.acc.Count)
	if av.data == nil {
		return out, nil
	}
	for i := range out {
		e := av.at(i)
		out[i] = vec3.T{f32(e), f32(e[4:]), f32(e[8:])}
	}
	return out, nil
}

func (im *importer) readVec2(ai uint32) ([]vec2.T, error) {
	av, err := im.access(ai)
	if err != nil {
		return nil, err
	}
	if av.acc.Type != gltf.AccessorVec2 {
		return nil, fmt.Errorf("accessor %d: want vec2", ai)
	}
	out := make([]vec2.T, av.acc.Count)
	if av.data == nil {
		return out, nil
	}
	for i := range out {
		e := av.at(i)
		switch av.acc.ComponentType {
		case gltf.ComponentFloat:
			out[i] = vec2.T{f32(e), f32(e[4:])}
		case gltf.ComponentUbyte:
			out[i] = vec2.T{float32(e[0]) / 255, float32(e[1]) / 255}
		case gltf.ComponentUshort:
			out[i] = vec2.T{
				float32(binary.LittleEndian.Uint16(e)) / 65535,
				float32(binary.LittleEndian.Uint16(e[2:])) / 65535,
			}
		default:
			return nil, fmt.Errorf("accessor %d: texcoord component type %v", ai, av.acc.ComponentType)
		}
	}
	return out, nil
}

func (im *importer) readIndices(ai uint32) ([]uint32, error) {
	av, err := im.access(ai)
	if err != nil {
		return nil, err
	}
	if av.acc.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("accessor %d: want scalar indices", ai)
	}
	out := make([]uint32, av.acc.Count)
	if av.data == nil {
		return out, nil
	}
	for i := range out {
		e := av.at(i)
		switch av.acc.ComponentType {
		case gltf.ComponentUint:
			out[i] = binary.LittleEndian.Uint32(e)
		case gltf.ComponentUshort:
			out[i] = uint32(binary.LittleEndian.Uint16(e))
		case gltf.ComponentUbyte:
			out[i] = uint32(e[0])
		default:
			return nil, fmt.Errorf("accessor %d: index component type %v", ai, av.acc.ComponentType)
		}
	}
	return out, nil
}

func (im *importer) readJoints(ai uint32) ([][4]uint16, error) {
	av, err := im.access(ai)
	if err != nil {
		return nil, err
	}
	if av.acc.Type != gltf.AccessorVec4 {
		return nil, fmt.Errorf("accessor %d: want vec4 joints", ai)
	}
	out := make([][4]uint16, av.acc.Count)
	if av.data == nil {
		return out, nil
	}
	for i := range out {
		e := av.at(i)
		switch av.acc.ComponentType {
		case gltf.ComponentUbyte:
			out[i] = [4]uint16{uint16(e[0]), uint16(e[1]), uint16(e[2]), uint16(e[3])}
		case gltf.ComponentUshort:
			out[i] = [4]uint16{
				binary.LittleEndian.Uint16(e),
				binary.LittleEndian.Uint16(e[2:]),
				binary.LittleEndian.Uint16(e[4:]),
				binary.LittleEndian.Uint16(e[6:]),
			}
		default:
			return nil, fmt.Errorf("accessor %d: joint component type %v", ai, av.acc.ComponentType)
		}
	}
	return out, nil
}

func (im *importer) readWeights(ai uint32) ([][4]float32, error) {
	av, err := im.access(ai)
	if err != nil {
		return nil, err
	}
	if av.acc.Type != gltf.AccessorVec4 {
		return nil, fmt.Errorf("accessor %d: want vec4 weights", ai)
	}
	out := make([][4]float32, av.acc.Count)
	if av.data == nil {
		return out, nil
	}
	for i := range out {
		e := av.at(i)
		switch av.acc.ComponentType {
		case gltf.ComponentFloat:
			out[i] = [4]float32{f32(e), f32(e[4:]), f32(e[8:]), f32(e[12:])}
		case gltf.ComponentUbyte:
			out[i] = [4]float32{
				float32(e[0]) / 255, float32(e[1]) / 255,
				float32(e[2]) / 255, float32(e[3]) / 255,
			}
		case gltf.ComponentUshort:
			out[i] = [4]float32{
				float32(binary.LittleEndian.Uint16(e)) / 65535,
				float32(binary.LittleEndian.Uint16(e[2:])) / 65535,
				float32(binary.LittleEndian.Uint16(e[4:])) / 65535,
				float32(binary.LittleEndian.Uint16(e[6:])) / 65535,
			}
		default:
			return nil, fmt.Errorf("accessor %d: weight component type %v", ai, av.acc.ComponentType)
		}
	}
	return out, nil
}
