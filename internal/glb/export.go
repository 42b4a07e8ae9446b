package glb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qmuntal/gltf"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"

	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"

	"avatarforge/internal/formats"
	"avatarforge/internal/scene"
)

// Export writes the whole scene to path. Meshes become one glTF mesh each
// with a primitive per used material slot; deform-bound meshes carry a skin
// over their parent armature when opts.Rig is set.
func Export(s *scene.Scene, path string, opts formats.Options) error {
	axis, err := formats.AxisMatrix(opts.ForwardAxis, opts.UpAxis)
	if err != nil {
		return fmt.Errorf("glb: export %s: %w", path, err)
	}

	b := &builder{
		doc: &gltf.Document{
			Asset: gltf.Asset{Version: "2.0", Generator: "avatarforge"},
		},
		scale:     opts.Scale(),
		axis:      axis,
		axisIdent: axis == dmat.Ident,
		materials: make(map[*scene.Material]uint32),
	}

	var roots []uint32
	for _, o := range s.Armatures() {
		if !opts.Rig {
			continue
		}
		n, err := b.addArmature(o)
		if err != nil {
			return fmt.Errorf("glb: export %s: %w", path, err)
		}
		roots = append(roots, n)
	}
	for _, o := range s.Meshes() {
		n, err := b.addMesh(o, opts)
		if err != nil {
			return fmt.Errorf("glb: export %s: %w", path, err)
		}
		roots = append(roots, n)
	}

	b.doc.Scenes = append(b.doc.Scenes, &gltf.Scene{Name: "Scene", Nodes: roots})
	b.doc.Scene = gltf.Index(0)
	if b.buf.Len() > 0 {
		b.doc.Buffers = append(b.doc.Buffers, &gltf.Buffer{
			ByteLength: uint32(b.buf.Len()),
			Data:       b.buf.Bytes(),
		})
	}
	if len(opts.Metadata) > 0 {
		b.doc.Extras = opts.Metadata
	}

	if strings.EqualFold(filepath.Ext(path), ".glb") {
		err = gltf.SaveBinary(b.doc, path)
	} else {
		err = gltf.Save(b.doc, path)
	}
	if err != nil {
		return fmt.Errorf("glb: save %s: %w", path, err)
	}
	return nil
}

type builder struct {
	doc       *gltf.Document
	buf       bytes.Buffer
	scale     float64
	axis      dmat.T
	axisIdent bool
	materials map[*scene.Material]uint32
	armatures map[*scene.Object]armatureNodes

	sampler     *uint32
	haveSampler bool
}

// armatureNodes remembers where an armature landed in the node tree.
type armatureNodes struct {
	root  uint32
	bones []uint32
	skin  *uint32
}

func (b *builder) addNode(n *gltf.Node) uint32 {
	b.doc.Nodes = append(b.doc.Nodes, n)
	return uint32(len(b.doc.Nodes) - 1)
}

// newNode returns a node with explicit glTF defaults, so unset rotation and
// scale never serialize as zeros.
func newNode(name string) *gltf.Node {
	return &gltf.Node{
		Name:     name,
		Rotation: [4]float64{0, 0, 0, 1},
		Scale:    [3]float64{1, 1, 1},
	}
}

// applyTransform fills a node from an object's local transform, folding the
// axis change into root nodes.
func (b *builder) applyTransform(n *gltf.Node, o *scene.Object) {
	if !b.axisIdent && o.Parent == nil {
		local := o.LocalMatrix()
		var world dmat.T
		world.AssignMul(&b.axis, &local)
		world[3][0] *= b.scale
		world[3][1] *= b.scale
		world[3][2] *= b.scale
		n.Matrix = *world.Array()
		return
	}
	q := o.Rotation.OrIdentity()
	n.Rotation = [4]float64{q[0], q[1], q[2], q[3]}
	sc := o.Scale
	if sc == (dvec3.T{}) {
		sc = dvec3.T{1, 1, 1}
	}
	n.Scale = [3]float64{sc[0], sc[1], sc[2]}
	n.Translation = [3]float64{
		o.Translation[0] * b.scale,
		o.Translation[1] * b.scale,
		o.Translation[2] * b.scale,
	}
}

func (b *builder) addArmature(o *scene.Object) (uint32, error) {
	root := newNode(o.Name)
	b.applyTransform(root, o)
	rootIdx := b.addNode(root)

	arm := o.Armature
	bones := make([]uint32, len(arm.Bones))
	for i, bone := range arm.Bones {
		n := newNode(bone.Name)
		q := bone.Rotation.OrIdentity()
		n.Rotation = [4]float64{q[0], q[1], q[2], q[3]}
		n.Translation = [3]float64{
			bone.Translation[0] * b.scale,
			bone.Translation[1] * b.scale,
			bone.Translation[2] * b.scale,
		}
		bones[i] = b.addNode(n)
	}
	for i, bone := range arm.Bones {
		if bone.Parent >= 0 && bone.Parent < len(arm.Bones) {
			p := b.doc.Nodes[bones[bone.Parent]]
			p.Children = append(p.Children, bones[i])
		} else {
			b.doc.Nodes[rootIdx].Children = append(b.doc.Nodes[rootIdx].Children, bones[i])
		}
	}

	if b.armatures == nil {
		b.armatures = make(map[*scene.Object]armatureNodes)
	}
	b.armatures[o] = armatureNodes{root: rootIdx, bones: bones}
	return rootIdx, nil
}

func (b *builder) addMesh(o *scene.Object, opts formats.Options) (uint32, error) {
	m := o.Mesh
	node := newNode(o.Name)

	deform := opts.Rig && o.DeformBind && o.Parent != nil && o.Parent.Armature != nil
	if deform || o.Parent == nil {
		// Skinned placement comes from the joints; the node keeps its local
		// transform, which viewers ignore for skinned meshes.
		b.applyTransform(node, o)
	} else {
		// A plain parented mesh flattens its chain into one matrix, since the
		// parent objects do not become nodes.
		world := o.WorldMatrix()
		if !b.axisIdent {
			w := world
			world.AssignMul(&b.axis, &w)
		}
		for a := 0; a < 3; a++ {
			world[3][a] *= b.scale
		}
		node.Matrix = *world.Array()
	}

	if len(m.Faces) == 0 {
		return b.addNode(node), nil
	}

	// Vertex data, shared by all primitives of this mesh.
	positions := make([]vec3.T, len(m.Vertices))
	sf := float32(b.scale)
	for i, v := range m.Vertices {
		positions[i] = vec3.T{v[0] * sf, v[1] * sf, v[2] * sf}
	}
	posAcc, err := b.writeVec3(positions, true)
	if err != nil {
		return 0, err
	}

	var normAcc, uvAcc *uint32
	if opts.Normals && len(m.Normals) == len(m.Vertices) {
		acc, err := b.writeVec3(m.Normals, false)
		if err != nil {
			return 0, err
		}
		normAcc = gltf.Index(acc)
	}
	if opts.UVs && len(m.UVs) == len(m.Vertices) {
		flipped := make([]vec2.T, len(m.UVs))
		for i, uv := range m.UVs {
			flipped[i] = vec2.T{uv[0], 1 - uv[1]}
		}
		acc, err := b.writeVec2(flipped)
		if err != nil {
			return 0, err
		}
		uvAcc = gltf.Index(acc)
	}

	// Skin attributes against the parent armature.
	var skinIdx *uint32
	var jointAcc, weightAcc *uint32
	if deform {
		an, ok := b.armatures[o.Parent]
		if !ok {
			return 0, fmt.Errorf("armature %q was not exported before %q", o.Parent.Name, o.Name)
		}
		joints, weights := skinAttributes(m, o.Parent.Armature)
		ja, err := b.writeJoints(joints)
		if err != nil {
			return 0, err
		}
		wa, err := b.writeWeights(weights)
		if err != nil {
			return 0, err
		}
		jointAcc, weightAcc = gltf.Index(ja), gltf.Index(wa)

		if an.skin == nil {
			si, err := b.addSkin(o.Parent, an)
			if err != nil {
				return 0, err
			}
			an.skin = gltf.Index(si)
			b.armatures[o.Parent] = an
		}
		skinIdx = an.skin
	}

	gm := &gltf.Mesh{Name: m.Name}
	if gm.Name == "" {
		gm.Name = o.Name
	}
	for _, slot := range usedSlots(m) {
		var indices []uint32
		for _, f := range m.Faces {
			if f.Mat != slot {
				continue
			}
			indices = append(indices, f.V[0], f.V[1], f.V[2])
		}
		idxAcc, err := b.writeIndices(indices)
		if err != nil {
			return 0, err
		}

		attrs := map[string]uint32{gltf.POSITION: posAcc}
		if normAcc != nil {
			attrs[gltf.NORMAL] = *normAcc
		}
		if uvAcc != nil {
			attrs[gltf.TEXCOORD_0] = *uvAcc
		}
		if jointAcc != nil {
			attrs[gltf.JOINTS_0] = *jointAcc
			attrs[gltf.WEIGHTS_0] = *weightAcc
		}

		prim := &gltf.Primitive{
			Attributes: attrs,
			Indices:    gltf.Index(idxAcc),
			Mode:       gltf.PrimitiveTriangles,
		}
		if opts.Materials {
			if mat := m.Material(slot); mat != nil {
				mi, err := b.addMaterial(mat, opts)
				if err != nil {
					return 0, err
				}
				prim.Material = gltf.Index(mi)
			}
		}
		gm.Primitives = append(gm.Primitives, prim)
	}

	b.doc.Meshes = append(b.doc.Meshes, gm)
	node.Mesh = gltf.Index(uint32(len(b.doc.Meshes) - 1))
	node.Skin = skinIdx
	return b.addNode(node), nil
}

// usedSlots returns the material slots referenced by faces, in ascending
// order, so primitive layout is deterministic.
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

// skinAttributes resolves vertex groups to per-vertex joint/weight quads in
// bone index order. Groups that do not match a bone name are ignored.
func skinAttributes(m *scene.Mesh, arm *scene.Armature) ([][4]uint16, [][4]float32) {
	joints := make([][4]uint16, len(m.Vertices))
	weights := make([][4]float32, len(m.Vertices))
	slot := make([]int, len(m.Vertices))

	for _, g := range m.Groups {
		bone := arm.Find(g.Name)
		if bone < 0 {
			continue
		}
		for vi, w := range g.Weights {
			if w <= 0 || int(vi) >= len(m.Vertices) || slot[vi] >= 4 {
				continue
			}
			joints[vi][slot[vi]] = uint16(bone)
			weights[vi][slot[vi]] = w
			slot[vi]++
		}
	}
	// Normalize so each influenced vertex sums to 1.
	for vi := range weights {
		var sum float32
		for _, w := range weights[vi] {
			sum += w
		}
		if sum > 0 && sum != 1 {
			for k := range weights[vi] {
				weights[vi][k] /= sum
			}
		}
	}
	return joints, weights
}

func (b *builder) addSkin(o *scene.Object, an armatureNodes) (uint32, error) {
	arm := o.Armature
	world := arm.WorldMatrices()
	armLocal := o.LocalMatrix()

	ibms := make([][16]float64, len(arm.Bones))
	for i := range arm.Bones {
		var global dmat.T
		global.AssignMul(&armLocal, &world[i])
		if !b.axisIdent && o.Parent == nil {
			g := global
			global.AssignMul(&b.axis, &g)
		}
		for a := 0; a < 3; a++ {
			global[3][a] *= b.scale
		}
		inv := invertRigidScaled(global)
		ibms[i] = *inv.Array()
	}
	acc, err := b.writeMat4(ibms)
	if err != nil {
		return 0, err
	}

	b.doc.Skins = append(b.doc.Skins, &gltf.Skin{
		Name:                o.Name,
		InverseBindMatrices: gltf.Index(acc),
		Skeleton:            gltf.Index(an.root),
		Joints:              an.bones,
	})
	return uint32(len(b.doc.Skins) - 1), nil
}

// invertRigidScaled inverts a rotation+translation matrix. Rest skeletons
// carry no scale, so the rigid inverse applies.
func invertRigidScaled(m dmat.T) dmat.T {
	inv := dmat.Ident
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			inv[c][r] = m[r][c]
		}
	}
	tx, ty, tz := m[3][0], m[3][1], m[3][2]
	inv[3][0] = -(m[0][0]*tx + m[0][1]*ty + m[0][2]*tz)
	inv[3][1] = -(m[1][0]*tx + m[1][1]*ty + m[1][2]*tz)
	inv[3][2] = -(m[2][0]*tx + m[2][1]*ty + m[2][2]*tz)
	return inv
}

func (b *builder) addMaterial(mat *scene.Material, opts formats.Options) (uint32, error) {
	if idx, ok := b.materials[mat]; ok {
		return idx, nil
	}

	metallic := mat.Metallic
	roughness := mat.Roughness
	gm := &gltf.Material{
		Name:        mat.Name,
		DoubleSided: mat.DoubleSided,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{
				mat.BaseColor[0],
				mat.BaseColor[1],
				mat.BaseColor[2],
				mat.BaseColor[3],
			},
			MetallicFactor:  &metallic,
			RoughnessFactor: &roughness,
		},
	}
	if mat.BaseColor[3] < 1 {
		gm.AlphaMode = gltf.AlphaBlend
	}

	if opts.EmbedTextures && mat.Texture != nil {
		ti, err := b.addTexture(mat)
		if err != nil {
			return 0, err
		}
		gm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: ti}
	}

	b.doc.Materials = append(b.doc.Materials, gm)
	idx := uint32(len(b.doc.Materials) - 1)
	b.materials[mat] = idx
	return idx, nil
}

// addTexture embeds the material's image in the buffer. PNG and JPEG sources
// keep their bytes; anything else is re-encoded to PNG.
func (b *builder) addTexture(mat *scene.Material) (uint32, error) {
	tex := mat.Texture
	data := tex.Data
	mime := tex.MimeType
	if mime != "image/png" && mime != "image/jpeg" {
		png, err := tex.PNG()
		if err != nil {
			return 0, err
		}
		data, mime = png, "image/png"
	}

	view := b.view(data, 0)
	b.doc.Images = append(b.doc.Images, &gltf.Image{
		Name:       tex.Name,
		MimeType:   mime,
		BufferView: gltf.Index(view),
	})

	if !b.haveSampler {
		b.doc.Samplers = append(b.doc.Samplers, &gltf.Sampler{
			WrapS: gltf.WrapRepeat,
			WrapT: gltf.WrapRepeat,
		})
		b.sampler = gltf.Index(uint32(len(b.doc.Samplers) - 1))
		b.haveSampler = true
	}

	b.doc.Textures = append(b.doc.Textures, &gltf.Texture{
		Sampler: b.sampler,
		Source:  gltf.Index(uint32(len(b.doc.Images) - 1)),
	})
	return uint32(len(b.doc.Textures) - 1), nil
}

// view appends padded bytes to buffer 0 and returns the buffer view index.
// target 0 leaves the view untargeted (image data).
func (b *builder) view(data []byte, target gltf.Target) uint32 {
	for b.buf.Len()%4 != 0 {
		b.buf.WriteByte(0)
	}
	offset := uint32(b.buf.Len())
	b.buf.Write(data)
	bv := &gltf.BufferView{
		Buffer:     0,
		ByteOffset: offset,
		ByteLength: uint32(len(data)),
	}
	if target != 0 {
		bv.Target = target
	}
	b.doc.BufferViews = append(b.doc.BufferViews, bv)
	return uint32(len(b.doc.BufferViews) - 1)
}

func (b *builder) accessor(view uint32, comp gltf.ComponentType, typ gltf.AccessorType, count uint32) uint32 {
	b.doc.Accessors = append(b.doc.Accessors, &gltf.Accessor{
		BufferView:    gltf.Index(view),
		ComponentType: comp,
		Type:          typ,
		Count:         count,
	})
	return uint32(len(b.doc.Accessors) - 1)
}

func (b *builder) writeVec3(data []vec3.T, withBounds bool) (uint32, error) {
	var raw bytes.Buffer
	if err := binary.Write(&raw, binary.LittleEndian, data); err != nil {
		return 0, err
	}
	view := b.view(raw.Bytes(), gltf.TargetArrayBuffer)
	acc := b.accessor(view, gltf.ComponentFloat, gltf.AccessorVec3, uint32(len(data)))
	if withBounds {
		min := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
		max := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
		for _, v := range data {
			for a := 0; a < 3; a++ {
				f := float64(v[a])
				if f < min[a] {
					min[a] = f
				}
				if f > max[a] {
					max[a] = f
				}
			}
		}
		if len(data) == 0 {
			min, max = [3]float64{}, [3]float64{}
		}
		b.doc.Accessors[acc].Min = min[:]
		b.doc.Accessors[acc].Max = max[:]
	}
	return acc, nil
}

func (b *builder) writeVec2(data []vec2.T) (uint32, error) {
	var raw bytes.Buffer
	if err := binary.Write(&raw, binary.LittleEndian, data); err != nil {
		return 0, err
	}
	view := b.view(raw.Bytes(), gltf.TargetArrayBuffer)
	return b.accessor(view, gltf.ComponentFloat, gltf.AccessorVec2, uint32(len(data))), nil
}

func (b *builder) writeIndices(indices []uint32) (uint32, error) {
	var raw bytes.Buffer
	if err := binary.Write(&raw, binary.LittleEndian, indices); err != nil {
		return 0, err
	}
	view := b.view(raw.Bytes(), gltf.TargetElementArrayBuffer)
	return b.accessor(view, gltf.ComponentUint, gltf.AccessorScalar, uint32(len(indices))), nil
}

func (b *builder) writeJoints(joints [][4]uint16) (uint32, error) {
	var raw bytes.Buffer
	if err := binary.Write(&raw, binary.LittleEndian, joints); err != nil {
		return 0, err
	}
	view := b.view(raw.Bytes(), gltf.TargetArrayBuffer)
	return b.accessor(view, gltf.ComponentUshort, gltf.AccessorVec4, uint32(len(joints))), nil
}

func (b *builder) writeWeights(weights [][4]float32) (uint32, error) {
	var raw bytes.Buffer
	if err := binary.Write(&raw, binary.LittleEndian, weights); err != nil {
		return 0, err
	}
	view := b.view(raw.Bytes(), gltf.TargetArrayBuffer)
	return b.accessor(view, gltf.ComponentFloat, gltf.AccessorVec4, uint32(len(weights))), nil
}

func (b *builder) writeMat4(ms [][16]float64) (uint32, error) {
	flat := make([]float32, 0, len(ms)*16)
	for _, m := range ms {
		for _, f := range m {
			flat = append(flat, float32(f))
		}
	}
	var raw bytes.Buffer
	if err := binary.Write(&raw, binary.LittleEndian, flat); err != nil {
		return 0, err
	}
	view := b.view(raw.Bytes(), 0)
	return b.accessor(view, gltf.ComponentFloat, gltf.AccessorMat4, uint32(len(ms))), nil
}
