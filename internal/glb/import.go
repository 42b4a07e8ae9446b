package glb

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"

	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"

	"avatarforge/internal/mathutil"
	"avatarforge/internal/scene"
	"avatarforge/internal/texture"
)

// Import loads the document's default scene into s. Unskinned meshes arrive
// with node transforms baked into their vertices; skinned meshes keep bind
// space and come parented to a reconstructed armature with vertex groups
// named after the joints.
func Import(s *scene.Scene, path string) error {
	doc, err := gltf.Open(path)
	if err != nil {
		return fmt.Errorf("glb: open %s: %w", path, err)
	}

	im := &importer{
		doc:       doc,
		dir:       filepath.Dir(path),
		scene:     s,
		materials: make(map[uint32]*scene.Material),
		textures:  make(map[uint32]*texture.Texture),
		armatures: make(map[uint32]*scene.Object),
	}
	im.indexParents()

	for _, ni := range rootNodes(doc) {
		if err := im.walk(ni, dmat.Ident); err != nil {
			return fmt.Errorf("glb: import %s: %w", path, err)
		}
	}
	return nil
}

type importer struct {
	doc       *gltf.Document
	dir       string
	scene     *scene.Scene
	materials map[uint32]*scene.Material
	textures  map[uint32]*texture.Texture
	armatures map[uint32]*scene.Object // keyed by skin index
	parentOf  []int
}

// rootNodes returns the default scene's roots, falling back to all nodes that
// no other node claims as a child.
func rootNodes(doc *gltf.Document) []uint32 {
	if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
		return doc.Scenes[*doc.Scene].Nodes
	}
	if len(doc.Scenes) > 0 {
		return doc.Scenes[0].Nodes
	}
	child := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if int(c) < len(child) {
				child[c] = true
			}
		}
	}
	var roots []uint32
	for i := range doc.Nodes {
		if !child[i] {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

func (im *importer) indexParents() {
	im.parentOf = make([]int, len(im.doc.Nodes))
	for i := range im.parentOf {
		im.parentOf[i] = -1
	}
	for i, n := range im.doc.Nodes {
		for _, c := range n.Children {
			if int(c) < len(im.parentOf) {
				im.parentOf[c] = i
			}
		}
	}
}

var identity16 = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// nodeMatrix composes the node's local transform, preferring the matrix form
// when one is present.
func nodeMatrix(n *gltf.Node) dmat.T {
	if n.Matrix != identity16 && n.Matrix != ([16]float64{}) {
		var m dmat.T
		for c := 0; c < 4; c++ {
			for r := 0; r < 4; r++ {
				m[c][r] = n.Matrix[c*4+r]
			}
		}
		return m
	}
	q := mathutil.Quat(n.Rotation).OrIdentity()
	sc := dvec3.T(n.Scale)
	if sc == (dvec3.T{}) {
		sc = dvec3.T{1, 1, 1}
	}
	return mathutil.Compose(dvec3.T(n.Translation), q, sc)
}

func (im *importer) walk(ni uint32, parent dmat.T) error {
	if int(ni) >= len(im.doc.Nodes) {
		return fmt.Errorf("node %d out of range", ni)
	}
	n := im.doc.Nodes[ni]
	local := nodeMatrix(n)
	var world dmat.T
	world.AssignMul(&parent, &local)

	if n.Mesh != nil {
		if err := im.addMeshNode(n, world); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := im.walk(c, world); err != nil {
			return err
		}
	}
	return nil
}

func (im *importer) addMeshNode(n *gltf.Node, world dmat.T) error {
	if int(*n.Mesh) >= len(im.doc.Meshes) {
		return fmt.Errorf("mesh %d out of range", *n.Mesh)
	}
	gm := im.doc.Meshes[*n.Mesh]

	name := n.Name
	if name == "" {
		name = gm.Name
	}
	if name == "" {
		name = "Mesh"
	}

	m := &scene.Mesh{Name: name}
	var joints [][4]uint16
	var weights [][4]float32
	slotOf := make(map[*scene.Material]uint32)

	for pi, prim := range gm.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			fmt.Fprintf(os.Stderr, "warning: %s: primitive %d is not triangles, skipped\n", name, pi)
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			return fmt.Errorf("mesh %q primitive %d has no positions", name, pi)
		}
		pos, err := im.readVec3(posIdx)
		if err != nil {
			return fmt.Errorf("mesh %q positions: %w", name, err)
		}
		base := uint32(len(m.Vertices))
		m.Vertices = append(m.Vertices, pos...)

		if ni, ok := prim.Attributes[gltf.NORMAL]; ok {
			norm, err := im.readVec3(ni)
			if err != nil {
				return fmt.Errorf("mesh %q normals: %w", name, err)
			}
			m.Normals = append(m.Normals, norm...)
		}
		if ti, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			uv, err := im.readVec2(ti)
			if err != nil {
				return fmt.Errorf("mesh %q texcoords: %w", name, err)
			}
			for i := range uv {
				uv[i][1] = 1 - uv[i][1]
			}
			m.UVs = append(m.UVs, uv...)
		}
		if ji, ok := prim.Attributes[gltf.JOINTS_0]; ok {
			j, err := im.readJoints(ji)
			if err != nil {
				return fmt.Errorf("mesh %q joints: %w", name, err)
			}
			joints = append(joints, j...)
		}
		if wi, ok := prim.Attributes[gltf.WEIGHTS_0]; ok {
			w, err := im.readWeights(wi)
			if err != nil {
				return fmt.Errorf("mesh %q weights: %w", name, err)
			}
			weights = append(weights, w...)
		}

		var slot uint32
		if prim.Material != nil {
			mat, err := im.materialFor(*prim.Material)
			if err != nil {
				return fmt.Errorf("mesh %q material: %w", name, err)
			}
			si, ok := slotOf[mat]
			if !ok {
				si = uint32(len(m.Materials))
				m.Materials = append(m.Materials, mat)
				slotOf[mat] = si
			}
			slot = si
		}

		var indices []uint32
		if prim.Indices != nil {
			indices, err = im.readIndices(*prim.Indices)
			if err != nil {
				return fmt.Errorf("mesh %q indices: %w", name, err)
			}
		} else {
			indices = make([]uint32, len(pos))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}
		for i := 0; i+2 < len(indices); i += 3 {
			m.Faces = append(m.Faces, scene.Face{
				V:   [3]uint32{base + indices[i], base + indices[i+1], base + indices[i+2]},
				Mat: slot,
			})
		}
	}

	// Attribute slices must cover every vertex or none.
	if len(m.Normals) > 0 && len(m.Normals) != len(m.Vertices) {
		m.Normals = nil
	}
	if len(m.UVs) > 0 && len(m.UVs) != len(m.Vertices) {
		m.UVs = nil
	}

	o := scene.NewMeshObject(name, m)

	if n.Skin != nil {
		arm, err := im.armatureForSkin(*n.Skin)
		if err != nil {
			return err
		}
		o.Parent = arm
		o.DeformBind = true
		if len(joints) == len(m.Vertices) && len(weights) == len(m.Vertices) {
			im.bindGroups(m, arm.Armature, joints, weights)
		}
	} else if world != dmat.Ident {
		for i := range m.Vertices {
			m.Vertices[i] = mathutil.TransformPoint(&world, m.Vertices[i])
		}
		if len(m.Normals) > 0 {
			for i := range m.Normals {
				nrm := mathutil.TransformDir(&world, m.Normals[i])
				if nrm.LengthSqr() > 0 {
					nrm.Normalize()
				}
				m.Normals[i] = nrm
			}
		}
	}

	im.scene.Add(o)
	return nil
}

func (im *importer) bindGroups(m *scene.Mesh, arm *scene.Armature, joints [][4]uint16, weights [][4]float32) {
	for vi := range joints {
		for k := 0; k < 4; k++ {
			w := weights[vi][k]
			if w <= 0 {
				continue
			}
			bi := int(joints[vi][k])
			if bi >= len(arm.Bones) {
				continue
			}
			g := m.EnsureGroup(arm.Bones[bi].Name)
			g.Weights[uint32(vi)] = w
		}
	}
}

// armatureForSkin reconstructs an armature object from a skin's joint nodes.
// Bones keep the skin's joint order so binds resolve by position.
func (im *importer) armatureForSkin(si uint32) (*scene.Object, error) {
	if o, ok := im.armatures[si]; ok {
		return o, nil
	}
	if int(si) >= len(im.doc.Skins) {
		return nil, fmt.Errorf("skin %d out of range", si)
	}
	skin := im.doc.Skins[si]

	boneOf := make(map[int]int, len(skin.Joints))
	for bi, ni := range skin.Joints {
		boneOf[int(ni)] = bi
	}

	arm := &scene.Armature{Name: skin.Name}
	var carrier int = -1
	for bi, ni := range skin.Joints {
		if int(ni) >= len(im.doc.Nodes) {
			return nil, fmt.Errorf("skin %d joint %d out of range", si, bi)
		}
		n := im.doc.Nodes[ni]
		local := nodeMatrix(n)

		bone := scene.Bone{
			Name:        n.Name,
			Parent:      -1,
			Translation: dvec3.T{local[3][0], local[3][1], local[3][2]},
			Rotation:    mathutil.QuatFromMat(&local),
		}
		if bone.Name == "" {
			bone.Name = fmt.Sprintf("Bone_%d", bi)
		}
		if p := im.parentOf[ni]; p >= 0 {
			if pb, ok := boneOf[p]; ok {
				bone.Parent = pb
			} else if carrier < 0 {
				carrier = p
			}
		}
		arm.Bones = append(arm.Bones, bone)
	}

	name := skin.Name
	o := scene.NewArmatureObject(name, arm)
	if carrier >= 0 {
		cn := im.doc.Nodes[carrier]
		if cn.Name != "" {
			o.Name = cn.Name
		}
		local := nodeMatrix(cn)
		o.Translation = dvec3.T{local[3][0], local[3][1], local[3][2]}
		o.Rotation = mathutil.QuatFromMat(&local)
	}
	if o.Name == "" {
		o.Name = "Armature"
	}
	if arm.Name == "" {
		arm.Name = o.Name
	}

	added := im.scene.Add(o)
	im.armatures[si] = added
	return added, nil
}

func (im *importer) materialFor(mi uint32) (*scene.Material, error) {
	if m, ok := im.materials[mi]; ok {
		return m, nil
	}
	if int(mi) >= len(im.doc.Materials) {
		return nil, fmt.Errorf("material %d out of range", mi)
	}
	gm := im.doc.Materials[mi]

	mat := scene.NewMaterial(gm.Name)
	// Container defaults differ from authoring defaults.
	mat.Metallic = 1
	mat.Roughness = 1
	mat.DoubleSided = gm.DoubleSided
	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			mat.BaseColor = [4]float64{
				pbr.BaseColorFactor[0],
				pbr.BaseColorFactor[1],
				pbr.BaseColorFactor[2],
				pbr.BaseColorFactor[3],
			}
		}
		if pbr.MetallicFactor != nil {
			mat.Metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			mat.Roughness = *pbr.RoughnessFactor
		}
		if pbr.BaseColorTexture != nil {
			tex, err := im.textureFor(pbr.BaseColorTexture.Index)
			if err != nil {
				return nil, err
			}
			mat.Texture = tex
		}
	}

	im.materials[mi] = mat
	return mat, nil
}

func (im *importer) textureFor(ti uint32) (*texture.Texture, error) {
	if t, ok := im.textures[ti]; ok {
		return t, nil
	}
	if int(ti) >= len(im.doc.Textures) {
		return nil, fmt.Errorf("texture %d out of range", ti)
	}
	gt := im.doc.Textures[ti]
	if gt.Source == nil || int(*gt.Source) >= len(im.doc.Images) {
		return nil, nil
	}
	img := im.doc.Images[*gt.Source]

	name := img.Name
	if name == "" {
		name = fmt.Sprintf("texture_%d", ti)
	}

	var data []byte
	switch {
	case img.BufferView != nil:
		view := im.doc.BufferViews[*img.BufferView]
		raw, err := im.viewBytes(view)
		if err != nil {
			return nil, fmt.Errorf("image %q: %w", name, err)
		}
		data = raw
	case strings.HasPrefix(img.URI, "data:"):
		comma := strings.IndexByte(img.URI, ',')
		if comma < 0 {
			return nil, fmt.Errorf("image %q: malformed data URI", name)
		}
		raw, err := base64.StdEncoding.DecodeString(img.URI[comma+1:])
		if err != nil {
			return nil, fmt.Errorf("image %q: %w", name, err)
		}
		data = raw
	case img.URI != "":
		raw, err := os.ReadFile(filepath.Join(im.dir, filepath.FromSlash(img.URI)))
		if err != nil {
			return nil, fmt.Errorf("image %q: %w", name, err)
		}
		data = raw
	default:
		return nil, nil
	}

	tex, err := texture.Decode(name, data)
	if err != nil {
		return nil, err
	}
	im.textures[ti] = tex
	return tex, nil
}

func (im *importer) viewBytes(view *gltf.BufferView) ([]byte, error) {
	if int(view.Buffer) >= len(im.doc.Buffers) {
		return nil, fmt.Errorf("buffer %d out of range", view.Buffer)
	}
	buf := im.doc.Buffers[view.Buffer]
	end := int(view.ByteOffset) + int(view.ByteLength)
	if end > len(buf.Data) {
		return nil, fmt.Errorf("buffer view beyond buffer end (%d > %d)", end, len(buf.Data))
	}
	return buf.Data[view.ByteOffset:end], nil
}
