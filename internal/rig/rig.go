// Package rig binds accessory meshes to character skeletons: deform
// parenting, full-weight bone binds, and the inner/outer fitting cages the
// platform derives deformation from.
package rig

import (
	"fmt"

	"avatarforge/internal/scene"
)

// ParentWithDeform parents the mesh object to an armature object and marks
// the relation as a deform binding, so exporters emit the mesh's vertex
// groups as skin weights against that skeleton.
func ParentWithDeform(child, rigObj *scene.Object) error {
	if rigObj.Armature == nil {
		return fmt.Errorf("rig: parent target %q: %w", rigObj.Name, scene.ErrWrongKind)
	}
	if child.Mesh == nil {
		return fmt.Errorf("rig: deform child %q: %w", child.Name, scene.ErrWrongKind)
	}
	child.Parent = rigObj
	child.DeformBind = true
	return nil
}

// BindFullWeight assigns every vertex of the mesh to the named bone's group
// at weight 1.0, replacing any weights the group held before. Rigid
// accessories ride a single bone, so this is the entire skinning.
func BindFullWeight(m *scene.Mesh, bone string) *scene.VertexGroup {
	g := m.EnsureGroup(bone)
	idx := make([]uint32, len(m.Vertices))
	for i := range idx {
		idx[i] = uint32(i)
	}
	g.Assign(idx, 1)
	return g
}
