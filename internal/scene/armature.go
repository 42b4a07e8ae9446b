package scene

import (
	"avatarforge/internal/mathutil"

	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"
)

// Bone is one joint of an armature in rest pose. Translation and Rotation are
// relative to the parent bone; Parent is -1 for roots.
type Bone struct {
	Name        string
	Parent      int
	Translation dvec3.T
	Rotation    mathutil.Quat
}

// Armature is a bone hierarchy. Bones may appear in any order as long as the
// parent links form a tree.
type Armature struct {
	Name  string
	Bones []Bone
}

// Find returns the index of the named bone, or -1.
func (a *Armature) Find(name string) int {
	for i := range a.Bones {
		if a.Bones[i].Name == name {
			return i
		}
	}
	return -1
}

// WorldMatrices composes each bone's rest transform with its parent chain,
// indexed like Bones.
func (a *Armature) WorldMatrices() []dmat.T {
	out := make([]dmat.T, len(a.Bones))
	done := make([]bool, len(a.Bones))

	var build func(i int) dmat.T
	build = func(i int) dmat.T {
		if done[i] {
			return out[i]
		}
		done[i] = true // set before recursing so a malformed cycle terminates
		b := a.Bones[i]
		local := mathutil.Compose(b.Translation, b.Rotation, dvec3.T{1, 1, 1})
		if b.Parent >= 0 && b.Parent < len(a.Bones) && b.Parent != i {
			p := build(b.Parent)
			var w dmat.T
			w.AssignMul(&p, &local)
			out[i] = w
		} else {
			out[i] = local
		}
		return out[i]
	}
	for i := range a.Bones {
		build(i)
	}
	return out
}
