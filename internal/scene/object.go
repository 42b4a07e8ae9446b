package scene

import (
	"avatarforge/internal/mathutil"

	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"
)

// Object is a named scene entry. Exactly one of Mesh or Armature is set.
type Object struct {
	Name     string
	Mesh     *Mesh
	Armature *Armature

	// Parent, when set, makes this object's transform relative to the parent.
	// ParentBone narrows that to a single bone of an armature parent.
	Parent     *Object
	ParentBone string

	// DeformBind marks an armature parent as a deform binding: exporters emit
	// this object's vertex groups as skin weights against the parent skeleton.
	DeformBind bool

	Translation dvec3.T
	Rotation    mathutil.Quat
	// Scale is the per-axis object scale. The zero value is treated as unit
	// scale so struct-literal objects behave.
	Scale dvec3.T
}

// NewMeshObject wraps mesh data in an object with unit transform.
func NewMeshObject(name string, m *Mesh) *Object {
	return &Object{
		Name:     name,
		Mesh:     m,
		Rotation: mathutil.QuatIdentity,
		Scale:    dvec3.T{1, 1, 1},
	}
}

// NewArmatureObject wraps armature data in an object with unit transform.
func NewArmatureObject(name string, a *Armature) *Object {
	return &Object{
		Name:     name,
		Armature: a,
		Rotation: mathutil.QuatIdentity,
		Scale:    dvec3.T{1, 1, 1},
	}
}

// LocalMatrix composes the object's translation, rotation and scale.
func (o *Object) LocalMatrix() dmat.T {
	s := o.Scale
	if s == (dvec3.T{}) {
		s = dvec3.T{1, 1, 1}
	}
	q := o.Rotation
	if q == (mathutil.Quat{}) {
		q = mathutil.QuatIdentity
	}
	return mathutil.Compose(o.Translation, q, s)
}

// WorldMatrix composes the local matrix with the parent chain. A bone parent
// contributes the bone's rest world matrix, matching deform-bound placement.
func (o *Object) WorldMatrix() dmat.T {
	local := o.LocalMatrix()
	if o.Parent == nil {
		return local
	}
	pw := o.Parent.WorldMatrix()
	if o.ParentBone != "" && o.Parent.Armature != nil {
		if i := o.Parent.Armature.Find(o.ParentBone); i >= 0 {
			bw := o.Parent.Armature.WorldMatrices()[i]
			var m dmat.T
			m.AssignMul(&pw, &bw)
			pw = m
		}
	}
	var w dmat.T
	w.AssignMul(&pw, &local)
	return w
}
