package rig

import (
	"fmt"

	"avatarforge/internal/meshops"
	"avatarforge/internal/scene"
)

// Cage scale factors relative to the prepared accessory.
const (
	InnerCageScale = 0.98
	OuterCageScale = 1.02
)

// Cage object names. Reruns on the same scene get numeric suffixes instead of
// overwriting earlier cages.
const (
	InnerCageName = "InnerCage"
	OuterCageName = "OuterCage"
)

// BuildCages duplicates the accessory into the inner and outer fitting cages,
// scaled about the mesh's median point by the fixed cage factors. The
// duplicates inherit parenting, deform binding and vertex groups; materials
// are shared.
func BuildCages(s *scene.Scene, src *scene.Object) (inner, outer *scene.Object, err error) {
	if src.Mesh == nil {
		return nil, nil, fmt.Errorf("rig: cage source %q: %w", src.Name, scene.ErrWrongKind)
	}
	center := meshops.Centroid(src.Mesh)

	inner = duplicate(src, InnerCageName)
	meshops.ScaleUniformAbout(inner.Mesh, InnerCageScale, center)
	s.Add(inner)

	outer = duplicate(src, OuterCageName)
	meshops.ScaleUniformAbout(outer.Mesh, OuterCageScale, center)
	s.Add(outer)

	return inner, outer, nil
}

func duplicate(src *scene.Object, name string) *scene.Object {
	o := scene.NewMeshObject(name, src.Mesh.Clone())
	o.Mesh.Name = name
	o.Parent = src.Parent
	o.ParentBone = src.ParentBone
	o.DeformBind = src.DeformBind
	o.Translation = src.Translation
	o.Rotation = src.Rotation
	o.Scale = src.Scale
	return o
}
