package rig

import (
	"fmt"

	dvec3 "github.com/flywave/go3d/float64/vec3"

	"avatarforge/internal/scene"
)

// ReferenceArmature builds the stand-in skeleton for scenes that arrive
// without one, named after the rig type so pipeline lookups find it. Rest
// offsets are the classic six-part body in studs, torso at the origin.
func ReferenceArmature(rigType string) (*scene.Object, error) {
	if rigType != "R6" {
		return nil, fmt.Errorf("rig: unsupported rig type %q", rigType)
	}
	arm := &scene.Armature{
		Name: rigType,
		Bones: []scene.Bone{
			{Name: "Torso", Parent: -1},
			{Name: "Head", Parent: 0, Translation: dvec3.T{0, 1.5, 0}},
			{Name: "Left Arm", Parent: 0, Translation: dvec3.T{-1.5, 0, 0}},
			{Name: "Right Arm", Parent: 0, Translation: dvec3.T{1.5, 0, 0}},
			{Name: "Left Leg", Parent: 0, Translation: dvec3.T{-0.5, -2, 0}},
			{Name: "Right Leg", Parent: 0, Translation: dvec3.T{0.5, -2, 0}},
		},
	}
	return scene.NewArmatureObject(rigType, arm), nil
}
