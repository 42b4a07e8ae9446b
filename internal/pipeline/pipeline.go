// Package pipeline turns a raw mesh scene into a platform-ready accessory:
// scale apply, optional decimation, UV unwrap, texturing, rig binding, cage
// generation and export, in a fixed order.
package pipeline

import (
	"errors"
	"fmt"
	"math"

	"avatarforge/internal/formats"
	"avatarforge/internal/meshops"
)

// ErrInvalidConfig marks configuration rejected before any scene mutation.
var ErrInvalidConfig = errors.New("invalid config")

// PlatformExt is the artifact format accessories upload in.
const PlatformExt = ".glb"

// DefaultMaterialName is used when the config does not name a material.
const DefaultMaterialName = "AccessoryMaterial"

// Config selects the scene content to prepare and controls the optional
// steps. ObjectName, ArmatureName and HeadBone must name scene content.
type Config struct {
	// ObjectName is the mesh object to prepare.
	ObjectName string
	// ArmatureName is the skeleton the accessory binds to.
	ArmatureName string
	// HeadBone receives the full-weight bind.
	HeadBone string

	// AccessoryType and AttachmentName travel as export metadata.
	AccessoryType  string
	AttachmentName string

	// ApplyScale bakes the object's scale into vertices before any other
	// geometry step.
	ApplyScale bool
	// DecimateRatio, when non-nil, keeps that fraction of faces. Must lie
	// in [0, 1].
	DecimateRatio *float64
	// UnwrapMethod picks the UV projection; empty means meshops.MethodSmart.
	UnwrapMethod string

	// TexturePath, when set, is an image applied through the slot-0
	// material.
	TexturePath string
	// MaterialName names the material carrying the texture; an existing
	// material with that name is reused. Empty means DefaultMaterialName.
	MaterialName string

	// ExportPath is the artifact destination: a file path is used verbatim,
	// a directory receives <object>.glb, empty lands beside ScenePath.
	ExportPath string
	// ScenePath is where the scene was loaded from; only its directory
	// matters, and only when ExportPath is empty.
	ScenePath string
}

// Validate rejects configurations the run could not complete. Run calls it
// before touching the scene, so a config error never leaves a half-prepared
// scene behind.
func (c Config) Validate() error {
	if r := c.DecimateRatio; r != nil {
		if math.IsNaN(*r) || *r < 0 || *r > 1 {
			return fmt.Errorf("pipeline: decimate ratio %v outside [0, 1]: %w", *r, ErrInvalidConfig)
		}
	}
	switch c.unwrapMethod() {
	case meshops.MethodSmart, meshops.MethodBasic:
	default:
		return fmt.Errorf("pipeline: unknown unwrap method %q: %w", c.UnwrapMethod, ErrInvalidConfig)
	}
	return nil
}

func (c Config) unwrapMethod() string {
	if c.UnwrapMethod == "" {
		return meshops.MethodSmart
	}
	return c.UnwrapMethod
}

func (c Config) materialName() string {
	if c.MaterialName == "" {
		return DefaultMaterialName
	}
	return c.MaterialName
}

// Result reports what a run produced.
type Result struct {
	// OutputPath is where the artifact was written.
	OutputPath string
	// InnerCage and OuterCage are the created cage object names, numeric
	// suffixes included on reruns.
	InnerCage string
	OuterCage string
	// FacesBefore and FacesAfter count the object's triangles around the
	// decimate step.
	FacesBefore int
	FacesAfter  int
}

// PlatformExportOptions is the fixed option set every accessory exports
// with: real-world scale, -Z forward and +Y up, rig and skin weights,
// normals, UVs and materials with textures embedded in the artifact.
func PlatformExportOptions() formats.Options {
	return formats.Options{
		ForwardAxis:   "-Z",
		UpAxis:        "Y",
		UnitScale:     1,
		Normals:       true,
		UVs:           true,
		Materials:     true,
		EmbedTextures: true,
		Rig:           true,
	}
}
