package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"avatarforge/internal/formats"
	"avatarforge/internal/meshops"
	"avatarforge/internal/rig"
	"avatarforge/internal/scene"
	"avatarforge/internal/texture"
)

// Run executes the preparation steps in order: validate and resolve, apply
// scale, decimate, unwrap, texture, bind to the rig, build cages, export.
// The first failing step aborts the run; mutations applied by earlier steps
// stay in the scene.
func Run(sc *scene.Scene, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	obj, err := sc.Mesh(cfg.ObjectName)
	if err != nil {
		return nil, fmt.Errorf("pipeline: object: %w", err)
	}
	arm, err := sc.Armature(cfg.ArmatureName)
	if err != nil {
		return nil, fmt.Errorf("pipeline: armature: %w", err)
	}
	if arm.Armature.Find(cfg.HeadBone) < 0 {
		return nil, fmt.Errorf("pipeline: armature %q has no bone %q: %w", arm.Name, cfg.HeadBone, scene.ErrNotFound)
	}

	if cfg.ApplyScale {
		if err := meshops.ApplyScale(obj); err != nil {
			return nil, fmt.Errorf("pipeline: apply scale: %w", err)
		}
	}

	res := &Result{FacesBefore: len(obj.Mesh.Faces)}
	if cfg.DecimateRatio != nil {
		if err := meshops.Decimate(obj.Mesh, *cfg.DecimateRatio); err != nil {
			return nil, fmt.Errorf("pipeline: decimate: %w", err)
		}
	}
	res.FacesAfter = len(obj.Mesh.Faces)

	if err := meshops.Unwrap(obj.Mesh, cfg.unwrapMethod()); err != nil {
		return nil, fmt.Errorf("pipeline: unwrap: %w", err)
	}

	if cfg.TexturePath != "" {
		if err := applyTexture(sc, obj.Mesh, cfg); err != nil {
			return nil, err
		}
	}

	if err := rig.ParentWithDeform(obj, arm); err != nil {
		return nil, err
	}
	rig.BindFullWeight(obj.Mesh, cfg.HeadBone)

	inner, outer, err := rig.BuildCages(sc, obj)
	if err != nil {
		return nil, err
	}
	res.InnerCage, res.OuterCage = inner.Name, outer.Name

	out, err := resolveOutput(cfg)
	if err != nil {
		return nil, err
	}
	if err := exportSelection(out, cfg, arm, obj, inner, outer); err != nil {
		return nil, err
	}
	res.OutputPath = out
	return res, nil
}

// applyTexture loads the image and routes it through the slot-0 material,
// reusing a same-named material anywhere in the scene before creating one.
func applyTexture(sc *scene.Scene, m *scene.Mesh, cfg Config) error {
	if _, err := os.Stat(cfg.TexturePath); err != nil {
		return fmt.Errorf("pipeline: texture: %w", err)
	}
	tex, err := texture.Load(cfg.TexturePath)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	mat := sc.FindMaterial(cfg.materialName())
	if mat == nil {
		mat = scene.NewMaterial(cfg.materialName())
	}
	mat.Texture = tex
	m.SetMaterial(mat)
	return nil
}

// resolveOutput computes the artifact path from the config and creates the
// parent directory.
func resolveOutput(cfg Config) (string, error) {
	out := cfg.ExportPath
	switch {
	case out == "":
		out = filepath.Join(filepath.Dir(cfg.ScenePath), cfg.ObjectName+PlatformExt)
	case isDir(out):
		out = filepath.Join(out, cfg.ObjectName+PlatformExt)
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("pipeline: create export dir: %w", err)
		}
	}
	return out, nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// exportSelection writes exactly the given objects, keeping any other scene
// content out of the artifact.
func exportSelection(path string, cfg Config, objs ...*scene.Object) error {
	exp, err := formats.ExporterFor(path)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	sel := scene.New()
	for _, o := range objs {
		sel.Add(o)
	}
	opts := PlatformExportOptions()
	opts.Metadata = exportMetadata(cfg)
	if err := exp.Export(sel, path, opts); err != nil {
		return fmt.Errorf("pipeline: export: %w", err)
	}
	return nil
}

func exportMetadata(cfg Config) map[string]string {
	md := make(map[string]string)
	if cfg.AccessoryType != "" {
		md["accessory_type"] = cfg.AccessoryType
	}
	if cfg.AttachmentName != "" {
		md["attachment_point"] = cfg.AttachmentName
	}
	if len(md) == 0 {
		return nil
	}
	return md
}
