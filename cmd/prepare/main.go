package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"avatarforge/internal/config"
	"avatarforge/internal/formats"
	_ "avatarforge/internal/glb"
	_ "avatarforge/internal/objfile"
	"avatarforge/internal/pipeline"
	"avatarforge/internal/preview"
	_ "avatarforge/internal/rbxmesh"
	"avatarforge/internal/rig"
	"avatarforge/internal/scene"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	scenePath := flag.String("scene", "", "Input scene file (.glb, .obj, .mesh)")
	object := flag.String("object", "", "Mesh object to prepare")
	armature := flag.String("armature", "", "Skeleton to bind against (default: config, scene, or reference R6)")
	bone := flag.String("bone", "", "Bone receiving the full-weight bind (default: Head)")
	accessoryType := flag.String("type", "Hat", "Accessory type recorded in the export")
	attachment := flag.String("attachment", "HatAttachment", "Attachment point recorded in the export")
	applyScale := flag.Bool("apply-scale", true, "Bake object scale into vertices")
	decimate := flag.Float64("decimate", -1, "Keep this fraction of faces, 0..1 (negative: skip)")
	unwrap := flag.String("unwrap", "", "UV unwrap method: smart_project or basic")
	texturePath := flag.String("texture", "", "Texture image to apply")
	material := flag.String("material", "", "Material name carrying the texture")
	output := flag.String("out", "", "Export file or directory (default: next to the scene file)")
	withPreview := flag.Bool("preview", false, "Render a WebP thumbnail beside the export")

	flag.Parse()

	if *scenePath == "" || *object == "" {
		fmt.Fprintln(os.Stderr, "Usage: prepare -scene <file> -object <name> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{})

	imp, err := formats.ImporterFor(*scenePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	sc := scene.New()
	if err := imp.Import(sc, *scenePath); err != nil {
		fmt.Fprintf(os.Stderr, "Error importing %s: %v\n", *scenePath, err)
		os.Exit(1)
	}

	armName, err := resolveArmature(sc, *armature, cfg.ArmatureName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	boneName := *bone
	if boneName == "" {
		boneName = cfg.HeadBone
	}
	unwrapMethod := *unwrap
	if unwrapMethod == "" {
		unwrapMethod = cfg.UnwrapMethod
	}
	materialName := *material
	if materialName == "" {
		materialName = cfg.MaterialName
	}

	pcfg := pipeline.Config{
		ObjectName:     *object,
		ArmatureName:   armName,
		HeadBone:       boneName,
		AccessoryType:  *accessoryType,
		AttachmentName: *attachment,
		ApplyScale:     *applyScale,
		UnwrapMethod:   unwrapMethod,
		TexturePath:    *texturePath,
		MaterialName:   materialName,
		ExportPath:     *output,
		ScenePath:      *scenePath,
	}
	if *decimate >= 0 {
		pcfg.DecimateRatio = decimate
	}

	res, err := pipeline.Run(sc, pcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Prepared %s\n", *object)
	if res.FacesBefore != res.FacesAfter {
		fmt.Printf("  Faces: %d -> %d\n", res.FacesBefore, res.FacesAfter)
	} else {
		fmt.Printf("  Faces: %d\n", res.FacesAfter)
	}
	fmt.Printf("  Cages: %s, %s\n", res.InnerCage, res.OuterCage)
	fmt.Printf("  Output: %s\n", res.OutputPath)

	if *withPreview {
		if err := renderPreview(res.OutputPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: preview failed: %v\n", err)
		}
	}
}

// renderPreview re-imports the exported artifact and renders it, so the
// thumbnail shows exactly what was written.
func renderPreview(artifact string, cfg config.Config) error {
	imp, err := formats.ImporterFor(artifact)
	if err != nil {
		return err
	}
	sc := scene.New()
	if err := imp.Import(sc, artifact); err != nil {
		return err
	}
	img := preview.Render(sc, preview.Options{
		Size:        cfg.PreviewSize,
		Supersample: cfg.Supersample,
		Yaw:         30,
		Pitch:       -20,
		TrimRatio:   cfg.TrimRatio,
	})
	out := strings.TrimSuffix(artifact, filepath.Ext(artifact)) + "_preview.webp"
	if err := preview.SaveWebP(img, out); err != nil {
		return err
	}
	fmt.Printf("  Preview: %s\n", out)
	return nil
}

// resolveArmature picks the skeleton to bind against: an explicit flag wins,
// then the configured name when the scene has it, then the scene's first
// armature. A scene with no skeleton at all gets the reference rig.
func resolveArmature(sc *scene.Scene, flagName, cfgName string) (string, error) {
	if flagName != "" {
		return flagName, nil
	}
	if _, err := sc.Armature(cfgName); err == nil {
		return cfgName, nil
	}
	if arms := sc.Armatures(); len(arms) > 0 {
		return arms[0].Name, nil
	}
	ref, err := rig.ReferenceArmature("R6")
	if err != nil {
		return "", err
	}
	sc.Add(ref)
	return ref.Name, nil
}
