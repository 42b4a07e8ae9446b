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
	"avatarforge/internal/preview"
	_ "avatarforge/internal/rbxmesh"
	"avatarforge/internal/scene"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	output := flag.String("out", "", "Output image path (default: <scene>.webp)")
	size := flag.Int("size", 0, "Output edge length in pixels (default: 512)")
	yaw := flag.Float64("yaw", 30, "Camera yaw in degrees")
	pitch := flag.Float64("pitch", -20, "Camera pitch in degrees")
	fov := flag.Float64("fov", 0, "Field of view in degrees (0: orthographic)")

	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: preview [options] <file>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	path := flag.Arg(0)

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
	if *size > 0 {
		cfg.PreviewSize = *size
	}

	imp, err := formats.ImporterFor(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	sc := scene.New()
	if err := imp.Import(sc, path); err != nil {
		fmt.Fprintf(os.Stderr, "Error importing %s: %v\n", path, err)
		os.Exit(1)
	}

	img := preview.Render(sc, preview.Options{
		Size:        cfg.PreviewSize,
		Supersample: cfg.Supersample,
		Yaw:         *yaw,
		Pitch:       *pitch,
		FOV:         *fov,
		TrimRatio:   cfg.TrimRatio,
	})

	out := *output
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + ".webp"
	}
	if err := preview.SaveWebP(img, out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Preview: %s (%dx%d)\n", out, img.Bounds().Dx(), img.Bounds().Dy())
}
