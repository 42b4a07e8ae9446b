package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"avatarforge/internal/batch"
	"avatarforge/internal/config"
	"avatarforge/internal/formats"
	_ "avatarforge/internal/glb"
	_ "avatarforge/internal/objfile"
	_ "avatarforge/internal/rbxmesh"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	inputDir := flag.String("in", "", "Directory holding the source files")
	outputDir := flag.String("out", "", "Directory receiving converted files")
	from := flag.String("from", "", "Source extension (default: .glb)")
	to := flag.String("to", "", "Target extension (default: .obj)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")

	flag.Parse()

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{InputDir: *inputDir, OutputDir: *outputDir, Workers: *workers})
	if *from != "" {
		cfg.SourceExt = *from
	}
	if *to != "" {
		cfg.TargetExt = *to
	}

	if cfg.InputDir == "" || cfg.OutputDir == "" {
		fmt.Fprintln(os.Stderr, "Usage: convert -in <dir> -out <dir> [-from .glb] [-to .obj]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Printf("Converting %s -> %s\n", cfg.SourceExt, cfg.TargetExt)
	fmt.Printf("Input: %s\n", cfg.InputDir)
	fmt.Printf("Output: %s, Workers: %d\n", cfg.OutputDir, cfg.Workers)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	results, err := batch.Run(batch.Config{
		InputDir:  cfg.InputDir,
		OutputDir: cfg.OutputDir,
		SourceExt: cfg.SourceExt,
		TargetExt: cfg.TargetExt,
		Options:   convertOptions(),
		Workers:   cfg.Workers,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")

	success := 0
	var failures []batch.Result
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failures = append(failures, r)
		}
	}

	fmt.Printf("Converted %d/%d files in %.1fs\n", success, len(results), elapsed.Seconds())

	if len(failures) > 0 {
		fmt.Printf("\nFailed (%d):\n", len(failures))
		limit := len(failures)
		if limit > 20 {
			limit = 20
		}
		for _, r := range failures[:limit] {
			fmt.Printf("  %s: %s\n", r.Name, r.Error)
		}
		if len(failures) > limit {
			fmt.Printf("  ... and %d more\n", len(failures)-limit)
		}
	}

	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if len(failures) > 0 {
		os.Exit(1)
	}
}

// convertOptions is the fixed export option set for conversions: triangles
// only, with normals, UVs and materials carried over and textures copied
// beside the output.
func convertOptions() formats.Options {
	return formats.Options{
		ForwardAxis:  "-Z",
		UpAxis:       "Y",
		UnitScale:    1,
		Triangulate:  true,
		Normals:      true,
		UVs:          true,
		Materials:    true,
		CopyTextures: true,
		Rig:          true,
	}
}
