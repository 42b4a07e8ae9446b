// Package config loads shared tool settings from a JSON file and fills in
// defaults, with CLI flags taking priority over both.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
)

// Config holds the settings the avatarforge commands share.
type Config struct {
	// Accessory preparation
	ArmatureName string `json:"armature_name"`
	HeadBone     string `json:"head_bone"`
	UnwrapMethod string `json:"unwrap_method"`
	MaterialName string `json:"material_name"`

	// Batch conversion
	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`
	SourceExt string `json:"source_ext"`
	TargetExt string `json:"target_ext"`
	Workers   int    `json:"workers"`

	// Preview rendering
	PreviewSize int     `json:"preview_size"`
	Supersample int     `json:"supersample"`
	TrimRatio   float64 `json:"trim_ratio"`
}

// Load reads a JSON config file. Fields not set in the file keep their zero
// values until Resolve fills them.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags carries command-line values that win over the file.
type Flags struct {
	InputDir  string
	OutputDir string
	Workers   int
}

// Resolve fills empty fields with defaults. CLI flags take priority when
// non-zero or non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.InputDir != "" {
		c.InputDir = flags.InputDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}

	if c.ArmatureName == "" {
		c.ArmatureName = "Armature"
	}
	if c.HeadBone == "" {
		c.HeadBone = "Head"
	}
	if c.SourceExt == "" {
		c.SourceExt = ".glb"
	}
	if c.TargetExt == "" {
		c.TargetExt = ".obj"
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.PreviewSize <= 0 {
		c.PreviewSize = 512
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.TrimRatio <= 0 {
		c.TrimRatio = 0.02
	}
}
