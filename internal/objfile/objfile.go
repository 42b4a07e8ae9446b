// Package objfile reads and writes Wavefront OBJ files with their MTL
// material libraries. Geometry is baked to world space on the way out; OBJ
// carries no rig, so armatures and vertex groups stay behind.
package objfile

import (
	"avatarforge/internal/formats"
	"avatarforge/internal/scene"
)

func init() {
	var c Codec
	formats.RegisterImporter(".obj", c)
	formats.RegisterExporter(".obj", c)
}

// Codec implements formats.Importer and formats.Exporter for OBJ files.
type Codec struct{}

// Import loads the file's objects and materials into the scene.
func (Codec) Import(s *scene.Scene, path string) error {
	return Import(s, path)
}

// Export writes the scene's meshes to an OBJ file.
func (Codec) Export(s *scene.Scene, path string, opts formats.Options) error {
	return Export(s, path, opts)
}
