// Package glb reads and writes glTF 2.0 containers, the platform's accessory
// interchange format. Binary .glb and JSON .gltf share the codec; skins,
// embedded textures and extras metadata are carried both ways.
package glb

import (
	"avatarforge/internal/formats"
	"avatarforge/internal/scene"
)

func init() {
	var c Codec
	formats.RegisterImporter(".glb", c)
	formats.RegisterImporter(".gltf", c)
	formats.RegisterExporter(".glb", c)
	formats.RegisterExporter(".gltf", c)
}

// Codec implements formats.Importer and formats.Exporter for glTF files.
type Codec struct{}

// Import loads the file's meshes, materials and skins into the scene.
func (Codec) Import(s *scene.Scene, path string) error {
	return Import(s, path)
}

// Export writes the scene to a glTF container.
func (Codec) Export(s *scene.Scene, path string, opts formats.Options) error {
	return Export(s, path, opts)
}
