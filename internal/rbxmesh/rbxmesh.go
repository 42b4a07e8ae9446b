// Package rbxmesh reads and writes the platform's render-mesh container.
// The writer emits binary version 2.00; the reader also takes version 3.00
// and the legacy ASCII 1.00/1.01 layout. A mesh file is one anonymous
// vertex/face buffer, so export flattens the scene and import yields a
// single object named after the file.
package rbxmesh

import (
	"avatarforge/internal/formats"
	"avatarforge/internal/scene"
)

func init() {
	var c Codec
	formats.RegisterImporter(".mesh", c)
	formats.RegisterExporter(".mesh", c)
}

// Codec implements formats.Importer and formats.Exporter for .mesh files.
type Codec struct{}

// Import loads the mesh file into the scene.
func (Codec) Import(s *scene.Scene, path string) error {
	return Import(s, path)
}

// Export writes the scene's meshes to a version 2.00 mesh file.
func (Codec) Export(s *scene.Scene, path string, opts formats.Options) error {
	return Export(s, path, opts)
}
