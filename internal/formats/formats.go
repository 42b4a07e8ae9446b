// Package formats is the extension-keyed registry of scene importers and
// exporters. Codec packages register themselves in init; callers pick a codec
// from the file path, the way image.Decode picks a decoder.
package formats

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"avatarforge/internal/scene"
)

// Importer loads a file's objects into the scene.
type Importer interface {
	Import(s *scene.Scene, path string) error
}

// Exporter writes the scene to a file. Exporters ignore options their
// container cannot express.
type Exporter interface {
	Export(s *scene.Scene, path string, opts Options) error
}

// Options is the fixed option set the pipeline and converter hand to
// exporters.
type Options struct {
	// ForwardAxis and UpAxis name the target convention ("-Z", "Y", ...).
	// Empty values keep the scene's own axes (right-handed, +Y up, -Z
	// forward).
	ForwardAxis string
	UpAxis      string

	// UnitScale multiplies all geometry on the way out; zero means 1.
	UnitScale float64

	Triangulate bool
	Normals     bool
	UVs         bool
	Materials   bool

	// CopyTextures writes referenced texture images next to the output file;
	// EmbedTextures packs them into the container when it has room for them.
	CopyTextures  bool
	EmbedTextures bool

	// Rig emits armatures and skin weights for deform-bound meshes.
	Rig bool

	// Metadata carries container-level annotations for formats with an
	// extras section.
	Metadata map[string]string
}

// Scale returns the effective unit scale.
func (o Options) Scale() float64 {
	if o.UnitScale == 0 {
		return 1
	}
	return o.UnitScale
}

var (
	importers = make(map[string]Importer)
	exporters = make(map[string]Exporter)
)

// RegisterImporter binds an extension (".glb") to an importer. Later
// registrations win, mirroring image.RegisterFormat.
func RegisterImporter(ext string, imp Importer) {
	importers[strings.ToLower(ext)] = imp
}

// RegisterExporter binds an extension to an exporter.
func RegisterExporter(ext string, exp Exporter) {
	exporters[strings.ToLower(ext)] = exp
}

// ImporterFor returns the importer for the path's extension.
func ImporterFor(path string) (Importer, error) {
	ext := strings.ToLower(filepath.Ext(path))
	imp, ok := importers[ext]
	if !ok {
		return nil, fmt.Errorf("formats: no importer for %q (have %s)", ext, strings.Join(ImporterExts(), ", "))
	}
	return imp, nil
}

// ExporterFor returns the exporter for the path's extension.
func ExporterFor(path string) (Exporter, error) {
	ext := strings.ToLower(filepath.Ext(path))
	exp, ok := exporters[ext]
	if !ok {
		return nil, fmt.Errorf("formats: no exporter for %q (have %s)", ext, strings.Join(ExporterExts(), ", "))
	}
	return exp, nil
}

// ImporterExts lists registered import extensions, sorted.
func ImporterExts() []string {
	out := make([]string, 0, len(importers))
	for k := range importers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ExporterExts lists registered export extensions, sorted.
func ExporterExts() []string {
	out := make([]string, 0, len(exporters))
	for k := range exporters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
