package objfile

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"avatarforge/internal/formats"
	"avatarforge/internal/scene"
	"avatarforge/internal/texture"
)

// mtlData renders the material library, copying referenced textures next to
// the output when the options ask for it.
func mtlData(mats []*scene.Material, names map[*scene.Material]string, dir string, opts formats.Options) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# avatarforge MTL\n")
	for _, mat := range mats {
		fmt.Fprintf(&buf, "\nnewmtl %s\n", names[mat])
		fmt.Fprintf(&buf, "Kd %.6f %.6f %.6f\n", mat.BaseColor[0], mat.BaseColor[1], mat.BaseColor[2])
		if mat.BaseColor[3] < 1 {
			fmt.Fprintf(&buf, "d %.6f\n", mat.BaseColor[3])
		}
		buf.WriteString("illum 2\n")
		if tex := mat.Texture; tex != nil && opts.CopyTextures && len(tex.Data) > 0 {
			name := textureFileName(tex)
			if err := os.WriteFile(filepath.Join(dir, name), tex.Data, 0o644); err != nil {
				return nil, fmt.Errorf("obj: copy texture %s: %w", name, err)
			}
			fmt.Fprintf(&buf, "map_Kd %s\n", name)
		}
	}
	return buf.Bytes(), nil
}

// textureFileName keeps the texture's own file name when it already carries
// an image extension, otherwise derives one from the MIME type.
func textureFileName(tex *texture.Texture) string {
	name := filepath.Base(strings.ReplaceAll(tex.Name, " ", "_"))
	if name == "." || name == "" {
		name = "texture"
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".webp", ".tga":
		return name
	}
	switch tex.MimeType {
	case "image/jpeg":
		return name + ".jpg"
	case "image/webp":
		return name + ".webp"
	case "image/x-tga":
		return name + ".tga"
	}
	return name + ".png"
}

// readMTL parses the subset the exporter writes plus the common diffuse
// fields. A texture reference that fails to load degrades to a warning.
func readMTL(path string) (map[string]*scene.Material, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mats := make(map[string]*scene.Material)
	var cur *scene.Material
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "newmtl":
			name := strings.TrimSpace(strings.TrimPrefix(line, "newmtl"))
			cur = scene.NewMaterial(name)
			mats[name] = cur
		case "Kd":
			if cur != nil && len(fields) >= 4 {
				if r, g, b, ok := parse3(fields[1:4]); ok {
					cur.BaseColor[0], cur.BaseColor[1], cur.BaseColor[2] = r, g, b
				}
			}
		case "d":
			if cur != nil && len(fields) >= 2 {
				if a, err := strconv.ParseFloat(fields[1], 64); err == nil {
					cur.BaseColor[3] = a
				}
			}
		case "map_Kd":
			if cur == nil || len(fields) < 2 {
				continue
			}
			// Options like -s precede the file name; the name comes last.
			file := fields[len(fields)-1]
			tex, err := texture.Load(filepath.Join(filepath.Dir(path), filepath.FromSlash(file)))
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: %s: texture %s: %v\n", filepath.Base(path), file, err)
				continue
			}
			cur.Texture = tex
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return mats, nil
}

func parse3(fields []string) (r, g, b float64, ok bool) {
	var err error
	if r, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return 0, 0, 0, false
	}
	if g, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return 0, 0, 0, false
	}
	if b, err = strconv.ParseFloat(fields[2], 64); err != nil {
		return 0, 0, 0, false
	}
	return r, g, b, true
}
