package objfile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"

	"avatarforge/internal/scene"
)

// Import reads an OBJ file into the scene. Corners sharing the same
// position, texture and normal indices weld into one vertex; polygons fan
// into triangles.
func Import(s *scene.Scene, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("obj: open %s: %w", path, err)
	}
	defer f.Close()

	p := &parser{
		scene: s,
		dir:   filepath.Dir(path),
		base:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		mats:  make(map[string]*scene.Material),
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if err := p.handle(sc.Text()); err != nil {
			return fmt.Errorf("obj: %s:%d: %w", filepath.Base(path), line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("obj: read %s: %w", path, err)
	}
	p.flush()
	return nil
}

type parser struct {
	scene *scene.Scene
	dir   string
	base  string

	// Index spaces are file-global in OBJ.
	positions []vec3.T
	uvs       []vec2.T
	normals   []vec3.T

	mats map[string]*scene.Material
	mat  *scene.Material

	cur *object
}

// object accumulates one mesh while its lines stream past.
type object struct {
	name    string
	mesh    *scene.Mesh
	corners map[corner]uint32
	slots   map[*scene.Material]uint32
	uvSet   int
	nSet    int
}

// corner is a resolved f-line corner; missing parts are -1.
type corner struct{ v, vt, vn int }

func (p *parser) handle(text string) error {
	text = strings.TrimSpace(text)
	fields := strings.Fields(text)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}
	rest := strings.TrimSpace(text[len(fields[0]):])

	switch fields[0] {
	case "v":
		v, err := parseVec3(fields[1:])
		if err != nil {
			return fmt.Errorf("vertex: %w", err)
		}
		p.positions = append(p.positions, v)
	case "vt":
		if len(fields) < 3 {
			return fmt.Errorf("texture coordinate: need two values")
		}
		u, err := parseF32(fields[1])
		if err != nil {
			return fmt.Errorf("texture coordinate: %w", err)
		}
		v, err := parseF32(fields[2])
		if err != nil {
			return fmt.Errorf("texture coordinate: %w", err)
		}
		p.uvs = append(p.uvs, vec2.T{u, v})
	case "vn":
		n, err := parseVec3(fields[1:])
		if err != nil {
			return fmt.Errorf("normal: %w", err)
		}
		p.normals = append(p.normals, n)
	case "f":
		return p.face(fields[1:])
	case "o", "g":
		p.open(rest)
	case "usemtl":
		p.useMaterial(rest)
	case "mtllib":
		if rest != "" {
			p.loadMTL(rest)
		}
	}
	return nil
}

func (p *parser) face(specs []string) error {
	if len(specs) < 3 {
		return fmt.Errorf("face: need at least three corners")
	}
	o := p.current()
	idx := make([]uint32, len(specs))
	for i, spec := range specs {
		c, err := p.resolveCorner(spec)
		if err != nil {
			return err
		}
		idx[i] = o.weld(p, c)
	}
	slot := o.slotFor(p.mat)
	for i := 1; i+1 < len(idx); i++ {
		o.mesh.Faces = append(o.mesh.Faces, scene.Face{
			V:   [3]uint32{idx[0], idx[i], idx[i+1]},
			Mat: slot,
		})
	}
	return nil
}

func (p *parser) resolveCorner(spec string) (corner, error) {
	c := corner{vt: -1, vn: -1}
	parts := strings.Split(spec, "/")
	if len(parts) > 3 {
		return c, fmt.Errorf("face: corner %q has too many parts", spec)
	}
	var err error
	if c.v, err = resolveIndex(parts[0], len(p.positions)); err != nil {
		return c, fmt.Errorf("face: corner %q: %w", spec, err)
	}
	if len(parts) > 1 && parts[1] != "" {
		if c.vt, err = resolveIndex(parts[1], len(p.uvs)); err != nil {
			return c, fmt.Errorf("face: corner %q: %w", spec, err)
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if c.vn, err = resolveIndex(parts[2], len(p.normals)); err != nil {
			return c, fmt.Errorf("face: corner %q: %w", spec, err)
		}
	}
	return c, nil
}

// resolveIndex turns a 1-based or negative-relative OBJ index into a slice
// index against a list of n elements.
func resolveIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return -1, fmt.Errorf("bad index %q", s)
	}
	switch {
	case i > 0:
		i--
	case i < 0:
		i += n
	default:
		return -1, fmt.Errorf("index zero")
	}
	if i < 0 || i >= n {
		return -1, fmt.Errorf("index %s out of range", s)
	}
	return i, nil
}

func (o *object) weld(p *parser, c corner) uint32 {
	if vi, ok := o.corners[c]; ok {
		return vi
	}
	vi := uint32(len(o.mesh.Vertices))
	o.mesh.Vertices = append(o.mesh.Vertices, p.positions[c.v])
	var uv vec2.T
	if c.vt >= 0 {
		uv = p.uvs[c.vt]
		o.uvSet++
	}
	o.mesh.UVs = append(o.mesh.UVs, uv)
	var n vec3.T
	if c.vn >= 0 {
		n = p.normals[c.vn]
		o.nSet++
	}
	o.mesh.Normals = append(o.mesh.Normals, n)
	o.corners[c] = vi
	return vi
}

// slotFor returns the mesh material slot for mat, appending it on first use.
// Faces before any usemtl land in slot 0 with no material bound.
func (o *object) slotFor(mat *scene.Material) uint32 {
	if mat == nil {
		return 0
	}
	if slot, ok := o.slots[mat]; ok {
		return slot
	}
	slot := uint32(len(o.mesh.Materials))
	o.mesh.Materials = append(o.mesh.Materials, mat)
	o.slots[mat] = slot
	return slot
}

func (p *parser) current() *object {
	if p.cur == nil {
		p.open(p.base)
	}
	return p.cur
}

func (p *parser) open(name string) {
	p.flush()
	if name == "" {
		name = p.base
	}
	p.cur = &object{
		name:    name,
		mesh:    &scene.Mesh{Name: name},
		corners: make(map[corner]uint32),
		slots:   make(map[*scene.Material]uint32),
	}
}

// flush adds the open object to the scene when it holds geometry. Attribute
// slices that no corner ever filled are dropped whole.
func (p *parser) flush() {
	o := p.cur
	p.cur = nil
	if o == nil || len(o.mesh.Vertices) == 0 {
		return
	}
	if o.uvSet == 0 {
		o.mesh.UVs = nil
	}
	if o.nSet == 0 {
		o.mesh.Normals = nil
	}
	p.scene.Add(scene.NewMeshObject(o.name, o.mesh))
}

func (p *parser) useMaterial(name string) {
	if m, ok := p.mats[name]; ok {
		p.mat = m
		return
	}
	m := scene.NewMaterial(name)
	p.mats[name] = m
	p.mat = m
}

func (p *parser) loadMTL(name string) {
	mats, err := readMTL(filepath.Join(p.dir, filepath.FromSlash(name)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: mtllib %s: %v\n", name, err)
		return
	}
	for n, m := range mats {
		p.mats[n] = m
	}
}

func parseVec3(fields []string) (vec3.T, error) {
	var v vec3.T
	if len(fields) < 3 {
		return v, fmt.Errorf("need three values")
	}
	for i := 0; i < 3; i++ {
		f, err := parseF32(fields[i])
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

func parseF32(s string) (float32, error) {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return float32(f), nil
}
