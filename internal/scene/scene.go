// Package scene holds the in-memory object graph the preparation pipeline and
// the format codecs operate on: named objects carrying mesh or armature
// payloads, object parenting, and armature deform bindings.
package scene

import (
	"fmt"
)

// Scene is an ordered registry of uniquely named objects.
type Scene struct {
	objects []*Object
	byName  map[string]*Object
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{byName: make(map[string]*Object)}
}

// Add inserts an object and returns it. A name collision gets a numeric
// suffix (Helmet, Helmet.001, Helmet.002, ...) so reruns never overwrite
// earlier results.
func (s *Scene) Add(o *Object) *Object {
	o.Name = s.uniqueName(o.Name)
	s.objects = append(s.objects, o)
	s.byName[o.Name] = o
	return o
}

// Remove detaches the named object. Objects parented to it keep their Parent
// pointer; the caller is responsible for re-parenting when that matters.
func (s *Scene) Remove(name string) {
	o, ok := s.byName[name]
	if !ok {
		return
	}
	delete(s.byName, name)
	for i, obj := range s.objects {
		if obj == o {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			break
		}
	}
}

// Object returns the named object or ErrNotFound.
func (s *Scene) Object(name string) (*Object, error) {
	o, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("scene: %q: %w", name, ErrNotFound)
	}
	return o, nil
}

// Mesh returns the named object if it carries mesh data.
func (s *Scene) Mesh(name string) (*Object, error) {
	o, err := s.Object(name)
	if err != nil {
		return nil, err
	}
	if o.Mesh == nil {
		return nil, fmt.Errorf("scene: %q is not a mesh: %w", name, ErrWrongKind)
	}
	return o, nil
}

// Armature returns the named object if it carries armature data.
func (s *Scene) Armature(name string) (*Object, error) {
	o, err := s.Object(name)
	if err != nil {
		return nil, err
	}
	if o.Armature == nil {
		return nil, fmt.Errorf("scene: %q is not an armature: %w", name, ErrWrongKind)
	}
	return o, nil
}

// Objects returns the objects in insertion order. The slice is shared; do not
// reorder it.
func (s *Scene) Objects() []*Object {
	return s.objects
}

// Meshes returns the mesh objects in insertion order.
func (s *Scene) Meshes() []*Object {
	var out []*Object
	for _, o := range s.objects {
		if o.Mesh != nil {
			out = append(out, o)
		}
	}
	return out
}

// Armatures returns the armature objects in insertion order.
func (s *Scene) Armatures() []*Object {
	var out []*Object
	for _, o := range s.objects {
		if o.Armature != nil {
			out = append(out, o)
		}
	}
	return out
}

// FindMaterial returns the first material with the given name, searching mesh
// slots in scene order, or nil. Materials have no registry of their own; they
// live in slots and are shared by pointer.
func (s *Scene) FindMaterial(name string) *Material {
	for _, o := range s.objects {
		if o.Mesh == nil {
			continue
		}
		for _, m := range o.Mesh.Materials {
			if m != nil && m.Name == name {
				return m
			}
		}
	}
	return nil
}

// Len reports the number of objects.
func (s *Scene) Len() int {
	return len(s.objects)
}

// Clear removes every object, leaving an empty scene for the next import.
func (s *Scene) Clear() {
	s.objects = nil
	s.byName = make(map[string]*Object)
}

func (s *Scene) uniqueName(base string) string {
	if base == "" {
		base = "Object"
	}
	if _, taken := s.byName[base]; !taken {
		return base
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s.%03d", base, i)
		if _, taken := s.byName[name]; !taken {
			return name
		}
	}
}
