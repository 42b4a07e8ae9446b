package scene

import "errors"

var (
	// ErrNotFound reports a lookup for an object name the scene does not hold.
	ErrNotFound = errors.New("object not found")
	// ErrWrongKind reports an object that exists but carries the wrong payload,
	// e.g. an armature where a mesh is required.
	ErrWrongKind = errors.New("object kind mismatch")
)
