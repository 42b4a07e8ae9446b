package formats

import (
	"fmt"
	"strings"

	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"
	dvec4 "github.com/flywave/go3d/float64/vec4"
)

// AxisMatrix builds the change of basis from the scene's axes (+Y up, -Z
// forward, right-handed) to the named target axes. Exporters bake it into
// root transforms or vertices.
func AxisMatrix(forward, up string) (dmat.T, error) {
	if forward == "" {
		forward = "-Z"
	}
	if up == "" {
		up = "Y"
	}
	f, err := axisVector(forward)
	if err != nil {
		return dmat.Ident, fmt.Errorf("formats: forward axis: %w", err)
	}
	u, err := axisVector(up)
	if err != nil {
		return dmat.Ident, fmt.Errorf("formats: up axis: %w", err)
	}
	if parallel(f, u) {
		return dmat.Ident, fmt.Errorf("formats: axes %s/%s are parallel", forward, up)
	}
	r := dvec3.Cross(&f, &u)

	// Columns are the images of the scene's right, up and back vectors.
	m := dmat.Ident
	m[0] = dvec4.T{r[0], r[1], r[2], 0}
	m[1] = dvec4.T{u[0], u[1], u[2], 0}
	m[2] = dvec4.T{-f[0], -f[1], -f[2], 0}
	return m, nil
}

func axisVector(name string) (dvec3.T, error) {
	switch strings.ToUpper(name) {
	case "X":
		return dvec3.T{1, 0, 0}, nil
	case "-X":
		return dvec3.T{-1, 0, 0}, nil
	case "Y":
		return dvec3.T{0, 1, 0}, nil
	case "-Y":
		return dvec3.T{0, -1, 0}, nil
	case "Z":
		return dvec3.T{0, 0, 1}, nil
	case "-Z":
		return dvec3.T{0, 0, -1}, nil
	}
	return dvec3.T{}, fmt.Errorf("unknown axis %q", name)
}

func parallel(a, b dvec3.T) bool {
	c := dvec3.Cross(&a, &b)
	return c[0] == 0 && c[1] == 0 && c[2] == 0
}
