package mathutil

import (
	"math"

	"github.com/flywave/go3d/vec3"

	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"
	dvec4 "github.com/flywave/go3d/float64/vec4"
)

// Compose builds a column-major affine matrix from translation, rotation and
// per-axis scale, in T·R·S order.
func Compose(t dvec3.T, q Quat, s dvec3.T) dmat.T {
	r := q.mat3()
	var m dmat.T
	for c := 0; c < 3; c++ {
		m[c] = dvec4.T{r[0*3+c] * s[c], r[1*3+c] * s[c], r[2*3+c] * s[c], 0}
	}
	m[3] = dvec4.T{t[0], t[1], t[2], 1}
	return m
}

// InvertRigid inverts a rotation+translation matrix without a general 4×4
// inverse. The input must not carry scale or shear.
func InvertRigid(m dmat.T) dmat.T {
	inv := dmat.Ident
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			inv[c][r] = m[r][c]
		}
	}
	tx, ty, tz := m[3][0], m[3][1], m[3][2]
	inv[3] = dvec4.T{
		-(m[0][0]*tx + m[0][1]*ty + m[0][2]*tz),
		-(m[1][0]*tx + m[1][1]*ty + m[1][2]*tz),
		-(m[2][0]*tx + m[2][1]*ty + m[2][2]*tz),
		1,
	}
	return inv
}

// RotX returns a rotation around the X axis. Angle in radians.
func RotX(a float64) dmat.T {
	c, s := math.Cos(a), math.Sin(a)
	m := dmat.Ident
	m[1] = dvec4.T{0, c, s, 0}
	m[2] = dvec4.T{0, -s, c, 0}
	return m
}

// RotY returns a rotation around the Y axis.
func RotY(a float64) dmat.T {
	c, s := math.Cos(a), math.Sin(a)
	m := dmat.Ident
	m[0] = dvec4.T{c, 0, -s, 0}
	m[2] = dvec4.T{s, 0, c, 0}
	return m
}

// RotZ returns a rotation around the Z axis.
func RotZ(a float64) dmat.T {
	c, s := math.Cos(a), math.Sin(a)
	m := dmat.Ident
	m[0] = dvec4.T{c, s, 0, 0}
	m[1] = dvec4.T{-s, c, 0, 0}
	return m
}

// Deg2Rad converts degrees to radians.
func Deg2Rad(d float64) float64 {
	return d * math.Pi / 180
}

// QuatFromMat extracts the rotation of a rigid column-major matrix by
// Shepperd's method. Scale and shear must have been removed beforehand.
func QuatFromMat(m *dmat.T) Quat {
	r00, r01, r02 := m[0][0], m[1][0], m[2][0]
	r10, r11, r12 := m[0][1], m[1][1], m[2][1]
	r20, r21, r22 := m[0][2], m[1][2], m[2][2]

	var q Quat
	trace := r00 + r11 + r22
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1) * 2
		q[3] = s / 4
		q[0] = (r21 - r12) / s
		q[1] = (r02 - r20) / s
		q[2] = (r10 - r01) / s
	case r00 > r11 && r00 > r22:
		s := math.Sqrt(1+r00-r11-r22) * 2
		q[3] = (r21 - r12) / s
		q[0] = s / 4
		q[1] = (r01 + r10) / s
		q[2] = (r02 + r20) / s
	case r11 > r22:
		s := math.Sqrt(1+r11-r00-r22) * 2
		q[3] = (r02 - r20) / s
		q[0] = (r01 + r10) / s
		q[1] = s / 4
		q[2] = (r12 + r21) / s
	default:
		s := math.Sqrt(1+r22-r00-r11) * 2
		q[3] = (r10 - r01) / s
		q[0] = (r02 + r20) / s
		q[1] = (r12 + r21) / s
		q[2] = s / 4
	}
	return q
}

// TransformPoint applies an affine matrix to a float32 point (w=1).
func TransformPoint(m *dmat.T, v vec3.T) vec3.T {
	p := dvec3.T{float64(v[0]), float64(v[1]), float64(v[2])}
	p = m.MulVec3(&p)
	return vec3.T{float32(p[0]), float32(p[1]), float32(p[2])}
}

// TransformDir applies only the rotation/scale part of an affine matrix (w=0).
func TransformDir(m *dmat.T, v vec3.T) vec3.T {
	x, y, z := float64(v[0]), float64(v[1]), float64(v[2])
	return vec3.T{
		float32(m[0][0]*x + m[1][0]*y + m[2][0]*z),
		float32(m[0][1]*x + m[1][1]*y + m[2][1]*z),
		float32(m[0][2]*x + m[1][2]*y + m[2][2]*z),
	}
}
