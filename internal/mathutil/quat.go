// Package mathutil supplies the quaternion and rigid-transform helpers the
// scene and exporters need on top of go3d.
package mathutil

import "math"

// Quat is a rotation quaternion (x, y, z, w).
type Quat [4]float64

// QuatIdentity is the no-rotation quaternion.
var QuatIdentity = Quat{0, 0, 0, 1}

// EulerToQuat converts Euler XYZ angles (radians) to a quaternion.
func EulerToQuat(rx, ry, rz float64) Quat {
	cx, sx := math.Cos(rx*0.5), math.Sin(rx*0.5)
	cy, sy := math.Cos(ry*0.5), math.Sin(ry*0.5)
	cz, sz := math.Cos(rz*0.5), math.Sin(rz*0.5)

	return Quat{
		sx*cy*cz - cx*sy*sz, // x
		cx*sy*cz + sx*cy*sz, // y
		cx*cy*sz - sx*sy*cz, // z
		cx*cy*cz + sx*sy*sz, // w
	}
}

// IsIdentity reports whether q is approximately the identity rotation.
func (q Quat) IsIdentity() bool {
	return math.Abs(q[0]) < 1e-9 && math.Abs(q[1]) < 1e-9 &&
		math.Abs(q[2]) < 1e-9 && math.Abs(q[3]-1) < 1e-9
}

// OrIdentity maps the zero value to the identity rotation, for structs whose
// rotation field was never set.
func (q Quat) OrIdentity() Quat {
	if q == (Quat{}) {
		return QuatIdentity
	}
	return q
}

// mat3 expands the quaternion to a row-major 3×3 rotation matrix.
func (q Quat) mat3() [9]float64 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return [9]float64{
		1 - 2*(yy+zz), 2 * (xy - wz), 2 * (xz + wy),
		2 * (xy + wz), 1 - 2*(xx+zz), 2 * (yz - wx),
		2 * (xz - wy), 2 * (yz + wx), 1 - 2*(xx+yy),
	}
}
