package mathutil

import (
	"math"
	"testing"

	"github.com/flywave/go3d/vec3"

	dvec3 "github.com/flywave/go3d/float64/vec3"
)

func TestEulerToQuatIdentity(t *testing.T) {
	q := EulerToQuat(0, 0, 0)
	if !q.IsIdentity() {
		t.Fatalf("EulerToQuat(0,0,0) = %v, want identity", q)
	}
}

func TestEulerToQuatHalfTurnZ(t *testing.T) {
	q := EulerToQuat(0, 0, math.Pi)
	// A half turn around Z maps +X to -X.
	m := Compose(dvec3.T{}, q, dvec3.T{1, 1, 1})
	p := TransformPoint(&m, vec3.T{1, 0, 0})
	if math.Abs(float64(p[0])+1) > 1e-6 || math.Abs(float64(p[1])) > 1e-6 {
		t.Fatalf("half turn moved (1,0,0) to %v, want (-1,0,0)", p)
	}
}

func TestComposeTranslation(t *testing.T) {
	m := Compose(dvec3.T{1, 2, 3}, QuatIdentity, dvec3.T{1, 1, 1})
	p := TransformPoint(&m, vec3.T{0, 0, 0})
	want := vec3.T{1, 2, 3}
	if p != want {
		t.Fatalf("translated origin = %v, want %v", p, want)
	}
}

func TestComposeScale(t *testing.T) {
	m := Compose(dvec3.T{}, QuatIdentity, dvec3.T{2, 3, 4})
	p := TransformPoint(&m, vec3.T{1, 1, 1})
	want := vec3.T{2, 3, 4}
	if p != want {
		t.Fatalf("scaled point = %v, want %v", p, want)
	}
}

func TestInvertRigidRoundTrip(t *testing.T) {
	q := EulerToQuat(0.3, -0.7, 1.1)
	m := Compose(dvec3.T{5, -2, 9}, q, dvec3.T{1, 1, 1})
	inv := InvertRigid(m)

	orig := vec3.T{0.25, -1.5, 3.75}
	p := TransformPoint(&m, orig)
	back := TransformPoint(&inv, p)
	for i := 0; i < 3; i++ {
		if math.Abs(float64(back[i]-orig[i])) > 1e-4 {
			t.Fatalf("round trip component %d: got %v, want %v", i, back, orig)
		}
	}
}

func TestRotYQuarterTurn(t *testing.T) {
	m := RotY(math.Pi / 2)
	p := TransformDir(&m, vec3.T{1, 0, 0})
	// +X rotates to -Z under a positive quarter turn around Y.
	if math.Abs(float64(p[0])) > 1e-6 || math.Abs(float64(p[2])+1) > 1e-6 {
		t.Fatalf("RotY(90°) moved +X to %v, want (0,0,-1)", p)
	}
}

func TestDeg2Rad(t *testing.T) {
	if got := Deg2Rad(180); math.Abs(got-math.Pi) > 1e-12 {
		t.Fatalf("Deg2Rad(180) = %v, want pi", got)
	}
}
