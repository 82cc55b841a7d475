package math

import (
	"math"
	"testing"
)

func TestVec3Distance(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 6, 3}
	if d := a.Distance(b); d != 5 {
		t.Errorf("Distance: got %v, want 5", d)
	}
}

func TestVec3ArrayRoundTrip(t *testing.T) {
	v := Vec3{1.5, -2, 3}
	if Vec3FromArray(v.Array()) != v {
		t.Errorf("Array round trip changed %v", v)
	}
}

func TestRadians(t *testing.T) {
	tests := []struct {
		deg  float64
		want float32
	}{
		{0, 0},
		{180, float32(math.Pi)},
		{-15, float32(-15 * math.Pi / 180)},
		{-5, float32(-5 * math.Pi / 180)},
	}

	for _, tt := range tests {
		if got := Radians(tt.deg); got != tt.want {
			t.Errorf("Radians(%v) = %v, want %v", tt.deg, got, tt.want)
		}
	}
}

func TestEulerAdd(t *testing.T) {
	e := Euler{X: 0.1}.Add(EulerFromDegrees(-15, 0, 90))

	if e.X != 0.1+Radians(-15) {
		t.Errorf("Euler X: got %v", e.X)
	}
	if e.Y != 0 {
		t.Errorf("Euler Y: got %v, want 0", e.Y)
	}
	if e.Z != Radians(90) {
		t.Errorf("Euler Z: got %v", e.Z)
	}
}

func TestEulerToMat4Order(t *testing.T) {
	// X is applied first, then Z
	e := EulerFromDegrees(90, 0, 90)
	result := e.ToMat4().TransformVec3(Vec3{0, 1, 0})

	// X(90): (0,1,0) -> (0,0,1); Z(90) leaves (0,0,1) alone
	if abs(result.X) > 0.0001 || abs(result.Y) > 0.0001 || abs(result.Z-1) > 0.0001 {
		t.Errorf("Euler XYZ order: got %v, want (0,0,1)", result)
	}
}

func TestEulerIsZero(t *testing.T) {
	if !(Euler{}).IsZero() {
		t.Error("zero Euler should report IsZero")
	}
	if (Euler{Y: 1e-9}).IsZero() {
		t.Error("non-zero Euler should not report IsZero")
	}
}
