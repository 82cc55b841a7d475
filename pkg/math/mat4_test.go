package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
	if !m.IsIdentity() {
		t.Error("IsIdentity should hold for Identity()")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	result := m.Mul(Identity())

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestTransformVec3(t *testing.T) {
	m := Translate(10, 20, 30)
	result := m.TransformVec3(Vec3{1, 2, 3})

	expected := Vec3{11, 22, 33}
	if result != expected {
		t.Errorf("TransformVec3: got %v, want %v", result, expected)
	}
}

func TestTransformVec3Scale(t *testing.T) {
	m := Scale(2, 3, 4)
	result := m.TransformVec3(Vec3{1, 1, 1})

	expected := Vec3{2, 3, 4}
	if result != expected {
		t.Errorf("TransformVec3 scale: got %v, want %v", result, expected)
	}
}

func TestRotateX90(t *testing.T) {
	// +90 degrees around X takes +Y to +Z
	m := RotateX(float32(math.Pi / 2))
	result := m.TransformVec3(Vec3{0, 1, 0})

	if abs(result.X) > 0.0001 || abs(result.Y) > 0.0001 || abs(result.Z-1) > 0.0001 {
		t.Errorf("RotateX(90) of (0,1,0): got %v, want (0,0,1)", result)
	}
}

func TestRotateY90(t *testing.T) {
	// +90 degrees around Y takes +Z to +X
	m := RotateY(float32(math.Pi / 2))
	result := m.TransformVec3(Vec3{0, 0, 1})

	if abs(result.X-1) > 0.0001 || abs(result.Y) > 0.0001 || abs(result.Z) > 0.0001 {
		t.Errorf("RotateY(90) of (0,0,1): got %v, want (1,0,0)", result)
	}
}

func TestInverse(t *testing.T) {
	m := Compose(Vec3{1, -2, 3}, RotateZ(0.7).Mul(RotateX(-0.3)), Vec3{2, 2, 0.5})
	product := m.Mul(m.Inverse())

	if !product.ApproxEqual(Identity(), 0.0001) {
		t.Errorf("M * inverse(M) should be identity, got %v", product)
	}
}

func TestInverseSingular(t *testing.T) {
	m := Scale(0, 1, 1)
	if !m.Inverse().IsIdentity() {
		t.Error("inverse of a singular matrix should fall back to identity")
	}
}

func TestCompose(t *testing.T) {
	m := Compose(Vec3{5, 0, 0}, Identity(), Vec3{2, 2, 2})
	result := m.TransformVec3(Vec3{1, 1, 1})

	expected := Vec3{7, 2, 2}
	if result != expected {
		t.Errorf("Compose: got %v, want %v", result, expected)
	}
	if m.Translation() != (Vec3{5, 0, 0}) {
		t.Errorf("Translation: got %v", m.Translation())
	}
}

func TestMat4FromFloat64(t *testing.T) {
	m := Mat4FromFloat64([16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 4, 5, 6, 1})
	if m.Translation() != (Vec3{4, 5, 6}) {
		t.Errorf("Mat4FromFloat64 translation: got %v", m.Translation())
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
