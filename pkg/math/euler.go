package math

import "math"

// RotationMode names the channel a pose bone stores its rotation in.
type RotationMode string

const (
	RotationXYZ        RotationMode = "XYZ"
	RotationQuaternion RotationMode = "QUATERNION"
)

// Euler is an XYZ Euler rotation in radians.
// Applied to column vectors as Rz * Ry * Rx (X first).
type Euler struct {
	X, Y, Z float32
}

// Radians converts degrees to radians.
func Radians(deg float64) float32 {
	return float32(deg * math.Pi / 180)
}

// Degrees converts radians to degrees.
func Degrees(rad float32) float64 {
	return float64(rad) * 180 / math.Pi
}

// EulerFromDegrees builds an Euler from per-axis degrees.
func EulerFromDegrees(x, y, z float64) Euler {
	return Euler{Radians(x), Radians(y), Radians(z)}
}

// Add returns the per-axis sum of two rotations.
// This is channel addition, not rotation composition.
func (e Euler) Add(other Euler) Euler {
	return Euler{e.X + other.X, e.Y + other.Y, e.Z + other.Z}
}

// IsZero reports whether the rotation is the rest rotation.
func (e Euler) IsZero() bool {
	return e.X == 0 && e.Y == 0 && e.Z == 0
}

// ToMat4 returns the rotation matrix.
func (e Euler) ToMat4() Mat4 {
	return RotateZ(e.Z).Mul(RotateY(e.Y)).Mul(RotateX(e.X))
}
