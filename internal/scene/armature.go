package scene

import "github.com/Faultbox/shapekey-tools/pkg/math"

// Bone is a rest bone. Rest is the bone's armature-space rest matrix.
type Bone struct {
	Name   string
	Parent string
	Rest   math.Mat4
}

// PoseBone is the posable instance of a bone.
type PoseBone struct {
	Name               string
	RotationMode       math.RotationMode
	RotationEuler      math.Euler
	RotationQuaternion math.Quat
	Location           math.Vec3
	Scale              math.Vec3
}

// NewPoseBone returns a pose bone at rest.
func NewPoseBone(name string) *PoseBone {
	return &PoseBone{
		Name:               name,
		RotationMode:       math.RotationXYZ,
		RotationQuaternion: math.QuatIdentity(),
		Scale:              math.Vec3{X: 1, Y: 1, Z: 1},
	}
}

// Rotation returns the rotation matrix of the active rotation channel.
func (p *PoseBone) Rotation() math.Mat4 {
	if p.RotationMode == math.RotationQuaternion {
		return p.RotationQuaternion.ToMat4()
	}
	return p.RotationEuler.ToMat4()
}

// Basis returns the pose transform in bone space.
func (p *PoseBone) Basis() math.Mat4 {
	return math.Compose(p.Location, p.Rotation(), p.Scale)
}

// ClearRotation resets both rotation channels to rest.
func (p *PoseBone) ClearRotation() {
	p.RotationEuler = math.Euler{}
	p.RotationQuaternion = math.QuatIdentity()
}

// Armature is a skeleton with its current pose.
type Armature struct {
	Bones []*Bone
	Pose  []*PoseBone
}

// NewArmature creates an armature whose pose has one rest pose bone per bone.
func NewArmature(bones []*Bone) *Armature {
	a := &Armature{Bones: bones}
	for _, b := range bones {
		a.Pose = append(a.Pose, NewPoseBone(b.Name))
	}
	return a
}

// Bone returns the rest bone with the given name, or nil.
func (a *Armature) Bone(name string) *Bone {
	if name == "" {
		return nil
	}
	for _, b := range a.Bones {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// PoseBone returns the pose bone with the given name, or nil.
func (a *Armature) PoseBone(name string) *PoseBone {
	for _, p := range a.Pose {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// skinMatrices returns, per bone name, the matrix taking a rest-pose
// armature-space point to its posed position.
func (a *Armature) skinMatrices() map[string]math.Mat4 {
	world := make(map[string]math.Mat4, len(a.Bones))

	var resolve func(b *Bone, depth int) math.Mat4
	resolve = func(b *Bone, depth int) math.Mat4 {
		if m, ok := world[b.Name]; ok {
			return m
		}
		basis := math.Identity()
		if pb := a.PoseBone(b.Name); pb != nil {
			basis = pb.Basis()
		}
		m := b.Rest.Mul(basis)
		// depth bound stops recursion on parent cycles
		if parent := a.Bone(b.Parent); parent != nil && depth < len(a.Bones) {
			m = resolve(parent, depth+1).Mul(parent.Rest.Inverse()).Mul(m)
		}
		world[b.Name] = m
		return m
	}

	skins := make(map[string]math.Mat4, len(a.Bones))
	for _, b := range a.Bones {
		skins[b.Name] = resolve(b, 0).Mul(b.Rest.Inverse())
	}
	return skins
}
