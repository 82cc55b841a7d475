package scene

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/shapekey-tools/pkg/math"
)

// ApplyModifierAsShapeKey evaluates the named armature modifier of a mesh
// object and stores the result as a new shape key named after the modifier.
// A reference key is created first when the mesh has none. With keep set
// the modifier stays on the object.
func (s *Scene) ApplyModifierAsShapeKey(objectName, modifierName string, keep bool) error {
	if s.mode != ModeObject {
		return fmt.Errorf("%w: modifiers can only be applied in object mode", ErrApplyRejected)
	}
	if s.active != objectName {
		return fmt.Errorf("%w: %s is not the active object", ErrApplyRejected, objectName)
	}
	obj := s.Object(objectName)
	if obj == nil {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, objectName)
	}
	if !obj.SupportsShapeKeys() {
		return fmt.Errorf("%w: %s cannot hold shape keys", ErrApplyRejected, objectName)
	}
	mod := obj.Modifier(modifierName)
	if mod == nil {
		return fmt.Errorf("%w: modifier %q not found on %s", ErrApplyRejected, modifierName, objectName)
	}
	if mod.Type != ModifierArmature {
		return fmt.Errorf("%w: modifier %q is not an armature modifier", ErrApplyRejected, modifierName)
	}
	if !mod.Enabled {
		return fmt.Errorf("%w: modifier %q is disabled, skipping apply", ErrApplyRejected, modifierName)
	}
	arm := s.Object(mod.Object)
	if arm == nil || arm.Type != TypeArmature || arm.Armature == nil {
		return fmt.Errorf("%w: modifier %q has no armature object", ErrApplyRejected, modifierName)
	}

	mesh := obj.Mesh
	for _, k := range mesh.ShapeKeys.blocks() {
		if len(k.Data) != len(mesh.Vertices) {
			return fmt.Errorf("%w: shape key %q has %d points, mesh has %d vertices",
				ErrApplyRejected, k.Name, len(k.Data), len(mesh.Vertices))
		}
	}

	if mesh.ShapeKeys.Len() == 0 {
		mesh.ShapeKeys = &ShapeKeys{Blocks: []*ShapeKey{{
			Name: ReferenceKeyName,
			Data: copyVecs(mesh.Vertices),
		}}}
	}
	ref := mesh.ShapeKeys.Reference()

	key := &ShapeKey{
		Name:     mesh.ShapeKeys.uniqueName(mod.Name),
		Data:     s.deformByArmature(obj, arm, ref.Data),
		Relative: ref.Name,
	}
	mesh.ShapeKeys.Blocks = append(mesh.ShapeKeys.Blocks, key)

	if !keep {
		obj.removeModifier(mod.Name)
	}

	s.log.Debug("modifier applied as shape key",
		zap.String("object", objectName),
		zap.String("modifier", modifierName),
		zap.String("shape_key", key.Name))
	return nil
}

// ClearPoseRotation resets the rotation of every pose bone of the named
// armature. The armature must be active in pose mode.
func (s *Scene) ClearPoseRotation(armatureName string) error {
	if s.mode != ModePose || s.active != armatureName {
		return fmt.Errorf("%w: %s must be active in pose mode", ErrWrongMode, armatureName)
	}
	arm := s.Object(armatureName)
	if arm == nil || arm.Armature == nil {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, armatureName)
	}
	for _, pb := range arm.Armature.Pose {
		pb.ClearRotation()
	}
	return nil
}

// ClearParentKeepTransform detaches an object from its parent, folding the
// parent's world transform into the object's own matrix.
func (s *Scene) ClearParentKeepTransform(name string) error {
	obj := s.Object(name)
	if obj == nil {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, name)
	}
	world := s.WorldMatrix(obj)
	obj.Parent = ""
	obj.ParentType = ""
	obj.Matrix = world
	return nil
}

// ApplyTransform bakes the object's matrix into its data and resets the
// matrix to identity. Children are compensated so they do not move.
func (s *Scene) ApplyTransform(name string) error {
	if s.mode != ModeObject {
		return fmt.Errorf("%w: transforms can only be applied in object mode", ErrWrongMode)
	}
	obj := s.Object(name)
	if obj == nil {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, name)
	}
	m := obj.Matrix
	if m.IsIdentity() {
		return nil
	}

	if obj.Mesh != nil {
		transformAll(obj.Mesh.Vertices, m)
		for _, k := range obj.Mesh.ShapeKeys.blocks() {
			transformAll(k.Data, m)
		}
	}
	if obj.Armature != nil {
		for _, b := range obj.Armature.Bones {
			b.Rest = m.Mul(b.Rest)
		}
	}
	for _, child := range s.Children(name) {
		child.Matrix = m.Mul(child.Matrix)
	}
	obj.Matrix = math.Identity()
	return nil
}

func transformAll(vs []math.Vec3, m math.Mat4) {
	for i, v := range vs {
		vs[i] = m.TransformVec3(v)
	}
}

// RemoveShapeKey deletes a non-reference shape key. Keys that were relative
// to it become relative to the reference key.
func (s *Scene) RemoveShapeKey(objectName, keyName string) error {
	keys, err := s.shapeKeys(objectName)
	if err != nil {
		return err
	}
	idx := keys.index(keyName)
	if idx < 0 {
		return fmt.Errorf("%w: %s on %s", ErrShapeKeyNotFound, keyName, objectName)
	}
	if idx == 0 {
		return fmt.Errorf("%w: %s on %s", ErrReferenceKey, keyName, objectName)
	}
	keys.Blocks = append(keys.Blocks[:idx], keys.Blocks[idx+1:]...)
	for _, b := range keys.Blocks {
		if b.Relative == keyName {
			b.Relative = keys.Reference().Name
		}
	}
	return nil
}

// RenameShapeKey renames a key and the relative links pointing at it.
func (s *Scene) RenameShapeKey(objectName, oldName, newName string) error {
	keys, err := s.shapeKeys(objectName)
	if err != nil {
		return err
	}
	key := keys.Get(oldName)
	if key == nil {
		return fmt.Errorf("%w: %s on %s", ErrShapeKeyNotFound, oldName, objectName)
	}
	if oldName == newName {
		return nil
	}
	if keys.Has(newName) {
		return fmt.Errorf("%w: %s on %s", ErrDuplicateShapeKey, newName, objectName)
	}
	for _, b := range keys.Blocks {
		if b.Relative == oldName {
			b.Relative = newName
		}
	}
	key.Name = newName
	return nil
}

func (s *Scene) shapeKeys(objectName string) (*ShapeKeys, error) {
	obj := s.Object(objectName)
	if obj == nil {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectName)
	}
	if !obj.SupportsShapeKeys() || obj.Mesh.ShapeKeys.Len() == 0 {
		return nil, fmt.Errorf("%w: %s has no shape keys", ErrShapeKeyNotFound, objectName)
	}
	return obj.Mesh.ShapeKeys, nil
}
