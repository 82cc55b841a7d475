package scene_test

import (
	"errors"
	"testing"

	"go.uber.org/multierr"

	"github.com/Faultbox/shapekey-tools/internal/scene"
	"github.com/Faultbox/shapekey-tools/internal/scene/scenetest"
	"github.com/Faultbox/shapekey-tools/pkg/math"
)

const eps = 0.0001

func near(a, b math.Vec3) bool {
	d := a.Sub(b)
	return d.X < eps && d.X > -eps && d.Y < eps && d.Y > -eps && d.Z < eps && d.Z > -eps
}

func TestAddDuplicate(t *testing.T) {
	s := scenetest.RigScene()
	err := s.Add(scenetest.NewArmatureObject(scenetest.ArmatureName))
	if !errors.Is(err, scene.ErrDuplicateObject) {
		t.Errorf("expected ErrDuplicateObject, got %v", err)
	}
}

func TestAddZeroMatrixBecomesIdentity(t *testing.T) {
	s := scene.New()
	if err := s.Add(&scene.Object{Name: "Empty", Type: scene.TypeEmpty}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !s.Object("Empty").Matrix.IsIdentity() {
		t.Error("zero matrix should be replaced by identity")
	}
}

func TestSetActiveMissing(t *testing.T) {
	s := scenetest.RigScene()
	if err := s.SetActive("Nope"); !errors.Is(err, scene.ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
	if s.Active().Name != scenetest.MeshName {
		t.Errorf("active object changed to %s", s.Active().Name)
	}
}

func TestModeSet(t *testing.T) {
	s := scenetest.RigScene()

	if err := s.ModeSet(scene.ModePose); !errors.Is(err, scene.ErrModeRejected) {
		t.Errorf("pose mode with a mesh active: expected ErrModeRejected, got %v", err)
	}
	if s.Mode() != scene.ModeObject {
		t.Errorf("mode should still be OBJECT, got %s", s.Mode())
	}

	if err := s.SetActive(scenetest.ArmatureName); err != nil {
		t.Fatal(err)
	}
	if err := s.ModeSet(scene.ModePose); err != nil {
		t.Fatalf("pose mode with an armature active: %v", err)
	}
	if s.Mode() != scene.ModePose {
		t.Errorf("expected POSE, got %s", s.Mode())
	}
	if err := s.ModeSet("SCULPT"); !errors.Is(err, scene.ErrModeRejected) {
		t.Errorf("unknown mode: expected ErrModeRejected, got %v", err)
	}
}

func TestApplyModifierAsShapeKeyRestPose(t *testing.T) {
	s := scenetest.RigScene()

	if err := s.ApplyModifierAsShapeKey(scenetest.MeshName, scenetest.ModifierName, true); err != nil {
		t.Fatalf("apply: %v", err)
	}

	keys := s.Object(scenetest.MeshName).Mesh.ShapeKeys
	if keys.Len() != 2 {
		t.Fatalf("expected reference key plus new key, got %v", keys.Names())
	}
	if keys.Reference().Name != scene.ReferenceKeyName {
		t.Errorf("reference key: got %q, want %q", keys.Reference().Name, scene.ReferenceKeyName)
	}
	baked := keys.Last()
	if baked.Name != scenetest.ModifierName {
		t.Errorf("new key should be named after the modifier, got %q", baked.Name)
	}
	if baked.Relative != scene.ReferenceKeyName {
		t.Errorf("new key relative: got %q", baked.Relative)
	}
	for i, v := range scenetest.Vertices {
		if !near(baked.Data[i], v) {
			t.Errorf("rest pose vertex %d moved: got %v, want %v", i, baked.Data[i], v)
		}
	}
	if s.Object(scenetest.MeshName).Modifier(scenetest.ModifierName) == nil {
		t.Error("modifier should be kept")
	}
}

func TestApplyModifierAsShapeKeyPosed(t *testing.T) {
	s := scenetest.RigScene()
	arm := s.Object(scenetest.ArmatureName).Armature
	arm.PoseBone(scenetest.ChildBone).RotationEuler = math.EulerFromDegrees(0, 0, 90)

	if err := s.ApplyModifierAsShapeKey(scenetest.MeshName, scenetest.ModifierName, true); err != nil {
		t.Fatalf("apply: %v", err)
	}
	baked := s.Object(scenetest.MeshName).Mesh.ShapeKeys.Last()

	tests := []struct {
		index int
		want  math.Vec3
	}{
		{0, math.Vec3{X: 1, Y: 0, Z: 0}},  // on B1, untouched
		{1, math.Vec3{X: -1, Y: 1, Z: 0}}, // on B2, rotated about (0,1,0)
		{2, math.Vec3{X: 5, Y: 5, Z: 5}},  // unweighted
		{3, math.Vec3{X: 0, Y: 1, Z: 1}},  // on B2's pivot axis
	}
	for _, tt := range tests {
		if !near(baked.Data[tt.index], tt.want) {
			t.Errorf("vertex %d: got %v, want %v", tt.index, baked.Data[tt.index], tt.want)
		}
	}
	// the unweighted vertex is carried over exactly
	if baked.Data[2] != scenetest.Vertices[2] {
		t.Errorf("unweighted vertex changed: %v", baked.Data[2])
	}
}

func TestApplyModifierAsShapeKeyParentRotation(t *testing.T) {
	s := scenetest.RigScene()
	arm := s.Object(scenetest.ArmatureName).Armature
	arm.PoseBone(scenetest.RootBone).RotationEuler = math.EulerFromDegrees(0, 0, 90)

	if err := s.ApplyModifierAsShapeKey(scenetest.MeshName, scenetest.ModifierName, true); err != nil {
		t.Fatalf("apply: %v", err)
	}
	baked := s.Object(scenetest.MeshName).Mesh.ShapeKeys.Last()

	// B2 inherits B1's rotation: (0,2,0) rotates about the origin to (-2,0,0)
	if !near(baked.Data[1], math.Vec3{X: -2}) {
		t.Errorf("child bone vertex: got %v, want (-2,0,0)", baked.Data[1])
	}
	if !near(baked.Data[0], math.Vec3{Y: 1}) {
		t.Errorf("root bone vertex: got %v, want (0,1,0)", baked.Data[0])
	}
}

func TestApplyModifierAsShapeKeyObjectTransforms(t *testing.T) {
	s := scenetest.RigScene()
	// move both objects; the deformation must not depend on where they sit
	s.Object(scenetest.ArmatureName).Matrix = math.Translate(10, 0, 0)
	s.Object(scenetest.MeshName).Matrix = math.Identity()
	s.Object(scenetest.ArmatureName).Armature.PoseBone(scenetest.ChildBone).RotationEuler = math.EulerFromDegrees(0, 0, 90)

	if err := s.ApplyModifierAsShapeKey(scenetest.MeshName, scenetest.ModifierName, true); err != nil {
		t.Fatalf("apply: %v", err)
	}
	baked := s.Object(scenetest.MeshName).Mesh.ShapeKeys.Last()
	if !near(baked.Data[1], math.Vec3{X: -1, Y: 1}) {
		t.Errorf("vertex 1: got %v, want (-1,1,0)", baked.Data[1])
	}
}

func TestApplyModifierAsShapeKeyRejections(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(s *scene.Scene)
		modifier string
	}{
		{
			name: "pose mode",
			prepare: func(s *scene.Scene) {
				_ = s.SetActive(scenetest.ArmatureName)
				_ = s.ModeSet(scene.ModePose)
			},
			modifier: scenetest.ModifierName,
		},
		{
			name:     "mesh not active",
			prepare:  func(s *scene.Scene) { _ = s.SetActive(scenetest.ArmatureName) },
			modifier: scenetest.ModifierName,
		},
		{
			name:     "missing modifier",
			prepare:  func(s *scene.Scene) {},
			modifier: "Nope",
		},
		{
			name: "disabled modifier",
			prepare: func(s *scene.Scene) {
				s.Object(scenetest.MeshName).Modifiers[0].Enabled = false
			},
			modifier: scenetest.ModifierName,
		},
		{
			name: "missing armature object",
			prepare: func(s *scene.Scene) {
				s.Object(scenetest.MeshName).Modifiers[0].Object = "Gone"
			},
			modifier: scenetest.ModifierName,
		},
		{
			name: "mismatched shape key",
			prepare: func(s *scene.Scene) {
				scenetest.WithBasis(s, 0, "Short")
				keys := s.Object(scenetest.MeshName).Mesh.ShapeKeys
				keys.Blocks[1].Data = keys.Blocks[1].Data[:2]
			},
			modifier: scenetest.ModifierName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scenetest.RigScene()
			tt.prepare(s)
			before := s.Object(scenetest.MeshName).Mesh.ShapeKeyCount()

			err := s.ApplyModifierAsShapeKey(scenetest.MeshName, tt.modifier, true)
			if !errors.Is(err, scene.ErrApplyRejected) {
				t.Fatalf("expected ErrApplyRejected, got %v", err)
			}
			if after := s.Object(scenetest.MeshName).Mesh.ShapeKeyCount(); after != before {
				t.Errorf("shape key count changed from %d to %d", before, after)
			}
		})
	}
}

func TestApplyModifierAsShapeKeyUniqueNameAndDiscard(t *testing.T) {
	s := scenetest.WithBasis(scenetest.RigScene(), 0, scenetest.ModifierName)

	if err := s.ApplyModifierAsShapeKey(scenetest.MeshName, scenetest.ModifierName, false); err != nil {
		t.Fatalf("apply: %v", err)
	}
	obj := s.Object(scenetest.MeshName)
	if got := obj.Mesh.ShapeKeys.Last().Name; got != "Armature.001" {
		t.Errorf("expected Armature.001, got %q", got)
	}
	if obj.HasArmatureModifier() {
		t.Error("modifier should be removed when not kept")
	}
}

func TestClearPoseRotation(t *testing.T) {
	s := scenetest.RigScene()
	arm := s.Object(scenetest.ArmatureName).Armature
	arm.PoseBone(scenetest.RootBone).RotationEuler = math.Euler{X: 1, Y: 2, Z: 3}
	arm.PoseBone(scenetest.ChildBone).RotationQuaternion = math.Quat{X: 1}
	arm.PoseBone(scenetest.ChildBone).Location = math.Vec3{X: 4}

	if err := s.ClearPoseRotation(scenetest.ArmatureName); !errors.Is(err, scene.ErrWrongMode) {
		t.Fatalf("object mode: expected ErrWrongMode, got %v", err)
	}

	_ = s.SetActive(scenetest.ArmatureName)
	_ = s.ModeSet(scene.ModePose)
	if err := s.ClearPoseRotation(scenetest.ArmatureName); err != nil {
		t.Fatalf("clear: %v", err)
	}
	for _, pb := range arm.Pose {
		if !pb.RotationEuler.IsZero() {
			t.Errorf("%s euler not cleared: %v", pb.Name, pb.RotationEuler)
		}
		if pb.RotationQuaternion != math.QuatIdentity() {
			t.Errorf("%s quaternion not cleared: %v", pb.Name, pb.RotationQuaternion)
		}
	}
	if arm.PoseBone(scenetest.ChildBone).Location.X != 4 {
		t.Error("clearing rotation must not touch location")
	}
}

func TestClearParentAndApplyTransform(t *testing.T) {
	s := scenetest.RigScene()
	s.Object(scenetest.ArmatureName).Matrix = math.Translate(0, 0, 3)
	s.Object(scenetest.MeshName).Matrix = math.Scale(2, 2, 2)
	scenetest.WithBasis(s, 1, "Smile")

	obj := s.Object(scenetest.MeshName)
	world := s.WorldMatrix(obj)
	var before []math.Vec3
	for _, v := range obj.Mesh.Vertices {
		before = append(before, world.TransformVec3(v))
	}

	if err := s.ClearParentKeepTransform(scenetest.MeshName); err != nil {
		t.Fatal(err)
	}
	if obj.Parent != "" || obj.ParentType != "" {
		t.Errorf("parent not cleared: %q %q", obj.Parent, obj.ParentType)
	}
	if err := s.ApplyTransform(scenetest.MeshName); err != nil {
		t.Fatal(err)
	}
	if !obj.Matrix.IsIdentity() {
		t.Errorf("matrix should be identity after apply, got %v", obj.Matrix)
	}
	for i, v := range obj.Mesh.Vertices {
		if !near(v, before[i]) {
			t.Errorf("vertex %d moved in world space: got %v, want %v", i, v, before[i])
		}
	}
	smile := obj.Mesh.ShapeKeys.Get("Smile")
	// (1,0,0)+X = (2,0,0), scaled 2x and lifted 3 on Z
	if !near(smile.Data[0], math.Vec3{X: 4, Z: 3}) {
		t.Errorf("shape key data not transformed: %v", smile.Data[0])
	}
}

func TestApplyTransformCompensatesChildren(t *testing.T) {
	s := scenetest.RigScene()
	s.Object(scenetest.ArmatureName).Matrix = math.Translate(1, 2, 3)
	mesh := s.Object(scenetest.MeshName)
	before := s.WorldMatrix(mesh)

	if err := s.ApplyTransform(scenetest.ArmatureName); err != nil {
		t.Fatal(err)
	}
	if !s.WorldMatrix(mesh).ApproxEqual(before, eps) {
		t.Error("child world transform changed")
	}
	b1 := s.Object(scenetest.ArmatureName).Armature.Bone(scenetest.RootBone)
	if b1.Rest.Translation() != (math.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("bone rest not moved into armature data: %v", b1.Rest.Translation())
	}
}

func TestRemoveAndRenameShapeKey(t *testing.T) {
	s := scenetest.WithBasis(scenetest.RigScene(), 1, "A", "B")
	keys := s.Object(scenetest.MeshName).Mesh.ShapeKeys
	keys.Get("B").Relative = "A"

	if err := s.RemoveShapeKey(scenetest.MeshName, scene.ReferenceKeyName); !errors.Is(err, scene.ErrReferenceKey) {
		t.Errorf("expected ErrReferenceKey, got %v", err)
	}
	if err := s.RenameShapeKey(scenetest.MeshName, "A", "B"); !errors.Is(err, scene.ErrDuplicateShapeKey) {
		t.Errorf("expected ErrDuplicateShapeKey, got %v", err)
	}
	if err := s.RenameShapeKey(scenetest.MeshName, "A", "Alpha"); err != nil {
		t.Fatal(err)
	}
	if keys.Get("B").Relative != "Alpha" {
		t.Errorf("relative link not renamed: %q", keys.Get("B").Relative)
	}
	if err := s.RemoveShapeKey(scenetest.MeshName, "Alpha"); err != nil {
		t.Fatal(err)
	}
	if keys.Get("B").Relative != scene.ReferenceKeyName {
		t.Errorf("relative link should fall back to the reference key, got %q", keys.Get("B").Relative)
	}
	if err := s.RemoveShapeKey(scenetest.MeshName, "Alpha"); !errors.Is(err, scene.ErrShapeKeyNotFound) {
		t.Errorf("expected ErrShapeKeyNotFound, got %v", err)
	}
}

func TestUndo(t *testing.T) {
	s := scenetest.RigScene()

	if _, err := s.Undo(); !errors.Is(err, scene.ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo with a single step, got %v", err)
	}

	if err := s.ApplyModifierAsShapeKey(scenetest.MeshName, scenetest.ModifierName, true); err != nil {
		t.Fatal(err)
	}
	s.PushUndo("bake")

	label, err := s.Undo()
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if label != "bake" {
		t.Errorf("undone label: got %q", label)
	}
	if n := s.Object(scenetest.MeshName).Mesh.ShapeKeyCount(); n != 0 {
		t.Errorf("undo should drop the baked keys, got %d", n)
	}
	if got := s.UndoHistory(); len(got) != 1 || got[0] != "Original" {
		t.Errorf("history: %v", got)
	}
}

func TestValidate(t *testing.T) {
	s := scenetest.WithBasis(scenetest.RigScene(), 0, "Short")
	mesh := s.Object(scenetest.MeshName)
	mesh.Mesh.ShapeKeys.Blocks[1].Data = nil
	mesh.Parent = "Missing"

	err := s.Validate()
	if !errors.Is(err, scene.ErrInvalidScene) {
		t.Fatalf("expected ErrInvalidScene, got %v", err)
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Errorf("expected 2 violations, got %d: %v", n, err)
	}

	if err := scenetest.RigScene().Validate(); err != nil {
		t.Errorf("fixture should be valid: %v", err)
	}
}

func TestFindArmature(t *testing.T) {
	s := scenetest.RigScene()
	mesh := s.Object(scenetest.MeshName)

	if arm := s.FindArmature(mesh); arm == nil || arm.Name != scenetest.ArmatureName {
		t.Errorf("via modifier: got %v", arm)
	}
	mesh.Modifiers = nil
	if arm := s.FindArmature(mesh); arm == nil || arm.Name != scenetest.ArmatureName {
		t.Errorf("via armature parent: got %v", arm)
	}
	mesh.ParentType = scene.ParentObject
	if arm := s.FindArmature(mesh); arm != nil {
		t.Errorf("plain object parent should not count, got %s", arm.Name)
	}
}
