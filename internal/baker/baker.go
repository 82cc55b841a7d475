// Package baker captures an armature pose as a new shape key on a mesh.
//
// A bake rotates the requested pose bones, applies the mesh's armature
// modifier as a shape key, names that key and puts the skeleton back to its
// rest rotation. The whole bake is recorded as a single undo step.
package baker

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/shapekey-tools/internal/scene"
	"github.com/Faultbox/shapekey-tools/pkg/math"
)

// Host is the scene surface a bake reads and mutates. *scene.Scene implements it.
type Host interface {
	Active() *scene.Object
	Object(name string) *scene.Object
	SetActive(name string) error
	ModeSet(mode scene.Mode) error
	ApplyModifierAsShapeKey(objectName, modifierName string, keep bool) error
	RenameShapeKey(objectName, oldName, newName string) error
	ClearPoseRotation(armatureName string) error
	PushUndo(label string)
}

var _ Host = (*scene.Scene)(nil)

// BoneDelta is a rotation offset for one pose bone, in degrees.
// Missing axes are zero.
type BoneDelta struct {
	Bone string  `yaml:"bone"`
	X    float64 `yaml:"x,omitempty"`
	Y    float64 `yaml:"y,omitempty"`
	Z    float64 `yaml:"z,omitempty"`
}

// Options describes a single bake.
type Options struct {
	TargetName   string      `yaml:"target_name"`
	BoneDeltas   []BoneDelta `yaml:"bone_deltas"`
	ArmatureName string      `yaml:"armature_name,omitempty"` // empty: first armature modifier

	// RestorePoseOnFailure resets the pose when the bake fails after the
	// bones were rotated. Off by default, leaving the pose for the user to undo.
	RestorePoseOnFailure bool `yaml:"restore_pose_on_failure,omitempty"`
}

// AppliedDelta is a rotation that was added to a pose bone, in radians.
type AppliedDelta struct {
	Bone  string
	Delta math.Euler
}

// Result describes what a bake did.
type Result struct {
	Object       string
	ShapeKey     string
	Armature     string
	Modifier     string
	Applied      []AppliedDelta
	SkippedBones []string
}

// Baker bakes poses on a host scene.
type Baker struct {
	host Host
	log  *zap.Logger
}

// New creates a Baker. A nil logger discards diagnostics.
func New(host Host, log *zap.Logger) *Baker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Baker{host: host, log: log}
}

// UndoLabel is the undo step name recorded for a bake.
func UndoLabel(target string) string {
	return fmt.Sprintf("Shapekey '%s' created from pose", target)
}

// Bake creates shape key opts.TargetName on the active mesh from the pose
// obtained by adding opts.BoneDeltas to the armature's current pose.
func (b *Baker) Bake(opts Options) (*Result, error) {
	log := b.log.With(zap.String("target", opts.TargetName))

	obj, mod, arm, err := b.validate(opts)
	if err != nil {
		log.Warn("bake rejected", zap.Error(err))
		return nil, err
	}

	res := &Result{
		Object:   obj.Name,
		Armature: arm.Name,
		Modifier: mod.Name,
	}
	initial := obj.Mesh.ShapeKeyCount()
	machine := newModeMachine(b.host, obj.Name, arm.Name, log)

	// OBJECT(mesh) -> POSE(armature)
	if err := b.steps(machine, 2); err != nil {
		log.Error("bake aborted", zap.Error(err))
		return res, err
	}

	for _, d := range opts.BoneDeltas {
		pb := arm.Armature.PoseBone(d.Bone)
		if pb == nil {
			log.Warn("bone not found, delta skipped", zap.String("bone", d.Bone))
			res.SkippedBones = append(res.SkippedBones, d.Bone)
			continue
		}
		delta := math.EulerFromDegrees(d.X, d.Y, d.Z)
		pb.RotationMode = math.RotationXYZ
		pb.RotationEuler = pb.RotationEuler.Add(delta)
		res.Applied = append(res.Applied, AppliedDelta{Bone: d.Bone, Delta: delta})

		log.Info("rotation applied",
			zap.String("bone", d.Bone),
			zap.Float32("x", delta.X),
			zap.Float32("y", delta.Y),
			zap.Float32("z", delta.Z))
	}

	// POSE(armature) -> OBJECT(mesh)
	if err := b.steps(machine, 1); err != nil {
		return res, b.fail(log, machine, arm.Name, opts, err)
	}

	if err := b.host.ApplyModifierAsShapeKey(obj.Name, mod.Name, true); err != nil {
		return res, b.fail(log, machine, arm.Name, opts, &OperationFailure{Reason: ErrApplyFailed, Err: err})
	}

	expected := 1
	if initial == 0 {
		// the apply also created the reference key
		expected = 2
	}
	if got := obj.Mesh.ShapeKeyCount() - initial; got != expected {
		err := &OperationFailure{
			Reason: ErrNoShapeKeyProduced,
			Err:    fmt.Errorf("shape key count went from %d to %d", initial, initial+got),
		}
		return res, b.fail(log, machine, arm.Name, opts, err)
	}

	baked := obj.Mesh.ShapeKeys.Last()
	if err := b.host.RenameShapeKey(obj.Name, baked.Name, opts.TargetName); err != nil {
		return res, b.fail(log, machine, arm.Name, opts, &OperationFailure{Reason: ErrRenameFailed, Err: err})
	}
	res.ShapeKey = opts.TargetName
	log.Info("shape key created and applied", zap.String("object", obj.Name))

	if err := b.resetPose(machine, arm.Name); err != nil {
		log.Error("pose reset failed", zap.Error(err))
		return res, err
	}

	b.host.PushUndo(UndoLabel(opts.TargetName))
	log.Info("armature reset, bake complete")
	return res, nil
}

// BakeAll runs each bake in order. Failures do not stop later bakes; they
// are returned together.
func (b *Baker) BakeAll(jobs []Options) ([]*Result, error) {
	var (
		results []*Result
		errs    error
	)
	for i, job := range jobs {
		res, err := b.Bake(job)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("bake %d (%s): %w", i, job.TargetName, err))
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

// validate runs the preconditions in order and resolves the objects involved.
func (b *Baker) validate(opts Options) (*scene.Object, *scene.Modifier, *scene.Object, error) {
	obj := b.host.Active()
	if obj == nil || !obj.SupportsShapeKeys() {
		return nil, nil, nil, &ValidationError{
			Reason: ErrUnsupportedTarget,
			Detail: "the active object must be a mesh that can hold shape keys",
		}
	}
	if opts.TargetName == "" {
		return nil, nil, nil, &ValidationError{Reason: ErrMissingTargetName, Detail: "a shape key name is required"}
	}
	// a mesh without keys gets its reference key from the apply itself
	if obj.Mesh.ShapeKeys.Has(opts.TargetName) ||
		(obj.Mesh.ShapeKeyCount() == 0 && opts.TargetName == scene.ReferenceKeyName) {
		return nil, nil, nil, &ValidationError{
			Reason: ErrDuplicateTarget,
			Detail: fmt.Sprintf("shape key %q already exists on %s", opts.TargetName, obj.Name),
		}
	}
	mod, arm, err := b.resolveArmature(obj, opts.ArmatureName)
	if err != nil {
		return nil, nil, nil, err
	}
	return obj, mod, arm, nil
}

func (b *Baker) resolveArmature(obj *scene.Object, armatureName string) (*scene.Modifier, *scene.Object, error) {
	var mod *scene.Modifier
	if armatureName != "" {
		for _, m := range obj.ArmatureModifiers() {
			if m.Object == armatureName {
				mod = m
				break
			}
		}
		if mod == nil {
			return nil, nil, &ValidationError{
				Reason: ErrArmatureNotFound,
				Detail: fmt.Sprintf("no armature modifier on %s uses armature %q", obj.Name, armatureName),
			}
		}
	} else {
		mods := obj.ArmatureModifiers()
		if len(mods) == 0 {
			return nil, nil, &ValidationError{
				Reason: ErrNoArmature,
				Detail: fmt.Sprintf("no armature modifier found on %s", obj.Name),
			}
		}
		mod = mods[0]
	}

	arm := b.host.Object(mod.Object)
	if arm == nil || arm.Type != scene.TypeArmature || arm.Armature == nil {
		return nil, nil, &ValidationError{
			Reason: ErrArmatureNotFound,
			Detail: fmt.Sprintf("armature %q of modifier %q not found", mod.Object, mod.Name),
		}
	}
	return mod, arm, nil
}

func (b *Baker) steps(machine *modeMachine, n int) error {
	for i := 0; i < n; i++ {
		if err := machine.advance(); err != nil {
			return err
		}
	}
	return nil
}

// resetPose walks the remaining steps, clearing every bone rotation in pose mode.
func (b *Baker) resetPose(machine *modeMachine, armature string) error {
	for machine.step < resetStep {
		if err := machine.advance(); err != nil {
			return err
		}
	}
	if err := b.host.ClearPoseRotation(armature); err != nil {
		return &OperationFailure{Reason: ErrPoseReset, Err: err}
	}
	return machine.advance()
}

// fail logs a mid-bake failure and, when asked to, puts the pose back.
// Without RestorePoseOnFailure the rotated pose is left in place.
func (b *Baker) fail(log *zap.Logger, machine *modeMachine, armature string, opts Options, err error) error {
	log.Error("bake failed", zap.Error(err))
	if !opts.RestorePoseOnFailure {
		log.Warn("pose left as is; undo to restore it")
		return err
	}
	if resetErr := b.resetPose(machine, armature); resetErr != nil {
		return multierr.Append(err, resetErr)
	}
	log.Info("pose restored after failure")
	return err
}
