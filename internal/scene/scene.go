// Package scene models an editable 3D scene: objects, meshes with shape keys,
// armatures with poses, armature modifiers, an editing mode and an undo stack.
package scene

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/shapekey-tools/pkg/math"
)

// Scene errors.
var (
	ErrObjectNotFound    = errors.New("object not found")
	ErrDuplicateObject   = errors.New("object name already in use")
	ErrModeRejected      = errors.New("mode change rejected")
	ErrWrongMode         = errors.New("operation not allowed in current mode")
	ErrApplyRejected     = errors.New("modifier apply rejected")
	ErrShapeKeyNotFound  = errors.New("shape key not found")
	ErrDuplicateShapeKey = errors.New("shape key name already in use")
	ErrReferenceKey      = errors.New("reference shape key cannot be removed")
	ErrNothingToUndo     = errors.New("nothing to undo")
	ErrInvalidScene      = errors.New("invalid scene")
)

// Mode is the editing mode of the scene.
type Mode string

const (
	ModeObject Mode = "OBJECT"
	ModePose   Mode = "POSE"
)

// Scene is the object registry plus editing state.
// It is not safe for concurrent use.
type Scene struct {
	objects []*Object
	active  string
	mode    Mode
	undo    []snapshot
	log     *zap.Logger
}

// New creates an empty scene in object mode.
func New() *Scene {
	return &Scene{
		mode: ModeObject,
		log:  zap.NewNop(),
	}
}

// SetLogger sets the logger used for operator diagnostics.
func (s *Scene) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	s.log = log
}

// Add registers an object. A zero matrix is replaced by identity.
func (s *Scene) Add(obj *Object) error {
	if obj.Name == "" {
		return fmt.Errorf("%w: empty object name", ErrInvalidScene)
	}
	if s.Object(obj.Name) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateObject, obj.Name)
	}
	if obj.Matrix == (math.Mat4{}) {
		obj.Matrix = math.Identity()
	}
	s.objects = append(s.objects, obj)
	return nil
}

// Object returns the object with the given name, or nil.
func (s *Scene) Object(name string) *Object {
	for _, o := range s.objects {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// Objects returns all objects in insertion order.
func (s *Scene) Objects() []*Object {
	out := make([]*Object, len(s.objects))
	copy(out, s.objects)
	return out
}

// Meshes returns mesh objects in insertion order.
func (s *Scene) Meshes() []*Object {
	var out []*Object
	for _, o := range s.objects {
		if o.Type == TypeMesh && o.Mesh != nil {
			out = append(out, o)
		}
	}
	return out
}

// Children returns the direct children of the named object.
func (s *Scene) Children(name string) []*Object {
	var out []*Object
	for _, o := range s.objects {
		if o.Parent == name {
			out = append(out, o)
		}
	}
	return out
}

// Active returns the active object, or nil.
func (s *Scene) Active() *Object {
	if s.active == "" {
		return nil
	}
	return s.Object(s.active)
}

// SetActive makes the named object active.
func (s *Scene) SetActive(name string) error {
	if s.Object(name) == nil {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, name)
	}
	s.active = name
	return nil
}

// Mode returns the current editing mode.
func (s *Scene) Mode() Mode {
	return s.mode
}

// ModeSet switches the editing mode. Pose mode needs an active armature.
func (s *Scene) ModeSet(mode Mode) error {
	switch mode {
	case ModeObject:
	case ModePose:
		active := s.Active()
		if active == nil || active.Type != TypeArmature || active.Armature == nil {
			return fmt.Errorf("%w: pose mode needs an active armature", ErrModeRejected)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrModeRejected, mode)
	}
	if s.mode != mode {
		s.log.Debug("mode set", zap.String("from", string(s.mode)), zap.String("to", string(mode)), zap.String("active", s.active))
	}
	s.mode = mode
	return nil
}

// FindArmature returns the armature object deforming obj: the target of its
// first armature modifier, else an armature parent with ARMATURE parenting.
func (s *Scene) FindArmature(obj *Object) *Object {
	for _, m := range obj.ArmatureModifiers() {
		if arm := s.Object(m.Object); arm != nil && arm.Type == TypeArmature {
			return arm
		}
	}
	if obj.ParentType == ParentArmature {
		if parent := s.Object(obj.Parent); parent != nil && parent.Type == TypeArmature {
			return parent
		}
	}
	return nil
}

// WorldMatrix returns the object's world transform.
func (s *Scene) WorldMatrix(obj *Object) math.Mat4 {
	m := obj.Matrix
	cur := obj
	for depth := 0; cur.Parent != "" && depth < len(s.objects); depth++ {
		parent := s.Object(cur.Parent)
		if parent == nil {
			break
		}
		m = parent.Matrix.Mul(m)
		cur = parent
	}
	return m
}

// Validate checks the structural rules of the scene and reports every violation.
func (s *Scene) Validate() error {
	var err error
	for _, o := range s.objects {
		if o.Parent != "" && s.Object(o.Parent) == nil {
			err = multierr.Append(err, fmt.Errorf("%w: %s: parent %q not found", ErrInvalidScene, o.Name, o.Parent))
		}
		switch o.Type {
		case TypeMesh:
			if o.Mesh == nil {
				err = multierr.Append(err, fmt.Errorf("%w: %s: mesh object without mesh data", ErrInvalidScene, o.Name))
				continue
			}
			err = multierr.Append(err, validateMesh(o))
		case TypeArmature:
			if o.Armature == nil {
				err = multierr.Append(err, fmt.Errorf("%w: %s: armature object without armature data", ErrInvalidScene, o.Name))
			}
		}
	}
	return err
}

func validateMesh(o *Object) error {
	var err error
	n := len(o.Mesh.Vertices)
	if len(o.Mesh.Weights) > n {
		err = multierr.Append(err, fmt.Errorf("%w: %s: %d weight entries for %d vertices", ErrInvalidScene, o.Name, len(o.Mesh.Weights), n))
	}
	seen := make(map[string]bool)
	for _, k := range o.Mesh.ShapeKeys.blocks() {
		if seen[k.Name] {
			err = multierr.Append(err, fmt.Errorf("%w: %s: duplicate shape key %q", ErrInvalidScene, o.Name, k.Name))
		}
		seen[k.Name] = true
		if len(k.Data) != n {
			err = multierr.Append(err, fmt.Errorf("%w: %s: shape key %q has %d points, mesh has %d vertices", ErrInvalidScene, o.Name, k.Name, len(k.Data), n))
		}
	}
	return err
}
