// Package rigging holds scene-wide clean-up passes for skinned meshes.
package rigging

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/shapekey-tools/internal/scene"
)

// IsSkinned reports whether obj is deformed by an armature, either through
// an armature modifier or through armature parenting.
func IsSkinned(s *scene.Scene, obj *scene.Object) bool {
	return obj.HasArmatureModifier() || s.FindArmature(obj) != nil
}

// UnparentSkinned detaches every skinned object that has a parent, keeping
// its world transform, then applies that transform into the object data.
// It returns the names of the objects it changed. A failure on one object
// does not stop the others.
func UnparentSkinned(s *scene.Scene, log *zap.Logger) ([]string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := s.ModeSet(scene.ModeObject); err != nil {
		return nil, err
	}

	var (
		done []string
		errs error
	)
	for _, obj := range s.Objects() {
		if obj.Parent == "" || !IsSkinned(s, obj) {
			continue
		}
		parent := obj.Parent
		if err := s.ClearParentKeepTransform(obj.Name); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("unparent %s: %w", obj.Name, err))
			continue
		}
		if err := s.ApplyTransform(obj.Name); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("apply transform %s: %w", obj.Name, err))
			continue
		}
		log.Info("unparented skinned object", zap.String("object", obj.Name), zap.String("parent", parent))
		done = append(done, obj.Name)
	}

	if len(done) > 0 {
		s.PushUndo(fmt.Sprintf("Unparent %d skinned objects", len(done)))
	}
	return done, errs
}
