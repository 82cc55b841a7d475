package baker

import (
	"errors"
	"fmt"
)

// Validation reasons. A bake that fails with one of these changed nothing.
var (
	ErrUnsupportedTarget = errors.New("unsupported target")
	ErrMissingTargetName = errors.New("missing target name")
	ErrDuplicateTarget   = errors.New("duplicate target")
	ErrArmatureNotFound  = errors.New("armature not found")
	ErrNoArmature        = errors.New("no armature")
)

// Operation failure reasons. These happen after the pose was touched.
var (
	ErrModeTransition     = errors.New("mode transition failed")
	ErrApplyFailed        = errors.New("applying armature modifier as shape key failed")
	ErrNoShapeKeyProduced = errors.New("bake did not produce a shape key")
	ErrRenameFailed       = errors.New("renaming baked shape key failed")
	ErrPoseReset          = errors.New("resetting pose failed")
)

// ValidationError reports a precondition that stopped the bake before any mutation.
type ValidationError struct {
	Reason error
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", e.Reason, e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// OperationFailure reports a host operation that failed mid-bake. Err carries
// the host's own error.
type OperationFailure struct {
	Reason error
	Err    error
}

func (e *OperationFailure) Error() string {
	if e.Err == nil {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%v: %v", e.Reason, e.Err)
}

func (e *OperationFailure) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

// IsValidation reports whether err stopped a bake before it mutated anything.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
