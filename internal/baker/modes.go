package baker

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/shapekey-tools/internal/scene"
)

type role int

const (
	roleMesh role = iota
	roleArmature
)

type modeStep struct {
	role role
	mode scene.Mode
}

// bakeSteps is the fixed sequence of editing states a bake walks through:
// OBJECT(mesh) -> POSE(armature) -> OBJECT(mesh) -> POSE(armature) -> OBJECT(mesh).
var bakeSteps = []modeStep{
	{roleMesh, scene.ModeObject},
	{roleArmature, scene.ModePose},
	{roleMesh, scene.ModeObject},
	{roleArmature, scene.ModePose},
	{roleMesh, scene.ModeObject},
}

// resetStep is the step in which bone rotations are cleared.
const resetStep = 3

// modeMachine drives the host through bakeSteps, one step at a time.
type modeMachine struct {
	host     Host
	mesh     string
	armature string
	step     int
	log      *zap.Logger
}

func newModeMachine(host Host, mesh, armature string, log *zap.Logger) *modeMachine {
	return &modeMachine{host: host, mesh: mesh, armature: armature, step: -1, log: log}
}

// advance moves to the next step, making the step's object active and
// switching to its mode.
func (m *modeMachine) advance() error {
	if m.step+1 >= len(bakeSteps) {
		return fmt.Errorf("%w: no step after %d", ErrModeTransition, m.step)
	}
	next := bakeSteps[m.step+1]

	name := m.mesh
	if next.role == roleArmature {
		name = m.armature
	}
	if err := m.host.SetActive(name); err != nil {
		return &OperationFailure{Reason: ErrModeTransition, Err: err}
	}
	if err := m.host.ModeSet(next.mode); err != nil {
		return &OperationFailure{Reason: ErrModeTransition, Err: err}
	}
	m.step++
	m.log.Debug("bake step", zap.Int("step", m.step), zap.String("object", name), zap.String("mode", string(next.mode)))
	return nil
}
