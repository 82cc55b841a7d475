package scene

import "go.uber.org/zap"

type snapshot struct {
	label   string
	objects []*Object
	active  string
	mode    Mode
}

// PushUndo records the current state as an undo step.
func (s *Scene) PushUndo(label string) {
	s.undo = append(s.undo, snapshot{
		label:   label,
		objects: cloneObjects(s.objects),
		active:  s.active,
		mode:    s.mode,
	})
	s.log.Debug("undo push", zap.String("label", label), zap.Int("depth", len(s.undo)))
}

// Undo restores the state recorded by the step before the latest one and
// returns the label of the step that was undone.
func (s *Scene) Undo() (string, error) {
	if len(s.undo) < 2 {
		return "", ErrNothingToUndo
	}
	undone := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]

	prev := s.undo[len(s.undo)-1]
	s.objects = cloneObjects(prev.objects)
	s.active = prev.active
	s.mode = prev.mode
	return undone.label, nil
}

// UndoHistory returns the labels of recorded steps, oldest first.
func (s *Scene) UndoHistory() []string {
	labels := make([]string, len(s.undo))
	for i, step := range s.undo {
		labels[i] = step.label
	}
	return labels
}

func cloneObjects(objs []*Object) []*Object {
	out := make([]*Object, len(objs))
	for i, o := range objs {
		out[i] = o.Clone()
	}
	return out
}

// Clone returns a deep copy of the object.
func (o *Object) Clone() *Object {
	c := *o
	if o.Mesh != nil {
		c.Mesh = o.Mesh.Clone()
	}
	if o.Armature != nil {
		c.Armature = o.Armature.Clone()
	}
	c.Modifiers = make([]*Modifier, len(o.Modifiers))
	for i, m := range o.Modifiers {
		mc := *m
		c.Modifiers[i] = &mc
	}
	return &c
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{Vertices: copyVecs(m.Vertices)}
	if m.Weights != nil {
		c.Weights = make([][]VertexWeight, len(m.Weights))
		for i, w := range m.Weights {
			c.Weights[i] = append([]VertexWeight(nil), w...)
		}
	}
	if m.ShapeKeys != nil {
		c.ShapeKeys = &ShapeKeys{Blocks: make([]*ShapeKey, len(m.ShapeKeys.Blocks))}
		for i, k := range m.ShapeKeys.Blocks {
			kc := *k
			kc.Data = copyVecs(k.Data)
			c.ShapeKeys.Blocks[i] = &kc
		}
	}
	return c
}

// Clone returns a deep copy of the armature and its pose.
func (a *Armature) Clone() *Armature {
	c := &Armature{
		Bones: make([]*Bone, len(a.Bones)),
		Pose:  make([]*PoseBone, len(a.Pose)),
	}
	for i, b := range a.Bones {
		bc := *b
		c.Bones[i] = &bc
	}
	for i, p := range a.Pose {
		pc := *p
		c.Pose[i] = &pc
	}
	return c
}
