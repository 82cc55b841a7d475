package scene

import "github.com/Faultbox/shapekey-tools/pkg/math"

// ObjectType is the kind of data an object carries.
type ObjectType string

const (
	TypeMesh     ObjectType = "MESH"
	TypeArmature ObjectType = "ARMATURE"
	TypeEmpty    ObjectType = "EMPTY"
)

// ParentType describes how an object follows its parent.
type ParentType string

const (
	ParentObject   ParentType = "OBJECT"
	ParentArmature ParentType = "ARMATURE"
)

// ModifierType identifies a modifier kind. Only armature modifiers are modeled.
type ModifierType string

const ModifierArmature ModifierType = "ARMATURE"

// Modifier binds a mesh object to a deforming object.
type Modifier struct {
	Name    string
	Type    ModifierType
	Object  string // armature object name
	Enabled bool
}

// Object is a named node of the scene graph.
type Object struct {
	Name       string
	Type       ObjectType
	Parent     string
	ParentType ParentType
	Matrix     math.Mat4 // local transform relative to the parent

	Mesh      *Mesh
	Armature  *Armature
	Modifiers []*Modifier
}

// Modifier returns the modifier with the given name, or nil.
func (o *Object) Modifier(name string) *Modifier {
	for _, m := range o.Modifiers {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// ArmatureModifiers returns the armature modifiers in stack order.
func (o *Object) ArmatureModifiers() []*Modifier {
	var mods []*Modifier
	for _, m := range o.Modifiers {
		if m.Type == ModifierArmature {
			mods = append(mods, m)
		}
	}
	return mods
}

// HasArmatureModifier reports whether any modifier is an armature modifier.
func (o *Object) HasArmatureModifier() bool {
	return len(o.ArmatureModifiers()) > 0
}

// SupportsShapeKeys reports whether the object's data can hold shape keys.
func (o *Object) SupportsShapeKeys() bool {
	return o.Type == TypeMesh && o.Mesh != nil
}

func (o *Object) removeModifier(name string) {
	for i, m := range o.Modifiers {
		if m.Name == name {
			o.Modifiers = append(o.Modifiers[:i], o.Modifiers[i+1:]...)
			return
		}
	}
}
