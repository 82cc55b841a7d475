package sceneio

import (
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/shapekey-tools/internal/scene"
	"github.com/Faultbox/shapekey-tools/pkg/math"
)

// sceneDoc is the YAML scene document.
type sceneDoc struct {
	Active  string      `yaml:"active,omitempty"`
	Mode    scene.Mode  `yaml:"mode,omitempty"`
	Objects []objectDoc `yaml:"objects"`
}

type objectDoc struct {
	Name       string           `yaml:"name"`
	Type       scene.ObjectType `yaml:"type,omitempty"`
	Parent     string           `yaml:"parent,omitempty"`
	ParentType scene.ParentType `yaml:"parent_type,omitempty"`

	// Either matrix (16 values, column-major) or location/rotation/scale.
	// Rotation is XYZ Euler in degrees.
	Location *vec3     `yaml:"location,omitempty"`
	Rotation *vec3     `yaml:"rotation,omitempty"`
	Scale    *vec3     `yaml:"scale,omitempty"`
	Matrix   []float64 `yaml:"matrix,omitempty,flow"`

	Vertices  []vec3        `yaml:"vertices,omitempty"`
	Weights   []weightsDoc  `yaml:"weights,omitempty"`
	ShapeKeys []shapeKeyDoc `yaml:"shape_keys,omitempty"`

	Bones []boneDoc `yaml:"bones,omitempty"`
	Pose  []poseDoc `yaml:"pose,omitempty"`

	Modifiers []modifierDoc `yaml:"modifiers,omitempty"`
}

type shapeKeyDoc struct {
	Name        string  `yaml:"name"`
	Relative    string  `yaml:"relative,omitempty"`
	Value       float64 `yaml:"value,omitempty"`
	VertexGroup string  `yaml:"vertex_group,omitempty"`
	Mute        bool    `yaml:"mute,omitempty"`
	Data        []vec3  `yaml:"data,omitempty"` // omitted: the mesh vertices
}

type boneDoc struct {
	Name   string    `yaml:"name"`
	Parent string    `yaml:"parent,omitempty"`
	Head   *vec3     `yaml:"head,omitempty"`
	Matrix []float64 `yaml:"matrix,omitempty,flow"`
}

type poseDoc struct {
	Bone         string            `yaml:"bone"`
	RotationMode math.RotationMode `yaml:"rotation_mode,omitempty"`
	Rotation     *vec3             `yaml:"rotation,omitempty"`        // degrees
	Quaternion   []float64         `yaml:"quaternion,omitempty,flow"` // w, x, y, z
	Location     *vec3             `yaml:"location,omitempty"`
	Scale        *vec3             `yaml:"scale,omitempty"`
}

type modifierDoc struct {
	Name    string             `yaml:"name"`
	Type    scene.ModifierType `yaml:"type,omitempty"`
	Object  string             `yaml:"object"`
	Enabled *bool              `yaml:"enabled,omitempty"`
}

// vec3 is written as a flow sequence.
type vec3 [3]float64

func (v vec3) MarshalYAML() (any, error) {
	var n yaml.Node
	if err := n.Encode([]float64{v[0], v[1], v[2]}); err != nil {
		return nil, err
	}
	n.Style = yaml.FlowStyle
	return &n, nil
}

func (v vec3) vec() math.Vec3 {
	return math.Vec3{X: float32(v[0]), Y: float32(v[1]), Z: float32(v[2])}
}

func docVec(v math.Vec3) vec3 {
	return vec3{wide(v.X), wide(v.Y), wide(v.Z)}
}

// weightsDoc maps a bone name to a vertex weight, written as a flow mapping.
type weightsDoc map[string]float64

func (w weightsDoc) MarshalYAML() (any, error) {
	var n yaml.Node
	if err := n.Encode(map[string]float64(w)); err != nil {
		return nil, err
	}
	n.Style = yaml.FlowStyle
	return &n, nil
}

// wide widens a float32 without exposing binary noise in the text output.
func wide(f float32) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	if err != nil {
		return float64(f)
	}
	return v
}

func matrixFromDoc(values []float64) (math.Mat4, error) {
	if len(values) != 16 {
		return math.Mat4{}, fmt.Errorf("%w: matrix needs 16 values, got %d", ErrInvalidDocument, len(values))
	}
	var m [16]float64
	copy(m[:], values)
	return math.Mat4FromFloat64(m), nil
}

func matrixToDoc(m math.Mat4) []float64 {
	out := make([]float64, len(m))
	for i, v := range m {
		out[i] = wide(v)
	}
	return out
}

// ParseYAML builds a scene from a YAML scene document.
func ParseYAML(data []byte) (*scene.Scene, error) {
	var doc sceneDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	s := scene.New()
	for i := range doc.Objects {
		obj, err := doc.Objects[i].object()
		if err != nil {
			return nil, err
		}
		if err := s.Add(obj); err != nil {
			return nil, err
		}
	}

	if doc.Active != "" {
		if err := s.SetActive(doc.Active); err != nil {
			return nil, fmt.Errorf("%w: active: %v", ErrInvalidDocument, err)
		}
	}
	if doc.Mode != "" {
		if err := s.ModeSet(doc.Mode); err != nil {
			return nil, fmt.Errorf("%w: mode: %v", ErrInvalidDocument, err)
		}
	}
	return s, nil
}

func (d *objectDoc) object() (*scene.Object, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("%w: object without a name", ErrInvalidDocument)
	}
	obj := &scene.Object{
		Name:       d.Name,
		Type:       d.Type,
		Parent:     d.Parent,
		ParentType: d.ParentType,
	}
	if obj.Type == "" {
		switch {
		case len(d.Vertices) > 0:
			obj.Type = scene.TypeMesh
		case len(d.Bones) > 0:
			obj.Type = scene.TypeArmature
		default:
			obj.Type = scene.TypeEmpty
		}
	}
	if obj.Parent != "" && obj.ParentType == "" {
		obj.ParentType = scene.ParentObject
	}

	m, err := d.matrix()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name, err)
	}
	obj.Matrix = m

	switch obj.Type {
	case scene.TypeMesh:
		mesh, err := d.mesh()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name, err)
		}
		obj.Mesh = mesh
	case scene.TypeArmature:
		arm, err := d.armature()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name, err)
		}
		obj.Armature = arm
	}

	for _, md := range d.Modifiers {
		mod := &scene.Modifier{
			Name:    md.Name,
			Type:    md.Type,
			Object:  md.Object,
			Enabled: md.Enabled == nil || *md.Enabled,
		}
		if mod.Type == "" {
			mod.Type = scene.ModifierArmature
		}
		if mod.Name == "" {
			mod.Name = mod.Object
		}
		obj.Modifiers = append(obj.Modifiers, mod)
	}
	return obj, nil
}

func (d *objectDoc) matrix() (math.Mat4, error) {
	if len(d.Matrix) > 0 {
		return matrixFromDoc(d.Matrix)
	}
	loc := math.Vec3{}
	if d.Location != nil {
		loc = d.Location.vec()
	}
	rot := math.Euler{}
	if d.Rotation != nil {
		rot = math.EulerFromDegrees(d.Rotation[0], d.Rotation[1], d.Rotation[2])
	}
	scale := math.Vec3{X: 1, Y: 1, Z: 1}
	if d.Scale != nil {
		scale = d.Scale.vec()
	}
	return math.Compose(loc, rot.ToMat4(), scale), nil
}

func (d *objectDoc) mesh() (*scene.Mesh, error) {
	mesh := &scene.Mesh{Vertices: make([]math.Vec3, len(d.Vertices))}
	for i, v := range d.Vertices {
		mesh.Vertices[i] = v.vec()
	}

	if len(d.Weights) > 0 {
		mesh.Weights = make([][]scene.VertexWeight, len(d.Weights))
		for i, w := range d.Weights {
			groups := make([]string, 0, len(w))
			for g := range w {
				groups = append(groups, g)
			}
			sort.Strings(groups)
			for _, g := range groups {
				mesh.Weights[i] = append(mesh.Weights[i], scene.VertexWeight{Group: g, Weight: float32(w[g])})
			}
		}
	}

	if len(d.ShapeKeys) == 0 {
		return mesh, nil
	}
	mesh.ShapeKeys = &scene.ShapeKeys{}
	for i, kd := range d.ShapeKeys {
		if kd.Name == "" {
			return nil, fmt.Errorf("%w: shape key %d without a name", ErrInvalidDocument, i)
		}
		key := &scene.ShapeKey{
			Name:        kd.Name,
			Relative:    kd.Relative,
			Value:       float32(kd.Value),
			VertexGroup: kd.VertexGroup,
			Mute:        kd.Mute,
		}
		if kd.Data == nil {
			key.Data = make([]math.Vec3, len(mesh.Vertices))
			copy(key.Data, mesh.Vertices)
		} else {
			key.Data = make([]math.Vec3, len(kd.Data))
			for j, v := range kd.Data {
				key.Data[j] = v.vec()
			}
		}
		if i > 0 && key.Relative == "" {
			key.Relative = d.ShapeKeys[0].Name
		}
		mesh.ShapeKeys.Blocks = append(mesh.ShapeKeys.Blocks, key)
	}
	return mesh, nil
}

func (d *objectDoc) armature() (*scene.Armature, error) {
	bones := make([]*scene.Bone, 0, len(d.Bones))
	for _, bd := range d.Bones {
		if bd.Name == "" {
			return nil, fmt.Errorf("%w: bone without a name", ErrInvalidDocument)
		}
		bone := &scene.Bone{Name: bd.Name, Parent: bd.Parent, Rest: math.Identity()}
		switch {
		case len(bd.Matrix) > 0:
			m, err := matrixFromDoc(bd.Matrix)
			if err != nil {
				return nil, fmt.Errorf("bone %s: %w", bd.Name, err)
			}
			bone.Rest = m
		case bd.Head != nil:
			head := bd.Head.vec()
			bone.Rest = math.Translate(head.X, head.Y, head.Z)
		}
		bones = append(bones, bone)
	}
	arm := scene.NewArmature(bones)

	for _, pd := range d.Pose {
		pb := arm.PoseBone(pd.Bone)
		if pb == nil {
			return nil, fmt.Errorf("%w: pose for unknown bone %q", ErrInvalidDocument, pd.Bone)
		}
		if pd.RotationMode != "" {
			pb.RotationMode = pd.RotationMode
		}
		if pd.Rotation != nil {
			pb.RotationEuler = math.EulerFromDegrees(pd.Rotation[0], pd.Rotation[1], pd.Rotation[2])
		}
		if len(pd.Quaternion) > 0 {
			if len(pd.Quaternion) != 4 {
				return nil, fmt.Errorf("%w: bone %s: quaternion needs 4 values", ErrInvalidDocument, pd.Bone)
			}
			q := pd.Quaternion
			pb.RotationQuaternion = math.Quat{W: float32(q[0]), X: float32(q[1]), Y: float32(q[2]), Z: float32(q[3])}
		}
		if pd.Location != nil {
			pb.Location = pd.Location.vec()
		}
		if pd.Scale != nil {
			pb.Scale = pd.Scale.vec()
		}
	}
	return arm, nil
}

// MarshalYAML writes a scene as a YAML scene document. Transforms are
// written in matrix form.
func MarshalYAML(s *scene.Scene) ([]byte, error) {
	doc := sceneDoc{Mode: s.Mode()}
	if active := s.Active(); active != nil {
		doc.Active = active.Name
	}
	for _, obj := range s.Objects() {
		doc.Objects = append(doc.Objects, objectToDoc(obj))
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("encode scene: %w", err)
	}
	return data, nil
}

func objectToDoc(obj *scene.Object) objectDoc {
	d := objectDoc{
		Name:       obj.Name,
		Type:       obj.Type,
		Parent:     obj.Parent,
		ParentType: obj.ParentType,
	}
	if !obj.Matrix.IsIdentity() {
		d.Matrix = matrixToDoc(obj.Matrix)
	}

	if mesh := obj.Mesh; mesh != nil {
		for _, v := range mesh.Vertices {
			d.Vertices = append(d.Vertices, docVec(v))
		}
		for _, ws := range mesh.Weights {
			w := weightsDoc{}
			for _, vw := range ws {
				w[vw.Group] = wide(vw.Weight)
			}
			d.Weights = append(d.Weights, w)
		}
		if mesh.ShapeKeys != nil {
			for _, k := range mesh.ShapeKeys.Blocks {
				kd := shapeKeyDoc{
					Name:        k.Name,
					Relative:    k.Relative,
					Value:       wide(k.Value),
					VertexGroup: k.VertexGroup,
					Mute:        k.Mute,
				}
				for _, v := range k.Data {
					kd.Data = append(kd.Data, docVec(v))
				}
				d.ShapeKeys = append(d.ShapeKeys, kd)
			}
		}
	}

	if arm := obj.Armature; arm != nil {
		for _, b := range arm.Bones {
			d.Bones = append(d.Bones, boneDoc{Name: b.Name, Parent: b.Parent, Matrix: matrixToDoc(b.Rest)})
		}
		for _, pb := range arm.Pose {
			if pd, ok := poseToDoc(pb); ok {
				d.Pose = append(d.Pose, pd)
			}
		}
	}

	for _, m := range obj.Modifiers {
		enabled := m.Enabled
		d.Modifiers = append(d.Modifiers, modifierDoc{Name: m.Name, Type: m.Type, Object: m.Object, Enabled: &enabled})
	}
	return d
}

// poseToDoc returns the pose entry of a bone, or false when it is at rest.
func poseToDoc(pb *scene.PoseBone) (poseDoc, bool) {
	rest := scene.NewPoseBone(pb.Name)
	if *pb == *rest {
		return poseDoc{}, false
	}
	pd := poseDoc{Bone: pb.Name, RotationMode: pb.RotationMode}
	if !pb.RotationEuler.IsZero() {
		e := pb.RotationEuler
		pd.Rotation = &vec3{math.Degrees(e.X), math.Degrees(e.Y), math.Degrees(e.Z)}
	}
	if pb.RotationQuaternion != rest.RotationQuaternion {
		q := pb.RotationQuaternion
		pd.Quaternion = []float64{wide(q.W), wide(q.X), wide(q.Y), wide(q.Z)}
	}
	if pb.Location != rest.Location {
		v := docVec(pb.Location)
		pd.Location = &v
	}
	if pb.Scale != rest.Scale {
		v := docVec(pb.Scale)
		pd.Scale = &v
	}
	return pd, true
}
