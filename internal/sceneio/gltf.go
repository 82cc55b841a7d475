package sceneio

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/shapekey-tools/internal/scene"
	"github.com/Faultbox/shapekey-tools/pkg/math"
)

const (
	attrPosition      = "POSITION"
	attrJoints        = "JOINTS_0"
	attrWeights       = "WEIGHTS_0"
	extrasTargetNames = "targetNames"
)

// GLTFBinding ties a scene decoded from a glTF document to that document so
// edited shape keys can be written back as morph targets.
type GLTFBinding struct {
	Doc   *gltf.Document
	Scene *scene.Scene

	meshes      map[string]int // object name -> mesh index
	targetNames map[int][]string
	positions   map[int][]math.Vec3
}

// OpenGLTF reads a .gltf or .glb file and decodes it into a scene.
func OpenGLTF(path string) (*GLTFBinding, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	return DecodeGLTF(doc)
}

// DecodeGLTF builds a scene from a glTF document.
//
// Skins become armature objects with one bone per joint. Other nodes become
// objects; nodes carrying a mesh become mesh objects built from the first
// primitive. Morph targets become shape keys on top of a "Basis" reference
// key. Skinned meshes get an armature modifier and armature parenting.
func DecodeGLTF(doc *gltf.Document) (*GLTFBinding, error) {
	d := &gltfDecoder{
		doc:     doc,
		s:       scene.New(),
		used:    make(map[string]bool),
		parent:  make(map[int]int),
		jointOf: make(map[int]int),
		binding: &GLTFBinding{
			Doc:         doc,
			meshes:      make(map[string]int),
			targetNames: make(map[int][]string),
			positions:   make(map[int][]math.Vec3),
		},
	}
	if err := d.decode(); err != nil {
		return nil, err
	}
	d.binding.Scene = d.s
	return d.binding, nil
}

type gltfDecoder struct {
	doc *gltf.Document
	s   *scene.Scene

	used      map[string]bool
	parent    map[int]int // node -> parent node
	jointOf   map[int]int // joint node -> skin
	armatures []string    // per skin
	bones     [][]string  // per skin, per joint
	objects   map[int]string
	binding   *GLTFBinding
}

func (d *gltfDecoder) decode() error {
	for i, n := range d.doc.Nodes {
		for _, c := range n.Children {
			d.parent[c] = i
		}
	}
	for si, skin := range d.doc.Skins {
		for _, j := range skin.Joints {
			if _, ok := d.jointOf[j]; !ok {
				d.jointOf[j] = si
			}
		}
	}

	for si := range d.doc.Skins {
		if err := d.decodeSkin(si); err != nil {
			return fmt.Errorf("skin %d: %w", si, err)
		}
	}

	// Names first so parents can be referenced regardless of node order.
	d.objects = make(map[int]string)
	for i, n := range d.doc.Nodes {
		if _, joint := d.jointOf[i]; joint {
			continue
		}
		name := n.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		d.objects[i] = d.unique(name)
	}
	for i := range d.doc.Nodes {
		if _, ok := d.objects[i]; !ok {
			continue
		}
		if err := d.decodeNode(i); err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
	}

	if meshes := d.s.Meshes(); len(meshes) > 0 {
		if err := d.s.SetActive(meshes[0].Name); err != nil {
			return err
		}
	}
	return nil
}

func (d *gltfDecoder) unique(base string) string {
	name := base
	for i := 1; d.used[name]; i++ {
		name = fmt.Sprintf("%s.%03d", base, i)
	}
	d.used[name] = true
	return name
}

func (d *gltfDecoder) decodeSkin(si int) error {
	skin := d.doc.Skins[si]

	var ibms [][4][4]float32
	if skin.InverseBindMatrices != nil {
		acr, err := d.accessor(*skin.InverseBindMatrices)
		if err != nil {
			return err
		}
		data, err := modeler.ReadAccessor(d.doc, acr, nil)
		if err != nil {
			return fmt.Errorf("read inverse bind matrices: %w", err)
		}
		var ok bool
		if ibms, ok = data.([][4][4]float32); !ok {
			return fmt.Errorf("%w: inverse bind matrices are not float MAT4", ErrInvalidDocument)
		}
	}

	names := make([]string, len(skin.Joints))
	used := make(map[string]bool)
	index := make(map[int]int)
	for ji, nodeIdx := range skin.Joints {
		if nodeIdx < 0 || nodeIdx >= len(d.doc.Nodes) {
			return fmt.Errorf("%w: joint %d: invalid node index %d", ErrInvalidDocument, ji, nodeIdx)
		}
		name := d.doc.Nodes[nodeIdx].Name
		if name == "" {
			name = fmt.Sprintf("bone_%d", ji)
		}
		for base, n := name, 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%03d", base, n)
		}
		used[name] = true
		names[ji] = name
		index[nodeIdx] = ji
	}

	bones := make([]*scene.Bone, len(skin.Joints))
	for ji, nodeIdx := range skin.Joints {
		bone := &scene.Bone{Name: names[ji]}
		if ji < len(ibms) {
			bone.Rest = mat4FromColumns(ibms[ji]).Inverse()
		} else {
			bone.Rest = d.world(nodeIdx)
		}
		if p, ok := d.parent[nodeIdx]; ok {
			if pj, ok := index[p]; ok {
				bone.Parent = names[pj]
			}
		}
		bones[ji] = bone
	}

	base := skin.Name
	if base == "" {
		base = "Armature"
	}
	obj := &scene.Object{
		Name:     d.unique(base),
		Type:     scene.TypeArmature,
		Matrix:   math.Identity(),
		Armature: scene.NewArmature(bones),
	}
	if err := d.s.Add(obj); err != nil {
		return err
	}
	d.armatures = append(d.armatures, obj.Name)
	d.bones = append(d.bones, names)
	return nil
}

func (d *gltfDecoder) decodeNode(i int) error {
	n := d.doc.Nodes[i]
	obj := &scene.Object{
		Name:   d.objects[i],
		Type:   scene.TypeEmpty,
		Matrix: nodeMatrix(n),
	}

	skinned := n.Skin != nil && n.Mesh != nil && *n.Skin >= 0 && *n.Skin < len(d.armatures)
	switch {
	case skinned:
		// Joint matrices already place skinned vertices in the scene.
		arm := d.armatures[*n.Skin]
		obj.Parent = arm
		obj.ParentType = scene.ParentArmature
		obj.Matrix = math.Identity()
		obj.Modifiers = []*scene.Modifier{{Name: arm, Type: scene.ModifierArmature, Object: arm, Enabled: true}}
	default:
		if p, ok := d.parent[i]; ok {
			if name, ok := d.objects[p]; ok {
				obj.Parent = name
				obj.ParentType = scene.ParentObject
			} else {
				// parented to a joint: keep the world placement
				obj.Matrix = d.world(i)
			}
		}
	}

	if n.Mesh != nil {
		skin := -1
		if skinned {
			skin = *n.Skin
		}
		mesh, err := d.decodeMesh(*n.Mesh, skin)
		if err != nil {
			return fmt.Errorf("mesh %d: %w", *n.Mesh, err)
		}
		if mesh != nil {
			obj.Type = scene.TypeMesh
			obj.Mesh = mesh
			if !d.bound(*n.Mesh) {
				d.binding.meshes[obj.Name] = *n.Mesh
			}
		}
	}
	return d.s.Add(obj)
}

func (d *gltfDecoder) bound(meshIdx int) bool {
	for _, mi := range d.binding.meshes {
		if mi == meshIdx {
			return true
		}
	}
	return false
}

// decodeMesh reads the first primitive of a mesh. It returns nil for a mesh
// without positions.
func (d *gltfDecoder) decodeMesh(meshIdx, skin int) (*scene.Mesh, error) {
	if meshIdx < 0 || meshIdx >= len(d.doc.Meshes) {
		return nil, fmt.Errorf("%w: invalid mesh index", ErrInvalidDocument)
	}
	gm := d.doc.Meshes[meshIdx]
	if len(gm.Primitives) == 0 {
		return nil, nil
	}
	prim := gm.Primitives[0]
	posIdx, ok := prim.Attributes[attrPosition]
	if !ok {
		return nil, nil
	}
	positions, err := d.readPositions(posIdx)
	if err != nil {
		return nil, err
	}

	mesh := &scene.Mesh{Vertices: make([]math.Vec3, len(positions))}
	for i, p := range positions {
		mesh.Vertices[i] = math.Vec3FromArray(p)
	}
	if _, ok := d.binding.positions[meshIdx]; !ok {
		d.binding.positions[meshIdx] = copyVertices(mesh.Vertices)
	}

	if skin >= 0 {
		weights, err := d.readWeights(prim, d.bones[skin])
		if err != nil {
			return nil, err
		}
		mesh.Weights = weights
	}

	if len(prim.Targets) == 0 {
		return mesh, nil
	}
	names := targetNames(gm.Extras)
	d.binding.targetNames[meshIdx] = names

	basis := &scene.ShapeKey{Name: scene.ReferenceKeyName, Data: copyVertices(mesh.Vertices)}
	mesh.ShapeKeys = &scene.ShapeKeys{Blocks: []*scene.ShapeKey{basis}}
	for ti, target := range prim.Targets {
		name := fmt.Sprintf("Key %d", ti+1)
		if ti < len(names) && names[ti] != "" {
			name = names[ti]
		}
		for base, n := name, 1; mesh.ShapeKeys.Has(name); n++ {
			name = fmt.Sprintf("%s.%03d", base, n)
		}
		key := &scene.ShapeKey{Name: name, Data: copyVertices(mesh.Vertices), Relative: basis.Name}
		if ti < len(gm.Weights) {
			key.Value = float32(gm.Weights[ti])
		}
		if idx, ok := target[attrPosition]; ok {
			deltas, err := d.readPositions(idx)
			if err != nil {
				return nil, fmt.Errorf("target %d: %w", ti, err)
			}
			for i := 0; i < len(deltas) && i < len(key.Data); i++ {
				key.Data[i] = key.Data[i].Add(math.Vec3FromArray(deltas[i]))
			}
		}
		mesh.ShapeKeys.Blocks = append(mesh.ShapeKeys.Blocks, key)
	}
	return mesh, nil
}

func (d *gltfDecoder) readWeights(prim *gltf.Primitive, bones []string) ([][]scene.VertexWeight, error) {
	jIdx, okJ := prim.Attributes[attrJoints]
	wIdx, okW := prim.Attributes[attrWeights]
	if !okJ || !okW {
		return nil, nil
	}
	jAcr, err := d.accessor(jIdx)
	if err != nil {
		return nil, err
	}
	wAcr, err := d.accessor(wIdx)
	if err != nil {
		return nil, err
	}
	joints, err := modeler.ReadJoints(d.doc, jAcr, nil)
	if err != nil {
		return nil, fmt.Errorf("read joints: %w", err)
	}
	weights, err := modeler.ReadWeights(d.doc, wAcr, nil)
	if err != nil {
		return nil, fmt.Errorf("read weights: %w", err)
	}

	out := make([][]scene.VertexWeight, len(joints))
	for v := range joints {
		if v >= len(weights) {
			break
		}
		for k := 0; k < 4; k++ {
			j, w := int(joints[v][k]), weights[v][k]
			if w <= 0 || j >= len(bones) {
				continue
			}
			out[v] = append(out[v], scene.VertexWeight{Group: bones[j], Weight: w})
		}
	}
	return out, nil
}

func (d *gltfDecoder) readPositions(idx int) ([][3]float32, error) {
	acr, err := d.accessor(idx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(d.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}
	return positions, nil
}

func (d *gltfDecoder) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(d.doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d out of range", ErrInvalidDocument, idx)
	}
	return d.doc.Accessors[idx], nil
}

// world returns a node's transform in glTF scene space.
func (d *gltfDecoder) world(i int) math.Mat4 {
	m := nodeMatrix(d.doc.Nodes[i])
	for depth := 0; depth < len(d.doc.Nodes); depth++ {
		p, ok := d.parent[i]
		if !ok {
			break
		}
		m = nodeMatrix(d.doc.Nodes[p]).Mul(m)
		i = p
	}
	return m
}

func nodeMatrix(n *gltf.Node) math.Mat4 {
	if m := math.Mat4FromFloat64(n.MatrixOrDefault()); !m.IsIdentity() {
		return m
	}
	t, r, s := n.TranslationOrDefault(), n.RotationOrDefault(), n.ScaleOrDefault()
	q := math.Quat{X: float32(r[0]), Y: float32(r[1]), Z: float32(r[2]), W: float32(r[3])}
	return math.Compose(
		math.Vec3{X: float32(t[0]), Y: float32(t[1]), Z: float32(t[2])},
		q.ToMat4(),
		math.Vec3{X: float32(s[0]), Y: float32(s[1]), Z: float32(s[2])},
	)
}

func mat4FromColumns(c [4][4]float32) math.Mat4 {
	var m math.Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			m[col*4+row] = c[col][row]
		}
	}
	return m
}

func copyVertices(vs []math.Vec3) []math.Vec3 {
	out := make([]math.Vec3, len(vs))
	copy(out, vs)
	return out
}

// targetNames reads extras.targetNames, whatever shape the extras were decoded into.
func targetNames(extras any) []string {
	if extras == nil {
		return nil
	}
	raw, err := json.Marshal(extras)
	if err != nil {
		return nil
	}
	var v struct {
		TargetNames []string `json:"targetNames"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v.TargetNames
}

func withTargetNames(extras any, names []string) any {
	m := make(map[string]any)
	if extras != nil {
		if raw, err := json.Marshal(extras); err == nil {
			_ = json.Unmarshal(raw, &m)
		}
	}
	if len(names) == 0 {
		delete(m, extrasTargetNames)
	} else {
		m[extrasTargetNames] = names
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// Write stores the current shape keys of every bound mesh object back into
// the document: one morph target per non-reference key, holding position
// deltas against the reference key, plus target names and default weights.
// Changed vertex positions replace the first primitive's POSITION. Object
// transforms and parenting are not written back.
func (b *GLTFBinding) Write() error {
	objects := make([]string, 0, len(b.meshes))
	for name := range b.meshes {
		objects = append(objects, name)
	}
	sort.Strings(objects)

	for _, name := range objects {
		obj := b.Scene.Object(name)
		if obj == nil || obj.Mesh == nil {
			continue
		}
		if err := b.writeMesh(b.meshes[name], obj.Mesh); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (b *GLTFBinding) writeMesh(meshIdx int, mesh *scene.Mesh) error {
	gm := b.Doc.Meshes[meshIdx]
	if err := b.writePositions(meshIdx, mesh.Vertices); err != nil {
		return err
	}
	keys := mesh.ShapeKeys
	ref := keys.Reference()

	var (
		names   []string
		weights []float64
		targets []gltf.PrimitiveAttributes
	)
	if keys.Len() > 1 {
		for _, k := range keys.Blocks[1:] {
			if len(k.Data) != len(ref.Data) {
				return fmt.Errorf("%w: shape key %q has %d coordinates, reference has %d",
					ErrInvalidDocument, k.Name, len(k.Data), len(ref.Data))
			}
			deltas := make([][3]float32, len(k.Data))
			for i, v := range k.Data {
				deltas[i] = v.Sub(ref.Data[i]).Array()
			}
			targets = append(targets, gltf.PrimitiveAttributes{attrPosition: modeler.WritePosition(b.Doc, deltas)})
			names = append(names, k.Name)
			weights = append(weights, float64(k.Value))
		}
	}

	original := b.targetNames[meshIdx]
	for pi, prim := range gm.Primitives {
		if pi == 0 {
			prim.Targets = targets
			continue
		}
		// Other primitives keep their own deltas for surviving keys and
		// get empty deltas for new ones.
		prim.Targets = b.secondaryTargets(prim, original, names)
	}
	gm.Weights = weights
	gm.Extras = withTargetNames(gm.Extras, names)
	b.targetNames[meshIdx] = names
	return nil
}

func (b *GLTFBinding) writePositions(meshIdx int, vertices []math.Vec3) error {
	original := b.positions[meshIdx]
	if len(vertices) != len(original) {
		return fmt.Errorf("%w: mesh has %d vertices, primitive has %d", ErrInvalidDocument, len(vertices), len(original))
	}
	changed := false
	for i := range vertices {
		if vertices[i] != original[i] {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}
	data := make([][3]float32, len(vertices))
	for i, v := range vertices {
		data[i] = v.Array()
	}
	b.Doc.Meshes[meshIdx].Primitives[0].Attributes[attrPosition] = modeler.WritePosition(b.Doc, data)
	b.positions[meshIdx] = copyVertices(vertices)
	return nil
}

func (b *GLTFBinding) secondaryTargets(prim *gltf.Primitive, original, names []string) []gltf.PrimitiveAttributes {
	if len(names) == 0 {
		return nil
	}
	count := 0
	if idx, ok := prim.Attributes[attrPosition]; ok && idx >= 0 && idx < len(b.Doc.Accessors) {
		count = b.Doc.Accessors[idx].Count
	}
	var zero int
	zeroWritten := false

	out := make([]gltf.PrimitiveAttributes, len(names))
	for i, name := range names {
		if j := indexOf(original, name); j >= 0 && j < len(prim.Targets) {
			out[i] = prim.Targets[j]
			continue
		}
		if !zeroWritten {
			zero = modeler.WritePosition(b.Doc, make([][3]float32, count))
			zeroWritten = true
		}
		out[i] = gltf.PrimitiveAttributes{attrPosition: zero}
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// Save writes the bound shape keys into the document and saves it, as
// binary glTF for .glb paths and as JSON glTF otherwise.
func (b *GLTFBinding) Save(path string) error {
	if err := b.Write(); err != nil {
		return err
	}

	var err error
	if DetectFormat(path) == FormatGLB {
		if len(b.Doc.Buffers) > 0 && !strings.HasPrefix(b.Doc.Buffers[0].URI, "data:") {
			b.Doc.Buffers[0].URI = ""
		}
		err = gltf.SaveBinary(b.Doc, path)
	} else {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		for i, buf := range b.Doc.Buffers {
			if buf.URI != "" {
				continue
			}
			buf.URI = base + ".bin"
			if i > 0 {
				buf.URI = fmt.Sprintf("%s_%d.bin", base, i)
			}
		}
		err = gltf.Save(b.Doc, path)
	}
	if err != nil {
		return fmt.Errorf("save gltf: %w", err)
	}
	return nil
}
