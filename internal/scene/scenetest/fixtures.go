// Package scenetest builds small rigged scenes for tests.
package scenetest

import (
	"github.com/Faultbox/shapekey-tools/internal/scene"
	"github.com/Faultbox/shapekey-tools/pkg/math"
)

// Fixture object and bone names.
const (
	MeshName     = "Face"
	ArmatureName = "Armature"
	ModifierName = "Armature"
	RootBone     = "B1"
	ChildBone    = "B2"
)

// Vertices of the fixture mesh:
//
//	0: (1,0,0) fully on B1
//	1: (0,2,0) fully on B2
//	2: (5,5,5) unweighted
//	3: (0,1,1) half B1, half B2
var Vertices = []math.Vec3{
	{X: 1, Y: 0, Z: 0},
	{X: 0, Y: 2, Z: 0},
	{X: 5, Y: 5, Z: 5},
	{X: 0, Y: 1, Z: 1},
}

// NewArmatureObject returns a two-bone chain: B1 at the origin, B2 at (0,1,0).
func NewArmatureObject(name string) *scene.Object {
	return &scene.Object{
		Name:   name,
		Type:   scene.TypeArmature,
		Matrix: math.Identity(),
		Armature: scene.NewArmature([]*scene.Bone{
			{Name: RootBone, Rest: math.Translate(0, 0, 0)},
			{Name: ChildBone, Parent: RootBone, Rest: math.Translate(0, 1, 0)},
		}),
	}
}

// NewMeshObject returns the fixture mesh with an armature modifier targeting armature.
// The mesh has no shape keys.
func NewMeshObject(name, armature string) *scene.Object {
	verts := make([]math.Vec3, len(Vertices))
	copy(verts, Vertices)
	return &scene.Object{
		Name:       name,
		Type:       scene.TypeMesh,
		Parent:     armature,
		ParentType: scene.ParentArmature,
		Matrix:     math.Identity(),
		Mesh: &scene.Mesh{
			Vertices: verts,
			Weights: [][]scene.VertexWeight{
				{{Group: RootBone, Weight: 1}},
				{{Group: ChildBone, Weight: 1}},
				nil,
				{{Group: RootBone, Weight: 0.5}, {Group: ChildBone, Weight: 0.5}},
			},
		},
		Modifiers: []*scene.Modifier{
			{Name: ModifierName, Type: scene.ModifierArmature, Object: armature, Enabled: true},
		},
	}
}

// RigScene returns a scene with the fixture armature and mesh, the mesh
// active, in object mode, with an initial undo step.
func RigScene() *scene.Scene {
	s := scene.New()
	mustAdd(s, NewArmatureObject(ArmatureName))
	mustAdd(s, NewMeshObject(MeshName, ArmatureName))
	if err := s.SetActive(MeshName); err != nil {
		panic(err)
	}
	s.PushUndo("Original")
	return s
}

// WithBasis adds a reference key plus the named keys to the mesh. Each extra
// key moves the first `moved` vertices by +1 on X.
func WithBasis(s *scene.Scene, moved int, names ...string) *scene.Scene {
	mesh := s.Object(MeshName).Mesh
	basis := &scene.ShapeKey{Name: scene.ReferenceKeyName, Data: clone(mesh.Vertices)}
	mesh.ShapeKeys = &scene.ShapeKeys{Blocks: []*scene.ShapeKey{basis}}
	for _, name := range names {
		data := clone(mesh.Vertices)
		for i := 0; i < moved && i < len(data); i++ {
			data[i].X++
		}
		mesh.ShapeKeys.Blocks = append(mesh.ShapeKeys.Blocks, &scene.ShapeKey{
			Name:     name,
			Data:     data,
			Relative: basis.Name,
		})
	}
	return s
}

func clone(vs []math.Vec3) []math.Vec3 {
	out := make([]math.Vec3, len(vs))
	copy(out, vs)
	return out
}

func mustAdd(s *scene.Scene, obj *scene.Object) {
	if err := s.Add(obj); err != nil {
		panic(err)
	}
}
