package sceneio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/Faultbox/shapekey-tools/internal/scene"
	"github.com/Faultbox/shapekey-tools/internal/scene/scenetest"
	"github.com/Faultbox/shapekey-tools/pkg/math"
)

const rigYAML = `
active: Face
objects:
  - name: Armature
    type: ARMATURE
    location: [0, 0, 1]
    bones:
      - name: B1
      - name: B2
        parent: B1
        head: [0, 1, 0]
    pose:
      - bone: B2
        rotation: [90, 0, 0]
  - name: Face
    parent: Armature
    parent_type: ARMATURE
    vertices:
      - [1, 0, 0]
      - [0, 2, 0]
    weights:
      - {B1: 1}
      - {B2: 1}
    shape_keys:
      - name: Basis
      - name: Smile
        value: 0.5
        data:
          - [1, 0, 0]
          - [0, 2, 1]
    modifiers:
      - name: Armature
        object: Armature
`

func TestParseYAML(t *testing.T) {
	s, err := ParseYAML([]byte(rigYAML))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	arm := s.Object("Armature")
	if got := arm.Matrix.Translation(); got != (math.Vec3{Z: 1}) {
		t.Errorf("armature location = %v", got)
	}
	if got := arm.Armature.Bone("B2").Rest.Translation(); got != (math.Vec3{Y: 1}) {
		t.Errorf("B2 head = %v", got)
	}
	if got := arm.Armature.PoseBone("B2").RotationEuler.X; abs(got-math.Radians(90)) > 1e-6 {
		t.Errorf("B2 rotation = %v", got)
	}

	face := s.Object("Face")
	if face.Type != scene.TypeMesh {
		t.Errorf("type = %s, want MESH", face.Type)
	}
	if s.Active() != face {
		t.Errorf("active = %v", s.Active())
	}
	if diff := cmp.Diff([]string{"Basis", "Smile"}, face.Mesh.ShapeKeys.Names()); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
	basis := face.Mesh.ShapeKeys.Get("Basis")
	if diff := cmp.Diff(face.Mesh.Vertices, basis.Data); diff != "" {
		t.Errorf("omitted data should copy vertices (-want +got):\n%s", diff)
	}
	smile := face.Mesh.ShapeKeys.Get("Smile")
	if smile.Relative != "Basis" || smile.Value != 0.5 {
		t.Errorf("smile = %+v", smile)
	}
	mod := face.Modifier("Armature")
	if mod == nil || !mod.Enabled || mod.Type != scene.ModifierArmature {
		t.Errorf("modifier = %+v", mod)
	}
	if s.Mode() != scene.ModeObject {
		t.Errorf("mode = %s", s.Mode())
	}
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name:    "not yaml",
			doc:     "objects: [",
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "short matrix",
			doc:     "objects:\n  - name: A\n    matrix: [1, 0, 0]\n",
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "unnamed object",
			doc:     "objects:\n  - type: EMPTY\n",
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "pose for unknown bone",
			doc:     "objects:\n  - name: A\n    bones: [{name: B1}]\n    pose: [{bone: B9, rotation: [1, 0, 0]}]\n",
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "missing active",
			doc:     "active: Nope\nobjects:\n  - name: A\n",
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "pose mode without armature",
			doc:     "active: A\nmode: POSE\nobjects:\n  - name: A\n",
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "duplicate object",
			doc:     "objects:\n  - name: A\n  - name: A\n",
			wantErr: scene.ErrDuplicateObject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.doc))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	want := scenetest.WithBasis(scenetest.RigScene(), 2, "Smile")
	smile := want.Object(scenetest.MeshName).Mesh.ShapeKeys.Get("Smile")
	smile.Value = 0.25
	smile.VertexGroup = scenetest.RootBone
	arm := want.Object(scenetest.ArmatureName)
	arm.Matrix = math.Translate(0, 0.1, 0)
	pb := arm.Armature.PoseBone(scenetest.ChildBone)
	pb.RotationEuler.X = math.Radians(-15)
	pb.Location = math.Vec3{X: 0.5}

	data, err := MarshalYAML(want)
	if err != nil {
		t.Fatalf("MarshalYAML: %v", err)
	}
	got, err := ParseYAML(data)
	if err != nil {
		t.Fatalf("ParseYAML: %v\n%s", err, data)
	}

	if diff := cmp.Diff(want.Objects(), got.Objects(), cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("objects (-want +got):\n%s", diff)
	}
	if got.Active().Name != scenetest.MeshName {
		t.Errorf("active = %s", got.Active().Name)
	}
}

func TestLoadAndSaveYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rig.yaml")
	if err := os.WriteFile(path, []byte(rigYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Format != FormatYAML {
		t.Errorf("format = %s", doc.Format)
	}
	if diff := cmp.Diff([]string{OriginalUndoLabel}, doc.Scene.UndoHistory()); diff != "" {
		t.Errorf("undo history (-want +got):\n%s", diff)
	}

	if err := doc.Scene.RemoveShapeKey("Face", "Smile"); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.yml")
	if err := doc.Save(out); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := Load(out, nil)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if n := again.Scene.Object("Face").Mesh.ShapeKeyCount(); n != 1 {
		t.Errorf("reloaded key count = %d, want 1", n)
	}

	if err := doc.Save(filepath.Join(dir, "out.glb")); !errors.Is(err, ErrNotGLTFSource) {
		t.Errorf("glb from yaml: err = %v", err)
	}
	if err := doc.Save(filepath.Join(dir, "out.obj")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("unknown extension: err = %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "scene.fbx"), nil); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("unknown format: err = %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml"), nil); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: err = %v", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	doc := "objects:\n  - name: A\n    vertices: [[0, 0, 0]]\n    shape_keys:\n      - name: Basis\n        data: [[0, 0, 0], [1, 1, 1]]\n"
	if err := os.WriteFile(bad, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad, nil); !errors.Is(err, scene.ErrInvalidScene) {
		t.Errorf("invalid scene: err = %v", err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"scene.yaml", FormatYAML},
		{"scene.YML", FormatYAML},
		{"model.gltf", FormatGLTF},
		{"model.glb", FormatGLB},
		{"avatar.vrm", FormatGLB},
		{"model.fbx", FormatUnknown},
		{"noext", FormatUnknown},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.path); got != tt.want {
			t.Errorf("DetectFormat(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
