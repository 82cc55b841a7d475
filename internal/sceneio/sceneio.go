// Package sceneio loads and saves scenes as YAML scene documents or glTF 2.0 files.
package sceneio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/shapekey-tools/internal/scene"
)

// Scene I/O errors.
var (
	ErrUnknownFormat   = errors.New("unknown scene file format")
	ErrInvalidDocument = errors.New("invalid scene document")
	ErrNotGLTFSource   = errors.New("glTF output needs a scene loaded from glTF")
)

// OriginalUndoLabel labels the undo step recorded right after loading.
const OriginalUndoLabel = "Original"

// Format identifies a scene file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatYAML
	FormatGLTF // JSON .gltf
	FormatGLB  // binary .glb
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatGLTF:
		return "gltf"
	case FormatGLB:
		return "glb"
	default:
		return "unknown"
	}
}

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".gltf":
		return FormatGLTF
	case ".glb", ".vrm":
		return FormatGLB
	default:
		return FormatUnknown
	}
}

// Document is a loaded scene plus what is needed to write it back.
type Document struct {
	Path   string
	Format Format
	Scene  *scene.Scene

	gltf *GLTFBinding // set for glTF sources
}

// Load reads a scene file. The scene is validated and given an initial
// undo step.
func Load(path string, log *zap.Logger) (*Document, error) {
	if log == nil {
		log = zap.NewNop()
	}
	doc := &Document{Path: path, Format: DetectFormat(path)}

	switch doc.Format {
	case FormatYAML:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read scene: %w", err)
		}
		s, err := ParseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		doc.Scene = s
	case FormatGLTF, FormatGLB:
		binding, err := OpenGLTF(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		doc.Scene = binding.Scene
		doc.gltf = binding
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	if err := doc.Scene.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Scene.SetLogger(log)
	doc.Scene.PushUndo(OriginalUndoLabel)

	log.Info("scene loaded",
		zap.String("path", path),
		zap.Stringer("format", doc.Format),
		zap.Int("objects", len(doc.Scene.Objects())),
	)
	return doc, nil
}

// Save writes the document to path, choosing the format by extension.
// An empty path overwrites the source file.
func (d *Document) Save(path string) error {
	if path == "" {
		path = d.Path
	}
	switch DetectFormat(path) {
	case FormatYAML:
		data, err := MarshalYAML(d.Scene)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write scene: %w", err)
		}
		return nil
	case FormatGLTF, FormatGLB:
		if d.gltf == nil {
			return fmt.Errorf("%w: %s", ErrNotGLTFSource, path)
		}
		return d.gltf.Save(path)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}
