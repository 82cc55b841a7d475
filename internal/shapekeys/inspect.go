package shapekeys

import (
	"go.uber.org/zap"

	"github.com/Faultbox/shapekey-tools/internal/scene"
)

// KeyInfo describes one shape key of one object.
type KeyInfo struct {
	Object      string
	Name        string
	Found       bool
	Points      int
	Affected    int
	Relative    string
	VertexGroup string
	Value       float32
	Mute        bool
}

// Inspect reports on the named shape keys of every mesh that has keys.
// An empty names list inspects every key. Missing names are reported with
// Found false.
func Inspect(s *scene.Scene, names []string, epsilon float32, log *zap.Logger) []KeyInfo {
	if log == nil {
		log = zap.NewNop()
	}

	var infos []KeyInfo
	for _, obj := range s.Meshes() {
		keys := obj.Mesh.ShapeKeys
		if keys.Len() == 0 {
			continue
		}
		want := names
		if len(want) == 0 {
			want = keys.Names()
		}

		for _, name := range want {
			key := keys.Get(name)
			if key == nil {
				log.Info("shape key not found", zap.String("object", obj.Name), zap.String("shape_key", name))
				infos = append(infos, KeyInfo{Object: obj.Name, Name: name})
				continue
			}
			rel := keys.RelativeOf(key)
			info := KeyInfo{
				Object:      obj.Name,
				Name:        name,
				Found:       true,
				Points:      len(key.Data),
				Affected:    AffectedVertices(key, rel, epsilon),
				Relative:    rel.Name,
				VertexGroup: key.VertexGroup,
				Value:       key.Value,
				Mute:        key.Mute,
			}
			log.Info("shape key",
				zap.String("object", obj.Name),
				zap.String("shape_key", name),
				zap.Int("points", info.Points),
				zap.Int("affected", info.Affected),
				zap.String("vertex_group", info.VertexGroup))
			infos = append(infos, info)
		}
	}
	return infos
}
