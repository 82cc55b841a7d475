package shapekeys

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/shapekey-tools/internal/scene"
)

// DefaultMinAffected is the vertex count below which a key is pruned.
const DefaultMinAffected = 80

// DefaultProtected are key names never pruned.
var DefaultProtected = []string{scene.ReferenceKeyName, "Basic"}

// PruneOptions configures Prune.
type PruneOptions struct {
	MinAffected int      // keys affecting fewer vertices are removed
	Epsilon     float32  // displacement a vertex needs to count as affected
	Protected   []string // names never removed
	DryRun      bool     // report only
}

// DefaultPruneOptions returns the defaults.
func DefaultPruneOptions() PruneOptions {
	return PruneOptions{
		MinAffected: DefaultMinAffected,
		Protected:   append([]string(nil), DefaultProtected...),
	}
}

// KeyMeasure is the measured effect of one shape key.
type KeyMeasure struct {
	Name     string
	Affected int
	Points   int
}

// PruneResult is the outcome for one mesh object.
type PruneResult struct {
	Object  string
	Kept    []KeyMeasure
	Removed []KeyMeasure
}

// Prune removes, from every mesh with shape keys, the non-reference keys that
// displace fewer than MinAffected vertices. With DryRun nothing is removed
// but Removed still lists what would go.
func Prune(s *scene.Scene, opts PruneOptions, log *zap.Logger) ([]PruneResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	protected := make(map[string]bool, len(opts.Protected))
	for _, name := range opts.Protected {
		protected[name] = true
	}

	var (
		results []PruneResult
		errs    error
		removed int
	)
	for _, obj := range s.Meshes() {
		keys := obj.Mesh.ShapeKeys
		if keys.Len() == 0 {
			continue
		}
		olog := log.With(zap.String("object", obj.Name))
		res := PruneResult{Object: obj.Name}

		for i, key := range keys.Blocks {
			if i == 0 || protected[key.Name] {
				continue
			}
			m := KeyMeasure{
				Name:     key.Name,
				Affected: AffectedVertices(key, keys.RelativeOf(key), opts.Epsilon),
				Points:   len(key.Data),
			}
			if m.Affected < opts.MinAffected {
				olog.Info("shape key marked for deletion",
					zap.String("shape_key", key.Name),
					zap.Int("affected", m.Affected),
					zap.Int("points", m.Points))
				res.Removed = append(res.Removed, m)
			} else {
				olog.Debug("shape key kept", zap.String("shape_key", key.Name), zap.Int("affected", m.Affected))
				res.Kept = append(res.Kept, m)
			}
		}

		if !opts.DryRun {
			for _, m := range res.Removed {
				if err := s.RemoveShapeKey(obj.Name, m.Name); err != nil {
					errs = multierr.Append(errs, fmt.Errorf("%s: %w", obj.Name, err))
					continue
				}
				olog.Info("shape key deleted", zap.String("shape_key", m.Name))
				removed++
			}
		}
		results = append(results, res)
	}

	if removed > 0 {
		s.PushUndo(fmt.Sprintf("Prune %d shape keys", removed))
	}
	return results, errs
}
