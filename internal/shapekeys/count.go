// Package shapekeys counts, measures, inspects and prunes mesh shape keys.
package shapekeys

import (
	"go.uber.org/zap"

	"github.com/Faultbox/shapekey-tools/internal/scene"
)

// ObjectCount is the number of shape keys on one mesh object.
type ObjectCount struct {
	Object string
	Count  int
}

// CountReport lists shape key counts per mesh object in scene order.
type CountReport struct {
	Objects []ObjectCount
	Total   int
}

// Count returns the number of shape keys of every mesh object.
// Meshes without a key collection count as zero.
func Count(s *scene.Scene, log *zap.Logger) CountReport {
	if log == nil {
		log = zap.NewNop()
	}

	var report CountReport
	for _, obj := range s.Meshes() {
		n := obj.Mesh.ShapeKeyCount()
		report.Objects = append(report.Objects, ObjectCount{Object: obj.Name, Count: n})
		report.Total += n
		log.Info("shape keys", zap.String("object", obj.Name), zap.Int("count", n))
	}
	log.Info("total shape keys", zap.Int("total", report.Total))
	return report
}
