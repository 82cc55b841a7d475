package shapekeys

import "github.com/Faultbox/shapekey-tools/internal/scene"

// AffectedVertices counts the vertices of key that lie farther than epsilon
// from the same vertex of relative. With epsilon 0 any displacement counts.
func AffectedVertices(key, relative *scene.ShapeKey, epsilon float32) int {
	if key == nil || relative == nil {
		return 0
	}
	n := len(key.Data)
	if len(relative.Data) < n {
		n = len(relative.Data)
	}

	affected := 0
	for i := 0; i < n; i++ {
		if key.Data[i].Distance(relative.Data[i]) > epsilon {
			affected++
		}
	}
	return affected
}
