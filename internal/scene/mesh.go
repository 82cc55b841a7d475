package scene

import (
	"fmt"

	"github.com/Faultbox/shapekey-tools/pkg/math"
)

// ReferenceKeyName is the name given to a reference key created on demand.
const ReferenceKeyName = "Basis"

// VertexWeight assigns part of a vertex to a deform group (a bone name).
type VertexWeight struct {
	Group  string
	Weight float32
}

// Mesh holds vertex positions, deform weights and shape keys.
type Mesh struct {
	Vertices  []math.Vec3
	Weights   [][]VertexWeight // per vertex, may be shorter than Vertices
	ShapeKeys *ShapeKeys       // nil until the first key is added
}

// ShapeKeyCount returns the number of key blocks, zero without a collection.
func (m *Mesh) ShapeKeyCount() int {
	return m.ShapeKeys.Len()
}

// ShapeKey is a named set of absolute vertex coordinates.
type ShapeKey struct {
	Name        string
	Data        []math.Vec3
	Relative    string // key this one is measured against
	Value       float32
	VertexGroup string
	Mute        bool
}

// ShapeKeys is the ordered key collection of a mesh. Block 0 is the reference key.
type ShapeKeys struct {
	Blocks []*ShapeKey
}

// Len returns the number of blocks. Safe on nil.
func (k *ShapeKeys) Len() int {
	if k == nil {
		return 0
	}
	return len(k.Blocks)
}

// Get returns the block with the given name, or nil.
func (k *ShapeKeys) Get(name string) *ShapeKey {
	if k == nil {
		return nil
	}
	for _, b := range k.Blocks {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Has reports whether a block with the given name exists.
func (k *ShapeKeys) Has(name string) bool {
	return k.Get(name) != nil
}

// Reference returns the reference (basis) key, or nil.
func (k *ShapeKeys) Reference() *ShapeKey {
	if k.Len() == 0 {
		return nil
	}
	return k.Blocks[0]
}

// Last returns the most recently appended block, or nil.
func (k *ShapeKeys) Last() *ShapeKey {
	if k.Len() == 0 {
		return nil
	}
	return k.Blocks[len(k.Blocks)-1]
}

// RelativeOf returns the key b is measured against.
// Unknown or empty relative names resolve to the reference key.
func (k *ShapeKeys) RelativeOf(b *ShapeKey) *ShapeKey {
	if rel := k.Get(b.Relative); rel != nil {
		return rel
	}
	return k.Reference()
}

// Names returns block names in order.
func (k *ShapeKeys) Names() []string {
	if k == nil {
		return nil
	}
	names := make([]string, len(k.Blocks))
	for i, b := range k.Blocks {
		names[i] = b.Name
	}
	return names
}

// uniqueName returns base, or base.001, base.002... if taken.
func (k *ShapeKeys) uniqueName(base string) string {
	if !k.Has(base) {
		return base
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s.%03d", base, i)
		if !k.Has(name) {
			return name
		}
	}
}

func (k *ShapeKeys) index(name string) int {
	for i, b := range k.Blocks {
		if b.Name == name {
			return i
		}
	}
	return -1
}

func copyVecs(src []math.Vec3) []math.Vec3 {
	if src == nil {
		return nil
	}
	out := make([]math.Vec3, len(src))
	copy(out, src)
	return out
}

func (k *ShapeKeys) blocks() []*ShapeKey {
	if k == nil {
		return nil
	}
	return k.Blocks
}
