package scene

import "github.com/Faultbox/shapekey-tools/pkg/math"

// deformByArmature evaluates linear blend skinning of coords, which are in
// the mesh object's space, against the armature's current pose.
func (s *Scene) deformByArmature(meshObj, armObj *Object, coords []math.Vec3) []math.Vec3 {
	toArm := s.WorldMatrix(armObj).Inverse().Mul(s.WorldMatrix(meshObj))
	fromArm := toArm.Inverse()
	skins := armObj.Armature.skinMatrices()

	out := make([]math.Vec3, len(coords))
	for i, co := range coords {
		var weights []VertexWeight
		if i < len(meshObj.Mesh.Weights) {
			weights = meshObj.Mesh.Weights[i]
		}

		p := toArm.TransformVec3(co)
		var acc math.Vec3
		var total float32
		for _, w := range weights {
			skin, ok := skins[w.Group]
			if !ok || w.Weight <= 0 {
				continue
			}
			acc = acc.Add(skin.TransformVec3(p).Scale(w.Weight))
			total += w.Weight
		}

		// unweighted vertices keep their exact coordinates
		if total == 0 {
			out[i] = co
			continue
		}
		out[i] = fromArm.TransformVec3(acc.Scale(1 / total))
	}
	return out
}
