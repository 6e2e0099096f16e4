package components

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/config"
	"github.com/Carmen-Shannon/rhodonite-go/engine/ecs"
)

// SkeletalComponent computes skinning matrices for its entity's mesh from an ordered list of joint
// nodes. Applying them to vertices is left to the consumer of JointMatrices. Joints refer to other entities by UID and are remapped onto the copies on shallow copy.
type SkeletalComponent struct {
	ecs.ComponentBase

	joints              []ecs.EntityUID
	inverseBindMatrices []common.Mat4
	jointMatrices       []common.Mat4
	jointEpochs         []uint64
	skinEpoch           uint64

	sceneGraph *SceneGraphComponent
}

// SkeletalClass describes SkeletalComponent. Live skeletons are bounded by MaxSkeletonNumber.
var SkeletalClass = ecs.NewComponentClass("Skeletal", ecs.SkeletalComponentTID, func(cfg *config.Config) int {
	return cfg.MaxSkeletonNumber
}, func() ecs.Component {
	return &SkeletalComponent{}
}).Requires(ecs.SceneGraphComponentTID)

func (s *SkeletalComponent) SceneGraph() *SceneGraphComponent {
	if s.sceneGraph != nil && s.sceneGraph.IsAlive() {
		return s.sceneGraph
	}
	s.sceneGraph = nil
	if e := s.Entity(); e != nil {
		s.sceneGraph, _ = ecs.Get[*SceneGraphComponent](e, ecs.SceneGraphComponentTID)
	}
	return s.sceneGraph
}

// SetJoints assigns the joints and their inverse bind matrices. Each joint is flagged with SetIsJoint.
//
// Parameters:
//   - joints: joint nodes in skin order
//   - inverseBindMatrices: one per joint; nil means identity for all
//
// Returns:
//   - error: an error if the counts differ or exceed MaxSkeletalBoneNumber
func (s *SkeletalComponent) SetJoints(joints []*SceneGraphComponent, inverseBindMatrices []common.Mat4) error {
	if inverseBindMatrices != nil && len(inverseBindMatrices) != len(joints) {
		return fmt.Errorf("skeleton of entity %d: %d inverse bind matrices for %d joints", s.EntityUID(), len(inverseBindMatrices), len(joints))
	}
	if limit := s.World().Config().MaxSkeletalBoneNumber; len(joints) > limit {
		return fmt.Errorf("skeleton of entity %d: %d joints exceed the limit of %d", s.EntityUID(), len(joints), limit)
	}

	s.joints = make([]ecs.EntityUID, len(joints))
	s.inverseBindMatrices = make([]common.Mat4, len(joints))
	for i, j := range joints {
		s.joints[i] = j.EntityUID()
		j.SetIsJoint(true)
		if inverseBindMatrices != nil {
			s.inverseBindMatrices[i] = inverseBindMatrices[i]
		} else {
			s.inverseBindMatrices[i] = common.IdentityMat4()
		}
	}
	s.jointMatrices = make([]common.Mat4, len(joints))
	s.jointEpochs = make([]uint64, len(joints))
	return nil
}

// JointEntityUIDs returns the joint entities in skin order.
func (s *SkeletalComponent) JointEntityUIDs() []ecs.EntityUID {
	return slices.Clone(s.joints)
}

// Joints resolves the joint nodes; deleted joints are nil.
func (s *SkeletalComponent) Joints() []*SceneGraphComponent {
	out := make([]*SceneGraphComponent, len(s.joints))
	for i, uid := range s.joints {
		if e, ok := s.World().Entities().GetEntity(uid); ok {
			out[i], _ = ecs.Get[*SceneGraphComponent](e, ecs.SceneGraphComponentTID)
		}
	}
	return out
}

// JointMatrices returns the skinning matrices computed by the last Logic stage, one per joint in
// joint order. The built-in renderer does not skin; a consumer that does (a custom material or a
// CPU skinning pass) reads them from PreRender on.
func (s *SkeletalComponent) JointMatrices() []common.Mat4 {
	return s.jointMatrices
}

// OnLogic recomputes the skinning matrices as inverse(skin world) * joint world * inverse bind.
// Joints whose world matrix did not change since the last frame keep their matrix.
func (s *SkeletalComponent) OnLogic() {
	skinInv := common.IdentityMat4()
	skinChanged := false
	if sg := s.SceneGraph(); sg != nil {
		if inv, ok := sg.WorldMatrix().Inverse(); ok {
			skinInv = inv
		}
		skinChanged = sg.WorldMatrixEpoch() != s.skinEpoch
		s.skinEpoch = sg.WorldMatrixEpoch()
	}
	for i, j := range s.Joints() {
		if j == nil {
			s.jointMatrices[i] = common.IdentityMat4()
			continue
		}
		world := j.WorldMatrix()
		if !skinChanged && s.jointEpochs[i] == j.WorldMatrixEpoch() {
			continue
		}
		s.jointMatrices[i] = skinInv.Mul(world).Mul(s.inverseBindMatrices[i])
		s.jointEpochs[i] = j.WorldMatrixEpoch()
	}
}

// ShallowCopyFrom copies the joint list; RemapEntities then points it at the copied joints.
func (s *SkeletalComponent) ShallowCopyFrom(src ecs.Component) {
	o := src.(*SkeletalComponent)
	s.joints = slices.Clone(o.joints)
	s.inverseBindMatrices = slices.Clone(o.inverseBindMatrices)
	s.jointMatrices = slices.Clone(o.jointMatrices)
	// force a recompute against the copied joints
	s.jointEpochs = make([]uint64, len(o.joints))
	s.skinEpoch = 0
}

// RemapEntities replaces joints that were copied along with the skeleton by their copies.
func (s *SkeletalComponent) RemapEntities(remap func(ecs.EntityUID) ecs.EntityUID) {
	for i, uid := range s.joints {
		s.joints[i] = remap(uid)
	}
}
