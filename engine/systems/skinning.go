package systems

import (
	"fmt"

	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/math"
	"github.com/spaghettifunk/anima-core/engine/resources"
)

// BoneBlockName is the uniform block skin matrices are bound under.
const BoneBlockName = "bones"

// SkinningBuilder composes bone poses into skin matrices. It holds no per call
// state and can be shared between goroutines.
type SkinningBuilder struct {
	// MaxBones caps the number of matrices produced.
	MaxBones int
	// BindPoseFallback poses bones without a channel in their local bind pose
	// instead of identity.
	BindPoseFallback bool
}

func NewSkinningBuilder(maxBones int) *SkinningBuilder {
	return &SkinningBuilder{MaxBones: maxBones}
}

/**
 * @brief Computes the skin matrix of every bone at the given time, parents before
 * children: global = parentGlobal * local, skin = globalInverse * global * offset.
 * Root bones are parented to the skeleton root transform.
 *
 * @param skeleton The skeleton to pose.
 * @param animation The clip to sample. nil poses every bone with its fallback.
 * @param time The clip time in ticks.
 * @param out Receives one matrix per bone, indexed by bone.
 */
func (sb *SkinningBuilder) Build(skeleton *resources.Skeleton, animation *resources.Animation, time float32, out []math.Mat4) error {
	n := skeleton.Len()
	if n > sb.MaxBones || n > len(out) {
		err := fmt.Errorf("%w: skeleton has %d bones, capacity is %d (output holds %d)", core.ErrTooManyBones, n, sb.MaxBones, len(out))
		core.LogError(err.Error())
		return err
	}
	for _, root := range skeleton.Roots() {
		sb.compose(skeleton, animation, time, root, skeleton.RootTransform, out)
	}
	return nil
}

func (sb *SkinningBuilder) compose(skeleton *resources.Skeleton, animation *resources.Animation, time float32, bone int, parentGlobal math.Mat4, out []math.Mat4) {
	b := &skeleton.Bones[bone]
	global := parentGlobal.Mul(sb.localTransform(b, animation, time))
	out[bone] = skeleton.GlobalInverseTransform.Mul(global).Mul(b.Offset)
	for _, child := range b.Children {
		sb.compose(skeleton, animation, time, child, global, out)
	}
}

func (sb *SkinningBuilder) localTransform(b *resources.Bone, animation *resources.Animation, time float32) math.Mat4 {
	if animation != nil {
		if c := animation.Channel(b.Index); c != nil {
			return c.LocalTransform(time)
		}
	}
	if sb.BindPoseFallback {
		return b.LocalBind.GetLocal()
	}
	return math.NewMat4Identity()
}
