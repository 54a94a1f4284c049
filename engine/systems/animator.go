package systems

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/google/uuid"

	"github.com/spaghettifunk/anima-core/engine/containers"
	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/math"
	"github.com/spaghettifunk/anima-core/engine/renderer"
	"github.com/spaghettifunk/anima-core/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-core/engine/resources"
)

// PlaybackState is the clip selection and play head of an animator.
type PlaybackState struct {
	// Time is the play head in ticks.
	Time           float32
	AnimationIndex int
	Looping        bool
	Playing        bool
}

// Animator plays the clips of one skeletal mesh instance and owns its skin matrices.
type Animator struct {
	ID         uuid.UUID
	Skeleton   *resources.Skeleton
	Animations []*resources.Animation
	State      PlaybackState
	// Matrices holds MaxBones skin matrices. Entries past the skeleton stay identity.
	Matrices []math.Mat4

	builder  *SkinningBuilder
	eventBus *core.EventBus
}

func NewAnimator(skeleton *resources.Skeleton, animations []*resources.Animation, builder *SkinningBuilder, eventBus *core.EventBus) *Animator {
	matrices := make([]math.Mat4, builder.MaxBones)
	for i := range matrices {
		matrices[i] = math.NewMat4Identity()
	}
	return &Animator{
		ID:         uuid.New(),
		Skeleton:   skeleton,
		Animations: animations,
		Matrices:   matrices,
		builder:    builder,
		eventBus:   eventBus,
	}
}

// Current returns the selected clip, or nil when the selection is invalid.
func (a *Animator) Current() *resources.Animation {
	i := a.State.AnimationIndex
	if i < 0 || i >= len(a.Animations) {
		return nil
	}
	return a.Animations[i]
}

// Play starts the clip at index from the beginning. Invalid indices are ignored.
func (a *Animator) Play(index int, loop bool) {
	if index < 0 || index >= len(a.Animations) || a.Animations[index] == nil {
		return
	}
	a.State = PlaybackState{
		Time:           0,
		AnimationIndex: index,
		Looping:        loop,
		Playing:        true,
	}
}

func (a *Animator) Stop() {
	a.State.Playing = false
	a.State.Time = 0
}

/**
 * @brief Advances the play head by delta seconds. Looping clips wrap around,
 * other clips stop and rewind once they reach their end.
 */
func (a *Animator) Tick(delta float32) {
	if !a.State.Playing {
		return
	}
	anim := a.Current()
	if anim == nil {
		return
	}

	a.State.Time += delta * anim.TicksPerSecond
	if a.State.Looping {
		if anim.Duration <= 0 {
			a.State.Time = 0
			return
		}
		a.State.Time = math32.Mod(a.State.Time, anim.Duration)
		if a.State.Time < 0 {
			a.State.Time += anim.Duration
		}
		return
	}

	a.State.Time = math.Clamp(a.State.Time, 0, anim.Duration)
	if a.State.Time >= anim.Duration {
		a.State.Playing = false
		a.State.Time = 0
		a.fireFinished()
	}
}

func (a *Animator) fireFinished() {
	if a.eventBus == nil {
		return
	}
	ctx := core.EventContext{}
	ctx.Data.C[0] = a.ID.String()
	ctx.Data.U32[0] = uint32(a.State.AnimationIndex)
	a.eventBus.Fire(core.EventCodeAnimationFinished, a, ctx)
}

// Evaluate poses the skeleton at the play head. Without a valid clip it does nothing.
func (a *Animator) Evaluate() error {
	anim := a.Current()
	if anim == nil || a.Skeleton == nil {
		return nil
	}
	return a.builder.Build(a.Skeleton, anim, a.State.Time, a.Matrices)
}

/**
 * @brief Copies the skin matrices into transient device memory and binds them
 * under BoneBlockName. The caller unmaps the returned range once drawn.
 */
func (a *Animator) Upload(device renderer.RenderDevice, shader renderer.Shader) (metadata.BufferRange, error) {
	size := uint64(len(a.Matrices)) * 64
	mem, handle, err := device.Map(size)
	if err != nil {
		core.LogError("animator %s failed to map %d bytes: %s", a.ID, size, err.Error())
		return metadata.BufferRange{}, err
	}
	if err := containers.Write(mem, 0, size, containers.Mat4Bytes(a.Matrices...)); err != nil {
		// the device handed out less than asked for
		core.LogError("animator %s: %s", a.ID, err.Error())
		if uerr := device.Unmap(handle); uerr != nil {
			core.LogError(uerr.Error())
		}
		return metadata.BufferRange{}, err
	}
	r := metadata.BufferRange{
		Handle:      handle,
		MemoryRange: metadata.MemoryRange{Offset: 0, Size: size},
	}
	device.BindUniformBlock(shader, BoneBlockName, r)
	return r, nil
}

// WriteTo stores the skin matrices in a matrix array variable of a material instance.
func (a *Animator) WriteTo(instance *MaterialInstance, variableID uint32) error {
	if err := instance.SetMat4Array(variableID, a.Matrices); err != nil {
		err = fmt.Errorf("animator %s: %w", a.ID, err)
		core.LogError(err.Error())
		return err
	}
	return nil
}
