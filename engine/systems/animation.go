package systems

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/renderer"
	"github.com/spaghettifunk/anima-core/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-core/engine/resources"
)

/** @brief The configuration for the animation system. */
type AnimationSystemConfig struct {
	/** @brief The number of skin matrices of every animator. */
	MaxBones uint32
	/** @brief Pose bones without a channel in their bind pose rather than identity. */
	BindPoseFallback bool
}

// AnimationSystem ticks every animator once per frame. Poses are evaluated on the
// job system since every animator owns its matrices; uploads stay on the caller's
// goroutine because the ring allocator is not safe for concurrent use.
type AnimationSystem struct {
	Config *AnimationSystemConfig

	animators []*Animator
	builder   *SkinningBuilder
	jobSystem *JobSystem
	eventBus  *core.EventBus
}

func NewAnimationSystem(config *AnimationSystemConfig, jobSystem *JobSystem, eventBus *core.EventBus) (*AnimationSystem, error) {
	if config.MaxBones == 0 {
		err := fmt.Errorf("NewAnimationSystem - config.MaxBones must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	if config.MaxBones < 64 {
		core.LogWarn("NewAnimationSystem - config.MaxBones is recommended to be at least 64.")
	}
	builder := NewSkinningBuilder(int(config.MaxBones))
	builder.BindPoseFallback = config.BindPoseFallback
	return &AnimationSystem{
		Config:    config,
		builder:   builder,
		jobSystem: jobSystem,
		eventBus:  eventBus,
	}, nil
}

func (as *AnimationSystem) Shutdown() error {
	as.animators = nil
	return nil
}

/**
 * @brief Creates an animator for a skeletal mesh instance.
 *
 * @param skeleton The skeleton to pose. Must fit in MaxBones.
 * @param animations The clips the animator can play.
 */
func (as *AnimationSystem) Create(skeleton *resources.Skeleton, animations []*resources.Animation) (*Animator, error) {
	if skeleton == nil {
		return nil, fmt.Errorf("cannot animate a nil skeleton")
	}
	if skeleton.Len() > int(as.Config.MaxBones) {
		err := fmt.Errorf("%w: skeleton has %d bones, capacity is %d", core.ErrTooManyBones, skeleton.Len(), as.Config.MaxBones)
		core.LogError(err.Error())
		return nil, err
	}
	a := NewAnimator(skeleton, animations, as.builder, as.eventBus)
	as.animators = append(as.animators, a)
	return a, nil
}

// Remove stops updating the animator.
func (as *AnimationSystem) Remove(a *Animator) bool {
	for i, x := range as.animators {
		if x == a {
			as.animators = append(as.animators[:i], as.animators[i+1:]...)
			return true
		}
	}
	return false
}

func (as *AnimationSystem) Animators() []*Animator {
	out := make([]*Animator, len(as.animators))
	copy(out, as.animators)
	return out
}

/**
 * @brief Advances every animator and evaluates its pose.
 *
 * @param delta The frame time in seconds.
 */
func (as *AnimationSystem) Update(delta float32) error {
	// events fire from Tick, keep them on the calling goroutine
	for _, a := range as.animators {
		a.Tick(delta)
	}

	if as.jobSystem == nil || as.jobSystem.Workers() < 2 || len(as.animators) < 2 {
		var errs []error
		for _, a := range as.animators {
			if err := a.Evaluate(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	errs := make([]error, len(as.animators))
	tasks := make([]metadata.JobTask, len(as.animators))
	for i, a := range as.animators {
		i, a := i, a
		tasks[i] = metadata.JobTask{
			JobType:     metadata.JOB_TYPE_GPU_RESOURCE,
			Priority:    metadata.JOB_PRIORITY_HIGH,
			InputParams: a,
			OnStart: func(params interface{}) (interface{}, error) {
				return nil, params.(*Animator).Evaluate()
			},
			OnFailure: func(err error) {
				errs[i] = err
			},
		}
	}
	as.jobSystem.SubmitAndWait(tasks)
	return errors.Join(errs...)
}

/**
 * @brief Uploads the matrices of every animator with a valid clip.
 *
 * @return The bound ranges, to be unmapped once the frame is drawn.
 */
func (as *AnimationSystem) Upload(device renderer.RenderDevice, shader renderer.Shader) ([]metadata.BufferRange, error) {
	ranges := make([]metadata.BufferRange, 0, len(as.animators))
	for _, a := range as.animators {
		if a.Current() == nil {
			continue
		}
		r, err := a.Upload(device, shader)
		if err != nil {
			return ranges, err
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}
