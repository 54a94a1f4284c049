package resources

import (
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-core/engine/math"
)

// DefaultTicksPerSecond is used for clips that do not specify a tick rate.
const DefaultTicksPerSecond float32 = 25

// NewAnimation indexes the channels by bone. When several channels target the
// same bone the first one wins.
func NewAnimation(name string, duration, ticksPerSecond float32, channels []AnimationChannel) *Animation {
	if ticksPerSecond <= 0 {
		ticksPerSecond = DefaultTicksPerSecond
	}
	a := &Animation{
		Name:           name,
		Duration:       duration,
		TicksPerSecond: ticksPerSecond,
		Channels:       channels,
		byBone:         make(map[int]int, len(channels)),
	}
	for i, c := range channels {
		if _, ok := a.byBone[c.Bone]; !ok {
			a.byBone[c.Bone] = i
		}
	}
	return a
}

// Channel returns the channel animating bone, or nil.
func (a *Animation) Channel(bone int) *AnimationChannel {
	if a.byBone == nil {
		// built as a literal
		for i := range a.Channels {
			if a.Channels[i].Bone == bone {
				return &a.Channels[i]
			}
		}
		return nil
	}
	i, ok := a.byBone[bone]
	if !ok {
		return nil
	}
	return &a.Channels[i]
}

// sample finds the keys bracketing t and blends them. Times outside the key range
// clamp to the first or last key.
func sample[T any](keys []Keyframe[T], t float32, fallback T, blend func(a, b T, f float32) T) T {
	n := len(keys)
	if n == 0 {
		return fallback
	}
	if t <= keys[0].Time {
		return keys[0].Value
	}
	if t >= keys[n-1].Time {
		return keys[n-1].Value
	}

	// first key strictly after t, always in [1, n-1] here
	next, _ := slices.BinarySearchFunc(keys, t, func(k Keyframe[T], target float32) int {
		if k.Time <= target {
			return -1
		}
		return 1
	})
	a, b := keys[next-1], keys[next]
	span := b.Time - a.Time
	if span <= 0 {
		return b.Value
	}
	return blend(a.Value, b.Value, (t-a.Time)/span)
}

func lerpVec3(a, b math.Vec3, f float32) math.Vec3 {
	return a.Lerp(b, f)
}

func slerpQuat(a, b math.Quaternion, f float32) math.Quaternion {
	return a.Slerp(b, f)
}

// EvaluatePosition returns the interpolated translation at t, zero without keys.
func (c *AnimationChannel) EvaluatePosition(t float32) math.Vec3 {
	return sample(c.Positions, t, math.NewVec3Zero(), lerpVec3)
}

// EvaluateRotation returns the spherically interpolated rotation at t, identity without keys.
func (c *AnimationChannel) EvaluateRotation(t float32) math.Quaternion {
	return sample(c.Rotations, t, math.NewQuatIdentity(), slerpQuat)
}

// EvaluateScale returns the interpolated scale at t, one without keys.
func (c *AnimationChannel) EvaluateScale(t float32) math.Vec3 {
	return sample(c.Scales, t, math.NewVec3One(), lerpVec3)
}

// Evaluate samples every component at t.
func (c *AnimationChannel) Evaluate(t float32) math.Transform {
	return math.TransformFromPositionRotationScale(
		c.EvaluatePosition(t),
		c.EvaluateRotation(t),
		c.EvaluateScale(t),
	)
}

// LocalTransform returns T * R * S for the pose at t.
func (c *AnimationChannel) LocalTransform(t float32) math.Mat4 {
	return c.Evaluate(t).GetLocal()
}
