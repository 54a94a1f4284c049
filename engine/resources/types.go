package resources

import "github.com/spaghettifunk/anima-core/engine/math"

// NoParent marks a root bone.
const NoParent = -1

// BoneConfig describes a bone as delivered by an importer.
type BoneConfig struct {
	Index  int
	Parent int
	Name   string
	// Bind is the bone's bind pose in model space.
	Bind math.Mat4
	// Offset is the inverse bind matrix. Computed from Bind when nil.
	Offset *math.Mat4
}

/**
 * @brief A bone of a skeleton. Bones live in a flat array owned by the
 * skeleton and refer to each other by index only.
 */
type Bone struct {
	/** @brief The position of the bone in Skeleton.Bones. */
	Index int
	/** @brief The parent index, or NoParent. */
	Parent int
	Name   string
	/** @brief The bind pose in model space. */
	Bind math.Mat4
	/** @brief The inverse bind matrix. */
	Offset math.Mat4
	/** @brief The bind pose relative to the parent, or to the skeleton root transform for roots. */
	LocalBind math.Transform
	/** @brief Indices of the child bones. */
	Children []int

	offsetSupplied bool
}

/** @brief A value at a point in time, in ticks. */
type Keyframe[T any] struct {
	Time  float32
	Value T
}

/**
 * @brief Keyframes of a single bone. Each component is sampled independently
 * and keys are expected in ascending time order.
 */
type AnimationChannel struct {
	/** @brief The index of the animated bone. */
	Bone      int
	Positions []Keyframe[math.Vec3]
	Rotations []Keyframe[math.Quaternion]
	Scales    []Keyframe[math.Vec3]
}

/**
 * @brief A clip. Read-only once built.
 */
type Animation struct {
	Name string
	/** @brief The length of the clip in ticks. */
	Duration float32
	/** @brief The tick rate of the clip. */
	TicksPerSecond float32
	Channels       []AnimationChannel

	byBone map[int]int
}
