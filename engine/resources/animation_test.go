package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-core/engine/math"
)

func walkChannel() AnimationChannel {
	return AnimationChannel{
		Bone: 1,
		Positions: []Keyframe[math.Vec3]{
			{Time: 1, Value: math.NewVec3(0, 0, 0)},
			{Time: 3, Value: math.NewVec3(4, 0, -2)},
			{Time: 5, Value: math.NewVec3(4, 8, -2)},
		},
		Rotations: []Keyframe[math.Quaternion]{
			{Time: 0, Value: math.NewQuatIdentity()},
			{Time: 10, Value: math.NewQuatFromAxisAngle(math.NewVec3(0, 1, 0), math.DegToRad(90), true)},
		},
		Scales: []Keyframe[math.Vec3]{
			{Time: 2, Value: math.NewVec3(2, 2, 2)},
		},
	}
}

func TestEvaluatePositionInterpolates(t *testing.T) {
	c := walkChannel()
	assert.True(t, c.EvaluatePosition(2).Compare(math.NewVec3(2, 0, -1), tolerance))
	assert.True(t, c.EvaluatePosition(3).Compare(math.NewVec3(4, 0, -2), tolerance))
	assert.True(t, c.EvaluatePosition(4.5).Compare(math.NewVec3(4, 6, -2), tolerance))
}

func TestEvaluateClampsToKeyRange(t *testing.T) {
	c := walkChannel()
	for _, tm := range []float32{-100, 0, 0.999, 1} {
		assert.Equal(t, c.Positions[0].Value, c.EvaluatePosition(tm), "t=%v", tm)
	}
	for _, tm := range []float32{5, 5.001, 1e6} {
		assert.Equal(t, c.Positions[2].Value, c.EvaluatePosition(tm), "t=%v", tm)
	}
	// a single key is constant everywhere
	for _, tm := range []float32{-1, 2, 50} {
		assert.Equal(t, math.NewVec3(2, 2, 2), c.EvaluateScale(tm), "t=%v", tm)
	}
	assert.Equal(t, c.Rotations[1].Value, c.EvaluateRotation(11))
}

func TestEvaluateEmptyChannelDefaults(t *testing.T) {
	c := AnimationChannel{Bone: 0}
	assert.Equal(t, math.NewVec3Zero(), c.EvaluatePosition(3))
	assert.Equal(t, math.NewQuatIdentity(), c.EvaluateRotation(3))
	assert.Equal(t, math.NewVec3One(), c.EvaluateScale(3))
	assert.True(t, c.LocalTransform(3).Compare(math.NewMat4Identity(), 0))
}

func TestEvaluateRotationIsUnitLength(t *testing.T) {
	c := AnimationChannel{
		Rotations: []Keyframe[math.Quaternion]{
			{Time: 0, Value: math.NewQuatFromAxisAngle(math.NewVec3(1, 0, 0), math.DegToRad(-60), true)},
			{Time: 1, Value: math.NewQuatFromAxisAngle(math.NewVec3(0, 1, 1).Normalized(), math.DegToRad(150), true)},
			{Time: 2, Value: math.NewQuatFromAxisAngle(math.NewVec3(0, 0, 1), math.DegToRad(10), true)},
		},
	}
	for i := 0; i <= 40; i++ {
		q := c.EvaluateRotation(float32(i) / 20)
		require.InDelta(t, 1.0, q.Normal(), 1e-5, "t=%v", float32(i)/20)
	}

	walk := walkChannel()
	mid := walk.EvaluateRotation(5)
	expected := math.NewQuatFromAxisAngle(math.NewVec3(0, 1, 0), math.DegToRad(45), true)
	assert.True(t, mid.Compare(expected, tolerance), "got %v", mid)
}

func TestEvaluateDuplicateKeyTimes(t *testing.T) {
	c := AnimationChannel{
		Positions: []Keyframe[math.Vec3]{
			{Time: 0, Value: math.NewVec3(0, 0, 0)},
			{Time: 1, Value: math.NewVec3(1, 0, 0)},
			{Time: 1, Value: math.NewVec3(5, 0, 0)},
			{Time: 2, Value: math.NewVec3(7, 0, 0)},
		},
	}
	assert.True(t, c.EvaluatePosition(0.5).Compare(math.NewVec3(0.5, 0, 0), tolerance))
	assert.True(t, c.EvaluatePosition(1.5).Compare(math.NewVec3(6, 0, 0), tolerance))
}

func TestLocalTransformComposesTRS(t *testing.T) {
	c := walkChannel()
	tm := float32(3)
	expected := math.NewMat4Translation(c.EvaluatePosition(tm)).
		Mul(c.EvaluateRotation(tm).ToMat4()).
		Mul(math.NewMat4TRS(math.NewVec3Zero(), math.NewQuatIdentity(), c.EvaluateScale(tm)))
	assert.True(t, c.LocalTransform(tm).Compare(expected, tolerance))
}

func TestNewAnimation(t *testing.T) {
	a := NewAnimation("walk", 10, 0, []AnimationChannel{walkChannel(), {Bone: 1}, {Bone: 3}})
	assert.Equal(t, DefaultTicksPerSecond, a.TicksPerSecond)

	c := a.Channel(1)
	require.NotNil(t, c)
	assert.Len(t, c.Positions, 3)
	assert.NotNil(t, a.Channel(3))
	assert.Nil(t, a.Channel(0))

	literal := &Animation{Channels: []AnimationChannel{{Bone: 2}}}
	assert.NotNil(t, literal.Channel(2))
	assert.Nil(t, literal.Channel(1))
}
