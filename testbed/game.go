package testbed

import (
	"fmt"

	"github.com/spaghettifunk/anima-core/engine"
	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/math"
	"github.com/spaghettifunk/anima-core/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-core/engine/resources"
	"github.com/spaghettifunk/anima-core/engine/systems"
)

const (
	skinnedShaderName = "Testbed.Skinned"
	characterMaterial = "Testbed.Character"
	boneMatricesName  = "bone_matrices"
	armBones          = 3
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	animator  *systems.Animator
	character *systems.MaterialInstance
	elapsed   float64
	finished  int
}

func NewTestGame() *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			State: &gameState{},
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnShutdown = tg.Shutdown
	return tg
}

// Initialize registers a skinned shader and a character material unless the asset
// directory already provided them, then animates a waving arm.
func (g *TestGame) Initialize(e *engine.Engine) error {
	core.LogDebug("TestGame Initialize fn....")
	state := g.State.(*gameState)
	sm := e.Systems()

	if sm.ShaderSystem.Get(skinnedShaderName) == nil {
		if _, err := sm.ShaderSystem.Register(skinnedShaderConfig(e.Config().Animation.MaxBones)); err != nil {
			return err
		}
	}
	if sm.MaterialSystem.Definition(characterMaterial) == nil {
		if _, err := sm.MaterialSystem.Load(characterMaterialConfig()); err != nil {
			return err
		}
	}
	character, err := sm.MaterialSystem.Acquire(characterMaterial)
	if err != nil {
		return err
	}
	state.character = character

	skeleton, err := armSkeleton()
	if err != nil {
		return err
	}
	animator, err := sm.AnimationSystem.Create(skeleton, []*resources.Animation{waveAnimation()})
	if err != nil {
		return err
	}
	animator.Play(0, true)
	state.animator = animator

	e.EventBus().Register(core.EventCodeAnimationFinished, g, func(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
		state.finished++
		return false
	})
	return nil
}

func (g *TestGame) Update(e *engine.Engine, deltaTime float64) error {
	state := g.State.(*gameState)
	state.elapsed += deltaTime

	// Pulse the tint once a second.
	tint := float32(state.elapsed - float64(int(state.elapsed)))
	if err := state.character.SetVec4(systems.UniformID("tint"), math.NewVec4(tint, 0.5, 1-tint, 1)); err != nil {
		return err
	}
	if err := state.animator.WriteTo(state.character, systems.UniformID(boneMatricesName)); err != nil {
		return err
	}
	if state.elapsed >= 5 {
		fps, frameTime := e.Metrics().Frame()
		core.LogInfo("testbed: %.0f fps, %.3f ms per frame", fps, frameTime)
		state.elapsed = 0
	}
	return nil
}

// Render binds the material blocks, skin matrices included, for the single draw of the arm.
func (g *TestGame) Render(e *engine.Engine, deltaTime float64) error {
	state := g.State.(*gameState)
	if _, err := state.character.BeginPass(0); err != nil {
		return err
	}
	return state.character.EndPass()
}

func (g *TestGame) Shutdown(e *engine.Engine) error {
	state := g.State.(*gameState)
	e.EventBus().Unregister(core.EventCodeAnimationFinished, g)
	if state.character != nil {
		e.Systems().MaterialSystem.Release(state.character)
	}
	if state.animator != nil {
		e.Systems().AnimationSystem.Remove(state.animator)
	}
	return nil
}

func skinnedShaderConfig(maxBones uint32) *metadata.ShaderConfig {
	return &metadata.ShaderConfig{
		Name:   skinnedShaderName,
		Stages: []string{"vertex", "fragment"},
		Blocks: []metadata.ConstantBlockReflection{
			{
				Name: "material",
				Size: 16,
				Variables: []metadata.UniformVariableReflection{
					{Name: "tint", Size: 16, Offset: 0},
				},
			},
			{
				Name:     systems.BoneBlockName,
				Size:     maxBones * 64,
				Requires: "SKINNED",
				Variables: []metadata.UniformVariableReflection{
					{Name: boneMatricesName, Size: maxBones * 64, Offset: 0},
				},
			},
		},
	}
}

func characterMaterialConfig() *metadata.MaterialConfig {
	return &metadata.MaterialConfig{
		Name: characterMaterial,
		Passes: []metadata.MaterialPassConfig{
			{
				Name:   "forward",
				Shader: skinnedShaderName,
				Macros: metadata.MacroSet{{Name: "SKINNED", Value: "1"}},
			},
		},
		Defaults: []metadata.MaterialDefaultConfig{
			{Name: "tint", Type: "vec4", Value: []float64{1, 1, 1, 1}},
		},
	}
}

// armSkeleton is a chain of bones one unit apart along +Y.
func armSkeleton() (*resources.Skeleton, error) {
	bones := make([]resources.BoneConfig, armBones)
	for i := range bones {
		bones[i] = resources.BoneConfig{
			Index:  i,
			Parent: i - 1,
			Name:   fmt.Sprintf("arm_%d", i),
			Bind:   math.NewMat4Translation(math.NewVec3(0, float32(i), 0)),
		}
	}
	bones[0].Parent = resources.NoParent
	return resources.NewSkeleton(bones, math.NewMat4Identity(), math.NewMat4Identity())
}

// waveAnimation swings every bone of the arm back and forth over one second.
func waveAnimation() *resources.Animation {
	channels := make([]resources.AnimationChannel, armBones)
	for i := range channels {
		offset := float32(0)
		if i > 0 {
			offset = 1
		}
		channels[i] = resources.AnimationChannel{
			Bone: i,
			Positions: []resources.Keyframe[math.Vec3]{
				{Time: 0, Value: math.NewVec3(0, offset, 0)},
			},
			Rotations: []resources.Keyframe[math.Quaternion]{
				{Time: 0, Value: math.NewQuatFromAxisAngle(math.NewVec3(0, 0, 1), math.DegToRad(-20), true)},
				{Time: 12, Value: math.NewQuatFromAxisAngle(math.NewVec3(0, 0, 1), math.DegToRad(20), true)},
				{Time: 25, Value: math.NewQuatFromAxisAngle(math.NewVec3(0, 0, 1), math.DegToRad(-20), true)},
			},
		}
	}
	return resources.NewAnimation("wave", 25, resources.DefaultTicksPerSecond, channels)
}
