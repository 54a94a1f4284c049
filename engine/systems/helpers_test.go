package systems

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/renderer/headless"
	"github.com/spaghettifunk/anima-core/engine/renderer/metadata"
)

func newTestDevice(t *testing.T) *headless.Device {
	t.Helper()
	d, err := headless.New(core.DeviceConfig{RingBufferSize: 64 * 1024, RingAlignment: 16})
	require.NoError(t, err)
	return d
}

// forwardShader declares a per material block and a per frame block.
func forwardShader() *metadata.ShaderConfig {
	return &metadata.ShaderConfig{
		Name:      "Builtin.Forward",
		Stages:    []string{"vertex", "fragment"},
		FailMacro: "UNSUPPORTED",
		Blocks: []metadata.ConstantBlockReflection{
			{
				Name: "frame",
				Size: 128,
				Variables: []metadata.UniformVariableReflection{
					{Name: "view", Size: 64, Offset: 0},
					{Name: "projection", Size: 64, Offset: 64},
				},
			},
			{
				Name: "material",
				Size: 32,
				Variables: []metadata.UniformVariableReflection{
					{Name: "diffuse_colour", Size: 16, Offset: 0},
					{Name: "shininess", Size: 4, Offset: 16},
					{Name: "flags", Size: 4, Offset: 20},
				},
			},
		},
	}
}

// shadowShader shares the material block of forwardShader and adds its own.
func shadowShader() *metadata.ShaderConfig {
	return &metadata.ShaderConfig{
		Name:   "Builtin.Shadow",
		Stages: []string{"vertex"},
		Blocks: []metadata.ConstantBlockReflection{
			{
				Name: "material",
				Size: 32,
				Variables: []metadata.UniformVariableReflection{
					{Name: "diffuse_colour", Size: 16, Offset: 0},
					{Name: "shininess", Size: 4, Offset: 16},
					{Name: "flags", Size: 4, Offset: 20},
				},
			},
			{
				Name: "light",
				Size: 80,
				Variables: []metadata.UniformVariableReflection{
					{Name: "light_space", Size: 64, Offset: 0},
					{Name: "bias", Size: 4, Offset: 64},
				},
			},
		},
	}
}

func newTestShaderSystem(t *testing.T, d *headless.Device, bus *core.EventBus) *ShaderSystem {
	t.Helper()
	ss, err := NewShaderSystem(&ShaderSystemConfig{MaxShaderCount: 512, SortMacros: true}, d, bus)
	require.NoError(t, err)
	return ss
}

func bonesBlock(bones uint32) metadata.ConstantBlockReflection {
	return metadata.ConstantBlockReflection{
		Name: BoneBlockName,
		Size: bones * 64,
		Variables: []metadata.UniformVariableReflection{
			{Name: "bone_matrices", Size: bones * 64, Offset: 0},
		},
	}
}
