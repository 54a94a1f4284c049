package headless

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/renderer/metadata"
)

func newDevice(t *testing.T, size uint64) *Device {
	t.Helper()
	d, err := New(core.DeviceConfig{RingBufferSize: size, RingAlignment: 16})
	require.NoError(t, err)
	return d
}

func skinnedConfig() *metadata.ShaderConfig {
	return &metadata.ShaderConfig{
		Name:      "Builtin.Skinned",
		FailMacro: "BROKEN",
		Blocks: []metadata.ConstantBlockReflection{
			{
				Name: "material",
				Size: 32,
				Variables: []metadata.UniformVariableReflection{
					{Name: "diffuse_colour", Size: 16, Offset: 0},
					{Name: "shininess", Size: 4, Offset: 16},
					{Name: "rim_power", Size: 4, Offset: 20, Requires: "RIM_LIGHT"},
				},
			},
			{Name: "bones", Size: 64 * 4, Requires: "SKINNED"},
		},
	}
}

func TestCompileProgramFiltersByMacros(t *testing.T) {
	d := newDevice(t, 1024)

	s, err := d.CompileProgram(skinnedConfig(), nil)
	require.NoError(t, err)
	blocks := s.ReflectedConstantBlocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, "material", blocks[0].Name)
	assert.Len(t, blocks[0].Variables, 2)

	s, err = d.CompileProgram(skinnedConfig(), metadata.MacroSet{}.Set("SKINNED", "1").Set("RIM_LIGHT", "1"))
	require.NoError(t, err)
	blocks = s.ReflectedConstantBlocks()
	require.Len(t, blocks, 2)
	assert.Len(t, blocks[0].Variables, 3)
	assert.Equal(t, uint32(256), blocks[1].Size)
	assert.Equal(t, 2, d.CompileCount())
}

func TestCompileProgramFailMacro(t *testing.T) {
	d := newDevice(t, 1024)
	s, err := d.CompileProgram(skinnedConfig(), metadata.MacroSet{{Name: "BROKEN", Value: ""}})
	assert.ErrorIs(t, err, ErrCompileFailed)
	assert.Nil(t, s)
	assert.Equal(t, 1, d.CompileCount())
}

func TestMapBindUnmap(t *testing.T) {
	d := newDevice(t, 256)

	mem, h, err := d.Map(8)
	require.NoError(t, err)
	require.Len(t, mem, 8)
	copy(mem, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	s, err := d.CompileProgram(skinnedConfig(), nil)
	require.NoError(t, err)
	d.BindUniformBlock(s, "material", metadata.BufferRange{Handle: h, MemoryRange: metadata.MemoryRange{Size: 8}})

	bindings := d.Bindings()
	require.Len(t, bindings, 1)
	assert.Equal(t, "Builtin.Skinned", bindings[0].Shader)
	assert.Equal(t, "material", bindings[0].Block)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, bindings[0].Data)

	assert.Equal(t, 1, d.Mapped())
	require.NoError(t, d.Unmap(h))
	assert.Equal(t, 0, d.Mapped())
	assert.ErrorIs(t, d.Unmap(h), core.ErrUnknownHandle)
}

func TestMapFullRing(t *testing.T) {
	d := newDevice(t, 64)
	_, _, err := d.Map(48)
	require.NoError(t, err)
	_, _, err = d.Map(32)
	assert.ErrorIs(t, err, core.ErrRingBufferFull)
}

func TestEndFrameRecyclesRing(t *testing.T) {
	d := newDevice(t, 64)
	require.NoError(t, d.BeginFrame(0.016))
	_, _, err := d.Map(64)
	require.NoError(t, err)
	require.NoError(t, d.EndFrame(0.016))
	assert.Equal(t, 0, d.Mapped())

	_, _, err = d.Map(64)
	assert.NoError(t, err)
}
