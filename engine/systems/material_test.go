package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-core/engine/containers"
	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/math"
	"github.com/spaghettifunk/anima-core/engine/renderer/headless"
	"github.com/spaghettifunk/anima-core/engine/renderer/metadata"
)

func twoPassDefinition(t *testing.T, d *headless.Device) *MaterialDefinition {
	t.Helper()
	md, err := NewMaterialDefinition("Phong", []MaterialPass{
		{Name: "forward", Shader: NewShaderCache(forwardShader(), d, true)},
		{Name: "shadow", Shader: NewShaderCache(shadowShader(), d, true)},
	})
	require.NoError(t, err)
	return md
}

func TestMaterialDefinitionDeduplicatesBlocks(t *testing.T) {
	md := twoPassDefinition(t, newTestDevice(t))

	require.Len(t, md.Blocks, 3)
	assert.Equal(t, "frame", md.Blocks[0].Name)
	assert.Equal(t, uint64(0), md.Blocks[0].Offset)
	assert.Equal(t, "material", md.Blocks[1].Name)
	assert.Equal(t, uint64(128), md.Blocks[1].Offset)
	assert.Equal(t, "light", md.Blocks[2].Name)
	assert.Equal(t, uint64(160), md.Blocks[2].Offset)
	assert.Equal(t, uint64(240), md.Size())

	assert.Equal(t, []int{0}, md.Blocks[0].Passes)
	assert.Equal(t, []int{0, 1}, md.Blocks[1].Passes)
	assert.Equal(t, []int{1}, md.Blocks[2].Passes)
	assert.Equal(t, [][]int{{0, 1}, {1, 2}}, md.PassBlocks)

	assert.Equal(t, UniformID("material"), md.Blocks[1].ID)
}

func TestMaterialDefinitionIsDeterministic(t *testing.T) {
	d := newTestDevice(t)
	a := twoPassDefinition(t, d)
	b := twoPassDefinition(t, d)

	require.Equal(t, len(a.Blocks), len(b.Blocks))
	for i := range a.Blocks {
		assert.Equal(t, a.Blocks[i].Name, b.Blocks[i].Name)
		assert.Equal(t, a.Blocks[i].Size, b.Blocks[i].Size)
		assert.Equal(t, a.Blocks[i].Offset, b.Blocks[i].Offset)
	}
	assert.Equal(t, a.Size(), b.Size())
	assert.Equal(t, a.PassBlocks, b.PassBlocks)
}

func TestMaterialDefinitionSameBlockInOnePass(t *testing.T) {
	cfg := forwardShader()
	cfg.Blocks = append(cfg.Blocks, cfg.Blocks[1])
	md, err := NewMaterialDefinition("Twice", []MaterialPass{
		{Name: "forward", Shader: NewShaderCache(cfg, newTestDevice(t), true)},
	})
	require.NoError(t, err)
	assert.Len(t, md.Blocks, 2)
	assert.Equal(t, [][]int{{0, 1}}, md.PassBlocks)
}

func TestMaterialDefinitionPassWithoutShader(t *testing.T) {
	d := newTestDevice(t)
	broken := forwardShader()
	broken.FailMacro = "ALWAYS"
	md, err := NewMaterialDefinition("Partial", []MaterialPass{
		{Name: "forward", Shader: NewShaderCache(broken, d, true), Macros: metadata.MacroSet{}.Set("ALWAYS", "")},
		{Name: "debug"},
		{Name: "shadow", Shader: NewShaderCache(shadowShader(), d, true)},
	})
	require.NoError(t, err)
	assert.Len(t, md.Blocks, 2)
	assert.Empty(t, md.PassBlocks[0])
	assert.Empty(t, md.PassBlocks[1])
	assert.Equal(t, []int{0, 1}, md.PassBlocks[2])
	assert.Equal(t, uint64(0), md.Blocks[0].Offset)

	_, err = NewMaterialDefinition("", []MaterialPass{{Name: "debug"}})
	assert.Error(t, err)
	_, err = NewMaterialDefinition("Empty", nil)
	assert.Error(t, err)
}

func TestFindUniform(t *testing.T) {
	md := twoPassDefinition(t, newTestDevice(t))

	b := md.FindUniformBlock(UniformID("light"))
	require.NotNil(t, b)
	assert.Equal(t, "light", b.Name)
	assert.Nil(t, md.FindUniformBlock(UniformID("missing")))

	v, owner := md.FindUniformVar(UniformID("shininess"))
	require.NotNil(t, v)
	assert.Equal(t, "material", owner.Name)
	assert.Equal(t, uint32(16), v.Offset)

	v, owner = md.FindUniformVar(UniformID("missing"))
	assert.Nil(t, v)
	assert.Nil(t, owner)
}

func TestSetVariableRoundTrip(t *testing.T) {
	d := newTestDevice(t)
	mi := NewMaterialInstance(twoPassDefinition(t, d), d)

	colour := math.NewVec4(0.25, 0.5, 0.75, 1)
	require.NoError(t, mi.SetVec4(UniformID("diffuse_colour"), colour))
	require.NoError(t, mi.SetFloat32(UniformID("shininess"), 32))
	require.NoError(t, mi.SetUint32(UniformID("flags"), 0x5))
	view := math.NewMat4Translation(math.NewVec3(0, 0, -10))
	require.NoError(t, mi.SetMat4(UniformID("view"), view))
	require.NoError(t, mi.SetFloat32(UniformID("bias"), 0.005))

	got, err := mi.Variable(UniformID("diffuse_colour"))
	require.NoError(t, err)
	assert.Equal(t, containers.Float32Bytes(0.25, 0.5, 0.75, 1), got)

	got, err = mi.Variable(UniformID("view"))
	require.NoError(t, err)
	assert.Equal(t, []math.Mat4{view}, containers.BytesMat4(got))

	// the bytes land at block offset plus variable offset
	assert.Equal(t, containers.Float32Bytes(32), mi.Bytes()[128+16:128+20])
	assert.Equal(t, containers.Uint32Bytes(5), mi.Bytes()[128+20:128+24])
	assert.Equal(t, containers.Float32Bytes(0.005), mi.Bytes()[160+64:160+68])

	require.NoError(t, mi.SetInt32(UniformID("flags"), -3))
	assert.Equal(t, containers.Int32Bytes(-3), mi.Bytes()[128+20:128+24])

	_, err = mi.Variable(UniformID("missing"))
	assert.ErrorIs(t, err, core.ErrUnknownUniform)
}

func TestSetVariableRejections(t *testing.T) {
	d := newTestDevice(t)
	mi := NewMaterialInstance(twoPassDefinition(t, d), d)
	require.NoError(t, mi.SetFloat32(UniformID("shininess"), 8))
	before := append([]byte(nil), mi.Bytes()...)

	assert.ErrorIs(t, mi.SetVariable(UniformID("missing"), make([]byte, 4)), core.ErrUnknownUniform)
	assert.ErrorIs(t, mi.SetVec3(UniformID("diffuse_colour"), math.NewVec3One()), core.ErrUniformSizeMismatch)
	assert.ErrorIs(t, mi.SetVariable(UniformID("shininess"), make([]byte, 8)), core.ErrUniformSizeMismatch)
	assert.ErrorIs(t, mi.SetVariable(UniformID("shininess"), nil), core.ErrUniformSizeMismatch)

	assert.Equal(t, before, mi.Bytes())
}

func TestSetVariableSpillingPastBlock(t *testing.T) {
	d := newTestDevice(t)
	// reflection straight from the compiler is not validated
	cfg := &metadata.ShaderConfig{
		Name: "Spill",
		Blocks: []metadata.ConstantBlockReflection{
			{Name: "a", Size: 16, Variables: []metadata.UniformVariableReflection{{Name: "tail", Size: 8, Offset: 12}}},
			{Name: "b", Size: 16, Variables: []metadata.UniformVariableReflection{{Name: "head", Size: 4, Offset: 0}}},
		},
	}
	md, err := NewMaterialDefinition("Spill", []MaterialPass{{Name: "forward", Shader: NewShaderCache(cfg, d, true)}})
	require.NoError(t, err)
	mi := NewMaterialInstance(md, d)
	before := append([]byte(nil), mi.Bytes()...)

	err = mi.SetVariable(UniformID("tail"), []byte{1, 2, 3, 4, 5, 6, 7, 8})
	assert.ErrorIs(t, err, core.ErrOutOfBounds)
	assert.Equal(t, before, mi.Bytes())
}

func TestInstancesAreIndependent(t *testing.T) {
	d := newTestDevice(t)
	md := twoPassDefinition(t, d)
	require.NoError(t, md.SetDefault(UniformID("shininess"), containers.Float32Bytes(16)))

	a := NewMaterialInstance(md, d)
	b := NewMaterialInstance(md, d)
	assert.NotEqual(t, a.ID, b.ID)

	require.NoError(t, a.SetFloat32(UniformID("shininess"), 64))
	got, err := b.Variable(UniformID("shininess"))
	require.NoError(t, err)
	assert.Equal(t, containers.Float32Bytes(16), got)

	a.ResetToDefaults()
	got, err = a.Variable(UniformID("shininess"))
	require.NoError(t, err)
	assert.Equal(t, containers.Float32Bytes(16), got)
	assert.Equal(t, md.Defaults(), a.Bytes())
}

func TestInstanceMacros(t *testing.T) {
	d := newTestDevice(t)
	mi := NewMaterialInstance(twoPassDefinition(t, d), d)
	mi.SetMacro("B", "1")
	mi.SetMacro("A", "1")
	mi.SetMacro("B", "2")
	assert.Equal(t, metadata.MacroSet{{Name: "B", Value: "2"}, {Name: "A", Value: "1"}}, mi.Macros())
	mi.RemoveMacro("B")
	assert.Equal(t, metadata.MacroSet{{Name: "A", Value: "1"}}, mi.Macros())
}

func TestBeginPassBindsBlocks(t *testing.T) {
	d := newTestDevice(t)
	mi := NewMaterialInstance(twoPassDefinition(t, d), d)
	require.NoError(t, mi.SetFloat32(UniformID("shininess"), 12))

	shader, err := mi.BeginPass(1)
	require.NoError(t, err)
	require.NotNil(t, shader)
	assert.Equal(t, "Builtin.Shadow", shader.Name())

	bindings := d.Bindings()
	require.Len(t, bindings, 2)
	assert.Equal(t, "material", bindings[0].Block)
	assert.Equal(t, "light", bindings[1].Block)
	assert.Equal(t, mi.Bytes()[128:160], bindings[0].Data)
	assert.Equal(t, uint64(32), bindings[0].Range.Size)
	assert.Equal(t, 2, d.Mapped())

	require.NoError(t, mi.EndPass())
	assert.Equal(t, 0, d.Mapped())
}

func TestBeginPassFailures(t *testing.T) {
	d := newTestDevice(t)
	mi := NewMaterialInstance(twoPassDefinition(t, d), d)

	_, err := mi.BeginPass(2)
	assert.ErrorIs(t, err, core.ErrInvalidPass)
	_, err = mi.BeginPass(-1)
	assert.ErrorIs(t, err, core.ErrInvalidPass)

	mi.SetMacro("UNSUPPORTED", "1")
	shader, err := mi.BeginPass(0)
	assert.ErrorIs(t, err, core.ErrShaderUnavailable)
	assert.Nil(t, shader)
	assert.Empty(t, d.Bindings())
	assert.Equal(t, 0, d.Mapped())

	// the other pass still draws
	_, err = mi.BeginPass(1)
	assert.NoError(t, err)
	assert.NoError(t, mi.EndPass())
}

func TestBeginPassWithoutEndPass(t *testing.T) {
	d := newTestDevice(t)
	mi := NewMaterialInstance(twoPassDefinition(t, d), d)

	_, err := mi.BeginPass(0)
	require.NoError(t, err)
	_, err = mi.BeginPass(1)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Mapped())
	require.NoError(t, mi.EndPass())
	assert.Equal(t, 0, d.Mapped())
}

func TestBeginPassRingExhausted(t *testing.T) {
	d, err := headless.New(core.DeviceConfig{RingBufferSize: 160, RingAlignment: 16})
	require.NoError(t, err)
	mi := NewMaterialInstance(twoPassDefinition(t, d), d)

	// frame (128) and material (32) fill the ring exactly
	_, err = mi.BeginPass(0)
	require.NoError(t, err)
	require.NoError(t, mi.EndPass())

	// with 16 bytes taken the material block no longer fits
	_, _, err = d.Map(16)
	require.NoError(t, err)
	_, err = mi.BeginPass(0)
	assert.ErrorIs(t, err, core.ErrRingBufferFull)
	assert.Equal(t, 1, d.Mapped())
}

func TestBeginPassSkipsEmptyBlocks(t *testing.T) {
	d := newTestDevice(t)
	config := &metadata.ShaderConfig{
		Name:   "Builtin.Sparse",
		Stages: []string{"vertex"},
		Blocks: []metadata.ConstantBlockReflection{
			{Name: "empty", Size: 0},
			{Name: "material", Size: 16, Variables: []metadata.UniformVariableReflection{{Name: "tint", Size: 16}}},
		},
	}
	md, err := NewMaterialDefinition("Sparse", []MaterialPass{{Name: "forward", Shader: NewShaderCache(config, d, true)}})
	require.NoError(t, err)
	mi := NewMaterialInstance(md, d)

	shader, err := mi.BeginPass(0)
	require.NoError(t, err)
	require.NotNil(t, shader)
	bindings := d.Bindings()
	require.Len(t, bindings, 1)
	assert.Equal(t, "material", bindings[0].Block)
	require.NoError(t, mi.EndPass())
}

func newTestMaterialSystem(t *testing.T) (*MaterialSystem, *ShaderSystem, *headless.Device) {
	t.Helper()
	d := newTestDevice(t)
	ss := newTestShaderSystem(t, d, nil)
	_, err := ss.Register(forwardShader())
	require.NoError(t, err)
	_, err = ss.Register(shadowShader())
	require.NoError(t, err)
	ms, err := NewMaterialSystem(&MaterialSystemConfig{MaxMaterialCount: 16}, ss, d)
	require.NoError(t, err)
	return ms, ss, d
}

func phongConfig() *metadata.MaterialConfig {
	return &metadata.MaterialConfig{
		Name: "Phong",
		Passes: []metadata.MaterialPassConfig{
			{Name: "forward", Shader: "Builtin.Forward"},
			{Name: "shadow", Shader: "Builtin.Shadow"},
		},
		Defaults: []metadata.MaterialDefaultConfig{
			{Name: "diffuse_colour", Type: "vec4", Value: []float64{1, 1, 1, 1}},
			{Name: "shininess", Type: "float", Value: []float64{32}},
			{Name: "flags", Type: "uint", Value: []float64{3}},
			{Name: "removed_in_shader", Type: "float", Value: []float64{1}},
		},
	}
}

func TestMaterialSystemAcquire(t *testing.T) {
	ms, _, _ := newTestMaterialSystem(t)
	_, err := ms.Load(phongConfig())
	require.NoError(t, err)

	mi, err := ms.Acquire("Phong")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ms.ReferenceCount("Phong"))

	got, err := mi.Variable(UniformID("diffuse_colour"))
	require.NoError(t, err)
	assert.Equal(t, containers.Float32Bytes(1, 1, 1, 1), got)
	got, err = mi.Variable(UniformID("flags"))
	require.NoError(t, err)
	assert.Equal(t, containers.Uint32Bytes(3), got)

	ms.Release(mi)
	assert.Equal(t, uint64(0), ms.ReferenceCount("Phong"))

	_, err = ms.Acquire("Missing")
	assert.ErrorIs(t, err, core.ErrUnknownMaterial)
}

func TestMaterialSystemUnknownShader(t *testing.T) {
	ms, _, _ := newTestMaterialSystem(t)
	cfg := phongConfig()
	cfg.Passes[1].Shader = "Builtin.Missing"
	def, err := ms.Load(cfg)
	require.NoError(t, err)
	assert.Nil(t, def.Passes[1].Shader)
	assert.Len(t, def.Blocks, 2)
}

func TestMaterialSystemRebuild(t *testing.T) {
	ms, ss, _ := newTestMaterialSystem(t)
	_, err := ms.Load(phongConfig())
	require.NoError(t, err)
	_, err = ms.Load(&metadata.MaterialConfig{
		Name:   "ShadowOnly",
		Passes: []metadata.MaterialPassConfig{{Name: "shadow", Shader: "Builtin.Shadow"}},
	})
	require.NoError(t, err)

	old := ms.Definition("Phong")
	mi, err := ms.Acquire("Phong")
	require.NoError(t, err)

	updated := forwardShader()
	updated.Blocks[0].Size = 256
	_, err = ss.Reload(updated)
	require.NoError(t, err)

	assert.Equal(t, []string{"Phong"}, ms.Rebuild("Builtin.Forward"))
	assert.NotSame(t, old, ms.Definition("Phong"))
	assert.Equal(t, uint64(256+32+80), ms.Definition("Phong").Size())
	// live instances keep the layout they were created with
	assert.Same(t, old, mi.Definition)

	assert.Empty(t, ms.Rebuild("Builtin.Unused"))
}

func TestBeginPassRejectsLayoutChangedByReload(t *testing.T) {
	ms, ss, d := newTestMaterialSystem(t)
	_, err := ms.Load(phongConfig())
	require.NoError(t, err)
	stale, err := ms.Acquire("Phong")
	require.NoError(t, err)

	updated := forwardShader()
	updated.Blocks[1].Size = 64
	_, err = ss.Reload(updated)
	require.NoError(t, err)
	assert.Equal(t, []string{"Phong"}, ms.Rebuild("Builtin.Forward"))

	d.ClearBindings()
	shader, err := stale.BeginPass(0)
	assert.ErrorIs(t, err, core.ErrShaderUnavailable)
	assert.Nil(t, shader)
	assert.Empty(t, d.Bindings(), "no bytes in the old layout reach the new shader")
	assert.Equal(t, 0, d.Mapped())

	// the shadow shader did not change
	_, err = stale.BeginPass(1)
	require.NoError(t, err)
	require.NoError(t, stale.EndPass())

	fresh, err := ms.Acquire("Phong")
	require.NoError(t, err)
	d.ClearBindings()
	_, err = fresh.BeginPass(0)
	require.NoError(t, err)
	var materialSize uint64
	for _, b := range d.Bindings() {
		if b.Block == "material" {
			materialSize = b.Range.Size
		}
	}
	assert.Equal(t, uint64(64), materialSize)
	require.NoError(t, fresh.EndPass())
}

func TestMaterialSystemDefaultSizeMismatch(t *testing.T) {
	ms, _, _ := newTestMaterialSystem(t)
	config := phongConfig()
	config.Defaults = append(config.Defaults, metadata.MaterialDefaultConfig{
		Name: "shininess", Type: "vec3", Value: []float64{1, 2, 3},
	})

	_, err := ms.Load(config)
	assert.ErrorIs(t, err, core.ErrUniformSizeMismatch)
	assert.Nil(t, ms.Definition("Phong"))

	// defaults for variables the shaders do not declare are skipped
	_, err = ms.Load(phongConfig())
	require.NoError(t, err)
}

func TestMaterialSystemLimit(t *testing.T) {
	d := newTestDevice(t)
	ss := newTestShaderSystem(t, d, nil)
	ms, err := NewMaterialSystem(&MaterialSystemConfig{MaxMaterialCount: 1}, ss, d)
	require.NoError(t, err)

	_, err = ms.Load(&metadata.MaterialConfig{Name: "A", Passes: []metadata.MaterialPassConfig{{Name: "p"}}})
	require.NoError(t, err)
	_, err = ms.Load(&metadata.MaterialConfig{Name: "A", Passes: []metadata.MaterialPassConfig{{Name: "p"}}})
	require.NoError(t, err)
	_, err = ms.Load(&metadata.MaterialConfig{Name: "B", Passes: []metadata.MaterialPassConfig{{Name: "p"}}})
	assert.Error(t, err)

	_, err = NewMaterialSystem(&MaterialSystemConfig{MaxMaterialCount: 0}, ss, d)
	assert.Error(t, err)
}

func TestEncodeDefault(t *testing.T) {
	data, err := EncodeDefault(metadata.MaterialDefaultConfig{Name: "n", Type: "int", Value: []float64{-2}})
	require.NoError(t, err)
	assert.Equal(t, containers.Int32Bytes(-2), data)

	data, err = EncodeDefault(metadata.MaterialDefaultConfig{Name: "n", Type: "vec3", Value: []float64{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, containers.Float32Bytes(1, 2, 3), data)

	for _, bad := range []metadata.MaterialDefaultConfig{
		{Name: "n", Type: "vec3", Value: []float64{1, 2}},
		{Name: "n", Type: "double", Value: []float64{1}},
		{Name: "n", Type: "custom", Value: []float64{1}},
		{Name: "n", Type: "uint", Value: []float64{-1}},
	} {
		_, err := EncodeDefault(bad)
		assert.Error(t, err, "%+v", bad)
	}
}
