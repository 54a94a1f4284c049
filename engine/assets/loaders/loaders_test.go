package loaders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-core/engine/renderer/metadata"
)

const forwardShaderFile = `
renderpass = "world"
stages = ["vertex", "fragment"]
stage_files = ["forward.vert.spv", "forward.frag.spv"]
fail_macro = "UNSUPPORTED"

[[blocks]]
name = "frame"
size = 128

  [[blocks.variables]]
  name = "view"
  size = 64
  offset = 0

  [[blocks.variables]]
  name = "projection"
  size = 64
  offset = 64

[[blocks]]
name = "skin"
size = 64
requires = "SKINNED"
`

const litMaterialFile = `
name = "lit"

[[passes]]
name = "forward"
shader = "forward"
macros = [{ name = "NORMAL_MAP", value = "1" }]

[[passes]]
name = "shadow"
shader = "shadow"

[[defaults]]
name = "diffuse_colour"
type = "vec4"
value = [1.0, 0.5, 0.25, 1.0]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestShaderLoaderLoad(t *testing.T) {
	path := writeFile(t, "forward.shadercfg", forwardShaderFile)

	res, err := (&ShaderLoader{}).Load(path, metadata.ResourceTypeShader, nil)
	require.NoError(t, err)
	assert.Equal(t, "forward", res.Name)
	assert.Equal(t, metadata.ResourceTypeShader, res.Type)
	assert.NotZero(t, res.DataSize)

	config := res.Data.(*metadata.ShaderConfig)
	assert.Equal(t, "forward", config.Name, "name defaults to the file name")
	assert.Equal(t, "world", config.RenderpassName)
	assert.Equal(t, "UNSUPPORTED", config.FailMacro)
	require.Len(t, config.Blocks, 2)
	assert.Equal(t, uint32(128), config.Blocks[0].Size)
	require.Len(t, config.Blocks[0].Variables, 2)
	assert.Equal(t, uint32(64), config.Blocks[0].Variables[1].Offset)
	assert.Equal(t, "SKINNED", config.Blocks[1].Requires)

	require.NoError(t, (&ShaderLoader{}).Unload(res))
	assert.Nil(t, res.Data)
}

func TestShaderLoaderRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "stages = [\"vertex\"]\nstagez = 1\n"},
		{"bad stage", "stages = [\"tessellation\"]\n"},
		{"stage file count", "stages = [\"vertex\", \"fragment\"]\nstage_files = [\"a.spv\"]\n"},
		{"variable spills", "[[blocks]]\nname = \"b\"\nsize = 16\n[[blocks.variables]]\nname = \"v\"\nsize = 16\noffset = 4\n"},
		{"syntax", "stages = [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "broken.shadercfg", tt.content)
			_, err := (&ShaderLoader{}).Load(path, metadata.ResourceTypeShader, nil)
			assert.Error(t, err)
		})
	}

	_, err := (&ShaderLoader{}).Load(filepath.Join(t.TempDir(), "missing.shadercfg"), metadata.ResourceTypeShader, nil)
	assert.Error(t, err)

	path := writeFile(t, "forward.shadercfg", forwardShaderFile)
	_, err = (&ShaderLoader{}).Load(path, metadata.ResourceTypeMaterial, nil)
	assert.Error(t, err)
}

func TestMaterialLoaderLoad(t *testing.T) {
	path := writeFile(t, "whatever.amt", litMaterialFile)

	res, err := (&MaterialLoader{}).Load(path, metadata.ResourceTypeMaterial, nil)
	require.NoError(t, err)
	assert.Equal(t, "lit", res.Name)

	config := res.Data.(*metadata.MaterialConfig)
	require.Len(t, config.Passes, 2)
	assert.Equal(t, "forward", config.Passes[0].Shader)
	assert.Equal(t, metadata.MacroSet{{Name: "NORMAL_MAP", Value: "1"}}, config.Passes[0].Macros)
	assert.Empty(t, config.Passes[1].Macros)
	require.Len(t, config.Defaults, 1)
	assert.Equal(t, []float64{1, 0.5, 0.25, 1}, config.Defaults[0].Value)
}

func TestMaterialLoaderRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no passes", "name = \"m\"\n"},
		{"unnamed pass", "[[passes]]\nshader = \"forward\"\n"},
		{"duplicate pass", "[[passes]]\nname = \"a\"\n[[passes]]\nname = \"a\"\n"},
		{"bad default type", "[[passes]]\nname = \"a\"\n[[defaults]]\nname = \"d\"\ntype = \"vec7\"\nvalue = [1.0]\n"},
		{"wrong component count", "[[passes]]\nname = \"a\"\n[[defaults]]\nname = \"d\"\ntype = \"vec3\"\nvalue = [1.0]\n"},
		{"unknown key", "[[passes]]\nname = \"a\"\ncolour = 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "broken.amt", tt.content)
			_, err := (&MaterialLoader{}).Load(path, metadata.ResourceTypeMaterial, nil)
			assert.Error(t, err)
		})
	}
}
