package metadata

import (
	"fmt"
	"strings"
)

/** @brief Shader stages available in the system. */
type ShaderStage int

const (
	ShaderStageVertex   ShaderStage = 0x00000001
	ShaderStageGeometry ShaderStage = 0x00000002
	ShaderStageFragment ShaderStage = 0x00000004
	ShaderStageCompute  ShaderStage = 0x0000008
)

func ShaderStageFromString(s string) (ShaderStage, error) {
	switch strings.ToLower(s) {
	case "vertex", "vert":
		return ShaderStageVertex, nil
	case "geometry", "geom":
		return ShaderStageGeometry, nil
	case "fragment", "frag":
		return ShaderStageFragment, nil
	case "compute", "comp":
		return ShaderStageCompute, nil
	}
	return 0, fmt.Errorf("string %s is not a valid ShaderStage", s)
}

/** @brief Available uniform types. */
type ShaderUniformType uint

const (
	ShaderUniformTypeFloat32   ShaderUniformType = 0
	ShaderUniformTypeFloat32_2 ShaderUniformType = 1
	ShaderUniformTypeFloat32_3 ShaderUniformType = 2
	ShaderUniformTypeFloat32_4 ShaderUniformType = 3
	ShaderUniformTypeInt32     ShaderUniformType = 8
	ShaderUniformTypeUint32    ShaderUniformType = 9
	ShaderUniformTypeMatrix4   ShaderUniformType = 10
	ShaderUniformTypeCustom    ShaderUniformType = 255
)

func ShaderUniformTypeFromString(s string) (ShaderUniformType, error) {
	switch strings.ToLower(s) {
	case "f32", "float":
		return ShaderUniformTypeFloat32, nil
	case "vec2":
		return ShaderUniformTypeFloat32_2, nil
	case "vec3":
		return ShaderUniformTypeFloat32_3, nil
	case "vec4":
		return ShaderUniformTypeFloat32_4, nil
	case "i32", "int":
		return ShaderUniformTypeInt32, nil
	case "u32", "uint":
		return ShaderUniformTypeUint32, nil
	case "mat4":
		return ShaderUniformTypeMatrix4, nil
	case "custom":
		return ShaderUniformTypeCustom, nil
	}
	return 0, fmt.Errorf("string %s is not a valid ShaderUniformType", s)
}

// Components returns the number of 4-byte scalars of the type, or 0 for custom types.
func (t ShaderUniformType) Components() int {
	switch t {
	case ShaderUniformTypeFloat32, ShaderUniformTypeInt32, ShaderUniformTypeUint32:
		return 1
	case ShaderUniformTypeFloat32_2:
		return 2
	case ShaderUniformTypeFloat32_3:
		return 3
	case ShaderUniformTypeFloat32_4:
		return 4
	case ShaderUniformTypeMatrix4:
		return 16
	}
	return 0
}

/**
 * @brief A single variable of a reflected constant block.
 */
type UniformVariableReflection struct {
	/** @brief The variable name, as written in the shader. */
	Name string `toml:"name"`
	/** @brief The size in bytes. */
	Size uint32 `toml:"size"`
	/** @brief The offset in bytes from the start of the owning block. */
	Offset uint32 `toml:"offset"`
	/** @brief Only present in permutations defining this macro. Empty means always present. */
	Requires string `toml:"requires,omitempty"`
}

/**
 * @brief A constant (uniform) block as reported by shader reflection.
 */
type ConstantBlockReflection struct {
	/** @brief The block name the shader binds it under. */
	Name string `toml:"name"`
	/** @brief The total size of the block in bytes, padding included. */
	Size uint32 `toml:"size"`
	/** @brief The variables in declaration order. */
	Variables []UniformVariableReflection `toml:"variables"`
	/** @brief Only present in permutations defining this macro. Empty means always present. */
	Requires string `toml:"requires,omitempty"`
}

/**
 * @brief Configuration for a shader, the base description every permutation
 * is compiled from. Typically loaded from a .shadercfg resource file.
 */
type ShaderConfig struct {
	/** @brief The name of the shader to be created. */
	Name string `toml:"name"`
	/** @brief The name of the renderpass used by this shader. */
	RenderpassName string `toml:"renderpass"`
	/** @brief The collection of stage names. */
	Stages []string `toml:"stages"`
	/** @brief The collection of stage file names to be loaded (one per stage). Must align with stages array. */
	StageFilenames []string `toml:"stage_files"`
	/** @brief The constant blocks the shader declares. */
	Blocks []ConstantBlockReflection `toml:"blocks"`
	/** @brief Compilation fails for permutations defining this macro. Used to emulate broken variants. */
	FailMacro string `toml:"fail_macro,omitempty"`
}

// Validate checks the config for structural errors: stage names, block and variable layout.
func (sc *ShaderConfig) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("shader name is required")
	}
	if len(sc.StageFilenames) != 0 && len(sc.StageFilenames) != len(sc.Stages) {
		return fmt.Errorf("shader '%s' declares %d stages but %d stage files", sc.Name, len(sc.Stages), len(sc.StageFilenames))
	}
	for _, s := range sc.Stages {
		if _, err := ShaderStageFromString(s); err != nil {
			return fmt.Errorf("shader '%s': %w", sc.Name, err)
		}
	}
	for _, b := range sc.Blocks {
		if b.Name == "" {
			return fmt.Errorf("shader '%s' has a block without a name", sc.Name)
		}
		if b.Size == 0 {
			return fmt.Errorf("shader '%s' block '%s' has no size", sc.Name, b.Name)
		}
		for _, v := range b.Variables {
			if v.Name == "" {
				return fmt.Errorf("shader '%s' block '%s' has a variable without a name", sc.Name, b.Name)
			}
			if uint64(v.Offset)+uint64(v.Size) > uint64(b.Size) {
				return fmt.Errorf("shader '%s' block '%s' variable '%s' spills past the block (%d+%d > %d)",
					sc.Name, b.Name, v.Name, v.Offset, v.Size, b.Size)
			}
		}
	}
	return nil
}
