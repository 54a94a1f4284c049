package metadata

/** @brief A typed default value for a material variable. */
type MaterialDefaultConfig struct {
	/** @brief The uniform variable name. */
	Name string `toml:"name"`
	/** @brief One of float, vec2, vec3, vec4, int, uint, mat4. */
	Type string `toml:"type"`
	/** @brief The components, in order. */
	Value []float64 `toml:"value"`
}

/** @brief A render pass of a material and the shader it draws with. */
type MaterialPassConfig struct {
	/** @brief The pass name, e.g. "forward" or "shadow". */
	Name string `toml:"name"`
	/** @brief The name of the shader config the pass compiles. */
	Shader string `toml:"shader"`
	/** @brief Macros every permutation of this pass defines. */
	Macros MacroSet `toml:"macros"`
}

/**
 * @brief Material configuration typically loaded from
 * a file or created in code to load a material from.
 */
type MaterialConfig struct {
	/** @brief The name of the material. */
	Name string `toml:"name"`
	/** @brief The passes, in the order blocks are registered. */
	Passes []MaterialPassConfig `toml:"passes"`
	/** @brief Values seeded into the base uniform buffer. */
	Defaults []MaterialDefaultConfig `toml:"defaults"`
}
