package systems

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-core/engine/containers"
	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/renderer"
	"github.com/spaghettifunk/anima-core/engine/renderer/metadata"
)

/** @brief The configuration for the material system. */
type MaterialSystemConfig struct {
	/** @brief The maximum number of loaded materials. */
	MaxMaterialCount uint32
}

type materialReference struct {
	Config         *metadata.MaterialConfig
	Definition     *MaterialDefinition
	ReferenceCount uint64
}

type MaterialSystem struct {
	Config *MaterialSystemConfig

	materials    map[string]*materialReference
	shaderSystem *ShaderSystem
	device       renderer.RenderDevice
}

func NewMaterialSystem(config *MaterialSystemConfig, shaderSystem *ShaderSystem, device renderer.RenderDevice) (*MaterialSystem, error) {
	if config.MaxMaterialCount == 0 {
		err := fmt.Errorf("NewMaterialSystem - config.MaxMaterialCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	if shaderSystem == nil || device == nil {
		err := fmt.Errorf("NewMaterialSystem - a shader system and a render device are required")
		core.LogError(err.Error())
		return nil, err
	}
	return &MaterialSystem{
		Config:       config,
		materials:    make(map[string]*materialReference),
		shaderSystem: shaderSystem,
		device:       device,
	}, nil
}

func (ms *MaterialSystem) Shutdown() error {
	clear(ms.materials)
	return nil
}

/**
 * @brief Builds the definition of a material and registers it under its name,
 * replacing any previous definition. Instances acquired earlier keep the old one.
 */
func (ms *MaterialSystem) Load(config *metadata.MaterialConfig) (*MaterialDefinition, error) {
	if config == nil {
		return nil, fmt.Errorf("cannot load a nil material config")
	}
	ref, exists := ms.materials[config.Name]
	if !exists && uint32(len(ms.materials)) >= ms.Config.MaxMaterialCount {
		err := fmt.Errorf("unable to load material '%s', %d materials already loaded", config.Name, len(ms.materials))
		core.LogError(err.Error())
		return nil, err
	}

	def, err := ms.build(config)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	if exists {
		ref.Config = config
		ref.Definition = def
	} else {
		ms.materials[config.Name] = &materialReference{Config: config, Definition: def}
	}
	return def, nil
}

func (ms *MaterialSystem) build(config *metadata.MaterialConfig) (*MaterialDefinition, error) {
	passes := make([]MaterialPass, len(config.Passes))
	for i, p := range config.Passes {
		passes[i] = MaterialPass{
			Name:   p.Name,
			Macros: p.Macros.Clone(),
		}
		if p.Shader == "" {
			continue
		}
		if cache := ms.shaderSystem.Get(p.Shader); cache != nil {
			passes[i].Shader = cache
		} else {
			core.LogWarn("material '%s' pass '%s' uses unknown shader '%s'", config.Name, p.Name, p.Shader)
		}
	}

	def, err := NewMaterialDefinition(config.Name, passes)
	if err != nil {
		return nil, err
	}
	for _, d := range config.Defaults {
		data, err := EncodeDefault(d)
		if err != nil {
			return nil, fmt.Errorf("material '%s': %w", config.Name, err)
		}
		// an unmatched default is not fatal, the shader may have dropped the variable
		if err := def.SetDefault(UniformID(d.Name), data); err != nil && !errors.Is(err, core.ErrUnknownUniform) {
			return nil, fmt.Errorf("material '%s' default '%s': %w", config.Name, d.Name, err)
		}
	}
	return def, nil
}

// EncodeDefault converts a configured default into its shader layout.
func EncodeDefault(d metadata.MaterialDefaultConfig) ([]byte, error) {
	t, err := metadata.ShaderUniformTypeFromString(d.Type)
	if err != nil {
		return nil, err
	}
	n := t.Components()
	if n == 0 {
		return nil, fmt.Errorf("default '%s' has unsupported type %s", d.Name, d.Type)
	}
	if len(d.Value) != n {
		return nil, fmt.Errorf("default '%s' of type %s needs %d values, got %d", d.Name, d.Type, n, len(d.Value))
	}

	switch t {
	case metadata.ShaderUniformTypeInt32:
		return containers.Int32Bytes(int32(d.Value[0])), nil
	case metadata.ShaderUniformTypeUint32:
		if d.Value[0] < 0 {
			return nil, fmt.Errorf("default '%s' of type uint is negative", d.Name)
		}
		return containers.Uint32Bytes(uint32(d.Value[0])), nil
	}
	values := make([]float32, n)
	for i, v := range d.Value {
		values[i] = float32(v)
	}
	return containers.Float32Bytes(values...), nil
}

/**
 * @brief Creates an instance of a loaded material.
 *
 * @param name The material name.
 * @return A new instance seeded with the material defaults.
 */
func (ms *MaterialSystem) Acquire(name string) (*MaterialInstance, error) {
	ref, ok := ms.materials[name]
	if !ok {
		err := fmt.Errorf("%w: '%s'", core.ErrUnknownMaterial, name)
		core.LogWarn(err.Error())
		return nil, err
	}
	ref.ReferenceCount++
	return NewMaterialInstance(ref.Definition, ms.device), nil
}

// Release drops an instance acquired from the system.
func (ms *MaterialSystem) Release(instance *MaterialInstance) {
	if instance == nil {
		return
	}
	if err := instance.EndPass(); err != nil {
		core.LogWarn(err.Error())
	}
	ref, ok := ms.materials[instance.Definition.Name]
	if !ok || ref.ReferenceCount == 0 {
		core.LogWarn("released an instance of material '%s' that was not acquired", instance.Definition.Name)
		return
	}
	ref.ReferenceCount--
}

// ReferenceCount returns the number of live instances of the named material.
func (ms *MaterialSystem) ReferenceCount(name string) uint64 {
	if ref, ok := ms.materials[name]; ok {
		return ref.ReferenceCount
	}
	return 0
}

// Definition returns the current definition of the named material, or nil.
func (ms *MaterialSystem) Definition(name string) *MaterialDefinition {
	if ref, ok := ms.materials[name]; ok {
		return ref.Definition
	}
	return nil
}

/**
 * @brief Rebuilds every material with a pass using the named shader, typically
 * after the shader was reloaded.
 *
 * @return The names of the rebuilt materials.
 */
func (ms *MaterialSystem) Rebuild(shaderName string) []string {
	var rebuilt []string
	for name, ref := range ms.materials {
		uses := false
		for _, p := range ref.Config.Passes {
			if p.Shader == shaderName {
				uses = true
				break
			}
		}
		if !uses {
			continue
		}
		def, err := ms.build(ref.Config)
		if err != nil {
			core.LogError("failed to rebuild material '%s': %s", name, err.Error())
			continue
		}
		ref.Definition = def
		rebuilt = append(rebuilt, name)
	}
	slices.Sort(rebuilt)
	return rebuilt
}
