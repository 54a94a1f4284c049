package systems

import (
	"fmt"

	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/renderer"
	"github.com/spaghettifunk/anima-core/engine/renderer/metadata"
)

/** @brief Configuration for the shader system. */
type ShaderSystemConfig struct {
	/** @brief The maximum number of shaders held in the system. NOTE: Should be at least 512. */
	MaxShaderCount uint16
	/** @brief Hash macro sets in sorted order. When false, definition order is part of the key. */
	SortMacros bool
}

// ShaderCacheStats counts lookups of a ShaderCache.
type ShaderCacheStats struct {
	Hits     uint64
	Misses   uint64
	Compiles uint64
	Failures uint64
}

// ShaderCache memoizes the permutations of one shader by the hash of their macro set.
// Failed compilations are not memoized, so the next lookup tries again.
//
// ShaderCache is not safe for concurrent use.
type ShaderCache struct {
	base         *metadata.ShaderConfig
	compiler     renderer.ShaderCompiler
	sortMacros   bool
	permutations map[uint64]renderer.Shader
	stats        ShaderCacheStats
}

func NewShaderCache(base *metadata.ShaderConfig, compiler renderer.ShaderCompiler, sortMacros bool) *ShaderCache {
	return &ShaderCache{
		base:         base,
		compiler:     compiler,
		sortMacros:   sortMacros,
		permutations: make(map[uint64]renderer.Shader),
	}
}

func (sc *ShaderCache) Name() string {
	return sc.base.Name
}

// Config returns the base description permutations are compiled from.
func (sc *ShaderCache) Config() *metadata.ShaderConfig {
	return sc.base
}

// Key returns the cache key of macros.
func (sc *ShaderCache) Key(macros metadata.MacroSet) uint64 {
	if sc.sortMacros {
		return metadata.HashMacros(macros.Sorted())
	}
	return metadata.HashMacros(macros)
}

/**
 * @brief Returns the permutation of the shader for the given macros, compiling it
 * on first use.
 *
 * @param macros The macro definitions selecting the permutation.
 * @return The shader, or nil if compilation failed.
 */
func (sc *ShaderCache) GetShader(macros metadata.MacroSet) renderer.Shader {
	key := sc.Key(macros)
	if s, ok := sc.permutations[key]; ok {
		sc.stats.Hits++
		return s
	}
	sc.stats.Misses++

	sc.stats.Compiles++
	s, err := sc.compiler.CompileProgram(sc.base, macros)
	if err != nil || s == nil {
		sc.stats.Failures++
		if err == nil {
			err = core.ErrShaderUnavailable
		}
		core.LogWarn("failed to compile shader '%s' with macros [%s]: %s", sc.base.Name, macros.String(), err.Error())
		return nil
	}
	sc.permutations[key] = s
	return s
}

// Invalidate drops every compiled permutation.
func (sc *ShaderCache) Invalidate() {
	clear(sc.permutations)
}

// Len returns the number of compiled permutations held.
func (sc *ShaderCache) Len() int {
	return len(sc.permutations)
}

func (sc *ShaderCache) Stats() ShaderCacheStats {
	return sc.stats
}

type ShaderSystem struct {
	// This system's configuration.
	Config *ShaderSystemConfig
	// A lookup table for shader name->cache
	Lookup map[string]*ShaderCache
	// sub systems
	compiler renderer.ShaderCompiler
	eventBus *core.EventBus
}

func NewShaderSystem(config *ShaderSystemConfig, compiler renderer.ShaderCompiler, eventBus *core.EventBus) (*ShaderSystem, error) {
	// Verify configuration.
	if config.MaxShaderCount < 512 {
		if config.MaxShaderCount == 0 {
			err := fmt.Errorf("NewShaderSystem - config.MaxShaderCount must be greater than 0")
			core.LogError(err.Error())
			return nil, err
		} else {
			core.LogWarn("NewShaderSystem - config.MaxShaderCount is recommended to be at least 512.")
		}
	}
	if compiler == nil {
		err := fmt.Errorf("NewShaderSystem - a shader compiler is required")
		core.LogError(err.Error())
		return nil, err
	}

	return &ShaderSystem{
		Config:   config,
		Lookup:   make(map[string]*ShaderCache),
		compiler: compiler,
		eventBus: eventBus,
	}, nil
}

/**
 * @brief Shuts down the shader system, dropping every permutation.
 */
func (shaderSystem *ShaderSystem) Shutdown() error {
	for name, cache := range shaderSystem.Lookup {
		cache.Invalidate()
		delete(shaderSystem.Lookup, name)
	}
	return nil
}

/**
 * @brief Registers a shader so its permutations can be requested by name.
 *
 * @param config The base description of the shader.
 * @return The permutation cache of the shader.
 */
func (shaderSystem *ShaderSystem) Register(config *metadata.ShaderConfig) (*ShaderCache, error) {
	if config == nil {
		return nil, fmt.Errorf("cannot register a nil shader config")
	}
	if err := config.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	if _, ok := shaderSystem.Lookup[config.Name]; ok {
		err := fmt.Errorf("shader '%s' is already registered", config.Name)
		core.LogError(err.Error())
		return nil, err
	}
	if len(shaderSystem.Lookup) >= int(shaderSystem.Config.MaxShaderCount) {
		err := fmt.Errorf("unable to register shader '%s', %d shaders already registered", config.Name, len(shaderSystem.Lookup))
		core.LogError(err.Error())
		return nil, err
	}
	cache := NewShaderCache(config, shaderSystem.compiler, shaderSystem.Config.SortMacros)
	shaderSystem.Lookup[config.Name] = cache
	return cache, nil
}

// Get returns the cache of the named shader, or nil.
func (shaderSystem *ShaderSystem) Get(name string) *ShaderCache {
	return shaderSystem.Lookup[name]
}

/**
 * @brief Replaces the base description of a registered shader and drops its
 * permutations. Unknown shaders are registered.
 */
func (shaderSystem *ShaderSystem) Reload(config *metadata.ShaderConfig) (*ShaderCache, error) {
	if config == nil {
		return nil, fmt.Errorf("cannot reload a nil shader config")
	}
	cache, ok := shaderSystem.Lookup[config.Name]
	if !ok {
		return shaderSystem.Register(config)
	}
	if err := config.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	cache.base = config
	cache.Invalidate()
	core.LogInfo("shader '%s' reloaded", config.Name)

	if shaderSystem.eventBus != nil {
		ctx := core.EventContext{}
		ctx.Data.C[0] = config.Name
		shaderSystem.eventBus.Fire(core.EventCodeShaderReloaded, shaderSystem, ctx)
	}
	return cache, nil
}
