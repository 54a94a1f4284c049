package systems

import (
	"errors"

	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/renderer"
)

type SystemManager struct {
	JobSystem       *JobSystem
	ShaderSystem    *ShaderSystem
	MaterialSystem  *MaterialSystem
	AnimationSystem *AnimationSystem
}

// NewSystemManager builds the engine systems from config. The device compiles the
// shader permutations and receives the uniform uploads of every system.
func NewSystemManager(config core.Config, device renderer.RenderDevice, eventBus *core.EventBus) (*SystemManager, error) {
	if device == nil {
		return nil, errors.New("NewSystemManager - a render device is required")
	}
	workers := config.Animation.Workers
	if workers < 1 {
		workers = 1
	}
	js, err := NewJobSystem(workers, workers*4)
	if err != nil {
		return nil, err
	}
	ssys, err := NewShaderSystem(&ShaderSystemConfig{
		MaxShaderCount: config.Shader.MaxShaderCount,
		SortMacros:     config.Shader.SortMacros,
	}, device, eventBus)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	ms, err := NewMaterialSystem(&MaterialSystemConfig{
		MaxMaterialCount: config.Material.MaxMaterialCount,
	}, ssys, device)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	as, err := NewAnimationSystem(&AnimationSystemConfig{
		MaxBones:         config.Animation.MaxBones,
		BindPoseFallback: config.Animation.BindPoseFallback,
	}, js, eventBus)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	return &SystemManager{
		JobSystem:       js,
		ShaderSystem:    ssys,
		MaterialSystem:  ms,
		AnimationSystem: as,
	}, nil
}

// Shutdown stops the systems in reverse dependency order. The job system goes last
// since the animation system may still be waiting on it.
func (sm *SystemManager) Shutdown() error {
	if err := sm.AnimationSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.MaterialSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.ShaderSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.JobSystem.Shutdown(); err != nil {
		return err
	}
	return nil
}
