package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/anima-core/engine/assets"
	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/renderer"
	"github.com/spaghettifunk/anima-core/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-core/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released its systems
	EngineStageShutdown
)

const targetFrameSeconds float64 = 1.0 / 60.0

type assetChange struct {
	name      string
	assetType metadata.ResourceType
}

type Engine struct {
	config        core.Config
	currentStage  Stage
	isRunning     atomic.Bool
	eventBus      *core.EventBus
	renderer      *renderer.Renderer
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	clock         *core.Clock
	metrics       *core.FrameMetrics
	lastTime      float64

	// written by the asset watcher, drained by Update
	pendingMutex sync.Mutex
	pending      []assetChange
}

// New builds the engine around device. Nothing is read from disk until Initialize.
func New(config core.Config, device renderer.RenderDevice) (*Engine, error) {
	core.InitLogger(config.Log)

	r, err := renderer.NewRenderer(device)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	eventBus := core.NewEventBus()

	am, err := assets.NewAssetManager(config.Assets, eventBus)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	sm, err := systems.NewSystemManager(config, device, eventBus)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	e := &Engine{
		config:        config,
		currentStage:  EngineStageUninitialized,
		eventBus:      eventBus,
		renderer:      r,
		assetManager:  am,
		systemManager: sm,
		clock:         core.NewClock(),
		metrics:       core.NewFrameMetrics(),
	}
	eventBus.Register(core.EventCodeAssetChanged, e, e.onAssetChanged)
	return e, nil
}

// Initialize indexes the asset directory and loads every shader, then every material.
// Assets that fail to load are logged and skipped.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if err := e.assetManager.Initialize(); err != nil {
		return err
	}

	for _, a := range e.assetManager.Assets(metadata.ResourceTypeShader) {
		if _, err := e.LoadShader(a.Name); err != nil {
			core.LogError("failed to load shader '%s': %s", a.Name, err.Error())
		}
	}
	for _, a := range e.assetManager.Assets(metadata.ResourceTypeMaterial) {
		if _, err := e.LoadMaterial(a.Name); err != nil {
			core.LogError("failed to load material '%s': %s", a.Name, err.Error())
		}
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized: %d shaders, %d materials",
		len(e.systemManager.ShaderSystem.Lookup), len(e.assetManager.Assets(metadata.ResourceTypeMaterial)))
	return nil
}

func (e *Engine) Config() core.Config {
	return e.config
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) EventBus() *core.EventBus {
	return e.eventBus
}

func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderer
}

func (e *Engine) Assets() *assets.AssetManager {
	return e.assetManager
}

func (e *Engine) Systems() *systems.SystemManager {
	return e.systemManager
}

func (e *Engine) Metrics() *core.FrameMetrics {
	return e.metrics
}

// LoadShader reads the named shader config and registers it, replacing the base
// config of a shader already registered under that name.
func (e *Engine) LoadShader(name string) (*systems.ShaderCache, error) {
	res, err := e.assetManager.LoadAsset(name, metadata.ResourceTypeShader, nil)
	if err != nil {
		return nil, err
	}
	config, ok := res.Data.(*metadata.ShaderConfig)
	if !ok {
		return nil, fmt.Errorf("asset '%s' is not a shader config", name)
	}
	return e.systemManager.ShaderSystem.Reload(config)
}

// LoadMaterial reads the named material and builds its definition. Its shaders
// should be loaded first.
func (e *Engine) LoadMaterial(name string) (*systems.MaterialDefinition, error) {
	res, err := e.assetManager.LoadAsset(name, metadata.ResourceTypeMaterial, nil)
	if err != nil {
		return nil, err
	}
	config, ok := res.Data.(*metadata.MaterialConfig)
	if !ok {
		return nil, fmt.Errorf("asset '%s' is not a material config", name)
	}
	return e.systemManager.MaterialSystem.Load(config)
}

// onAssetChanged runs on the watcher goroutine, so changes are only queued here.
func (e *Engine) onAssetChanged(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	change := assetChange{
		name:      data.Data.C[1],
		assetType: metadata.ResourceType(data.Data.U32[0]),
	}
	e.pendingMutex.Lock()
	defer e.pendingMutex.Unlock()
	for _, c := range e.pending {
		if c == change {
			return false
		}
	}
	e.pending = append(e.pending, change)
	// Let other listeners see the change too.
	return false
}

// applyAssetChanges reloads the assets changed since the last call. Shaders go
// first so materials changed in the same batch build against the new configs.
func (e *Engine) applyAssetChanges() {
	e.pendingMutex.Lock()
	changes := e.pending
	e.pending = nil
	e.pendingMutex.Unlock()

	for _, c := range changes {
		if c.assetType != metadata.ResourceTypeShader {
			continue
		}
		if _, err := e.LoadShader(c.name); err != nil {
			core.LogError("failed to reload shader '%s': %s", c.name, err.Error())
			continue
		}
		if rebuilt := e.systemManager.MaterialSystem.Rebuild(c.name); len(rebuilt) > 0 {
			core.LogInfo("shader '%s' reloaded, rebuilt materials %v", c.name, rebuilt)
		}
	}
	for _, c := range changes {
		if c.assetType != metadata.ResourceTypeMaterial {
			continue
		}
		if _, err := e.LoadMaterial(c.name); err != nil {
			core.LogError("failed to reload material '%s': %s", c.name, err.Error())
			continue
		}
		core.LogInfo("material '%s' reloaded", c.name)
	}
}

// Update applies pending asset reloads then advances every animator by deltaTime seconds.
func (e *Engine) Update(deltaTime float64) error {
	e.applyAssetChanges()
	return e.systemManager.AnimationSystem.Update(float32(deltaTime))
}

// Frame runs one iteration of the loop for the given game.
func (e *Engine) Frame(g *Game, deltaTime float64) error {
	if err := e.Update(deltaTime); err != nil {
		return err
	}
	if g != nil && g.FnUpdate != nil {
		if err := g.FnUpdate(e, deltaTime); err != nil {
			core.LogError("game update failed: %s", err.Error())
			return err
		}
	}

	if err := e.renderer.BeginFrame(deltaTime); err != nil {
		return err
	}
	var renderErr error
	if g != nil && g.FnRender != nil {
		if renderErr = g.FnRender(e, deltaTime); renderErr != nil {
			core.LogError("game render failed: %s", renderErr.Error())
		}
	}
	return errors.Join(renderErr, e.renderer.EndFrame(deltaTime))
}

// Run drives the game until Stop is called or a frame fails.
func (e *Engine) Run(g *Game) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine must be initialized before running")
	}
	if g != nil && g.FnInitialize != nil {
		if err := g.FnInitialize(e); err != nil {
			core.LogError("game failed to initialize: %s", err.Error())
			return err
		}
	}

	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStart := time.Now()

		if err := e.Frame(g, delta); err != nil {
			e.isRunning.Store(false)
			return err
		}

		// Figure out how long the frame took and give the rest back to the OS.
		frameElapsed := time.Since(frameStart).Seconds()
		if remaining := targetFrameSeconds - frameElapsed; remaining > 0 {
			time.Sleep(time.Duration(remaining * float64(time.Second)))
		}
		e.metrics.Update(frameElapsed)

		// Update last time
		e.lastTime = currentTime
	}
	e.clock.Stop()

	fps, frameTime := e.metrics.Frame()
	core.LogInfo("engine stopped after %d frames (%.0f fps, %.3f ms)", e.renderer.FrameNumber(), fps, frameTime)
	return nil
}

// Stop ends Run after the current frame. Safe to call from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown(g *Game) error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.Stop()

	var errs []error
	if g != nil && g.FnShutdown != nil {
		errs = append(errs, g.FnShutdown(e))
	}
	e.eventBus.Unregister(core.EventCodeAssetChanged, e)
	errs = append(errs, e.assetManager.Shutdown())
	errs = append(errs, e.systemManager.Shutdown())

	e.currentStage = EngineStageShutdown
	return errors.Join(errs...)
}
