package engine

// Game hooks application code into the engine loop. Every hook is optional.
type Game struct {
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnShutdown   Shutdown
}

type Initialize func(e *Engine) error

// Update runs after the engine applied pending asset reloads and ticked the animators.
type Update func(e *Engine, deltaTime float64) error

// Render runs between the begin and end of the frame; uniform uploads go here.
type Render func(e *Engine, deltaTime float64) error

type Shutdown func(e *Engine) error
