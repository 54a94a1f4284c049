package renderer

import "github.com/spaghettifunk/anima-core/engine/renderer/metadata"

// Shader is a compiled program variant.
type Shader interface {
	Name() string
	// ReflectedConstantBlocks lists the constant blocks of the program in declaration order.
	ReflectedConstantBlocks() []metadata.ConstantBlockReflection
}

// ShaderCompiler builds a program from a base description and a macro set.
type ShaderCompiler interface {
	CompileProgram(base *metadata.ShaderConfig, macros metadata.MacroSet) (Shader, error)
}

// RingAllocator hands out transient GPU visible memory. The slice returned by Map
// stays writable until the handle is unmapped.
type RingAllocator interface {
	Map(size uint64) ([]byte, metadata.BufferHandle, error)
	Unmap(handle metadata.BufferHandle) error
}

// DrawSubmitter consumes (name, buffer range) bindings for the next draw.
type DrawSubmitter interface {
	BindUniformBlock(shader Shader, name string, r metadata.BufferRange)
}

// RenderDevice is everything the material and skinning paths need from the GPU layer.
type RenderDevice interface {
	ShaderCompiler
	RingAllocator
	DrawSubmitter
}

// FrameLifecycle is implemented by devices that need to know about frame boundaries,
// typically to recycle the ring buffer.
type FrameLifecycle interface {
	BeginFrame(deltaTime float64) error
	EndFrame(deltaTime float64) error
}
