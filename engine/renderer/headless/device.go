// Package headless implements a render device that keeps everything in memory.
// Shaders are "compiled" from the reflection declared in their config, uploads
// land in a ring buffer and bindings are recorded for inspection.
package headless

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima-core/engine/containers"
	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/renderer"
	"github.com/spaghettifunk/anima-core/engine/renderer/metadata"
)

// ErrCompileFailed is returned for permutations defining the config's fail macro.
var ErrCompileFailed = fmt.Errorf("shader compilation failed")

// Binding is a recorded BindUniformBlock call. Data is a copy of the bound range
// taken at bind time.
type Binding struct {
	Shader string
	Block  string
	Range  metadata.BufferRange
	Data   []byte
}

type program struct {
	name   string
	macros metadata.MacroSet
	blocks []metadata.ConstantBlockReflection
}

func (p *program) Name() string {
	return p.name
}

func (p *program) ReflectedConstantBlocks() []metadata.ConstantBlockReflection {
	return p.blocks
}

// Macros returns the macro set the program was compiled with.
func (p *program) Macros() metadata.MacroSet {
	return p.macros
}

type Device struct {
	mutex      sync.Mutex
	ring       *containers.RingBuffer
	nextHandle metadata.BufferHandle
	mapped     map[metadata.BufferHandle]metadata.MemoryRange
	bindings   []Binding
	compiles   int
}

var _ renderer.RenderDevice = (*Device)(nil)
var _ renderer.FrameLifecycle = (*Device)(nil)

func New(config core.DeviceConfig) (*Device, error) {
	ring, err := containers.NewRingBuffer(config.RingBufferSize, config.RingAlignment)
	if err != nil {
		return nil, err
	}
	return &Device{
		ring:   ring,
		mapped: make(map[metadata.BufferHandle]metadata.MemoryRange),
	}, nil
}

// CompileProgram keeps the blocks and variables whose requires macro is defined.
func (d *Device) CompileProgram(base *metadata.ShaderConfig, macros metadata.MacroSet) (renderer.Shader, error) {
	if base == nil {
		return nil, fmt.Errorf("%w: no shader config", ErrCompileFailed)
	}
	d.mutex.Lock()
	d.compiles++
	d.mutex.Unlock()

	if base.FailMacro != "" && macros.Defined(base.FailMacro) {
		return nil, fmt.Errorf("%w: shader '%s' does not support %s", ErrCompileFailed, base.Name, base.FailMacro)
	}

	blocks := make([]metadata.ConstantBlockReflection, 0, len(base.Blocks))
	for _, b := range base.Blocks {
		if b.Requires != "" && !macros.Defined(b.Requires) {
			continue
		}
		block := metadata.ConstantBlockReflection{
			Name: b.Name,
			Size: b.Size,
		}
		for _, v := range b.Variables {
			if v.Requires != "" && !macros.Defined(v.Requires) {
				continue
			}
			block.Variables = append(block.Variables, v)
		}
		blocks = append(blocks, block)
	}
	return &program{
		name:   base.Name,
		macros: macros.Clone(),
		blocks: blocks,
	}, nil
}

func (d *Device) Map(size uint64) ([]byte, metadata.BufferHandle, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	offset, err := d.ring.Allocate(size)
	if err != nil {
		return nil, 0, err
	}
	mem, err := d.ring.Slice(offset, size)
	if err != nil {
		return nil, 0, err
	}
	d.nextHandle++
	d.mapped[d.nextHandle] = metadata.MemoryRange{Offset: offset, Size: size}
	return mem, d.nextHandle, nil
}

func (d *Device) Unmap(handle metadata.BufferHandle) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	r, ok := d.mapped[handle]
	if !ok {
		return fmt.Errorf("%w: %d", core.ErrUnknownHandle, handle)
	}
	delete(d.mapped, handle)
	return d.ring.Release(r.Offset)
}

func (d *Device) BindUniformBlock(shader renderer.Shader, name string, r metadata.BufferRange) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	b := Binding{Block: name, Range: r}
	if shader != nil {
		b.Shader = shader.Name()
	}
	if m, ok := d.mapped[r.Handle]; ok {
		if data, err := d.ring.Slice(m.Offset+r.Offset, r.Size); err == nil {
			b.Data = append([]byte(nil), data...)
		}
	} else {
		core.LogWarn("block '%s' bound to unmapped handle %d", name, r.Handle)
	}
	d.bindings = append(d.bindings, b)
}

// BeginFrame drops the bindings recorded for the previous frame.
func (d *Device) BeginFrame(deltaTime float64) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.bindings = d.bindings[:0]
	return nil
}

// EndFrame recycles the ring. Handles still mapped at this point are leaks.
func (d *Device) EndFrame(deltaTime float64) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if len(d.mapped) > 0 {
		core.LogWarn("%d ring allocations still mapped at end of frame", len(d.mapped))
		clear(d.mapped)
	}
	d.ring.Reset()
	return nil
}

// Bindings returns a copy of the recorded bindings in call order.
func (d *Device) Bindings() []Binding {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	out := make([]Binding, len(d.bindings))
	copy(out, d.bindings)
	return out
}

func (d *Device) ClearBindings() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.bindings = d.bindings[:0]
}

// CompileCount returns how many times CompileProgram ran, failures included.
func (d *Device) CompileCount() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.compiles
}

// Mapped returns the number of handles that have not been unmapped.
func (d *Device) Mapped() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.mapped)
}
