package systems

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/spaghettifunk/anima-core/engine/containers"
	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/math"
	"github.com/spaghettifunk/anima-core/engine/renderer"
	"github.com/spaghettifunk/anima-core/engine/renderer/metadata"
)

const noPass = -1

// MaterialInstance is a material as used by one object: a private copy of the
// definition's uniform buffer plus the macros selecting its shader permutations.
type MaterialInstance struct {
	ID         uuid.UUID
	Definition *MaterialDefinition

	buffer *containers.ByteBuffer
	macros metadata.MacroSet
	device renderer.RenderDevice

	currentPass int
	mapped      []metadata.BufferHandle
}

func NewMaterialInstance(definition *MaterialDefinition, device renderer.RenderDevice) *MaterialInstance {
	return &MaterialInstance{
		ID:          uuid.New(),
		Definition:  definition,
		buffer:      definition.base.Clone(),
		device:      device,
		currentPass: noPass,
	}
}

/**
 * @brief Writes the value of a variable. The write is rejected, and the buffer
 * left untouched, when the variable is unknown, when data is not exactly the
 * variable's size or when the variable would spill past its block.
 *
 * @param id The variable ID, see UniformID.
 * @param data The value, laid out as the shader expects it.
 */
func (mi *MaterialInstance) SetVariable(id uint32, data []byte) error {
	return mi.Definition.writeVariable(mi.buffer, id, data)
}

func (mi *MaterialInstance) SetFloat32(id uint32, value float32) error {
	return mi.SetVariable(id, containers.Float32Bytes(value))
}

func (mi *MaterialInstance) SetInt32(id uint32, value int32) error {
	return mi.SetVariable(id, containers.Int32Bytes(value))
}

func (mi *MaterialInstance) SetUint32(id uint32, value uint32) error {
	return mi.SetVariable(id, containers.Uint32Bytes(value))
}

func (mi *MaterialInstance) SetVec3(id uint32, value math.Vec3) error {
	return mi.SetVariable(id, containers.Float32Bytes(value.X, value.Y, value.Z))
}

func (mi *MaterialInstance) SetVec4(id uint32, value math.Vec4) error {
	return mi.SetVariable(id, containers.Float32Bytes(value.X, value.Y, value.Z, value.W))
}

func (mi *MaterialInstance) SetMat4(id uint32, value math.Mat4) error {
	return mi.SetVariable(id, containers.Mat4Bytes(value))
}

// SetMat4Array writes a whole matrix array. The variable must hold exactly len(values) matrices.
func (mi *MaterialInstance) SetMat4Array(id uint32, values []math.Mat4) error {
	return mi.SetVariable(id, containers.Mat4Bytes(values...))
}

// Variable returns a copy of the current value of a variable.
func (mi *MaterialInstance) Variable(id uint32) ([]byte, error) {
	return mi.Definition.readVariable(mi.buffer, id)
}

// Bytes returns the instance buffer. Callers must not modify it.
func (mi *MaterialInstance) Bytes() []byte {
	return mi.buffer.Bytes()
}

// ResetToDefaults restores every variable to the definition's defaults.
func (mi *MaterialInstance) ResetToDefaults() {
	if err := mi.buffer.CopyFrom(mi.Definition.base); err != nil {
		core.LogError(err.Error())
	}
}

// SetMacro defines a macro for the permutations of every pass.
func (mi *MaterialInstance) SetMacro(name, value string) {
	mi.macros = mi.macros.Set(name, value)
}

func (mi *MaterialInstance) RemoveMacro(name string) {
	mi.macros = mi.macros.Remove(name)
}

// Macros returns the instance macros in definition order.
func (mi *MaterialInstance) Macros() metadata.MacroSet {
	return mi.macros.Clone()
}

/**
 * @brief Prepares a pass for drawing: resolves the shader permutation for the
 * instance macros, copies the blocks of the pass into transient device memory
 * and binds them by block name. A pass without a usable shader binds nothing.
 *
 * @param pass The pass index.
 * @return The shader to draw with.
 */
func (mi *MaterialInstance) BeginPass(pass int) (renderer.Shader, error) {
	md := mi.Definition
	if pass < 0 || pass >= len(md.Passes) {
		err := fmt.Errorf("%w: material '%s' has %d passes, %d requested", core.ErrInvalidPass, md.Name, len(md.Passes), pass)
		core.LogWarn(err.Error())
		return nil, err
	}
	if mi.currentPass != noPass {
		core.LogWarn("material '%s' pass %d begun before pass %d ended", md.Name, pass, mi.currentPass)
		if err := mi.EndPass(); err != nil {
			return nil, err
		}
	}

	p := &md.Passes[pass]
	if p.Shader == nil {
		err := fmt.Errorf("%w: material '%s' pass %d (%s) has no shader", core.ErrShaderUnavailable, md.Name, pass, p.Name)
		core.LogWarn(err.Error())
		return nil, err
	}
	shader := p.Shader.GetShader(p.Macros.Merge(mi.macros))
	if shader == nil {
		err := fmt.Errorf("%w: material '%s' pass %d (%s)", core.ErrShaderUnavailable, md.Name, pass, p.Name)
		core.LogWarn(err.Error())
		return nil, err
	}

	if err := md.checkLayout(pass, shader); err != nil {
		core.LogWarn(err.Error())
		return nil, err
	}

	mi.currentPass = pass
	for _, b := range md.PassBlocks[pass] {
		block := &md.Blocks[b]
		size := uint64(block.Size)
		if size == 0 {
			continue
		}
		mem, handle, err := mi.device.Map(size)
		if err != nil {
			core.LogWarn("material '%s' failed to map %d bytes for block '%s': %s", md.Name, size, block.Name, err.Error())
			return nil, errors.Join(err, mi.EndPass())
		}
		mi.mapped = append(mi.mapped, handle)
		if err := mi.buffer.Read(block.Offset, size, mem); err != nil {
			core.LogWarn(err.Error())
			return nil, errors.Join(err, mi.EndPass())
		}
		mi.device.BindUniformBlock(shader, block.Name, metadata.BufferRange{
			Handle:      handle,
			MemoryRange: metadata.MemoryRange{Offset: 0, Size: size},
		})
	}
	return shader, nil
}

// EndPass releases the transient memory of the current pass.
func (mi *MaterialInstance) EndPass() error {
	var errs []error
	for _, h := range mi.mapped {
		if err := mi.device.Unmap(h); err != nil {
			core.LogWarn("material '%s' failed to unmap handle %d: %s", mi.Definition.Name, h, err.Error())
			errs = append(errs, err)
		}
	}
	mi.mapped = mi.mapped[:0]
	mi.currentPass = noPass
	return errors.Join(errs...)
}
