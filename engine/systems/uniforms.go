package systems

import (
	"fmt"

	"github.com/spaghettifunk/anima-core/engine/containers"
	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/renderer"
	"github.com/spaghettifunk/anima-core/engine/renderer/metadata"
)

// UniformID returns the lookup key of a block or variable name. Equal names
// produce equal IDs across shaders and passes.
func UniformID(name string) uint32 {
	return metadata.HashName(name)
}

/** @brief A variable of a uniform block. */
type UniformVariable struct {
	Name string
	ID   uint32
	/** @brief The size in bytes. */
	Size uint32
	/** @brief The offset in bytes from the start of the owning block. */
	Offset uint32
}

/**
 * @brief A uniform block shared by every pass whose shader reflects a block
 * with the same name, size and variable count.
 */
type UniformBlock struct {
	Name string
	ID   uint32
	/** @brief The size in bytes. */
	Size uint32
	/** @brief The offset in bytes within the material's base buffer. */
	Offset uint64
	/** @brief The variables, in reflection order. */
	Variables []UniformVariable
	/** @brief The indices of the passes using the block. */
	Passes []int

	lookup map[uint32]int
}

// FindVariable returns the first variable of the block with the given ID.
func (b *UniformBlock) FindVariable(id uint32) *UniformVariable {
	i, ok := b.lookup[id]
	if !ok {
		return nil
	}
	return &b.Variables[i]
}

func (b *UniformBlock) matches(r *metadata.ConstantBlockReflection) bool {
	return b.Name == r.Name && b.Size == r.Size && len(b.Variables) == len(r.Variables)
}

// checkLayout verifies that shader still declares every block of the pass with the
// layout the definition was built from. Definitions built before a shader reload fail here.
func (md *MaterialDefinition) checkLayout(pass int, shader renderer.Shader) error {
	reflected := shader.ReflectedConstantBlocks()
	for _, b := range md.PassBlocks[pass] {
		block := &md.Blocks[b]
		found := false
		for r := range reflected {
			if reflected[r].Name != block.Name {
				continue
			}
			if !block.matches(&reflected[r]) {
				return fmt.Errorf("%w: material '%s' block '%s' is %d bytes with %d variables, shader '%s' declares %d bytes with %d",
					core.ErrShaderUnavailable, md.Name, block.Name, block.Size, len(block.Variables),
					shader.Name(), reflected[r].Size, len(reflected[r].Variables))
			}
			found = true
			break
		}
		if !found {
			return fmt.Errorf("%w: material '%s' block '%s' is not declared by shader '%s'",
				core.ErrShaderUnavailable, md.Name, block.Name, shader.Name())
		}
	}
	return nil
}

/** @brief A render pass of a material. */
type MaterialPass struct {
	Name string
	/** @brief The permutation source of the pass. nil when the pass has no shader. */
	Shader *ShaderCache
	/** @brief Macros defined for every permutation of the pass. */
	Macros metadata.MacroSet
}

/**
 * @brief The layout shared by every instance of a material: the deduplicated
 * uniform blocks of all passes and the default values of their variables.
 * Do not modify once instances have been created from it.
 */
type MaterialDefinition struct {
	Name   string
	Passes []MaterialPass
	Blocks []UniformBlock
	/** @brief For each pass, the indices into Blocks it binds. */
	PassBlocks [][]int

	base *containers.ByteBuffer
}

/**
 * @brief Builds the block registry of a material from the reflection of the
 * default permutation of each pass. Blocks matching an earlier block by name,
 * size and variable count are shared; the first one seen keeps its offset.
 */
func NewMaterialDefinition(name string, passes []MaterialPass) (*MaterialDefinition, error) {
	if name == "" {
		return nil, fmt.Errorf("material name is required")
	}
	if len(passes) == 0 {
		return nil, fmt.Errorf("material '%s' has no passes", name)
	}
	md := &MaterialDefinition{
		Name:       name,
		Passes:     passes,
		PassBlocks: make([][]int, len(passes)),
	}

	total := uint64(0)
	for p := range passes {
		pass := &passes[p]
		if pass.Shader == nil {
			core.LogWarn("material '%s' pass %d (%s) has no shader", name, p, pass.Name)
			continue
		}
		shader := pass.Shader.GetShader(pass.Macros)
		if shader == nil {
			core.LogWarn("material '%s' pass %d (%s): %s", name, p, pass.Name, core.ErrShaderUnavailable.Error())
			continue
		}

		reflected := shader.ReflectedConstantBlocks()
		for r := range reflected {
			rb := &reflected[r]
			index := -1
			for i := range md.Blocks {
				if md.Blocks[i].matches(rb) {
					index = i
					break
				}
			}
			if index < 0 {
				md.Blocks = append(md.Blocks, newUniformBlock(rb, total))
				index = len(md.Blocks) - 1
				total += uint64(rb.Size)
			}
			block := &md.Blocks[index]
			if !containsInt(md.PassBlocks[p], index) {
				md.PassBlocks[p] = append(md.PassBlocks[p], index)
			}
			if !containsInt(block.Passes, p) {
				block.Passes = append(block.Passes, p)
			}
		}
	}

	md.base = containers.NewByteBuffer(total)
	return md, nil
}

func newUniformBlock(r *metadata.ConstantBlockReflection, offset uint64) UniformBlock {
	b := UniformBlock{
		Name:      r.Name,
		ID:        UniformID(r.Name),
		Size:      r.Size,
		Offset:    offset,
		Variables: make([]UniformVariable, 0, len(r.Variables)),
		lookup:    make(map[uint32]int, len(r.Variables)),
	}
	for _, v := range r.Variables {
		id := UniformID(v.Name)
		b.Variables = append(b.Variables, UniformVariable{
			Name:   v.Name,
			ID:     id,
			Size:   v.Size,
			Offset: v.Offset,
		})
		if _, ok := b.lookup[id]; !ok {
			b.lookup[id] = len(b.Variables) - 1
		}
	}
	return b
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// Size returns the size of the base uniform buffer in bytes.
func (md *MaterialDefinition) Size() uint64 {
	return md.base.Size()
}

// Defaults returns a copy of the base uniform buffer.
func (md *MaterialDefinition) Defaults() []byte {
	return md.base.Clone().Bytes()
}

// FindUniformBlock returns the first block with the given ID, or nil.
func (md *MaterialDefinition) FindUniformBlock(id uint32) *UniformBlock {
	for i := range md.Blocks {
		if md.Blocks[i].ID == id {
			return &md.Blocks[i]
		}
	}
	return nil
}

// FindUniformVar returns the first variable with the given ID and its block.
func (md *MaterialDefinition) FindUniformVar(id uint32) (*UniformVariable, *UniformBlock) {
	for i := range md.Blocks {
		if v := md.Blocks[i].FindVariable(id); v != nil {
			return v, &md.Blocks[i]
		}
	}
	return nil, nil
}

// SetDefault writes the default value of a variable into the base buffer.
func (md *MaterialDefinition) SetDefault(id uint32, data []byte) error {
	return md.writeVariable(md.base, id, data)
}

// writeVariable resolves id and copies data into buf at the variable's offset.
// A rejected write leaves buf untouched.
func (md *MaterialDefinition) writeVariable(buf *containers.ByteBuffer, id uint32, data []byte) error {
	v, block := md.FindUniformVar(id)
	if v == nil {
		err := fmt.Errorf("%w: material '%s' has no variable with id %d", core.ErrUnknownUniform, md.Name, id)
		core.LogWarn(err.Error())
		return err
	}

	size := uint64(len(data))
	if size != uint64(v.Size) {
		err := fmt.Errorf("%w: '%s' is %d bytes, got %d", core.ErrUniformSizeMismatch, v.Name, v.Size, size)
		core.LogWarn(err.Error())
		return err
	}

	offset := block.Offset + uint64(v.Offset)
	if offset+size > block.Offset+uint64(block.Size) {
		err := fmt.Errorf("%w: '%s' spills past block '%s' (%d+%d > %d)",
			core.ErrOutOfBounds, v.Name, block.Name, v.Offset, size, block.Size)
		core.LogWarn(err.Error())
		return err
	}

	if err := buf.Write(offset, size, data); err != nil {
		core.LogWarn(err.Error())
		return err
	}
	return nil
}

// readVariable copies the current value of a variable out of buf.
func (md *MaterialDefinition) readVariable(buf *containers.ByteBuffer, id uint32) ([]byte, error) {
	v, block := md.FindUniformVar(id)
	if v == nil {
		return nil, fmt.Errorf("%w: material '%s' has no variable with id %d", core.ErrUnknownUniform, md.Name, id)
	}
	return buf.Slice(block.Offset+uint64(v.Offset), uint64(v.Size))
}
