package containers

import (
	"encoding/binary"
	"fmt"
	stdmath "math"

	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/math"
)

// Write copies exactly size bytes of src into dst[offset:offset+size].
// Nothing is written when the range does not fit in dst or src is short.
func Write(dst []byte, offset, size uint64, src []byte) error {
	if err := checkRange(uint64(len(dst)), offset, size); err != nil {
		return err
	}
	if uint64(len(src)) < size {
		return fmt.Errorf("%w: source holds %d bytes, %d requested", core.ErrOutOfBounds, len(src), size)
	}
	copy(dst[offset:offset+size], src[:size])
	return nil
}

// Read copies exactly size bytes from src[offset:offset+size] into dst.
func Read(src []byte, offset, size uint64, dst []byte) error {
	if err := checkRange(uint64(len(src)), offset, size); err != nil {
		return err
	}
	if uint64(len(dst)) < size {
		return fmt.Errorf("%w: destination holds %d bytes, %d requested", core.ErrOutOfBounds, len(dst), size)
	}
	copy(dst[:size], src[offset:offset+size])
	return nil
}

func checkRange(length, offset, size uint64) error {
	// written as a subtraction so offset+size cannot overflow
	if offset > length || size > length-offset {
		return fmt.Errorf("%w: range [%d, %d) exceeds buffer of %d bytes", core.ErrOutOfBounds, offset, offset+size, length)
	}
	return nil
}

// ByteBuffer is a fixed-size byte region with bounds-checked access. Its contents
// are uploaded verbatim, so every typed helper encodes little-endian.
type ByteBuffer struct {
	data []byte
}

func NewByteBuffer(size uint64) *ByteBuffer {
	return &ByteBuffer{data: make([]byte, size)}
}

// NewByteBufferFrom wraps a copy of data.
func NewByteBufferFrom(data []byte) *ByteBuffer {
	b := &ByteBuffer{data: make([]byte, len(data))}
	copy(b.data, data)
	return b
}

func (b *ByteBuffer) Size() uint64 {
	return uint64(len(b.data))
}

// Bytes returns the underlying memory. Callers must not resize it.
func (b *ByteBuffer) Bytes() []byte {
	return b.data
}

func (b *ByteBuffer) Write(offset, size uint64, src []byte) error {
	return Write(b.data, offset, size, src)
}

func (b *ByteBuffer) Read(offset, size uint64, dst []byte) error {
	return Read(b.data, offset, size, dst)
}

// Slice returns a copy of the given range.
func (b *ByteBuffer) Slice(offset, size uint64) ([]byte, error) {
	out := make([]byte, size)
	if err := b.Read(offset, size, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *ByteBuffer) Clone() *ByteBuffer {
	return NewByteBufferFrom(b.data)
}

// CopyFrom overwrites the whole buffer with other. Sizes must match.
func (b *ByteBuffer) CopyFrom(other *ByteBuffer) error {
	if other.Size() != b.Size() {
		return fmt.Errorf("%w: cannot copy %d bytes into %d", core.ErrOutOfBounds, other.Size(), b.Size())
	}
	copy(b.data, other.data)
	return nil
}

func (b *ByteBuffer) Reset() {
	clear(b.data)
}

// Encoding helpers.

func Float32Bytes(values ...float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], stdmath.Float32bits(v))
	}
	return out
}

func Uint32Bytes(values ...uint32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

func Int32Bytes(values ...int32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
	}
	return out
}

// Mat4Bytes encodes the matrices one after another, 64 bytes each, column-major.
func Mat4Bytes(matrices ...math.Mat4) []byte {
	out := make([]byte, 64*len(matrices))
	for i := range matrices {
		for j, v := range matrices[i].Data {
			binary.LittleEndian.PutUint32(out[i*64+j*4:], stdmath.Float32bits(v))
		}
	}
	return out
}

func BytesFloat32(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = stdmath.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func BytesMat4(data []byte) []math.Mat4 {
	out := make([]math.Mat4, len(data)/64)
	for i := range out {
		for j := 0; j < 16; j++ {
			out[i].Data[j] = stdmath.Float32frombits(binary.LittleEndian.Uint32(data[i*64+j*4:]))
		}
	}
	return out
}
