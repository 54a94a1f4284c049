package containers

import (
	"fmt"

	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/renderer/metadata"
)

type ringAllocation struct {
	offset   uint64
	size     uint64
	released bool
}

// RingBuffer hands out transient, aligned ranges of a fixed byte arena in a cyclic
// fashion. Ranges are reclaimed oldest first: releasing a newer range only frees
// memory once every older range has been released too.
//
// RingBuffer is not safe for concurrent use.
type RingBuffer struct {
	data      []byte
	alignment uint64
	head      uint64
	tail      uint64
	live      []ringAllocation
}

func NewRingBuffer(size, alignment uint64) (*RingBuffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("ring buffer size must be greater than 0")
	}
	if alignment == 0 {
		alignment = 1
	}
	if alignment&(alignment-1) != 0 {
		return nil, fmt.Errorf("ring buffer alignment %d is not a power of two", alignment)
	}
	return &RingBuffer{
		data:      make([]byte, size),
		alignment: alignment,
	}, nil
}

// Capacity returns the arena size in bytes.
func (rb *RingBuffer) Capacity() uint64 {
	return uint64(len(rb.data))
}

// Live returns the number of ranges that have not been reclaimed yet.
func (rb *RingBuffer) Live() int {
	return len(rb.live)
}

// Allocate reserves size bytes and returns the offset of the range.
func (rb *RingBuffer) Allocate(size uint64) (uint64, error) {
	if size == 0 {
		return 0, fmt.Errorf("%w: zero sized allocation", core.ErrOutOfBounds)
	}
	aligned := metadata.GetAligned(size, rb.alignment)
	capacity := rb.Capacity()
	if aligned > capacity {
		return 0, fmt.Errorf("%w: %d bytes requested, capacity is %d", core.ErrRingBufferFull, size, capacity)
	}

	if len(rb.live) == 0 {
		rb.head, rb.tail = 0, 0
	}

	var offset uint64
	switch {
	case rb.head >= rb.tail && rb.head+aligned <= capacity:
		offset = rb.head
	case rb.head >= rb.tail && aligned < rb.tail:
		// Wrap around, the tail of the arena stays unused until the oldest ranges are released.
		// The head never catches up with the tail exactly so a full ring is not mistaken for an empty one.
		offset = 0
	case rb.head < rb.tail && rb.head+aligned < rb.tail:
		offset = rb.head
	default:
		return 0, fmt.Errorf("%w: %d bytes requested, %d ranges in flight", core.ErrRingBufferFull, size, len(rb.live))
	}

	rb.live = append(rb.live, ringAllocation{offset: offset, size: aligned})
	rb.head = offset + aligned
	return offset, nil
}

// Release marks the range starting at offset as free.
func (rb *RingBuffer) Release(offset uint64) error {
	found := false
	for i := range rb.live {
		if rb.live[i].offset == offset && !rb.live[i].released {
			rb.live[i].released = true
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: no live range at offset %d", core.ErrUnknownHandle, offset)
	}

	// Reclaim from the oldest end.
	for len(rb.live) > 0 && rb.live[0].released {
		rb.live = rb.live[1:]
	}
	if len(rb.live) == 0 {
		rb.head, rb.tail = 0, 0
	} else {
		rb.tail = rb.live[0].offset
	}
	return nil
}

// Reset drops every live range.
func (rb *RingBuffer) Reset() {
	rb.live = rb.live[:0]
	rb.head, rb.tail = 0, 0
}

// Slice returns a writable view of a live range.
func (rb *RingBuffer) Slice(offset, size uint64) ([]byte, error) {
	if err := checkRange(rb.Capacity(), offset, size); err != nil {
		return nil, err
	}
	return rb.data[offset : offset+size], nil
}
