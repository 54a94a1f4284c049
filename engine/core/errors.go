package core

import (
	"errors"
)

var (
	ErrUnknownUniform      = errors.New("unknown uniform")
	ErrUniformSizeMismatch = errors.New("uniform size mismatch")
	ErrOutOfBounds         = errors.New("write out of bounds")
	ErrShaderUnavailable   = errors.New("shader unavailable")
	ErrInvalidPass         = errors.New("invalid pass")
	ErrUnknownMaterial     = errors.New("unknown material")
	ErrRingBufferFull      = errors.New("ring buffer full")
	ErrUnknownHandle       = errors.New("unknown buffer handle")

	ErrInvalidParent      = errors.New("invalid parent bone")
	ErrCyclicHierarchy    = errors.New("cyclic bone hierarchy")
	ErrDuplicateBoneIndex = errors.New("duplicate bone index")
	ErrTooManyBones       = errors.New("too many bones")

	ErrUnknown = errors.New("unknown")
)
