package metadata

import (
	"hash/fnv"
)

func GetAlignedRange(offset, size, granularity uint64) *MemoryRange {
	m := &MemoryRange{
		Offset: GetAligned(offset, granularity),
		Size:   GetAligned(size, granularity),
	}
	return m
}

// GetAligned rounds operand up to the next multiple of granularity, which must be a power of two.
func GetAligned(operand, granularity uint64) uint64 {
	val := (operand + (granularity - 1)) &^ (granularity - 1)
	return val
}

// HashName returns the FNV-1a hash of name. Identical names hash identically
// across shaders and passes.
func HashName(name string) uint32 {
	hasher := fnv.New32a()
	hasher.Write([]byte(name))
	return hasher.Sum32()
}

// HashMacros returns the FNV-1a hash of the macro pairs in the order given.
func HashMacros(macros MacroSet) uint64 {
	hasher := fnv.New64a()
	for _, m := range macros {
		hasher.Write([]byte(m.Name))
		hasher.Write([]byte{0})
		hasher.Write([]byte(m.Value))
		hasher.Write([]byte{0})
	}
	return hasher.Sum64()
}
