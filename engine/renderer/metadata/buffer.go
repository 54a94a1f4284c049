package metadata

/** @brief Identifies a transient allocation handed out by a ring allocator. */
type BufferHandle uint64

/** @brief Represents a range of memory inside a GPU buffer. */
type MemoryRange struct {
	/** @brief The Offset in bytes. */
	Offset uint64
	/** @brief The size in bytes. */
	Size uint64
}

/**
 * @brief A range bound to a shader block for a draw.
 */
type BufferRange struct {
	/** @brief The allocation the range belongs to. */
	Handle BufferHandle
	MemoryRange
}
