package math

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/** @brief A quaternion, used to represent rotational orientation. */
type Quaternion Vec4

/**
 * @brief a 4x4 matrix, typically used to represent object transformations.
 *
 * Elements are stored column-major and vectors are treated as columns, so the
 * translation lives in Data[12], Data[13] and Data[14] and A.Mul(B) applies B first.
 * The layout matches what the shaders expect, byte for byte.
 */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

/**
 * @brief Represents the transform of an object as separate
 * translation, rotation and scale components. The composed matrix
 * is T * R * S.
 */
type Transform struct {
	/** @brief The translation component. */
	Position Vec3
	/** @brief The rotation component. */
	Rotation Quaternion
	/** @brief The scale component. */
	Scale Vec3
}
