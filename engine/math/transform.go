package math

func TransformFromPositionRotationScale(position Vec3, rotation Quaternion, scale Vec3) Transform {
	return Transform{
		Position: position,
		Rotation: rotation,
		Scale:    scale,
	}
}

// TransformFromMat4 decomposes m. Shear and perspective are discarded.
func TransformFromMat4(m Mat4) Transform {
	position, rotation, scale := m.Decompose()
	return Transform{
		Position: position,
		Rotation: rotation,
		Scale:    scale,
	}
}

// GetLocal returns the composed T * R * S matrix.
func (t Transform) GetLocal() Mat4 {
	return NewMat4TRS(t.Position, t.Rotation, t.Scale)
}

func (t Transform) Compare(other Transform, tolerance float32) bool {
	return t.Position.Compare(other.Position, tolerance) &&
		t.Scale.Compare(other.Scale, tolerance) &&
		t.Rotation.Compare(other.Rotation, tolerance)
}
