package math

import "github.com/golang/geo/r3"

// Transformation is a rigid pose: a translation plus a quaternion rotation.
// It is the compact form of a Homogeneous matrix.
type Transformation struct {
	Translation r3.Vector  `json:"translation"` // x/y/z
	Rotation    Quaternion `json:"rotation"`    // x/y/z/w
}

// Matrix expands t into its homogeneous matrix.
func (t Transformation) Matrix() Homogeneous {
	return NewHomogeneous(QuaternionToRotation(t.Rotation), t.Translation)
}

// TransformationFromMatrix extracts translation and rotation from h.
func TransformationFromMatrix(h Homogeneous) Transformation {
	return Transformation{
		Translation: h.Translation(),
		Rotation:    RotationToQuaternion(h.Rotation()),
	}
}
