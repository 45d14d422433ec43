package math

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Homogeneous is a row-major 4x4 rigid transform. The upper left 3x3 block is
// the rotation, the right column holds the translation and the bottom row is
// always [0 0 0 1].
type Homogeneous [16]float64

// IdentityHomogeneous returns the transform which maps every frame onto itself
func IdentityHomogeneous() Homogeneous {
	return NewHomogeneous(IdentityMat3(), r3.Vector{})
}

// NewHomogeneous builds a transform from a rotation block and a translation.
func NewHomogeneous(rot Mat3, t r3.Vector) Homogeneous {
	var h Homogeneous
	h.SetRotation(rot)
	h.SetTranslation(t)
	h[15] = 1
	return h
}

// At returns the element in row r and column c.
func (h Homogeneous) At(r, c int) float64 {
	return h[4*r+c]
}

// Rotation returns the 3x3 rotation block.
func (h Homogeneous) Rotation() Mat3 {
	return Mat3{
		h[0], h[1], h[2],
		h[4], h[5], h[6],
		h[8], h[9], h[10],
	}
}

// Translation returns the translation column.
func (h Homogeneous) Translation() r3.Vector {
	return r3.Vector{X: h[3], Y: h[7], Z: h[11]}
}

// SetRotation overwrites the rotation block.
func (h *Homogeneous) SetRotation(rot Mat3) {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[4*r+c] = rot[3*r+c]
		}
	}
}

// SetTranslation overwrites the translation column.
func (h *Homogeneous) SetTranslation(t r3.Vector) {
	h[3], h[7], h[11] = t.X, t.Y, t.Z
}

// Mul returns the composition h·g.
func (h Homogeneous) Mul(g Homogeneous) Homogeneous {
	var out Homogeneous
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += h[4*r+k] * g[4*k+c]
			}
			out[4*r+c] = sum
		}
	}
	return out
}

// Apply maps the point p through h.
func (h Homogeneous) Apply(p r3.Vector) r3.Vector {
	return h.Rotation().MulVec(p).Add(h.Translation())
}

// InvertRigid returns the inverse of a rigid transform: the transposed
// rotation and the translation -Rᵗ·t. The rotation block must be orthonormal,
// which is not verified.
func (h Homogeneous) InvertRigid() Homogeneous {
	rt := h.Rotation().Transpose()
	return NewHomogeneous(rt, rt.MulVec(h.Translation()).Mul(-1))
}

// String renders the matrix in rows, for debug logging.
func (h Homogeneous) String() string {
	d := mat.NewDense(4, 4, h[:])
	return fmt.Sprintf("%v", mat.Formatted(d, mat.Squeeze()))
}
