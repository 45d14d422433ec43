package math

import (
	gomath "math"

	"gonum.org/v1/gonum/num/quat"
)

// UnitTolerance is the largest deviation from a norm of 1 for which a
// quaternion is still considered a unit quaternion.
const UnitTolerance = 1e-3

// Quaternion is a rotation in x/y/z/w order as reported by the capture system.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// IdentityQuaternion returns the quaternion of the zero rotation
func IdentityQuaternion() Quaternion {
	return Quaternion{0, 0, 0, 1}
}

// Number converts q into the gonum representation (real part first).
func (q Quaternion) Number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

// Norm returns the Euclidean norm of q.
func (q Quaternion) Norm() float64 {
	return quat.Abs(q.Number())
}

// IsUnit reports whether the norm of q is within tol of 1.
func (q Quaternion) IsUnit(tol float64) bool {
	return gomath.Abs(q.Norm()-1) <= tol
}

// Neg returns -q, which encodes the same rotation as q.
func (q Quaternion) Neg() Quaternion {
	return Quaternion{-q.X, -q.Y, -q.Z, -q.W}
}

// Conj returns the conjugate of q, the inverse rotation for unit quaternions.
func (q Quaternion) Conj() Quaternion {
	return Quaternion{-q.X, -q.Y, -q.Z, q.W}
}

// AlmostEqual reports whether q and p are component-wise within tol.
// The double cover is not taken into account, see SameRotation.
func (q Quaternion) AlmostEqual(p Quaternion, tol float64) bool {
	return gomath.Abs(q.X-p.X) <= tol &&
		gomath.Abs(q.Y-p.Y) <= tol &&
		gomath.Abs(q.Z-p.Z) <= tol &&
		gomath.Abs(q.W-p.W) <= tol
}

// SameRotation reports whether q and p describe the same rotation, i.e.
// q == p or q == -p within tol.
func (q Quaternion) SameRotation(p Quaternion, tol float64) bool {
	return q.AlmostEqual(p, tol) || q.AlmostEqual(p.Neg(), tol)
}
