package math

import (
	gomath "math"

	"github.com/golang/geo/r3"
)

// Mat3 is a row-major 3x3 matrix. It is used for the rotation block of a
// homogeneous transform.
type Mat3 [9]float64

// IdentityMat3 returns the 3x3 identity
func IdentityMat3() Mat3 {
	return Mat3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// At returns the element in row r and column c.
func (m Mat3) At(r, c int) float64 {
	return m[3*r+c]
}

// Transpose returns mᵗ.
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

// Mul returns the product m·n.
func (m Mat3) Mul(n Mat3) Mat3 {
	var out Mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[3*r+c] = m[3*r]*n[c] + m[3*r+1]*n[3+c] + m[3*r+2]*n[6+c]
		}
	}
	return out
}

// MulVec returns m·v.
func (m Mat3) MulVec(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		Y: m[3]*v.X + m[4]*v.Y + m[5]*v.Z,
		Z: m[6]*v.X + m[7]*v.Y + m[8]*v.Z,
	}
}

// Det returns the determinant of m.
func (m Mat3) Det() float64 {
	return m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
}

// AlmostEqual reports whether every element of m and n differs by at most tol.
func (m Mat3) AlmostEqual(n Mat3, tol float64) bool {
	for i := range m {
		if gomath.Abs(m[i]-n[i]) > tol {
			return false
		}
	}
	return true
}

// IsRigid reports whether m is a proper rotation: orthonormal (m·mᵗ = I) with
// a determinant of +1, both within tol.
func IsRigid(m Mat3, tol float64) bool {
	if gomath.Abs(m.Det()-1) > tol {
		return false
	}
	return m.Mul(m.Transpose()).AlmostEqual(IdentityMat3(), tol)
}

// QuaternionToRotation converts the quaternion q into a rotation matrix.
// q is expected to be of unit norm. This is not checked: any other input
// yields a matrix which is not orthonormal.
func QuaternionToRotation(q Quaternion) Mat3 {
	qx, qy, qz, qw := q.X, q.Y, q.Z, q.W
	return Mat3{
		2*(qw*qw+qx*qx) - 1, 2 * (qx*qy - qw*qz), 2 * (qx*qz + qw*qy),
		2 * (qx*qy + qw*qz), 2*(qw*qw+qy*qy) - 1, 2 * (qy*qz - qw*qx),
		2 * (qx*qz - qw*qy), 2 * (qy*qz + qw*qx), 2*(qw*qw+qz*qz) - 1,
	}
}

// RotationToQuaternion converts the rotation matrix r into a quaternion.
//
// Every component is computed from its own trace combination and takes its
// sign from the matching off-diagonal difference; w is never negative. A
// component whose radicand is not positive is set to exactly 0. Close to a
// rotation of 180 degrees this may lose the relative sign of two components,
// and the result may not be of unit norm.
func RotationToQuaternion(r Mat3) Quaternion {
	var q Quaternion
	q.X = signOf(r.At(2, 1)-r.At(1, 2)) * sqrtPositive(r.At(0, 0)-r.At(1, 1)-r.At(2, 2)+1)
	q.Y = signOf(r.At(0, 2)-r.At(2, 0)) * sqrtPositive(r.At(1, 1)-r.At(2, 2)-r.At(0, 0)+1)
	q.Z = signOf(r.At(1, 0)-r.At(0, 1)) * sqrtPositive(r.At(2, 2)-r.At(1, 1)-r.At(0, 0)+1)
	q.W = sqrtPositive(r.At(0, 0) + r.At(1, 1) + r.At(2, 2) + 1)

	q.X *= 0.5
	q.Y *= 0.5
	q.Z *= 0.5
	q.W *= 0.5
	return q
}

// signOf treats 0 as positive.
func signOf(x float64) float64 {
	if x >= 0 {
		return 1
	}
	return -1
}

func sqrtPositive(x float64) float64 {
	if x > 0 {
		return gomath.Sqrt(x)
	}
	return 0
}
