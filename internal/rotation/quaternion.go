package rotation

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const degenerateNorm = 1e-12

// Identity is the zero-rotation unit quaternion.
var Identity = quat.Number{Real: 1}

// Normalize returns q scaled to unit length, or Identity when q is too
// small to carry a direction.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n < degenerateNorm {
		return Identity
	}
	return quat.Scale(1/n, q)
}

// Compose returns the rotation p followed by q expressed in p's frame (p ⊗ q).
func Compose(p, q quat.Number) quat.Number {
	return Normalize(quat.Mul(p, q))
}

// Conj returns the inverse rotation of a unit quaternion.
func Conj(q quat.Number) quat.Number {
	return quat.Conj(q)
}

// ToRotationMatrix converts q into the body->world direction cosine matrix.
func ToRotationMatrix(q quat.Number) Mat3 {
	q = Normalize(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return Mat3{
		{1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w)},
		{2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w)},
		{2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y)},
	}
}

// Derivative returns q̇ = ½ Ω(ω) q for a body-frame angular rate ω.
// The 4x4 skew form Ω(ω) q is the Hamilton product q ⊗ (0, ω).
func Derivative(q quat.Number, omega r3.Vec) quat.Number {
	return quat.Scale(0.5, quat.Mul(q, quat.Number{Imag: omega.X, Jmag: omega.Y, Kmag: omega.Z}))
}

// Rotate maps a body-frame vector into the world frame.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	return ToRotationMatrix(q).MulVec(v)
}
