package rotation

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// shepperdCase names the pivot used to extract a quaternion from a DCM.
type shepperdCase int

const (
	tracePositive shepperdCase = iota
	diag0Max
	diag1Max
	diag2Max
)

func (c shepperdCase) String() string {
	switch c {
	case tracePositive:
		return "trace"
	case diag0Max:
		return "diag0"
	case diag1Max:
		return "diag1"
	default:
		return "diag2"
	}
}

func selectCase(r Mat3) shepperdCase {
	if r.Trace() > 0 {
		return tracePositive
	}
	if r[0][0] > r[1][1] && r[0][0] > r[2][2] {
		return diag0Max
	}
	if r[1][1] > r[2][2] {
		return diag1Max
	}
	return diag2Max
}

// FromRotationMatrix converts a body->world rotation matrix to a unit
// quaternion, pivoting on the largest of trace and diagonal so that the
// divisor never approaches zero.
func FromRotationMatrix(r Mat3) quat.Number {
	var q quat.Number
	switch selectCase(r) {
	case tracePositive:
		s := 2 * math.Sqrt(r.Trace()+1)
		q = quat.Number{
			Real: 0.25 * s,
			Imag: (r[2][1] - r[1][2]) / s,
			Jmag: (r[0][2] - r[2][0]) / s,
			Kmag: (r[1][0] - r[0][1]) / s,
		}
	case diag0Max:
		s := 2 * math.Sqrt(1+r[0][0]-r[1][1]-r[2][2])
		q = quat.Number{
			Real: (r[2][1] - r[1][2]) / s,
			Imag: 0.25 * s,
			Jmag: (r[0][1] + r[1][0]) / s,
			Kmag: (r[0][2] + r[2][0]) / s,
		}
	case diag1Max:
		s := 2 * math.Sqrt(1+r[1][1]-r[0][0]-r[2][2])
		q = quat.Number{
			Real: (r[0][2] - r[2][0]) / s,
			Imag: (r[0][1] + r[1][0]) / s,
			Jmag: 0.25 * s,
			Kmag: (r[1][2] + r[2][1]) / s,
		}
	case diag2Max:
		s := 2 * math.Sqrt(1+r[2][2]-r[0][0]-r[1][1])
		q = quat.Number{
			Real: (r[1][0] - r[0][1]) / s,
			Imag: (r[0][2] + r[2][0]) / s,
			Jmag: (r[1][2] + r[2][1]) / s,
			Kmag: 0.25 * s,
		}
	}
	return Normalize(q)
}
