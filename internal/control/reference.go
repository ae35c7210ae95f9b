package control

import (
	"math"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/rotation"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	minTotalAccel = 1e-6
	minAxisNorm   = 1e-6
)

var (
	worldX = r3.Vec{X: 1}
	worldY = r3.Vec{Y: 1}
	worldZ = r3.Vec{Z: 1}
)

// AccelerationToAttitudeAndThrust inverts the translational dynamics: the
// body z axis is aligned with a_cmd + g·ẑ and heading is taken from yaw.
// It returns the desired attitude and the collective thrust m·‖a_cmd + g·ẑ‖.
// A vanishing total acceleration keeps the body z axis vertical and floors
// the thrust at m·1e-6.
func AccelerationToAttitudeAndThrust(aCmd r3.Vec, yaw, mass, gravity float64) (quat.Number, float64) {
	rd, thrust := desiredRotation(aCmd, yaw, mass, gravity)
	return rotation.FromRotationMatrix(rd), thrust
}

func desiredRotation(aCmd r3.Vec, yaw, mass, gravity float64) (rotation.Mat3, float64) {
	total := r3.Add(aCmd, r3.Scale(gravity, worldZ))
	n := r3.Norm(total)
	b3 := worldZ
	if n >= minTotalAccel {
		b3 = r3.Scale(1/n, total)
	}

	heading := r3.Vec{X: math.Cos(yaw), Y: math.Sin(yaw)}
	b2 := r3.Cross(b3, heading)
	for _, axis := range []r3.Vec{worldY, worldX} {
		if r3.Norm(b2) >= minAxisNorm {
			break
		}
		b2 = r3.Cross(b3, axis)
	}
	b2 = r3.Unit(b2)
	b1 := r3.Cross(b2, b3)

	return rotation.Columns(b1, b2, b3), mass * math.Max(n, minTotalAccel)
}

// attitudeErrors returns the geodesic error against the desired rotation and
// the rate error against a zero rate target.
func attitudeErrors(x dynamo.State, aCmd r3.Vec, yaw, mass, gravity float64) (eR, eW r3.Vec, thrust float64) {
	qd, thrust := AccelerationToAttitudeAndThrust(aCmd, yaw, mass, gravity)
	r := rotation.ToRotationMatrix(rotation.Normalize(x.Attitude()))
	rd := rotation.ToRotationMatrix(qd)
	return rotation.AttitudeError(r, rd), x.Rate(), thrust
}
