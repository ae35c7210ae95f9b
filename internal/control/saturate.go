package control

import (
	"math"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Saturation clamps thrust to [ThrustMin, ThrustMax] and each torque axis
// independently to [-TauMax, TauMax].
type Saturation struct {
	ThrustMin float64
	ThrustMax float64
	TauMax    float64
}

func NewSaturation(l config.Limits) Saturation {
	return Saturation{ThrustMin: l.ThrustMin, ThrustMax: l.ThrustMax, TauMax: l.TauMax}
}

func (s Saturation) Apply(w dynamo.Wrench) dynamo.Wrench {
	return dynamo.Wrench{
		Thrust: clamp(w.Thrust, s.ThrustMin, s.ThrustMax),
		Torque: r3Vec(
			clamp(w.Torque.X, -s.TauMax, s.TauMax),
			clamp(w.Torque.Y, -s.TauMax, s.TauMax),
			clamp(w.Torque.Z, -s.TauMax, s.TauMax),
		),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func clampVec(v r3.Vec, limit float64) r3.Vec {
	return r3Vec(clamp(v.X, -limit, limit), clamp(v.Y, -limit, limit), clamp(v.Z, -limit, limit))
}

// mulElem is the per-axis product used for diagonal gains.
func mulElem(a, b r3.Vec) r3.Vec {
	return r3Vec(a.X*b.X, a.Y*b.Y, a.Z*b.Z)
}

func r3Vec(x, y, z float64) r3.Vec {
	return r3.Vec{X: x, Y: y, Z: z}
}
