package physics

import (
	"math"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/rotation"
	"gonum.org/v1/gonum/spatial/r3"
)

// Quadrotor is the rigid-body plant. It holds its own disturbance stream and
// must not be shared between concurrent runs.
type Quadrotor struct {
	Mass    float64
	Gravity float64
	Kf, Km  float64
	Arm     float64

	inertia    rotation.Mat3
	inertiaInv rotation.Mat3
	motor      Motor
	dist       *Disturbance
}

func NewQuadrotor(cfg *config.Config) (*Quadrotor, error) {
	j, err := config.Matrix3("quad.inertia", cfg.Quad.Inertia)
	if err != nil {
		return nil, err
	}
	inertia := rotation.Mat3(j)
	inv, ok := inertia.Inverse()
	if !ok {
		return nil, config.ErrMalformed
	}
	dist, err := NewDisturbance(cfg.Disturbance)
	if err != nil {
		return nil, err
	}
	return &Quadrotor{
		Mass:       cfg.Quad.Mass,
		Gravity:    cfg.Quad.Gravity,
		Kf:         cfg.Rotor.Kf,
		Km:         cfg.Rotor.Km,
		Arm:        cfg.Rotor.Arm,
		inertia:    inertia,
		inertiaInv: inv,
		motor:      NewMotor(cfg.Motor.Tau),
		dist:       dist,
	}, nil
}

func (q *Quadrotor) Inertia() rotation.Mat3    { return q.inertia }
func (q *Quadrotor) Motor() Motor              { return q.motor }
func (q *Quadrotor) Disturbance() *Disturbance { return q.dist }
func (q *Quadrotor) StateDim() int             { return dynamo.RigidBodyDim }
func (q *Quadrotor) Reset(seed int64)          { q.dist.Reset(seed) }
func (q *Quadrotor) Weight() float64           { return q.Mass * q.Gravity }

// HoverRotorSpeed is the common rotor speed balancing gravity.
func (q *Quadrotor) HoverRotorSpeed() float64 {
	return math.Sqrt(q.Weight() / (4 * q.Kf))
}

// WrenchFromRotorSpeeds maps rotor speeds to collective thrust and body
// torque for the X layout.
func (q *Quadrotor) WrenchFromRotorSpeeds(w dynamo.Control) dynamo.Wrench {
	var w2 dynamo.Control
	for i, v := range w {
		w2[i] = v * v
	}
	return dynamo.Wrench{
		Thrust: q.Kf * (w2[0] + w2[1] + w2[2] + w2[3]),
		Torque: r3.Vec{
			X: q.Arm * q.Kf * (w2[1] - w2[3]),
			Y: q.Arm * q.Kf * (w2[2] - w2[0]),
			Z: q.Km * (w2[0] - w2[1] + w2[2] - w2[3]),
		},
	}
}

// RigidBodyDerivative returns d/dt of (p, v, q, ω) as a 13-element vector.
// Rotor-speed dynamics are the motor's concern. Each call samples the
// disturbance once.
func (q *Quadrotor) RigidBodyDerivative(x dynamo.State, t float64) dynamo.State {
	att := rotation.Normalize(x.Attitude())
	r := rotation.ToRotationMatrix(att)
	omega := x.Rate()

	w := q.WrenchFromRotorSpeeds(x.Rotors())
	fw, taud := q.dist.Sample(t)

	thrust := r.MulVec(r3.Vec{Z: w.Thrust})
	vdot := r3.Add(r3.Scale(1/q.Mass, r3.Add(thrust, fw)), r3.Vec{Z: -q.Gravity})

	qdot := rotation.Derivative(att, omega)

	tau := r3.Add(w.Torque, taud)
	gyro := r3.Cross(omega, q.inertia.MulVec(omega))
	wdot := q.inertiaInv.MulVec(r3.Sub(tau, gyro))

	d := make(dynamo.State, dynamo.RigidBodyDim)
	d.SetPosition(x.Velocity())
	d.SetVelocity(vdot)
	d.SetAttitude(qdot)
	d.SetRate(wdot)
	return d
}

// PostProcess renormalizes the attitude block in place.
func (q *Quadrotor) PostProcess(x dynamo.State) {
	x.SetAttitude(rotation.Normalize(x.Attitude()))
}

// InitialState is the run start: level, at rest, rotors at the given speed.
func InitialState(p r3.Vec, rotorSpeed float64) dynamo.State {
	rotors := dynamo.Control{rotorSpeed, rotorSpeed, rotorSpeed, rotorSpeed}
	return dynamo.NewState(p, r3.Vec{}, rotation.Identity, r3.Vec{}, rotors)
}
