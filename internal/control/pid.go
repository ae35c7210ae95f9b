package control

import (
	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// PID is the baseline cascade: per-axis position PID with a clamped
// integral, followed by PD attitude control on the SO(3) error.
type PID struct {
	KpPos, KiPos, KdPos r3.Vec
	KpR, KdW            r3.Vec
	IntegLimit          float64

	mass, gravity float64
	integral      r3.Vec
	sat           Saturation
}

func NewPID(cfg *config.Config) (*PID, error) {
	p := &PID{
		IntegLimit: cfg.PID.IntegLimit,
		mass:       cfg.Quad.Mass,
		gravity:    cfg.Quad.Gravity,
		sat:        NewSaturation(cfg.Limits),
	}
	for _, g := range []struct {
		name string
		src  []float64
		dst  *r3.Vec
	}{
		{"pid.kp_pos", cfg.PID.KpPos, &p.KpPos},
		{"pid.ki_pos", cfg.PID.KiPos, &p.KiPos},
		{"pid.kd_pos", cfg.PID.KdPos, &p.KdPos},
		{"pid.kp_r", cfg.PID.KpR, &p.KpR},
		{"pid.kd_w", cfg.PID.KdW, &p.KdW},
	} {
		v, err := config.Vec3(g.name, g.src)
		if err != nil {
			return nil, err
		}
		*g.dst = v
	}
	return p, nil
}

func (p *PID) Compute(x dynamo.State, ref dynamo.Reference, dt float64) dynamo.Wrench {
	ep := r3.Sub(x.Position(), ref.Position)
	ev := r3.Sub(x.Velocity(), ref.Velocity)

	p.integral = clampVec(r3.Add(p.integral, r3.Scale(dt, ep)), p.IntegLimit)

	aCmd := ref.Acceleration
	aCmd = r3.Sub(aCmd, mulElem(p.KpPos, ep))
	aCmd = r3.Sub(aCmd, mulElem(p.KdPos, ev))
	aCmd = r3.Sub(aCmd, mulElem(p.KiPos, p.integral))

	eR, eW, thrust := attitudeErrors(x, aCmd, ref.Yaw, p.mass, p.gravity)
	tau := r3.Scale(-1, r3.Add(mulElem(p.KpR, eR), mulElem(p.KdW, eW)))

	return p.sat.Apply(dynamo.Wrench{Thrust: thrust, Torque: tau})
}

// Integral returns the current position-error integral.
func (p *PID) Integral() r3.Vec { return p.integral }

// Reset clears the integral; call it before every fresh run.
func (p *PID) Reset() {
	p.integral = r3.Vec{}
}
