package metrics

import (
	"math"

	"github.com/san-kum/quadsim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// ControlEnergy is Σ (T² + ‖τ‖²)·dt, with dt taken from the first two
// sample times (1 for single-sample runs).
type ControlEnergy struct {
	sum     float64
	t0, t1  float64
	samples int
}

func NewControlEnergy() *ControlEnergy {
	return &ControlEnergy{}
}

func (c *ControlEnergy) Name() string {
	return "energy_u"
}

func (c *ControlEnergy) Observe(s dynamo.Sample) {
	switch c.samples {
	case 0:
		c.t0 = s.Time
	case 1:
		c.t1 = s.Time
	}
	u := s.Wrench.Vector()
	c.sum += floats.Dot(u[:], u[:])
	c.samples++
}

func (c *ControlEnergy) Value() float64 {
	dt := 1.0
	if c.samples > 1 {
		dt = c.t1 - c.t0
	}
	return c.sum * dt
}

func (c *ControlEnergy) Reset() {
	*c = ControlEnergy{}
}

// Peak tracks the largest magnitude of one wrench component.
type Peak struct {
	name      string
	component int
	max       float64
}

// Wrench components for Peak, in [T, τx, τy, τz] order.
const (
	Thrust = iota
	TorqueX
	TorqueY
	TorqueZ
)

func NewPeak(name string, component int) *Peak {
	return &Peak{name: name, component: component}
}

func NewPeakThrust() *Peak { return NewPeak("peak_thrust", Thrust) }

func NewPeakTorques() []*Peak {
	return []*Peak{
		NewPeak("peak_tau_x", TorqueX),
		NewPeak("peak_tau_y", TorqueY),
		NewPeak("peak_tau_z", TorqueZ),
	}
}

func (p *Peak) Name() string { return p.name }

func (p *Peak) Observe(s dynamo.Sample) {
	p.max = math.Max(p.max, math.Abs(s.Wrench.Vector()[p.component]))
}

func (p *Peak) Value() float64 { return p.max }
func (p *Peak) Reset()         { p.max = 0 }
