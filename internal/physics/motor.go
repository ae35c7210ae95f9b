package physics

import "github.com/san-kum/quadsim/internal/dynamo"

// Motor is a first-order lag dω/dt = (ω_cmd - ω) / Tau, applied per rotor.
// Saturation happens upstream in the mixer.
type Motor struct {
	Tau float64
}

func NewMotor(tau float64) Motor {
	return Motor{Tau: tau}
}

func (m Motor) Derivative(omega, cmd dynamo.Control) dynamo.Control {
	var d dynamo.Control
	for i := range d {
		d[i] = (cmd[i] - omega[i]) / m.Tau
	}
	return d
}
