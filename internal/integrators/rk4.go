// Package integrators advances a dynamo.System by one fixed step.
package integrators

import "github.com/san-kum/quadsim/internal/dynamo"

// RK4 is the classical four-stage Runge-Kutta scheme. The control input is
// held constant across all stages of a step. RK4 keeps scratch buffers and
// is not safe for concurrent use.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

// stage writes x + h·k into scratch and evaluates the system there.
func (r *RK4) stage(dyn dynamo.System, x, k, dst dynamo.State, u dynamo.Control, t, h float64) {
	for i := range x {
		r.scratch[i] = x[i] + h*k[i]
	}
	copy(dst, dyn.Derive(r.scratch, u, t))
}

// Step returns a new state; x is not modified.
func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)

	copy(r.k1, dyn.Derive(x, u, t))
	r.stage(dyn, x, r.k1, r.k2, u, t+dt/2, dt/2)
	r.stage(dyn, x, r.k2, r.k3, u, t+dt/2, dt/2)
	r.stage(dyn, x, r.k3, r.k4, u, t+dt, dt)

	next := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		next[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	return next
}
