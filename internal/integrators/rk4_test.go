package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/quadsim/internal/dynamo"
)

type oscillator struct{}

func (s *oscillator) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (s *oscillator) StateDim() int { return 2 }

// heldInput integrates the first control channel and records stage times.
type heldInput struct {
	times []float64
}

func (h *heldInput) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	h.times = append(h.times, t)
	return dynamo.State{u[0], t}
}

func (h *heldInput) StateDim() int { return 2 }

func TestRK4Accuracy(t *testing.T) {
	dyn := &oscillator{}
	integ := NewRK4()

	x := dynamo.State{1.0, 0.0}
	dt := 0.01
	steps := 100
	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, dynamo.Control{}, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-8 {
		t.Errorf("position error too large: got %.10f, expected %.10f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-8 {
		t.Errorf("velocity error too large: got %.10f, expected %.10f", x[1], expectedV)
	}
}

func TestRK4HeldControl(t *testing.T) {
	dyn := &heldInput{}
	integ := NewRK4()

	x := integ.Step(dyn, dynamo.State{0, 0}, dynamo.Control{3}, 1.0, 0.1)

	if math.Abs(x[0]-0.3) > 1e-15 {
		t.Errorf("expected 0.3 from held input, got %f", x[0])
	}
	// ∫ t dt from 1.0 to 1.1 is exact for RK4.
	if math.Abs(x[1]-0.105) > 1e-15 {
		t.Errorf("expected 0.105, got %f", x[1])
	}

	want := []float64{1.0, 1.05, 1.05, 1.1}
	if len(dyn.times) != len(want) {
		t.Fatalf("expected %d stage evaluations, got %d", len(want), len(dyn.times))
	}
	for i := range want {
		if math.Abs(dyn.times[i]-want[i]) > 1e-15 {
			t.Errorf("stage %d: expected t=%f, got %f", i, want[i], dyn.times[i])
		}
	}
}

func TestRK4DoesNotMutateInput(t *testing.T) {
	integ := NewRK4()
	x := dynamo.State{1, 0}
	integ.Step(&oscillator{}, x, dynamo.Control{}, 0, 0.1)
	if x[0] != 1 || x[1] != 0 {
		t.Errorf("input state modified: %v", x)
	}
}
