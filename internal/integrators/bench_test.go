package integrators

import (
	"testing"

	"github.com/san-kum/quadsim/internal/dynamo"
)

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	dyn := &oscillator{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, dynamo.Control{}, 0, 0.01)
	}
}
