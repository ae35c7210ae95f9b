package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/rotation"
	"gonum.org/v1/gonum/spatial/r3"
)

// offsetResult builds samples at 0, 0.1, ... whose position error has the
// given norms along x.
func offsetResult(errs []float64) *dynamo.Result {
	res := dynamo.NewResult(len(errs))
	for k, e := range errs {
		x := dynamo.NewState(r3.Vec{X: e, Z: 1}, r3.Vec{}, rotation.Identity, r3.Vec{}, dynamo.Control{})
		res.Append(dynamo.Sample{
			Time:   0.1 * float64(k),
			State:  x,
			Wrench: dynamo.Wrench{Thrust: 0.3 + 0.1*float64(k), Torque: r3.Vec{X: -0.01 * float64(k)}},
			Ref:    dynamo.Reference{Position: r3.Vec{Z: 1}},
		})
	}
	return res
}

func TestTrackingMetrics(t *testing.T) {
	res := offsetResult([]float64{3, 0, -4, 1})
	got := Evaluate(res)

	tests := []struct {
		name string
		want float64
	}{
		{"rmse_pos", math.Sqrt((9 + 0 + 16 + 1) / 4.0)},
		{"max_pos_err", 4},
		{"final_pos_err", 1},
		{"peak_thrust", 0.6},
		{"peak_tau_x", 0.03},
		{"peak_tau_y", 0},
		{"stability", 0.5},
		{"quat_norm_drift", 0},
	}
	for _, tt := range tests {
		v, ok := got[tt.name]
		if !ok {
			t.Errorf("missing metric %s", tt.name)
			continue
		}
		if math.Abs(v-tt.want) > 1e-12 {
			t.Errorf("%s: expected %f, got %f", tt.name, tt.want, v)
		}
	}
}

func TestControlEnergy(t *testing.T) {
	res := offsetResult([]float64{0, 0, 0})
	e := NewControlEnergy()
	got := Evaluate(res, e)["energy_u"]

	want := 0.0
	for k := 0; k < 3; k++ {
		thrust := 0.3 + 0.1*float64(k)
		tau := 0.01 * float64(k)
		want += (thrust*thrust + tau*tau) * 0.1
	}
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("expected %f, got %f", want, got)
	}
}

func TestControlEnergy_SingleSample(t *testing.T) {
	res := offsetResult([]float64{0})
	if got := Evaluate(res, NewControlEnergy())["energy_u"]; math.Abs(got-0.09) > 1e-12 {
		t.Errorf("expected 0.09 with unit dt, got %f", got)
	}
}

func TestStability_Invalid(t *testing.T) {
	s := NewStability(10)
	x := dynamo.NewState(r3.Vec{X: math.NaN()}, r3.Vec{}, rotation.Identity, r3.Vec{}, dynamo.Control{})
	s.Observe(dynamo.Sample{State: x})
	if s.Value() != 0 {
		t.Errorf("NaN state should count as a violation, got %f", s.Value())
	}
	s.Reset()
	if s.Value() != 1 {
		t.Errorf("expected 1 after reset, got %f", s.Value())
	}
}

func TestEvaluate_Resets(t *testing.T) {
	rmse := NewPositionRMSE()
	Evaluate(offsetResult([]float64{10}), rmse)
	got := Evaluate(offsetResult([]float64{1}), rmse)["rmse_pos"]
	if got != 1 {
		t.Errorf("metric state leaked between evaluations: %f", got)
	}
}

func TestDefault_UniqueNames(t *testing.T) {
	seen := make(map[string]bool)
	for _, m := range Default() {
		if seen[m.Name()] {
			t.Errorf("duplicate metric name %s", m.Name())
		}
		seen[m.Name()] = true
	}
}
