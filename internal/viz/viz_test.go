package viz

import (
	"math"
	"strings"
	"testing"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/experiment"
	"github.com/san-kum/quadsim/internal/physics"
	"github.com/san-kum/quadsim/internal/storage"
	"gonum.org/v1/gonum/spatial/r3"
)

func lineResult(n int) *dynamo.Result {
	res := dynamo.NewResult(n)
	for k := 0; k < n; k++ {
		tk := float64(k) * 0.1
		ref := r3.Vec{X: 0.3 * tk, Z: 1}
		x := physics.InitialState(r3.Add(ref, r3.Vec{Z: 0.1 / (1 + tk)}), 1200+float64(k))
		res.Append(dynamo.Sample{
			Time:   tk,
			State:  x,
			Wrench: dynamo.Wrench{Thrust: 0.36 + 0.01*math.Sin(tk)},
			Rotors: x.Rotors(),
			Ref:    dynamo.Reference{Position: ref},
		})
	}
	return res
}

func TestPositionErrors(t *testing.T) {
	errs := PositionErrors(lineResult(5))
	if len(errs) != 5 {
		t.Fatalf("expected 5 errors, got %d", len(errs))
	}
	if math.Abs(errs[0]-0.1) > 1e-12 {
		t.Errorf("expected 0.1 at t=0, got %f", errs[0])
	}
}

func TestRunCharts(t *testing.T) {
	out := RunCharts(lineResult(40), 60)
	for _, caption := range []string{"x (m)", "|p - p_ref|", "thrust (N)", "rotor speeds"} {
		if !strings.Contains(out, caption) {
			t.Errorf("missing chart %q", caption)
		}
	}
	if got := RunCharts(dynamo.NewResult(0), 60); !strings.Contains(got, "no data") {
		t.Errorf("unexpected output for an empty run: %q", got)
	}
}

func TestMetricsTable(t *testing.T) {
	rows := []experiment.Row{
		{Exp: "Exp1_Hover", Controller: "LQR", Metrics: map[string]float64{"rmse_pos": 0.012, "energy_u": 3.9}},
		{Exp: "Exp4_CircleCompare", Controller: "PID", Metrics: map[string]float64{"rmse_pos": math.NaN()}},
	}
	out := MetricsTable(rows, nil)
	for _, want := range []string{"EXP", "RMSE_POS", "ENERGY_U", "Exp1_Hover", "Exp4_CircleCompare", "0.012", "nan", "-"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRunSummary(t *testing.T) {
	meta := &storage.RunMetadata{ID: "Exp2_Line__LQR_20240309_140507", Scenario: "line", Controller: "LQR", Metrics: map[string]float64{"rmse_pos": 0.02}}
	out := RunSummary(meta, []float64{0.1, 0.05, 0.01}, 70)
	for _, want := range []string{meta.ID, "line", "rmse_pos", "0.02"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}

func TestSparklineChart(t *testing.T) {
	if got := SparklineChart(nil, 5); got != "─────" {
		t.Errorf("unexpected empty sparkline %q", got)
	}
	out := SparklineChart([]float64{0, 1, 2, 3}, 4)
	if !strings.ContainsRune(out, '▁') || !strings.ContainsRune(out, '█') {
		t.Errorf("sparkline lacks extremes: %q", out)
	}
}

func TestGetTheme(t *testing.T) {
	if GetTheme("ocean").Name != "ocean" {
		t.Error("expected ocean theme")
	}
	if GetTheme("nope").Name != "cyberpunk" {
		t.Error("expected fallback to cyberpunk")
	}
	if len(ThemeNames()) != len(Themes) {
		t.Error("theme names out of sync")
	}
}
