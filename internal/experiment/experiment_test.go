package experiment

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/control"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/scenario"
	"github.com/san-kum/quadsim/internal/storage"
)

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()
	cfg := config.DefaultConfig()

	for _, name := range []string{"lqr", "LQR", " Pid "} {
		if _, err := r.GetController(name, cfg); err != nil {
			t.Errorf("GetController(%q): %v", name, err)
		}
	}
	if _, err := r.GetController("mpc", cfg); !errors.Is(err, control.ErrUnknownController) {
		t.Errorf("expected ErrUnknownController, got %v", err)
	}

	sc, err := r.GetScenario("Circle", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != scenario.NameCircle || sc.Duration != cfg.Sim.TCircle {
		t.Errorf("unexpected scenario %+v", sc)
	}
	if _, err := r.GetScenario("figure8", cfg); !errors.Is(err, scenario.ErrUnknownScenario) {
		t.Errorf("expected ErrUnknownScenario, got %v", err)
	}
	if _, err := r.GetIntegrator("euler"); err == nil {
		t.Error("expected error for unknown integrator")
	}
}

func TestRegistry_Lists(t *testing.T) {
	r := NewRegistry()
	want := []string{"circle", "hover", "line"}
	got := r.ListScenarios()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
	if c := r.ListControllers(); len(c) != 2 || c[0] != "lqr" || c[1] != "pid" {
		t.Errorf("unexpected controllers %v", c)
	}
}

func TestStandardSuite(t *testing.T) {
	cases := StandardSuite()
	want := []struct{ name, scenario, controller string }{
		{"Exp1_Hover", "hover", "LQR"},
		{"Exp2_Line", "line", "LQR"},
		{"Exp3_Circle", "circle", "LQR"},
		{"Exp4_CircleCompare", "circle", "PID"},
	}
	if len(cases) != len(want) {
		t.Fatalf("expected %d cases, got %d", len(want), len(cases))
	}
	for i, w := range want {
		c := cases[i]
		if c.Name != w.name || c.Scenario != w.scenario || c.Controller != w.controller {
			t.Errorf("case %d: got %+v", i, c)
		}
	}
}

func TestExperiment_RunBeforeSetup(t *testing.T) {
	e := New(config.DefaultConfig(), Case{Name: "x", Scenario: "hover", Controller: "lqr"}, nil)
	if _, err := e.Run(context.Background()); err == nil {
		t.Error("expected error when running before Setup")
	}
}

func TestExperiment_Run(t *testing.T) {
	cfg := config.DefaultConfig()
	e := New(cfg, Case{Name: "short", Scenario: "hover", Controller: "lqr", Duration: 0.5}, nil)
	if err := e.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Len() != 51 {
		t.Errorf("expected 51 samples, got %d", res.Len())
	}
	for _, name := range []string{"rmse_pos", "max_pos_err", "energy_u", "peak_thrust"} {
		if _, ok := res.Metrics[name]; !ok {
			t.Errorf("missing metric %s", name)
		}
	}

	cfg.Sim.Dt = 0.5
	if e.Config().Sim.Dt == 0.5 {
		t.Error("experiment shares the caller's config")
	}
}

type sampleCounter struct{ n int }

func (c *sampleCounter) OnStep(dynamo.Sample) { c.n++ }

func TestExperiment_SimulatorObservers(t *testing.T) {
	e := New(config.DefaultConfig(), Case{Scenario: "circle", Controller: "pid", Duration: 0.2}, nil)
	if e.GetSimulator() != nil {
		t.Error("expected no simulator before Setup")
	}
	if err := e.Setup(); err != nil {
		t.Fatal(err)
	}
	counter := &sampleCounter{}
	e.GetSimulator().AddObserver(counter)
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if counter.n != res.Len() {
		t.Errorf("observer saw %d samples, run logged %d", counter.n, res.Len())
	}
}

func TestExperiment_SetupRejects(t *testing.T) {
	cfg := config.DefaultConfig()
	if err := New(cfg, Case{Scenario: "hover", Controller: "mpc"}, nil).Setup(); !errors.Is(err, control.ErrUnknownController) {
		t.Errorf("expected ErrUnknownController, got %v", err)
	}

	cfg.Quad.Mass = -1
	if err := New(cfg, Case{Scenario: "hover", Controller: "lqr"}, nil).Setup(); !errors.Is(err, config.ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestSuite_Run(t *testing.T) {
	dir := t.TempDir()
	store := storage.New(dir)
	s := NewSuite(config.DefaultConfig(), store, nil)

	cases := []Case{
		{Name: "A_Hover", Scenario: "hover", Controller: "LQR", Duration: 0.3},
		{Name: "B_Circle", Scenario: "circle", Controller: "PID", Duration: 0.3},
	}
	rows, err := s.Run(context.Background(), cases)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(rows) != 2 || rows[0].Exp != "A_Hover" || rows[1].Exp != "B_Circle" {
		t.Fatalf("rows out of case order: %+v", rows)
	}

	runs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 stored runs, got %d", len(runs))
	}
	for _, row := range rows {
		meta, err := store.Load(row.RunID)
		if err != nil {
			t.Fatalf("Load(%s): %v", row.RunID, err)
		}
		if meta.Samples != 31 || meta.Case != row.Exp {
			t.Errorf("unexpected metadata %+v", meta)
		}
	}

	path, err := WriteMetrics(dir, rows)
	if err != nil {
		t.Fatal(err)
	}
	back, err := ReadMetrics(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 || back[1].Controller != "PID" || back[0].Metrics["rmse_pos"] != rows[0].Metrics["rmse_pos"] {
		t.Errorf("metrics.json did not round-trip: %+v", back)
	}
}

func TestSuite_FailureCancels(t *testing.T) {
	s := NewSuite(config.DefaultConfig(), storage.New(t.TempDir()), nil)
	_, err := s.Run(context.Background(), []Case{
		{Name: "ok", Scenario: "hover", Controller: "lqr", Duration: 0.1},
		{Name: "bad", Scenario: "hover", Controller: "mpc", Duration: 0.1},
	})
	if !errors.Is(err, control.ErrUnknownController) {
		t.Errorf("expected ErrUnknownController, got %v", err)
	}
}

func TestRow_FlatJSON(t *testing.T) {
	row := Row{Exp: "Exp1_Hover", Controller: "LQR", RunID: "id", Metrics: map[string]float64{"rmse_pos": 0.01, "energy_u": math.NaN()}}
	data, err := json.Marshal(row)
	if err != nil {
		t.Fatal(err)
	}
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatal(err)
	}
	if flat["exp"] != "Exp1_Hover" || flat["rmse_pos"] != 0.01 || flat["energy_u"] != nil {
		t.Errorf("unexpected JSON %s", data)
	}

	var back Row
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(back.Metrics["energy_u"]) {
		t.Errorf("expected NaN for null metric, got %v", back.Metrics["energy_u"])
	}
}

func TestMetricNames(t *testing.T) {
	rows := []Row{
		{Metrics: map[string]float64{"b": 1, "a": 2}},
		{Metrics: map[string]float64{"c": 3}},
	}
	names := MetricNames(rows)
	if len(names) != 3 || names[0] != "a" || names[2] != "c" {
		t.Errorf("unexpected names %v", names)
	}
}
