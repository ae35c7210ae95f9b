// Package experiment runs named cases: a scenario flown by a controller
// under one configuration, saved to a run store.
package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/control"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/physics"
	"github.com/san-kum/quadsim/internal/scenario"
	"github.com/san-kum/quadsim/internal/sim"
	"go.uber.org/zap"
)

// Case names one run. A zero Duration flies the scenario's configured
// horizon.
type Case struct {
	Name       string
	Scenario   string
	Controller string
	Duration   float64
}

// StandardSuite is the four-case comparison: LQR on every scenario, then
// the PID baseline on the circle.
func StandardSuite() []Case {
	return []Case{
		{Name: "Exp1_Hover", Scenario: scenario.NameHover, Controller: "LQR"},
		{Name: "Exp2_Line", Scenario: scenario.NameLine, Controller: "LQR"},
		{Name: "Exp3_Circle", Scenario: scenario.NameCircle, Controller: "LQR"},
		{Name: "Exp4_CircleCompare", Scenario: scenario.NameCircle, Controller: "PID"},
	}
}

type Experiment struct {
	cfg        *config.Config
	c          Case
	registry   *Registry
	logger     *zap.Logger
	simulator  *sim.Simulator
	scenario   scenario.Scenario
	integrator string
}

// New copies cfg, so callers may keep editing theirs.
func New(cfg *config.Config, c Case, registry *Registry) *Experiment {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Experiment{
		cfg:        cfg.Clone(),
		c:          c,
		registry:   registry,
		logger:     zap.NewNop(),
		integrator: "rk4",
	}
}

func (e *Experiment) SetLogger(l *zap.Logger) {
	if l != nil {
		e.logger = l
	}
}

// Setup builds the plant, mixer, controller and integrator and attaches
// the default metrics.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	sc, err := e.registry.GetScenario(e.c.Scenario, e.cfg)
	if err != nil {
		return err
	}
	if e.c.Duration > 0 {
		sc.Duration = e.c.Duration
	}

	plant, err := physics.NewQuadrotor(e.cfg)
	if err != nil {
		return err
	}
	mixer, err := control.NewMixer(e.cfg.Rotor, e.cfg.Limits)
	if err != nil {
		return err
	}
	ctrl, err := e.registry.GetController(e.c.Controller, e.cfg)
	if err != nil {
		return err
	}
	integ, err := e.registry.GetIntegrator(e.integrator)
	if err != nil {
		return err
	}

	e.simulator = sim.New(plant, plant.Motor(), mixer, ctrl, integ)
	e.simulator.SetLogger(e.logger)
	for _, m := range e.registry.DefaultMetrics() {
		e.simulator.AddMetric(m)
	}
	e.scenario = sc
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment %s not setup", e.c.Name)
	}

	x0, err := sim.InitialState(e.cfg)
	if err != nil {
		return nil, err
	}
	return e.simulator.Run(ctx, x0, e.scenario.Ref, sim.RunConfig(e.cfg, e.scenario.Duration))
}

// GetSimulator returns the underlying simulator for adding observers. It
// is nil before Setup.
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) Case() Case                  { return e.c }
func (e *Experiment) Scenario() scenario.Scenario { return e.scenario }
func (e *Experiment) Config() *config.Config      { return e.cfg }
