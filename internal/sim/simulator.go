// Package sim runs the closed-loop quadrotor simulation: reference,
// controller, mixer, then a fixed-step RK4 advance of plant and motors
// followed by quaternion renormalization.
package sim

import (
	"context"

	"github.com/san-kum/quadsim/internal/dynamo"
	"go.uber.org/zap"
)

// Plant supplies the rigid-body part of the state derivative.
type Plant interface {
	RigidBodyDerivative(x dynamo.State, t float64) dynamo.State
	PostProcess(x dynamo.State)
	Reset(seed int64)
}

// Actuator supplies the rotor-speed part of the state derivative.
type Actuator interface {
	Derivative(omega, cmd dynamo.Control) dynamo.Control
}

type Allocator interface {
	Allocate(w dynamo.Wrench) dynamo.Control
}

// closedLoop composes plant and motor derivatives into one System whose
// control input is the rotor-speed command.
type closedLoop struct {
	plant Plant
	motor Actuator
}

func (c *closedLoop) StateDim() int { return dynamo.StateDim }

func (c *closedLoop) Derive(x dynamo.State, cmd dynamo.Control, t float64) dynamo.State {
	d := make(dynamo.State, dynamo.StateDim)
	copy(d, c.plant.RigidBodyDerivative(x, t))
	d.SetRotors(c.motor.Derivative(x.Rotors(), cmd))
	return d
}

type Simulator struct {
	loop       *closedLoop
	mixer      Allocator
	controller dynamo.Controller
	integrator dynamo.Integrator
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
	logger     *zap.Logger
}

func New(plant Plant, motor Actuator, mixer Allocator, controller dynamo.Controller, integrator dynamo.Integrator) *Simulator {
	return &Simulator{
		loop:       &closedLoop{plant: plant, motor: motor},
		mixer:      mixer,
		controller: controller,
		integrator: integrator,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
		logger:     zap.NewNop(),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) SetLogger(l *zap.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Run flies ref from x0 for cfg.Steps() samples. The controller is
// evaluated once per step and its rotor command is held through all RK4
// stages. Every sample is logged, including the final one. The controller
// and the plant's disturbance stream are reset before the first step.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, ref dynamo.ReferenceFunc, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := x0.CheckDim(); err != nil {
		return nil, err
	}

	n := cfg.Steps()
	result := dynamo.NewResult(n)

	s.controller.Reset()
	s.loop.plant.Reset(cfg.Seed)
	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	dt := cfg.Dt
	for k := 0; k < n; k++ {
		t := sampleTime(k, n, cfg.Duration)

		select {
		case <-ctx.Done():
			return result, &dynamo.SimulationError{Step: k, Time: t, State: x.Clone(), Wrapped: ctx.Err()}
		default:
		}

		r := ref(t)
		w := s.controller.Compute(x.Clone(), r, dt)
		cmd := s.mixer.Allocate(w)

		sample := dynamo.Sample{
			Time:     t,
			State:    x.Clone(),
			Wrench:   w,
			Rotors:   x.Rotors(),
			Commands: cmd,
			Ref:      r,
		}
		result.Append(sample)
		for _, m := range s.metrics {
			m.Observe(sample)
		}
		for _, obs := range s.observers {
			obs.OnStep(sample)
		}

		if k < n-1 {
			x = s.integrator.Step(s.loop, x, cmd, t, dt)
			s.loop.plant.PostProcess(x)
			result.StepsTaken++
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	s.logger.Debug("run complete",
		zap.Int("samples", result.Len()),
		zap.Float64("duration", cfg.Duration),
		zap.Int64("seed", cfg.Seed),
		zap.Bool("finite", x.IsValid()),
	)
	return result, nil
}

// sampleTime spaces n samples evenly over [0, duration].
func sampleTime(k, n int, duration float64) float64 {
	if n <= 1 {
		return 0
	}
	return duration * float64(k) / float64(n-1)
}
