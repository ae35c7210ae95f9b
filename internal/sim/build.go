package sim

import (
	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/control"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/integrators"
	"github.com/san-kum/quadsim/internal/physics"
)

// Build assembles a simulator for cfg with the given controller. Every
// call returns independent plant, controller and integrator instances, so
// the result may run concurrently with other builds.
func Build(cfg *config.Config, kind control.Kind) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	plant, err := physics.NewQuadrotor(cfg)
	if err != nil {
		return nil, err
	}
	mixer, err := control.NewMixer(cfg.Rotor, cfg.Limits)
	if err != nil {
		return nil, err
	}
	ctrl, err := control.New(kind, cfg)
	if err != nil {
		return nil, err
	}
	return New(plant, plant.Motor(), mixer, ctrl, integrators.NewRK4()), nil
}

// InitialState is the configured start: level, at rest, rotors spinning.
func InitialState(cfg *config.Config) (dynamo.State, error) {
	p, err := config.Vec3("initial.position", cfg.Initial.Position)
	if err != nil {
		return nil, err
	}
	return physics.InitialState(p, cfg.Initial.RotorSpeed), nil
}

// RunConfig is the loop configuration for a horizon under cfg.
func RunConfig(cfg *config.Config, duration float64) dynamo.Config {
	return dynamo.Config{Dt: cfg.Sim.Dt, Duration: duration, Seed: cfg.Disturbance.Seed}
}
