package control

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/physics"
	"gonum.org/v1/gonum/spatial/r3"
)

func defaultMixer(t *testing.T) (*Mixer, *config.Config) {
	t.Helper()
	cfg := config.DefaultConfig()
	m, err := NewMixer(cfg.Rotor, cfg.Limits)
	if err != nil {
		t.Fatalf("NewMixer failed: %v", err)
	}
	return m, cfg
}

func TestMixer_RoundTrip(t *testing.T) {
	m, cfg := defaultMixer(t)
	cfg.Disturbance.Level = 0
	plant, err := physics.NewQuadrotor(cfg)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		thrust float64
		torque r3.Vec
	}{
		{"hover", plant.Weight(), r3.Vec{}},
		{"roll", 0.4, r3.Vec{X: 2e-4}},
		{"pitch", 0.4, r3.Vec{Y: -2e-4}},
		{"yaw", 0.5, r3.Vec{Z: 1e-4}},
		{"mixed", 0.3, r3.Vec{X: -1e-4, Y: 1.5e-4, Z: -5e-5}},
		{"light", 0.05, r3.Vec{X: 1e-5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := m.Allocate(dynamo.Wrench{Thrust: tt.thrust, Torque: tt.torque})
			got := plant.WrenchFromRotorSpeeds(cmd)

			if math.Abs(got.Thrust-tt.thrust) > 1e-9 {
				t.Errorf("thrust: expected %g, got %g", tt.thrust, got.Thrust)
			}
			if d := r3.Norm(r3.Sub(got.Torque, tt.torque)); d > 1e-10 {
				t.Errorf("torque: expected %v, got %v", tt.torque, got.Torque)
			}

			fwd := m.Forward(cmd)
			if math.Abs(fwd.Thrust-got.Thrust) > 1e-12 || r3.Norm(r3.Sub(fwd.Torque, got.Torque)) > 1e-15 {
				t.Errorf("mixer forward map disagrees with plant: %+v vs %+v", fwd, got)
			}
		})
	}
}

func TestMixer_ClipsNegativeBeforeSqrt(t *testing.T) {
	m, _ := defaultMixer(t)
	cmd := m.Allocate(dynamo.Wrench{Thrust: 0, Torque: r3.Vec{X: 1e-3}})
	for i, w := range cmd {
		if w < 0 || math.IsNaN(w) {
			t.Errorf("rotor %d: invalid command %f", i, w)
		}
	}
	if cmd[0] > 1e-3 || cmd[2] > 1e-3 || cmd[3] > 1e-3 {
		t.Errorf("expected only rotor 2 to spin, got %v", cmd)
	}
	if cmd[1] <= 0 {
		t.Errorf("expected rotor 2 positive, got %f", cmd[1])
	}
}

func TestMixer_RangeClip(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Limits.OmegaMin = 100
	m, err := NewMixer(cfg.Rotor, cfg.Limits)
	if err != nil {
		t.Fatal(err)
	}

	idle := m.Allocate(dynamo.Wrench{})
	for i, w := range idle {
		if w != 100 {
			t.Errorf("rotor %d: expected omega_min 100, got %f", i, w)
		}
	}

	full := m.Allocate(dynamo.Wrench{Thrust: 100})
	for i, w := range full {
		if w != cfg.Limits.OmegaMax {
			t.Errorf("rotor %d: expected omega_max, got %f", i, w)
		}
	}
}

func TestNewMixer_Singular(t *testing.T) {
	cfg := config.DefaultConfig()
	tests := []struct {
		name  string
		rotor config.Rotor
	}{
		{"zero kf", config.Rotor{Kf: 0, Km: cfg.Rotor.Km, Arm: cfg.Rotor.Arm}},
		{"zero km", config.Rotor{Kf: cfg.Rotor.Kf, Km: 0, Arm: cfg.Rotor.Arm}},
		{"zero arm", config.Rotor{Kf: cfg.Rotor.Kf, Km: cfg.Rotor.Km, Arm: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMixer(tt.rotor, cfg.Limits); !errors.Is(err, ErrSingularMixer) {
				t.Errorf("expected ErrSingularMixer, got %v", err)
			}
		})
	}
}
