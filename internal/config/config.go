package config

import (
	"errors"
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// ErrMalformed is returned for parameter bundles with missing, mis-sized or
// out-of-range values.
var ErrMalformed = errors.New("config: malformed parameter bundle")

type Config struct {
	Quad        Quad        `yaml:"quad"`
	Motor       Motor       `yaml:"motor"`
	Rotor       Rotor       `yaml:"rotor"`
	Limits      Limits      `yaml:"limits"`
	Disturbance Disturbance `yaml:"disturbance"`
	LQR         LQR         `yaml:"lqr"`
	PID         PID         `yaml:"pid"`
	Sim         Sim         `yaml:"sim"`
	Traj        Traj        `yaml:"traj"`
	Initial     Initial     `yaml:"initial"`
}

type Quad struct {
	Mass    float64     `yaml:"mass"`
	Gravity float64     `yaml:"gravity"`
	Inertia [][]float64 `yaml:"inertia"`
}

// Motor is the first-order rotor-speed lag.
type Motor struct {
	Tau float64 `yaml:"tau"`
}

// Rotor holds thrust = Kf·ω², yaw torque = Km·ω² and the lever arm.
type Rotor struct {
	Kf  float64 `yaml:"kf"`
	Km  float64 `yaml:"km"`
	Arm float64 `yaml:"arm"`
}

type Limits struct {
	OmegaMin  float64 `yaml:"omega_min"`
	OmegaMax  float64 `yaml:"omega_max"`
	ThrustMin float64 `yaml:"thrust_min"`
	ThrustMax float64 `yaml:"thrust_max"`
	TauMax    float64 `yaml:"tau_max"`
}

// Disturbance selects amplitudes and noise by Level: 0 none, 1 medium,
// 2 strong. Amp and Sigma carry one entry per non-zero level.
type Disturbance struct {
	Level       int         `yaml:"level"`
	Seed        int64       `yaml:"seed"`
	ForceAmp    [][]float64 `yaml:"force_amp"`
	ForceFreqHz []float64   `yaml:"force_freq_hz"`
	ForcePhase  []float64   `yaml:"force_phase"`
	ForceSigma  []float64   `yaml:"force_sigma"`
	TauAmp      [][]float64 `yaml:"tau_amp"`
	TauFreqHz   []float64   `yaml:"tau_freq_hz"`
	TauPhase    []float64   `yaml:"tau_phase"`
	TauSigma    []float64   `yaml:"tau_sigma"`
}

// NumLevels is the number of non-zero disturbance levels.
const NumLevels = 2

// LQR weights. Outer loop: x = [e_p, e_v], u = a_cmd. Inner loop:
// x = [e_R, e_ω], u = τ. Ki > 0 enables a clamped position integral.
type LQR struct {
	QoPos      float64 `yaml:"qo_pos"`
	QoVel      float64 `yaml:"qo_vel"`
	RoAcc      float64 `yaml:"ro_acc"`
	QiR        float64 `yaml:"qi_r"`
	QiW        float64 `yaml:"qi_w"`
	RiTau      float64 `yaml:"ri_tau"`
	YawTrack   bool    `yaml:"yaw_track"`
	YawDes     float64 `yaml:"yaw_des"`
	Ki         float64 `yaml:"ki"`
	IntegLimit float64 `yaml:"integ_limit"`
}

type PID struct {
	KpPos      []float64 `yaml:"kp_pos"`
	KiPos      []float64 `yaml:"ki_pos"`
	KdPos      []float64 `yaml:"kd_pos"`
	IntegLimit float64   `yaml:"integ_limit"`
	KpR        []float64 `yaml:"kp_r"`
	KdW        []float64 `yaml:"kd_w"`
}

type Sim struct {
	Dt      float64 `yaml:"dt"`
	THover  float64 `yaml:"t_hover"`
	TLine   float64 `yaml:"t_line"`
	TCircle float64 `yaml:"t_circle"`
}

type Traj struct {
	HoverZ      float64 `yaml:"hover_z"`
	LineV       float64 `yaml:"line_v"`
	CircleR     float64 `yaml:"circle_r"`
	CircleOmega float64 `yaml:"circle_omega"`
	CircleZ     float64 `yaml:"circle_z"`
}

// Initial is the state every run starts from: at rest, level, with all
// rotors spinning at RotorSpeed.
type Initial struct {
	Position   []float64 `yaml:"position"`
	RotorSpeed float64   `yaml:"rotor_speed"`
}

func DefaultConfig() *Config {
	return &Config{
		Quad: Quad{
			Mass:    0.037,
			Gravity: 9.81,
			Inertia: [][]float64{
				{1.8e-5, 0, 0},
				{0, 1.8e-5, 0},
				{0, 0, 3.2e-5},
			},
		},
		Motor: Motor{Tau: 0.02},
		Rotor: Rotor{Kf: 6.0e-8, Km: 1.0e-9, Arm: 0.046},
		Limits: Limits{
			OmegaMin:  0,
			OmegaMax:  2500,
			ThrustMin: 0,
			ThrustMax: 1.2,
			TauMax:    0.03,
		},
		Disturbance: Disturbance{
			Level:       1,
			Seed:        7,
			ForceAmp:    [][]float64{{0.010, 0.010, 0.008}, {0.020, 0.020, 0.016}},
			ForceFreqHz: []float64{0.7, 0.9, 0.5},
			ForcePhase:  []float64{0.0, 0.7, 1.1},
			ForceSigma:  []float64{0.002, 0.004},
			TauAmp:      [][]float64{{2.0e-5, 2.0e-5, 1.5e-5}, {4.0e-5, 4.0e-5, 3.0e-5}},
			TauFreqHz:   []float64{1.2, 1.0, 0.8},
			TauPhase:    []float64{0.3, 1.0, 0.2},
			TauSigma:    []float64{4.0e-6, 8.0e-6},
		},
		LQR: LQR{
			QoPos:      60,
			QoVel:      12,
			RoAcc:      2,
			QiR:        1,
			QiW:        5e-3,
			RiTau:      6e4,
			IntegLimit: 2,
		},
		PID: PID{
			KpPos:      []float64{2.5, 2.5, 4.0},
			KiPos:      []float64{0.05, 0.05, 0.08},
			KdPos:      []float64{2.0, 2.0, 2.6},
			IntegLimit: 2,
			KpR:        []float64{4.0e-3, 4.0e-3, 7.0e-3},
			KdW:        []float64{4.0e-4, 4.0e-4, 7.0e-4},
		},
		Sim: Sim{Dt: 0.01, THover: 30, TLine: 30, TCircle: 40},
		Traj: Traj{
			HoverZ:      1.0,
			LineV:       0.3,
			CircleR:     1.0,
			CircleOmega: 0.4,
			CircleZ:     1.0,
		},
		Initial: Initial{
			Position:   []float64{0.2, -0.2, 0.9},
			RotorSpeed: 1200,
		},
	}
}

// Load overlays the YAML file at path onto DefaultConfig and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy so presets and callers never share slices.
func (c *Config) Clone() *Config {
	out := *c
	out.Quad.Inertia = cloneMatrix(c.Quad.Inertia)
	d := &out.Disturbance
	d.ForceAmp = cloneMatrix(c.Disturbance.ForceAmp)
	d.TauAmp = cloneMatrix(c.Disturbance.TauAmp)
	d.ForceFreqHz = cloneSlice(c.Disturbance.ForceFreqHz)
	d.ForcePhase = cloneSlice(c.Disturbance.ForcePhase)
	d.ForceSigma = cloneSlice(c.Disturbance.ForceSigma)
	d.TauFreqHz = cloneSlice(c.Disturbance.TauFreqHz)
	d.TauPhase = cloneSlice(c.Disturbance.TauPhase)
	d.TauSigma = cloneSlice(c.Disturbance.TauSigma)
	out.PID.KpPos = cloneSlice(c.PID.KpPos)
	out.PID.KiPos = cloneSlice(c.PID.KiPos)
	out.PID.KdPos = cloneSlice(c.PID.KdPos)
	out.PID.KpR = cloneSlice(c.PID.KpR)
	out.PID.KdW = cloneSlice(c.PID.KdW)
	out.Initial.Position = cloneSlice(c.Initial.Position)
	return &out
}

func cloneSlice(s []float64) []float64 {
	if s == nil {
		return nil
	}
	return append([]float64(nil), s...)
}

func cloneMatrix(m [][]float64) [][]float64 {
	if m == nil {
		return nil
	}
	out := make([][]float64, len(m))
	for i := range m {
		out[i] = cloneSlice(m[i])
	}
	return out
}

// Vec3 converts a 3-element slice, failing with ErrMalformed otherwise.
func Vec3(field string, v []float64) (r3.Vec, error) {
	if len(v) != 3 {
		return r3.Vec{}, fmt.Errorf("%w: %s must have 3 entries, got %d", ErrMalformed, field, len(v))
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}

// Matrix3 converts a 3x3 nested slice, failing with ErrMalformed otherwise.
func Matrix3(field string, m [][]float64) ([3][3]float64, error) {
	var out [3][3]float64
	if len(m) != 3 {
		return out, fmt.Errorf("%w: %s must be 3x3, got %d rows", ErrMalformed, field, len(m))
	}
	for i, row := range m {
		if len(row) != 3 {
			return out, fmt.Errorf("%w: %s row %d has %d entries", ErrMalformed, field, i, len(row))
		}
		copy(out[i][:], row)
	}
	return out, nil
}
