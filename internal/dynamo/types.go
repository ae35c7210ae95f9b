package dynamo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Layout of a State vector.
const (
	PosIdx   = 0
	VelIdx   = 3
	QuatIdx  = 6
	RateIdx  = 10
	RotorIdx = 13

	// RigidBodyDim is the length of the plant's own sub-vector (p, v, q, ω).
	RigidBodyDim = 13
	StateDim     = 17
	NumRotors    = 4
)

type State []float64

// NewState assembles a state vector from its blocks.
func NewState(p, v r3.Vec, q quat.Number, omega r3.Vec, rotors Control) State {
	s := make(State, StateDim)
	s.SetPosition(p)
	s.SetVelocity(v)
	s.SetAttitude(q)
	s.SetRate(omega)
	s.SetRotors(rotors)
	return s
}

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// CheckDim reports ErrDimensionMismatch for anything but a full state.
func (s State) CheckDim() error {
	if len(s) != StateDim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(s), StateDim)
	}
	return nil
}

func (s State) vec(i int) r3.Vec { return r3.Vec{X: s[i], Y: s[i+1], Z: s[i+2]} }

func (s State) setVec(i int, v r3.Vec) { s[i], s[i+1], s[i+2] = v.X, v.Y, v.Z }

func (s State) Position() r3.Vec { return s.vec(PosIdx) }
func (s State) Velocity() r3.Vec { return s.vec(VelIdx) }
func (s State) Rate() r3.Vec     { return s.vec(RateIdx) }

// Attitude returns the body->world quaternion exactly as stored.
func (s State) Attitude() quat.Number {
	return quat.Number{Real: s[QuatIdx], Imag: s[QuatIdx+1], Jmag: s[QuatIdx+2], Kmag: s[QuatIdx+3]}
}

func (s State) Rotors() Control {
	var c Control
	copy(c[:], s[RotorIdx:RotorIdx+NumRotors])
	return c
}

func (s State) SetPosition(v r3.Vec) { s.setVec(PosIdx, v) }
func (s State) SetVelocity(v r3.Vec) { s.setVec(VelIdx, v) }
func (s State) SetRate(v r3.Vec)     { s.setVec(RateIdx, v) }

func (s State) SetAttitude(q quat.Number) {
	s[QuatIdx], s[QuatIdx+1], s[QuatIdx+2], s[QuatIdx+3] = q.Real, q.Imag, q.Jmag, q.Kmag
}

func (s State) SetRotors(c Control) { copy(s[RotorIdx:RotorIdx+NumRotors], c[:]) }

// Control holds one value per rotor, ordered 1..4 around the airframe.
type Control [NumRotors]float64

// Wrench is a collective thrust (N) and a body-frame torque (N·m).
type Wrench struct {
	Thrust float64
	Torque r3.Vec
}

// Vector flattens w to [T, τx, τy, τz].
func (w Wrench) Vector() [4]float64 {
	return [4]float64{w.Thrust, w.Torque.X, w.Torque.Y, w.Torque.Z}
}

// Reference is the desired motion at one instant.
type Reference struct {
	Position     r3.Vec
	Velocity     r3.Vec
	Acceleration r3.Vec
	Yaw          float64
}

// ReferenceFunc evaluates a trajectory at time t. It must be pure.
type ReferenceFunc func(t float64) Reference

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// Controller computes a wrench from a state snapshot. Implementations must
// not retain or mutate x. Reset clears any accumulated run state.
type Controller interface {
	Compute(x State, ref Reference, dt float64) Wrench
	Reset()
}

// Sample is one logged row of a run.
type Sample struct {
	Time     float64
	State    State
	Wrench   Wrench
	Rotors   Control
	Commands Control
	Ref      Reference
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Sample)
}

type Config struct {
	Dt       float64
	Duration float64
	Seed     int64
}

func DefaultConfig() Config {
	return Config{
		Dt:       0.01,
		Duration: 10.0,
	}
}

// Validate rejects non-positive steps and horizons.
func (c Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidConfig, c.Duration)
	}
	return nil
}

// Steps is the number of logged samples, floor(Duration/Dt) + 1. The
// quotient gets 1e-9 of slack so 0.3/0.1 counts as 3 whole steps.
func (c Config) Steps() int {
	return int(math.Floor(c.Duration/c.Dt+1e-9)) + 1
}
