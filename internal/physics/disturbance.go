package physics

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/quadsim/internal/config"
	"gonum.org/v1/gonum/spatial/r3"
)

type channel struct {
	amp   r3.Vec
	freq  r3.Vec
	phase r3.Vec
	sigma float64
}

func (c channel) sample(t float64, rng *rand.Rand) r3.Vec {
	v := r3.Vec{
		X: c.amp.X * math.Sin(2*math.Pi*c.freq.X*t+c.phase.X),
		Y: c.amp.Y * math.Sin(2*math.Pi*c.freq.Y*t+c.phase.Y),
		Z: c.amp.Z * math.Sin(2*math.Pi*c.freq.Z*t+c.phase.Z),
	}
	v.X += c.sigma * rng.NormFloat64()
	v.Y += c.sigma * rng.NormFloat64()
	v.Z += c.sigma * rng.NormFloat64()
	return v
}

// Disturbance produces a world-frame force and a body-frame torque. At
// level 0 it returns zeros and never touches its generator, so the noise
// stream of levels 1 and 2 depends only on the seed and the call sequence.
type Disturbance struct {
	level  int
	force  channel
	torque channel
	seed   int64
	rng    *rand.Rand
}

func NewDisturbance(cfg config.Disturbance) (*Disturbance, error) {
	if cfg.Level < 0 || cfg.Level > config.NumLevels {
		return nil, fmt.Errorf("%w: disturbance level %d", config.ErrMalformed, cfg.Level)
	}
	d := &Disturbance{level: cfg.Level, seed: cfg.Seed}
	if cfg.Level > 0 {
		var err error
		if d.force, err = buildChannel("force", cfg.Level, cfg.ForceAmp, cfg.ForceFreqHz, cfg.ForcePhase, cfg.ForceSigma); err != nil {
			return nil, err
		}
		if d.torque, err = buildChannel("tau", cfg.Level, cfg.TauAmp, cfg.TauFreqHz, cfg.TauPhase, cfg.TauSigma); err != nil {
			return nil, err
		}
	}
	d.Reset(cfg.Seed)
	return d, nil
}

func buildChannel(name string, level int, amp [][]float64, freq, phase, sigma []float64) (channel, error) {
	idx := level - 1
	if len(amp) <= idx || len(sigma) <= idx {
		return channel{}, fmt.Errorf("%w: %s has no entry for level %d", config.ErrMalformed, name, level)
	}
	a, err := config.Vec3(name+"_amp", amp[idx])
	if err != nil {
		return channel{}, err
	}
	f, err := config.Vec3(name+"_freq_hz", freq)
	if err != nil {
		return channel{}, err
	}
	p, err := config.Vec3(name+"_phase", phase)
	if err != nil {
		return channel{}, err
	}
	return channel{amp: a, freq: f, phase: p, sigma: sigma[idx]}, nil
}

// Reset reseeds the noise generator.
func (d *Disturbance) Reset(seed int64) {
	d.seed = seed
	d.rng = rand.New(rand.NewSource(seed))
}

func (d *Disturbance) Level() int  { return d.level }
func (d *Disturbance) Seed() int64 { return d.seed }

// Sample returns (force_world, torque_body) at time t. Force noise is drawn
// before torque noise.
func (d *Disturbance) Sample(t float64) (r3.Vec, r3.Vec) {
	if d.level <= 0 {
		return r3.Vec{}, r3.Vec{}
	}
	f := d.force.sample(t, d.rng)
	tau := d.torque.sample(t, d.rng)
	return f, tau
}
