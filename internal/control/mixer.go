package control

import (
	"fmt"
	"math"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Mixer maps a wrench to rotor-speed commands through the inverse of the
// X-layout map from squared rotor speeds to [T, τx, τy, τz].
type Mixer struct {
	forward  *mat.Dense
	inverse  *mat.Dense
	omegaMin float64
	omegaMax float64
}

func NewMixer(rotor config.Rotor, limits config.Limits) (*Mixer, error) {
	kf, km, arm := rotor.Kf, rotor.Km, rotor.Arm
	forward := mat.NewDense(4, 4, []float64{
		kf, kf, kf, kf,
		0, arm * kf, 0, -arm * kf,
		-arm * kf, 0, arm * kf, 0,
		km, -km, km, -km,
	})

	var inverse mat.Dense
	if err := inverse.Inverse(forward); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularMixer, err)
	}
	return &Mixer{
		forward:  forward,
		inverse:  &inverse,
		omegaMin: limits.OmegaMin,
		omegaMax: limits.OmegaMax,
	}, nil
}

// Allocate solves for squared rotor speeds, floors them at zero, takes the
// square root and only then clips to [omegaMin, omegaMax].
func (m *Mixer) Allocate(w dynamo.Wrench) dynamo.Control {
	u := w.Vector()
	var w2 mat.VecDense
	w2.MulVec(m.inverse, mat.NewVecDense(4, u[:]))

	var cmd dynamo.Control
	for i := range cmd {
		s := math.Sqrt(math.Max(w2.AtVec(i), 0))
		cmd[i] = math.Min(math.Max(s, m.omegaMin), m.omegaMax)
	}
	return cmd
}

// Forward applies the mixing matrix to rotor speeds. It agrees with
// physics.Quadrotor.WrenchFromRotorSpeeds for the same coefficients.
func (m *Mixer) Forward(omega dynamo.Control) dynamo.Wrench {
	sq := make([]float64, 4)
	for i, v := range omega {
		sq[i] = v * v
	}
	var u mat.VecDense
	u.MulVec(m.forward, mat.NewVecDense(4, sq))
	return dynamo.Wrench{
		Thrust: u.AtVec(0),
		Torque: r3Vec(u.AtVec(1), u.AtVec(2), u.AtVec(3)),
	}
}
