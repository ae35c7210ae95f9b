package control

import (
	"fmt"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/rotation"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// LQR is the hierarchical regulator. Outer gains act on [e_p; e_v] and
// produce a commanded acceleration; inner gains act on [e_R; e_ω] and
// produce torque. Both are fixed at construction.
type LQR struct {
	outer *mat.Dense
	inner *mat.Dense

	mass, gravity float64
	yawTrack      bool
	yawDes        float64

	ki         float64
	integLimit float64
	integral   r3.Vec

	sat Saturation
}

func NewLQR(cfg *config.Config) (*LQR, error) {
	w := cfg.LQR
	outer, err := LQRGain(doubleIntegrator(), inputBlock(rotation.Eye3),
		diagWeights(w.QoPos, w.QoVel), diagWeights(w.RoAcc))
	if err != nil {
		return nil, fmt.Errorf("outer loop: %w", err)
	}

	j, err := config.Matrix3("quad.inertia", cfg.Quad.Inertia)
	if err != nil {
		return nil, err
	}
	jinv, ok := rotation.Mat3(j).Inverse()
	if !ok {
		return nil, fmt.Errorf("%w: singular inertia", config.ErrMalformed)
	}
	inner, err := LQRGain(doubleIntegrator(), inputBlock(jinv),
		diagWeights(w.QiR, w.QiW), diagWeights(w.RiTau))
	if err != nil {
		return nil, fmt.Errorf("inner loop: %w", err)
	}

	return &LQR{
		outer:      outer,
		inner:      inner,
		mass:       cfg.Quad.Mass,
		gravity:    cfg.Quad.Gravity,
		yawTrack:   w.YawTrack,
		yawDes:     w.YawDes,
		ki:         w.Ki,
		integLimit: w.IntegLimit,
		sat:        NewSaturation(cfg.Limits),
	}, nil
}

// Gains returns copies of the outer and inner 3x6 gain matrices.
func (l *LQR) Gains() (outer, inner *mat.Dense) {
	return mat.DenseCopyOf(l.outer), mat.DenseCopyOf(l.inner)
}

func (l *LQR) Compute(x dynamo.State, ref dynamo.Reference, dt float64) dynamo.Wrench {
	ep := r3.Sub(x.Position(), ref.Position)
	ev := r3.Sub(x.Velocity(), ref.Velocity)

	aCmd := r3.Sub(ref.Acceleration, applyGain(l.outer, ep, ev))
	if l.ki > 0 {
		l.integral = clampVec(r3.Add(l.integral, r3.Scale(dt, ep)), l.integLimit)
		aCmd = r3.Sub(aCmd, r3.Scale(l.ki, l.integral))
	}

	yaw := l.yawDes
	if l.yawTrack {
		yaw = ref.Yaw
	}
	eR, eW, thrust := attitudeErrors(x, aCmd, yaw, l.mass, l.gravity)
	tau := r3.Scale(-1, applyGain(l.inner, eR, eW))

	return l.sat.Apply(dynamo.Wrench{Thrust: thrust, Torque: tau})
}

// Reset clears the position integral. Without Ki the controller is stateless.
func (l *LQR) Reset() {
	l.integral = r3.Vec{}
}

// applyGain returns K·[a; b] for a 3x6 gain.
func applyGain(k *mat.Dense, a, b r3.Vec) r3.Vec {
	var out mat.VecDense
	out.MulVec(k, mat.NewVecDense(6, []float64{a.X, a.Y, a.Z, b.X, b.Y, b.Z}))
	return r3Vec(out.AtVec(0), out.AtVec(1), out.AtVec(2))
}

// doubleIntegrator is A = [0 I; 0 0] for a 3-axis position/velocity pair.
func doubleIntegrator() *mat.Dense {
	a := mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		a.Set(i, 3+i, 1)
	}
	return a
}

// inputBlock is B = [0; M].
func inputBlock(m rotation.Mat3) *mat.Dense {
	b := mat.NewDense(6, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			b.Set(3+i, j, m[i][j])
		}
	}
	return b
}

// diagWeights repeats each weight over three axes.
func diagWeights(w ...float64) *mat.Dense {
	n := 3 * len(w)
	d := mat.NewDense(n, n, nil)
	for k, v := range w {
		for i := 0; i < 3; i++ {
			d.Set(3*k+i, 3*k+i, v)
		}
	}
	return d
}
