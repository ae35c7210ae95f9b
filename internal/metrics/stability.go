package metrics

import (
	"math"

	"github.com/san-kum/quadsim/internal/dynamo"
	"gonum.org/v1/gonum/num/quat"
)

// Stability is the fraction of samples with a finite state whose position
// error stays within threshold. A blown-up run scores well below 1.
type Stability struct {
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{threshold: threshold}
}

func (s *Stability) Name() string {
	return "stability"
}

func (s *Stability) Observe(sample dynamo.Sample) {
	s.samples++
	if !sample.State.IsValid() || positionError(sample) > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// QuatNormDrift is the largest |‖q‖ - 1| seen across samples.
type QuatNormDrift struct {
	max float64
}

func NewQuatNormDrift() *QuatNormDrift { return &QuatNormDrift{} }

func (q *QuatNormDrift) Name() string { return "quat_norm_drift" }

func (q *QuatNormDrift) Observe(s dynamo.Sample) {
	d := math.Abs(quat.Abs(s.State.Attitude()) - 1)
	if math.IsNaN(d) {
		d = math.Inf(1)
	}
	q.max = math.Max(q.max, d)
}

func (q *QuatNormDrift) Value() float64 { return q.max }
func (q *QuatNormDrift) Reset()         { q.max = 0 }
