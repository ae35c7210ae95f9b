package metrics

import (
	"math"

	"github.com/san-kum/quadsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

func positionError(s dynamo.Sample) float64 {
	return r3.Norm(r3.Sub(s.State.Position(), s.Ref.Position))
}

// PositionRMSE is sqrt(mean ‖p - p_ref‖²) over all samples.
type PositionRMSE struct {
	sumSq   float64
	samples int
}

func NewPositionRMSE() *PositionRMSE { return &PositionRMSE{} }

func (m *PositionRMSE) Name() string { return "rmse_pos" }

func (m *PositionRMSE) Observe(s dynamo.Sample) {
	e := positionError(s)
	m.sumSq += e * e
	m.samples++
}

func (m *PositionRMSE) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.sumSq / float64(m.samples))
}

func (m *PositionRMSE) Reset() {
	m.sumSq = 0
	m.samples = 0
}

type MaxPositionError struct {
	max float64
}

func NewMaxPositionError() *MaxPositionError { return &MaxPositionError{} }

func (m *MaxPositionError) Name() string { return "max_pos_err" }

func (m *MaxPositionError) Observe(s dynamo.Sample) {
	m.max = math.Max(m.max, positionError(s))
}

func (m *MaxPositionError) Value() float64 { return m.max }
func (m *MaxPositionError) Reset()         { m.max = 0 }

// FinalPositionError is the error at the last observed sample.
type FinalPositionError struct {
	last float64
}

func NewFinalPositionError() *FinalPositionError { return &FinalPositionError{} }

func (m *FinalPositionError) Name() string            { return "final_pos_err" }
func (m *FinalPositionError) Observe(s dynamo.Sample) { m.last = positionError(s) }
func (m *FinalPositionError) Value() float64          { return m.last }
func (m *FinalPositionError) Reset()                  { m.last = 0 }
