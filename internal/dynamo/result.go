package dynamo

import "gonum.org/v1/gonum/spatial/r3"

// Result holds one row per simulation step, including the final sample.
type Result struct {
	Times         []float64
	States        []State
	Wrenches      []Wrench
	Rotors        []Control
	Commands      []Control
	RefPositions  []r3.Vec
	RefVelocities []r3.Vec
	Metrics       map[string]float64
	StepsTaken    int
}

// NewResult preallocates a result for n samples.
func NewResult(n int) *Result {
	return &Result{
		Times:         make([]float64, 0, n),
		States:        make([]State, 0, n),
		Wrenches:      make([]Wrench, 0, n),
		Rotors:        make([]Control, 0, n),
		Commands:      make([]Control, 0, n),
		RefPositions:  make([]r3.Vec, 0, n),
		RefVelocities: make([]r3.Vec, 0, n),
		Metrics:       make(map[string]float64),
	}
}

func (r *Result) Len() int { return len(r.Times) }

// Append records s. The state is stored as given; callers pass a copy.
func (r *Result) Append(s Sample) {
	r.Times = append(r.Times, s.Time)
	r.States = append(r.States, s.State)
	r.Wrenches = append(r.Wrenches, s.Wrench)
	r.Rotors = append(r.Rotors, s.Rotors)
	r.Commands = append(r.Commands, s.Commands)
	r.RefPositions = append(r.RefPositions, s.Ref.Position)
	r.RefVelocities = append(r.RefVelocities, s.Ref.Velocity)
}

// Sample rebuilds row k. Feed-forward acceleration and yaw are not logged.
func (r *Result) Sample(k int) Sample {
	return Sample{
		Time:     r.Times[k],
		State:    r.States[k],
		Wrench:   r.Wrenches[k],
		Rotors:   r.Rotors[k],
		Commands: r.Commands[k],
		Ref:      Reference{Position: r.RefPositions[k], Velocity: r.RefVelocities[k]},
	}
}
