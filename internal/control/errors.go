package control

import "errors"

var (
	// ErrSingularMixer indicates rotor coefficients that make the mixing
	// matrix non-invertible.
	ErrSingularMixer = errors.New("control: singular mixing matrix")

	// ErrRiccatiNoConverge indicates a Riccati solve with no stabilizing
	// solution for the given weights.
	ErrRiccatiNoConverge = errors.New("control: riccati solve did not converge")

	// ErrInvalidWeights indicates R not positive definite or Q not
	// positive semidefinite.
	ErrInvalidWeights = errors.New("control: invalid LQR weights")

	ErrUnknownController = errors.New("control: unknown controller")
)
