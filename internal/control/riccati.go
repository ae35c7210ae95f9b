package control

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	signMaxIter  = 100
	signTol      = 1e-10
	signStall    = 1e-6
	residualTol  = 1e-6
	psdTolerance = 1e-12
	refineIter   = 3
	refineTol    = 1e-13
)

// SolveCARE returns the stabilizing solution P of
//
//	AᵀP + PA − PBR⁻¹BᵀP + Q = 0
//
// using the matrix sign function of the Hamiltonian with determinant
// scaling, polished by Newton-Kleinman steps. R must be positive definite
// and Q positive semidefinite.
func SolveCARE(a, b, q, r mat.Matrix) (*mat.Dense, error) {
	n, nc := a.Dims()
	bn, m := b.Dims()
	if n != nc || bn != n {
		return nil, fmt.Errorf("%w: A is %dx%d, B is %dx%d", ErrInvalidWeights, n, nc, bn, m)
	}
	if qr, qc := q.Dims(); qr != n || qc != n {
		return nil, fmt.Errorf("%w: Q must be %dx%d", ErrInvalidWeights, n, n)
	}
	if rr, rc := r.Dims(); rr != m || rc != m {
		return nil, fmt.Errorf("%w: R must be %dx%d", ErrInvalidWeights, m, m)
	}

	chol, err := factorWeights(q, r)
	if err != nil {
		return nil, err
	}

	// G = B R⁻¹ Bᵀ
	var rinvBt, g mat.Dense
	if err := chol.SolveTo(&rinvBt, b.T()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWeights, err)
	}
	g.Mul(b, &rinvBt)

	h := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			h.Set(i, j, a.At(i, j))
			h.Set(i, n+j, -g.At(i, j))
			h.Set(n+i, j, -q.At(i, j))
			h.Set(n+i, n+j, -a.At(j, i))
		}
	}

	w, err := matrixSign(h)
	if err != nil {
		return nil, err
	}

	// The stable invariant subspace [I; P] satisfies (W + I)[I; P] = 0.
	lhs := mat.NewDense(2*n, n, nil)
	rhs := mat.NewDense(2*n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			eye := 0.0
			if i == j {
				eye = 1
			}
			lhs.Set(i, j, w.At(i, n+j))
			lhs.Set(n+i, j, w.At(n+i, n+j)+eye)
			rhs.Set(i, j, -(w.At(i, j) + eye))
			rhs.Set(n+i, j, -w.At(n+i, j))
		}
	}
	var p mat.Dense
	if err := p.Solve(lhs, rhs); err != nil && !usable(err) {
		return nil, fmt.Errorf("%w: %v", ErrRiccatiNoConverge, err)
	}
	sym := refine(a, q, &g, symmetrize(&p))

	if res := careResidual(a, q, &g, sym); res > residualTol {
		return nil, fmt.Errorf("%w: relative residual %.3g", ErrRiccatiNoConverge, res)
	}
	return sym, nil
}

// LQRGain solves the CARE and returns K = R⁻¹BᵀP.
func LQRGain(a, b, q, r mat.Matrix) (*mat.Dense, error) {
	p, err := SolveCARE(a, b, q, r)
	if err != nil {
		return nil, err
	}
	var chol mat.Cholesky
	if !chol.Factorize(toSym(r)) {
		return nil, fmt.Errorf("%w: R is not positive definite", ErrInvalidWeights)
	}
	var btp, k mat.Dense
	btp.Mul(b.T(), p)
	if err := chol.SolveTo(&k, &btp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWeights, err)
	}
	return &k, nil
}

func factorWeights(q, r mat.Matrix) (*mat.Cholesky, error) {
	var chol mat.Cholesky
	if !chol.Factorize(toSym(r)) {
		return nil, fmt.Errorf("%w: R is not positive definite", ErrInvalidWeights)
	}

	var eig mat.EigenSym
	if !eig.Factorize(toSym(q), false) {
		return nil, fmt.Errorf("%w: eigen decomposition of Q failed", ErrInvalidWeights)
	}
	vals := eig.Values(nil)
	scale := 1.0
	for _, v := range vals {
		scale = math.Max(scale, math.Abs(v))
	}
	for _, v := range vals {
		if v < -psdTolerance*scale {
			return nil, fmt.Errorf("%w: Q has negative eigenvalue %g", ErrInvalidWeights, v)
		}
	}
	return &chol, nil
}

// matrixSign iterates Z ← ½(cZ + (cZ)⁻¹) with c = |det Z|^(-1/N).
func matrixSign(h *mat.Dense) (*mat.Dense, error) {
	dim, _ := h.Dims()
	z := mat.DenseCopyOf(h)

	var lu mat.LU
	var inv, next mat.Dense
	prev := math.Inf(1)
	for iter := 0; iter < signMaxIter; iter++ {
		lu.Factorize(z)
		logDet, _ := lu.LogDet()
		if math.IsInf(logDet, 0) || math.IsNaN(logDet) {
			return nil, fmt.Errorf("%w: Hamiltonian has eigenvalues on the imaginary axis", ErrRiccatiNoConverge)
		}
		c := math.Exp(-logDet / float64(dim))

		if err := inv.Inverse(z); err != nil && !usable(err) {
			return nil, fmt.Errorf("%w: %v", ErrRiccatiNoConverge, err)
		}

		next.Scale(c, z)
		inv.Scale(1/c, &inv)
		next.Add(&next, &inv)
		next.Scale(0.5, &next)

		var diff mat.Dense
		diff.Sub(&next, z)
		delta := mat.Norm(&diff, 1) / mat.Norm(&next, 1)
		z.Copy(&next)
		// Past quadratic convergence the update stalls at round-off.
		if delta < signTol || (delta < signStall && delta >= prev) {
			return z, nil
		}
		prev = delta
	}
	return nil, fmt.Errorf("%w: sign iteration exceeded %d steps", ErrRiccatiNoConverge, signMaxIter)
}

// refine applies Newton-Kleinman steps P ← lyap(A − GP, Q + PGP) while
// the residual keeps dropping.
func refine(a, q mat.Matrix, g, p *mat.Dense) *mat.Dense {
	best := p
	bestRes := careResidual(a, q, g, p)
	for iter := 0; iter < refineIter && bestRes > refineTol; iter++ {
		next, err := newtonStep(a, q, g, best)
		if err != nil {
			break
		}
		res := careResidual(a, q, g, next)
		if !(res < bestRes) {
			break
		}
		best, bestRes = next, res
	}
	return best
}

// newtonStep solves A_kᵀX + XA_k = −(Q + PGP) with A_k = A − GP through
// its Kronecker form on column-major vec(X).
func newtonStep(a, q mat.Matrix, g, p *mat.Dense) (*mat.Dense, error) {
	n, _ := a.Dims()
	var gp, ak, pgp, qk mat.Dense
	gp.Mul(g, p)
	ak.Sub(a, &gp)
	pgp.Mul(p, &gp)
	qk.Add(q, &pgp)

	lhs := mat.NewDense(n*n, n*n, nil)
	rhs := mat.NewVecDense(n*n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			row := j*n + i
			for k := 0; k < n; k++ {
				lhs.Set(row, j*n+k, lhs.At(row, j*n+k)+ak.At(k, i))
				lhs.Set(row, k*n+i, lhs.At(row, k*n+i)+ak.At(k, j))
			}
			rhs.SetVec(row, -qk.At(i, j))
		}
	}

	var x mat.VecDense
	if err := x.SolveVec(lhs, rhs); err != nil && !usable(err) {
		return nil, err
	}
	out := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			out.Set(i, j, x.AtVec(j*n+i))
		}
	}
	return symmetrize(out), nil
}

// careResidual is ‖AᵀP + PA − PGP + Q‖ relative to the size of its terms.
func careResidual(a, q mat.Matrix, g *mat.Dense, p *mat.Dense) float64 {
	var atp, pa, pg, pgp, res mat.Dense
	atp.Mul(a.T(), p)
	pa.Mul(p, a)
	pg.Mul(p, g)
	pgp.Mul(&pg, p)

	res.Add(&atp, &pa)
	res.Sub(&res, &pgp)
	res.Add(&res, q)

	scale := mat.Norm(&atp, 2) + mat.Norm(&pa, 2) + mat.Norm(&pgp, 2) + mat.Norm(q, 2)
	if scale == 0 {
		return 0
	}
	return mat.Norm(&res, 2) / scale
}

// usable reports whether err is only an ill-conditioning warning, in which
// case gonum still fills the result.
func usable(err error) bool {
	var cond mat.Condition
	return errors.As(err, &cond) && !math.IsInf(float64(cond), 1)
}

func toSym(m mat.Matrix) *mat.SymDense {
	n, _ := m.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return s
}

func symmetrize(m *mat.Dense) *mat.Dense {
	n, _ := m.Dims()
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return out
}
