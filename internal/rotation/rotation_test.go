package rotation

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-12

func axisAngle(axis r3.Vec, angle float64) quat.Number {
	u := r3.Unit(axis)
	s := math.Sin(angle / 2)
	return quat.Number{Real: math.Cos(angle / 2), Imag: s * u.X, Jmag: s * u.Y, Kmag: s * u.Z}
}

func maxAbsDiff(a, b Mat3) float64 {
	d := 0.0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			d = math.Max(d, math.Abs(a[i][j]-b[i][j]))
		}
	}
	return d
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   quat.Number
		want quat.Number
	}{
		{"zero", quat.Number{}, Identity},
		{"tiny", quat.Number{Real: 1e-13}, Identity},
		{"scaled identity", quat.Number{Real: 3}, Identity},
		{"axis", quat.Number{Imag: 2}, quat.Number{Imag: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if quat.Abs(quat.Sub(got, tt.want)) > tol {
				t.Errorf("Normalize(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestToRotationMatrixOrthonormal(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		q := quat.Number{
			Real: rng.NormFloat64(),
			Imag: rng.NormFloat64(),
			Jmag: rng.NormFloat64(),
			Kmag: rng.NormFloat64(),
		}
		if quat.Abs(q) <= degenerateNorm {
			continue
		}
		r := ToRotationMatrix(Normalize(q))
		if d := maxAbsDiff(r.T().Mul(r), Eye3); d > 1e-12 {
			t.Fatalf("RᵀR deviates from I by %e for q=%v", d, q)
		}
		if det := r.Det(); math.Abs(det-1) > 1e-12 {
			t.Fatalf("det(R) = %f for q=%v", det, q)
		}
	}
}

func TestFromRotationMatrixBranches(t *testing.T) {
	tests := []struct {
		name string
		q    quat.Number
		want shepperdCase
	}{
		{"trace positive", axisAngle(r3.Vec{X: 1, Y: 2, Z: 3}, 0.3), tracePositive},
		{"diag0 max", axisAngle(r3.Vec{X: 1}, 2.8), diag0Max},
		{"diag1 max", axisAngle(r3.Vec{Y: 1}, 2.8), diag1Max},
		{"diag2 max", axisAngle(r3.Vec{Z: 1}, 2.8), diag2Max},
		{"half turn x", axisAngle(r3.Vec{X: 1}, math.Pi), diag0Max},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ToRotationMatrix(tt.q)
			if got := selectCase(r); got != tt.want {
				t.Fatalf("selectCase = %v, want %v", got, tt.want)
			}
			back := ToRotationMatrix(FromRotationMatrix(r))
			if d := maxAbsDiff(back, r); d > 1e-12 {
				t.Errorf("round trip error %e", d)
			}
			if n := quat.Abs(FromRotationMatrix(r)); math.Abs(n-1) > tol {
				t.Errorf("quaternion norm %f", n)
			}
		})
	}
}

func TestFromRotationMatrixRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	seen := make(map[shepperdCase]bool)
	for i := 0; i < 500; i++ {
		axis := r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		r := ToRotationMatrix(axisAngle(axis, rng.Float64()*math.Pi))
		seen[selectCase(r)] = true
		back := ToRotationMatrix(FromRotationMatrix(r))
		if d := maxAbsDiff(back, r); d > 1e-10 {
			t.Fatalf("round trip error %e", d)
		}
	}
	if len(seen) != 4 {
		t.Errorf("random sample covered %d of 4 branches", len(seen))
	}
}

func TestAttitudeErrorZero(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		axis := r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		r := ToRotationMatrix(axisAngle(axis, rng.Float64()*math.Pi))
		if e := AttitudeError(r, r); r3.Norm(e) > tol {
			t.Fatalf("e_R(R, R) = %v", e)
		}
	}
}

func TestAttitudeErrorSmallAngle(t *testing.T) {
	// For a small roll about x the error is ≈ the angle on x.
	angle := 0.01
	r := ToRotationMatrix(axisAngle(r3.Vec{X: 1}, angle))
	e := AttitudeError(r, Eye3)
	if math.Abs(e.X-math.Sin(angle)) > 1e-12 || math.Abs(e.Y) > tol || math.Abs(e.Z) > tol {
		t.Errorf("unexpected error vector %v", e)
	}
}

func TestDerivativeMatchesOmegaMatrix(t *testing.T) {
	q := Normalize(quat.Number{Real: 0.9, Imag: 0.1, Jmag: -0.3, Kmag: 0.2})
	w := r3.Vec{X: 0.4, Y: -1.2, Z: 2.5}

	omega := [4][4]float64{
		{0, -w.X, -w.Y, -w.Z},
		{w.X, 0, w.Z, -w.Y},
		{w.Y, -w.Z, 0, w.X},
		{w.Z, w.Y, -w.X, 0},
	}
	qv := [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag}
	var want [4]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want[i] += 0.5 * omega[i][j] * qv[j]
		}
	}

	got := Derivative(q, w)
	gv := [4]float64{got.Real, got.Imag, got.Jmag, got.Kmag}
	for i := range want {
		if math.Abs(gv[i]-want[i]) > tol {
			t.Errorf("q̇[%d] = %f, want %f", i, gv[i], want[i])
		}
	}
}

func TestHatVee(t *testing.T) {
	v := r3.Vec{X: 1, Y: -2, Z: 3}
	u := r3.Vec{X: 0.5, Y: 4, Z: -1}

	if got, want := Hat(v).MulVec(u), r3.Cross(v, u); r3.Norm(r3.Sub(got, want)) > tol {
		t.Errorf("Hat(v)u = %v, want %v", got, want)
	}
	if got := Vee(Hat(v)); r3.Norm(r3.Sub(got, v)) > tol {
		t.Errorf("Vee(Hat(v)) = %v, want %v", got, v)
	}
}

func TestClampNorm(t *testing.T) {
	tests := []struct {
		name string
		in   r3.Vec
		max  float64
		want r3.Vec
	}{
		{"inside", r3.Vec{X: 0.3}, 1, r3.Vec{X: 0.3}},
		{"outside", r3.Vec{X: 3, Y: 4}, 1, r3.Vec{X: 0.6, Y: 0.8}},
		{"zero max degenerate", r3.Vec{}, 0, r3.Vec{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampNorm(tt.in, tt.max); r3.Norm(r3.Sub(got, tt.want)) > tol {
				t.Errorf("ClampNorm = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInverse(t *testing.T) {
	j := Diag(1.8e-5, 1.8e-5, 3.2e-5)
	inv, ok := j.Inverse()
	if !ok {
		t.Fatal("diagonal inertia reported singular")
	}
	if d := maxAbsDiff(j.Mul(inv), Eye3); d > 1e-9 {
		t.Errorf("J·J⁻¹ deviates from I by %e", d)
	}
	if _, ok := (Mat3{}).Inverse(); ok {
		t.Error("zero matrix reported invertible")
	}
}
