package gospeccore

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// FitResult is the outcome of a least-squares solve against a sample vector.
type FitResult struct {
	Coeffs       []float64
	Fitted       []float64
	RMSE         float64
	ResidualNorm float64
}

func validateSystem(op string, a mat.Matrix, rhs []float64) (rows, cols int, err error) {
	if a == nil {
		return 0, 0, validationErrorf("%s: nil matrix", op)
	}
	rows, cols = a.Dims()
	if rows == 0 || cols == 0 {
		return 0, 0, validationErrorf("%s: empty matrix (%dx%d)", op, rows, cols)
	}
	if len(rhs) != rows {
		return 0, 0, validationErrorf("%s: rhs length %d does not match %d matrix rows",
			op, len(rhs), rows)
	}
	return rows, cols, nil
}

// SolveLstsq returns the least-squares solution of a*x = rhs. For
// rank-deficient systems the minimum-norm solution is returned, computed from
// the singular value decomposition with small singular values zeroed.
func SolveLstsq(a mat.Matrix, rhs []float64) ([]float64, error) {
	rows, cols, err := validateSystem("solveLstsq", a, rhs)
	if err != nil {
		return nil, err
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, validationErrorf("solveLstsq: SVD factorization failed for %dx%d matrix", rows, cols)
	}

	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// x = V * diag(1/s) * U^T * rhs, dropping singular values below the
	// numeric rank tolerance.
	tol := float64(max(rows, cols)) * s[0] * 2.220446049250313e-16
	k := len(s)

	ut := make([]float64, k)
	for j := 0; j < k; j++ {
		if s[j] <= tol || s[j] == 0 {
			continue
		}
		var dot float64
		for i := 0; i < rows; i++ {
			dot += u.At(i, j) * rhs[i]
		}
		ut[j] = dot / s[j]
	}

	x := make([]float64, cols)
	for i := 0; i < cols; i++ {
		var dot float64
		for j := 0; j < k; j++ {
			dot += v.At(i, j) * ut[j]
		}
		x[i] = dot
	}
	return x, nil
}

// SolveNNLS computes an approximate non-negative least-squares fit of the
// sample against the matrix columns: the unconstrained least-squares solution
// with every coefficient clipped to >= 0 afterwards. This is a deliberate
// post-hoc clip, not a constrained optimization; the fitted curve and the fit
// metrics are computed from the clipped coefficients.
func SolveNNLS(a mat.Matrix, sample []float64) (FitResult, error) {
	if _, _, err := validateSystem("solveNNLS", a, sample); err != nil {
		return FitResult{}, err
	}

	coeffs, err := SolveLstsq(a, sample)
	if err != nil {
		return FitResult{}, err
	}
	for i, c := range coeffs {
		if c < 0 {
			coeffs[i] = 0
		}
	}
	return evaluateFit(a, sample, coeffs), nil
}

// evaluateFit computes fitted = a*coeffs and the residual metrics against the
// sample.
func evaluateFit(a mat.Matrix, sample, coeffs []float64) FitResult {
	rows, cols := a.Dims()
	fitted := make([]float64, rows)
	for i := 0; i < rows; i++ {
		var acc float64
		for j := 0; j < cols; j++ {
			acc += a.At(i, j) * coeffs[j]
		}
		fitted[i] = acc
	}

	resid := make([]float64, rows)
	for i := range resid {
		resid[i] = sample[i] - fitted[i]
	}
	norm := floats.Norm(resid, 2)

	return FitResult{
		Coeffs:       coeffs,
		Fitted:       fitted,
		RMSE:         math.Sqrt(norm * norm / float64(rows)),
		ResidualNorm: norm,
	}
}
