package gospeccore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSolveLstsqSquareSystem(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	x, err := SolveLstsq(a, []float64{3, 4})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3, 4}, x, 1e-12)
}

func TestSolveLstsqOverdetermined(t *testing.T) {
	a := mat.NewDense(3, 1, []float64{1, 2, 3})
	x, err := SolveLstsq(a, []float64{2, 4, 6})
	require.NoError(t, err)
	require.Len(t, x, 1)
	assert.InDelta(t, 2, x[0], 1e-12)
}

func TestSolveLstsqMinimumNorm(t *testing.T) {
	// rank-deficient 1x2 system: the minimum-norm solution splits the
	// right-hand side evenly
	a := mat.NewDense(1, 2, []float64{1, 1})
	x, err := SolveLstsq(a, []float64{2})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 1}, x, 1e-12)
}

func TestSolveLstsqValidation(t *testing.T) {
	_, err := SolveLstsq(nil, []float64{1})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	_, err = SolveLstsq(mat.NewDense(2, 1, []float64{1, 2}), []float64{1})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestSolveNNLSExactSingleReference(t *testing.T) {
	ref := []float64{0.1, 0.5, 0.9, 0.4}
	a := mat.NewDense(len(ref), 1, append([]float64(nil), ref...))

	res, err := SolveNNLS(a, ref)
	require.NoError(t, err)
	require.Len(t, res.Coeffs, 1)
	assert.InDelta(t, 1, res.Coeffs[0], 1e-9)
	assert.InDelta(t, 0, res.RMSE, 1e-9)
	assert.InDelta(t, 0, res.ResidualNorm, 1e-9)
	assert.InDeltaSlice(t, ref, res.Fitted, 1e-9)
}

func TestSolveNNLSClipsNegatives(t *testing.T) {
	// unconstrained solution is [-1, 2]; the negative coefficient is
	// clipped and the metrics reflect the clipped fit
	a := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	res, err := SolveNNLS(a, []float64{-1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2}, res.Coeffs)
	assert.InDeltaSlice(t, []float64{0, 2}, res.Fitted, 1e-12)
	assert.InDelta(t, 1, res.ResidualNorm, 1e-12)
}

func TestSolveNNLSNonNegativeAlways(t *testing.T) {
	a := mat.NewDense(4, 2, []float64{
		1, 0.9,
		0.8, 1,
		0.2, 0.3,
		0.5, 0.1,
	})
	res, err := SolveNNLS(a, []float64{1, -2, 0.5, 3})
	require.NoError(t, err)
	for i, c := range res.Coeffs {
		assert.GreaterOrEqual(t, c, 0.0, "coefficient %d", i)
	}
}
