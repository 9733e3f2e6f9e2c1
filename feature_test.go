package gospeccore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrateTrapezoidRamp(t *testing.T) {
	// absorbance rises linearly from 0 at 400nm to 2 at 600nm; over
	// [450, 550] the values run 0.5 to 1.5, so the area is 1.0 * 100
	wl := []float64{400, 600}
	abs := []float64{0, 2}

	area, err := IntegrateTrapezoid(wl, abs, 450, 550)
	require.NoError(t, err)
	assert.InDelta(t, 100, area, 1e-9)
}

func TestIntegrateTrapezoidInteriorPoints(t *testing.T) {
	// same ramp with interior samples gives the same area
	wl := []float64{400, 450, 500, 550, 600}
	abs := []float64{0, 0.5, 1, 1.5, 2}

	area, err := IntegrateTrapezoid(wl, abs, 450, 550)
	require.NoError(t, err)
	assert.InDelta(t, 100, area, 1e-9)

	// off-node bounds interpolate the endpoints
	area, err = IntegrateTrapezoid(wl, abs, 425, 575)
	require.NoError(t, err)
	assert.InDelta(t, 150, area, 1e-9)
}

func TestIntegrateTrapezoidClipping(t *testing.T) {
	wl := []float64{400, 600}
	abs := []float64{0, 2}

	t.Run("interval outside domain", func(t *testing.T) {
		area, err := IntegrateTrapezoid(wl, abs, 700, 800)
		require.NoError(t, err)
		assert.Equal(t, 0.0, area)
	})

	t.Run("interval partially clipped", func(t *testing.T) {
		// [550, 700] clips to [550, 600]: values 1.5 to 2 over 50nm
		area, err := IntegrateTrapezoid(wl, abs, 550, 700)
		require.NoError(t, err)
		assert.InDelta(t, 87.5, area, 1e-9)
	})

	t.Run("degenerate interval", func(t *testing.T) {
		_, err := IntegrateTrapezoid(wl, abs, 550, 450)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		_, err = IntegrateTrapezoid(wl, abs, 500, 500)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})
}

func TestDerivativeCentralLinear(t *testing.T) {
	wl := []float64{400, 450, 500, 550, 600}
	vals := make([]float64, len(wl))
	for i, x := range wl {
		vals[i] = 3*x + 1
	}

	outWl, d, err := DerivativeCentral(wl, vals)
	require.NoError(t, err)
	assert.Equal(t, wl, outWl)
	for i := range d {
		assert.InDelta(t, 3, d[i], 1e-9, "index %d", i)
	}
}

func TestDerivativeCentralNonUniformGrid(t *testing.T) {
	// y = x^2 on an uneven grid: the central difference
	// (y[i+1]-y[i-1])/(x[i+1]-x[i-1]) equals x[i-1]+x[i+1] exactly
	wl := []float64{0, 1, 3, 4}
	vals := []float64{0, 1, 9, 16}

	_, d, err := DerivativeCentral(wl, vals)
	require.NoError(t, err)
	assert.InDelta(t, 1, d[0], 1e-12)  // one-sided: (1-0)/(1-0)
	assert.InDelta(t, 3, d[1], 1e-12)  // (9-0)/(3-0)
	assert.InDelta(t, 5, d[2], 1e-12)  // (16-1)/(4-1)
	assert.InDelta(t, 7, d[3], 1e-12)  // one-sided: (16-9)/(4-3)
}

func TestDerivativeCentralValidation(t *testing.T) {
	_, _, err := DerivativeCentral([]float64{500}, []float64{1})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestRatioDerivativeFeature(t *testing.T) {
	wl := []float64{400, 450, 500, 550, 600}

	t.Run("unit divisor recovers absorbance slope", func(t *testing.T) {
		abs := make([]float64, len(wl))
		div := make([]float64, len(wl))
		for i, x := range wl {
			abs[i] = 0.01 * x
			div[i] = 1
		}
		v, err := RatioDerivativeFeature(wl, abs, div, 500)
		require.NoError(t, err)
		assert.InDelta(t, 0.01, v, 1e-9)
	})

	t.Run("proportional curves give zero derivative", func(t *testing.T) {
		abs := []float64{0.2, 0.4, 0.6, 0.8, 1.0}
		div := []float64{0.1, 0.2, 0.3, 0.4, 0.5}
		v, err := RatioDerivativeFeature(wl, abs, div, 475)
		require.NoError(t, err)
		assert.InDelta(t, 0, v, 1e-9)
	})

	t.Run("divisor floored near zero", func(t *testing.T) {
		abs := []float64{1, 1, 1, 1, 1}
		div := []float64{0, 0, 0, 0, 0}
		v, err := RatioDerivativeFeature(wl, abs, div, 500)
		require.NoError(t, err)
		// ratio is the constant 1/eps, so its derivative is zero
		assert.InDelta(t, 0, v, 1e-9)
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := RatioDerivativeFeature(wl, []float64{1, 2, 3, 4, 5}, []float64{1, 2}, 500)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})
}
