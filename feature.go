package gospeccore

import (
	"math"
)

// IntegrateTrapezoid integrates the absorbance curve over [left, right] with
// the trapezoidal rule. The interval is clipped to the spectrum's own domain;
// a clipped interval that collapses to a point (or less) integrates to zero.
// The integrand is the piecewise-linear curve itself, so the endpoints are
// interpolated and every interior sample strictly inside the interval
// contributes a node.
func IntegrateTrapezoid(wavelengths, absorbance []float64, left, right float64) (float64, error) {
	if right <= left {
		return 0, validationErrorf("integrateTrapezoid: degenerate interval [%g, %g]", left, right)
	}
	wl, abs, err := EnsureSorted(wavelengths, absorbance)
	if err != nil {
		return 0, err
	}
	if len(wl) == 0 {
		return 0, validationErrorf("integrateTrapezoid: empty spectrum")
	}

	lo := math.Max(left, wl[0])
	hi := math.Min(right, wl[len(wl)-1])
	if hi <= lo {
		return 0, nil
	}

	xs := []float64{lo}
	ys := []float64{interpAt(wl, abs, lo)}
	for i, x := range wl {
		if x > lo && x < hi {
			xs = append(xs, x)
			ys = append(ys, abs[i])
		}
	}
	xs = append(xs, hi)
	ys = append(ys, interpAt(wl, abs, hi))

	var area float64
	for i := 1; i < len(xs); i++ {
		area += (ys[i] + ys[i-1]) / 2 * (xs[i] - xs[i-1])
	}
	return area, nil
}

// DerivativeCentral computes the gradient of values with respect to the
// wavelength grid: central differences over the possibly non-uniform spacing
// for interior points, one-sided differences at the edges. The curve is
// canonicalized to ascending order first; the returned wavelengths are the
// canonical grid the derivative refers to.
func DerivativeCentral(wavelengths, values []float64) ([]float64, []float64, error) {
	wl, vals, err := EnsureSorted(wavelengths, values)
	if err != nil {
		return nil, nil, err
	}
	n := len(wl)
	if n < 2 {
		return nil, nil, validationErrorf("derivativeCentral: need at least 2 points, got %d", n)
	}

	d := make([]float64, n)
	d[0] = diffQuot(vals[1]-vals[0], wl[1]-wl[0])
	for i := 1; i < n-1; i++ {
		d[i] = diffQuot(vals[i+1]-vals[i-1], wl[i+1]-wl[i-1])
	}
	d[n-1] = diffQuot(vals[n-1]-vals[n-2], wl[n-1]-wl[n-2])
	return wl, d, nil
}

func diffQuot(dy, dx float64) float64 {
	if dx == 0 {
		return 0
	}
	return dy / dx
}

// RatioDerivativeFeature extracts the central derivative of the elementwise
// ratio absorbance/divisor, evaluated at nm. Divisor values are floored at
// DefaultEps so zero crossings of the divisor curve cannot blow up the ratio.
func RatioDerivativeFeature(wavelengths, absorbance, divisorAbsorbance []float64, nm float64) (float64, error) {
	if len(divisorAbsorbance) != len(absorbance) {
		return 0, validationErrorf("ratioDerivativeFeature: divisor length %d does not match absorbance length %d",
			len(divisorAbsorbance), len(absorbance))
	}
	wl, abs, err := EnsureSorted(wavelengths, absorbance)
	if err != nil {
		return 0, err
	}
	_, div, err := EnsureSorted(wavelengths, divisorAbsorbance)
	if err != nil {
		return 0, err
	}

	ratio := make([]float64, len(abs))
	for i := range ratio {
		ratio[i] = abs[i] / math.Max(div[i], DefaultEps)
	}

	dwl, deriv, err := DerivativeCentral(wl, ratio)
	if err != nil {
		return 0, err
	}
	return interpAt(dwl, deriv, nm), nil
}
