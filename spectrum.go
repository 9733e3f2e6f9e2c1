package gospeccore

import (
	"sort"
)

// DefaultEps is the default floor for transmittance clipping and
// denominator correction.
const DefaultEps = 1e-6

// Spectrum is an ordered sequence of (wavelength, value) pairs.
type Spectrum struct {
	Wavelengths []float64
	Values      []float64
}

// Len returns the number of points in the spectrum.
func (s Spectrum) Len() int {
	return len(s.Wavelengths)
}

// Validate checks the equal-length invariant.
func (s Spectrum) Validate() error {
	if len(s.Wavelengths) == 0 {
		return validationErrorf("spectrum: no data points")
	}
	if len(s.Wavelengths) != len(s.Values) {
		return validationErrorf("spectrum: wavelength/value length mismatch: %d vs %d",
			len(s.Wavelengths), len(s.Values))
	}
	return nil
}

func isAscending(x []float64) bool {
	for i := 1; i < len(x); i++ {
		if x[i] < x[i-1] {
			return false
		}
	}
	return true
}

func isStrictlyDescending(x []float64) bool {
	for i := 1; i < len(x); i++ {
		if x[i] >= x[i-1] {
			return false
		}
	}
	return len(x) > 1
}

// EnsureSorted returns the spectrum in ascending wavelength order. A fully
// descending spectrum is reversed; anything else out of order is stably
// sorted by wavelength. Already-ascending input is returned as-is.
func EnsureSorted(wavelengths, values []float64) ([]float64, []float64, error) {
	if len(wavelengths) != len(values) {
		return nil, nil, validationErrorf("spectrum: wavelength/value length mismatch: %d vs %d",
			len(wavelengths), len(values))
	}
	if isAscending(wavelengths) {
		return wavelengths, values, nil
	}

	n := len(wavelengths)
	wl := make([]float64, n)
	vals := make([]float64, n)

	if isStrictlyDescending(wavelengths) {
		for i := 0; i < n; i++ {
			wl[i] = wavelengths[n-1-i]
			vals[i] = values[n-1-i]
		}
		return wl, vals, nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return wavelengths[idx[a]] < wavelengths[idx[b]]
	})
	for i, j := range idx {
		wl[i] = wavelengths[j]
		vals[i] = values[j]
	}
	return wl, vals, nil
}

// interpAt evaluates piecewise-linear interpolation at x over an ascending
// grid. Points outside the domain clamp to the nearest edge value.
func interpAt(xs, ys []float64, x float64) float64 {
	n := len(xs)
	if n == 1 {
		return ys[0]
	}
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	// first index with xs[i] > x; the containing segment is [i-1, i]
	i := sort.SearchFloat64s(xs, x)
	if i < n && xs[i] == x {
		return ys[i]
	}
	lo, hi := i-1, i
	dx := xs[hi] - xs[lo]
	if dx == 0 {
		return ys[hi]
	}
	t := (x - xs[lo]) / dx
	return ys[lo] + t*(ys[hi]-ys[lo])
}

// Interpolate resamples (xSrc, ySrc) onto xTgt with piecewise-linear
// interpolation. The source pairs are brought into ascending order first, so
// the result is invariant under any permutation of the input pairs. Targets
// outside the source domain clamp to the edge values.
func Interpolate(xSrc, ySrc, xTgt []float64) ([]float64, error) {
	xs, ys, err := EnsureSorted(xSrc, ySrc)
	if err != nil {
		return nil, err
	}
	if len(xs) == 0 {
		return nil, validationErrorf("interpolate: empty source spectrum")
	}
	out := make([]float64, len(xTgt))
	for i, x := range xTgt {
		out[i] = interpAt(xs, ys, x)
	}
	return out, nil
}

// InterpAbsorbance canonicalizes the curve and linearly interpolates the
// absorbance at a single wavelength.
func InterpAbsorbance(wavelengths, absorbance []float64, nm float64) (float64, error) {
	wl, abs, err := EnsureSorted(wavelengths, absorbance)
	if err != nil {
		return 0, err
	}
	if len(wl) == 0 {
		return 0, validationErrorf("interpAbsorbance: empty spectrum")
	}
	return interpAt(wl, abs, nm), nil
}
