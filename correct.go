package gospeccore

import (
	"math"
)

// CorrectedSpectrum holds the dark-corrected intensity, transmittance and
// absorbance, aligned to the sample wavelength grid.
type CorrectedSpectrum struct {
	ICorr []float64
	T     []float64
	A     []float64
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

// clipUnit clips t into [eps, 1]. NaN and -Inf collapse to eps, +Inf to 1,
// so downstream -log10 always stays finite and non-negative.
func clipUnit(t, eps float64) float64 {
	if t > 1 {
		return 1
	}
	if t > eps { // false for NaN
		return t
	}
	return eps
}

// ComputeCorrected derives corrected intensity, transmittance and absorbance
// from a sample scan and water/dark references on the same grid.
//
// Denominators within eps of zero are pushed away from it by
// sign(denom)*eps + eps before dividing, so near-saturated and zero-baseline
// wavelengths cannot blow up the division. The transmittance is then clipped
// to [eps, 1], which keeps A = -log10(T) finite and non-negative for every
// input.
func ComputeCorrected(sample, water, dark []float64, eps float64) (CorrectedSpectrum, error) {
	if len(sample) == 0 {
		return CorrectedSpectrum{}, validationErrorf("computeCorrected: empty sample")
	}
	if len(water) != len(sample) || len(dark) != len(sample) {
		return CorrectedSpectrum{}, validationErrorf(
			"computeCorrected: length mismatch: sample=%d water=%d dark=%d",
			len(sample), len(water), len(dark))
	}
	if eps <= 0 {
		eps = DefaultEps
	}

	n := len(sample)
	out := CorrectedSpectrum{
		ICorr: make([]float64, n),
		T:     make([]float64, n),
		A:     make([]float64, n),
	}
	for i := 0; i < n; i++ {
		ic := sample[i] - dark[i]
		denom := water[i] - dark[i]
		if math.Abs(denom) < eps {
			denom = sign(denom)*eps + eps
		}
		t := clipUnit(ic/denom, eps)

		out.ICorr[i] = ic
		out.T[i] = t
		out.A[i] = -math.Log10(t)
	}
	return out, nil
}
