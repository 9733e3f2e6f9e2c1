package gospeccore

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// FeatureKind selects how a FeatureDef extracts its scalar from an
// absorbance spectrum.
type FeatureKind string

const (
	FeatureWavelengthPoint FeatureKind = "wavelength_point"
	FeaturePeakArea        FeatureKind = "peak_area_interval"
	FeatureRatioDerivative FeatureKind = "ratio_derivative_point"
	FeatureZeroCrossRatio  FeatureKind = "zero_cross_ratio_derivative_point"
)

// FeatureDef is one rule for extracting a scalar feature. WavelengthNM is
// used by the point and ratio kinds, Left/Right by the area kind, Divisor,
// Slope and Intercept by the two ratio-derivative kinds.
type FeatureDef struct {
	Kind         FeatureKind `json:"kind"`
	WavelengthNM float64     `json:"wavelength_nm,omitempty"`
	Left         float64     `json:"left_nm,omitempty"`
	Right        float64     `json:"right_nm,omitempty"`
	Divisor      string      `json:"divisor,omitempty"`
	Slope        float64     `json:"slope,omitempty"`
	Intercept    float64     `json:"intercept,omitempty"`
}

// FeatureCalibration maps extracted features to component concentrations via
// the linear system K*c = feature - rowsum(B). K is features x components,
// B is features x baseline-terms (may be empty).
type FeatureCalibration struct {
	ComponentNames []string     `json:"component_names"`
	Features       []FeatureDef `json:"features"`
	K              [][]float64  `json:"k"`
	B              [][]float64  `json:"b,omitempty"`
}

// ReferenceMatrix is a named set of standard absorbance spectra aligned to
// one common wavelength grid.
type ReferenceMatrix struct {
	Names   []string
	Spectra [][]float64
}

// ComponentResult is the estimated concentration of one named component and
// its share of the total, in percent.
type ComponentResult struct {
	Name          string  `json:"name"`
	Concentration float64 `json:"concentration"`
	Contribution  float64 `json:"contribution"`
}

// FitMetrics summarizes how well the model reproduced the observation.
type FitMetrics struct {
	RMSE         float64 `json:"rmse"`
	ResidualNorm float64 `json:"residual_norm"`
}

// Diagnostics carries the per-point comparison between the observation and
// the fitted model. For full-spectrum estimation Lambda is the sample grid;
// for feature calibrations it is the feature wavelengths.
type Diagnostics struct {
	Lambda   []float64 `json:"lambda"`
	Original []float64 `json:"original"`
	Fitted   []float64 `json:"fitted"`
	Residual []float64 `json:"residual"`
}

// ConcentrationEstimate is the full output of any estimator.
type ConcentrationEstimate struct {
	Components  []ComponentResult `json:"components"`
	Metrics     FitMetrics        `json:"metrics"`
	Diagnostics Diagnostics       `json:"diagnostics"`
}

func contributions(coeffs []float64) []float64 {
	out := make([]float64, len(coeffs))
	total := floats.Sum(coeffs)
	if total > 0 {
		for i, c := range coeffs {
			out[i] = c / total * 100
		}
	}
	return out
}

func componentResults(names []string, coeffs []float64) []ComponentResult {
	contrib := contributions(coeffs)
	out := make([]ComponentResult, len(names))
	for i, name := range names {
		out[i] = ComponentResult{Name: name, Concentration: coeffs[i], Contribution: contrib[i]}
	}
	return out
}

// StackReferences validates a reference set against the sample length and
// stacks the standard spectra into the regression matrix, one column per
// component.
func StackReferences(refs ReferenceMatrix, rows int) (*mat.Dense, error) {
	if len(refs.Names) == 0 {
		return nil, validationErrorf("referenceMatrix: empty reference set")
	}
	if len(refs.Names) != len(refs.Spectra) {
		return nil, validationErrorf("referenceMatrix: %d names but %d spectra",
			len(refs.Names), len(refs.Spectra))
	}
	seen := make(map[string]bool, len(refs.Names))
	for _, name := range refs.Names {
		if seen[name] {
			return nil, validationErrorf("referenceMatrix: duplicate reference name %q", name)
		}
		seen[name] = true
	}
	if rows == 0 {
		return nil, validationErrorf("referenceMatrix: empty sample absorbance")
	}

	a := mat.NewDense(rows, len(refs.Names), nil)
	for j, spec := range refs.Spectra {
		if len(spec) != rows {
			return nil, validationErrorf("referenceMatrix: reference %q has %d points, sample has %d",
				refs.Names[j], len(spec), rows)
		}
		for i, v := range spec {
			a.Set(i, j, v)
		}
	}
	return a, nil
}

// EstimateFullSpectrum estimates component concentrations by regressing the
// sample absorbance against the stacked standard spectra with the approximate
// non-negative least squares of SolveNNLS. The per-component concentration is
// the regression coefficient; the contribution is its share of the
// coefficient sum.
func EstimateFullSpectrum(refs ReferenceMatrix, wavelengths, absorbance []float64) (ConcentrationEstimate, error) {
	if len(wavelengths) != len(absorbance) {
		return ConcentrationEstimate{}, validationErrorf(
			"estimateFullSpectrum: wavelength/absorbance length mismatch: %d vs %d",
			len(wavelengths), len(absorbance))
	}
	a, err := StackReferences(refs, len(absorbance))
	if err != nil {
		return ConcentrationEstimate{}, err
	}

	fit, err := SolveNNLS(a, absorbance)
	if err != nil {
		return ConcentrationEstimate{}, err
	}
	return estimateFromFit(refs.Names, wavelengths, absorbance, fit), nil
}

// EstimateFromFitResult assembles a full estimate from an externally computed
// fit over the same stacked reference system, preserving the
// contribution-share rule.
func EstimateFromFitResult(names []string, lambda, original []float64, fit FitResult) ConcentrationEstimate {
	return estimateFromFit(names, lambda, original, fit)
}

func estimateFromFit(names []string, lambda, original []float64, fit FitResult) ConcentrationEstimate {
	resid := make([]float64, len(original))
	for i := range resid {
		resid[i] = original[i] - fit.Fitted[i]
	}
	return ConcentrationEstimate{
		Components: componentResults(names, fit.Coeffs),
		Metrics:    FitMetrics{RMSE: fit.RMSE, ResidualNorm: fit.ResidualNorm},
		Diagnostics: Diagnostics{
			Lambda:   lambda,
			Original: original,
			Fitted:   fit.Fitted,
			Residual: resid,
		},
	}
}

func (c FeatureCalibration) validateK() error {
	if len(c.ComponentNames) == 0 {
		return validationErrorf("calibration: no component names")
	}
	if len(c.Features) == 0 {
		return validationErrorf("calibration: no feature definitions")
	}
	if len(c.K) != len(c.Features) {
		return validationErrorf("calibration: K has %d rows, expected %d (one per feature)",
			len(c.K), len(c.Features))
	}
	for i, row := range c.K {
		if len(row) != len(c.ComponentNames) {
			return validationErrorf("calibration: K row %d has %d columns, expected %d",
				i, len(row), len(c.ComponentNames))
		}
	}
	if len(c.B) != 0 && len(c.B) != len(c.Features) {
		return validationErrorf("calibration: b has %d rows, expected %d or none",
			len(c.B), len(c.Features))
	}
	return nil
}

func (c FeatureCalibration) baselineRowSum(i int) float64 {
	if len(c.B) == 0 {
		return 0
	}
	return floats.Sum(c.B[i])
}

// featureValue extracts the scalar for one point or area feature definition.
func featureValue(def FeatureDef, wavelengths, absorbance []float64) (float64, error) {
	switch def.Kind {
	case FeatureWavelengthPoint:
		return InterpAbsorbance(wavelengths, absorbance, def.WavelengthNM)
	case FeaturePeakArea:
		return IntegrateTrapezoid(wavelengths, absorbance, def.Left, def.Right)
	}
	return 0, validationErrorf("calibration: feature kind %q is not solvable through K", def.Kind)
}

// estimateWithK extracts one scalar per feature definition, subtracts the
// per-row baseline sum and solves K*c = rhs, clipping negative
// concentrations to zero.
func estimateWithK(cal FeatureCalibration, wavelengths, absorbance []float64) (ConcentrationEstimate, error) {
	if err := cal.validateK(); err != nil {
		return ConcentrationEstimate{}, err
	}

	nf := len(cal.Features)
	rhs := make([]float64, nf)
	lambda := make([]float64, nf)
	for i, def := range cal.Features {
		v, err := featureValue(def, wavelengths, absorbance)
		if err != nil {
			return ConcentrationEstimate{}, err
		}
		rhs[i] = v - cal.baselineRowSum(i)
		if def.Kind == FeaturePeakArea {
			lambda[i] = (def.Left + def.Right) / 2
		} else {
			lambda[i] = def.WavelengthNM
		}
	}

	k := mat.NewDense(nf, len(cal.ComponentNames), nil)
	for i, row := range cal.K {
		for j, v := range row {
			k.Set(i, j, v)
		}
	}

	coeffs, err := SolveLstsq(k, rhs)
	if err != nil {
		return ConcentrationEstimate{}, err
	}
	for i, c := range coeffs {
		if c < 0 {
			coeffs[i] = 0
		}
	}
	return estimateFromFit(cal.ComponentNames, lambda, rhs, evaluateFit(k, rhs, coeffs)), nil
}

// EstimateLambdaEquations solves a point-feature calibration: one absorbance
// lookup per configured wavelength, baseline-corrected, against K.
func EstimateLambdaEquations(cal FeatureCalibration, wavelengths, absorbance []float64) (ConcentrationEstimate, error) {
	for i, def := range cal.Features {
		if def.Kind != FeatureWavelengthPoint {
			return ConcentrationEstimate{}, validationErrorf(
				"lambdaEquations: feature %d has kind %q, expected %q", i, def.Kind, FeatureWavelengthPoint)
		}
	}
	return estimateWithK(cal, wavelengths, absorbance)
}

// EstimatePeakAreas solves an area-feature calibration: one trapezoidal
// integral per configured interval, baseline-corrected, against K.
func EstimatePeakAreas(cal FeatureCalibration, wavelengths, absorbance []float64) (ConcentrationEstimate, error) {
	for i, def := range cal.Features {
		if def.Kind != FeaturePeakArea {
			return ConcentrationEstimate{}, validationErrorf(
				"peakAreas: feature %d has kind %q, expected %q", i, def.Kind, FeaturePeakArea)
		}
	}
	return estimateWithK(cal, wavelengths, absorbance)
}

// EstimateRatioDerivative applies per-component linear calibrations to
// ratio-derivative features. Each feature definition names the divisor
// reference curve its ratio is formed against; divisors supplies those curves
// on the sample grid. The zero-cross kind shares the computation, the chosen
// wavelength being the calibration's concern.
func EstimateRatioDerivative(cal FeatureCalibration, wavelengths, absorbance []float64, divisors map[string][]float64) (ConcentrationEstimate, error) {
	if len(cal.ComponentNames) == 0 {
		return ConcentrationEstimate{}, validationErrorf("ratioDerivative: no component names")
	}
	if len(cal.Features) != len(cal.ComponentNames) {
		return ConcentrationEstimate{}, validationErrorf(
			"ratioDerivative: %d features for %d components, expected one per component",
			len(cal.Features), len(cal.ComponentNames))
	}

	n := len(cal.ComponentNames)
	coeffs := make([]float64, n)
	lambda := make([]float64, n)
	original := make([]float64, n)
	fitted := make([]float64, n)
	resid := make([]float64, n)

	for i, def := range cal.Features {
		if def.Kind != FeatureRatioDerivative && def.Kind != FeatureZeroCrossRatio {
			return ConcentrationEstimate{}, validationErrorf(
				"ratioDerivative: feature %d has kind %q", i, def.Kind)
		}
		div, ok := divisors[def.Divisor]
		if !ok {
			return ConcentrationEstimate{}, validationErrorf(
				"ratioDerivative: no divisor spectrum %q supplied", def.Divisor)
		}
		if def.Slope == 0 {
			return ConcentrationEstimate{}, validationErrorf(
				"ratioDerivative: zero slope for component %q", cal.ComponentNames[i])
		}

		feat, err := RatioDerivativeFeature(wavelengths, absorbance, div, def.WavelengthNM)
		if err != nil {
			return ConcentrationEstimate{}, err
		}

		c := (feat - def.Intercept) / def.Slope
		if c < 0 {
			c = 0
		}
		coeffs[i] = c
		lambda[i] = def.WavelengthNM
		original[i] = feat
		fitted[i] = def.Slope*c + def.Intercept
		resid[i] = feat - fitted[i]
	}

	norm := floats.Norm(resid, 2)
	return ConcentrationEstimate{
		Components: componentResults(cal.ComponentNames, coeffs),
		Metrics: FitMetrics{
			RMSE:         math.Sqrt(norm * norm / float64(n)),
			ResidualNorm: norm,
		},
		Diagnostics: Diagnostics{Lambda: lambda, Original: original, Fitted: fitted, Residual: resid},
	}, nil
}

// Estimate dispatches a calibration to the matching estimator based on its
// feature kinds. Point and area features may be mixed and go through the
// K-solve together; ratio-derivative calibrations must be homogeneous.
func Estimate(cal FeatureCalibration, wavelengths, absorbance []float64, divisors map[string][]float64) (ConcentrationEstimate, error) {
	if len(cal.Features) == 0 {
		return ConcentrationEstimate{}, validationErrorf("estimate: no feature definitions")
	}
	ratio := 0
	for _, def := range cal.Features {
		switch def.Kind {
		case FeatureRatioDerivative, FeatureZeroCrossRatio:
			ratio++
		case FeatureWavelengthPoint, FeaturePeakArea:
		default:
			return ConcentrationEstimate{}, validationErrorf("estimate: unknown feature kind %q", def.Kind)
		}
	}
	if ratio == len(cal.Features) {
		return EstimateRatioDerivative(cal, wavelengths, absorbance, divisors)
	}
	if ratio > 0 {
		return ConcentrationEstimate{}, validationErrorf(
			"estimate: ratio-derivative features cannot be mixed with point/area features")
	}
	return estimateWithK(cal, wavelengths, absorbance)
}
