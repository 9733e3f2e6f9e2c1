package processing

import (
	"fmt"
	"log"
	"time"

	"github.com/speclab/gospeccore"
	"github.com/speclab/gospeccore/pkg/config"
	"github.com/speclab/gospeccore/pkg/models"
)

// Processor runs the correction pipeline and the concentration estimators
// over raw scans. It is stateless; every call is a pure function of its
// inputs.
type Processor struct{}

// NewProcessor creates a new spectrum processor.
func NewProcessor() *Processor {
	return &Processor{}
}

func validateScan(name string, s models.SpectrumData) error {
	if err := (gospeccore.Spectrum{Wavelengths: s.Wavelengths, Values: s.Values}).Validate(); err != nil {
		return fmt.Errorf("%s scan: %w", name, err)
	}
	return nil
}

// Process aligns the water and dark references onto the sample grid, computes
// corrected intensity, transmittance and absorbance, optionally smooths the
// selected columns and assembles the export columns. The absorbance column is
// always produced, even when no output flag is set.
func (p *Processor) Process(sample, water, dark models.SpectrumData, opts config.Options) (models.ProcessResult, error) {
	start := time.Now()

	for _, scan := range []struct {
		name string
		data models.SpectrumData
	}{{"sample", sample}, {"water", water}, {"dark", dark}} {
		if err := validateScan(scan.name, scan.data); err != nil {
			return models.ProcessResult{}, err
		}
	}

	waterOnGrid, err := gospeccore.Interpolate(water.Wavelengths, water.Values, sample.Wavelengths)
	if err != nil {
		return models.ProcessResult{}, err
	}
	darkOnGrid, err := gospeccore.Interpolate(dark.Wavelengths, dark.Values, sample.Wavelengths)
	if err != nil {
		return models.ProcessResult{}, err
	}

	corr, err := gospeccore.ComputeCorrected(sample.Values, waterOnGrid, darkOnGrid, opts.Eps)
	if err != nil {
		return models.ProcessResult{}, err
	}

	meta := models.ProcessMeta{SmoothEnabled: opts.SmoothEnabled}
	if opts.SmoothEnabled {
		meta.SmoothWindow = gospeccore.OddWindow(opts.SmoothWindow)
		meta.SmoothOrder = opts.SmoothOrder
		if opts.OutCorrected {
			corr.ICorr = gospeccore.PolySmooth(corr.ICorr, opts.SmoothWindow, opts.SmoothOrder)
		}
		if opts.OutTransmittance {
			corr.T = gospeccore.PolySmooth(corr.T, opts.SmoothWindow, opts.SmoothOrder)
		}
		if opts.OutAbsorbance {
			corr.A = gospeccore.PolySmooth(corr.A, opts.SmoothWindow, opts.SmoothOrder)
		}
	}

	res := models.ProcessResult{
		Columns: map[string][]float64{models.ColumnLambda: sample.Wavelengths},
		Order:   []string{models.ColumnLambda},
	}
	addColumn := func(name string, vals []float64) {
		res.Columns[name] = vals
		res.Order = append(res.Order, name)
		meta.Columns = append(meta.Columns, name)
	}
	if opts.OutCorrected {
		addColumn(models.ColumnCorrected, corr.ICorr)
	}
	if opts.OutTransmittance {
		addColumn(models.ColumnTransmittance, corr.T)
	}
	if opts.OutAbsorbance {
		addColumn(models.ColumnAbsorbance, corr.A)
	}
	// absorbance is the minimum useful output
	if len(meta.Columns) == 0 {
		addColumn(models.ColumnAbsorbance, corr.A)
	}
	res.Meta = meta

	log.Printf("processed %d points in %v (columns: %v, smoothing: %v)",
		len(sample.Wavelengths), time.Since(start), meta.Columns, opts.SmoothEnabled)
	return res, nil
}

// Absorbance extracts the absorbance curve from a finished processing result.
func Absorbance(res models.ProcessResult) ([]float64, []float64, bool) {
	a, ok := res.Columns[models.ColumnAbsorbance]
	if !ok {
		return nil, nil, false
	}
	return res.Columns[models.ColumnLambda], a, true
}

// EstimateFullSpectrum regresses a sample absorbance spectrum against named
// standard spectra. Non-default solver modes refine the clipped NNLS solution
// without changing its non-negativity.
func (p *Processor) EstimateFullSpectrum(refs gospeccore.ReferenceMatrix, wavelengths, absorbance []float64, opts config.Options) (models.ConcentrationResult, error) {
	est, err := gospeccore.EstimateFullSpectrum(refs, wavelengths, absorbance)
	if err != nil {
		return models.ConcentrationResult{}, err
	}

	mode := gospeccore.ParseSolveMode(opts.SolverMode)
	if mode != gospeccore.ModeClip {
		refined, rerr := p.refineFullSpectrum(refs, wavelengths, absorbance, mode)
		if rerr != nil {
			log.Printf("estimate: %s refinement unavailable: %v", mode, rerr)
		} else {
			est = refined
		}
	}

	return models.ConcentrationResult{
		Components:  est.Components,
		Metrics:     est.Metrics,
		Diagnostics: est.Diagnostics,
	}, nil
}

func (p *Processor) refineFullSpectrum(refs gospeccore.ReferenceMatrix, wavelengths, absorbance []float64, mode gospeccore.SolveMode) (gospeccore.ConcentrationEstimate, error) {
	matrix, err := gospeccore.StackReferences(refs, len(absorbance))
	if err != nil {
		return gospeccore.ConcentrationEstimate{}, err
	}
	solver := gospeccore.NewSolver(matrix, absorbance)
	solver.Mode = mode

	fit, err := solver.Solve()
	if err != nil {
		return gospeccore.ConcentrationEstimate{}, err
	}
	return gospeccore.EstimateFromFitResult(refs.Names, wavelengths, absorbance, fit), nil
}

// EstimateCalibrated runs a feature-based calibration against a sample
// absorbance spectrum. Divisor curves are only needed for ratio-derivative
// calibrations.
func (p *Processor) EstimateCalibrated(cal gospeccore.FeatureCalibration, wavelengths, absorbance []float64, divisors map[string][]float64) (models.ConcentrationResult, error) {
	est, err := gospeccore.Estimate(cal, wavelengths, absorbance, divisors)
	if err != nil {
		return models.ConcentrationResult{}, err
	}
	return models.ConcentrationResult{
		Components:  est.Components,
		Metrics:     est.Metrics,
		Diagnostics: est.Diagnostics,
	}, nil
}

// ProcessorFunc adapts Process to the worker pool signature.
func (p *Processor) ProcessorFunc() func(sample, water, dark models.SpectrumData, opts config.Options) (models.ProcessResult, error) {
	return func(sample, water, dark models.SpectrumData, opts config.Options) (models.ProcessResult, error) {
		return p.Process(sample, water, dark, opts)
	}
}
