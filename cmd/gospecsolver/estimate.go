package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/speclab/gospeccore/internal/processing"
	"github.com/speclab/gospeccore/pkg/export"
	"github.com/speclab/gospeccore/pkg/models"
	"github.com/speclab/gospeccore/pkg/plotting"
)

var (
	flagRefsDir     string
	flagCalibration string
	flagDivisors    []string
	flagSolverMode  string
	flagEstOutput   string
	flagPlotFit     string
	flagJSON        bool
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate component concentrations from a sample scan",
	Long: `Run the correction pipeline and estimate chemical-component
concentrations from the resulting absorbance spectrum.

With --refs-dir every spectrum file in the directory is a named standard and
the sample is regressed against all of them (full-spectrum regression, with
non-negative coefficients). With --calibration a feature calibration model is
applied instead: wavelength-point or peak-area features solved through the
calibration matrix K, or per-component ratio-derivative calibrations, which
additionally need --divisor name=path reference curves.

Examples:
  gospecsolver estimate --sample s.txt --water w.txt --dark d.txt --refs-dir standards/
  gospecsolver estimate --sample s.txt --water w.txt --dark d.txt \
      --calibration cal.json --divisor waterbase=wb.txt`,
	RunE: runEstimate,
}

func init() {
	addScanFlags(estimateCmd)
	estimateCmd.Flags().StringVar(&flagRefsDir, "refs-dir", "", "Directory of named standard spectra")
	estimateCmd.Flags().StringVar(&flagCalibration, "calibration", "", "Feature calibration JSON file")
	estimateCmd.Flags().StringArrayVar(&flagDivisors, "divisor", nil, "Divisor spectrum as name=path (repeatable)")
	estimateCmd.Flags().StringVar(&flagSolverMode, "mode", "clip", "Solver mode: clip, nm, lbfgs, lm")
	estimateCmd.Flags().StringVarP(&flagEstOutput, "output", "o", "-", "CSV output path ('-' for stdout)")
	estimateCmd.Flags().StringVar(&flagPlotFit, "plot-fit", "", "Save a fit-diagnostics plot to this path")
	estimateCmd.Flags().BoolVar(&flagJSON, "json", false, "Emit the full result as JSON instead of CSV")
	rootCmd.AddCommand(estimateCmd)
}

func runEstimate(cmd *cobra.Command, args []string) error {
	if (flagRefsDir == "") == (flagCalibration == "") {
		return fmt.Errorf("exactly one of --refs-dir and --calibration is required")
	}

	sample, water, dark, err := readScans()
	if err != nil {
		return err
	}

	opts := optionsFromFlags()
	opts.OutAbsorbance = true // estimation always needs the absorbance curve
	opts.SolverMode = flagSolverMode

	processor := processing.NewProcessor()
	processed, err := processor.Process(sample, water, dark, opts)
	if err != nil {
		return err
	}
	lambda, absorbance, _ := processing.Absorbance(processed)

	var result models.ConcentrationResult
	if flagRefsDir != "" {
		refs, err := loadReferenceDir(flagRefsDir, lambda)
		if err != nil {
			return err
		}
		result, err = processor.EstimateFullSpectrum(refs, lambda, absorbance, opts)
		if err != nil {
			return err
		}
	} else {
		cal, err := loadCalibration(flagCalibration)
		if err != nil {
			return err
		}
		divisors, err := loadDivisors(flagDivisors, lambda)
		if err != nil {
			return err
		}
		result, err = processor.EstimateCalibrated(cal, lambda, absorbance, divisors)
		if err != nil {
			return err
		}
	}

	for _, c := range result.Components {
		log.Printf("%s: concentration=%.6g contribution=%.2f%%", c.Name, c.Concentration, c.Contribution)
	}
	log.Printf("fit: rmse=%.6g residual_norm=%.6g", result.Metrics.RMSE, result.Metrics.ResidualNorm)

	if flagPlotFit != "" {
		if err := plotting.SaveFit(flagPlotFit, "Fit diagnostics", result.Diagnostics); err != nil {
			return err
		}
		log.Printf("saved fit plot to %s", flagPlotFit)
	}

	return writeEstimateOutput(result, flagEstOutput)
}

func writeEstimateOutput(result models.ConcentrationResult, path string) error {
	out := os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if flagJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return export.WriteConcentrationCSV(out, result)
}
