package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gospecsolver",
	Short: "Optical-absorption spectrum processing and concentration estimation",
	Long: `gospecsolver turns raw optical-absorption scans into calibrated
chemical-component concentrations.

A processing run takes three scans produced by an external reader (sample,
water/blank reference, dark reference) as two-column text files, aligns the
references onto the sample wavelength grid, computes corrected intensity,
transmittance and absorbance, and optionally smooths the output with a local
polynomial filter.

Concentrations are estimated either by full-spectrum regression against named
standard spectra, or through a feature calibration model (wavelength points,
peak areas, or ratio-derivative features).`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
