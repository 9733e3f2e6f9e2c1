// Package plotting renders spectra and fit diagnostics with gonum/plot.
package plotting

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/speclab/gospeccore"
)

func xyPoints(x, y []float64) plotter.XYs {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	return pts
}

func addLine(p *plot.Plot, name string, x, y []float64, c color.Color) error {
	line, err := plotter.NewLine(xyPoints(x, y))
	if err != nil {
		return fmt.Errorf("plotting: %s line: %w", name, err)
	}
	line.Color = c
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}

// SaveSpectrum renders an absorbance curve to the given path; the format
// follows the file extension (svg, png, pdf).
func SaveSpectrum(path, title string, wavelengths, absorbance []float64) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "wavelength [nm]"
	p.Y.Label.Text = "absorbance"

	if err := addLine(p, "A", wavelengths, absorbance, color.RGBA{B: 196, A: 255}); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

// SaveFit renders the measured spectrum, the fitted model and the residual
// from a concentration estimate's diagnostics.
func SaveFit(path, title string, d gospeccore.Diagnostics) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "wavelength [nm]"
	p.Y.Label.Text = "absorbance"

	if err := addLine(p, "measured", d.Lambda, d.Original, color.RGBA{B: 196, A: 255}); err != nil {
		return err
	}
	if err := addLine(p, "fitted", d.Lambda, d.Fitted, color.RGBA{R: 196, A: 255}); err != nil {
		return err
	}
	if err := addLine(p, "residual", d.Lambda, d.Residual, color.RGBA{R: 128, G: 128, B: 128, A: 255}); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
