package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/speclab/gospeccore/internal/processing"
	"github.com/speclab/gospeccore/pkg/config"
	"github.com/speclab/gospeccore/pkg/export"
	"github.com/speclab/gospeccore/pkg/history"
	"github.com/speclab/gospeccore/pkg/models"
	"github.com/speclab/gospeccore/pkg/plotting"
)

var (
	flagSample string
	flagWater  string
	flagDark   string

	flagOutCorr bool
	flagOutT    bool
	flagOutA    bool

	flagSmooth bool
	flagWindow int
	flagOrder  int

	flagOutput     string
	flagPlot       string
	flagSaveName   string
	flagHistoryDir string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Correct a sample scan against water and dark references",
	Long: `Align the water and dark reference scans onto the sample wavelength
grid, compute corrected intensity, transmittance and absorbance, optionally
smooth the selected columns, and write the result as CSV.

Examples:
  gospecsolver process --sample s.txt --water w.txt --dark d.txt
  gospecsolver process --sample s.txt --water w.txt --dark d.txt \
      --smooth --window 11 --order 3 --output result.csv --plot spectrum.svg
  gospecsolver process --sample s.txt --water w.txt --dark d.txt \
      --save run42 --history-dir ./spectra_history`,
	RunE: runProcess,
}

func init() {
	addScanFlags(processCmd)
	processCmd.Flags().StringVarP(&flagOutput, "output", "o", "-", "CSV output path ('-' for stdout)")
	processCmd.Flags().StringVar(&flagPlot, "plot", "", "Save an absorbance plot to this path (svg/png/pdf)")
	processCmd.Flags().StringVar(&flagSaveName, "save", "", "Save the result to history under this name")
	processCmd.Flags().StringVar(&flagHistoryDir, "history-dir", "./spectra_history", "History directory")
	rootCmd.AddCommand(processCmd)
}

// addScanFlags registers the flags shared by every command that runs the
// correction pipeline.
func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagSample, "sample", "", "Sample scan file (wavelength value per line)")
	cmd.Flags().StringVar(&flagWater, "water", "", "Water/blank reference scan file")
	cmd.Flags().StringVar(&flagDark, "dark", "", "Dark reference scan file")
	cmd.MarkFlagRequired("sample")
	cmd.MarkFlagRequired("water")
	cmd.MarkFlagRequired("dark")

	cmd.Flags().BoolVar(&flagOutCorr, "out-corr", true, "Output the corrected-intensity column")
	cmd.Flags().BoolVar(&flagOutT, "out-t", true, "Output the transmittance column")
	cmd.Flags().BoolVar(&flagOutA, "out-a", true, "Output the absorbance column")

	cmd.Flags().BoolVar(&flagSmooth, "smooth", false, "Smooth output columns with a local polynomial filter")
	cmd.Flags().IntVar(&flagWindow, "window", 11, "Smoothing window (forced odd, minimum 3)")
	cmd.Flags().IntVar(&flagOrder, "order", 3, "Smoothing polynomial order")
}

func optionsFromFlags() config.Options {
	opts := config.DefaultOptions()
	opts.OutCorrected = flagOutCorr
	opts.OutTransmittance = flagOutT
	opts.OutAbsorbance = flagOutA
	opts.SmoothEnabled = flagSmooth
	opts.SmoothWindow = flagWindow
	opts.SmoothOrder = flagOrder
	return opts
}

func readScans() (sample, water, dark models.SpectrumData, err error) {
	if sample, err = readSpectrumFile(flagSample); err != nil {
		return
	}
	if water, err = readSpectrumFile(flagWater); err != nil {
		return
	}
	dark, err = readSpectrumFile(flagDark)
	return
}

func writeCSVOutput(res models.ProcessResult, path string) error {
	if path == "" || path == "-" {
		return export.WriteCSV(os.Stdout, res)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.WriteCSV(f, res)
}

// resultToHistory flattens a processing result into the generic maps the
// history store persists.
func resultToHistory(res models.ProcessResult) (data, meta map[string]interface{}) {
	data = make(map[string]interface{}, len(res.Columns))
	for name, col := range res.Columns {
		data[name] = col
	}
	meta = map[string]interface{}{
		"columns":        res.Meta.Columns,
		"smooth_enabled": res.Meta.SmoothEnabled,
	}
	if res.Meta.SmoothEnabled {
		meta["smooth_window"] = res.Meta.SmoothWindow
		meta["smooth_order"] = res.Meta.SmoothOrder
	}
	return data, meta
}

func saveToHistory(res models.ProcessResult, name, dir string) error {
	store, err := history.Open(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	data, meta := resultToHistory(res)
	entry, err := store.Save(name, data, meta)
	if err != nil {
		return err
	}
	log.Printf("saved history entry %q at %s", entry.Name, entry.Timestamp)
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	sample, water, dark, err := readScans()
	if err != nil {
		return err
	}

	processor := processing.NewProcessor()
	res, err := processor.Process(sample, water, dark, optionsFromFlags())
	if err != nil {
		return err
	}

	if err := writeCSVOutput(res, flagOutput); err != nil {
		return err
	}

	if flagPlot != "" {
		lambda, abs, ok := processing.Absorbance(res)
		if !ok {
			return fmt.Errorf("no absorbance column to plot")
		}
		if err := plotting.SaveSpectrum(flagPlot, "Absorbance", lambda, abs); err != nil {
			return err
		}
		log.Printf("saved plot to %s", flagPlot)
	}

	if flagSaveName != "" {
		return saveToHistory(res, flagSaveName, flagHistoryDir)
	}
	return nil
}
