package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/speclab/gospeccore/internal/processing"
	"github.com/speclab/gospeccore/internal/utils"
	"github.com/speclab/gospeccore/pkg/history"
	"github.com/speclab/gospeccore/pkg/models"
	"github.com/speclab/gospeccore/pkg/worker"
)

var (
	flagBatchDir string
	flagWorkers  int
	flagBatchCSV string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process a directory of sample scans against one reference pair",
	Long: `Process every spectrum file in a directory against a single
water/dark reference pair using a worker pool, saving each result to history
and optionally writing per-sample CSVs.

Example:
  gospecsolver batch --dir scans/ --water w.txt --dark d.txt --workers 8 \
      --history-dir ./spectra_history --csv-dir out/`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&flagBatchDir, "dir", "", "Directory of sample scans")
	batchCmd.MarkFlagRequired("dir")
	batchCmd.Flags().StringVar(&flagWater, "water", "", "Water/blank reference scan file")
	batchCmd.Flags().StringVar(&flagDark, "dark", "", "Dark reference scan file")
	batchCmd.MarkFlagRequired("water")
	batchCmd.MarkFlagRequired("dark")

	batchCmd.Flags().BoolVar(&flagSmooth, "smooth", false, "Smooth output columns")
	batchCmd.Flags().IntVar(&flagWindow, "window", 11, "Smoothing window")
	batchCmd.Flags().IntVar(&flagOrder, "order", 3, "Smoothing polynomial order")
	batchCmd.Flags().IntVar(&flagWorkers, "workers", 5, "Worker pool size")
	batchCmd.Flags().StringVar(&flagBatchCSV, "csv-dir", "", "Write one CSV per sample into this directory")
	batchCmd.Flags().StringVar(&flagHistoryDir, "history-dir", "./spectra_history", "History directory")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	water, err := readSpectrumFile(flagWater)
	if err != nil {
		return err
	}
	dark, err := readSpectrumFile(flagDark)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(flagBatchDir)
	if err != nil {
		return err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && spectrumExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no sample scans found in %s", flagBatchDir)
	}
	sort.Strings(files)

	samples := make([]models.SpectrumData, len(files))
	for i, file := range files {
		if samples[i], err = readSpectrumFile(filepath.Join(flagBatchDir, file)); err != nil {
			return err
		}
	}

	store, err := history.Open(flagHistoryDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if flagBatchCSV != "" {
		if err := os.MkdirAll(flagBatchCSV, 0o755); err != nil {
			return err
		}
	}

	processor := processing.NewProcessor()
	pool := worker.New(worker.Options{
		Workers:   flagWorkers,
		Processor: processor.ProcessorFunc(),
		Saver: func(item models.SaveItem) {
			data, meta := resultToHistory(item.Result)
			if _, err := store.Save(item.Name, data, meta); err != nil {
				log.Printf("batch: save %q failed: %v", item.Name, err)
			}
		},
	})
	defer pool.Shutdown()

	opts := optionsFromFlags()
	requestID := utils.GenerateID()
	// the pool's queues are bounded, so submission runs on its own
	// goroutine and this loop stays free to drain results; submitting
	// everything up front would deadlock on large directories
	go func() {
		for i, sample := range samples {
			pool.SubmitJob(models.WorkItem{
				ID:        i,
				RequestID: requestID,
				Name:      strings.TrimSuffix(files[i], filepath.Ext(files[i])),
				Sample:    sample,
				Water:     water,
				Dark:      dark,
				Options:   opts,
				StartTime: time.Now(),
			})
		}
	}()

	failed := 0
	for range files {
		res := pool.WaitResult()
		if !res.Success {
			failed++
			continue
		}
		pool.QueueSave(models.SaveItem{Name: res.Name, Result: res.Result})

		if flagBatchCSV != "" {
			path := filepath.Join(flagBatchCSV, res.Name+".csv")
			if err := writeCSVOutput(res.Result, path); err != nil {
				return err
			}
		}
		log.Printf("batch: %s done in %v", res.Name, res.ProcessingTime)
	}

	if failed > 0 {
		return fmt.Errorf("batch: %d of %d samples failed", failed, len(files))
	}
	log.Printf("batch: processed %d samples", len(files))
	return nil
}
