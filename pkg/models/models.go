package models

import (
	"time"

	"github.com/speclab/gospeccore"
	"github.com/speclab/gospeccore/pkg/config"
)

// Column names of a processing result.
const (
	ColumnLambda        = "lambda"
	ColumnCorrected     = "I_corr"
	ColumnTransmittance = "T"
	ColumnAbsorbance    = "A"
)

// SpectrumData represents one raw scan as supplied by an external reader.
type SpectrumData struct {
	Wavelengths []float64 `json:"wavelengths"`
	Values      []float64 `json:"values"`
}

// ProcessMeta records which columns were produced and the smoothing
// parameters actually used (after odd-forcing).
type ProcessMeta struct {
	Columns       []string `json:"columns"`
	SmoothEnabled bool     `json:"smooth_enabled"`
	SmoothWindow  int      `json:"smooth_window,omitempty"`
	SmoothOrder   int      `json:"smooth_order,omitempty"`
}

// ProcessResult is the output of the correction pipeline: named columns over
// the sample wavelength grid plus metadata.
type ProcessResult struct {
	Columns map[string][]float64 `json:"data"`
	Order   []string             `json:"column_order"`
	Meta    ProcessMeta          `json:"meta"`
}

// ConcentrationResult wraps a concentration estimate for the boundary.
type ConcentrationResult struct {
	Components  []gospeccore.ComponentResult `json:"components"`
	Metrics     gospeccore.FitMetrics        `json:"metrics"`
	Diagnostics gospeccore.Diagnostics       `json:"diagnostics"`
}

// WorkItem is a single batch processing task.
type WorkItem struct {
	ID        int
	RequestID string
	Name      string
	Sample    SpectrumData
	Water     SpectrumData
	Dark      SpectrumData
	Options   config.Options
	StartTime time.Time
}

// WorkResult is the outcome of one batch task.
type WorkResult struct {
	ID             int
	RequestID      string
	Name           string
	Result         ProcessResult
	Err            error
	Success        bool
	ProcessingTime time.Duration
}

// SaveItem is an asynchronous persistence request for a finished result.
type SaveItem struct {
	Name   string
	Result ProcessResult
}
