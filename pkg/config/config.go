package config

// Options bundles the processing configuration: output-column selection,
// smoothing parameters and the solver strategy. It is passed by value and
// never mutated by the engine; derive changed copies at the call site.
type Options struct {
	OutCorrected     bool
	OutTransmittance bool
	OutAbsorbance    bool

	SmoothEnabled bool
	SmoothWindow  int
	SmoothOrder   int

	// SolverMode selects the concentration solver strategy
	// (clip, nm, lbfgs, lm).
	SolverMode string

	// Eps floors the transmittance clip and denominator correction;
	// zero means the engine default.
	Eps float64
}

// DefaultOptions returns the configuration with sensible defaults: all
// columns selected, smoothing off with an 11/3 window/order, clipped NNLS.
func DefaultOptions() Options {
	return Options{
		OutCorrected:     true,
		OutTransmittance: true,
		OutAbsorbance:    true,
		SmoothWindow:     11,
		SmoothOrder:      3,
		SolverMode:       "clip",
	}
}
