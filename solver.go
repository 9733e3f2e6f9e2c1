package gospeccore

import (
	"log"
	"math"

	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// SolveMode selects the strategy used to fit reference coefficients.
type SolveMode string

const (
	// ModeClip is the approximate NNLS: unconstrained solve, negatives
	// clipped to zero. Default, and the parity baseline for the others.
	ModeClip SolveMode = "clip"
	// ModeNM refines the clipped solution with Nelder-Mead.
	ModeNM SolveMode = "nm"
	// ModeLBFGS refines with L-BFGS over finite-difference gradients.
	ModeLBFGS SolveMode = "lbfgs"
	// ModeLM refines with Levenberg-Marquardt on the residual vector.
	ModeLM SolveMode = "lm"
)

// ParseSolveMode maps a config string onto a SolveMode, defaulting to
// ModeClip for anything unknown.
func ParseSolveMode(s string) SolveMode {
	switch SolveMode(s) {
	case ModeNM, ModeLBFGS, ModeLM:
		return SolveMode(s)
	}
	return ModeClip
}

// Solver fits non-negative coefficients of the reference matrix columns to a
// sample vector. All refinement modes enforce non-negativity through the
// substitution c = z*z and are seeded from the clipped solution; when a
// refinement fails or does not improve the residual, the clipped solution is
// returned unchanged.
type Solver struct {
	Matrix *mat.Dense
	Sample []float64
	Mode   SolveMode
}

// NewSolver builds a solver over an already-validated system.
func NewSolver(matrix *mat.Dense, sample []float64) *Solver {
	return &Solver{Matrix: matrix, Sample: sample, Mode: ModeClip}
}

// Solve runs the configured strategy.
func (s *Solver) Solve() (FitResult, error) {
	base, err := SolveNNLS(s.Matrix, s.Sample)
	if err != nil {
		return FitResult{}, err
	}
	if s.Mode == ModeClip || s.Mode == "" {
		return base, nil
	}

	var refined FitResult
	switch s.Mode {
	case ModeNM:
		refined = s.refineGonum(base, &optimize.NelderMead{}, false)
	case ModeLBFGS:
		refined = s.refineGonum(base, &optimize.LBFGS{}, true)
	case ModeLM:
		refined = s.refineLM(base)
	default:
		log.Printf("solver: unknown mode %q, keeping clipped solution", s.Mode)
		return base, nil
	}

	if refined.ResidualNorm < base.ResidualNorm {
		return refined, nil
	}
	return base, nil
}

func (s *Solver) seed(base FitResult) []float64 {
	z := make([]float64, len(base.Coeffs))
	for i, c := range base.Coeffs {
		if c < 1e-12 {
			c = 1e-12
		}
		z[i] = math.Sqrt(c)
	}
	return z
}

func squared(z []float64) []float64 {
	c := make([]float64, len(z))
	for i, v := range z {
		c[i] = v * v
	}
	return c
}

// objective is the squared residual norm of the non-negative fit at z.
func (s *Solver) objective(z []float64) float64 {
	fit := evaluateFit(s.Matrix, s.Sample, squared(z))
	return fit.ResidualNorm * fit.ResidualNorm
}

func (s *Solver) refineGonum(base FitResult, method optimize.Method, withGrad bool) FitResult {
	problem := optimize.Problem{Func: s.objective}
	if withGrad {
		problem.Grad = func(grad, z []float64) {
			fd.Gradient(grad, s.objective, z, nil)
		}
	}

	res, err := optimize.Minimize(problem, s.seed(base), nil, method)
	if err != nil {
		log.Printf("solver: %s refinement failed: %v", s.Mode, err)
		return base
	}
	return evaluateFit(s.Matrix, s.Sample, squared(res.X))
}

func (s *Solver) refineLM(base FitResult) (out FitResult) {
	out = base

	residFunc := func(dst, z []float64) {
		fit := evaluateFit(s.Matrix, s.Sample, squared(z))
		for i := range dst {
			dst[i] = s.Sample[i] - fit.Fitted[i]
		}
	}
	jac := lm.NumJac{Func: residFunc}

	problem := lm.LMProblem{
		Dim:        len(base.Coeffs),
		Size:       len(s.Sample),
		Func:       residFunc,
		Jac:        jac.Jac,
		InitParams: s.seed(base),
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	// lm panics on singular internal systems; keep the clipped solution.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("solver: lm refinement panicked: %v", r)
			out = base
		}
	}()

	res, err := lm.LM(problem, &lm.Settings{Iterations: 200, ObjectiveTol: 1e-16})
	if err != nil {
		log.Printf("solver: lm refinement failed: %v", err)
		return base
	}
	return evaluateFit(s.Matrix, s.Sample, squared(res.X))
}
