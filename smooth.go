package gospeccore

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// OddWindow returns the smoothing window actually used for a requested one:
// at least 3, incremented to the next odd value when even.
func OddWindow(window int) int {
	if window < 3 {
		window = 3
	}
	if window%2 == 0 {
		window++
	}
	return window
}

// PolySmooth applies a sliding-window local polynomial fit to y and returns
// the smoothed signal, always the same length as the input.
//
// For every index the window [i-half, i+half] is clipped to the array bounds
// (edge windows are smaller, never padded), local x-offsets are centered at
// zero, a polynomial of degree min(order, points-1) is fitted by least squares
// and evaluated at offset zero. Single-point windows, non-positive effective
// degree and singular local fits all fall back to the window mean.
func PolySmooth(y []float64, window, order int) []float64 {
	n := len(y)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	window = OddWindow(window)
	half := window / 2

	for i := 0; i < n; i++ {
		left := i - half
		if left < 0 {
			left = 0
		}
		right := i + half + 1
		if right > n {
			right = n
		}
		yi := y[left:right]

		deg := order
		if m := len(yi) - 1; deg > m {
			deg = m
		}
		if deg <= 0 {
			out[i] = floats.Sum(yi) / float64(len(yi))
			continue
		}

		v, ok := fitAtCenter(yi, left-i, deg)
		if !ok {
			v = floats.Sum(yi) / float64(len(yi))
		}
		out[i] = v
	}
	return out
}

// fitAtCenter fits a degree-deg polynomial to yi over integer x-offsets
// starting at x0 and evaluates it at offset zero. The second return is false
// when the local least-squares system cannot be solved.
func fitAtCenter(yi []float64, x0, deg int) (float64, bool) {
	rows := len(yi)
	cols := deg + 1

	vand := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		x := float64(x0 + r)
		p := 1.0
		for c := 0; c < cols; c++ {
			vand.Set(r, c, p)
			p *= x
		}
	}

	var coeffs mat.VecDense
	if err := coeffs.SolveVec(vand, mat.NewVecDense(rows, yi)); err != nil {
		return 0, false
	}
	// constant term is the fit evaluated at offset zero
	return coeffs.AtVec(0), true
}
