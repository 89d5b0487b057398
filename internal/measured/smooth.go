package measured

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Smooth applies a Savitzky-Golay filter: each output sample is a
// least-squares local polynomial fit evaluated over a sliding window.
// Polynomial order is 3 for windows of 7 or more, else 2. Edge samples
// come from the boundary-window fits evaluated at their own positions.
// window must be odd and no longer than y.
func Smooth(y []float64, window int) ([]float64, error) {
	n := len(y)
	if window < 1 || window%2 == 0 || window > n {
		return nil, fmt.Errorf("%w: %d (want odd, 1..%d)", ErrInvalidWindow, window, n)
	}
	out := make([]float64, n)
	if window == 1 {
		copy(out, y)
		return out, nil
	}

	order := 3
	if window < 7 {
		order = 2
	}
	if order > window-1 {
		order = window - 1
	}
	s, err := smootherMatrix(window, order)
	if err != nil {
		return nil, err
	}

	h := window / 2
	apply := func(row, lo int) float64 {
		acc := 0.0
		for j := 0; j < window; j++ {
			acc += s.At(row, j) * y[lo+j]
		}
		return acc
	}
	for i := h; i < n-h; i++ {
		out[i] = apply(h, i-h)
	}
	for i := 0; i < h; i++ {
		out[i] = apply(i, 0)
		out[n-1-i] = apply(window-1-i, n-window)
	}
	return out, nil
}

// smootherMatrix builds S = A (A^T A)^-1 A^T for the Vandermonde matrix A
// of window positions -h..h and the given polynomial order. Row i of S
// holds the weights producing the fitted value at position i.
func smootherMatrix(window, order int) (*mat.Dense, error) {
	a := mat.NewDense(window, order+1, nil)
	h := window / 2
	for i := 0; i < window; i++ {
		x := float64(i - h)
		v := 1.0
		for j := 0; j <= order; j++ {
			a.Set(i, j, v)
			v *= x
		}
	}
	var ata mat.Dense
	ata.Mul(a.T(), a)
	var inv mat.Dense
	if err := inv.Inverse(&ata); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return nil, fmt.Errorf("measured: smoother design: %v", err)
		}
	}
	var pinv, s mat.Dense
	pinv.Mul(&inv, a.T())
	s.Mul(a, &pinv)
	return &s, nil
}
