// Package grid constructs the frequency axes responses are evaluated on.
package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidRange is returned for non-positive bounds, inverted ranges, or
// too few points.
var ErrInvalidRange = errors.New("grid: invalid frequency range")

// Grid is an ordered axis of strictly positive frequencies, held in both
// Hz and rad/s so evaluation never re-derives the conversion.
type Grid struct {
	Hz    []float64
	Omega []float64
	Log   bool
}

// New builds an n-point grid spanning [minHz, maxHz], logarithmically or
// linearly spaced.
func New(minHz, maxHz float64, n int, logSpaced bool) (*Grid, error) {
	if !(minHz > 0) || !(maxHz > minHz) {
		return nil, fmt.Errorf("%w: [%g, %g] Hz", ErrInvalidRange, minHz, maxHz)
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: %d points", ErrInvalidRange, n)
	}
	hz := make([]float64, n)
	if logSpaced {
		floats.LogSpan(hz, minHz, maxHz)
	} else {
		floats.Span(hz, minHz, maxHz)
	}
	omega := make([]float64, n)
	for i, f := range hz {
		omega[i] = 2 * math.Pi * f
	}
	return &Grid{Hz: hz, Omega: omega, Log: logSpaced}, nil
}

// Len returns the number of grid points.
func (g *Grid) Len() int { return len(g.Hz) }
