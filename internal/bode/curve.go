// Package bode turns complex frequency responses into display-ready
// magnitude and phase curves.
package bode

import (
	"math"
	"math/cmplx"
)

// magFloor keeps exact zeros out of the log: |H| is clamped here before
// conversion, bottoming curves out at -240 dB instead of -Inf.
const magFloor = 1e-12

// MagDB converts a complex response to magnitude in decibels. NaN points
// (flagged singularities) stay NaN.
func MagDB(h []complex128) []float64 {
	out := make([]float64, len(h))
	for i, v := range h {
		a := cmplx.Abs(v)
		if a < magFloor {
			a = magFloor
		}
		out[i] = 20 * math.Log10(a)
	}
	return out
}

// PhaseDeg returns the principal-value phase in degrees, in (-180, 180].
func PhaseDeg(h []complex128) []float64 {
	out := make([]float64, len(h))
	for i, v := range h {
		out[i] = cmplx.Phase(v) * 180 / math.Pi
	}
	return out
}

// UnwrapDeg removes artificial +-360 steps from a phase sequence: whenever
// consecutive valid samples differ by more than 180 degrees the tail is
// shifted by whole turns, so the result has no adjacent jump exceeding
// 180. NaN points are passed through and skipped by the continuity walk.
func UnwrapDeg(ph []float64) []float64 {
	out := make([]float64, len(ph))
	offset := 0.0
	prev := math.NaN()
	for i, p := range ph {
		if math.IsNaN(p) {
			out[i] = p
			continue
		}
		if !math.IsNaN(prev) {
			d := p + offset - prev
			for d > 180 {
				offset -= 360
				d -= 360
			}
			for d < -180 {
				offset += 360
				d += 360
			}
		}
		out[i] = p + offset
		prev = out[i]
	}
	return out
}

// Curve bundles the display arrays for one response over a frequency axis.
type Curve struct {
	FreqHz   []float64
	MagDB    []float64
	PhaseDeg []float64
}

// FromResponse derives an unwrapped curve from a complex response. The
// synthetic cascade response is continuous in frequency, so unwrapping its
// principal phase always yields the physically continuous curve.
func FromResponse(freqHz []float64, h []complex128) Curve {
	return Curve{
		FreqHz:   freqHz,
		MagDB:    MagDB(h),
		PhaseDeg: UnwrapDeg(PhaseDeg(h)),
	}
}
