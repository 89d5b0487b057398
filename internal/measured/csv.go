// Package measured ingests and processes measured plant responses:
// CSV parsing, forward/inverse curves, phase unwrap, optional smoothing,
// and display decimation.
package measured

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"strconv"
	"strings"
)

var (
	// ErrSchema rejects input tables that don't match the accepted
	// layouts.
	ErrSchema = errors.New("measured: schema error")
	// ErrInvalidWindow rejects smoothing windows that are even, negative,
	// or longer than the sample set.
	ErrInvalidWindow = errors.New("measured: invalid smoothing window")
)

// Accepted CSV header schemas.
const (
	HeaderComplex  = "freq_hz,h_real,h_imag"
	HeaderMagPhase = "freq_hz,mag_db,phase_deg"
)

// Sample is one measured point of a transfer function.
type Sample struct {
	FreqHz float64
	H      complex128
}

// ReadCSV parses measured samples from one of the two accepted layouts.
// Header matching is case-insensitive and whitespace-tolerant; magnitude/
// phase rows are converted via H = 10^(mag_db/20) * e^(j*phase). Any
// malformed cell, wrong field count, non-finite value, or non-positive
// frequency fails with ErrSchema and no partial result.
func ReadCSV(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing header (want %q or %q)", ErrSchema, HeaderComplex, HeaderMagPhase)
	}
	cols := make([]string, len(header))
	for i, c := range header {
		cols[i] = strings.ToLower(strings.TrimSpace(c))
	}
	var magPhase bool
	switch strings.Join(cols, ",") {
	case HeaderComplex:
		magPhase = false
	case HeaderMagPhase:
		magPhase = true
	default:
		return nil, fmt.Errorf("%w: header %q (want %q or %q)",
			ErrSchema, strings.Join(header, ","), HeaderComplex, HeaderMagPhase)
	}

	var samples []Sample
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchema, err)
		}
		line++
		var vals [3]float64
		for i, cell := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %q is not numeric", ErrSchema, line, cell)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: line %d: non-finite value %q", ErrSchema, line, cell)
			}
			vals[i] = v
		}
		if !(vals[0] > 0) {
			return nil, fmt.Errorf("%w: line %d: frequency %g Hz must be strictly positive", ErrSchema, line, vals[0])
		}
		var h complex128
		if magPhase {
			h = cmplx.Rect(math.Pow(10, vals[1]/20), vals[2]*math.Pi/180)
		} else {
			h = complex(vals[1], vals[2])
		}
		samples = append(samples, Sample{FreqHz: vals[0], H: h})
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrSchema)
	}
	return samples, nil
}
