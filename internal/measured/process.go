package measured

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pkarhu/comptune/internal/block"
	"github.com/pkarhu/comptune/internal/bode"
)

// DisplayLimit caps how many points an undecimated display copy keeps.
const DisplayLimit = 4000

// Options control measured-data processing. SmoothWindow 0 disables
// smoothing; otherwise it must be odd and no longer than the sample set.
type Options struct {
	Unwrap       bool
	SmoothWindow int
}

// Data is one processed measurement set. Samples are sorted ascending by
// frequency; Hfinv is the elementwise inverse with |H| = 0 points set to
// NaN and listed in SingularInv.
type Data struct {
	Samples     []Sample
	FreqHz      []float64
	Hf          []complex128
	Hfinv       []complex128
	Fwd         bode.Curve
	Inv         bode.Curve
	SingularInv []int
}

// Process derives the forward and inverse display curves from raw
// samples. Zero-magnitude samples make the inverse singular at that point
// only: the point is flagged, an advisory singularity error is returned,
// and the rest of the set is processed normally. Callers that see a
// *block.SingularityError still get complete Data. Smoothing, when
// requested, applies to the phase curves only, after any unwrap.
func Process(samples []Sample, opts Options) (*Data, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrSchema)
	}

	sorted := make([]Sample, len(samples))
	copy(sorted, samples)
	// Stable: duplicate frequencies keep their input order.
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].FreqHz < sorted[j].FreqHz })

	n := len(sorted)
	freq := make([]float64, n)
	hf := make([]complex128, n)
	hinv := make([]complex128, n)
	var singular []int
	for i, s := range sorted {
		freq[i] = s.FreqHz
		hf[i] = s.H
		if s.H == 0 {
			hinv[i] = complex(math.NaN(), math.NaN())
			singular = append(singular, i)
			continue
		}
		hinv[i] = 1 / s.H
	}

	fwdPhase := bode.PhaseDeg(hf)
	invPhase := bode.PhaseDeg(hinv)
	if opts.Unwrap {
		fwdPhase = bode.UnwrapDeg(fwdPhase)
		invPhase = bode.UnwrapDeg(invPhase)
	}
	if opts.SmoothWindow != 0 {
		var err error
		if fwdPhase, err = Smooth(fwdPhase, opts.SmoothWindow); err != nil {
			return nil, err
		}
		if invPhase, err = Smooth(invPhase, opts.SmoothWindow); err != nil {
			return nil, err
		}
	}

	d := &Data{
		Samples:     sorted,
		FreqHz:      freq,
		Hf:          hf,
		Hfinv:       hinv,
		Fwd:         bode.Curve{FreqHz: freq, MagDB: bode.MagDB(hf), PhaseDeg: fwdPhase},
		Inv:         bode.Curve{FreqHz: freq, MagDB: bode.MagDB(hinv), PhaseDeg: invPhase},
		SingularInv: singular,
	}
	if singular != nil {
		return d, &block.SingularityError{Points: singular}
	}
	return d, nil
}

// Decimate resamples a curve onto a logarithmically spaced grid of at
// most bins points, purely for display. Aggregation per bin: frequency =
// arithmetic mean, magnitude = maximum (narrow resonance peaks survive),
// phase = arithmetic mean. Empty bins are dropped. The input curve is
// never mutated.
func Decimate(c bode.Curve, bins int) bode.Curve {
	n := len(c.FreqHz)
	if bins <= 0 || n <= bins {
		return c
	}
	fmin, fmax := c.FreqHz[0], c.FreqHz[n-1]
	if !(fmin > 0) || !(fmax > fmin) {
		return c
	}
	edges := make([]float64, bins+1)
	floats.LogSpan(edges, fmin, fmax)

	out := bode.Curve{}
	i := 0
	for k := 0; k < bins; k++ {
		hi := edges[k+1]
		j := i
		for j < n && (c.FreqHz[j] < hi || k == bins-1) {
			j++
		}
		if j == i {
			continue
		}
		out.FreqHz = append(out.FreqHz, stat.Mean(c.FreqHz[i:j], nil))
		out.MagDB = append(out.MagDB, floats.Max(c.MagDB[i:j]))
		out.PhaseDeg = append(out.PhaseDeg, stat.Mean(c.PhaseDeg[i:j], nil))
		i = j
	}
	return out
}

// Thin stride-samples a curve down to at most limit points (plus the kept
// final sample), preserving both endpoints.
func Thin(c bode.Curve, limit int) bode.Curve {
	n := len(c.FreqHz)
	if limit <= 0 || n <= limit {
		return c
	}
	stride := (n + limit - 1) / limit
	out := bode.Curve{}
	last := -1
	for i := 0; i < n; i += stride {
		out.FreqHz = append(out.FreqHz, c.FreqHz[i])
		out.MagDB = append(out.MagDB, c.MagDB[i])
		out.PhaseDeg = append(out.PhaseDeg, c.PhaseDeg[i])
		last = i
	}
	if last != n-1 {
		out.FreqHz = append(out.FreqHz, c.FreqHz[n-1])
		out.MagDB = append(out.MagDB, c.MagDB[n-1])
		out.PhaseDeg = append(out.PhaseDeg, c.PhaseDeg[n-1])
	}
	return out
}

// DisplayCurve prepares a curve for plotting per the configured bin
// count: log-grid decimation when bins > 0, otherwise the thinning cap.
func DisplayCurve(c bode.Curve, bins int) bode.Curve {
	if bins > 0 {
		return Decimate(c, bins)
	}
	return Thin(c, DisplayLimit)
}
