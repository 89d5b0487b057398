package block

import "math"

// RealPoleZero pairs one real zero with one real pole, unity-normalized:
//
//	H(jw) = K * (jw/wz + 1) / (jw/wp + 1),  wz = 2*pi*fz, wp = 2*pi*fp
//
// fz < fp lifts phase between the two corners; fz > fp drops it.
type RealPoleZero struct{}

func (RealPoleZero) Type() string { return "real_pole_zero" }

func (RealPoleZero) Schema() []ParamSpec {
	return []ParamSpec{
		{Name: "fz", Label: "f_z (Hz)", Default: 1.0, Min: 0.01, Max: 100.0, Scale: ScaleLog, Unit: "Hz"},
		{Name: "fp", Label: "f_p (Hz)", Default: 5.0, Min: 0.01, Max: 100.0, Scale: ScaleLog, Unit: "Hz"},
		{Name: "K", Label: "K", Default: 1.0, Min: 0.1, Max: 10.0, Scale: ScaleLog},
	}
}

func (RealPoleZero) Response(w []float64, params map[string]float64) ([]complex128, error) {
	wz := 2 * math.Pi * params["fz"]
	wp := 2 * math.Pi * params["fp"]
	k := params["K"]
	h := make([]complex128, len(w))
	for i, wi := range w {
		// fz and fp have positive lower bounds, so neither corner is at DC
		// and the denominator never vanishes for w > 0.
		h[i] = complex(k, 0) * complex(1, wi/wz) / complex(1, wi/wp)
	}
	return h, nil
}
