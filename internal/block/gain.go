package block

// Gain is a frequency-independent gain:
//
//	H(jw) = K
type Gain struct{}

func (Gain) Type() string { return "gain" }

func (Gain) Schema() []ParamSpec {
	return []ParamSpec{
		{Name: "K", Label: "K", Default: 1.0, Min: 0.01, Max: 100.0, Scale: ScaleLog},
	}
}

func (Gain) Response(w []float64, params map[string]float64) ([]complex128, error) {
	k := complex(params["K"], 0)
	h := make([]complex128, len(w))
	for i := range h {
		h[i] = k
	}
	return h, nil
}
