package block

// LeadLag is a first-order lead-lag link:
//
//	H(jw) = (a*T*jw + 1) / (T*jw + 1)
//
// with time constant T in seconds and lead ratio a. a > 1 adds phase lead
// around 1/(T*sqrt(a)); a < 1 lags.
type LeadLag struct{}

func (LeadLag) Type() string { return "leadlag" }

func (LeadLag) Schema() []ParamSpec {
	return []ParamSpec{
		{Name: "T", Label: "T", Default: 0.004, Min: 1e-4, Max: 1.0, Scale: ScaleLog, Unit: "s"},
		{Name: "a", Label: "a", Default: 1.7, Min: 0.1, Max: 10.0, Scale: ScaleLog},
	}
}

func (LeadLag) Response(w []float64, params map[string]float64) ([]complex128, error) {
	t := params["T"]
	a := params["a"]
	h := make([]complex128, len(w))
	for i, wi := range w {
		// T > 0 and w > 0, so the denominator never vanishes.
		h[i] = complex(1, a*t*wi) / complex(1, t*wi)
	}
	return h, nil
}
