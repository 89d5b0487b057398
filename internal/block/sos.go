package block

import "math"

// SOS is a second-order low-pass section:
//
//	H(jw) = K*wn^2 / ((jw)^2 + 2*zeta*wn*jw + wn^2),  wn = 2*pi*fn
//
// fn is the natural frequency in Hz, zeta the damping ratio. zeta = 0 puts
// an undamped pole pair exactly on the jw axis; evaluating at w = wn then
// collides with the pole and the point is reported as singular.
type SOS struct{}

func (SOS) Type() string { return "sos" }

func (SOS) Schema() []ParamSpec {
	return []ParamSpec{
		{Name: "fn", Label: "fn", Default: 20.0, Min: 0.1, Max: 100.0, Scale: ScaleLog, Unit: "Hz"},
		{Name: "zeta", Label: "zeta", Default: 0.55, Min: 0.0, Max: 2.0, Scale: ScaleLinear},
		{Name: "K", Label: "K", Default: 1.0, Min: 0.1, Max: 10.0, Scale: ScaleLog},
	}
}

func (SOS) Response(w []float64, params map[string]float64) ([]complex128, error) {
	wn := 2 * math.Pi * params["fn"]
	zeta := params["zeta"]
	num := complex(params["K"]*wn*wn, 0)
	h := make([]complex128, len(w))
	var singular []int
	for i, wi := range w {
		den := complex(wn*wn-wi*wi, 2*zeta*wn*wi)
		if den == 0 {
			h[i] = complex(math.NaN(), math.NaN())
			singular = append(singular, i)
			continue
		}
		h[i] = num / den
	}
	if singular != nil {
		return h, &SingularityError{Type: "sos", Points: singular}
	}
	return h, nil
}
