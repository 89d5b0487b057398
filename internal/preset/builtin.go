package preset

import (
	"fmt"
	"sort"

	"github.com/pkarhu/comptune/internal/block"
)

type entry struct {
	typ    string
	params map[string]float64
}

var builtins = map[string][]entry{
	"default": {
		{"gain", map[string]float64{"K": 1}},
		{"leadlag", map[string]float64{"T": 0.004, "a": 1.7}},
		{"leadlag", map[string]float64{"T": 0.005, "a": 1.4}},
		{"sos", map[string]float64{"fn": 20, "zeta": 0.55, "K": 1}},
		{"sos", map[string]float64{"fn": 30, "zeta": 0.3, "K": 1}},
	},
	"unity": {
		{"gain", map[string]float64{"K": 1}},
	},
	"lead_pair": {
		{"leadlag", map[string]float64{"T": 0.01, "a": 3}},
		{"leadlag", map[string]float64{"T": 0.002, "a": 2}},
	},
	"notch_shape": {
		{"sos", map[string]float64{"fn": 15, "zeta": 0.2, "K": 1}},
		{"real_pole_zero", map[string]float64{"fz": 2, "fp": 20, "K": 1}},
	},
}

// Builtin instantiates the named starter cascade from reg.
func Builtin(name string, reg *block.Registry) ([]*block.Instance, error) {
	entries, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("preset: unknown builtin %q", name)
	}
	blocks := make([]*block.Instance, 0, len(entries))
	for _, e := range entries {
		in, err := reg.Instantiate(e.typ, e.params)
		if err != nil {
			return nil, fmt.Errorf("builtin %q: %w", name, err)
		}
		blocks = append(blocks, in)
	}
	return blocks, nil
}

// ListBuiltins returns the starter cascade names, sorted.
func ListBuiltins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
