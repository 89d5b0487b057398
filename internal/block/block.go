// Package block defines the parametric transfer-function units a compensator
// cascade is built from, and the registry mapping type names to
// implementations.
package block

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Scale selects how a parameter is stepped when edited interactively.
type Scale int

const (
	ScaleLinear Scale = iota
	ScaleLog
)

func (s Scale) String() string {
	if s == ScaleLog {
		return "log"
	}
	return "linear"
}

// ParamSpec declares one named parameter of a block type. The order of
// ParamSpec entries in a schema is the canonical parameter order for
// display and serialization.
type ParamSpec struct {
	Name    string
	Label   string
	Default float64
	Min     float64
	Max     float64
	Scale   Scale
	Unit    string
}

// Block is a single parametric transfer-function unit. Response must be a
// pure function: no internal state, identical inputs yield identical
// outputs. Frequency parameters are given in Hz and converted to angular
// frequency inside the block; w is in rad/s.
type Block interface {
	Type() string
	Schema() []ParamSpec
	// Response evaluates H(jw) at every angular frequency in w. Points
	// where the response is undefined are returned as NaN and reported
	// through a *SingularityError; all other points remain valid.
	Response(w []float64, params map[string]float64) ([]complex128, error)
}

// Defaults builds the default parameter map for b's schema.
func Defaults(b Block) map[string]float64 {
	p := make(map[string]float64, len(b.Schema()))
	for _, ps := range b.Schema() {
		p[ps.Name] = ps.Default
	}
	return p
}

// CheckParam validates a single named value against b's schema. Unknown
// names and out-of-bound values both report ErrParamOutOfRange.
func CheckParam(b Block, name string, value float64) error {
	for _, ps := range b.Schema() {
		if ps.Name != name {
			continue
		}
		if math.IsNaN(value) || value < ps.Min || value > ps.Max {
			return &ParamRangeError{Block: b.Type(), Param: name, Value: value, Min: ps.Min, Max: ps.Max}
		}
		return nil
	}
	return fmt.Errorf("%w: %s has no parameter %q", ErrParamOutOfRange, b.Type(), name)
}

// Validate checks a full parameter map against b's schema: every key must
// be declared and every value must lie within its bounds.
func Validate(b Block, params map[string]float64) error {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := CheckParam(b, name, params[name]); err != nil {
			return err
		}
	}
	return nil
}

// Instance is a configured occurrence of a block type: the resolved Block,
// its current parameter values, and an enable flag.
type Instance struct {
	Block   Block
	Params  map[string]float64
	Enabled bool
}

// Type returns the instance's block type name.
func (in *Instance) Type() string { return in.Block.Type() }

// Response evaluates the instance at every angular frequency in w.
func (in *Instance) Response(w []float64) ([]complex128, error) {
	return in.Block.Response(w, in.Params)
}

// SetParam validates and stores one parameter value. On error the
// instance is unchanged.
func (in *Instance) SetParam(name string, value float64) error {
	if err := CheckParam(in.Block, name, value); err != nil {
		return err
	}
	in.Params[name] = value
	return nil
}

// Clone deep-copies the instance so snapshots never alias live state.
func (in *Instance) Clone() *Instance {
	p := make(map[string]float64, len(in.Params))
	for k, v := range in.Params {
		p[k] = v
	}
	return &Instance{Block: in.Block, Params: p, Enabled: in.Enabled}
}

// String renders the instance as e.g. "leadlag(T=0.004, a=1.7)[on]".
func (in *Instance) String() string {
	var sb strings.Builder
	sb.WriteString(in.Type())
	sb.WriteByte('(')
	for i, ps := range in.Block.Schema() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%.4g", ps.Name, in.Params[ps.Name])
	}
	sb.WriteByte(')')
	if in.Enabled {
		sb.WriteString("[on]")
	} else {
		sb.WriteString("[off]")
	}
	return sb.String()
}
