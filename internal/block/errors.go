package block

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType is returned when a type name is not registered.
	ErrUnknownType = errors.New("block: unknown type")
	// ErrDuplicateType is returned when a type name is registered twice.
	ErrDuplicateType = errors.New("block: duplicate type")
	// ErrParamOutOfRange is returned for parameter values that violate
	// their schema bounds, and for parameter names a schema does not
	// declare.
	ErrParamOutOfRange = errors.New("block: parameter out of range")
	// ErrNumericSingularity flags frequency points where a response is
	// undefined. It is advisory: the rest of the evaluation is still
	// usable.
	ErrNumericSingularity = errors.New("block: numeric singularity")
)

// ParamRangeError reports which parameter of which block type failed
// validation, and against which bounds.
type ParamRangeError struct {
	Block string
	Param string
	Value float64
	Min   float64
	Max   float64
}

func (e *ParamRangeError) Error() string {
	return fmt.Sprintf("block %s: parameter %s=%g outside [%g, %g]", e.Block, e.Param, e.Value, e.Min, e.Max)
}

func (e *ParamRangeError) Unwrap() error { return ErrParamOutOfRange }

// SingularityError lists the indices into the evaluated frequency vector
// where the response is undefined. The corresponding output points are
// NaN; all other points are valid.
type SingularityError struct {
	Type   string
	Points []int
}

func (e *SingularityError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("numeric singularity at %d frequency point(s)", len(e.Points))
	}
	return fmt.Sprintf("%s: numeric singularity at %d frequency point(s)", e.Type, len(e.Points))
}

func (e *SingularityError) Unwrap() error { return ErrNumericSingularity }
