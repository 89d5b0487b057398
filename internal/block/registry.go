package block

import "fmt"

// Registry maps block type names to their implementations. Registration
// order is preserved so listings stay stable. The tuning session is
// single-threaded, so the registry carries no locking.
type Registry struct {
	types map[string]Block
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]Block)}
}

// Register adds a block type. Registering a name twice fails with
// ErrDuplicateType.
func (r *Registry) Register(b Block) error {
	name := b.Type()
	if _, ok := r.types[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, name)
	}
	r.types[name] = b
	r.order = append(r.order, name)
	return nil
}

// MustRegister panics on registration failure. For init-time wiring of
// built-in types.
func (r *Registry) MustRegister(b Block) {
	if err := r.Register(b); err != nil {
		panic(err)
	}
}

// Lookup returns the block type registered under name.
func (r *Registry) Lookup(name string) (Block, bool) {
	b, ok := r.types[name]
	return b, ok
}

// Types lists registered type names in registration order.
func (r *Registry) Types() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Instantiate builds an enabled Instance of the named type with schema
// defaults merged under the supplied overrides. Validation is eager:
// unknown names or out-of-bound values fail here, not at evaluation.
func (r *Registry) Instantiate(name string, overrides map[string]float64) (*Instance, error) {
	b, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	params := Defaults(b)
	for k, v := range overrides {
		params[k] = v
	}
	if err := Validate(b, params); err != nil {
		return nil, err
	}
	return &Instance{Block: b, Params: params, Enabled: true}, nil
}

// Default is the package-level registry carrying the built-in block types.
var Default = NewRegistry()

// Register adds a block type to the default registry.
func Register(b Block) error { return Default.Register(b) }

// Instantiate builds an instance from the default registry.
func Instantiate(name string, overrides map[string]float64) (*Instance, error) {
	return Default.Instantiate(name, overrides)
}

// Types lists the default registry's type names.
func Types() []string { return Default.Types() }
