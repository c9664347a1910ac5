package operation

import (
	"fmt"
	"sort"
)

// ConfigError indicates a deployment or configuration bug (malformed stored
// arguments, duplicate operation codes). It is never caused by user input.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("operation configuration error: %s", e.Reason)
}

// UnknownOperationError indicates that a stored configuration references an
// operation code with no registered handler: a deployed code path references
// a deleted operation. Fatal to the running operation, never shown verbatim
// to callers.
type UnknownOperationError struct {
	Code string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unrecognized operation %q: no handler registered", e.Code)
}

// Definition is implemented by concrete operation descriptors (promotion
// conditions, promotion actions, shipping checkers and calculators).
type Definition interface {
	OpCode() string
	ArgSpecs() []ArgSpec
}

// Registry is a typed, immutable mapping from operation code to descriptor.
// Registries are built once at startup and injected where needed; operations
// are never discovered lazily from ambient state.
type Registry[D Definition] struct {
	byCode map[string]D
}

// NewRegistry builds a registry from the given definitions. A duplicate code
// is a configuration error.
func NewRegistry[D Definition](defs ...D) (*Registry[D], error) {
	byCode := make(map[string]D, len(defs))
	for _, def := range defs {
		code := def.OpCode()
		if _, exists := byCode[code]; exists {
			return nil, &ConfigError{Reason: fmt.Sprintf("duplicate operation code %q", code)}
		}
		byCode[code] = def
	}
	return &Registry[D]{byCode: byCode}, nil
}

// MustRegistry is NewRegistry that panics on error, for wiring built-in
// definitions whose codes are compile-time constants.
func MustRegistry[D Definition](defs ...D) *Registry[D] {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the definition for code, or an UnknownOperationError.
func (r *Registry[D]) Get(code string) (D, error) {
	def, ok := r.byCode[code]
	if !ok {
		var zero D
		return zero, &UnknownOperationError{Code: code}
	}
	return def, nil
}

// CoerceArgs resolves the definition for cfg.Code and coerces its stored
// arguments into a typed hash.
func (r *Registry[D]) CoerceArgs(cfg Configured) (D, Args, error) {
	def, err := r.Get(cfg.Code)
	if err != nil {
		var zero D
		return zero, nil, err
	}
	args, err := Coerce(def.ArgSpecs(), cfg.Args)
	if err != nil {
		var zero D
		return zero, nil, err
	}
	return def, args, nil
}

// Codes returns all registered codes in sorted order.
func (r *Registry[D]) Codes() []string {
	codes := make([]string, 0, len(r.byCode))
	for code := range r.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
