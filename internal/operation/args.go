// Package operation implements the configurable operation framework: named,
// pluggable units of business logic (promotion conditions and actions,
// shipping eligibility checkers and calculators) with declared, typed
// arguments. Argument values are stored as serialized strings and coerced to
// their declared types when an operation executes.
package operation

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ArgType enumerates the supported argument types.
type ArgType string

const (
	ArgString   ArgType = "string"
	ArgInt      ArgType = "int"
	ArgFloat    ArgType = "float"
	ArgBoolean  ArgType = "boolean"
	ArgDatetime ArgType = "datetime"
	ArgIDList   ArgType = "ID-list"
)

// ArgSpec declares a single argument of an operation: its name, type and the
// serialized default used when no stored value exists.
type ArgSpec struct {
	Name    string
	Type    ArgType
	Default string
}

// Arg is a stored, serialized argument value.
type Arg struct {
	Name  string
	Value string
}

// Configured pairs an operation code with its stored argument values. This is
// the shape persisted on promotions and shipping methods.
type Configured struct {
	Code string
	Args []Arg
}

// Args is the typed argument hash passed to an operation's execute function.
type Args map[string]any

// Str returns the named string argument, or "" if absent.
func (a Args) Str(name string) string {
	v, _ := a[name].(string)
	return v
}

// Int returns the named int argument, or 0 if absent.
func (a Args) Int(name string) int {
	v, _ := a[name].(int)
	return v
}

// Decimal returns the named float argument as an exact decimal, or zero.
// Float arguments are carried as decimals so percentage and rate math stays
// exact until the final rounding step.
func (a Args) Decimal(name string) decimal.Decimal {
	v, ok := a[name].(decimal.Decimal)
	if !ok {
		return decimal.Zero
	}
	return v
}

// Bool returns the named boolean argument, or false if absent.
func (a Args) Bool(name string) bool {
	v, _ := a[name].(bool)
	return v
}

// Time returns the named datetime argument, or the zero time if absent.
func (a Args) Time(name string) time.Time {
	v, _ := a[name].(time.Time)
	return v
}

// IDs returns the named ID-list argument, or nil if absent.
func (a Args) IDs(name string) []string {
	v, _ := a[name].([]string)
	return v
}

// Coerce converts stored argument values into a typed hash according to the
// declared specs. Declared arguments with no stored value take the spec
// default (or the type's zero value when the default is empty). Stored
// arguments not covered by a spec are ignored; a value that cannot be parsed
// as its declared type is a configuration error.
func Coerce(specs []ArgSpec, stored []Arg) (Args, error) {
	byName := make(map[string]string, len(stored))
	for _, arg := range stored {
		byName[arg.Name] = arg.Value
	}

	out := make(Args, len(specs))
	for _, spec := range specs {
		raw, ok := byName[spec.Name]
		if !ok || raw == "" {
			raw = spec.Default
		}
		v, err := coerceValue(spec.Type, raw)
		if err != nil {
			return nil, &ConfigError{
				Reason: errors.Wrapf(err, "argument %q", spec.Name).Error(),
			}
		}
		out[spec.Name] = v
	}
	return out, nil
}

func coerceValue(t ArgType, raw string) (any, error) {
	switch t {
	case ArgString:
		return raw, nil
	case ArgInt:
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.Wrap(err, "parse int")
		}
		return v, nil
	case ArgFloat:
		if raw == "" {
			return decimal.Zero, nil
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, errors.Wrap(err, "parse float")
		}
		return v, nil
	case ArgBoolean:
		if raw == "" {
			return false, nil
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.Wrap(err, "parse boolean")
		}
		return v, nil
	case ArgDatetime:
		if raw == "" {
			return time.Time{}, nil
		}
		v, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, errors.Wrap(err, "parse datetime")
		}
		return v, nil
	case ArgIDList:
		if raw == "" {
			return []string(nil), nil
		}
		parts := strings.Split(raw, ",")
		ids := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				ids = append(ids, p)
			}
		}
		return ids, nil
	default:
		return nil, errors.Errorf("unknown argument type %q", t)
	}
}

// Hydrate reconciles stored argument values with the currently declared
// specs: newly declared arguments are added with their defaults, arguments no
// longer declared are pruned, and surviving stored values are kept untouched.
// Used when the declared args for an operation code change between releases.
func Hydrate(specs []ArgSpec, stored []Arg) []Arg {
	byName := make(map[string]string, len(stored))
	for _, arg := range stored {
		byName[arg.Name] = arg.Value
	}

	out := make([]Arg, 0, len(specs))
	for _, spec := range specs {
		value, ok := byName[spec.Name]
		if !ok {
			value = spec.Default
		}
		out = append(out, Arg{Name: spec.Name, Value: value})
	}
	return out
}
