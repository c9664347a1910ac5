package operation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDef struct {
	code string
	args []ArgSpec
}

func (d testDef) OpCode() string      { return d.code }
func (d testDef) ArgSpecs() []ArgSpec { return d.args }

func TestCoerce(t *testing.T) {
	specs := []ArgSpec{
		{Name: "label", Type: ArgString},
		{Name: "minimum", Type: ArgInt, Default: "2"},
		{Name: "rate", Type: ArgFloat},
		{Name: "enabled", Type: ArgBoolean},
		{Name: "startsAt", Type: ArgDatetime},
		{Name: "variantIds", Type: ArgIDList},
	}
	stored := []Arg{
		{Name: "label", Value: "summer"},
		{Name: "rate", Value: "8.875"},
		{Name: "enabled", Value: "true"},
		{Name: "startsAt", Value: "2025-06-01T00:00:00Z"},
		{Name: "variantIds", Value: "v1, v2,v3"},
	}

	args, err := Coerce(specs, stored)
	require.NoError(t, err)

	assert.Equal(t, "summer", args.Str("label"))
	assert.Equal(t, 2, args.Int("minimum")) // default applied
	assert.True(t, decimal.RequireFromString("8.875").Equal(args.Decimal("rate")))
	assert.True(t, args.Bool("enabled"))
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), args.Time("startsAt"))
	assert.Equal(t, []string{"v1", "v2", "v3"}, args.IDs("variantIds"))
}

func TestCoerce_TypeZeroDefaults(t *testing.T) {
	specs := []ArgSpec{
		{Name: "s", Type: ArgString},
		{Name: "i", Type: ArgInt},
		{Name: "f", Type: ArgFloat},
		{Name: "b", Type: ArgBoolean},
		{Name: "t", Type: ArgDatetime},
		{Name: "ids", Type: ArgIDList},
	}

	args, err := Coerce(specs, nil)
	require.NoError(t, err)

	assert.Equal(t, "", args.Str("s"))
	assert.Equal(t, 0, args.Int("i"))
	assert.True(t, args.Decimal("f").IsZero())
	assert.False(t, args.Bool("b"))
	assert.True(t, args.Time("t").IsZero())
	assert.Nil(t, args.IDs("ids"))
}

func TestCoerce_BadValueIsConfigError(t *testing.T) {
	specs := []ArgSpec{{Name: "minimum", Type: ArgInt}}
	stored := []Arg{{Name: "minimum", Value: "not-a-number"}}

	_, err := Coerce(specs, stored)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "minimum")
}

func TestCoerce_UnknownTypeIsConfigError(t *testing.T) {
	specs := []ArgSpec{{Name: "x", Type: ArgType("mystery")}}

	_, err := Coerce(specs, []Arg{{Name: "x", Value: "1"}})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestHydrate(t *testing.T) {
	specs := []ArgSpec{
		{Name: "kept", Type: ArgInt, Default: "0"},
		{Name: "added", Type: ArgFloat, Default: "10"},
	}
	stored := []Arg{
		{Name: "kept", Value: "42"},
		{Name: "dropped", Value: "stale"},
	}

	out := Hydrate(specs, stored)

	require.Len(t, out, 2)
	assert.Equal(t, Arg{Name: "kept", Value: "42"}, out[0])
	assert.Equal(t, Arg{Name: "added", Value: "10"}, out[1])
}

func TestRegistry(t *testing.T) {
	a := testDef{code: "op_a", args: []ArgSpec{{Name: "n", Type: ArgInt, Default: "1"}}}
	b := testDef{code: "op_b"}

	r, err := NewRegistry(a, b)
	require.NoError(t, err)

	got, err := r.Get("op_a")
	require.NoError(t, err)
	assert.Equal(t, "op_a", got.OpCode())

	assert.Equal(t, []string{"op_a", "op_b"}, r.Codes())

	_, err = r.Get("op_gone")
	var unknown *UnknownOperationError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "op_gone", unknown.Code)
}

func TestRegistry_DuplicateCode(t *testing.T) {
	_, err := NewRegistry(testDef{code: "dup"}, testDef{code: "dup"})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestRegistry_CoerceArgs(t *testing.T) {
	r := MustRegistry(testDef{
		code: "op_a",
		args: []ArgSpec{{Name: "n", Type: ArgInt, Default: "5"}},
	})

	def, args, err := r.CoerceArgs(Configured{Code: "op_a"})
	require.NoError(t, err)
	assert.Equal(t, "op_a", def.OpCode())
	assert.Equal(t, 5, args.Int("n"))

	_, _, err = r.CoerceArgs(Configured{Code: "missing"})
	var unknown *UnknownOperationError
	require.ErrorAs(t, err, &unknown)
}
