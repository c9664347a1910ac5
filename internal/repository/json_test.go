package repository

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/commerce-core/internal/domain/order"
	"github.com/xenking/commerce-core/internal/operation"
)

func TestAdjustmentsCodec(t *testing.T) {
	in := []order.Adjustment{
		{Source: "TaxRate:GB/standard", Type: order.AdjustmentTax, Description: "standard 20%", Amount: 1200},
		{Source: "Promotion:3", Type: order.AdjustmentPromotion, Description: "100% off order", Amount: -6000},
	}

	out, err := decodeAdjustments(encodeAdjustments(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestAdjustmentsCodec_Empty(t *testing.T) {
	out, err := decodeAdjustments(nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = decodeAdjustments(encodeAdjustments(nil))
	require.NoError(t, err)
	assert.Nil(t, out, "empty array decodes to nil")
}

func TestAdjustmentsCodec_SkipsUnknownKeys(t *testing.T) {
	data := []byte(`[{"adjustmentSource":"Promotion:1","type":"PROMOTION","description":"d","amount":-5,"legacy":true}]`)

	out, err := decodeAdjustments(data)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(-5), out[0].Amount)
}

func TestConfiguredCodec(t *testing.T) {
	in := []operation.Configured{
		{
			Code: "minimum_order_amount",
			Args: []operation.Arg{
				{Name: "amount", Value: "5000"},
				{Name: "taxInclusive", Value: "false"},
			},
		},
		{Code: "free_shipping"},
	}

	out, err := decodeConfigured(encodeConfigured(in))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in[0], out[0])
	assert.Equal(t, "free_shipping", out[1].Code)
	assert.Empty(t, out[1].Args)
}

func TestSingleConfiguredCodec(t *testing.T) {
	in := operation.Configured{
		Code: "flat_rate_calculator",
		Args: []operation.Arg{{Name: "rate", Value: "500"}},
	}

	out, err := decodeSingleConfigured(encodeSingleConfigured(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	empty, err := decodeSingleConfigured(nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Code)
}

func TestAddressCodec(t *testing.T) {
	in := order.Address{
		FullName:    "Ada Lovelace",
		StreetLine1: "1 Analytical Way",
		City:        "London",
		PostalCode:  "EC1A 1BB",
		CountryCode: "GB",
	}

	out, err := decodeAddress(encodeAddress(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestShippingLineCodec(t *testing.T) {
	in := &order.ShippingLine{
		MethodID:   "ship-1",
		MethodCode: "standard",
		TaxRate:    decimal.NewFromInt(20),
		Adjustments: []order.Adjustment{
			{Source: "ShippingMethod:ship-1", Type: order.AdjustmentShipping, Description: "Standard delivery", Amount: 500},
		},
	}

	out, err := decodeShippingLine(encodeShippingLine(in))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in.MethodID, out.MethodID)
	assert.Equal(t, in.MethodCode, out.MethodCode)
	assert.True(t, in.TaxRate.Equal(out.TaxRate))
	assert.Equal(t, in.Adjustments, out.Adjustments)
}

func TestShippingLineCodec_Nil(t *testing.T) {
	assert.Nil(t, encodeShippingLine(nil))

	out, err := decodeShippingLine(nil)
	require.NoError(t, err)
	assert.Nil(t, out, "absent column stays a nil shipping line")
}
