package promotion

import (
	"context"

	"github.com/xenking/commerce-core/internal/domain/order"
	"github.com/xenking/commerce-core/internal/money"
	"github.com/xenking/commerce-core/internal/operation"
)

// Built-in operation codes.
const (
	CondMinimumOrderAmount = "minimum_order_amount"
	CondContainsProducts   = "contains_products"
	CondMinimumQuantity    = "minimum_quantity"

	ActionItemPercentage  = "item_percentage_discount"
	ActionOrderPercentage = "order_percentage_discount"
	ActionOrderFixed      = "order_fixed_discount"
	ActionFreeShipping    = "free_shipping"
)

// Application priorities: item-scoped discounts run before order-scoped ones
// so order discounts see the discounted line basis; shipping runs last.
const (
	priorityItem     = 30
	priorityOrder    = 20
	priorityShipping = 10
)

// DefaultConditions returns the built-in promotion conditions.
func DefaultConditions() []ConditionDef {
	return []ConditionDef{
		{
			Code:        CondMinimumOrderAmount,
			Description: "Order subtotal is at least the given amount",
			Args: []operation.ArgSpec{
				{Name: "amount", Type: operation.ArgInt, Default: "0"},
				{Name: "taxInclusive", Type: operation.ArgBoolean, Default: "false"},
			},
			Check: func(_ context.Context, o *order.Order, args operation.Args) (bool, error) {
				threshold := int64(args.Int("amount"))
				if args.Bool("taxInclusive") {
					return order.SubTotalWithTax(o) >= threshold, nil
				}
				return order.SubTotal(o) >= threshold, nil
			},
		},
		{
			Code:        CondContainsProducts,
			Description: "Order contains a minimum quantity of the given variants",
			Args: []operation.ArgSpec{
				{Name: "variantIds", Type: operation.ArgIDList},
				{Name: "minQuantity", Type: operation.ArgInt, Default: "1"},
			},
			Check: func(_ context.Context, o *order.Order, args operation.Args) (bool, error) {
				wanted := make(map[string]bool)
				for _, id := range args.IDs("variantIds") {
					wanted[id] = true
				}
				qty := 0
				for _, l := range o.Lines {
					if wanted[l.VariantID] {
						qty += order.LineQuantity(l)
					}
				}
				return qty >= args.Int("minQuantity"), nil
			},
		},
		{
			Code:        CondMinimumQuantity,
			Description: "Order contains at least the given number of units",
			Args: []operation.ArgSpec{
				{Name: "quantity", Type: operation.ArgInt, Default: "1"},
			},
			Check: func(_ context.Context, o *order.Order, args operation.Args) (bool, error) {
				qty := 0
				for _, l := range o.Lines {
					qty += order.LineQuantity(l)
				}
				return qty >= args.Int("quantity"), nil
			},
		},
	}
}

// DefaultActions returns the built-in promotion actions.
func DefaultActions() []ActionDef {
	return []ActionDef{
		{
			Code:        ActionItemPercentage,
			Description: "Discount every unit by a percentage",
			Scope:       ScopeItem,
			Priority:    priorityItem,
			Args: []operation.ArgSpec{
				{Name: "discount", Type: operation.ArgFloat, Default: "0"},
			},
			ExecuteItem: func(_ context.Context, _ *order.Order, _ *order.Line, i *order.Item, args operation.Args) (int64, error) {
				base := order.ItemDiscountedNet(i)
				return -money.Percentage(base, args.Decimal("discount")), nil
			},
		},
		{
			Code:        ActionOrderPercentage,
			Description: "Discount the order total by a percentage",
			Scope:       ScopeOrder,
			Priority:    priorityOrder,
			Args: []operation.ArgSpec{
				{Name: "discount", Type: operation.ArgFloat, Default: "0"},
			},
			ExecuteOrder: func(_ context.Context, o *order.Order, args operation.Args) (int64, error) {
				base := money.FloorAtZero(order.SubTotal(o) + order.OrderPromotionTotal(o))
				return -money.Percentage(base, args.Decimal("discount")), nil
			},
		},
		{
			Code:        ActionOrderFixed,
			Description: "Discount the order total by a fixed amount",
			Scope:       ScopeOrder,
			Priority:    priorityOrder,
			Args: []operation.ArgSpec{
				{Name: "discount", Type: operation.ArgInt, Default: "0"},
			},
			ExecuteOrder: func(_ context.Context, o *order.Order, args operation.Args) (int64, error) {
				base := money.FloorAtZero(order.SubTotal(o) + order.OrderPromotionTotal(o))
				amount := int64(args.Int("discount"))
				if amount > base {
					amount = base
				}
				return -amount, nil
			},
		},
		{
			Code:        ActionFreeShipping,
			Description: "Cancel the shipping charge",
			Scope:       ScopeShipping,
			Priority:    priorityShipping,
			ExecuteShipping: func(_ context.Context, o *order.Order, _ operation.Args) (int64, error) {
				return -order.ShippingTotal(o), nil
			},
		},
	}
}
