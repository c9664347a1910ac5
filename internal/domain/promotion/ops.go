package promotion

import (
	"context"

	"github.com/xenking/commerce-core/internal/domain/order"
	"github.com/xenking/commerce-core/internal/operation"
)

// ActionScope determines what an action's adjustment attaches to.
type ActionScope string

const (
	ScopeItem     ActionScope = "item"
	ScopeOrder    ActionScope = "order"
	ScopeShipping ActionScope = "shipping"
)

// ConditionDef is a registered promotion condition. Check evaluates against
// the order's current (mid-recompute) state.
type ConditionDef struct {
	Code        string
	Description string
	Args        []operation.ArgSpec
	Check       func(ctx context.Context, o *order.Order, args operation.Args) (bool, error)
}

func (d ConditionDef) OpCode() string                { return d.Code }
func (d ConditionDef) ArgSpecs() []operation.ArgSpec { return d.Args }

// ActionDef is a registered promotion action. Exactly one of the execute
// functions is set, matching Scope. Amounts returned are cents and already
// carry the discount sign (negative); the calculator never re-signs them.
// Priority orders application across promotions: higher runs first, so
// lower-priority promotions compute against an already-adjusted basis.
type ActionDef struct {
	Code        string
	Description string
	Args        []operation.ArgSpec
	Scope       ActionScope
	Priority    int

	ExecuteItem     func(ctx context.Context, o *order.Order, l *order.Line, i *order.Item, args operation.Args) (int64, error)
	ExecuteOrder    func(ctx context.Context, o *order.Order, args operation.Args) (int64, error)
	ExecuteShipping func(ctx context.Context, o *order.Order, args operation.Args) (int64, error)
}

func (d ActionDef) OpCode() string                { return d.Code }
func (d ActionDef) ArgSpecs() []operation.ArgSpec { return d.Args }
