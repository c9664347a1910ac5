package promotion

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/commerce-core/internal/domain/order"
	"github.com/xenking/commerce-core/internal/operation"
)

// Engine selects and applies promotions during an order recompute. All
// collaborators are injected; the engine holds no ambient state.
type Engine struct {
	conditions *operation.Registry[ConditionDef]
	actions    *operation.Registry[ActionDef]
	usage      UsageRepository
	now        func() time.Time
}

// NewEngine constructs an Engine over the given operation registries.
func NewEngine(
	conditions *operation.Registry[ConditionDef],
	actions *operation.Registry[ActionDef],
	usage UsageRepository,
) *Engine {
	return &Engine{
		conditions: conditions,
		actions:    actions,
		usage:      usage,
		now:        time.Now,
	}
}

// CheckCoupon validates that a coupon-carrying promotion can be applied by
// the given customer right now. Used when a code is first applied to an
// order; the recompute path uses VerifyCouponCodes instead.
func (e *Engine) CheckCoupon(ctx context.Context, p *Promotion, customerID string) error {
	if p == nil || p.CouponCode == "" || !p.Enabled {
		return ErrCouponNotValid
	}
	now := e.now()
	if p.ExpiredAt(now) {
		return ErrCouponExpired
	}
	if !p.ActiveAt(now) {
		return ErrCouponNotValid
	}
	return e.checkUsage(ctx, p, customerID)
}

// VerifyCouponCodes strips applied coupon codes that are no longer tenable:
// the promotion vanished or was disabled, its window closed, or the order's
// customer identity changed such that the per-customer limit is now
// exceeded. Stripping is silent (the customer must reapply), so an identity
// change never turns into a hard error mid-checkout.
func (e *Engine) VerifyCouponCodes(ctx context.Context, o *order.Order, promos []*Promotion) error {
	if len(o.CouponCodes) == 0 {
		return nil
	}
	byCode := make(map[string]*Promotion)
	for _, p := range promos {
		if p.CouponCode != "" {
			byCode[p.CouponCode] = p
		}
	}

	kept := o.CouponCodes[:0]
	for _, code := range o.CouponCodes {
		p, ok := byCode[code]
		if !ok || !p.ActiveAt(e.now()) {
			continue
		}
		if err := e.checkUsage(ctx, p, o.CustomerID); err != nil {
			if errors.Is(err, ErrCouponLimitReached) {
				continue
			}
			return err
		}
		kept = append(kept, code)
	}
	o.CouponCodes = kept
	return nil
}

// Eligible filters promotions to those applicable to the order right now and
// returns them in application order: descending priority score, original
// order preserved on ties (stable sort).
func (e *Engine) Eligible(ctx context.Context, o *order.Order, promos []*Promotion) ([]*Promotion, error) {
	now := e.now()

	var eligible []*Promotion
	scores := make(map[string]int)
	for _, p := range promos {
		if !p.ActiveAt(now) {
			continue
		}
		if p.CouponCode != "" && !o.HasCouponCode(p.CouponCode) {
			continue
		}
		ok, err := e.conditionsHold(ctx, o, p)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		score, err := e.priorityScore(p)
		if err != nil {
			return nil, err
		}
		scores[p.ID] = score
		eligible = append(eligible, p)
	}

	sort.SliceStable(eligible, func(a, b int) bool {
		return scores[eligible[a].ID] > scores[eligible[b].ID]
	})
	return eligible, nil
}

// ApplyItemAndOrderActions runs the item- and order-scoped actions of each
// eligible promotion in order, attaching the resulting adjustments.
func (e *Engine) ApplyItemAndOrderActions(ctx context.Context, o *order.Order, eligible []*Promotion) error {
	for _, p := range eligible {
		for _, cfg := range p.Actions {
			def, args, err := e.actions.CoerceArgs(cfg)
			if err != nil {
				return errors.Wrapf(err, "promotion %q", p.Name)
			}
			switch def.Scope {
			case ScopeItem:
				if err := e.applyItemAction(ctx, o, p, def, args); err != nil {
					return err
				}
			case ScopeOrder:
				amount, err := def.ExecuteOrder(ctx, o, args)
				if err != nil {
					return errors.Wrapf(err, "action %q", def.Code)
				}
				if amount != 0 {
					o.Adjustments = append(o.Adjustments, order.Adjustment{
						Source:      p.SourceID(),
						Type:        order.AdjustmentPromotion,
						Description: p.Name,
						Amount:      amount,
					})
				}
			case ScopeShipping:
				// Deferred until the shipping charge exists.
			}
		}
	}
	return nil
}

// ApplyShippingActions runs the shipping-scoped actions of each eligible
// promotion. Called after the shipping charge has been computed so the
// actions can modify it.
func (e *Engine) ApplyShippingActions(ctx context.Context, o *order.Order, eligible []*Promotion) error {
	if o.ShippingLine == nil {
		return nil
	}
	for _, p := range eligible {
		for _, cfg := range p.Actions {
			def, args, err := e.actions.CoerceArgs(cfg)
			if err != nil {
				return errors.Wrapf(err, "promotion %q", p.Name)
			}
			if def.Scope != ScopeShipping {
				continue
			}
			amount, err := def.ExecuteShipping(ctx, o, args)
			if err != nil {
				return errors.Wrapf(err, "action %q", def.Code)
			}
			if amount != 0 {
				o.ShippingLine.Adjustments = append(o.ShippingLine.Adjustments, order.Adjustment{
					Source:      p.SourceID(),
					Type:        order.AdjustmentPromotion,
					Description: p.Name,
					Amount:      amount,
				})
			}
		}
	}
	return nil
}

func (e *Engine) applyItemAction(ctx context.Context, o *order.Order, p *Promotion, def ActionDef, args operation.Args) error {
	for _, l := range o.Lines {
		for _, i := range l.Items {
			if i.Cancelled() {
				continue
			}
			amount, err := def.ExecuteItem(ctx, o, l, i, args)
			if err != nil {
				return errors.Wrapf(err, "action %q", def.Code)
			}
			if amount != 0 {
				i.Adjustments = append(i.Adjustments, order.Adjustment{
					Source:      p.SourceID(),
					Type:        order.AdjustmentPromotion,
					Description: p.Name,
					Amount:      amount,
				})
			}
		}
	}
	return nil
}

func (e *Engine) conditionsHold(ctx context.Context, o *order.Order, p *Promotion) (bool, error) {
	for _, cfg := range p.Conditions {
		def, args, err := e.conditions.CoerceArgs(cfg)
		if err != nil {
			return false, errors.Wrapf(err, "promotion %q", p.Name)
		}
		ok, err := def.Check(ctx, o, args)
		if err != nil {
			return false, errors.Wrapf(err, "condition %q", def.Code)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// priorityScore is the maximum priority value across the promotion's
// actions. Referencing an unregistered action code is a configuration error
// that aborts the recompute.
func (e *Engine) priorityScore(p *Promotion) (int, error) {
	score := 0
	for _, cfg := range p.Actions {
		def, err := e.actions.Get(cfg.Code)
		if err != nil {
			return 0, errors.Wrapf(err, "promotion %q", p.Name)
		}
		if def.Priority > score {
			score = def.Priority
		}
	}
	return score, nil
}

func (e *Engine) checkUsage(ctx context.Context, p *Promotion, customerID string) error {
	if p.PerCustomerUsageLimit <= 0 || customerID == "" || e.usage == nil {
		return nil
	}
	used, err := e.usage.CountCouponUses(ctx, customerID, p.CouponCode)
	if err != nil {
		return errors.Wrap(err, "count coupon uses")
	}
	if used >= p.PerCustomerUsageLimit {
		return ErrCouponLimitReached
	}
	return nil
}

// WithNow overrides the engine clock. Test hook.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.now = now
	return e
}
