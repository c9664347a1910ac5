// Package promotion implements the promotion engine: selecting the
// promotions applicable to an order and applying their actions to produce
// adjustments. Conditions and actions are configurable operations resolved
// through injected registries.
package promotion

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/commerce-core/internal/domain/order"
	"github.com/xenking/commerce-core/internal/operation"
)

// User-facing coupon errors.
var (
	ErrCouponNotValid     = errors.New("coupon code not valid")
	ErrCouponExpired      = errors.New("coupon code has expired")
	ErrCouponLimitReached = errors.New("coupon code usage limit reached")
)

// Promotion is a configured promotion: an ordered set of conditions that must
// all hold, and an ordered set of actions producing adjustments. Evaluated
// fresh on every order recompute; eligibility depends on current contents.
type Promotion struct {
	ID          string
	Name        string
	CouponCode  string // empty: auto-applied
	Enabled     bool
	StartsAt    *time.Time
	EndsAt      *time.Time
	PerCustomerUsageLimit int // 0: unlimited
	Conditions  []operation.Configured
	Actions     []operation.Configured
	CreatedAt   time.Time
}

// SourceID is the adjustment source reference for this promotion.
func (p *Promotion) SourceID() string {
	return order.AdjustmentSource("Promotion", p.ID)
}

// ActiveAt reports whether the promotion is enabled and inside its
// [startsAt, endsAt) validity window. Unset bounds are open-ended.
func (p *Promotion) ActiveAt(now time.Time) bool {
	if !p.Enabled {
		return false
	}
	if p.StartsAt != nil && now.Before(*p.StartsAt) {
		return false
	}
	if p.EndsAt != nil && !now.Before(*p.EndsAt) {
		return false
	}
	return true
}

// ExpiredAt reports whether the validity window has closed.
func (p *Promotion) ExpiredAt(now time.Time) bool {
	return p.EndsAt != nil && !now.Before(*p.EndsAt)
}

// Repository provides promotion lookup. FindByCouponCode matches the code
// case-sensitively and returns ErrCouponNotValid when no promotion carries it.
type Repository interface {
	ListActive(ctx context.Context) ([]*Promotion, error)
	FindByCouponCode(ctx context.Context, code string) (*Promotion, error)
}

// UsageRepository counts completed orders through which a customer has
// already consumed a coupon code.
type UsageRepository interface {
	CountCouponUses(ctx context.Context, customerID, couponCode string) (int, error)
}
