package handler

import (
	"context"

	"github.com/xenking/commerce-core/internal/domain/order"
	"github.com/xenking/commerce-core/internal/domain/payment"
	"github.com/xenking/commerce-core/internal/domain/shipping"
)

// OrderService is the surface of the order service the handler depends on.
type OrderService interface {
	GetOrder(ctx context.Context, id string) (*order.Order, error)
	GetActiveOrder(ctx context.Context, customerID string) (*order.Order, error)
	CreateOrder(ctx context.Context, customerID, currencyCode string) (*order.Order, error)
	AddItem(ctx context.Context, orderID, variantID string, quantity int) (*order.Order, error)
	AdjustLine(ctx context.Context, orderID, lineID string, quantity int) (*order.Order, error)
	RemoveLine(ctx context.Context, orderID, lineID string) (*order.Order, error)
	ApplyCouponCode(ctx context.Context, orderID, code string) (*order.Order, error)
	RemoveCouponCode(ctx context.Context, orderID, code string) (*order.Order, error)
	SetCustomer(ctx context.Context, orderID, customerID string) (*order.Order, error)
	SetShippingAddress(ctx context.Context, orderID string, addr order.Address) (*order.Order, error)
	SetShippingMethod(ctx context.Context, orderID, methodID string) (*order.Order, error)
	EligibleShippingMethods(ctx context.Context, orderID string) ([]*shipping.Method, error)
	TransitionTo(ctx context.Context, orderID string, to order.State) (*order.Order, error)
	CancelOrder(ctx context.Context, orderID string) (*order.Order, error)
	AddPayment(ctx context.Context, orderID, method string, amount int64) (*payment.Payment, error)
	SettlePayment(ctx context.Context, orderID, paymentID, transactionID string) (*payment.Payment, error)
	RefundOrder(ctx context.Context, orderID, paymentID string, amount int64, reason string) (*payment.Refund, error)
	SettleRefund(ctx context.Context, refundID, transactionID string) (*payment.Refund, error)
	FailRefund(ctx context.Context, refundID string) (*payment.Refund, error)
	MergeOrders(ctx context.Context, guestOrderID, customerID string) (*order.Order, error)
}
