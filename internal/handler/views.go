package handler

import (
	"time"

	"github.com/xenking/commerce-core/internal/domain/order"
	"github.com/xenking/commerce-core/internal/domain/payment"
	"github.com/xenking/commerce-core/internal/domain/shipping"
)

// Response shapes. Monetary amounts are integer cents; tax rates are decimal
// strings.

type adjustmentDTO struct {
	Source      string `json:"adjustmentSource"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

type itemDTO struct {
	ID               string          `json:"id"`
	UnitPrice        int64           `json:"unitPrice"`
	UnitPriceWithTax int64           `json:"unitPriceWithTax"`
	TaxRate          string          `json:"taxRate"`
	Adjustments      []adjustmentDTO `json:"adjustments,omitempty"`
	Cancelled        bool            `json:"cancelled"`
}

type lineDTO struct {
	ID           string          `json:"id"`
	VariantID    string          `json:"variantId"`
	VariantName  string          `json:"variantName"`
	Quantity     int             `json:"quantity"`
	ListPrice    int64           `json:"listPrice"`
	Total        int64           `json:"total"`
	TotalWithTax int64           `json:"totalWithTax"`
	Adjustments  []adjustmentDTO `json:"adjustments,omitempty"`
	Items        []itemDTO       `json:"items"`
}

type shippingLineDTO struct {
	MethodID    string          `json:"methodId"`
	MethodCode  string          `json:"methodCode"`
	TaxRate     string          `json:"taxRate"`
	Adjustments []adjustmentDTO `json:"adjustments,omitempty"`
}

type orderDTO struct {
	ID              string           `json:"id"`
	Code            string           `json:"code"`
	State           string           `json:"state"`
	CustomerID      string           `json:"customerId,omitempty"`
	CouponCodes     []string         `json:"couponCodes,omitempty"`
	CurrencyCode    string           `json:"currencyCode"`
	Lines           []lineDTO        `json:"lines"`
	Adjustments     []adjustmentDTO  `json:"adjustments,omitempty"`
	ShippingLine    *shippingLineDTO `json:"shippingLine,omitempty"`
	ShippingAddress order.Address    `json:"shippingAddress"`
	SubTotal        int64            `json:"subTotal"`
	SubTotalWithTax int64            `json:"subTotalWithTax"`
	Shipping        int64            `json:"shipping"`
	ShippingWithTax int64            `json:"shippingWithTax"`
	Total           int64            `json:"total"`
	TotalWithTax    int64            `json:"totalWithTax"`
	Active          bool             `json:"active"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

func adjustmentDTOs(adjustments []order.Adjustment) []adjustmentDTO {
	if len(adjustments) == 0 {
		return nil
	}
	out := make([]adjustmentDTO, len(adjustments))
	for i, a := range adjustments {
		out[i] = adjustmentDTO{
			Source:      a.Source,
			Type:        string(a.Type),
			Description: a.Description,
			Amount:      a.Amount,
		}
	}
	return out
}

func orderView(o *order.Order) orderDTO {
	dto := orderDTO{
		ID:              o.ID,
		Code:            o.Code,
		State:           string(o.State),
		CustomerID:      o.CustomerID,
		CouponCodes:     o.CouponCodes,
		CurrencyCode:    o.CurrencyCode,
		Lines:           make([]lineDTO, 0, len(o.Lines)),
		Adjustments:     adjustmentDTOs(order.OrderAdjustmentsWithTax(o)),
		ShippingAddress: o.ShippingAddress,
		SubTotal:        o.SubTotal,
		SubTotalWithTax: o.SubTotalWithTax,
		Shipping:        o.Shipping,
		ShippingWithTax: o.ShippingWithTax,
		Total:           o.Total,
		TotalWithTax:    o.TotalWithTax,
		Active:          o.Active,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, l := range o.Lines {
		dto.Lines = append(dto.Lines, lineView(l))
	}
	if o.ShippingLine != nil {
		dto.ShippingLine = &shippingLineDTO{
			MethodID:    o.ShippingLine.MethodID,
			MethodCode:  o.ShippingLine.MethodCode,
			TaxRate:     o.ShippingLine.TaxRate.String(),
			Adjustments: adjustmentDTOs(o.ShippingLine.Adjustments),
		}
	}
	return dto
}

func lineView(l *order.Line) lineDTO {
	dto := lineDTO{
		ID:           l.ID,
		VariantID:    l.VariantID,
		VariantName:  l.VariantName,
		Quantity:     order.LineQuantity(l),
		ListPrice:    l.ListPrice,
		Total:        order.LineTotal(l),
		TotalWithTax: order.LineTotalWithTax(l),
		Adjustments:  adjustmentDTOs(order.LineAdjustments(l)),
		Items:        make([]itemDTO, 0, len(l.Items)),
	}
	for _, i := range l.Items {
		dto.Items = append(dto.Items, itemDTO{
			ID:               i.ID,
			UnitPrice:        i.UnitPrice,
			UnitPriceWithTax: order.ItemUnitPriceWithTax(i),
			TaxRate:          i.TaxRate.String(),
			Adjustments:      adjustmentDTOs(order.ItemAdjustmentsWithTax(i)),
			Cancelled:        i.Cancelled(),
		})
	}
	return dto
}

type paymentDTO struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"orderId"`
	Method        string    `json:"method"`
	Amount        int64     `json:"amount"`
	State         string    `json:"state"`
	TransactionID string    `json:"transactionId,omitempty"`
	ErrorMessage  string    `json:"errorMessage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func paymentView(p *payment.Payment) paymentDTO {
	return paymentDTO{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Method:        p.Method,
		Amount:        p.Amount,
		State:         string(p.State),
		TransactionID: p.TransactionID,
		ErrorMessage:  p.ErrorMessage,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type refundDTO struct {
	ID            string    `json:"id"`
	PaymentID     string    `json:"paymentId"`
	OrderID       string    `json:"orderId"`
	Total         int64     `json:"total"`
	Reason        string    `json:"reason,omitempty"`
	State         string    `json:"state"`
	TransactionID string    `json:"transactionId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func refundView(r *payment.Refund) refundDTO {
	return refundDTO{
		ID:            r.ID,
		PaymentID:     r.PaymentID,
		OrderID:       r.OrderID,
		Total:         r.Total,
		Reason:        r.Reason,
		State:         string(r.State),
		TransactionID: r.TransactionID,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type shippingMethodDTO struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func shippingMethodViews(methods []*shipping.Method) []shippingMethodDTO {
	out := make([]shippingMethodDTO, 0, len(methods))
	for _, m := range methods {
		out = append(out, shippingMethodDTO{ID: m.ID, Code: m.Code, Description: m.Description})
	}
	return out
}
