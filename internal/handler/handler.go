// Package handler exposes the order service over HTTP. Request decoding,
// response shaping and error mapping live here; all business rules stay in
// the service layer.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/commerce-core/internal/domain/order"
)

// Handler serves the order API.
type Handler struct {
	service OrderService
}

// NewHandler constructs a Handler over the order service.
func NewHandler(service OrderService) *Handler {
	return &Handler{service: service}
}

// Routes builds the API router. Authentication is applied by the caller so
// tests can mount the routes bare.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/active", h.getActiveOrder)

		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", h.getOrder)
			r.Post("/items", h.addItem)
			r.Put("/lines/{lineID}", h.adjustLine)
			r.Delete("/lines/{lineID}", h.removeLine)
			r.Post("/coupons", h.applyCoupon)
			r.Delete("/coupons/{code}", h.removeCoupon)
			r.Put("/customer", h.setCustomer)
			r.Put("/shipping-address", h.setShippingAddress)
			r.Put("/shipping-method", h.setShippingMethod)
			r.Get("/shipping-methods", h.eligibleShippingMethods)
			r.Post("/state", h.transition)
			r.Post("/cancel", h.cancelOrder)
			r.Post("/payments", h.addPayment)
			r.Post("/payments/{paymentID}/settle", h.settlePayment)
			r.Post("/refunds", h.refundOrder)
			r.Post("/merge", h.mergeOrder)
		})
	})

	r.Route("/refunds/{refundID}", func(r chi.Router) {
		r.Post("/settle", h.settleRefund)
		r.Post("/fail", h.failRefund)
	})

	return r
}

type createOrderRequest struct {
	CustomerID   string `json:"customerId"`
	CurrencyCode string `json:"currencyCode"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CurrencyCode == "" {
		req.CurrencyCode = "USD"
	}
	o, err := h.service.CreateOrder(r.Context(), req.CustomerID, req.CurrencyCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderView(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(o))
}

func (h *Handler) getActiveOrder(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customerId")
	if customerID == "" {
		writeError(w, r, badRequest("customerId query parameter is required"))
		return
	}
	o, err := h.service.GetActiveOrder(r.Context(), customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(o))
}

type addItemRequest struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.service.AddItem(r.Context(), chi.URLParam(r, "orderID"), req.VariantID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(o))
}

type adjustLineRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) adjustLine(w http.ResponseWriter, r *http.Request) {
	var req adjustLineRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.service.AdjustLine(r.Context(), chi.URLParam(r, "orderID"), chi.URLParam(r, "lineID"), req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(o))
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.RemoveLine(r.Context(), chi.URLParam(r, "orderID"), chi.URLParam(r, "lineID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(o))
}

type applyCouponRequest struct {
	CouponCode string `json:"couponCode"`
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.service.ApplyCouponCode(r.Context(), chi.URLParam(r, "orderID"), req.CouponCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(o))
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.RemoveCouponCode(r.Context(), chi.URLParam(r, "orderID"), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(o))
}

type setCustomerRequest struct {
	CustomerID string `json:"customerId"`
}

func (h *Handler) setCustomer(w http.ResponseWriter, r *http.Request) {
	var req setCustomerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CustomerID == "" {
		writeError(w, r, badRequest("customerId is required"))
		return
	}
	o, err := h.service.SetCustomer(r.Context(), chi.URLParam(r, "orderID"), req.CustomerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(o))
}

func (h *Handler) setShippingAddress(w http.ResponseWriter, r *http.Request) {
	var addr order.Address
	if err := decode(r, &addr); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.service.SetShippingAddress(r.Context(), chi.URLParam(r, "orderID"), addr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(o))
}

type setShippingMethodRequest struct {
	MethodID string `json:"methodId"`
}

func (h *Handler) setShippingMethod(w http.ResponseWriter, r *http.Request) {
	var req setShippingMethodRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.service.SetShippingMethod(r.Context(), chi.URLParam(r, "orderID"), req.MethodID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(o))
}

func (h *Handler) eligibleShippingMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.service.EligibleShippingMethods(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shippingMethodViews(methods))
}

type transitionRequest struct {
	State string `json:"state"`
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.service.TransitionTo(r.Context(), chi.URLParam(r, "orderID"), order.State(req.State))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.CancelOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(o))
}

type addPaymentRequest struct {
	Method string `json:"method"`
	Amount int64  `json:"amount"`
}

func (h *Handler) addPayment(w http.ResponseWriter, r *http.Request) {
	var req addPaymentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.service.AddPayment(r.Context(), chi.URLParam(r, "orderID"), req.Method, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentView(p))
}

type settlePaymentRequest struct {
	TransactionID string `json:"transactionId"`
}

func (h *Handler) settlePayment(w http.ResponseWriter, r *http.Request) {
	var req settlePaymentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.service.SettlePayment(r.Context(), chi.URLParam(r, "orderID"), chi.URLParam(r, "paymentID"), req.TransactionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentView(p))
}

type refundRequest struct {
	PaymentID string `json:"paymentId"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
}

func (h *Handler) refundOrder(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := h.service.RefundOrder(r.Context(), chi.URLParam(r, "orderID"), req.PaymentID, req.Amount, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, refundView(ref))
}

func (h *Handler) settleRefund(w http.ResponseWriter, r *http.Request) {
	var req settlePaymentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := h.service.SettleRefund(r.Context(), chi.URLParam(r, "refundID"), req.TransactionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refundView(ref))
}

func (h *Handler) failRefund(w http.ResponseWriter, r *http.Request) {
	ref, err := h.service.FailRefund(r.Context(), chi.URLParam(r, "refundID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refundView(ref))
}

type mergeRequest struct {
	CustomerID string `json:"customerId"`
}

func (h *Handler) mergeOrder(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CustomerID == "" {
		writeError(w, r, badRequest("customerId is required"))
		return
	}
	o, err := h.service.MergeOrders(r.Context(), chi.URLParam(r, "orderID"), req.CustomerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(o))
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid request body")
	}
	return nil
}
