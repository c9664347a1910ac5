package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/commerce-core/internal/domain/auth"
	"github.com/xenking/commerce-core/internal/domain/catalog"
	"github.com/xenking/commerce-core/internal/domain/order"
	"github.com/xenking/commerce-core/internal/domain/payment"
	"github.com/xenking/commerce-core/internal/domain/promotion"
	"github.com/xenking/commerce-core/internal/domain/shipping"
	"github.com/xenking/commerce-core/internal/fsm"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// requestError carries a client-facing message for malformed input.
type requestError struct {
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(message string) error {
	return &requestError{message: message}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP statuses. Unrecognized errors are
// logged and masked as 500 so internals never leak to clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		message = "internal server error"
	}
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

func classify(err error) (int, string) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, reqErr.message
	}

	var transitionErr *fsm.TransitionError
	if errors.As(err, &transitionErr) {
		return http.StatusConflict, transitionErr.Error()
	}
	var vetoErr *fsm.VetoError
	if errors.As(err, &vetoErr) {
		// Guard refusals wrap the business reason; prefer it when present.
		return http.StatusConflict, err.Error()
	}

	switch {
	case errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrShippingCountry),
		errors.Is(err, payment.ErrInvalidAmount):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"

	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, order.ErrLineNotFound),
		errors.Is(err, catalog.ErrVariantNotFound),
		errors.Is(err, shipping.ErrMethodNotFound),
		errors.Is(err, payment.ErrNotFound),
		errors.Is(err, payment.ErrRefundNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, order.ErrStaleRevision),
		errors.Is(err, order.ErrAlreadyMerged),
		errors.Is(err, order.ErrCustomerMismatch):
		return http.StatusConflict, err.Error()

	case errors.Is(err, order.ErrNotModifiable),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrNoShippingMethod),
		errors.Is(err, promotion.ErrCouponNotValid),
		errors.Is(err, promotion.ErrCouponExpired),
		errors.Is(err, promotion.ErrCouponLimitReached),
		errors.Is(err, shipping.ErrNotEligible),
		errors.Is(err, payment.ErrNotSettled),
		errors.Is(err, payment.ErrRefundExceedsPaid):
		return http.StatusUnprocessableEntity, err.Error()
	}

	return http.StatusInternalServerError, ""
}
