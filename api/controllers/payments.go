package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pfstore/storefront-backend/api/responses"
	"github.com/pfstore/storefront-backend/api/validators"
	"github.com/pfstore/storefront-backend/internal/payments"
	pkgerrors "github.com/pfstore/storefront-backend/pkg/errors"
	"github.com/pfstore/storefront-backend/pkg/logger"
)

type createPaymentRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

// PaymentCreate opens a settlement attempt for the member's order and returns
// the signed hosted-checkout form.
func PaymentCreate(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreatePayment(r.Context(), payments.CreatePaymentInput{
			UserID:  userID,
			OrderID: payload.OrderID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// PaymentCallback absorbs the gateway's server-to-server settlement
// notification. The gateway expects a plain-text ack body, not the JSON
// envelope; errors answer 500 so the gateway retries.
func PaymentCallback(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			http.Error(w, "0|ServiceUnavailable", http.StatusInternalServerError)
			return
		}

		if err := r.ParseForm(); err != nil {
			logg.Warn(r.Context(), "malformed callback form")
			http.Error(w, "0|BadRequest", http.StatusBadRequest)
			return
		}

		raw := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			raw[k] = r.PostForm.Get(k)
		}

		ack, err := svc.HandleCallback(r.Context(), payments.CallbackInput{
			MerchantTradeNo: r.PostForm.Get("MerchantTradeNo"),
			RtnCode:         r.PostForm.Get("RtnCode"),
			RtnMsg:          r.PostForm.Get("RtnMsg"),
			TradeNo:         r.PostForm.Get("TradeNo"),
			Raw:             raw,
		})
		if err != nil {
			logg.Error(r.Context(), "callback processing failed", err)
			http.Error(w, "0|InternalError", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(ack))
	}
}

// PaymentStatus returns the settlement state of the member's order.
func PaymentStatus(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseURLUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetStatus(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}
