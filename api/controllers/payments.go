package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bookhaven/storefront-backend/api/responses"
	"github.com/bookhaven/storefront-backend/api/validators"
	verificationsvc "github.com/bookhaven/storefront-backend/internal/verification"
	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
	"github.com/bookhaven/storefront-backend/pkg/logger"
)

type verifyPaymentRequest struct {
	Reference string `json:"reference" validate:"required"`
	OrderID   string `json:"orderId" validate:"required"`
}

// PaymentVerify re-checks a reference against the gateway and, when the
// charge settled, completes the order server-side.
func PaymentVerify(svc verificationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "verification service unavailable"))
			return
		}

		var payload verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		result, err := svc.Confirm(r.Context(), payload.Reference, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
