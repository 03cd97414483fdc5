package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bookhaven/storefront-backend/api/responses"
	"github.com/bookhaven/storefront-backend/api/validators"
	checkoutsvc "github.com/bookhaven/storefront-backend/internal/checkout"
	"github.com/bookhaven/storefront-backend/internal/notifications"
	"github.com/bookhaven/storefront-backend/pkg/db/models"
	"github.com/bookhaven/storefront-backend/pkg/enums"
	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
	"github.com/bookhaven/storefront-backend/pkg/logger"
)

type beginCheckoutRequest struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Location     string `json:"location"`
	Phone        string `json:"phone"`
	DeliveryType string `json:"delivery_type" validate:"required,oneof=physical pdf"`
}

type widgetParamsResponse struct {
	Key       string `json:"key"`
	Email     string `json:"email"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
	OrderID   string `json:"order_id"`
}

type orderSummaryResponse struct {
	ID           uuid.UUID `json:"id"`
	Status       string    `json:"status"`
	Total        string    `json:"total"`
	DeliveryType string    `json:"delivery_type"`
	TransportFee string    `json:"transport_fee"`
	CreatedAt    time.Time `json:"created_at"`
	DeliverBy    time.Time `json:"deliver_by"`
}

func newOrderSummary(order *models.Order) *orderSummaryResponse {
	if order == nil {
		return nil
	}
	return &orderSummaryResponse{
		ID:           order.ID,
		Status:       string(order.Status),
		Total:        order.Total,
		DeliveryType: string(order.DeliveryType),
		TransportFee: order.TransportFee.String(),
		CreatedAt:    order.CreatedAt,
		DeliverBy:    order.DeliverBy,
	}
}

type beginCheckoutResponse struct {
	Order     *orderSummaryResponse `json:"order"`
	Reference string                `json:"reference"`
	Widget    widgetParamsResponse  `json:"widget"`
}

type noticeResponse struct {
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	DurationMS int64      `json:"duration_ms"`
	OrderID    *uuid.UUID `json:"order_id,omitempty"`
}

func newNoticeResponses(notices []notifications.Notice) []noticeResponse {
	out := make([]noticeResponse, 0, len(notices))
	for _, n := range notices {
		out = append(out, noticeResponse{
			Severity:   string(n.Severity),
			Message:    n.Message,
			DurationMS: n.Duration.Milliseconds(),
			OrderID:    n.OrderID,
		})
	}
	return out
}

// CheckoutBegin creates a pending order from the submitted form and hands
// back the parameters for opening the payment widget.
func CheckoutBegin(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := cartIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload beginCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deliveryType, err := enums.ParseDeliveryType(payload.DeliveryType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery type"))
			return
		}

		result, err := svc.Begin(r.Context(), checkoutsvc.BeginInput{
			CartID:       cartID,
			Name:         payload.Name,
			Email:        payload.Email,
			Location:     payload.Location,
			Phone:        payload.Phone,
			DeliveryType: deliveryType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, beginCheckoutResponse{
			Order:     newOrderSummary(result.Order),
			Reference: result.Reference,
			Widget: widgetParamsResponse{
				Key:       result.Widget.Key,
				Email:     result.Widget.Email,
				Amount:    result.Widget.Amount,
				Currency:  result.Widget.Currency,
				Reference: result.Widget.Reference,
				OrderID:   result.Widget.OrderID,
			},
		})
	}
}

type paymentReferenceRequest struct {
	Reference string `json:"reference" validate:"required"`
}

type completeCheckoutResponse struct {
	OrderID     uuid.UUID             `json:"order_id"`
	Order       *orderSummaryResponse `json:"order,omitempty"`
	Outcome     string                `json:"outcome"`
	CartCleared bool                  `json:"cart_cleared"`
	Notices     []noticeResponse      `json:"notices"`
}

// CheckoutComplete settles a payment the widget reported as successful.
func CheckoutComplete(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload paymentReferenceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CompletePayment(r.Context(), payload.Reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, completeCheckoutResponse{
			OrderID:     result.OrderID,
			Order:       newOrderSummary(result.Order),
			Outcome:     string(result.Outcome),
			CartCleared: result.CartCleared,
			Notices:     newNoticeResponses(result.Notices),
		})
	}
}

type abandonCheckoutResponse struct {
	OrderID uuid.UUID        `json:"order_id"`
	Notices []noticeResponse `json:"notices"`
}

// CheckoutAbandon records a closed payment window. The pending order is left
// untouched for manual follow-up.
func CheckoutAbandon(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload paymentReferenceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AbandonPayment(r.Context(), payload.Reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, abandonCheckoutResponse{
			OrderID: result.OrderID,
			Notices: newNoticeResponses(result.Notices),
		})
	}
}
