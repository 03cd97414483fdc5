package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookhaven/storefront-backend/api/responses"
	ordersvc "github.com/bookhaven/storefront-backend/internal/orders"
	"github.com/bookhaven/storefront-backend/pkg/db/models"
	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
	"github.com/bookhaven/storefront-backend/pkg/logger"
	"github.com/bookhaven/storefront-backend/pkg/types"
)

type orderDetailResponse struct {
	ID               uuid.UUID        `json:"id"`
	Items            types.OrderItems `json:"items"`
	Total            string           `json:"total"`
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	DeliveryType     string           `json:"delivery_type"`
	Status           string           `json:"status"`
	Paid             bool             `json:"paid"`
	PaymentReference *string          `json:"payment_reference,omitempty"`
	PaymentChannel   *string          `json:"payment_channel,omitempty"`
	PaidAt           *time.Time       `json:"paid_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	DeliverBy        time.Time        `json:"deliver_by"`
}

func newOrderDetailResponse(order *models.Order) orderDetailResponse {
	return orderDetailResponse{
		ID:               order.ID,
		Items:            order.Items,
		Total:            order.Total,
		Name:             order.Name,
		Email:            order.Email,
		DeliveryType:     string(order.DeliveryType),
		Status:           string(order.Status),
		Paid:             order.Paid(),
		PaymentReference: order.PaymentReference,
		PaymentChannel:   order.PaymentChannel,
		PaidAt:           order.PaidAt,
		CreatedAt:        order.CreatedAt,
		DeliverBy:        order.DeliverBy,
	}
}

// OrderDetail returns one order for the confirmation page.
func OrderDetail(store ordersvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders store unavailable"))
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := store.FindByID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderDetailResponse(order))
	}
}
