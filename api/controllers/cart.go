package controllers

import (
	"net/http"
	"strings"

	"github.com/bookhaven/storefront-backend/api/responses"
	"github.com/bookhaven/storefront-backend/api/validators"
	cartsvc "github.com/bookhaven/storefront-backend/internal/cart"
	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
	"github.com/bookhaven/storefront-backend/pkg/logger"
	"github.com/bookhaven/storefront-backend/pkg/money"
	"github.com/bookhaven/storefront-backend/pkg/types"
)

const cartIDHeader = "X-Cart-Id"

// cartIDFrom pulls the shopper's cart identifier off the request. The
// storefront mints the ID client-side and replays it on every call.
func cartIDFrom(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(cartIDHeader))
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart id header required")
	}
	return id, nil
}

type cartResponse struct {
	CartID   string           `json:"cart_id"`
	Items    types.OrderItems `json:"items"`
	Count    int              `json:"count"`
	Subtotal string           `json:"subtotal"`
}

func newCartResponse(cartID string, items types.OrderItems) cartResponse {
	count := 0
	for _, item := range items {
		count += item.Qty
	}
	return cartResponse{
		CartID:   cartID,
		Items:    items,
		Count:    count,
		Subtotal: money.Format("₦", cartsvc.SubtotalOf(items)),
	}
}

// CartFetch returns the current cart contents with derived totals.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := cartIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.Items(r.Context(), cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(cartID, items))
	}
}

type addCartItemRequest struct {
	Title string `json:"title" validate:"required"`
	Price string `json:"price" validate:"required"`
	Qty   int    `json:"qty"`
	Image string `json:"image"`
}

// CartAdd merges a book into the cart, bumping quantity when the title is
// already present.
func CartAdd(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := cartIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.Add(r.Context(), cartID, types.OrderItem{
			Title: payload.Title,
			Price: payload.Price,
			Qty:   payload.Qty,
			Image: payload.Image,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(cartID, items))
	}
}

type cartLineRequest struct {
	Title string `json:"title" validate:"required"`
}

type cartLineOp func(r *http.Request, cartID, title string) (types.OrderItems, error)

func cartLineHandler(logg *logger.Logger, op cartLineOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := cartIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := op(r, cartID, payload.Title)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(cartID, items))
	}
}

// CartIncrease bumps a line's quantity by one.
func CartIncrease(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartLineHandler(logg, func(r *http.Request, cartID, title string) (types.OrderItems, error) {
		return svc.Increase(r.Context(), cartID, title)
	})
}

// CartDecrease lowers a line's quantity by one, removing the line when it
// would drop below one.
func CartDecrease(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartLineHandler(logg, func(r *http.Request, cartID, title string) (types.OrderItems, error) {
		return svc.Decrease(r.Context(), cartID, title)
	})
}

// CartRemove drops a line regardless of quantity.
func CartRemove(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartLineHandler(logg, func(r *http.Request, cartID, title string) (types.OrderItems, error) {
		return svc.Remove(r.Context(), cartID, title)
	})
}

// CartClear empties the cart.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := cartIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Clear(r.Context(), cartID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(cartID, nil))
	}
}
