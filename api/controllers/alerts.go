package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bookhaven/storefront-backend/api/responses"
	"github.com/bookhaven/storefront-backend/internal/notifications"
	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
	"github.com/bookhaven/storefront-backend/pkg/logger"
)

const defaultAlertLimit = 50

// BackofficeAlertsList returns unread alerts for the admin dashboard, newest
// first.
func BackofficeAlertsList(store notifications.AlertStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alert store unavailable"))
			return
		}

		limit := defaultAlertLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			limit = parsed
		}

		alerts, err := store.ListUnread(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"alerts": alerts})
	}
}

// BackofficeAlertMarkRead acknowledges one alert.
func BackofficeAlertMarkRead(store notifications.AlertStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alert store unavailable"))
			return
		}

		alertID := chi.URLParam(r, "alertId")
		if alertID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "alert id required"))
			return
		}

		if err := store.MarkRead(r.Context(), alertID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "read"})
	}
}
