package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookhaven/storefront-backend/pkg/db/models"
	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
)

type stubAlertStore struct {
	alerts []models.BackofficeAlert
	err    error

	gotLimit  int
	markedIDs []string
}

func (s *stubAlertStore) Create(ctx context.Context, alert *models.BackofficeAlert) error {
	return s.err
}

func (s *stubAlertStore) ListUnread(ctx context.Context, limit int) ([]models.BackofficeAlert, error) {
	s.gotLimit = limit
	return s.alerts, s.err
}

func (s *stubAlertStore) MarkRead(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	s.markedIDs = append(s.markedIDs, id)
	return nil
}

func TestBackofficeAlertsListDefaultsLimit(t *testing.T) {
	t.Parallel()

	store := &stubAlertStore{alerts: []models.BackofficeAlert{{ID: uuid.New(), Severity: "warning", Message: "order update failed"}}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/alerts", nil)
	resp := httptest.NewRecorder()
	BackofficeAlertsList(store, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if store.gotLimit != defaultAlertLimit {
		t.Fatalf("expected default limit %d got %d", defaultAlertLimit, store.gotLimit)
	}
}

func TestBackofficeAlertsListRejectsBadLimit(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/alerts?limit=zero", nil)
	resp := httptest.NewRecorder()
	BackofficeAlertsList(&stubAlertStore{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestBackofficeAlertMarkRead(t *testing.T) {
	t.Parallel()

	store := &stubAlertStore{}
	alertID := uuid.NewString()

	router := chi.NewRouter()
	router.Post("/api/v1/admin/alerts/{alertId}/read", BackofficeAlertMarkRead(store, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/alerts/"+alertID+"/read", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(store.markedIDs) != 1 || store.markedIDs[0] != alertID {
		t.Fatalf("expected alert %s marked, got %v", alertID, store.markedIDs)
	}
}

func TestBackofficeAlertMarkReadUnknown(t *testing.T) {
	t.Parallel()

	store := &stubAlertStore{err: pkgerrors.New(pkgerrors.CodeNotFound, "alert not found")}

	router := chi.NewRouter()
	router.Post("/api/v1/admin/alerts/{alertId}/read", BackofficeAlertMarkRead(store, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/alerts/"+uuid.NewString()+"/read", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
